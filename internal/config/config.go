package config

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Config holds all configuration for a single pipeline run. It is loaded
// once at the start of an invocation and read-only afterwards.
type Config struct {
	// Destination identifiers
	TableName    string
	SlackChannel string

	// Marketplace identifiers
	AppStoreAppID   string
	PlayPackageName string

	// Secrets resolved from the parameter store
	AppStoreKeyID          string
	AppStoreIssuerID       string
	AppStorePrivateKey     string
	PlayServiceAccountJSON string
	SlackBotToken          string

	// MigrationMode widens pagination depth for one-time backfills and
	// suppresses outbound notifications.
	MigrationMode bool

	Debug bool
}

// Parameter store key suffixes, joined to the configured secret prefix.
const (
	paramAppStoreKeyID      = "app-store-key-id"
	paramAppStoreIssuerID   = "app-store-issuer-id"
	paramAppStorePrivateKey = "app-store-private-key"
	paramPlayServiceAccount = "play-service-account"
	paramSlackBotToken      = "slack-bot-token"
)

const defaultSecretPrefix = "/sometime/review-collector"

// Load resolves configuration from environment variables and the secret
// store. Any missing required environment variable or secret fails the load;
// no partial Config is ever returned. Fetched secrets go through cache so
// warm invocations of the same process skip the network round trips.
func Load(ctx context.Context, secrets SecretStore, cache *SecretCache) (*Config, error) {
	cfg := &Config{
		MigrationMode: getBoolEnv("MIGRATION_MODE", false),
		Debug:         getBoolEnv("DEBUG", false),
	}

	required := []struct {
		key  string
		dest *string
	}{
		{"REVIEWS_TABLE", &cfg.TableName},
		{"SLACK_CHANNEL", &cfg.SlackChannel},
		{"APP_STORE_APP_ID", &cfg.AppStoreAppID},
		{"PLAY_PACKAGE_NAME", &cfg.PlayPackageName},
	}
	for _, r := range required {
		value := os.Getenv(r.key)
		if value == "" {
			return nil, fmt.Errorf("missing required environment variable %s", r.key)
		}
		*r.dest = value
	}

	prefix := getEnv("SECRET_PREFIX", defaultSecretPrefix)

	fetch := func(suffix string, dest *string) func() error {
		return func() error {
			name := prefix + "/" + suffix
			value, err := cache.GetOrFetch(ctx, secrets, name)
			if err != nil {
				return fmt.Errorf("failed to resolve secret %s: %w", name, err)
			}
			*dest = value
			return nil
		}
	}

	var g errgroup.Group
	g.Go(fetch(paramAppStoreKeyID, &cfg.AppStoreKeyID))
	g.Go(fetch(paramAppStoreIssuerID, &cfg.AppStoreIssuerID))
	g.Go(fetch(paramAppStorePrivateKey, &cfg.AppStorePrivateKey))
	g.Go(fetch(paramPlayServiceAccount, &cfg.PlayServiceAccountJSON))
	g.Go(fetch(paramSlackBotToken, &cfg.SlackBotToken))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
