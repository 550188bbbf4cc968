package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/sirupsen/logrus"
)

// SecretStore is the contract the config loader depends on for resolving
// encrypted parameters.
type SecretStore interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// SSMStore resolves secrets from AWS Systems Manager Parameter Store.
type SSMStore struct {
	client *ssm.Client
}

var _ SecretStore = (*SSMStore)(nil)

func NewSSMStore(client *ssm.Client) *SSMStore {
	return &SSMStore{client: client}
}

func (s *SSMStore) GetParameter(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	return *out.Parameter.Value, nil
}

// SecretCache memoizes fetched secrets by parameter name. Entries are only
// ever added, never invalidated, so a value read once stays valid for the
// lifetime of the process. Owned by the entry point and reused across warm
// invocations.
type SecretCache struct {
	mu     sync.Mutex
	values map[string]string
}

func NewSecretCache() *SecretCache {
	return &SecretCache{values: make(map[string]string)}
}

// GetOrFetch returns the cached value for name, fetching it from store on a
// miss and caching the result.
func (c *SecretCache) GetOrFetch(ctx context.Context, store SecretStore, name string) (string, error) {
	c.mu.Lock()
	if value, ok := c.values[name]; ok {
		c.mu.Unlock()
		logrus.Debugf("Secret cache hit for %s", name)
		return value, nil
	}
	c.mu.Unlock()

	value, err := store.GetParameter(ctx, name)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.values[name] = value
	c.mu.Unlock()
	return value, nil
}

// Len reports how many secrets are currently cached.
func (c *SecretCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}
