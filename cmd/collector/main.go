package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/sirupsen/logrus"

	"github.com/sometime-app/review-collector/internal/collectors"
	"github.com/sometime-app/review-collector/internal/config"
	"github.com/sometime-app/review-collector/internal/notifications"
	"github.com/sometime-app/review-collector/internal/pipeline"
	"github.com/sometime-app/review-collector/internal/storage"
)

// secretCache lives at package level so warm invocations of the same Lambda
// process reuse already-fetched secrets instead of hitting SSM again.
var secretCache = config.NewSecretCache()

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	lambda.Start(handler)
}

// handler runs one collection pipeline invocation, triggered by an
// EventBridge schedule. The event shape is not interpreted, only logged.
func handler(ctx context.Context, event events.CloudWatchEvent) error {
	logrus.Infof("Collection triggered by %s (%s) at %s",
		event.Source, event.DetailType, event.Time)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	secrets := config.NewSSMStore(ssm.NewFromConfig(awsCfg))
	cfg, err := config.Load(ctx, secrets, secretCache)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	service := pipeline.NewService(
		cfg,
		[]collectors.Collector{
			collectors.NewAppStoreCollector(cfg.AppStoreAppID, cfg.AppStoreKeyID,
				cfg.AppStoreIssuerID, cfg.AppStorePrivateKey),
			collectors.NewPlayStoreCollector(cfg.PlayPackageName, cfg.PlayServiceAccountJSON),
		},
		storage.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName),
		notifications.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel),
	)

	return service.Run(ctx)
}
