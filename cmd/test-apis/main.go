package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"github.com/sometime-app/review-collector/internal/collectors"
	"github.com/sometime-app/review-collector/internal/config"
)

func main() {
	fmt.Println("🔍 SOMETIME Review Collector - API Connectivity Test")
	fmt.Println("====================================================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	secrets := config.NewSSMStore(ssm.NewFromConfig(awsCfg))
	cfg, err := config.Load(ctx, secrets, config.NewSecretCache())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("\n📡 Testing marketplace APIs...")
	fmt.Println(strings.Repeat("-", 40))

	testCollector(ctx, "App Store", collectors.NewAppStoreCollector(
		cfg.AppStoreAppID, cfg.AppStoreKeyID, cfg.AppStoreIssuerID, cfg.AppStorePrivateKey))
	testCollector(ctx, "Play Store", collectors.NewPlayStoreCollector(
		cfg.PlayPackageName, cfg.PlayServiceAccountJSON))

	fmt.Println("\n✅ API connectivity test completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Fill in any missing SSM parameters")
	fmt.Println("   • Run the daemon with: go run ./cmd/daemon")
	fmt.Println("   • Preview the digest with: go run ./cmd/test-digest")
}

func testCollector(ctx context.Context, name string, collector collectors.Collector) {
	fmt.Printf("🔸 Testing %s... ", name)

	if !collector.Enabled() {
		fmt.Printf("⚠️  DISABLED (missing credentials)\n")
		return
	}

	reviews, err := collector.Collect(ctx, 1)
	if err != nil {
		fmt.Printf("❌ FAILED: %v\n", err)
		return
	}

	fmt.Printf("✅ OK (%d reviews on first page)\n", len(reviews))
}
