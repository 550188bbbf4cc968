package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sometime-app/review-collector/internal/models"
	"github.com/sometime-app/review-collector/internal/notifications"
)

// Posts a digest built from sample reviews so the Slack formatting can be
// checked without touching the marketplace APIs or the reviews table.
func main() {
	fmt.Println("📬 SOMETIME Review Collector - Digest Preview")
	fmt.Println("=============================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	token := os.Getenv("SLACK_BOT_TOKEN")
	channel := os.Getenv("SLACK_CHANNEL")
	if token == "" || channel == "" {
		log.Fatal("SLACK_BOT_TOKEN and SLACK_CHANNEL must be set")
	}

	now := time.Now()
	samples := []models.Review{
		{
			ReviewID:   "sample-1",
			Store:      models.AppStore,
			Rating:     5,
			Title:      "Met my partner here!",
			Body:       "Matched in my first week. The community boards are a nice touch.",
			Author:     "happyuser22",
			CreatedAt:  now.Add(-2 * time.Hour),
		},
		{
			ReviewID:   "sample-2",
			Store:      models.PlayStore,
			Rating:     3,
			Body:       "App is fine but chat notifications arrive late sometimes.",
			Author:     "Jin K.",
			AppVersion: "2.14.1",
			Language:   "ko",
			CreatedAt:  now.Add(-26 * time.Hour),
		},
		{
			ReviewID:  "sample-3",
			Store:     models.PlayStore,
			Rating:    1,
			Body:      "Keeps logging me out after the latest update.",
			Author:    "anon",
			CreatedAt: now.Add(-50 * time.Hour),
		},
	}

	records := make([]models.ReviewRecord, len(samples))
	for i, review := range samples {
		records[i] = models.NewReviewRecord(review, now)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	notifier := notifications.NewSlackNotifier(token, channel)
	if err := notifier.SendDigest(ctx, records); err != nil {
		log.Fatalf("Failed to send sample digest: %v", err)
	}

	fmt.Printf("\n✅ Sample digest with %d reviews posted to %s\n", len(records), channel)
}
