package notifications

import (
	"context"

	"github.com/sometime-app/review-collector/internal/models"
)

// Notifier is the contract for posting a digest of newly collected reviews.
type Notifier interface {
	SendDigest(ctx context.Context, reviews []models.ReviewRecord) error
}
