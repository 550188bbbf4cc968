package storage

import (
	"context"

	"github.com/sometime-app/review-collector/internal/models"
)

// ReviewStore is the contract for the dedup persistence layer.
type ReviewStore interface {
	// SaveNew persists the reviews that are not already known and returns
	// exactly the subset that was newly written.
	SaveNew(ctx context.Context, reviews []models.Review) ([]models.ReviewRecord, error)
}
