package collectors

import (
	"context"

	"github.com/sometime-app/review-collector/internal/models"
)

// Collector is the contract for a single marketplace review source.
type Collector interface {
	// Name identifies the collector in logs and metrics.
	Name() string
	// Enabled reports whether the collector has the credentials it needs.
	Enabled() bool
	// Collect fetches up to maxPages pages of recent reviews, newest first,
	// normalized into the common Review shape.
	Collect(ctx context.Context, maxPages int) ([]models.Review, error)
}
