package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReview_PK(t *testing.T) {
	tests := []struct {
		name     string
		review   Review
		expected string
	}{
		{
			name:     "App Store review",
			review:   Review{ReviewID: "10823", Store: AppStore},
			expected: "REVIEW#APP_STORE#10823",
		},
		{
			name:     "Play Store review",
			review:   Review{ReviewID: "gp:AOqpTOE", Store: PlayStore},
			expected: "REVIEW#PLAY_STORE#gp:AOqpTOE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.review.PK())
		})
	}
}

func TestReview_SK(t *testing.T) {
	review := Review{
		ReviewID:  "1",
		Store:     AppStore,
		CreatedAt: time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC),
	}
	assert.Equal(t, "CREATED#2025-06-14T09:30:00Z", review.SK())
}

func TestNewReviewRecord(t *testing.T) {
	createdAt := time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)
	collectedAt := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	review := Review{
		ReviewID:   "42",
		Store:      PlayStore,
		Rating:     4,
		Body:       "Nice app",
		Author:     "someone",
		AppVersion: "2.14.1",
		Language:   "ko",
		CreatedAt:  createdAt,
	}

	record := NewReviewRecord(review, collectedAt)

	assert.Equal(t, "REVIEW#PLAY_STORE#42", record.PK)
	assert.Equal(t, "CREATED#2025-06-14T09:30:00Z", record.SK)
	assert.Equal(t, "42", record.ReviewID)
	assert.Equal(t, PlayStore, record.Store)
	assert.Equal(t, 4, record.Rating)
	assert.Equal(t, "Nice app", record.Body)
	assert.Equal(t, "2.14.1", record.AppVersion)
	assert.Equal(t, "2025-06-14T09:30:00Z", record.CreatedAt)
	assert.Equal(t, "2025-06-15T00:00:00Z", record.CollectedAt)
}
