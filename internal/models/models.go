package models

import (
	"fmt"
	"time"
)

// Store identifies which marketplace a review came from.
type Store string

const (
	AppStore  Store = "APP_STORE"
	PlayStore Store = "PLAY_STORE"
)

// Review represents a single user-submitted review as normalized from a
// vendor API response. Reviews are built fresh on every collection run and
// never mutated; they either become a ReviewRecord or are discarded as
// already known.
type Review struct {
	ReviewID   string    `json:"review_id"`
	Store      Store     `json:"store"`
	Rating     int       `json:"rating"` // 1-5
	Title      string    `json:"title,omitempty"`
	Body       string    `json:"body"`
	Author     string    `json:"author"`
	AppVersion string    `json:"app_version,omitempty"`
	Language   string    `json:"language,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PK returns the dedup key for this review. At most one record may exist
// per (store, reviewID) pair.
func (r Review) PK() string {
	return fmt.Sprintf("REVIEW#%s#%s", r.Store, r.ReviewID)
}

// SK returns the sort key, ordered by the vendor-reported creation time so
// records can be range-queried chronologically.
func (r Review) SK() string {
	return fmt.Sprintf("CREATED#%s", r.CreatedAt.UTC().Format(time.RFC3339))
}

// ReviewRecord is the persisted shape of a Review. Records are written once
// and never updated or deleted by this pipeline.
type ReviewRecord struct {
	PK          string `dynamodbav:"pk" json:"pk"`
	SK          string `dynamodbav:"sk" json:"sk"`
	ReviewID    string `dynamodbav:"review_id" json:"review_id"`
	Store       Store  `dynamodbav:"store" json:"store"`
	Rating      int    `dynamodbav:"rating" json:"rating"`
	Title       string `dynamodbav:"title,omitempty" json:"title,omitempty"`
	Body        string `dynamodbav:"body" json:"body"`
	Author      string `dynamodbav:"author" json:"author"`
	AppVersion  string `dynamodbav:"app_version,omitempty" json:"app_version,omitempty"`
	Language    string `dynamodbav:"language,omitempty" json:"language,omitempty"`
	CreatedAt   string `dynamodbav:"created_at" json:"created_at"`
	CollectedAt string `dynamodbav:"collected_at" json:"collected_at"`
}

// NewReviewRecord builds the persisted record for a review, stamping
// collectedAt as the ingest time of the current run.
func NewReviewRecord(review Review, collectedAt time.Time) ReviewRecord {
	return ReviewRecord{
		PK:          review.PK(),
		SK:          review.SK(),
		ReviewID:    review.ReviewID,
		Store:       review.Store,
		Rating:      review.Rating,
		Title:       review.Title,
		Body:        review.Body,
		Author:      review.Author,
		AppVersion:  review.AppVersion,
		Language:    review.Language,
		CreatedAt:   review.CreatedAt.UTC().Format(time.RFC3339),
		CollectedAt: collectedAt.UTC().Format(time.RFC3339),
	}
}
