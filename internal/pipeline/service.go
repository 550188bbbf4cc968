package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sometime-app/review-collector/internal/collectors"
	"github.com/sometime-app/review-collector/internal/config"
	"github.com/sometime-app/review-collector/internal/models"
	"github.com/sometime-app/review-collector/internal/notifications"
	"github.com/sometime-app/review-collector/internal/storage"
)

// Pagination depth per run. Migration runs walk deep into the review history
// for one-time backfills; regular runs only need the newest few pages.
const (
	defaultMaxPages   = 3
	migrationMaxPages = 50
)

// Service orchestrates one collection run: fetch from every store
// concurrently, persist the unseen reviews, post a digest.
type Service struct {
	config     *config.Config
	collectors []collectors.Collector
	store      storage.ReviewStore
	notifier   notifications.Notifier
	metrics    *Metrics
	mu         sync.RWMutex
}

// Metrics holds counters from the most recent run.
type Metrics struct {
	LastRun         time.Time      `json:"last_run"`
	LastRunDuration string         `json:"last_run_duration"`
	CollectedTotal  int            `json:"collected_total"`
	NewReviews      int            `json:"new_reviews"`
	StoreCounts     map[string]int `json:"store_counts"`
	ErrorCount      int            `json:"error_count"`
}

// collectResult tags one collector's outcome so failures stay isolated to
// the store they came from.
type collectResult struct {
	name    string
	reviews []models.Review
	err     error
}

func NewService(cfg *config.Config, cols []collectors.Collector, store storage.ReviewStore, notifier notifications.Notifier) *Service {
	return &Service{
		config:     cfg,
		collectors: cols,
		store:      store,
		notifier:   notifier,
		metrics:    &Metrics{StoreCounts: make(map[string]int)},
	}
}

// Run executes one end-to-end collection run.
//
// Collector failures degrade to partial data; persistence and notification
// failures abort the run. There is no retry machinery here - a failed run is
// corrected by the next scheduled invocation.
func (s *Service) Run(ctx context.Context) error {
	start := time.Now()

	maxPages := defaultMaxPages
	if s.config.MigrationMode {
		maxPages = migrationMaxPages
		logrus.Infof("Migration mode: paging up to %d pages per store, notifications suppressed", maxPages)
	}

	results := s.collectAll(ctx, maxPages)

	var merged []models.Review
	errorCount := 0
	storeCounts := make(map[string]int)
	for _, result := range results {
		if result.err != nil {
			logrus.Errorf("Collector %s failed: %v", result.name, result.err)
			errorCount++
			continue
		}
		logrus.Infof("Collected %d reviews from %s", len(result.reviews), result.name)
		storeCounts[result.name] = len(result.reviews)
		merged = append(merged, result.reviews...)
	}

	if len(merged) == 0 {
		logrus.Info("No reviews collected, nothing to persist")
		s.updateMetrics(0, 0, storeCounts, errorCount, time.Since(start))
		return nil
	}

	newRecords, err := s.store.SaveNew(ctx, merged)
	if err != nil {
		logrus.Errorf("Failed to persist reviews: %v", err)
		return err
	}

	s.updateMetrics(len(merged), len(newRecords), storeCounts, errorCount, time.Since(start))

	if len(newRecords) == 0 {
		logrus.Info("No new reviews this run")
		return nil
	}
	if s.config.MigrationMode {
		logrus.Infof("Migration mode: skipping notification for %d new reviews", len(newRecords))
		return nil
	}

	if err := s.notifier.SendDigest(ctx, newRecords); err != nil {
		// Records are already durable; only this batch's digest is lost.
		logrus.Errorf("Failed to send digest: %v", err)
		return err
	}

	logrus.Infof("Run completed in %v: %d collected, %d new", time.Since(start), len(merged), len(newRecords))
	return nil
}

// collectAll runs every enabled collector in its own goroutine and waits for
// all of them to settle. One collector's failure never cancels the other's
// in-flight work, so the context handed down is the caller's, not a
// per-group cancelable one.
func (s *Service) collectAll(ctx context.Context, maxPages int) []collectResult {
	var wg sync.WaitGroup
	resultsChan := make(chan collectResult, len(s.collectors))

	for _, collector := range s.collectors {
		if !collector.Enabled() {
			logrus.Debugf("Collector %s disabled, skipping", collector.Name())
			continue
		}

		wg.Add(1)
		go func(c collectors.Collector) {
			defer wg.Done()

			logrus.Infof("Fetching reviews from %s (max %d pages)", c.Name(), maxPages)
			reviews, err := c.Collect(ctx, maxPages)
			resultsChan <- collectResult{name: c.Name(), reviews: reviews, err: err}
		}(collector)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var results []collectResult
	for result := range resultsChan {
		results = append(results, result)
	}
	return results
}

func (s *Service) updateMetrics(collected, newReviews int, storeCounts map[string]int, errorCount int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.CollectedTotal = collected
	s.metrics.NewReviews = newReviews
	s.metrics.StoreCounts = storeCounts
	s.metrics.ErrorCount = errorCount
}

// GetMetrics returns the last run's metrics as JSON.
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
