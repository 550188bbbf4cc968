package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/sometime-app/review-collector/internal/pipeline"
)

// Runs are bounded well under the hourly schedule.
const runTimeout = 10 * time.Minute

// Service drives periodic collection runs when the collector is deployed as
// a long-running daemon instead of a scheduled Lambda.
type Service struct {
	pipeline *pipeline.Service
	cron     *cron.Cron
}

// NewService creates a scheduler around the given pipeline.
func NewService(p *pipeline.Service) *Service {
	return &Service{
		pipeline: p,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins hourly collection runs.
func (s *Service) Start() error {
	// Run at the top of every hour
	_, err := s.cron.AddFunc("0 0 * * * *", func() {
		logrus.Info("Starting scheduled collection run")

		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if err := s.pipeline.Run(ctx); err != nil {
			logrus.Errorf("Scheduled collection run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Info("Scheduler started with hourly collection runs")
	return nil
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
