package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
	"github.com/coachpulse/engage-api/internal/service/dispatch"
	"github.com/coachpulse/engage-api/pkg/logger"
	"github.com/coachpulse/engage-api/pkg/metrics"
)

type SchedulerConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// Scheduler releases scheduled recommendations back to pending once their
// deferral reason has passed (quiet hours ended, cap window rolled over)
// and re-runs dispatch on them.
type Scheduler struct {
	recs    repository.RecommendationRepository
	prefs   repository.PreferenceRepository
	disp    dispatch.Service
	config  SchedulerConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewScheduler(
	recs repository.RecommendationRepository,
	prefs repository.PreferenceRepository,
	disp dispatch.Service,
	config SchedulerConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Scheduler {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}

	return &Scheduler{
		recs:    recs,
		prefs:   prefs,
		disp:    disp,
		config:  config,
		logger:  log,
		metrics: m,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.logger.Info("Starting dispatch scheduler")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down dispatch scheduler")
			return
		case <-ticker.C:
			if err := s.processScheduled(ctx); err != nil {
				s.logger.Error(err, "Failed to process scheduled recommendations")
			}
		}
	}
}

func (s *Scheduler) processScheduled(ctx context.Context) error {
	timer := prometheus.NewTimer(s.metrics.SchedulerLatency)
	defer timer.ObserveDuration()

	scheduled, err := s.recs.ListScheduled(ctx, s.config.BatchSize)
	if err != nil {
		s.metrics.DatabaseOperations.WithLabelValues("list_scheduled", "error").Inc()
		return fmt.Errorf("failed to list scheduled recommendations: %w", err)
	}
	s.metrics.DatabaseOperations.WithLabelValues("list_scheduled", "success").Inc()

	now := time.Now()
	for _, rec := range scheduled {
		if err := s.release(ctx, rec, now); err != nil {
			s.logger.Error(err, "Failed to release scheduled recommendation",
				"recommendation_id", rec.ID.String())
			continue
		}
	}

	return nil
}

// release re-evaluates one scheduled recommendation. Preferences are read
// fresh each cycle since the coach may have changed them since deferral.
func (s *Scheduler) release(ctx context.Context, rec *model.Recommendation, now time.Time) error {
	pref, err := s.prefs.Get(ctx, rec.ClientID)
	if err != nil {
		return fmt.Errorf("failed to read preference: %w", err)
	}
	if pref.InQuietHours(now) {
		return nil
	}

	if err := s.recs.UpdateStatus(ctx, rec.ID, model.RecommendationStatusPending); err != nil {
		return fmt.Errorf("failed to release to pending: %w", err)
	}
	s.metrics.ScheduledReleased.Inc()

	// Dispatch re-applies cap policy and may schedule it right back; a
	// total channel failure leaves it pending for manual retry.
	if _, err := s.disp.Dispatch(ctx, rec.ID, nil, now); err != nil {
		return fmt.Errorf("re-dispatch failed: %w", err)
	}
	return nil
}
