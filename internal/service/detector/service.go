package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
	apperrors "github.com/coachpulse/engage-api/pkg/errors"
	"github.com/coachpulse/engage-api/pkg/logger"
	"github.com/coachpulse/engage-api/pkg/metrics"
)

type Config struct {
	InactivityThreshold time.Duration
	DedupWindow         time.Duration
	DeviationRatio      float64
	DropRatio           float64
	Period              time.Duration
	Baseline            time.Duration
}

func (c *Config) applyDefaults() {
	if c.InactivityThreshold <= 0 {
		c.InactivityThreshold = 6 * time.Hour
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = 24 * time.Hour
	}
	if c.DeviationRatio <= 0 {
		c.DeviationRatio = 0.5
	}
	if c.DropRatio <= 0 {
		c.DropRatio = 0.5
	}
	if c.Period <= 0 {
		c.Period = 24 * time.Hour
	}
	if c.Baseline <= 0 {
		c.Baseline = 7 * 24 * time.Hour
	}
}

// Result is one detection run's outcome. FailedRules counts predicates
// that errored; their failures never abort the remaining rules.
type Result struct {
	Triggers    []*model.Trigger
	FailedRules int
}

type Service interface {
	// Detect loads the client's recent activity window and runs every rule
	// predicate over it.
	Detect(ctx context.Context, clientID uuid.UUID) (*Result, error)
	// DetectWindow runs the rules over a caller-supplied window. Re-running
	// on the same window is idempotent in persisted content thanks to the
	// deduplication window.
	DetectWindow(ctx context.Context, client *model.Client, events []*model.ActivityEvent, now time.Time) (*Result, error)
}

type service struct {
	triggers repository.TriggerRepository
	activity repository.ActivityRepository
	clients  repository.ClientRepository
	cfg      Config
	dedup    *gocache.Cache
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	triggers repository.TriggerRepository,
	activity repository.ActivityRepository,
	clients repository.ClientRepository,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	cfg.applyDefaults()
	return &service{
		triggers: triggers,
		activity: activity,
		clients:  clients,
		cfg:      cfg,
		dedup:    gocache.New(cfg.DedupWindow, 10*time.Minute),
		logger:   log,
		metrics:  m,
	}
}

func (s *service) Detect(ctx context.Context, clientID uuid.UUID) (*Result, error) {
	client, err := s.clients.Get(ctx, clientID)
	if err != nil {
		return nil, apperrors.NotFound("client", err)
	}

	now := time.Now()
	events, err := s.activity.ListSince(ctx, clientID, now.Add(-s.cfg.Baseline))
	if err != nil {
		// Data unavailable: abort for this client only, nothing persisted.
		return nil, apperrors.Unavailable("activity window unavailable", err)
	}

	w := &window{client: client, events: events, now: now, cfg: s.cfg}
	if len(events) == 0 {
		// Nothing inside the baseline window: fetch the last event on
		// record so the inactivity gap reflects the real silence, not
		// the window size.
		last, err := s.activity.LastEvent(ctx, clientID)
		if err != nil {
			return nil, apperrors.Unavailable("activity history unavailable", err)
		}
		if last != nil {
			w.lastSeen = last.Timestamp
		}
	}
	return s.run(ctx, w)
}

func (s *service) DetectWindow(ctx context.Context, client *model.Client, events []*model.ActivityEvent, now time.Time) (*Result, error) {
	return s.run(ctx, &window{client: client, events: events, now: now, cfg: s.cfg})
}

func (s *service) run(ctx context.Context, w *window) (*Result, error) {
	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.DetectionLatency)
		defer timer.ObserveDuration()
	}

	result := &Result{}

	for _, r := range allRules() {
		f, err := s.evalRule(r, w)
		if err != nil {
			result.FailedRules++
			s.logger.Error(err, "rule predicate failed",
				"rule", r.name, "client_id", w.client.ID.String())
			if s.metrics != nil {
				s.metrics.RuleFailures.WithLabelValues(r.name).Inc()
			}
			continue
		}
		if f == nil {
			continue
		}

		trigger, err := s.persistDeduped(ctx, w.client.ID, r.triggerType, f, w.now)
		if err != nil {
			result.FailedRules++
			s.logger.Error(err, "failed to persist trigger",
				"rule", r.name, "client_id", w.client.ID.String())
			continue
		}
		if trigger != nil {
			result.Triggers = append(result.Triggers, trigger)
			if s.metrics != nil {
				s.metrics.TriggersDetected.WithLabelValues(string(r.triggerType)).Inc()
			}
		}
	}

	return result, nil
}

// evalRule isolates a single predicate: a panic inside one rule is recorded
// as that rule's failure, not the run's.
func (s *service) evalRule(r rule, w *window) (f *finding, err error) {
	defer func() {
		if p := recover(); p != nil {
			f = nil
			err = fmt.Errorf("rule %s panicked: %v", r.name, p)
		}
	}()
	return r.eval(w)
}

// persistDeduped writes the trigger unless the same type fired for this
// client within the dedup window. The in-process cache answers the hot
// path; the repository check keeps the window intact across restarts.
func (s *service) persistDeduped(ctx context.Context, clientID uuid.UUID, t model.TriggerType, f *finding, now time.Time) (*model.Trigger, error) {
	key := clientID.String() + "|" + string(t)
	if _, dup := s.dedup.Get(key); dup {
		if s.metrics != nil {
			s.metrics.TriggersDeduped.Inc()
		}
		return nil, nil
	}

	exists, err := s.triggers.ExistsSince(ctx, clientID, t, now.Add(-s.cfg.DedupWindow))
	if err != nil {
		return nil, fmt.Errorf("dedup check failed: %w", err)
	}
	if exists {
		s.dedup.Set(key, now, gocache.DefaultExpiration)
		if s.metrics != nil {
			s.metrics.TriggersDeduped.Inc()
		}
		return nil, nil
	}

	trigger := &model.Trigger{
		ID:                uuid.New(),
		ClientID:          clientID,
		Type:              t,
		Severity:          f.severity,
		DetectedAt:        now,
		Reason:            f.reason,
		RecommendedAction: f.action,
	}
	if err := s.triggers.Create(ctx, trigger); err != nil {
		return nil, fmt.Errorf("failed to create trigger: %w", err)
	}
	s.dedup.Set(key, now, gocache.DefaultExpiration)
	return trigger, nil
}
