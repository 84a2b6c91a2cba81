package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coachpulse/engage-api/internal/channel"
	"github.com/coachpulse/engage-api/internal/config"
	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
	apperrors "github.com/coachpulse/engage-api/pkg/errors"
	"github.com/coachpulse/engage-api/pkg/logger"
	"github.com/coachpulse/engage-api/pkg/metrics"
)

const (
	deferQuietHours = "quiet_hours"
	deferDailyCap   = "daily_cap"
)

// Outcome is one channel attempt's result.
type Outcome struct {
	Channel channel.Channel `json:"channel"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
}

// Result aggregates a dispatch: the recommendation's resulting status plus
// per-channel outcomes. A deferred dispatch carries the reason and no
// outcomes, since no channel was attempted.
type Result struct {
	Status         model.RecommendationStatus `json:"status"`
	Outcomes       []Outcome                  `json:"outcomes,omitempty"`
	DeferredReason string                     `json:"deferred_reason,omitempty"`
	SentVia        string                     `json:"sent_via,omitempty"`
}

// Senders holds one sender per channel variant; the set is closed on
// purpose so an unknown channel cannot exist at runtime.
type Senders struct {
	SMS     channel.Sender
	WebPush channel.Sender
	InApp   channel.Sender
}

func (s Senders) forChannel(ch channel.Channel) channel.Sender {
	switch ch {
	case channel.SMS:
		return s.SMS
	case channel.WebPush:
		return s.WebPush
	case channel.InApp:
		return s.InApp
	}
	return nil
}

type Config struct {
	// CapPolicy decides what happens at the daily limit; see config docs.
	CapPolicy config.CapPolicy
	// ChannelRetries is the number of automatic retries per channel, 0 or 1.
	// Anything beyond that is the caller's problem, not ours.
	ChannelRetries int
}

type Service interface {
	// Dispatch attempts delivery of a pending or scheduled recommendation.
	// requested narrows the channel set; nil means every enabled channel.
	Dispatch(ctx context.Context, recID uuid.UUID, requested []channel.Channel, now time.Time) (*Result, error)
}

type service struct {
	recs    repository.RecommendationRepository
	prefs   repository.PreferenceRepository
	clients repository.ClientRepository
	senders Senders
	cfg     Config
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(
	recs repository.RecommendationRepository,
	prefs repository.PreferenceRepository,
	clients repository.ClientRepository,
	senders Senders,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	if cfg.CapPolicy == "" {
		cfg.CapPolicy = config.CapPolicyDefer
	}
	if cfg.ChannelRetries < 0 {
		cfg.ChannelRetries = 0
	}
	if cfg.ChannelRetries > 1 {
		cfg.ChannelRetries = 1
	}
	return &service{
		recs:    recs,
		prefs:   prefs,
		clients: clients,
		senders: senders,
		cfg:     cfg,
		logger:  log,
		metrics: m,
	}
}

func (s *service) Dispatch(ctx context.Context, recID uuid.UUID, requested []channel.Channel, now time.Time) (*Result, error) {
	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.DispatchLatency)
		defer timer.ObserveDuration()
	}

	rec, err := s.recs.Get(ctx, recID)
	if err != nil {
		return nil, apperrors.NotFound("recommendation", err)
	}

	// Sent and dismissed are terminal; re-dispatching one is a programming
	// error and must be rejected before any channel is touched.
	if rec.Terminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("recommendation is already %s", rec.Status), nil)
	}

	// Preferences may have changed between detection and dispatch, so they
	// are re-read on every decision.
	pref, err := s.prefs.Get(ctx, rec.ClientID)
	if err != nil {
		return nil, apperrors.Unavailable("preference unavailable", err)
	}

	if pref.InQuietHours(now) {
		return s.deferDispatch(ctx, rec, deferQuietHours)
	}

	if allowed, err := s.underCap(ctx, rec, pref, now); err != nil {
		return nil, err
	} else if !allowed {
		return s.deferDispatch(ctx, rec, deferDailyCap)
	}

	eligible := intersect(channel.EnabledFor(pref), requested)
	if len(eligible) == 0 {
		return &Result{Status: rec.Status}, apperrors.BadRequest("no eligible channels for dispatch", nil)
	}

	client, err := s.clients.Get(ctx, rec.ClientID)
	if err != nil {
		return nil, apperrors.Unavailable("client unavailable", err)
	}

	msg := &channel.Message{
		Client:           client,
		Title:            "Message from your coach",
		Body:             rec.Message,
		RecommendationID: rec.ID,
	}

	outcomes := s.attemptAll(ctx, eligible, msg)

	var succeeded []string
	var failures []string
	for _, o := range outcomes {
		if o.Success {
			succeeded = append(succeeded, string(o.Channel))
		} else {
			failures = append(failures, fmt.Sprintf("%s: %s", o.Channel, o.Error))
		}
	}

	// At least one channel succeeding finalizes the recommendation as sent;
	// sent_via records only the channels that made it.
	if len(succeeded) > 0 {
		sentVia := strings.Join(succeeded, ",")
		if err := s.recs.MarkSent(ctx, rec.ID, now, sentVia); err != nil {
			return nil, fmt.Errorf("delivery succeeded but status update failed: %w", err)
		}
		if s.metrics != nil {
			s.metrics.RecommendationsSent.Inc()
		}
		return &Result{
			Status:   model.RecommendationStatusSent,
			Outcomes: outcomes,
			SentVia:  sentVia,
		}, nil
	}

	// Total channel failure: the recommendation stays pending and the
	// caller decides about retry and backoff.
	return &Result{Status: model.RecommendationStatusPending, Outcomes: outcomes},
		apperrors.Unavailable(fmt.Sprintf("all channels failed: %s", strings.Join(failures, "; ")), nil)
}

// attemptAll fires one goroutine per eligible channel and joins before the
// terminal status is decided; a failing channel never blocks the others.
func (s *service) attemptAll(ctx context.Context, eligible []channel.Channel, msg *channel.Message) []Outcome {
	outcomes := make([]Outcome, len(eligible))
	var wg sync.WaitGroup
	for i, ch := range eligible {
		wg.Add(1)
		go func(i int, ch channel.Channel) {
			defer wg.Done()
			outcomes[i] = s.attempt(ctx, ch, msg)
		}(i, ch)
	}
	wg.Wait()
	return outcomes
}

func (s *service) attempt(ctx context.Context, ch channel.Channel, msg *channel.Message) Outcome {
	sender := s.senders.forChannel(ch)
	if sender == nil {
		return Outcome{Channel: ch, Error: "channel not configured"}
	}

	var err error
	for try := 0; try <= s.cfg.ChannelRetries; try++ {
		if err = sender.Send(ctx, msg); err == nil {
			if s.metrics != nil {
				s.metrics.ChannelAttempts.WithLabelValues(string(ch), "success").Inc()
			}
			return Outcome{Channel: ch, Success: true}
		}
	}

	if s.metrics != nil {
		s.metrics.ChannelAttempts.WithLabelValues(string(ch), "failure").Inc()
	}
	s.logger.Warn("channel delivery failed",
		"channel", string(ch),
		"recommendation_id", msg.RecommendationID.String(),
		"error", err.Error())
	return Outcome{Channel: ch, Error: err.Error()}
}

// underCap applies the daily limit and the configured overflow policy.
func (s *service) underCap(ctx context.Context, rec *model.Recommendation, pref *model.NotificationPreference, now time.Time) (bool, error) {
	if pref.DailyLimit <= 0 {
		return true, nil
	}
	sent, err := s.recs.CountSentSince(ctx, rec.ClientID, now.Add(-24*time.Hour))
	if err != nil {
		return false, apperrors.Unavailable("sent count unavailable", err)
	}
	if sent < pref.DailyLimit {
		return true, nil
	}
	if s.cfg.CapPolicy == config.CapPolicyAllowHigh && rec.Priority == model.PriorityHigh {
		return true, nil
	}
	return false, nil
}

func (s *service) deferDispatch(ctx context.Context, rec *model.Recommendation, reason string) (*Result, error) {
	if rec.Status != model.RecommendationStatusScheduled {
		if err := s.recs.UpdateStatus(ctx, rec.ID, model.RecommendationStatusScheduled); err != nil {
			return nil, fmt.Errorf("failed to schedule recommendation: %w", err)
		}
	}
	if s.metrics != nil {
		s.metrics.DispatchDeferred.WithLabelValues(reason).Inc()
	}
	s.logger.Debug("dispatch deferred",
		"recommendation_id", rec.ID.String(), "reason", reason)
	return &Result{Status: model.RecommendationStatusScheduled, DeferredReason: reason}, nil
}

func intersect(enabled, requested []channel.Channel) []channel.Channel {
	if requested == nil {
		return enabled
	}
	var out []channel.Channel
	for _, e := range enabled {
		for _, r := range requested {
			if e == r {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
