package engagement

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/service/detector"
	"github.com/coachpulse/engage-api/internal/service/recommendation"
	apperrors "github.com/coachpulse/engage-api/pkg/errors"
	"github.com/coachpulse/engage-api/pkg/logger"
)

// Outcome is one detection run's full result: the triggers that fired, the
// recommendations generated for them and the number of rule predicates
// that failed along the way.
type Outcome struct {
	Triggers        []*model.Trigger        `json:"triggers"`
	Recommendations []*model.Recommendation `json:"recommendations"`
	FailedRules     int                     `json:"failed_rules"`
}

type Service interface {
	// RunDetection detects triggers for a client and generates one pending
	// recommendation per new trigger. Only one run per client may be in
	// flight; re-entry while the previous run is outstanding is rejected
	// rather than racing it.
	RunDetection(ctx context.Context, clientID uuid.UUID) (*Outcome, error)
}

type service struct {
	detector detector.Service
	recs     recommendation.Service
	logger   *logger.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func NewService(det detector.Service, recs recommendation.Service, log *logger.Logger) Service {
	return &service{
		detector: det,
		recs:     recs,
		logger:   log,
		inflight: make(map[uuid.UUID]struct{}),
	}
}

func (s *service) RunDetection(ctx context.Context, clientID uuid.UUID) (*Outcome, error) {
	if !s.acquire(clientID) {
		return nil, apperrors.Conflict("detection already in progress for client", nil)
	}
	defer s.release(clientID)

	result, err := s.detector.Detect(ctx, clientID)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Triggers:    result.Triggers,
		FailedRules: result.FailedRules,
	}

	for _, trigger := range result.Triggers {
		rec, err := s.recs.CreateForTrigger(ctx, trigger)
		if err != nil {
			s.logger.Error(err, "failed to generate recommendation",
				"trigger_id", trigger.ID.String())
			continue
		}
		outcome.Recommendations = append(outcome.Recommendations, rec)
	}

	return outcome, nil
}

func (s *service) acquire(clientID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[clientID]; busy {
		return false
	}
	s.inflight[clientID] = struct{}{}
	return true
}

func (s *service) release(clientID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, clientID)
}
