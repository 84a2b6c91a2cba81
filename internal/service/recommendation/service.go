package recommendation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
	apperrors "github.com/coachpulse/engage-api/pkg/errors"
)

type Service interface {
	// CreateForTrigger generates and persists a pending recommendation for
	// an unresolved trigger.
	CreateForTrigger(ctx context.Context, trigger *model.Trigger) (*model.Recommendation, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Recommendation, error)
	List(ctx context.Context, filters *model.RecommendationFilters) ([]*model.Recommendation, error)
	Dismiss(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo repository.RecommendationRepository
}

func NewService(repo repository.RecommendationRepository) Service {
	return &service{repo: repo}
}

// Generate maps a trigger to a proposed coach message. It is a pure
// function of the trigger's content: identical triggers yield identical
// message, reason and priority. Preferences and quiet hours are none of
// its business; those belong to the dispatcher.
func Generate(trigger *model.Trigger) *model.Recommendation {
	template := templateFor(trigger.Type, trigger.Severity)
	return &model.Recommendation{
		ClientID:  trigger.ClientID,
		TriggerID: &trigger.ID,
		Message:   template,
		Reason:    trigger.Reason,
		Priority:  priorityFor(trigger.Severity),
		Status:    model.RecommendationStatusPending,
	}
}

func priorityFor(severity model.TriggerSeverity) model.RecommendationPriority {
	switch severity {
	case model.SeverityHigh:
		return model.PriorityHigh
	case model.SeverityMedium:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// templateFor selects the coach-facing message deterministically by
// (type, severity).
func templateFor(t model.TriggerType, s model.TriggerSeverity) string {
	switch t {
	case model.TriggerTypeInactivity:
		if s == model.SeverityHigh {
			return "It's been over a day since your last check-in. Everything okay? I'm here if you need anything."
		}
		return "Haven't seen you log anything in a while today. A quick check-in keeps the momentum going!"
	case model.TriggerTypeMissedLog:
		if s == model.SeverityMedium {
			return "Looks like a couple of logs slipped today. Want to catch up together or adjust the plan?"
		}
		return "You missed a scheduled log today. No worries, just add it when you get a moment."
	case model.TriggerTypePatternDeviation:
		return "Your routine looks different from usual this week. Anything change on your end?"
	case model.TriggerTypeGoalAtRisk:
		if s == model.SeverityHigh {
			return "Your progress is moving away from the goal. Let's set up a quick call to re-plan."
		}
		return "Your numbers drifted from the target recently. Small course-correction now will keep you on track."
	case model.TriggerTypeEngagementDrop:
		if s == model.SeverityHigh {
			return "You've gone quiet this week, and I want to make sure you're doing alright. Let's reconnect."
		}
		return "Your logging slowed down compared to last week. Want to pick an easier routine for a few days?"
	default:
		return "Your coach wants to check in with you."
	}
}

func (s *service) CreateForTrigger(ctx context.Context, trigger *model.Trigger) (*model.Recommendation, error) {
	if trigger.IsResolved {
		return nil, apperrors.Conflict("trigger is already resolved", nil)
	}

	rec := Generate(trigger)
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create recommendation: %w", err)
	}
	return rec, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Recommendation, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("recommendation", err)
	}
	return rec, nil
}

func (s *service) List(ctx context.Context, filters *model.RecommendationFilters) ([]*model.Recommendation, error) {
	recs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return recs, nil
}

func (s *service) Dismiss(ctx context.Context, id uuid.UUID) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperrors.NotFound("recommendation", err)
	}
	if rec.Terminal() {
		return apperrors.Conflict(fmt.Sprintf("recommendation is already %s", rec.Status), nil)
	}
	return s.repo.UpdateStatus(ctx, id, model.RecommendationStatusDismissed)
}
