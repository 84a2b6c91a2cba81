package trigger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
	apperrors "github.com/coachpulse/engage-api/pkg/errors"
)

type Service interface {
	List(ctx context.Context, filters *model.TriggerFilters) ([]*model.Trigger, error)
	// Resolve marks a trigger handled (coach dismissal or client
	// re-engagement). Triggers are never deleted.
	Resolve(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo repository.TriggerRepository
}

func NewService(repo repository.TriggerRepository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, filters *model.TriggerFilters) ([]*model.Trigger, error) {
	triggers, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	return triggers, nil
}

func (s *service) Resolve(ctx context.Context, id uuid.UUID) error {
	trigger, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperrors.NotFound("trigger", err)
	}
	if trigger.IsResolved {
		return nil
	}
	return s.repo.Resolve(ctx, id)
}
