package client

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
	Create(ctx context.Context, coachID uuid.UUID, req *model.CreateClientRequest) (*model.Client, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context, coachID uuid.UUID) ([]*model.Client, error)
	// Activity returns the client's behavioral event window since the
	// cutoff; the log itself is owned by upstream collaborators.
	Activity(ctx context.Context, id uuid.UUID, since time.Time) ([]*model.ActivityEvent, error)
}

type service struct {
	repo     repository.ClientRepository
	activity repository.ActivityRepository
}

func NewService(repo repository.ClientRepository, activity repository.ActivityRepository) Service {
	return &service{repo: repo, activity: activity}
}

func (s *service) Create(ctx context.Context, coachID uuid.UUID, req *model.CreateClientRequest) (*model.Client, error) {
	if req.ActiveHoursStart != "" {
		if _, err := model.ParseClock(req.ActiveHoursStart); err != nil {
			return nil, apperrors.BadRequest("active hours start", err)
		}
	}
	if req.ActiveHoursEnd != "" {
		if _, err := model.ParseClock(req.ActiveHoursEnd); err != nil {
			return nil, apperrors.BadRequest("active hours end", err)
		}
	}

	c := &model.Client{
		Base:             model.Base{ID: uuid.New()},
		CoachID:          coachID,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PushEndpoint:     req.PushEndpoint,
		Status:           model.ClientStatusActive,
		ActiveHoursStart: req.ActiveHoursStart,
		ActiveHoursEnd:   req.ActiveHoursEnd,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("client", err)
	}
	return c, nil
}

func (s *service) List(ctx context.Context, coachID uuid.UUID) ([]*model.Client, error) {
	clients, err := s.repo.List(ctx, &model.ClientFilters{CoachID: coachID})
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (s *service) Activity(ctx context.Context, id uuid.UUID, since time.Time) ([]*model.ActivityEvent, error) {
	events, err := s.activity.ListSince(ctx, id, since)
	if err != nil {
		return nil, apperrors.Unavailable("activity log unavailable", err)
	}
	return events, nil
}
