package preference

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
	apperrors "github.com/coachpulse/engage-api/pkg/errors"
)

type Service interface {
	Get(ctx context.Context, clientID uuid.UUID) (*model.NotificationPreference, error)
	// Update applies a partial update over the stored (or default)
	// preference and upserts the result.
	Update(ctx context.Context, clientID uuid.UUID, req *model.UpdatePreferenceRequest) (*model.NotificationPreference, error)
}

type service struct {
	repo repository.PreferenceRepository
}

func NewService(repo repository.PreferenceRepository) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, clientID uuid.UUID) (*model.NotificationPreference, error) {
	pref, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return nil, apperrors.Unavailable("preference unavailable", err)
	}
	return pref, nil
}

func (s *service) Update(ctx context.Context, clientID uuid.UUID, req *model.UpdatePreferenceRequest) (*model.NotificationPreference, error) {
	pref, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return nil, apperrors.Unavailable("preference unavailable", err)
	}

	if req.SMS != nil {
		pref.SMS = *req.SMS
	}
	if req.WebPush != nil {
		pref.WebPush = *req.WebPush
	}
	if req.InApp != nil {
		pref.InApp = *req.InApp
	}
	if req.Frequency != nil {
		pref.Frequency = *req.Frequency
	}
	if req.DailyLimit != nil {
		pref.DailyLimit = *req.DailyLimit
	}
	if req.QuietHoursEnabled != nil {
		pref.QuietHoursEnabled = *req.QuietHoursEnabled
	}
	if req.QuietHoursStart != nil {
		pref.QuietHoursStart = *req.QuietHoursStart
	}
	if req.QuietHoursEnd != nil {
		pref.QuietHoursEnd = *req.QuietHoursEnd
	}

	if err := s.validate(pref); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	if err := s.repo.Upsert(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to save preference: %w", err)
	}
	return pref, nil
}

func (s *service) validate(pref *model.NotificationPreference) error {
	if pref.DailyLimit < 0 {
		return fmt.Errorf("daily limit cannot be negative")
	}
	if !pref.Frequency.Valid() {
		return fmt.Errorf("unknown frequency %q", pref.Frequency)
	}
	if pref.QuietHoursEnabled {
		if _, err := model.ParseClock(pref.QuietHoursStart); err != nil {
			return fmt.Errorf("quiet hours start: %w", err)
		}
		if _, err := model.ParseClock(pref.QuietHoursEnd); err != nil {
			return fmt.Errorf("quiet hours end: %w", err)
		}
	}
	return nil
}
