package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/internal/model"
)

// All repository interfaces in one file
type (
	ClientRepository interface {
		Create(ctx context.Context, client *model.Client) error
		Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
		Update(ctx context.Context, client *model.Client) error
		List(ctx context.Context, filters *model.ClientFilters) ([]*model.Client, error)
	}

	// ActivityRepository is read-only to the pipeline; events are written
	// by upstream logging collaborators.
	ActivityRepository interface {
		ListSince(ctx context.Context, clientID uuid.UUID, since time.Time) ([]*model.ActivityEvent, error)
		LastEvent(ctx context.Context, clientID uuid.UUID) (*model.ActivityEvent, error)
	}

	TriggerRepository interface {
		Create(ctx context.Context, trigger *model.Trigger) error
		Get(ctx context.Context, id uuid.UUID) (*model.Trigger, error)
		List(ctx context.Context, filters *model.TriggerFilters) ([]*model.Trigger, error)
		Resolve(ctx context.Context, id uuid.UUID) error
		// ExistsSince reports whether a trigger of the given type was
		// already detected for the client after the cutoff, resolved or
		// not. Backs the deduplication window across restarts.
		ExistsSince(ctx context.Context, clientID uuid.UUID, triggerType model.TriggerType, cutoff time.Time) (bool, error)
	}

	RecommendationRepository interface {
		Create(ctx context.Context, rec *model.Recommendation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Recommendation, error)
		List(ctx context.Context, filters *model.RecommendationFilters) ([]*model.Recommendation, error)
		// MarkSent stamps sent_at/sent_via and is guarded so a terminal
		// recommendation can never be re-sent.
		MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, sentVia string) error
		// UpdateStatus transitions between non-terminal states with the
		// same guard.
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.RecommendationStatus) error
		CountSentSince(ctx context.Context, clientID uuid.UUID, cutoff time.Time) (int, error)
		ListScheduled(ctx context.Context, limit int) ([]*model.Recommendation, error)
	}

	PreferenceRepository interface {
		Get(ctx context.Context, clientID uuid.UUID) (*model.NotificationPreference, error)
		Upsert(ctx context.Context, pref *model.NotificationPreference) error
	}
)
