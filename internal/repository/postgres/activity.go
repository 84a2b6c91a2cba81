package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
)

type activityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository returns a read-only view over the activity log.
// Events are appended by the upstream logging collaborators.
func NewActivityRepository(db *sqlx.DB) repository.ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) ListSince(ctx context.Context, clientID uuid.UUID, since time.Time) ([]*model.ActivityEvent, error) {
	query := `
		SELECT * FROM activity_events
		WHERE client_id = $1 AND timestamp >= $2
		ORDER BY timestamp ASC
	`
	var events []*model.ActivityEvent
	if err := r.db.SelectContext(ctx, &events, query, clientID, since); err != nil {
		return nil, fmt.Errorf("failed to list activity events: %w", err)
	}
	for _, ev := range events {
		if err := unmarshalMetadata(ev); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (r *activityRepository) LastEvent(ctx context.Context, clientID uuid.UUID) (*model.ActivityEvent, error) {
	query := `
		SELECT * FROM activity_events
		WHERE client_id = $1
		ORDER BY timestamp DESC LIMIT 1
	`
	var event model.ActivityEvent
	err := r.db.GetContext(ctx, &event, query, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last activity event: %w", err)
	}
	if err := unmarshalMetadata(&event); err != nil {
		return nil, err
	}
	return &event, nil
}

func unmarshalMetadata(ev *model.ActivityEvent) error {
	if len(ev.RawMetadata) == 0 {
		return nil
	}
	if err := json.Unmarshal(ev.RawMetadata, &ev.Metadata); err != nil {
		return fmt.Errorf("failed to unmarshal event %s metadata: %w", ev.ID, err)
	}
	return nil
}
