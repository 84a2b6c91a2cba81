package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
)

type triggerRepository struct {
	db *sqlx.DB
}

func NewTriggerRepository(db *sqlx.DB) repository.TriggerRepository {
	return &triggerRepository{db: db}
}

func (r *triggerRepository) Create(ctx context.Context, trigger *model.Trigger) error {
	query := `
		INSERT INTO triggers (id, client_id, type, severity, detected_at, reason,
			recommended_action, is_resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		trigger.ID,
		trigger.ClientID,
		trigger.Type,
		trigger.Severity,
		trigger.DetectedAt,
		trigger.Reason,
		trigger.RecommendedAction,
		trigger.IsResolved,
	)
	if err != nil {
		return fmt.Errorf("failed to create trigger: %w", err)
	}
	return nil
}

func (r *triggerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Trigger, error) {
	query := `SELECT * FROM triggers WHERE id = $1`
	var trigger model.Trigger
	if err := r.db.GetContext(ctx, &trigger, query, id); err != nil {
		return nil, fmt.Errorf("failed to get trigger: %w", err)
	}
	return &trigger, nil
}

func (r *triggerRepository) List(ctx context.Context, filters *model.TriggerFilters) ([]*model.Trigger, error) {
	query := `SELECT * FROM triggers WHERE client_id = $1`
	args := []interface{}{filters.ClientID}
	if filters.Unresolved {
		query += ` AND is_resolved = false`
	}
	if filters.Type != "" {
		args = append(args, filters.Type)
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if !filters.Since.IsZero() {
		args = append(args, filters.Since)
		query += fmt.Sprintf(` AND detected_at >= $%d`, len(args))
	}
	query += ` ORDER BY detected_at DESC`

	var triggers []*model.Trigger
	err := r.db.SelectContext(ctx, &triggers, query, args...)
	return triggers, err
}

// Resolve flips is_resolved; triggers are never deleted.
func (r *triggerRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE triggers SET is_resolved = true WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to resolve trigger: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("trigger %s not found", id)
	}
	return nil
}

func (r *triggerRepository) ExistsSince(ctx context.Context, clientID uuid.UUID, triggerType model.TriggerType, cutoff time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM triggers
			WHERE client_id = $1 AND type = $2 AND detected_at >= $3
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, clientID, triggerType, cutoff); err != nil {
		return false, fmt.Errorf("failed to check recent triggers: %w", err)
	}
	return exists, nil
}
