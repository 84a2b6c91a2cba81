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

type recommendationRepository struct {
	db *sqlx.DB
}

func NewRecommendationRepository(db *sqlx.DB) repository.RecommendationRepository {
	return &recommendationRepository{db: db}
}

func (r *recommendationRepository) Create(ctx context.Context, rec *model.Recommendation) error {
	query := `
		INSERT INTO recommendations (id, client_id, trigger_id, message, reason,
			priority, status, created_at, sent_at, sent_via)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.ClientID,
		rec.TriggerID,
		rec.Message,
		rec.Reason,
		rec.Priority,
		rec.Status,
		rec.CreatedAt,
		rec.SentAt,
		rec.SentVia,
	)
	if err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}
	return nil
}

func (r *recommendationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Recommendation, error) {
	query := `SELECT * FROM recommendations WHERE id = $1`
	var rec model.Recommendation
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}
	return &rec, nil
}

func (r *recommendationRepository) List(ctx context.Context, filters *model.RecommendationFilters) ([]*model.Recommendation, error) {
	query := `SELECT * FROM recommendations WHERE client_id = $1`
	args := []interface{}{filters.ClientID}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filters.Priority != "" {
		args = append(args, filters.Priority)
		query += fmt.Sprintf(` AND priority = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	var recs []*model.Recommendation
	err := r.db.SelectContext(ctx, &recs, query, args...)
	return recs, err
}

// MarkSent is guarded against terminal states so a recommendation can only
// ever be sent once.
func (r *recommendationRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, sentVia string) error {
	query := `
		UPDATE recommendations SET status = $1, sent_at = $2, sent_via = $3
		WHERE id = $4 AND status NOT IN ($5, $6)
	`
	res, err := r.db.ExecContext(ctx, query,
		model.RecommendationStatusSent, sentAt, sentVia, id,
		model.RecommendationStatusSent, model.RecommendationStatusDismissed)
	if err != nil {
		return fmt.Errorf("failed to mark recommendation sent: %w", err)
	}
	return checkTransition(res, id)
}

func (r *recommendationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RecommendationStatus) error {
	query := `
		UPDATE recommendations SET status = $1
		WHERE id = $2 AND status NOT IN ($3, $4)
	`
	res, err := r.db.ExecContext(ctx, query, status, id,
		model.RecommendationStatusSent, model.RecommendationStatusDismissed)
	if err != nil {
		return fmt.Errorf("failed to update recommendation status: %w", err)
	}
	return checkTransition(res, id)
}

func checkTransition(res interface{ RowsAffected() (int64, error) }, id uuid.UUID) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("recommendation %s is missing or already terminal", id)
	}
	return nil
}

func (r *recommendationRepository) CountSentSince(ctx context.Context, clientID uuid.UUID, cutoff time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM recommendations
		WHERE client_id = $1 AND status = $2 AND sent_at >= $3
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query, clientID, model.RecommendationStatusSent, cutoff); err != nil {
		return 0, fmt.Errorf("failed to count sent recommendations: %w", err)
	}
	return count, nil
}

func (r *recommendationRepository) ListScheduled(ctx context.Context, limit int) ([]*model.Recommendation, error) {
	query := `
		SELECT * FROM recommendations
		WHERE status = $1
		ORDER BY created_at ASC LIMIT $2
	`
	var recs []*model.Recommendation
	err := r.db.SelectContext(ctx, &recs, query, model.RecommendationStatusScheduled, limit)
	return recs, err
}
