package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
)

type preferenceRepository struct {
	db *sqlx.DB
}

func NewPreferenceRepository(db *sqlx.DB) repository.PreferenceRepository {
	return &preferenceRepository{db: db}
}

// Get returns the stored preference, or the default when the client has
// never been configured.
func (r *preferenceRepository) Get(ctx context.Context, clientID uuid.UUID) (*model.NotificationPreference, error) {
	query := `SELECT * FROM notification_preferences WHERE client_id = $1`
	var pref model.NotificationPreference
	err := r.db.GetContext(ctx, &pref, query, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultPreference(clientID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}
	return &pref, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, pref *model.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (client_id, sms, web_push, in_app,
			frequency, daily_limit, quiet_hours_enabled, quiet_hours_start,
			quiet_hours_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (client_id) DO UPDATE SET
			sms = EXCLUDED.sms,
			web_push = EXCLUDED.web_push,
			in_app = EXCLUDED.in_app,
			frequency = EXCLUDED.frequency,
			daily_limit = EXCLUDED.daily_limit,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			updated_at = EXCLUDED.updated_at
	`
	pref.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		pref.ClientID,
		pref.SMS,
		pref.WebPush,
		pref.InApp,
		pref.Frequency,
		pref.DailyLimit,
		pref.QuietHoursEnabled,
		pref.QuietHoursStart,
		pref.QuietHoursEnd,
		pref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}
	return nil
}
