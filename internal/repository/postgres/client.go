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

type clientRepository struct {
	db *sqlx.DB
}

func NewClientRepository(db *sqlx.DB) repository.ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	query := `
		INSERT INTO clients (id, coach_id, name, email, phone, push_endpoint, status,
			active_hours_start, active_hours_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	client.CreatedAt = time.Now()
	client.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.CoachID,
		client.Name,
		client.Email,
		client.Phone,
		client.PushEndpoint,
		client.Status,
		client.ActiveHoursStart,
		client.ActiveHoursEnd,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *clientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	query := `SELECT * FROM clients WHERE id = $1`
	var client model.Client
	err := r.db.GetContext(ctx, &client, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	query := `
		UPDATE clients SET name = $1, email = $2, phone = $3, push_endpoint = $4,
			status = $5, active_hours_start = $6, active_hours_end = $7, updated_at = $8
		WHERE id = $9
	`
	_, err := r.db.ExecContext(ctx, query,
		client.Name, client.Email, client.Phone, client.PushEndpoint,
		client.Status, client.ActiveHoursStart, client.ActiveHoursEnd, time.Now(), client.ID)
	return err
}

func (r *clientRepository) List(ctx context.Context, filters *model.ClientFilters) ([]*model.Client, error) {
	query := `SELECT * FROM clients WHERE coach_id = $1`
	args := []interface{}{filters.CoachID}
	if filters.Status != "" {
		query += ` AND status = $2`
		args = append(args, filters.Status)
	}
	query += ` ORDER BY name`

	var clients []*model.Client
	err := r.db.SelectContext(ctx, &clients, query, args...)
	return clients, err
}
