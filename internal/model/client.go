package model

import (
	"time"

	"github.com/google/uuid"
)

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusPaused   ClientStatus = "paused"
	ClientStatusArchived ClientStatus = "archived"
)

// Client is a coached client. The pipeline only needs identity, contact
// endpoints for the delivery channels and the expected active-hours window
// used by the inactivity rule.
type Client struct {
	Base
	CoachID          uuid.UUID    `json:"coach_id" db:"coach_id"`
	Name             string       `json:"name" db:"name"`
	Email            string       `json:"email" db:"email"`
	Phone            string       `json:"phone" db:"phone"`
	PushEndpoint     string       `json:"push_endpoint,omitempty" db:"push_endpoint"`
	Status           ClientStatus `json:"status" db:"status"`
	ActiveHoursStart string       `json:"active_hours_start" db:"active_hours_start"`
	ActiveHoursEnd   string       `json:"active_hours_end" db:"active_hours_end"`
}

type CreateClientRequest struct {
	Name             string `json:"name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Phone            string `json:"phone"`
	PushEndpoint     string `json:"push_endpoint"`
	ActiveHoursStart string `json:"active_hours_start"`
	ActiveHoursEnd   string `json:"active_hours_end"`
}

type ClientFilters struct {
	CoachID uuid.UUID
	Status  ClientStatus
	Since   time.Time
}
