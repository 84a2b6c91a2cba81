package model

import (
	"time"

	"github.com/google/uuid"
)

type RecommendationStatus string

const (
	RecommendationStatusPending   RecommendationStatus = "pending"
	RecommendationStatusSent      RecommendationStatus = "sent"
	RecommendationStatusDismissed RecommendationStatus = "dismissed"
	RecommendationStatusScheduled RecommendationStatus = "scheduled"
)

type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

// Recommendation is a proposed coach message tied to a trigger, with a
// delivery lifecycle. Status moves pending -> sent|dismissed|scheduled;
// sent and dismissed are terminal, scheduled re-enters pending once the
// deferral reason has passed. A recommendation is sent at most once;
// re-sending means creating a new one.
type Recommendation struct {
	ID        uuid.UUID              `json:"id" db:"id"`
	ClientID  uuid.UUID              `json:"client_id" db:"client_id"`
	TriggerID *uuid.UUID             `json:"trigger_id,omitempty" db:"trigger_id"`
	Message   string                 `json:"message" db:"message"`
	Reason    string                 `json:"reason" db:"reason"`
	Priority  RecommendationPriority `json:"priority" db:"priority"`
	Status    RecommendationStatus   `json:"status" db:"status"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	SentAt    *time.Time             `json:"sent_at,omitempty" db:"sent_at"`
	SentVia   string                 `json:"sent_via,omitempty" db:"sent_via"`
}

// Terminal reports whether the recommendation can no longer change state.
func (r *Recommendation) Terminal() bool {
	return r.Status == RecommendationStatusSent || r.Status == RecommendationStatusDismissed
}

type RecommendationFilters struct {
	ClientID uuid.UUID
	Status   RecommendationStatus
	Priority RecommendationPriority
}
