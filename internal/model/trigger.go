package model

import (
	"time"

	"github.com/google/uuid"
)

type TriggerType string

const (
	TriggerTypeInactivity       TriggerType = "inactivity"
	TriggerTypeMissedLog        TriggerType = "missed_log"
	TriggerTypePatternDeviation TriggerType = "pattern_deviation"
	TriggerTypeGoalAtRisk       TriggerType = "goal_at_risk"
	TriggerTypeEngagementDrop   TriggerType = "engagement_drop"
)

type TriggerSeverity string

const (
	SeverityLow    TriggerSeverity = "low"
	SeverityMedium TriggerSeverity = "medium"
	SeverityHigh   TriggerSeverity = "high"
)

// Trigger is a detected condition warranting possible coach intervention.
// Triggers are never deleted, only marked resolved, so the detection history
// doubles as an audit trail.
type Trigger struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	ClientID          uuid.UUID       `json:"client_id" db:"client_id"`
	Type              TriggerType     `json:"type" db:"type"`
	Severity          TriggerSeverity `json:"severity" db:"severity"`
	DetectedAt        time.Time       `json:"detected_at" db:"detected_at"`
	Reason            string          `json:"reason" db:"reason"`
	RecommendedAction string          `json:"recommended_action" db:"recommended_action"`
	IsResolved        bool            `json:"is_resolved" db:"is_resolved"`
}

type TriggerFilters struct {
	ClientID   uuid.UUID
	Type       TriggerType
	Unresolved bool
	Since      time.Time
}
