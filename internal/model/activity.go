package model

import (
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityTypeLog        ActivityType = "log"
	ActivityTypeInactivity ActivityType = "inactivity"
	ActivityTypeMissedTask ActivityType = "missed_task"
	ActivityTypeMilestone  ActivityType = "milestone"
	ActivityTypeAlert      ActivityType = "alert"
)

type ActivityCategory string

const (
	CategoryNutrition ActivityCategory = "nutrition"
	CategoryWorkout   ActivityCategory = "workout"
	CategorySleep     ActivityCategory = "sleep"
	CategoryHydration ActivityCategory = "hydration"
	CategoryMood      ActivityCategory = "mood"
	CategoryGeneral   ActivityCategory = "general"
)

// ActivityEvent is one entry in a client's behavioral log. Events are
// written by upstream loggers and are read-only to the pipeline; ordering
// is by Timestamp.
type ActivityEvent struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	ClientID    uuid.UUID        `json:"client_id" db:"client_id"`
	Timestamp   time.Time        `json:"timestamp" db:"timestamp"`
	Type        ActivityType     `json:"type" db:"type"`
	Category    ActivityCategory `json:"category" db:"category"`
	Title       string           `json:"title" db:"title"`
	Description string           `json:"description" db:"description"`
	Metadata    JSONMap          `json:"metadata,omitempty" db:"-"`
	RawMetadata []byte           `json:"-" db:"metadata"`
}

// MilestoneMetadata is the shape the goal_at_risk rule expects inside a
// milestone event's metadata.
type MilestoneMetadata struct {
	Metric  string  `json:"metric"`
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
}
