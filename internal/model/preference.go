package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationFrequency string

const (
	FrequencyMinimal    NotificationFrequency = "minimal"
	FrequencyModerate   NotificationFrequency = "moderate"
	FrequencyActive     NotificationFrequency = "active"
	FrequencyAggressive NotificationFrequency = "aggressive"
)

// Valid reports whether f is one of the defined tiers.
func (f NotificationFrequency) Valid() bool {
	switch f {
	case FrequencyMinimal, FrequencyModerate, FrequencyActive, FrequencyAggressive:
		return true
	}
	return false
}

// NotificationPreference is the per-client delivery configuration: channel
// toggles, frequency tier, daily cap and an optional quiet-hours window.
// Quiet-hours fields are meaningful only when QuietHoursEnabled.
type NotificationPreference struct {
	ClientID          uuid.UUID             `json:"client_id" db:"client_id"`
	SMS               bool                  `json:"sms" db:"sms"`
	WebPush           bool                  `json:"web_push" db:"web_push"`
	InApp             bool                  `json:"in_app" db:"in_app"`
	Frequency         NotificationFrequency `json:"frequency" db:"frequency"`
	DailyLimit        int                   `json:"daily_limit" db:"daily_limit"`
	QuietHoursEnabled bool                  `json:"quiet_hours_enabled" db:"quiet_hours_enabled"`
	QuietHoursStart   string                `json:"quiet_hours_start" db:"quiet_hours_start"`
	QuietHoursEnd     string                `json:"quiet_hours_end" db:"quiet_hours_end"`
	UpdatedAt         time.Time             `json:"updated_at" db:"updated_at"`
}

// DefaultPreference is what a client gets before the coach touches anything.
func DefaultPreference(clientID uuid.UUID) *NotificationPreference {
	return &NotificationPreference{
		ClientID:   clientID,
		InApp:      true,
		Frequency:  FrequencyModerate,
		DailyLimit: 5,
	}
}

// InQuietHours reports whether now falls inside the configured [start, end)
// window. A window whose end is at or before its start wraps across
// midnight (22:00-08:00 covers 23:00 and 07:59 but not 12:00).
func (p *NotificationPreference) InQuietHours(now time.Time) bool {
	if !p.QuietHoursEnabled {
		return false
	}
	start, err := ParseClock(p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := ParseClock(p.QuietHoursEnd)
	if err != nil {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	if start == end {
		return false
	}
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// ParseClock converts an "HH:MM" time-of-day into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return h*60 + m, nil
}

// UpdatePreferenceRequest carries a partial preference update; nil fields
// leave the stored value untouched.
type UpdatePreferenceRequest struct {
	SMS               *bool                  `json:"sms"`
	WebPush           *bool                  `json:"web_push"`
	InApp             *bool                  `json:"in_app"`
	Frequency         *NotificationFrequency `json:"frequency" binding:"omitempty,frequency"`
	DailyLimit        *int                   `json:"daily_limit" binding:"omitempty,gte=0"`
	QuietHoursEnabled *bool                  `json:"quiet_hours_enabled"`
	QuietHoursStart   *string                `json:"quiet_hours_start" binding:"omitempty,clock"`
	QuietHoursEnd     *string                `json:"quiet_hours_end" binding:"omitempty,clock"`
}
