package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		minutes int
		ok      bool
	}{
		{"00:00", 0, true},
		{"08:30", 510, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"noon", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.ok {
			assert.NoError(t, err, tc.in)
			assert.Equal(t, tc.minutes, got, tc.in)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestInQuietHours(t *testing.T) {
	pref := &NotificationPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "08:00",
	}

	// Window wraps midnight.
	assert.True(t, pref.InQuietHours(at(23, 0)))
	assert.True(t, pref.InQuietHours(at(3, 30)))
	assert.True(t, pref.InQuietHours(at(7, 59)))
	assert.False(t, pref.InQuietHours(at(8, 0)))
	assert.False(t, pref.InQuietHours(at(12, 0)))
	assert.False(t, pref.InQuietHours(at(21, 59)))
	assert.True(t, pref.InQuietHours(at(22, 0)))
}

func TestInQuietHoursSameDayWindow(t *testing.T) {
	pref := &NotificationPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "13:00",
		QuietHoursEnd:     "15:00",
	}

	assert.False(t, pref.InQuietHours(at(12, 59)))
	assert.True(t, pref.InQuietHours(at(13, 0)))
	assert.True(t, pref.InQuietHours(at(14, 30)))
	assert.False(t, pref.InQuietHours(at(15, 0)))
}

func TestInQuietHoursDisabledOrDegenerate(t *testing.T) {
	disabled := &NotificationPreference{
		QuietHoursEnabled: false,
		QuietHoursStart:   "00:00",
		QuietHoursEnd:     "23:59",
	}
	assert.False(t, disabled.InQuietHours(at(12, 0)))

	// start == end means no window at all, not a 24h window.
	degenerate := &NotificationPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "09:00",
		QuietHoursEnd:     "09:00",
	}
	assert.False(t, degenerate.InQuietHours(at(9, 0)))

	malformed := &NotificationPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "not-a-clock",
		QuietHoursEnd:     "08:00",
	}
	assert.False(t, malformed.InQuietHours(at(3, 0)))
}

func TestDefaultPreference(t *testing.T) {
	clientID := uuid.New()
	pref := DefaultPreference(clientID)

	assert.Equal(t, clientID, pref.ClientID)
	assert.True(t, pref.InApp)
	assert.False(t, pref.SMS)
	assert.False(t, pref.WebPush)
	assert.Equal(t, FrequencyModerate, pref.Frequency)
	assert.Equal(t, 5, pref.DailyLimit)
}

func TestRecommendationTerminal(t *testing.T) {
	rec := &Recommendation{Status: RecommendationStatusPending}
	assert.False(t, rec.Terminal())

	rec.Status = RecommendationStatusScheduled
	assert.False(t, rec.Terminal())

	rec.Status = RecommendationStatusSent
	assert.True(t, rec.Terminal())

	rec.Status = RecommendationStatusDismissed
	assert.True(t, rec.Terminal())
}
