package channel

import (
	"context"

	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/internal/model"
)

// Channel is the closed set of delivery media. Representing channels as a
// typed constant with one Sender per variant keeps unknown channels a
// compile-time concern instead of a runtime string lookup.
type Channel string

const (
	SMS     Channel = "sms"
	WebPush Channel = "web_push"
	InApp   Channel = "in_app"
)

// All lists every channel in dispatch order.
func All() []Channel {
	return []Channel{SMS, WebPush, InApp}
}

// EnabledFor returns the channels the preference has toggled on.
func EnabledFor(pref *model.NotificationPreference) []Channel {
	var out []Channel
	if pref.SMS {
		out = append(out, SMS)
	}
	if pref.WebPush {
		out = append(out, WebPush)
	}
	if pref.InApp {
		out = append(out, InApp)
	}
	return out
}

// Message is one deliverable notification.
type Message struct {
	Client           *model.Client
	Title            string
	Body             string
	RecommendationID uuid.UUID
}

// Sender delivers a message over a single channel. One implementation per
// Channel variant; success/failure is reported per attempt.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, msg *Message) error
}
