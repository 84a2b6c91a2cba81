package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/pkg/messaging"
)

// InAppEvent is what the client UI consumes off its notification stream.
type InAppEvent struct {
	ID               uuid.UUID `json:"id"`
	RecommendationID uuid.UUID `json:"recommendation_id"`
	ClientID         uuid.UUID `json:"client_id"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	CreatedAt        time.Time `json:"created_at"`
}

// inAppSender publishes to the client's notification stream on the broker.
type inAppSender struct {
	broker messaging.Broker
}

func NewInAppSender(broker messaging.Broker) Sender {
	return &inAppSender{broker: broker}
}

func (s *inAppSender) Channel() Channel { return InApp }

func (s *inAppSender) Send(ctx context.Context, msg *Message) error {
	event := &InAppEvent{
		ID:               uuid.New(),
		RecommendationID: msg.RecommendationID,
		ClientID:         msg.Client.ID,
		Title:            msg.Title,
		Body:             msg.Body,
		CreatedAt:        time.Now(),
	}
	topic := fmt.Sprintf("notifications:%s", msg.Client.ID)
	return s.broker.Publish(ctx, topic, event)
}
