package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coachpulse/engage-api/pkg/circuitbreaker"
	"github.com/coachpulse/engage-api/pkg/logger"
)

type WebPushConfig struct {
	GatewayURL string
	APIKey     string
	Timeout    time.Duration
}

type webPushSender struct {
	cfg    WebPushConfig
	client *http.Client
	cb     *circuitbreaker.CircuitBreaker
	logger *logger.Logger
}

func NewWebPushSender(cfg WebPushConfig, log *logger.Logger) Sender {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &webPushSender{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "push-gateway",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		logger: log,
	}
}

func (s *webPushSender) Channel() Channel { return WebPush }

func (s *webPushSender) Send(ctx context.Context, msg *Message) error {
	if msg.Client.PushEndpoint == "" {
		return fmt.Errorf("client %s has no push subscription", msg.Client.ID)
	}

	payload, err := json.Marshal(map[string]string{
		"endpoint": msg.Client.PushEndpoint,
		"title":    msg.Title,
		"body":     msg.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	return s.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create push request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("push gateway request failed: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, body)
		}

		s.logger.Debug("web push delivered",
			"recommendation_id", msg.RecommendationID.String(),
			"client_id", msg.Client.ID.String())
		return nil
	})
}
