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

type SMSConfig struct {
	GatewayURL string
	APIKey     string
	Timeout    time.Duration
}

// smsSender posts to an external SMS gateway. The gateway reports
// success/failure per attempt; a circuit breaker shields it from hammering.
type smsSender struct {
	cfg    SMSConfig
	client *http.Client
	cb     *circuitbreaker.CircuitBreaker
	logger *logger.Logger
}

func NewSMSSender(cfg SMSConfig, log *logger.Logger) Sender {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &smsSender{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "sms-gateway",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		logger: log,
	}
}

func (s *smsSender) Channel() Channel { return SMS }

func (s *smsSender) Send(ctx context.Context, msg *Message) error {
	if msg.Client.Phone == "" {
		return fmt.Errorf("client %s has no phone number", msg.Client.ID)
	}

	payload, err := json.Marshal(map[string]string{
		"to":   msg.Client.Phone,
		"body": fmt.Sprintf("%s: %s", msg.Title, msg.Body),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	return s.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create sms request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("sms gateway request failed: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, body)
		}

		s.logger.Debug("sms delivered",
			"recommendation_id", msg.RecommendationID.String(),
			"client_id", msg.Client.ID.String())
		return nil
	})
}
