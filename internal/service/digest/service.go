package digest

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
	"github.com/coachpulse/engage-api/pkg/logger"
)

type Config struct {
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
}

// Service mails the coach a daily summary of unresolved triggers and
// pending recommendations across their roster.
type Service interface {
	SendDigest(ctx context.Context, coachID string, coachEmail string, clients []*model.Client) error
}

type service struct {
	triggers repository.TriggerRepository
	recs     repository.RecommendationRepository
	cfg      Config
	logger   *logger.Logger
}

func NewService(triggers repository.TriggerRepository, recs repository.RecommendationRepository, cfg Config, log *logger.Logger) Service {
	return &service{triggers: triggers, recs: recs, cfg: cfg, logger: log}
}

func (s *service) SendDigest(ctx context.Context, coachID string, coachEmail string, clients []*model.Client) error {
	var b strings.Builder
	b.WriteString("<h2>Daily engagement digest</h2>")

	var items int
	for _, c := range clients {
		triggers, err := s.triggers.List(ctx, &model.TriggerFilters{ClientID: c.ID, Unresolved: true})
		if err != nil {
			return fmt.Errorf("failed to load triggers for %s: %w", c.ID, err)
		}
		pending, err := s.recs.List(ctx, &model.RecommendationFilters{
			ClientID: c.ID,
			Status:   model.RecommendationStatusPending,
		})
		if err != nil {
			return fmt.Errorf("failed to load recommendations for %s: %w", c.ID, err)
		}
		if len(triggers) == 0 && len(pending) == 0 {
			continue
		}

		items++
		b.WriteString(fmt.Sprintf("<h3>%s</h3><ul>", c.Name))
		for _, t := range triggers {
			b.WriteString(fmt.Sprintf("<li><b>%s</b> (%s): %s</li>", t.Type, t.Severity, t.Reason))
		}
		for _, r := range pending {
			b.WriteString(fmt.Sprintf("<li>Pending message (%s priority): %s</li>", r.Priority, r.Message))
		}
		b.WriteString("</ul>")
	}

	if items == 0 {
		s.logger.Debug("digest skipped, nothing to report", "coach_id", coachID)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", coachEmail)
	m.SetHeader("Subject", "Your daily client engagement digest")
	m.SetBody("text/html", b.String())

	d := gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}

	s.logger.Info("digest sent", "coach_id", coachID, "clients", items)
	return nil
}
