package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/repository"
	"github.com/coachpulse/engage-api/internal/service/engagement"
	"github.com/coachpulse/engage-api/internal/service/recommendation"
	"github.com/coachpulse/engage-api/internal/session"
	apperrors "github.com/coachpulse/engage-api/pkg/errors"
	"github.com/coachpulse/engage-api/pkg/logger"
	"github.com/coachpulse/engage-api/pkg/metrics"
)

// feedWindow is how far back the selected client's activity feed reaches.
const feedWindow = 7 * 24 * time.Hour

// View is a coach's working snapshot of the currently selected client.
// Feed sections fill in asynchronously after Select; a section belonging
// to a previously selected client can never appear here.
type View struct {
	Client          *model.Client           `json:"client"`
	Events          []*model.ActivityEvent  `json:"events"`
	Triggers        []*model.Trigger        `json:"triggers"`
	Recommendations []*model.Recommendation `json:"recommendations"`
	LastDetection   *engagement.Outcome     `json:"last_detection,omitempty"`
	LastError       string                  `json:"last_error,omitempty"`
	SelectedAt      time.Time               `json:"selected_at"`
}

type Service interface {
	// Select makes clientID the coach's active client and starts the
	// asynchronous feed loads for it. Results of loads issued for a
	// previously selected client are discarded, never merged.
	Select(ctx context.Context, coachID, clientID uuid.UUID) (*View, error)

	// View returns the current snapshot, however much of it has loaded.
	View(ctx context.Context, coachID uuid.UUID) (*View, error)

	// Detect runs trigger detection for the selected client in the
	// background and folds the outcome into the view if the client is
	// still selected when it completes.
	Detect(ctx context.Context, coachID uuid.UUID) error

	// Dismiss optimistically removes the recommendation from the view,
	// then persists the dismissal; the removal is reverted if persistence
	// fails while the client is still selected.
	Dismiss(ctx context.Context, coachID, recID uuid.UUID) error
}

type service struct {
	clients    repository.ClientRepository
	activity   repository.ActivityRepository
	triggers   repository.TriggerRepository
	recs       repository.RecommendationRepository
	engagement engagement.Service
	dismissals recommendation.Service
	logger     *logger.Logger
	metrics    *metrics.Metrics

	mu      sync.Mutex
	coaches map[uuid.UUID]*workspace
}

// workspace is one coach's selection state. The coordinator serializes all
// view mutations and drops the stale ones.
type workspace struct {
	coord *session.Coordinator

	mu    sync.Mutex
	token session.Token
	view  View
}

func NewService(
	clients repository.ClientRepository,
	activity repository.ActivityRepository,
	triggers repository.TriggerRepository,
	recs repository.RecommendationRepository,
	eng engagement.Service,
	dismissals recommendation.Service,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	return &service{
		clients:    clients,
		activity:   activity,
		triggers:   triggers,
		recs:       recs,
		engagement: eng,
		dismissals: dismissals,
		logger:     log,
		metrics:    m,
		coaches:    make(map[uuid.UUID]*workspace),
	}
}

func (s *service) workspace(coachID uuid.UUID) *workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.coaches[coachID]
	if !ok {
		ws = &workspace{coord: session.NewCoordinator(s.metrics)}
		s.coaches[coachID] = ws
	}
	return ws
}

func (s *service) Select(ctx context.Context, coachID, clientID uuid.UUID) (*View, error) {
	client, err := s.clients.Get(ctx, clientID)
	if err != nil {
		return nil, apperrors.NotFound("client", err)
	}

	ws := s.workspace(coachID)
	token := ws.coord.Activate(clientID)

	ws.mu.Lock()
	ws.token = token
	ws.view = View{Client: client, SelectedAt: time.Now()}
	snapshot := ws.view
	ws.mu.Unlock()

	// The loads outlive the selection request; a later Select drops their
	// results at the apply gate rather than aborting them.
	bg := context.WithoutCancel(ctx)
	since := time.Now().Add(-feedWindow)

	session.Go(bg, ws.coord, token,
		func(ctx context.Context) ([]*model.ActivityEvent, error) {
			return s.activity.ListSince(ctx, clientID, since)
		},
		func(events []*model.ActivityEvent) { ws.setEvents(events) },
		func(err error) { ws.setError(err) },
	)
	session.Go(bg, ws.coord, token,
		func(ctx context.Context) ([]*model.Trigger, error) {
			return s.triggers.List(ctx, &model.TriggerFilters{ClientID: clientID, Unresolved: true})
		},
		func(triggers []*model.Trigger) { ws.setTriggers(triggers) },
		func(err error) { ws.setError(err) },
	)
	session.Go(bg, ws.coord, token,
		func(ctx context.Context) ([]*model.Recommendation, error) {
			return s.recs.List(ctx, &model.RecommendationFilters{
				ClientID: clientID,
				Status:   model.RecommendationStatusPending,
			})
		},
		func(recs []*model.Recommendation) { ws.setRecommendations(recs) },
		func(err error) { ws.setError(err) },
	)

	return &snapshot, nil
}

func (s *service) View(ctx context.Context, coachID uuid.UUID) (*View, error) {
	ws := s.workspace(coachID)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.view.Client == nil {
		return nil, apperrors.NotFound("no client selected", nil)
	}
	snapshot := ws.view
	return &snapshot, nil
}

func (s *service) Detect(ctx context.Context, coachID uuid.UUID) error {
	ws := s.workspace(coachID)

	ws.mu.Lock()
	token := ws.token
	client := ws.view.Client
	ws.mu.Unlock()
	if client == nil {
		return apperrors.BadRequest("no client selected", nil)
	}

	session.Go(context.WithoutCancel(ctx), ws.coord, token,
		func(ctx context.Context) (*engagement.Outcome, error) {
			return s.engagement.RunDetection(ctx, token.Subject)
		},
		func(outcome *engagement.Outcome) { ws.applyDetection(outcome) },
		func(err error) {
			s.logger.Error(err, "detection failed", "client_id", token.Subject.String())
			ws.setError(err)
		},
	)
	return nil
}

func (s *service) Dismiss(ctx context.Context, coachID, recID uuid.UUID) error {
	ws := s.workspace(coachID)

	ws.mu.Lock()
	token := ws.token
	selected := ws.view.Client != nil
	ws.mu.Unlock()
	if !selected {
		return apperrors.BadRequest("no client selected", nil)
	}

	var removed *model.Recommendation
	staged := ws.coord.Stage(token,
		func() { removed = ws.removeRecommendation(recID) },
		func() {
			if removed != nil {
				ws.restoreRecommendation(removed)
			}
		},
	)
	if removed == nil {
		return apperrors.NotFound("recommendation not in view", nil)
	}

	if err := s.dismissals.Dismiss(ctx, recID); err != nil {
		staged.Revert()
		return err
	}
	staged.Commit()
	return nil
}

func (ws *workspace) setEvents(events []*model.ActivityEvent) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.view.Events = events
}

func (ws *workspace) setTriggers(triggers []*model.Trigger) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.view.Triggers = triggers
}

func (ws *workspace) setRecommendations(recs []*model.Recommendation) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.view.Recommendations = recs
}

func (ws *workspace) setError(err error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.view.LastError = err.Error()
}

func (ws *workspace) applyDetection(outcome *engagement.Outcome) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.view.LastDetection = outcome
	ws.view.Triggers = append(ws.view.Triggers, outcome.Triggers...)
	ws.view.Recommendations = append(ws.view.Recommendations, outcome.Recommendations...)
}

func (ws *workspace) removeRecommendation(recID uuid.UUID) *model.Recommendation {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for i, rec := range ws.view.Recommendations {
		if rec.ID == recID {
			ws.view.Recommendations = append(ws.view.Recommendations[:i:i], ws.view.Recommendations[i+1:]...)
			return rec
		}
	}
	return nil
}

func (ws *workspace) restoreRecommendation(rec *model.Recommendation) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.view.Recommendations = append(ws.view.Recommendations, rec)
}
