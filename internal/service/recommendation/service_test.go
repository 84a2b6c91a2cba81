package recommendation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachpulse/engage-api/internal/model"
	apperrors "github.com/coachpulse/engage-api/pkg/errors"
)

type fakeRepo struct {
	recs    map[uuid.UUID]*model.Recommendation
	updated map[uuid.UUID]model.RecommendationStatus
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		recs:    make(map[uuid.UUID]*model.Recommendation),
		updated: make(map[uuid.UUID]model.RecommendationStatus),
	}
}

func (f *fakeRepo) Create(ctx context.Context, rec *model.Recommendation) error {
	f.recs[rec.ID] = rec
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (*model.Recommendation, error) {
	rec, ok := f.recs[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return rec, nil
}

func (f *fakeRepo) List(ctx context.Context, filters *model.RecommendationFilters) ([]*model.Recommendation, error) {
	var out []*model.Recommendation
	for _, rec := range f.recs {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeRepo) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, sentVia string) error {
	return nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RecommendationStatus) error {
	f.updated[id] = status
	return nil
}

func (f *fakeRepo) CountSentSince(ctx context.Context, clientID uuid.UUID, cutoff time.Time) (int, error) {
	return 0, nil
}

func (f *fakeRepo) ListScheduled(ctx context.Context, limit int) ([]*model.Recommendation, error) {
	return nil, nil
}

func sampleTrigger(severity model.TriggerSeverity) *model.Trigger {
	return &model.Trigger{
		ID:                uuid.New(),
		ClientID:          uuid.New(),
		Type:              model.TriggerTypeInactivity,
		Severity:          severity,
		DetectedAt:        time.Now(),
		Reason:            "no activity for 30h0m0s",
		RecommendedAction: "Check in with the client",
	}
}

func TestGenerateIsPure(t *testing.T) {
	trigger := sampleTrigger(model.SeverityHigh)

	first := Generate(trigger)
	second := Generate(trigger)

	assert.Equal(t, first.Message, second.Message)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Equal(t, first.Priority, second.Priority)
	assert.Equal(t, model.RecommendationStatusPending, first.Status)
	assert.Equal(t, trigger.ClientID, first.ClientID)
	require.NotNil(t, first.TriggerID)
	assert.Equal(t, trigger.ID, *first.TriggerID)
}

func TestGeneratePriorityFollowsSeverity(t *testing.T) {
	assert.Equal(t, model.PriorityHigh, Generate(sampleTrigger(model.SeverityHigh)).Priority)
	assert.Equal(t, model.PriorityMedium, Generate(sampleTrigger(model.SeverityMedium)).Priority)
	assert.Equal(t, model.PriorityLow, Generate(sampleTrigger(model.SeverityLow)).Priority)
}

func TestGenerateMessageVariesByTypeAndSeverity(t *testing.T) {
	seen := map[string]bool{}
	for _, tt := range []model.TriggerType{
		model.TriggerTypeInactivity,
		model.TriggerTypeMissedLog,
		model.TriggerTypePatternDeviation,
		model.TriggerTypeGoalAtRisk,
		model.TriggerTypeEngagementDrop,
	} {
		trigger := sampleTrigger(model.SeverityHigh)
		trigger.Type = tt
		rec := Generate(trigger)
		require.NotEmpty(t, rec.Message)
		assert.False(t, seen[rec.Message], "duplicate template for %s", tt)
		seen[rec.Message] = true
	}
}

func TestCreateForTrigger(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	rec, err := svc.CreateForTrigger(context.Background(), sampleTrigger(model.SeverityMedium))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Contains(t, repo.recs, rec.ID)
}

func TestCreateForTriggerRejectsResolved(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	trigger := sampleTrigger(model.SeverityMedium)
	trigger.IsResolved = true

	_, err := svc.CreateForTrigger(context.Background(), trigger)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
	assert.Empty(t, repo.recs)
}

func TestDismiss(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	rec := &model.Recommendation{ID: uuid.New(), Status: model.RecommendationStatusPending}
	repo.recs[rec.ID] = rec

	require.NoError(t, svc.Dismiss(context.Background(), rec.ID))
	assert.Equal(t, model.RecommendationStatusDismissed, repo.updated[rec.ID])
}

func TestDismissTerminalRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	rec := &model.Recommendation{ID: uuid.New(), Status: model.RecommendationStatusSent}
	repo.recs[rec.ID] = rec

	err := svc.Dismiss(context.Background(), rec.ID)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
	assert.NotContains(t, repo.updated, rec.ID)
}
