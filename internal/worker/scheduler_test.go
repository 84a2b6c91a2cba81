package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachpulse/engage-api/internal/channel"
	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/service/dispatch"
	"github.com/coachpulse/engage-api/pkg/logger"
	"github.com/coachpulse/engage-api/pkg/metrics"
)

// Shared across tests; prometheus collectors register globally once.
var testMetrics = metrics.NewMetrics("engage", "worker_test")

type fakeRecRepo struct {
	recs     map[uuid.UUID]*model.Recommendation
	statuses map[uuid.UUID][]model.RecommendationStatus
	listErr  error
}

func newFakeRecRepo(recs ...*model.Recommendation) *fakeRecRepo {
	f := &fakeRecRepo{
		recs:     make(map[uuid.UUID]*model.Recommendation),
		statuses: make(map[uuid.UUID][]model.RecommendationStatus),
	}
	for _, rec := range recs {
		f.recs[rec.ID] = rec
	}
	return f
}

func (f *fakeRecRepo) Create(ctx context.Context, rec *model.Recommendation) error { return nil }

func (f *fakeRecRepo) Get(ctx context.Context, id uuid.UUID) (*model.Recommendation, error) {
	rec, ok := f.recs[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return rec, nil
}

func (f *fakeRecRepo) List(ctx context.Context, filters *model.RecommendationFilters) ([]*model.Recommendation, error) {
	return nil, nil
}

func (f *fakeRecRepo) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, sentVia string) error {
	f.recs[id].Status = model.RecommendationStatusSent
	return nil
}

func (f *fakeRecRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RecommendationStatus) error {
	f.recs[id].Status = status
	f.statuses[id] = append(f.statuses[id], status)
	return nil
}

func (f *fakeRecRepo) CountSentSince(ctx context.Context, clientID uuid.UUID, cutoff time.Time) (int, error) {
	return 0, nil
}

func (f *fakeRecRepo) ListScheduled(ctx context.Context, limit int) ([]*model.Recommendation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*model.Recommendation
	for _, rec := range f.recs {
		if rec.Status == model.RecommendationStatusScheduled {
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakePrefRepo struct {
	pref *model.NotificationPreference
}

func (f *fakePrefRepo) Get(ctx context.Context, clientID uuid.UUID) (*model.NotificationPreference, error) {
	return f.pref, nil
}

func (f *fakePrefRepo) Upsert(ctx context.Context, pref *model.NotificationPreference) error {
	return nil
}

type fakeDispatcher struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, recID uuid.UUID, requested []channel.Channel, now time.Time) (*dispatch.Result, error) {
	f.calls = append(f.calls, recID)
	if f.err != nil {
		return nil, f.err
	}
	return &dispatch.Result{Status: model.RecommendationStatusSent}, nil
}

func scheduledRec() *model.Recommendation {
	return &model.Recommendation{
		ID:       uuid.New(),
		ClientID: uuid.New(),
		Status:   model.RecommendationStatusScheduled,
		Priority: model.PriorityMedium,
	}
}

func TestNewSchedulerValidatesConfig(t *testing.T) {
	recs := newFakeRecRepo()
	prefs := &fakePrefRepo{}

	assert.Panics(t, func() {
		NewScheduler(recs, prefs, &fakeDispatcher{}, SchedulerConfig{BatchSize: 0, PollInterval: time.Second}, logger.NewLogger(nil), testMetrics)
	})
	assert.Panics(t, func() {
		NewScheduler(recs, prefs, &fakeDispatcher{}, SchedulerConfig{BatchSize: 10, PollInterval: 0}, logger.NewLogger(nil), testMetrics)
	})
}

func TestProcessScheduledReleasesAndRedispatches(t *testing.T) {
	rec := scheduledRec()
	recs := newFakeRecRepo(rec)
	prefs := &fakePrefRepo{pref: &model.NotificationPreference{InApp: true}}
	disp := &fakeDispatcher{}

	s := NewScheduler(recs, prefs, disp, SchedulerConfig{BatchSize: 10, PollInterval: time.Second}, logger.NewLogger(nil), testMetrics)

	require.NoError(t, s.processScheduled(context.Background()))

	// Released to pending first, then handed back to dispatch.
	require.NotEmpty(t, recs.statuses[rec.ID])
	assert.Equal(t, model.RecommendationStatusPending, recs.statuses[rec.ID][0])
	assert.Equal(t, []uuid.UUID{rec.ID}, disp.calls)
}

func TestProcessScheduledSkipsDuringQuietHours(t *testing.T) {
	rec := scheduledRec()
	recs := newFakeRecRepo(rec)
	// Quiet hours cover the whole day except one minute, so "now" is
	// effectively always inside the window.
	prefs := &fakePrefRepo{pref: &model.NotificationPreference{
		InApp:             true,
		QuietHoursEnabled: true,
		QuietHoursStart:   "00:01",
		QuietHoursEnd:     "00:00",
	}}
	disp := &fakeDispatcher{}

	s := NewScheduler(recs, prefs, disp, SchedulerConfig{BatchSize: 10, PollInterval: time.Second}, logger.NewLogger(nil), testMetrics)

	require.NoError(t, s.processScheduled(context.Background()))

	assert.Empty(t, disp.calls)
	assert.Equal(t, model.RecommendationStatusScheduled, recs.recs[rec.ID].Status)
}

func TestProcessScheduledContinuesPastFailures(t *testing.T) {
	first := scheduledRec()
	second := scheduledRec()
	recs := newFakeRecRepo(first, second)
	prefs := &fakePrefRepo{pref: &model.NotificationPreference{InApp: true}}
	disp := &fakeDispatcher{err: errors.New("all channels failed")}

	s := NewScheduler(recs, prefs, disp, SchedulerConfig{BatchSize: 10, PollInterval: time.Second}, logger.NewLogger(nil), testMetrics)

	require.NoError(t, s.processScheduled(context.Background()))

	// Both were attempted despite each re-dispatch failing.
	assert.Len(t, disp.calls, 2)
}

func TestProcessScheduledSurfacesListFailure(t *testing.T) {
	recs := newFakeRecRepo()
	recs.listErr = errors.New("connection refused")
	prefs := &fakePrefRepo{pref: &model.NotificationPreference{InApp: true}}

	s := NewScheduler(recs, prefs, &fakeDispatcher{}, SchedulerConfig{BatchSize: 10, PollInterval: time.Second}, logger.NewLogger(nil), testMetrics)

	assert.Error(t, s.processScheduled(context.Background()))
}
