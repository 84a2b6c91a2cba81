package detector

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
	"github.com/coachpulse/engage-api/pkg/logger"
)

type fakeTriggerRepo struct {
	created []*model.Trigger
	exists  bool
	err     error
}

func (f *fakeTriggerRepo) Create(ctx context.Context, trigger *model.Trigger) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, trigger)
	return nil
}

func (f *fakeTriggerRepo) Get(ctx context.Context, id uuid.UUID) (*model.Trigger, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTriggerRepo) List(ctx context.Context, filters *model.TriggerFilters) ([]*model.Trigger, error) {
	return f.created, nil
}

func (f *fakeTriggerRepo) Resolve(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeTriggerRepo) ExistsSince(ctx context.Context, clientID uuid.UUID, triggerType model.TriggerType, cutoff time.Time) (bool, error) {
	return f.exists, f.err
}

type fakeActivityRepo struct {
	events []*model.ActivityEvent
	last   *model.ActivityEvent
	err    error
}

func (f *fakeActivityRepo) ListSince(ctx context.Context, clientID uuid.UUID, since time.Time) ([]*model.ActivityEvent, error) {
	return f.events, f.err
}

func (f *fakeActivityRepo) LastEvent(ctx context.Context, clientID uuid.UUID) (*model.ActivityEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.last, nil
}

type fakeClientRepo struct {
	client *model.Client
	err    error
}

func (f *fakeClientRepo) Create(ctx context.Context, client *model.Client) error { return nil }

func (f *fakeClientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return f.client, f.err
}

func (f *fakeClientRepo) Update(ctx context.Context, client *model.Client) error { return nil }

func (f *fakeClientRepo) List(ctx context.Context, filters *model.ClientFilters) ([]*model.Client, error) {
	return []*model.Client{f.client}, nil
}

func testClient() *model.Client {
	return &model.Client{
		Base:    model.Base{ID: uuid.New()},
		CoachID: uuid.New(),
		Name:    "Test Client",
		Status:  model.ClientStatusActive,
	}
}

func logEvent(clientID uuid.UUID, cat model.ActivityCategory, at time.Time) *model.ActivityEvent {
	return &model.ActivityEvent{
		ID:        uuid.New(),
		ClientID:  clientID,
		Timestamp: at,
		Type:      model.ActivityTypeLog,
		Category:  cat,
	}
}

func newTestService(triggers *fakeTriggerRepo, activity *fakeActivityRepo, clients *fakeClientRepo) Service {
	return NewService(triggers, activity, clients, Config{}, logger.NewLogger(nil), nil)
}

func TestDetectWindowQuietClientNoTriggers(t *testing.T) {
	client := testClient()
	now := time.Now()

	// A steady log pattern: recent activity, nothing missed, no milestones.
	var events []*model.ActivityEvent
	for day := 0; day < 7; day++ {
		ts := now.Add(-time.Duration(day)*24*time.Hour - time.Hour)
		events = append(events,
			logEvent(client.ID, model.CategoryNutrition, ts),
			logEvent(client.ID, model.CategoryWorkout, ts.Add(30*time.Minute)),
		)
	}

	triggers := &fakeTriggerRepo{}
	svc := newTestService(triggers, &fakeActivityRepo{events: events}, &fakeClientRepo{client: client})

	result, err := svc.DetectWindow(context.Background(), client, events, now)
	require.NoError(t, err)

	assert.Empty(t, result.Triggers)
	assert.Zero(t, result.FailedRules)
	assert.Empty(t, triggers.created)
}

func TestDetectWindowInactivity30HoursIsHigh(t *testing.T) {
	client := testClient()
	now := time.Now()
	events := []*model.ActivityEvent{
		logEvent(client.ID, model.CategoryGeneral, now.Add(-30*time.Hour)),
	}

	triggers := &fakeTriggerRepo{}
	svc := newTestService(triggers, &fakeActivityRepo{events: events}, &fakeClientRepo{client: client})

	result, err := svc.DetectWindow(context.Background(), client, events, now)
	require.NoError(t, err)
	require.Len(t, result.Triggers, 1)

	trigger := result.Triggers[0]
	assert.Equal(t, model.TriggerTypeInactivity, trigger.Type)
	assert.Equal(t, model.SeverityHigh, trigger.Severity)
	assert.Equal(t, client.ID, trigger.ClientID)
	assert.False(t, trigger.IsResolved)
}

func TestDetectWindowInactivityGapUnder24HoursIsMedium(t *testing.T) {
	client := testClient()
	now := time.Now()
	events := []*model.ActivityEvent{
		logEvent(client.ID, model.CategoryGeneral, now.Add(-10*time.Hour)),
	}

	svc := newTestService(&fakeTriggerRepo{}, &fakeActivityRepo{events: events}, &fakeClientRepo{client: client})

	result, err := svc.DetectWindow(context.Background(), client, events, now)
	require.NoError(t, err)
	require.Len(t, result.Triggers, 1)
	assert.Equal(t, model.SeverityMedium, result.Triggers[0].Severity)
}

func TestDetectWindowInactivityOutsideActiveHours(t *testing.T) {
	client := testClient()
	client.ActiveHoursStart = "09:00"
	client.ActiveHoursEnd = "17:00"

	// 03:00, well outside the client's expected active window.
	now := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
	events := []*model.ActivityEvent{
		logEvent(client.ID, model.CategoryGeneral, now.Add(-30*time.Hour)),
	}

	svc := newTestService(&fakeTriggerRepo{}, &fakeActivityRepo{events: events}, &fakeClientRepo{client: client})

	result, err := svc.DetectWindow(context.Background(), client, events, now)
	require.NoError(t, err)

	for _, trigger := range result.Triggers {
		assert.NotEqual(t, model.TriggerTypeInactivity, trigger.Type)
	}
}

func TestDetectWindowMissedLog(t *testing.T) {
	client := testClient()
	now := time.Now()
	events := []*model.ActivityEvent{
		// Recent general log keeps inactivity quiet.
		logEvent(client.ID, model.CategoryGeneral, now.Add(-time.Hour)),
		{
			ID:        uuid.New(),
			ClientID:  client.ID,
			Timestamp: now.Add(-2 * time.Hour),
			Type:      model.ActivityTypeMissedTask,
			Category:  model.CategoryNutrition,
		},
	}

	svc := newTestService(&fakeTriggerRepo{}, &fakeActivityRepo{events: events}, &fakeClientRepo{client: client})

	result, err := svc.DetectWindow(context.Background(), client, events, now)
	require.NoError(t, err)
	require.Len(t, result.Triggers, 1)
	assert.Equal(t, model.TriggerTypeMissedLog, result.Triggers[0].Type)
	assert.Equal(t, model.SeverityLow, result.Triggers[0].Severity)
}

func TestDetectWindowDeduplicatesWithinWindow(t *testing.T) {
	client := testClient()
	now := time.Now()
	events := []*model.ActivityEvent{
		logEvent(client.ID, model.CategoryGeneral, now.Add(-30*time.Hour)),
	}

	triggers := &fakeTriggerRepo{}
	svc := newTestService(triggers, &fakeActivityRepo{events: events}, &fakeClientRepo{client: client})

	first, err := svc.DetectWindow(context.Background(), client, events, now)
	require.NoError(t, err)
	require.Len(t, first.Triggers, 1)

	second, err := svc.DetectWindow(context.Background(), client, events, now.Add(time.Minute))
	require.NoError(t, err)

	assert.Empty(t, second.Triggers)
	assert.Len(t, triggers.created, 1)
}

func TestDetectWindowDeduplicatesAcrossRestart(t *testing.T) {
	client := testClient()
	now := time.Now()
	events := []*model.ActivityEvent{
		logEvent(client.ID, model.CategoryGeneral, now.Add(-30*time.Hour)),
	}

	// Fresh service with an empty in-process cache, but the repository
	// already knows about the earlier detection.
	triggers := &fakeTriggerRepo{exists: true}
	svc := newTestService(triggers, &fakeActivityRepo{events: events}, &fakeClientRepo{client: client})

	result, err := svc.DetectWindow(context.Background(), client, events, now)
	require.NoError(t, err)

	assert.Empty(t, result.Triggers)
	assert.Empty(t, triggers.created)
}

func TestDetectReportsTrueGapWhenWindowEmpty(t *testing.T) {
	client := testClient()
	// Last event on record predates the whole baseline window.
	last := logEvent(client.ID, model.CategoryGeneral, time.Now().Add(-10*24*time.Hour))

	triggers := &fakeTriggerRepo{}
	svc := newTestService(triggers, &fakeActivityRepo{last: last}, &fakeClientRepo{client: client})

	result, err := svc.Detect(context.Background(), client.ID)
	require.NoError(t, err)
	require.Len(t, result.Triggers, 1)

	trigger := result.Triggers[0]
	assert.Equal(t, model.TriggerTypeInactivity, trigger.Type)
	assert.Equal(t, model.SeverityHigh, trigger.Severity)
	// The reason reflects the real ten-day silence, not the window size.
	assert.Contains(t, trigger.Reason, "240h")
}

func TestDetectAbortsWhenActivityUnavailable(t *testing.T) {
	client := testClient()
	triggers := &fakeTriggerRepo{}
	svc := newTestService(triggers, &fakeActivityRepo{err: errors.New("connection refused")}, &fakeClientRepo{client: client})

	result, err := svc.Detect(context.Background(), client.ID)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrUnavailable, apperrors.CodeOf(err))
	assert.Empty(t, triggers.created, "nothing may be persisted on a failed read")
}

func TestDetectUnknownClient(t *testing.T) {
	svc := newTestService(&fakeTriggerRepo{}, &fakeActivityRepo{}, &fakeClientRepo{err: errors.New("no rows")})

	_, err := svc.Detect(context.Background(), uuid.New())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestDetectWindowEngagementDrop(t *testing.T) {
	client := testClient()
	now := time.Now()

	// Ten logs in the previous period, one in the current.
	var events []*model.ActivityEvent
	for i := 0; i < 10; i++ {
		events = append(events, logEvent(client.ID, model.CategoryGeneral,
			now.Add(-25*time.Hour-time.Duration(i)*time.Minute)))
	}
	events = append(events, logEvent(client.ID, model.CategoryGeneral, now.Add(-time.Hour)))

	svc := newTestService(&fakeTriggerRepo{}, &fakeActivityRepo{events: events}, &fakeClientRepo{client: client})

	result, err := svc.DetectWindow(context.Background(), client, events, now)
	require.NoError(t, err)

	var drop *model.Trigger
	for _, trigger := range result.Triggers {
		if trigger.Type == model.TriggerTypeEngagementDrop {
			drop = trigger
		}
	}
	require.NotNil(t, drop, "expected an engagement_drop trigger")
	assert.Equal(t, model.SeverityMedium, drop.Severity)
}
