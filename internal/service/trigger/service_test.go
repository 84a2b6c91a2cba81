package trigger

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
	triggers map[uuid.UUID]*model.Trigger
	resolved []uuid.UUID
}

func newFakeRepo(triggers ...*model.Trigger) *fakeRepo {
	f := &fakeRepo{triggers: make(map[uuid.UUID]*model.Trigger)}
	for _, trigger := range triggers {
		f.triggers[trigger.ID] = trigger
	}
	return f
}

func (f *fakeRepo) Create(ctx context.Context, trigger *model.Trigger) error { return nil }

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (*model.Trigger, error) {
	trigger, ok := f.triggers[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return trigger, nil
}

func (f *fakeRepo) List(ctx context.Context, filters *model.TriggerFilters) ([]*model.Trigger, error) {
	var out []*model.Trigger
	for _, trigger := range f.triggers {
		if filters.Unresolved && trigger.IsResolved {
			continue
		}
		out = append(out, trigger)
	}
	return out, nil
}

func (f *fakeRepo) Resolve(ctx context.Context, id uuid.UUID) error {
	f.triggers[id].IsResolved = true
	f.resolved = append(f.resolved, id)
	return nil
}

func (f *fakeRepo) ExistsSince(ctx context.Context, clientID uuid.UUID, triggerType model.TriggerType, cutoff time.Time) (bool, error) {
	return false, nil
}

func TestResolve(t *testing.T) {
	trigger := &model.Trigger{ID: uuid.New(), Type: model.TriggerTypeInactivity}
	repo := newFakeRepo(trigger)
	svc := NewService(repo)

	require.NoError(t, svc.Resolve(context.Background(), trigger.ID))
	assert.True(t, trigger.IsResolved)

	// Resolving again is a no-op, not an error.
	require.NoError(t, svc.Resolve(context.Background(), trigger.ID))
	assert.Len(t, repo.resolved, 1)
}

func TestResolveUnknownTrigger(t *testing.T) {
	svc := NewService(newFakeRepo())

	err := svc.Resolve(context.Background(), uuid.New())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestListUnresolvedFilter(t *testing.T) {
	open := &model.Trigger{ID: uuid.New()}
	closed := &model.Trigger{ID: uuid.New(), IsResolved: true}
	svc := NewService(newFakeRepo(open, closed))

	triggers, err := svc.List(context.Background(), &model.TriggerFilters{Unresolved: true})
	require.NoError(t, err)

	require.Len(t, triggers, 1)
	assert.Equal(t, open.ID, triggers[0].ID)
}
