package preference

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachpulse/engage-api/internal/model"
	apperrors "github.com/coachpulse/engage-api/pkg/errors"
)

type fakeRepo struct {
	stored *model.NotificationPreference
	getErr error
}

func (f *fakeRepo) Get(ctx context.Context, clientID uuid.UUID) (*model.NotificationPreference, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.stored == nil {
		return model.DefaultPreference(clientID), nil
	}
	return f.stored, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, pref *model.NotificationPreference) error {
	f.stored = pref
	return nil
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
func strPtr(s string) *string {
	return &s
}

func TestGetFallsBackToDefaults(t *testing.T) {
	svc := NewService(&fakeRepo{})
	clientID := uuid.New()

	pref, err := svc.Get(context.Background(), clientID)
	require.NoError(t, err)

	assert.Equal(t, clientID, pref.ClientID)
	assert.True(t, pref.InApp)
	assert.Equal(t, 5, pref.DailyLimit)
}

func TestUpdateMergesPartialRequest(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	clientID := uuid.New()

	pref, err := svc.Update(context.Background(), clientID, &model.UpdatePreferenceRequest{
		SMS:        boolPtr(true),
		DailyLimit: intPtr(3),
	})
	require.NoError(t, err)

	// Touched fields change, everything else keeps its stored value.
	assert.True(t, pref.SMS)
	assert.Equal(t, 3, pref.DailyLimit)
	assert.True(t, pref.InApp)
	assert.Equal(t, model.FrequencyModerate, pref.Frequency)
	assert.Same(t, pref, repo.stored)
}

func TestUpdateQuietHoursValidated(t *testing.T) {
	svc := NewService(&fakeRepo{})

	_, err := svc.Update(context.Background(), uuid.New(), &model.UpdatePreferenceRequest{
		QuietHoursEnabled: boolPtr(true),
		QuietHoursStart:   strPtr("22:00"),
		QuietHoursEnd:     strPtr("25:00"),
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestUpdateUnknownFrequencyRejected(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	bogus := model.NotificationFrequency("bogus")

	_, err := svc.Update(context.Background(), uuid.New(), &model.UpdatePreferenceRequest{
		Frequency: &bogus,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
	assert.Nil(t, repo.stored)
}

func TestUpdateNegativeDailyLimitRejected(t *testing.T) {
	svc := NewService(&fakeRepo{})

	_, err := svc.Update(context.Background(), uuid.New(), &model.UpdatePreferenceRequest{
		DailyLimit: intPtr(-1),
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestUpdateWhenStoreUnavailable(t *testing.T) {
	svc := NewService(&fakeRepo{getErr: errors.New("connection refused")})

	_, err := svc.Update(context.Background(), uuid.New(), &model.UpdatePreferenceRequest{})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnavailable, apperrors.CodeOf(err))
}
