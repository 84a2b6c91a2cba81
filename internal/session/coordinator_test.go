package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCurrentToken(t *testing.T) {
	c := NewCoordinator(nil)
	token := c.Activate(uuid.New())

	var applied bool
	ok := c.Apply(token, func() { applied = true })

	assert.True(t, ok)
	assert.True(t, applied)
}

func TestApplyStaleAfterSubjectSwitch(t *testing.T) {
	c := NewCoordinator(nil)
	clientA := uuid.New()
	clientB := uuid.New()

	tokenA := c.Activate(clientA)
	c.Activate(clientB)

	var applied bool
	ok := c.Apply(tokenA, func() { applied = true })

	assert.False(t, ok)
	assert.False(t, applied)
	assert.Equal(t, clientB, c.Current())
}

func TestApplyStaleAfterReactivation(t *testing.T) {
	c := NewCoordinator(nil)
	client := uuid.New()

	first := c.Activate(client)
	second := c.Activate(client)

	// Re-selecting the same client cancels interest in the earlier run.
	assert.False(t, c.Valid(first))
	assert.True(t, c.Valid(second))
	assert.False(t, c.Apply(first, func() { t.Fatal("stale apply ran") }))
}

func TestFetchAppliesResult(t *testing.T) {
	c := NewCoordinator(nil)
	token := c.Activate(uuid.New())

	var got string
	Fetch(context.Background(), c, token,
		func(ctx context.Context) (string, error) { return "loaded", nil },
		func(v string) { got = v },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	)

	assert.Equal(t, "loaded", got)
}

func TestFetchDiscardsStaleResultAndError(t *testing.T) {
	c := NewCoordinator(nil)
	stale := c.Activate(uuid.New())
	c.Activate(uuid.New())

	Fetch(context.Background(), c, stale,
		func(ctx context.Context) (string, error) { return "late", nil },
		func(v string) { t.Fatal("stale result applied") },
		func(err error) { t.Fatal("stale error surfaced") },
	)

	Fetch(context.Background(), c, stale,
		func(ctx context.Context) (string, error) { return "", errors.New("boom") },
		func(v string) { t.Fatal("stale result applied") },
		func(err error) { t.Fatal("stale error surfaced") },
	)
}

func TestFetchSurfacesErrorUnderCurrentToken(t *testing.T) {
	c := NewCoordinator(nil)
	token := c.Activate(uuid.New())

	var got error
	Fetch(context.Background(), c, token,
		func(ctx context.Context) (int, error) { return 0, errors.New("load failed") },
		func(int) { t.Fatal("apply ran on failure") },
		func(err error) { got = err },
	)

	require.Error(t, got)
	assert.Equal(t, "load failed", got.Error())
}

func TestStagedRevertUndoesOptimisticMutation(t *testing.T) {
	c := NewCoordinator(nil)
	token := c.Activate(uuid.New())

	items := []string{"a", "b"}
	staged := c.Stage(token,
		func() { items = items[:1] },
		func() { items = append(items, "b") },
	)
	require.Equal(t, []string{"a"}, items)

	staged.Revert()
	assert.Equal(t, []string{"a", "b"}, items)
}

func TestStagedCommitKeepsOptimisticMutation(t *testing.T) {
	c := NewCoordinator(nil)
	token := c.Activate(uuid.New())

	count := 1
	staged := c.Stage(token, func() { count = 0 }, func() { count = 1 })
	staged.Commit()

	assert.Equal(t, 0, count)
}

func TestStagedStaleNeitherAppliesNorReverts(t *testing.T) {
	c := NewCoordinator(nil)
	stale := c.Activate(uuid.New())
	c.Activate(uuid.New())

	mutations := 0
	staged := c.Stage(stale,
		func() { mutations++ },
		func() { mutations++ },
	)
	staged.Revert()

	assert.Zero(t, mutations)
}

func TestStagedRevertAfterSubjectSwitchIsNoop(t *testing.T) {
	c := NewCoordinator(nil)
	token := c.Activate(uuid.New())

	applied, reverted := false, false
	staged := c.Stage(token,
		func() { applied = true },
		func() { reverted = true },
	)
	require.True(t, applied)

	// Subject changed between the optimistic apply and the confirmed
	// failure: the new subject's state must not be touched.
	c.Activate(uuid.New())
	staged.Revert()

	assert.False(t, reverted)
}
