// Package session guards client-scoped asynchronous work against subject
// switches: an operation issued while client A is active must never mutate
// state after the coach has selected client B. Results are tagged with the
// subject identity at issue time and silently discarded when it no longer
// matches.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/pkg/metrics"
)

// Token identifies one activation of a subject. Two activations of the
// same subject get distinct epochs, so re-selecting a client also cancels
// interest in that client's earlier in-flight work.
type Token struct {
	Subject uuid.UUID
	epoch   uint64
}

// Coordinator tracks the currently active subject. Cancellation is
// cooperative and identity-based: in-flight work runs to completion, only
// the application of its result is suppressed.
type Coordinator struct {
	mu      sync.Mutex
	subject uuid.UUID
	epoch   uint64
	metrics *metrics.Metrics
}

func NewCoordinator(m *metrics.Metrics) *Coordinator {
	return &Coordinator{metrics: m}
}

// Activate makes subject the active one and returns the token every
// operation issued on its behalf must carry.
func (c *Coordinator) Activate(subject uuid.UUID) Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subject = subject
	c.epoch++
	return Token{Subject: subject, epoch: c.epoch}
}

// Current reports the active subject.
func (c *Coordinator) Current() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subject
}

// Valid reports whether the token still names the active activation.
func (c *Coordinator) Valid(t Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return t.Subject == c.subject && t.epoch == c.epoch
}

// Apply runs mutate only when the token is still current, holding the lock
// so an Activate cannot interleave mid-mutation. A stale token is an
// expected no-op, never an error.
func (c *Coordinator) Apply(t Token, mutate func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Subject != c.subject || t.epoch != c.epoch {
		if c.metrics != nil {
			c.metrics.StaleResultsDiscarded.Inc()
		}
		return false
	}
	mutate()
	return true
}

// Fetch runs load and applies its result through the coordinator's
// staleness check. A genuine failure under a still-current token goes to
// onErr; both outcomes of a stale operation are discarded silently.
func Fetch[T any](ctx context.Context, c *Coordinator, t Token, load func(context.Context) (T, error), apply func(T), onErr func(error)) {
	result, err := load(ctx)
	if err != nil {
		c.Apply(t, func() {
			if onErr != nil {
				onErr(err)
			}
		})
		return
	}
	c.Apply(t, func() { apply(result) })
}

// Go is Fetch on a goroutine, for fire-and-forget loads issued from a
// selection action.
func Go[T any](ctx context.Context, c *Coordinator, t Token, load func(context.Context) (T, error), apply func(T), onErr func(error)) {
	go Fetch(ctx, c, t, load, apply, onErr)
}

// Staged is a two-phase optimistic mutation: apply tentatively, then commit
// or revert once the authoritative outcome is known. Both phases pass the
// same staleness gate, so a stale confirmation can neither commit into nor
// revert out of the next subject's state.
type Staged struct {
	c       *Coordinator
	token   Token
	applied bool
	revert  func()
}

// Stage applies the optimistic mutation if the token is current.
func (c *Coordinator) Stage(t Token, apply, revert func()) *Staged {
	s := &Staged{c: c, token: t, revert: revert}
	s.applied = c.Apply(t, apply)
	return s
}

// Commit finalizes; the optimistic state simply stands.
func (s *Staged) Commit() {}

// Revert undoes the optimistic mutation after a confirmed failure, if it
// was applied and the subject has not changed since.
func (s *Staged) Revert() {
	if !s.applied || s.revert == nil {
		return
	}
	s.c.Apply(s.token, s.revert)
}
