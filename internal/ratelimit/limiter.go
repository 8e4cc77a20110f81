// Package ratelimit implements a per-subject sliding-window quota.
//
// A window opens on the first counted action and admits up to Max actions
// until Window has elapsed since it opened; the next action after that opens
// a fresh window. What to do with a denial is up to the caller.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/store"
	"github.com/snowparadise/reactor/pkg/metrics"
)

// Policy is the quota applied to one protected action.
type Policy struct {
	Action string
	Window time.Duration
	Max    int
}

// Validate rejects unusable policies.
func (p Policy) Validate() error {
	if p.Action == "" {
		return errors.New("ratelimit: policy action is required")
	}
	if p.Window <= 0 {
		return fmt.Errorf("ratelimit: %s: window must be positive", p.Action)
	}
	if p.Max < 0 {
		return fmt.Errorf("ratelimit: %s: max must not be negative", p.Action)
	}
	return nil
}

// Decision is the result of one check.
type Decision struct {
	Allowed     bool
	Count       int
	WindowStart time.Time
}

// Limiter checks and increments windows stored in a store.WindowStore.
type Limiter struct {
	store store.WindowStore
	now   func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter.
func New(s store.WindowStore, opts ...Option) *Limiter {
	l := &Limiter{store: s, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key is the storage key of a subject's window for an action.
func Key(action, subject string) string {
	return action + ":" + subject
}

// Allow checks the quota of subject under p and, when allowed, counts the
// action. The check and the increment happen in one atomic store update.
func (l *Limiter) Allow(ctx context.Context, subject string, p Policy) (Decision, error) {
	if err := p.Validate(); err != nil {
		return Decision{}, err
	}

	var decision Decision
	err := l.store.UpdateWindow(ctx, Key(p.Action, subject), p.Window, func(current *model.RateWindow) (*model.RateWindow, error) {
		now := l.now()
		state := model.RateWindow{WindowStart: now}
		if current != nil && now.Sub(current.WindowStart) < p.Window {
			state = *current
		}

		if state.Count >= p.Max {
			// A rejected reset is not persisted: the next call recomputes it.
			decision = Decision{Allowed: false, Count: state.Count, WindowStart: state.WindowStart}
			return nil, nil
		}

		state.Count++
		decision = Decision{Allowed: true, Count: state.Count, WindowStart: state.WindowStart}
		return &state, nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit %s: %w", p.Action, err)
	}

	metrics.RecordRateLimit(p.Action, decision.Allowed)
	return decision, nil
}
