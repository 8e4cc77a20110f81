// Package store holds the contracts shared by the document store backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/snowparadise/reactor/internal/model"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// Tx is a read-modify-write transaction. Reads lock the record they touch
// until the transaction ends, so conflicting writers serialize.
type Tx interface {
	// Counter returns the current value of ref, normalized to >= 0.
	// It returns ErrNotFound when the owning record is missing.
	Counter(ctx context.Context, ref model.CounterRef) (int64, error)
	SetCounter(ctx context.Context, ref model.CounterRef, value int64) error

	Conversation(ctx context.Context, id string) (*model.Conversation, error)
	MarkFirstMessageSent(ctx context.Context, id string) error
}

// Transactor runs fn inside a transaction, committing when fn returns nil.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// WindowUpdate computes the next window from the stored one (nil when absent).
// Returning a nil window leaves the stored state untouched. It may be invoked
// more than once when the backend retries on conflict.
type WindowUpdate func(current *model.RateWindow) (*model.RateWindow, error)

// WindowStore atomically updates rate windows.
type WindowStore interface {
	UpdateWindow(ctx context.Context, key string, ttl time.Duration, fn WindowUpdate) error
}
