// Package counter maintains derived non-negative counters.
package counter

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/outcome"
	"github.com/snowparadise/reactor/internal/store"
	"github.com/snowparadise/reactor/pkg/logger"
	"github.com/snowparadise/reactor/pkg/metrics"
)

// Mutator applies bounded deltas to counters inside store transactions.
type Mutator struct {
	store  store.Transactor
	logger *logger.Logger
}

// NewMutator creates a Mutator.
func NewMutator(s store.Transactor, log *logger.Logger) *Mutator {
	return &Mutator{
		store:  s,
		logger: log.Named("counter"),
	}
}

// ApplyDelta sets ref to max(0, current+delta) in one transaction. The value
// is only written when it changes. A missing owning record is skipped.
func (m *Mutator) ApplyDelta(ctx context.Context, ref model.CounterRef, delta int64) outcome.Result {
	if delta == 0 {
		return outcome.Skip("zero delta", zap.Stringer("counter", ref))
	}

	var current, next int64
	err := m.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		current, err = tx.Counter(ctx, ref)
		if err != nil {
			return err
		}
		next = model.ClampedSum(current, delta)
		if next == current {
			return nil
		}
		return tx.SetCounter(ctx, ref, next)
	})

	switch {
	case errors.Is(err, store.ErrNotFound):
		m.logger.Warn("counter owner not found",
			zap.Stringer("counter", ref),
			zap.Int64("delta", delta),
		)
		metrics.CounterWrites.WithLabelValues(ref.Name(), "missing").Inc()
		return outcome.Skip("counter owner not found", zap.Stringer("counter", ref))
	case err != nil:
		metrics.CounterWrites.WithLabelValues(ref.Name(), "error").Inc()
		return outcome.Failf(err, "apply delta to %s", ref)
	}

	if current+delta < 0 {
		metrics.CounterClamped.WithLabelValues(ref.Name()).Inc()
	}
	if next == current {
		metrics.CounterWrites.WithLabelValues(ref.Name(), "unchanged").Inc()
		return outcome.Skip("counter unchanged", zap.Stringer("counter", ref))
	}

	metrics.CounterWrites.WithLabelValues(ref.Name(), "written").Inc()
	m.logger.Debug("counter updated",
		zap.Stringer("counter", ref),
		zap.Int64("delta", delta),
		zap.Int64("from", current),
		zap.Int64("to", next),
	)
	return outcome.OK()
}

// MarkFirstMessage flips the first-message flag of a conversation and, on
// that transition only, increments the chat count of the linked product in
// the same transaction. Once the flag is set the call is a no-op, which
// makes redelivery of the first message harmless.
func (m *Mutator) MarkFirstMessage(ctx context.Context, roomID string) outcome.Result {
	if roomID == "" {
		return outcome.Skip("missing room id")
	}

	var (
		alreadySent bool
		productID   string
		counted     bool
	)
	err := m.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		alreadySent, productID, counted = false, "", false

		room, err := tx.Conversation(ctx, roomID)
		if err != nil {
			return err
		}
		if room.FirstMessageSent {
			alreadySent = true
			return nil
		}

		productID = room.ProductID
		if productID != "" {
			ref := model.ChatCounter(productID)
			current, err := tx.Counter(ctx, ref)
			switch {
			case errors.Is(err, store.ErrNotFound):
				// Product gone: still close the gate.
			case err != nil:
				return err
			default:
				if err := tx.SetCounter(ctx, ref, model.ClampedSum(current, 1)); err != nil {
					return err
				}
				counted = true
			}
		}
		return tx.MarkFirstMessageSent(ctx, roomID)
	})

	switch {
	case errors.Is(err, store.ErrNotFound):
		m.logger.Warn("chat room not found for first message", zap.String("room_id", roomID))
		return outcome.Skip("chat room not found", zap.String("room_id", roomID))
	case err != nil:
		return outcome.Failf(err, "mark first message of room %s", roomID)
	case alreadySent:
		return outcome.Skip("first message already counted", zap.String("room_id", roomID))
	}

	if counted {
		metrics.CounterWrites.WithLabelValues(model.ChatCounter(productID).Name(), "written").Inc()
	} else {
		m.logger.Info("first message without countable product",
			zap.String("room_id", roomID),
			zap.String("product_id", productID),
		)
	}
	return outcome.OK()
}
