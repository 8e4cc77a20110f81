// Package unread keeps each user's unread total in step with the per-room
// unread counters of the conversations they take part in.
package unread

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/outcome"
)

// DeltaApplier applies a bounded delta to a counter.
type DeltaApplier interface {
	ApplyDelta(ctx context.Context, ref model.CounterRef, delta int64) outcome.Result
}

// Reconciler forwards unread deltas of a conversation to its participants.
type Reconciler struct {
	counters DeltaApplier
}

// NewReconciler creates a Reconciler.
func NewReconciler(counters DeltaApplier) *Reconciler {
	return &Reconciler{counters: counters}
}

// Delta is the change of one participant's unread count.
type Delta struct {
	UserID string
	Delta  int64
}

// Deltas computes the per-participant changes between two snapshots. Either
// snapshot may be nil (created or deleted record). Participants with no
// change are omitted and a participant on both sides gets one combined entry.
func Deltas(before, after *model.Conversation) []Delta {
	var b, a model.Conversation
	if before != nil {
		b = *before
	}
	if after != nil {
		a = *after
	}

	sellerID := firstNonEmpty(a.SellerID, b.SellerID)
	buyerID := firstNonEmpty(a.BuyerID, b.BuyerID)
	sellerDelta := max(a.SellerUnread, 0) - max(b.SellerUnread, 0)
	buyerDelta := max(a.BuyerUnread, 0) - max(b.BuyerUnread, 0)

	if sellerID != "" && sellerID == buyerID {
		if d := sellerDelta + buyerDelta; d != 0 {
			return []Delta{{UserID: sellerID, Delta: d}}
		}
		return nil
	}

	var out []Delta
	if sellerID != "" && sellerDelta != 0 {
		out = append(out, Delta{UserID: sellerID, Delta: sellerDelta})
	}
	if buyerID != "" && buyerDelta != 0 {
		out = append(out, Delta{UserID: buyerID, Delta: buyerDelta})
	}
	return out
}

// Reconcile applies the deltas between before and after. The per-user
// updates run concurrently and are independent of each other: one may
// succeed while the other fails.
func (r *Reconciler) Reconcile(ctx context.Context, before, after *model.Conversation) outcome.Result {
	deltas := Deltas(before, after)
	if len(deltas) == 0 {
		return outcome.Skip("no unread change")
	}

	results := make([]outcome.Result, len(deltas))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range deltas {
		i, d := i, d
		g.Go(func() error {
			results[i] = r.counters.ApplyDelta(gctx, model.UnreadTotal(d.UserID), d.Delta)
			return nil
		})
	}
	_ = g.Wait()

	res := outcome.Merge(results...)
	if res.Kind == outcome.KindSkipped {
		res.Fields = append(res.Fields, zap.Int("participants", len(deltas)))
	}
	return res
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
