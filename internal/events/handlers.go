package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/outcome"
	"github.com/snowparadise/reactor/pkg/logger"
)

// Counters maintains derived counters.
type Counters interface {
	ApplyDelta(ctx context.Context, ref model.CounterRef, delta int64) outcome.Result
	MarkFirstMessage(ctx context.Context, roomID string) outcome.Result
}

// UnreadReconciler forwards per-room unread changes to user totals.
type UnreadReconciler interface {
	Reconcile(ctx context.Context, before, after *model.Conversation) outcome.Result
}

// Notifier sends push notifications.
type Notifier interface {
	NotifyMessage(ctx context.Context, msg model.ChatMessage) outcome.Result
	NotifyLike(ctx context.Context, like model.Like) outcome.Result
}

// Handlers adapts the reactor components to event routes.
type Handlers struct {
	Counters Counters
	Unread   UnreadReconciler
	Notifier Notifier
	Logger   *logger.Logger
}

// Register adds one route per reaction to r.
func (h *Handlers) Register(r *Router) {
	r.Handle("message-notify", model.EventMessageCreated, h.OnMessageNotify)
	r.Handle("message-first", model.EventMessageCreated, h.OnMessageFirst)
	r.Handle("like-notify", model.EventLikeCreated, h.OnLikeNotify)
	r.Handle("like-count-up", model.EventLikeCreated, h.OnLikeCreated)
	r.Handle("like-count-down", model.EventLikeDeleted, h.OnLikeDeleted)
	r.Handle("unread-reconcile", model.EventConversationUpdate, h.OnConversationUpdated)
}

// OnMessageNotify notifies the receiver of a new chat message.
func (h *Handlers) OnMessageNotify(ctx context.Context, ev *model.Event) outcome.Result {
	return h.Notifier.NotifyMessage(ctx, model.ChatMessageFromEvent(ev))
}

// OnMessageFirst counts the chat room on its product the first time a message arrives.
func (h *Handlers) OnMessageFirst(ctx context.Context, ev *model.Event) outcome.Result {
	msg := model.ChatMessageFromEvent(ev)
	if msg.RoomID == "" {
		h.Logger.Warn("message event without room id", zap.String("event_id", ev.ID))
		return outcome.Skip("missing_room_id")
	}
	return h.Counters.MarkFirstMessage(ctx, msg.RoomID)
}

// OnLikeNotify notifies the seller of a new like.
func (h *Handlers) OnLikeNotify(ctx context.Context, ev *model.Event) outcome.Result {
	return h.Notifier.NotifyLike(ctx, model.LikeFromEvent(ev))
}

// OnLikeCreated increments the like count of the liked product.
func (h *Handlers) OnLikeCreated(ctx context.Context, ev *model.Event) outcome.Result {
	return h.likeDelta(ctx, ev, 1)
}

// OnLikeDeleted decrements the like count of the unliked product.
func (h *Handlers) OnLikeDeleted(ctx context.Context, ev *model.Event) outcome.Result {
	return h.likeDelta(ctx, ev, -1)
}

func (h *Handlers) likeDelta(ctx context.Context, ev *model.Event, delta int64) outcome.Result {
	like := model.LikeFromEvent(ev)
	if like.ProductID == "" {
		h.Logger.Warn("like event without product id", zap.String("event_id", ev.ID))
		return outcome.Skip("missing_product_id")
	}
	return h.Counters.ApplyDelta(ctx, model.LikeCounter(like.ProductID), delta)
}

// OnConversationUpdated reconciles unread totals of both participants.
func (h *Handlers) OnConversationUpdated(ctx context.Context, ev *model.Event) outcome.Result {
	roomID := model.TrimmedString(ev.Params.RoomID)
	before := model.ConversationFromDocument(roomID, ev.Before)
	after := model.ConversationFromDocument(roomID, ev.After)
	return h.Unread.Reconcile(ctx, before, after)
}
