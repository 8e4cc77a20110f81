// Package notify sends push notifications for chat messages and likes.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/outcome"
	"github.com/snowparadise/reactor/internal/store"
	"github.com/snowparadise/reactor/pkg/logger"
	"github.com/snowparadise/reactor/pkg/metrics"
)

// Directory is the read side of the document store plus token pruning.
type Directory interface {
	Conversation(ctx context.Context, id string) (*model.Conversation, error)
	Product(ctx context.Context, id string) (*model.Product, error)
	User(ctx context.Context, id string) (*model.User, error)
	IsBlocked(ctx context.Context, blocker, blocked string) (bool, error)
	RemoveTokens(ctx context.Context, userID string, tokens []string) error
}

// Gateway delivers one payload to many tokens and returns a verdict per token.
type Gateway interface {
	SendMulticast(ctx context.Context, msg *model.MulticastMessage) (*model.BatchResponse, error)
}

// Telemetry receives the result of every multicast.
type Telemetry interface {
	RecordSend(kind model.NotificationKind, s Summary)
}

// PrometheusTelemetry exports send results as Prometheus metrics.
type PrometheusTelemetry struct{}

// RecordSend implements Telemetry.
func (PrometheusTelemetry) RecordSend(kind model.NotificationKind, s Summary) {
	metrics.RecordPushResult(string(kind), s.Successes, s.Failures, s.ByCode)
	if len(s.Prune) > 0 {
		metrics.TokensPruned.WithLabelValues(string(kind)).Add(float64(len(s.Prune)))
	}
}

// Texts are the user-visible strings of notifications.
type Texts struct {
	ChatTitle       string // formatted with the sender name
	SellerFallback  string
	BuyerFallback   string
	ProductFallback string
	LikeTitle       string
	LikeBody        string // formatted with the liker name and product title
	LikerFallback   string
}

// DefaultTexts returns the English strings.
func DefaultTexts() Texts {
	return Texts{
		ChatTitle:       "Message from %s",
		SellerFallback:  "Seller",
		BuyerFallback:   "Buyer",
		ProductFallback: "Item",
		LikeTitle:       "Someone liked your item!",
		LikeBody:        "%s is interested in '%s'",
		LikerFallback:   "Someone",
	}
}

// KoreanTexts returns the strings the marketplace app ships with.
func KoreanTexts() Texts {
	return Texts{
		ChatTitle:       "%s님의 메시지",
		SellerFallback:  "판매자",
		BuyerFallback:   "구매자",
		ProductFallback: "상품",
		LikeTitle:       "❤️ 누군가 내 상품을 찜했어요!",
		LikeBody:        "%s님이 '%s'에 관심을 보이고 있어요",
		LikerFallback:   "누군가",
	}
}

// TextsFor returns the strings for locale. Unknown locales get DefaultTexts.
func TextsFor(locale string) Texts {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "ko", "ko-kr":
		return KoreanTexts()
	default:
		return DefaultTexts()
	}
}

// Config configures a Dispatcher.
type Config struct {
	Hints model.PlatformHints
	Texts Texts
}

// Dispatcher resolves recipients, filters blocks, sends and prunes tokens.
type Dispatcher struct {
	dir       Directory
	gateway   Gateway
	telemetry Telemetry
	cfg       Config
	logger    *logger.Logger
	tracer    trace.Tracer
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(dir Directory, gateway Gateway, telemetry Telemetry, cfg Config, log *logger.Logger) *Dispatcher {
	if telemetry == nil {
		telemetry = PrometheusTelemetry{}
	}
	if cfg.Texts == (Texts{}) {
		cfg.Texts = DefaultTexts()
	}
	return &Dispatcher{
		dir:       dir,
		gateway:   gateway,
		telemetry: telemetry,
		cfg:       cfg,
		logger:    log.Named("notify"),
		tracer:    otel.Tracer("github.com/snowparadise/reactor/internal/notify"),
	}
}

// NotifyMessage notifies the other participant of a chat room about a new message.
func (d *Dispatcher) NotifyMessage(ctx context.Context, msg model.ChatMessage) (res outcome.Result) {
	ctx, span := d.tracer.Start(ctx, "notify.message", trace.WithAttributes(
		attribute.String("room.id", msg.RoomID),
		attribute.String("sender.id", msg.SenderID),
	))
	defer func() { endSpan(span, res) }()

	kind := model.NotificationChat
	if msg.SenderID == "" || msg.Text == "" {
		d.logger.Warn("missing senderId or text",
			zap.String("room_id", msg.RoomID),
			zap.Bool("sender_id_present", msg.SenderID != ""),
			zap.Bool("text_present", msg.Text != ""),
		)
		return d.skip(kind, "invalid_payload")
	}

	room, err := d.dir.Conversation(ctx, msg.RoomID)
	if errors.Is(err, store.ErrNotFound) {
		d.logger.Warn("chat room not found", zap.String("room_id", msg.RoomID))
		return d.skip(kind, "room_not_found")
	}
	if err != nil {
		return outcome.Failf(err, "load chat room %s", msg.RoomID)
	}

	receiverID := room.Peer(msg.SenderID)
	if receiverID == "" {
		d.logger.Debug("sender is not a participant",
			zap.String("room_id", room.ID),
			zap.String("sender_id", msg.SenderID),
			zap.String("seller_id", room.SellerID),
			zap.String("buyer_id", room.BuyerID),
		)
		return d.skip(kind, "not_participant")
	}

	fields := []zap.Field{
		zap.String("room_id", room.ID),
		zap.String("receiver_id", receiverID),
		zap.String("sender_id", msg.SenderID),
	}
	tokens, res, ok := d.resolveTokens(ctx, kind, receiverID, msg.SenderID, fields)
	if !ok {
		return res
	}

	fallback := d.cfg.Texts.BuyerFallback
	if msg.SenderID == room.SellerID {
		fallback = d.cfg.Texts.SellerFallback
	}
	senderName := orDefault(room.DisplayName(msg.SenderID), fallback)
	productTitle := orDefault(room.ProductTitle, d.cfg.Texts.ProductFallback)

	return d.send(ctx, kind, receiverID, &model.MulticastMessage{
		Tokens: tokens,
		Notification: model.Notification{
			Title: fmt.Sprintf(d.cfg.Texts.ChatTitle, senderName),
			Body:  TruncateBody(msg.Text),
		},
		Data: map[string]string{
			"type":         string(kind),
			"chatId":       room.ID,
			"roomId":       room.ID,
			"senderId":     msg.SenderID,
			"productId":    room.ProductID,
			"productTitle": productTitle,
		},
		PlatformHints: d.cfg.Hints,
	}, fields)
}

// NotifyLike notifies the seller of a product that someone liked it.
func (d *Dispatcher) NotifyLike(ctx context.Context, like model.Like) (res outcome.Result) {
	ctx, span := d.tracer.Start(ctx, "notify.like", trace.WithAttributes(
		attribute.String("product.id", like.ProductID),
		attribute.String("liker.id", like.LikerID),
	))
	defer func() { endSpan(span, res) }()

	kind := model.NotificationLike
	if like.LikerID == "" || like.ProductID == "" {
		d.logger.Warn("missing likerId or productId",
			zap.String("liker_id", like.LikerID),
			zap.String("product_id", like.ProductID),
		)
		return d.skip(kind, "invalid_payload")
	}

	product, err := d.dir.Product(ctx, like.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		d.logger.Warn("product not found", zap.String("product_id", like.ProductID))
		return d.skip(kind, "product_not_found")
	}
	if err != nil {
		return outcome.Failf(err, "load product %s", like.ProductID)
	}

	sellerID := product.SellerID
	if sellerID == like.LikerID {
		d.logger.Info("user liked own product",
			zap.String("liker_id", like.LikerID),
			zap.String("product_id", like.ProductID),
		)
		return d.skip(kind, "self")
	}
	if sellerID == "" {
		d.logger.Warn("seller not found for product", zap.String("product_id", like.ProductID))
		return d.skip(kind, "no_seller")
	}

	fields := []zap.Field{
		zap.String("product_id", product.ID),
		zap.String("seller_id", sellerID),
		zap.String("liker_id", like.LikerID),
	}
	tokens, res, ok := d.resolveTokens(ctx, kind, sellerID, like.LikerID, fields)
	if !ok {
		return res
	}

	likerName := d.cfg.Texts.LikerFallback
	liker, err := d.dir.User(ctx, like.LikerID)
	switch {
	case err == nil:
		likerName = orDefault(liker.Nickname, likerName)
	case !errors.Is(err, store.ErrNotFound):
		return outcome.Failf(err, "load liker %s", like.LikerID)
	}
	productTitle := orDefault(product.Title, d.cfg.Texts.ProductFallback)

	return d.send(ctx, kind, sellerID, &model.MulticastMessage{
		Tokens: tokens,
		Notification: model.Notification{
			Title: d.cfg.Texts.LikeTitle,
			Body:  TruncateBody(fmt.Sprintf(d.cfg.Texts.LikeBody, likerName, productTitle)),
		},
		Data: map[string]string{
			"type":         string(kind),
			"productId":    product.ID,
			"productTitle": productTitle,
			"likerId":      like.LikerID,
			"likeAction":   "true",
		},
		PlatformHints: d.cfg.Hints,
	}, fields)
}

// resolveTokens applies the block filter and loads the recipient's
// normalized tokens. ok is false when the dispatch must stop with res.
func (d *Dispatcher) resolveTokens(
	ctx context.Context,
	kind model.NotificationKind,
	recipientID, actorID string,
	fields []zap.Field,
) (tokens []string, res outcome.Result, ok bool) {
	blocked, err := d.dir.IsBlocked(ctx, recipientID, actorID)
	if err != nil {
		return nil, outcome.Failf(err, "check block of %s by %s", actorID, recipientID), false
	}
	if blocked {
		d.logger.Info("recipient blocked actor, skip notification", fields...)
		return nil, d.skip(kind, "blocked"), false
	}

	recipient, err := d.dir.User(ctx, recipientID)
	switch {
	case err == nil:
		tokens = NormalizeTokens(recipient.Tokens)
	case !errors.Is(err, store.ErrNotFound):
		return nil, outcome.Failf(err, "load recipient %s", recipientID), false
	}
	if len(tokens) == 0 {
		d.logger.Warn("no push tokens for recipient", fields...)
		return nil, d.skip(kind, "no_tokens"), false
	}
	return tokens, outcome.Result{}, true
}

// send performs the multicast, prunes dead tokens and reports telemetry.
func (d *Dispatcher) send(
	ctx context.Context,
	kind model.NotificationKind,
	recipientID string,
	msg *model.MulticastMessage,
	fields []zap.Field,
) outcome.Result {
	resp, err := d.gateway.SendMulticast(ctx, msg)
	if err != nil {
		metrics.PushSends.WithLabelValues(string(kind), "error").Inc()
		return outcome.Failf(err, "send %s notification", kind)
	}

	summary := Summarize(msg.Tokens, resp)
	if len(summary.Prune) > 0 {
		// A failed prune is retried on the next send; redelivering the event
		// would push the notification twice.
		if err := d.dir.RemoveTokens(ctx, recipientID, summary.Prune); err != nil {
			d.logger.Error("failed to remove invalid push tokens",
				append(fields, zap.Int("count", len(summary.Prune)), zap.Error(err))...)
		} else {
			d.logger.Info("removed invalid push tokens",
				append(fields, zap.Int("removed_count", len(summary.Prune)))...)
		}
	}

	d.telemetry.RecordSend(kind, summary)
	d.logger.Info("push send result", append(fields,
		zap.String("kind", string(kind)),
		zap.Int("tokens", summary.Tokens),
		zap.Int("success_count", summary.Successes),
		zap.Int("failure_count", summary.Failures),
		zap.Any("error_stats", summary.ByCode),
	)...)

	return outcome.OK()
}

func (d *Dispatcher) skip(kind model.NotificationKind, reason string) outcome.Result {
	metrics.NotificationsSkipped.WithLabelValues(string(kind), reason).Inc()
	return outcome.Skip(reason, zap.String("kind", string(kind)))
}

func endSpan(span trace.Span, res outcome.Result) {
	span.SetAttributes(attribute.String("outcome", res.Kind.String()))
	if res.Failed() {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Reason)
	} else if res.Reason != "" {
		span.SetAttributes(attribute.String("skip.reason", res.Reason))
	}
	span.End()
}
