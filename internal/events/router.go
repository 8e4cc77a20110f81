// Package events routes marketplace record mutations to their handlers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/outcome"
	"github.com/snowparadise/reactor/pkg/logger"
	"github.com/snowparadise/reactor/pkg/metrics"
)

// ReasonMalformed is the skip reason of a payload that cannot be decoded.
// Such a message is terminated instead of acknowledged.
const ReasonMalformed = "malformed_event"

// HandlerFunc handles one decoded event.
type HandlerFunc func(ctx context.Context, ev *model.Event) outcome.Result

// Route binds a named handler to an event type. Each route gets its own
// durable consumer, so its retries are independent of other routes.
type Route struct {
	Name    string
	Type    model.EventType
	Handler HandlerFunc
}

// Router holds the routes and runs single deliveries through them.
type Router struct {
	routes []Route
	logger *logger.Logger
	tracer trace.Tracer
}

// NewRouter creates an empty router.
func NewRouter(log *logger.Logger) *Router {
	return &Router{
		logger: log.Named("events"),
		tracer: otel.Tracer("github.com/snowparadise/reactor/internal/events"),
	}
}

// Handle registers a route.
func (r *Router) Handle(name string, t model.EventType, h HandlerFunc) {
	r.routes = append(r.routes, Route{Name: name, Type: t, Handler: h})
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []Route {
	return r.routes
}

// Delivery is one message as handed over by the event platform.
type Delivery struct {
	Subject    string
	Data       []byte
	Deliveries uint64
}

// Dispatch decodes a delivery and runs it through route. The result decides
// how the delivery is settled: Failed is redelivered, anything else is not.
func (r *Router) Dispatch(ctx context.Context, route Route, d Delivery) (res outcome.Result) {
	start := time.Now()

	var ev model.Event
	if err := json.Unmarshal(d.Data, &ev); err != nil {
		r.logger.Warn("dropping undecodable event",
			zap.String("handler", route.Name),
			zap.String("subject", d.Subject),
			zap.Error(err),
		)
		metrics.RecordEvent(route.Name, outcome.KindSkipped.String(), time.Since(start).Seconds())
		return outcome.Skip(ReasonMalformed)
	}
	if ev.Type == "" {
		ev.Type = route.Type
	}

	log := r.logger.WithEvent(ev.ID, d.Subject, d.Deliveries).With(zap.String("handler", route.Name))

	ctx, span := r.tracer.Start(ctx, "event."+route.Name, trace.WithAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("event.type", string(ev.Type)),
		attribute.Int64("event.deliveries", int64(d.Deliveries)),
	))
	defer span.End()

	if ev.Type != route.Type {
		log.Warn("event type does not match route", zap.String("type", string(ev.Type)))
		res = outcome.Skip("type_mismatch")
	} else {
		res = r.invoke(ctx, route, &ev)
	}

	metrics.RecordEvent(route.Name, res.Kind.String(), time.Since(start).Seconds())
	span.SetAttributes(attribute.String("outcome", res.Kind.String()))

	switch res.Kind {
	case outcome.KindFailed:
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Reason)
		log.Error("event handler failed, will be redelivered", zap.Error(res.Err))
	case outcome.KindSkipped:
		log.Debug("event skipped", append([]zap.Field{zap.String("reason", res.Reason)}, res.Fields...)...)
	default:
		log.Debug("event handled", zap.Duration("took", time.Since(start)))
	}
	return res
}

func (r *Router) invoke(ctx context.Context, route Route, ev *model.Event) (res outcome.Result) {
	defer func() {
		if p := recover(); p != nil {
			res = outcome.Fail(fmt.Errorf("handler %s panicked: %v", route.Name, p))
		}
	}()
	return route.Handler(ctx, ev)
}
