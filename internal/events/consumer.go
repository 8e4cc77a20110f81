package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	natsclient "github.com/snowparadise/reactor/internal/nats"
	"github.com/snowparadise/reactor/internal/outcome"
	"github.com/snowparadise/reactor/pkg/logger"
	"github.com/snowparadise/reactor/pkg/metrics"
)

// ConsumerManager is the part of the stream manager the consumer needs.
type ConsumerManager interface {
	EnsureConsumer(ctx context.Context, cfg natsclient.ConsumerConfig) (jetstream.Consumer, error)
}

// ConsumerOptions configures the JetStream consumers.
type ConsumerOptions struct {
	DurablePrefix string
	MaxInFlight   int64
	MaxDeliver    int
	AckWait       time.Duration
}

// Consumer pulls deliveries for every route and handles each one in its own
// goroutine, with at most MaxInFlight running at once across all routes.
type Consumer struct {
	router  *Router
	streams ConsumerManager
	opts    ConsumerOptions
	sem     *semaphore.Weighted
	logger  *logger.Logger
}

// NewConsumer creates a consumer.
func NewConsumer(router *Router, streams ConsumerManager, opts ConsumerOptions, log *logger.Logger) *Consumer {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 64
	}
	return &Consumer{
		router:  router,
		streams: streams,
		opts:    opts,
		sem:     semaphore.NewWeighted(opts.MaxInFlight),
		logger:  log.Named("consumer"),
	}
}

// Run consumes until ctx is cancelled, then waits for in-flight handlers.
func (c *Consumer) Run(ctx context.Context) error {
	var (
		wg       sync.WaitGroup
		contexts []jetstream.ConsumeContext
	)
	stopAll := func() {
		for _, cc := range contexts {
			cc.Stop()
		}
	}

	for _, route := range c.router.Routes() {
		durable := fmt.Sprintf("%s-%s", c.opts.DurablePrefix, route.Name)
		cons, err := c.streams.EnsureConsumer(ctx, natsclient.ConsumerConfig{
			Durable:       durable,
			FilterSubject: natsclient.Subject(route.Type),
			MaxDeliver:    c.opts.MaxDeliver,
			AckWait:       c.opts.AckWait,
			MaxAckPending: int(c.opts.MaxInFlight),
		})
		if err != nil {
			stopAll()
			return err
		}

		cc, err := cons.Consume(func(msg jetstream.Msg) {
			c.receive(ctx, &wg, route, msg)
		}, jetstream.ConsumeErrHandler(func(_ jetstream.ConsumeContext, err error) {
			c.logger.Warn("consume error", zap.String("handler", route.Name), zap.Error(err))
		}))
		if err != nil {
			stopAll()
			return fmt.Errorf("failed to start consumer %s: %w", durable, err)
		}
		contexts = append(contexts, cc)

		c.logger.Info("consumer started",
			zap.String("handler", route.Name),
			zap.String("durable", durable),
			zap.String("subject", natsclient.Subject(route.Type)),
		)
	}

	<-ctx.Done()
	stopAll()
	wg.Wait()
	c.logger.Info("consumers stopped")
	return nil
}

func (c *Consumer) receive(ctx context.Context, wg *sync.WaitGroup, route Route, msg jetstream.Msg) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		// Shutting down; let the server redeliver it.
		_ = msg.Nak()
		return
	}
	wg.Add(1)
	metrics.EventsInFlight.Inc()

	go func() {
		defer func() {
			metrics.EventsInFlight.Dec()
			c.sem.Release(1)
			wg.Done()
		}()

		var deliveries uint64 = 1
		if meta, err := msg.Metadata(); err == nil {
			deliveries = meta.NumDelivered
		}

		hctx := context.WithoutCancel(ctx)
		if h := msg.Headers(); h != nil {
			hctx = otel.GetTextMapPropagator().Extract(hctx, propagation.HeaderCarrier(h))
		}

		res := c.router.Dispatch(hctx, route, Delivery{
			Subject:    msg.Subject(),
			Data:       msg.Data(),
			Deliveries: deliveries,
		})
		if err := settle(msg, res); err != nil {
			c.logger.Warn("failed to settle delivery",
				zap.String("handler", route.Name),
				zap.String("outcome", res.Kind.String()),
				zap.Error(err),
			)
		}
	}()
}

// Acker is the settlement side of a delivered message.
type Acker interface {
	Ack() error
	Nak() error
	Term() error
}

// settle acknowledges a delivery according to its handling result.
func settle(msg Acker, res outcome.Result) error {
	switch {
	case res.Failed():
		return msg.Nak()
	case res.Kind == outcome.KindSkipped && res.Reason == ReasonMalformed:
		return msg.Term()
	default:
		return msg.Ack()
	}
}
