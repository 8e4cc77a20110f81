package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/snowparadise/reactor/internal/model"
)

const (
	// StreamName is the name of the marketplace event stream.
	StreamName = "MARKETPLACE_EVENTS"

	// SubjectPrefix is the prefix for all marketplace event subjects.
	SubjectPrefix = "mkt"

	// DuplicateWindow is how long the stream remembers published event ids.
	DuplicateWindow = 10 * time.Minute
)

// Subject returns the subject an event type is published on.
func Subject(t model.EventType) string {
	return SubjectPrefix + "." + string(t)
}

// EventTypeOf is the inverse of Subject.
func EventTypeOf(subject string) (model.EventType, bool) {
	t, ok := strings.CutPrefix(subject, SubjectPrefix+".")
	return model.EventType(t), ok
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	js jetstream.JetStream
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{js: client.JetStream()}
}

// EnsureStream creates the event stream, or updates it when it already exists.
func (m *StreamManager) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	stream, err := m.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Duplicates:  DuplicateWindow,
		Description: "Record mutations of the marketplace document store",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}
	return stream, nil
}

// ConsumerConfig describes one durable consumer.
type ConsumerConfig struct {
	Durable       string
	FilterSubject string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

// EnsureConsumer creates or updates a durable pull consumer on the event stream.
func (m *StreamManager) EnsureConsumer(ctx context.Context, cfg ConsumerConfig) (jetstream.Consumer, error) {
	cons, err := m.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       cfg.Durable,
		FilterSubject: cfg.FilterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    cfg.MaxDeliver,
		AckWait:       cfg.AckWait,
		MaxAckPending: cfg.MaxAckPending,
		BackOff:       backoff(cfg.MaxDeliver, cfg.AckWait),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure consumer %s: %w", cfg.Durable, err)
	}
	return cons, nil
}

// backoff spaces redeliveries out. JetStream requires it to be shorter
// than MaxDeliver.
func backoff(maxDeliver int, ackWait time.Duration) []time.Duration {
	steps := []time.Duration{time.Second, 5 * time.Second, 30 * time.Second, 2 * time.Minute}
	if maxDeliver > 0 && len(steps) >= maxDeliver {
		steps = steps[:maxDeliver-1]
	}
	for i := range steps {
		steps[i] = max(steps[i], ackWait)
	}
	if len(steps) == 0 {
		return nil
	}
	return steps
}

// PublishEvent publishes an event with the trace context of ctx in its
// headers. The event id doubles as the JetStream message id so a repeated
// publish within DuplicateWindow is dropped.
func (m *StreamManager) PublishEvent(ctx context.Context, ev *model.Event) (uint64, error) {
	if ev.ID == "" {
		return 0, errors.New("event id is required")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(Subject(ev.Type))
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	ack, err := m.js.PublishMsg(ctx, msg, jetstream.WithMsgID(ev.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}
