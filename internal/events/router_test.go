package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/outcome"
	"github.com/snowparadise/reactor/pkg/logger"
)

func TestRouter_Dispatch(t *testing.T) {
	ctx := context.Background()
	r := NewRouter(logger.NewNop())

	var got *model.Event
	route := Route{Name: "probe", Type: model.EventLikeCreated, Handler: func(_ context.Context, ev *model.Event) outcome.Result {
		got = ev
		return outcome.OK()
	}}

	t.Run("decodes the envelope", func(t *testing.T) {
		res := r.Dispatch(ctx, route, Delivery{
			Subject: "mkt.likes.created",
			Data:    []byte(`{"id":"ev-1","type":"likes.created","params":{"userId":"u1","productId":"p1"}}`),
		})

		assert.Equal(t, outcome.KindOK, res.Kind)
		require.NotNil(t, got)
		assert.Equal(t, "ev-1", got.ID)
		assert.Equal(t, "p1", got.Params.ProductID)
	})

	t.Run("missing type defaults to the route type", func(t *testing.T) {
		res := r.Dispatch(ctx, route, Delivery{Data: []byte(`{"id":"ev-2"}`)})
		assert.Equal(t, outcome.KindOK, res.Kind)
		assert.Equal(t, model.EventLikeCreated, got.Type)
	})

	t.Run("undecodable payload", func(t *testing.T) {
		res := r.Dispatch(ctx, route, Delivery{Data: []byte(`{not json`)})
		assert.Equal(t, outcome.KindSkipped, res.Kind)
		assert.Equal(t, ReasonMalformed, res.Reason)
	})

	t.Run("type mismatch", func(t *testing.T) {
		res := r.Dispatch(ctx, route, Delivery{Data: []byte(`{"id":"ev-3","type":"likes.deleted"}`)})
		assert.Equal(t, outcome.KindSkipped, res.Kind)
		assert.Equal(t, "type_mismatch", res.Reason)
	})

	t.Run("handler panic becomes a failure", func(t *testing.T) {
		panicking := Route{Name: "boom", Type: model.EventLikeCreated, Handler: func(context.Context, *model.Event) outcome.Result {
			panic("nil map")
		}}
		res := r.Dispatch(ctx, panicking, Delivery{Data: []byte(`{"id":"ev-4"}`)})
		assert.True(t, res.Failed())
		assert.ErrorContains(t, res.Err, "nil map")
	})
}

func TestRouter_Handle(t *testing.T) {
	r := NewRouter(logger.NewNop())
	h := &Handlers{Logger: logger.NewNop()}
	h.Register(r)

	byType := map[model.EventType][]string{}
	for _, route := range r.Routes() {
		byType[route.Type] = append(byType[route.Type], route.Name)
	}
	assert.Equal(t, map[model.EventType][]string{
		model.EventMessageCreated:     {"message-notify", "message-first"},
		model.EventLikeCreated:        {"like-notify", "like-count-up"},
		model.EventLikeDeleted:        {"like-count-down"},
		model.EventConversationUpdate: {"unread-reconcile"},
	}, byType)
}

type fakeAcker struct {
	acked, naked, termed int
}

func (f *fakeAcker) Ack() error  { f.acked++; return nil }
func (f *fakeAcker) Nak() error  { f.naked++; return nil }
func (f *fakeAcker) Term() error { f.termed++; return nil }

func TestSettle(t *testing.T) {
	tests := []struct {
		name string
		res  outcome.Result
		want fakeAcker
	}{
		{name: "ok is acked", res: outcome.OK(), want: fakeAcker{acked: 1}},
		{name: "skip is acked", res: outcome.Skip("blocked"), want: fakeAcker{acked: 1}},
		{name: "failure is redelivered", res: outcome.Fail(errors.New("down")), want: fakeAcker{naked: 1}},
		{name: "malformed is terminated", res: outcome.Skip(ReasonMalformed), want: fakeAcker{termed: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a fakeAcker
			require.NoError(t, settle(&a, tt.res))
			assert.Equal(t, tt.want, a)
		})
	}
}
