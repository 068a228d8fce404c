package queue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestleapp/trestle/pkg/queue"
)

type greetPayload struct {
	Name string `json:"name"`
}

func TestEnqueue(t *testing.T) {
	t.Parallel()

	t.Run("derives name from payload type", func(t *testing.T) {
		t.Parallel()

		q := queue.NewQueue()
		require.NoError(t, q.Enqueue(greetPayload{Name: "ada"}))
		assert.Equal(t, 1, q.Len())
	})

	t.Run("pointer payload shares name with value payload", func(t *testing.T) {
		t.Parallel()

		q := queue.NewQueue()
		c := queue.NewConsumer(q)

		got := make(chan greetPayload, 1)
		require.NoError(t, c.RegisterHandlers(
			queue.NewTaskHandler(func(_ context.Context, p greetPayload) error {
				got <- p
				return nil
			}),
		))

		require.NoError(t, c.Start(context.Background()))
		defer c.Stop()

		require.NoError(t, q.Enqueue(&greetPayload{Name: "ada"}))

		select {
		case p := <-got:
			assert.Equal(t, "ada", p.Name)
		case <-time.After(2 * time.Second):
			t.Fatal("handler was not invoked")
		}
	})

	t.Run("nil payload rejected", func(t *testing.T) {
		t.Parallel()

		q := queue.NewQueue()
		require.ErrorIs(t, q.Enqueue(nil), queue.ErrNilPayload)
	})

	t.Run("unserializable payload rejected", func(t *testing.T) {
		t.Parallel()

		q := queue.NewQueue()
		require.ErrorIs(t, q.Enqueue(make(chan int)), queue.ErrMarshalPayload)
	})

	t.Run("enqueue after stop fails", func(t *testing.T) {
		t.Parallel()

		q := queue.NewQueue()
		c := queue.NewConsumer(q)
		require.NoError(t, c.Start(context.Background()))
		c.Stop()

		require.ErrorIs(t, q.Enqueue(greetPayload{Name: "late"}), queue.ErrQueueClosed)
	})
}

func TestWithTaskName(t *testing.T) {
	t.Parallel()

	q := queue.NewQueue()
	c := queue.NewConsumer(q)

	got := make(chan struct{}, 1)
	require.NoError(t, c.RegisterHandlers(
		queue.NewTaskHandler(func(_ context.Context, _ greetPayload) error {
			t.Error("type-named handler must not run")
			return nil
		}),
	))
	require.NoError(t, c.RegisterHandlers(namedHandler{name: "custom.greet", fired: got}))

	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	require.NoError(t, q.Enqueue(greetPayload{Name: "ada"}, queue.WithTaskName("custom.greet")))

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("custom-named handler was not invoked")
	}
}

type namedHandler struct {
	name  string
	fired chan struct{}
}

func (h namedHandler) Name() string { return h.name }

func (h namedHandler) Handle(context.Context, json.RawMessage) error {
	h.fired <- struct{}{}
	return nil
}
