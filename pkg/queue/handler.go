package queue

import (
	"context"
	"encoding/json"
	"errors"
)

type (
	// Handler executes one named kind of task.
	Handler interface {
		Name() string
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	// TaskHandlerFunc receives the decoded payload for its task kind.
	TaskHandlerFunc[T any] func(ctx context.Context, payload T) error
)

// NewTaskHandler wraps a typed callback as a Handler. The handler's name
// is derived from T, matching the name Enqueue derives from a value of T.
func NewTaskHandler[T any](handler TaskHandlerFunc[T]) Handler {
	var payload T
	return &taskHandler[T]{
		name:    taskName(payload),
		handler: handler,
	}
}

type taskHandler[T any] struct {
	name    string
	handler TaskHandlerFunc[T]
}

func (h *taskHandler[T]) Name() string {
	return h.name
}

func (h *taskHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return errors.Join(ErrUnmarshalPayload, err)
	}
	return h.handler(ctx, t)
}
