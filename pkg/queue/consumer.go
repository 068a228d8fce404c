package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DBScope acquires a database connection for the duration of fn and
// releases it on every return path, including panics inside fn.
type DBScope func(ctx context.Context, fn func(ctx context.Context) error) error

// Consumer drains a Queue on a single goroutine, running tasks strictly
// in enqueue order. Failures are logged and forgotten.
type Consumer struct {
	queue    *Queue
	handlers map[string]Handler
	logger   *slog.Logger
	timeout  time.Duration
	dbScope  DBScope

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type consumerOptions struct {
	logger  *slog.Logger
	timeout time.Duration
	dbScope DBScope
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*consumerOptions)

// WithLogger sets the logger used for task lifecycle events.
func WithLogger(logger *slog.Logger) ConsumerOption {
	return func(o *consumerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCallbackTimeout bounds how long a single task handler may run.
func WithCallbackTimeout(d time.Duration) ConsumerOption {
	return func(o *consumerOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithDBScope sets the connection scope applied to tasks enqueued with
// WithNeedsDB.
func WithDBScope(scope DBScope) ConsumerOption {
	return func(o *consumerOptions) { o.dbScope = scope }
}

// NewConsumer creates a consumer for q with no handlers registered.
func NewConsumer(q *Queue, opts ...ConsumerOption) *Consumer {
	options := &consumerOptions{
		logger:  slog.Default(),
		timeout: time.Minute,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Consumer{
		queue:    q,
		handlers: make(map[string]Handler),
		logger:   options.logger,
		timeout:  options.timeout,
		dbScope:  options.dbScope,
	}
}

// RegisterHandlers adds handlers to the registry. Registering two
// handlers with the same name is a wiring bug and fails.
func (c *Consumer) RegisterHandlers(handlers ...Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range handlers {
		if h == nil {
			continue
		}
		if _, ok := c.handlers[h.Name()]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateHandler, h.Name())
		}
		c.handlers[h.Name()] = h
	}
	return nil
}

// Start launches the consumer goroutine. It returns immediately; tasks
// run in the background until Stop is called or ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return errors.New("queue: consumer already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx)

	c.logger.InfoContext(ctx, "queue consumer started", slog.Int("handlers", len(c.handlers)))
	return nil
}

// Stop refuses further enqueues and waits for the in-flight task to
// finish. Tasks still waiting in the queue are dropped.
func (c *Consumer) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}

	c.queue.close()
	cancel()
	<-done
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	for {
		task, ok := c.queue.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-c.queue.wake:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		c.process(ctx, task)
	}
}

func (c *Consumer) process(ctx context.Context, task Task) {
	c.mu.Lock()
	handler, ok := c.handlers[task.Name]
	c.mu.Unlock()
	if !ok {
		c.logger.ErrorContext(ctx, "task dropped",
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.Name),
			slog.String("error", ErrNoHandler.Error()))
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.invoke(taskCtx, handler, task)
	if err != nil {
		c.logger.ErrorContext(ctx, "task failed",
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.Name),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return
	}

	c.logger.InfoContext(ctx, "task completed",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.Name),
		slog.Duration("duration", time.Since(start)))
}

// invoke runs the handler with panic recovery and, when the task asks
// for it, inside the database connection scope.
func (c *Consumer) invoke(ctx context.Context, handler Handler, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanicRecovered, r)
		}
	}()

	if task.NeedsDB && c.dbScope != nil {
		return c.dbScope(ctx, func(ctx context.Context) error {
			return handler.Handle(ctx, task.Payload)
		})
	}
	return handler.Handle(ctx, task.Payload)
}
