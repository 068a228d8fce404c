package queue

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Queue is an unbounded in-process FIFO. Enqueue never blocks and never
// waits for the task to run; callers get an error only when the payload
// cannot be serialized or the queue has been closed.
type Queue struct {
	mu     sync.Mutex
	tasks  []Task
	wake   chan struct{}
	closed bool
}

// NewQueue returns an empty queue ready for Enqueue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// EnqueueOption adjusts a single Enqueue call.
type EnqueueOption func(*Task)

// WithTaskName overrides the name derived from the payload type.
func WithTaskName(name string) EnqueueOption {
	return func(t *Task) { t.Name = name }
}

// WithNeedsDB marks the task so the consumer acquires a database
// connection scope around its handler.
func WithNeedsDB() EnqueueOption {
	return func(t *Task) { t.NeedsDB = true }
}

// Enqueue serializes payload and appends it to the tail of the queue.
func (q *Queue) Enqueue(payload any, opts ...EnqueueOption) error {
	if payload == nil {
		return ErrNilPayload
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Join(ErrMarshalPayload, err)
	}

	task := Task{
		ID:         uuid.New(),
		Name:       taskName(payload),
		Payload:    data,
		EnqueuedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&task)
	}
	if task.Name == "" {
		return ErrEmptyTaskName
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.tasks = append(q.tasks, task)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len reports how many tasks are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// close marks the queue so further Enqueue calls fail. Already queued
// tasks stay drainable.
func (q *Queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop removes and returns the head of the queue.
func (q *Queue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return Task{}, false
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, true
}
