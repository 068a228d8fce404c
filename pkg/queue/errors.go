package queue

import "errors"

var (
	ErrQueueClosed      = errors.New("queue.errors.queue_closed")
	ErrNilPayload       = errors.New("queue.errors.nil_payload")
	ErrEmptyTaskName    = errors.New("queue.errors.empty_task_name")
	ErrNoHandler        = errors.New("queue.errors.no_handler")
	ErrDuplicateHandler = errors.New("queue.errors.duplicate_handler")
	ErrMarshalPayload   = errors.New("queue.errors.marshal_payload")
	ErrUnmarshalPayload = errors.New("queue.errors.unmarshal_payload")
	ErrPanicRecovered   = errors.New("queue.errors.panic_recovered")
)
