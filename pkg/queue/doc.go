// Package queue decouples slow side effects from the request path with an
// in-process, unbounded, single-consumer FIFO task queue.
//
// Producers enqueue without blocking on delivery and never hear back: tasks
// are best-effort, fire-and-forget. One consumer goroutine executes tasks
// strictly in enqueue order, one at a time. A failing or panicking handler
// is logged in full and the consumer moves on; nothing is retried and no
// error ever reaches the request that enqueued the task.
//
// A task may set NeedsDB to have its handler run inside a database
// connection scope that the consumer acquires just before the callback and
// releases right after it, on every path.
package queue
