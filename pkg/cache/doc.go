// Package cache provides a bounded in-process LRU cache.
//
// It is process-local by design: every server process has its own view, and
// nothing invalidates entries across processes. Callers that mutate the
// underlying data must remove the matching keys themselves.
package cache
