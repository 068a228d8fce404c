// Package ratelimit provides a fixed-window request limiter used to
// slow down credential guessing on the login and forgot-password
// endpoints.
//
// Counters live in a pluggable Store: Redis in production so all
// instances share one view of an attacker, and an in-process map for
// tests and single-node development setups.
package ratelimit
