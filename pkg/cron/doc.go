// Package cron runs background jobs on wall-clock schedules.
//
// Each job moves between three states: idle until the runner starts,
// scheduled while waiting for its next occurrence, and running while its
// callback executes. Callbacks run synchronously on the job's own
// goroutine, so a slow run delays the next one instead of overlapping
// it. Missed occurrences are not backfilled; after a run finishes the
// next fire time is computed from the current clock.
//
// Schedules are evaluated in UTC:
//
//	runner := cron.NewRunner()
//	runner.Add("cleanup", cron.DailyAt(8, 0), func(ctx context.Context) error {
//		return store.DeleteExpired(ctx)
//	})
//	runner.Start(ctx)
package cron
