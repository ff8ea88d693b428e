// Package scheduler owns the background loop that keeps the task store
// reconciled with the outside world and fires time-based reminders.
//
// # Cycle
//
// One goroutine runs the cycle forever until Stop(): interval-due jobs
// first (approaching-deadline sweep, email import, calendar sync, retention
// cleanup), then always the immediate-reminder fast path, then a ~60s
// sleep. Job due-ness comes from cron schedule specs, so tiers are
// configurable as cron expressions, descriptors, or plain durations.
//
// # Reminder mechanisms
//
// Two independent, idempotent paths: the hourly approaching sweep (gated by
// the persisted Reminded flag) and the per-tick immediate path, which arms
// a one-shot timer per task roughly 15 minutes before the due time (gated
// by an in-memory armed set that a restart forgets).
//
// # Failure isolation
//
// Every job runs with panic recovery and its own timeout-bounded contexts
// for collaborator calls; one bad task or one failing external service
// never kills the loop or skips the rest of the cycle.
package scheduler
