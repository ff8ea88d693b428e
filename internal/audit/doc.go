// Package audit persists a log of reminder deliveries.
//
// Sending a reminder is best-effort, so this log is the only durable trace
// of what actually went out. It never blocks or fails the delivery path
// that feeds it.
package audit
