// Package logx wraps zerolog behind a small structured-logging API.
//
// It exposes a Service whose sinks and level can be swapped at runtime
// (driven by config hot reload) and a value-type Logger that stays live
// across those swaps. The zero Logger is a safe no-op, which keeps test
// code free of nil checks.
package logx
