// Package safego launches fire-and-forget goroutines that survive panics.
// Webhook delivery runs detached from the request that triggered it, so an
// unrecovered panic there would vanish without a trace instead of surfacing
// through any response path.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go runs fn in a new goroutine, recovering and logging any panic with its
// stack trace instead of crashing the process.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine",
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
