package concurrency

import (
	"log/slog"
	"runtime/debug"
)

// SafeGo runs fn in a goroutine, converting a panic into a log line and an
// optional callback.
func SafeGo(name string, fn func(), onPanic func(interface{})) {
	go func() {
		defer Recover(name, onPanic)
		fn()
	}()
}

// Recover is meant to be deferred; it logs and reports a panic without re-raising it.
func Recover(name string, onPanic func(interface{})) {
	if r := recover(); r != nil {
		slog.Error("Panic recovered", "routine", name, "panic", r, "stack", string(debug.Stack()))
		if onPanic != nil {
			onPanic(r)
		}
	}
}
