package demo

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// guard runs fn and turns a panic into an ErrPanic error.
func guard(log *slog.Logger, stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic recovered",
				"stage", stage,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}
