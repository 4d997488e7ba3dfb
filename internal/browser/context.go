// internal/browser/context.go
package browser

import (
	"context"
)

// combineContext derives a context from tabCtx, which carries the CDP target,
// that also ends when opCtx ends. opCtx's deadline is copied so an expired
// operation reports context.DeadlineExceeded rather than context.Canceled.
func combineContext(tabCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(tabCtx)
	if deadline, ok := opCtx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combined, cancelDeadline = context.WithDeadline(combined, deadline)
		parentCancel := cancel
		cancel = func() {
			cancelDeadline()
			parentCancel()
		}
	}

	go func() {
		select {
		case <-opCtx.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}
