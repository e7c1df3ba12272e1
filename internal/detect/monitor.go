package detect

import (
	"time"

	"context"

	"visaflow/internal/logging"
)

// WaitForNetworkIdle polls the page for outstanding page-initiated requests
// and returns as soon as a poll observes none. This is an optimistic signal:
// transport finishing says nothing about server-side processing, so callers
// must never gate on it alone.
//
// Introspection failures are non-fatal. Some pages restrict the performance
// API; past half the budget a persistent failure stops the wait early, but
// the outcome still reports Succeeded=false so the confidence signal is not
// inflated.
func WaitForNetworkIdle(ctx context.Context, page Page, timeout, poll time.Duration) Outcome {
	logger := logging.New("network-monitor")
	start := time.Now()

	for {
		pending, err := page.PendingRequests(ctx)
		elapsed := time.Since(start)

		switch {
		case err != nil:
			logger.Warn("network introspection failed", "error", err, "elapsed", elapsed)
			if elapsed > timeout/2 {
				return Outcome{Succeeded: false, Elapsed: elapsed, Reason: ReasonTimeout}
			}
		case pending == 0:
			logger.Info("network idle", "elapsed", elapsed)
			return Outcome{Succeeded: true, Elapsed: elapsed, Reason: ReasonChanged}
		default:
			logger.Debug("requests outstanding", "pending", pending, "elapsed", elapsed)
		}

		if elapsed+poll > timeout {
			logger.Warn("network idle timeout", "elapsed", elapsed, "timeout", timeout)
			return Outcome{Succeeded: false, Elapsed: time.Since(start), Reason: ReasonTimeout}
		}
		if !sleep(ctx, poll) {
			return Outcome{Succeeded: false, Elapsed: time.Since(start), Reason: ReasonTimeout}
		}
	}
}
