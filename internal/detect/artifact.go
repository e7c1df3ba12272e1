package detect

import (
	"context"
	"time"

	"visaflow/internal/logging"
)

// WaitForArtifactChange polls the element at selector until its identity
// differs from initial, the budget elapses, or the element proves absent.
//
// Identity comparison is plain value equality. If initial is empty (the
// artifact did not exist before the trigger), any non-empty reading counts
// as a change. A read that fails or misses the element mid-poll is tolerated
// for up to maxMissedReads consecutive polls — re-renders briefly detach the
// node — before escalating to ReasonNotFound. An element that never resolves
// on the very first read is ReasonNotFound immediately; there is no point
// polling a selector that matches nothing.
func WaitForArtifactChange(ctx context.Context, page Page, selector, initial string, timeout, poll time.Duration, maxMissedReads int) Outcome {
	logger := logging.New("artifact-detector")
	start := time.Now()
	misses := 0

	for i := 0; ; i++ {
		src, found, err := page.ArtifactSource(ctx, selector)
		elapsed := time.Since(start)

		if err != nil || !found {
			if i == 0 {
				logger.Warn("artifact not found", "selector", selector, "error", err)
				return Outcome{Succeeded: false, Elapsed: elapsed, Reason: ReasonNotFound}
			}
			misses++
			logger.Debug("artifact read missed", "misses", misses, "error", err)
			if misses >= maxMissedReads {
				logger.Warn("artifact vanished", "selector", selector, "consecutive_misses", misses, "elapsed", elapsed)
				return Outcome{Succeeded: false, Elapsed: elapsed, Reason: ReasonNotFound}
			}
		} else {
			misses = 0
			if identityChanged(initial, src) {
				logger.Info("artifact changed", "elapsed", elapsed, "old", truncate(initial, 80), "new", truncate(src, 80))
				return Outcome{Succeeded: true, Elapsed: elapsed, Reason: ReasonChanged}
			}
		}

		if elapsed+poll > timeout {
			logger.Warn("artifact change timeout", "elapsed", elapsed, "timeout", timeout)
			return Outcome{Succeeded: false, Elapsed: time.Since(start), Reason: ReasonTimeout}
		}
		if !sleep(ctx, poll) {
			return Outcome{Succeeded: false, Elapsed: time.Since(start), Reason: ReasonTimeout}
		}
	}
}

func identityChanged(initial, current string) bool {
	if initial == "" {
		return current != ""
	}
	return current != initial
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
