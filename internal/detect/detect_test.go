package detect

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakePage scripts the two introspection reads. All methods are safe for the
// single-goroutine use the orchestrator guarantees but lock anyway so tests
// can inspect counters while a wait is running.
type fakePage struct {
	mu sync.Mutex

	// pendingFn returns the outstanding-request count for the nth call (0-based).
	pendingFn    func(call int) (int, error)
	pendingCalls int

	// sourceFn returns the artifact identity for the nth call (0-based).
	sourceFn    func(call int) (string, bool, error)
	sourceCalls int

	pendingTimes []time.Time
	sourceTimes  []time.Time
}

func (f *fakePage) PendingRequests(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.pendingCalls
	f.pendingCalls++
	f.pendingTimes = append(f.pendingTimes, time.Now())
	if f.pendingFn == nil {
		return 0, nil
	}
	return f.pendingFn(call)
}

func (f *fakePage) ArtifactSource(ctx context.Context, selector string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.sourceCalls
	f.sourceCalls++
	f.sourceTimes = append(f.sourceTimes, time.Now())
	if f.sourceFn == nil {
		return "", false, nil
	}
	return f.sourceFn(call)
}

func (f *fakePage) counts() (pending, source int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingCalls, f.sourceCalls
}

// alwaysIdle models a page with no outstanding requests and a stable artifact.
func alwaysIdle(src string) *fakePage {
	return &fakePage{
		pendingFn: func(int) (int, error) { return 0, nil },
		sourceFn:  func(int) (string, bool, error) { return src, true, nil },
	}
}

// changesAfter returns a page whose artifact identity flips from old to new
// once d has elapsed since construction.
func changesAfter(old, new string, d time.Duration) *fakePage {
	start := time.Now()
	return &fakePage{
		pendingFn: func(int) (int, error) { return 0, nil },
		sourceFn: func(int) (string, bool, error) {
			if time.Since(start) >= d {
				return new, true, nil
			}
			return old, true, nil
		},
	}
}

func errorsIs(err, target error) bool { return err != nil && errors.Is(err, target) }
