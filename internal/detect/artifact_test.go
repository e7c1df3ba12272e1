package detect

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestWaitForArtifactChange_DetectsChange(t *testing.T) {
	// Scaled-down version of the reference scenario: identity flips at 42ms,
	// poll every 15ms — the change lands on the first poll boundary >= 42ms.
	page := changesAfter("img/qr_v1.png", "img/qr_v2.png", 42*time.Millisecond)
	out := WaitForArtifactChange(context.Background(), page, "img.qr", "img/qr_v1.png",
		300*time.Millisecond, 15*time.Millisecond, 3)

	if !out.Succeeded || out.Reason != ReasonChanged {
		t.Fatalf("expected CHANGED, got %+v", out)
	}
	if out.Elapsed < 42*time.Millisecond {
		t.Errorf("change reported before it happened: %v", out.Elapsed)
	}
	if out.Elapsed > 150*time.Millisecond {
		t.Errorf("change detected too late: %v", out.Elapsed)
	}
}

func TestWaitForArtifactChange_TimeoutWhenUnchanged(t *testing.T) {
	page := alwaysIdle("img/qr_v1.png")
	timeout := 120 * time.Millisecond
	poll := 20 * time.Millisecond

	start := time.Now()
	out := WaitForArtifactChange(context.Background(), page, "img.qr", "img/qr_v1.png", timeout, poll, 3)
	wall := time.Since(start)

	if out.Succeeded || out.Reason != ReasonTimeout {
		t.Fatalf("expected TIMEOUT, got %+v", out)
	}
	if wall < timeout-poll {
		t.Errorf("returned earlier than budget: %v < %v", wall, timeout-poll)
	}
	if wall > timeout+poll+50*time.Millisecond {
		t.Errorf("overshot budget: %v", wall)
	}
}

func TestWaitForArtifactChange_NotFoundImmediately(t *testing.T) {
	page := &fakePage{sourceFn: func(int) (string, bool, error) { return "", false, nil }}

	start := time.Now()
	out := WaitForArtifactChange(context.Background(), page, "img.qr", "", 500*time.Millisecond, 50*time.Millisecond, 3)
	wall := time.Since(start)

	if out.Reason != ReasonNotFound {
		t.Fatalf("expected NOT_FOUND, got %+v", out)
	}
	if wall > 50*time.Millisecond {
		t.Errorf("NOT_FOUND must not poll, took %v", wall)
	}
	if _, calls := page.counts(); calls != 1 {
		t.Errorf("expected exactly one read, got %d", calls)
	}
}

func TestWaitForArtifactChange_NotFoundAndTimeoutAreDistinct(t *testing.T) {
	missing := &fakePage{sourceFn: func(int) (string, bool, error) { return "", false, nil }}
	unchanged := alwaysIdle("img/qr_v1.png")

	a := WaitForArtifactChange(context.Background(), missing, "img.qr", "", 80*time.Millisecond, 10*time.Millisecond, 3)
	b := WaitForArtifactChange(context.Background(), unchanged, "img.qr", "img/qr_v1.png", 80*time.Millisecond, 10*time.Millisecond, 3)

	if a.Reason == b.Reason {
		t.Errorf("missing selector and unchanged identity collapsed to one reason: %v", a.Reason)
	}
	if a.Reason != ReasonNotFound || b.Reason != ReasonTimeout {
		t.Errorf("got (%v, %v), want (%v, %v)", a.Reason, b.Reason, ReasonNotFound, ReasonTimeout)
	}
}

func TestWaitForArtifactChange_ToleratesTransientDisappearance(t *testing.T) {
	// Present, vanishes for two polls during re-render, then reappears changed.
	page := &fakePage{sourceFn: func(call int) (string, bool, error) {
		switch call {
		case 0:
			return "img/qr_v1.png", true, nil
		case 1, 2:
			return "", false, nil
		default:
			return "img/qr_v2.png", true, nil
		}
	}}
	out := WaitForArtifactChange(context.Background(), page, "img.qr", "img/qr_v1.png",
		500*time.Millisecond, 10*time.Millisecond, 3)

	if !out.Succeeded || out.Reason != ReasonChanged {
		t.Fatalf("transient miss should be tolerated, got %+v", out)
	}
}

func TestWaitForArtifactChange_ConsecutiveMissesEscalate(t *testing.T) {
	page := &fakePage{sourceFn: func(call int) (string, bool, error) {
		if call == 0 {
			return "img/qr_v1.png", true, nil
		}
		return "", false, nil
	}}
	out := WaitForArtifactChange(context.Background(), page, "img.qr", "img/qr_v1.png",
		500*time.Millisecond, 10*time.Millisecond, 3)

	if out.Reason != ReasonNotFound {
		t.Fatalf("expected escalation to NOT_FOUND after 3 consecutive misses, got %+v", out)
	}
	if out.Elapsed > 200*time.Millisecond {
		t.Errorf("escalation should not wait out the budget, took %v", out.Elapsed)
	}
}

func TestWaitForArtifactChange_ReadErrorsCountAsMisses(t *testing.T) {
	page := &fakePage{sourceFn: func(call int) (string, bool, error) {
		if call == 0 {
			return "img/qr_v1.png", true, nil
		}
		return "", false, fmt.Errorf("stale element reference")
	}}
	out := WaitForArtifactChange(context.Background(), page, "img.qr", "img/qr_v1.png",
		500*time.Millisecond, 10*time.Millisecond, 2)

	if out.Reason != ReasonNotFound {
		t.Fatalf("expected NOT_FOUND after consecutive read errors, got %+v", out)
	}
}

func TestWaitForArtifactChange_EmptyInitialCountsAnyReadingAsChange(t *testing.T) {
	page := alwaysIdle("data:image/png;base64,AAAA")
	out := WaitForArtifactChange(context.Background(), page, "img.qr", "",
		200*time.Millisecond, 10*time.Millisecond, 3)

	if !out.Succeeded || out.Reason != ReasonChanged {
		t.Fatalf("non-empty reading with empty baseline should count as change, got %+v", out)
	}
}

func TestWaitForArtifactChange_StopsPollingOnceChanged(t *testing.T) {
	page := changesAfter("v1", "v2", 0)
	out := WaitForArtifactChange(context.Background(), page, "img.qr", "v1",
		1*time.Second, 10*time.Millisecond, 3)

	if !out.Succeeded {
		t.Fatalf("expected immediate change, got %+v", out)
	}
	_, calls := page.counts()
	if calls != 1 {
		t.Errorf("detector kept polling after CHANGED: %d reads", calls)
	}
	if out.Elapsed > 100*time.Millisecond {
		t.Errorf("confirmed change must return immediately, not wait out budget: %v", out.Elapsed)
	}
}
