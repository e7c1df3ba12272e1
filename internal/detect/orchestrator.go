package detect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"visaflow/internal/logging"
)

// ErrSubmitFailed wraps failures of the triggering action itself. These are
// the only fatal errors GuardSubmission produces for a live page; everything
// after the trigger degrades instead of failing.
var ErrSubmitFailed = errors.New("submit action failed")

// Phase names the steps of the guarded submission state machine:
// INIT → TRIGGERED → NETWORK_WAIT → ARTIFACT_WAIT → {CONFIRMED|FALLBACK} → SETTLED → READY.
type Phase string

const (
	PhaseInit         Phase = "INIT"
	PhaseTriggered    Phase = "TRIGGERED"
	PhaseNetworkWait  Phase = "NETWORK_WAIT"
	PhaseArtifactWait Phase = "ARTIFACT_WAIT"
	PhaseConfirmed    Phase = "CONFIRMED"
	PhaseFallback     Phase = "FALLBACK"
	PhaseSettled      Phase = "SETTLED"
	PhaseReady        Phase = "READY"
)

// PhaseTiming records how long one phase took. Diagnostics only; nothing
// reads timings back into control flow.
type PhaseTiming struct {
	Phase   Phase
	Elapsed time.Duration
}

// PhaseTimings is the ordered per-phase record of one submission.
type PhaseTimings []PhaseTiming

// Config carries the timeout budgets for one guarded submission. The
// orchestrator is the sole owner of the clock; detectors only receive the
// budget passed in. Values are validated at config load, not here.
type Config struct {
	NetworkIdleTimeout  time.Duration
	ArtifactWaitTimeout time.Duration
	PollInterval        time.Duration
	SettleDelay         time.Duration
	FallbackDelay       time.Duration
	MaxMissedReads      int
}

// Readiness is the orchestrator's sole output. Capture always proceeds;
// ArtifactConfirmed=false is a quality signal for the caller, not an error.
type Readiness struct {
	Ready             bool
	ArtifactConfirmed bool
	TotalElapsed      time.Duration
	Timings           PhaseTimings
}

// EventSink receives phase transitions and fallback warnings. Write-only and
// advisory: implementations must not feed anything back into control flow.
// A nil sink is valid.
type EventSink interface {
	PhaseChanged(phase Phase, elapsed time.Duration)
	FallbackApplied(reason Reason, delay time.Duration)
}

// GuardSubmission runs the phased wait protocol around submit:
//
//  1. Capture the artifact's pre-trigger identity (absent is a valid value).
//  2. Invoke submit; failure aborts with ErrSubmitFailed, no retry here.
//  3. Wait for network idle (best effort; timeout never aborts the sequence).
//  4. Wait for the artifact identity to change. On timeout or a missing
//     artifact, apply the fallback delay and proceed anyway.
//  5. Apply the settle delay for final layout/paint.
//
// The initial identity is read before submit runs, by construction: there is
// no code path that can reorder them. Total time is bounded by
// NetworkIdleTimeout + ArtifactWaitTimeout + FallbackDelay + SettleDelay.
func GuardSubmission(ctx context.Context, page Page, selector string, submit func(context.Context) error, cfg Config, sink EventSink) (Readiness, error) {
	logger := logging.New("wait-engine")
	start := time.Now()
	var timings PhaseTimings

	mark := func(phase Phase, phaseStart time.Time) {
		elapsed := time.Since(phaseStart)
		timings = append(timings, PhaseTiming{Phase: phase, Elapsed: elapsed})
		if sink != nil {
			sink.PhaseChanged(phase, elapsed)
		}
	}

	// Phase 1: pre-trigger identity. A missing artifact reads as "", which
	// makes any later non-empty reading count as a change.
	phaseStart := time.Now()
	initial, found, err := page.ArtifactSource(ctx, selector)
	if err != nil || !found {
		initial = ""
	}
	logger.Info("captured initial artifact identity", "present", found && err == nil, "identity", truncate(initial, 80))
	mark(PhaseInit, phaseStart)

	// Phase 2: the trigger. The only hard failure in the protocol.
	phaseStart = time.Now()
	if err := submit(ctx); err != nil {
		mark(PhaseTriggered, phaseStart)
		return Readiness{Ready: false, TotalElapsed: time.Since(start), Timings: timings},
			fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	logger.Info("submit action invoked")
	mark(PhaseTriggered, phaseStart)

	// Phase 3: transport-level quiet. Logged, never gating.
	phaseStart = time.Now()
	idle := WaitForNetworkIdle(ctx, page, cfg.NetworkIdleTimeout, cfg.PollInterval)
	if !idle.Succeeded {
		logger.Warn("network idle not confirmed, proceeding", "elapsed", idle.Elapsed)
	}
	mark(PhaseNetworkWait, phaseStart)

	// Phase 4: the strict gate, with fallback instead of blocking forever.
	phaseStart = time.Now()
	change := WaitForArtifactChange(ctx, page, selector, initial, cfg.ArtifactWaitTimeout, cfg.PollInterval, cfg.MaxMissedReads)
	mark(PhaseArtifactWait, phaseStart)

	phaseStart = time.Now()
	if change.Succeeded {
		mark(PhaseConfirmed, phaseStart)
	} else {
		logger.Warn("artifact change not confirmed, applying fallback delay",
			"reason", change.Reason, "waited", change.Elapsed, "fallback", cfg.FallbackDelay)
		if sink != nil {
			sink.FallbackApplied(change.Reason, cfg.FallbackDelay)
		}
		sleep(ctx, cfg.FallbackDelay)
		mark(PhaseFallback, phaseStart)
	}

	// Phase 5: settle for final paint regardless of which branch ran.
	phaseStart = time.Now()
	sleep(ctx, cfg.SettleDelay)
	mark(PhaseSettled, phaseStart)

	total := time.Since(start)
	timings = append(timings, PhaseTiming{Phase: PhaseReady, Elapsed: total})
	if sink != nil {
		sink.PhaseChanged(PhaseReady, total)
	}
	logger.Info("capture readiness reached", "artifact_confirmed", change.Succeeded, "total_elapsed", total)

	return Readiness{
		Ready:             true,
		ArtifactConfirmed: change.Succeeded,
		TotalElapsed:      total,
		Timings:           timings,
	}, nil
}
