// Package detect decides, from externally observable signals only, when an
// asynchronous server-side operation has finished mutating on-page state.
//
// The remote form processes submissions asynchronously: it accepts a click,
// fires background requests, and swaps an on-page QR image when done, with no
// completion event a client can subscribe to. This package watches the two
// signals that are observable — outstanding network requests and the artifact
// element's identity — and sequences them into a bounded-time protocol.
package detect

import (
	"context"
	"time"
)

// Reason explains why a bounded wait ended.
type Reason string

const (
	// ReasonChanged means the awaited state transition was observed.
	ReasonChanged Reason = "changed"
	// ReasonTimeout means the budget elapsed with the artifact present but unchanged.
	ReasonTimeout Reason = "timeout"
	// ReasonNotFound means the artifact element never resolved, or vanished
	// for more consecutive polls than the tolerance allows. Distinct from
	// ReasonTimeout on purpose: downstream surfaces them differently.
	ReasonNotFound Reason = "not_found"
)

// Outcome is the result of one bounded wait.
type Outcome struct {
	Succeeded bool
	Elapsed   time.Duration
	Reason    Reason
}

// Page is the introspection surface the detectors poll. A Page is one live
// browser-controlled document and must not be driven by more than one
// submission at a time.
//
// ArtifactSource returns the artifact's current identity (an URL-like string
// or data URI), whether the element resolved at all, and any read error.
// Missing-element and unchanged-element stay structurally distinct at every
// call site.
type Page interface {
	PendingRequests(ctx context.Context) (int, error)
	ArtifactSource(ctx context.Context, selector string) (src string, found bool, err error)
}

// sleep pauses for d, returning false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
