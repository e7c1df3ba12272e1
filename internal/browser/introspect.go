package browser

import (
	"context"
	"fmt"
)

// pendingRequestsScript counts page-initiated requests still in flight.
// Pages that instrument their own XHR/fetch counters are honored first;
// otherwise the Performance API's resource entries are inspected for
// xhr/fetch entries without a responseEnd. Pages that restrict the
// Performance API make the Evaluate fail, which callers treat as a
// non-fatal unknown.
const pendingRequestsScript = `(() => {
	let count = 0;
	if (typeof window.activeXHRCount === 'number') count += window.activeXHRCount;
	if (typeof window.activeFetchCount === 'number') count += window.activeFetchCount;
	const resources = window.performance.getEntriesByType('resource');
	count += resources.filter(r =>
		(r.initiatorType === 'xmlhttprequest' || r.initiatorType === 'fetch') &&
		!r.responseEnd).length;
	return count;
})()`

// PendingRequests implements detect.Page.
func (s *Session) PendingRequests(ctx context.Context) (int, error) {
	var count int
	if err := s.Evaluate(ctx, pendingRequestsScript, &count); err != nil {
		return 0, fmt.Errorf("network introspection: %w", err)
	}
	return count, nil
}

type artifactReading struct {
	Found bool   `json:"found"`
	Src   string `json:"src"`
}

// artifactScript locates the QR artifact and returns its identity. The
// configured selector is tried first; the fallbacks mirror how the page has
// been observed to mark its QR image (src/alt hints, qr-named containers,
// and finally any visible near-square image of plausible size).
func artifactScript(selector string) string {
	return fmt.Sprintf(`(() => {
		const visible = el => !!(el.offsetParent || el.getClientRects().length);
		const pick = list => {
			for (const el of list) {
				if (el.tagName === 'IMG' && visible(el)) return el;
			}
			return null;
		};

		let img = pick(document.querySelectorAll(%s));
		if (!img) {
			img = pick(document.querySelectorAll(
				"img[src*='qr'], img[alt*='QR'], img[alt*='qr'], img.qr-code, #qrcode img, .qr-code img"));
		}
		if (!img) {
			img = pick(document.querySelectorAll("[class*='qr'] img, [id*='qr'] img"));
		}
		if (!img) {
			for (const el of document.images) {
				if (!visible(el)) continue;
				const r = el.getBoundingClientRect();
				if (r.width > 100 && Math.abs(r.width - r.height) < 50) { img = el; break; }
			}
		}

		if (!img) return { found: false, src: "" };
		return { found: true, src: img.getAttribute('src') || "" };
	})()`, jsStr(selector))
}

// ArtifactSource implements detect.Page: it reads the QR image's current
// identity (URL or data URI). found=false when no candidate element resolves.
func (s *Session) ArtifactSource(ctx context.Context, selector string) (string, bool, error) {
	var reading artifactReading
	if err := s.Evaluate(ctx, artifactScript(selector), &reading); err != nil {
		return "", false, fmt.Errorf("artifact read: %w", err)
	}
	return reading.Src, reading.Found, nil
}
