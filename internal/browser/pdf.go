package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// A4 page geometry in inches. Margins are small but nonzero so content at
// the sheet edge is not chopped.
const (
	a4WidthIn  = 8.27
	a4HeightIn = 11.69
	marginIn   = 0.4
)

// PrintToPDF renders the current page to PDF over CDP. This avoids the
// browser's print dialog entirely and keeps backgrounds and the QR image at
// full quality.
func (s *Session) PrintToPDF(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, s.pageLoad, chromedp.ActionFunc(func(cctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPrintBackground(true).
			WithLandscape(false).
			WithPaperWidth(a4WidthIn).
			WithPaperHeight(a4HeightIn).
			WithMarginTop(marginIn).
			WithMarginBottom(marginIn).
			WithMarginLeft(marginIn).
			WithMarginRight(marginIn).
			WithPreferCSSPageSize(false).
			WithDisplayHeaderFooter(false).
			WithScale(1.0).
			Do(cctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("print to pdf: empty document")
	}
	return buf, nil
}

// PageHeight returns the full scrollable document height in CSS pixels,
// used by the screenshot fallback to chunk the page.
func (s *Session) PageHeight(ctx context.Context) (int, error) {
	const script = `Math.max(
		document.body.scrollHeight, document.body.offsetHeight,
		document.documentElement.clientHeight, document.documentElement.scrollHeight,
		document.documentElement.offsetHeight)`
	var h int
	if err := s.Evaluate(ctx, script, &h); err != nil {
		return 0, fmt.Errorf("read page height: %w", err)
	}
	return h, nil
}

// ScrollTo scrolls the viewport to y.
func (s *Session) ScrollTo(ctx context.Context, y int) error {
	return s.Evaluate(ctx, fmt.Sprintf(`window.scrollTo(0, %d); true`, y), nil)
}

// ViewportScreenshot captures only the current viewport (not the full page),
// for the chunked fallback capture.
func (s *Session) ViewportScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.pageLoad, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("viewport screenshot: %w", err)
	}
	return buf, nil
}
