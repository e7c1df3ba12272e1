// Package browser owns the Chrome session used to drive the remote form.
// One Session is one tab; it must not be shared across concurrent submissions.
package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/chromedp/chromedp"

	"visaflow/internal/config"
	"visaflow/internal/logging"
)

// Session wraps a chromedp browser context plus the per-action budgets.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	// origCtx/origCancel hold the first tab while the session is temporarily
	// attached to a popup target (the form opens its print view in one).
	origCtx    context.Context
	origCancel context.CancelFunc

	elementWait time.Duration
	pageLoad    time.Duration
}

// findChrome locates a Chrome/Chromium binary, preferring the explicit path.
func findChrome(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("configured chrome_path %q: %w", explicit, err)
		}
		return explicit, nil
	}

	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		candidates = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	default:
		candidates = []string{
			"google-chrome", "google-chrome-stable", "chromium", "chromium-browser",
		}
	}

	for _, c := range candidates {
		if filepath.IsAbs(c) {
			if _, err := os.Stat(c); err == nil {
				return c, nil
			}
			continue
		}
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	if p, err := exec.LookPath("chrome"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("no Chrome or Chromium binary found (set browser.chrome_path)")
}

// NewSession starts a browser and returns a ready session.
func NewSession(parent context.Context, cfg config.Browser) (*Session, error) {
	logger := logging.New("browser")

	chromePath, err := findChrome(cfg.ChromePath)
	if err != nil {
		return nil, err
	}
	logger.Info("starting chrome", "path", chromePath, "headless", cfg.Headless)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser process now so failures surface here, not mid-run.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		elementWait: config.Seconds(cfg.ElementWait),
		pageLoad:    config.Seconds(cfg.PageLoadTimeout),
	}, nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	if s.origCancel != nil {
		s.origCancel()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// run executes actions against the session tab under the given budget.
// The caller's ctx is honored for cancellation checks only; chromedp actions
// run on the session's own browser context, per its lifecycle rules.
func (s *Session) run(ctx context.Context, budget time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(s.ctx, budget)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

// Navigate loads url and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.pageLoad,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// CurrentURL returns the tab's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, s.elementWait, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return url, nil
}

// Evaluate runs script in the page and decodes the result into out.
func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	return s.run(ctx, s.elementWait, chromedp.Evaluate(script, out))
}

// ScrollToTop resets the viewport before captures.
func (s *Session) ScrollToTop(ctx context.Context) error {
	return s.Evaluate(ctx, `window.scrollTo(0, 0); true`, nil)
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.pageLoad, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// SaveScreenshot writes a timestamped PNG under dir and returns its path.
func (s *Session) SaveScreenshot(ctx context.Context, dir, name string) (string, error) {
	buf, err := s.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", name, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}
