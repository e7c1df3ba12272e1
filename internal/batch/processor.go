// Package batch runs visa submissions end to end: load, validate, fill,
// guarded submit, capture, verify, record.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"visaflow/internal/application"
	"visaflow/internal/browser"
	"visaflow/internal/capture"
	"visaflow/internal/config"
	"visaflow/internal/detect"
	"visaflow/internal/form"
	"visaflow/internal/logging"
	"visaflow/internal/store"
	"visaflow/internal/verify"
)

// Result is the outcome of one application, after all retry attempts.
type Result struct {
	Applicant      string              `json:"applicant"`
	PassportNumber string              `json:"passport_number"`
	Status         string              `json:"status"`
	PDFPath        string              `json:"pdf_path,omitempty"`
	CaptureMethod  capture.Method      `json:"capture_method,omitempty"`
	QRVerified     bool                `json:"qr_verified"`
	QRPayload      string              `json:"qr_payload,omitempty"`
	Attempts       int                 `json:"attempts"`
	Elapsed        time.Duration       `json:"-"`
	ElapsedMs      int64               `json:"elapsed_ms"`
	Error          string              `json:"error,omitempty"`
	Timings        detect.PhaseTimings `json:"-"`
}

// Summary is the report for one batch run.
type Summary struct {
	RunID        string            `json:"run_id"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Total        int               `json:"total"`
	Confirmed    int               `json:"confirmed"`
	Fallback     int               `json:"fallback"`
	Failed       int               `json:"failed"`
	Results      []Result          `json:"results"`
	LoadFailures map[string]string `json:"load_failures,omitempty"`
}

// Processor runs submissions. A nil history store disables recording.
type Processor struct {
	cfg     *config.Config
	history store.Store
	logger  *slog.Logger
}

// New returns a processor for cfg. history may be nil.
func New(cfg *config.Config, history store.Store) *Processor {
	return &Processor{cfg: cfg, history: history, logger: logging.New("batch")}
}

// waitConfig converts the second-based config knobs into orchestrator budgets.
func waitConfig(w config.Wait) detect.Config {
	return detect.Config{
		NetworkIdleTimeout:  config.Seconds(w.NetworkIdleTimeout),
		ArtifactWaitTimeout: config.Seconds(w.ArtifactWaitTimeout),
		PollInterval:        config.Seconds(w.PollInterval),
		SettleDelay:         config.Seconds(w.SettleDelay),
		FallbackDelay:       config.Seconds(w.FallbackDelay),
		MaxMissedReads:      w.MaxMissedReads,
	}
}

// logSink reports orchestrator phase transitions into the structured log.
type logSink struct {
	logger *slog.Logger
}

func (s logSink) PhaseChanged(phase detect.Phase, elapsed time.Duration) {
	s.logger.Info("submission phase", "phase", string(phase), "elapsed", elapsed.Round(time.Millisecond))
}

func (s logSink) FallbackApplied(reason detect.Reason, delay time.Duration) {
	s.logger.Warn("artifact unconfirmed, applying fallback delay",
		"reason", string(reason), "delay", delay)
}

// Run processes every application JSON in dataDir with up to workers
// concurrent browser sessions, records each submission, and returns the
// summary. Load and validation failures are reported, never fatal: the run
// only errors when the directory itself cannot be read.
func (p *Processor) Run(ctx context.Context, dataDir string, workers int) (*Summary, error) {
	apps, loadFailures, err := application.LoadDirectory(dataDir)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	summary := &Summary{
		RunID:        uuid.NewString(),
		StartedAt:    time.Now(),
		LoadFailures: make(map[string]string),
		Results:      make([]Result, len(apps)),
	}
	for path, ferr := range loadFailures {
		summary.LoadFailures[path] = ferr.Error()
	}
	p.logger.Info("batch started",
		"run_id", summary.RunID, "applications", len(apps),
		"load_failures", len(loadFailures), "workers", workers)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, app := range apps {
		g.Go(func() error {
			res := p.SubmitOne(gctx, app, summary.RunID)
			mu.Lock()
			summary.Results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.FinishedAt = time.Now()
	summary.Total = len(summary.Results)
	for _, r := range summary.Results {
		switch r.Status {
		case store.StatusConfirmed:
			summary.Confirmed++
		case store.StatusFallback:
			summary.Fallback++
		default:
			summary.Failed++
		}
	}
	p.logger.Info("batch finished",
		"run_id", summary.RunID, "confirmed", summary.Confirmed,
		"fallback", summary.Fallback, "failed", summary.Failed,
		"elapsed", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second))
	return summary, nil
}

// SubmitOne runs one application through submission with retries and records
// the final outcome. The whole flow (navigate, fill, submit, capture) is
// retried as a unit; individual wait phases are never retried.
func (p *Processor) SubmitOne(ctx context.Context, app *application.Application, runID string) Result {
	start := time.Now()
	res := Result{
		Applicant:      app.ApplicantName(),
		PassportNumber: app.Passport.Number,
		Status:         store.StatusFailed,
	}

	if problems := app.Validate(); len(problems) > 0 {
		res.Error = fmt.Sprintf("invalid application: %v", problems)
		res.Elapsed = time.Since(start)
		res.ElapsedMs = res.Elapsed.Milliseconds()
		p.record(runID, res)
		return res
	}

	maxAttempts := p.cfg.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt
		attemptRes, err := p.attempt(ctx, app)
		if err != nil {
			res.Error = err.Error()
			p.logger.Warn("submission attempt failed",
				"applicant", res.Applicant, "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		res.Status = attemptRes.Status
		res.PDFPath = attemptRes.PDFPath
		res.CaptureMethod = attemptRes.CaptureMethod
		res.QRVerified = attemptRes.QRVerified
		res.QRPayload = attemptRes.QRPayload
		res.Timings = attemptRes.Timings
		res.Error = ""

		if res.Status == store.StatusFallback && p.cfg.RetryOnUnconfirmed && attempt < maxAttempts {
			p.logger.Warn("submission unconfirmed, retrying",
				"applicant", res.Applicant, "attempt", attempt)
			continue
		}
		break
	}

	res.Elapsed = time.Since(start)
	res.ElapsedMs = res.Elapsed.Milliseconds()
	p.record(runID, res)
	return res
}

// attempt is one complete pass: fresh browser session, navigate, fill,
// guarded submit, capture, verify.
func (p *Processor) attempt(ctx context.Context, app *application.Application) (Result, error) {
	var res Result

	session, err := browser.NewSession(ctx, p.cfg.Browser)
	if err != nil {
		return res, fmt.Errorf("start browser: %w", err)
	}
	defer session.Close()

	if err := session.Navigate(ctx, p.cfg.URL); err != nil {
		return res, err
	}

	filler := form.NewFiller(session, p.cfg)
	if err := filler.FillAll(ctx, app); err != nil {
		return res, err
	}

	readiness, err := detect.GuardSubmission(ctx, session, p.cfg.QRSelector,
		filler.SubmitAction(), waitConfig(p.cfg.Wait), logSink{logger: p.logger})
	if err != nil {
		return res, err
	}
	res.Timings = readiness.Timings

	capt := capture.New(session, p.cfg.Output)
	pdf, err := capt.CapturePDF(ctx, app.OutputFilename(time.Now()))
	if err != nil {
		return res, err
	}
	res.PDFPath = pdf.Path
	res.CaptureMethod = pdf.Method

	if readiness.ArtifactConfirmed {
		res.Status = store.StatusConfirmed
	} else {
		res.Status = store.StatusFallback
	}

	if p.cfg.VerificationEnabled {
		shot, err := capt.SaveConfirmationScreenshot(ctx, "confirmation_"+app.Passport.Number)
		if err != nil {
			p.logger.Warn("confirmation screenshot failed", "error", err)
		} else {
			vres := verify.ScreenshotQR(shot)
			res.QRVerified = vres.Decoded
			res.QRPayload = vres.Payload
		}
	}
	return res, nil
}

func (p *Processor) record(runID string, res Result) {
	if p.history == nil {
		return
	}
	sub := &store.Submission{
		RunID:          runID,
		Applicant:      res.Applicant,
		PassportNumber: res.PassportNumber,
		Status:         res.Status,
		PDFPath:        res.PDFPath,
		CaptureMethod:  string(res.CaptureMethod),
		QRVerified:     res.QRVerified,
		QRPayload:      res.QRPayload,
		Attempts:       res.Attempts,
		ElapsedMs:      res.ElapsedMs,
		Error:          res.Error,
		PhaseTimings:   timingsJSON(res.Timings),
	}
	if _, err := p.history.RecordSubmission(sub); err != nil {
		p.logger.Warn("history record failed", "applicant", res.Applicant, "error", err)
	}
}

// timingsJSON flattens the phase timeline for storage. Empty timelines
// become the empty string so the column stays null-ish.
func timingsJSON(timings detect.PhaseTimings) string {
	if len(timings) == 0 {
		return ""
	}
	type entry struct {
		Phase     string `json:"phase"`
		ElapsedMs int64  `json:"elapsed_ms"`
	}
	entries := make([]entry, len(timings))
	for i, t := range timings {
		entries[i] = entry{Phase: string(t.Phase), ElapsedMs: t.Elapsed.Milliseconds()}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	return string(data)
}

// WriteReport writes the run summary as JSON next to the PDFs.
func (p *Processor) WriteReport(summary *Summary) (string, error) {
	if err := os.MkdirAll(p.cfg.Output.PDFDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(p.cfg.Output.PDFDir,
		fmt.Sprintf("report_%s.json", summary.StartedAt.Format("20060102_150405")))
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
