// Package capture renders the confirmed form into a PDF on disk.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"visaflow/internal/browser"
	"visaflow/internal/config"
	"visaflow/internal/logging"
)

// Method records which capture path produced the document.
type Method string

const (
	MethodPrint       Method = "cdp-print"
	MethodScreenshots Method = "screenshot-pages"
)

// Result describes one produced PDF.
type Result struct {
	Path   string `json:"path"`
	Method Method `json:"method"`
	Pages  int    `json:"pages"`
	Bytes  int    `json:"bytes"`
}

// Capturer writes submission PDFs. The native print path is tried first;
// when printing fails the page is photographed viewport by viewport and the
// shots are bound into a PDF instead.
type Capturer struct {
	session *browser.Session
	out     config.Output
	logger  *slog.Logger
}

// New returns a capturer writing into the configured output directories.
func New(session *browser.Session, out config.Output) *Capturer {
	return &Capturer{session: session, out: out, logger: logging.New("capture")}
}

// CapturePDF produces filename under the PDF output directory. If the
// submission opened its print view in a popup, the capture happens there and
// the session is restored afterwards.
func (c *Capturer) CapturePDF(ctx context.Context, filename string) (*Result, error) {
	if err := os.MkdirAll(c.out.PDFDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(c.out.PDFDir, filename)

	switched, err := c.session.AttachToPopup(ctx)
	if err != nil {
		c.logger.Warn("popup detection failed, capturing current tab", "error", err)
	}
	if switched {
		defer c.session.RestoreTarget()
	}

	buf, err := c.session.PrintToPDF(ctx)
	if err == nil {
		if werr := os.WriteFile(path, buf, 0o644); werr != nil {
			return nil, fmt.Errorf("write pdf: %w", werr)
		}
		c.logger.Info("pdf captured", "path", path, "method", MethodPrint, "bytes", len(buf))
		return &Result{Path: path, Method: MethodPrint, Pages: 1, Bytes: len(buf)}, nil
	}

	c.logger.Warn("native print failed, falling back to screenshot pages", "error", err)
	return c.captureScreenshotPages(ctx, path)
}

// captureScreenshotPages scrolls through the page viewport by viewport,
// photographs each chunk, and binds the shots into one PDF.
func (c *Capturer) captureScreenshotPages(ctx context.Context, path string) (*Result, error) {
	total, err := c.session.PageHeight(ctx)
	if err != nil {
		return nil, err
	}
	var viewport int
	if err := c.session.Evaluate(ctx, "window.innerHeight", &viewport); err != nil {
		return nil, fmt.Errorf("read viewport height: %w", err)
	}
	if viewport <= 0 {
		return nil, fmt.Errorf("viewport height %d", viewport)
	}

	var shots [][]byte
	for y := 0; y < total; y += viewport {
		if err := c.session.ScrollTo(ctx, y); err != nil {
			return nil, err
		}
		shot, err := c.session.ViewportScreenshot(ctx)
		if err != nil {
			return nil, err
		}
		shots = append(shots, shot)
	}
	if err := c.session.ScrollToTop(ctx); err != nil {
		c.logger.Warn("scroll back to top failed", "error", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create pdf: %w", err)
	}
	defer f.Close()

	if err := assemblePDF(shots, f); err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}
	c.logger.Info("pdf captured", "path", path, "method", MethodScreenshots,
		"pages", len(shots), "bytes", st.Size())
	return &Result{Path: path, Method: MethodScreenshots, Pages: len(shots), Bytes: int(st.Size())}, nil
}

// SaveConfirmationScreenshot writes a full-page screenshot of the confirmed
// form, used for QR verification and as a submission record.
func (c *Capturer) SaveConfirmationScreenshot(ctx context.Context, name string) (string, error) {
	return c.session.SaveScreenshot(ctx, c.out.ScreenshotDir, name)
}

// assemblePDF binds PNG page shots into a portrait A4 PDF, one shot per
// page, each scaled to the printable width.
func assemblePDF(shots [][]byte, w io.Writer) error {
	if len(shots) == 0 {
		return fmt.Errorf("assemble pdf: no pages")
	}

	const margin = 10.0 // mm
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	pageW, pageH := doc.GetPageSize()
	printableW := pageW - 2*margin
	printableH := pageH - 2*margin

	opt := fpdf.ImageOptions{ImageType: "PNG"}
	for i, shot := range shots {
		name := fmt.Sprintf("page-%d", i+1)
		info := doc.RegisterImageOptionsReader(name, opt, bytes.NewReader(shot))
		if doc.Err() {
			return fmt.Errorf("assemble pdf: %w", doc.Error())
		}

		imgW := printableW
		imgH := imgW * info.Height() / info.Width()
		if imgH > printableH {
			imgH = printableH
			imgW = imgH * info.Width() / info.Height()
		}
		doc.AddPage()
		doc.ImageOptions(name, margin, margin, imgW, imgH, false, opt, 0, "")
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("assemble pdf: %w", err)
	}
	return nil
}
