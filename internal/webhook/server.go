// Package webhook exposes the submission flow over HTTP: post an
// application, get the generated PDF back.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"visaflow/internal/application"
	"visaflow/internal/batch"
	"visaflow/internal/logging"
	"visaflow/internal/store"
)

// Submitter runs one application end to end. *batch.Processor implements it.
type Submitter interface {
	SubmitOne(ctx context.Context, app *application.Application, runID string) batch.Result
}

// Server is the webhook HTTP server. The history store is optional.
type Server struct {
	submitter Submitter
	history   store.Store
	router    *mux.Router
	logger    *slog.Logger
}

// NewServer wires the routes. history may be nil, which disables /submissions.
func NewServer(submitter Submitter, history store.Store) *Server {
	s := &Server{
		submitter: submitter,
		history:   history,
		router:    mux.NewRouter(),
		logger:    logging.New("webhook"),
	}
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/generate-visa-pdf", s.handleGenerate).Methods(http.MethodPost)
	if history != nil {
		s.router.HandleFunc("/submissions", s.handleSubmissions).Methods(http.MethodGet)
		s.router.HandleFunc("/submissions/{id:[0-9]+}", s.handleSubmission).Methods(http.MethodGet)
	}
	return s
}

// Router returns the handler, for tests and embedding.
func (s *Server) Router() http.Handler { return s.router }

// Serve runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("webhook server listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errc
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "visaflow",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "visaflow",
		"endpoints": map[string]string{
			"POST /generate-visa-pdf": "submit an application, receive the PDF",
			"GET /submissions":        "recent submission history",
			"GET /health":             "health check",
			"GET /":                   "this documentation",
		},
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	logger := s.logger.With("request_id", reqID)

	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct != "application/json" {
		writeError(w, http.StatusBadRequest, "request must be JSON", nil)
		return
	}

	var app application.Application
	if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
		writeError(w, http.StatusBadRequest, "invalid application data format", []string{err.Error()})
		return
	}
	if problems := app.Validate(); len(problems) > 0 {
		logger.Warn("validation failed", "applicant", app.ApplicantName(), "problems", len(problems))
		writeError(w, http.StatusBadRequest, "validation failed", problems)
		return
	}

	logger.Info("submission requested", "applicant", app.ApplicantName())
	res := s.submitter.SubmitOne(r.Context(), &app, "webhook-"+reqID)
	if res.Status == store.StatusFailed || res.PDFPath == "" {
		logger.Error("submission failed", "applicant", res.Applicant, "error", res.Error)
		writeError(w, http.StatusInternalServerError, "PDF generation failed", []string{res.Error})
		return
	}

	pdf, err := os.ReadFile(res.PDFPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "PDF generation failed", []string{err.Error()})
		return
	}
	// The PDF lives on in history via its path only if kept; the webhook
	// contract is to hand it over and clean up.
	if err := os.Remove(res.PDFPath); err != nil {
		logger.Warn("could not remove served pdf", "path", res.PDFPath, "error", err)
	}

	logger.Info("sending pdf", "applicant", res.Applicant, "bytes", len(pdf),
		"status", res.Status, "qr_verified", res.QRVerified)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", app.OutputFilename(time.Now())))
	w.Header().Set("X-Submission-Status", res.Status)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = n
	}
	subs, err := s.history.ListSubmissions(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history unavailable", []string{err.Error()})
		return
	}
	if subs == nil {
		subs = []*store.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

func (s *Server) handleSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id", nil)
		return
	}
	sub, err := s.history.GetSubmission(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history unavailable", []string{err.Error()})
		return
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, "submission not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string, details []string) {
	body := map[string]any{
		"error":     msg,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, code, body)
}
