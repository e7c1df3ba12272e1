// Package store keeps the submission history in a local SQLite database.
package store

// Submission statuses as recorded in history.
const (
	StatusConfirmed = "confirmed" // artifact change observed, capture succeeded
	StatusFallback  = "fallback"  // captured after fallback delay, unconfirmed
	StatusFailed    = "failed"    // no PDF produced
)

// Submission is one attempt at submitting an application, successful or not.
type Submission struct {
	ID             int64  `json:"id"`
	RunID          string `json:"run_id"`
	Applicant      string `json:"applicant"`
	PassportNumber string `json:"passport_number"`
	Status         string `json:"status"`
	PDFPath        string `json:"pdf_path,omitempty"`
	CaptureMethod  string `json:"capture_method,omitempty"`
	QRVerified     bool   `json:"qr_verified"`
	QRPayload      string `json:"qr_payload,omitempty"`
	Attempts       int    `json:"attempts"`
	ElapsedMs      int64  `json:"elapsed_ms"`
	Error          string `json:"error,omitempty"`
	PhaseTimings   string `json:"phase_timings,omitempty"` // JSON-encoded
	CreatedAt      string `json:"created_at"`
}

// Store is the submission history interface. SqlStore is the only
// implementation; the interface exists so servers can take a narrow
// dependency.
type Store interface {
	RecordSubmission(sub *Submission) (int64, error)
	GetSubmission(id int64) (*Submission, error)
	ListSubmissions(limit int) ([]*Submission, error)
	ListByRun(runID string) ([]*Submission, error)
	LastForPassport(passportNumber string) (*Submission, error)
	Close() error
}
