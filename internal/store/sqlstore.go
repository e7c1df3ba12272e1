package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersionV1

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .visaflow) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		// Fresh database.
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v == currentSchemaVersion {
		return nil
	}
	return fmt.Errorf("unknown schema version %d", v)
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// RecordSubmission inserts one submission record and returns its id.
func (s *SqlStore) RecordSubmission(sub *Submission) (int64, error) {
	if sub == nil {
		return 0, errors.New("submission is nil")
	}
	createdAt := sub.CreatedAt
	if createdAt == "" {
		createdAt = nowUTC()
	}
	attempts := sub.Attempts
	if attempts == 0 {
		attempts = 1
	}
	res, err := s.db.Exec(
		`INSERT INTO submissions(run_id, applicant, passport_number, status,
		        pdf_path, capture_method, qr_verified, qr_payload,
		        attempts, elapsed_ms, error, phase_timings, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.RunID, sub.Applicant, sub.PassportNumber, sub.Status,
		sub.PDFPath, sub.CaptureMethod, boolInt(sub.QRVerified), sub.QRPayload,
		attempts, sub.ElapsedMs, sub.Error, sub.PhaseTimings, createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

const submissionColumns = `id, run_id, applicant, passport_number, status,
	pdf_path, capture_method, qr_verified, qr_payload,
	attempts, elapsed_ms, error, phase_timings, created_at`

func scanSubmission(row interface{ Scan(...any) error }) (*Submission, error) {
	var sub Submission
	var pdfPath, method, payload, errMsg, timings sql.NullString
	var verified int
	err := row.Scan(&sub.ID, &sub.RunID, &sub.Applicant, &sub.PassportNumber, &sub.Status,
		&pdfPath, &method, &verified, &payload,
		&sub.Attempts, &sub.ElapsedMs, &errMsg, &timings, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	sub.PDFPath = nullStr(pdfPath)
	sub.CaptureMethod = nullStr(method)
	sub.QRPayload = nullStr(payload)
	sub.Error = nullStr(errMsg)
	sub.PhaseTimings = nullStr(timings)
	sub.QRVerified = verified == 1
	return &sub, nil
}

// GetSubmission returns the submission by id, or nil if not found.
func (s *SqlStore) GetSubmission(id int64) (*Submission, error) {
	row := s.db.QueryRow("SELECT "+submissionColumns+" FROM submissions WHERE id = ?", id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns the most recent submissions, newest first.
// limit <= 0 returns everything.
func (s *SqlStore) ListSubmissions(limit int) ([]*Submission, error) {
	q := "SELECT " + submissionColumns + " FROM submissions ORDER BY id DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return s.querySubmissions(q, args...)
}

// ListByRun returns all submissions of one batch run, in insertion order.
func (s *SqlStore) ListByRun(runID string) ([]*Submission, error) {
	return s.querySubmissions(
		"SELECT "+submissionColumns+" FROM submissions WHERE run_id = ? ORDER BY id", runID)
}

// LastForPassport returns the most recent submission for a passport number,
// or nil if the passport has never been submitted.
func (s *SqlStore) LastForPassport(passportNumber string) (*Submission, error) {
	row := s.db.QueryRow(
		"SELECT "+submissionColumns+" FROM submissions WHERE passport_number = ? ORDER BY id DESC LIMIT 1",
		passportNumber)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last submission for passport: %w", err)
	}
	return sub, nil
}

func (s *SqlStore) querySubmissions(query string, args ...any) ([]*Submission, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()
	var list []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		list = append(list, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return list, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
