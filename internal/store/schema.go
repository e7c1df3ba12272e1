package store

const schemaVersionV1 = 1

const schemaV1 = `
CREATE TABLE schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE submissions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id          TEXT NOT NULL,
	applicant       TEXT NOT NULL,
	passport_number TEXT NOT NULL,
	status          TEXT NOT NULL,
	pdf_path        TEXT,
	capture_method  TEXT,
	qr_verified     INTEGER NOT NULL DEFAULT 0,
	qr_payload      TEXT,
	attempts        INTEGER NOT NULL DEFAULT 1,
	elapsed_ms      INTEGER NOT NULL DEFAULT 0,
	error           TEXT,
	phase_timings   TEXT,
	created_at      TEXT NOT NULL
);

CREATE INDEX idx_submissions_run ON submissions(run_id);
CREATE INDEX idx_submissions_passport ON submissions(passport_number);
`
