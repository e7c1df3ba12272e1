package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"visaflow/internal/application"
	"visaflow/internal/batch"
	"visaflow/internal/store"
)

type stubSubmitter struct {
	result batch.Result
	called int
}

func (s *stubSubmitter) SubmitOne(ctx context.Context, app *application.Application, runID string) batch.Result {
	s.called++
	return s.result
}

func validApplicationJSON(t *testing.T) string {
	t.Helper()
	app := map[string]any{
		"personal_info": map[string]any{
			"first_name": "Ahmed", "middle_name": "Mohamed", "family_name": "Hassan",
			"date_of_birth": "1990-05-15", "place_of_birth": "Amman",
			"sex": "Male", "marital_status": "Married",
		},
		"nationality": map[string]any{"present_nationality": "Jordanian", "nationality_of_origin": "Jordanian"},
		"occupation":  map[string]any{"occupation_arabic": "مهندس"},
		"passport": map[string]any{
			"passport_number": "A1234567", "passport_type": "Ordinary", "issued_at": "Amman",
			"issued_on": "2020-01-10", "expires_on": "2030-01-09",
		},
		"addresses": map[string]any{"permanent_address": "Amman", "present_address": "Amman"},
		"visa_details": map[string]any{
			"visa_type": "Single", "duration_of_stay": "30 days", "date_of_arrival": "2026-09-01",
			"purpose_of_visit": "Tourism", "address_in_egypt": "Cairo", "port_of_entry": "Cairo Airport",
		},
		"contact": map[string]any{"phone_number": "+962790000000"},
	}
	data, err := json.Marshal(app)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestHandleValidate_AcceptsCompleteApplication(t *testing.T) {
	s := NewServer(&stubSubmitter{}, nil)
	_, out, err := s.handleValidate(context.Background(), nil, validateInput{
		ApplicationJSON: validApplicationJSON(t),
	})
	if err != nil {
		t.Fatalf("handleValidate: %v", err)
	}
	if !out.Valid || len(out.Problems) != 0 {
		t.Errorf("out = %+v", out)
	}
	if out.Applicant != "Ahmed Hassan" {
		t.Errorf("applicant = %q", out.Applicant)
	}
}

func TestHandleValidate_ReportsProblems(t *testing.T) {
	s := NewServer(&stubSubmitter{}, nil)
	_, out, err := s.handleValidate(context.Background(), nil, validateInput{
		ApplicationJSON: `{"personal_info":{"first_name":"Ahmed","sex":"Other"}}`,
	})
	if err != nil {
		t.Fatalf("handleValidate: %v", err)
	}
	if out.Valid {
		t.Error("incomplete application must not validate")
	}
	var sexProblem bool
	for _, p := range out.Problems {
		if strings.Contains(p, "invalid sex value") {
			sexProblem = true
		}
	}
	if !sexProblem {
		t.Errorf("problems = %v", out.Problems)
	}
}

func TestHandleValidate_RejectsMalformedJSON(t *testing.T) {
	s := NewServer(&stubSubmitter{}, nil)
	if _, _, err := s.handleValidate(context.Background(), nil, validateInput{
		ApplicationJSON: "{broken",
	}); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestHandleGenerate_ValidationGateBeforeSubmit(t *testing.T) {
	sub := &stubSubmitter{}
	s := NewServer(sub, nil)
	_, _, err := s.handleGenerate(context.Background(), nil, generateInput{
		ApplicationJSON: `{"personal_info":{"first_name":"Ahmed"}}`,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if sub.called != 0 {
		t.Error("submitter must not run for invalid input")
	}
}

func TestHandleGenerate_ReturnsSubmissionOutcome(t *testing.T) {
	sub := &stubSubmitter{result: batch.Result{
		Status: store.StatusConfirmed, PDFPath: "output/Ahmed_Hassan.pdf",
		QRVerified: true, Attempts: 1, ElapsedMs: 9200,
	}}
	s := NewServer(sub, nil)
	_, out, err := s.handleGenerate(context.Background(), nil, generateInput{
		ApplicationJSON: validApplicationJSON(t),
	})
	if err != nil {
		t.Fatalf("handleGenerate: %v", err)
	}
	if out.Status != store.StatusConfirmed || out.PDFPath == "" || !out.QRVerified {
		t.Errorf("out = %+v", out)
	}
}

func TestHandleHistory_FiltersByPassport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	for _, p := range []string{"A1", "A2", "A1"} {
		if _, err := st.RecordSubmission(&store.Submission{
			RunID: "r", Applicant: "X Y", PassportNumber: p, Status: store.StatusConfirmed,
		}); err != nil {
			t.Fatal(err)
		}
	}

	s := NewServer(&stubSubmitter{}, st)
	_, out, err := s.handleHistory(context.Background(), nil, historyInput{PassportNumber: "A1"})
	if err != nil {
		t.Fatalf("handleHistory: %v", err)
	}
	if out.Total != 1 || out.Submissions[0].PassportNumber != "A1" {
		t.Errorf("out = %+v", out)
	}

	_, all, err := s.handleHistory(context.Background(), nil, historyInput{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 3 {
		t.Errorf("total = %d, want 3", all.Total)
	}
}

func TestHandleHistory_DisabledWithoutStore(t *testing.T) {
	s := NewServer(&stubSubmitter{}, nil)
	if _, _, err := s.handleHistory(context.Background(), nil, historyInput{}); err == nil {
		t.Error("expected error when history is disabled")
	}
}
