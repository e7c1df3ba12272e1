// Package mcp exposes visa submission as MCP tools over stdio, so agent
// hosts can drive the automation directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"visaflow/internal/application"
	"visaflow/internal/batch"
	"visaflow/internal/logging"
	"visaflow/internal/store"
)

// Submitter runs one application end to end. *batch.Processor implements it.
type Submitter interface {
	SubmitOne(ctx context.Context, app *application.Application, runID string) batch.Result
}

// Server wraps the MCP SDK server around the submission flow.
type Server struct {
	MCPServer *sdkmcp.Server

	submitter Submitter
	history   store.Store
}

// NewServer creates an MCP server with submission, validation and history
// tools. history may be nil, which makes get_history report an error.
func NewServer(submitter Submitter, history store.Store) *Server {
	s := &Server{submitter: submitter, history: history}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "visaflow", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "generate_visa_pdf",
		Description: "Submit a visa application to the form and return the generated PDF path. Blocks until the submission settles.",
	}, s.handleGenerate)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "validate_application",
		Description: "Validate application JSON against the form's requirements without submitting anything.",
	}, s.handleValidate)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_history",
		Description: "Read recent submission history, optionally filtered by passport number.",
	}, s.handleHistory)
}

// --- Tool input/output types ---

type generateInput struct {
	ApplicationJSON string `json:"application_json" jsonschema:"visa application as a JSON string"`
}

type generateOutput struct {
	Status        string `json:"status"`
	PDFPath       string `json:"pdf_path,omitempty"`
	CaptureMethod string `json:"capture_method,omitempty"`
	QRVerified    bool   `json:"qr_verified"`
	Attempts      int    `json:"attempts"`
	ElapsedMs     int64  `json:"elapsed_ms"`
	Error         string `json:"error,omitempty"`
}

type validateInput struct {
	ApplicationJSON string `json:"application_json" jsonschema:"visa application as a JSON string"`
}

type validateOutput struct {
	Valid     bool     `json:"valid"`
	Applicant string   `json:"applicant,omitempty"`
	Problems  []string `json:"problems,omitempty"`
}

type historyInput struct {
	Limit          int    `json:"limit,omitempty" jsonschema:"max records to return (default 20)"`
	PassportNumber string `json:"passport_number,omitempty" jsonschema:"return only the latest record for this passport"`
}

type historyOutput struct {
	Submissions []*store.Submission `json:"submissions"`
	Total       int                 `json:"total"`
}

// --- Tool handlers ---

func (s *Server) handleGenerate(ctx context.Context, _ *sdkmcp.CallToolRequest, input generateInput) (*sdkmcp.CallToolResult, generateOutput, error) {
	logger := logging.New("mcp")

	app, err := application.Parse([]byte(input.ApplicationJSON))
	if err != nil {
		return nil, generateOutput{}, err
	}
	if problems := app.Validate(); len(problems) > 0 {
		return nil, generateOutput{}, fmt.Errorf("invalid application: %v", problems)
	}

	logger.Info("mcp submission requested", "applicant", app.ApplicantName())
	res := s.submitter.SubmitOne(ctx, app, "mcp")

	out := generateOutput{
		Status:        res.Status,
		PDFPath:       res.PDFPath,
		CaptureMethod: string(res.CaptureMethod),
		QRVerified:    res.QRVerified,
		Attempts:      res.Attempts,
		ElapsedMs:     res.ElapsedMs,
		Error:         res.Error,
	}
	if res.Status == store.StatusFailed {
		return nil, out, fmt.Errorf("submission failed: %s", res.Error)
	}
	return nil, out, nil
}

func (s *Server) handleValidate(ctx context.Context, _ *sdkmcp.CallToolRequest, input validateInput) (*sdkmcp.CallToolResult, validateOutput, error) {
	if !json.Valid([]byte(input.ApplicationJSON)) {
		return nil, validateOutput{}, fmt.Errorf("application_json is not valid JSON")
	}
	app, err := application.Parse([]byte(input.ApplicationJSON))
	if err != nil {
		return nil, validateOutput{}, err
	}
	problems := app.Validate()
	return nil, validateOutput{
		Valid:     len(problems) == 0,
		Applicant: app.ApplicantName(),
		Problems:  problems,
	}, nil
}

func (s *Server) handleHistory(ctx context.Context, _ *sdkmcp.CallToolRequest, input historyInput) (*sdkmcp.CallToolResult, historyOutput, error) {
	if s.history == nil {
		return nil, historyOutput{}, fmt.Errorf("submission history is disabled")
	}

	if input.PassportNumber != "" {
		sub, err := s.history.LastForPassport(input.PassportNumber)
		if err != nil {
			return nil, historyOutput{}, err
		}
		out := historyOutput{Submissions: []*store.Submission{}}
		if sub != nil {
			out.Submissions = append(out.Submissions, sub)
		}
		out.Total = len(out.Submissions)
		return nil, out, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	subs, err := s.history.ListSubmissions(limit)
	if err != nil {
		return nil, historyOutput{}, err
	}
	if subs == nil {
		subs = []*store.Submission{}
	}
	return nil, historyOutput{Submissions: subs, Total: len(subs)}, nil
}

// Run serves MCP over the given transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport sdkmcp.Transport) error {
	return s.MCPServer.Run(ctx, transport)
}
