package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"visaflow/internal/application"
	"visaflow/internal/batch"
	"visaflow/internal/store"
)

var submitCmd = &cobra.Command{
	Use:   "submit <application.json>",
	Short: "Submit one application and capture its PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	app, err := application.LoadFromFile(args[0])
	if err != nil {
		return err
	}
	if problems := app.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", p)
		}
		return fmt.Errorf("application %s is invalid (%d problems)", args[0], len(problems))
	}

	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	res := batch.New(cfg, history).SubmitOne(cmd.Context(), app, "cli-"+uuid.NewString())
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Applicant: %s\n", res.Applicant)
	fmt.Fprintf(out, "Status:    %s\n", res.Status)
	if res.PDFPath != "" {
		fmt.Fprintf(out, "PDF:       %s (%s)\n", res.PDFPath, res.CaptureMethod)
	}
	if res.QRPayload != "" {
		fmt.Fprintf(out, "QR:        %s\n", res.QRPayload)
	}
	fmt.Fprintf(out, "Attempts:  %d\n", res.Attempts)
	fmt.Fprintf(out, "Elapsed:   %dms\n", res.ElapsedMs)

	if res.Status == store.StatusFailed {
		return fmt.Errorf("submission failed: %s", res.Error)
	}
	return nil
}
