package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"visaflow/internal/batch"
)

var runFlags struct {
	dataDir string
	workers int
	report  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every application JSON in a directory",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.dataDir, "data-dir", "data", "Directory of application JSON files")
	f.IntVar(&runFlags.workers, "workers", 1, "Concurrent browser sessions")
	f.BoolVar(&runFlags.report, "report", true, "Write a JSON run report next to the PDFs")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	processor := batch.New(cfg, history)
	summary, err := processor.Run(cmd.Context(), runFlags.dataDir, runFlags.workers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:       %s\n", summary.RunID)
	fmt.Fprintf(out, "Total:     %d\n", summary.Total)
	fmt.Fprintf(out, "Confirmed: %d\n", summary.Confirmed)
	fmt.Fprintf(out, "Fallback:  %d\n", summary.Fallback)
	fmt.Fprintf(out, "Failed:    %d\n", summary.Failed)
	for path, msg := range summary.LoadFailures {
		fmt.Fprintf(out, "Unreadable: %s: %s\n", path, msg)
	}
	for _, r := range summary.Results {
		line := fmt.Sprintf("  %-30s %s", r.Applicant, r.Status)
		if r.Error != "" {
			line += "  (" + r.Error + ")"
		}
		fmt.Fprintln(out, line)
	}

	if runFlags.report {
		path, err := processor.WriteReport(summary)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Report:    %s\n", path)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d submissions failed", summary.Failed, summary.Total)
	}
	return nil
}
