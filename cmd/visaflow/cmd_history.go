package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyFlags struct {
	limit    int
	passport string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent submissions from the history store",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyFlags.limit, "limit", 20, "Max records to show")
	f.StringVar(&historyFlags.passport, "passport", "", "Show only the latest record for this passport number")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if history == nil {
		return fmt.Errorf("submission history is disabled (store_path is empty)")
	}
	defer history.Close()

	out := cmd.OutOrStdout()
	if historyFlags.passport != "" {
		sub, err := history.LastForPassport(historyFlags.passport)
		if err != nil {
			return err
		}
		if sub == nil {
			fmt.Fprintf(out, "No submissions for passport %s\n", historyFlags.passport)
			return nil
		}
		fmt.Fprintf(out, "#%d  %s  %s  %s  attempts=%d  %s\n",
			sub.ID, sub.CreatedAt, sub.Applicant, sub.Status, sub.Attempts, sub.PDFPath)
		return nil
	}

	subs, err := history.ListSubmissions(historyFlags.limit)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintln(out, "No submissions recorded yet.")
		return nil
	}
	for _, sub := range subs {
		line := fmt.Sprintf("#%d  %s  %-25s %-9s attempts=%d", sub.ID, sub.CreatedAt, sub.Applicant, sub.Status, sub.Attempts)
		if sub.QRVerified {
			line += "  qr✓"
		}
		if sub.Error != "" {
			line += "  " + sub.Error
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
