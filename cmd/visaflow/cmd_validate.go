package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"visaflow/internal/application"
)

var validateCmd = &cobra.Command{
	Use:   "validate <application.json>...",
	Short: "Check application files without submitting anything",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	invalid := 0
	for _, path := range args {
		app, err := application.LoadFromFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			invalid++
			continue
		}
		problems := app.Validate()
		if len(problems) == 0 {
			fmt.Fprintf(out, "%s: ok (%s)\n", path, app.ApplicantName())
			continue
		}
		invalid++
		fmt.Fprintf(out, "%s: %d problems\n", path, len(problems))
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d files invalid", invalid, len(args))
	}
	return nil
}
