package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"visaflow/internal/batch"
	"visaflow/internal/webhook"
)

var serveHTTPFlags struct {
	addr string
}

var serveHTTPCmd = &cobra.Command{
	Use:   "serve-http",
	Short: "Start the webhook HTTP server",
	Long: `Starts the HTTP server: POST an application JSON to /generate-visa-pdf
and receive the generated PDF back. GET /submissions lists history.`,
	RunE: runServeHTTP,
}

func init() {
	serveHTTPCmd.Flags().StringVar(&serveHTTPFlags.addr, "addr", ":5000", "Listen address")
}

func runServeHTTP(cmd *cobra.Command, _ []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := webhook.NewServer(batch.New(cfg, history), history)
	return srv.Serve(ctx, serveHTTPFlags.addr)
}
