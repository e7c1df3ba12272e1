package main

import (
	"context"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"visaflow/internal/batch"
	"visaflow/internal/logging"
	mcpserver "visaflow/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing generate_visa_pdf,
validate_application and get_history tools.

The server monitors for parent process death. When the MCP host disconnects,
the server self-terminates to prevent zombie processes.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	srv := mcpserver.NewServer(batch.New(cfg, history), history)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchStdin(ctx, nil, cancel)

	logging.New("mcp").Info("starting visaflow MCP server over stdio (parent watchdog active)")
	return srv.Run(ctx, &sdkmcp.StdioTransport{})
}
