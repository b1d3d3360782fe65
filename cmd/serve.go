package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pyenvctl/internal/config"
	"pyenvctl/internal/mcpserver"
	"pyenvctl/pkg/logging"

	"github.com/spf13/cobra"
)

var (
	serveSSE  bool
	serveHost string
	servePort int
)

// newServeCmd builds the headless MCP server command. Agents connect over
// stdio by default, or over HTTP SSE with --sse.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve environment management over the Model Context Protocol",
		Long: `Runs pyenvctl headless as an MCP server so AI assistants and other
MCP clients can list, create and delete environments and manage packages.

By default the server speaks MCP over stdin/stdout, which is what most
MCP client configurations expect. With --sse it listens on HTTP instead
and serves the SSE transport.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().BoolVar(&serveSSE, "sse", false, "Serve over HTTP SSE instead of stdio")
	cmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to bind in SSE mode")
	cmd.Flags().IntVar(&servePort, "port", 8765, "Port to bind in SSE mode")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	// In stdio mode stdout is the protocol channel; logs must go to stderr.
	logging.InitForCLI(logging.ParseLevel(cfg.Logging.Level), os.Stderr)

	srv := mcpserver.NewServer(cfg, rootCmd.Version)

	if !serveSSE {
		return srv.ServeStdio()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ServeSSE(ctx, serveHost, servePort)
}
