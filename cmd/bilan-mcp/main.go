// Package main serves the assessment workspace as MCP tools over stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scaleneo/bilan/internal/domain/workspace"
	"github.com/scaleneo/bilan/internal/mcptool"
	"github.com/scaleneo/bilan/internal/observability/logging"
)

var version = "dev"

func main() {
	var logLevel string
	rootCmd := &cobra.Command{
		Use:          "bilan-mcp",
		Short:        "Serve assessment tools over the Model Context Protocol (stdio)",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			logger, err := logging.New(logging.Config{
				Level:   logLevel,
				Format:  "json",
				Service: "bilan-mcp",
				Output:  "stderr",
			})
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, logger)
		},
	}
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	server := mcp.NewServer(&mcp.Implementation{Name: "bilan-mcp", Version: version}, nil)
	mcptool.New(workspace.New(), logger).Register(server)

	logger.Info("starting MCP server", zap.String("transport", "stdio"), zap.String("version", version))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	logger.Info("MCP server stopped")
	return nil
}
