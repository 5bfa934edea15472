// Package main provides bilanctl, a command line tool to extract, analyze
// and export physiotherapy assessments.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scaleneo/bilan/internal/observability/logging"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type globalOptions struct {
	logLevel string
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "bilanctl",
		Short:         "Extract, analyze and export physiotherapy assessments",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Config{
				Level:   opts.logLevel,
				Format:  "console",
				Service: "bilanctl",
				Output:  "stderr",
			})
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		extractCmd(opts),
		analyzeCmd(opts),
		metricsCmd(opts),
		trendCmd(opts),
		exportCmd(opts),
	)
	return rootCmd
}
