package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scaleneo/bilan/internal/analysis"
	"github.com/scaleneo/bilan/internal/domain/workspace"
	"github.com/scaleneo/bilan/internal/export"
	"github.com/scaleneo/bilan/internal/extract"
	"github.com/scaleneo/bilan/internal/longitudinal"
	"github.com/scaleneo/bilan/internal/textscan"
	"github.com/scaleneo/bilan/pkg/workerpool"
)

var errUnknownOutput = errors.New("unknown output format")

func extractCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract an assessment into its normalized record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := loadFile(cmd, opts, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, res.Record)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json, yaml)")
	return cmd
}

func analyzeCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Interpret scores, red flags and the clinical hypothesis of an assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := loadFile(cmd, opts, args[0])
			if err != nil {
				return err
			}
			report := analysis.Analyze(res.Record)
			for _, f := range report.RedFlags {
				opts.logger.Info("red flag detected",
					zap.String("flag", f.Key),
					zap.String("severity", string(f.Category)),
				)
			}
			return render(cmd.OutOrStdout(), output, report)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json, yaml)")
	return cmd
}

// fileMetrics is the metric reading of one visit report.
type fileMetrics struct {
	File    string               `json:"file"`
	Metrics longitudinal.Metrics `json:"metrics"`
}

func metricsCmd(opts *globalOptions) *cobra.Command {
	var (
		output  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "metrics <file>...",
		Short: "Read the follow-up measures of visit reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := workerpool.DefaultConfig()
			cfg.Workers = workers
			out, err := workerpool.Map(cmd.Context(), cfg, args, func(_ context.Context, path string) (fileMetrics, error) {
				content, err := os.ReadFile(path)
				if err != nil {
					return fileMetrics{}, err
				}
				return fileMetrics{File: path, Metrics: longitudinal.ExtractMetrics(textscan.Decode(content))}, nil
			}, opts.logger)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json, yaml)")
	cmd.Flags().IntVar(&workers, "workers", workerpool.DefaultConfig().Workers, "concurrent readers")
	return cmd
}

// timelineOutput is the rendered follow-up timeline.
type timelineOutput struct {
	Assessments []longitudinal.Assessment `json:"assessments"`
	Trends      []longitudinal.Trend      `json:"trends"`
}

func trendCmd(opts *globalOptions) *cobra.Command {
	var (
		output string
		dates  map[string]string
		labels map[string]string
	)
	cmd := &cobra.Command{
		Use:   "trend <file>...",
		Short: "Build a dated timeline of visit reports and compare first and last measures",
		Example: "  bilanctl trend j0.txt j30.txt --date j0.txt=2024-01-10 --date j30.txt=2024-02-09 \\\n" +
			"    --label j0.txt=\"Bilan initial\"",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visits := make([]longitudinal.Visit, 0, len(args))
			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				visits = append(visits, longitudinal.Visit{
					FileName: filepath.Base(path),
					Date:     dates[path],
					Label:    labels[path],
					Content:  content,
				})
			}
			tl, err := longitudinal.BuildTimeline(cmd.Context(), visits, workerpool.DefaultConfig(), opts.logger)
			if err != nil {
				return err
			}
			all := tl.All()
			trends := longitudinal.Trends(all)
			if trends == nil {
				trends = []longitudinal.Trend{}
			}
			return render(cmd.OutOrStdout(), output, timelineOutput{Assessments: all, Trends: trends})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json, yaml)")
	cmd.Flags().StringToStringVar(&dates, "date", nil, "visit date as file=YYYY-MM-DD, today when omitted")
	cmd.Flags().StringToStringVar(&labels, "label", nil, "visit label as file=label")
	return cmd
}

func exportCmd(opts *globalOptions) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export an assessment as CSV, XLSX, JSON or a FHIR bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ws := workspace.New()
			res, err := ws.Load(filepath.Base(args[0]), doc)
			if err != nil {
				return err
			}
			if res.Warning != "" {
				warn(cmd, opts, args[0], res.Warning)
			}

			var buf bytes.Buffer
			name, err := ws.Export(&buf, f)
			if err != nil {
				return err
			}
			if out == "-" {
				_, err := buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			path := filepath.Join(out, name)
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			opts.logger.Info("assessment exported",
				zap.String("format", string(f)),
				zap.String("file", path),
				zap.Int("bytes", buf.Len()),
			)
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatCSV), "export format (csv, xlsx, json, fhir)")
	cmd.Flags().StringVar(&out, "out", ".", `output directory, "-" for stdout`)
	return cmd
}

// loadFile extracts the assessment at path. A record without
// administrative data is still returned, with a warning on stderr.
func loadFile(cmd *cobra.Command, opts *globalOptions, path string) (*extract.Result, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := extract.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	opts.logger.Debug("assessment extracted",
		zap.String("file", path),
		zap.String("format", string(res.Format)),
		zap.Duration("duration", time.Since(start)),
	)
	if err := res.Ready(); err != nil {
		warn(cmd, opts, path, err.Error())
	}
	return res, nil
}

func warn(cmd *cobra.Command, opts *globalOptions, path, msg string) {
	opts.logger.Warn("assessment not ready", zap.String("file", path), zap.String("reason", msg))
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", path, msg)
}

func render(w io.Writer, output string, v any) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("%w %q", errUnknownOutput, output)
	}
}
