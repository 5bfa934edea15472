package longitudinal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/scaleneo/bilan/internal/textscan"
	"github.com/scaleneo/bilan/pkg/workerpool"
)

// Visit is an uploaded visit report awaiting metric extraction.
type Visit struct {
	FileName string
	Date     string
	Label    string
	Content  []byte
}

// BuildTimeline extracts the metrics of every visit on a worker pool and
// adds them to a new timeline in input order, so default labels follow
// upload order while the timeline itself is ordered by date.
func BuildTimeline(ctx context.Context, visits []Visit, cfg workerpool.Config, logger *zap.Logger) (*Timeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.MaxRetries = 0 // extraction is deterministic

	metrics, err := workerpool.Map(ctx, cfg, visits, func(ctx context.Context, v Visit) (Metrics, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return ExtractMetrics(textscan.Decode(v.Content)), nil
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("extract visit metrics: %w", err)
	}

	tl := NewTimeline()
	for i, v := range visits {
		a, err := tl.Add(Assessment{FileName: v.FileName, Date: v.Date, Label: v.Label, Metrics: metrics[i]})
		if err != nil {
			return nil, fmt.Errorf("visit %s: %w", v.FileName, err)
		}
		logger.Debug("assessment added",
			zap.String("id", a.ID),
			zap.String("date", a.Date),
			zap.Int("metrics", len(a.Metrics)))
	}
	return tl, nil
}
