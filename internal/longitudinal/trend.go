package longitudinal

import "math"

// Point is one charted value.
type Point struct {
	Date  string  `json:"date"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Trend compares the first and last readings of a measure.
type Trend struct {
	Config      MetricConfig `json:"config"`
	Baseline    float64      `json:"baseline"`
	Latest      float64      `json:"latest"`
	Diff        float64      `json:"diff"`
	Improved    bool         `json:"improved"`
	Significant bool         `json:"significant"`
	Target      float64      `json:"target"`
	Series      []Point      `json:"series"`
}

// Trends reads every configured measure present in at least one of the
// date-ordered assessments.
func Trends(assessments []Assessment) []Trend {
	var out []Trend
	for _, cfg := range metricConfigs {
		var series []Point
		for _, a := range assessments {
			if v, ok := a.Metrics[cfg.Key]; ok {
				series = append(series, Point{Date: a.Date, Label: a.Label, Value: v})
			}
		}
		if len(series) == 0 {
			continue
		}
		baseline, latest := series[0].Value, series[len(series)-1].Value
		diff := latest - baseline
		out = append(out, Trend{
			Config:      cfg,
			Baseline:    baseline,
			Latest:      latest,
			Diff:        diff,
			Improved:    cfg.Improved(diff),
			Significant: math.Abs(diff) >= cfg.MCID,
			Target:      cfg.Target(baseline),
			Series:      series,
		})
	}
	return out
}
