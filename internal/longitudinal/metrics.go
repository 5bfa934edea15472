// Package longitudinal tracks outcome measures across successive visits:
// metric extraction from visit reports, the dated assessment timeline and
// MCID-based trend reading.
package longitudinal

import (
	"regexp"

	"github.com/scaleneo/bilan/internal/textscan"
)

// MetricKey names a tracked outcome measure.
type MetricKey string

const (
	MetricSBT            MetricKey = "sbt"
	MetricCSI            MetricKey = "csi"
	MetricODI            MetricKey = "odi"
	MetricPCS            MetricKey = "pcs"
	MetricHADSAnxiete    MetricKey = "hadsAnxiete"
	MetricHADSDepression MetricKey = "hadsDepression"
	MetricFABQTravail    MetricKey = "fabqTravail"
	MetricFABQActivite   MetricKey = "fabqActivite"
	MetricNRSRepos       MetricKey = "nrsRepos"
	MetricNRSActivite    MetricKey = "nrsActivite"
	MetricNRSMax         MetricKey = "nrsMax"
	MetricWAI            MetricKey = "wai"
)

// Metrics maps a measure to its value for one visit. A measure missing from
// the report is absent, never zero.
type Metrics map[MetricKey]float64

type metricPattern struct {
	key MetricKey
	re  *regexp.Regexp
}

var metricPatterns = compilePatterns([]struct {
	key MetricKey
	p   textscan.LabelPattern
}{
	{MetricSBT, textscan.LabelPattern{Label: `SBT\s*\(`, Range: "0-9"}},
	{MetricCSI, textscan.LabelPattern{Label: `CSI Score`, Range: "0-100"}},
	{MetricODI, textscan.LabelPattern{Label: `ODI Score`, Range: "0-100"}},
	{MetricPCS, textscan.LabelPattern{Label: `PCS Score`, Range: "0-52"}},
	{MetricHADSAnxiete, textscan.LabelPattern{Label: `HADS Score Anxiété`, Range: "0-21"}},
	{MetricHADSDepression, textscan.LabelPattern{Label: `HADS Score Dépression`, Range: "0-21"}},
	{MetricFABQTravail, textscan.LabelPattern{Label: `FABQ Score Travail`, Range: "0-100"}},
	{MetricFABQActivite, textscan.LabelPattern{Label: `FABQ Score Activité`, Range: "0-100"}},
	{MetricNRSRepos, textscan.LabelPattern{Label: `NRS Douleur au Repos`}},
	{MetricNRSActivite, textscan.LabelPattern{Label: `NRS Douleur[^R]*l'Activité`}},
	{MetricNRSMax, textscan.LabelPattern{Label: `NRS Douleur Maximum`}},
	{MetricWAI, textscan.LabelPattern{Label: `WAI Score`, Range: "0-100", Decimal: true}},
})

func compilePatterns(defs []struct {
	key MetricKey
	p   textscan.LabelPattern
}) []metricPattern {
	out := make([]metricPattern, len(defs))
	for i, d := range defs {
		out[i] = metricPattern{key: d.key, re: d.p.Compile()}
	}
	return out
}

// ExtractMetrics reads the tracked measures from a visit report. Section
// boundaries are ignored; the first match of each measure wins.
func ExtractMetrics(text string) Metrics {
	m := Metrics{}
	for _, p := range metricPatterns {
		if v, ok := textscan.FirstNumber(p.re, text); ok {
			m[p.key] = v
		}
	}
	return m
}

// MetricKeys lists every extracted measure in extraction order.
func MetricKeys() []MetricKey {
	keys := make([]MetricKey, len(metricPatterns))
	for i, p := range metricPatterns {
		keys[i] = p.key
	}
	return keys
}
