// Package analysis derives clinical views from a patient record: score
// interpretation, red-flag detection and the rule-based hypothesis.
// Every function is pure and recomputed on demand.
package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scaleneo/bilan/internal/record"
)

// Color is a display severity.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
)

// ScoreKey identifies a clinical instrument.
type ScoreKey string

const (
	ScoreODI            ScoreKey = "odi"
	ScoreCSI            ScoreKey = "csi"
	ScorePCS            ScoreKey = "pcs"
	ScoreHADSAnxiete    ScoreKey = "hadsAnxiete"
	ScoreHADSDepression ScoreKey = "hadsDepression"
	ScoreFABQTravail    ScoreKey = "fabqTravail"
	ScoreFABQActivite   ScoreKey = "fabqActivite"
	ScoreSBT            ScoreKey = "sbt"
	ScoreWAI            ScoreKey = "wai"
	ScorePSFS           ScoreKey = "psfs"
)

// Level is one severity band of a score.
type Level struct {
	Threshold int    `json:"threshold"`
	Label     string `json:"label"`
	Color     Color  `json:"color"`
}

// ScoreDefinition describes an instrument's range and ascending levels.
type ScoreDefinition struct {
	Key    ScoreKey `json:"key"`
	Label  string   `json:"label"`
	Min    int      `json:"min"`
	Max    int      `json:"max"`
	Levels []Level  `json:"levels"`
	// Field is the section 7 field holding the score.
	Field string `json:"field"`
}

var scoreDefinitions = []ScoreDefinition{
	{Key: ScoreSBT, Label: "SBT", Min: 0, Max: 9, Field: "scoreSBT", Levels: []Level{
		{0, "Faible", ColorGreen},
		{4, "Modéré", ColorRed},
	}},
	{Key: ScoreCSI, Label: "CSI", Min: 0, Max: 100, Field: "scoreCSI", Levels: []Level{
		{0, "Faible", ColorGreen},
		{30, "Modéré", ColorYellow},
		{50, "Élevé", ColorRed},
	}},
	{Key: ScoreODI, Label: "ODI", Min: 0, Max: 100, Field: "scoreODI", Levels: []Level{
		{0, "Minime", ColorGreen},
		{20, "Léger", ColorGreen},
		{40, "Modéré", ColorYellow},
		{60, "Sévère", ColorRed},
		{80, "Très Sévère", ColorRed},
	}},
	{Key: ScorePCS, Label: "PCS", Min: 0, Max: 52, Field: "scorePCS", Levels: []Level{
		{0, "Faible", ColorGreen},
		{17, "Modéré", ColorYellow},
		{34, "Élevé", ColorRed},
	}},
	{Key: ScoreHADSAnxiete, Label: "HADS-Anxiété", Min: 0, Max: 21, Field: "scoreAnxiete", Levels: hadsLevels},
	{Key: ScoreHADSDepression, Label: "HADS-Dépression", Min: 0, Max: 21, Field: "scoreDepression", Levels: hadsLevels},
	{Key: ScoreFABQTravail, Label: "FABQ-Travail", Min: 0, Max: 100, Field: "scoreFabqTravail", Levels: []Level{
		{0, "Faible", ColorGreen},
		{38, "Modéré", ColorYellow},
		{60, "Élevé", ColorRed},
	}},
	{Key: ScoreFABQActivite, Label: "FABQ-Activité", Min: 0, Max: 100, Field: "scoreFabqActivite", Levels: []Level{
		{0, "Faible", ColorGreen},
		{13, "Modéré", ColorYellow},
		{20, "Élevé", ColorRed},
	}},
	{Key: ScoreWAI, Label: "WAI", Min: 0, Max: 100, Field: "scoreWAI", Levels: []Level{
		{0, "Faible", ColorRed},
		{50, "Modéré", ColorYellow},
		{75, "Bon", ColorGreen},
	}},
	{Key: ScorePSFS, Label: "PSFS", Min: 0, Max: 10, Field: "scorePSFS", Levels: []Level{
		{0, "Incapacité", ColorRed},
		{4, "Modéré", ColorYellow},
		{8, "Bon", ColorGreen},
	}},
}

var hadsLevels = []Level{
	{0, "Normal", ColorGreen},
	{8, "Léger", ColorYellow},
	{11, "Modéré", ColorRed},
	{15, "Sévère", ColorRed},
}

// summaryScores are the instruments shown in the score summary, in order.
var summaryScores = []ScoreKey{
	ScoreSBT, ScoreCSI, ScoreODI, ScorePCS, ScoreHADSAnxiete,
	ScoreHADSDepression, ScoreFABQTravail, ScoreFABQActivite, ScoreWAI,
}

// Definitions returns every score definition.
func Definitions() []ScoreDefinition {
	out := make([]ScoreDefinition, len(scoreDefinitions))
	copy(out, scoreDefinitions)
	return out
}

// Definition returns the definition of key.
func Definition(key ScoreKey) (ScoreDefinition, bool) {
	for _, d := range scoreDefinitions {
		if d.Key == key {
			return d, true
		}
	}
	return ScoreDefinition{}, false
}

// Interpret selects the highest level whose threshold does not exceed the
// score, defaulting to the lowest level. It returns false for an unknown key
// or a null value; any other non-numeric value reads as 0.
func Interpret(key ScoreKey, v record.Value) (Level, bool) {
	def, ok := Definition(key)
	if !ok || v.IsNull() || len(def.Levels) == 0 {
		return Level{}, false
	}
	score := ParseScore(v)
	result := def.Levels[0]
	for _, l := range def.Levels {
		if score >= float64(l.Threshold) {
			result = l
		}
	}
	return result, true
}

var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// ParseScore reads a score: numbers as is, strings by their leading
// integer, anything else as 0.
func ParseScore(v record.Value) float64 {
	switch v.Kind() {
	case record.KindNumber:
		n, _ := v.Num()
		return n
	case record.KindString:
		s, _ := v.Str()
		m := leadingInt.FindString(strings.TrimSpace(s))
		if m == "" {
			return 0
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0
		}
		return float64(n)
	default:
		return 0
	}
}

// ScoreResult is one line of the score summary.
type ScoreResult struct {
	Key   ScoreKey     `json:"key"`
	Label string       `json:"label"`
	Value record.Value `json:"value"`
	Level Level        `json:"level"`
}

var trailingNote = regexp.MustCompile(`\s*\(.*\)\s*$`)

// Summary interprets the section 7 scores that carry a value. A trailing
// parenthetical such as "4/9 (Risque faible)" is dropped before reading.
func Summary(rec *record.Record) []ScoreResult {
	var out []ScoreResult
	for _, key := range summaryScores {
		def, _ := Definition(key)
		v := rec.Get(record.SectionScores, def.Field)
		if v.IsBlank() {
			continue
		}
		if s, ok := v.Str(); ok {
			v = record.String(strings.TrimSpace(trailingNote.ReplaceAllString(s, "")))
		}
		level, ok := Interpret(key, v)
		if !ok {
			continue
		}
		out = append(out, ScoreResult{Key: key, Label: def.Label, Value: v, Level: level})
	}
	return out
}
