package analysis

import "github.com/scaleneo/bilan/internal/record"

// Report gathers every derived view of a record.
type Report struct {
	Scores     []ScoreResult `json:"scores"`
	RedFlags   []RedFlag     `json:"redFlags"`
	Hypothesis Hypothesis    `json:"hypothesis"`
	IMC        *IMCReading   `json:"imc,omitempty"`
}

// IMCReading is a body-mass index and its category.
type IMCReading struct {
	Value    float64 `json:"value"`
	IMCLevel `yaml:",inline"`
}

// Analyze computes the report for rec.
func Analyze(rec *record.Record) Report {
	flags := DetectRedFlags(rec)
	r := Report{
		Scores:     Summary(rec),
		RedFlags:   flags.Sorted(),
		Hypothesis: Synthesize(rec, flags),
	}
	if r.Scores == nil {
		r.Scores = []ScoreResult{}
	}
	if imc, ok := rec.Get(record.SectionAnthropo, "imc").Num(); ok {
		r.IMC = &IMCReading{Value: imc, IMCLevel: IMCCategory(imc)}
	}
	return r
}
