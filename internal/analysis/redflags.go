package analysis

import (
	"sort"
	"strings"

	"github.com/scaleneo/bilan/internal/record"
)

// Severity ranks red flags, most urgent first.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityModerate Severity = "MODERATE"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	default:
		return 2
	}
}

// RedFlagDefinition is a medical warning sign and the terms that reveal it.
type RedFlagDefinition struct {
	Key            string   `json:"key"`
	Category       Severity `json:"category"`
	Label          string   `json:"label"`
	SearchTerms    []string `json:"searchTerms"`
	Recommendation string   `json:"recommendation"`
	Color          Color    `json:"color"`
}

// RedFlag is a detected warning sign.
type RedFlag struct {
	RedFlagDefinition `yaml:",inline"`
	MatchCount        int  `json:"matchCount"`
	Detected          bool `json:"detected"`
}

var redFlagDefinitions = []RedFlagDefinition{
	{
		Key:            "cauda_equina",
		Category:       SeverityCritical,
		Label:          "Syndrome de la Queue de Cheval",
		SearchTerms:    []string{"selle", "anesthésie selle", "rectale", "urinaire", "fécale"},
		Recommendation: "🚨 URGENT: Référence immédiate aux urgences",
		Color:          ColorRed,
	},
	{
		Key:            "bowel_bladder",
		Category:       SeverityCritical,
		Label:          "Dysfonctionnement Vésical/Rectal",
		SearchTerms:    []string{"bowel", "bladder", "urinaire", "rétention", "incontinence"},
		Recommendation: "🚨 URGENT: Évaluation médicale immédiate",
		Color:          ColorRed,
	},
	{
		Key:            "progressive_neuro",
		Category:       SeverityCritical,
		Label:          "Déficit Neurologique Progressif",
		SearchTerms:    []string{"progression", "aggravation", "déficit neurologique", "parésie progressive"},
		Recommendation: "🚨 URGENT: Imagerie et évaluation neurologique",
		Color:          ColorRed,
	},
	{
		Key:            "trauma_fracture",
		Category:       SeverityCritical,
		Label:          "Traumatisme Sévère + Mécanisme Associé",
		SearchTerms:    []string{"traumatisme", "accident", "chute", "fracture"},
		Recommendation: "⚠️ HAUTE PRIORITÉ: Imagerie requise avant traitement",
		Color:          ColorRed,
	},
	{
		Key:            "infection_fever",
		Category:       SeverityCritical,
		Label:          "Fièvre + Douleur Rachidienne",
		SearchTerms:    []string{"fièvre", "température", "sueurs nocturnes"},
		Recommendation: "🚨 Référence urgente (infection possible)",
		Color:          ColorRed,
	},
	{
		Key:            "malignancy",
		Category:       SeverityHigh,
		Label:          "Antécédent Tumoral + Symptômes Systémiques",
		SearchTerms:    []string{"cancer", "tumeur", "chimiothérapie", "perte poids"},
		Recommendation: "⚠️ HAUTE PRIORITÉ: Imagerie oncologique recommandée",
		Color:          ColorRed,
	},
	{
		Key:            "anticoagulation_trauma",
		Category:       SeverityHigh,
		Label:          "Anticoagulation + Traumatisme",
		SearchTerms:    []string{"anticoagulant", "warfarine", "apixaban", "rivaroxaban", "traumatisme"},
		Recommendation: "⚠️ Évaluation médicale avant traitement manuel",
		Color:          ColorOrange,
	},
	{
		Key:            "severe_symptoms",
		Category:       SeverityModerate,
		Label:          "Symptomatologie Sévère Bilatérale",
		SearchTerms:    []string{"bilatéral", "sévère", "très grave"},
		Recommendation: "✓ Évaluation approfondie, prudence avec MT",
		Color:          ColorOrange,
	},
	{
		Key:            "systemic_disease",
		Category:       SeverityModerate,
		Label:          "Maladie Systémique Significative",
		SearchTerms:    []string{"diabète", "rhumatoïde", "polyarthrite", "lupus", "sclérose"},
		Recommendation: "✓ Coordination avec médecine, prudence thérapeutique",
		Color:          ColorOrange,
	},
}

// RedFlagDefinitions returns the configured warning signs.
func RedFlagDefinitions() []RedFlagDefinition {
	out := make([]RedFlagDefinition, len(redFlagDefinitions))
	copy(out, redFlagDefinitions)
	return out
}

// RedFlags maps a flag key to its detection.
type RedFlags map[string]RedFlag

// Any reports whether at least one flag was detected.
func (f RedFlags) Any() bool { return len(f) > 0 }

// Sorted returns the detections by severity, then key.
func (f RedFlags) Sorted() []RedFlag {
	out := make([]RedFlag, 0, len(f))
	for _, rf := range f {
		out = append(out, rf)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Category.rank(), out[j].Category.rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// DetectRedFlags searches every field value of rec for the configured terms.
// A flag is reported with the number of its terms found anywhere in the
// record. Matching is context free: a term in unrelated free text counts.
func DetectRedFlags(rec *record.Record) RedFlags {
	blob := searchText(rec)
	detected := RedFlags{}
	for _, def := range redFlagDefinitions {
		count := 0
		for _, term := range def.SearchTerms {
			if strings.Contains(blob, strings.ToLower(term)) {
				count++
			}
		}
		if count > 0 {
			detected[def.Key] = RedFlag{RedFlagDefinition: def, MatchCount: count, Detected: true}
		}
	}
	return detected
}

// searchText joins the record's values, lowercased. Field names are left out
// since every record carries all of them.
func searchText(rec *record.Record) string {
	var b strings.Builder
	if rec == nil {
		return ""
	}
	rec.Values(func(_ record.SectionID, _ string, v record.Value) {
		if t := v.Text(); t != "" {
			b.WriteString(strings.ToLower(t))
			b.WriteByte('\n')
		}
	})
	return b.String()
}
