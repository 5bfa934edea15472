package analysis

import (
	"strings"
	"unicode/utf8"

	"github.com/scaleneo/bilan/internal/record"
)

// Hypothesis is the rule-based clinical narrative, one phrase per axis.
type Hypothesis struct {
	Pathology             string `json:"pathology"`
	SourcesOfSymptoms     string `json:"sourcesOfSymptoms"`
	PainType              string `json:"painType"`
	Impairments           string `json:"impairments"`
	PainMechanisms        string `json:"painMechanisms"`
	Precautions           string `json:"precautions"`
	PatientsPerspectives  string `json:"patientsPerspectives"`
	ActivityParticipation string `json:"activityParticipation"`
	ContributingFactors   string `json:"contributingFactors"`
	ManagementPrognosis   string `json:"managementPrognosis"`
}

// Synthesize applies the hypothesis rules to rec. flags is the red-flag
// detection for rec; nil runs the detector.
func Synthesize(rec *record.Record, flags RedFlags) Hypothesis {
	if rec == nil {
		rec = record.New()
	}
	if flags == nil {
		flags = DetectRedFlags(rec)
	}
	return Hypothesis{
		Pathology:             pathology(rec),
		SourcesOfSymptoms:     sourcesOfSymptoms(rec),
		PainType:              painType(rec),
		Impairments:           impairments(rec),
		PainMechanisms:        painMechanisms(rec),
		Precautions:           precautions(flags),
		PatientsPerspectives:  patientsPerspectives(rec),
		ActivityParticipation: activityParticipation(rec),
		ContributingFactors:   contributingFactors(rec),
		ManagementPrognosis:   managementPrognosis(rec, flags),
	}
}

func hasText(v record.Value, search string) bool {
	t := v.Text()
	if t == "" {
		return false
	}
	return strings.Contains(strings.ToLower(t), strings.ToLower(search))
}

// present reports whether v holds something other than null, "", 0 or false.
func present(v record.Value) bool {
	if b, ok := v.Boolean(); ok {
		return b
	}
	if n, ok := v.Num(); ok {
		return n != 0
	}
	return !v.IsBlank()
}

func pathology(rec *record.Record) string {
	switch {
	case hasText(rec.Get(record.SectionPathologie, "modeApparition"), "trauma"):
		return "Condition mécanique post-traumatique"
	case hasText(rec.Get(record.SectionPathologie, "typeLBP"), "chronique"):
		return "Condition musculo-squelettique chronique"
	default:
		return "Douleur rachidienne mécanique non-spécifique"
	}
}

func sourcesOfSymptoms(rec *record.Record) string {
	collect := func(id record.SectionID, fields [3]string) []string {
		var sources []string
		for i, name := range [3]string{"Articulaire", "Myofasciale", "Neurologique"} {
			if rec.Get(id, fields[i]).Truthy() {
				sources = append(sources, name)
			}
		}
		return sources
	}
	sources := collect(record.SectionMecanismesResume, [3]string{"motifArticulaire", "motifMyofascial", "motifNeural"})
	if len(sources) == 0 {
		sources = collect(record.SectionMecanismes, [3]string{"douleurArticulaire", "douleurMyofasciale", "douleurNeurologique"})
	}
	if len(sources) == 0 {
		return "Indéterminée (Mixte probable)"
	}
	return strings.Join(sources, " + ")
}

func painType(rec *record.Record) string {
	csi := ParseScore(rec.Get(record.SectionScores, "scoreCSI"))
	switch {
	case csi > 40:
		return "Nociceptif + Sensibilisation Centrale Dominante"
	case csi > 25:
		return "Douleur mixte (Nociceptif + Sensibilisation modérée)"
	default:
		return "Nociceptif mécanique pur"
	}
}

func impairments(rec *record.Record) string {
	var out []string
	flexion := rec.Get(record.SectionTests, "flexionAvant")
	if present(flexion) && !hasText(flexion, "complet") && !hasText(flexion, "normal") {
		out = append(out, "Déficit Flexion")
	}
	slrD := ParseScore(rec.Get(record.SectionTests, "slrDroit"))
	slrG := ParseScore(rec.Get(record.SectionTests, "slrGauche"))
	if (slrD > 0 && slrD < 70) || (slrG > 0 && slrG < 70) {
		out = append(out, "Neurodynamique limité (SLR+)")
	}
	force := rec.Get(record.SectionTests, "forceMusculaire")
	if present(force) && !hasText(force, "5/5") {
		out = append(out, "Déficit Force")
	}
	if len(out) == 0 {
		return "Pas de déficits majeurs (ROM préservé)"
	}
	return strings.Join(out, " | ")
}

func painMechanisms(rec *record.Record) string {
	csi := ParseScore(rec.Get(record.SectionScores, "scoreCSI"))
	pcs := ParseScore(rec.Get(record.SectionScores, "scorePCS"))
	fabq := ParseScore(rec.Get(record.SectionScores, "scoreFabqTravail"))

	var out []string
	if csi > 40 {
		out = append(out, "↑ Sensibilisation centrale")
	}
	if pcs > 30 {
		out = append(out, "↑ Catastrophisation élevée")
	}
	if fabq > 40 {
		out = append(out, "↑ Peur-Évitement (Yellow Flag)")
	}
	if len(out) == 0 {
		return "Mécanismes nociceptifs standards"
	}
	return strings.Join(out, " + ")
}

func precautions(flags RedFlags) string {
	if flags.Any() {
		return "⚠️ AVERTISSEMENT: Drapeaux rouges détectés - Voir section dédiée"
	}
	return "✓ Pas de contre-indication absolue identifiée"
}

func patientsPerspectives(rec *record.Record) string {
	comprehension := rec.Get(record.SectionPerspectives, "comprehensionDiagnostic")
	if !present(comprehension) {
		comprehension = record.String("inconnue")
	}
	switch {
	case hasText(comprehension, "oui") || hasText(comprehension, "bon"):
		return "Bon niveau de compréhension - Alliance thérapeutique favorable"
	case hasText(comprehension, "non") || hasText(comprehension, "faible"):
		return "⚠️ Compréhension limitée - Éducation thérapeutique prioritaire"
	default:
		return "Compréhension et attentes à clarifier"
	}
}

func activityParticipation(rec *record.Record) string {
	adl := rec.Get(record.SectionActivites, "activitesQuotidiennes")
	if s, ok := adl.Str(); ok && utf8.RuneCountInString(s) > 5 {
		return "Limitations fonctionnelles ADL significatives"
	}
	if psfs := rec.Get(record.SectionScores, "scorePSFS"); present(psfs) {
		return "Limitations spécifiques identifiées (PSFS: " + psfs.Text() + ")"
	}
	return "Participation ADL relativement préservée"
}

func contributingFactors(rec *record.Record) string {
	var out []string
	psycho := rec.Get(record.SectionFacteurs, "facteursPsycho")
	if present(psycho) && !hasText(psycho, "non") {
		out = append(out, "Facteurs Psychosociaux")
	}
	lifestyle := rec.Get(record.SectionFacteurs, "facteursLifestyle")
	if hasText(lifestyle, "sédentaire") || hasText(lifestyle, "inactivité") {
		out = append(out, "Sédentarité")
	}
	if present(rec.Get(record.SectionFacteurs, "facteursBiomeca")) {
		out = append(out, "Facteurs Biomécaniques")
	}
	if len(out) == 0 {
		return "Pas de facteurs contribuants majeurs"
	}
	return strings.Join(out, " + ")
}

func managementPrognosis(rec *record.Record, flags RedFlags) string {
	positifs := rec.Get(record.SectionPronostic, "facteursPositifs")
	switch {
	case hasText(positifs, "oui") || hasText(positifs, "bon"):
		return "Pronostic favorable - Réponse attendue au traitement conservateur"
	case flags.Any():
		return "Pronostic réservé - Nécessite surveillance médicale (Red Flags)"
	case hasText(rec.Get(record.SectionPronostic, "yellowFlags"), "oui"):
		return "Pronostic modéré - Risque de chronicité (Yellow Flags)"
	default:
		return "Pronostic standard - Réévaluation à 4 semaines"
	}
}
