package export

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scaleneo/bilan/internal/analysis"
	"github.com/scaleneo/bilan/internal/fhir/r5"
	"github.com/scaleneo/bilan/internal/record"
)

// bundleNamespace seeds the name-based UUIDs of exported resources, so the
// same record always exports with the same resource ids.
var bundleNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:scaleneo:bilan"))

var painMeasures = []struct {
	field string
	label string
}{
	{"nrsRepos", "Douleur au repos (NRS 0-10)"},
	{"nrsActivite", "Douleur à l'activité (NRS 0-10)"},
	{"nrsMax", "Douleur maximum (NRS 0-10)"},
}

var bodyMeasures = []struct {
	field   string
	code    string
	display string
	unit    string
}{
	{"poids", r5.LOINCBodyWeight, "Body weight", "kg"},
	{"taille", r5.LOINCBodyHeight, "Body height", "cm"},
	{"imc", r5.LOINCBMI, "Body mass index", "kg/m2"},
}

// BuildBundle maps rec to a FHIR R5 collection bundle: the patient, the
// examining practitioner when named, and one observation per interpreted
// score, pain rating and body measurement.
func BuildBundle(rec *record.Record, at time.Time) *r5.Bundle {
	b := &bundleBuilder{rec: rec, at: at}
	return b.build()
}

type bundleBuilder struct {
	rec       *record.Record
	at        time.Time
	effective string
	patientID string
	subject   *r5.Reference
	performer []r5.Reference
	bundle    *r5.Bundle
}

func (b *bundleBuilder) build() *r5.Bundle {
	b.effective = b.effectiveDate()
	b.patientID = b.resourceID("Patient")
	b.bundle = &r5.Bundle{
		ResourceType: "Bundle",
		ID:           b.resourceID("Bundle", b.effective),
		Type:         "collection",
		Timestamp:    b.at.UTC().Format(time.RFC3339),
	}
	if id := b.admin("idBilan"); id != "" {
		b.bundle.Identifier = &r5.Identifier{System: r5.SystemAssessmentID, Value: id}
	}

	patient := b.patient()
	b.subject = &r5.Reference{Reference: "urn:uuid:" + patient.ID, Type: "Patient", Display: patient.GetFullName()}
	b.bundle.Add(b.subject.Reference, patient)

	if p := b.practitioner(); p != nil {
		ref := r5.Reference{Reference: "urn:uuid:" + p.ID, Type: "Practitioner", Display: p.GetFullName()}
		b.performer = []r5.Reference{ref}
		b.bundle.Add(ref.Reference, p)
	}

	for _, res := range analysis.Summary(b.rec) {
		b.addObservation(b.scoreObservation(res))
	}
	for _, m := range painMeasures {
		if n, ok := b.rec.Get(record.SectionSymptomes, m.field).Num(); ok {
			b.addObservation(b.painObservation(m.field, m.label, n))
		}
	}
	for _, m := range bodyMeasures {
		if n, ok := b.rec.Get(record.SectionAnthropo, m.field).Num(); ok {
			obs := b.observation(m.field, r5.CategoryVitalSigns, r5.CodeableConcept{
				Coding: []r5.Coding{{System: r5.SystemLOINC, Code: m.code, Display: m.display}},
				Text:   m.display,
			})
			obs.ValueQuantity = &r5.Quantity{Value: n, Unit: m.unit, System: r5.SystemUCUM, Code: m.unit}
			if m.field == "imc" {
				if cat := b.rec.Get(record.SectionAnthropo, "imcCategorie").Text(); cat != "" {
					obs.Interpretation = []r5.CodeableConcept{r5.CodeableText(cat)}
				}
			}
			b.addObservation(obs)
		}
	}

	total := len(b.bundle.Entry)
	b.bundle.Total = &total
	return b.bundle
}

func (b *bundleBuilder) addObservation(o *r5.Observation) {
	b.bundle.Add("urn:uuid:"+o.ID, o)
}

func (b *bundleBuilder) patient() *r5.Patient {
	p := &r5.Patient{ResourceType: "Patient", ID: b.patientID, Active: true}
	if id := b.admin("idPatient"); id != "" {
		p.Identifier = []r5.Identifier{{Use: "official", System: r5.SystemPatientID, Value: id}}
	}
	if name := b.admin("nomPatient"); name != "" {
		p.Name = []r5.HumanName{{Use: "official", Text: name}}
	}
	p.Gender = gender(b.admin("sexe"))
	if year, ok := b.rec.Get(record.SectionAdmin, "anneeNaissance").Num(); ok && year > 1800 {
		p.BirthDate = record.FormatNumber(year)
	}
	return p
}

func (b *bundleBuilder) practitioner() *r5.Practitioner {
	name := b.admin("kineExaminateur")
	if name == "" {
		return nil
	}
	return &r5.Practitioner{
		ResourceType: "Practitioner",
		ID:           b.resourceID("Practitioner", name),
		Active:       true,
		Name:         []r5.HumanName{{Use: "official", Text: name}},
	}
}

func (b *bundleBuilder) scoreObservation(res analysis.ScoreResult) *r5.Observation {
	obs := b.observation(string(res.Key), r5.CategorySurvey, r5.CodeableConcept{
		Coding: []r5.Coding{{System: r5.SystemScore, Code: string(res.Key), Display: res.Label}},
		Text:   res.Label,
	})
	obs.ValueQuantity = &r5.Quantity{Value: analysis.ParseScore(res.Value)}
	obs.Interpretation = []r5.CodeableConcept{r5.CodeableText(res.Level.Label)}
	if def, ok := analysis.Definition(res.Key); ok {
		obs.ReferenceRange = []r5.ReferenceRange{{
			Low:  &r5.Quantity{Value: float64(def.Min)},
			High: &r5.Quantity{Value: float64(def.Max)},
		}}
	}
	return obs
}

func (b *bundleBuilder) painObservation(field, label string, n float64) *r5.Observation {
	obs := b.observation(field, r5.CategorySurvey, r5.CodeableConcept{
		Coding: []r5.Coding{{System: r5.SystemLOINC, Code: r5.LOINCPainSeverity, Display: "Pain severity - 0-10 verbal numeric rating [Score] - Reported"}},
		Text:   label,
	})
	obs.ValueQuantity = &r5.Quantity{Value: n, System: r5.SystemUCUM, Code: "{score}"}
	return obs
}

func (b *bundleBuilder) observation(key, category string, code r5.CodeableConcept) *r5.Observation {
	return &r5.Observation{
		ResourceType: "Observation",
		ID:           b.resourceID("Observation", key, b.effective),
		Status:       r5.StatusFinal,
		Category: []r5.CodeableConcept{{
			Coding: []r5.Coding{{System: r5.SystemObsCategory, Code: category}},
		}},
		Code:              code,
		Subject:           b.subject,
		EffectiveDateTime: b.effective,
		Performer:         b.performer,
	}
}

// resourceID derives a stable id from the patient identity and parts.
func (b *bundleBuilder) resourceID(kind string, parts ...string) string {
	name := append([]string{kind, b.admin("idPatient"), b.admin("nomPatient")}, parts...)
	return uuid.NewSHA1(bundleNamespace, []byte(strings.Join(name, "|"))).String()
}

// effectiveDate is the assessment date when it parses, the export date otherwise.
func (b *bundleBuilder) effectiveDate() string {
	if d, ok := ParseDate(b.admin("dateBilan")); ok {
		return d.Format(DateLayout)
	}
	return b.at.Format(DateLayout)
}

func (b *bundleBuilder) admin(field string) string {
	return strings.TrimSpace(b.rec.Get(record.SectionAdmin, field).Text())
}

func gender(sexe string) string {
	switch strings.ToLower(strings.TrimSpace(sexe)) {
	case "":
		return ""
	case "f", "femme", "féminin", "female":
		return "female"
	case "h", "m", "homme", "masculin", "male":
		return "male"
	default:
		return "other"
	}
}
