// Package r5 provides the FHIR R5 data structures used to share an
// assessment with other clinical systems.
package r5

// Meta contains metadata about a resource.
type Meta struct {
	VersionID   string   `json:"versionId,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
	Source      string   `json:"source,omitempty"`
	Profile     []string `json:"profile,omitempty"`
	Tag         []Coding `json:"tag,omitempty"`
}

// Identifier represents a FHIR Identifier.
type Identifier struct {
	Use    string           `json:"use,omitempty"` // usual | official | temp | secondary | old
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
}

// CodeableConcept represents a concept with text and codings.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Coding represents a code from a terminology system.
type Coding struct {
	System  string `json:"system,omitempty"`
	Version string `json:"version,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// Reference represents a reference to another resource.
type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Quantity represents a measured amount.
type Quantity struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	System string  `json:"system,omitempty"`
	Code   string  `json:"code,omitempty"`
}

// Range represents a range of values.
type Range struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
}

// Annotation represents a note or comment.
type Annotation struct {
	AuthorString string `json:"authorString,omitempty"`
	Text         string `json:"text"`
}

// HumanName represents a human name.
type HumanName struct {
	Use    string   `json:"use,omitempty"` // usual | official | temp | nickname | anonymous | old | maiden
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

// CodeableText returns a concept carrying only text.
func CodeableText(text string) CodeableConcept {
	return CodeableConcept{Text: text}
}

// Common code systems
const (
	SystemLOINC          = "http://loinc.org"
	SystemUCUM           = "http://unitsofmeasure.org"
	SystemObsCategory    = "http://terminology.hl7.org/CodeSystem/observation-category"
	SystemInterpretation = "http://terminology.hl7.org/CodeSystem/v3-ObservationInterpretation"
	SystemPatientID      = "urn:scaleneo:bilan:patient-id"
	SystemAssessmentID   = "urn:scaleneo:bilan:assessment-id"
	SystemScore          = "urn:scaleneo:bilan:score"
)

// Observation statuses and categories
const (
	StatusFinal       = "final"
	StatusPreliminary = "preliminary"

	CategorySurvey     = "survey"
	CategoryVitalSigns = "vital-signs"
	CategoryExam       = "exam"
)

// LOINC codes for the measurements carried by an assessment
const (
	LOINCPainSeverity = "72514-3"
	LOINCBodyWeight   = "29463-7"
	LOINCBodyHeight   = "8302-2"
	LOINCBMI          = "39156-5"
)
