package record

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SectionID numbers the fixed sections of a patient record, 1 to 18.
type SectionID int

// SectionCount is the number of sections in a record.
const SectionCount = 18

const (
	SectionAdmin SectionID = iota + 1
	SectionAnthropo
	SectionPathologie
	SectionSymptomes
	SectionMecanismes
	SectionTests
	SectionScores
	SectionRedFlags
	SectionMecanismesResume
	SectionGestion
	SectionPerspectives
	SectionPronostic
	SectionActivites
	SectionFacteurs
	SectionSatisfaction
	SectionObservations
	SectionHypothese
	SectionQualite
)

var sectionNames = [SectionCount]string{
	"admin", "anthropo", "pathologie", "symptomes", "mecanismes", "tests",
	"scores", "redFlags", "mecanismesResume", "gestion", "perspectives", "pronostic",
	"activites", "facteurs", "satisfaction", "observations", "hypothese", "qualite",
}

var sectionTitles = [SectionCount]string{
	"Informations administratives",
	"Anthropométrie",
	"Histoire de la pathologie",
	"Symptômes",
	"Mécanismes de la douleur",
	"Tests cliniques",
	"Scores et questionnaires",
	"Drapeaux rouges",
	"Synthèse des mécanismes",
	"Prise en charge",
	"Perspectives du patient",
	"Pronostic",
	"Activités et participation",
	"Facteurs contributifs",
	"Satisfaction",
	"Observations",
	"Hypothèse clinique",
	"Qualité des données",
}

// AllSections lists every section in order.
func AllSections() []SectionID {
	ids := make([]SectionID, SectionCount)
	for i := range ids {
		ids[i] = SectionID(i + 1)
	}
	return ids
}

// Valid reports whether id is in 1..18.
func (id SectionID) Valid() bool { return id >= 1 && id <= SectionCount }

// Key returns the positional key, e.g. "section7".
func (id SectionID) Key() string { return "section" + strconv.Itoa(int(id)) }

// Name returns the semantic key, e.g. "scores".
func (id SectionID) Name() string {
	if !id.Valid() {
		return ""
	}
	return sectionNames[id-1]
}

// Title returns the French display title.
func (id SectionID) Title() string {
	if !id.Valid() {
		return ""
	}
	return sectionTitles[id-1]
}

// Category returns the export block name, e.g. "REDFLAGS".
func (id SectionID) Category() string { return strings.ToUpper(id.Name()) }

func (id SectionID) String() string { return id.Key() }

// ParseSectionID resolves "section7", "7" or "scores" to a section.
func ParseSectionID(s string) (SectionID, error) {
	t := strings.TrimSpace(s)
	if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(t), "section")); err == nil {
		id := SectionID(n)
		if id.Valid() {
			return id, nil
		}
		return 0, fmt.Errorf("section %d out of range", n)
	}
	for i, name := range sectionNames {
		if strings.EqualFold(name, t) {
			return SectionID(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown section %q", s)
}

// Section maps canonical field identifiers to values.
type Section map[string]Value

// Get returns the value of field, null when absent.
func (s Section) Get(field string) Value { return s[field] }

// Empty reports whether every field of s is null.
func (s Section) Empty() bool {
	for _, v := range s {
		if !v.IsNull() {
			return false
		}
	}
	return true
}

// SortedFields returns the field identifiers of s in lexical order.
func (s Section) SortedFields() []string {
	fields := make([]string, 0, len(s))
	for f := range s {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
