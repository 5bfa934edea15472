package r5

import "strings"

// Patient represents a FHIR R5 Patient resource.
type Patient struct {
	ResourceType string       `json:"resourceType"`
	ID           string       `json:"id,omitempty"`
	Meta         *Meta        `json:"meta,omitempty"`
	Identifier   []Identifier `json:"identifier,omitempty"`
	Active       bool         `json:"active,omitempty"`
	Name         []HumanName  `json:"name,omitempty"`
	Gender       string       `json:"gender,omitempty"` // male | female | other | unknown
	BirthDate    string       `json:"birthDate,omitempty"`
}

// GetOfficialName returns the patient's official name, or first available.
func (p *Patient) GetOfficialName() *HumanName {
	return officialName(p.Name)
}

// GetFullName returns the patient's full name as a string.
func (p *Patient) GetFullName() string {
	return fullName(p.GetOfficialName())
}

// Practitioner represents a FHIR R5 Practitioner resource.
type Practitioner struct {
	ResourceType string       `json:"resourceType"`
	ID           string       `json:"id,omitempty"`
	Identifier   []Identifier `json:"identifier,omitempty"`
	Active       bool         `json:"active,omitempty"`
	Name         []HumanName  `json:"name,omitempty"`
}

// GetFullName returns the practitioner's full name as a string.
func (p *Practitioner) GetFullName() string {
	return fullName(officialName(p.Name))
}

// Observation represents a FHIR R5 Observation resource.
type Observation struct {
	ResourceType      string            `json:"resourceType"`
	ID                string            `json:"id,omitempty"`
	Identifier        []Identifier      `json:"identifier,omitempty"`
	Status            string            `json:"status"`
	Category          []CodeableConcept `json:"category,omitempty"`
	Code              CodeableConcept   `json:"code"`
	Subject           *Reference        `json:"subject,omitempty"`
	EffectiveDateTime string            `json:"effectiveDateTime,omitempty"`
	Performer         []Reference       `json:"performer,omitempty"`
	ValueQuantity     *Quantity         `json:"valueQuantity,omitempty"`
	ValueString       string            `json:"valueString,omitempty"`
	Interpretation    []CodeableConcept `json:"interpretation,omitempty"`
	Note              []Annotation      `json:"note,omitempty"`
	ReferenceRange    []ReferenceRange  `json:"referenceRange,omitempty"`
}

// ReferenceRange gives the valid range of an observation value.
type ReferenceRange struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
	Text string    `json:"text,omitempty"`
}

// Bundle represents a FHIR R5 Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Meta         *Meta         `json:"meta,omitempty"`
	Identifier   *Identifier   `json:"identifier,omitempty"`
	Type         string        `json:"type"` // document | message | transaction | collection | ...
	Timestamp    string        `json:"timestamp,omitempty"`
	Total        *int          `json:"total,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

// BundleEntry is one resource of a bundle.
type BundleEntry struct {
	FullURL  string `json:"fullUrl,omitempty"`
	Resource any    `json:"resource"`
}

// Add appends resource under the given URN.
func (b *Bundle) Add(fullURL string, resource any) {
	b.Entry = append(b.Entry, BundleEntry{FullURL: fullURL, Resource: resource})
}

// Observations returns the observation entries of b.
func (b *Bundle) Observations() []*Observation {
	var out []*Observation
	for _, e := range b.Entry {
		if o, ok := e.Resource.(*Observation); ok {
			out = append(out, o)
		}
	}
	return out
}

func officialName(names []HumanName) *HumanName {
	for i := range names {
		if names[i].Use == "official" {
			return &names[i]
		}
	}
	if len(names) > 0 {
		return &names[0]
	}
	return nil
}

func fullName(name *HumanName) string {
	if name == nil {
		return ""
	}
	if name.Text != "" {
		return name.Text
	}
	parts := append([]string{}, name.Given...)
	if name.Family != "" {
		parts = append(parts, name.Family)
	}
	return strings.Join(parts, " ")
}
