package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

// Record is a patient record made of 18 sections.
type Record struct {
	sections [SectionCount]Section
}

// New returns a record with all 18 sections initialised empty.
func New() *Record {
	r := &Record{}
	for i := range r.sections {
		r.sections[i] = Section{}
	}
	return r
}

// Section returns the section with the given id, nil for an invalid id.
func (r *Record) Section(id SectionID) Section {
	if !id.Valid() {
		return nil
	}
	return r.sections[id-1]
}

// Get returns a field value, null when the section or field is absent.
func (r *Record) Get(id SectionID, field string) Value {
	return r.Section(id).Get(field)
}

// Set stores a field value. Invalid section ids are ignored.
func (r *Record) Set(id SectionID, field string, v Value) {
	if !id.Valid() {
		return
	}
	if r.sections[id-1] == nil {
		r.sections[id-1] = Section{}
	}
	r.sections[id-1][field] = v
}

// Has reports whether field is present in section id.
func (r *Record) Has(id SectionID, field string) bool {
	_, ok := r.Section(id)[field]
	return ok
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := New()
	for i, s := range r.sections {
		for f, v := range s {
			c.sections[i][f] = v
		}
	}
	return c
}

// Values calls fn for every field in section order, fields sorted within a section.
func (r *Record) Values(fn func(id SectionID, field string, v Value)) {
	for _, id := range AllSections() {
		s := r.Section(id)
		for _, f := range s.SortedFields() {
			fn(id, f, s[f])
		}
	}
}

// MarshalJSON writes the sections as "section1".."section18" in order with
// sorted field keys, so equal records always encode to identical bytes.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range AllSections() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := marshalString(id.Key())
		buf.Write(key)
		buf.WriteByte(':')
		if err := writeSection(&buf, r.Section(id)); err != nil {
			return nil, fmt.Errorf("%s: %w", id.Key(), err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeSection(buf *bytes.Buffer, s Section) error {
	buf.WriteByte('{')
	for i, f := range s.SortedFields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalString(f)
		if err != nil {
			return err
		}
		val, err := s[f].MarshalJSON()
		if err != nil {
			return fmt.Errorf("field %s: %w", f, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON accepts sections keyed either "sectionN" or by semantic name.
// Unknown top-level keys are ignored.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = *New()
	for key, fields := range raw {
		id, err := ParseSectionID(key)
		if err != nil {
			continue
		}
		for f, v := range fields {
			r.Set(id, f, v)
		}
	}
	return nil
}

// MarshalYAML renders the record with the same ordering as MarshalJSON.
func (r *Record) MarshalYAML() (any, error) {
	out := make(yaml.MapSlice, 0, SectionCount)
	for _, id := range AllSections() {
		s := r.Section(id)
		fields := make(yaml.MapSlice, 0, len(s))
		for _, f := range s.SortedFields() {
			fields = append(fields, yaml.MapItem{Key: f, Value: s[f].Interface()})
		}
		out = append(out, yaml.MapItem{Key: id.Key(), Value: fields})
	}
	return out, nil
}
