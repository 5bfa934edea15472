// Package dictionary declares the field dictionary of the assessment form:
// for each of the 18 sections, the labels found in the text form, the JSON
// source keys, and the canonical field identifiers they map to.
package dictionary

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/scaleneo/bilan/internal/record"
	"github.com/scaleneo/bilan/internal/textscan"
)

// Kind is the expected shape of a field's value.
type Kind uint8

const (
	KindText Kind = iota
	KindNumber
	KindBool
)

// Rule maps a form label to a canonical field.
type Rule struct {
	// Label is matched as a lowercase substring of a line's key.
	Label string
	// Field is the canonical field identifier.
	Field string
	Kind  Kind
	// Source is the snake_case JSON key; derived from Field when empty.
	Source string
	// Pattern, when set, also captures the value from lines without a colon.
	Pattern *textscan.LabelPattern
}

// Priority is the rule's specificity: longer labels win.
func (r Rule) Priority() int { return utf8.RuneCountInString(r.Label) }

// SourceKey returns the JSON source key of the rule.
func (r Rule) SourceKey() string {
	if r.Source != "" {
		return r.Source
	}
	return SnakeCase(r.Field)
}

// Section is the ordered rule table of one record section.
type Section struct {
	id       record.SectionID
	rules    []Rule
	ordered  []int
	byLabel  map[string]int
	byField  map[string]int
	patterns []compiledPattern
}

type compiledPattern struct {
	rule int
	re   *regexp.Regexp
}

func newSection(id record.SectionID, rules []Rule) *Section {
	s := &Section{
		id:      id,
		rules:   rules,
		ordered: make([]int, len(rules)),
		byLabel: make(map[string]int, len(rules)),
		byField: make(map[string]int, len(rules)),
	}
	for i, r := range rules {
		s.ordered[i] = i
		s.byLabel[r.Label] = i
		s.byField[r.Field] = i
		if r.Pattern != nil {
			s.patterns = append(s.patterns, compiledPattern{rule: i, re: r.Pattern.Compile()})
		}
	}
	sort.SliceStable(s.ordered, func(a, b int) bool {
		return rules[s.ordered[a]].Priority() > rules[s.ordered[b]].Priority()
	})
	return s
}

// ID returns the section id.
func (s *Section) ID() record.SectionID { return s.id }

// Rules returns the rules in declaration order.
func (s *Section) Rules() []Rule { return s.rules }

// Fields returns the canonical fields in declaration order.
func (s *Section) Fields() []string {
	fields := make([]string, len(s.rules))
	for i, r := range s.rules {
		fields[i] = r.Field
	}
	return fields
}

// Match returns the most specific rule whose label occurs in key. key must
// already be lowercase.
func (s *Section) Match(key string) (Rule, bool) {
	for _, i := range s.ordered {
		if strings.Contains(key, s.rules[i].Label) {
			return s.rules[i], true
		}
	}
	return Rule{}, false
}

// Label returns the rule with exactly this label.
func (s *Section) Label(label string) (Rule, bool) {
	i, ok := s.byLabel[label]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

// Field returns the rule of a canonical field.
func (s *Section) Field(field string) (Rule, bool) {
	i, ok := s.byField[field]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

// MatchPattern runs the section's range-annotated patterns against line.
func (s *Section) MatchPattern(line string) (Rule, float64, bool) {
	for _, p := range s.patterns {
		if n, ok := textscan.FirstNumber(p.re, line); ok {
			return s.rules[p.rule], n, true
		}
	}
	return Rule{}, 0, false
}

// Dictionary is the complete field dictionary. It is immutable after New.
type Dictionary struct {
	sections [record.SectionCount]*Section
	owner    map[string]record.SectionID
}

// New builds a dictionary from per-section rules. Every field identifier
// must be unique across the dictionary and every label unique in its section.
func New(tables map[record.SectionID][]Rule) (*Dictionary, error) {
	d := &Dictionary{owner: make(map[string]record.SectionID)}
	for _, id := range record.AllSections() {
		rules := tables[id]
		labels := make(map[string]bool, len(rules))
		for _, r := range rules {
			if r.Label == "" || r.Field == "" {
				return nil, fmt.Errorf("%s: rule with empty label or field", id)
			}
			if r.Label != strings.ToLower(r.Label) {
				return nil, fmt.Errorf("%s: label %q must be lowercase", id, r.Label)
			}
			if labels[r.Label] {
				return nil, fmt.Errorf("%s: duplicate label %q", id, r.Label)
			}
			labels[r.Label] = true
			if prev, dup := d.owner[r.Field]; dup {
				return nil, fmt.Errorf("field %q declared in %s and %s", r.Field, prev, id)
			}
			d.owner[r.Field] = id
		}
		d.sections[id-1] = newSection(id, rules)
	}
	return d, nil
}

// Section returns the rule table of a section, nil for an invalid id.
func (d *Dictionary) Section(id record.SectionID) *Section {
	if !id.Valid() {
		return nil
	}
	return d.sections[id-1]
}

// Owner returns the section that declares field.
func (d *Dictionary) Owner(field string) (record.SectionID, bool) {
	id, ok := d.owner[field]
	return id, ok
}

// Fill sets every declared field missing from rec to null.
func (d *Dictionary) Fill(rec *record.Record) {
	for _, s := range d.sections {
		for _, r := range s.rules {
			if !rec.Has(s.id, r.Field) {
				rec.Set(s.id, r.Field, record.Null())
			}
		}
	}
}

// SnakeCase converts a canonical identifier to its JSON source key:
// "nrsRepos" becomes "nrs_repos", "scoreIPAQ_MET" becomes "score_ipaq_met".
func SnakeCase(field string) string {
	var b strings.Builder
	rs := []rune(field)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(rs[i-1]) || unicode.IsDigit(rs[i-1]))
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			prevUpper := i > 0 && unicode.IsUpper(rs[i-1])
			if i > 0 && rs[i-1] != '_' && (prevLower || (prevUpper && nextLower)) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
