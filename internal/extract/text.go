package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scaleneo/bilan/internal/dictionary"
	"github.com/scaleneo/bilan/internal/record"
	"github.com/scaleneo/bilan/internal/textscan"
)

var (
	sectionHeader = regexp.MustCompile(`(?i)^=*\s*SECTION\s+(\d+)`)
	leadingChoice = regexp.MustCompile(`(?i)^(?:oui|non|yes|no)\b[\s,;.:-]*`)
)

// subfieldTokens reduce a pipe sub-field name to the generic token used to
// build "<primary label> <token>" lookups. Later entries override earlier ones.
var subfieldTokens = []struct {
	contains []string
	token    string
}{
	{[]string{"nrs", "score"}, "nrs"},
	{[]string{"localisation"}, "localisation"},
	{[]string{"détail"}, "détails"},
	{[]string{"met"}, "met"},
	{[]string{"debout"}, "debout"},
	{[]string{"marche"}, "marche"},
	{[]string{"scores"}, "scores"},
}

// textExtractor reads the line-oriented text form.
type textExtractor struct {
	dict *dictionary.Dictionary
}

func (x textExtractor) extract(text string, rec *record.Record) {
	var current *dictionary.Section
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			current = x.dict.Section(record.SectionID(n))
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case strings.Contains(line, ":"):
			x.keyValueLine(current, line, rec)
		case textscan.StartsWithCheckbox(line):
			x.checkboxLine(current, line, rec)
		default:
			if rule, n, ok := current.MatchPattern(line); ok {
				rec.Set(current.ID(), rule.Field, record.Number(n))
			}
		}
	}
}

func (x textExtractor) keyValueLine(sec *dictionary.Section, line string, rec *record.Record) {
	key, value, _ := strings.Cut(line, ":")
	rule, ok := sec.Match(strings.ToLower(strings.TrimSpace(key)))
	if !ok {
		return
	}

	segments := strings.Split(value, "|")
	boxes := textscan.Checkboxes(segments[0])
	remainder := x.tail(sec, rule, segments[1:], &boxes, rec)

	if len(boxes) > 0 {
		rec.Set(sec.ID(), rule.Field, decodeCheckboxes(rule, boxes, remainder))
		return
	}
	rec.Set(sec.ID(), rule.Field, joinParts(segments[0], remainder))
}

func (x textExtractor) checkboxLine(sec *dictionary.Section, line string, rec *record.Record) {
	segments := strings.Split(line, "|")
	rule, ok := sec.Match(strings.ToLower(segments[0]))
	if !ok {
		return
	}
	boxes := textscan.Checkboxes(segments[0])
	remainder := x.tail(sec, rule, segments[1:], &boxes, rec)
	rec.Set(sec.ID(), rule.Field, decodeCheckboxes(rule, boxes, remainder))
}

// tail walks the pipe segments after the primary value. Checkbox segments
// join the primary checkbox group, named sub-fields are routed to their own
// field, and whatever is left becomes free-text remainder.
func (x textExtractor) tail(sec *dictionary.Section, primary dictionary.Rule, segments []string, boxes *[]textscan.Checkbox, rec *record.Record) []string {
	var remainder []string
	for _, seg := range segments {
		s := strings.TrimSpace(seg)
		if s == "" {
			continue
		}
		if textscan.StartsWithCheckbox(s) {
			*boxes = append(*boxes, textscan.Checkboxes(s)...)
			continue
		}
		name, value, named := strings.Cut(s, ":")
		if x.subfield(sec, primary, name, value, named, rec) {
			continue
		}
		text := s
		if named {
			text = strings.TrimSpace(value)
		}
		if text != "" && !IsPlaceholder(text) {
			remainder = append(remainder, stripBrackets(text))
		}
	}
	return remainder
}

// subfield assigns a pipe sub-field to its canonical field. It never writes
// the primary field. Unnamed segments only match through the primary label,
// so free text naming another field stays in the remainder.
func (x textExtractor) subfield(sec *dictionary.Section, primary dictionary.Rule, name, value string, named bool, rec *record.Record) bool {
	fieldName := strings.ToLower(strings.TrimSpace(name))
	if fieldName == "" {
		return false
	}
	token := subfieldToken(fieldName)

	rule, ok := lookupContext(sec, primary.Label+" "+token)
	if !ok && named {
		rule, ok = lookupLoose(sec, token, fieldName)
	}
	if !ok || rule.Field == primary.Field {
		return false
	}
	rec.Set(sec.ID(), rule.Field, subfieldValue(value, named))
	return true
}

func subfieldToken(name string) string {
	token := name
	for _, t := range subfieldTokens {
		for _, c := range t.contains {
			if strings.Contains(name, c) {
				token = t.token
				break
			}
		}
	}
	return token
}

func lookupContext(sec *dictionary.Section, key string) (dictionary.Rule, bool) {
	if r, ok := sec.Label(key); ok {
		return r, true
	}
	for _, r := range sec.Rules() {
		if strings.Contains(r.Label, key) {
			return r, true
		}
	}
	return dictionary.Rule{}, false
}

// lookupLoose matches by containment in either direction. A multi-word
// label is never matched by a single-word token.
func lookupLoose(sec *dictionary.Section, token, fieldName string) (dictionary.Rule, bool) {
	tokenHasSpace := strings.Contains(token, " ")
	for _, r := range sec.Rules() {
		if strings.Contains(r.Label, " ") && !tokenHasSpace {
			continue
		}
		if strings.Contains(token, r.Label) || strings.Contains(r.Label, token) || strings.Contains(fieldName, r.Label) {
			return r, true
		}
	}
	return dictionary.Rule{}, false
}

func subfieldValue(value string, named bool) record.Value {
	if !named {
		return record.Bool(true)
	}
	if textscan.HasCheckbox(value) {
		return checkedList(textscan.Checked(textscan.Checkboxes(value)))
	}
	return Normalize(value)
}

// decodeCheckboxes turns a checkbox group into a value. A lone checkbox
// encodes presence or absence, with any label text and remainder kept as a
// composite detail. Several checkboxes yield the checked labels.
func decodeCheckboxes(rule dictionary.Rule, boxes []textscan.Checkbox, remainder []string) record.Value {
	if len(boxes) == 1 {
		b := boxes[0]
		details := remainder
		if label := boxDetail(b.Label, rule.Label); label != "" {
			details = append([]string{label}, remainder...)
		}
		if len(details) == 0 {
			return record.Bool(b.Checked)
		}
		return record.String(record.ComposeChoice(record.ChoiceLabel(b.Checked), details...))
	}

	checked := textscan.Checked(boxes)
	if len(checked) == 0 {
		return record.Null()
	}
	if len(remainder) == 0 {
		return checkedList(checked)
	}
	return record.String(record.ComposeChoice(strings.Join(checked, ", "), remainder...))
}

func checkedList(checked []string) record.Value {
	switch len(checked) {
	case 0:
		return record.Null()
	case 1:
		if b, ok := record.YesNo(checked[0]); ok {
			return record.Bool(b)
		}
	}
	return record.String(strings.Join(checked, ", "))
}

// boxDetail removes the field label and a leading yes/no token from a
// checkbox label.
func boxDetail(label, fieldLabel string) string {
	if fieldLabel != "" {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(fieldLabel))
		label = re.ReplaceAllString(label, "")
	}
	label = strings.Trim(label, " \t:-,;")
	label = leadingChoice.ReplaceAllString(label, "")
	return strings.TrimSpace(label)
}

// joinParts combines a plain value and its remainder. A single part is
// normalised; several parts stay a composite string.
func joinParts(head string, remainder []string) record.Value {
	var parts []string
	if v := Normalize(head); !v.IsNull() {
		parts = append(parts, partText(head, v))
	}
	parts = append(parts, remainder...)
	switch len(parts) {
	case 0:
		return record.Null()
	case 1:
		return Normalize(parts[0])
	default:
		return record.String(strings.Join(parts, record.CompositeSeparator))
	}
}

func partText(raw string, v record.Value) string {
	if b, ok := v.Boolean(); ok {
		return record.ChoiceLabel(b)
	}
	return stripBrackets(strings.TrimSpace(raw))
}
