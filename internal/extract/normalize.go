package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scaleneo/bilan/internal/record"
)

// Placeholder is the form's marker for a field left blank.
const Placeholder = "À remplir"

var (
	unitSuffix    = regexp.MustCompile(`(?i)\s*(?:ans|years|kg|cm)\.?\s*$`)
	decimalNumber = regexp.MustCompile(`^[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?$`)
	commaDecimal  = regexp.MustCompile(`^[-+]?\d+,\d+$`)
)

// Normalize converts a raw captured string into a typed value:
// bracket stripping, placeholder to null, yes/no tokens to booleans,
// unit stripping with numeric coercion, and the trimmed string otherwise.
func Normalize(raw string) record.Value {
	v := stripBrackets(strings.TrimSpace(raw))
	if v == "" || IsPlaceholder(v) {
		return record.Null()
	}
	if b, ok := record.YesNo(v); ok {
		return record.Bool(b)
	}
	if n, ok := ParseNumber(v); ok {
		return record.Number(n)
	}
	return record.String(v)
}

// IsPlaceholder reports whether s contains the blank-field marker.
func IsPlaceholder(s string) bool {
	return strings.Contains(strings.ToLower(s), "à remplir")
}

// ParseNumber strips a known unit suffix and parses what remains when it
// is a clean number. A single decimal comma is accepted.
func ParseNumber(s string) (float64, bool) {
	t := strings.TrimSpace(unitSuffix.ReplaceAllString(strings.TrimSpace(s), ""))
	if t == "" || strings.ContainsAny(t, " \t") {
		return 0, false
	}
	if commaDecimal.MatchString(t) {
		t = strings.Replace(t, ",", ".", 1)
	}
	if !decimalNumber.MatchString(t) {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func stripBrackets(s string) string {
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
