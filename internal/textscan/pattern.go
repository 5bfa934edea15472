package textscan

import (
	"regexp"
	"strconv"
	"strings"
)

// LabelPattern describes a "label (… range): value" line, for example
// "ODI Score (Oswestry Disability Index, 0-100): 42". Label is a regular
// expression fragment; Range, when set, is the literal range annotation
// closing the parenthesis before the value.
type LabelPattern struct {
	Label   string
	Range   string
	Decimal bool
}

// Compile builds the case-insensitive capture pattern for p. The first group
// captures the number.
func (p LabelPattern) Compile() *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?i)`)
	b.WriteString(p.Label)
	if p.Range != "" {
		b.WriteString(`.*`)
		b.WriteString(regexp.QuoteMeta(p.Range))
		b.WriteString(`\)`)
	}
	b.WriteString(`\s*[:=\s]+`)
	if p.Decimal {
		b.WriteString(`(\d+\.?\d*)`)
	} else {
		b.WriteString(`(\d+)`)
	}
	return regexp.MustCompile(b.String())
}

// FirstNumber returns the number captured by re in s.
func FirstNumber(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(m[1], "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
