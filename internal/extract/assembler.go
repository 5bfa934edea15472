// Package extract turns a raw assessment document, either the text form or
// its JSON export, into a normalized patient record.
//
// Extraction is a pure function of the input bytes and the field dictionary:
// the same document always yields the same record.
package extract

import (
	"strings"

	"github.com/scaleneo/bilan/internal/analysis"
	"github.com/scaleneo/bilan/internal/dictionary"
	"github.com/scaleneo/bilan/internal/record"
	"github.com/scaleneo/bilan/internal/textscan"
)

// Format is the detected shape of a document.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Result is an extracted record and the format it was read from.
type Result struct {
	Record *record.Record
	Format Format
}

// Ready returns nil when the record is usable, a *ValidationError otherwise.
func (r *Result) Ready() error { return Validate(r.Record) }

// Assembler builds records from documents. It is safe for concurrent use.
type Assembler struct {
	dict *dictionary.Dictionary
	text textExtractor
	json jsonExtractor
}

// NewAssembler returns an assembler over dict, the default dictionary when nil.
func NewAssembler(dict *dictionary.Dictionary) *Assembler {
	if dict == nil {
		dict = dictionary.Default()
	}
	return &Assembler{
		dict: dict,
		text: textExtractor{dict: dict},
		json: jsonExtractor{dict: dict},
	}
}

var defaultAssembler = NewAssembler(nil)

// Extract assembles doc with the default dictionary.
func Extract(doc []byte) (*Result, error) {
	return defaultAssembler.Assemble(doc)
}

// Assemble detects the document format, runs the matching strategy and
// completes the record. Malformed input returns a *ParseError and no record.
func (a *Assembler) Assemble(doc []byte) (*Result, error) {
	text := textscan.Decode(doc)
	format, err := DetectFormat(text)
	if err != nil {
		return nil, err
	}

	rec := record.New()
	switch format {
	case FormatJSON:
		if err := a.json.extract([]byte(text), rec); err != nil {
			return nil, err
		}
	default:
		a.text.extract(text, rec)
	}

	a.dict.Fill(rec)
	a.coerce(rec)
	deriveIMC(rec)
	return &Result{Record: rec, Format: format}, nil
}

// DetectFormat classifies decoded text as JSON or the text form.
func DetectFormat(text string) (Format, error) {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return "", &ParseError{Format: FormatText, Cause: ErrEmptyDocument}
	case strings.HasPrefix(trimmed, `{\rtf`):
		return "", &ParseError{Format: FormatText, Cause: ErrRTFDocument}
	case strings.HasPrefix(trimmed, "{"):
		return FormatJSON, nil
	default:
		return FormatText, nil
	}
}

// Validate checks that the administrative section carries at least one value.
func Validate(rec *record.Record) error {
	if rec == nil || rec.Section(record.SectionAdmin).Empty() {
		return &ValidationError{
			Section: record.SectionAdmin,
			Reason:  "no administrative data found; check the SECTION 1 header and field labels",
		}
	}
	return nil
}

// coerce enforces the dictionary kinds: 1/0 become booleans on yes/no
// fields, numeric strings become numbers on numeric fields.
func (a *Assembler) coerce(rec *record.Record) {
	for _, id := range record.AllSections() {
		for _, rule := range a.dict.Section(id).Rules() {
			v := rec.Get(id, rule.Field)
			switch rule.Kind {
			case dictionary.KindBool:
				if b, ok := answer(v); ok {
					rec.Set(id, rule.Field, record.Bool(b))
				}
			case dictionary.KindNumber:
				rec.Set(id, rule.Field, coerceNumber(v))
			}
		}
	}
}

// deriveIMC fills imc from weight and height when absent, and the IMC category
// whenever imc is known.
func deriveIMC(rec *record.Record) {
	s := rec.Section(record.SectionAnthropo)
	if s.Get("imc").IsNull() {
		poids, okP := numeric(s.Get("poids"))
		taille, okT := numeric(s.Get("taille"))
		if okP && okT {
			if imc, ok := analysis.ComputeIMC(poids, taille); ok {
				rec.Set(record.SectionAnthropo, "imc", record.Number(imc))
			}
		}
	}
	if s.Get("imcCategorie").IsNull() {
		if imc, ok := numeric(s.Get("imc")); ok {
			rec.Set(record.SectionAnthropo, "imcCategorie", record.String(analysis.IMCCategory(imc).Label))
		}
	}
}

func numeric(v record.Value) (float64, bool) {
	if n, ok := v.Num(); ok {
		return n, true
	}
	if s, ok := v.Str(); ok {
		return ParseNumber(s)
	}
	return 0, false
}
