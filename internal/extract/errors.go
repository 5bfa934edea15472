package extract

import (
	"errors"
	"fmt"

	"github.com/scaleneo/bilan/internal/record"
)

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrRTFDocument   = errors.New("document is RTF; export it as plain text")
	ErrMalformedJSON = errors.New("malformed JSON document")
	ErrNoSections    = errors.New("JSON document has no recognisable section")
)

// ParseError reports a document that could not be extracted.
// No partial record accompanies it.
type ParseError struct {
	Format Format
	// Offset is the byte offset of a JSON syntax error, 0 when unknown.
	Offset int64
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("extract %s: %v (offset %d)", e.Format, e.Cause, e.Offset)
	}
	return fmt.Sprintf("extract %s: %v", e.Format, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ValidationError reports a document that parsed but lacks required data.
type ValidationError struct {
	Section record.SectionID
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Section.Name(), e.Reason)
}
