package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/scaleneo/bilan/internal/record"
)

// Format is an export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatFHIR Format = "fhir"
)

// ErrUnknownFormat is returned by ParseFormat for an unsupported name.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatCSV, FormatXLSX, FormatJSON, FormatFHIR}
}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatFHIR:
		return "application/fhir+json"
	default:
		return "application/json"
	}
}

// Extension returns the file extension of f.
func (f Format) Extension() string {
	if f == FormatFHIR {
		return "fhir.json"
	}
	return string(f)
}

// Binary reports whether f produces non-text output.
func (f Format) Binary() bool { return f == FormatXLSX }

// ExportError reports an encoder failure.
type ExportError struct {
	Format Format
	Cause  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Format, e.Cause)
}

func (e *ExportError) Unwrap() error { return e.Cause }

// Write renders rec in format f. at dates the FHIR bundle.
func Write(w io.Writer, f Format, rec *record.Record, at time.Time) error {
	var err error
	switch f {
	case FormatCSV:
		err = WriteCSV(w, Flatten(rec))
	case FormatXLSX:
		err = WriteXLSX(w, Flatten(rec))
	case FormatJSON:
		err = WriteJSON(w, Flatten(rec))
	case FormatFHIR:
		err = encodeJSON(w, BuildBundle(rec, at))
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return &ExportError{Format: f, Cause: err}
	}
	return nil
}
