package export

import (
	"regexp"
	"strings"
	"time"

	"github.com/scaleneo/bilan/internal/record"
	"github.com/scaleneo/bilan/internal/textscan"
)

// DateLayout is the date layout of export filenames and FHIR dates.
const DateLayout = "2006-01-02"

var (
	nonAlnum    = regexp.MustCompile(`[^A-Za-z0-9]+`)
	dateLayouts = []string{DateLayout, "02/01/2006", "02-01-2006", "02.01.2006"}
)

// Filename returns "bilan_<subject>_<date>.<ext>", where subject is the
// patient name, else the patient id, else "patient".
func Filename(rec *record.Record, ext string, date time.Time) string {
	subject := "patient"
	for _, field := range []string{"nomPatient", "idPatient"} {
		if s := slug(rec.Get(record.SectionAdmin, field).Text()); s != "" {
			subject = s
			break
		}
	}
	return "bilan_" + subject + "_" + date.Format(DateLayout) + "." + strings.TrimPrefix(ext, ".")
}

func slug(s string) string {
	s = nonAlnum.ReplaceAllString(textscan.FoldAccents(strings.TrimSpace(s)), "_")
	return strings.Trim(s, "_")
}

// ParseDate reads an assessment date written either YYYY-MM-DD or in the
// French day-first form.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
