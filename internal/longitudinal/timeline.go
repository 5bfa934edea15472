package longitudinal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the layout of assessment dates.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned for an assessment date not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("invalid assessment date")

// Assessment is one dated visit and the measures read from its report.
type Assessment struct {
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	Label    string  `json:"label"`
	FileName string  `json:"fileName"`
	Metrics  Metrics `json:"metrics"`
}

// Timeline is the date-ordered list of assessments of one patient.
// It is not safe for concurrent use.
type Timeline struct {
	assessments []Assessment
	now         func() time.Time
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{now: time.Now}
}

// Add inserts a and keeps the list sorted by date, visits on the same day
// staying in insertion order. An empty id gets a generated one, an empty
// label "Suivi N" and an empty date today's date.
func (t *Timeline) Add(a Assessment) (Assessment, error) {
	if a.Date == "" {
		a.Date = t.clock().Format(DateLayout)
	}
	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return Assessment{}, fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, a.Date)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Label == "" {
		a.Label = "Suivi " + strconv.Itoa(len(t.assessments)+1)
	}
	if a.Metrics == nil {
		a.Metrics = Metrics{}
	}

	t.assessments = append(t.assessments, a)
	sort.SliceStable(t.assessments, func(i, j int) bool {
		return t.assessments[i].Date < t.assessments[j].Date
	})
	return a, nil
}

// Remove deletes the assessment with the given id and reports whether it
// was present.
func (t *Timeline) Remove(id string) bool {
	for i, a := range t.assessments {
		if a.ID == id {
			t.assessments = append(t.assessments[:i], t.assessments[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether an assessment with the given id is present.
func (t *Timeline) Has(id string) bool {
	for _, a := range t.assessments {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Clear removes every assessment.
func (t *Timeline) Clear() { t.assessments = nil }

// Len returns the number of assessments.
func (t *Timeline) Len() int { return len(t.assessments) }

// All returns a copy of the assessments in date order.
func (t *Timeline) All() []Assessment {
	out := make([]Assessment, len(t.assessments))
	copy(out, t.assessments)
	return out
}

func (t *Timeline) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}
