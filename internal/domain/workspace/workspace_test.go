package workspace

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaleneo/bilan/internal/export"
	"github.com/scaleneo/bilan/internal/extract"
	"github.com/scaleneo/bilan/internal/longitudinal"
	"github.com/scaleneo/bilan/internal/record"
)

const bilan = `=== SECTION 1 ===
Nom et prénom: Dupont Marie
ID patient: P-0042
=== SECTION 7 ===
ODI Score (0-100): 38
`

func fixedWorkspace() *Workspace {
	w := New()
	w.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	return w
}

// ---------------------------------------------------------------------------
// Record lifecycle
// ---------------------------------------------------------------------------

func TestEmptyWorkspace(t *testing.T) {
	w := New()
	assert.Equal(t, StatusEmpty, w.Status())

	_, err := w.Record()
	assert.ErrorIs(t, err, ErrNoRecord)
	_, err = w.Analyze()
	assert.ErrorIs(t, err, ErrNoRecord)
	_, err = w.Export(&bytes.Buffer{}, export.FormatCSV)
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestLoadAndAnalyze(t *testing.T) {
	w := fixedWorkspace()
	res, err := w.Load("bilan.txt", []byte(bilan))
	require.NoError(t, err)
	assert.Equal(t, extract.FormatText, res.Format)
	assert.Equal(t, StatusReady, res.Status)
	assert.Empty(t, res.Warning)

	rec, err := w.Record()
	require.NoError(t, err)
	assert.Equal(t, record.String("Dupont Marie"), rec.Get(record.SectionAdmin, "nomPatient"))

	report, err := w.Analyze()
	require.NoError(t, err)
	require.Len(t, report.Scores, 1)
	assert.Equal(t, "Léger", report.Scores[0].Level.Label)

	raw, err := w.Raw()
	require.NoError(t, err)
	assert.Equal(t, bilan, raw)
}

func TestRecordIsACopy(t *testing.T) {
	w := fixedWorkspace()
	_, err := w.Load("", []byte(bilan))
	require.NoError(t, err)

	rec, _ := w.Record()
	rec.Set(record.SectionAdmin, "nomPatient", record.String("changed"))

	again, _ := w.Record()
	assert.Equal(t, record.String("Dupont Marie"), again.Get(record.SectionAdmin, "nomPatient"))
}

func TestLoadWithoutAdminIsNotReady(t *testing.T) {
	w := fixedWorkspace()
	res, err := w.Load("", []byte("=== SECTION 7 ===\nODI Score (0-100): 38\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusLoaded, res.Status)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, StatusLoaded, w.Status())
}

func TestParseFailureKeepsPreviousRecord(t *testing.T) {
	w := fixedWorkspace()
	_, err := w.Load("", []byte(bilan))
	require.NoError(t, err)

	_, err = w.Load("", []byte(`{\rtf1 ...}`))
	var perr *extract.ParseError
	require.True(t, errors.As(err, &perr))

	assert.Equal(t, StatusReady, w.Status())
	assert.Equal(t, 1, w.Version())
}

func TestExport(t *testing.T) {
	w := fixedWorkspace()
	_, err := w.Load("", []byte(bilan))
	require.NoError(t, err)

	var buf bytes.Buffer
	name, err := w.Export(&buf, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "bilan_Dupont_Marie_2024-03-15.csv", name)
	assert.Contains(t, buf.String(), "=== ADMIN ===")

	events := w.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventRecordLoaded, events[0].Type)
	assert.Equal(t, EventRecordExported, events[1].Type)
	assert.Equal(t, 2, events[1].Version)
}

// ---------------------------------------------------------------------------
// Timeline
// ---------------------------------------------------------------------------

func TestTimelineOperations(t *testing.T) {
	w := fixedWorkspace()

	first, err := w.AddVisit(longitudinal.Visit{FileName: "v1.txt", Date: "2024-01-10", Content: []byte("ODI Score (0-100): 42\n")})
	require.NoError(t, err)
	second, err := w.AddVisit(longitudinal.Visit{FileName: "v2.txt", Date: "2024-02-10", Content: []byte("ODI Score (0-100): 28\n")})
	require.NoError(t, err)
	assert.Equal(t, "Suivi 1", first.Label)
	assert.Equal(t, "Suivi 2", second.Label)

	trends := w.Trends()
	require.Len(t, trends, 1)
	assert.Equal(t, -14.0, trends[0].Diff)
	assert.True(t, trends[0].Significant)

	_, err = w.AddVisit(longitudinal.Visit{Date: "10/02/2024"})
	assert.ErrorIs(t, err, longitudinal.ErrInvalidDate)

	removed, err := w.RemoveAssessment(first.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = w.RemoveAssessment(first.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, w.Assessments(), 1)

	require.NoError(t, w.ClearAssessments())
	assert.Empty(t, w.Assessments())

	var types []EventType
	for _, e := range w.Events() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{
		EventAssessmentAdded, EventAssessmentAdded, EventAssessmentRemoved, EventTimelineCleared,
	}, types)
}

func TestTimelineUnchangedWhenEventFails(t *testing.T) {
	w := fixedWorkspace()
	a, err := w.AddVisit(longitudinal.Visit{Date: "2024-01-10", Content: []byte("ODI Score (0-100): 42\n")})
	require.NoError(t, err)

	w.marshal = func(any) ([]byte, error) { return nil, errors.New("encode failed") }

	removed, err := w.RemoveAssessment(a.ID)
	assert.Error(t, err)
	assert.False(t, removed)
	assert.Error(t, w.ClearAssessments())
	_, err = w.AddVisit(longitudinal.Visit{Date: "2024-02-10"})
	assert.Error(t, err)

	assert.Len(t, w.Assessments(), 1)
	assert.Len(t, w.Events(), 1)
	assert.Equal(t, 1, w.Version())
}
