// Package workspace holds the state of one interactive session: the loaded
// assessment record, its raw document and the follow-up timeline.
//
// State is owned by the caller and changed only through Workspace methods,
// each of which appends an event to the change log.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/scaleneo/bilan/internal/analysis"
	"github.com/scaleneo/bilan/internal/export"
	"github.com/scaleneo/bilan/internal/extract"
	"github.com/scaleneo/bilan/internal/longitudinal"
	"github.com/scaleneo/bilan/internal/record"
	"github.com/scaleneo/bilan/internal/textscan"
)

// Status is the record state of a workspace.
type Status string

const (
	StatusEmpty Status = "empty"
	// StatusLoaded means a record is held but fails validation.
	StatusLoaded Status = "loaded"
	StatusReady  Status = "ready"
)

// ErrNoRecord is returned by operations that need a loaded record.
var ErrNoRecord = errors.New("no assessment loaded")

// LoadResult summarises a successful Load.
type LoadResult struct {
	Format extract.Format `json:"format"`
	Status Status         `json:"status"`
	// Warning carries the validation failure of a record that loaded but
	// is not ready.
	Warning string `json:"warning,omitempty"`
}

// Workspace is safe for concurrent use.
type Workspace struct {
	mu        sync.Mutex
	assembler *extract.Assembler
	status    Status
	rec       *record.Record
	raw       []byte
	fileName  string
	timeline  *longitudinal.Timeline
	version   int
	events    []*Event
	now       func() time.Time
	marshal   func(any) ([]byte, error)
}

// New returns an empty workspace.
func New() *Workspace {
	return &Workspace{
		assembler: extract.NewAssembler(nil),
		status:    StatusEmpty,
		timeline:  longitudinal.NewTimeline(),
		now:       time.Now,
		marshal:   json.Marshal,
	}
}

// Status returns the record state.
func (w *Workspace) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Version returns the number of changes applied.
func (w *Workspace) Version() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.version
}

// Events returns the change log.
func (w *Workspace) Events() []*Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Event, len(w.events))
	copy(out, w.events)
	return out
}

// Load extracts doc and replaces the held record. A parse failure leaves
// the workspace unchanged; a validation failure still loads the record.
func (w *Workspace) Load(fileName string, doc []byte) (LoadResult, error) {
	res, err := w.assembler.Assemble(doc)
	if err != nil {
		return LoadResult{}, err
	}

	out := LoadResult{Format: res.Format, Status: StatusReady}
	if err := res.Ready(); err != nil {
		out.Status = StatusLoaded
		out.Warning = err.Error()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record(EventRecordLoaded, RecordLoadedData{
		FileName: fileName,
		Format:   string(res.Format),
		Ready:    out.Status == StatusReady,
		Bytes:    len(doc),
	}); err != nil {
		return LoadResult{}, err
	}
	w.rec = res.Record
	w.raw = append([]byte(nil), doc...)
	w.fileName = fileName
	w.status = out.Status
	return out, nil
}

// Record returns a copy of the held record.
func (w *Workspace) Record() (*record.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rec == nil {
		return nil, ErrNoRecord
	}
	return w.rec.Clone(), nil
}

// Raw returns the decoded text of the loaded document.
func (w *Workspace) Raw() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rec == nil {
		return "", ErrNoRecord
	}
	return textscan.Decode(w.raw), nil
}

// Analyze interprets the held record.
func (w *Workspace) Analyze() (analysis.Report, error) {
	rec, err := w.Record()
	if err != nil {
		return analysis.Report{}, err
	}
	return analysis.Analyze(rec), nil
}

// Export writes the held record to out and returns the suggested filename.
func (w *Workspace) Export(out io.Writer, f export.Format) (string, error) {
	rec, err := w.Record()
	if err != nil {
		return "", err
	}
	at := w.clock()
	name := export.Filename(rec, f.Extension(), at)
	if err := export.Write(out, f, rec, at); err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record(EventRecordExported, RecordExportedData{Format: string(f), FileName: name}); err != nil {
		return "", err
	}
	return name, nil
}

// AddVisit reads the metrics of a visit report and adds it to the timeline.
func (w *Workspace) AddVisit(v longitudinal.Visit) (longitudinal.Assessment, error) {
	metrics := longitudinal.ExtractMetrics(textscan.Decode(v.Content))

	w.mu.Lock()
	defer w.mu.Unlock()
	a, err := w.timeline.Add(longitudinal.Assessment{
		FileName: v.FileName,
		Date:     v.Date,
		Label:    v.Label,
		Metrics:  metrics,
	})
	if err != nil {
		return longitudinal.Assessment{}, err
	}
	if err := w.record(EventAssessmentAdded, AssessmentData{ID: a.ID, Date: a.Date, Label: a.Label}); err != nil {
		w.timeline.Remove(a.ID)
		return longitudinal.Assessment{}, err
	}
	return a, nil
}

// RemoveAssessment deletes an assessment and reports whether it existed.
// The timeline is unchanged when the event cannot be recorded.
func (w *Workspace) RemoveAssessment(id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.timeline.Has(id) {
		return false, nil
	}
	e, err := w.event(EventAssessmentRemoved, AssessmentData{ID: id})
	if err != nil {
		return false, err
	}
	w.timeline.Remove(id)
	w.commit(e)
	return true, nil
}

// ClearAssessments empties the timeline.
func (w *Workspace) ClearAssessments() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, err := w.event(EventTimelineCleared, struct{}{})
	if err != nil {
		return err
	}
	w.timeline.Clear()
	w.commit(e)
	return nil
}

// Assessments returns the timeline in date order.
func (w *Workspace) Assessments() []longitudinal.Assessment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timeline.All()
}

// Trends evaluates the timeline.
func (w *Workspace) Trends() []longitudinal.Trend {
	return longitudinal.Trends(w.Assessments())
}

// record appends an event. Callers hold w.mu.
func (w *Workspace) record(t EventType, data any) error {
	e, err := w.event(t, data)
	if err != nil {
		return err
	}
	w.commit(e)
	return nil
}

func (w *Workspace) event(t EventType, data any) (*Event, error) {
	raw, err := w.marshal(data)
	if err != nil {
		return nil, fmt.Errorf("record %s event: %w", t, err)
	}
	return newEvent(t, raw, w.now()), nil
}

func (w *Workspace) commit(e *Event) {
	w.version++
	e.Version = w.version
	w.events = append(w.events, e)
}

func (w *Workspace) clock() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now()
}
