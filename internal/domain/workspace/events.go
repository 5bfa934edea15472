package workspace

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a workspace change.
type EventType string

const (
	EventRecordLoaded      EventType = "RecordLoaded"
	EventRecordExported    EventType = "RecordExported"
	EventAssessmentAdded   EventType = "AssessmentAdded"
	EventAssessmentRemoved EventType = "AssessmentRemoved"
	EventTimelineCleared   EventType = "TimelineCleared"
)

// Event is one entry of the workspace change log.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Version   int             `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func newEvent(t EventType, data json.RawMessage, at time.Time) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: at.UTC(),
		Data:      data,
	}
}

// RecordLoadedData describes a loaded document.
type RecordLoadedData struct {
	FileName string `json:"fileName,omitempty"`
	Format   string `json:"format"`
	Ready    bool   `json:"ready"`
	Bytes    int    `json:"bytes"`
}

// RecordExportedData describes an export.
type RecordExportedData struct {
	Format   string `json:"format"`
	FileName string `json:"fileName"`
}

// AssessmentData identifies an assessment added to or removed from the timeline.
type AssessmentData struct {
	ID    string `json:"id"`
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
}
