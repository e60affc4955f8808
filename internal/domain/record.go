package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SensorKind identifies one of the four sensor subsystems and its display list.
type SensorKind string

const (
	KindActivity   SensorKind = "activity"
	KindPlaces     SensorKind = "places"
	KindSteps      SensorKind = "steps"
	KindTrackPoint SensorKind = "trackpoints"
)

// SensorKinds lists every kind in fetch order.
var SensorKinds = []SensorKind{KindActivity, KindPlaces, KindSteps, KindTrackPoint}

// ParseSensorKind validates a kind name.
func ParseSensorKind(s string) (SensorKind, bool) {
	for _, k := range SensorKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Field is one labelled value of a DisplayRecord.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Step categories.
const (
	CategoryWalking = "walking"
	CategoryRunning = "running"
)

// DisplayRecord is a display-ready projection of one sensor reading.
// Category is only set for step records.
type DisplayRecord struct {
	Title    string  `json:"title"`
	Category string  `json:"category,omitempty"`
	Fields   []Field `json:"fields"`
}

// Value returns the value of the first field with the given label.
func (r DisplayRecord) Value(label string) (string, bool) {
	for _, f := range r.Fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return "", false
}

// ViewItem is a DisplayRecord bound into an ordered collection.
type ViewItem struct {
	ID       uuid.UUID     `json:"id"`
	Kind     SensorKind    `json:"kind"`
	Position int           `json:"position"`
	Record   DisplayRecord `json:"record"`
}

// RecordStore holds the ordered display collections, one per SensorKind.
type RecordStore interface {
	Append(ctx context.Context, kind SensorKind, items []ViewItem) error
	List(ctx context.Context, kind SensorKind) ([]ViewItem, error)
	Len(ctx context.Context, kind SensorKind) (int, error)
	Clear(ctx context.Context) error
}

// RefreshReport summarizes one population pass over all four collections.
type RefreshReport struct {
	ID             uuid.UUID          `json:"id"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	Counts         map[SensorKind]int `json:"counts"`
	DuplicateSteps int                `json:"duplicate_steps"`
	Failures       []string           `json:"failures,omitempty"`
}

// RefreshArchive persists refresh reports together with the records they produced.
type RefreshArchive interface {
	Save(ctx context.Context, report RefreshReport, records map[SensorKind][]DisplayRecord) error
	Recent(ctx context.Context, limit int) ([]RefreshReport, error)
	Records(ctx context.Context, reportID uuid.UUID, kind SensorKind) ([]DisplayRecord, error)
}
