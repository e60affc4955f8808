package projection

import (
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// DefaultMaxRecords caps every bounded display list.
const DefaultMaxRecords = 50

// Field labels.
const (
	LabelMode         = "Mode"
	LabelCount        = "Count"
	LabelTime         = "Time"
	LabelLengthOfStay = "Length of stay"
	LabelPosition     = "Position"
	LabelRadius       = "Radius"
)

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultMaxRecords
	}
	return limit
}

// bounded projects each input in order, stopping once limit records exist.
// A negative limit disables the cap.
func bounded[T any](in []T, limit int, fn func(T) domain.DisplayRecord) []domain.DisplayRecord {
	size := len(in)
	if limit >= 0 && limit < size {
		size = limit
	}
	out := make([]domain.DisplayRecord, 0, size)
	for _, v := range in {
		if limit >= 0 && len(out) >= limit {
			break
		}
		out = append(out, fn(v))
	}
	return out
}

// Activity projects activity readings, emitting at most limit records
// (DefaultMaxRecords when limit <= 0).
func Activity(readings []domain.ActivityReading, limit int) []domain.DisplayRecord {
	return bounded(readings, effectiveLimit(limit), ActivityRecord)
}

// ActivityRecord projects a single activity reading.
func ActivityRecord(r domain.ActivityReading) domain.DisplayRecord {
	return domain.DisplayRecord{
		Title: "Activity, " + FormatTimestamp(r.Timestamp),
		Fields: []domain.Field{
			{Label: LabelMode, Value: r.Mode.String()},
		},
	}
}

// TrackPoints projects track points, emitting at most limit records
// (DefaultMaxRecords when limit <= 0).
func TrackPoints(points []domain.TrackPoint, limit int) []domain.DisplayRecord {
	return bounded(points, effectiveLimit(limit), TrackPointRecord)
}

// TrackPointRecord projects a single track point.
func TrackPointRecord(p domain.TrackPoint) domain.DisplayRecord {
	return domain.DisplayRecord{
		Title: "Track point, " + FormatTimestamp(p.Timestamp),
		Fields: []domain.Field{
			{Label: LabelLengthOfStay, Value: FormatDuration(p.LengthOfStay)},
			{Label: LabelPosition, Value: FormatPosition(p.Position)},
			{Label: LabelRadius, Value: FormatFloat(p.Radius)},
		},
	}
}

// Places projects every known place. There is no cap.
func Places(places []domain.Place) []domain.DisplayRecord {
	return bounded(places, -1, PlaceRecord)
}

// PlaceRecord projects a single place.
func PlaceRecord(p domain.Place) domain.DisplayRecord {
	return domain.DisplayRecord{
		Title: FormatInt(p.ID) + ": " + p.Kind.String(),
		Fields: []domain.Field{
			{Label: LabelPosition, Value: FormatPosition(p.Position)},
			{Label: LabelRadius, Value: FormatFloat(p.Radius)},
		},
	}
}
