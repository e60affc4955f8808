package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
	"github.com/tompaana/sensorcore-explorer/internal/projection"
)

const (
	// DefaultLookback is how far back activity and step history is requested.
	DefaultLookback = 10 * 24 * time.Hour

	// fullSpan covers every representable instant after the zero time.
	fullSpan = time.Duration(math.MaxInt64)
)

// Fetcher pulls reading history from the sensor handles and projects it into
// display records.
type Fetcher struct {
	clock    clockwork.Clock
	lookback time.Duration
	limit    int
}

// NewFetcher creates a fetcher. Non-positive lookback or limit fall back to
// DefaultLookback and projection.DefaultMaxRecords.
func NewFetcher(clock clockwork.Clock, lookback time.Duration, limit int) *Fetcher {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if limit <= 0 {
		limit = projection.DefaultMaxRecords
	}
	return &Fetcher{clock: clock, lookback: lookback, limit: limit}
}

// Window returns the history window ending now.
func (f *Fetcher) Window() (time.Time, time.Duration) {
	return f.clock.Now().Add(-f.lookback), f.lookback
}

func (f *Fetcher) Activity(ctx context.Context, m domain.ActivityMonitor) ([]domain.DisplayRecord, error) {
	start, span := f.Window()
	readings, err := m.ActivityHistory(ctx, start, span)
	if err != nil {
		return nil, fmt.Errorf("activity history: %w", err)
	}
	return projection.Activity(readings, f.limit), nil
}

// Places lists every known place; places are not capped.
func (f *Fetcher) Places(ctx context.Context, m domain.PlaceMonitor) ([]domain.DisplayRecord, error) {
	places, err := m.KnownPlaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("known places: %w", err)
	}
	return projection.Places(places), nil
}

func (f *Fetcher) Steps(ctx context.Context, m domain.StepCounter) (projection.StepResult, error) {
	start, span := f.Window()
	readings, err := m.StepCountHistory(ctx, start, span)
	if err != nil {
		return projection.StepResult{}, fmt.Errorf("step count history: %w", err)
	}
	return projection.Steps(readings, f.limit), nil
}

// TrackPoints queries the whole recorded range rather than the lookback window.
func (f *Fetcher) TrackPoints(ctx context.Context, m domain.TrackPointMonitor) ([]domain.DisplayRecord, error) {
	points, err := m.TrackPoints(ctx, time.Time{}, fullSpan)
	if err != nil {
		return nil, fmt.Errorf("track points: %w", err)
	}
	return projection.TrackPoints(points, f.limit), nil
}
