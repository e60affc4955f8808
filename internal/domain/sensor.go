package domain

import (
	"context"
	"time"
)

// SensorHandle is the activation surface shared by all sensor monitors.
type SensorHandle interface {
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}

type ActivityMonitor interface {
	SensorHandle
	ActivityHistory(ctx context.Context, start time.Time, span time.Duration) ([]ActivityReading, error)
}

type PlaceMonitor interface {
	SensorHandle
	KnownPlaces(ctx context.Context) ([]Place, error)
}

type StepCounter interface {
	SensorHandle
	StepCountHistory(ctx context.Context, start time.Time, span time.Duration) ([]StepReading, error)
}

type TrackPointMonitor interface {
	SensorHandle
	TrackPoints(ctx context.Context, start time.Time, span time.Duration) ([]TrackPoint, error)
}

// SettingsPage identifies a device settings screen the user can be sent to.
type SettingsPage string

const (
	SettingsLocation SettingsPage = "location"
	SettingsMotion   SettingsPage = "motion"
)

// SensorPlatform is the sensor SDK entry point. Handle getters may return nil
// handles without an error; callers treat that as "not available".
type SensorPlatform interface {
	Emulated() bool
	IsSupported(ctx context.Context, kind SensorKind) (bool, error)
	ActivityMonitor(ctx context.Context) (ActivityMonitor, error)
	PlaceMonitor(ctx context.Context) (PlaceMonitor, error)
	StepCounter(ctx context.Context) (StepCounter, error)
	TrackPointMonitor(ctx context.Context) (TrackPointMonitor, error)
	LaunchSettings(ctx context.Context, page SettingsPage) error
}
