package sensorcore

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// DefaultSeedOffset anchors recordings this far before the simulator starts.
const DefaultSeedOffset = 10 * 24 * time.Hour

// Simulated operation names, used with InjectFailure.
const (
	OpGetDefault = "get_default"
	OpActivate   = "activate"
	OpDeactivate = "deactivate"
	OpHistory    = "history"
)

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	Dir        string
	SeedOffset time.Duration
	Clock      clockwork.Clock
}

type failureKey struct {
	kind domain.SensorKind
	op   string
}

// Simulator is an emulated SensorPlatform that replays recorded sessions.
// Recorded readings are anchored at the moment the simulator is created minus
// the seed offset.
type Simulator struct {
	activity    *simActivityMonitor
	places      *simPlaceMonitor
	steps       *simStepCounter
	trackPoints *simTrackPointMonitor

	mu          sync.Mutex
	failures    map[failureKey]domain.SenseError
	unsupported map[domain.SensorKind]bool
	unavailable map[domain.SensorKind]bool
	launched    []domain.SettingsPage
}

var _ domain.SensorPlatform = (*Simulator)(nil)

// NewSimulator loads the recordings in cfg.Dir. When any recording fails to
// load, all recorded sensors fall back to empty histories.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.SeedOffset <= 0 {
		cfg.SeedOffset = DefaultSeedOffset
	}
	seed := cfg.Clock.Now().Add(-cfg.SeedOffset)

	s := &Simulator{
		failures:    make(map[failureKey]domain.SenseError),
		unsupported: make(map[domain.SensorKind]bool),
		unavailable: make(map[domain.SensorKind]bool),
	}

	activity, steps, tracks, err := loadRecorded(cfg.Dir, seed)
	if err != nil {
		slog.Warn("Sensor recordings unavailable, using empty histories", "dir", cfg.Dir, "error", err)
		activity, steps, tracks = nil, nil, nil
	}

	places, err := LoadPlaces(filepath.Join(cfg.Dir, PlacesFile))
	if err != nil {
		slog.Warn("Known places unavailable", "dir", cfg.Dir, "error", err)
		places = nil
	}

	s.activity = &simActivityMonitor{handle: handle{sim: s, kind: domain.KindActivity}, readings: activity}
	s.places = &simPlaceMonitor{handle: handle{sim: s, kind: domain.KindPlaces}, places: places}
	s.steps = &simStepCounter{handle: handle{sim: s, kind: domain.KindSteps}, readings: steps}
	s.trackPoints = &simTrackPointMonitor{handle: handle{sim: s, kind: domain.KindTrackPoint}, points: tracks}

	slog.Info("Sensor simulator ready",
		"seed", seed,
		"activity", len(activity),
		"places", len(places),
		"steps", len(steps),
		"track_points", len(tracks))
	return s
}

func loadRecorded(dir string, seed time.Time) ([]domain.ActivityReading, []domain.StepReading, []domain.TrackPoint, error) {
	activityRec, err := LoadRecording(filepath.Join(dir, ActivityRecordingFile))
	if err != nil {
		return nil, nil, nil, err
	}
	stepRec, err := LoadRecording(filepath.Join(dir, StepRecordingFile))
	if err != nil {
		return nil, nil, nil, err
	}
	trackRec, err := LoadRecording(filepath.Join(dir, TrackPointRecordingFile))
	if err != nil {
		return nil, nil, nil, err
	}

	activity, err := activityRec.activity(seed)
	if err != nil {
		return nil, nil, nil, err
	}
	steps, err := stepRec.steps(seed)
	if err != nil {
		return nil, nil, nil, err
	}
	tracks, err := trackRec.trackPoints(seed)
	if err != nil {
		return nil, nil, nil, err
	}
	return activity, steps, tracks, nil
}

func (s *Simulator) Emulated() bool { return true }

func (s *Simulator) IsSupported(_ context.Context, kind domain.SensorKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unsupported[kind], nil
}

func (s *Simulator) ActivityMonitor(_ context.Context) (domain.ActivityMonitor, error) {
	if err := s.getDefault(domain.KindActivity); err != nil || s.isUnavailable(domain.KindActivity) {
		return nil, err
	}
	return s.activity, nil
}

func (s *Simulator) PlaceMonitor(_ context.Context) (domain.PlaceMonitor, error) {
	if err := s.getDefault(domain.KindPlaces); err != nil || s.isUnavailable(domain.KindPlaces) {
		return nil, err
	}
	return s.places, nil
}

func (s *Simulator) StepCounter(_ context.Context) (domain.StepCounter, error) {
	if err := s.getDefault(domain.KindSteps); err != nil || s.isUnavailable(domain.KindSteps) {
		return nil, err
	}
	return s.steps, nil
}

func (s *Simulator) TrackPointMonitor(_ context.Context) (domain.TrackPointMonitor, error) {
	if err := s.getDefault(domain.KindTrackPoint); err != nil || s.isUnavailable(domain.KindTrackPoint) {
		return nil, err
	}
	return s.trackPoints, nil
}

// LaunchSettings records the request; there is no device to open it on.
func (s *Simulator) LaunchSettings(_ context.Context, page domain.SettingsPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launched = append(s.launched, page)
	slog.Info("Settings launch requested", "page", page)
	return nil
}

// LaunchedSettings returns every settings page launched so far.
func (s *Simulator) LaunchedSettings() []domain.SettingsPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.launched)
}

// InjectFailure makes every subsequent op on kind fail with code.
func (s *Simulator) InjectFailure(kind domain.SensorKind, op string, code domain.SenseError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey{kind: kind, op: op}] = code
}

// ClearFailures removes all injected failures.
func (s *Simulator) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.failures)
}

// SetSupported toggles the capability check for kind.
func (s *Simulator) SetSupported(kind domain.SensorKind, supported bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsupported[kind] = !supported
}

// SetAvailable controls whether the handle getter for kind returns a handle.
func (s *Simulator) SetAvailable(kind domain.SensorKind, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable[kind] = !available
}

func (s *Simulator) isUnavailable(kind domain.SensorKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unavailable[kind]
}

func (s *Simulator) getDefault(kind domain.SensorKind) error {
	return s.injected(kind, OpGetDefault)
}

func (s *Simulator) injected(kind domain.SensorKind, op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.failures[failureKey{kind: kind, op: op}]; ok {
		return &domain.SensorError{Kind: kind, Op: op, Code: code}
	}
	return nil
}

// handle carries the activation state shared by every simulated monitor.
type handle struct {
	sim  *Simulator
	kind domain.SensorKind

	mu     sync.Mutex
	active bool
}

func (h *handle) Activate(_ context.Context) error {
	if err := h.sim.injected(h.kind, OpActivate); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = true
	return nil
}

func (h *handle) Deactivate(_ context.Context) error {
	if err := h.sim.injected(h.kind, OpDeactivate); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = false
	return nil
}

// Active reports whether the handle is currently activated.
func (h *handle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// readable fails the history call when a failure is injected or the handle
// has not been activated.
func (h *handle) readable() error {
	if err := h.sim.injected(h.kind, OpHistory); err != nil {
		return err
	}
	if !h.Active() {
		return &domain.SensorError{Kind: h.kind, Op: OpHistory, Code: domain.SenseNotActivated}
	}
	return nil
}

// inWindow reports whether ts lies in [start, start+span]. time.Time.Sub
// saturates, so a zero start with the maximum span covers every reading.
func inWindow(ts, start time.Time, span time.Duration) bool {
	d := ts.Sub(start)
	return d >= 0 && d <= span
}

type simActivityMonitor struct {
	handle
	readings []domain.ActivityReading
}

func (m *simActivityMonitor) ActivityHistory(_ context.Context, start time.Time, span time.Duration) ([]domain.ActivityReading, error) {
	if err := m.readable(); err != nil {
		return nil, err
	}
	out := make([]domain.ActivityReading, 0, len(m.readings))
	for _, r := range m.readings {
		if inWindow(r.Timestamp, start, span) {
			out = append(out, r)
		}
	}
	return out, nil
}

type simPlaceMonitor struct {
	handle
	places []domain.Place
}

func (m *simPlaceMonitor) KnownPlaces(_ context.Context) ([]domain.Place, error) {
	if err := m.readable(); err != nil {
		return nil, err
	}
	return slices.Clone(m.places), nil
}

type simStepCounter struct {
	handle
	readings []domain.StepReading
}

func (m *simStepCounter) StepCountHistory(_ context.Context, start time.Time, span time.Duration) ([]domain.StepReading, error) {
	if err := m.readable(); err != nil {
		return nil, err
	}
	out := make([]domain.StepReading, 0, len(m.readings))
	for _, r := range m.readings {
		if inWindow(r.Timestamp, start, span) {
			out = append(out, r)
		}
	}
	return out, nil
}

type simTrackPointMonitor struct {
	handle
	points []domain.TrackPoint
}

func (m *simTrackPointMonitor) TrackPoints(_ context.Context, start time.Time, span time.Duration) ([]domain.TrackPoint, error) {
	if err := m.readable(); err != nil {
		return nil, err
	}
	out := make([]domain.TrackPoint, 0, len(m.points))
	for _, p := range m.points {
		if inWindow(p.Timestamp, start, span) {
			out = append(out, p)
		}
	}
	return out, nil
}
