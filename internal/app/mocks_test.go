package app

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/metrics"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// --- Sensor handle mocks ---

// callLog records SDK calls across all handles in the order they happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

type mockHandle struct {
	kind          domain.SensorKind
	log           *callLog
	activateErr   error
	deactivateErr error
}

func (h *mockHandle) Activate(context.Context) error {
	h.log.add(string(h.kind) + ".activate")
	return h.activateErr
}

func (h *mockHandle) Deactivate(context.Context) error {
	h.log.add(string(h.kind) + ".deactivate")
	return h.deactivateErr
}

type mockActivityMonitor struct {
	mockHandle
	historyFn func(ctx context.Context, start time.Time, span time.Duration) ([]domain.ActivityReading, error)
}

func (m *mockActivityMonitor) ActivityHistory(ctx context.Context, start time.Time, span time.Duration) ([]domain.ActivityReading, error) {
	m.log.add("activity.history")
	if m.historyFn != nil {
		return m.historyFn(ctx, start, span)
	}
	return nil, nil
}

type mockPlaceMonitor struct {
	mockHandle
	placesFn func(ctx context.Context) ([]domain.Place, error)
}

func (m *mockPlaceMonitor) KnownPlaces(ctx context.Context) ([]domain.Place, error) {
	m.log.add("places.history")
	if m.placesFn != nil {
		return m.placesFn(ctx)
	}
	return nil, nil
}

type mockStepCounter struct {
	mockHandle
	historyFn func(ctx context.Context, start time.Time, span time.Duration) ([]domain.StepReading, error)
}

func (m *mockStepCounter) StepCountHistory(ctx context.Context, start time.Time, span time.Duration) ([]domain.StepReading, error) {
	m.log.add("steps.history")
	if m.historyFn != nil {
		return m.historyFn(ctx, start, span)
	}
	return nil, nil
}

type mockTrackPointMonitor struct {
	mockHandle
	pointsFn func(ctx context.Context, start time.Time, span time.Duration) ([]domain.TrackPoint, error)
}

func (m *mockTrackPointMonitor) TrackPoints(ctx context.Context, start time.Time, span time.Duration) ([]domain.TrackPoint, error) {
	m.log.add("trackpoints.history")
	if m.pointsFn != nil {
		return m.pointsFn(ctx, start, span)
	}
	return nil, nil
}

// --- Platform mock ---

type mockPlatform struct {
	emulated    bool
	log         *callLog
	activity    *mockActivityMonitor
	places      *mockPlaceMonitor
	steps       *mockStepCounter
	trackPoints *mockTrackPointMonitor

	supportedFn func(ctx context.Context, kind domain.SensorKind) (bool, error)
	getErr      map[domain.SensorKind]error
	launchErr   error

	mu       sync.Mutex
	launched []domain.SettingsPage
}

// newMockPlatform returns an emulated platform with all four handles.
func newMockPlatform() *mockPlatform {
	log := &callLog{}
	return &mockPlatform{
		emulated:    true,
		log:         log,
		activity:    &mockActivityMonitor{mockHandle: mockHandle{kind: domain.KindActivity, log: log}},
		places:      &mockPlaceMonitor{mockHandle: mockHandle{kind: domain.KindPlaces, log: log}},
		steps:       &mockStepCounter{mockHandle: mockHandle{kind: domain.KindSteps, log: log}},
		trackPoints: &mockTrackPointMonitor{mockHandle: mockHandle{kind: domain.KindTrackPoint, log: log}},
		getErr:      make(map[domain.SensorKind]error),
	}
}

func (p *mockPlatform) handles() Handles {
	return Handles{Activity: p.activity, Places: p.places, Steps: p.steps, TrackPoint: p.trackPoints}
}

func (p *mockPlatform) Emulated() bool { return p.emulated }

func (p *mockPlatform) IsSupported(ctx context.Context, kind domain.SensorKind) (bool, error) {
	if p.supportedFn != nil {
		return p.supportedFn(ctx, kind)
	}
	return true, nil
}

func (p *mockPlatform) ActivityMonitor(context.Context) (domain.ActivityMonitor, error) {
	if err := p.getErr[domain.KindActivity]; err != nil || p.activity == nil {
		return nil, err
	}
	return p.activity, nil
}

func (p *mockPlatform) PlaceMonitor(context.Context) (domain.PlaceMonitor, error) {
	if err := p.getErr[domain.KindPlaces]; err != nil || p.places == nil {
		return nil, err
	}
	return p.places, nil
}

func (p *mockPlatform) StepCounter(context.Context) (domain.StepCounter, error) {
	if err := p.getErr[domain.KindSteps]; err != nil || p.steps == nil {
		return nil, err
	}
	return p.steps, nil
}

func (p *mockPlatform) TrackPointMonitor(context.Context) (domain.TrackPointMonitor, error) {
	if err := p.getErr[domain.KindTrackPoint]; err != nil || p.trackPoints == nil {
		return nil, err
	}
	return p.trackPoints, nil
}

func (p *mockPlatform) LaunchSettings(_ context.Context, page domain.SettingsPage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.launched = append(p.launched, page)
	return p.launchErr
}

// --- Event publisher mock ---

type mockPublisher struct {
	mu      sync.Mutex
	states  []domain.SessionStatus
	reports []domain.RefreshReport
	notices []domain.Notice
}

func (p *mockPublisher) PublishSessionState(_ context.Context, status domain.SessionStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, status)
	return nil
}

func (p *mockPublisher) PublishRefresh(_ context.Context, report domain.RefreshReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, report)
	return nil
}

func (p *mockPublisher) PublishNotice(_ context.Context, n domain.Notice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, n)
	return nil
}

func (p *mockPublisher) getNotices() []domain.Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.notices)
}

func (p *mockPublisher) getStates() []domain.SessionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.states)
}

func (p *mockPublisher) getReports() []domain.RefreshReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.reports)
}

// --- Archive mock ---

type mockArchive struct {
	mu      sync.Mutex
	saveErr error
	saved   []domain.RefreshReport
	records []map[domain.SensorKind][]domain.DisplayRecord
}

func (a *mockArchive) Save(_ context.Context, report domain.RefreshReport, records map[domain.SensorKind][]domain.DisplayRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, report)
	a.records = append(a.records, records)
	return a.saveErr
}

func (a *mockArchive) Recent(_ context.Context, limit int) ([]domain.RefreshReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := slices.Clone(a.saved)
	slices.Reverse(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *mockArchive) Records(_ context.Context, reportID uuid.UUID, kind domain.SensorKind) ([]domain.DisplayRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, r := range a.saved {
		if r.ID == reportID {
			return a.records[i][kind], nil
		}
	}
	return nil, domain.ErrRefreshNotFound
}

// --- Record store mock ---

type failingStore struct {
	*MemoryRecordStore
	appendErr error
}

func (s *failingStore) Append(ctx context.Context, kind domain.SensorKind, items []domain.ViewItem) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.MemoryRecordStore.Append(ctx, kind, items)
}

// --- Helpers ---

func newTestMetrics() *metrics.SessionMetrics {
	return metrics.NewSessionMetrics(prometheus.NewRegistry())
}

type testService struct {
	*Service
	platform  *mockPlatform
	store     *MemoryRecordStore
	archive   *mockArchive
	publisher *mockPublisher
	clock     *clockwork.FakeClock
	metrics   *metrics.SessionMetrics
}

func newTestService(t *testing.T, platform *mockPlatform) *testService {
	t.Helper()
	ts := &testService{
		platform:  platform,
		store:     NewMemoryRecordStore(),
		archive:   &mockArchive{},
		publisher: &mockPublisher{},
		clock:     clockwork.NewFakeClockAt(testNow),
		metrics:   newTestMetrics(),
	}
	ts.Service = NewService(platform, ts.store, ts.archive, ts.publisher, ts.clock, ts.metrics, Options{})
	return ts
}

func sensorErr(kind domain.SensorKind, op string, code domain.SenseError) error {
	return &domain.SensorError{Kind: kind, Op: op, Code: code}
}
