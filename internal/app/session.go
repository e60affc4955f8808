package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tompaana/sensorcore-explorer/internal/adapter/metrics"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// Handles bundles the four sensor monitors owned by a session.
type Handles struct {
	Activity   domain.ActivityMonitor
	Places     domain.PlaceMonitor
	Steps      domain.StepCounter
	TrackPoint domain.TrackPointMonitor
}

// Complete reports whether every handle is available.
func (h Handles) Complete() bool {
	return h.Activity != nil && h.Places != nil && h.Steps != nil && h.TrackPoint != nil
}

// Availability reports, per kind, whether a handle is present.
func (h Handles) Availability() map[domain.SensorKind]bool {
	return map[domain.SensorKind]bool{
		domain.KindActivity:   h.Activity != nil,
		domain.KindPlaces:     h.Places != nil,
		domain.KindSteps:      h.Steps != nil,
		domain.KindTrackPoint: h.TrackPoint != nil,
	}
}

type kindHandle struct {
	kind   domain.SensorKind
	handle domain.SensorHandle
}

// ordered returns the handles in activation order. Only valid when Complete.
func (h Handles) ordered() []kindHandle {
	return []kindHandle{
		{domain.KindActivity, h.Activity},
		{domain.KindPlaces, h.Places},
		{domain.KindSteps, h.Steps},
		{domain.KindTrackPoint, h.TrackPoint},
	}
}

// CallFunc invokes one sensor SDK operation and reports whether it succeeded.
// Failures are handled (reported) by the CallFunc itself.
type CallFunc func(ctx context.Context, kind domain.SensorKind, op string, fn func(context.Context) error) bool

// SessionManager is the activation state machine of the sensor session:
// Inactive -> Activating -> Active -> Deactivating -> Inactive.
//
// Transitions are requested directly by the caller; work that must follow a
// transition (fetching, clearing) is the caller's job.
type SessionManager struct {
	mu      sync.RWMutex
	state   domain.SessionState
	handles Handles
	metrics *metrics.SessionMetrics
}

func NewSessionManager(m *metrics.SessionMetrics) *SessionManager {
	sm := &SessionManager{metrics: m}
	m.State.Set(float64(domain.SessionInactive))
	return sm
}

// State returns the current state.
func (m *SessionManager) State() domain.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Handles returns the currently owned handles.
func (m *SessionManager) Handles() Handles {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handles
}

// Acquire takes ownership of the handles. Any of them may be nil.
func (m *SessionManager) Acquire(h Handles) {
	m.mu.Lock()
	m.handles = h
	m.mu.Unlock()
}

// Release gives up the handles and returns them. The state is left unchanged.
func (m *SessionManager) Release() Handles {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.handles
	m.handles = Handles{}
	return h
}

// Activate moves an Inactive session through Activating to Active, calling
// Activate on every handle in order. A failed handle does not stop the
// sequence. Returns false, without calling anything, when the session is not
// Inactive or a handle is missing.
func (m *SessionManager) Activate(ctx context.Context, call CallFunc) bool {
	h, ok := m.begin(domain.SessionInactive, "activate")
	if !ok {
		return false
	}

	for _, kh := range h.ordered() {
		call(ctx, kh.kind, "activate", kh.handle.Activate)
	}

	m.setState(domain.SessionActive)
	slog.Info("Sensor handles activated")
	return true
}

// Deactivate moves an Active session through Deactivating to Inactive,
// calling Deactivate on every handle in order. Returns false when the session
// is not Active or a handle is missing.
func (m *SessionManager) Deactivate(ctx context.Context, call CallFunc) bool {
	h, ok := m.begin(domain.SessionActive, "deactivate")
	if !ok {
		return false
	}

	for _, kh := range h.ordered() {
		call(ctx, kh.kind, "deactivate", kh.handle.Deactivate)
	}

	m.setState(domain.SessionInactive)
	slog.Info("Sensor handles deactivated")
	return true
}

// begin checks the guard of a transition out of from and, when it holds,
// enters the intermediate state.
func (m *SessionManager) begin(from domain.SessionState, op string) (Handles, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.handles.Complete() {
		slog.Debug("Session transition skipped: one or more sensor handles unavailable", "op", op, "handles", m.handles.Availability())
		return Handles{}, false
	}
	if m.state != from {
		slog.Debug("Session transition skipped", "op", op, "state", m.state.String())
		return Handles{}, false
	}

	m.transitionLocked(from.Next())
	return m.handles, true
}

func (m *SessionManager) setState(s domain.SessionState) {
	m.mu.Lock()
	m.transitionLocked(s)
	m.mu.Unlock()
}

func (m *SessionManager) transitionLocked(s domain.SessionState) {
	slog.Debug("Session state changed", "from", m.state.String(), "to", s.String())
	m.state = s
	m.metrics.State.Set(float64(s))
	m.metrics.Transitions.WithLabelValues(s.String()).Inc()
}
