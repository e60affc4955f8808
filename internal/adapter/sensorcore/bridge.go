package sensorcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/metrics"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

const (
	breakerComponent = "sensor_bridge"

	// DefaultBridgeTimeout bounds a single bridge request.
	DefaultBridgeTimeout = 10 * time.Second
)

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	BaseURL string
	Timeout time.Duration

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

// Bridge is a SensorPlatform backed by a device-side HTTP bridge to the real
// SensorCore SDK. SDK error codes travel in the response body as
// {"code": "...", "message": "..."}; transport failures and bodiless server
// errors trip the circuit breaker and surface as GeneralFailure.
type Bridge struct {
	client *resty.Client
	cb     *gobreaker.CircuitBreaker
}

var _ domain.SensorPlatform = (*Bridge)(nil)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// codeError is an SDK failure reported by a healthy bridge.
type codeError struct {
	status int
	body   *errorBody
}

func (e *codeError) Error() string {
	return fmt.Sprintf("bridge %d: %s: %s", e.status, e.body.Code, e.body.Message)
}

// NewBridge creates a bridge client. m may be nil.
func NewBridge(cfg BridgeConfig, m *metrics.BreakerMetrics) *Bridge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBridgeTimeout
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerComponent,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			var ce *codeError
			return err == nil || errors.As(err, &ce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Sensor bridge circuit breaker state changed", "from", from.String(), "to", to.String())
			if m != nil {
				m.StateChanges.WithLabelValues(breakerComponent, to.String()).Inc()
				m.State.WithLabelValues(breakerComponent).Set(breakerStateValue(to))
			}
		},
	})
	if m != nil {
		m.State.WithLabelValues(breakerComponent).Set(0)
	}

	return &Bridge{client: client, cb: cb}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// BreakerState returns the current circuit breaker state.
func (b *Bridge) BreakerState() gobreaker.State {
	return b.cb.State()
}

// call performs one bridge request through the breaker and converts every
// failure into a *domain.SensorError.
func (b *Bridge) call(ctx context.Context, kind domain.SensorKind, op, method, path string, query map[string]string, result any) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		req := b.client.R().SetContext(ctx).SetError(&errorBody{})
		if query != nil {
			req.SetQueryParams(query)
		}
		if result != nil {
			req.SetResult(result)
		}
		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			if body, ok := resp.Error().(*errorBody); ok && body.Code != "" {
				return nil, &codeError{status: resp.StatusCode(), body: body}
			}
			return nil, fmt.Errorf("bridge returned %s", resp.Status())
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}

	var ce *codeError
	if errors.As(err, &ce) {
		return &domain.SensorError{
			Kind:  kind,
			Op:    op,
			Code:  domain.SenseError(ce.body.Code),
			Cause: errors.New(ce.body.Message),
		}
	}
	return &domain.SensorError{Kind: kind, Op: op, Code: domain.SenseGeneralFailure, Cause: err}
}

func (b *Bridge) Emulated() bool { return false }

func (b *Bridge) IsSupported(ctx context.Context, kind domain.SensorKind) (bool, error) {
	var out struct {
		Supported bool `json:"supported"`
	}
	if err := b.call(ctx, kind, "is_supported", http.MethodGet, "/v1/sensors/"+string(kind)+"/supported", nil, &out); err != nil {
		return false, err
	}
	return out.Supported, nil
}

// available asks the bridge for the default handle of kind. SensorNotAvailable
// means the device has no such sensor and yields false without an error.
func (b *Bridge) available(ctx context.Context, kind domain.SensorKind) (bool, error) {
	err := b.call(ctx, kind, OpGetDefault, http.MethodGet, "/v1/sensors/"+string(kind), nil, nil)
	if domain.SenseErrorOf(err) == domain.SenseSensorNotAvailable {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *Bridge) ActivityMonitor(ctx context.Context) (domain.ActivityMonitor, error) {
	ok, err := b.available(ctx, domain.KindActivity)
	if !ok {
		return nil, err
	}
	return &bridgeActivityMonitor{bridgeHandle{bridge: b, kind: domain.KindActivity}}, nil
}

func (b *Bridge) PlaceMonitor(ctx context.Context) (domain.PlaceMonitor, error) {
	ok, err := b.available(ctx, domain.KindPlaces)
	if !ok {
		return nil, err
	}
	return &bridgePlaceMonitor{bridgeHandle{bridge: b, kind: domain.KindPlaces}}, nil
}

func (b *Bridge) StepCounter(ctx context.Context) (domain.StepCounter, error) {
	ok, err := b.available(ctx, domain.KindSteps)
	if !ok {
		return nil, err
	}
	return &bridgeStepCounter{bridgeHandle{bridge: b, kind: domain.KindSteps}}, nil
}

func (b *Bridge) TrackPointMonitor(ctx context.Context) (domain.TrackPointMonitor, error) {
	ok, err := b.available(ctx, domain.KindTrackPoint)
	if !ok {
		return nil, err
	}
	return &bridgeTrackPointMonitor{bridgeHandle{bridge: b, kind: domain.KindTrackPoint}}, nil
}

func (b *Bridge) LaunchSettings(ctx context.Context, page domain.SettingsPage) error {
	return b.call(ctx, "", "launch_settings", http.MethodPost, "/v1/settings/"+string(page), nil, nil)
}

type bridgeHandle struct {
	bridge *Bridge
	kind   domain.SensorKind
}

func (h bridgeHandle) Activate(ctx context.Context) error {
	return h.bridge.call(ctx, h.kind, OpActivate, http.MethodPost, "/v1/sensors/"+string(h.kind)+"/activate", nil, nil)
}

func (h bridgeHandle) Deactivate(ctx context.Context) error {
	return h.bridge.call(ctx, h.kind, OpDeactivate, http.MethodPost, "/v1/sensors/"+string(h.kind)+"/deactivate", nil, nil)
}

func (h bridgeHandle) history(ctx context.Context, start time.Time, span time.Duration, result any) error {
	query := map[string]string{
		"start": start.UTC().Format(time.RFC3339Nano),
		"span":  span.String(),
	}
	return h.bridge.call(ctx, h.kind, OpHistory, http.MethodGet, "/v1/sensors/"+string(h.kind)+"/history", query, result)
}

type wireActivity struct {
	Timestamp time.Time `json:"timestamp"`
	Mode      string    `json:"mode"`
}

type wireStep struct {
	Timestamp    time.Time `json:"timestamp"`
	WalkingSteps uint32    `json:"walking_steps"`
	WalkTime     string    `json:"walk_time"`
	RunningSteps uint32    `json:"running_steps"`
	RunTime      string    `json:"run_time"`
}

type wireTrackPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	LengthOfStay string    `json:"length_of_stay"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Radius       float64   `json:"radius"`
}

type wirePlace struct {
	ID        int     `json:"id"`
	Kind      string  `json:"kind"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
}

// malformed reports a response the bridge should never send.
func malformed(kind domain.SensorKind, err error) error {
	return &domain.SensorError{Kind: kind, Op: OpHistory, Code: domain.SenseGeneralFailure, Cause: err}
}

type bridgeActivityMonitor struct{ bridgeHandle }

func (m *bridgeActivityMonitor) ActivityHistory(ctx context.Context, start time.Time, span time.Duration) ([]domain.ActivityReading, error) {
	var wire []wireActivity
	if err := m.history(ctx, start, span, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.ActivityReading, 0, len(wire))
	for _, w := range wire {
		out = append(out, domain.ActivityReading{Timestamp: w.Timestamp, Mode: domain.ParseActivityMode(w.Mode)})
	}
	return out, nil
}

type bridgePlaceMonitor struct{ bridgeHandle }

func (m *bridgePlaceMonitor) KnownPlaces(ctx context.Context) ([]domain.Place, error) {
	var wire []wirePlace
	if err := m.bridge.call(ctx, m.kind, OpHistory, http.MethodGet, "/v1/sensors/places", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.Place, 0, len(wire))
	for _, w := range wire {
		out = append(out, domain.Place{
			ID:       w.ID,
			Kind:     domain.ParsePlaceKind(w.Kind),
			Position: domain.GeoPosition{Latitude: w.Latitude, Longitude: w.Longitude},
			Radius:   w.Radius,
		})
	}
	return out, nil
}

type bridgeStepCounter struct{ bridgeHandle }

func (m *bridgeStepCounter) StepCountHistory(ctx context.Context, start time.Time, span time.Duration) ([]domain.StepReading, error) {
	var wire []wireStep
	if err := m.history(ctx, start, span, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.StepReading, 0, len(wire))
	for i, w := range wire {
		walkTime, err := parseDuration(w.WalkTime, "steps", i, "walk_time")
		if err != nil {
			return nil, malformed(m.kind, err)
		}
		runTime, err := parseDuration(w.RunTime, "steps", i, "run_time")
		if err != nil {
			return nil, malformed(m.kind, err)
		}
		out = append(out, domain.StepReading{
			Timestamp:        w.Timestamp,
			WalkingStepCount: w.WalkingSteps,
			WalkTime:         walkTime,
			RunningStepCount: w.RunningSteps,
			RunTime:          runTime,
		})
	}
	return out, nil
}

type bridgeTrackPointMonitor struct{ bridgeHandle }

func (m *bridgeTrackPointMonitor) TrackPoints(ctx context.Context, start time.Time, span time.Duration) ([]domain.TrackPoint, error) {
	var wire []wireTrackPoint
	if err := m.history(ctx, start, span, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.TrackPoint, 0, len(wire))
	for i, w := range wire {
		stay, err := parseDuration(w.LengthOfStay, "track_points", i, "length_of_stay")
		if err != nil {
			return nil, malformed(m.kind, err)
		}
		out = append(out, domain.TrackPoint{
			Timestamp:    w.Timestamp,
			LengthOfStay: stay,
			Position:     domain.GeoPosition{Latitude: w.Latitude, Longitude: w.Longitude},
			Radius:       w.Radius,
		})
	}
	return out, nil
}
