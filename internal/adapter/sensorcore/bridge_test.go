package sensorcore

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/metrics"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestBridge(t *testing.T, mux *http.ServeMux) (*Bridge, *metrics.BreakerMetrics) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	m := metrics.NewBreakerMetrics(prometheus.NewRegistry())
	return NewBridge(BridgeConfig{BaseURL: server.URL, Timeout: 2 * time.Second}, m), m
}

func TestBridge_ActivityHistory(t *testing.T) {
	start := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	var gotStart, gotSpan string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/sensors/activity", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"available": true})
	})
	mux.HandleFunc("GET /v1/sensors/activity/history", func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start")
		gotSpan = r.URL.Query().Get("span")
		writeJSON(w, http.StatusOK, []map[string]any{
			{"timestamp": start.Add(time.Minute), "mode": "Walking"},
			{"timestamp": start.Add(2 * time.Minute), "mode": "biking"},
		})
	})
	bridge, _ := newTestBridge(t, mux)
	assert.False(t, bridge.Emulated())

	monitor, err := bridge.ActivityMonitor(context.Background())
	require.NoError(t, err)
	require.NotNil(t, monitor)

	readings, err := monitor.ActivityHistory(context.Background(), start, 10*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, domain.ActivityWalking, readings[0].Mode)
	assert.Equal(t, domain.ActivityBiking, readings[1].Mode)
	assert.True(t, readings[0].Timestamp.Equal(start.Add(time.Minute)))

	assert.Equal(t, "2026-04-01T08:00:00Z", gotStart)
	span, err := time.ParseDuration(gotSpan)
	require.NoError(t, err)
	assert.Equal(t, 10*24*time.Hour, span)
}

func TestBridge_FullRangeQueryRoundTrips(t *testing.T) {
	var gotSpan string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/sensors/trackpoints/history", func(w http.ResponseWriter, r *http.Request) {
		gotSpan = r.URL.Query().Get("span")
		writeJSON(w, http.StatusOK, []map[string]any{{
			"timestamp":      time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
			"length_of_stay": "4m",
			"latitude":       60.2,
			"longitude":      24.9,
			"radius":         25,
		}})
	})
	bridge, _ := newTestBridge(t, mux)

	monitor := &bridgeTrackPointMonitor{bridgeHandle{bridge: bridge, kind: domain.KindTrackPoint}}
	points, err := monitor.TrackPoints(context.Background(), time.Time{}, time.Duration(math.MaxInt64))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 4*time.Minute, points[0].LengthOfStay)

	span, err := time.ParseDuration(gotSpan)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(math.MaxInt64), span)
}

func TestBridge_StepsAndPlaces(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/sensors/steps/history", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{
			"timestamp":     time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
			"walking_steps": 100,
			"walk_time":     "90s",
			"running_steps": 40,
			"run_time":      "20s",
		}})
	})
	mux.HandleFunc("GET /v1/sensors/places", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 3, "kind": "Home", "latitude": 1, "longitude": 2, "radius": 50}})
	})
	bridge, _ := newTestBridge(t, mux)
	ctx := context.Background()

	steps := &bridgeStepCounter{bridgeHandle{bridge: bridge, kind: domain.KindSteps}}
	readings, err := steps.StepCountHistory(ctx, time.Now().Add(-time.Hour), time.Hour)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, uint32(100), readings[0].WalkingStepCount)
	assert.Equal(t, 90*time.Second, readings[0].WalkTime)
	assert.Equal(t, uint32(40), readings[0].RunningStepCount)
	assert.Equal(t, 20*time.Second, readings[0].RunTime)

	places := &bridgePlaceMonitor{bridgeHandle{bridge: bridge, kind: domain.KindPlaces}}
	known, err := places.KnownPlaces(ctx)
	require.NoError(t, err)
	require.Len(t, known, 1)
	assert.Equal(t, 3, known[0].ID)
	assert.Equal(t, domain.PlaceHome, known[0].Kind)
}

func TestBridge_SDKErrorCodes(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sensors/trackpoints/activate", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusConflict, errorBody{Code: "LocationDisabled", Message: "location is off"})
	})
	bridge, _ := newTestBridge(t, mux)

	handle := bridgeHandle{bridge: bridge, kind: domain.KindTrackPoint}
	for range 10 {
		err := handle.Activate(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrLocationDisabled)

		var se *domain.SensorError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, OpActivate, se.Op)
		assert.Equal(t, "location is off", se.Cause.Error())
	}

	assert.Equal(t, int32(10), calls.Load())
	assert.Equal(t, gobreaker.StateClosed, bridge.BreakerState(), "sdk codes do not trip the breaker")
}

func TestBridge_SensorNotAvailableYieldsNilHandle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/sensors/steps", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: "SensorNotAvailable"})
	})
	bridge, _ := newTestBridge(t, mux)

	counter, err := bridge.StepCounter(context.Background())
	require.NoError(t, err)
	assert.Nil(t, counter)
}

func TestBridge_IsSupported(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/sensors/places/supported", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"supported": false})
	})
	bridge, _ := newTestBridge(t, mux)

	ok, err := bridge.IsSupported(context.Background(), domain.KindPlaces)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBridge_LaunchSettings(t *testing.T) {
	var page string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/settings/{page}", func(w http.ResponseWriter, r *http.Request) {
		page = r.PathValue("page")
		w.WriteHeader(http.StatusNoContent)
	})
	bridge, _ := newTestBridge(t, mux)

	require.NoError(t, bridge.LaunchSettings(context.Background(), domain.SettingsMotion))
	assert.Equal(t, "motion", page)
}

func TestBridge_ServerErrorsTripBreaker(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sensors/activity/deactivate", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	bridge, m := newTestBridge(t, mux)

	handle := bridgeHandle{bridge: bridge, kind: domain.KindActivity}
	for range 5 {
		err := handle.Deactivate(context.Background())
		assert.Equal(t, domain.SenseGeneralFailure, domain.SenseErrorOf(err))
	}
	require.Equal(t, gobreaker.StateOpen, bridge.BreakerState())

	err := handle.Deactivate(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, err, domain.ErrSensorCall)
	assert.Equal(t, int32(5), calls.Load(), "open breaker short-circuits")

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.State.WithLabelValues(breakerComponent)), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.StateChanges.WithLabelValues(breakerComponent, "open")), 0.001)
}

func TestBridge_UnreachableIsGeneralFailure(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	url := server.URL
	server.Close()

	bridge := NewBridge(BridgeConfig{BaseURL: url, Timeout: time.Second}, nil)
	_, err := bridge.ActivityMonitor(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.SenseGeneralFailure, domain.SenseErrorOf(err))
}
