package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/metrics"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// testHub starts a Hub behind an httptest server and returns a dial function.
func testHub(t *testing.T, maxClients int) (*Hub, *metrics.WebSocketMetrics, func() *ws.Conn) {
	t.Helper()

	m := metrics.NewWebSocketMetrics(prometheus.NewRegistry())
	hub := NewHub(maxClients, NewCheckOrigin(true), m)
	t.Cleanup(hub.Stop)

	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	dial := func() *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}

	return hub, m, dial
}

func waitForClientCount(hub *Hub, expected int) bool {
	for range 200 {
		if hub.ClientCount() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func readEvent(t *testing.T, conn *ws.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]any
	require.NoError(t, json.Unmarshal(msg, &event))
	return event
}

func TestHub_PublishSessionState(t *testing.T) {
	hub, m, dial := testHub(t, 10)
	conn := dial()
	require.True(t, waitForClientCount(hub, 1))

	status := domain.SessionStatus{
		State:    domain.SessionActive,
		Handles:  map[domain.SensorKind]bool{domain.KindSteps: true},
		Emulated: true,
	}
	require.NoError(t, hub.PublishSessionState(context.Background(), status))

	event := readEvent(t, conn)
	assert.Equal(t, EventSessionState, event["type"])
	data := event["data"].(map[string]any)
	assert.Equal(t, "active", data["state"])
	assert.Equal(t, true, data["emulated"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.MessagesPublished.WithLabelValues(EventSessionState)) == 1
	}, time.Second, time.Millisecond)
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub, _, dial := testHub(t, 10)
	a := dial()
	b := dial()
	require.True(t, waitForClientCount(hub, 2))

	report := domain.RefreshReport{ID: uuid.New(), Counts: map[domain.SensorKind]int{domain.KindActivity: 3}}
	require.NoError(t, hub.PublishRefresh(context.Background(), report))

	for _, conn := range []*ws.Conn{a, b} {
		event := readEvent(t, conn)
		assert.Equal(t, EventRefresh, event["type"])
		data := event["data"].(map[string]any)
		assert.Equal(t, report.ID.String(), data["id"])
	}
}

func TestHub_PublishNotice(t *testing.T) {
	hub, _, dial := testHub(t, 10)
	conn := dial()
	require.True(t, waitForClientCount(hub, 1))

	notice := domain.Notice{ID: uuid.New(), Code: domain.SenseLocationDisabled, Message: "Location has been disabled."}
	require.NoError(t, hub.PublishNotice(context.Background(), notice))

	event := readEvent(t, conn)
	assert.Equal(t, EventNotice, event["type"])
	assert.Equal(t, "LocationDisabled", event["data"].(map[string]any)["code"])
}

func TestHub_MaxClients(t *testing.T) {
	hub, _, dial := testHub(t, 1)
	dial()
	require.True(t, waitForClientCount(hub, 1))

	rejected := dial()
	require.NoError(t, rejected.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := rejected.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub, m, dial := testHub(t, 10)
	conn := dial()
	require.True(t, waitForClientCount(hub, 1))

	require.NoError(t, conn.Close())
	require.True(t, waitForClientCount(hub, 0))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveConnections))
}

func TestHub_PublishAfterStop(t *testing.T) {
	hub, _, _ := testHub(t, 10)
	hub.Stop()
	hub.Stop()

	err := hub.PublishSessionState(context.Background(), domain.SessionStatus{})
	assert.ErrorIs(t, err, ErrHubStopped)
	assert.Equal(t, 0, hub.ClientCount())
}
