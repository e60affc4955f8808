package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/metrics"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

const (
	sendBufferSize = 16
	writeTimeout   = 5 * time.Second
)

// Event types pushed to clients.
const (
	EventSessionState = "session_state"
	EventRefresh      = "refresh"
	EventNotice       = "notice"
)

var ErrHubStopped = errors.New("hub stopped")

// Event is the envelope of every message sent to clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	conn  *websocket.Conn
	errCh chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	conn *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	event string
	data  []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg := <-cw.sendCh:
			_ = cw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	_ = cw.conn.Close()
}

// --- Hub ---

// Hub fans session events out to every connected renderer. All client state
// is owned by a single goroutine fed through cmdCh.
type Hub struct {
	cmdCh      chan hubCmd
	done       chan struct{}
	stopOnce   sync.Once
	clients    map[*websocket.Conn]*clientWriter
	maxClients int
	upgrader   websocket.Upgrader
	metrics    *metrics.WebSocketMetrics
}

// NewHub starts a hub accepting up to maxClients connections.
func NewHub(maxClients int, checkOrigin func(r *http.Request) bool, m *metrics.WebSocketMetrics) *Hub {
	hub := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]*clientWriter),
		maxClients: maxClients,
		upgrader:   websocket.Upgrader{CheckOrigin: checkOrigin},
		metrics:    m,
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c)
		case cmdClientCount:
			c.replyCh <- len(h.clients)
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting WebSocket client: max clients reached", "max_clients", h.maxClients)
		_ = c.conn.Close()
		c.errCh <- fmt.Errorf("max clients (%d) reached", h.maxClients)
		return
	}

	h.clients[c.conn] = newClientWriter(c.conn)
	h.metrics.ActiveConnections.Set(float64(len(h.clients)))
	slog.Debug("WebSocket client registered", "clients", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, exists := h.clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, conn)
	h.metrics.ActiveConnections.Set(float64(len(h.clients)))
	slog.Debug("WebSocket client unregistered", "clients", len(h.clients))
}

func (h *Hub) handleBroadcast(c cmdBroadcast) {
	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		select {
		case cw.sendCh <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow WebSocket client")
		h.handleUnregister(conn)
	}
	h.metrics.MessagesPublished.WithLabelValues(c.event).Inc()
}

func (h *Hub) handleStop() {
	for conn, cw := range h.clients {
		cw.stop()
		delete(h.clients, conn)
	}
	h.metrics.ActiveConnections.Set(0)
}

// send delivers a command unless the hub has stopped.
func (h *Hub) send(ctx context.Context, cmd hubCmd) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.cmdCh <- cmd:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- Public API ---

func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	if err := h.send(context.Background(), cmdRegister{conn: conn, errCh: errCh}); err != nil {
		_ = conn.Close()
		return err
	}
	select {
	case err := <-errCh:
		return err
	case <-h.done:
		_ = conn.Close()
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	_ = h.send(context.Background(), cmdUnregister{conn: conn})
}

// ClientCount returns the number of connected clients, or 0 once stopped.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if err := h.send(context.Background(), cmdClientCount{replyCh: replyCh}); err != nil {
		return 0
	}
	select {
	case n := <-replyCh:
		return n
	case <-h.done:
		return 0
	}
}

// Stop disconnects every client and stops the hub. Further calls are no-ops.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.cmdCh <- cmdStop{}
		close(h.done)
	})
}

func (h *Hub) publish(ctx context.Context, eventType string, data any) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return h.send(ctx, cmdBroadcast{event: eventType, data: payload})
}

func (h *Hub) PublishSessionState(ctx context.Context, status domain.SessionStatus) error {
	return h.publish(ctx, EventSessionState, status)
}

func (h *Hub) PublishRefresh(ctx context.Context, report domain.RefreshReport) error {
	return h.publish(ctx, EventRefresh, report)
}

func (h *Hub) PublishNotice(ctx context.Context, notice domain.Notice) error {
	return h.publish(ctx, EventNotice, notice)
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Incoming messages are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	if err := h.Register(conn); err != nil {
		return
	}

	go func() {
		defer h.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
