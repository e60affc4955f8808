package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
	"github.com/tompaana/sensorcore-explorer/internal/platform/config"
)

// --- Mock implementations ---

type mockAppService struct {
	statusFn          func() domain.SessionStatus
	setVisibleFn      func(ctx context.Context, visible bool) domain.SessionStatus
	refreshFn         func(ctx context.Context) (domain.RefreshReport, error)
	recordsFn         func(ctx context.Context, kind domain.SensorKind) ([]domain.ViewItem, error)
	noticesFn         func() []domain.Notice
	resolveNoticeFn   func(ctx context.Context, id uuid.UUID, action domain.NoticeAction) error
	recentRefreshesFn func(ctx context.Context, limit int) ([]domain.RefreshReport, error)
	refreshRecordsFn  func(ctx context.Context, reportID uuid.UUID, kind domain.SensorKind) ([]domain.DisplayRecord, error)
}

func (m *mockAppService) Status() domain.SessionStatus {
	if m.statusFn != nil {
		return m.statusFn()
	}
	return domain.SessionStatus{State: domain.SessionActive, Emulated: true}
}

func (m *mockAppService) SetVisible(ctx context.Context, visible bool) domain.SessionStatus {
	if m.setVisibleFn != nil {
		return m.setVisibleFn(ctx, visible)
	}
	return m.Status()
}

func (m *mockAppService) Refresh(ctx context.Context) (domain.RefreshReport, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return domain.RefreshReport{ID: uuid.New()}, nil
}

func (m *mockAppService) Records(ctx context.Context, kind domain.SensorKind) ([]domain.ViewItem, error) {
	if m.recordsFn != nil {
		return m.recordsFn(ctx, kind)
	}
	return nil, nil
}

func (m *mockAppService) Notices() []domain.Notice {
	if m.noticesFn != nil {
		return m.noticesFn()
	}
	return nil
}

func (m *mockAppService) ResolveNotice(ctx context.Context, id uuid.UUID, action domain.NoticeAction) error {
	if m.resolveNoticeFn != nil {
		return m.resolveNoticeFn(ctx, id, action)
	}
	return nil
}

func (m *mockAppService) RecentRefreshes(ctx context.Context, limit int) ([]domain.RefreshReport, error) {
	if m.recentRefreshesFn != nil {
		return m.recentRefreshesFn(ctx, limit)
	}
	return nil, domain.ErrArchiveNotAvailable
}

func (m *mockAppService) RefreshRecords(ctx context.Context, reportID uuid.UUID, kind domain.SensorKind) ([]domain.DisplayRecord, error) {
	if m.refreshRecordsFn != nil {
		return m.refreshRecordsFn(ctx, reportID, kind)
	}
	return nil, domain.ErrArchiveNotAvailable
}

// --- Test helpers ---

type serverOption func(cfg *config.Config, checks *[]HealthCheck)

func withRefreshLimit(ratePerSecond float64, burst int) serverOption {
	return func(cfg *config.Config, _ *[]HealthCheck) {
		cfg.RefreshRateLimit = ratePerSecond
		cfg.RefreshBurst = burst
	}
}

func withHealthChecks(hcs ...HealthCheck) serverOption {
	return func(_ *config.Config, checks *[]HealthCheck) {
		*checks = hcs
	}
}

func newTestServer(t *testing.T, app appService, opts ...serverOption) *Server {
	t.Helper()

	cfg := &config.Config{Port: "0", RefreshRateLimit: 1000, RefreshBurst: 1000}
	var checks []HealthCheck
	for _, opt := range opts {
		opt(cfg, &checks)
	}
	return NewServer(cfg, app, nil, nil, nil, checks)
}

// do sends a request through the full middleware stack.
func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
