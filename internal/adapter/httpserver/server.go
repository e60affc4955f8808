package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/metrics"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
	"github.com/tompaana/sensorcore-explorer/internal/platform/config"
)

type appService interface {
	Status() domain.SessionStatus
	SetVisible(ctx context.Context, visible bool) domain.SessionStatus
	Refresh(ctx context.Context) (domain.RefreshReport, error)
	Records(ctx context.Context, kind domain.SensorKind) ([]domain.ViewItem, error)
	Notices() []domain.Notice
	ResolveNotice(ctx context.Context, id uuid.UUID, action domain.NoticeAction) error
	RecentRefreshes(ctx context.Context, limit int) ([]domain.RefreshReport, error)
	RefreshRecords(ctx context.Context, reportID uuid.UUID, kind domain.SensorKind) ([]domain.DisplayRecord, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app              appService
	websocketHandler http.Handler
	registry         *prometheus.Registry
	httpMetrics      *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer wires the HTTP API. registry and httpMetrics may be nil, in which
// case /metrics is not served and requests are not instrumented.
func NewServer(cfg *config.Config, app appService, websocketHandler http.Handler, registry *prometheus.Registry, httpMetrics *metrics.HTTPMetrics, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler

	srv := &Server{
		echo:             e,
		config:           cfg,
		app:              app,
		websocketHandler: websocketHandler,
		registry:         registry,
		httpMetrics:      httpMetrics,
		healthChecks:     healthChecks,
		startTime:        time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
