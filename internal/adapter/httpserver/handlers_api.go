package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
	apperrors "github.com/tompaana/sensorcore-explorer/internal/platform/errors"
)

const (
	defaultRefreshHistory = 20
	maxRefreshHistory     = 100
)

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api")

	api.GET("/session", s.handleSession)
	api.PUT("/session/visibility", s.handleVisibility)
	api.POST("/refresh", s.handleRefresh, newRateLimiter(s.config.RefreshRateLimit, s.config.RefreshBurst))

	api.GET("/records", s.handleAllRecords)
	api.GET("/records/:kind", s.handleRecords)

	api.GET("/refreshes", s.handleRefreshHistory)
	api.GET("/refreshes/:id/:kind", s.handleRefreshRecords)

	api.GET("/notices", s.handleNotices)
	api.POST("/notices/:id/:action", s.handleResolveNotice)
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

type recordsResponse struct {
	Kind  domain.SensorKind `json:"kind"`
	Items []domain.ViewItem `json:"items"`
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func parseKind(c echo.Context) (domain.SensorKind, error) {
	raw := c.Param("kind")
	kind, ok := domain.ParseSensorKind(raw)
	if !ok {
		return "", apperrors.ValidationError("unknown sensor kind").WithField("kind", raw)
	}
	return kind, nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid UUID format").WithField("id", raw)
	}
	return id, nil
}

func (s *Server) handleSession(c echo.Context) error {
	return writeJSON(c, http.StatusOK, s.app.Status())
}

func (s *Server) handleVisibility(c echo.Context) error {
	var req visibilityRequest
	if err := c.Bind(&req); err != nil || req.Visible == nil {
		return apperrors.ValidationError(`body must be {"visible": true|false}`)
	}

	status := s.app.SetVisible(c.Request().Context(), *req.Visible)
	return writeJSON(c, http.StatusOK, status)
}

func (s *Server) handleRefresh(c echo.Context) error {
	report, err := s.app.Refresh(c.Request().Context())
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, report)
}

func (s *Server) handleRecords(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return err
	}

	items, err := s.app.Records(c.Request().Context(), kind)
	if err != nil {
		return apperrors.InternalError("failed to load records", err).WithField("kind", string(kind))
	}
	if items == nil {
		items = []domain.ViewItem{}
	}
	return writeJSON(c, http.StatusOK, recordsResponse{Kind: kind, Items: items})
}

func (s *Server) handleAllRecords(c echo.Context) error {
	out := make([]recordsResponse, 0, len(domain.SensorKinds))
	for _, kind := range domain.SensorKinds {
		items, err := s.app.Records(c.Request().Context(), kind)
		if err != nil {
			return apperrors.InternalError("failed to load records", err).WithField("kind", string(kind))
		}
		if items == nil {
			items = []domain.ViewItem{}
		}
		out = append(out, recordsResponse{Kind: kind, Items: items})
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleRefreshHistory(c echo.Context) error {
	limit := defaultRefreshHistory
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRefreshHistory {
			return apperrors.ValidationError(fmt.Sprintf("limit must be between 1 and %d", maxRefreshHistory)).WithField("limit", raw)
		}
		limit = n
	}

	reports, err := s.app.RecentRefreshes(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if reports == nil {
		reports = []domain.RefreshReport{}
	}
	return writeJSON(c, http.StatusOK, reports)
}

func (s *Server) handleRefreshRecords(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	kind, err := parseKind(c)
	if err != nil {
		return err
	}

	records, err := s.app.RefreshRecords(c.Request().Context(), id, kind)
	if err != nil {
		return err
	}
	if records == nil {
		records = []domain.DisplayRecord{}
	}
	return writeJSON(c, http.StatusOK, records)
}

func (s *Server) handleNotices(c echo.Context) error {
	notices := s.app.Notices()
	if notices == nil {
		notices = []domain.Notice{}
	}
	return writeJSON(c, http.StatusOK, notices)
}

func (s *Server) handleResolveNotice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	action := domain.NoticeAction(c.Param("action"))
	if action != domain.ActionOpenSettings && action != domain.ActionDismiss {
		return apperrors.ValidationError("unknown notice action").WithField("action", string(action))
	}

	if err := s.app.ResolveNotice(c.Request().Context(), id, action); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
