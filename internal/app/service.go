package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tompaana/sensorcore-explorer/internal/adapter/metrics"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	refreshKey   = "refresh"
	opGetDefault = "get_default"
)

// Options tunes the fetchers and the notice board. Zero values select defaults.
type Options struct {
	Lookback   time.Duration
	MaxRecords int
	MaxNotices int
}

// Service is the application layer. It owns the sensor session and
// orchestrates activation, fetching and binding.
type Service struct {
	platform     domain.SensorPlatform
	session      *SessionManager
	fetcher      *Fetcher
	binder       *Binder
	notices      *NoticeBoard
	archive      domain.RefreshArchive
	events       domain.EventPublisher
	clock        clockwork.Clock
	metrics      *metrics.SessionMetrics
	refreshGroup singleflight.Group
	stopped      bool

	// run serializes transitions and population so one pass at a time
	// writes the collections.
	run sync.Mutex
}

// NewService creates the application layer service. archive may be nil when
// no refresh archive is configured.
func NewService(platform domain.SensorPlatform, store domain.RecordStore, archive domain.RefreshArchive, events domain.EventPublisher, clock clockwork.Clock, m *metrics.SessionMetrics, opts Options) *Service {
	if archive == nil {
		archive = NoopArchive{}
	}
	return &Service{
		platform: platform,
		session:  NewSessionManager(m),
		fetcher:  NewFetcher(clock, opts.Lookback, opts.MaxRecords),
		binder:   NewBinder(store),
		notices:  NewNoticeBoard(clock, opts.MaxNotices),
		archive:  archive,
		events:   events,
		clock:    clock,
		metrics:  m,
	}
}

// Start checks SDK support, acquires the sensor handles and performs the
// initial activation. ErrSDKUnsupported is fatal to the caller. A getter
// failing with GeneralFailure is returned too, so the caller can retry once
// the platform is reachable.
func (s *Service) Start(ctx context.Context) error {
	if !s.platform.Emulated() {
		for _, kind := range domain.SensorKinds {
			ok, err := s.platform.IsSupported(ctx, kind)
			if err != nil {
				return fmt.Errorf("%w: %s support check: %w", domain.ErrSDKUnsupported, kind, err)
			}
			if !ok {
				return fmt.Errorf("%w: %s", domain.ErrSDKUnsupported, kind)
			}
		}
	}

	s.run.Lock()
	defer s.run.Unlock()

	// A shared store may still hold collections from a previous process.
	if err := s.binder.Clear(ctx); err != nil {
		return fmt.Errorf("reset collections: %w", err)
	}

	h, err := s.acquireHandles(ctx, Handles{}, false)
	if err != nil {
		return err
	}
	s.session.Acquire(h)
	s.activateLocked(ctx)
	return nil
}

// acquireHandles asks the platform for every handle missing from h. An SDK
// code from a getter leaves its handle nil and raises a notice. A
// GeneralFailure means the platform could not be reached: it is returned
// unless notifyUnreachable is set, in which case it is raised like any other
// code.
func (s *Service) acquireHandles(ctx context.Context, h Handles, notifyUnreachable bool) (Handles, error) {
	var unreachable error
	get := func(kind domain.SensorKind, missing bool, fn func(context.Context) error) {
		if !missing || unreachable != nil {
			return
		}
		err := fn(ctx)
		if err == nil {
			return
		}
		if !notifyUnreachable && domain.SenseErrorOf(err) == domain.SenseGeneralFailure {
			s.metrics.SensorCallFailures.WithLabelValues(string(kind), opGetDefault, string(domain.SenseGeneralFailure)).Inc()
			unreachable = fmt.Errorf("get %s handle: %w", kind, err)
			return
		}
		s.callSensor(ctx, kind, opGetDefault, func(context.Context) error { return err })
	}

	get(domain.KindActivity, h.Activity == nil, func(ctx context.Context) (err error) {
		h.Activity, err = s.platform.ActivityMonitor(ctx)
		return err
	})
	get(domain.KindPlaces, h.Places == nil, func(ctx context.Context) (err error) {
		h.Places, err = s.platform.PlaceMonitor(ctx)
		return err
	})
	get(domain.KindSteps, h.Steps == nil, func(ctx context.Context) (err error) {
		h.Steps, err = s.platform.StepCounter(ctx)
		return err
	})
	get(domain.KindTrackPoint, h.TrackPoint == nil, func(ctx context.Context) (err error) {
		h.TrackPoint, err = s.platform.TrackPointMonitor(ctx)
		return err
	})
	if unreachable != nil {
		return Handles{}, unreachable
	}

	if !h.Complete() {
		slog.Warn("Sensor handles unavailable, session will stay inactive", "handles", h.Availability())
	}
	return h, nil
}

// reacquireLocked retries the getters of handles that are still missing, so a
// platform that was unreachable earlier can complete the session.
func (s *Service) reacquireLocked(ctx context.Context) {
	current := s.session.Handles()
	if s.stopped || current.Complete() {
		return
	}
	h, _ := s.acquireHandles(ctx, current, true)
	s.session.Acquire(h)
}

// SetVisible applies a visibility change: true activates an Inactive session,
// false deactivates an Active one. Anything else leaves the state unchanged.
func (s *Service) SetVisible(ctx context.Context, visible bool) domain.SessionStatus {
	s.run.Lock()
	defer s.run.Unlock()

	if visible {
		s.reacquireLocked(ctx)
		s.activateLocked(ctx)
	} else {
		s.deactivateLocked(ctx)
	}
	return s.Status()
}

// Refresh clears and repopulates all collections. Concurrent callers share
// the in-flight pass.
func (s *Service) Refresh(ctx context.Context) (domain.RefreshReport, error) {
	// The pass is shared, so one caller going away must not abort it.
	ctx = context.WithoutCancel(ctx)
	v, err, shared := s.refreshGroup.Do(refreshKey, func() (any, error) {
		s.run.Lock()
		defer s.run.Unlock()

		if s.session.State() != domain.SessionActive {
			return domain.RefreshReport{}, domain.ErrSessionNotActive
		}
		if err := s.binder.Clear(ctx); err != nil {
			return domain.RefreshReport{}, err
		}
		return s.populate(ctx)
	})
	if shared {
		slog.Debug("Refresh joined in-flight pass")
	}
	if err != nil {
		return domain.RefreshReport{}, err
	}
	return v.(domain.RefreshReport), nil
}

// Stop deactivates an Active session and releases the handles.
func (s *Service) Stop(ctx context.Context) {
	s.run.Lock()
	defer s.run.Unlock()

	s.deactivateLocked(ctx)
	s.session.Release()
	s.stopped = true
	s.publishState(ctx)
	slog.Info("Sensor session stopped")
}

// Status returns the current session state and handle availability.
func (s *Service) Status() domain.SessionStatus {
	return domain.SessionStatus{
		State:    s.session.State(),
		Handles:  s.session.Handles().Availability(),
		Emulated: s.platform.Emulated(),
	}
}

// Records returns kind's display collection in order.
func (s *Service) Records(ctx context.Context, kind domain.SensorKind) ([]domain.ViewItem, error) {
	return s.binder.Items(ctx, kind)
}

// Notices returns the pending notices, oldest first.
func (s *Service) Notices() []domain.Notice {
	return s.notices.List()
}

// ResolveNotice applies the user's choice to a pending notice. open_settings
// launches the matching settings page before the notice is dismissed.
func (s *Service) ResolveNotice(ctx context.Context, id uuid.UUID, action domain.NoticeAction) error {
	n, err := s.notices.Get(id)
	if err != nil {
		return err
	}
	if !n.Offers(action) {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedAction, action)
	}

	if action == domain.ActionOpenSettings {
		if err := s.platform.LaunchSettings(ctx, n.Settings); err != nil {
			return fmt.Errorf("launch %s settings: %w", n.Settings, err)
		}
	}
	return s.notices.Dismiss(id)
}

// RecentRefreshes returns up to limit archived refresh reports, newest first.
func (s *Service) RecentRefreshes(ctx context.Context, limit int) ([]domain.RefreshReport, error) {
	return s.archive.Recent(ctx, limit)
}

// RefreshRecords returns the archived records of kind produced by one refresh.
func (s *Service) RefreshRecords(ctx context.Context, reportID uuid.UUID, kind domain.SensorKind) ([]domain.DisplayRecord, error) {
	return s.archive.Records(ctx, reportID, kind)
}

func (s *Service) activateLocked(ctx context.Context) {
	if !s.session.Activate(ctx, s.callSensor) {
		return
	}
	s.publishState(ctx)

	if _, err := s.populate(ctx); err != nil {
		slog.Error("Initial population failed", "error", err)
	}
}

func (s *Service) deactivateLocked(ctx context.Context) {
	if !s.session.Deactivate(ctx, s.callSensor) {
		return
	}
	if err := s.binder.Clear(ctx); err != nil {
		slog.Error("Failed to clear collections after deactivation", "error", err)
	}
	s.publishState(ctx)
}

type fetchFunc func(ctx context.Context) ([]domain.DisplayRecord, error)

// populate runs the four fetchers in order and binds their records. A failed
// fetcher leaves its collection empty; only store failures abort the pass.
func (s *Service) populate(ctx context.Context) (domain.RefreshReport, error) {
	h := s.session.Handles()
	report := domain.RefreshReport{
		ID:        uuid.New(),
		StartedAt: s.clock.Now(),
		Counts:    make(map[domain.SensorKind]int, len(domain.SensorKinds)),
	}

	fetches := []struct {
		kind domain.SensorKind
		fn   fetchFunc
	}{
		{domain.KindActivity, func(ctx context.Context) ([]domain.DisplayRecord, error) {
			return s.fetcher.Activity(ctx, h.Activity)
		}},
		{domain.KindPlaces, func(ctx context.Context) ([]domain.DisplayRecord, error) {
			return s.fetcher.Places(ctx, h.Places)
		}},
		{domain.KindSteps, func(ctx context.Context) ([]domain.DisplayRecord, error) {
			res, err := s.fetcher.Steps(ctx, h.Steps)
			report.DuplicateSteps = res.Duplicates
			return res.Records, err
		}},
		{domain.KindTrackPoint, func(ctx context.Context) ([]domain.DisplayRecord, error) {
			return s.fetcher.TrackPoints(ctx, h.TrackPoint)
		}},
	}

	records := make(map[domain.SensorKind][]domain.DisplayRecord, len(fetches))
	for _, f := range fetches {
		var recs []domain.DisplayRecord
		start := s.clock.Now()
		ok := s.callSensor(ctx, f.kind, "history", func(ctx context.Context) (err error) {
			recs, err = f.fn(ctx)
			return err
		})
		s.metrics.FetchDuration.WithLabelValues(string(f.kind)).Observe(s.clock.Since(start).Seconds())
		if !ok {
			report.Failures = append(report.Failures, string(f.kind))
			continue
		}

		if _, err := s.binder.Bind(ctx, f.kind, recs); err != nil {
			s.metrics.Refreshes.WithLabelValues("error").Inc()
			return domain.RefreshReport{}, err
		}
		records[f.kind] = recs
		report.Counts[f.kind] = len(recs)
		s.metrics.RecordsEmitted.WithLabelValues(string(f.kind)).Add(float64(len(recs)))
	}
	s.metrics.DuplicateSteps.Add(float64(report.DuplicateSteps))
	report.FinishedAt = s.clock.Now()

	result := "ok"
	if len(report.Failures) > 0 {
		result = "partial"
	}
	s.metrics.Refreshes.WithLabelValues(result).Inc()

	if err := s.archive.Save(ctx, report, records); err != nil {
		slog.Error("Failed to archive refresh report", "refresh_id", report.ID.String(), "error", err)
	}
	if err := s.events.PublishRefresh(ctx, report); err != nil {
		slog.Warn("Failed to publish refresh report", "refresh_id", report.ID.String(), "error", err)
	}

	slog.Info("Collections populated", "refresh_id", report.ID.String(), "counts", report.Counts, "duplicate_steps", report.DuplicateSteps)
	return report, nil
}

// callSensor runs one SDK call. A failure is logged, counted and raised as a
// notice; it never propagates to the caller.
func (s *Service) callSensor(ctx context.Context, kind domain.SensorKind, op string, fn func(context.Context) error) bool {
	err := fn(ctx)
	if err == nil {
		return true
	}

	code := domain.SenseErrorOf(err)
	s.metrics.SensorCallFailures.WithLabelValues(string(kind), op, string(code)).Inc()
	s.metrics.NoticesRaised.WithLabelValues(string(code)).Inc()

	if errors.Is(err, domain.ErrLocationDisabled) || errors.Is(err, domain.ErrMotionDisabled) {
		slog.Warn("Sensor access disabled", "kind", string(kind), "op", op, "code", string(code))
	} else {
		slog.Error("Sensor call failed", "kind", string(kind), "op", op, "code", string(code), "error", err)
	}

	n := s.notices.Raise(kind, err)
	if perr := s.events.PublishNotice(ctx, n); perr != nil {
		slog.Warn("Failed to publish notice", "notice_id", n.ID.String(), "error", perr)
	}
	return false
}

func (s *Service) publishState(ctx context.Context) {
	if err := s.events.PublishSessionState(ctx, s.Status()); err != nil {
		slog.Warn("Failed to publish session state", "error", err)
	}
}
