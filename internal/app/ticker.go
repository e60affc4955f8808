package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
	"github.com/tompaana/sensorcore-explorer/internal/platform/correlation"
)

// Refresher is the part of Service driven by RefreshTicker.
type Refresher interface {
	Refresh(ctx context.Context) (domain.RefreshReport, error)
}

// RefreshTicker periodically repopulates the collections while the session is
// active. Ticks that find the session inactive are skipped silently.
type RefreshTicker struct {
	refresher Refresher
	clock     clockwork.Clock
	interval  time.Duration
}

func NewRefreshTicker(refresher Refresher, clock clockwork.Clock, interval time.Duration) *RefreshTicker {
	return &RefreshTicker{refresher: refresher, clock: clock, interval: interval}
}

// Run starts the refresh loop. It blocks until ctx is cancelled.
func (t *RefreshTicker) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.tick(ctx)
		}
	}
}

func (t *RefreshTicker) tick(ctx context.Context) {
	tickCtx := correlation.WithID(ctx, correlation.NewID())

	report, err := t.refresher.Refresh(tickCtx)
	if errors.Is(err, domain.ErrSessionNotActive) {
		return
	}
	if err != nil {
		slog.WarnContext(tickCtx, "Ticker: refresh failed", "error", err)
		return
	}
	slog.DebugContext(tickCtx, "Ticker: refreshed collections", "refresh_id", report.ID.String(), "counts", report.Counts)
}
