package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
	"github.com/tompaana/sensorcore-explorer/internal/platform/correlation"
)

type mockRefresher struct {
	calls     atomic.Int32
	err       error
	sawCorrID atomic.Bool
}

func (m *mockRefresher) Refresh(ctx context.Context) (domain.RefreshReport, error) {
	m.calls.Add(1)
	if _, ok := correlation.ID(ctx); ok {
		m.sawCorrID.Store(true)
	}
	return domain.RefreshReport{}, m.err
}

func TestRefreshTicker_RefreshesOnEachTick(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	refresher := &mockRefresher{}
	ticker := NewRefreshTicker(refresher, clock, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		ticker.Run(ctx)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return refresher.calls.Load() == 1 }, time.Second, time.Millisecond)

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return refresher.calls.Load() == 2 }, time.Second, time.Millisecond)
	assert.True(t, refresher.sawCorrID.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}

func TestRefreshTicker_InactiveSessionIsSkipped(t *testing.T) {
	refresher := &mockRefresher{err: domain.ErrSessionNotActive}
	ticker := NewRefreshTicker(refresher, clockwork.NewFakeClockAt(testNow), time.Minute)

	ticker.tick(context.Background())
	assert.Equal(t, int32(1), refresher.calls.Load())
}
