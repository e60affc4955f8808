package app

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// DefaultMaxNotices bounds the number of pending notices kept by a NoticeBoard.
const DefaultMaxNotices = 32

const (
	locationDisabledMessage = "Location has been disabled. Do you want to open Location settings now?"
	motionDisabledMessage   = "Motion data has been disabled. Do you want to open Motion data settings now?"
	informationTitle        = "Information"
)

// NoticeFor builds the user-facing notice for a failed sensor call.
// Access-disabled codes offer a settings shortcut, everything else is a plain
// failure message.
func NoticeFor(kind domain.SensorKind, err error) domain.Notice {
	code := domain.SenseErrorOf(err)
	n := domain.Notice{Code: code, Kind: kind}

	switch code {
	case domain.SenseLocationDisabled:
		n.Title = informationTitle
		n.Message = locationDisabledMessage
		n.Settings = domain.SettingsLocation
		n.Actions = []domain.NoticeAction{domain.ActionOpenSettings, domain.ActionDismiss}
	case domain.SenseDisabled:
		n.Title = informationTitle
		n.Message = motionDisabledMessage
		n.Settings = domain.SettingsMotion
		n.Actions = []domain.NoticeAction{domain.ActionOpenSettings, domain.ActionDismiss}
	default:
		n.Message = fmt.Sprintf("Failure: %s", code)
		n.Actions = []domain.NoticeAction{domain.ActionDismiss}
	}
	return n
}

// NoticeBoard keeps pending notices in the order they were raised. When full,
// the oldest notice is dropped.
type NoticeBoard struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	limit   int
	notices []domain.Notice
}

func NewNoticeBoard(clock clockwork.Clock, limit int) *NoticeBoard {
	if limit <= 0 {
		limit = DefaultMaxNotices
	}
	return &NoticeBoard{clock: clock, limit: limit}
}

// Raise records a notice for err and returns it.
func (b *NoticeBoard) Raise(kind domain.SensorKind, err error) domain.Notice {
	n := NoticeFor(kind, err)
	n.ID = uuid.New()
	n.CreatedAt = b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.notices) >= b.limit {
		b.notices = slices.Delete(b.notices, 0, len(b.notices)-b.limit+1)
	}
	b.notices = append(b.notices, n)
	return n
}

// List returns the pending notices, oldest first.
func (b *NoticeBoard) List() []domain.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.notices)
}

func (b *NoticeBoard) Get(id uuid.UUID) (domain.Notice, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(id)
	if i < 0 {
		return domain.Notice{}, domain.ErrNoticeNotFound
	}
	return b.notices[i], nil
}

// Dismiss removes a pending notice.
func (b *NoticeBoard) Dismiss(id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(id)
	if i < 0 {
		return domain.ErrNoticeNotFound
	}
	b.notices = slices.Delete(b.notices, i, i+1)
	return nil
}

func (b *NoticeBoard) index(id uuid.UUID) int {
	return slices.IndexFunc(b.notices, func(n domain.Notice) bool { return n.ID == id })
}
