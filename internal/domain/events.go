package domain

import (
	"context"
)

// EventPublisher pushes session events to connected renderers.
type EventPublisher interface {
	PublishSessionState(ctx context.Context, status SessionStatus) error
	PublishRefresh(ctx context.Context, report RefreshReport) error
	PublishNotice(ctx context.Context, notice Notice) error
}
