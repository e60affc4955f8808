package domain

import (
	"time"

	"github.com/google/uuid"
)

// NoticeAction is a choice offered to the user alongside a notice.
type NoticeAction string

const (
	ActionOpenSettings NoticeAction = "open_settings"
	ActionDismiss      NoticeAction = "dismiss"
)

// Notice is a user-facing report of a failed sensor call.
type Notice struct {
	ID        uuid.UUID      `json:"id"`
	Code      SenseError     `json:"code"`
	Kind      SensorKind     `json:"kind,omitempty"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Settings  SettingsPage   `json:"settings,omitempty"`
	Actions   []NoticeAction `json:"actions"`
	CreatedAt time.Time      `json:"created_at"`
}

// Offers reports whether the notice lets the user pick action.
func (n Notice) Offers(action NoticeAction) bool {
	for _, a := range n.Actions {
		if a == action {
			return true
		}
	}
	return false
}
