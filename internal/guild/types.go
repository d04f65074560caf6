package guild

import (
	"context"
	"errors"
)

var ErrDisabled = errors.New("guild repository disabled")

// ChannelRef is a typed reference to a delivery target. It is resolved by the
// transport adapter; this core never assumes it is a live platform object.
type ChannelRef struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`
}

// RoleRef identifies a mention target within a group.
type RoleRef struct {
	ID string `json:"id"`
}

// EventSettings is one guild's delivery configuration for one event key.
type EventSettings struct {
	Enabled bool
	Channel *ChannelRef
	Role    *RoleRef
	// Schedule marks events that should also create a calendar-style entry
	// on the platform. Actual scheduling is delegated to broadcast.Scheduler.
	Schedule bool
}

// Guild is an independently configured subscriber group.
// Settings maps event key -> per-event delivery configuration.
type Guild struct {
	ID       string
	Settings map[string]EventSettings
}

// Repository provides read access to subscriber configuration.
// The notifier treats it as an external collaborator and never mutates it.
type Repository interface {
	GetAll(ctx context.Context) ([]Guild, error)
	Close() error
}
