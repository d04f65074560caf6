package transport

import (
	"context"

	"hellwatch/internal/guild"
)

// Message is one outbound notification.
//
// MentionedRoles is the allowed-mentions restriction: the platform must ping
// exactly these roles and nobody else. An empty slice means no mention
// fan-out at all, even if the content happens to contain mention markers.
type Message struct {
	Content        string
	MentionedRoles []string
}

// Sender delivers one message to one channel. Implementations live at the
// platform boundary (telegram today); the broadcaster only sees this.
type Sender interface {
	Send(ctx context.Context, to guild.ChannelRef, msg Message) error
}
