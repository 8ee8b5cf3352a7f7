package core

import (
	"context"

	"github.com/dkeye/breakout/internal/domain"
)

// Frame is one encoded outbound event.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Target addresses a frame to every connection bound to a room, or to the
// single live connection of a user. Exactly one field is set.
type Target struct {
	Room domain.RoomID `json:"room,omitempty"`
	User domain.UserID `json:"user,omitempty"`
}

// Fanout relays frames between gateway instances. Every instance, the
// publisher included, receives published frames through Subscribe.
type Fanout interface {
	Publish(ctx context.Context, to Target, f Frame) error
	// Subscribe blocks until ctx is done.
	Subscribe(ctx context.Context, deliver func(Target, Frame)) error
}
