package core

import (
	"context"
	"time"

	"github.com/dkeye/breakout/internal/domain"
)

// RoomStore persists room records and their participant sets.
// Missing rooms are reported with a domain.ErrNotFound kind.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	GetRoomByHost(ctx context.Context, host domain.UserID) (*domain.Room, error)
	// SaveRoom overwrites state and groups; the participant set is untouched.
	SaveRoom(ctx context.Context, room *domain.Room) error

	AddParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) error
	RemoveParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) error
	Participants(ctx context.Context, id domain.RoomID) ([]domain.UserID, error)
	IsParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) (bool, error)
}

// UserDirectory stores per-session participant records. Records are created
// lazily on first write and never deleted.
type UserDirectory interface {
	// GetUser returns an empty record for unknown ids.
	GetUser(ctx context.Context, uid domain.UserID) (*domain.User, error)
	SetDisplayName(ctx context.Context, uid domain.UserID, name string) error
	TouchLiveliness(ctx context.Context, uid domain.UserID, at time.Time) error

	AddUserRoom(ctx context.Context, uid domain.UserID, id domain.RoomID) error
	RemoveUserRoom(ctx context.Context, uid domain.UserID, id domain.RoomID) error
	UserRooms(ctx context.Context, uid domain.UserID) ([]domain.RoomID, error)
}

// NudgeStore keeps per (room, user) nudge counters.
type NudgeStore interface {
	IncrementNudge(ctx context.Context, id domain.RoomID, uid domain.UserID, displayName string, at time.Time) (*domain.Nudge, error)
	// ListNudges is ordered by first nudge, then user id.
	ListNudges(ctx context.Context, id domain.RoomID) ([]domain.Nudge, error)
	ClearNudges(ctx context.Context, id domain.RoomID) error
}

// Store bundles the three record stores of one backend.
type Store interface {
	RoomStore
	UserDirectory
	NudgeStore
}

// Locker serializes read-modify-write sequences on a key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
