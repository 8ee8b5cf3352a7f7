package app

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

// Orchestrator enforces room lifecycle and group rules. It does not check
// who is calling; host authorization belongs to the gateway.
type Orchestrator struct {
	Store  core.Store
	Locker core.Locker

	Now     func() time.Time
	Shuffle func(n int, swap func(i, j int))
	NewID   func() domain.RoomID
}

func NewOrchestrator(store core.Store, locker core.Locker) *Orchestrator {
	return &Orchestrator{
		Store:   store,
		Locker:  locker,
		Now:     time.Now,
		Shuffle: rand.Shuffle,
		NewID:   func() domain.RoomID { return domain.RoomID(uuid.NewString()) },
	}
}

func roomLockKey(id domain.RoomID) string { return "room:" + string(id) }
func hostLockKey(uid domain.UserID) string { return "host:" + string(uid) }

// withLock runs fn while holding key. Mutations of one room never interleave.
func (o *Orchestrator) withLock(ctx context.Context, key string, fn func() error) error {
	unlock, err := o.Locker.Lock(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Str("key", key).Msg("lock")
		return err
	}
	defer unlock()
	return fn()
}

func (o *Orchestrator) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return o.Store.GetRoom(ctx, id)
}

func (o *Orchestrator) GetRoomByHost(ctx context.Context, host domain.UserID) (*domain.Room, error) {
	return o.Store.GetRoomByHost(ctx, host)
}

func (o *Orchestrator) IsParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) (bool, error) {
	return o.Store.IsParticipant(ctx, id, uid)
}

// RoomOfParticipant returns the first room (by id) the user is still a
// participant of.
func (o *Orchestrator) RoomOfParticipant(ctx context.Context, uid domain.UserID) (*domain.Room, error) {
	ids, err := o.Store.UserRooms(ctx, uid)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		ok, err := o.Store.IsParticipant(ctx, id, uid)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		room, err := o.Store.GetRoom(ctx, id)
		if domain.KindOf(err) == domain.KindNotFound {
			continue
		}
		return room, err
	}
	return nil, domain.Errorf(domain.KindNotFound, "user %s is not in any room", uid)
}
