package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

type connEntry struct {
	Room   domain.RoomID
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Registry tracks the live event connection of each user on this process and
// the room that connection is bound to.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.UserID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.UserID]*connEntry)}
}

// Bind registers conn for uid. An older connection of the same user is
// cancelled and closed.
func (r *Registry) Bind(uid domain.UserID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	old := r.conns[uid]
	r.conns[uid] = &connEntry{Conn: conn, Cancel: cancel}
	r.mu.Unlock()

	if old != nil && old.Conn != conn {
		if old.Cancel != nil {
			old.Cancel()
		}
		old.Conn.Close()
		log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("replaced connection")
	}
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("bound connection")
}

// Unbind removes uid only while conn is still the registered connection.
func (r *Registry) Unbind(uid domain.UserID, conn core.SignalConnection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[uid]
	if !ok || e.Conn != conn {
		return false
	}
	delete(r.conns, uid)
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("unbind connection")
	return true
}

func (r *Registry) Conn(uid domain.UserID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[uid]; ok {
		return e.Conn, true
	}
	return nil, false
}

func (r *Registry) RoomOf(uid domain.UserID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[uid]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

func (r *Registry) UpdateRoom(uid domain.UserID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[uid]
	if !ok {
		return false
	}
	e.Room = room
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("room", string(room)).Msg("updated room")
	return true
}

// RemoveRoom clears the binding if uid is currently bound to room.
func (r *Registry) RemoveRoom(uid domain.UserID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[uid]; ok && e.Room == room {
		e.Room = ""
		log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("removed room association")
	}
}

type RegSnap struct {
	UserID domain.UserID
	Conn   core.SignalConnection
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []RegSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegSnap, 0)
	for uid, e := range r.conns {
		if e.Room == room {
			out = append(out, RegSnap{UserID: uid, Conn: e.Conn})
		}
	}
	return out
}

// Cancel stops the connection of uid, if any.
func (r *Registry) Cancel(uid domain.UserID) bool {
	r.mu.RLock()
	e, ok := r.conns[uid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("canceled connection")
	return true
}
