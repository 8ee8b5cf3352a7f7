// Package memory is a process-local core.Store. It backs tests and single
// instance deployments.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

type roomEntry struct {
	room         domain.Room
	participants map[domain.UserID]struct{}
}

type userEntry struct {
	user  domain.User
	rooms map[domain.RoomID]struct{}
}

// Store keeps every record behind one RWMutex. Returned values are copies.
type Store struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*roomEntry
	byHost map[domain.UserID]domain.RoomID
	users  map[domain.UserID]*userEntry
	nudges map[domain.RoomID]map[domain.UserID]domain.Nudge
}

var _ core.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		rooms:  make(map[domain.RoomID]*roomEntry),
		byHost: make(map[domain.UserID]domain.RoomID),
		users:  make(map[domain.UserID]*userEntry),
		nudges: make(map[domain.RoomID]map[domain.UserID]domain.Nudge),
	}
}

func notFound(id domain.RoomID) error {
	return domain.Errorf(domain.KindNotFound, "room %s not found", id)
}

func (s *Store) CreateRoom(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return domain.Errorf(domain.KindConflict, "room %s already exists", room.ID)
	}
	e := &roomEntry{
		room:         copyRoom(room),
		participants: map[domain.UserID]struct{}{room.HostID: {}},
	}
	e.room.Participants = nil
	s.rooms[room.ID] = e
	s.byHost[room.HostID] = room.ID
	return nil
}

func (s *Store) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rooms[id]
	if !ok {
		return nil, notFound(id)
	}
	return e.snapshot(), nil
}

func (s *Store) GetRoomByHost(_ context.Context, host domain.UserID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHost[host]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "host %s has no room", host)
	}
	e, ok := s.rooms[id]
	if !ok {
		return nil, notFound(id)
	}
	return e.snapshot(), nil
}

func (s *Store) SaveRoom(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[room.ID]
	if !ok {
		return notFound(room.ID)
	}
	e.room.State = room.State
	e.room.Groups = room.Groups.Clone()
	return nil
}

func (s *Store) AddParticipant(_ context.Context, id domain.RoomID, uid domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[id]
	if !ok {
		return notFound(id)
	}
	e.participants[uid] = struct{}{}
	return nil
}

func (s *Store) RemoveParticipant(_ context.Context, id domain.RoomID, uid domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.rooms[id]; ok {
		delete(e.participants, uid)
	}
	return nil
}

func (s *Store) Participants(_ context.Context, id domain.RoomID) ([]domain.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rooms[id]
	if !ok {
		return []domain.UserID{}, nil
	}
	return e.participantIDs(), nil
}

func (s *Store) IsParticipant(_ context.Context, id domain.RoomID, uid domain.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rooms[id]
	if !ok {
		return false, nil
	}
	_, member := e.participants[uid]
	return member, nil
}

func (s *Store) GetUser(_ context.Context, uid domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.users[uid]
	if !ok {
		return &domain.User{ID: uid}, nil
	}
	u := e.user
	if u.LastLivelinessUpdateAt != nil {
		ts := *u.LastLivelinessUpdateAt
		u.LastLivelinessUpdateAt = &ts
	}
	return &u, nil
}

func (s *Store) SetDisplayName(_ context.Context, uid domain.UserID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userLocked(uid).user.DisplayName = name
	return nil
}

func (s *Store) TouchLiveliness(_ context.Context, uid domain.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userLocked(uid).user.LastLivelinessUpdateAt = &at
	return nil
}

func (s *Store) AddUserRoom(_ context.Context, uid domain.UserID, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userLocked(uid).rooms[id] = struct{}{}
	return nil
}

func (s *Store) RemoveUserRoom(_ context.Context, uid domain.UserID, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.users[uid]; ok {
		delete(e.rooms, id)
	}
	return nil
}

func (s *Store) UserRooms(_ context.Context, uid domain.UserID) ([]domain.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.RoomID{}
	if e, ok := s.users[uid]; ok {
		for id := range e.rooms {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) IncrementNudge(_ context.Context, id domain.RoomID, uid domain.UserID, displayName string, at time.Time) (*domain.Nudge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser, ok := s.nudges[id]
	if !ok {
		byUser = make(map[domain.UserID]domain.Nudge)
		s.nudges[id] = byUser
	}
	n, ok := byUser[uid]
	if !ok {
		n = domain.Nudge{UserID: uid, FirstNudge: at}
	}
	n.DisplayName = displayName
	n.Count++
	n.LastNudge = at
	byUser[uid] = n
	return &n, nil
}

func (s *Store) ListNudges(_ context.Context, id domain.RoomID) ([]domain.Nudge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Nudge, 0, len(s.nudges[id]))
	for _, n := range s.nudges[id] {
		out = append(out, n)
	}
	domain.SortNudges(out)
	return out, nil
}

func (s *Store) ClearNudges(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nudges, id)
	return nil
}

func (s *Store) userLocked(uid domain.UserID) *userEntry {
	e, ok := s.users[uid]
	if !ok {
		e = &userEntry{user: domain.User{ID: uid}, rooms: make(map[domain.RoomID]struct{})}
		s.users[uid] = e
	}
	return e
}

func (e *roomEntry) snapshot() *domain.Room {
	r := copyRoom(&e.room)
	r.Participants = e.participantIDs()
	return &r
}

func (e *roomEntry) participantIDs() []domain.UserID {
	out := make([]domain.UserID, 0, len(e.participants))
	for uid := range e.participants {
		out = append(out, uid)
	}
	slices.Sort(out)
	return out
}

func copyRoom(r *domain.Room) domain.Room {
	c := *r
	c.Groups = r.Groups.Clone()
	c.Participants = slices.Clone(r.Participants)
	return c
}
