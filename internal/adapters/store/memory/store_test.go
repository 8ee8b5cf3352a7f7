package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/breakout/internal/domain"
)

func newRoom(id, host string) *domain.Room {
	return &domain.Room{
		ID:        domain.RoomID(id),
		HostID:    domain.UserID(host),
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		State:     domain.RoomWaiting,
	}
}

func TestStore_CreateRoomSeedsHost(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.CreateRoom(ctx, newRoom("r1", "h")))

	room, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("h"), room.HostID)
	assert.Equal(t, []domain.UserID{"h"}, room.Participants)

	byHost, err := s.GetRoomByHost(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("r1"), byHost.ID)

	err = s.CreateRoom(ctx, newRoom("r1", "other"))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestStore_MissingRoom(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.GetRoom(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetRoomByHost(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.SaveRoom(ctx, newRoom("nope", "h")), domain.ErrNotFound)

	ids, err := s.Participants(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	r := newRoom("r1", "h")
	require.NoError(t, s.CreateRoom(ctx, r))

	r.Groups = domain.Groups{"0": {"h"}}
	r.State = domain.RoomActive
	require.NoError(t, s.SaveRoom(ctx, r))

	got, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	got.Groups["0"][0] = "mutated"

	again, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("h"), again.Groups["0"][0])
	assert.Equal(t, domain.RoomActive, again.State)
}

func TestStore_Participants(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.CreateRoom(ctx, newRoom("r1", "h")))

	require.NoError(t, s.AddParticipant(ctx, "r1", "b"))
	require.NoError(t, s.AddParticipant(ctx, "r1", "a"))
	require.NoError(t, s.AddParticipant(ctx, "r1", "a"))

	ids, err := s.Participants(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"a", "b", "h"}, ids)

	ok, err := s.IsParticipant(ctx, "r1", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.RemoveParticipant(ctx, "r1", "a"))
	ok, err = s.IsParticipant(ctx, "r1", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.AddParticipant(ctx, "nope", "a"), domain.ErrNotFound)
}

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u1"), u.ID)
	assert.Empty(t, u.DisplayName)
	assert.Nil(t, u.LastLivelinessUpdateAt)

	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, s.SetDisplayName(ctx, "u1", "Ada"))
	require.NoError(t, s.TouchLiveliness(ctx, "u1", at))

	u, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.DisplayName)
	require.NotNil(t, u.LastLivelinessUpdateAt)
	assert.True(t, at.Equal(*u.LastLivelinessUpdateAt))

	require.NoError(t, s.AddUserRoom(ctx, "u1", "r2"))
	require.NoError(t, s.AddUserRoom(ctx, "u1", "r1"))
	rooms, err := s.UserRooms(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.RoomID{"r1", "r2"}, rooms)

	require.NoError(t, s.RemoveUserRoom(ctx, "u1", "r1"))
	rooms, err = s.UserRooms(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.RoomID{"r2"}, rooms)
}

func TestStore_Nudges(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.IncrementNudge(ctx, "r1", "b", "Bee", t0)
	require.NoError(t, err)
	_, err = s.IncrementNudge(ctx, "r1", "a", "Ay", t0.Add(time.Second))
	require.NoError(t, err)
	n, err := s.IncrementNudge(ctx, "r1", "b", "Bea", t0.Add(2*time.Second))
	require.NoError(t, err)

	assert.Equal(t, 2, n.Count)
	assert.Equal(t, "Bea", n.DisplayName)
	assert.True(t, n.FirstNudge.Equal(t0))
	assert.True(t, n.LastNudge.Equal(t0.Add(2*time.Second)))

	list, err := s.ListNudges(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.UserID("b"), list[0].UserID)
	assert.Equal(t, domain.UserID("a"), list[1].UserID)

	require.NoError(t, s.ClearNudges(ctx, "r1"))
	list, err = s.ListNudges(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
