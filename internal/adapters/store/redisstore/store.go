// Package redisstore implements core.Store on Redis with go-redis/v9.
//
// Key layout:
//
//	room:{id}              hash  id, hostId, createdAt, state, groups (json)
//	participants:{id}      set   user ids
//	host_rooms:{host}      set   room ids (at most one)
//	user:{uid}             hash  displayName, lastLivelinessUpdateAt
//	user_rooms:{uid}       set   room ids
//	host_nudges:{id}       hash  uid -> json nudge
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

type Store struct {
	rdb *redis.Client
}

var _ core.Store = (*Store)(nil)

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

func roomKey(id domain.RoomID) string { return "room:" + string(id) }
func participantsKey(id domain.RoomID) string { return "participants:" + string(id) }
func hostRoomsKey(uid domain.UserID) string { return "host_rooms:" + string(uid) }
func userKey(uid domain.UserID) string { return "user:" + string(uid) }
func userRoomsKey(uid domain.UserID) string { return "user_rooms:" + string(uid) }
func nudgesKey(id domain.RoomID) string { return "host_nudges:" + string(id) }

func (s *Store) CreateRoom(ctx context.Context, room *domain.Room) error {
	fields, err := roomFields(room)
	if err != nil {
		return err
	}
	created, err := s.rdb.HSetNX(ctx, roomKey(room.ID), "id", string(room.ID)).Result()
	if err != nil {
		return fmt.Errorf("create room %s: %w", room.ID, err)
	}
	if !created {
		return domain.Errorf(domain.KindConflict, "room %s already exists", room.ID)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, roomKey(room.ID), fields)
	pipe.SAdd(ctx, participantsKey(room.ID), string(room.HostID))
	pipe.SAdd(ctx, hostRoomsKey(room.HostID), string(room.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create room %s: %w", room.ID, err)
	}
	return nil
}

func (s *Store) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	pipe := s.rdb.Pipeline()
	hash := pipe.HGetAll(ctx, roomKey(id))
	members := pipe.SMembers(ctx, participantsKey(id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get room %s: %w", id, err)
	}
	fields := hash.Val()
	if len(fields) == 0 {
		return nil, domain.Errorf(domain.KindNotFound, "room %s not found", id)
	}
	room, err := parseRoom(id, fields)
	if err != nil {
		return nil, err
	}
	room.Participants = toUserIDs(members.Val())
	return room, nil
}

func (s *Store) GetRoomByHost(ctx context.Context, host domain.UserID) (*domain.Room, error) {
	ids, err := s.rdb.SMembers(ctx, hostRoomsKey(host)).Result()
	if err != nil {
		return nil, fmt.Errorf("host rooms %s: %w", host, err)
	}
	if len(ids) == 0 {
		return nil, domain.Errorf(domain.KindNotFound, "host %s has no room", host)
	}
	slices.Sort(ids)
	return s.GetRoom(ctx, domain.RoomID(ids[0]))
}

func (s *Store) SaveRoom(ctx context.Context, room *domain.Room) error {
	exists, err := s.rdb.Exists(ctx, roomKey(room.ID)).Result()
	if err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, err)
	}
	if exists == 0 {
		return domain.Errorf(domain.KindNotFound, "room %s not found", room.ID)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, roomKey(room.ID), "state", string(room.State))
	if room.Groups == nil {
		pipe.HDel(ctx, roomKey(room.ID), "groups")
	} else {
		raw, err := json.Marshal(room.Groups)
		if err != nil {
			return fmt.Errorf("encode groups: %w", err)
		}
		pipe.HSet(ctx, roomKey(room.ID), "groups", raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, err)
	}
	return nil
}

func (s *Store) AddParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) error {
	if err := s.rdb.SAdd(ctx, participantsKey(id), string(uid)).Err(); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

func (s *Store) RemoveParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) error {
	if err := s.rdb.SRem(ctx, participantsKey(id), string(uid)).Err(); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

func (s *Store) Participants(ctx context.Context, id domain.RoomID) ([]domain.UserID, error) {
	ids, err := s.rdb.SMembers(ctx, participantsKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("participants %s: %w", id, err)
	}
	return toUserIDs(ids), nil
}

func (s *Store) IsParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, participantsKey(id), string(uid)).Result()
	if err != nil {
		return false, fmt.Errorf("is participant: %w", err)
	}
	return ok, nil
}

func (s *Store) GetUser(ctx context.Context, uid domain.UserID) (*domain.User, error) {
	fields, err := s.rdb.HGetAll(ctx, userKey(uid)).Result()
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", uid, err)
	}
	u := &domain.User{ID: uid, DisplayName: fields["displayName"]}
	if raw := fields["lastLivelinessUpdateAt"]; raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("user %s liveliness: %w", uid, err)
		}
		u.LastLivelinessUpdateAt = &ts
	}
	return u, nil
}

func (s *Store) SetDisplayName(ctx context.Context, uid domain.UserID, name string) error {
	if err := s.rdb.HSet(ctx, userKey(uid), "displayName", name).Err(); err != nil {
		return fmt.Errorf("set display name: %w", err)
	}
	return nil
}

func (s *Store) TouchLiveliness(ctx context.Context, uid domain.UserID, at time.Time) error {
	err := s.rdb.HSet(ctx, userKey(uid), "lastLivelinessUpdateAt", at.UTC().Format(time.RFC3339Nano)).Err()
	if err != nil {
		return fmt.Errorf("touch liveliness: %w", err)
	}
	return nil
}

func (s *Store) AddUserRoom(ctx context.Context, uid domain.UserID, id domain.RoomID) error {
	if err := s.rdb.SAdd(ctx, userRoomsKey(uid), string(id)).Err(); err != nil {
		return fmt.Errorf("add user room: %w", err)
	}
	return nil
}

func (s *Store) RemoveUserRoom(ctx context.Context, uid domain.UserID, id domain.RoomID) error {
	if err := s.rdb.SRem(ctx, userRoomsKey(uid), string(id)).Err(); err != nil {
		return fmt.Errorf("remove user room: %w", err)
	}
	return nil
}

func (s *Store) UserRooms(ctx context.Context, uid domain.UserID) ([]domain.RoomID, error) {
	ids, err := s.rdb.SMembers(ctx, userRoomsKey(uid)).Result()
	if err != nil {
		return nil, fmt.Errorf("user rooms %s: %w", uid, err)
	}
	slices.Sort(ids)
	out := make([]domain.RoomID, len(ids))
	for i, id := range ids {
		out[i] = domain.RoomID(id)
	}
	return out, nil
}

// IncrementNudge is a read-modify-write; callers hold the room lock.
func (s *Store) IncrementNudge(ctx context.Context, id domain.RoomID, uid domain.UserID, displayName string, at time.Time) (*domain.Nudge, error) {
	n := domain.Nudge{UserID: uid, FirstNudge: at}
	raw, err := s.rdb.HGet(ctx, nudgesKey(id), string(uid)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("get nudge: %w", err)
	default:
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("decode nudge: %w", err)
		}
	}
	n.DisplayName = displayName
	n.Count++
	n.LastNudge = at

	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode nudge: %w", err)
	}
	if err := s.rdb.HSet(ctx, nudgesKey(id), string(uid), data).Err(); err != nil {
		return nil, fmt.Errorf("set nudge: %w", err)
	}
	return &n, nil
}

func (s *Store) ListNudges(ctx context.Context, id domain.RoomID) ([]domain.Nudge, error) {
	all, err := s.rdb.HGetAll(ctx, nudgesKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("list nudges: %w", err)
	}
	out := make([]domain.Nudge, 0, len(all))
	for _, raw := range all {
		var n domain.Nudge
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("decode nudge: %w", err)
		}
		out = append(out, n)
	}
	domain.SortNudges(out)
	return out, nil
}

func (s *Store) ClearNudges(ctx context.Context, id domain.RoomID) error {
	if err := s.rdb.Del(ctx, nudgesKey(id)).Err(); err != nil {
		return fmt.Errorf("clear nudges: %w", err)
	}
	return nil
}

func roomFields(room *domain.Room) (map[string]any, error) {
	fields := map[string]any{
		"id":        string(room.ID),
		"hostId":    string(room.HostID),
		"createdAt": room.CreatedAt.UTC().Format(time.RFC3339Nano),
		"state":     string(room.State),
	}
	if room.Groups != nil {
		raw, err := json.Marshal(room.Groups)
		if err != nil {
			return nil, fmt.Errorf("encode groups: %w", err)
		}
		fields["groups"] = string(raw)
	}
	return fields, nil
}

func parseRoom(id domain.RoomID, fields map[string]string) (*domain.Room, error) {
	room := &domain.Room{
		ID:     id,
		HostID: domain.UserID(fields["hostId"]),
		State:  domain.RoomState(fields["state"]),
	}
	if room.State == "" {
		room.State = domain.RoomWaiting
	}
	if raw := fields["createdAt"]; raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("room %s createdAt: %w", id, err)
		}
		room.CreatedAt = ts
	}
	if raw := fields["groups"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &room.Groups); err != nil {
			return nil, fmt.Errorf("room %s groups: %w", id, err)
		}
	}
	return room, nil
}

func toUserIDs(ids []string) []domain.UserID {
	slices.Sort(ids)
	out := make([]domain.UserID, len(ids))
	for i, id := range ids {
		out[i] = domain.UserID(id)
	}
	return out
}
