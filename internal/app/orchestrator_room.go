package app

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

// Participant is the read model of one room member.
type Participant struct {
	ID                     domain.UserID `json:"id"`
	DisplayName            string        `json:"displayName"`
	LastLivelinessUpdateAt *time.Time    `json:"lastLivelinessUpdateAt,omitempty"`
	Presence               core.Presence `json:"presence"`
}

// CreateRoom fails with Conflict when host already owns a room.
func (o *Orchestrator) CreateRoom(ctx context.Context, host domain.UserID) (*domain.Room, error) {
	var room *domain.Room
	err := o.withLock(ctx, hostLockKey(host), func() error {
		existing, err := o.Store.GetRoomByHost(ctx, host)
		switch {
		case err == nil:
			return domain.Errorf(domain.KindConflict, "host already owns room %s", existing.ID)
		case domain.KindOf(err) != domain.KindNotFound:
			return err
		}

		r := &domain.Room{
			ID:        o.NewID(),
			HostID:    host,
			CreatedAt: o.Now().UTC(),
			State:     domain.RoomWaiting,
		}
		if err := o.Store.CreateRoom(ctx, r); err != nil {
			return err
		}
		if err := o.Store.AddUserRoom(ctx, host, r.ID); err != nil {
			return err
		}
		room, err = o.Store.GetRoom(ctx, r.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.orchestrator").Str("room", string(room.ID)).Str("host", string(host)).Msg("room created")
	return room, nil
}

// JoinRoom adds uid to the room. In an active room the user also lands in the
// smallest group unless already placed.
func (o *Orchestrator) JoinRoom(ctx context.Context, id domain.RoomID, uid domain.UserID) (*domain.Room, error) {
	var room *domain.Room
	err := o.withLock(ctx, roomLockKey(id), func() error {
		r, err := o.Store.GetRoom(ctx, id)
		if err != nil {
			return err
		}
		if err := o.Store.AddParticipant(ctx, id, uid); err != nil {
			return err
		}
		if err := o.Store.AddUserRoom(ctx, uid, id); err != nil {
			return err
		}
		if err := o.Store.TouchLiveliness(ctx, uid, o.Now().UTC()); err != nil {
			return err
		}

		if r.State == domain.RoomActive {
			if _, placed := r.Groups.GroupOf(uid); !placed {
				groups := r.Groups.Clone()
				if groups == nil {
					groups = domain.Groups{}
				}
				target, ok := groups.Smallest()
				if !ok {
					target = "0"
				}
				groups[target] = append(groups[target], uid)
				r.Groups = groups
				if err := o.Store.SaveRoom(ctx, r); err != nil {
					return err
				}
				log.Info().Str("module", "app.orchestrator").Str("room", string(id)).
					Str("user", string(uid)).Str("group", target).Msg("late join placed")
			}
		}

		room, err = o.Store.GetRoom(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.orchestrator").Str("room", string(id)).Str("user", string(uid)).Msg("joined")
	return room, nil
}

// RemoveParticipant drops uid from the participant set and from any group.
// The host cannot be removed from their own room.
func (o *Orchestrator) RemoveParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) (*domain.Room, error) {
	var room *domain.Room
	err := o.withLock(ctx, roomLockKey(id), func() error {
		r, err := o.Store.GetRoom(ctx, id)
		if err != nil {
			return err
		}
		if r.IsHost(uid) {
			return domain.Errorf(domain.KindInvalidArgument, "host cannot be removed from own room")
		}
		if !slices.Contains(r.Participants, uid) {
			return domain.Errorf(domain.KindNotFound, "user %s is not in room %s", uid, id)
		}
		if err := o.Store.RemoveParticipant(ctx, id, uid); err != nil {
			return err
		}
		if err := o.Store.RemoveUserRoom(ctx, uid, id); err != nil {
			return err
		}
		if _, placed := r.Groups.GroupOf(uid); placed {
			r.Groups = r.Groups.Without(uid)
			if err := o.Store.SaveRoom(ctx, r); err != nil {
				return err
			}
		}
		room, err = o.Store.GetRoom(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.orchestrator").Str("room", string(id)).Str("user", string(uid)).Msg("participant removed")
	return room, nil
}

// GetParticipants lists members with their directory record. A missing room
// yields an empty list.
func (o *Orchestrator) GetParticipants(ctx context.Context, id domain.RoomID) ([]Participant, error) {
	ids, err := o.Store.Participants(ctx, id)
	if err != nil {
		return nil, err
	}
	now := o.Now()
	out := make([]Participant, 0, len(ids))
	for _, uid := range ids {
		u, err := o.Store.GetUser(ctx, uid)
		if err != nil {
			return nil, err
		}
		out = append(out, Participant{
			ID:                     uid,
			DisplayName:            u.DisplayName,
			LastLivelinessUpdateAt: u.LastLivelinessUpdateAt,
			Presence:               core.PresenceOf(u.LastLivelinessUpdateAt, now),
		})
	}
	return out, nil
}
