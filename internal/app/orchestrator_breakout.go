package app

import (
	"context"
	"slices"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

// StartBreakout shuffles all participants and slices them into groups "0".."n-1"
// following distribution. Nothing is written when validation fails.
func (o *Orchestrator) StartBreakout(ctx context.Context, id domain.RoomID, distribution []int) (*domain.Room, error) {
	var room *domain.Room
	err := o.withLock(ctx, roomLockKey(id), func() error {
		r, err := o.Store.GetRoom(ctx, id)
		if err != nil {
			return err
		}
		members := slices.Clone(r.Participants)
		if len(members) == 0 {
			return domain.Errorf(domain.KindInvalidState, "no participants")
		}
		sum := 0
		for _, n := range distribution {
			if n <= 0 {
				return domain.Errorf(domain.KindInvalidArgument, "group sizes must be positive")
			}
			sum += n
		}
		if sum != len(members) {
			return domain.Errorf(domain.KindInvalidArgument,
				"distribution sums to %d, room has %d participants", sum, len(members))
		}

		o.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })

		groups := make(domain.Groups, len(distribution))
		offset := 0
		for i, n := range distribution {
			groups[strconv.Itoa(i)] = members[offset : offset+n : offset+n]
			offset += n
		}
		r.State = domain.RoomActive
		r.Groups = groups
		if err := o.Store.SaveRoom(ctx, r); err != nil {
			return err
		}
		room = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.orchestrator").Str("room", string(id)).Ints("sizes", room.Groups.Sizes()).Msg("breakout started")
	return room, nil
}

// EndBreakout returns the room to waiting and drops the groups.
func (o *Orchestrator) EndBreakout(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return o.dissolve(ctx, id, "breakout ended")
}

// AbortBreakout behaves like EndBreakout for now; it is kept separate so the
// two can diverge.
func (o *Orchestrator) AbortBreakout(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return o.dissolve(ctx, id, "breakout aborted")
}

func (o *Orchestrator) dissolve(ctx context.Context, id domain.RoomID, msg string) (*domain.Room, error) {
	var room *domain.Room
	err := o.withLock(ctx, roomLockKey(id), func() error {
		r, err := o.Store.GetRoom(ctx, id)
		if err != nil {
			return err
		}
		r.State = domain.RoomWaiting
		r.Groups = nil
		if err := o.Store.SaveRoom(ctx, r); err != nil {
			return err
		}
		room = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.orchestrator").Str("room", string(id)).Msg(msg)
	return room, nil
}

// MoveUserToGroup removes uid from its current group (if any) and appends it
// to target, creating target when needed.
func (o *Orchestrator) MoveUserToGroup(ctx context.Context, id domain.RoomID, uid domain.UserID, target string) (*domain.Room, error) {
	if target == "" {
		return nil, domain.Errorf(domain.KindInvalidArgument, "target group is required")
	}
	var room *domain.Room
	err := o.withLock(ctx, roomLockKey(id), func() error {
		r, err := o.Store.GetRoom(ctx, id)
		if err != nil {
			return err
		}
		if r.State != domain.RoomActive {
			return domain.Errorf(domain.KindInvalidState, "room is not in breakout")
		}
		if len(r.Groups) == 0 {
			return domain.Errorf(domain.KindFailedPrecondition, "room has no groups")
		}
		if !slices.Contains(r.Participants, uid) {
			return domain.Errorf(domain.KindInvalidArgument, "user %s is not a participant", uid)
		}

		groups := r.Groups.Without(uid)
		groups[target] = append(groups[target], uid)
		r.Groups = groups
		if err := o.Store.SaveRoom(ctx, r); err != nil {
			return err
		}
		room = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.orchestrator").Str("room", string(id)).
		Str("user", string(uid)).Str("group", target).Msg("moved")
	return room, nil
}

// PlanDistribution previews group sizes for the room's current participants.
func (o *Orchestrator) PlanDistribution(ctx context.Context, id domain.RoomID, mode core.Mode, value int) ([]int, error) {
	r, err := o.Store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	return core.PlanDistribution(len(r.Participants), mode, value), nil
}
