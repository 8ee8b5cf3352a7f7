package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/domain"
)

// EnsureUser loads the directory record, applying hint as display name when it
// differs, or generating a name when none is stored yet.
func (o *Orchestrator) EnsureUser(ctx context.Context, uid domain.UserID, hint string) (*domain.User, error) {
	u, err := o.Store.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	name := u.DisplayName
	if hint != "" {
		if n, err := domain.NormalizeDisplayName(hint); err == nil {
			name = n
		}
	}
	if name == "" {
		name = domain.RandomDisplayName()
	}
	if name != u.DisplayName {
		if err := o.Store.SetDisplayName(ctx, uid, name); err != nil {
			return nil, err
		}
		u.DisplayName = name
	}
	return u, nil
}

func (o *Orchestrator) SetDisplayName(ctx context.Context, uid domain.UserID, name string) (string, error) {
	name, err := domain.NormalizeDisplayName(name)
	if err != nil {
		return "", err
	}
	if err := o.Store.SetDisplayName(ctx, uid, name); err != nil {
		return "", err
	}
	log.Info().Str("module", "app.orchestrator").Str("user", string(uid)).Str("name", name).Msg("display name set")
	return name, nil
}

func (o *Orchestrator) DisplayName(ctx context.Context, uid domain.UserID) (string, error) {
	u, err := o.EnsureUser(ctx, uid, "")
	if err != nil {
		return "", err
	}
	return u.DisplayName, nil
}

func (o *Orchestrator) TouchLiveliness(ctx context.Context, uid domain.UserID) error {
	return o.Store.TouchLiveliness(ctx, uid, o.Now().UTC())
}

// NudgeHost bumps uid's counter in the room and returns the full list.
func (o *Orchestrator) NudgeHost(ctx context.Context, id domain.RoomID, uid domain.UserID) ([]domain.Nudge, error) {
	var nudges []domain.Nudge
	err := o.withLock(ctx, roomLockKey(id), func() error {
		r, err := o.Store.GetRoom(ctx, id)
		if err != nil {
			return err
		}
		if r.IsHost(uid) {
			return domain.Errorf(domain.KindFailedPrecondition, "host cannot nudge own room")
		}
		member, err := o.Store.IsParticipant(ctx, id, uid)
		if err != nil {
			return err
		}
		if !member {
			return domain.Errorf(domain.KindFailedPrecondition, "not a participant of room %s", id)
		}
		u, err := o.Store.GetUser(ctx, uid)
		if err != nil {
			return err
		}
		name := u.DisplayName
		if name == "" {
			name = string(uid)
		}
		if _, err := o.Store.IncrementNudge(ctx, id, uid, name, o.Now().UTC()); err != nil {
			return err
		}
		nudges, err = o.Store.ListNudges(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.orchestrator").Str("room", string(id)).Str("user", string(uid)).Msg("host nudged")
	return nudges, nil
}

func (o *Orchestrator) Nudges(ctx context.Context, id domain.RoomID) ([]domain.Nudge, error) {
	return o.Store.ListNudges(ctx, id)
}

func (o *Orchestrator) ClearNudges(ctx context.Context, id domain.RoomID) error {
	return o.withLock(ctx, roomLockKey(id), func() error {
		return o.Store.ClearNudges(ctx, id)
	})
}
