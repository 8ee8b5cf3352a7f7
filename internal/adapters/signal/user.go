package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/domain"
)

type nudgesFrame struct {
	Type   string         `json:"type"`
	Nudges []domain.Nudge `json:"nudges"`
}

// currentRoom is the room the connection joined, else the first room the
// directory still lists for uid.
func (ctl *SignalWSController) currentRoom(ctx context.Context, uid domain.UserID) (domain.RoomID, error) {
	if id, ok := ctl.Registry.RoomOf(uid); ok {
		return id, nil
	}
	room, err := ctl.Orch.RoomOfParticipant(ctx, uid)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return "", domain.Errorf(domain.KindFailedPrecondition, "not in a room")
		}
		return "", err
	}
	return room.ID, nil
}

func (ctl *SignalWSController) handleNudgeHost(
	ctx context.Context,
	uid domain.UserID,
	conn *WsSignalConn,
) {
	id, err := ctl.currentRoom(ctx, uid)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	nudges, err := ctl.Orch.NudgeHost(ctx, id, uid)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.BroadcastRoom(ctx, id, nudgesFrame{Type: "hostNudged", Nudges: nudges})
}

func (ctl *SignalWSController) handleClearNudges(
	ctx context.Context,
	uid domain.UserID,
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	if !ctl.decode(conn, data, &p) {
		return
	}

	id := p.RoomID
	if id == "" {
		room, err := ctl.Orch.GetRoomByHost(ctx, uid)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				err = domain.Errorf(domain.KindPermissionDenied, "only the host can do that")
			}
			ctl.sendError(conn, err)
			return
		}
		id = room.ID
	} else if _, err := ctl.requireHost(ctx, uid, id); err != nil {
		ctl.sendError(conn, err)
		return
	}

	if err := ctl.Orch.ClearNudges(ctx, id); err != nil {
		ctl.sendError(conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("room", string(id)).Msg("nudges cleared")
	ctl.BroadcastRoom(ctx, id, nudgesFrame{Type: "hostNudged", Nudges: []domain.Nudge{}})
}

func (ctl *SignalWSController) handleGetNudges(
	ctx context.Context,
	uid domain.UserID,
	conn *WsSignalConn,
) {
	id, err := ctl.currentRoom(ctx, uid)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	nudges, err := ctl.Orch.Nudges(ctx, id)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.sendJSON(conn, nudgesFrame{Type: "hostNudged", Nudges: nudges})
}

func (ctl *SignalWSController) handleUpdateLiveliness(
	ctx context.Context,
	uid domain.UserID,
	conn *WsSignalConn,
) {
	if err := ctl.Orch.TouchLiveliness(ctx, uid); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SignalWSController) handleUpdateDisplayName(
	ctx context.Context,
	uid domain.UserID,
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		DisplayName string `json:"displayName"`
	}
	if !ctl.decode(conn, data, &p) {
		return
	}
	name, err := ctl.Orch.SetDisplayName(ctx, uid, p.DisplayName)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("user", string(uid)).Str("name", name).Msg("rename")
	ctl.NotifyRenamed(ctx, uid)
}

// NotifyRenamed pushes a fresh participant list to the room uid belongs to.
// Users outside any room are ignored.
func (ctl *SignalWSController) NotifyRenamed(ctx context.Context, uid domain.UserID) {
	id, err := ctl.currentRoom(ctx, uid)
	if err != nil {
		if domain.KindOf(err) != domain.KindFailedPrecondition {
			log.Error().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("rename lookup")
		}
		return
	}
	ctl.broadcastParticipants(ctx, id)
}
