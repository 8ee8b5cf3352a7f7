package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/app"
	"github.com/dkeye/breakout/internal/domain"
)

type roomCreatedFrame struct {
	Type string       `json:"type"`
	Room *domain.Room `json:"room"`
}

type participantsFrame struct {
	Type         string            `json:"type"`
	Participants []app.Participant `json:"participants"`
}

type joinedRoomFrame struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
	RoomID domain.RoomID `json:"roomId"`
}

type roomStateFrame struct {
	Type   string           `json:"type"`
	State  domain.RoomState `json:"state"`
	Groups domain.Groups    `json:"groups,omitempty"`
}

type kickedFrame struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

func roomState(room *domain.Room) roomStateFrame {
	f := roomStateFrame{Type: "roomStateUpdated", State: room.State}
	if room.State == domain.RoomActive {
		f.Groups = room.Groups
	}
	return f
}

func (ctl *SignalWSController) broadcastParticipants(ctx context.Context, id domain.RoomID) {
	ps, err := ctl.Orch.GetParticipants(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("room", string(id)).Msg("participants")
		return
	}
	ctl.BroadcastRoom(ctx, id, participantsFrame{Type: "participantsUpdated", Participants: ps})
}

// requireHost loads the room and fails with PermissionDenied unless uid hosts it.
func (ctl *SignalWSController) requireHost(ctx context.Context, uid domain.UserID, id domain.RoomID) (*domain.Room, error) {
	if id == "" {
		return nil, domain.Errorf(domain.KindInvalidArgument, "roomId is required")
	}
	room, err := ctl.Orch.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(uid) {
		log.Warn().Str("module", "signal").Str("user", string(uid)).Str("room", string(id)).Msg("host action denied")
		return nil, domain.Errorf(domain.KindPermissionDenied, "only the host can do that")
	}
	return room, nil
}

func (ctl *SignalWSController) handleCreateRoom(
	ctx context.Context,
	uid domain.UserID,
	conn *WsSignalConn,
) {
	room, err := ctl.Orch.CreateRoom(ctx, uid)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.Registry.UpdateRoom(uid, room.ID)
	ctl.sendJSON(conn, roomCreatedFrame{Type: "roomCreated", Room: room})
	ctl.broadcastParticipants(ctx, room.ID)
}

func (ctl *SignalWSController) handleJoinRoom(
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
	if p.RoomID == "" {
		ctl.sendError(conn, domain.Errorf(domain.KindInvalidArgument, "roomId is required"))
		return
	}

	room, err := ctl.Orch.JoinRoom(ctx, p.RoomID, uid)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.Registry.UpdateRoom(uid, room.ID)
	log.Info().Str("module", "signal").Str("user", string(uid)).Str("room", string(room.ID)).Msg("join")

	ctl.sendJSON(conn, joinedRoomFrame{Type: "joinedRoom", UserID: uid, RoomID: room.ID})
	ctl.sendJSON(conn, roomState(room))
	ctl.broadcastParticipants(ctx, room.ID)
	if room.State == domain.RoomActive {
		ctl.BroadcastRoom(ctx, room.ID, roomState(room))
	}
}

func (ctl *SignalWSController) handleKickUser(
	ctx context.Context,
	uid domain.UserID,
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		RoomID       domain.RoomID `json:"roomId"`
		TargetUserID domain.UserID `json:"targetUserId"`
	}
	if !ctl.decode(conn, data, &p) {
		return
	}
	if _, err := ctl.requireHost(ctx, uid, p.RoomID); err != nil {
		ctl.sendError(conn, err)
		return
	}
	if p.TargetUserID == "" {
		ctl.sendError(conn, domain.Errorf(domain.KindInvalidArgument, "targetUserId is required"))
		return
	}

	room, err := ctl.Orch.RemoveParticipant(ctx, p.RoomID, p.TargetUserID)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	log.Info().Str("module", "signal").Str("room", string(room.ID)).Str("target", string(p.TargetUserID)).Msg("kick")

	ctl.SendToUser(ctx, p.TargetUserID, kickedFrame{Type: "kicked", RoomID: room.ID})
	ctl.Registry.RemoveRoom(p.TargetUserID, room.ID)
	ctl.broadcastParticipants(ctx, room.ID)
	if room.State == domain.RoomActive {
		ctl.BroadcastRoom(ctx, room.ID, roomState(room))
	}
}
