package signal

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

// groupID accepts both 1 and "1" on the wire.
type groupID string

func (g *groupID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*g = groupID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*g = groupID(s)
	return nil
}

func (ctl *SignalWSController) handleStartBreakout(
	ctx context.Context,
	uid domain.UserID,
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		RoomID       domain.RoomID `json:"roomId"`
		Mode         string        `json:"mode"`
		Value        int           `json:"value"`
		Distribution []int         `json:"distribution"`
	}
	if !ctl.decode(conn, data, &p) {
		return
	}
	if _, err := ctl.requireHost(ctx, uid, p.RoomID); err != nil {
		ctl.sendError(conn, err)
		return
	}

	dist := p.Distribution
	if dist == nil {
		mode, err := core.ParseMode(p.Mode)
		if err != nil {
			ctl.sendError(conn, err)
			return
		}
		if dist, err = ctl.Orch.PlanDistribution(ctx, p.RoomID, mode, p.Value); err != nil {
			ctl.sendError(conn, err)
			return
		}
	}

	room, err := ctl.Orch.StartBreakout(ctx, p.RoomID, dist)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.BroadcastRoom(ctx, room.ID, roomState(room))
}

func (ctl *SignalWSController) handleEndBreakout(
	ctx context.Context,
	uid domain.UserID,
	conn *WsSignalConn,
	data []byte,
	abort bool,
) {
	var p struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	if !ctl.decode(conn, data, &p) {
		return
	}
	if _, err := ctl.requireHost(ctx, uid, p.RoomID); err != nil {
		ctl.sendError(conn, err)
		return
	}

	end := ctl.Orch.EndBreakout
	if abort {
		end = ctl.Orch.AbortBreakout
	}
	room, err := end(ctx, p.RoomID)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.BroadcastRoom(ctx, room.ID, roomState(room))
}

func (ctl *SignalWSController) handleMoveUserToGroup(
	ctx context.Context,
	uid domain.UserID,
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		RoomID        domain.RoomID `json:"roomId"`
		UserID        domain.UserID `json:"userId"`
		TargetGroupID groupID       `json:"targetGroupId"`
	}
	if !ctl.decode(conn, data, &p) {
		return
	}
	if _, err := ctl.requireHost(ctx, uid, p.RoomID); err != nil {
		ctl.sendError(conn, err)
		return
	}
	target := string(p.TargetGroupID)
	if n, err := strconv.Atoi(target); err == nil {
		target = strconv.Itoa(n)
	}

	room, err := ctl.Orch.MoveUserToGroup(ctx, p.RoomID, p.UserID, target)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.BroadcastRoom(ctx, room.ID, roomState(room))
}
