package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/domain"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, uid domain.UserID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("user", string(uid)).Msg("readPump closing")
		cancel()
		c.Close()
		if ctl.Registry.Unbind(uid, c) {
			ctl.limiter.Forget(uid)
		}
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("user", string(uid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(ctx, uid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, uid domain.UserID, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, domain.Errorf(domain.KindInvalidArgument, "bad_payload"))
		return
	}
	if !ctl.limiter.Allow(uid) {
		ctl.sendError(c, fmt.Errorf("too many events: %w", domain.ErrRateLimited))
		return
	}

	switch env.Type {
	case "createRoom":
		ctl.handleCreateRoom(ctx, uid, c)
	case "joinRoom":
		ctl.handleJoinRoom(ctx, uid, c, data)
	case "kickUser":
		ctl.handleKickUser(ctx, uid, c, data)
	case "startBreakout":
		ctl.handleStartBreakout(ctx, uid, c, data)
	case "endBreakout":
		ctl.handleEndBreakout(ctx, uid, c, data, false)
	case "abortBreakout":
		ctl.handleEndBreakout(ctx, uid, c, data, true)
	case "moveUserToGroup":
		ctl.handleMoveUserToGroup(ctx, uid, c, data)
	case "nudgeHost":
		ctl.handleNudgeHost(ctx, uid, c)
	case "clearNudges":
		ctl.handleClearNudges(ctx, uid, c, data)
	case "getNudges":
		ctl.handleGetNudges(ctx, uid, c)
	case "updateLiveliness":
		ctl.handleUpdateLiveliness(ctx, uid, c)
	case "updateDisplayName":
		ctl.handleUpdateDisplayName(ctx, uid, c, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(c, domain.Errorf(domain.KindInvalidArgument, "unknown event %q", env.Type))
	}
}

// decode fills p from data, answering bad_payload on failure.
func (ctl *SignalWSController) decode(c *WsSignalConn, data []byte, p any) bool {
	if err := json.Unmarshal(data, p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad payload")
		ctl.sendError(c, domain.Errorf(domain.KindInvalidArgument, "bad_payload"))
		return false
	}
	return true
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
