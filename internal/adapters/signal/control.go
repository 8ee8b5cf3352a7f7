package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/domain"
)

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

type errorFrame struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Kind    domain.Kind `json:"kind"`
}

// sendError answers the caller only. Internal failures are logged and
// reported without detail.
func (ctl *SignalWSController) sendError(conn *WsSignalConn, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		log.Error().Err(err).Str("module", "signal").Msg("internal error")
		msg = "internal error"
	}
	ctl.sendJSON(conn, errorFrame{Type: "error", Message: msg, Kind: kind})
}
