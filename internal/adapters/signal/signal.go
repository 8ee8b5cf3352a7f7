package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/adapters/identity"
	"github.com/dkeye/breakout/internal/app"
	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Options struct {
	AllowedOrigins  []string
	ReadLimit       int64
	PingPeriod      time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	SendBuffer      int
	EventsPerSecond float64
	Burst           int
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.EventsPerSecond <= 0 {
		o.EventsPerSecond = 10
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
	return o
}

// SignalWSController is the real-time gateway: it maps client events to
// orchestrator calls and delivers the resulting frames.
type SignalWSController struct {
	Orch     *app.Orchestrator
	Registry *app.Registry
	Policy   app.Policy
	// Fanout is nil on a single instance; frames are then delivered locally.
	Fanout   core.Fanout
	Identity identity.Resolver

	opts     Options
	limiter  *EventRateLimiter
	upgrader websocket.Upgrader
}

func NewSignalWSController(
	orch *app.Orchestrator,
	reg *app.Registry,
	policy app.Policy,
	fanout core.Fanout,
	resolver identity.Resolver,
	opts Options,
) *SignalWSController {
	opts = opts.withDefaults()
	ctl := &SignalWSController{
		Orch:     orch,
		Registry: reg,
		Policy:   policy,
		Fanout:   fanout,
		Identity: resolver,
		opts:     opts,
		limiter:  NewEventRateLimiter(opts.EventsPerSecond, opts.Burst),
	}
	ctl.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return OriginAllowed(opts.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	return ctl
}

// OriginAllowed reports whether origin is on the allow-list. Requests without
// an Origin header come from non-browser clients and pass.
func OriginAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and starts the pumps. Callers without a
// session id are rejected before the upgrade.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	id, err := ctl.Identity.Resolve(c)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("ws rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "kind": domain.KindOf(err)})
		return
	}
	uid := id.UserID
	log.Info().Str("module", "signal").Str("user", string(uid)).Msg("new WS connection")

	if _, err := ctl.Orch.EnsureUser(ctx, uid, id.DisplayName); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("ensure user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "kind": domain.KindInternal})
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(uid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, uid, conn)
}

// Run relays frames from other instances until ctx is done. Without a
// fan-out it returns immediately.
func (ctl *SignalWSController) Run(ctx context.Context) error {
	if ctl.Fanout == nil {
		return nil
	}
	return ctl.Fanout.Subscribe(ctx, ctl.DeliverLocal)
}

func (ctl *SignalWSController) BroadcastRoom(ctx context.Context, room domain.RoomID, v any) {
	ctl.publish(ctx, core.Target{Room: room}, v)
}

func (ctl *SignalWSController) SendToUser(ctx context.Context, uid domain.UserID, v any) {
	ctl.publish(ctx, core.Target{User: uid}, v)
}

func (ctl *SignalWSController) publish(ctx context.Context, to core.Target, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("publish marshal")
		return
	}
	if ctl.Fanout != nil {
		err := ctl.Fanout.Publish(ctx, to, b)
		if err == nil {
			return
		}
		log.Warn().Err(err).Str("module", "signal").Msg("fanout publish failed, delivering locally")
	}
	ctl.DeliverLocal(to, b)
}

// DeliverLocal hands f to the connections of this process that to addresses.
func (ctl *SignalWSController) DeliverLocal(to core.Target, f core.Frame) {
	if to.User != "" {
		conn, ok := ctl.Registry.Conn(to.User)
		if !ok {
			return
		}
		ctl.onUserFrame(to.User, f)
		ctl.deliver(to.User, conn, f)
		return
	}
	for _, snap := range ctl.Registry.MembersOfRoom(to.Room) {
		ctl.deliver(snap.UserID, snap.Conn, f)
	}
}

// onUserFrame applies the local side effects of unicast frames.
func (ctl *SignalWSController) onUserFrame(uid domain.UserID, f core.Frame) {
	var env struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
	}
	if err := json.Unmarshal(f, &env); err != nil {
		return
	}
	if env.Type == "kicked" {
		ctl.Registry.RemoveRoom(uid, env.RoomID)
	}
}

func (ctl *SignalWSController) deliver(uid domain.UserID, conn core.SignalConnection, f core.Frame) {
	err := conn.TrySend(f)
	if !errors.Is(err, ErrBackpressure) {
		return
	}
	action := app.KickMember
	if ctl.Policy != nil {
		action = ctl.Policy.OnBackPressure(uid, conn)
	}
	switch action {
	case app.KickMember:
		log.Warn().Str("module", "signal").Str("user", string(uid)).Msg("slow connection closed")
		ctl.Registry.Cancel(uid)
		conn.Close()
	case app.DropFrame:
		log.Debug().Str("module", "signal").Str("user", string(uid)).Msg("frame dropped")
	}
}
