package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/adapters/identity"
	"github.com/dkeye/breakout/internal/adapters/signal"
	"github.com/dkeye/breakout/internal/app"
	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

// MaxPreviewParticipants caps the count accepted by the distribution preview.
const MaxPreviewParticipants = 10000

type handlers struct {
	orch     *app.Orchestrator
	identity identity.Resolver
	gateway  *signal.SignalWSController
}

func statusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindInvalidState:
		return http.StatusConflict
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindFailedPrecondition:
		return http.StatusPreconditionFailed
	case domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("internal error")
		msg = "internal error"
	}
	c.JSON(statusOf(kind), gin.H{"error": msg, "kind": kind})
}

func (h *handlers) caller(c *gin.Context) (identity.Identity, bool) {
	id, err := h.identity.Resolve(c)
	if err != nil {
		writeError(c, err)
		return identity.Identity{}, false
	}
	return id, true
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) createRoom(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.orch.EnsureUser(ctx, id.UserID, id.DisplayName); err != nil {
		writeError(c, err)
		return
	}
	room, err := h.orch.CreateRoom(ctx, id.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

func (h *handlers) myRoom(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	room, err := h.orch.GetRoomByHost(c.Request.Context(), id.UserID)
	if domain.KindOf(err) == domain.KindNotFound {
		c.JSON(http.StatusOK, gin.H{"room": nil})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *handlers) getRoom(c *gin.Context) {
	room, err := h.orch.GetRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) membership(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	member, err := h.orch.IsParticipant(c.Request.Context(), domain.RoomID(c.Param("id")), id.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isParticipant": member})
}

func (h *handlers) participants(c *gin.Context) {
	ps, err := h.orch.GetParticipants(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": ps})
}

func (h *handlers) getDisplayName(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	u, err := h.orch.EnsureUser(c.Request.Context(), id.UserID, id.DisplayName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"displayName": u.DisplayName})
}

func (h *handlers) setDisplayName(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.Errorf(domain.KindInvalidArgument, "missing or invalid displayName"))
		return
	}
	name, err := h.orch.SetDisplayName(c.Request.Context(), id.UserID, req.DisplayName)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := identity.SaveDisplayName(c, name); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
	}
	if h.gateway != nil {
		h.gateway.NotifyRenamed(c.Request.Context(), id.UserID)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// distribution previews group sizes. With roomId the room's participant
// count is used, otherwise the count query parameter.
func (h *handlers) distribution(c *gin.Context) {
	mode, err := core.ParseMode(c.DefaultQuery("mode", "size"))
	if err != nil {
		writeError(c, err)
		return
	}
	value, err := strconv.Atoi(c.Query("value"))
	if err != nil {
		writeError(c, domain.Errorf(domain.KindInvalidArgument, "value must be an integer"))
		return
	}

	if roomID := c.Query("roomId"); roomID != "" {
		dist, err := h.orch.PlanDistribution(c.Request.Context(), domain.RoomID(roomID), mode, value)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"distribution": dist})
		return
	}

	count, err := strconv.Atoi(c.Query("count"))
	if err != nil {
		writeError(c, domain.Errorf(domain.KindInvalidArgument, "count must be an integer"))
		return
	}
	if count > MaxPreviewParticipants {
		writeError(c, domain.Errorf(domain.KindInvalidArgument, "count must not exceed %d", MaxPreviewParticipants))
		return
	}
	c.JSON(http.StatusOK, gin.H{"distribution": core.PlanDistribution(count, mode, value)})
}
