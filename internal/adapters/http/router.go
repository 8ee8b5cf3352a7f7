package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/adapters/identity"
	"github.com/dkeye/breakout/internal/adapters/signal"
	"github.com/dkeye/breakout/internal/app"
	"github.com/dkeye/breakout/internal/config"
)

const sessionName = "breakout_session"

type Deps struct {
	Orch     *app.Orchestrator
	Signal   *signal.SignalWSController
	Identity identity.Resolver
}

// SetupRouter wires the request/response API and the event channel route.
// The returned handler applies CORS in front of gin.
func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) http.Handler {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Cookie.MaxAge,
		Secure:   cfg.Cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(deps.Identity.Middleware())

	h := &handlers{orch: deps.Orch, identity: deps.Identity, gateway: deps.Signal}

	r.GET("/healthz", h.health)

	api := r.Group("/api")
	api.POST("/rooms", h.createRoom)
	api.GET("/rooms/mine", h.myRoom)
	api.GET("/rooms/:id", h.getRoom)
	api.GET("/rooms/:id/membership", h.membership)
	api.GET("/rooms/:id/participants", h.participants)
	api.GET("/me/display-name", h.getDisplayName)
	api.PUT("/me/display-name", h.setDisplayName)
	api.GET("/distribution", h.distribution)

	if deps.Signal != nil {
		api.GET("/ws", func(c *gin.Context) {
			log.Debug().Str("module", "adapters.http").Str("sid", c.GetString(identity.ContextKey)).Msg("ws endpoint hit")
			deps.Signal.HandleSignal(ctx, c)
		})
	}

	log.Info().Str("module", "adapters.http").Strs("origins", cfg.AllowedOrigins).Msg("router setup")

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(r)
}
