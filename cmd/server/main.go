package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/adapters/fanout"
	router "github.com/dkeye/breakout/internal/adapters/http"
	"github.com/dkeye/breakout/internal/adapters/identity"
	wsignal "github.com/dkeye/breakout/internal/adapters/signal"
	"github.com/dkeye/breakout/internal/adapters/store/memory"
	"github.com/dkeye/breakout/internal/adapters/store/redisstore"
	"github.com/dkeye/breakout/internal/app"
	"github.com/dkeye/breakout/internal/config"
	"github.com/dkeye/breakout/internal/core"
)

func setupLogger(mode, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if mode == "debug" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console output until the config says otherwise.
	setupLogger("debug", "info")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Mode, cfg.LogLevel)

	var (
		store  core.Store
		locker core.Locker
		fo     core.Fanout
		rdb    *redis.Client
	)
	switch cfg.Storage.Driver {
	case "redis":
		rdb, err = redisstore.Connect(ctx, cfg.Storage.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer func() {
			_ = rdb.Close()
		}()
		store = redisstore.NewStore(rdb)
		locker = redisstore.NewLocker(rdb, cfg.Lock.TTL)
		if cfg.Fanout.Enabled {
			fo = fanout.NewRedis(rdb)
		}
	default:
		store = memory.NewStore()
		locker = memory.NewLocker()
	}

	orch := app.NewOrchestrator(store, locker)
	resolver := identity.Resolver{
		CookieName: cfg.Cookie.Name,
		MaxAge:     cfg.Cookie.MaxAge,
		Secure:     cfg.Cookie.Secure,
	}
	policy, err := app.PolicyByName(cfg.WS.Backpressure)
	if err != nil {
		log.Fatal().Err(err).Msg("backpressure policy")
	}
	gateway := wsignal.NewSignalWSController(orch, app.NewRegistry(), policy, fo, resolver, wsignal.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		ReadLimit:       cfg.WS.ReadLimit,
		PingPeriod:      cfg.WS.PingPeriod,
		PongWait:        cfg.WS.PongWait,
		WriteWait:       cfg.WS.WriteWait,
		SendBuffer:      cfg.WS.SendBuffer,
		EventsPerSecond: cfg.Rate.EventsPerSecond,
		Burst:           cfg.Rate.Burst,
	})

	go func() {
		if err := gateway.Run(ctx); err != nil {
			log.Error().Err(err).Msg("fanout stopped")
			cancel()
		}
	}()

	h := router.SetupRouter(ctx, cfg, router.Deps{Orch: orch, Signal: gateway, Identity: resolver})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("storage", cfg.Storage.Driver).Msg("Breakout server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
