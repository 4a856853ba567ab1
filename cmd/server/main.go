package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/DAN1X27/messenger-service-sub000/internal/blob"
	"github.com/DAN1X27/messenger-service-sub000/internal/config"
	"github.com/DAN1X27/messenger-service-sub000/internal/db"
	internalhttp "github.com/DAN1X27/messenger-service-sub000/internal/http"
	"github.com/DAN1X27/messenger-service-sub000/internal/jobs"
	"github.com/DAN1X27/messenger-service-sub000/internal/moderation"
	"github.com/DAN1X27/messenger-service-sub000/internal/presence"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
	"github.com/DAN1X27/messenger-service-sub000/internal/session"
	"github.com/DAN1X27/messenger-service-sub000/internal/ws"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connection failed")
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, revocation fast path disabled")
			redisClient = nil
		}
	}

	blobs, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		log.Fatal().Err(err).Msg("blob store init failed")
	}

	store := repository.NewStore(pool)
	sessions := session.NewManager(store.Queries, redisClient, cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)

	hub := ws.NewHub(log)
	tracker := presence.NewTracker(store.Queries, hub, redisClient, log)
	wsHandler := ws.NewHandler(hub, sessions, store.Queries, tracker, log)

	svcCfg := moderation.Config{InviteTTL: cfg.InviteTTL, ModerationLogTTL: cfg.ModerationLogTTL}
	channels := moderation.NewChannelService(store, hub, blobs, svcCfg)
	groups := moderation.NewGroupService(store, hub, blobs, svcCfg)
	chats := moderation.NewChatService(store, hub, blobs)
	friends := moderation.NewFriendService(store, hub)
	users := moderation.NewUserService(store, sessions, blobs, cfg.JWTSecret, cfg.JWTIssuer, cfg.TempUserTTL)

	jobs.StartPurgeJob(ctx, cfg, store.Queries, log)

	server := internalhttp.NewServer(cfg, users, channels, groups, chats, friends, sessions, blobs, wsHandler, log)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("messenger service listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func newLogger(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
