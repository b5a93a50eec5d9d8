package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"

	"chatpoll/internal/config"
	"chatpoll/internal/httpserver"
	"chatpoll/internal/security"
	"chatpoll/internal/service"
	"chatpoll/internal/store"
	"chatpoll/internal/timefmt"
)

// @title           chatpoll API
// @version         1.0
// @description     Direct-message backend with polling delivery.

// @host            localhost:8000
// @BasePath        /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warn("unknown LOG_LEVEL, using info", "value", cfg.LogLevel)
	}
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportCaller(true)
	}

	ctx := context.Background()
	ds, err := store.Open(ctx, cfg.StoreOptions(), logger)
	if err != nil {
		logger.Fatal("failed to open datastore", "driver", cfg.Datastore, "err", err)
	}

	var (
		revocations security.Revocations = security.NewMemoryRevocations()
		rdb         *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to reach redis", "addr", cfg.RedisAddr, "err", err)
		}
		revocations = security.NewRedisRevocations(rdb)
		logger.Info("token revocations shared via redis", "addr", cfg.RedisAddr)
	}

	tokenSvc := security.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL())
	hasher := security.NewPasswordHasher(0)
	clock := timefmt.UTC

	convSvc := service.NewConversationService(ds.Conversations, ds.Messages, ds.Users, clock, logger)
	router := httpserver.NewRouter(cfg, httpserver.Services{
		Auth:          service.NewAuthService(ds.Users, tokenSvc, hasher, revocations, clock, logger),
		Users:         service.NewUserService(ds.Users),
		Conversations: convSvc,
		Messages:      service.NewMessageService(convSvc, ds.Conversations, ds.Messages, clock, logger),
		Health:        ds,
	}, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr(), "env", cfg.Env, "datastore", cfg.Datastore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := ds.Close(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		logger.Error("unclean shutdown", "err", result)
		os.Exit(1)
	}
}
