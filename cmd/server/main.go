// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/pileup/internal/cache"
	"github.com/jason-s-yu/pileup/internal/config"
	"github.com/jason-s-yu/pileup/internal/coordinator"
	"github.com/jason-s-yu/pileup/internal/game"
	"github.com/jason-s-yu/pileup/internal/handlers"
	"github.com/jason-s-yu/pileup/internal/room"
	"github.com/jason-s-yu/pileup/internal/scheduler"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	rdb, err := cache.Connect(context.Background(), cfg)
	if err != nil {
		logger.WithError(err).Warn("room store unavailable at startup, serving from memory until it returns")
	} else {
		logger.Infof("connected to Redis at %s", cfg.RedisAddr)
	}
	defer rdb.Close()

	backend := room.NewRedisBackend(rdb, cfg.RedisKeyPrefix, cfg.RoomStoreTTL)
	store := room.NewStore(backend, logger, cfg.StoreTimeout, cfg.RoomIdleTimeout)
	defer store.Close()
	coord := coordinator.New(store, logger, game.NewRand())

	sched := scheduler.New(logger, cfg.RoomSweepSpec, coord)
	if err := sched.Start(); err != nil {
		logger.Fatalf("scheduler: %v", err)
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlers.NewRouter(logger, coord, cfg.AllowedOrigins),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown")
		}
		if err := store.Flush(shutdownCtx); err != nil {
			logger.WithError(err).Warn("room store flush")
		}
	}()

	logger.Infof("Running on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	<-stopped
}
