// Command mayi-server hosts May-I rooms over HTTP and websockets.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/bot"
	"github.com/DroopyTersen/mayi-sub006/internal/cache"
	"github.com/DroopyTersen/mayi-sub006/internal/config"
	"github.com/DroopyTersen/mayi-sub006/internal/database"
	"github.com/DroopyTersen/mayi-sub006/internal/server"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const tokenTTL = 12 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	setupLogging(cfg)
	log := logrus.WithField("component", "mayi-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open storage")
	}
	defer cleanup()
	deps.Agents = bot.Resolver(log.WithField("component", "bot"))
	deps.Coordinator = cfg.Coordinator()
	deps.Rules = engine.DefaultHouseRules()
	deps.Log = log

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("JWT_SECRET not set; tokens will not survive a restart")
	}

	rooms := server.NewRegistry(deps)
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(rooms, server.NewTokenAuth(secret, tokenTTL), log).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Infof("listening on %s (store=%s)", cfg.Addr, cfg.Store)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rooms.Close()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := eg.Wait(); err != nil {
		log.WithError(err).Error("server stopped")
		return
	}
	log.Info("server stopped")
}

func setupLogging(cfg config.Config) {
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// openBackend picks the room store and the optional activity and result sinks.
func openBackend(ctx context.Context, cfg config.Config, log *logrus.Entry) (server.RegistryDeps, func(), error) {
	var deps server.RegistryDeps
	switch cfg.Store {
	case config.StoreRedis:
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return deps, nil, err
		}
		deps.Stores = cache.NewRooms(rdb)
		deps.Activity = cache.NewHistorian(rdb)
		return deps, func() { _ = rdb.Close() }, nil
	case config.StorePostgres:
		pg, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return deps, nil, err
		}
		deps.Stores = pg
		deps.Results = pg
		return deps, pg.Close, nil
	case config.StoreSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return deps, nil, err
		}
		deps.Stores = db
		deps.Results = db
		return deps, func() { _ = db.Close() }, nil
	}
	log.Warn("using in-memory storage; rooms are lost on restart")
	deps.Stores = server.NewMemoryRooms()
	return deps, func() {}, nil
}
