package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/dicee-room-backend/internal/config"
	"github.com/DoyleJ11/dicee-room-backend/internal/httpapi"
	"github.com/DoyleJ11/dicee-room-backend/internal/hub"
	"github.com/DoyleJ11/dicee-room-backend/internal/obs"
	"github.com/DoyleJ11/dicee-room-backend/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshots, stats, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("storage init failed", zap.Error(err))
	}

	emit := obs.NewEmitter(log, "room")
	h := hub.NewHub(ctx, hub.Deps{Snapshots: snapshots, Stats: stats, Emitter: emit})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpapi.SetupRoutes(h, obs.NewEmitter(log, "ws")),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		grace := time.Duration(cfg.ShutdownGraceSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err == nil {
		zcfg.Level = lvl
	}
	zcfg.EncoderConfig.TimeKey = "_ts"
	zcfg.EncoderConfig.LevelKey = "_level"
	return zcfg.Build()
}

// buildStores picks Redis snapshots and Postgres stats when configured,
// in-memory fallbacks otherwise.
func buildStores(ctx context.Context, cfg config.Config, log *zap.Logger) (storage.SnapshotStore, storage.StatsStore, error) {
	var snapshots storage.SnapshotStore = storage.NewMemorySnapshotStore()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		store, err := storage.NewRedisSnapshotStore(&storage.Config{RedisClient: client})
		if err != nil {
			return nil, nil, err
		}
		snapshots = store
		log.Info("using redis snapshots", zap.String("addr", cfg.RedisAddr))
	}

	var stats storage.StatsStore = storage.NewMemoryStatsStore()
	if cfg.DatabaseURL != "" {
		store, err := storage.NewPostgresStatsStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		stats = store
		log.Info("using postgres gallery stats")
	}
	return snapshots, stats, nil
}
