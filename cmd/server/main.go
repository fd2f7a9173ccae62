// Package main is the entry point for the christchurch-bus-mural server.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DarkZek/christchurch-bus-mural/internal/api"
	"github.com/DarkZek/christchurch-bus-mural/internal/cache"
	"github.com/DarkZek/christchurch-bus-mural/internal/config"
	"github.com/DarkZek/christchurch-bus-mural/internal/publish"
	"github.com/DarkZek/christchurch-bus-mural/internal/store"
	"github.com/DarkZek/christchurch-bus-mural/internal/transit"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration error", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration error", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("Store error", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	routeSvc := transit.NewRouteService(cfg.APIKey, cfg.StaticGTFSURL, cfg.BundleKey, st, cfg.HTTPTimeout)
	vehicleSvc := transit.NewVehicleService(cfg.APIKey, cfg.VehiclePositionsURL, cfg.HTTPTimeout)
	busSvc := transit.NewBusService(routeSvc, vehicleSvc, cache.Options{
		TTL:     cfg.CacheTTL,
		Timeout: cfg.RefreshTimeout(),
	})

	if cfg.HasKafka() {
		pub, err := publish.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			slog.Error("Kafka error", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		busSvc.OnSnapshot(pub.Publish)
		slog.Info("publishing snapshots", "topic", cfg.KafkaTopic)
	}

	if cfg.BackgroundRefresh {
		go busSvc.Run(ctx)
	} else {
		// Warm the cache so the first visitor doesn't pay for the bundle download.
		go func() {
			if _, err := busSvc.Snapshot(ctx); err != nil {
				slog.Warn("initial refresh failed", "class", transit.ErrorClass(err), "error", err)
			}
		}()
	}

	var webFS fs.FS
	if cfg.WebDir != "" {
		webFS = os.DirFS(cfg.WebDir)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(cfg, busSvc, webFS),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: max(15*time.Second, cfg.RefreshTimeout()+10*time.Second),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"ttl", cfg.CacheTTL.String(),
			"background_refresh", cfg.BackgroundRefresh,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	} else {
		slog.Info("server shut down successfully")
	}
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			slog.Warn("unknown log level", "level", cfg.LogLevel)
		}
	}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, err
		}
		return store.NewRedis(rdb, "christchurch-bus-mural:"), func() { rdb.Close() }, nil
	default:
		fileStore, err := store.NewFile(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fileStore, func() {}, nil
	}
}
