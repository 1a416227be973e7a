package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/surveylens/mediastore/internal/config"
	"github.com/surveylens/mediastore/internal/httpapi"
	"github.com/surveylens/mediastore/internal/service"
	"github.com/surveylens/mediastore/pkg/db"
	"github.com/surveylens/mediastore/pkg/derive"
	"github.com/surveylens/mediastore/pkg/health"
	"github.com/surveylens/mediastore/pkg/logger"
	"github.com/surveylens/mediastore/pkg/quota"
	"github.com/surveylens/mediastore/pkg/redis"
	"github.com/surveylens/mediastore/pkg/storage"
	"github.com/surveylens/mediastore/pkg/tags"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	log := logger.New(level, requestIDExtractor)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DB.Path, BusyTimeout: cfg.DB.BusyTimeout.Std()})
	if err != nil {
		return err
	}
	defer conn.Close()

	keyring, err := quota.NewKeyring(conn, quota.WithDefaultDailyLimit(cfg.Quota.DailyLimit))
	if err != nil {
		return err
	}
	tagStore, err := tags.NewStore(conn)
	if err != nil {
		return err
	}

	checks := health.Checks{"db": db.Healthcheck(conn)}
	shutdownHooks := []func(context.Context) error{db.Shutdown(conn)}

	var counter quota.Counter
	if cfg.Redis.URL != "" {
		client, err := redis.Open(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		counter = quota.NewRedisCounter(client)
		checks["redis"] = redis.Healthcheck(client)
		shutdownHooks = append(shutdownHooks, redis.Shutdown(client))
		log.Info("quota counter backend", "backend", "redis")
	} else {
		sqlCounter, err := quota.NewSQLiteCounter(conn)
		if err != nil {
			return err
		}
		counter = sqlCounter
		log.Info("quota counter backend", "backend", "sqlite")
	}

	store, err := buildStorage(cfg)
	if err != nil {
		return err
	}

	images := derive.NewImageTranscoder()
	images.TargetWidth = cfg.Derive.ImageWidth
	images.Quality = cfg.Derive.ImageQuality

	videos := derive.NewVideoTranscoder()
	videos.MaxWidth = cfg.Derive.VideoMaxWidth
	videos.FFmpeg = cfg.Derive.FFmpeg
	videos.FFprobe = cfg.Derive.FFprobe
	videos.Timeout = cfg.Derive.Timeout.Std()

	svc := service.New(service.Deps{
		Store:               store,
		Tags:                tagStore,
		Derive:              derive.NewCache(store, images, videos),
		Keyring:             keyring,
		Logger:              log,
		MaxUploadBytes:      cfg.Server.MaxUploadBytes,
		AllowedTypePrefixes: cfg.Server.AllowedTypePrefixes,
	})

	handler := httpapi.New(httpapi.Deps{
		Service:        svc,
		Gate:           quota.NewGate(keyring, counter),
		Logger:         log,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		HealthChecks:   checks,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", cfg.Server.Addr, "storage", cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	for _, hook := range shutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			errs = append(errs, err)
			log.Error("shutdown hook failed", "error", err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	log.Info("shutdown completed")
	return nil
}

func buildStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "local":
		return storage.NewLocal(storage.LocalConfig{BaseDir: cfg.Storage.Local.BaseDir})
	case "s3":
		return storage.NewS3(storage.S3Config{
			Bucket:           cfg.Storage.S3.Bucket,
			Region:           cfg.Storage.S3.Region,
			Endpoint:         cfg.Storage.S3.Endpoint,
			AccessKey:        cfg.Storage.S3.AccessKey,
			SecretKey:        cfg.Storage.S3.SecretKey,
			SigningAccessKey: cfg.Storage.S3.SigningAccessKey,
			SigningSecretKey: cfg.Storage.S3.SigningSecretKey,
			PathStyle:        cfg.Storage.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("config: unknown storage backend %q", cfg.Storage.Backend)
	}
}

// requestIDExtractor surfaces the chi request id on every log record.
func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return slog.String("request_id", id), true
	}
	return slog.Attr{}, false
}
