package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/adapters/driven/blobstore"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/adapters/driven/drive"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/adapters/driven/imagecache"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/adapters/driven/postgres"
	redisadapter "github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/adapters/driven/redis"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/config"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/services"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/metrics"
)

// app holds the wired object graph shared by the serve and sync commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *postgres.DB
	redis    *redis.Client
	lock     driven.DistributedLock
	registry *prometheus.Registry

	images    *services.ImageProxy
	sync      *services.SyncService
	webhooks  *services.WebhookService
	scheduler *services.Scheduler
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// connectDatabase opens PostgreSQL and applies migrations.
func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Println("PostgreSQL connected and migrations applied")
	return db, nil
}

// buildApp wires stores, Drive adapters and services from cfg.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := connectDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: db}

	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		client, err := redisadapter.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		a.lock = redisadapter.NewLock(client)
		log.Println("Using Redis distributed lock")
	} else {
		a.lock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL advisory lock")
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.MustNewMetrics(a.registry)

	// Drive credentials: a service account takes precedence over the API key
	// for API calls; both feed the image strategies.
	var tokens drive.TokenSource
	if cfg.Drive.ServiceAccountFile != "" {
		key, err := drive.LoadServiceAccountKey(cfg.Drive.ServiceAccountFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		ts, err := drive.NewServiceAccountTokenSource(key, drive.ScopeDriveReadOnly, nil)
		if err != nil {
			a.Close()
			return nil, err
		}
		tokens = ts
		log.Printf("Drive service account: %s", key.ClientEmail)
	}
	if cfg.Drive.APIKey == "" && tokens == nil {
		logger.Warn("no Drive credentials configured, sync will report not_configured")
	}

	driveClient := drive.NewClient(drive.ClientConfig{
		APIKey:      cfg.Drive.APIKey,
		TokenSource: tokens,
		Logger:      logger.With("component", "drive"),
	})
	strategies := drive.NewStrategies(drive.StrategyConfig{
		APIKey:      cfg.Drive.APIKey,
		TokenSource: tokens,
		Fetcher:     drive.NewFetcher(nil, cfg.Image.FetchTimeout),
	})

	var mirror driven.BlobStore
	if cfg.S3.Enabled() {
		store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:       cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			Prefix:       cfg.S3.Prefix,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		mirror = store
		log.Printf("Image mirror enabled (bucket=%s)", cfg.S3.Bucket)
	}

	kv := postgres.NewKeyValueStore(db)

	reconciler := services.NewReconciler(services.ReconcilerConfig{
		Drive:        driveClient,
		Collections:  postgres.NewCollectionStore(db),
		Stickers:     postgres.NewStickerStore(db),
		KV:           kv,
		RootFolderID: cfg.Drive.RootFolderID,
		Retry: services.RetryPolicy{
			MaxAttempts: cfg.Sync.RetryAttempts,
			BaseDelay:   cfg.Sync.RetryBaseDelay,
		},
		BatchSize:  cfg.Sync.BatchSize,
		BatchPause: cfg.Sync.BatchPause,
		Logger:     logger.With("component", "reconciler"),
	})

	a.images = services.NewImageProxy(services.ImageProxyConfig{
		Strategies: strategies,
		Cache: imagecache.New(imagecache.Config{
			MaxEntries: cfg.Image.CacheMaxEntries,
			TTL:        cfg.Image.CacheTTL,
		}),
		Mirror:  mirror,
		Metrics: m,
		Logger:  logger.With("component", "images"),
	})

	a.webhooks = services.NewWebhookService(services.WebhookServiceConfig{
		Drive:       driveClient,
		KV:          kv,
		CallbackURL: cfg.WebhookURL,
		Token:       cfg.WebhookToken,
		TTL:         cfg.WebhookTTL,
		Logger:      logger.With("component", "webhook"),
	})

	a.sync = services.NewSyncService(services.SyncServiceConfig{
		Reconciler:  reconciler,
		Runs:        postgres.NewSyncRunStore(db),
		MinInterval: cfg.Sync.MinInterval,
		Lock:        a.lock,
		LockTTL:     cfg.Sync.LockTTL,
		Cache:       a.images,
		Webhooks:    a.webhooks,
		Metrics:     m,
		Logger:      logger.With("component", "sync"),
	})
	a.webhooks.SetSyncService(a.sync)

	if cfg.Sync.Interval > 0 {
		a.scheduler = services.NewScheduler(services.SchedulerConfig{
			Sync:     a.sync,
			Interval: cfg.Sync.Interval,
			Logger:   logger.With("component", "scheduler"),
		})
	}

	return a, nil
}

// Close releases connections opened by buildApp.
func (a *app) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
