// Package app builds the collaborators shared by the HTTP server and the CLI
// commands from one configuration.
package app

import (
	"context"
	"fmt"

	"SampleFinder/cache"
	"SampleFinder/config"
	"SampleFinder/core/audio"
	"SampleFinder/core/auth"
	"SampleFinder/core/billing"
	"SampleFinder/core/ingest"
	"SampleFinder/core/library"
	"SampleFinder/core/similarity"
	syncsvc "SampleFinder/core/sync"
	"SampleFinder/db"
	"SampleFinder/logger"
	"SampleFinder/repository"
	"SampleFinder/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App holds everything a command needs. Optional collaborators are nil when
// their service is not configured or could not be reached at startup.
type App struct {
	Config       *config.Config
	Capabilities config.Capabilities

	Library  *library.Store
	Blobs    storage.BlobStore
	Embedder similarity.SourceEmbedder
	Pipeline *ingest.Pipeline
	Tokens   *auth.TokenManager
	Prices   billing.Prices

	DB            *gorm.DB
	Redis         *redis.Client
	Remote        *repository.GormRemoteStore
	Subscriptions *repository.SubscriptionRepository
	Migrator      *syncsvc.Migrator
	Webhooks      *billing.WebhookProcessor
}

// New wires an App. Only the local library and blob directory are required;
// remote services that fail to connect are logged and left disabled.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:       cfg,
		Capabilities: cfg.Capabilities(),
		Tokens:       auth.NewTokenManager(cfg.JWTSecret, 0),
		Prices: billing.Prices{
			Pro:     cfg.StripeProPriceID,
			ProPlus: cfg.StripeProPlusPriceID,
		},
	}

	docs, err := library.NewFileDocumentStore(cfg.LibraryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	a.Library = library.NewStore(docs)

	if err := a.connectBlobs(ctx); err != nil {
		return nil, err
	}
	a.connectEmbedder(ctx)

	decoder := audio.ChainDecoder{audio.WAVDecoder{}, audio.NewFFmpegDecoder(cfg.FFmpegPath, 0)}
	a.Pipeline = ingest.NewPipeline(a.Library, audio.NewExtractor(decoder), a.Embedder, a.Blobs)
	a.Pipeline.DedupeByHash = true

	a.connectRemote()

	logger.Info("application initialized",
		logger.String("library", cfg.LibraryPath()),
		logger.Any("capabilities", a.Capabilities))
	return a, nil
}

func (a *App) connectBlobs(ctx context.Context) error {
	if a.Capabilities.ObjectStorage {
		blobs, err := storage.NewMinioBlobStore(ctx, a.Config)
		if err == nil {
			a.Blobs = blobs
			return nil
		}
		logger.Warn("MinIO unavailable, storing audio on disk", logger.ErrorField(err))
		a.Capabilities.ObjectStorage = false
	}
	blobs, err := storage.NewFileBlobStore(a.Config.BlobDir)
	if err != nil {
		return fmt.Errorf("failed to open blob directory: %w", err)
	}
	a.Blobs = blobs
	return nil
}

// connectEmbedder builds remote -> deterministic fallback, optionally behind the Redis cache.
func (a *App) connectEmbedder(ctx context.Context) {
	cfg := a.Config

	var remote similarity.EmbeddingProvider
	switch {
	case a.Capabilities.RemoteEmbeddings:
		remote = similarity.NewRemoteEmbedder(similarity.RemoteEmbedderConfig{
			APIBaseURL: cfg.EmbeddingAPIURL,
			APIKey:     cfg.EmbeddingAPIKey,
			Model:      cfg.EmbeddingModel,
			Timeout:    cfg.EmbeddingTimeout,
		})
	case cfg.EmbeddingServiceURL != "":
		remote = similarity.NewServiceEmbedder(cfg.EmbeddingServiceURL, cfg.EmbeddingTimeout)
	}

	var embedder similarity.SourceEmbedder = similarity.NewFallbackEmbedder(remote)
	if a.Capabilities.Cache {
		client, err := cache.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.Warn("Redis unavailable, embedding cache disabled", logger.ErrorField(err))
			a.Capabilities.Cache = false
		} else {
			a.Redis = client
			embedder = cache.NewEmbeddingCache(client, embedder, cfg.EmbeddingCacheTTL)
		}
	}
	a.Embedder = embedder
}

func (a *App) connectRemote() {
	if !a.Capabilities.RemoteStore {
		return
	}
	gdb, err := db.ConnectGormDB(a.Config)
	if err != nil {
		logger.Warn("remote store unavailable, sync disabled", logger.ErrorField(err))
		a.Capabilities.RemoteStore = false
		return
	}
	a.UseDatabase(gdb)
}

// UseDatabase wires the remote store, migrator and billing webhooks onto gdb.
func (a *App) UseDatabase(gdb *gorm.DB) {
	a.DB = gdb
	a.Capabilities.RemoteStore = true
	a.Remote = repository.NewGormRemoteStore(gdb)
	a.Subscriptions = repository.NewSubscriptionRepository(gdb)
	a.Migrator = syncsvc.NewMigrator(a.Remote)
	if a.Capabilities.Billing {
		a.Webhooks = billing.NewWebhookProcessor(
			a.Subscriptions,
			billing.NewStripeFetcher(a.Config.StripeSecretKey),
			a.Config.StripeWebhookSecret,
		)
	}
}

// Close releases the remote connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("failed to close Redis", logger.ErrorField(err))
		}
	}
	if a.DB != nil {
		if err := db.Close(a.DB); err != nil {
			logger.Warn("failed to close database", logger.ErrorField(err))
		}
	}
}
