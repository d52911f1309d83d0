package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/ingest"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/rag"
	"github.com/hyperjump/ragstore/internal/storage"
	"github.com/hyperjump/ragstore/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Config       *config.Config
	Catalog      *storage.SQLiteCatalog
	Orchestrator *rag.Orchestrator
	Ingester     *ingest.Ingester
	// Locker guards Orchestrator; the ingester and the server share it.
	Locker sync.Locker
	logger *zap.Logger
}

// Close releases the embedder, the store, and the catalog.
func (c *Components) Close() {
	if c.Orchestrator != nil {
		if err := c.Orchestrator.Close(); err != nil {
			c.logger.Warn("close orchestrator", zap.Error(err))
		}
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
}

// SaveSnapshot writes the store to the configured snapshot path.
func (c *Components) SaveSnapshot() error {
	return c.Ingester.Save(c.Config.Storage.SnapshotPath)
}

// Status reports the store state plus the disk footprint of the snapshot and catalog.
func (c *Components) Status(ctx context.Context) (*models.StoreStatus, error) {
	st, err := c.Ingester.Status(ctx)
	if err != nil {
		return nil, err
	}
	diskBytes, err := storage.DiskUsageBytes(storage.FootprintPaths(
		c.Config.Storage.SnapshotPath,
		c.Config.Storage.CatalogPath,
	)...)
	if err == nil {
		st.DiskUsageBytes = &diskBytes
	}
	return st, nil
}

// initializeComponents builds the embedder, store, catalog, orchestrator and ingester.
// With restore set, the configured snapshot is loaded into the store.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, restore bool) (*Components, error) {
	embedder, err := newEmbedder(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	store, err := vector.NewStore(cfg.Store.Type, embedder.Dimensions(), cfg.Store.L2Backend)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	logger.Info("vector store initialized",
		zap.String("type", store.Type()),
		zap.String("metric", store.Metric().Name),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	catalog, err := storage.NewSQLiteCatalog(cfg.Storage.CatalogPath)
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	orch := rag.NewOrchestrator(
		rag.WithEmbedder(embedder),
		rag.WithStore(store),
		rag.WithChunking(cfg.Chunking.Size, cfg.Chunking.OverlapOrDefault()),
		rag.WithLogger(logger),
	)
	mu := &sync.Mutex{}
	ing := ingest.New(orch,
		ingest.WithCatalog(catalog),
		ingest.WithExtensions(cfg.Watch.Extensions),
		ingest.WithSnapshotPath(cfg.Storage.SnapshotPath),
		ingest.WithLocker(mu),
		ingest.WithLogger(logger),
	)
	c := &Components{
		Config:       cfg,
		Catalog:      catalog,
		Orchestrator: orch,
		Ingester:     ing,
		Locker:       mu,
		logger:       logger,
	}
	if restore {
		if err := c.loadSnapshot(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// loadSnapshot restores the configured snapshot. Without one, the catalog is reset so that
// files it lists are ingested again rather than skipped as unchanged.
func (c *Components) loadSnapshot(ctx context.Context) error {
	path := c.Config.Storage.SnapshotPath
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat snapshot: %w", err)
		}
		n, err := c.Catalog.Count(ctx)
		if err != nil {
			return fmt.Errorf("catalog count: %w", err)
		}
		if n > 0 {
			c.logger.Info("no snapshot found; resetting catalog", zap.String("path", path), zap.Int64("files", n))
			return c.Catalog.Reset(ctx)
		}
		return nil
	}
	if err := c.Ingester.Load(ctx, path); err != nil {
		return fmt.Errorf("failed to load snapshot %s: %w", path, err)
	}
	store := c.Orchestrator.Store()
	embedder := c.Orchestrator.Embedder()
	if store.Dimension() != 0 && store.Dimension() != embedder.Dimensions() {
		c.logger.Warn("snapshot dimension differs from the embedding provider; adds and searches will fail until the store is cleared",
			zap.Int("snapshot_dimension", store.Dimension()),
			zap.Int("provider_dimension", embedder.Dimensions()),
			zap.String("provider", embedder.Name()))
	}
	c.logger.Info("snapshot loaded", zap.String("path", path), zap.Int("size", store.Size()))
	return nil
}

// newEmbedder builds the configured provider. When it cannot start and placeholders are
// allowed, the placeholder provider is used instead and a warning is logged.
func newEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) (embedding.Embedder, error) {
	var (
		e   embedding.Embedder
		err error
	)
	switch cfg.Provider {
	case "onnx":
		e, err = newONNX(cfg)
	case "openai":
		e, err = newOpenAI(cfg)
	case "placeholder":
		logger.Warn("using placeholder embeddings; search results carry no semantic meaning")
		return embedding.NewPlaceholderEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, placeholder)", cfg.Provider)
	}
	if err == nil {
		logger.Info("embedding provider initialized",
			zap.String("provider", e.Name()),
			zap.Int("dimensions", e.Dimensions()))
		return e, nil
	}
	if cfg.AllowPlaceholder && errors.Is(err, embedding.ErrProviderUnavailable) {
		logger.Warn("embedding provider unavailable; falling back to placeholder embeddings",
			zap.String("provider", cfg.Provider),
			zap.Error(err))
		return embedding.NewPlaceholderEmbedder(cfg.Dimensions), nil
	}
	return nil, err
}

// newONNX and newOpenAI return a nil interface on failure, never a typed nil.
func newONNX(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	e, err := embedding.NewONNXEmbedder(embedding.ONNXConfig{
		ModelPath:  cfg.ModelPath,
		Dimensions: cfg.Dimensions,
		MaxTokens:  cfg.MaxTokens,
		CacheSize:  cfg.CacheSize,
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func newOpenAI(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		APIKey:     cfg.OpenAI.APIKey(),
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		Dimensions: cfg.Dimensions,
		CacheSize:  cfg.CacheSize,
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}
