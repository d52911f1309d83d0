// Package rag ties an embedding provider to a vector store: it chunks and embeds
// text, assigns record ids, and answers similarity queries.
//
// An Orchestrator does no locking. Callers sharing one across goroutines must
// serialize every call.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/vector"
	"github.com/hyperjump/ragstore/pkg/utils"
	"go.uber.org/zap"
)

// Default chunking parameters, in runes.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

var (
	// ErrNoEmbedder is returned when an operation needs an embedding provider and none is set.
	ErrNoEmbedder = errors.New("no embedding provider configured")
	// ErrNoStore is returned when an operation needs a vector store and none is set.
	ErrNoStore = errors.New("no vector store configured")
	// ErrEmptyText is returned by AddText for empty or whitespace-only text.
	ErrEmptyText = errors.New("text is empty")
)

// Orchestrator owns an embedder, a store, and the id sequence for stored chunks.
type Orchestrator struct {
	embedder     embedding.Embedder
	store        vector.Store
	chunkSize    int
	chunkOverlap int
	nextID       int
	logger       *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEmbedder sets the embedding provider.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *Orchestrator) { o.embedder = e }
}

// WithStore sets the vector store.
func WithStore(s vector.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithChunking sets chunk size and overlap in runes.
func WithChunking(size, overlap int) Option {
	return func(o *Orchestrator) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an orchestrator. Embedder and store may be set later with
// SetEmbedder and SetStore; until then operations needing them report ErrNoEmbedder or ErrNoStore.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = utils.OrNop(o.logger)
	return o
}

// SetEmbedder replaces the embedding provider.
func (o *Orchestrator) SetEmbedder(e embedding.Embedder) {
	o.embedder = e
	if e != nil {
		o.logger.Info("embedding provider set",
			zap.String("provider", e.Name()),
			zap.Int("dimensions", e.Dimensions()),
			zap.Bool("degraded", embedding.IsDegraded(e)))
	}
}

// SetStore replaces the vector store. The id sequence continues from the new store's size.
func (o *Orchestrator) SetStore(s vector.Store) {
	o.store = s
	if s != nil {
		o.nextID = s.Size()
		o.logger.Info("vector store set",
			zap.String("type", s.Type()),
			zap.Int("size", s.Size()))
	}
}

// Embedder returns the current provider, or nil.
func (o *Orchestrator) Embedder() embedding.Embedder { return o.embedder }

// Store returns the current store, or nil.
func (o *Orchestrator) Store() vector.Store { return o.store }

// NextID returns the id the next stored chunk will receive.
func (o *Orchestrator) NextID() int { return o.nextID }

func (o *Orchestrator) ready(op string) error {
	if o.embedder == nil {
		o.logger.Warn("no embedding provider configured", zap.String("op", op))
		return ErrNoEmbedder
	}
	return o.storeReady(op)
}

func (o *Orchestrator) storeReady(op string) error {
	if o.store == nil {
		o.logger.Warn("no vector store configured", zap.String("op", op))
		return ErrNoStore
	}
	return nil
}

// EmbedText returns the provider's embedding for text.
func (o *Orchestrator) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if o.embedder == nil {
		o.logger.Warn("no embedding provider configured", zap.String("op", "embed"))
		return nil, ErrNoEmbedder
	}
	return o.embedder.Embed(ctx, text)
}

// AddText chunks text, embeds every chunk, and stores them under source. It returns the
// number of chunks stored.
//
// Text longer than the chunk size is split with ChunkText and each label gets a
// " (chunk i/n)" suffix. All chunks are embedded before anything is stored, so a provider
// failure leaves the store unchanged. An empty source is replaced by "untitled-<id>".
func (o *Orchestrator) AddText(ctx context.Context, text, source string) (int, error) {
	if err := o.ready("add"); err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyText
	}
	if source == "" {
		source = "untitled-" + uuid.New().String()[:8]
	}

	chunks := []string{text}
	if utf8.RuneCountInString(text) > o.chunkSize {
		chunks = ChunkText(text, o.chunkSize, o.chunkOverlap)
	}

	embeddings, err := o.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", source, err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embed %s: %w: got %d embeddings for %d chunks",
			source, embedding.ErrProviderUnavailable, len(embeddings), len(chunks))
	}
	dim := o.store.Dimension()
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return 0, fmt.Errorf("embed %s chunk %d: %w", source, i+1, vector.ErrEmptyEmbedding)
		}
		if dim == 0 {
			dim = len(emb)
		}
		if len(emb) != dim {
			return 0, fmt.Errorf("embed %s chunk %d: %w: got %d, expected %d",
				source, i+1, vector.ErrDimensionMismatch, len(emb), dim)
		}
		if err := vector.CheckFinite(emb); err != nil {
			return 0, fmt.Errorf("embed %s chunk %d: %w", source, i+1, err)
		}
	}

	typ := models.TypeText
	if embedding.IsDegraded(o.embedder) {
		typ = models.TypeTextPlaceholder
	}
	n := len(chunks)
	for i, chunk := range chunks {
		label := source
		if n > 1 {
			label = fmt.Sprintf("%s (chunk %d/%d)", source, i+1, n)
		}
		meta := models.Metadata{ID: o.nextID, Source: label, Type: typ}
		if err := o.store.Add(ctx, embeddings[i], meta, chunk); err != nil {
			return i, fmt.Errorf("store %s: %w", label, err)
		}
		o.nextID++
	}
	o.logger.Debug("text added",
		zap.String("source", source),
		zap.Int("chunks", n),
		zap.Int("size", o.store.Size()))
	return n, nil
}

// SearchText embeds query and returns up to topK nearest stored chunks. A blank query,
// an empty store, or topK <= 0 returns no results and no error. Scores follow the
// store's Metric.
func (o *Orchestrator) SearchText(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	if err := o.ready("search"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" || topK <= 0 || o.store.Size() == 0 {
		return []models.SearchResult{}, nil
	}
	emb, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return o.store.Search(ctx, emb, topK)
}

// Search wraps SearchText in a response carrying the store's metric and the query time.
func (o *Orchestrator) Search(ctx context.Context, query string, topK int) (*models.SearchResponse, error) {
	start := time.Now()
	results, err := o.SearchText(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	metric := o.store.Metric()
	return &models.SearchResponse{
		Results:        results,
		Total:          len(results),
		Query:          query,
		Metric:         metric.Name,
		HigherIsCloser: metric.HigherIsCloser,
		QueryTime:      time.Since(start).Milliseconds(),
	}, nil
}

// ClearStore removes every record and restarts ids at 0.
func (o *Orchestrator) ClearStore() error {
	if err := o.storeReady("clear"); err != nil {
		return err
	}
	o.store.Clear()
	o.nextID = 0
	o.logger.Info("vector store cleared")
	return nil
}

// StoreSize returns the number of stored chunks, or 0 without a store.
func (o *Orchestrator) StoreSize() int {
	if o.store == nil {
		return 0
	}
	return o.store.Size()
}

// ContextSources returns the distinct source labels in the store, without chunk suffixes.
func (o *Orchestrator) ContextSources() []string {
	if o.store == nil {
		o.logger.Warn("no vector store configured", zap.String("op", "sources"))
		return []string{}
	}
	return o.store.Sources()
}

// SaveStore persists the store to path.
func (o *Orchestrator) SaveStore(path string) error {
	if err := o.storeReady("save"); err != nil {
		return err
	}
	if err := o.store.Save(path); err != nil {
		return err
	}
	o.logger.Info("vector store saved", zap.String("path", path), zap.Int("size", o.store.Size()))
	return nil
}

// LoadStore replaces the store contents from path. On success the id sequence resumes
// at Size(), which is only correct when the persisted ids are contiguous from 0 (true for
// any store built solely through AddText). On failure the store and ids are unchanged.
func (o *Orchestrator) LoadStore(path string) error {
	if err := o.storeReady("load"); err != nil {
		return err
	}
	if err := o.store.Load(path); err != nil {
		return err
	}
	o.nextID = o.store.Size()
	o.logger.Info("vector store loaded", zap.String("path", path), zap.Int("size", o.nextID))
	return nil
}

// Close releases the embedder and the store.
func (o *Orchestrator) Close() error {
	var errs []error
	if o.embedder != nil {
		errs = append(errs, o.embedder.Close())
	}
	if o.store != nil {
		errs = append(errs, o.store.Close())
	}
	return errors.Join(errs...)
}
