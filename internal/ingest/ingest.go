// Package ingest adds files and text to an Orchestrator, skipping files the catalog
// shows as unchanged.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyperjump/ragstore/internal/extract"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/rag"
	"github.com/hyperjump/ragstore/internal/storage"
	"go.uber.org/zap"
)

// Result describes one ingested file.
type Result struct {
	Path    string `json:"path"`
	Chunks  int    `json:"chunks"`
	Skipped bool   `json:"skipped"`
}

// Summary totals a directory ingestion.
type Summary struct {
	Files   int `json:"files"`
	Chunks  int `json:"chunks"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Ingester feeds files and text to an Orchestrator. Every orchestrator call happens under
// the ingester's lock; share that lock (WithLocker) with any other code using the same
// orchestrator.
type Ingester struct {
	orch         *rag.Orchestrator
	extractor    *extract.Extractor
	catalog      storage.Catalog
	extensions   []string
	snapshotPath string
	mu           sync.Locker
	logger       *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithCatalog enables skip-unchanged using c. Without a catalog every file is ingested.
func WithCatalog(c storage.Catalog) Option {
	return func(i *Ingester) { i.catalog = c }
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(i *Ingester) { i.extractor = e }
}

// WithExtensions limits IngestDirectory to these extensions. Empty means every supported one.
func WithExtensions(exts []string) Option {
	return func(i *Ingester) { i.extensions = exts }
}

// WithSnapshotPath names the snapshot the catalog describes. Loading any other snapshot
// resets the catalog.
func WithSnapshotPath(path string) Option {
	return func(i *Ingester) { i.snapshotPath = path }
}

// WithLocker sets the lock guarding the orchestrator.
func WithLocker(l sync.Locker) Option {
	return func(i *Ingester) { i.mu = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingester) { i.logger = l }
}

// New creates an Ingester over orch.
func New(orch *rag.Orchestrator, opts ...Option) *Ingester {
	i := &Ingester{orch: orch}
	for _, opt := range opts {
		opt(i)
	}
	if i.extractor == nil {
		i.extractor = extract.NewExtractor()
	}
	if len(i.extensions) == 0 {
		i.extensions = extract.SupportedExtensions()
	}
	if i.mu == nil {
		i.mu = &sync.Mutex{}
	}
	if i.logger == nil {
		i.logger = zap.NewNop()
	}
	return i
}

// IngestText adds raw text under source and returns the number of chunks stored.
func (i *Ingester) IngestText(ctx context.Context, text, source string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.orch.AddText(ctx, text, source)
}

// IngestFile extracts and adds one file, labelled with its absolute path. A file whose size
// and modification time match the catalog is skipped. Files with no extractable text are
// cataloged with zero chunks.
func (i *Ingester) IngestFile(ctx context.Context, path string) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, err
	}
	res := Result{Path: abs}
	info, err := os.Stat(abs)
	if err != nil {
		return res, err
	}
	if info.IsDir() {
		return res, fmt.Errorf("%s is a directory", abs)
	}

	if i.catalog != nil {
		prev, err := i.catalog.Get(ctx, abs)
		switch {
		case err == nil && prev.Unchanged(info.Size(), info.ModTime()):
			res.Skipped = true
			res.Chunks = prev.Chunks
			i.logger.Debug("file unchanged, skipping", zap.String("path", abs))
			return res, nil
		case err == nil:
			i.logger.Info("file changed; earlier chunks stay in the store until it is cleared",
				zap.String("path", abs), zap.Int("previous_chunks", prev.Chunks))
		case !errors.Is(err, storage.ErrNotFound):
			return res, fmt.Errorf("catalog lookup: %w", err)
		}
	}

	text, err := i.extractor.Extract(abs)
	if err != nil {
		return res, fmt.Errorf("extract %s: %w", abs, err)
	}

	if strings.TrimSpace(text) != "" {
		i.mu.Lock()
		res.Chunks, err = i.orch.AddText(ctx, text, abs)
		i.mu.Unlock()
		if err != nil {
			return res, err
		}
	} else {
		i.logger.Debug("no text extracted", zap.String("path", abs))
	}

	if i.catalog != nil {
		entry := &models.IngestedFile{Path: abs, Size: info.Size(), ModTime: info.ModTime(), Chunks: res.Chunks}
		if err := i.catalog.Record(ctx, entry); err != nil {
			return res, fmt.Errorf("catalog record: %w", err)
		}
	}
	i.logger.Debug("file ingested", zap.String("path", abs), zap.Int("chunks", res.Chunks))
	return res, nil
}

// IngestDirectory ingests every file under dir with a configured extension, skipping hidden
// entries. Per-file failures are logged and counted; the walk continues.
func (i *Ingester) IngestDirectory(ctx context.Context, dir string, recursive bool) (Summary, error) {
	var sum Summary
	root, err := filepath.Abs(dir)
	if err != nil {
		return sum, err
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		hidden := strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if path != root && (hidden || !recursive) {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden || !i.matches(path) {
			return nil
		}
		res, err := i.IngestFile(ctx, path)
		switch {
		case err != nil:
			sum.Failed++
			i.logger.Warn("ingest file failed", zap.String("path", path), zap.Error(err))
		case res.Skipped:
			sum.Skipped++
		default:
			sum.Files++
			sum.Chunks += res.Chunks
		}
		return nil
	})
	if err != nil {
		return sum, fmt.Errorf("walk %s: %w", root, err)
	}
	i.logger.Info("directory ingested",
		zap.String("path", root),
		zap.Int("files", sum.Files),
		zap.Int("chunks", sum.Chunks),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
	return sum, nil
}

func (i *Ingester) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range i.extensions {
		if "."+strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// FileChanged ingests path; it lets the Ingester serve as a watcher.Handler.
func (i *Ingester) FileChanged(ctx context.Context, path string) {
	if _, err := i.IngestFile(ctx, path); err != nil {
		i.logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
	}
}

// FileRemoved forgets path in the catalog. Stores cannot drop single records, so its chunks
// remain searchable until the store is cleared.
func (i *Ingester) FileRemoved(ctx context.Context, path string) {
	if i.catalog == nil {
		return
	}
	if err := i.catalog.Delete(ctx, path); err != nil {
		i.logger.Warn("catalog delete failed", zap.String("path", path), zap.Error(err))
		return
	}
	i.logger.Info("file removed from catalog", zap.String("path", path))
}

// Clear empties the store and the catalog.
func (i *Ingester) Clear(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.orch.ClearStore(); err != nil {
		return err
	}
	if i.catalog != nil {
		if err := i.catalog.Reset(ctx); err != nil {
			return fmt.Errorf("catalog reset: %w", err)
		}
	}
	return nil
}

// Save writes the store snapshot to path.
func (i *Ingester) Save(path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.orch.SaveStore(path)
}

// Load replaces the store from path. Loading a snapshot other than the configured one
// resets the catalog, so files are re-ingested into it on demand.
func (i *Ingester) Load(ctx context.Context, path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.orch.LoadStore(path); err != nil {
		return err
	}
	if i.catalog != nil && filepath.Clean(path) != filepath.Clean(i.snapshotPath) {
		if err := i.catalog.Reset(ctx); err != nil {
			return fmt.Errorf("catalog reset: %w", err)
		}
	}
	return nil
}
