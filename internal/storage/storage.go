// Package storage persists the ingestion catalog and reports on-disk usage.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/ragstore/internal/models"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("not found")

// Catalog records which files have been ingested so unchanged files can be skipped.
// It tracks files, not vectors: the vector store remains the source of truth for content.
type Catalog interface {
	Record(ctx context.Context, file *models.IngestedFile) error
	Get(ctx context.Context, path string) (*models.IngestedFile, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, offset, limit int) ([]*models.IngestedFile, error)
	Count(ctx context.Context) (int64, error)
	// Reset forgets every file; called when the store is cleared.
	Reset(ctx context.Context) error
	Close() error
}
