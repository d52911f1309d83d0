package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/ragstore/internal/models"
)

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingested_files (
		path TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		mod_time_ns INTEGER NOT NULL,
		chunks INTEGER NOT NULL,
		ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_ingested_files_ingested_at ON ingested_files(ingested_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Record inserts or replaces the entry for file.Path. IngestedAt is set to now.
func (c *SQLiteCatalog) Record(ctx context.Context, file *models.IngestedFile) error {
	file.IngestedAt = time.Now().UTC()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO ingested_files (path, size, mod_time_ns, chunks, ingested_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   size = excluded.size,
		   mod_time_ns = excluded.mod_time_ns,
		   chunks = excluded.chunks,
		   ingested_at = excluded.ingested_at`,
		file.Path, file.Size, file.ModTime.UnixNano(), file.Chunks, file.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", file.Path, err)
	}
	return nil
}

// Get returns the entry for path, or ErrNotFound.
func (c *SQLiteCatalog) Get(ctx context.Context, path string) (*models.IngestedFile, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT path, size, mod_time_ns, chunks, ingested_at
		 FROM ingested_files WHERE path = ?`, path,
	)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes the entry for path. Deleting a missing entry is not an error.
func (c *SQLiteCatalog) Delete(ctx context.Context, path string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM ingested_files WHERE path = ?`, path)
	return err
}

// List returns entries ordered by path.
func (c *SQLiteCatalog) List(ctx context.Context, offset, limit int) ([]*models.IngestedFile, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT path, size, mod_time_ns, chunks, ingested_at
		 FROM ingested_files ORDER BY path LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.IngestedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Count returns the number of cataloged files.
func (c *SQLiteCatalog) Count(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingested_files`).Scan(&count)
	return count, err
}

// Reset removes every entry.
func (c *SQLiteCatalog) Reset(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM ingested_files`)
	return err
}

// Close closes the database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(r rowScanner) (*models.IngestedFile, error) {
	var f models.IngestedFile
	var modNs int64
	if err := r.Scan(&f.Path, &f.Size, &modNs, &f.Chunks, &f.IngestedAt); err != nil {
		return nil, err
	}
	f.ModTime = time.Unix(0, modNs)
	return &f, nil
}
