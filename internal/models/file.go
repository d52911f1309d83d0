package models

import "time"

// IngestedFile is the catalog entry for a file whose text was added to the store.
type IngestedFile struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Unchanged reports whether size and modification time still match the catalog entry.
func (f *IngestedFile) Unchanged(size int64, modTime time.Time) bool {
	return f.Size == size && f.ModTime.Equal(modTime)
}
