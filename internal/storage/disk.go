package storage

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/ragstore/internal/vector"
)

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths contribute 0; other errors are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// FootprintPaths lists every file a snapshot and catalog may occupy: the snapshot, the l2
// sidecars next to it, and the SQLite database with its WAL files.
func FootprintPaths(snapshotPath, catalogPath string) []string {
	var paths []string
	if snapshotPath != "" {
		metaPath, contentsPath := vector.SidecarPaths(snapshotPath)
		paths = append(paths, snapshotPath, metaPath, contentsPath)
	}
	if catalogPath != "" {
		paths = append(paths, catalogPath, catalogPath+"-wal", catalogPath+"-shm")
	}
	return paths
}
