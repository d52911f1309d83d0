// Package watcher feeds file changes under watched directories to an ingestion handler.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// ErrNotDirectory is returned when a watched root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Handler receives debounced file events. Calls arrive from watcher goroutines and may
// overlap; implementations serialize their own work.
type Handler interface {
	FileChanged(ctx context.Context, path string)
	FileRemoved(ctx context.Context, path string)
}

// Watcher watches root directories and reports matching file changes to a Handler.
type Watcher struct {
	handler    Handler
	extensions []string
	recursive  bool
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	roots   []string
	watched map[string][]string // root -> directories added to fsnotify
	pending map[string]*time.Timer
	fsw     *fsnotify.Watcher
	ctx     context.Context
	done    chan struct{}
	stop    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRoots sets the directories watched once Start is called.
func WithRoots(roots ...string) Option {
	return func(w *Watcher) { w.roots = append(w.roots, roots...) }
}

// WithExtensions limits events to files with these extensions (case-insensitive, dot optional).
// Empty means every file.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// WithRecursive controls whether subdirectories are watched. Default true.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// WithDebounce sets how long a file must stay quiet before FileChanged fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets a logger for debug output (directory changes, file events, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher that reports to h.
func New(h Handler, opts ...Option) *Watcher {
	w := &Watcher{
		handler:   h,
		recursive: true,
		debounce:  defaultDebounce,
		watched:   make(map[string][]string),
		pending:   make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Start begins watching. Roots that do not exist are skipped with a warning. The watcher
// runs until ctx is cancelled or Stop is called; ctx is also passed to the handler.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.fsw != nil {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw
	w.ctx = ctx
	roots := w.roots[:0]
	for _, root := range w.roots {
		abs, err := w.watchRootLocked(root)
		if err != nil {
			w.logger.Warn("skipping watch directory", zap.String("path", root), zap.Error(err))
			continue
		}
		roots = append(roots, abs)
	}
	w.roots = roots
	w.logger.Debug("watcher started",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	w.mu.Unlock()

	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) || ignored(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelPending(path)
		if w.matchExtension(path) {
			w.handler.FileRemoved(w.context(), path)
		}
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.addNewDirectory(path)
			return
		}
		if w.matchExtension(path) {
			w.schedule(path)
		}
	}
}

// addNewDirectory watches a directory created under a root and reports the files already in it.
func (w *Watcher) addNewDirectory(dir string) {
	if !w.recursive {
		return
	}
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	root := w.rootOfLocked(dir)
	added, err := w.addTreeLocked(dir)
	if err != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
	}
	if root != "" {
		w.watched[root] = append(w.watched[root], added...)
	}
	w.mu.Unlock()
	w.syncDirectory(dir)
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rootOfLocked(path) != ""
}

func (w *Watcher) rootOfLocked(path string) string {
	for _, root := range w.roots {
		if root == path || inDir(root, path) {
			return root
		}
	}
	return ""
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ignored skips hidden files and common editor temporaries.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".tmp")
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// schedule reports path once it has been quiet for the debounce interval.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.logger.Debug("watcher reporting change", zap.String("path", path))
		w.handler.FileChanged(w.context(), path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// AddDirectory adds a root directory and, when syncExisting is true, reports every matching
// file already in it. Before Start the root is only recorded.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	for _, r := range w.roots {
		if r == abs {
			w.mu.Unlock()
			return nil
		}
	}
	if w.fsw == nil {
		if err := checkDir(abs); err != nil {
			w.mu.Unlock()
			return err
		}
		w.roots = append(w.roots, abs)
		w.mu.Unlock()
		return nil
	}
	if _, err := w.watchRootLocked(abs); err != nil {
		w.mu.Unlock()
		return err
	}
	w.roots = append(w.roots, abs)
	w.mu.Unlock()

	w.logger.Debug("watcher directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		go w.syncDirectory(abs)
	}
	return nil
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
	return nil
}

// watchRootLocked registers root (and its subdirectories when recursive) with fsnotify.
func (w *Watcher) watchRootLocked(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	if err := checkDir(abs); err != nil {
		return "", err
	}
	var added []string
	if w.recursive {
		added, err = w.addTreeLocked(abs)
	} else {
		err = w.fsw.Add(abs)
		added = []string{abs}
	}
	if err != nil {
		for _, p := range added {
			_ = w.fsw.Remove(p)
		}
		return "", err
	}
	w.watched[abs] = added
	return abs, nil
}

func (w *Watcher) addTreeLocked(dir string) ([]string, error) {
	var added []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		added = append(added, path)
		return nil
	})
	return added, err
}

// syncDirectory reports every matching file under dir as changed, without debouncing.
func (w *Watcher) syncDirectory(dir string) {
	w.logger.Debug("watcher syncing directory", zap.String("root", dir))
	ctx := w.context()
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != dir && (ignored(path) || !w.recursive) {
				return filepath.SkipDir
			}
			return nil
		}
		if !ignored(path) && w.matchExtension(path) {
			w.handler.FileChanged(ctx, path)
		}
		return nil
	})
}

// RemoveDirectory stops watching root. Content already ingested from it stays in the store.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, r := range w.roots {
		if r == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if w.fsw != nil {
		for _, p := range w.watched[abs] {
			_ = w.fsw.Remove(p)
		}
	}
	delete(w.watched, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Debug("watcher directory removed", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the current watched root directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles reports every matching file already present in each root.
// Call this after Start to pick up files that predate the watcher.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stop stops the watcher, dropping pending debounced events.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.mu.Unlock()
	w.stop.Do(func() { close(w.done) })
}
