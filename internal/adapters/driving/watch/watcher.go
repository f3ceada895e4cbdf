package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultDebounce is how long the tree must be quiet before a flush.
const DefaultDebounce = 500 * time.Millisecond

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("watcher is closed")

// ChangeType classifies a file change.
type ChangeType int

// Change types.
const (
	ChangeCreated ChangeType = iota
	ChangeUpdated
	ChangeDeleted
)

func (t ChangeType) String() string {
	switch t {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is a single file event after filtering.
type Change struct {
	Path string
	Type ChangeType
}

// Config configures a Watcher.
type Config struct {
	// Root is the directory to watch recursively.
	Root string

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// Metadata is attached to every ingested file.
	Metadata domain.Metadata

	// OnFlush, if set, is called after each flush with the changes applied.
	OnFlush func(changes []Change, err error)
}

// Watcher re-ingests files as they change.
type Watcher struct {
	root     string
	debounce time.Duration
	metadata domain.Metadata
	onFlush  func([]Change, error)

	registry driven.NormaliserRegistry
	ingest   driving.IngestService
	index    driving.IndexService

	mu      sync.Mutex
	closed  bool
	running bool
	stopCh  chan struct{}
}

// New creates a watcher. Nothing is watched until Run is called.
func New(
	cfg Config,
	registry driven.NormaliserRegistry,
	ingest driving.IngestService,
	index driving.IndexService,
) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{
		root:     cfg.Root,
		debounce: cfg.Debounce,
		metadata: cfg.Metadata,
		onFlush:  cfg.OnFlush,
		registry: registry,
		ingest:   ingest,
		index:    index,
		stopCh:   make(chan struct{}),
	}
}

// Run watches until ctx is cancelled or Close is called. Changes still
// pending at that point are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher is already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	root, err := filepath.Abs(w.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", root)
	}
	w.root = root

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if _, err := w.addTree(fsw, root); err != nil {
		return err
	}
	logger.Info("Watching %s", root)

	pending := make(map[string]ChangeType)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			changes := w.handleFsEvent(event)
			if event.Has(fsnotify.Create) && isDir(event.Name) && !w.hidden(event.Name) {
				// Files written before the watch was added produce no events.
				files, err := w.addTree(fsw, event.Name)
				if err != nil {
					logger.Warn("Failed to watch %s: %v", event.Name, err)
				}
				for _, f := range files {
					changes = append(changes, Change{Path: f, Type: ChangeCreated})
				}
			}
			if len(changes) == 0 {
				continue
			}
			for _, c := range changes {
				pending[c.Path] = merge(pending[c.Path], c.Type, pendingHas(pending, c.Path))
			}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)

		case <-timer.C:
			batch := pending
			pending = make(map[string]ChangeType)
			w.flush(ctx, batch)
		}
	}
}

// Close stops a running watcher and prevents further runs.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.stopCh)
	return nil
}

// addTree watches dir and every non-hidden directory below it and returns
// the supported files found.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if w.hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
			return nil
		}
		if w.supported(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// handleFsEvent converts an fsnotify event into the changes it implies.
// Directories, hidden paths, unsupported files and chmod-only events
// produce nothing.
func (w *Watcher) handleFsEvent(event fsnotify.Event) []Change {
	path := event.Name
	if w.hidden(path) || !w.supported(path) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Create):
		if isDir(path) {
			return nil
		}
		return []Change{{Path: path, Type: ChangeCreated}}
	case event.Has(fsnotify.Write):
		if isDir(path) {
			return nil
		}
		return []Change{{Path: path, Type: ChangeUpdated}}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return []Change{{Path: path, Type: ChangeDeleted}}
	default:
		return nil
	}
}

// flush applies a debounced batch. Changed files have their old chunks
// removed and are ingested again; deleted files have their chunks removed.
func (w *Watcher) flush(ctx context.Context, batch map[string]ChangeType) {
	if len(batch) == 0 {
		return
	}

	var upserts, deletes []string
	for path, t := range batch {
		// The file may have gone again since its create or write event.
		if t != ChangeDeleted && !isFile(path) {
			t = ChangeDeleted
			batch[path] = t
		}
		if t == ChangeDeleted {
			deletes = append(deletes, path)
		} else {
			upserts = append(upserts, path)
		}
	}
	sort.Strings(upserts)
	sort.Strings(deletes)

	err := w.apply(ctx, upserts, deletes)
	if err != nil {
		logger.Warn("Watch update failed: %v", err)
	}

	if w.onFlush != nil {
		changes := make([]Change, 0, len(batch))
		for path, t := range batch {
			changes = append(changes, Change{Path: path, Type: t})
		}
		sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
		w.onFlush(changes, err)
	}
}

func (w *Watcher) apply(ctx context.Context, upserts, deletes []string) error {
	var errs []error

	if len(deletes) > 0 {
		n, err := w.index.Remove(ctx, deletes)
		if err != nil {
			errs = append(errs, err)
		} else {
			logger.Info("Removed %d chunks for %d deleted files", n, len(deletes))
		}
	}

	if len(upserts) > 0 {
		// Replacement is not atomic: a failed ingest leaves the files unindexed
		// until their next change.
		if _, err := w.index.Remove(ctx, upserts); err != nil {
			return errors.Join(append(errs, err)...)
		}
		result, err := w.ingest.IngestFiles(ctx, upserts, w.metadata)
		if err != nil {
			errs = append(errs, err)
		} else {
			logger.Info("Indexed %d chunks from %d changed files", len(result.IDs), len(upserts))
		}
	}

	return errors.Join(errs...)
}

func (w *Watcher) supported(path string) bool {
	return w.registry.DetectMIMEType(path) != ""
}

// hidden reports whether path has a hidden component below the root.
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return isHidden(path)
	}
	return isHidden(rel)
}

// merge folds a new change into a pending one. A create followed by a
// write stays a create; anything followed by a delete is a delete.
func merge(prev, next ChangeType, hadPrev bool) ChangeType {
	if !hadPrev {
		return next
	}
	if next == ChangeUpdated && prev == ChangeCreated {
		return ChangeCreated
	}
	return next
}

func pendingHas(pending map[string]ChangeType, path string) bool {
	_, ok := pending[path]
	return ok
}

// isHidden reports whether any path component starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
