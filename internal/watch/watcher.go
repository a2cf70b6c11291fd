// internal/watch/watcher.go
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/user/vaultscribe/internal/types"
)

// Config configures the vault watcher.
type Config struct {
	VaultPath string
	VaultName string
	Hostname  string
	// EventsFolder is the observer's own folder inside the vault. Its
	// writes must not echo back as observed events.
	EventsFolder string
	// Debounce is how long a file must stay quiet after a write before a
	// single modified event is emitted. Zero means 500ms.
	Debounce time.Duration
}

// Watcher observes the vault with fsnotify and turns file-system
// notifications into event records handed to the sink. Only markdown notes
// produce records; dot-directories and the events folder are excluded.
type Watcher struct {
	mu   sync.Mutex
	cfg  Config
	sink types.EventSink

	// retarget wakes the run loop after a config change so it rebuilds its
	// watch set against the new paths.
	retarget chan struct{}
}

// New creates a Watcher feeding the given sink.
func New(cfg Config, sink types.EventSink) (*Watcher, error) {
	if cfg.VaultPath == "" {
		return nil, fmt.Errorf("vault path is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	return &Watcher{cfg: cfg, sink: sink, retarget: make(chan struct{}, 1)}, nil
}

func (w *Watcher) config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Retarget points the watcher at a new vault path and events folder. The
// running watch loop drops its current watch set, rebuilds it against the
// new paths, and keeps excluding the new events folder so the store's own
// writes never echo back as events.
func (w *Watcher) Retarget(vaultPath, eventsFolder string) {
	w.mu.Lock()
	w.cfg.VaultPath = vaultPath
	w.cfg.EventsFolder = eventsFolder
	w.mu.Unlock()
	select {
	case w.retarget <- struct{}{}:
	default:
	}
}

// Run watches the vault until the context is cancelled, rebuilding the
// watch set whenever Retarget is called. Adapter-level errors are logged,
// never fatal to the loop.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		again, err := w.watch(ctx)
		if !again {
			return err
		}
	}
}

// watch runs one watch session over the current config. It returns true
// when the session should restart against a retargeted config.
func (w *Watcher) watch(ctx context.Context) (bool, error) {
	cfg := w.config()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return false, fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, cfg.VaultPath); err != nil {
		return false, fmt.Errorf("watch vault: %w", err)
	}
	slog.Info("vault watcher started", "vault", cfg.VaultPath)

	// Writes are debounced per path so an editor's save burst becomes one
	// modified event.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return false, nil
			}
			w.handleEvent(ctx, fsw, event, pending)

		case err, ok := <-fsw.Errors:
			if !ok {
				return false, nil
			}
			slog.Warn("watcher error", "error", err)

		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) < cfg.Debounce {
					continue
				}
				delete(pending, path)
				w.emitModified(ctx, path)
			}

		case <-w.retarget:
			slog.Info("vault watcher retargeting", "vault", w.config().VaultPath)
			return true, nil

		case <-ctx.Done():
			return false, nil
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event, pending map[string]time.Time) {
	// New directory trees join the watch set; a single Add would miss
	// subdirectories that already exist by the time the event arrives.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.ignored(event.Name) {
				if err := w.addRecursive(fsw, event.Name); err != nil {
					slog.Warn("watch new directory failed", "path", event.Name, "error", err)
				}
			}
			return
		}
	}

	if !w.observes(event.Name) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.emit(ctx, types.KindCreated, event.Name, types.Metadata{Source: "watcher"})
	case event.Op&fsnotify.Remove != 0:
		delete(pending, event.Name)
		w.emit(ctx, types.KindDeleted, event.Name, types.Metadata{Source: "watcher"})
	case event.Op&fsnotify.Rename != 0:
		// fsnotify reports the old name only; the new path surfaces as a
		// separate created event. Adapters that know both ends can ingest
		// a complete renamed record through the control API instead.
		delete(pending, event.Name)
		w.emit(ctx, types.KindRenamed, event.Name, types.Metadata{OldPath: w.relative(event.Name), Source: "watcher"})
	case event.Op&fsnotify.Write != 0:
		pending[event.Name] = time.Now()
	}
}

func (w *Watcher) emitModified(ctx context.Context, path string) {
	meta := types.Metadata{Source: "watcher"}
	if info, err := os.Stat(path); err == nil {
		meta.LastModified = info.ModTime().UTC().Truncate(time.Millisecond).Format(types.TimestampLayout)
		meta.SizeBytes = info.Size()
	}
	w.emit(ctx, types.KindModified, path, meta)
}

func (w *Watcher) emit(ctx context.Context, kind types.EventKind, path string, meta types.Metadata) {
	cfg := w.config()
	rec := types.NewRecord(kind, w.relative(path), cfg.VaultName, cfg.Hostname)
	rec.Metadata = meta
	if err := w.sink.LogEvent(ctx, rec); err != nil {
		slog.Error("log event failed", "kind", kind, "path", rec.FilePath, "error", err)
	}
}

// relative rewrites an absolute notification path as vault-relative.
func (w *Watcher) relative(path string) string {
	rel, err := filepath.Rel(w.config().VaultPath, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// observes reports whether a file event at path should produce a record.
func (w *Watcher) observes(path string) bool {
	if w.ignored(path) {
		return false
	}
	return strings.EqualFold(filepath.Ext(path), ".md")
}

// ignored reports whether the path is inside a dot-directory or the
// observer's own events folder.
func (w *Watcher) ignored(path string) bool {
	cfg := w.config()
	rel := w.relative(path)
	if rel == "." || rel == "" {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	if cfg.EventsFolder != "" {
		if rel == cfg.EventsFolder || strings.HasPrefix(rel, cfg.EventsFolder+"/") {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && w.ignored(path) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
