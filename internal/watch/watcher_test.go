// internal/watch/watcher_test.go
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/user/vaultscribe/internal/types"
)

type captureSink struct {
	mu      sync.Mutex
	records []*types.EventRecord
}

func (s *captureSink) Append(rec *types.EventRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *captureSink) LogEvent(_ context.Context, rec *types.EventRecord) error {
	s.Append(rec)
	return nil
}

func (s *captureSink) all() []*types.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.EventRecord(nil), s.records...)
}

func (s *captureSink) find(kind types.EventKind, path string) *types.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.Type == kind && rec.FilePath == path {
			return rec
		}
	}
	return nil
}

func newTestWatcher(t *testing.T, vault string) (*Watcher, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	w, err := New(Config{
		VaultPath:    vault,
		VaultName:    "vault",
		Hostname:     "host",
		EventsFolder: "ObsidianObserver",
		Debounce:     100 * time.Millisecond,
	}, sink)
	if err != nil {
		t.Fatal(err)
	}
	return w, sink
}

func TestObservesFilter(t *testing.T) {
	vault := t.TempDir()
	w, _ := newTestWatcher(t, vault)

	cases := []struct {
		path string
		want bool
	}{
		{filepath.Join(vault, "note.md"), true},
		{filepath.Join(vault, "sub", "deep", "note.md"), true},
		{filepath.Join(vault, "NOTE.MD"), true},
		{filepath.Join(vault, "image.png"), false},
		{filepath.Join(vault, ".obsidian", "workspace.md"), false},
		{filepath.Join(vault, "sub", ".trash", "note.md"), false},
		{filepath.Join(vault, "ObsidianObserver", "Dashboard.md"), false},
		{filepath.Join(vault, "ObsidianObserver", "Events", "Events-2026-08-30.md"), false},
	}
	for _, c := range cases {
		if got := w.observes(c.path); got != c.want {
			t.Errorf("observes(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcherEmitsCreated(t *testing.T) {
	vault := t.TempDir()
	w, sink := newTestWatcher(t, vault)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			t.Errorf("watcher: %v", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(vault, "new.md"), []byte("# hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		return sink.find(types.KindCreated, "new.md") != nil
	})
	if !ok {
		t.Fatalf("no created event observed, got %+v", sink.all())
	}

	rec := sink.find(types.KindCreated, "new.md")
	if rec.FileName != "new.md" || rec.VaultName != "vault" || rec.Hostname != "host" {
		t.Errorf("unexpected record fields: %+v", rec)
	}
	if rec.Metadata.Source != "watcher" {
		t.Errorf("expected watcher source metadata, got %+v", rec.Metadata)
	}

	cancel()
	<-done
}

func TestWatcherDebouncesWrites(t *testing.T) {
	vault := t.TempDir()
	path := filepath.Join(vault, "note.md")
	if err := os.WriteFile(path, []byte("v0"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, sink := newTestWatcher(t, vault)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	// A burst of writes should collapse into one modified event.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("edit"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		return sink.find(types.KindModified, "note.md") != nil
	})
	if !ok {
		t.Fatalf("no modified event observed, got %+v", sink.all())
	}

	// Let the debounce window fully drain, then count.
	time.Sleep(300 * time.Millisecond)
	count := 0
	for _, rec := range sink.all() {
		if rec.Type == types.KindModified && rec.FilePath == "note.md" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected 1 debounced modified event, got %d", count)
	}

	rec := sink.find(types.KindModified, "note.md")
	if rec.Metadata.LastModified == "" || rec.Metadata.SizeBytes <= 0 {
		t.Errorf("expected stat metadata on modified event, got %+v", rec.Metadata)
	}
}

func TestWatcherIgnoresOwnFolder(t *testing.T) {
	vault := t.TempDir()
	if err := os.MkdirAll(filepath.Join(vault, "ObsidianObserver", "Events"), 0o755); err != nil {
		t.Fatal(err)
	}

	w, sink := newTestWatcher(t, vault)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	// The store's own writes must not echo back as events.
	logPath := filepath.Join(vault, "ObsidianObserver", "Events", "Events-2026-08-30.md")
	if err := os.WriteFile(logPath, []byte("| id |"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vault, "real.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return sink.find(types.KindCreated, "real.md") != nil
	})

	for _, rec := range sink.all() {
		if rec.FilePath != "real.md" {
			t.Errorf("unexpected event for %q", rec.FilePath)
		}
	}
}

func TestWatcherDeleted(t *testing.T) {
	vault := t.TempDir()
	path := filepath.Join(vault, "doomed.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, sink := newTestWatcher(t, vault)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		return sink.find(types.KindDeleted, "doomed.md") != nil
	})
	if !ok {
		t.Fatalf("no deleted event observed, got %+v", sink.all())
	}
}

func TestWatcherRetargetExcludesNewEventsFolder(t *testing.T) {
	vault := t.TempDir()
	// The future events folder already exists, so the startup walk watches it.
	if err := os.MkdirAll(filepath.Join(vault, "NewFolder", "Events"), 0o755); err != nil {
		t.Fatal(err)
	}

	sink := &captureSink{}
	w, err := New(Config{
		VaultPath:    vault,
		VaultName:    "vault",
		Hostname:     "host",
		EventsFolder: "OldFolder",
		Debounce:     100 * time.Millisecond,
	}, sink)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(200 * time.Millisecond)

	w.Retarget(vault, "NewFolder")
	time.Sleep(200 * time.Millisecond)

	// The store's own writes under the retargeted folder must stay invisible.
	logPath := filepath.Join(vault, "NewFolder", "Events", "Events-2026-08-30.md")
	if err := os.WriteFile(logPath, []byte("| id |"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vault, "real.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		return sink.find(types.KindCreated, "real.md") != nil
	})
	if !ok {
		t.Fatalf("no created event for real.md, got %+v", sink.all())
	}
	for _, rec := range sink.all() {
		if rec.FilePath != "real.md" {
			t.Errorf("retargeted events folder echoed back: %+v", rec)
		}
	}
}

func TestWatcherRetargetFollowsNewVault(t *testing.T) {
	oldVault := t.TempDir()
	newVault := t.TempDir()

	w, sink := newTestWatcher(t, oldVault)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(200 * time.Millisecond)

	w.Retarget(newVault, "ObsidianObserver")
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(oldVault, "stale.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(newVault, "fresh.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		return sink.find(types.KindCreated, "fresh.md") != nil
	})
	if !ok {
		t.Fatalf("no created event in the new vault, got %+v", sink.all())
	}
	for _, rec := range sink.all() {
		if rec.FileName == "stale.md" {
			t.Errorf("old vault still observed after retarget: %+v", rec)
		}
	}
}

func TestWatcherObservesNestedNewDirectories(t *testing.T) {
	vault := t.TempDir()
	w, sink := newTestWatcher(t, vault)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	// Both levels appear at once; by the time the create event for the
	// outer directory arrives, the inner one already exists.
	if err := os.MkdirAll(filepath.Join(vault, "outer", "inner"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(vault, "outer", "inner", "note.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		return sink.find(types.KindCreated, "outer/inner/note.md") != nil
	})
	if !ok {
		t.Fatalf("no created event for the nested note, got %+v", sink.all())
	}
}

func TestNewRequiresVaultPath(t *testing.T) {
	if _, err := New(Config{}, &captureSink{}); err == nil {
		t.Error("expected error for missing vault path")
	}
}
