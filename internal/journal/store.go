// internal/journal/store.go
package journal

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/vaultscribe/internal/types"
)

// Period selects the rotation unit for log files.
type Period string

const (
	Daily   Period = "daily"
	Monthly Period = "monthly"
)

// Key returns the period key for the given timestamp, which also names the
// period file the record lands in.
func (p Period) Key(t time.Time) string {
	if p == Monthly {
		return t.UTC().Format("2006-01")
	}
	return t.UTC().Format("2006-01-02")
}

// PeriodFile describes one log file in the events directory.
type PeriodFile struct {
	Name string // file name, e.g. Events-2026-08-30.md
	Key  string // period key, e.g. 2026-08-30
}

// Store owns the on-disk log: one markdown table file per period under
// <vault>/<eventsFolder>/Events/. It assumes single-writer ownership of its
// root folder; concurrent writers from another process are unsupported.
type Store struct {
	mu           sync.RWMutex
	vaultPath    string
	eventsFolder string
	period       Period
}

// NewStore creates a Store rooted at vaultPath/eventsFolder.
func NewStore(vaultPath, eventsFolder string, period Period) *Store {
	if period != Monthly {
		period = Daily
	}
	return &Store{
		vaultPath:    vaultPath,
		eventsFolder: eventsFolder,
		period:       period,
	}
}

// Root returns the store's root folder.
func (s *Store) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filepath.Join(s.vaultPath, s.eventsFolder)
}

// EventsDir returns the folder holding the period files.
func (s *Store) EventsDir() string {
	return filepath.Join(s.Root(), "Events")
}

// Retarget points future writes at a new root. Already-written files are
// left where they are; the next persist creates the new layout on demand.
func (s *Store) Retarget(vaultPath, eventsFolder string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vaultPath = vaultPath
	s.eventsFolder = eventsFolder
}

// EnsureDirectories idempotently creates the root and events folders. It
// never touches existing content.
func (s *Store) EnsureDirectories() error {
	if err := os.MkdirAll(s.EventsDir(), 0o755); err != nil {
		return fmt.Errorf("create events dir: %w", err)
	}
	return nil
}

// Persist appends one row per record to the period file each record's
// timestamp selects, preserving batch order within and across files. New
// files get the table header first. Each file's row block is written with a
// single write followed by a sync, so a crash mid-write leaves prior
// content intact with at most one truncated trailing row.
func (s *Store) Persist(_ context.Context, batch []*types.EventRecord) error {
	if len(batch) == 0 {
		return nil
	}
	if err := s.EnsureDirectories(); err != nil {
		return err
	}

	s.mu.RLock()
	period := s.period
	dir := filepath.Join(s.vaultPath, s.eventsFolder, "Events")
	s.mu.RUnlock()

	// Group by period key, preserving batch order.
	var keys []string
	grouped := make(map[string][]*types.EventRecord)
	for _, rec := range batch {
		key := period.Key(rec.Timestamp)
		if _, seen := grouped[key]; !seen {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], rec)
	}

	for _, key := range keys {
		path := filepath.Join(dir, fileName(key))
		if err := appendRows(path, grouped[key]); err != nil {
			return fmt.Errorf("persist period %s: %w", key, err)
		}
	}
	return nil
}

func fileName(key string) string {
	return "Events-" + key + ".md"
}

func appendRows(path string, records []*types.EventRecord) error {
	var block bytes.Buffer

	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		block.WriteString(HeaderBlock())
	} else if err != nil {
		return fmt.Errorf("stat period file: %w", err)
	}

	for _, rec := range records {
		row, err := EncodeRow(rec)
		if err != nil {
			return err
		}
		block.WriteString(row)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open period file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(block.Bytes()); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync period file: %w", err)
	}
	return nil
}

// ListPeriodFiles enumerates the existing period files sorted by name,
// which for the fixed key formats is also chronological order.
func (s *Store) ListPeriodFiles() ([]PeriodFile, error) {
	entries, err := os.ReadDir(s.EventsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read events dir: %w", err)
	}

	var files []PeriodFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "Events-") || !strings.HasSuffix(name, ".md") {
			continue
		}
		key := strings.TrimSuffix(strings.TrimPrefix(name, "Events-"), ".md")
		files = append(files, PeriodFile{Name: name, Key: key})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ReadPeriodFile parses all rows of one period file in order. Header and
// delimiter rows are skipped, as is a truncated trailing row left by a
// crash mid-append.
func (s *Store) ReadPeriodFile(name string) ([]*types.EventRecord, error) {
	f, err := os.Open(filepath.Join(s.EventsDir(), name))
	if err != nil {
		return nil, fmt.Errorf("open period file: %w", err)
	}
	defer f.Close()

	var records []*types.EventRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rec, err := ParseRow(scanner.Text())
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan period file: %w", err)
	}
	return records, nil
}
