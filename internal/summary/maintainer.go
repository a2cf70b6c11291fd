// internal/summary/maintainer.go
package summary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/user/vaultscribe/internal/journal"
	"github.com/user/vaultscribe/internal/types"
)

// Options configures the maintainer.
type Options struct {
	VaultName string
	Period    journal.Period
	// RecentEvents is the number of rows in the dashboard's recent table.
	// Zero means 10.
	RecentEvents int
	// MaxConcurrentReads bounds parallel period-file reads during a
	// rebuild. Zero means 4.
	MaxConcurrentReads int64
}

// Maintainer derives the two summary artifacts, a dashboard and a period
// manifest, from the persisted log. Both are materialized views: the
// incremental Update path is an optimization and Rebuild, which rescans the
// period files, is the correctness reference. The maintainer exclusively
// owns the artifact files and only ever reads the period files.
type Maintainer struct {
	store *journal.Store
	opts  Options

	mu    sync.Mutex
	stats Stats
	// seeded is set once stats reflect the full log; before that,
	// incremental updates fall back to a rebuild.
	seeded bool
}

// NewMaintainer creates a Maintainer over the given store.
func NewMaintainer(store *journal.Store, opts Options) *Maintainer {
	if opts.RecentEvents <= 0 {
		opts.RecentEvents = 10
	}
	if opts.MaxConcurrentReads <= 0 {
		opts.MaxConcurrentReads = 4
	}
	return &Maintainer{
		store: store,
		opts:  opts,
		stats: newStats(),
	}
}

// DashboardPath returns the dashboard artifact location.
func (m *Maintainer) DashboardPath() string {
	return filepath.Join(m.store.Root(), "Dashboard.md")
}

// ManifestPath returns the manifest artifact location.
func (m *Maintainer) ManifestPath() string {
	return filepath.Join(m.store.Root(), "Events.base")
}

// EnsureDashboard creates the dashboard if absent. An existing file is
// never touched, whatever the user has done to it.
func (m *Maintainer) EnsureDashboard() error {
	path := m.DashboardPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat dashboard: %w", err)
	}
	m.mu.Lock()
	snap := m.stats.clone()
	m.mu.Unlock()
	return writeDashboard(path, initialDashboard(m.opts.VaultName, snap))
}

// EnsureManifest creates the manifest if absent.
func (m *Maintainer) EnsureManifest() error {
	path := m.ManifestPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat manifest: %w", err)
	}
	m.mu.Lock()
	snap := m.stats.clone()
	m.mu.Unlock()
	return writeManifest(path, buildManifest(m.opts.VaultName, snap))
}

// Update folds a freshly persisted batch into the aggregates and rewrites
// both artifacts, without rescanning the log. Until the maintainer has been
// seeded by a rebuild it delegates to Rebuild, which covers the batch since
// it was persisted first.
func (m *Maintainer) Update(ctx context.Context, batch []*types.EventRecord) error {
	m.mu.Lock()
	if !m.seeded {
		m.mu.Unlock()
		return m.Rebuild(ctx)
	}
	for _, rec := range batch {
		m.stats.add(rec, m.opts.Period.Key(rec.Timestamp), m.opts.RecentEvents)
	}
	snap := m.stats.clone()
	m.mu.Unlock()

	return m.writeArtifacts(snap)
}

// Rebuild recomputes the aggregates by rescanning every period file and
// rewrites both artifacts. Reads run in parallel under a semaphore but the
// fold is sequential in period order, so the result is deterministic. Safe
// to run while events keep arriving; it reads a best-effort snapshot of the
// log.
func (m *Maintainer) Rebuild(ctx context.Context) error {
	files, err := m.store.ListPeriodFiles()
	if err != nil {
		return fmt.Errorf("list period files: %w", err)
	}

	results := make([][]*types.EventRecord, len(files))
	sem := semaphore.NewWeighted(m.opts.MaxConcurrentReads)
	g, gctx := errgroup.WithContext(ctx)
	for i, pf := range files {
		i, pf := i, pf
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			records, err := m.store.ReadPeriodFile(pf.Name)
			if err != nil {
				return fmt.Errorf("read %s: %w", pf.Name, err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fresh := newStats()
	for i, pf := range files {
		for _, rec := range results[i] {
			fresh.add(rec, pf.Key, m.opts.RecentEvents)
		}
	}

	m.mu.Lock()
	m.stats = fresh
	m.seeded = true
	snap := fresh.clone()
	m.mu.Unlock()

	return m.writeArtifacts(snap)
}

// Stats returns a snapshot of the current aggregates.
func (m *Maintainer) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.clone()
}

func (m *Maintainer) writeArtifacts(snap Stats) error {
	if err := m.store.EnsureDirectories(); err != nil {
		return err
	}
	path := m.DashboardPath()
	existing, err := os.ReadFile(path)
	var content string
	switch {
	case err == nil:
		content = replaceGenerated(string(existing), snap)
	case os.IsNotExist(err):
		content = initialDashboard(m.opts.VaultName, snap)
	default:
		return fmt.Errorf("read dashboard: %w", err)
	}
	if err := writeDashboard(path, content); err != nil {
		return err
	}
	return writeManifest(m.ManifestPath(), buildManifest(m.opts.VaultName, snap))
}
