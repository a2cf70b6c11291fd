// internal/summary/bootstrap.go
package summary

import (
	"github.com/user/vaultscribe/internal/journal"
)

// Stage is how far the startup bootstrap sequence got.
type Stage int

const (
	Uninitialized Stage = iota
	DirectoryEnsured
	SummariesEnsured
	Ready
)

func (s Stage) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case DirectoryEnsured:
		return "directory-ensured"
	case SummariesEnsured:
		return "summaries-ensured"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// Bootstrap runs the startup sequence: ensure the log directories, then
// ensure both summary artifacts. It returns the furthest stage reached and
// the first error encountered; full success is SummariesEnsured, and the
// caller promotes to Ready once the daemon is running on top of it. A
// failure is a warning, not a fatal condition: below DirectoryEnsured
// logging cannot proceed at all, while at DirectoryEnsured logging works
// but incremental summary maintenance waits for a manual rebuild to repair
// the artifacts.
func Bootstrap(store *journal.Store, m *Maintainer) (Stage, error) {
	if err := store.EnsureDirectories(); err != nil {
		return Uninitialized, err
	}
	stage := DirectoryEnsured

	if err := m.EnsureDashboard(); err != nil {
		return stage, err
	}
	if err := m.EnsureManifest(); err != nil {
		return stage, err
	}
	return SummariesEnsured, nil
}
