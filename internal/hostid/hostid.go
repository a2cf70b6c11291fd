// Package hostid resolves a best-effort host identity for event records.
// Resolution never fails: each provider in the chain is tried in order and
// the first non-empty result wins, ending in a random identifier.
package hostid

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Provider returns a candidate host identity, or "" to pass to the next one.
type Provider func() string

// Chain returns the default provider chain: OS hostname, then environment,
// then an identity derived from the vault path, then a random identifier.
func Chain(vaultPath string) []Provider {
	return []Provider{
		FromOS,
		FromEnv,
		FromVault(vaultPath),
		Random,
	}
}

// Resolve runs the default chain for the given vault path. It always
// returns a non-empty identity.
func Resolve(vaultPath string) string {
	return ResolveWith(Chain(vaultPath))
}

// ResolveWith returns the first non-empty result from the given providers,
// falling back to a random identifier if every provider declines.
func ResolveWith(providers []Provider) string {
	for _, p := range providers {
		if id := p(); id != "" {
			return id
		}
	}
	return Random()
}

func FromOS() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}

func FromEnv() string {
	for _, key := range []string{"HOSTNAME", "COMPUTERNAME"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// FromVault derives an identity from the vault's directory name.
func FromVault(vaultPath string) Provider {
	return func() string {
		if vaultPath == "" {
			return ""
		}
		base := filepath.Base(filepath.Clean(vaultPath))
		if base == "." || base == string(filepath.Separator) {
			return ""
		}
		return "vault-" + base
	}
}

func Random() string {
	return "host-" + uuid.New().String()[:8]
}
