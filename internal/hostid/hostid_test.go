// internal/hostid/hostid_test.go
package hostid

import (
	"strings"
	"testing"
)

func TestResolveWithOrder(t *testing.T) {
	calls := []string{}
	providers := []Provider{
		func() string { calls = append(calls, "first"); return "" },
		func() string { calls = append(calls, "second"); return "winner" },
		func() string { calls = append(calls, "third"); return "never" },
	}

	got := ResolveWith(providers)
	if got != "winner" {
		t.Errorf("expected winner, got %q", got)
	}
	if len(calls) != 2 {
		t.Errorf("expected later providers to be skipped, called: %v", calls)
	}
}

func TestResolveWithAllEmpty(t *testing.T) {
	providers := []Provider{
		func() string { return "" },
		func() string { return "" },
	}
	got := ResolveWith(providers)
	if got == "" {
		t.Fatal("resolution must never return empty")
	}
	if !strings.HasPrefix(got, "host-") {
		t.Errorf("expected random fallback, got %q", got)
	}
}

func TestResolveNeverEmpty(t *testing.T) {
	if Resolve("/some/vault") == "" {
		t.Fatal("Resolve returned empty identity")
	}
	if Resolve("") == "" {
		t.Fatal("Resolve with no vault returned empty identity")
	}
}

func TestFromVault(t *testing.T) {
	if got := FromVault("/home/me/notes")(); got != "vault-notes" {
		t.Errorf("expected vault-notes, got %q", got)
	}
	if got := FromVault("")(); got != "" {
		t.Errorf("expected empty for no vault, got %q", got)
	}
}
