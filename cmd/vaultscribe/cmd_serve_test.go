// cmd/vaultscribe/cmd_serve_test.go
package main

import (
	"syscall"
	"testing"

	"github.com/user/vaultscribe/internal/config"
	"github.com/user/vaultscribe/internal/journal"
	"github.com/user/vaultscribe/internal/types"
)

func TestQuitRecordCarriesSignal(t *testing.T) {
	rec := quitRecord("vault", "host", syscall.SIGTERM)

	if rec.Type != types.KindApplicationQuit {
		t.Errorf("expected %s, got %s", types.KindApplicationQuit, rec.Type)
	}
	if rec.Metadata.QuitMethod != syscall.SIGTERM.String() {
		t.Errorf("expected quit method %q, got %q", syscall.SIGTERM.String(), rec.Metadata.QuitMethod)
	}
	if rec.VaultName != "vault" || rec.Hostname != "host" {
		t.Errorf("unexpected record identity: %s @ %s", rec.VaultName, rec.Hostname)
	}
	if rec.ID == "" || rec.Timestamp.IsZero() {
		t.Error("quit record missing ID or timestamp")
	}

	if got := quitRecord("vault", "host", syscall.SIGINT).Metadata.QuitMethod; got != syscall.SIGINT.String() {
		t.Errorf("expected quit method %q, got %q", syscall.SIGINT.String(), got)
	}
}

func TestPeriodFromConfig(t *testing.T) {
	if got := periodFromConfig(&config.Config{Period: "monthly"}); got != journal.Monthly {
		t.Errorf("expected monthly, got %v", got)
	}
	if got := periodFromConfig(&config.Config{Period: "daily"}); got != journal.Daily {
		t.Errorf("expected daily, got %v", got)
	}
	if got := periodFromConfig(&config.Config{}); got != journal.Daily {
		t.Errorf("expected daily default, got %v", got)
	}
}
