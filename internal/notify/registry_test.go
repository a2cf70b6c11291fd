// internal/notify/registry_test.go
package notify

import (
	"bytes"
	"strings"
	"testing"
)

func TestNotifyRoutesByPrefix(t *testing.T) {
	r := NewRegistry()

	var consoleGot, telegramGot string
	r.Register("console:", func(target, message string) error {
		consoleGot = target + "/" + message
		return nil
	})
	r.Register("telegram:", func(target, message string) error {
		telegramGot = target + "/" + message
		return nil
	})

	if err := r.Notify("console:ops", "flushed"); err != nil {
		t.Fatal(err)
	}
	if consoleGot != "console:ops/flushed" {
		t.Errorf("console handler got %q", consoleGot)
	}
	if telegramGot != "" {
		t.Errorf("telegram handler should not have fired, got %q", telegramGot)
	}

	if err := r.Notify("telegram:alerts", "flush failing"); err != nil {
		t.Fatal(err)
	}
	if telegramGot != "telegram:alerts/flush failing" {
		t.Errorf("telegram handler got %q", telegramGot)
	}
}

func TestNotifyUnknownPrefix(t *testing.T) {
	r := NewRegistry()
	r.Register("console:", func(_, _ string) error { return nil })

	err := r.Notify("pager:oncall", "help")
	if err == nil {
		t.Fatal("expected error for unknown prefix")
	}
	if !strings.Contains(err.Error(), "pager:oncall") {
		t.Errorf("error should name the target: %v", err)
	}
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	h := ConsoleHandler(&buf)
	if err := h("console:ops", "rebuild complete"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "rebuild complete\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short"); len(got) != 1 || got[0] != "short" {
		t.Errorf("unexpected split: %v", got)
	}

	long := strings.Repeat("x", maxTelegramMessage+10)
	got := splitMessage(long)
	if len(got) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(got))
	}
	if len(got[0]) != maxTelegramMessage || len(got[1]) != 10 {
		t.Errorf("unexpected part lengths: %d, %d", len(got[0]), len(got[1]))
	}
}
