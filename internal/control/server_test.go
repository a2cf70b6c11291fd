// internal/control/server_test.go
package control

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/vaultscribe/internal/engine"
	"github.com/user/vaultscribe/internal/journal"
	"github.com/user/vaultscribe/internal/summary"
	"github.com/user/vaultscribe/internal/types"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine, *journal.Store) {
	t.Helper()
	store := journal.NewStore(t.TempDir(), "ObsidianObserver", journal.Daily)
	maintainer := summary.NewMaintainer(store, summary.Options{VaultName: "test-vault"})
	if _, err := summary.Bootstrap(store, maintainer); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	eng := engine.New(store, maintainer, engine.Options{FlushThreshold: 100})
	return NewServer(eng, maintainer, store, summary.Ready), eng, store
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusReflectsEngine(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx := context.Background()
	eng.Append(types.NewRecord(types.KindCreated, "notes/a.md", "test-vault", "host"))
	eng.Append(types.NewRecord(types.KindModified, "notes/a.md", "test-vault", "host"))

	client := NewClient(strings.TrimPrefix(ts.URL, "http://"))
	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Stage != "ready" {
		t.Errorf("expected stage ready, got %q", status.Stage)
	}
	if !status.Enabled {
		t.Error("expected engine enabled")
	}
	if status.Pending != 2 {
		t.Errorf("expected 2 pending, got %d", status.Pending)
	}
}

func TestFlushWritesAndReportsCount(t *testing.T) {
	srv, eng, store := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx := context.Background()
	eng.Append(types.NewRecord(types.KindCreated, "notes/a.md", "test-vault", "host"))
	eng.Append(types.NewRecord(types.KindDeleted, "notes/b.md", "test-vault", "host"))

	client := NewClient(strings.TrimPrefix(ts.URL, "http://"))
	flushed, err := client.Flush(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flushed != 2 {
		t.Errorf("expected 2 flushed, got %d", flushed)
	}
	if eng.Pending() != 0 {
		t.Errorf("expected empty buffer, got %d pending", eng.Pending())
	}

	files, err := store.ListPeriodFiles()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 period file, got %d", len(files))
	}
}

func TestIngestExternalEvent(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	payload := map[string]any{
		"eventType": "opened",
		"filePath":  "notes/daily.md",
		"vaultName": "test-vault",
		"hostname":  "laptop",
	}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(ts.URL+"/events", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var ingest IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&ingest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ingest.ID == "" {
		t.Error("expected a generated event id")
	}
	if eng.Pending() != 1 {
		t.Errorf("expected 1 pending, got %d", eng.Pending())
	}
}

func TestIngestRejectsBadInput(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"unknown kind", `{"eventType":"exploded","filePath":"a.md"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/events", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestRebuildEndpoint(t *testing.T) {
	srv, eng, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx := context.Background()
	for _, path := range []string{"a.md", "b.md", "c.md"} {
		eng.Append(types.NewRecord(types.KindCreated, path, "test-vault", "host"))
	}
	if err := eng.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	client := NewClient(strings.TrimPrefix(ts.URL, "http://"))
	if err := client.Rebuild(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.TotalEvents != 3 {
		t.Errorf("expected 3 total events, got %d", status.TotalEvents)
	}
}

func TestClientAgainstDeadDaemon(t *testing.T) {
	client := NewClient("127.0.0.1:1")
	ctx := context.Background()
	if client.Healthy(ctx) {
		t.Error("expected unhealthy")
	}
	if _, err := client.Status(ctx); err == nil {
		t.Error("expected error from dead daemon")
	}
}
