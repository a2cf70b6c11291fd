// internal/control/server.go
package control

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/vaultscribe/internal/engine"
	"github.com/user/vaultscribe/internal/journal"
	"github.com/user/vaultscribe/internal/summary"
	"github.com/user/vaultscribe/internal/types"
)

// Server is the localhost control surface of a running daemon: status,
// forced flush, summary rebuild, and ingestion of externally observed
// events (kinds the file watcher cannot see, like opened).
type Server struct {
	engine     *engine.Engine
	maintainer *summary.Maintainer
	store      *journal.Store
	mux        *http.ServeMux

	mu    sync.Mutex
	stage summary.Stage

	// notify, when set, receives a notice after each successful manual
	// operation.
	notify func(message string)
}

// NewServer creates a control Server over the daemon's core components.
func NewServer(eng *engine.Engine, maintainer *summary.Maintainer, store *journal.Store, stage summary.Stage) *Server {
	s := &Server{
		engine:     eng,
		maintainer: maintainer,
		store:      store,
		stage:      stage,
		mux:        http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("POST /flush", s.handleFlush)
	s.mux.HandleFunc("POST /rebuild", s.handleRebuild)
	s.mux.HandleFunc("POST /events", s.handleIngest)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// SetNotifier installs the callback invoked after successful manual flush
// and rebuild operations.
func (s *Server) SetNotifier(fn func(message string)) {
	s.notify = fn
}

func (s *Server) notice(message string) {
	if s.notify != nil {
		s.notify(message)
	}
}

// Stage returns the current bootstrap stage.
func (s *Server) Stage() summary.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// SetStage records the daemon's current bootstrap stage, reported by
// GET /status. The daemon updates it after reload-time re-bootstraps.
func (s *Server) SetStage(stage summary.Stage) {
	s.mu.Lock()
	s.stage = stage
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// StatusResponse is the JSON body of GET /status.
type StatusResponse struct {
	Stage        string `json:"stage"`
	Enabled      bool   `json:"enabled"`
	Pending      int    `json:"pending"`
	Dropped      int64  `json:"dropped"`
	TotalEvents  int    `json:"total_events"`
	PeriodFiles  int    `json:"period_files"`
	Root         string `json:"root"`
	LastActivity string `json:"last_activity,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.maintainer.Stats()
	resp := StatusResponse{
		Stage:       s.Stage().String(),
		Enabled:     s.engine.Enabled(),
		Pending:     s.engine.Pending(),
		Dropped:     s.engine.Dropped(),
		TotalEvents: stats.Total,
		PeriodFiles: len(stats.Periods),
		Root:        s.store.Root(),
	}
	if !stats.Last.IsZero() {
		resp.LastActivity = stats.Last.Format(types.TimestampLayout)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// FlushResponse is the JSON body of POST /flush.
type FlushResponse struct {
	Flushed int `json:"flushed"`
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	pending := s.engine.Pending()
	if err := s.engine.Flush(r.Context()); err != nil {
		slog.Error("manual flush failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if pending > 0 {
		s.notice(fmt.Sprintf("Manual flush wrote %d event(s).", pending))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(FlushResponse{Flushed: pending})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	// A degraded daemon gets another chance at its bootstrap before the
	// rescan; success re-enables logging.
	if s.Stage() != summary.Ready {
		stage, err := summary.Bootstrap(s.store, s.maintainer)
		s.SetStage(stage)
		if err != nil {
			slog.Error("re-bootstrap failed", "stage", stage, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "stage": stage.String()})
			return
		}
		s.SetStage(summary.Ready)
		s.engine.SetEnabled(true)
	}

	if err := s.maintainer.Rebuild(r.Context()); err != nil {
		slog.Error("manual rebuild failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	stats := s.maintainer.Stats()
	s.notice(fmt.Sprintf("Summary rebuild complete: %d event(s).", stats.Total))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "total_events": stats.Total})
}

// IngestResponse is the JSON body of POST /events.
type IngestResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var rec types.EventRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if !rec.Type.Valid() {
		http.Error(w, `{"error":"unknown eventType"}`, http.StatusBadRequest)
		return
	}
	if rec.ID == "" {
		rec.ID = types.NewEventID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC().Truncate(time.Millisecond)
	}
	if rec.FileName == "" && rec.FilePath != "" {
		rec.FileName = filepath.Base(rec.FilePath)
	}

	resp := IngestResponse{ID: string(rec.ID), Status: "ok"}
	if err := s.engine.LogEvent(r.Context(), &rec); err != nil {
		// The record is buffered either way; only a policy flush failed.
		resp.Status = "buffered"
		resp.Warning = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
