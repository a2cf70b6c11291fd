// internal/engine/engine.go
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/vaultscribe/internal/types"
)

// Options configures the flush policy.
type Options struct {
	// FlushThreshold is the buffer size that forces a flush on the next
	// LogEvent. Zero means 25.
	FlushThreshold int
	// FlushInterval is the age since the last successful flush that forces
	// a flush on the next LogEvent. Zero means one minute.
	FlushInterval time.Duration
}

// Engine buffers incoming event records and persists them in batches. The
// buffer is owned exclusively by the engine: records enter through Append or
// LogEvent and leave only when a persist succeeds. Growth is unbounded;
// bounding it is a deliberate non-feature, the store is expected to come
// back before memory does.
type Engine struct {
	store   types.LogStore
	updater types.SummaryUpdater
	opts    Options

	mu        sync.Mutex // guards buf and lastFlush
	buf       []*types.EventRecord
	lastFlush time.Time

	// flushMu serializes flushes so two callers cannot persist overlapping
	// snapshots of the buffer.
	flushMu sync.Mutex

	enabled atomic.Bool
	dropped atomic.Int64
}

// New creates an Engine flushing to the given store, feeding each persisted
// batch to the updater. The updater may be nil.
func New(store types.LogStore, updater types.SummaryUpdater, opts Options) *Engine {
	if opts.FlushThreshold <= 0 {
		opts.FlushThreshold = 25
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Minute
	}
	e := &Engine{
		store:     store,
		updater:   updater,
		opts:      opts,
		lastFlush: time.Now(),
	}
	e.enabled.Store(true)
	return e
}

// Append adds the record to the tail of the buffer. It never blocks on I/O
// and never fails; when the engine is disabled the record is counted as
// dropped instead.
func (e *Engine) Append(rec *types.EventRecord) {
	if !e.enabled.Load() {
		e.dropped.Add(1)
		return
	}
	e.mu.Lock()
	e.buf = append(e.buf, rec)
	e.mu.Unlock()
}

// LogEvent appends the record and then applies the flush policy: an
// immediate flush for high-priority kinds, a full buffer, or a stale one.
// A policy-triggered flush failure is returned to the caller, but the
// record itself is already safely buffered either way.
func (e *Engine) LogEvent(ctx context.Context, rec *types.EventRecord) error {
	if !e.enabled.Load() {
		e.dropped.Add(1)
		return nil
	}

	e.mu.Lock()
	e.buf = append(e.buf, rec)
	shouldFlush := rec.Type.HighPriority() ||
		len(e.buf) >= e.opts.FlushThreshold ||
		time.Since(e.lastFlush) >= e.opts.FlushInterval
	e.mu.Unlock()

	if !shouldFlush {
		return nil
	}
	return e.Flush(ctx)
}

// Flush persists the current buffer contents as one batch and clears them
// on success. The discipline is snapshot-then-clear: the buffer is
// snapshotted under the lock, persisted outside it, and only the snapshot's
// prefix is removed afterwards, so records appended mid-persist stay
// buffered for the next flush. On persist failure the buffer is left
// untouched and a *StorageError is returned; the engine never retries on
// its own.
func (e *Engine) Flush(ctx context.Context) error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()
	snapshot := append([]*types.EventRecord(nil), e.buf...)
	e.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	if err := e.store.Persist(ctx, snapshot); err != nil {
		return &StorageError{Op: "flush", Err: err}
	}

	e.mu.Lock()
	e.buf = append([]*types.EventRecord(nil), e.buf[len(snapshot):]...)
	e.lastFlush = time.Now()
	e.mu.Unlock()

	if e.updater != nil {
		if err := e.updater.Update(ctx, snapshot); err != nil {
			// Summaries are a derived view; a rebuild repairs them later.
			slog.Warn("summary update failed", "batch", len(snapshot), "error", err)
		}
	}
	return nil
}

// UpdateConfig re-targets future flushes at a new log root. Buffered
// records survive the move; the next flush writes them under the new root.
func (e *Engine) UpdateConfig(vaultPath, eventsFolder string) {
	e.store.Retarget(vaultPath, eventsFolder)
}

// Close performs one best-effort final flush with no retry. On failure the
// session's buffered events are gone and a *DataLossError says how many.
func (e *Engine) Close(ctx context.Context) error {
	if err := e.Flush(ctx); err != nil {
		return &DataLossError{Lost: e.Pending(), Err: err}
	}
	return nil
}

// Pending returns the number of buffered records awaiting persistence.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buf)
}

// Dropped returns the number of records discarded while disabled.
func (e *Engine) Dropped() int64 {
	return e.dropped.Load()
}

// SetEnabled switches the degraded mode: while disabled, incoming records
// are counted and dropped instead of buffered.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

// Enabled reports whether the engine is accepting records.
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}
