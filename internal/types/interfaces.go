// internal/types/interfaces.go
package types

import (
	"context"
)

// LogStore is the durable append target for flushed batches.
type LogStore interface {
	EnsureDirectories() error
	Persist(ctx context.Context, batch []*EventRecord) error
	Retarget(vaultPath, eventsFolder string)
}

// SummaryUpdater folds freshly persisted batches into the derived summary
// artifacts. Update is an optimization; Rebuild is the correctness
// reference and must produce equivalent artifacts from the log alone.
type SummaryUpdater interface {
	Update(ctx context.Context, batch []*EventRecord) error
	Rebuild(ctx context.Context) error
}

// EventSink accepts records from event source adapters.
type EventSink interface {
	Append(record *EventRecord)
	LogEvent(ctx context.Context, record *EventRecord) error
}
