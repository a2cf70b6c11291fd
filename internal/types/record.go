// internal/types/record.go
package types

import (
	"path/filepath"
	"time"
)

// TimestampLayout is the persisted timestamp format: ISO-8601 UTC with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// EventRecord is one immutable observed occurrence. Once handed to the
// engine a record is never mutated; duplicates are never coalesced by
// identity, though downstream consumers may deduplicate on ID equality.
type EventRecord struct {
	ID        EventID   `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventKind `json:"eventType"`
	FilePath  string    `json:"filePath"`
	FileName  string    `json:"fileName"`
	VaultName string    `json:"vaultName"`
	Hostname  string    `json:"hostname"`
	Metadata  Metadata  `json:"metadata"`
}

// NewRecord builds a record for the given kind and subject path with a fresh
// ID and the current time. The timestamp is truncated to milliseconds so
// that encoding and re-parsing yields the exact same instant. FileName is
// derived from the path; both are empty for non-file events.
func NewRecord(kind EventKind, path, vaultName, hostname string) *EventRecord {
	name := ""
	if path != "" {
		name = filepath.Base(path)
	}
	return &EventRecord{
		ID:        NewEventID(),
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Type:      kind,
		FilePath:  path,
		FileName:  name,
		VaultName: vaultName,
		Hostname:  hostname,
	}
}

// Equal compares two records field for field.
func (r *EventRecord) Equal(other *EventRecord) bool {
	return r.ID == other.ID &&
		r.Timestamp.Equal(other.Timestamp) &&
		r.Type == other.Type &&
		r.FilePath == other.FilePath &&
		r.FileName == other.FileName &&
		r.VaultName == other.VaultName &&
		r.Hostname == other.Hostname &&
		r.Metadata.Equal(other.Metadata)
}
