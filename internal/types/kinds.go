// internal/types/kinds.go
package types

// EventKind is the closed set of observed occurrence kinds.
type EventKind string

const (
	KindCreated         EventKind = "created"
	KindModified        EventKind = "modified"
	KindRenamed         EventKind = "renamed"
	KindDeleted         EventKind = "deleted"
	KindOpened          EventKind = "opened"
	KindPluginLifecycle EventKind = "plugin-lifecycle"
	KindApplicationQuit EventKind = "application-quit"
)

var allKinds = map[EventKind]bool{
	KindCreated:         true,
	KindModified:        true,
	KindRenamed:         true,
	KindDeleted:         true,
	KindOpened:          true,
	KindPluginLifecycle: true,
	KindApplicationQuit: true,
}

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	return allKinds[k]
}

// HighPriority reports whether events of this kind should be persisted
// immediately rather than waiting for the next scheduled flush. Quit and
// lifecycle events may be the last chance to write before the host exits.
func (k EventKind) HighPriority() bool {
	return k == KindApplicationQuit || k == KindPluginLifecycle
}
