// Package engine implements the buffer/flush core: it accepts event records
// from adapters, batches them in memory, and persists them to the journal
// with snapshot-then-clear semantics.
package engine

import "github.com/user/vaultscribe/internal/types"

// Compile-time interface compliance check.
var _ types.EventSink = (*Engine)(nil)
