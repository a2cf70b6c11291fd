// Package journal provides the durable, append-oriented log store backed by
// per-period markdown table files.
package journal

import "github.com/user/vaultscribe/internal/types"

// Compile-time interface compliance check.
var _ types.LogStore = (*Store)(nil)
