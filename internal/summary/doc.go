// Package summary maintains the derived dashboard and manifest artifacts
// over the persisted event log.
package summary

import "github.com/user/vaultscribe/internal/types"

// Compile-time interface compliance check.
var _ types.SummaryUpdater = (*Maintainer)(nil)
