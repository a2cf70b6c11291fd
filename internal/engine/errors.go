// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// StorageError reports a failed persist. The buffer was preserved, so the
// failure is retryable: the next explicit or scheduled flush will attempt
// the same records again.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DataLossError reports that buffered records could not be persisted and
// will not be retried. Only the final teardown flush can produce it.
type DataLossError struct {
	Lost int
	Err  error
}

func (e *DataLossError) Error() string {
	return fmt.Sprintf("%d buffered events lost: %v", e.Lost, e.Err)
}

func (e *DataLossError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error is a preserved-buffer storage
// failure rather than definitive data loss.
func IsRetryable(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
