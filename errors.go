package photoshelf

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict is returned when a unique constraint would be violated
	ErrConflict = errors.New("conflict")
	// ErrIntegrityAnomaly is returned when a metadata row exists but its blob is missing.
	ErrIntegrityAnomaly = errors.New("integrity anomaly")
	// ErrBlobNotFound is returned by blob stores for a missing key.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrBlobStore matches every *BlobStoreError.
	ErrBlobStore = errors.New("blob store failure")
)

// BlobStoreError wraps a failure from the underlying object store.
type BlobStoreError struct {
	Op   string
	Keys []string
	Err  error
}

// NewBlobStoreError wraps err for op on keys. A nil err yields nil.
func NewBlobStoreError(op string, err error, keys ...string) error {
	if err == nil {
		return nil
	}
	return &BlobStoreError{Op: op, Keys: keys, Err: err}
}

func (e *BlobStoreError) Error() string {
	switch len(e.Keys) {
	case 0:
		return fmt.Sprintf("blob store %s: %v", e.Op, e.Err)
	case 1:
		return fmt.Sprintf("blob store %s %s: %v", e.Op, e.Keys[0], e.Err)
	default:
		const shown = 3
		keys := e.Keys
		suffix := ""
		if len(keys) > shown {
			suffix = fmt.Sprintf(" (+%d more)", len(keys)-shown)
			keys = keys[:shown]
		}
		return fmt.Sprintf("blob store %s [%s%s]: %v", e.Op, strings.Join(keys, ", "), suffix, e.Err)
	}
}

func (e *BlobStoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrBlobStore) match any BlobStoreError.
func (e *BlobStoreError) Is(target error) bool { return target == ErrBlobStore }
