package photoshelf

import (
	"context"
	"io"
	"time"
)

// MaxBatchDelete is the largest number of keys sent in one batch delete call.
// It matches the S3 DeleteObjects limit.
const MaxBatchDelete = 1000

// BlobStore defines the object store operations used for photo content.
// It knows nothing about ownership; keys are opaque.
//
// Implementations must be safe for concurrent use and idempotent with respect to key.
// Backend failures are returned as *BlobStoreError.
type BlobStore interface {
	// Put writes content under key, overwriting any existing object.
	//
	// Parameters:
	//   - size: content length in bytes, or -1 when unknown
	//   - contentType: stored with the object and returned by Get
	Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error

	// Get opens the object for reading. The caller must close the reader.
	//
	// Returns:
	//   - error: wraps ErrBlobNotFound if the key does not exist
	Get(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error)

	// Delete removes the object. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes keys in chunks of at most MaxBatchDelete, one batch call per
	// chunk. A failed chunk marks its keys as failed and does not stop later chunks.
	// Every input key ends up in exactly one of Deleted or Failed.
	DeleteMany(ctx context.Context, keys []string) BatchDeleteResult

	// Exists reports whether the object is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Presign returns a credential-free URL that fetches the object until ttl elapses.
	// It does not mutate any state.
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ChunkKeys splits keys into consecutive slices of at most size elements.
func ChunkKeys(keys []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchDelete
	}
	chunks := make([][]string, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		chunks = append(chunks, keys[start:end])
	}
	return chunks
}
