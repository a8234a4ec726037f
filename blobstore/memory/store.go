// Package memory provides an in-process blob store for tests and local runs.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/sagarc03/photoshelf"
)

// ErrInjected is the failure returned for keys registered with FailOn.
var ErrInjected = errors.New("injected failure")

type object struct {
	data        []byte
	contentType string
}

// Store keeps blobs in a map. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	failing map[string]map[string]bool // op -> key -> fail

	batchCalls [][]string
	batchSize  int
}

func New() *Store {
	return &Store{
		objects:   make(map[string]object),
		failing:   make(map[string]map[string]bool),
		batchSize: photoshelf.MaxBatchDelete,
	}
}

// FailOn makes op ("put", "get", "delete") fail for key until cleared with Reset.
func (s *Store) FailOn(op, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[op] == nil {
		s.failing[op] = make(map[string]bool)
	}
	s.failing[op][key] = true
}

// Reset clears injected failures and recorded batch calls.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = make(map[string]map[string]bool)
	s.batchCalls = nil
}

func (s *Store) shouldFail(op, key string) bool {
	return s.failing[op][key]
}

func (s *Store) Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return photoshelf.NewBlobStoreError("put", err, key)
	}

	s.mu.RLock()
	fail := s.shouldFail("put", key)
	s.mu.RUnlock()
	if fail {
		return photoshelf.NewBlobStoreError("put", ErrInjected, key)
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return photoshelf.NewBlobStoreError("put", err, key)
	}
	if size >= 0 && int64(len(data)) != size {
		return photoshelf.NewBlobStoreError("put", fmt.Errorf("size mismatch: declared %d, read %d", size, len(data)), key)
	}

	s.mu.Lock()
	s.objects[key] = object{data: data, contentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, photoshelf.BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, photoshelf.BlobInfo{}, photoshelf.NewBlobStoreError("get", err, key)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.shouldFail("get", key) {
		return nil, photoshelf.BlobInfo{}, photoshelf.NewBlobStoreError("get", ErrInjected, key)
	}

	obj, ok := s.objects[key]
	if !ok {
		return nil, photoshelf.BlobInfo{}, photoshelf.NewBlobStoreError("get", photoshelf.ErrBlobNotFound, key)
	}

	info := photoshelf.BlobInfo{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType}
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return photoshelf.NewBlobStoreError("delete", err, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shouldFail("delete", key) {
		return photoshelf.NewBlobStoreError("delete", ErrInjected, key)
	}
	delete(s.objects, key)
	return nil
}

// DeleteMany deletes in chunks; a chunk containing a failing key fails as a whole,
// mirroring a rejected batch request.
func (s *Store) DeleteMany(ctx context.Context, keys []string) photoshelf.BatchDeleteResult {
	var result photoshelf.BatchDeleteResult

	for _, chunk := range photoshelf.ChunkKeys(keys, s.batchSize) {
		s.mu.Lock()
		s.batchCalls = append(s.batchCalls, append([]string(nil), chunk...))

		chunkFails := ctx.Err() != nil
		for _, k := range chunk {
			if s.shouldFail("delete", k) {
				chunkFails = true
				break
			}
		}
		if !chunkFails {
			for _, k := range chunk {
				delete(s.objects, k)
			}
		}
		s.mu.Unlock()

		if chunkFails {
			result.Merge(photoshelf.BatchDeleteResult{Failed: chunk})
			continue
		}
		result.Merge(photoshelf.BatchDeleteResult{Deleted: chunk})
	}

	return result
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, photoshelf.NewBlobStoreError("exists", err, key)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Presign returns a memory:// URL. It is only meaningful to tests.
func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", photoshelf.NewBlobStoreError("presign", err, key)
	}
	u := url.URL{
		Scheme:   "memory",
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {time.Now().Add(ttl).UTC().Format(time.RFC3339)}}.Encode(),
	}
	return u.String(), nil
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is stored.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// BatchCalls returns the key chunks passed to each batch delete call so far.
func (s *Store) BatchCalls() [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]string, len(s.batchCalls))
	copy(out, s.batchCalls)
	return out
}
