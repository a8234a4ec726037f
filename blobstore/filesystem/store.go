// Package filesystem provides a local-disk blob store for single-node
// deployments and development. Writes are atomic (temp file plus rename) and
// presigned URLs are HMAC-signed links served back through the HTTP API.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/photoshelf"
)

var errSizeMismatch = errors.New("size mismatch")

// Store keeps blobs as files under a sandboxed root directory.
type Store struct {
	root      *os.Root
	signer    *Signer
	baseURL   string
	batchSize int
}

// NewStore creates a Store on root. Presigned URLs are built as
// baseURL + BlobPathPrefix + key and signed with signer.
func NewStore(root *os.Root, signer *Signer, baseURL string) *Store {
	return &Store{
		root:      root,
		signer:    signer,
		baseURL:   baseURL,
		batchSize: photoshelf.MaxBatchDelete,
	}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put writes content to key through a temp file so readers never observe a
// partial blob. A known size that does not match the bytes read is an error.
func (s *Store) Put(ctx context.Context, key string, content io.Reader, size int64, _ string) error {
	if err := s.write(ctx, key, content, size); err != nil {
		return photoshelf.NewBlobStoreError("put", err, key)
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, content io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpFile := tmpFileName()
	t, err := s.root.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("could not open temp file: %w", err)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	written, err := io.Copy(t, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return fmt.Errorf("could not copy contents: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("%w: expected %d bytes, got %d", errSizeMismatch, size, written)
	}

	if err := t.Sync(); err != nil {
		return fmt.Errorf("could not sync written file: %w", err)
	}

	if dir := filepath.Dir(key); dir != "." {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if err := s.root.Rename(tmpFile, key); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	success = true
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, photoshelf.BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, photoshelf.BlobInfo{}, photoshelf.NewBlobStoreError("get", err, key)
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %w", photoshelf.ErrBlobNotFound, err)
		}
		return nil, photoshelf.BlobInfo{}, photoshelf.NewBlobStoreError("get", err, key)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, photoshelf.BlobInfo{}, photoshelf.NewBlobStoreError("get", err, key)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, photoshelf.BlobInfo{}, photoshelf.NewBlobStoreError("get", photoshelf.ErrBlobNotFound, key)
	}

	return f, photoshelf.BlobInfo{Key: key, Size: st.Size(), ContentType: detectContentType(key)}, nil
}

// Delete removes key. A missing file is success.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return photoshelf.NewBlobStoreError("delete", err, key)
	}

	if err := s.root.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return photoshelf.NewBlobStoreError("delete", err, key)
	}
	return nil
}

// DeleteMany removes keys file by file, grouped in batches like the remote
// backends so that logging and accounting stay comparable.
func (s *Store) DeleteMany(ctx context.Context, keys []string) photoshelf.BatchDeleteResult {
	var result photoshelf.BatchDeleteResult

	for _, chunk := range photoshelf.ChunkKeys(keys, s.batchSize) {
		for _, k := range chunk {
			if err := s.Delete(ctx, k); err != nil {
				slog.Warn("batch delete key failed", "key", k, "err", err)
				result.Failed = append(result.Failed, k)
				continue
			}
			result.Deleted = append(result.Deleted, k)
		}
	}

	slog.Info("batch delete", "backend", "filesystem", "succeeded", len(result.Deleted), "failed", len(result.Failed))
	return result
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, photoshelf.NewBlobStoreError("exists", err, key)
	}

	st, err := s.root.Stat(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, photoshelf.NewBlobStoreError("exists", err, key)
	}
	return !st.IsDir(), nil
}

// Presign returns a signed link to the blob endpoint of this server.
func (s *Store) Presign(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.signer == nil {
		return "", photoshelf.NewBlobStoreError("presign", errors.New("no signer configured"), key)
	}
	u, err := s.signer.SignURL(s.baseURL, key, ttl)
	if err != nil {
		return "", photoshelf.NewBlobStoreError("presign", err, key)
	}
	return u, nil
}

// Verify checks a presigned request for key. It is the counterpart of Presign.
func (s *Store) Verify(key, expires, signature string) error {
	if s.signer == nil {
		return fmt.Errorf("no signer configured: %w", photoshelf.ErrUnauthorized)
	}
	return s.signer.Verify(key, expires, signature)
}

func detectContentType(path string) string {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
