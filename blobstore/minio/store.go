// Package minio implements photoshelf.BlobStore with the MinIO client, for
// self-hosted S3-compatible deployments.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sagarc03/photoshelf"
)

// API is the subset of *minio.Client used by Store.
type API interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
	RemoveObjects(ctx context.Context, bucket string, objects <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

type Config struct {
	Endpoint  string // host:port, without scheme
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type Store struct {
	api       API
	bucket    string
	batchSize int
}

func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("new minio store: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("new minio store: bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("new minio store: %w", err)
	}

	return NewWithAPI(client, cfg.Bucket), nil
}

func NewWithAPI(api API, bucket string) *Store {
	return &Store{api: api, bucket: bucket, batchSize: photoshelf.MaxBatchDelete}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return photoshelf.NewBlobStoreError("ensure_bucket", err)
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return photoshelf.NewBlobStoreError("ensure_bucket", err)
	}
	slog.Info("bucket created", "bucket", s.bucket)
	return nil
}

func (s *Store) Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error {
	_, err := s.api.PutObject(ctx, s.bucket, key, content, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return photoshelf.NewBlobStoreError("put", err, key)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, photoshelf.BlobInfo, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, photoshelf.BlobInfo{}, photoshelf.NewBlobStoreError("get", notFound(err), key)
	}

	// GetObject is lazy; Stat surfaces a missing key before any bytes are served
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, photoshelf.BlobInfo{}, photoshelf.NewBlobStoreError("get", notFound(err), key)
	}

	return obj, photoshelf.BlobInfo{Key: key, Size: info.Size, ContentType: info.ContentType}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return photoshelf.NewBlobStoreError("delete", err, key)
	}
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) photoshelf.BatchDeleteResult {
	var result photoshelf.BatchDeleteResult

	for _, chunk := range photoshelf.ChunkKeys(keys, s.batchSize) {
		result.Merge(s.deleteChunk(ctx, chunk))
	}

	slog.Info("batch delete", "bucket", s.bucket, "succeeded", len(result.Deleted), "failed", len(result.Failed))
	return result
}

func (s *Store) deleteChunk(ctx context.Context, chunk []string) photoshelf.BatchDeleteResult {
	objects := make(chan minio.ObjectInfo, len(chunk))
	for _, k := range chunk {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	failed := make(map[string]bool)
	for rerr := range s.api.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err == nil || isNoSuchKey(rerr.Err) {
			continue
		}
		failed[rerr.ObjectName] = true
		slog.Warn("batch delete key failed", "key", rerr.ObjectName, "err", rerr.Err)
	}

	var result photoshelf.BatchDeleteResult
	for _, k := range chunk {
		if failed[k] {
			result.Failed = append(result.Failed, k)
		} else {
			result.Deleted = append(result.Deleted, k)
		}
	}
	return result
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, photoshelf.NewBlobStoreError("exists", err, key)
	}
	return true, nil
}

func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.api.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", photoshelf.NewBlobStoreError("presign", err, key)
	}
	return u.String(), nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func notFound(err error) error {
	if isNoSuchKey(err) {
		return fmt.Errorf("%w: %w", photoshelf.ErrBlobNotFound, err)
	}
	return err
}
