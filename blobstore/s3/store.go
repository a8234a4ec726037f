// Package s3 implements photoshelf.BlobStore on Amazon S3 or any S3-compatible
// service reachable through aws-sdk-go-v2.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/sagarc03/photoshelf"
)

// API is the subset of *s3.Client used by Store.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Presigner is the subset of *s3.PresignClient used by Store.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config holds connection settings. Empty credentials fall back to the default AWS chain.
type Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Store is a BlobStore backed by one S3 bucket.
type Store struct {
	api       API
	presigner Presigner
	bucket    string
	batchSize int
}

// New builds an S3 client from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("new s3 store: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new s3 store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewWithAPI(client, s3.NewPresignClient(client), cfg.Bucket), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api API, presigner Presigner, bucket string) *Store {
	return &Store{api: api, presigner: presigner, bucket: bucket, batchSize: photoshelf.MaxBatchDelete}
}

func (s *Store) Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error {
	// the SDK needs a seekable body of known length to sign the payload
	if _, seekable := content.(io.ReadSeeker); !seekable || size < 0 {
		data, err := io.ReadAll(content)
		if err != nil {
			return photoshelf.NewBlobStoreError("put", err, key)
		}
		content = bytes.NewReader(data)
		size = int64(len(data))
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          content,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		return photoshelf.NewBlobStoreError("put", err, key)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, photoshelf.BlobInfo, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("%w: %w", photoshelf.ErrBlobNotFound, err)
		}
		return nil, photoshelf.BlobInfo{}, photoshelf.NewBlobStoreError("get", err, key)
	}

	info := photoshelf.BlobInfo{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}
	return out.Body, info, nil
}

// Delete removes key. S3 reports success for missing keys; a NotFound error from a
// compatible service is treated the same way.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
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
	objects := make([]types.ObjectIdentifier, len(chunk))
	for i, k := range chunk {
		objects[i] = types.ObjectIdentifier{Key: aws.String(k)}
	}

	out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(false)},
	})
	if err != nil {
		slog.Warn("batch delete request failed",
			"err", photoshelf.NewBlobStoreError("delete_many", err, chunk...), "keys", len(chunk))
		return photoshelf.BatchDeleteResult{Failed: append([]string(nil), chunk...)}
	}

	failed := make(map[string]bool, len(out.Errors))
	for _, e := range out.Errors {
		if aws.ToString(e.Code) == "NoSuchKey" {
			continue
		}
		failed[aws.ToString(e.Key)] = true
		slog.Warn("batch delete key failed",
			"key", aws.ToString(e.Key), "code", aws.ToString(e.Code), "message", aws.ToString(e.Message))
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
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, photoshelf.NewBlobStoreError("exists", err, key)
	}
	return true, nil
}

func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", photoshelf.NewBlobStoreError("presign", err, key)
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
