package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/blobstore/filesystem"
	"github.com/sagarc03/photoshelf/blobstore/memory"
	"github.com/sagarc03/photoshelf/blobstore/minio"
	"github.com/sagarc03/photoshelf/blobstore/s3"
	"github.com/sagarc03/photoshelf/config"
	"github.com/sagarc03/photoshelf/database"
	shelfhttp "github.com/sagarc03/photoshelf/http"
)

// backend bundles everything a command needs to run service operations.
type backend struct {
	repo    photoshelf.MetadataRepo
	blobs   photoshelf.BlobStore
	service *photoshelf.Service
	// server is set for blob stores whose presigned URLs are served by us
	server shelfhttp.BlobServer
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the metadata database and the blob store and builds the service.
func openBackend(ctx context.Context, cfg *config.Config, migrate bool) (*backend, error) {
	b := &backend{}

	repo, closeDB, err := database.Open(ctx, cfg.Database, migrate)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	b.repo = repo
	b.closers = append(b.closers, closeDB)
	slog.Info("connected to database", "type", cfg.Database.Type)

	if err := b.openBlobs(ctx, cfg.Storage); err != nil {
		b.Close()
		return nil, err
	}
	slog.Info("blob store ready", "backend", cfg.Storage.Backend)

	b.service, err = photoshelf.NewService(b.repo, b.blobs, cfg.ServiceConfig())
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}

	return b, nil
}

func (b *backend) openBlobs(ctx context.Context, cfg config.StorageConfig) error {
	switch cfg.Backend {
	case "s3":
		store, err := s3.New(ctx, s3.Config{
			Bucket:       cfg.Bucket,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			AccessKey:    cfg.AccessKey,
			SecretKey:    cfg.SecretKey,
			UsePathStyle: cfg.UsePathStyle,
		})
		if err != nil {
			return err
		}
		b.blobs = store

	case "minio":
		store, err := minio.New(minio.Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
		if err != nil {
			return err
		}
		if cfg.CreateBucket {
			if err := store.EnsureBucket(ctx, cfg.Region); err != nil {
				return err
			}
		}
		b.blobs = store

	case "filesystem":
		store, closeRoot, err := openFilesystem(cfg)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, closeRoot)
		b.blobs = store
		b.server = store

	case "memory":
		slog.Warn("memory blob store selected: photo content is lost on exit")
		b.blobs = memory.New()

	default:
		return fmt.Errorf("unsupported storage backend: %q", cfg.Backend)
	}

	return nil
}

func openFilesystem(cfg config.StorageConfig) (*filesystem.Store, func(), error) {
	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		return nil, nil, fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage root: %w", err)
	}
	closeRoot := func() { _ = root.Close() }

	secret := cfg.SigningSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			closeRoot()
			return nil, nil, err
		}
		slog.Warn("storage.signing_secret is not set: presigned URLs stop working after restart")
	}

	signer, err := filesystem.NewSigner(secret)
	if err != nil {
		closeRoot()
		return nil, nil, fmt.Errorf("create url signer: %w", err)
	}

	return filesystem.NewStore(root, signer, cfg.PublicURL), closeRoot, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate signing secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

var errNoJWTSecret = errors.New("auth.jwt_secret is required (env: PHOTOSHELF_AUTH_JWT_SECRET)")
