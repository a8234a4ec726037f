package photoshelf

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultCleanupTimeout bounds blob cleanup that runs after a committed delete.
const DefaultCleanupTimeout = 30 * time.Second

// Orchestrator deletes photos, projects and accounts across both stores.
//
// The metadata delete always commits first. Blob deletion runs afterwards on a
// background context bounded by the cleanup timeout, so it is still attempted
// when the caller goes away. Blob failures are logged and counted in the
// returned CleanupReport; they never fail the call or undo the metadata delete.
// The worst outcome of a crash between the two steps is an orphaned blob.
type Orchestrator struct {
	repo           MetadataRepo
	blobs          BlobStore
	cleanupTimeout time.Duration
}

func NewOrchestrator(repo MetadataRepo, blobs BlobStore, cleanupTimeout time.Duration) *Orchestrator {
	if cleanupTimeout <= 0 {
		cleanupTimeout = DefaultCleanupTimeout
	}
	return &Orchestrator{
		repo:           repo,
		blobs:          blobs,
		cleanupTimeout: cleanupTimeout,
	}
}

// DeletePhoto removes a resolved photo.
func (o *Orchestrator) DeletePhoto(ctx context.Context, photo Photo) (CleanupReport, error) {
	if err := ctx.Err(); err != nil {
		return CleanupReport{}, fmt.Errorf("delete photo: %w", err)
	}

	blobKey := photo.BlobKey

	if err := o.repo.DeletePhoto(ctx, photo.AccountID, photo.ID); err != nil {
		return CleanupReport{}, fmt.Errorf("delete photo %s: %w", photo.ID, err)
	}

	report := CleanupReport{Keys: 1}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), o.cleanupTimeout)
	defer cancel()

	if err := o.blobs.Delete(cleanupCtx, blobKey); err != nil {
		report.Failed = 1
		slog.Warn("photo blob cleanup failed",
			"photo_id", photo.ID, "key", blobKey, "err", err)
		return report, nil
	}

	report.Deleted = 1
	slog.Debug("photo deleted", "photo_id", photo.ID, "key", blobKey)
	return report, nil
}

// DeleteProject removes a resolved project together with all of its photos.
func (o *Orchestrator) DeleteProject(ctx context.Context, project Project) (CleanupReport, error) {
	if err := ctx.Err(); err != nil {
		return CleanupReport{}, fmt.Errorf("delete project: %w", err)
	}

	keys, err := o.repo.DeleteProject(ctx, project.AccountID, project.ID)
	if err != nil {
		return CleanupReport{}, fmt.Errorf("delete project %s: %w", project.ID, err)
	}

	report := o.cleanup(keys)
	slog.Info("project deleted",
		"project_id", project.ID, "keys", report.Keys, "deleted", report.Deleted, "failed", report.Failed)
	return report, nil
}

// DeleteAccount removes an account with every project and photo it owns.
func (o *Orchestrator) DeleteAccount(ctx context.Context, accountID uuid.UUID) (CleanupReport, error) {
	if err := ctx.Err(); err != nil {
		return CleanupReport{}, fmt.Errorf("delete account: %w", err)
	}

	keys, err := o.repo.DeleteAccount(ctx, accountID)
	if err != nil {
		return CleanupReport{}, fmt.Errorf("delete account %s: %w", accountID, err)
	}

	report := o.cleanup(keys)
	slog.Info("account deleted",
		"account_id", accountID, "keys", report.Keys, "deleted", report.Deleted, "failed", report.Failed)
	return report, nil
}

// cleanup issues one batched blob delete for keys whose rows are already gone.
func (o *Orchestrator) cleanup(keys []string) CleanupReport {
	report := CleanupReport{Keys: len(keys)}
	if len(keys) == 0 {
		return report
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), o.cleanupTimeout)
	defer cancel()

	result := o.blobs.DeleteMany(cleanupCtx, keys)
	report.Deleted = len(result.Deleted)
	report.Failed = len(result.Failed)

	if report.Failed > 0 {
		slog.Warn("blob cleanup incomplete", "failed", report.Failed, "failed_keys", result.Failed)
	}

	return report
}
