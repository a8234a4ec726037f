// Package photoshelf stores photos for accounts, grouped into projects, and
// keeps the photo metadata and the stored content consistent.
//
// Photo metadata lives in a relational store (PostgreSQL or SQLite) and the
// bytes live in a blob store (S3, MinIO, the local filesystem or memory).
// Ownership is strict: an account owns its projects, a project owns its
// photos, and every photo records both owners.
//
// # Key Components
//
//   - Service: account, project and photo operations for an authenticated caller
//   - MetadataRepo: metadata persistence with cascading deletes inside a transaction
//   - BlobStore: content storage with batched deletes and presigned URLs
//   - Guard: resolves a project or photo only when the caller owns it
//   - Orchestrator: commits the metadata delete first, then cleans up blobs best-effort
//
// Lookups of something the caller does not own fail with ErrNotFound, the
// same as lookups of something that does not exist.
//
// # Example Usage
//
//	svc, err := photoshelf.NewService(repo, blobs, photoshelf.ServiceConfig{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	project, err := svc.CreateProject(ctx, accountID, "Holiday", nil)
//
//	photo, err := svc.UploadPhoto(ctx, accountID, project.ID, photoshelf.UploadFile{
//		Name:        "beach.jpg",
//		ContentType: "image/jpeg",
//		Size:        -1,
//		Content:     f,
//	})
//
//	report, err := svc.DeleteProject(ctx, accountID, project.ID)
//
// See the http package for the REST API, the database package for metadata
// backends and the blobstore packages for content backends.
package photoshelf
