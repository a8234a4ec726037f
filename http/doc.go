// Package http exposes the photoshelf service as a JSON API.
//
// Routes are mounted on a chi router. Every route except registration, login,
// health and presigned blob downloads requires an access token, read from the
// Authorization: Bearer header or the access_token cookie. The verified
// account id is stored in the request context and is the only identity the
// handlers pass to the service.
//
// Errors are written as {"error": code, "message": text}:
//
//	photoshelf.ErrNotFound         404 not_found
//	photoshelf.ErrInvalidInput     400 invalid_input
//	photoshelf.ErrUnauthorized     401 unauthorized
//	photoshelf.ErrConflict         409 conflict
//	photoshelf.ErrIntegrityAnomaly 410 content_missing
//	photoshelf.ErrBlobStore        502 blob_store_error
//
// A resource owned by another account is indistinguishable from a missing one.
//
// Uploads are multipart with one or more "files" parts. The response lists one
// outcome per file in request order:
//
//	{"items": [{"index": 0, "name": "a.jpg", "photo": {...}},
//	           {"index": 1, "name": "b.jpg", "error": {"error": "blob_store_error", ...}}]}
//
// The status is 201 when any file was stored, otherwise the status of the
// first failure.
//
// When configured with a BlobServer, GET /blobs/{key}?expires=&signature=
// serves presigned URLs issued by the filesystem blob store.
package http
