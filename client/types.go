package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/photoshelf"
)

// DefaultBatchSize matches the server's default per-request file limit.
const DefaultBatchSize = 20

// Token is the result of a successful login.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UploadOptions configures an upload operation.
type UploadOptions struct {
	ProjectID   uuid.UUID
	LocalPath   string
	ContentType string // optional, detected from the extension if empty
	Recursive   bool
	BatchSize   int // files per request, DefaultBatchSize if zero
}

// UploadResult is the outcome for one local file.
type UploadResult struct {
	LocalPath string            `json:"local_path"`
	Photo     *photoshelf.Photo `json:"photo,omitempty"`
	Err       error             `json:"-"`
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	ProjectID uuid.UUID
	PhotoID   uuid.UUID
	LocalPath string // empty = server-provided file name, "-" = stdout
}

// DownloadResult describes a downloaded photo.
type DownloadResult struct {
	PhotoID     uuid.UUID `json:"photo_id"`
	LocalPath   string    `json:"local_path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size_bytes"`
}

// DeleteResult is the outcome of deleting one photo.
type DeleteResult struct {
	PhotoID uuid.UUID                 `json:"photo_id"`
	Report  *photoshelf.CleanupReport `json:"report,omitempty"`
	Err     error                     `json:"-"`
}

// ListOptions selects a page of a newest-first list.
type ListOptions struct {
	Limit  int
	Offset int
	All    bool // auto-paginate through all results
}

// PresignedURL is a time-limited direct link to a photo's content.
type PresignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type uploadItem struct {
	Index int               `json:"index"`
	Name  string            `json:"name"`
	Photo *photoshelf.Photo `json:"photo,omitempty"`
	Error *errorBody        `json:"error,omitempty"`
}

// HasUploadErrors reports whether any upload failed.
func HasUploadErrors(results []UploadResult) bool {
	for i := range results {
		if results[i].Err != nil {
			return true
		}
	}
	return false
}

// HasDeleteErrors reports whether any delete failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for i := range results {
		if results[i].Err != nil {
			return true
		}
	}
	return false
}
