package photoshelf

import (
	"io"
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewAccount struct {
	Name         string
	Email        string
	PasswordHash string
}

type Project struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectSummary is a project with the number of photos it currently owns.
type ProjectSummary struct {
	Project
	PhotoCount int64 `json:"photo_count"`
}

type NewProject struct {
	AccountID   uuid.UUID
	Name        string
	Description *string
}

// ProjectUpdate holds a partial update. Nil fields are left unchanged.
type ProjectUpdate struct {
	Name        *string
	Description *string
}

func (u ProjectUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil
}

type Photo struct {
	ID           uuid.UUID `json:"id"`
	BlobKey      string    `json:"-"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	AccountID    uuid.UUID `json:"account_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewPhoto struct {
	ID           uuid.UUID
	BlobKey      string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	AccountID    uuid.UUID
	ProjectID    uuid.UUID
}

// Page selects a window of a newest-first list.
type Page struct {
	Limit  int
	Offset int
}

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// BatchDeleteResult partitions the keys passed to BlobStore.DeleteMany.
type BatchDeleteResult struct {
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

// Merge appends other's outcome to r.
func (r *BatchDeleteResult) Merge(other BatchDeleteResult) {
	r.Deleted = append(r.Deleted, other.Deleted...)
	r.Failed = append(r.Failed, other.Failed...)
}

// CleanupReport summarizes the blob cleanup that followed a committed delete.
type CleanupReport struct {
	Keys    int `json:"keys"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// UploadFile is one file of an upload request. Size may be -1 when unknown.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadOutcome is the per-item result of Service.UploadPhotos.
type UploadOutcome struct {
	Index int
	Name  string
	Photo *Photo
	Err   error
}
