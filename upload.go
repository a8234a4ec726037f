package photoshelf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultContentType = "application/octet-stream"
	maxOriginalName    = 255
	maxMimeType        = 100
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

// UploadPhoto stores one file in an owned project.
//
// The blob is written first and the metadata row is inserted last, so an
// interrupted upload leaves at most an unreferenced blob and never a row
// without content. If the blob write fails no row is written.
func (s *Service) UploadPhoto(ctx context.Context, caller, projectID uuid.UUID, f UploadFile) (Photo, error) {
	project, err := s.guard.ResolveProject(ctx, caller, projectID)
	if err != nil {
		return Photo{}, fmt.Errorf("upload photo: %w", err)
	}

	return s.storePhoto(ctx, project, f)
}

// UploadPhotos stores several files concurrently. Each file is written and
// committed on its own: a failure is reported in that file's outcome and never
// cancels or unwinds the others. The returned slice is in input order.
//
// The error return is reserved for request-level failures: no files, too many
// files, or a project the caller does not own.
func (s *Service) UploadPhotos(ctx context.Context, caller, projectID uuid.UUID, files []UploadFile) ([]UploadOutcome, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("upload photos: %w: no files", ErrInvalidInput)
	}

	project, err := s.guard.ResolveProject(ctx, caller, projectID)
	if err != nil {
		return nil, fmt.Errorf("upload photos: %w", err)
	}

	outcomes := make([]UploadOutcome, len(files))

	var g errgroup.Group
	g.SetLimit(s.uploadConcurrency)
	for i, f := range files {
		g.Go(func() error {
			outcome := UploadOutcome{Index: i, Name: f.Name}
			ph, storeErr := s.storePhoto(ctx, project, f)
			if storeErr != nil {
				outcome.Err = storeErr
			} else {
				outcome.Photo = &ph
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	slog.Info("photos uploaded",
		"project_id", project.ID, "files", len(files), "stored", len(files)-failed, "failed", failed)

	return outcomes, nil
}

func (s *Service) storePhoto(ctx context.Context, project Project, f UploadFile) (Photo, error) {
	if err := ctx.Err(); err != nil {
		return Photo{}, fmt.Errorf("upload photo: %w", err)
	}

	if f.Content == nil {
		return Photo{}, fmt.Errorf("upload photo %q: %w: no content", f.Name, ErrInvalidInput)
	}
	if f.Size == 0 {
		return Photo{}, fmt.Errorf("upload photo %q: %w: empty file", f.Name, ErrInvalidInput)
	}
	if s.maxUploadSize > 0 && f.Size > s.maxUploadSize {
		return Photo{}, fmt.Errorf("upload photo %q: %w: file exceeds %d bytes", f.Name, ErrInvalidInput, s.maxUploadSize)
	}

	contentType := strings.TrimSpace(f.ContentType)
	if contentType == "" {
		contentType = defaultContentType
	}
	if len(contentType) > maxMimeType {
		return Photo{}, fmt.Errorf("upload photo %q: %w: content type too long", f.Name, ErrInvalidInput)
	}

	id := uuid.New()
	key := NewBlobKey(id, f.Name)
	originalName := truncateRunes(strings.TrimSpace(f.Name), maxOriginalName)
	if originalName == "" {
		originalName = strings.TrimPrefix(key, BlobKeyPrefix)
	}

	content := f.Content
	var counter *countingReader
	if f.Size < 0 {
		counter = &countingReader{r: f.Content, limit: s.maxUploadSize}
		content = counter
	}

	if err := s.blobs.Put(ctx, key, content, f.Size, contentType); err != nil {
		if counter != nil && counter.exceeded {
			return Photo{}, fmt.Errorf("upload photo %q: %w: file exceeds %d bytes", f.Name, ErrInvalidInput, s.maxUploadSize)
		}
		return Photo{}, fmt.Errorf("upload photo %q: %w", f.Name, err)
	}

	size := f.Size
	if counter != nil {
		size = counter.n
		if size == 0 {
			s.removeBlob(key, "empty upload")
			return Photo{}, fmt.Errorf("upload photo %q: %w: empty file", f.Name, ErrInvalidInput)
		}
	}

	ph, err := s.repo.CreatePhoto(ctx, NewPhoto{
		ID:           id,
		BlobKey:      key,
		OriginalName: originalName,
		MimeType:     contentType,
		SizeBytes:    size,
		AccountID:    project.AccountID,
		ProjectID:    project.ID,
	})
	if err != nil {
		s.removeBlob(key, "metadata insert failed")
		return Photo{}, fmt.Errorf("upload photo %q: %w", f.Name, err)
	}

	return ph, nil
}

// removeBlob deletes a blob that never got a metadata row. Failure leaves an orphan.
func (s *Service) removeBlob(key, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()

	if err := s.blobs.Delete(ctx, key); err != nil {
		slog.Warn("orphaned blob after failed upload", "key", key, "reason", reason, "err", err)
	}
}

type countingReader struct {
	r        io.Reader
	n        int64
	limit    int64
	exceeded bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		c.exceeded = true
		return n, errUploadTooLarge
	}
	return n, err
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
