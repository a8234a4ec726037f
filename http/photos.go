package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/photoshelf"
)

const (
	// DefaultMaxFilesPerUpload bounds the number of files in one multipart upload.
	DefaultMaxFilesPerUpload = 20
	// UploadField is the multipart field carrying the files.
	UploadField = "files"

	uploadMemory      = 32 << 20
	multipartOverhead = 1 << 20
)

type uploadItem struct {
	Index int               `json:"index"`
	Name  string            `json:"name"`
	Photo *photoshelf.Photo `json:"photo,omitempty"`
	Error *ErrorResponse    `json:"error,omitempty"`
}

type urlResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func photoScope(r *http.Request) (caller, projectID, photoID uuid.UUID, err error) {
	caller, projectID, err = projectScope(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	photoID, err = pathID(r, "photoID")
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	return caller, projectID, photoID, nil
}

// handleUpload accepts a multipart body with one or more "files" parts. Each file
// gets its own outcome; the response is 201 when at least one file was stored.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	caller, projectID, err := projectScope(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	if h.config.MaxUploadSize > 0 {
		limit := h.config.MaxUploadSize*int64(h.config.MaxFilesPerUpload) + multipartOverhead
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: malformed multipart body: %v", photoshelf.ErrInvalidInput, err)
		}
		HandleError(w, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[UploadField]
	if len(headers) == 0 {
		HandleError(w, fmt.Errorf("%w: no files in field %q", photoshelf.ErrInvalidInput, UploadField))
		return
	}
	if len(headers) > h.config.MaxFilesPerUpload {
		HandleError(w, fmt.Errorf("%w: at most %d files per upload", photoshelf.ErrInvalidInput, h.config.MaxFilesPerUpload))
		return
	}

	files, closeAll, err := openParts(headers)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer closeAll()

	outcomes, err := h.service.UploadPhotos(r.Context(), caller, projectID, files)
	if err != nil {
		HandleError(w, err)
		return
	}

	items := make([]uploadItem, len(outcomes))
	stored := 0
	var firstErr error
	for i, o := range outcomes {
		items[i] = uploadItem{Index: o.Index, Name: o.Name, Photo: o.Photo}
		if o.Err == nil {
			stored++
			continue
		}
		_, body := errorStatus(o.Err)
		items[i].Error = &body
		if firstErr == nil {
			firstErr = o.Err
		}
		slog.Warn("photo upload failed", "project_id", projectID, "name", o.Name, "error", o.Err)
	}

	status := http.StatusCreated
	if stored == 0 && firstErr != nil {
		status, _ = errorStatus(firstErr)
	}

	_ = WriteJSON(w, status, itemsResponse[uploadItem]{Items: items})
}

func openParts(headers []*multipart.FileHeader) ([]photoshelf.UploadFile, func(), error) {
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	files := make([]photoshelf.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open upload part %q: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, photoshelf.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}

	return files, closeAll, nil
}

func (h *Handler) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	caller, projectID, err := projectScope(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	items, err := h.service.ListPhotos(r.Context(), caller, projectID, page)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, itemsResponse[photoshelf.Photo]{Items: items})
}

func (h *Handler) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	caller, projectID, photoID, err := photoScope(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	photo, err := h.service.GetPhoto(r.Context(), caller, projectID, photoID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, photo)
}

func (h *Handler) handlePhotoContent(w http.ResponseWriter, r *http.Request) {
	caller, projectID, photoID, err := photoScope(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	photo, content, err := h.service.OpenPhoto(r.Context(), caller, projectID, photoID)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": photo.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", photo.MimeType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		slog.Warn("photo content copy interrupted", "photo_id", photo.ID, "error", err)
	}
}

func (h *Handler) handlePhotoURL(w http.ResponseWriter, r *http.Request) {
	caller, projectID, photoID, err := photoScope(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	var ttl time.Duration
	if raw := r.URL.Query().Get("expires"); raw != "" {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			HandleError(w, fmt.Errorf("%w: expires must be a number of seconds", photoshelf.ErrInvalidInput))
			return
		}
		ttl = time.Duration(min(seconds, int64(photoshelf.MaxPresignTTL/time.Second)+1)) * time.Second
	}

	url, expiresAt, err := h.service.PresignPhoto(r.Context(), caller, projectID, photoID, ttl)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, urlResponse{URL: url, ExpiresAt: expiresAt.UTC()})
}

func (h *Handler) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	caller, projectID, photoID, err := photoScope(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	report, err := h.service.DeletePhoto(r.Context(), caller, projectID, photoID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, report)
}
