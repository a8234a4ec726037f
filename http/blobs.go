package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/blobstore/filesystem"
)

// handleBlob serves a presigned filesystem URL. The signature is the only
// credential; no access token is required.
func (h *Handler) handleBlob(w http.ResponseWriter, r *http.Request) {
	key, err := filesystem.KeyFromPath(r.URL.Path)
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
		return
	}

	q := r.URL.Query()
	if err := h.config.Blobs.Verify(key, q.Get(filesystem.ExpiresParam), q.Get(filesystem.SignatureParam)); err != nil {
		HandleError(w, err)
		return
	}

	content, info, err := h.config.Blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, photoshelf.ErrBlobNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
			return
		}
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if rs, ok := content.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(key), time.Time{}, rs)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		slog.Warn("blob copy interrupted", "key", key, "error", err)
	}
}
