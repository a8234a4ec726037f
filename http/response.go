package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sagarc03/photoshelf"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	code, body := errorStatus(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request error", "status", code, "error", err)
	} else {
		slog.Debug("request rejected", "status", code, "error", err)
	}
	WriteError(w, code, body.Error, body.Message)
}

// errorStatus maps a service error to its status code and client-facing body.
// Messages for server-side failures never carry the underlying error.
func errorStatus(err error) (int, ErrorResponse) {
	var tooLarge *http.MaxBytesError

	switch {
	case errors.Is(err, photoshelf.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{"not_found", "Resource not found"}
	case errors.Is(err, photoshelf.ErrInvalidInput):
		return http.StatusBadRequest, ErrorResponse{"invalid_input", err.Error()}
	case errors.Is(err, photoshelf.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{"unauthorized", "Authentication required"}
	case errors.Is(err, photoshelf.ErrConflict):
		return http.StatusConflict, ErrorResponse{"conflict", "Resource already exists"}
	case errors.Is(err, photoshelf.ErrIntegrityAnomaly):
		return http.StatusGone, ErrorResponse{"content_missing", "Photo content is no longer available"}
	case errors.Is(err, photoshelf.ErrBlobStore):
		return http.StatusBadGateway, ErrorResponse{"blob_store_error", "Blob storage is unavailable"}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, ErrorResponse{"too_large", fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit)}
	default:
		return http.StatusInternalServerError, ErrorResponse{"internal_error", "Internal server error"}
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a bounded JSON body into v. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: malformed JSON body: %v", photoshelf.ErrInvalidInput, err)
	}
	return nil
}

// parsePage reads limit and offset query parameters. Missing values are zero.
func parsePage(r *http.Request) (photoshelf.Page, error) {
	var page photoshelf.Page
	q := r.URL.Query()

	for name, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return photoshelf.Page{}, fmt.Errorf("%w: %s must be an integer", photoshelf.ErrInvalidInput, name)
		}
		*dst = n
	}

	return page, nil
}
