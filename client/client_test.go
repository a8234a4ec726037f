package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/client"
)

const testToken = "test-token-0123456789"

func newClient(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := client.New(&client.Config{Endpoint: server.URL + "/", Token: testToken})
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := client.New(nil)
		assert.ErrorIs(t, err, client.ErrConfigRequired)
	})

	t.Run("empty endpoint uses default", func(t *testing.T) {
		c, err := client.New(&client.Config{})
		require.NoError(t, err)
		assert.Equal(t, client.DefaultEndpoint, c.Endpoint())
	})

	t.Run("trailing slash removed", func(t *testing.T) {
		c, err := client.New(&client.Config{Endpoint: "http://photos.example/"})
		require.NoError(t, err)
		assert.Equal(t, "http://photos.example", c.Endpoint())
	})

	t.Run("options applied", func(t *testing.T) {
		hc := &http.Client{}
		c, err := client.New(&client.Config{}, client.WithHTTPClient(hc), client.WithTimeout(time.Second))
		require.NoError(t, err)
		assert.NotNil(t, c)
		assert.Equal(t, time.Second, hc.Timeout)
	})
}

func TestClient_Login(t *testing.T) {
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	accountID := uuid.New()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "secret-password" {
				writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "message": "Authentication required"})
				return
			}
			writeJSON(t, w, http.StatusOK, map[string]any{
				"access_token": "fresh-token",
				"token_type":   "Bearer",
				"expires_at":   expires,
			})
		case "/auth/me":
			assert.Equal(t, "Bearer fresh-token", r.Header.Get("Authorization"))
			writeJSON(t, w, http.StatusOK, map[string]any{"id": accountID, "name": "Ada", "email": "ada@example.com"})
		default:
			http.NotFound(w, r)
		}
	})

	t.Run("error - wrong password", func(t *testing.T) {
		_, err := c.Login(context.Background(), "ada@example.com", "nope")

		assert.ErrorIs(t, err, client.ErrUnauthorized)
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "unauthorized", apiErr.Code)
		assert.Equal(t, "Authentication required", apiErr.Message)
	})

	t.Run("success - token used afterwards", func(t *testing.T) {
		token, err := c.Login(context.Background(), "ada@example.com", "secret-password")
		require.NoError(t, err)
		assert.Equal(t, "fresh-token", token.AccessToken)
		assert.True(t, expires.Equal(token.ExpiresAt))

		account, err := c.Me(context.Background())
		require.NoError(t, err)
		assert.Equal(t, accountID, account.ID)
	})
}

func TestClient_RequiresToken(t *testing.T) {
	c, err := client.New(&client.Config{Endpoint: "http://127.0.0.1:1"})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, client.ErrTokenRequired)
	_, err = c.ListProjects(ctx, client.ListOptions{})
	assert.ErrorIs(t, err, client.ErrTokenRequired)
	_, err = c.DeleteProject(ctx, uuid.New())
	assert.ErrorIs(t, err, client.ErrTokenRequired)
	_, _, err = c.Download(ctx, client.DownloadOptions{})
	assert.ErrorIs(t, err, client.ErrTokenRequired)
}

func TestClient_Projects(t *testing.T) {
	projectID := uuid.New()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/projects":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"name": "Wedding"}, body)
			writeJSON(t, w, http.StatusCreated, map[string]any{"id": projectID, "name": "Wedding"})
		case r.Method == http.MethodPatch && r.URL.Path == "/projects/"+projectID.String():
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"description": "June"}, body, "nil fields are omitted")
			writeJSON(t, w, http.StatusOK, map[string]any{"id": projectID, "name": "Wedding", "description": "June"})
		case r.Method == http.MethodDelete && r.URL.Path == "/projects/"+projectID.String():
			writeJSON(t, w, http.StatusOK, photoshelf.CleanupReport{Keys: 3, Deleted: 2, Failed: 1})
		case r.Method == http.MethodGet && r.URL.Path == "/projects/"+projectID.String():
			writeJSON(t, w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "Resource not found"})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	created, err := c.CreateProject(ctx, "Wedding", nil)
	require.NoError(t, err)
	assert.Equal(t, projectID, created.ID)

	desc := "June"
	updated, err := c.UpdateProject(ctx, projectID, photoshelf.ProjectUpdate{Description: &desc})
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "June", *updated.Description)

	report, err := c.DeleteProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, photoshelf.CleanupReport{Keys: 3, Deleted: 2, Failed: 1}, *report)

	_, err = c.GetProject(ctx, projectID)
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestClient_ListProjects_All(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []string
	)

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		offsets = append(offsets, q.Get("offset"))
		mu.Unlock()
		assert.Equal(t, "2", q.Get("limit"))

		var items []photoshelf.ProjectSummary
		switch q.Get("offset") {
		case "":
			items = make([]photoshelf.ProjectSummary, 2)
		case "2":
			items = make([]photoshelf.ProjectSummary, 1)
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"items": items})
	})

	projects, err := c.ListProjects(context.Background(), client.ListOptions{Limit: 2, All: true})
	require.NoError(t, err)
	assert.Len(t, projects, 3)
	assert.Equal(t, []string{"", "2"}, offsets)
}

func TestClient_Upload(t *testing.T) {
	projectID := uuid.New()

	t.Run("success - recursive upload batched", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.jpg", "aaa")
		writeFile(t, dir, "nested/b.png", "bb")
		writeFile(t, dir, "nested/c.gif", "c")

		var (
			mu       sync.Mutex
			requests [][]string
		)
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/projects/"+projectID.String()+"/photos", r.URL.Path)
			assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
			if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				return
			}

			var names []string
			items := make([]map[string]any, 0)
			for i, fh := range r.MultipartForm.File[client.UploadField] {
				names = append(names, fh.Filename)
				items = append(items, map[string]any{
					"index": i,
					"name":  fh.Filename,
					"photo": map[string]any{
						"id":            uuid.New(),
						"original_name": fh.Filename,
						"mime_type":     fh.Header.Get("Content-Type"),
						"size_bytes":    fh.Size,
					},
				})
			}
			mu.Lock()
			requests = append(requests, names)
			mu.Unlock()
			writeJSON(t, w, http.StatusCreated, map[string]any{"items": items})
		})

		results, err := c.Upload(context.Background(), client.UploadOptions{
			ProjectID: projectID,
			LocalPath: dir,
			Recursive: true,
			BatchSize: 2,
		})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.False(t, client.HasUploadErrors(results))

		assert.Equal(t, [][]string{{"a.jpg", "b.png"}, {"c.gif"}}, requests)
		assert.Equal(t, "image/jpeg", results[0].Photo.MimeType)
		assert.Equal(t, int64(3), results[0].Photo.SizeBytes)
		assert.Equal(t, "image/png", results[1].Photo.MimeType)
	})

	t.Run("partial failure - per-file error", func(t *testing.T) {
		dir := t.TempDir()
		ok := writeFile(t, dir, "ok.jpg", "x")
		bad := writeFile(t, dir, "bad.jpg", "y")

		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusCreated, map[string]any{"items": []map[string]any{
				{"index": 0, "name": "bad.jpg", "error": map[string]string{"error": "blob_store_error", "message": "Blob storage is unavailable"}},
				{"index": 1, "name": "ok.jpg", "photo": map[string]any{"id": uuid.New(), "original_name": "ok.jpg"}},
			}})
		})

		results, err := c.Upload(context.Background(), client.UploadOptions{ProjectID: projectID, LocalPath: dir, Recursive: true})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, client.HasUploadErrors(results))

		assert.Equal(t, bad, results[0].LocalPath)
		assert.ErrorIs(t, results[0].Err, client.ErrBlobStore)
		assert.Equal(t, ok, results[1].LocalPath)
		assert.NoError(t, results[1].Err)
	})

	t.Run("request rejected - every file fails", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "a.jpg", "x")

		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "Resource not found"})
		})

		results, err := c.Upload(context.Background(), client.UploadOptions{ProjectID: projectID, LocalPath: path})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.ErrorIs(t, results[0].Err, client.ErrNotFound)
	})

	t.Run("error - directory without recursive", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})

		_, err := c.Upload(context.Background(), client.UploadOptions{ProjectID: projectID, LocalPath: t.TempDir()})
		assert.Error(t, err)
	})

	t.Run("error - empty path", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {})

		_, err := c.Upload(context.Background(), client.UploadOptions{})
		assert.ErrorIs(t, err, client.ErrEmptyPath)
	})
}

func TestClient_Download(t *testing.T) {
	projectID, photoID := uuid.New(), uuid.New()
	contentPath := fmt.Sprintf("/projects/%s/photos/%s/content", projectID, photoID)

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != contentPath {
			writeJSON(t, w, http.StatusGone, map[string]string{"error": "content_missing", "message": "Photo content is no longer available"})
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Disposition", `attachment; filename="../../beach.jpg"`)
		_, _ = io.WriteString(w, "jpeg-bytes")
	})
	ctx := context.Background()

	t.Run("success - server file name, stripped of directories", func(t *testing.T) {
		t.Chdir(t.TempDir())

		result, body, err := c.Download(ctx, client.DownloadOptions{ProjectID: projectID, PhotoID: photoID})
		require.NoError(t, err)
		assert.Nil(t, body)
		assert.Equal(t, "beach.jpg", result.LocalPath)
		assert.Equal(t, int64(10), result.Size)
		assert.Equal(t, "image/jpeg", result.ContentType)

		data, err := os.ReadFile("beach.jpg")
		require.NoError(t, err)
		assert.Equal(t, "jpeg-bytes", string(data))
	})

	t.Run("success - explicit path", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out", "x.jpg")

		result, _, err := c.Download(ctx, client.DownloadOptions{ProjectID: projectID, PhotoID: photoID, LocalPath: target})
		require.NoError(t, err)
		assert.Equal(t, target, result.LocalPath)
		assert.FileExists(t, target)
	})

	t.Run("success - stdout", func(t *testing.T) {
		result, body, err := c.Download(ctx, client.DownloadOptions{ProjectID: projectID, PhotoID: photoID, LocalPath: "-"})
		require.NoError(t, err)
		require.NotNil(t, body)
		defer func() { _ = body.Close() }()

		assert.Equal(t, "-", result.LocalPath)
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "jpeg-bytes", string(data))
	})

	t.Run("error - content missing", func(t *testing.T) {
		_, _, err := c.Download(ctx, client.DownloadOptions{ProjectID: projectID, PhotoID: uuid.New(), LocalPath: "-"})
		assert.ErrorIs(t, err, client.ErrContentMissing)
	})
}

func TestClient_PresignURL(t *testing.T) {
	projectID, photoID := uuid.New(), uuid.New()
	var gotExpires []string

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/projects/%s/photos/%s/url", projectID, photoID), r.URL.Path)
		gotExpires = append(gotExpires, r.URL.Query().Get("expires"))
		writeJSON(t, w, http.StatusOK, map[string]any{"url": "http://blobs.example/k?sig=1", "expires_at": time.Now()})
	})

	u, err := c.PresignURL(context.Background(), projectID, photoID, 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "http://blobs.example/k?sig=1", u.URL)

	_, err = c.PresignURL(context.Background(), projectID, photoID, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"90", ""}, gotExpires)
}

func TestClient_DeletePhotos(t *testing.T) {
	projectID := uuid.New()
	gone := uuid.New()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path == fmt.Sprintf("/projects/%s/photos/%s", projectID, gone) {
			writeJSON(t, w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "Resource not found"})
			return
		}
		writeJSON(t, w, http.StatusOK, photoshelf.CleanupReport{Keys: 1, Deleted: 1})
	})

	t.Run("continues past failures", func(t *testing.T) {
		kept := uuid.New()
		results, err := c.DeletePhotos(context.Background(), projectID, []uuid.UUID{gone, kept})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, client.HasDeleteErrors(results))

		assert.ErrorIs(t, results[0].Err, client.ErrNotFound)
		assert.NoError(t, results[1].Err)
		assert.Equal(t, 1, results[1].Report.Deleted)
	})

	t.Run("no ids", func(t *testing.T) {
		_, err := c.DeletePhotos(context.Background(), projectID, nil)
		assert.ErrorIs(t, err, client.ErrNoIDs)
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  *client.APIError
		want string
	}{
		{"code and message", &client.APIError{StatusCode: 404, Code: "not_found", Message: "Resource not found"}, "server error: 404 not_found: Resource not found"},
		{"code only", &client.APIError{StatusCode: 409, Code: "conflict"}, "server error: 409 conflict"},
		{"status only", &client.APIError{StatusCode: 500}, "server error: 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	wrapped := fmt.Errorf("list: %w", &client.APIError{StatusCode: http.StatusUnauthorized})
	assert.ErrorIs(t, wrapped, client.ErrUnauthorized)
	assert.NotErrorIs(t, wrapped, client.ErrNotFound)
}
