package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/photoshelf"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// UploadField is the multipart field the server reads files from.
	UploadField = "files"

	maxErrorBody = 64 << 10
)

// ErrNoResult is set on an upload result the server response did not mention.
var ErrNoResult = errors.New("no result for file in server response")

// Client talks to a photoshelf server's JSON API.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()

	c := &Client{
		config: &Config{
			Endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
			Token:    cfg.Token,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Endpoint returns the normalized server URL.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.config.Token = token
}

// Health checks that the server is reachable and serving.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) (*photoshelf.Account, error) {
	in := map[string]string{"name": name, "email": email, "password": password}

	var account photoshelf.Account
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, in, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Login exchanges credentials for a token. On success the client uses the
// new token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	in := map[string]string{"email": email, "password": password}

	var token Token
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, in, &token); err != nil {
		return nil, err
	}
	c.config.Token = token.AccessToken
	return &token, nil
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (*photoshelf.Account, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	var account photoshelf.Account
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// DeleteAccount deletes the authenticated account with all of its projects
// and photos.
func (c *Client) DeleteAccount(ctx context.Context) (*photoshelf.CleanupReport, error) {
	return c.deleteWithReport(ctx, "/auth/me")
}

// CreateProject creates a project owned by the authenticated account.
func (c *Client) CreateProject(ctx context.Context, name string, description *string) (*photoshelf.Project, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	in := projectBody{Name: &name, Description: description}

	var project photoshelf.Project
	if err := c.doJSON(ctx, http.MethodPost, "/projects", nil, in, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects lists the account's projects, newest first.
func (c *Client) ListProjects(ctx context.Context, opts ListOptions) ([]photoshelf.ProjectSummary, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	return paginate(ctx, opts, func(ctx context.Context, page ListOptions) ([]photoshelf.ProjectSummary, error) {
		var out itemsResponse[photoshelf.ProjectSummary]
		if err := c.doJSON(ctx, http.MethodGet, "/projects", pageQuery(page), nil, &out); err != nil {
			return nil, err
		}
		return out.Items, nil
	})
}

// GetProject fetches one project.
func (c *Client) GetProject(ctx context.Context, projectID uuid.UUID) (*photoshelf.Project, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	var project photoshelf.Project
	if err := c.doJSON(ctx, http.MethodGet, projectPath(projectID), nil, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject applies a partial update. Nil fields are left unchanged.
func (c *Client) UpdateProject(ctx context.Context, projectID uuid.UUID, update photoshelf.ProjectUpdate) (*photoshelf.Project, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	in := projectBody{Name: update.Name, Description: update.Description}

	var project photoshelf.Project
	if err := c.doJSON(ctx, http.MethodPatch, projectPath(projectID), nil, in, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject deletes a project and all of its photos.
func (c *Client) DeleteProject(ctx context.Context, projectID uuid.UUID) (*photoshelf.CleanupReport, error) {
	return c.deleteWithReport(ctx, projectPath(projectID))
}

// ListPhotos lists a project's photos, newest first.
func (c *Client) ListPhotos(ctx context.Context, projectID uuid.UUID, opts ListOptions) ([]photoshelf.Photo, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	path := projectPath(projectID) + "/photos"
	return paginate(ctx, opts, func(ctx context.Context, page ListOptions) ([]photoshelf.Photo, error) {
		var out itemsResponse[photoshelf.Photo]
		if err := c.doJSON(ctx, http.MethodGet, path, pageQuery(page), nil, &out); err != nil {
			return nil, err
		}
		return out.Items, nil
	})
}

// GetPhoto fetches one photo's metadata.
func (c *Client) GetPhoto(ctx context.Context, projectID, photoID uuid.UUID) (*photoshelf.Photo, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	var photo photoshelf.Photo
	if err := c.doJSON(ctx, http.MethodGet, photoPath(projectID, photoID), nil, nil, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// PresignURL asks for a direct download link. A zero ttl uses the server default.
func (c *Client) PresignURL(ctx context.Context, projectID, photoID uuid.UUID, ttl time.Duration) (*PresignedURL, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	query := url.Values{}
	if ttl > 0 {
		query.Set("expires", strconv.FormatInt(int64(ttl/time.Second), 10))
	}

	var out PresignedURL
	if err := c.doJSON(ctx, http.MethodGet, photoPath(projectID, photoID)+"/url", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePhoto deletes one photo.
func (c *Client) DeletePhoto(ctx context.Context, projectID, photoID uuid.UUID) (*photoshelf.CleanupReport, error) {
	return c.deleteWithReport(ctx, photoPath(projectID, photoID))
}

// DeletePhotos deletes photos one at a time, collecting a result per id.
func (c *Client) DeletePhotos(ctx context.Context, projectID uuid.UUID, photoIDs []uuid.UUID) ([]DeleteResult, error) {
	if len(photoIDs) == 0 {
		return nil, ErrNoIDs
	}

	results := make([]DeleteResult, 0, len(photoIDs))
	for _, id := range photoIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		report, err := c.DeletePhoto(ctx, projectID, id)
		results = append(results, DeleteResult{PhotoID: id, Report: report, Err: err})
	}

	return results, nil
}

// Upload sends local files to a project. Files are grouped into requests of
// opts.BatchSize; every file gets its own result.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	paths, err := collectFiles(ctx, opts.LocalPath, opts.Recursive)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("upload %s: %w", opts.LocalPath, ErrNoPaths)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	results := make([]UploadResult, 0, len(paths))
	for _, batch := range photoshelf.ChunkKeys(paths, batchSize) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, c.uploadBatch(ctx, opts.ProjectID, batch, opts.ContentType)...)
	}

	return results, nil
}

// collectFiles resolves the regular files an upload covers.
func collectFiles(ctx context.Context, root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		return []string{root}, nil
	}
	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use --recursive)", root)
	}

	var paths []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk directory: %w", walkErr)
	}

	return paths, nil
}

// uploadBatch streams one multipart request. A request-level failure is
// reported on every file of the batch.
func (c *Client) uploadBatch(ctx context.Context, projectID uuid.UUID, paths []string, contentType string) []UploadResult {
	results := make([]UploadResult, len(paths))
	for i, p := range paths {
		results[i].LocalPath = p
	}
	failAll := func(err error) []UploadResult {
		for i := range results {
			results[i].Err = err
		}
		return results
	}

	pr, pw := io.Pipe()
	defer func() { _ = pr.Close() }()
	mw := multipart.NewWriter(pw)
	go func() {
		_ = pw.CloseWithError(writeParts(mw, paths, contentType))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, projectPath(projectID)+"/photos", nil, pr)
	if err != nil {
		return failAll(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return failAll(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failAll(fmt.Errorf("read response: %w", err))
	}

	var out itemsResponse[uploadItem]
	if jsonErr := json.Unmarshal(data, &out); jsonErr != nil || len(out.Items) == 0 {
		if !isSuccess(resp.StatusCode) {
			return failAll(parseServerError(resp.StatusCode, data))
		}
		return failAll(fmt.Errorf("parse response: %w", ErrNoResult))
	}

	for _, item := range out.Items {
		if item.Index < 0 || item.Index >= len(results) {
			continue
		}
		r := &results[item.Index]
		switch {
		case item.Error != nil:
			r.Err = apiErrorFromBody(item.Error.Error, item.Error.Message)
		case item.Photo != nil:
			r.Photo = item.Photo
		}
	}
	for i := range results {
		if results[i].Photo == nil && results[i].Err == nil {
			results[i].Err = ErrNoResult
		}
	}

	return results
}

func writeParts(mw *multipart.Writer, paths []string, contentType string) error {
	for _, path := range paths {
		if err := writePart(mw, path, contentType); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writePart(mw *multipart.Writer, path, contentType string) error {
	file, err := os.Open(path) //#nosec G304 -- path is user-provided input
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if contentType == "" {
		contentType = detectContentType(path)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     UploadField,
		"filename": filepath.Base(path),
	}))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("write part %s: %w", path, err)
	}
	return nil
}

// Download fetches a photo's content.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, photoPath(opts.ProjectID, opts.PhotoID)+"/content", nil, http.NoBody)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	result := &DownloadResult{
		PhotoID:     opts.PhotoID,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}
	defer func() { _ = resp.Body.Close() }()

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = attachmentName(resp.Header.Get("Content-Disposition"), opts.PhotoID)
	}
	result.LocalPath = localPath

	if dir := filepath.Dir(localPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create directory: %w", err)
		}
	}

	file, err := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return nil, nil, fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, nil, fmt.Errorf("close file: %w", err)
	}

	result.Size = written
	return result, nil, nil
}

// attachmentName picks a safe local file name from Content-Disposition,
// falling back to the photo id.
func attachmentName(disposition string, photoID uuid.UUID) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err == nil {
		name := filepath.Base(filepath.Clean("/" + params["filename"]))
		if name != "/" && name != "." && name != "" {
			return name
		}
	}
	return photoID.String()
}

func (c *Client) deleteWithReport(ctx context.Context, path string) (*photoshelf.CleanupReport, error) {
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	var report photoshelf.CleanupReport
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.config.Endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// doJSON sends in as a JSON body when non-nil and decodes a 2xx response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return parseServerError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

type projectBody struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// paginate fetches one page, or every page when opts.All is set.
func paginate[T any](ctx context.Context, opts ListOptions, fetch func(context.Context, ListOptions) ([]T, error)) ([]T, error) {
	if !opts.All {
		return fetch(ctx, opts)
	}

	page := ListOptions{Limit: opts.Limit, Offset: opts.Offset}
	if page.Limit <= 0 || page.Limit > photoshelf.MaxPageLimit {
		page.Limit = photoshelf.DefaultPageLimit
	}

	var all []T
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if len(items) < page.Limit {
			return all, nil
		}
		page.Offset += len(items)
	}
}

func pageQuery(opts ListOptions) url.Values {
	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}
	return query
}

func projectPath(projectID uuid.UUID) string {
	return "/projects/" + projectID.String()
}

func photoPath(projectID, photoID uuid.UUID) string {
	return projectPath(projectID) + "/photos/" + photoID.String()
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}

// parseServerError builds an APIError from a response body, which is the
// server's {"error","message"} document when it sent one.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		apiErr.Code = eb.Error
		apiErr.Message = eb.Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
