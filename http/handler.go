package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/sagarc03/photoshelf"
)

// Service is the subset of *photoshelf.Service the handlers call.
type Service interface {
	Register(ctx context.Context, name, email, password string) (photoshelf.Account, error)
	Authenticate(ctx context.Context, email, password string) (photoshelf.Account, error)
	Account(ctx context.Context, caller uuid.UUID) (photoshelf.Account, error)
	DeleteAccount(ctx context.Context, caller uuid.UUID) (photoshelf.CleanupReport, error)

	CreateProject(ctx context.Context, caller uuid.UUID, name string, description *string) (photoshelf.Project, error)
	GetProject(ctx context.Context, caller, projectID uuid.UUID) (photoshelf.Project, error)
	ListProjects(ctx context.Context, caller uuid.UUID, page photoshelf.Page) ([]photoshelf.ProjectSummary, error)
	UpdateProject(ctx context.Context, caller, projectID uuid.UUID, u photoshelf.ProjectUpdate) (photoshelf.Project, error)
	DeleteProject(ctx context.Context, caller, projectID uuid.UUID) (photoshelf.CleanupReport, error)

	UploadPhotos(ctx context.Context, caller, projectID uuid.UUID, files []photoshelf.UploadFile) ([]photoshelf.UploadOutcome, error)
	ListPhotos(ctx context.Context, caller, projectID uuid.UUID, page photoshelf.Page) ([]photoshelf.Photo, error)
	GetPhoto(ctx context.Context, caller, projectID, photoID uuid.UUID) (photoshelf.Photo, error)
	OpenPhoto(ctx context.Context, caller, projectID, photoID uuid.UUID) (photoshelf.Photo, io.ReadCloser, error)
	PresignPhoto(ctx context.Context, caller, projectID, photoID uuid.UUID, ttl time.Duration) (string, time.Time, error)
	DeletePhoto(ctx context.Context, caller, projectID, photoID uuid.UUID) (photoshelf.CleanupReport, error)
}

// TokenManager issues and verifies access tokens. *auth.TokenManager satisfies it.
type TokenManager interface {
	Issue(accountID uuid.UUID) (string, time.Time, error)
	Parse(token string) (uuid.UUID, error)
}

// BlobServer serves presigned blob URLs for backends that cannot serve them
// themselves. *filesystem.Store satisfies it.
type BlobServer interface {
	Verify(key, expires, signature string) error
	Get(ctx context.Context, key string) (io.ReadCloser, photoshelf.BlobInfo, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	Tokens TokenManager
	// Blobs enables GET /blobs/*. Leave nil for backends that presign natively.
	Blobs             BlobServer
	CORS              CORSConfig
	MaxUploadSize     int64
	MaxFilesPerUpload int
	SecureCookies     bool
}

// Handler provides the HTTP API over a photoshelf service.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	cfg := *config
	if cfg.MaxFilesPerUpload <= 0 {
		cfg.MaxFilesPerUpload = DefaultMaxFilesPerUpload
	}
	return &Handler{
		config:  cfg,
		service: service,
	}
}

// Router returns an http.Handler with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)

	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)

	if h.config.Blobs != nil {
		r.Get("/blobs/*", h.handleBlob)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.config.Tokens))

		r.Get("/auth/me", h.handleMe)
		r.Delete("/auth/me", h.handleDeleteMe)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", h.handleCreateProject)
			r.Get("/", h.handleListProjects)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", h.handleGetProject)
				r.Patch("/", h.handleUpdateProject)
				r.Delete("/", h.handleDeleteProject)

				r.Post("/photos", h.handleUpload)
				r.Get("/photos", h.handleListPhotos)
				r.Get("/photos/{photoID}", h.handleGetPhoto)
				r.Get("/photos/{photoID}/content", h.handlePhotoContent)
				r.Get("/photos/{photoID}/url", h.handlePhotoURL)
				r.Delete("/photos/{photoID}", h.handleDeletePhoto)
			})
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// itemsResponse is the envelope of every list endpoint.
type itemsResponse[T any] struct {
	Items []T `json:"items"`
}
