package photoshelf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sagarc03/photoshelf/auth"
)

const (
	// DefaultUploadConcurrency bounds parallel file writes within one upload request.
	DefaultUploadConcurrency = 4
	// DefaultPresignTTL is used when a presign request omits the expiry.
	DefaultPresignTTL = time.Hour
	// MaxPresignTTL matches the longest expiry S3 accepts for SigV4 presigned URLs.
	MaxPresignTTL = 7 * 24 * time.Hour
)

// PasswordHasher hashes and verifies account passwords.
// Compare with an empty hash must fail after doing the same work as a real comparison.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// ServiceConfig holds configuration options for Service.
type ServiceConfig struct {
	CleanupTimeout    time.Duration // Timeout for blob cleanup after a committed delete (default: 30s)
	MaxUploadSize     int64         // Per-file byte limit, 0 means no limit
	UploadConcurrency int           // Parallel files per upload request (default: 4)
	DefaultPresignTTL time.Duration // default: 1h
	Hasher            PasswordHasher
}

// Service exposes every photo, project and account operation for a verified caller.
// Reads go through the Guard, destructive operations through the Orchestrator.
type Service struct {
	repo         MetadataRepo
	blobs        BlobStore
	guard        *Guard
	orchestrator *Orchestrator
	hasher       PasswordHasher
	validate     *validator.Validate

	cleanupTimeout    time.Duration
	maxUploadSize     int64
	uploadConcurrency int
	presignTTL        time.Duration
}

func NewService(repo MetadataRepo, blobs BlobStore, cfg ServiceConfig) (*Service, error) {
	if repo == nil {
		return nil, errors.New("new service: metadata repo is required")
	}
	if blobs == nil {
		return nil, errors.New("new service: blob store is required")
	}
	if cfg.MaxUploadSize < 0 {
		return nil, fmt.Errorf("new service: invalid max upload size: %d", cfg.MaxUploadSize)
	}

	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = DefaultCleanupTimeout
	}
	concurrency := cfg.UploadConcurrency
	if concurrency <= 0 {
		concurrency = DefaultUploadConcurrency
	}
	presignTTL := cfg.DefaultPresignTTL
	if presignTTL <= 0 {
		presignTTL = DefaultPresignTTL
	}
	presignTTL = min(presignTTL, MaxPresignTTL)
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(0)
	}

	return &Service{
		repo:              repo,
		blobs:             blobs,
		guard:             NewGuard(repo),
		orchestrator:      NewOrchestrator(repo, blobs, cleanupTimeout),
		hasher:            hasher,
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		cleanupTimeout:    cleanupTimeout,
		maxUploadSize:     cfg.MaxUploadSize,
		uploadConcurrency: concurrency,
		presignTTL:        presignTTL,
	}, nil
}

type registration struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,max=72"`
}

// Register creates an account. The email is stored lower-cased.
func (s *Service) Register(ctx context.Context, name, email, password string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, fmt.Errorf("register: %w", err)
	}

	reg := registration{
		Name:     strings.TrimSpace(name),
		Email:    normalizeEmail(email),
		Password: password,
	}
	if err := s.validate.Struct(reg); err != nil {
		return Account{}, validationError("register", err)
	}
	if len(reg.Password) > auth.MaxPasswordBytes {
		return Account{}, fmt.Errorf("register: %w: password must be at most %d bytes", ErrInvalidInput, auth.MaxPasswordBytes)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return Account{}, fmt.Errorf("register: hash password: %w", err)
	}

	a, err := s.repo.CreateAccount(ctx, NewAccount{Name: reg.Name, Email: reg.Email, PasswordHash: hash})
	if err != nil {
		return Account{}, fmt.Errorf("register: %w", err)
	}

	return a, nil
}

// Authenticate returns the account for valid credentials and ErrUnauthorized otherwise.
// Unknown emails and wrong passwords are not distinguished.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, fmt.Errorf("authenticate: %w", err)
	}

	a, err := s.repo.GetAccountByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		// an empty hash still costs one comparison, keeping unknown emails as slow as known ones
		_ = s.hasher.Compare("", password)
		return Account{}, fmt.Errorf("authenticate: %w", ErrUnauthorized)
	}
	if err != nil {
		return Account{}, fmt.Errorf("authenticate: %w", err)
	}

	if err := s.hasher.Compare(a.PasswordHash, password); err != nil {
		return Account{}, fmt.Errorf("authenticate: %w", ErrUnauthorized)
	}

	return a, nil
}

func (s *Service) Account(ctx context.Context, caller uuid.UUID) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}

	a, err := s.repo.GetAccount(ctx, caller)
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// DeleteAccount removes the caller's account and everything it owns.
func (s *Service) DeleteAccount(ctx context.Context, caller uuid.UUID) (CleanupReport, error) {
	return s.orchestrator.DeleteAccount(ctx, caller)
}

type projectInput struct {
	Name        string  `validate:"required,min=1,max=200"`
	Description *string `validate:"omitempty,max=1000"`
}

func (s *Service) CreateProject(ctx context.Context, caller uuid.UUID, name string, description *string) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}

	in := projectInput{Name: strings.TrimSpace(name), Description: description}
	if err := s.validate.Struct(in); err != nil {
		return Project{}, validationError("create project", err)
	}

	p, err := s.repo.CreateProject(ctx, NewProject{AccountID: caller, Name: in.Name, Description: in.Description})
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, caller, projectID uuid.UUID) (Project, error) {
	return s.guard.ResolveProject(ctx, caller, projectID)
}

func (s *Service) ListProjects(ctx context.Context, caller uuid.UUID, page Page) ([]ProjectSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	page, err := page.Normalize()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	items, err := s.repo.ListProjects(ctx, caller, page)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return items, nil
}

type projectPatch struct {
	Name        *string `validate:"omitempty,min=1,max=200"`
	Description *string `validate:"omitempty,max=1000"`
}

func (s *Service) UpdateProject(ctx context.Context, caller, projectID uuid.UUID, u ProjectUpdate) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, fmt.Errorf("update project: %w", err)
	}

	if u.Name != nil {
		trimmed := strings.TrimSpace(*u.Name)
		u.Name = &trimmed
	}
	if err := s.validate.Struct(projectPatch{Name: u.Name, Description: u.Description}); err != nil {
		return Project{}, validationError("update project", err)
	}

	if _, err := s.guard.ResolveProject(ctx, caller, projectID); err != nil {
		return Project{}, fmt.Errorf("update project: %w", err)
	}

	if u.IsEmpty() {
		return s.guard.ResolveProject(ctx, caller, projectID)
	}

	p, err := s.repo.UpdateProject(ctx, caller, projectID, u)
	if err != nil {
		return Project{}, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

func (s *Service) DeleteProject(ctx context.Context, caller, projectID uuid.UUID) (CleanupReport, error) {
	p, err := s.guard.ResolveProject(ctx, caller, projectID)
	if err != nil {
		return CleanupReport{}, fmt.Errorf("delete project: %w", err)
	}
	return s.orchestrator.DeleteProject(ctx, p)
}

// ListPhotos lists the photos of an owned project. A project the caller does not
// own yields ErrNotFound rather than an empty list.
func (s *Service) ListPhotos(ctx context.Context, caller, projectID uuid.UUID, page Page) ([]Photo, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	if _, err := s.guard.ResolveProject(ctx, caller, projectID); err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	items, err := s.repo.ListPhotos(ctx, caller, projectID, page)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return items, nil
}

func (s *Service) GetPhoto(ctx context.Context, caller, projectID, photoID uuid.UUID) (Photo, error) {
	return s.guard.ResolvePhoto(ctx, caller, projectID, photoID)
}

// OpenPhoto returns the photo with a reader over its content. A row whose blob is
// missing is reported as ErrIntegrityAnomaly, not ErrNotFound.
func (s *Service) OpenPhoto(ctx context.Context, caller, projectID, photoID uuid.UUID) (Photo, io.ReadCloser, error) {
	ph, err := s.guard.ResolvePhoto(ctx, caller, projectID, photoID)
	if err != nil {
		return Photo{}, nil, fmt.Errorf("open photo: %w", err)
	}

	rc, _, err := s.blobs.Get(ctx, ph.BlobKey)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return Photo{}, nil, fmt.Errorf("open photo %s: %w: content missing for key %s", ph.ID, ErrIntegrityAnomaly, ph.BlobKey)
		}
		return Photo{}, nil, fmt.Errorf("open photo %s: %w", ph.ID, err)
	}

	return ph, rc, nil
}

// PresignPhoto returns a time-limited URL for the photo content. A ttl of zero
// selects the configured default; longer values are clamped to MaxPresignTTL.
func (s *Service) PresignPhoto(ctx context.Context, caller, projectID, photoID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	if ttl < 0 {
		return "", time.Time{}, fmt.Errorf("presign photo: %w: expiry must not be negative", ErrInvalidInput)
	}
	if ttl == 0 {
		ttl = s.presignTTL
	}
	ttl = min(max(ttl, time.Second), MaxPresignTTL)

	ph, err := s.guard.ResolvePhoto(ctx, caller, projectID, photoID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign photo: %w", err)
	}

	expiresAt := time.Now().Add(ttl)
	url, err := s.blobs.Presign(ctx, ph.BlobKey, ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign photo %s: %w", ph.ID, err)
	}

	return url, expiresAt, nil
}

func (s *Service) DeletePhoto(ctx context.Context, caller, projectID, photoID uuid.UUID) (CleanupReport, error) {
	ph, err := s.guard.ResolvePhoto(ctx, caller, projectID, photoID)
	if err != nil {
		return CleanupReport{}, fmt.Errorf("delete photo: %w", err)
	}
	return s.orchestrator.DeletePhoto(ctx, ph)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validationError turns validator output into an ErrInvalidInput with a readable message.
func validationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}

	return fmt.Errorf("%s: %w: %s", op, ErrInvalidInput, strings.Join(msgs, "; "))
}
