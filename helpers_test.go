package photoshelf_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/auth"
	"github.com/sagarc03/photoshelf/blobstore/memory"
	"github.com/sagarc03/photoshelf/database/sqlite"
)

type SpyMetadataRepo struct {
	mock.Mock
}

func (s *SpyMetadataRepo) CreateAccount(ctx context.Context, a photoshelf.NewAccount) (photoshelf.Account, error) {
	args := s.Called(ctx, a)
	return args.Get(0).(photoshelf.Account), args.Error(1)
}

func (s *SpyMetadataRepo) GetAccount(ctx context.Context, id uuid.UUID) (photoshelf.Account, error) {
	args := s.Called(ctx, id)
	return args.Get(0).(photoshelf.Account), args.Error(1)
}

func (s *SpyMetadataRepo) GetAccountByEmail(ctx context.Context, email string) (photoshelf.Account, error) {
	args := s.Called(ctx, email)
	return args.Get(0).(photoshelf.Account), args.Error(1)
}

func (s *SpyMetadataRepo) CreateProject(ctx context.Context, p photoshelf.NewProject) (photoshelf.Project, error) {
	args := s.Called(ctx, p)
	return args.Get(0).(photoshelf.Project), args.Error(1)
}

func (s *SpyMetadataRepo) GetProject(ctx context.Context, accountID, projectID uuid.UUID) (photoshelf.Project, error) {
	args := s.Called(ctx, accountID, projectID)
	return args.Get(0).(photoshelf.Project), args.Error(1)
}

func (s *SpyMetadataRepo) ListProjects(ctx context.Context, accountID uuid.UUID, page photoshelf.Page) ([]photoshelf.ProjectSummary, error) {
	args := s.Called(ctx, accountID, page)
	return args.Get(0).([]photoshelf.ProjectSummary), args.Error(1)
}

func (s *SpyMetadataRepo) UpdateProject(ctx context.Context, accountID, projectID uuid.UUID, u photoshelf.ProjectUpdate) (photoshelf.Project, error) {
	args := s.Called(ctx, accountID, projectID, u)
	return args.Get(0).(photoshelf.Project), args.Error(1)
}

func (s *SpyMetadataRepo) DeleteProject(ctx context.Context, accountID, projectID uuid.UUID) ([]string, error) {
	args := s.Called(ctx, accountID, projectID)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (s *SpyMetadataRepo) CreatePhoto(ctx context.Context, p photoshelf.NewPhoto) (photoshelf.Photo, error) {
	args := s.Called(ctx, p)
	return args.Get(0).(photoshelf.Photo), args.Error(1)
}

func (s *SpyMetadataRepo) GetPhoto(ctx context.Context, accountID, projectID, photoID uuid.UUID) (photoshelf.Photo, error) {
	args := s.Called(ctx, accountID, projectID, photoID)
	return args.Get(0).(photoshelf.Photo), args.Error(1)
}

func (s *SpyMetadataRepo) ListPhotos(ctx context.Context, accountID, projectID uuid.UUID, page photoshelf.Page) ([]photoshelf.Photo, error) {
	args := s.Called(ctx, accountID, projectID, page)
	return args.Get(0).([]photoshelf.Photo), args.Error(1)
}

func (s *SpyMetadataRepo) DeletePhoto(ctx context.Context, accountID, photoID uuid.UUID) error {
	args := s.Called(ctx, accountID, photoID)
	return args.Error(0)
}

func (s *SpyMetadataRepo) DeleteAccount(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	args := s.Called(ctx, accountID)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

var testHasher = auth.NewBcryptHasher(4)

// newSpyService wires a Service to a mocked repo and an in-memory blob store.
func newSpyService(t *testing.T, cfg photoshelf.ServiceConfig) (*photoshelf.Service, *SpyMetadataRepo, *memory.Store) {
	t.Helper()
	repo := new(SpyMetadataRepo)
	blobs := memory.New()
	if cfg.Hasher == nil {
		cfg.Hasher = testHasher
	}
	s, err := photoshelf.NewService(repo, blobs, cfg)
	require.NoError(t, err, "new service")
	return s, repo, blobs
}

// newSQLiteService wires a Service to a migrated in-memory SQLite database.
func newSQLiteService(t *testing.T, cfg photoshelf.ServiceConfig) (*photoshelf.Service, photoshelf.MetadataRepo, *memory.Store) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", photoshelf.DefaultTables())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	repo := db.GetRepo()
	blobs := memory.New()
	if cfg.Hasher == nil {
		cfg.Hasher = testHasher
	}
	s, err := photoshelf.NewService(repo, blobs, cfg)
	require.NoError(t, err)
	return s, repo, blobs
}

func mustRegister(t *testing.T, s *photoshelf.Service, email string) photoshelf.Account {
	t.Helper()
	a, err := s.Register(context.Background(), "Test User", email, "correct-horse")
	require.NoError(t, err)
	return a
}

func mustProject(t *testing.T, s *photoshelf.Service, owner uuid.UUID, name string) photoshelf.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), owner, name, nil)
	require.NoError(t, err)
	return p
}
