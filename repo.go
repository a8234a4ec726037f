package photoshelf

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// MetadataRepo defines ownership-scoped persistence for accounts, projects and photos.
// Implementations must be safe for concurrent use.
//
// Every read that takes an account id is scoped by it: an entity owned by another
// account is reported as ErrNotFound, exactly like a missing one.
type MetadataRepo interface {
	// CreateAccount inserts a new account.
	//
	// Returns:
	//   - Account: the stored account with ID and CreatedAt set
	//   - error: ErrConflict if the email is already registered
	CreateAccount(ctx context.Context, a NewAccount) (Account, error)

	// GetAccount returns the account by id, or ErrNotFound.
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)

	// GetAccountByEmail returns the account registered with email, or ErrNotFound.
	GetAccountByEmail(ctx context.Context, email string) (Account, error)

	// CreateProject inserts a project owned by p.AccountID.
	CreateProject(ctx context.Context, p NewProject) (Project, error)

	// GetProject returns the project only when it is owned by accountID.
	GetProject(ctx context.Context, accountID, projectID uuid.UUID) (Project, error)

	// ListProjects returns the account's projects newest first, each with its photo count.
	ListProjects(ctx context.Context, accountID uuid.UUID, page Page) ([]ProjectSummary, error)

	// UpdateProject applies a partial update and returns the updated project.
	//
	// Returns:
	//   - error: ErrNotFound if the project is absent or owned by another account
	UpdateProject(ctx context.Context, accountID, projectID uuid.UUID, u ProjectUpdate) (Project, error)

	// DeleteProject deletes the project and, through the declared cascade, its photos.
	// The blob keys of the deleted photos are read in the same transaction, before the
	// delete, and returned once the transaction has committed.
	//
	// Returns:
	//   - []string: blob keys of every photo removed by the cascade (may be empty)
	//   - error: ErrNotFound if nothing was deleted
	DeleteProject(ctx context.Context, accountID, projectID uuid.UUID) ([]string, error)

	// CreatePhoto inserts photo metadata. This is the committing step of an upload.
	//
	// Returns:
	//   - error: ErrNotFound if (ProjectID, AccountID) does not resolve to an owned project
	CreatePhoto(ctx context.Context, p NewPhoto) (Photo, error)

	// GetPhoto returns the photo only when the whole chain account -> project -> photo matches.
	GetPhoto(ctx context.Context, accountID, projectID, photoID uuid.UUID) (Photo, error)

	// ListPhotos returns the photos of one owned project newest first.
	ListPhotos(ctx context.Context, accountID, projectID uuid.UUID, page Page) ([]Photo, error)

	// DeletePhoto deletes a single photo row owned by accountID.
	//
	// Returns:
	//   - error: ErrNotFound if no row was deleted
	DeletePhoto(ctx context.Context, accountID, photoID uuid.UUID) error

	// DeleteAccount deletes the account; projects and photos go with it through the
	// declared cascades. Blob keys are harvested in the same transaction.
	DeleteAccount(ctx context.Context, accountID uuid.UUID) ([]string, error)
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Accounts string `mapstructure:"accounts"`
	Projects string `mapstructure:"projects"`
	Photos   string `mapstructure:"photos"`
}

// DefaultTables returns the table names used when none are configured.
func DefaultTables() Tables {
	return Tables{Accounts: "accounts", Projects: "projects", Photos: "photos"}
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set, valid and distinct.
func (t Tables) Validate() error {
	names := []struct {
		field string
		value string
	}{
		{"accounts", t.Accounts},
		{"projects", t.Projects},
		{"photos", t.Photos},
	}

	seen := make(map[string]string, len(names))
	for _, n := range names {
		if n.value == "" {
			return fmt.Errorf("validate tables: %s table name cannot be empty", n.field)
		}
		if !IsValidTableName(n.value) {
			return fmt.Errorf("validate tables: invalid %s table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", n.field, n.value)
		}
		if other, ok := seen[n.value]; ok {
			return fmt.Errorf("validate tables: %s and %s share table name %s", other, n.field, n.value)
		}
		seen[n.value] = n.field
	}

	return nil
}

// WithDefaults fills empty names from DefaultTables.
func (t Tables) WithDefaults() Tables {
	d := DefaultTables()
	if t.Accounts == "" {
		t.Accounts = d.Accounts
	}
	if t.Projects == "" {
		t.Projects = d.Projects
	}
	if t.Photos == "" {
		t.Photos = d.Photos
	}
	return t
}
