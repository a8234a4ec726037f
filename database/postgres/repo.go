// Package postgres implements photoshelf.MetadataRepo on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/photoshelf"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Repo struct {
	pool   *pgxpool.Pool
	tables photoshelf.Tables
}

func NewRepo(pool *pgxpool.Pool, tables photoshelf.Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}
	return &Repo{pool: pool, tables: tables}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", photoshelf.ErrConflict, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", photoshelf.ErrNotFound, pgErr.ConstraintName)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return photoshelf.ErrNotFound
	}
	return err
}

func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return photoshelf.ErrNotFound
	}
	return nil
}

func (r *Repo) CreateAccount(ctx context.Context, in photoshelf.NewAccount) (photoshelf.Account, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password_hash, created_at
	`, ident(r.tables.Accounts))

	var a photoshelf.Account
	err := r.pool.QueryRow(ctx, query, uuid.New(), in.Name, in.Email, in.PasswordHash).Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt,
	)
	if err != nil {
		return photoshelf.Account{}, fmt.Errorf("create account: %w", mapError(err))
	}
	return a, nil
}

func (r *Repo) GetAccount(ctx context.Context, id uuid.UUID) (photoshelf.Account, error) {
	return r.getAccount(ctx, "id", id)
}

func (r *Repo) GetAccountByEmail(ctx context.Context, email string) (photoshelf.Account, error) {
	return r.getAccount(ctx, "email", email)
}

func (r *Repo) getAccount(ctx context.Context, column string, value any) (photoshelf.Account, error) {
	query := fmt.Sprintf(`
		SELECT id, name, email, password_hash, created_at
		FROM %s
		WHERE %s = $1
	`, ident(r.tables.Accounts), column)

	var a photoshelf.Account
	err := r.pool.QueryRow(ctx, query, value).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return photoshelf.Account{}, fmt.Errorf("get account: %w", mapError(err))
	}
	return a, nil
}

// DeleteAccount reads the blob keys of every photo the account owns and deletes
// the account in one transaction. Projects and photos follow by cascade.
func (r *Repo) DeleteAccount(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	var keys []string

	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := lockRow(ctx, tx, r.tables.Accounts, `id = $1`, accountID); err != nil {
			return err
		}

		var err error
		keys, err = r.collectKeys(ctx, tx, `account_id = $1`, accountID)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, ident(r.tables.Accounts)), accountID)
		if err != nil {
			return err
		}
		return requireAffected(tag)
	})
	if err != nil {
		return nil, fmt.Errorf("delete account: %w", err)
	}
	return keys, nil
}

// lockRow takes FOR UPDATE on the parent row of a cascade delete. A photo
// insert needs FOR KEY SHARE on its account and project, so it waits until
// the delete commits and then fails its foreign key check. Inserts that
// committed first are visible to the key read that follows.
func lockRow(ctx context.Context, q querier, table, where string, args ...any) error {
	var one int
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE %s FOR UPDATE`, ident(table), where)
	if err := q.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		return mapError(err)
	}
	return nil
}

// collectKeys reads blob keys inside the delete transaction, after lockRow.
func (r *Repo) collectKeys(ctx context.Context, q querier, where string, args ...any) ([]string, error) {
	query := fmt.Sprintf(`SELECT blob_key FROM %s WHERE %s`, ident(r.tables.Photos), where)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("collect keys: %w", err)
	}

	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect keys: %w", err)
	}
	return keys, nil
}

func (r *Repo) CreateProject(ctx context.Context, in photoshelf.NewProject) (photoshelf.Project, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, account_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, account_id, name, description, created_at
	`, ident(r.tables.Projects))

	p, err := scanProject(r.pool.QueryRow(ctx, query, uuid.New(), in.AccountID, in.Name, normalizeDescription(in.Description)))
	if err != nil {
		return photoshelf.Project{}, fmt.Errorf("create project: %w", mapError(err))
	}
	return p, nil
}

func normalizeDescription(d *string) *string {
	if d == nil || *d == "" {
		return nil
	}
	return d
}

func scanProject(row pgx.Row, extra ...any) (photoshelf.Project, error) {
	var p photoshelf.Project
	dest := append([]any{&p.ID, &p.AccountID, &p.Name, &p.Description, &p.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return photoshelf.Project{}, err
	}
	return p, nil
}

func (r *Repo) GetProject(ctx context.Context, accountID, projectID uuid.UUID) (photoshelf.Project, error) {
	p, err := r.getProject(ctx, r.pool, accountID, projectID)
	if err != nil {
		return photoshelf.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (r *Repo) getProject(ctx context.Context, q querier, accountID, projectID uuid.UUID) (photoshelf.Project, error) {
	query := fmt.Sprintf(`
		SELECT id, account_id, name, description, created_at
		FROM %s
		WHERE id = $1 AND account_id = $2
	`, ident(r.tables.Projects))

	p, err := scanProject(q.QueryRow(ctx, query, projectID, accountID))
	if err != nil {
		return photoshelf.Project{}, mapError(err)
	}
	return p, nil
}

func (r *Repo) ListProjects(ctx context.Context, accountID uuid.UUID, page photoshelf.Page) ([]photoshelf.ProjectSummary, error) {
	query := fmt.Sprintf(`
		SELECT p.id, p.account_id, p.name, p.description, p.created_at,
			(SELECT COUNT(*) FROM %s ph WHERE ph.project_id = p.id) AS photo_count
		FROM %s p
		WHERE p.account_id = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3
	`, ident(r.tables.Photos), ident(r.tables.Projects))

	rows, err := r.pool.Query(ctx, query, accountID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]photoshelf.ProjectSummary, 0, page.Limit)
	for rows.Next() {
		var count int64
		p, err := scanProject(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("list projects: scan: %w", err)
		}
		items = append(items, photoshelf.ProjectSummary{Project: p, PhotoCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: rows: %w", err)
	}
	return items, nil
}

func (r *Repo) UpdateProject(ctx context.Context, accountID, projectID uuid.UUID, u photoshelf.ProjectUpdate) (photoshelf.Project, error) {
	if u.IsEmpty() {
		return r.GetProject(ctx, accountID, projectID)
	}

	var sets []string
	args := []any{projectID, accountID}
	if u.Name != nil {
		args = append(args, *u.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if u.Description != nil {
		args = append(args, normalizeDescription(u.Description))
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE %s SET %s
		WHERE id = $1 AND account_id = $2
		RETURNING id, account_id, name, description, created_at
	`, ident(r.tables.Projects), strings.Join(sets, ", "))

	p, err := scanProject(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return photoshelf.Project{}, fmt.Errorf("update project: %w", mapError(err))
	}
	return p, nil
}

// DeleteProject reads the project's photo keys and deletes the project in one
// transaction. The photo rows follow by cascade.
func (r *Repo) DeleteProject(ctx context.Context, accountID, projectID uuid.UUID) ([]string, error) {
	var keys []string

	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := lockRow(ctx, tx, r.tables.Projects, `id = $1 AND account_id = $2`, projectID, accountID); err != nil {
			return err
		}

		var err error
		keys, err = r.collectKeys(ctx, tx, `project_id = $1 AND account_id = $2`, projectID, accountID)
		if err != nil {
			return err
		}

		query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND account_id = $2`, ident(r.tables.Projects))
		tag, err := tx.Exec(ctx, query, projectID, accountID)
		if err != nil {
			return err
		}
		return requireAffected(tag)
	})
	if err != nil {
		return nil, fmt.Errorf("delete project: %w", err)
	}
	return keys, nil
}

const photoColumns = `id, blob_key, original_name, mime_type, size_bytes, account_id, project_id, created_at`

func scanPhoto(row pgx.Row) (photoshelf.Photo, error) {
	var ph photoshelf.Photo
	err := row.Scan(&ph.ID, &ph.BlobKey, &ph.OriginalName, &ph.MimeType, &ph.SizeBytes, &ph.AccountID, &ph.ProjectID, &ph.CreatedAt)
	return ph, err
}

// CreatePhoto relies on the (project_id, account_id) foreign key: a project
// that is missing or owned by someone else rejects the insert.
func (r *Repo) CreatePhoto(ctx context.Context, in photoshelf.NewPhoto) (photoshelf.Photo, error) {
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, blob_key, original_name, mime_type, size_bytes, account_id, project_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, ident(r.tables.Photos), photoColumns)

	ph, err := scanPhoto(r.pool.QueryRow(ctx, query,
		id, in.BlobKey, in.OriginalName, in.MimeType, in.SizeBytes, in.AccountID, in.ProjectID))
	if err != nil {
		return photoshelf.Photo{}, fmt.Errorf("create photo: %w", mapError(err))
	}
	return ph, nil
}

func (r *Repo) GetPhoto(ctx context.Context, accountID, projectID, photoID uuid.UUID) (photoshelf.Photo, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND project_id = $2 AND account_id = $3
	`, photoColumns, ident(r.tables.Photos))

	ph, err := scanPhoto(r.pool.QueryRow(ctx, query, photoID, projectID, accountID))
	if err != nil {
		return photoshelf.Photo{}, fmt.Errorf("get photo: %w", mapError(err))
	}
	return ph, nil
}

func (r *Repo) ListPhotos(ctx context.Context, accountID, projectID uuid.UUID, page photoshelf.Page) ([]photoshelf.Photo, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE project_id = $1 AND account_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, photoColumns, ident(r.tables.Photos))

	rows, err := r.pool.Query(ctx, query, projectID, accountID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	items := make([]photoshelf.Photo, 0, page.Limit)
	for rows.Next() {
		ph, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("list photos: scan: %w", err)
		}
		items = append(items, ph)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list photos: rows: %w", err)
	}
	return items, nil
}

func (r *Repo) DeletePhoto(ctx context.Context, accountID, photoID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND account_id = $2`, ident(r.tables.Photos))

	tag, err := r.pool.Exec(ctx, query, photoID, accountID)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if err := requireAffected(tag); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}
