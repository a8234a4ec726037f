// Package sqlite implements photoshelf.MetadataRepo on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sagarc03/photoshelf"
)

// timeFormat is fixed width so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

type repo struct {
	db     *sql.DB
	tables photoshelf.Tables
}

// NewRepo wraps an already migrated database.
func NewRepo(db *sql.DB, tables photoshelf.Tables) (photoshelf.MetadataRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}
	return &repo{db: db, tables: tables}, nil
}

func now() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

// mapError translates driver constraint errors into domain errors.
func mapError(err error) error {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return err
	}

	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %w", photoshelf.ErrConflict, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %w", photoshelf.ErrNotFound, err)
	}

	if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return fmt.Errorf("%w: %w", photoshelf.ErrConflict, err)
		case strings.Contains(msg, "FOREIGN KEY"):
			return fmt.Errorf("%w: %w", photoshelf.ErrNotFound, err)
		}
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (photoshelf.Account, error) {
	var a photoshelf.Account
	var id, createdAt string

	if err := row.Scan(&id, &a.Name, &a.Email, &a.PasswordHash, &createdAt); err != nil {
		return photoshelf.Account{}, err
	}

	var err error
	if a.ID, err = uuid.Parse(id); err != nil {
		return photoshelf.Account{}, fmt.Errorf("parse id: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return photoshelf.Account{}, fmt.Errorf("parse created_at: %w", err)
	}
	return a, nil
}

func (r *repo) CreateAccount(ctx context.Context, in photoshelf.NewAccount) (photoshelf.Account, error) {
	a := photoshelf.Account{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now(),
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		quoteIdentifier(r.tables.Accounts))

	_, err := r.db.ExecContext(ctx, query, a.ID.String(), a.Name, a.Email, a.PasswordHash, formatTime(a.CreatedAt))
	if err != nil {
		return photoshelf.Account{}, fmt.Errorf("create account: %w", mapError(err))
	}
	return a, nil
}

func (r *repo) GetAccount(ctx context.Context, id uuid.UUID) (photoshelf.Account, error) {
	return r.getAccount(ctx, "id", id.String())
}

func (r *repo) GetAccountByEmail(ctx context.Context, email string) (photoshelf.Account, error) {
	return r.getAccount(ctx, "email", email)
}

func (r *repo) getAccount(ctx context.Context, column, value string) (photoshelf.Account, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table and column names are constants
		`SELECT id, name, email, password_hash, created_at FROM %s WHERE %s = ?`,
		quoteIdentifier(r.tables.Accounts), column)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return photoshelf.Account{}, fmt.Errorf("get account: %w", photoshelf.ErrNotFound)
		}
		return photoshelf.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// DeleteAccount harvests every photo key of the account, then deletes the
// account row; projects and photos follow through ON DELETE CASCADE.
func (r *repo) DeleteAccount(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	var keys []string

	err := withTx(ctx, r.db, func(tx dbtx) error {
		var err error
		keys, err = r.collectKeys(ctx, tx, `account_id = ?`, accountID.String())
		if err != nil {
			return err
		}

		query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, quoteIdentifier(r.tables.Accounts)) //nolint:gosec // G201: table name is validated
		res, err := tx.ExecContext(ctx, query, accountID.String())
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
	if err != nil {
		return nil, fmt.Errorf("delete account: %w", err)
	}
	return keys, nil
}

func (r *repo) collectKeys(ctx context.Context, tx dbtx, where string, args ...any) ([]string, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated, where clause is a constant
		`SELECT blob_key FROM %s WHERE %s`, quoteIdentifier(r.tables.Photos), where)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("collect keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("collect keys: scan: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect keys: rows: %w", err)
	}
	return keys, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return photoshelf.ErrNotFound
	}
	return nil
}

func (r *repo) CreateProject(ctx context.Context, in photoshelf.NewProject) (photoshelf.Project, error) {
	p := photoshelf.Project{
		ID:          uuid.New(),
		AccountID:   in.AccountID,
		Name:        in.Name,
		Description: normalizeDescription(in.Description),
		CreatedAt:   now(),
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, account_id, name, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		quoteIdentifier(r.tables.Projects))

	_, err := r.db.ExecContext(ctx, query,
		p.ID.String(), p.AccountID.String(), p.Name, nullString(p.Description), formatTime(p.CreatedAt))
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

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func scanProject(row scanner, extra ...any) (photoshelf.Project, error) {
	var p photoshelf.Project
	var id, accountID, createdAt string
	var description sql.NullString

	dest := append([]any{&id, &accountID, &p.Name, &description, &createdAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return photoshelf.Project{}, err
	}

	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return photoshelf.Project{}, fmt.Errorf("parse id: %w", err)
	}
	if p.AccountID, err = uuid.Parse(accountID); err != nil {
		return photoshelf.Project{}, fmt.Errorf("parse account_id: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return photoshelf.Project{}, fmt.Errorf("parse created_at: %w", err)
	}
	if description.Valid {
		p.Description = &description.String
	}
	return p, nil
}

func (r *repo) GetProject(ctx context.Context, accountID, projectID uuid.UUID) (photoshelf.Project, error) {
	p, err := r.getProject(ctx, r.db, accountID, projectID)
	if err != nil {
		return photoshelf.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (r *repo) getProject(ctx context.Context, q dbtx, accountID, projectID uuid.UUID) (photoshelf.Project, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, account_id, name, description, created_at FROM %s WHERE id = ? AND account_id = ?`,
		quoteIdentifier(r.tables.Projects))

	p, err := scanProject(q.QueryRowContext(ctx, query, projectID.String(), accountID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return photoshelf.Project{}, photoshelf.ErrNotFound
		}
		return photoshelf.Project{}, err
	}
	return p, nil
}

func (r *repo) ListProjects(ctx context.Context, accountID uuid.UUID, page photoshelf.Page) ([]photoshelf.ProjectSummary, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table names are validated
		`SELECT p.id, p.account_id, p.name, p.description, p.created_at,
			(SELECT COUNT(*) FROM %s ph WHERE ph.project_id = p.id) AS photo_count
		FROM %s p
		WHERE p.account_id = ?
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?`,
		quoteIdentifier(r.tables.Photos), quoteIdentifier(r.tables.Projects))

	rows, err := r.db.QueryContext(ctx, query, accountID.String(), page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

func (r *repo) UpdateProject(ctx context.Context, accountID, projectID uuid.UUID, u photoshelf.ProjectUpdate) (photoshelf.Project, error) {
	var p photoshelf.Project

	err := withTx(ctx, r.db, func(tx dbtx) error {
		var sets []string
		var args []any
		if u.Name != nil {
			sets = append(sets, "name = ?")
			args = append(args, *u.Name)
		}
		if u.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, nullString(normalizeDescription(u.Description)))
		}

		if len(sets) > 0 {
			query := fmt.Sprintf( //nolint:gosec // G201: table name is validated, columns are constants
				`UPDATE %s SET %s WHERE id = ? AND account_id = ?`,
				quoteIdentifier(r.tables.Projects), strings.Join(sets, ", "))
			args = append(args, projectID.String(), accountID.String())

			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			if err := requireAffected(res); err != nil {
				return err
			}
		}

		var err error
		p, err = r.getProject(ctx, tx, accountID, projectID)
		return err
	})
	if err != nil {
		return photoshelf.Project{}, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// DeleteProject harvests the keys of the project's photos and deletes the
// project in one transaction; the photo rows go with it through ON DELETE CASCADE.
func (r *repo) DeleteProject(ctx context.Context, accountID, projectID uuid.UUID) ([]string, error) {
	var keys []string

	err := withTx(ctx, r.db, func(tx dbtx) error {
		var err error
		keys, err = r.collectKeys(ctx, tx, `project_id = ? AND account_id = ?`, projectID.String(), accountID.String())
		if err != nil {
			return err
		}

		query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`DELETE FROM %s WHERE id = ? AND account_id = ?`, quoteIdentifier(r.tables.Projects))
		res, err := tx.ExecContext(ctx, query, projectID.String(), accountID.String())
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
	if err != nil {
		return nil, fmt.Errorf("delete project: %w", err)
	}
	return keys, nil
}

const photoColumns = `id, blob_key, original_name, mime_type, size_bytes, account_id, project_id, created_at`

func scanPhoto(row scanner) (photoshelf.Photo, error) {
	var ph photoshelf.Photo
	var id, accountID, projectID, createdAt string

	err := row.Scan(&id, &ph.BlobKey, &ph.OriginalName, &ph.MimeType, &ph.SizeBytes, &accountID, &projectID, &createdAt)
	if err != nil {
		return photoshelf.Photo{}, err
	}

	if ph.ID, err = uuid.Parse(id); err != nil {
		return photoshelf.Photo{}, fmt.Errorf("parse id: %w", err)
	}
	if ph.AccountID, err = uuid.Parse(accountID); err != nil {
		return photoshelf.Photo{}, fmt.Errorf("parse account_id: %w", err)
	}
	if ph.ProjectID, err = uuid.Parse(projectID); err != nil {
		return photoshelf.Photo{}, fmt.Errorf("parse project_id: %w", err)
	}
	if ph.CreatedAt, err = parseTime(createdAt); err != nil {
		return photoshelf.Photo{}, fmt.Errorf("parse created_at: %w", err)
	}
	return ph, nil
}

// CreatePhoto relies on the (project_id, account_id) foreign key: a project
// that is missing or owned by someone else rejects the insert.
func (r *repo) CreatePhoto(ctx context.Context, in photoshelf.NewPhoto) (photoshelf.Photo, error) {
	ph := photoshelf.Photo{
		ID:           in.ID,
		BlobKey:      in.BlobKey,
		OriginalName: in.OriginalName,
		MimeType:     in.MimeType,
		SizeBytes:    in.SizeBytes,
		AccountID:    in.AccountID,
		ProjectID:    in.ProjectID,
		CreatedAt:    now(),
	}
	if ph.ID == uuid.Nil {
		ph.ID = uuid.New()
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, quoteIdentifier(r.tables.Photos), photoColumns)

	_, err := r.db.ExecContext(ctx, query,
		ph.ID.String(), ph.BlobKey, ph.OriginalName, ph.MimeType, ph.SizeBytes,
		ph.AccountID.String(), ph.ProjectID.String(), formatTime(ph.CreatedAt))
	if err != nil {
		return photoshelf.Photo{}, fmt.Errorf("create photo: %w", mapError(err))
	}
	return ph, nil
}

func (r *repo) GetPhoto(ctx context.Context, accountID, projectID, photoID uuid.UUID) (photoshelf.Photo, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE id = ? AND project_id = ? AND account_id = ?`,
		photoColumns, quoteIdentifier(r.tables.Photos))

	ph, err := scanPhoto(r.db.QueryRowContext(ctx, query, photoID.String(), projectID.String(), accountID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return photoshelf.Photo{}, fmt.Errorf("get photo: %w", photoshelf.ErrNotFound)
		}
		return photoshelf.Photo{}, fmt.Errorf("get photo: %w", err)
	}
	return ph, nil
}

func (r *repo) ListPhotos(ctx context.Context, accountID, projectID uuid.UUID, page photoshelf.Page) ([]photoshelf.Photo, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s
		WHERE project_id = ? AND account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		photoColumns, quoteIdentifier(r.tables.Photos))

	rows, err := r.db.QueryContext(ctx, query, projectID.String(), accountID.String(), page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

func (r *repo) DeletePhoto(ctx context.Context, accountID, photoID uuid.UUID) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE id = ? AND account_id = ?`, quoteIdentifier(r.tables.Photos))

	res, err := r.db.ExecContext(ctx, query, photoID.String(), accountID.String())
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}
