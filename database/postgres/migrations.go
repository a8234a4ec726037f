package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/photoshelf"
)

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, pool *pgxpool.Pool) error
	Down      func(ctx context.Context, pool *pgxpool.Pool) error
}

func getTableMigrations(tables photoshelf.Tables) []TableMigration {
	return []TableMigration{
		{TableName: tables.Accounts, Up: createAccountsTable(tables), Down: dropTable(tables.Accounts)},
		{TableName: tables.Projects, Up: createProjectsTable(tables), Down: dropTable(tables.Projects)},
		{TableName: tables.Photos, Up: createPhotosTable(tables), Down: dropTable(tables.Photos)},
	}
}

// Migrate creates all tables in dependency order.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables photoshelf.Tables) error {
	for _, m := range getTableMigrations(tables) {
		if err := m.Up(ctx, pool); err != nil {
			return fmt.Errorf("migrate up %s: %w", m.TableName, err)
		}
	}
	return nil
}

// DropTables removes all tables in reverse dependency order.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables photoshelf.Tables) error {
	migrations := getTableMigrations(tables)
	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].Down(ctx, pool); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].TableName, err)
		}
	}
	return nil
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func createAccountsTable(tables photoshelf.Tables) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`, ident(tables.Accounts))

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create accounts table: %w", err)
		}
		return nil
	}
}

// createProjectsTable declares UNIQUE (id, account_id) so photos can reference
// the pair and inherit the project's owner.
func createProjectsTable(tables photoshelf.Tables) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quoted := ident(tables.Projects)
		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				account_id UUID NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (id, account_id)
			);

			CREATE INDEX IF NOT EXISTS %s
			ON %s (account_id, created_at DESC, id DESC);
		`,
			quoted, ident(tables.Accounts),
			ident("idx_"+tables.Projects+"_account_created"), quoted,
		)

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create projects table: %w", err)
		}
		return nil
	}
}

func createPhotosTable(tables photoshelf.Tables) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quoted := ident(tables.Photos)
		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				blob_key TEXT NOT NULL UNIQUE,
				original_name TEXT NOT NULL,
				mime_type TEXT NOT NULL,
				size_bytes BIGINT NOT NULL,
				account_id UUID NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
				project_id UUID NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				FOREIGN KEY (project_id, account_id) REFERENCES %s (id, account_id) ON DELETE CASCADE
			);

			CREATE INDEX IF NOT EXISTS %s
			ON %s (project_id, account_id, created_at DESC, id DESC);

			CREATE INDEX IF NOT EXISTS %s
			ON %s (account_id);
		`,
			quoted, ident(tables.Accounts), ident(tables.Projects),
			ident("idx_"+tables.Photos+"_project_created"), quoted,
			ident("idx_"+tables.Photos+"_account"), quoted,
		)

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create photos table: %w", err)
		}
		return nil
	}
}

func dropTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", ident(tableName)))
		return err
	}
}
