package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/database/internal"
)

func validateTableSchema(ctx context.Context, pool *pgxpool.Pool, tableName string, expected internal.TableSchema) error {
	if !photoshelf.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, pool, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer rows.Close()

	actual := make(internal.TableSchema)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actual[name] = internal.Column{
			DataType:   strings.ToLower(dataType),
			IsNullable: nullable == "YES",
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	return internal.DiffColumns(tableName, expected, actual)
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = current_schema()
			AND table_name = $1
		)
	`
	if err := pool.QueryRow(ctx, query, tableName).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}

const timestamptz = "timestamp with time zone"

var accountsTableSchema = internal.TableSchema{
	"id":            {DataType: "uuid"},
	"name":          {DataType: "text"},
	"email":         {DataType: "text"},
	"password_hash": {DataType: "text"},
	"created_at":    {DataType: timestamptz},
}

var projectsTableSchema = internal.TableSchema{
	"id":          {DataType: "uuid"},
	"account_id":  {DataType: "uuid"},
	"name":        {DataType: "text"},
	"description": {DataType: "text", IsNullable: true},
	"created_at":  {DataType: timestamptz},
}

var photosTableSchema = internal.TableSchema{
	"id":            {DataType: "uuid"},
	"blob_key":      {DataType: "text"},
	"original_name": {DataType: "text"},
	"mime_type":     {DataType: "text"},
	"size_bytes":    {DataType: "bigint"},
	"account_id":    {DataType: "uuid"},
	"project_id":    {DataType: "uuid"},
	"created_at":    {DataType: timestamptz},
}

// ValidateSchema checks the columns of every table.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables photoshelf.Tables) error {
	validations := []struct {
		tableName string
		schema    internal.TableSchema
	}{
		{tables.Accounts, accountsTableSchema},
		{tables.Projects, projectsTableSchema},
		{tables.Photos, photosTableSchema},
	}

	for _, v := range validations {
		if err := validateTableSchema(ctx, pool, v.tableName, v.schema); err != nil {
			return fmt.Errorf("validate schema %s: %w", v.tableName, err)
		}
	}
	return nil
}
