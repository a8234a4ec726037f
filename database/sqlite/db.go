package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/database/internal"
)

func validateTableSchema(ctx context.Context, db *sql.DB, tableName string, expected internal.TableSchema) error {
	if !photoshelf.IsValidTableName(tableName) {
		return fmt.Errorf("validate table schema: invalid table name: %s", tableName)
	}

	exists, err := tableExists(ctx, db, tableName)
	if err != nil {
		return fmt.Errorf("validate table schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate table schema: table %s does not exist", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(tableName)))
	if err != nil {
		return fmt.Errorf("validate table schema: query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actual := make(internal.TableSchema)
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var dfltValue sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("validate table schema: scan column: %w", err)
		}
		actual[name] = internal.Column{
			DataType:   strings.ToLower(dataType),
			IsNullable: notNull == 0,
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate table schema: rows error: %w", err)
	}

	return internal.DiffColumns(tableName, expected, actual)
}

func tableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, tableName).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return true, nil
}

var accountsTableSchema = internal.TableSchema{
	"id":            {DataType: "text"},
	"name":          {DataType: "text"},
	"email":         {DataType: "text"},
	"password_hash": {DataType: "text"},
	"created_at":    {DataType: "text"},
}

var projectsTableSchema = internal.TableSchema{
	"id":          {DataType: "text"},
	"account_id":  {DataType: "text"},
	"name":        {DataType: "text"},
	"description": {DataType: "text", IsNullable: true},
	"created_at":  {DataType: "text"},
}

var photosTableSchema = internal.TableSchema{
	"id":            {DataType: "text"},
	"blob_key":      {DataType: "text"},
	"original_name": {DataType: "text"},
	"mime_type":     {DataType: "text"},
	"size_bytes":    {DataType: "integer"},
	"account_id":    {DataType: "text"},
	"project_id":    {DataType: "text"},
	"created_at":    {DataType: "text"},
}

// ValidateSchema checks every table and that foreign keys are enforced on the connection.
func ValidateSchema(ctx context.Context, db *sql.DB, tables photoshelf.Tables) error {
	validations := []struct {
		tableName string
		schema    internal.TableSchema
	}{
		{tables.Accounts, accountsTableSchema},
		{tables.Projects, projectsTableSchema},
		{tables.Photos, photosTableSchema},
	}

	for _, v := range validations {
		if err := validateTableSchema(ctx, db, v.tableName, v.schema); err != nil {
			return fmt.Errorf("validate schema %s: %w", v.tableName, err)
		}
	}

	var fk int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		return fmt.Errorf("validate schema: read foreign_keys pragma: %w", err)
	}
	if fk != 1 {
		return errors.New("validate schema: foreign keys are not enforced")
	}

	return nil
}
