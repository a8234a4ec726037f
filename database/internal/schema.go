// Package internal holds helpers shared by the metadata backends.
package internal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Column describes the expected shape of one table column.
type Column struct {
	DataType   string
	IsNullable bool
}

// TableSchema maps column names to their expected shape.
type TableSchema map[string]Column

// DiffColumns compares the columns found in the database against the expected
// schema and reports every missing or mismatched column in one error.
// Extra columns are allowed.
func DiffColumns(tableName string, expected, actual TableSchema) error {
	var missing, mismatched []string

	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		want := expected[name]
		got, ok := actual[name]
		if !ok {
			missing = append(missing, name)
			continue
		}

		if got.DataType != want.DataType {
			mismatched = append(mismatched,
				fmt.Sprintf("%s: expected %s, got %s", name, want.DataType, got.DataType))
		}
		if got.IsNullable != want.IsNullable {
			mismatched = append(mismatched,
				fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", name, want.IsNullable, got.IsNullable))
		}
	}

	if len(missing) == 0 && len(mismatched) == 0 {
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "table %s schema validation failed:\n", tableName)
	if len(missing) > 0 {
		fmt.Fprintf(&msg, "  missing columns: %s\n", strings.Join(missing, ", "))
	}
	if len(mismatched) > 0 {
		fmt.Fprintf(&msg, "  mismatched columns:\n")
		for _, m := range mismatched {
			fmt.Fprintf(&msg, "    - %s\n", m)
		}
	}

	return errors.New(msg.String())
}
