package database

import "fmt"

// TableConfig describes the table holding user rows and how user fields map
// to its columns.
type TableConfig struct {
	// Name is the table name. Adapters apply their own default when empty.
	Name string `mapstructure:"name" default:""`
	// Columns maps user field names to column names, e.g. "sam_account_name=login".
	// Fields without an entry use the field name as column name.
	Columns map[string]string `mapstructure:"columns" default:""`
}

// Column returns the column name configured for field, falling back to the field name.
func (t TableConfig) Column(field string) string {
	if col, ok := t.Columns[field]; ok && col != "" {
		return col
	}
	return field
}

// TableName returns the configured table name or fallback when unset.
func (t TableConfig) TableName(fallback string) string {
	if t.Name != "" {
		return t.Name
	}
	return fallback
}

// Validate rejects column names that cannot be used as plain identifiers.
func (t TableConfig) Validate() error {
	for field, col := range t.Columns {
		if col != "" && !isIdentifier(col) {
			return fmt.Errorf("invalid column %q for field %s", col, field)
		}
	}
	if t.Name != "" && !isIdentifier(t.Name) {
		return fmt.Errorf("invalid table name %q", t.Name)
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
