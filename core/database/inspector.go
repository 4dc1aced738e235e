package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo is one column as reported by SHOW COLUMNS (or PRAGMA table_info on sqlite).
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string
	Extra   string
}

// GetTableColumns retrieves the column definitions for a given table.
// Names and types are lowercased. A missing table yields no columns on sqlite
// and an error on mysql.
func GetTableColumns(ctx context.Context, db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	if db.Dialector.Name() == DriverSQLite {
		type sqliteColumn struct {
			Cid     int
			Name    string
			Type    string
			Notnull int
			Pk      int
		}
		var cols []sqliteColumn
		if err := db.WithContext(ctx).Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&cols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range cols {
			columns = append(columns, ColumnInfo{
				Field: strings.ToLower(col.Name),
				Type:  strings.ToLower(col.Type),
			})
		}
		return columns, nil
	}

	err := db.WithContext(ctx).Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// MissingColumns returns the entries of want that tableName does not have.
// Comparison is case-insensitive.
func MissingColumns(ctx context.Context, db *gorm.DB, tableName string, want []string) ([]string, error) {
	columns, err := GetTableColumns(ctx, db, tableName)
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[c.Field] = struct{}{}
	}

	var missing []string
	for _, w := range want {
		if _, ok := have[strings.ToLower(w)]; !ok {
			missing = append(missing, w)
		}
	}
	return missing, nil
}
