package directory

import (
	"context"
	"fmt"

	"directory-sync/core/database"
	"directory-sync/core/reconcile"
	"directory-sync/feature/users/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBRepository is a directory kept in a database table.
type DBRepository struct {
	db      *gorm.DB
	table   string
	key     reconcile.Field
	columns map[reconcile.Field]string
	list    []string
}

// NewDBRepository creates a directory over the table described by cfg.
// Users are looked up and updated by the key field.
func NewDBRepository(db *gorm.DB, cfg database.TableConfig, key reconcile.Field) *DBRepository {
	return &DBRepository{
		db:      db,
		table:   cfg.TableName(models.DirectoryTable),
		key:     key,
		columns: models.Columns(cfg),
		list:    models.ColumnList(cfg),
	}
}

// TableName returns the directory table.
func (r *DBRepository) TableName() string {
	return r.table
}

// Verify checks that the table has every configured column.
func (r *DBRepository) Verify(ctx context.Context) error {
	missing, err := database.MissingColumns(ctx, r.db, r.table, r.list)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns: %v", r.table, missing)
	}
	return nil
}

// Resolve returns the directory entry whose key column equals identifier,
// or nil when there is none. An empty identifier never matches.
func (r *DBRepository) Resolve(ctx context.Context, identifier string) (*reconcile.User, error) {
	if identifier == "" {
		return nil, nil
	}
	rows, err := r.db.WithContext(ctx).Table(r.table).Select(r.list).
		Where(clause.Eq{Column: clause.Column{Name: r.columns[r.key]}, Value: identifier}).
		Limit(1).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.table, err)
	}
	scanned, err := database.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.table, err)
	}
	if len(scanned) == 0 {
		return nil, nil
	}
	u := models.FromRow(scanned[0], r.columns)
	return &u, nil
}

// Persist overwrites the entry matching user's key with user's values.
// Absent values are written as NULL.
func (r *DBRepository) Persist(ctx context.Context, user reconcile.User) error {
	key, _ := user.Get(r.key)
	if !key.Valid {
		return fmt.Errorf("user has no %s", r.key)
	}

	result := r.db.WithContext(ctx).Table(r.table).
		Where(clause.Eq{Column: clause.Column{Name: r.columns[r.key]}, Value: key.String}).
		Updates(models.UpdateValues(user, r.columns))
	if result.Error != nil {
		return fmt.Errorf("failed to update %s in %s: %w", key.String, r.table, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no entry %s in %s", key.String, r.table)
	}
	return nil
}
