package source

import (
	"context"
	"fmt"
	"strings"

	"directory-sync/core/database"
	"directory-sync/core/reconcile"
	"directory-sync/feature/users/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads users from the HR database.
type Repository struct {
	db      *gorm.DB
	table   string
	columns map[reconcile.Field]string
	list    []string
}

// NewRepository creates a repository reading the table described by cfg.
func NewRepository(db *gorm.DB, cfg database.TableConfig) *Repository {
	return &Repository{
		db:      db,
		table:   cfg.TableName(models.SourceTable),
		columns: models.Columns(cfg),
		list:    models.ColumnList(cfg),
	}
}

// TableName returns the table users are read from.
func (r *Repository) TableName() string {
	return r.table
}

// Verify checks that the table has every configured column.
func (r *Repository) Verify(ctx context.Context) error {
	missing, err := database.MissingColumns(ctx, r.db, r.table, r.list)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns: %s", r.table, strings.Join(missing, ", "))
	}
	return nil
}

// FetchAll returns every user in table order.
func (r *Repository) FetchAll(ctx context.Context) ([]reconcile.User, error) {
	if r.db == nil {
		return nil, fmt.Errorf("source database not connected")
	}

	rows, err := r.db.WithContext(ctx).Table(r.table).Select(r.list).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.table, err)
	}
	scanned, err := database.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.table, err)
	}

	users := make([]reconcile.User, 0, len(scanned))
	for _, row := range scanned {
		users = append(users, models.FromRow(row, r.columns))
	}
	return users, nil
}

// Find returns the first user whose field equals value, or nil when none does.
func (r *Repository) Find(ctx context.Context, field reconcile.Field, value string) (*reconcile.User, error) {
	if r.db == nil {
		return nil, fmt.Errorf("source database not connected")
	}
	col, ok := r.columns[field]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", field)
	}

	rows, err := r.db.WithContext(ctx).Table(r.table).Select(r.list).
		Where(clause.Eq{Column: clause.Column{Name: col}, Value: value}).Limit(1).Rows()
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
