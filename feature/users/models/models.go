package models

import (
	"strings"
	"time"

	"directory-sync/core/database"
	"directory-sync/core/reconcile"
	"directory-sync/core/utils"
)

// Default table names used when the configuration names none.
const (
	SourceTable    = "users"
	DirectoryTable = "directory_users"
)

// Attributes are the user columns shared by source and directory tables.
// NULL columns map to absent values.
type Attributes struct {
	SamAccountName *string `gorm:"column:sam_account_name;size:256;uniqueIndex"`
	FirstName      *string `gorm:"column:first_name;size:256"`
	LastName       *string `gorm:"column:last_name;size:256"`
	Email          *string `gorm:"column:email;size:320"`
}

// SourceUser is a row of the HR user table.
type SourceUser struct {
	ID         uint `gorm:"primaryKey"`
	Attributes `gorm:"embedded"`
}

// TableName overrides the table name used by SourceUser to `users`.
func (SourceUser) TableName() string {
	return SourceTable
}

// DirectoryUser is a row of the directory table.
type DirectoryUser struct {
	ID         uint `gorm:"primaryKey"`
	Attributes `gorm:"embedded"`
	UpdatedAt  time.Time
}

// TableName overrides the table name used by DirectoryUser to `directory_users`.
func (DirectoryUser) TableName() string {
	return DirectoryTable
}

// Columns maps every user field to its column in table.
func Columns(table database.TableConfig) map[reconcile.Field]string {
	cols := make(map[reconcile.Field]string, len(reconcile.Fields))
	for _, f := range reconcile.Fields {
		cols[f] = table.Column(string(f))
	}
	return cols
}

// ColumnList returns the columns of Columns(table) in field order.
func ColumnList(table database.TableConfig) []string {
	out := make([]string, 0, len(reconcile.Fields))
	for _, f := range reconcile.Fields {
		out = append(out, table.Column(string(f)))
	}
	return out
}

// FromRow builds a user from a scanned row. Row keys are lowercase column
// names; a column missing from the row yields an absent value.
func FromRow(row map[string]any, columns map[reconcile.Field]string) reconcile.User {
	var u reconcile.User
	for _, f := range reconcile.Fields {
		raw, ok := row[strings.ToLower(columns[f])]
		if !ok {
			continue
		}
		if s, valid := utils.ToNullableString(raw); valid {
			u = u.With(f, reconcile.Some(s))
		}
	}
	return u
}

// UpdateValues returns the column assignments writing u.
func UpdateValues(u reconcile.User, columns map[reconcile.Field]string) map[string]any {
	values := make(map[string]any, len(columns))
	for _, f := range reconcile.Fields {
		v, _ := u.Get(f)
		if v.Valid {
			values[columns[f]] = v.String
		} else {
			values[columns[f]] = nil
		}
	}
	return values
}
