// Package models defines the user table layouts and the conversions between
// database rows and reconcile.User records.
//
// Column names are configurable per table (see database.TableConfig); the
// gorm models describe the default layout and are used to create local
// development tables.
package models
