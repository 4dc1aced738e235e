// Package source reads users from the authoritative HR database.
//
// The table and its column names come from database.TableConfig so the
// repository can read existing HR schemas without a dedicated model.
package source
