// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL (production) or SQLite
// (local runs and tests) connections from the application's configuration. The
// same package serves both the HR source database and, when the target kind is
// "database", the directory database.
//
// # Connect
//
// Connect opens the connection, applies pool settings and pings the server
// within the configured timeout.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns let repositories verify that their
// configured columns exist before a reconciliation pass starts. ScanRows reads
// raw rows into column maps for tables without a dedicated model.
//
// # Usage
//
//	db, err := database.Connect(cfg.Source.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(ctx, db, "employees", []string{"login", "email"})
package database
