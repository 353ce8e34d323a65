// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL, PostgreSQL or SQLite
// connections based on the application's configuration. SQLite uses the pure-Go
// glebarez driver, so tests can run against an in-memory database without cgo.
//
// # Connect
//
// Connect opens the database, tunes the connection pool and pings it within the
// configured timeout. Migrate runs GORM AutoMigrate for the models owned by the
// feature packages (ledger, snapshot, sellers, events).
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns let the integrity feature verify that the
// pipeline tables carry the columns the code expects.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, "processed_files", []string{"file_hash"})
package database
