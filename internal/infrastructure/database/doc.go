// Package database provides the SQLite connection used for local engine state.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Versioned schema migrations read from an fs.FS
//
// The engine persists only small operator choices here (feature flags and the
// remembered heating mode); live values are never written to SQLite.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//	store := flags.NewSQLiteStore(db.DB)
//
// Migration files live in the top-level migrations directory and are named
// YYYYMMDD_HHMMSS_description.up.sql with an optional matching .down.sql.
package database
