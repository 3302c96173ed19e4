package database

import (
	"fmt"
	"log/slog"
)

const SQLiteType = "sqlite"

func NewDatabase(databaseType, connectionString string) (database DatabaseService, err error) {
	switch databaseType {
	case SQLiteType:
		database, err = NewSQLiteDatabase(connectionString)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}

	if !database.DoesDatabaseExist() {
		_ = database.Close()
		return nil, fmt.Errorf("%s database at %q is not reachable", databaseType, connectionString)
	}

	// Ensure database schema exists (idempotent), important for in-memory SQLite
	slog.Info("initializing database schema (ensuring tables exist)", "type", databaseType)
	if _, err = database.CreateDatabase(); err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}
