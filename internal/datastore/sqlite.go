package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/logger"
)

// inMemoryPath selects a private in-memory SQLite database.
const inMemoryPath = ":memory:"

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings == nil || settings.Output.SQLite.Path == "" {
		return validationError("sqlite path must not be empty", "output.sqlite.path", "")
	}
	return nil
}

// Open sets up the SQLite database connection and migrates the schema.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	path := store.Settings.Output.SQLite.Path
	if path != inMemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.New(err).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Context("path", dir).
					Build()
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		return dbError(err, "open", errors.PriorityCritical, "db_type", "SQLite", "path", path)
	}

	// Every pooled connection to :memory: would see its own empty database
	if path == inMemoryPath {
		sqlDB, err := db.DB()
		if err != nil {
			return dbError(err, "open", errors.PriorityCritical, "db_type", "SQLite")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	store.DB = db
	GetLogger().Info("opened SQLite detection store", logger.String("path", path))
	return store.performAutoMigration("SQLite")
}

// Close closes the SQLite database connection.
func (store *SQLiteStore) Close() error {
	return store.closeDB("SQLite")
}
