package datastore

import (
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/logger"
	"github.com/wildcam-go/wildcam/internal/privacy"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	if settings == nil {
		return validationError("mysql settings are required", "output.mysql", nil)
	}
	m := settings.Output.MySQL
	var missing []string
	if m.Host == "" {
		missing = append(missing, "host")
	}
	if m.Port == "" {
		missing = append(missing, "port")
	}
	if m.Username == "" {
		missing = append(missing, "username")
	}
	if m.Database == "" {
		missing = append(missing, "database")
	}
	if len(missing) > 0 {
		return validationError("mysql settings incomplete", "output.mysql", strings.Join(missing, ", "))
	}
	return nil
}

// Open sets up the MySQL database connection and migrates the schema.
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	m := store.Settings.Output.MySQL
	mysqlLogger := GetLogger().Module("mysql")

	mysqlLogger.Debug("connecting to MySQL", logger.String("dsn", privacy.RedactDSN(m.DSN())))

	db, err := gorm.Open(mysql.Open(m.DSN()), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		// Driver errors may echo the DSN
		err = privacy.RedactError(err, m.Password)
		mysqlLogger.Error("failed to open MySQL database",
			logger.String("host", m.Host),
			logger.String("port", m.Port),
			logger.String("database", m.Database),
			logger.Error(err))
		return dbError(err, "open", errors.PriorityCritical,
			"db_type", "MySQL",
			"host", m.Host,
			"database", m.Database)
	}

	store.DB = db
	mysqlLogger.Info("opened MySQL detection store",
		logger.String("host", m.Host),
		logger.String("database", m.Database))
	return store.performAutoMigration("MySQL")
}

// Close closes the MySQL database connection.
func (store *MySQLStore) Close() error {
	return store.closeDB("MySQL")
}
