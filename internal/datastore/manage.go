package datastore

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/logger"
	"github.com/wildcam-go/wildcam/internal/observability/metrics"
)

// models lists the tables managed by auto-migration, in dependency order.
func models() []any {
	return []any{&Detection{}, &Feedback{}, &AlertLog{}, &WriteRevision{}}
}

// performAutoMigration brings the schema up to date for every model.
func (ds *DataStore) performAutoMigration(dbType string) (err error) {
	start := time.Now()
	defer func() { err = ds.track(metrics.OpMigrate, start, err) }()

	migrationLogger := GetLogger().With(logger.String("db_type", dbType))
	migrationLogger.Debug("starting database migration")

	for _, model := range models() {
		if err := ds.DB.AutoMigrate(model); err != nil {
			return dbError(err, metrics.OpMigrate, errors.PriorityCritical,
				"db_type", dbType,
				"table", tableName(ds.DB, model))
		}
	}

	if err := ds.DB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&WriteRevision{Name: detectionsRevision}).Error; err != nil {
		return dbError(err, metrics.OpMigrate, errors.PriorityCritical,
			"db_type", dbType,
			"table", tableName(ds.DB, &WriteRevision{}))
	}

	migrationLogger.Debug("database migration completed",
		logger.Duration("total_duration", time.Since(start)),
		logger.Int("tables_migrated", len(models())))
	return nil
}

// tableName resolves the table gorm uses for a model.
func tableName(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return "unknown"
	}
	return stmt.Schema.Table
}
