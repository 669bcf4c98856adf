package datastore

import (
	"time"

	gorm_logger "gorm.io/gorm/logger"

	"github.com/wildcam-go/wildcam/internal/logger"
)

// slowQueryThreshold marks queries logged as slow by the gorm adapter.
const slowQueryThreshold = 200 * time.Millisecond

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// createGormLogger routes gorm's SQL logging into the datastore module logger.
func createGormLogger() gorm_logger.Interface {
	return logger.NewGormLoggerAdapter(GetLogger().Module("sql"), slowQueryThreshold)
}
