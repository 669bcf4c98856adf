// Package conf provides configuration management for WildCam.
package conf

import "github.com/wildcam-go/wildcam/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// It is fetched from the global logger on each call since the central
// logger is installed after settings are loaded.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
