// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/wildcam-go/wildcam/internal/logger"
)

// DefaultConfidenceThreshold matches the engine default of 70 percent
const DefaultConfidenceThreshold = 70

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.defaultlevel", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.fileoutput.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.fileoutput.path", logger.DefaultLogPath)
	v.SetDefault("logging.fileoutput.level", logger.DefaultLogLevel)
	v.SetDefault("logging.fileoutput.buffersize", logger.DefaultBufferSize)
	v.SetDefault("logging.fileoutput.flushinterval", logger.DefaultFlushInterval)

	v.SetDefault("webserver.host", "")
	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.debug", false)
	v.SetDefault("webserver.shutdowntimeout", 10*time.Second)
	v.SetDefault("webserver.allowedorigins", []string{"*"})
	v.SetDefault("webserver.bodylimit", "1M")

	v.SetDefault("engine.timezone", "Local")
	v.SetDefault("engine.defaultthreshold", DefaultConfidenceThreshold)

	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup", 10*time.Minute)

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "data/wildcam.db")

	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.username", "wildcam")
	v.SetDefault("output.mysql.password", "")
	v.SetDefault("output.mysql.database", "wildcam")
	v.SetDefault("output.mysql.host", "localhost")
	v.SetDefault("output.mysql.port", "3306")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.samplerate", 1.0)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientid", "wildcam")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "wildcam/detections")
	v.SetDefault("mqtt.feedbacktopic", "wildcam/feedback")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("seed.demo", false)
}
