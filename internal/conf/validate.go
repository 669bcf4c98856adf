// conf/validate.go

package conf

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateWebServerSettings,
		validateEngineSettings,
		validateCacheSettings,
		validateOutputSettings,
		validateSentrySettings,
		validateMQTTSettings,
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *Settings) error {
	if err := validateEnvPort(settings.WebServer.Port); err != nil {
		return fmt.Errorf("webserver.port %q: %w", settings.WebServer.Port, err)
	}
	if settings.WebServer.ShutdownTimeout < 0 {
		return fmt.Errorf("webserver.shutdowntimeout must not be negative")
	}
	return nil
}

func validateEngineSettings(settings *Settings) error {
	if _, err := settings.Engine.Location(); err != nil {
		return fmt.Errorf("engine.timezone %q: %w", settings.Engine.Timezone, err)
	}
	if err := validateEnvThreshold(strconv.Itoa(settings.Engine.DefaultThreshold)); err != nil {
		return fmt.Errorf("engine.defaultthreshold: %w", err)
	}
	return nil
}

func validateCacheSettings(settings *Settings) error {
	if settings.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if settings.Cache.Cleanup <= 0 {
		return fmt.Errorf("cache.cleanup must be positive")
	}
	return nil
}

// validateOutputSettings requires exactly one detection store backend
func validateOutputSettings(settings *Settings) error {
	sqlite := settings.Output.SQLite
	mysql := settings.Output.MySQL

	switch {
	case sqlite.Enabled && mysql.Enabled:
		return fmt.Errorf("output.sqlite and output.mysql cannot both be enabled")
	case !sqlite.Enabled && !mysql.Enabled:
		return fmt.Errorf("one of output.sqlite or output.mysql must be enabled")
	case sqlite.Enabled && strings.TrimSpace(sqlite.Path) == "":
		return fmt.Errorf("output.sqlite.path is required")
	case mysql.Enabled:
		var missing []string
		for _, field := range [][2]string{
			{"host", mysql.Host},
			{"port", mysql.Port},
			{"username", mysql.Username},
			{"database", mysql.Database},
		} {
			if strings.TrimSpace(field[1]) == "" {
				missing = append(missing, field[0])
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("output.mysql is missing %s", strings.Join(missing, ", "))
		}
	}
	return nil
}

func validateSentrySettings(settings *Settings) error {
	if !settings.Sentry.Enabled {
		return nil
	}
	if settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	if settings.Sentry.SampleRate < 0 || settings.Sentry.SampleRate > 1 {
		return fmt.Errorf("sentry.samplerate must be between 0 and 1")
	}
	return nil
}

func validateMQTTSettings(settings *Settings) error {
	mqtt := settings.MQTT
	if !mqtt.Enabled {
		return nil
	}
	if strings.TrimSpace(mqtt.Broker) == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if strings.TrimSpace(mqtt.Topic) == "" {
		return fmt.Errorf("mqtt.topic is required when mqtt is enabled")
	}
	if strings.ContainsAny(mqtt.FeedbackTopic, "+#") {
		return fmt.Errorf("mqtt.feedbacktopic must not contain wildcards")
	}
	if mqtt.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}
