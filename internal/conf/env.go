// env.go - environment variable overrides
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envBinding holds metadata for a validated environment override
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

// EnvVarName returns the environment variable that overrides a config key.
func EnvVarName(configKey string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(configKey, ".", "_"))
}

// getEnvBindings returns the overrides that are checked before use
func getEnvBindings() []envBinding {
	bind := func(key string, validate func(string) error) envBinding {
		return envBinding{ConfigKey: key, EnvVar: EnvVarName(key), Validate: validate}
	}
	return []envBinding{
		bind("debug", validateEnvBool),
		bind("webserver.port", validateEnvPort),
		bind("engine.timezone", validateEnvTimezone),
		bind("engine.defaultthreshold", validateEnvThreshold),
		bind("cache.ttl", validateEnvDuration),
		bind("output.sqlite.enabled", validateEnvBool),
		bind("output.mysql.enabled", validateEnvBool),
		bind("output.mysql.port", validateEnvPort),
		bind("sentry.enabled", validateEnvBool),
		bind("seed.demo", validateEnvBool),
	}
}

// validateEnvOverrides reports every set override with an invalid value
func validateEnvOverrides() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		value := os.Getenv(binding.EnvVar)
		if value == "" || binding.Validate == nil {
			continue
		}
		if err := binding.Validate(value); err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	_, err := strconv.ParseBool(value)
	return err
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validateEnvTimezone(value string) error {
	_, err := EngineSettings{Timezone: value}.Location()
	return err
}

func validateEnvThreshold(value string) error {
	threshold, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if threshold < 0 || threshold > 100 {
		return fmt.Errorf("threshold must be between 0 and 100")
	}
	return nil
}

func validateEnvDuration(value string) error {
	_, err := time.ParseDuration(value)
	return err
}
