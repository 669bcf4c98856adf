// config.go: settings struct for WildCam and the functions that load and save it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

const (
	appName   = "wildcam"
	envPrefix = "WILDCAM"
	osWindows = "windows"
)

// WebServerSettings contains settings for the HTTP API server
type WebServerSettings struct {
	Host            string        // interface to bind, empty for all
	Port            string        // port to listen on
	Debug           bool          // true to enable request logging at debug level
	ShutdownTimeout time.Duration // grace period for in-flight requests on shutdown
	AllowedOrigins  []string      // CORS origins, "*" for any
	BodyLimit       string        // maximum request body size, e.g. "1M"
}

// Address returns host:port for the listener
func (w WebServerSettings) Address() string {
	return w.Host + ":" + w.Port
}

// EngineSettings configures the detection query engine
type EngineSettings struct {
	Timezone         string // zone for zone-less timestamps and "today", "Local" or IANA name
	DefaultThreshold int    // confidence threshold percent used when a query omits it
}

// Location resolves the configured timezone
func (e EngineSettings) Location() (*time.Location, error) {
	switch e.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(e.Timezone)
	}
}

// CacheSettings controls the query result cache
type CacheSettings struct {
	TTL     time.Duration // lifetime of a cached query result
	Cleanup time.Duration // interval of expired entry eviction
}

// SQLiteSettings contains settings for the SQLite database output
type SQLiteSettings struct {
	Enabled bool   // true to use SQLite as the detection store
	Path    string // path to the database file, ":memory:" for an in-memory store
}

// MySQLSettings contains settings for the MySQL database output
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// DSN returns the go-sql-driver connection string
func (m MySQLSettings) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

// OutputSettings selects the detection store backend
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// SentrySettings contains error telemetry settings
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

// MQTTSettings contains settings for the MQTT detection feed.
type MQTTSettings struct {
	Enabled       bool   // true to subscribe to camera detections over MQTT
	Broker        string // MQTT (tcp://host:port)
	ClientID      string // client identifier presented to the broker
	Username      string // MQTT username
	Password      string // MQTT password
	Topic         string // topic cameras publish detections to
	FeedbackTopic string // topic prefix for stored feedback, empty to disable
	QoS           byte   // 0, 1 or 2
}

// SeedSettings controls demo data insertion on startup
type SeedSettings struct {
	Demo bool // insert the six reference detections when the store is empty
}

// Settings contains all configuration options for WildCam.
type Settings struct {
	Debug bool // true to enable debug mode

	Logging   logger.LoggingConfig
	WebServer WebServerSettings
	Engine    EngineSettings
	Cache     CacheSettings
	Output    OutputSettings
	Sentry    SentrySettings
	MQTT      MQTTSettings
	Seed      SeedSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into the
// global settings. An empty configFile searches the default paths and
// writes the embedded default config when none exists.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := load(viper.GetViper(), configFile, true)
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// load reads settings through v. It never touches the global instance.
func load(v *viper.Viper, configFile string, createIfMissing bool) (*Settings, error) {
	if err := initViper(v, configFile, createIfMissing); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_settings").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper registers defaults, env overrides and reads the configuration file.
func initViper(v *viper.Viper, configFile string, createIfMissing bool) error {
	setDefaultConfig(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := validateEnvOverrides(); err != nil {
		GetLogger().Warn("ignoring invalid environment overrides", logger.Error(err))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(err).
				Category(errors.CategoryConfiguration).
				Context("config_file", configFile).
				Build()
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			if !createIfMissing {
				return nil
			}
			return createDefaultConfig(v)
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml to the user config directory
func createDefaultConfig(v *viper.Viper) error {
	configDir, err := userConfigDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil { //nolint:gosec // config is not secret by default
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	v.SetConfigFile(configPath)
	return v.ReadInConfig()
}

// getDefaultConfig returns the embedded default config.yaml.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// embedded at build time, cannot be missing
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading defaults if necessary
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(""); err != nil {
				GetLogger().Error("failed to load settings", logger.Error(err))
				os.Exit(1)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig writes settings to configPath atomically via a temp file.
// Comments in an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer func() { _ = os.Remove(tempFileName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error moving temporary file: %w", err)
	}

	return nil
}

// userConfigDir is where a default config is created
func userConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}
	if runtime.GOOS == osWindows {
		return filepath.Join(homeDir, "AppData", "Roaming", appName), nil
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// If one of them already holds a config.yaml only that one is returned.
func GetDefaultConfigPaths() ([]string, error) {
	userDir, err := userConfigDir()
	if err != nil {
		return nil, err
	}

	configPaths := []string{".", userDir}
	if runtime.GOOS != osWindows {
		configPaths = append(configPaths, filepath.Join("/etc", appName))
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// FindConfigFile locates the configuration file.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Category(errors.CategoryFileIO).
		Context("operation", "find-config-file").
		Build()
}
