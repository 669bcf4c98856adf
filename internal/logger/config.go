package logger

import "time"

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"defaultlevel" json:"default_level" mapstructure:"defaultlevel"` // default log level for all modules
	Timezone     string            `yaml:"timezone" json:"timezone" mapstructure:"timezone"`               // "Local", "UTC", or IANA name like "Europe/Helsinki"
	Console      *ConsoleOutput    `yaml:"console" json:"console" mapstructure:"console"`
	FileOutput   *FileOutput       `yaml:"fileoutput" json:"file_output" mapstructure:"fileoutput"`
	ModuleLevels map[string]string `yaml:"modulelevels" json:"module_levels" mapstructure:"modulelevels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output is human-readable text without timestamps; the
// execution environment (journald, Docker) adds them.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// FileOutput represents file logging configuration.
// File output is JSON with RFC3339 timestamps in the configured timezone.
type FileOutput struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Path          string        `yaml:"path" json:"path" mapstructure:"path"`
	Level         string        `yaml:"level" json:"level" mapstructure:"level"`
	BufferSize    int           `yaml:"buffersize" json:"buffer_size" mapstructure:"buffersize"`          // bytes; 0 uses DefaultBufferSize
	FlushInterval time.Duration `yaml:"flushinterval" json:"flush_interval" mapstructure:"flushinterval"` // 0 uses DefaultFlushInterval, negative disables auto-flush
}

// writerOptions maps the file output settings to buffered writer options.
func (f *FileOutput) writerOptions() []BufferedWriterOption {
	var opts []BufferedWriterOption
	if f.BufferSize > 0 {
		opts = append(opts, WithBufferSize(f.BufferSize))
	}
	switch {
	case f.FlushInterval > 0:
		opts = append(opts, WithFlushInterval(f.FlushInterval))
	case f.FlushInterval < 0:
		opts = append(opts, WithFlushInterval(0))
	}
	return opts
}

// Default values for logging configuration.
// These match the defaults in conf/defaults.go.
const (
	DefaultLogLevel       = "info"
	DefaultLogPath        = "logs/wildcam.log"
	DefaultConsoleEnabled = true
	DefaultFileEnabled    = false
)

// applyConfigDefaults fills in nil sections so a partial config still logs
// to the console.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   cfg.DefaultLevel,
		}
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Enabled: DefaultFileEnabled,
			Path:    DefaultLogPath,
			Level:   cfg.DefaultLevel,
		}
	}

	if cfg.ModuleLevels == nil {
		cfg.ModuleLevels = make(map[string]string)
	}
}
