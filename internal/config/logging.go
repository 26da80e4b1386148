package config

// LoggingConfig configures the slog setup: console and rotating file
// handlers.
type LoggingConfig struct {
	// Level is the default minimum level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
	// Dir is where log files are written.
	Dir string `yaml:"dir"`

	Console  ConsoleLogConfig `yaml:"console"`
	File     FileLogConfig    `yaml:"file"`
	Rotation RotationConfig   `yaml:"rotation"`
}

// ConsoleLogConfig configures the stdout handler.
type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

// FileLogConfig configures the rotating file handlers.
type FileLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

// RotationConfig is passed through to lumberjack.
type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"` // megabytes
	MaxBackups int  `yaml:"max_backups"`
	MaxAge     int  `yaml:"max_age"` // days
	Compress   bool `yaml:"compress"`
}

// DefaultLoggingConfig returns console-only text logging at info level.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "text",
		Dir:    "logs",
		Console: ConsoleLogConfig{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		File: FileLogConfig{
			Enabled: false,
			Level:   "debug",
			Format:  "json",
		},
		Rotation: RotationConfig{
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
	}
}
