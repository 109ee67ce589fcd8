package config

import "time"

// Config represents the complete Magic configuration
type Config struct {
	BaseDir     string            `yaml:"-"` // Directory containing config file, for resolving relative paths
	Interpreter InterpreterConfig `yaml:"interpreter"`
	Logging     LoggingConfig     `yaml:"logging"`
	Data        DataConfig        `yaml:"data"`
	Files       FilesConfig       `yaml:"files"`
}

// InterpreterConfig holds control-flow limits
type InterpreterConfig struct {
	MaxWhileIterations int `yaml:"max_while_iterations"` // while loops fail on the iteration after this many
}

// LoggingConfig holds settings for the log.* slots
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, error
	Output string `yaml:"output"` // stdout, stderr, none, or file path
}

// DataConfig holds database connections for the data.* slots
type DataConfig struct {
	Default     string                      `yaml:"default"` // Connection used by data.connect without a name
	Connections map[string]ConnectionConfig `yaml:"connections"`
	CacheSize   int                         `yaml:"cache_size"` // Maximum pooled databases
	CacheTTL    time.Duration               `yaml:"cache_ttl"`  // Pooled databases are reopened after this long
}

// ConnectionConfig names a database driver and its data source
type ConnectionConfig struct {
	Driver string       `yaml:"driver"` // sqlite, postgres or mysql
	DSN    SecretString `yaml:"dsn"`    // Tag with !secret to hide it from logs
}

// FilesConfig holds the startup folder settings
type FilesConfig struct {
	Startup string `yaml:"startup"` // Folder of .hl files executed at startup
	Watch   bool   `yaml:"watch"`   // Re-execute startup files when they change
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Interpreter: InterpreterConfig{
			MaxWhileIterations: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
		Data: DataConfig{
			CacheSize: 100,
			CacheTTL:  30 * time.Minute,
		},
	}
}
