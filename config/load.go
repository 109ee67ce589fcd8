package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// Defaults() when no file exists.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// The path is empty when defaults were used.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg := Defaults()
		if wd, err := os.Getwd(); err == nil {
			cfg.BaseDir = wd
		}
		return cfg, "", nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(interpolateEnv(data, getenv), filepath.Dir(absPath))
	if err != nil {
		return nil, "", err
	}
	return cfg, absPath, nil
}

// Parse decodes YAML over Defaults(), resolves relative paths against
// baseDir and validates the result.
func Parse(data []byte, baseDir string) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir
	resolvePaths(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolvePaths(cfg *Config) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(cfg.BaseDir, p)
	}

	cfg.Files.Startup = abs(cfg.Files.Startup)

	switch cfg.Logging.Output {
	case "", "stdout", "stderr", "none":
	default:
		cfg.Logging.Output = abs(cfg.Logging.Output)
	}

	// sqlite data sources are file paths
	for name, c := range cfg.Data.Connections {
		dsn := c.DSN.Value()
		if c.Driver != "sqlite" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
			continue
		}
		c.DSN.raw = abs(dsn)
		cfg.Data.Connections[name] = c
	}
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > MAGIC_CONFIG env > ./magic.yaml > ~/.config/magic/magic.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("MAGIC_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("MAGIC_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("magic.yaml"); err == nil {
		return "magic.yaml", nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "magic", "magic.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

var validDrivers = map[string]bool{"sqlite": true, "postgres": true, "mysql": true}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Interpreter.MaxWhileIterations < 1 {
		errs = append(errs, fmt.Sprintf("interpreter.max_while_iterations: %d (must be at least 1)", cfg.Interpreter.MaxWhileIterations))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, or error)", cfg.Logging.Level))
	}

	names := make([]string, 0, len(cfg.Data.Connections))
	for name := range cfg.Data.Connections {
		names = append(names, name)
	}
	// stable error order
	sort.Strings(names)
	for _, name := range names {
		c := cfg.Data.Connections[name]
		if !validDrivers[c.Driver] {
			errs = append(errs, fmt.Sprintf("data.connections.%s: unknown driver %q (must be sqlite, postgres, or mysql)", name, c.Driver))
		}
		if c.DSN.Value() == "" {
			errs = append(errs, fmt.Sprintf("data.connections.%s: dsn is required", name))
		}
	}
	if cfg.Data.Default != "" {
		if _, ok := cfg.Data.Connections[cfg.Data.Default]; !ok {
			errs = append(errs, fmt.Sprintf("data.default: no connection named %q", cfg.Data.Default))
		}
	}
	if cfg.Data.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("data.cache_size: %d (must be at least 1)", cfg.Data.CacheSize))
	}

	if cfg.Files.Watch && cfg.Files.Startup == "" {
		errs = append(errs, "files.watch requires files.startup")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
