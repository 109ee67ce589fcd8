package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInterpolateEnv(t *testing.T) {
	env := map[string]string{
		"DB_PATH": "/var/lib/magic.db",
		"LEVEL":   "debug",
	}
	getenv := func(key string) string { return env[key] }

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple var", "dsn: ${DB_PATH}", "dsn: /var/lib/magic.db"},
		{"var with default, var set", "level: ${LEVEL:-info}", "level: debug"},
		{"var with default, var unset", "level: ${MISSING:-error}", "level: error"},
		{"unset var, no default", "dsn: ${MISSING}", "dsn: "},
		{"multiple vars", "${LEVEL} ${DB_PATH}", "debug /var/lib/magic.db"},
		{"no vars", "plain: text", "plain: text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "magic.yaml")
	content := `
interpreter:
  max_while_iterations: 10
logging:
  level: ${LOG_LEVEL:-info}
  output: logs/magic.log
data:
  default: main
  cache_size: 5
  cache_ttl: 1m
  connections:
    main:
      driver: sqlite
      dsn: !secret data/main.db
    memory:
      driver: sqlite
      dsn: ":memory:"
    remote:
      driver: postgres
      dsn: ${PG_DSN}
files:
  startup: startup
  watch: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	getenv := func(key string) string {
		switch key {
		case "LOG_LEVEL":
			return "debug"
		case "PG_DSN":
			return "postgres://localhost/magic"
		}
		return ""
	}

	cfg, path, err := LoadWithPath(configPath, getenv)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	absDir, _ := filepath.Abs(dir)
	if path != filepath.Join(absDir, "magic.yaml") {
		t.Errorf("expected resolved path, got %s", path)
	}
	if cfg.BaseDir != absDir {
		t.Errorf("expected base dir %s, got %s", absDir, cfg.BaseDir)
	}
	if cfg.Interpreter.MaxWhileIterations != 10 {
		t.Errorf("expected 10 iterations, got %d", cfg.Interpreter.MaxWhileIterations)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected interpolated level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Output != filepath.Join(absDir, "logs", "magic.log") {
		t.Errorf("expected log output resolved against config dir, got %s", cfg.Logging.Output)
	}
	if cfg.Files.Startup != filepath.Join(absDir, "startup") {
		t.Errorf("expected startup resolved against config dir, got %s", cfg.Files.Startup)
	}
	if cfg.Data.CacheSize != 5 || cfg.Data.CacheTTL != time.Minute {
		t.Errorf("unexpected cache settings: %d %v", cfg.Data.CacheSize, cfg.Data.CacheTTL)
	}

	main := cfg.Data.Connections["main"]
	if main.DSN.Value() != filepath.Join(absDir, "data", "main.db") {
		t.Errorf("expected sqlite dsn resolved against config dir, got %s", main.DSN.Value())
	}
	if !main.DSN.IsSecret() {
		t.Error("expected main dsn to stay secret after path resolution")
	}
	if got := cfg.Data.Connections["memory"].DSN.Value(); got != ":memory:" {
		t.Errorf("expected :memory: untouched, got %s", got)
	}
	if got := cfg.Data.Connections["remote"].DSN.Value(); got != "postgres://localhost/magic" {
		t.Errorf("expected interpolated postgres dsn, got %s", got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	getenv := func(string) string { return "" }

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"), getenv)
		if err == nil || !strings.Contains(err.Error(), "config file not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("missing env file", func(t *testing.T) {
		env := func(key string) string {
			if key == "MAGIC_CONFIG" {
				return filepath.Join(dir, "env.yaml")
			}
			return ""
		}
		_, err := Load("", env)
		if err == nil || !strings.Contains(err.Error(), "MAGIC_CONFIG file not found") {
			t.Errorf("expected MAGIC_CONFIG error, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		os.WriteFile(path, []byte("logging: [unclosed"), 0644)
		_, err := Load(path, getenv)
		if err == nil || !strings.Contains(err.Error(), "failed to parse config") {
			t.Errorf("expected parse error, got %v", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644)
		_, err := Load(path, getenv)
		if err == nil || !strings.Contains(err.Error(), "configuration errors") {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	os.WriteFile(path, []byte("interpreter:\n  max_while_iterations: 3\n"), 0644)

	cfg, err := Load("", func(key string) string {
		if key == "MAGIC_CONFIG" {
			return path
		}
		return ""
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Interpreter.MaxWhileIterations != 3 {
		t.Errorf("expected 3, got %d", cfg.Interpreter.MaxWhileIterations)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected defaults for unset fields, got level %s", cfg.Logging.Level)
	}
}
