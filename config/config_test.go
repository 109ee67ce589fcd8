package config

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Interpreter.MaxWhileIterations != 5000 {
		t.Errorf("expected max_while_iterations 5000, got %d", cfg.Interpreter.MaxWhileIterations)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("expected log output stdout, got %s", cfg.Logging.Output)
	}
	if cfg.Data.CacheSize != 100 {
		t.Errorf("expected cache size 100, got %d", cfg.Data.CacheSize)
	}
	if cfg.Data.CacheTTL != 30*time.Minute {
		t.Errorf("expected cache ttl 30m, got %v", cfg.Data.CacheTTL)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSecretString(t *testing.T) {
	var holder struct {
		Plain  SecretString `yaml:"plain"`
		Hidden SecretString `yaml:"hidden"`
	}
	input := "plain: visible\nhidden: !secret s3cret\n"
	if err := yaml.Unmarshal([]byte(input), &holder); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if holder.Plain.IsSecret() || holder.Plain.String() != "visible" {
		t.Errorf("plain value: got %q (secret=%v)", holder.Plain.String(), holder.Plain.IsSecret())
	}
	if !holder.Hidden.IsSecret() {
		t.Error("expected !secret value to be marked secret")
	}
	if holder.Hidden.Value() != "s3cret" {
		t.Errorf("expected value s3cret, got %q", holder.Hidden.Value())
	}
	if holder.Hidden.String() != "[hidden]" {
		t.Errorf("expected [hidden], got %q", holder.Hidden.String())
	}

	out, err := yaml.Marshal(holder)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "s3cret") || !strings.Contains(string(out), "!secret") {
		t.Errorf("marshalled config should keep the tag and drop the value, got:\n%s", out)
	}
}

func TestSecretStringMasksPasswords(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"postgres url", "postgres://magic:pw@db:5432/app?sslmode=disable", "postgres://magic:***@db:5432/app?sslmode=disable"},
		{"postgres url without password", "postgres://magic@db/app", "postgres://magic@db/app"},
		{"postgres keywords", "host=db user=magic password=pw dbname=app", "host=db user=magic password=*** dbname=app"},
		{"quoted keyword", "host=db password='p w' dbname=app", "host=db password=*** dbname=app"},
		{"mysql", "magic:pw@tcp(db:3306)/app?parseTime=true", "magic:***@tcp(db:3306)/app?parseTime=true"},
		{"sqlite path", "/var/lib/magic/main.db", "/var/lib/magic/main.db"},
		{"sqlite uri", "file:test.db?mode=memory", "file:test.db?mode=memory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s SecretString
			if err := yaml.Unmarshal([]byte(quoteYAML(tt.dsn)), &s); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if s.Value() != tt.dsn {
				t.Errorf("Value() = %q, want %q", s.Value(), tt.dsn)
			}
			if got := s.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func quoteYAML(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name: "valid connections",
			modify: func(c *Config) {
				c.Data.Default = "main"
				c.Data.Connections = map[string]ConnectionConfig{
					"main": {Driver: "sqlite", DSN: NewSecretString("/tmp/main.db")},
				}
			},
		},
		{
			name:    "bad level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level: verbose",
		},
		{
			name:    "bad iterations",
			modify:  func(c *Config) { c.Interpreter.MaxWhileIterations = 0 },
			wantErr: "interpreter.max_while_iterations",
		},
		{
			name: "unknown driver",
			modify: func(c *Config) {
				c.Data.Connections = map[string]ConnectionConfig{
					"main": {Driver: "oracle", DSN: NewSecretString("x")},
				}
			},
			wantErr: `unknown driver "oracle"`,
		},
		{
			name: "missing dsn",
			modify: func(c *Config) {
				c.Data.Connections = map[string]ConnectionConfig{"main": {Driver: "postgres"}}
			},
			wantErr: "data.connections.main: dsn is required",
		},
		{
			name:    "missing default",
			modify:  func(c *Config) { c.Data.Default = "main" },
			wantErr: `no connection named "main"`,
		},
		{
			name:    "watch without startup",
			modify:  func(c *Config) { c.Files.Watch = true },
			wantErr: "files.watch requires files.startup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
