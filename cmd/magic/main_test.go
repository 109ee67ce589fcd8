package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noEnv(string) string { return "" }

func runArgs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := run(context.Background(), args, stdout, stderr, noEnv)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunVersion(t *testing.T) {
	stdout, _, err := runArgs(t, "--version")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "magic version") {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestRunHelp(t *testing.T) {
	stdout, _, err := runArgs(t, "--help")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "magic - Hyperlambda runtime") {
		t.Errorf("expected help output, got %q", stdout)
	}
	if !strings.Contains(stdout, "MAGIC_CONFIG") {
		t.Errorf("expected config resolution in help, got %q", stdout)
	}
}

func TestRunInvalidFlag(t *testing.T) {
	if _, _, err := runArgs(t, "--invalid-flag"); err == nil {
		t.Error("expected error for invalid flag")
	}
}

func TestRunEval(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{"string", "return:hello", "hello\n"},
		{"typed value", "return:int:42", "42\n"},
		{"nodes", "return\n   name:ada\n   age:int:36", "name:ada\nage:int:36\n"},
		{"log and return", "log.info:hi\nreturn:done", "[INFO] hi\ndone\n"},
		{"async slots allowed", "wait.sleep:int:1\nreturn:slept", "slept\n"},
		{"nothing returned", ".x:1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := runArgs(t, "-e", tt.code)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if stdout != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, stdout)
			}
		})
	}
}

func TestRunEvalError(t *testing.T) {
	_, _, err := runArgs(t, "-e", "no.such.slot")
	if err == nil || !strings.Contains(err.Error(), "no.such.slot") {
		t.Errorf("expected unknown slot error, got %v", err)
	}
}

func TestRunFiles(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.hl", "return:one")
	second := writeFile(t, dir, "second.hl", "return:two")

	stdout, _, err := runArgs(t, first, second)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "one\ntwo\n" {
		t.Errorf("got %q", stdout)
	}

	bad := writeFile(t, dir, "bad.hl", "no.such.slot")
	_, _, err = runArgs(t, bad)
	if err == nil || !strings.HasPrefix(err.Error(), bad) {
		t.Errorf("expected error naming %s, got %v", bad, err)
	}
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.hl", "if\n   .:bool:true\n   .lambda\n      return:yes\n")
	bad := writeFile(t, dir, "bad.hl", "foo\n  bar\n")

	stdout, _, err := runArgs(t, "--check", good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "good.hl: ok") {
		t.Errorf("got %q", stdout)
	}

	_, stderr, err := runArgs(t, "--check", good, bad)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !strings.Contains(stderr, "Syntax error") || !strings.Contains(stderr, bad) {
		t.Errorf("expected syntax error naming file, got %q", stderr)
	}

	if _, _, err := runArgs(t, "--check"); err == nil {
		t.Error("expected error without files")
	}
}

func TestRunFmt(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "messy.hl", "foo:\"bar\"\n   x:int:1\n")
	want := "foo:bar\r\n   x:int:1\r\n"

	stdout, _, err := runArgs(t, "fmt", path)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != want {
		t.Errorf("fmt output = %q, want %q", stdout, want)
	}

	stdout, _, err = runArgs(t, "fmt", "-l", path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != path {
		t.Errorf("fmt -l = %q", stdout)
	}

	if _, _, err := runArgs(t, "fmt", "-w", path); err != nil {
		t.Fatal(err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != want {
		t.Errorf("fmt -w wrote %q", content)
	}

	if _, _, err := runArgs(t, "fmt"); err == nil {
		t.Error("expected error without files")
	}
}

func TestRunVocabulary(t *testing.T) {
	stdout, _, err := runArgs(t, "vocabulary", "data.transaction.")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 transaction slots, got %q", stdout)
	}
	if !strings.HasPrefix(lines[0], "data.transaction.commit") {
		t.Errorf("expected sorted output, got %q", lines[0])
	}
}

func TestRunStartup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "01-create.hl", "slots.create:startup.answer\n   return:int:42\n")

	stdout, _, err := runArgs(t, "--startup", dir, "-e", "signal:startup.answer\nreturn:x:-")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "[STARTUP] 01-create.hl") {
		t.Errorf("expected startup progress, got %q", stdout)
	}
	if !strings.HasSuffix(stdout, "42\n") {
		t.Errorf("expected procedure result, got %q", stdout)
	}
}

func TestRunConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "magic.yaml", "logging:\n  level: error\n")

	stdout, _, err := runArgs(t, "--config", cfgPath, "-e", "log.info:hidden\nlog.error:shown")
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "[ERROR] shown\n" {
		t.Errorf("got %q", stdout)
	}

	_, _, err = runArgs(t, "--config", filepath.Join(dir, "missing.yaml"), "-e", "return:1")
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Errorf("expected config error, got %v", err)
	}

	_, _, err = runArgs(t, "--log-level", "loud", "-e", "return:1")
	if err == nil || !strings.Contains(err.Error(), "config validation") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRunConfigCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "magic.yaml", `data:
  default: main
  connections:
    main:
      driver: postgres
      dsn: postgres://magic:pw@db/app
    audit:
      driver: mysql
      dsn: !secret magic:pw@tcp(db:3306)/audit
`)

	stdout, _, err := runArgs(t, "config", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"source path", "# " + cfgPath, true},
		{"masked url password", "postgres://magic:***@db/app", true},
		{"hidden secret", "[hidden]", true},
		{"secret tag", "!secret", true},
		{"plain password", ":pw@", false},
		{"secret host", "tcp(db:3306)", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Contains(stdout, tt.text); got != tt.want {
				t.Errorf("output contains %q = %v, want %v:\n%s", tt.text, got, tt.want, stdout)
			}
		})
	}

	t.Run("invalid config", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.yaml", "logging:\n  level: loud\n")
		if _, _, err := runArgs(t, "config", "--config", bad); err == nil || !strings.Contains(err.Error(), "config validation") {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}
