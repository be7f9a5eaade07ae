package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.LogLevel() != DefaultLogLevel {
		t.Errorf("LogLevel() = %s, want %s", cfg.LogLevel(), DefaultLogLevel)
	}
	if cfg.TransitionSec() != DefaultTransitionSec {
		t.Errorf("TransitionSec() = %f, want %f", cfg.TransitionSec(), DefaultTransitionSec)
	}
	if cfg.CompilerPollInterval() != DefaultPollInterval {
		t.Errorf("CompilerPollInterval() = %v, want %v", cfg.CompilerPollInterval(), DefaultPollInterval)
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(EnvPort, "9999")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDataDir, "/tmp/storyreel-test")
	t.Setenv(EnvHeadless, "1")
	t.Setenv(EnvCompilerURL, "http://compiler.local")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != 9999 {
		t.Errorf("Port() = %d, want 9999", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel() = %s, want debug", cfg.LogLevel())
	}
	if cfg.DataDir() != "/tmp/storyreel-test" {
		t.Errorf("DataDir() = %s, want /tmp/storyreel-test", cfg.DataDir())
	}
	if cfg.DBPath() != filepath.Join("/tmp/storyreel-test", DBFilename) {
		t.Errorf("DBPath() = %s", cfg.DBPath())
	}
	if !cfg.Headless() {
		t.Error("Headless() = false, want true")
	}
	if cfg.CompilerURL() != "http://compiler.local" {
		t.Errorf("CompilerURL() = %s", cfg.CompilerURL())
	}
}

func TestNew_InvalidPort(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(EnvPort, "notaport")

	if _, err := New(); err == nil {
		t.Error("New() should fail for non-numeric port")
	}

	t.Setenv(EnvPort, "70000")
	if _, err := New(); err == nil {
		t.Error("New() should fail for out-of-range port")
	}
}

func TestNew_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storyreel.yaml")
	content := "port: 9001\nlog_level: warn\ncompiler_url: http://render.local\npoll_seconds: 2.5\ntransition_sec: 1.2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(EnvConfigFile, path)

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != 9001 {
		t.Errorf("Port() = %d, want 9001", cfg.Port())
	}
	if cfg.LogLevel() != "warn" {
		t.Errorf("LogLevel() = %s, want warn", cfg.LogLevel())
	}
	if cfg.CompilerURL() != "http://render.local" {
		t.Errorf("CompilerURL() = %s", cfg.CompilerURL())
	}
	if cfg.CompilerPollInterval() != 2500*time.Millisecond {
		t.Errorf("CompilerPollInterval() = %v, want 2.5s", cfg.CompilerPollInterval())
	}
	if cfg.TransitionSec() != 1.2 {
		t.Errorf("TransitionSec() = %f, want 1.2", cfg.TransitionSec())
	}
}

func TestNew_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storyreel.yaml")
	if err := os.WriteFile(path, []byte("port: 9001\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvPort, "9002")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != 9002 {
		t.Errorf("Port() = %d, want env value 9002", cfg.Port())
	}
}

func TestNew_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storyreel.yaml")
	if err := os.WriteFile(path, []byte("port: [not, a, port"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(EnvConfigFile, path)

	if _, err := New(); err == nil {
		t.Error("New() should fail for malformed YAML")
	}
}
