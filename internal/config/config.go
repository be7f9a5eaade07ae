// Package config provides configuration management for the Storyreel Agent.
// Configuration is loaded from an optional YAML file and environment
// variables, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort     = 8788
	DefaultLogLevel = "info"
	DefaultDataDir  = ".storyreel"

	// Environment variable names
	EnvPort       = "STORYREEL_PORT"
	EnvLogLevel   = "STORYREEL_LOG_LEVEL"
	EnvDataDir    = "STORYREEL_DATA_DIR"
	EnvConfigFile = "STORYREEL_CONFIG"
	EnvHeadless   = "STORYREEL_HEADLESS"

	// Media compiler environment variable names
	EnvCompilerURL   = "STORYREEL_COMPILER_URL"
	EnvCompilerToken = "STORYREEL_COMPILER_TOKEN"

	// Database filename
	DBFilename = "storyreel.db"

	// Config filename inside the data dir
	ConfigFilename = "storyreel.yaml"

	// Upload limits
	MaxImageUploadBytes = 10 * 1024 * 1024
	MaxAudioUploadBytes = 50 * 1024 * 1024

	// Compiler defaults
	DefaultPollInterval   = 1 * time.Second
	DefaultSubmitTimeout  = 60 // seconds
	DefaultTransitionSec  = 0.8
	DefaultPreviewTickHz  = 30
	DefaultMaxRenderPolls = 3600
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	Headless() bool
	CompilerURL() string
	CompilerToken() string
	CompilerPollInterval() time.Duration
	CompilerSubmitTimeout() time.Duration
	TransitionSec() float64
}

// fileConfig is the YAML shape of the optional config file.
type fileConfig struct {
	Port          int     `yaml:"port"`
	LogLevel      string  `yaml:"log_level"`
	DataDir       string  `yaml:"data_dir"`
	Headless      bool    `yaml:"headless"`
	CompilerURL   string  `yaml:"compiler_url"`
	CompilerToken string  `yaml:"compiler_token"`
	PollSeconds   float64 `yaml:"poll_seconds"`
	TransitionSec float64 `yaml:"transition_sec"`
}

// EnvConfig reads configuration from a YAML file plus environment overrides
type EnvConfig struct {
	port          int
	logLevel      string
	dataDir       string
	headless      bool
	compilerURL   string
	compilerToken string
	pollInterval  time.Duration
	transitionSec float64
}

// New creates a new EnvConfig with defaults, optional YAML file values
// and environment variable overrides, in that order.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		pollInterval:  DefaultPollInterval,
		transitionSec: DefaultTransitionSec,
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h == "1" || h == "true" {
		cfg.headless = true
	}

	if u := os.Getenv(EnvCompilerURL); u != "" {
		cfg.compilerURL = u
	}
	if t := os.Getenv(EnvCompilerToken); t != "" {
		cfg.compilerToken = t
	}

	return cfg, nil
}

// loadFile applies the optional YAML config file. Lookup order: the path in
// STORYREEL_CONFIG, then <data dir>/storyreel.yaml. A missing file is fine.
func (c *EnvConfig) loadFile() error {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = filepath.Join(c.dataDir, ConfigFilename)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		if fc.Port < 1 || fc.Port > 65535 {
			return fmt.Errorf("invalid port in %s: must be between 1 and 65535", path)
		}
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.Headless {
		c.headless = true
	}
	if fc.CompilerURL != "" {
		c.compilerURL = fc.CompilerURL
	}
	if fc.CompilerToken != "" {
		c.compilerToken = fc.CompilerToken
	}
	if fc.PollSeconds > 0 {
		c.pollInterval = time.Duration(fc.PollSeconds * float64(time.Second))
	}
	if fc.TransitionSec > 0 {
		c.transitionSec = fc.TransitionSec
	}

	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir returns the directory uploaded media is stored under
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// CompilerURL returns the external media compiler base URL, empty when
// no compiler is configured.
func (c *EnvConfig) CompilerURL() string {
	return c.compilerURL
}

// CompilerToken returns the bearer token for the media compiler
func (c *EnvConfig) CompilerToken() string {
	return c.compilerToken
}

// CompilerPollInterval returns the render job status poll interval
func (c *EnvConfig) CompilerPollInterval() time.Duration {
	return c.pollInterval
}

// CompilerSubmitTimeout returns the timeout for render submissions
func (c *EnvConfig) CompilerSubmitTimeout() time.Duration {
	return time.Duration(DefaultSubmitTimeout) * time.Second
}

// TransitionSec returns the default inter-scene transition window length
func (c *EnvConfig) TransitionSec() float64 {
	return c.transitionSec
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
