// Package config provides configuration management for emostream.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Defaults.
const (
	DefaultWorkerPort     = 8000
	DefaultModel          = "gpt-4o-mini"
	DefaultMaxConns       = 4
	DefaultStaleTimeoutMs = 2000
)

// Config holds runtime configuration.
type Config struct {
	WorkerPort     int    `json:"EMOSTREAM_WORKER_PORT"`
	Model          string `json:"EMOSTREAM_MODEL"`
	OpenAIBaseURL  string `json:"EMOSTREAM_OPENAI_BASE_URL"`
	OpenAIAPIKey   string `json:"EMOSTREAM_OPENAI_API_KEY"`
	RecordingsDir  string `json:"EMOSTREAM_RECORDINGS_DIR"`
	PrototypesPath string `json:"EMOSTREAM_PROTOTYPES_PATH"`
	StaleTimeoutMs int    `json:"EMOSTREAM_STALE_TIMEOUT_MS"`
	MaxConns       int    `json:"EMOSTREAM_MAX_CONNS"`
}

// StaleTimeout returns the stream staleness threshold as a duration.
func (c *Config) StaleTimeout() time.Duration {
	return time.Duration(c.StaleTimeoutMs) * time.Millisecond
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		WorkerPort:     DefaultWorkerPort,
		Model:          DefaultModel,
		RecordingsDir:  filepath.Join(DataDir(), "recordings"),
		StaleTimeoutMs: DefaultStaleTimeoutMs,
		MaxConns:       DefaultMaxConns,
	}
}

// DataDir returns the emostream data directory under the user's home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".emostream")
}

// DBPath returns the path to the SQLite database file.
func DBPath() string {
	return filepath.Join(DataDir(), "emostream.db")
}

// SettingsPath returns the path to the settings file.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory (and the recordings directory
// inside it) if missing.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(DataDir(), "recordings"), 0750); err != nil {
		return fmt.Errorf("create recordings dir: %w", err)
	}
	return nil
}

// EnsureSettings writes a default settings file when none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// EnsureAll initializes the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Load reads the settings file over the defaults, then applies environment
// overrides. A missing or malformed settings file yields defaults rather
// than an error.
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(SettingsPath()); err == nil {
		// Unmarshal over defaults; parse failure keeps defaults.
		_ = json.Unmarshal(data, cfg)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays environment variables onto the config. OPENAI_API_KEY
// is honored as the conventional alias for the key setting.
func applyEnv(cfg *Config) {
	if v := os.Getenv("EMOSTREAM_WORKER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.WorkerPort = port
		}
	}
	if v := os.Getenv("EMOSTREAM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("EMOSTREAM_OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("EMOSTREAM_OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("EMOSTREAM_RECORDINGS_DIR"); v != "" {
		cfg.RecordingsDir = v
	}
	if v := os.Getenv("EMOSTREAM_PROTOTYPES_PATH"); v != "" {
		cfg.PrototypesPath = v
	}
	if v := os.Getenv("EMOSTREAM_STALE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.StaleTimeoutMs = ms
		}
	}
}

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// Get returns the process-wide configuration, loading it on first use.
func Get() *Config {
	globalMu.RLock()
	if globalCfg != nil {
		defer globalMu.RUnlock()
		return globalCfg
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCfg == nil {
		globalCfg, _ = Load()
	}
	return globalCfg
}

// Set replaces the process-wide configuration. Intended for tests and
// startup wiring.
func Set(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
}
