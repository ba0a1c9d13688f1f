// Package config provides configuration management for emostream.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
	Set(nil)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultWorkerPort, cfg.WorkerPort)
	s.Equal(DefaultModel, cfg.Model)
	s.Equal(DefaultMaxConns, cfg.MaxConns)
	s.Equal(DefaultStaleTimeoutMs, cfg.StaleTimeoutMs)
	s.Contains(cfg.RecordingsDir, "recordings")
	s.Equal(2*time.Second, cfg.StaleTimeout())
}

func (s *ConfigSuite) TestPaths() {
	s.Contains(DataDir(), ".emostream")
	s.Contains(DBPath(), "emostream.db")
	s.Contains(SettingsPath(), "settings.json")
}

func (s *ConfigSuite) TestEnsureAll() {
	s.NoError(EnsureAll())

	info, err := os.Stat(DataDir())
	s.NoError(err)
	s.True(info.IsDir())

	info, err = os.Stat(filepath.Join(DataDir(), "recordings"))
	s.NoError(err)
	s.True(info.IsDir())

	info, err = os.Stat(SettingsPath())
	s.NoError(err)
	s.False(info.IsDir())

	// Second call is a no-op.
	s.NoError(EnsureAll())
}

func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name          string
		settingsJSON  string
		expectedPort  int
		expectedModel string
	}{
		{
			name:          "no settings file",
			settingsJSON:  "",
			expectedPort:  DefaultWorkerPort,
			expectedModel: DefaultModel,
		},
		{
			name:          "custom port",
			settingsJSON:  `{"EMOSTREAM_WORKER_PORT": 38888}`,
			expectedPort:  38888,
			expectedModel: DefaultModel,
		},
		{
			name:          "custom model",
			settingsJSON:  `{"EMOSTREAM_MODEL": "gpt-4o"}`,
			expectedPort:  DefaultWorkerPort,
			expectedModel: "gpt-4o",
		},
		{
			name:          "multiple settings",
			settingsJSON:  `{"EMOSTREAM_WORKER_PORT": 39999, "EMOSTREAM_MODEL": "local"}`,
			expectedPort:  39999,
			expectedModel: "local",
		},
		{
			name:          "invalid JSON returns defaults",
			settingsJSON:  `{invalid}`,
			expectedPort:  DefaultWorkerPort,
			expectedModel: DefaultModel,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			tempDir, err := os.MkdirTemp("", "config-test-*")
			s.Require().NoError(err)
			defer os.RemoveAll(tempDir)

			os.Setenv("HOME", tempDir)

			err = os.MkdirAll(filepath.Join(tempDir, ".emostream"), 0750)
			s.Require().NoError(err)

			if tt.settingsJSON != "" {
				writeErr := os.WriteFile(
					filepath.Join(tempDir, ".emostream", "settings.json"),
					[]byte(tt.settingsJSON),
					0600,
				)
				s.Require().NoError(writeErr)
			}

			cfg, err := Load()
			s.NoError(err)
			s.NotNil(cfg)
			s.Equal(tt.expectedPort, cfg.WorkerPort)
			s.Equal(tt.expectedModel, cfg.Model)
		})
	}
}

func (s *ConfigSuite) TestEnvOverrides() {
	os.Setenv("EMOSTREAM_MODEL", "env-model")
	os.Setenv("EMOSTREAM_STALE_TIMEOUT_MS", "750")
	os.Setenv("OPENAI_API_KEY", "sk-test")
	defer func() {
		os.Unsetenv("EMOSTREAM_MODEL")
		os.Unsetenv("EMOSTREAM_STALE_TIMEOUT_MS")
		os.Unsetenv("OPENAI_API_KEY")
	}()

	cfg, err := Load()
	s.NoError(err)
	s.Equal("env-model", cfg.Model)
	s.Equal(750, cfg.StaleTimeoutMs)
	s.Equal("sk-test", cfg.OpenAIAPIKey)
}

func (s *ConfigSuite) TestGetCachesAndSetReplaces() {
	first := Get()
	s.Same(first, Get())

	custom := Default()
	custom.WorkerPort = 12345
	Set(custom)
	s.Equal(12345, Get().WorkerPort)
}
