package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	internal "github.com/ZanzyTHEbar/siteops/siteops"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	suite.tempDir = suite.T().TempDir()
	require.NoError(suite.T(), os.Chdir(suite.tempDir))
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		_ = os.Chdir(suite.origDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), internal.DefaultDatabaseDSN, cfg.Database.DSN)
	assert.Equal(suite.T(), internal.DefaultDatabaseType, cfg.Database.Type)
	assert.Equal(suite.T(), internal.DefaultInferenceURL, cfg.Inference.BaseURL)
	assert.Equal(suite.T(), 5*time.Minute, cfg.Inference.Timeout)
	assert.Equal(suite.T(), 0.7, cfg.Inference.Temperature)
	assert.Equal(suite.T(), 40, cfg.Inference.TopK)
	assert.Equal(suite.T(), -1, cfg.Inference.NumPredict)
	assert.Equal(suite.T(), 50, cfg.Harness.TitleLength)
	assert.Equal(suite.T(), 5, cfg.Harness.ToolConcurrency)
	assert.Equal(suite.T(), time.Second, cfg.Harness.RateLimitRefillRate)
	assert.Empty(suite.T(), cfg.Harness.AllowedTools)
	assert.Empty(suite.T(), cfg.Harness.MediaAllowedHosts)
	assert.Equal(suite.T(), internal.DefaultServerAddress, cfg.Server.Address)
	assert.Equal(suite.T(), "info", cfg.Log.Level)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
database:
  dsn: "test.db"
inference:
  base_url: "http://ollama.internal:11434"
  timeout: "30s"
  default_model: "qwen2.5"
harness:
  allowed_tools:
    - list_projects
    - log_work_hours
  tool_concurrency: 2
  media_allowed_hosts:
    - cdn.example.com
server:
  address: "127.0.0.1:9000"
`
	configPath := filepath.Join(suite.tempDir, "config.yaml")
	require.NoError(suite.T(), os.WriteFile(configPath, []byte(configContent), 0o644))

	cfg, err := LoadConfig(configPath)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "test.db", cfg.Database.DSN)
	assert.Equal(suite.T(), "http://ollama.internal:11434", cfg.Inference.BaseURL)
	assert.Equal(suite.T(), 30*time.Second, cfg.Inference.Timeout)
	assert.Equal(suite.T(), "qwen2.5", cfg.Inference.DefaultModel)
	assert.Equal(suite.T(), []string{"list_projects", "log_work_hours"}, cfg.Harness.AllowedTools)
	assert.Equal(suite.T(), 2, cfg.Harness.ToolConcurrency)
	assert.Equal(suite.T(), []string{"cdn.example.com"}, cfg.Harness.MediaAllowedHosts)
	assert.Equal(suite.T(), "127.0.0.1:9000", cfg.Server.Address)

	// untouched keys keep their defaults
	assert.Equal(suite.T(), 0.9, cfg.Inference.TopP)
}

func (suite *ConfigTestSuite) TestLoadConfigFromEnvironment() {
	suite.T().Setenv("SITEOPS_INFERENCE_BASE_URL", "http://gpu-box:11434")
	suite.T().Setenv("SITEOPS_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "http://gpu-box:11434", cfg.Inference.BaseURL)
	assert.Equal(suite.T(), "debug", cfg.Log.Level)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	configPath := filepath.Join(suite.tempDir, "broken.yaml")
	require.NoError(suite.T(), os.WriteFile(configPath, []byte("database: [unclosed"), 0o644))

	_, err := LoadConfig(configPath)
	assert.Error(suite.T(), err)
}

func (suite *ConfigTestSuite) TestLoadConfigPublishesAppConfig() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), *cfg, AppConfig)
}
