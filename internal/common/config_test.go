package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 300, config.Rasterizer.DPI)
	assert.Equal(t, int64(1024), config.Detector.MinModelBytes)
	assert.Equal(t, 60, config.OCR.CropMargin)
	assert.Equal(t, "30m", config.Jobs.StaleAfter)
	assert.Equal(t, LLMProviderGemini, config.LLM.DefaultProvider)
	assert.True(t, config.Report.Enabled)

	require.NoError(t, config.Validate())
}

func TestLoadFromFilesOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "takeoff.toml")
	content := `
[server]
port = 9999

[rasterizer]
dpi = 150

[llm]
default_provider = "claude"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, 150, config.Rasterizer.DPI)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
	// Untouched sections keep defaults
	assert.Equal(t, "30m", config.Jobs.StaleAfter)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.toml")
	second := filepath.Join(dir, "second.toml")
	require.NoError(t, os.WriteFile(first, []byte("[server]\nport = 1111\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("[server]\nport = 2222\n"), 0o644))

	config, err := LoadFromFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, 2222, config.Server.Port)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/takeoff.toml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TAKEOFF_SERVER_PORT", "7777")
	t.Setenv("TAKEOFF_JOBS_STALE_AFTER", "45m")
	t.Setenv("GEMINI_API_KEY", "test-gemini-key")
	t.Setenv("ANTHROPIC_API_KEY", "test-claude-key")
	t.Setenv("TAKEOFF_LLM_DEFAULT_PROVIDER", "claude")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7777, config.Server.Port)
	assert.Equal(t, "45m", config.Jobs.StaleAfter)
	assert.Equal(t, "test-gemini-key", config.Gemini.APIKey)
	assert.Equal(t, "test-claude-key", config.Claude.APIKey)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
}

func TestValidateRejectsBadDuration(t *testing.T) {
	config := NewDefaultConfig()
	config.Jobs.StaleAfter = "whenever"

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs.stale_after")
}

func TestValidateRejectsBadPort(t *testing.T) {
	config := NewDefaultConfig()
	config.Server.Port = -1

	assert.Error(t, config.Validate())
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 4242, "0.0.0.0")

	assert.Equal(t, 4242, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	// Zero values leave config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 4242, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestIsProduction(t *testing.T) {
	config := NewDefaultConfig()
	assert.False(t, config.IsProduction())

	config.Environment = "production"
	assert.True(t, config.IsProduction())

	config.Environment = "prod"
	assert.True(t, config.IsProduction())
}

func TestNewJobID(t *testing.T) {
	first := NewJobID()
	second := NewJobID()

	assert.True(t, len(first) > len("job_"))
	assert.Contains(t, first, "job_")
	assert.NotEqual(t, first, second)
}
