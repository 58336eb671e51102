package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"JIRA_URL", "JIRA_EMAIL", "JIRA_API_TOKEN",
		"AZDO_ORGANIZATION", "AZDO_PROJECT", "AZDO_PAT",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OLLAMA_HOST",
		"PRLENS_PROVIDERS", "PRLENS_OUT", "PRLENS_SERIAL",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"anthropic", "openai", "ollama"}, cfg.Providers.Order)
	assert.Equal(t, 120, cfg.Providers.TimeoutSeconds)
	assert.Equal(t, 2, cfg.Providers.MaxRetries)
	assert.Equal(t, 50, cfg.Budget.MaxCommits)
	assert.Equal(t, 4000, cfg.Budget.FileDiffChars)
	assert.Equal(t, 60000, cfg.Budget.TotalChars)
	assert.Equal(t, ".", cfg.OutputDir)
}

func TestLoadMergesFileEnvAndOverrides(t *testing.T) {
	clearCredentialEnv(t)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "prlens"), 0o755))
	fileContent := `
jira:
  url: https://myteam.atlassian.net
providers:
  order: [ollama]
  maxRetries: 5
budget:
  totalChars: 30000
outputDir: ./reports
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prlens", "config.yaml"), []byte(fileContent), 0o644))

	t.Setenv("JIRA_EMAIL", "dev@example.com")
	t.Setenv("JIRA_API_TOKEN", "env-token")
	t.Setenv("PRLENS_PROVIDERS", "openai,ollama")

	cfg, err := Load(map[string]string{"budget.totalChars": "20000"})
	require.NoError(t, err)

	assert.Equal(t, "https://myteam.atlassian.net", cfg.Jira.URL, "file value applied")
	assert.Equal(t, "env-token", cfg.Jira.APIToken, "credentials come from env")
	assert.Equal(t, []string{"openai", "ollama"}, cfg.Providers.Order, "env beats file")
	assert.Equal(t, 5, cfg.Providers.MaxRetries, "file beats default")
	assert.Equal(t, 20000, cfg.Budget.TotalChars, "flag beats everything")
	assert.Equal(t, "./reports", cfg.OutputDir)
}

func TestLoadNoFile(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default().Budget, cfg.Budget)
}

func TestSetFieldUnknownKey(t *testing.T) {
	cfg := Default()
	err := SetField(&cfg, "nope", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestSetFieldBadInt(t *testing.T) {
	cfg := Default()
	require.Error(t, SetField(&cfg, "budget.maxCommits", "many"))
}

func TestProviderSettings(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg := Default()
	mergeEnv(&cfg)
	s := cfg.ProviderSettings()

	assert.Equal(t, "sk-test", s.AnthropicAPIKey)
	assert.Equal(t, cfg.Providers.Order, s.Order)
	assert.Equal(t, 2, s.MaxRetries)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Jira.URL = "https://x.atlassian.net"
	cfg.Providers.Serialized = true
	require.NoError(t, Save(cfg))

	loaded, err := LoadFile()
	require.NoError(t, err)
	assert.Equal(t, "https://x.atlassian.net", loaded.Jira.URL)
	assert.True(t, loaded.Providers.Serialized)
}
