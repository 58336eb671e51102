package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/prlens/internal/prompt"
	"github.com/dshills/prlens/internal/providers"
)

// Config is the prlens configuration. Credentials never live in the config
// file; they come from the environment only (see mergeEnv).
type Config struct {
	Jira      JiraConfig      `yaml:"jira"`
	AzDO      AzDOConfig      `yaml:"azdo"`
	Providers ProvidersConfig `yaml:"providers"`
	Budget    BudgetConfig    `yaml:"budget"`
	OutputDir string          `yaml:"outputDir"`
}

// JiraConfig locates the issue tracker. Email and token come from env.
type JiraConfig struct {
	URL      string `yaml:"url"`
	Email    string `yaml:"-"`
	APIToken string `yaml:"-"`
}

// AzDOConfig locates the change source. The PAT comes from env.
type AzDOConfig struct {
	Organization string `yaml:"organization"`
	Project      string `yaml:"project"`
	PAT          string `yaml:"-"`
}

// ProvidersConfig controls backend selection and the fallback policy.
type ProvidersConfig struct {
	Order          []string `yaml:"order"`
	AnthropicModel string   `yaml:"anthropicModel"`
	OpenAIModel    string   `yaml:"openaiModel"`
	OllamaModel    string   `yaml:"ollamaModel"`
	OllamaURL      string   `yaml:"ollamaUrl"`
	TimeoutSeconds int      `yaml:"timeoutSeconds"`
	MaxRetries     int      `yaml:"maxRetries"`
	BackoffSeconds int      `yaml:"backoffSeconds"`
	Serialized     bool     `yaml:"serialized"`

	AnthropicAPIKey string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
}

// BudgetConfig bounds prompt construction.
type BudgetConfig struct {
	MaxCommits    int `yaml:"maxCommits"`
	FileDiffChars int `yaml:"fileDiffChars"`
	TotalChars    int `yaml:"totalChars"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Providers: ProvidersConfig{
			Order:          []string{"anthropic", "openai", "ollama"},
			AnthropicModel: "claude-sonnet-4-20250514",
			OpenAIModel:    "gpt-4o",
			OllamaModel:    "llama3.2:3b",
			TimeoutSeconds: 120,
			MaxRetries:     2,
			BackoffSeconds: 1,
		},
		Budget: BudgetConfig{
			MaxCommits:    prompt.DefaultMaxCommits,
			FileDiffChars: prompt.DefaultFileDiffChars,
			TotalChars:    prompt.DefaultTotalChars,
		},
		OutputDir: ".",
	}
}

// ConfigDir returns the platform-appropriate config directory for prlens.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "prlens"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "prlens"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "prlens"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "prlens"), nil
	default:
		return filepath.Join(home, ".config", "prlens"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile loads config from the config file. Returns a zero Config and nil
// error if the file does not exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <-
// overrides. The overrides map comes from CLI flags; only set keys apply.
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.Jira.URL != "" {
		dst.Jira.URL = src.Jira.URL
	}
	if src.AzDO.Organization != "" {
		dst.AzDO.Organization = src.AzDO.Organization
	}
	if src.AzDO.Project != "" {
		dst.AzDO.Project = src.AzDO.Project
	}
	if len(src.Providers.Order) > 0 {
		dst.Providers.Order = src.Providers.Order
	}
	if src.Providers.AnthropicModel != "" {
		dst.Providers.AnthropicModel = src.Providers.AnthropicModel
	}
	if src.Providers.OpenAIModel != "" {
		dst.Providers.OpenAIModel = src.Providers.OpenAIModel
	}
	if src.Providers.OllamaModel != "" {
		dst.Providers.OllamaModel = src.Providers.OllamaModel
	}
	if src.Providers.OllamaURL != "" {
		dst.Providers.OllamaURL = src.Providers.OllamaURL
	}
	if src.Providers.TimeoutSeconds > 0 {
		dst.Providers.TimeoutSeconds = src.Providers.TimeoutSeconds
	}
	if src.Providers.MaxRetries > 0 {
		dst.Providers.MaxRetries = src.Providers.MaxRetries
	}
	if src.Providers.BackoffSeconds > 0 {
		dst.Providers.BackoffSeconds = src.Providers.BackoffSeconds
	}
	dst.Providers.Serialized = dst.Providers.Serialized || src.Providers.Serialized
	if src.Budget.MaxCommits > 0 {
		dst.Budget.MaxCommits = src.Budget.MaxCommits
	}
	if src.Budget.FileDiffChars > 0 {
		dst.Budget.FileDiffChars = src.Budget.FileDiffChars
	}
	if src.Budget.TotalChars > 0 {
		dst.Budget.TotalChars = src.Budget.TotalChars
	}
	if src.OutputDir != "" {
		dst.OutputDir = src.OutputDir
	}
}

func mergeEnv(cfg *Config) {
	// Credentials are environment-only.
	if v := os.Getenv("JIRA_URL"); v != "" {
		cfg.Jira.URL = v
	}
	cfg.Jira.Email = os.Getenv("JIRA_EMAIL")
	cfg.Jira.APIToken = os.Getenv("JIRA_API_TOKEN")
	if v := os.Getenv("AZDO_ORGANIZATION"); v != "" {
		cfg.AzDO.Organization = v
	}
	if v := os.Getenv("AZDO_PROJECT"); v != "" {
		cfg.AzDO.Project = v
	}
	cfg.AzDO.PAT = os.Getenv("AZDO_PAT")
	cfg.Providers.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Providers.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Providers.OllamaURL = v
	}

	if v := os.Getenv("PRLENS_PROVIDERS"); v != "" {
		cfg.Providers.Order = splitList(v)
	}
	if v := os.Getenv("PRLENS_OUT"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("PRLENS_SERIAL"); v == "1" || strings.EqualFold(v, "true") {
		cfg.Providers.Serialized = true
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		// Flag names mirror config keys; unknown keys were rejected at
		// flag-parse time.
		_ = SetField(cfg, key, v)
	}
}

// SetField sets a single config field by key name. Returns an error if the
// key is unknown or the value does not parse.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "jira.url":
		cfg.Jira.URL = value
	case "azdo.organization":
		cfg.AzDO.Organization = value
	case "azdo.project":
		cfg.AzDO.Project = value
	case "providers.order":
		cfg.Providers.Order = splitList(value)
	case "providers.anthropicModel":
		cfg.Providers.AnthropicModel = value
	case "providers.openaiModel":
		cfg.Providers.OpenAIModel = value
	case "providers.ollamaModel":
		cfg.Providers.OllamaModel = value
	case "providers.ollamaUrl":
		cfg.Providers.OllamaURL = value
	case "providers.timeoutSeconds":
		return setInt(&cfg.Providers.TimeoutSeconds, key, value)
	case "providers.maxRetries":
		return setInt(&cfg.Providers.MaxRetries, key, value)
	case "providers.backoffSeconds":
		return setInt(&cfg.Providers.BackoffSeconds, key, value)
	case "providers.serialized":
		cfg.Providers.Serialized = value == "1" || strings.EqualFold(value, "true")
	case "budget.maxCommits":
		return setInt(&cfg.Budget.MaxCommits, key, value)
	case "budget.fileDiffChars":
		return setInt(&cfg.Budget.FileDiffChars, key, value)
	case "budget.totalChars":
		return setInt(&cfg.Budget.TotalChars, key, value)
	case "outputDir":
		cfg.OutputDir = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ProviderSettings maps the config onto the provider package's settings.
func (c Config) ProviderSettings() providers.Settings {
	return providers.Settings{
		Order:           c.Providers.Order,
		AnthropicAPIKey: c.Providers.AnthropicAPIKey,
		AnthropicModel:  c.Providers.AnthropicModel,
		OpenAIAPIKey:    c.Providers.OpenAIAPIKey,
		OpenAIModel:     c.Providers.OpenAIModel,
		OllamaURL:       c.Providers.OllamaURL,
		OllamaModel:     c.Providers.OllamaModel,
		Timeout:         time.Duration(c.Providers.TimeoutSeconds) * time.Second,
		MaxRetries:      c.Providers.MaxRetries,
		BackoffBase:     time.Duration(c.Providers.BackoffSeconds) * time.Second,
		Serialized:      c.Providers.Serialized,
	}
}

// PromptBudget maps the config onto the prompt package's budget.
func (c Config) PromptBudget() prompt.Budget {
	return prompt.Budget{
		MaxCommits:    c.Budget.MaxCommits,
		FileDiffChars: c.Budget.FileDiffChars,
		TotalChars:    c.Budget.TotalChars,
	}
}
