// Package config loads and hot-reloads redline configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/redline/internal/applier"
	"github.com/jackzampolin/redline/internal/document"
	"github.com/jackzampolin/redline/internal/engine"
)

// Config is the full tool configuration.
type Config struct {
	// Engine selects the correction engine: "languagetool" (annotator)
	// or "openai" (rewriter).
	Engine   string `mapstructure:"engine" yaml:"engine"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	LanguageTool LanguageToolConfig `mapstructure:"languagetool" yaml:"languagetool"`
	OpenAI       OpenAIConfig       `mapstructure:"openai" yaml:"openai"`
	Policy       PolicyConfig       `mapstructure:"policy" yaml:"policy"`
	Retry        RetryConfig        `mapstructure:"retry" yaml:"retry"`

	// SafeCategories overrides the rule allow-list: engine rule id →
	// category name. Empty means the built-in defaults.
	SafeCategories map[string]string `mapstructure:"safe_categories" yaml:"safe_categories,omitempty"`
}

// LanguageToolConfig configures the LanguageTool server annotator.
type LanguageToolConfig struct {
	URL            string `mapstructure:"url" yaml:"url"`
	Language       string `mapstructure:"language" yaml:"language"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// OpenAIConfig configures the OpenAI-compatible rewriter.
type OpenAIConfig struct {
	Model   string `mapstructure:"model" yaml:"model"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// PolicyConfig holds reinsertion policies.
type PolicyConfig struct {
	// TailSpace is the word-boundary space policy around inline
	// elements; see the markdown package for its edge cases.
	TailSpace bool `mapstructure:"tail_space" yaml:"tail_space"`
}

// RetryConfig bounds per-span engine retries.
type RetryConfig struct {
	Attempts uint `mapstructure:"attempts" yaml:"attempts"`
	DelayMS  int  `mapstructure:"delay_ms" yaml:"delay_ms"`
}

// DefaultConfig returns the defaults written by `redline config init`.
func DefaultConfig() *Config {
	return &Config{
		Engine:   "languagetool",
		LogLevel: "info",
		LanguageTool: LanguageToolConfig{
			URL:            "http://localhost:8010",
			Language:       "en-US",
			TimeoutSeconds: 30,
		},
		OpenAI: OpenAIConfig{
			Model:  "gpt-4o-mini",
			APIKey: "${OPENAI_API_KEY}",
		},
		Policy: PolicyConfig{TailSpace: true},
		Retry:  RetryConfig{Attempts: 3, DelayMS: 500},
	}
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("engine", defaults.Engine)
	viper.SetDefault("log_level", defaults.LogLevel)
	viper.SetDefault("languagetool", defaults.LanguageTool)
	viper.SetDefault("openai", defaults.OpenAI)
	viper.SetDefault("policy", defaults.Policy)
	viper.SetDefault("retry", defaults.Retry)

	// Environment variables with REDLINE_ prefix
	viper.SetEnvPrefix("REDLINE")
	viper.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.redline")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// BuildEngine constructs the configured correction engine.
func (c *Config) BuildEngine() (engine.Engine, error) {
	switch c.Engine {
	case "languagetool":
		return engine.NewAnnotator(engine.NewLanguageTool(engine.LanguageToolConfig{
			URL:      c.LanguageTool.URL,
			Language: c.LanguageTool.Language,
			Timeout:  time.Duration(c.LanguageTool.TimeoutSeconds) * time.Second,
		})), nil
	case "openai":
		return engine.NewRewriter(engine.NewOpenAIRewriter(engine.OpenAIRewriterConfig{
			APIKey:  ResolveEnvVars(c.OpenAI.APIKey),
			Model:   c.OpenAI.Model,
			BaseURL: c.OpenAI.BaseURL,
		})), nil
	default:
		return engine.Engine{}, fmt.Errorf("unknown engine %q: expected languagetool or openai", c.Engine)
	}
}

// ApplierConfig converts the config into the applier's settings,
// overlaying any configured category overrides on the defaults.
func (c *Config) ApplierConfig() applier.Config {
	cfg := applier.DefaultConfig()
	if c.Retry.Attempts > 0 {
		cfg.RetryAttempts = c.Retry.Attempts
	}
	if c.Retry.DelayMS > 0 {
		cfg.RetryDelay = time.Duration(c.Retry.DelayMS) * time.Millisecond
	}
	if len(c.SafeCategories) > 0 {
		cfg.Categories = make(map[string]document.Category, len(c.SafeCategories))
		for rule, cat := range c.SafeCategories {
			cfg.Categories[rule] = document.Category(cat)
		}
	}
	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Redline configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENAI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
