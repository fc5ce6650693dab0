// Package config handles configuration loading and management for SprintForge.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for SprintForge.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Store      StoreConfig      `mapstructure:"store"`
	Completion CompletionConfig `mapstructure:"completion"`
	Narrative  NarrativeConfig  `mapstructure:"narrative"`
	TUI        TUIConfig        `mapstructure:"tui"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// StoreConfig holds database settings.
type StoreConfig struct {
	// Path is the SQLite database file. Empty selects the XDG data path.
	Path string `mapstructure:"path"`
}

// CompletionConfig holds stage-completion run settings.
type CompletionConfig struct {
	// StepTimeout bounds each awaited completion step.
	StepTimeout time.Duration `mapstructure:"step_timeout"`
	// PlanRetries is how many regeneration attempts follow a sprint plan
	// that fails validation.
	PlanRetries int `mapstructure:"plan_retries"`
}

// NarrativeConfig holds background narrative-generation settings.
type NarrativeConfig struct {
	Workers      int           `mapstructure:"workers"`
	QueueSize    int           `mapstructure:"queue_size"`
	Retries      int           `mapstructure:"retries"`
	SectionDelay time.Duration `mapstructure:"section_delay"`
}

// TUIConfig holds settings for the watch client display.
type TUIConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.sprintforge.yaml in current directory or parent)
// 3. User config (~/.config/sprintforge/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("")

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.use_aws_bedrock", "SPRINTFORGE_USE_BEDROCK")
	v.BindEnv("server.addr", "SPRINTFORGE_ADDR")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.shutdown_timeout", cfg.Server.ShutdownTimeout.String())
	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_aws_bedrock", cfg.Anthropic.UseAWSBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("store.path", cfg.Store.Path)
	v.Set("completion.step_timeout", cfg.Completion.StepTimeout.String())
	v.Set("completion.plan_retries", cfg.Completion.PlanRetries)
	v.Set("narrative.workers", cfg.Narrative.Workers)
	v.Set("narrative.queue_size", cfg.Narrative.QueueSize)
	v.Set("narrative.retries", cfg.Narrative.Retries)
	v.Set("narrative.section_delay", cfg.Narrative.SectionDelay.String())
	v.Set("tui.server_url", cfg.TUI.ServerURL)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("store.path", "")

	v.SetDefault("completion.step_timeout", "2m")
	v.SetDefault("completion.plan_retries", 1)

	v.SetDefault("narrative.workers", 2)
	v.SetDefault("narrative.queue_size", 16)
	v.SetDefault("narrative.retries", 2)
	v.SetDefault("narrative.section_delay", "2s")

	v.SetDefault("tui.server_url", "http://localhost:8080")
}

// getUserConfigDir returns the XDG config directory for SprintForge.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sprintforge")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "sprintforge")
	}
	return filepath.Join(home, ".config", "sprintforge")
}

// findProjectConfig searches for .sprintforge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".sprintforge.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Completion: CompletionConfig{
			StepTimeout: 2 * time.Minute,
			PlanRetries: 1,
		},
		Narrative: NarrativeConfig{
			Workers:      2,
			QueueSize:    16,
			Retries:      2,
			SectionDelay: 2 * time.Second,
		},
		TUI: TUIConfig{
			ServerURL: "http://localhost:8080",
		},
	}
}
