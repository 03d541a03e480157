// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/podiumlabs/podium/internal/debate"
	"github.com/podiumlabs/podium/internal/llm"
)

// Duration wraps time.Duration so config files can use forms like "30s"
// or "15m" instead of raw nanosecond counts.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// Bare integers are taken as nanoseconds.
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration: %s", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config represents the application configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Debate  DebateConfig  `yaml:"debate"`
	Topics  TopicsConfig  `yaml:"topics"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
}

// LLMConfig holds completion API settings.
type LLMConfig struct {
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key,omitempty"`
	Model       string   `yaml:"model"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	Timeout     Duration `yaml:"timeout"`
	MaxAttempts int      `yaml:"max_attempts"`
	BackoffBase Duration `yaml:"backoff_base"`
	BackoffCap  Duration `yaml:"backoff_cap"`
	Jitter      float64  `yaml:"jitter"`
}

// DebateConfig holds orchestration settings.
type DebateConfig struct {
	MaxTurnsPerSide int      `yaml:"max_turns_per_side"`
	TimeBudget      Duration `yaml:"time_budget"`
}

// TopicsConfig holds topic sourcing settings.
type TopicsConfig struct {
	CachePath string `yaml:"cache_path"`
	KialoURL  string `yaml:"kialo_url,omitempty"`
}

// ServerConfig holds server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     llm.DefaultBaseURL,
			Model:       "openai/gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1024,
			Timeout:     Duration(60 * time.Second),
			MaxAttempts: 3,
			BackoffBase: Duration(2 * time.Second),
			BackoffCap:  Duration(10 * time.Second),
			Jitter:      0.5,
		},
		Debate: DebateConfig{
			MaxTurnsPerSide: 3,
			TimeBudget:      Duration(15 * time.Minute),
		},
		Topics: TopicsConfig{
			CachePath: defaultCachePath(),
		},
		Server: ServerConfig{
			Port: 8183,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from a specific path. A missing file is
// not an error; defaults apply. Environment variables override the file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file, proceed with defaults
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides updates the configuration from environment variables.
// The API key is only ever taken from the environment so it never ends
// up in a config file on disk.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("PODIUM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("PODIUM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("PODIUM_DB"); v != "" {
		cfg.Storage.Path = v
	}
}

// Save saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ClientConfig converts the LLM section to the completion client config.
func (c *Config) ClientConfig() llm.ClientConfig {
	return llm.ClientConfig{
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
		Timeout:     time.Duration(c.LLM.Timeout),
	}
}

// RetryPolicy converts the LLM section to the completion retry policy.
func (c *Config) RetryPolicy() llm.Policy {
	p := llm.DefaultPolicy()
	if c.LLM.MaxAttempts > 0 {
		p.MaxAttempts = c.LLM.MaxAttempts
	}
	if c.LLM.BackoffBase > 0 && c.LLM.BackoffCap > 0 {
		p.Backoff = llm.ExponentialBackoff(time.Duration(c.LLM.BackoffBase), time.Duration(c.LLM.BackoffCap), c.LLM.Jitter)
	}
	return p
}

// EngineConfig converts the debate section to the engine config.
func (c *Config) EngineConfig() debate.Config {
	cfg := debate.DefaultConfig()
	if c.Debate.MaxTurnsPerSide > 0 {
		cfg.MaxTurnsPerSide = c.Debate.MaxTurnsPerSide
	}
	if c.Debate.TimeBudget > 0 {
		cfg.TimeBudget = time.Duration(c.Debate.TimeBudget)
	}
	return cfg
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "podium.yaml"
	}
	return filepath.Join(home, ".podium", "config.yaml")
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "topics_cache.json"
	}
	return filepath.Join(home, ".podium", "topics_cache.json")
}
