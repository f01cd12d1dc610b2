package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredential marks a selected provider without an API key.
var ErrMissingCredential = errors.New("missing credential")

type Config struct {
	Audio     AudioConfig    `yaml:"audio"`
	Speech    SpeechConfig   `yaml:"speech"`
	Chat      ChatConfig     `yaml:"chat"`
	Google    APIKeyConfig   `yaml:"google"`
	OpenAI    APIKeyConfig   `yaml:"openai"`
	Anthropic APIKeyConfig   `yaml:"anthropic"`
	Pushover  PushoverConfig `yaml:"pushover"`
	Log       LogConfig      `yaml:"log"`
}

type AudioConfig struct {
	Source     string `yaml:"source"`
	HTTPAddr   string `yaml:"http_addr"`
	FileDir    string `yaml:"file_dir"`
	SampleRate int    `yaml:"sample_rate"`
	AuthToken  string `yaml:"auth_token"`
}

type SpeechConfig struct {
	Provider string        `yaml:"provider"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ChatConfig struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	MaxTokens    int           `yaml:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout"`
}

type APIKeyConfig struct {
	APIKey string `yaml:"api_key"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config, expanding ${VAR} references. A missing file is
// not an error: defaults and the environment are used instead.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.Google.APIKey == "" {
		c.Google.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Anthropic.APIKey == "" {
		c.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}

func (c *Config) setDefaults() {
	if c.Audio.Source == "" {
		c.Audio.Source = "http"
	}
	if c.Audio.HTTPAddr == "" {
		c.Audio.HTTPAddr = ":8080"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./audio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Speech.Provider == "" {
		c.Speech.Provider = "google"
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "en-US"
	}
	if c.Speech.Timeout == 0 {
		c.Speech.Timeout = 30 * time.Second
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = "gemini"
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = 1024
	}
	if c.Chat.Timeout == 0 {
		c.Chat.Timeout = 2 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the selected providers exist and have credentials.
func (c *Config) Validate() error {
	var errs []error

	switch c.Audio.Source {
	case "http", "file", "microphone":
	default:
		errs = append(errs, fmt.Errorf("unknown audio source %q", c.Audio.Source))
	}

	switch c.Speech.Provider {
	case "google":
		errs = append(errs, requireKey("speech", c.Speech.Provider, "google.api_key", "GOOGLE_API_KEY", c.Google.APIKey))
	case "openai":
		errs = append(errs, requireKey("speech", c.Speech.Provider, "openai.api_key", "OPENAI_API_KEY", c.OpenAI.APIKey))
	default:
		errs = append(errs, fmt.Errorf("unknown speech provider %q", c.Speech.Provider))
	}

	switch c.Chat.Provider {
	case "gemini":
		errs = append(errs, requireKey("chat", c.Chat.Provider, "google.api_key", "GOOGLE_API_KEY", c.Google.APIKey))
	case "openai":
		errs = append(errs, requireKey("chat", c.Chat.Provider, "openai.api_key", "OPENAI_API_KEY", c.OpenAI.APIKey))
	case "anthropic":
		errs = append(errs, requireKey("chat", c.Chat.Provider, "anthropic.api_key", "ANTHROPIC_API_KEY", c.Anthropic.APIKey))
	default:
		errs = append(errs, fmt.Errorf("unknown chat provider %q", c.Chat.Provider))
	}

	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		errs = append(errs, fmt.Errorf("%w: pushover is enabled without token and user_key", ErrMissingCredential))
	}

	return errors.Join(errs...)
}

func requireKey(role, provider, field, env, value string) error {
	if value != "" {
		return nil
	}
	return fmt.Errorf("%w: %s provider %q needs %s or %s", ErrMissingCredential, role, provider, field, env)
}
