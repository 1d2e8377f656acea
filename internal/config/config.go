package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config.yaml"
	TokenEnv    = "HF_TOKEN"
)

type Config struct {
	Image       ImageConfig       `yaml:"image"`
	Description DescriptionConfig `yaml:"description"`
	Search      SearchConfig      `yaml:"search"`
	Publisher   PublisherConfig   `yaml:"publisher"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
	LogLevel    string            `yaml:"log_level"`
}

type ImageConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

// DescriptionConfig keeps MaxTokens and Temperature as pointers so an explicit
// zero in the file survives setDefaults. A zero max_tokens leaves the cap to
// the backend.
type DescriptionConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Token       string        `yaml:"token"`
	MaxTokens   *int          `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type SearchConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Suffix     string        `yaml:"suffix"`
	Limit      int           `yaml:"limit"`
	Oversample int           `yaml:"oversample"`
	Language   string        `yaml:"language"`
	Region     string        `yaml:"region"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PublisherConfig enables the result publisher when URL is set.
type PublisherConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

func (p PublisherConfig) Enabled() bool {
	return p.URL != ""
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads the YAML file at path, expanding ${VAR} references from the
// environment and any .env file. A missing file at DefaultPath is not an
// error: defaults and environment apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if cfg.Description.Token == "" {
		cfg.Description.Token = os.Getenv(TokenEnv)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Image.Timeout == 0 {
		c.Image.Timeout = 10 * time.Second
	}
	if c.Image.UserAgent == "" {
		c.Image.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
	if c.Image.MaxBytes == 0 {
		c.Image.MaxBytes = 20 << 20
	}
	if c.Description.BaseURL == "" {
		c.Description.BaseURL = "https://router.huggingface.co/v1"
	}
	if c.Description.Model == "" {
		c.Description.Model = "Qwen/Qwen2.5-VL-7B-Instruct"
	}
	if c.Description.MaxTokens == nil {
		c.Description.MaxTokens = ptr(150)
	}
	if c.Description.Temperature == nil {
		c.Description.Temperature = ptr(0.2)
	}
	if c.Description.Timeout == 0 {
		c.Description.Timeout = 60 * time.Second
	}
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = "https://www.youtube.com/youtubei/v1/search"
	}
	if c.Search.Suffix == "" {
		c.Search.Suffix = "tutorial"
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = 10
	}
	if c.Search.Oversample <= 0 {
		c.Search.Oversample = 2
	}
	if c.Search.Region == "" {
		c.Search.Region = "US"
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = 15 * time.Second
	}
	if c.Publisher.Exchange == "" {
		c.Publisher.Exchange = "tutorial_finder"
	}
	if c.Publisher.RoutingKey == "" {
		c.Publisher.RoutingKey = "tutorials.found"
	}
	if c.Publisher.QueueName == "" {
		c.Publisher.QueueName = "tutorial_results"
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "tutorial_finder"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func ptr[T any](v T) *T {
	return &v
}
