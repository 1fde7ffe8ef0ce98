package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for pdfchat.
type Config struct {
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Chat      ChatConfig      `yaml:"chat"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Retry     RetryConfig     `yaml:"retry"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IngestConfig holds document splitting configuration.
type IngestConfig struct {
	MaxPages        int  `yaml:"max_pages"`
	RejectOverLimit bool `yaml:"reject_over_limit"` // Fail instead of truncating past MaxPages
	ChunkSize       int  `yaml:"chunk_size"`        // In characters
	ChunkOverlap    int  `yaml:"chunk_overlap"`
	NameAttempts    int  `yaml:"name_attempts"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK int `yaml:"top_k"`
}

// ChatConfig holds LLM chat configuration.
type ChatConfig struct {
	Provider        string        `yaml:"provider"` // "openai", "echo"
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"base_url"`
	APIKeyEnv       string        `yaml:"api_key_env"`
	Timeout         time.Duration `yaml:"timeout"`
	SystemPrompt    string        `yaml:"system_prompt"`
	ContextTemplate string        `yaml:"context_template"`
	HistoryTurns    int           `yaml:"history_turns"` // 0 sends the whole transcript
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"` // "openai", "local"
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	Dimension         int           `yaml:"dimension"`
	BatchSize         int           `yaml:"batch_size"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// StorageConfig selects the object store backend.
type StorageConfig struct {
	Backend     string      `yaml:"backend"` // "fs", "redis", "memory"
	Root        string      `yaml:"root"`    // Root directory for the fs backend
	IndexPrefix string      `yaml:"index_prefix"`
	CacheDir    string      `yaml:"cache_dir"`
	CacheSize   int         `yaml:"cache_size"` // Loaded indexes kept in memory
	Redis       RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	KeyPrefix   string `yaml:"key_prefix"`
}

// RetryConfig bounds retries around embedding and chat calls.
type RetryConfig struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	InitialBackoff   time.Duration `yaml:"initial_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff"`
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
}

// ServerConfig holds settings for shareable links.
type ServerConfig struct {
	PublicURL string `yaml:"public_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text", "json"
}

const (
	DefaultSystemPrompt = "You are a helpful bot assisting the user in understanding a pdf. " +
		"The system will provide you with relevant sections of text to help you answer the user's question."
	DefaultContextTemplate = "\n\nUse the information below to help answer the user's question."
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			MaxPages:     100,
			ChunkSize:    10000,
			ChunkOverlap: 1000,
			NameAttempts: 32,
		},
		Retrieve: RetrieveConfig{
			TopK: 2,
		},
		Chat: ChatConfig{
			Provider:        "openai",
			Model:           "gpt-3.5-turbo",
			BaseURL:         "https://api.openai.com/v1",
			APIKeyEnv:       "OPENAI_API_KEY",
			Timeout:         60 * time.Second,
			SystemPrompt:    DefaultSystemPrompt,
			ContextTemplate: DefaultContextTemplate,
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "text-embedding-ada-002",
			BaseURL:           "https://api.openai.com/v1",
			APIKeyEnv:         "OPENAI_API_KEY",
			Dimension:         1536,
			BatchSize:         100,
			Timeout:           60 * time.Second,
			RequestsPerSecond: 5,
		},
		Storage: StorageConfig{
			Backend:     "fs",
			Root:        "bucket",
			IndexPrefix: "index",
			CacheDir:    filepath.Join(".pdfchat", "cache"),
			CacheSize:   8,
			Redis: RedisConfig{
				Addr:        "localhost:6379",
				PasswordEnv: "REDIS_PASSWORD",
				KeyPrefix:   "pdfchat:",
			},
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			InitialBackoff:   500 * time.Millisecond,
			MaxBackoff:       8 * time.Second,
			RateLimitBackoff: 20 * time.Second,
		},
		Server: ServerConfig{
			PublicURL: "http://localhost:8501",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for pdfchat.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "pdfchat.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".pdfchat", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ShareURL returns the link under which an index can be opened.
func (c *Config) ShareURL(id string) string {
	return c.Server.PublicURL + "/?pdf_index=" + id
}

// ResolvePaths makes relative storage paths absolute against dir.
func (c *Config) ResolvePaths(dir string) {
	if c.Storage.Root != "" && !filepath.IsAbs(c.Storage.Root) {
		c.Storage.Root = filepath.Join(dir, c.Storage.Root)
	}
	if c.Storage.CacheDir != "" && !filepath.IsAbs(c.Storage.CacheDir) {
		c.Storage.CacheDir = filepath.Join(dir, c.Storage.CacheDir)
	}
}
