// ABOUTME: Centralized configuration for docqa
// ABOUTME: Defaults, then an optional YAML file, then environment variables, then validation
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/harper/docqa/internal/llm"
	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/storage"
	"github.com/harper/docqa/internal/storage/charmkv"
	"github.com/harper/docqa/internal/util"
	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the YAML config path
const EnvConfigPath = "DOCQA_CONFIG"

// Config holds all configuration for docqa
type Config struct {
	// LLM settings
	Provider        string        `yaml:"provider"`
	OpenAIKey       string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	AzureAPIVersion string        `yaml:"azure_api_version"`
	ChatModel       string        `yaml:"chat_model"`
	EmbeddingModel  string        `yaml:"embedding_model"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`

	// Chunking and retrieval
	ChunkSize       int `yaml:"chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap"`
	TopK            int `yaml:"top_k"`
	MaxContextChars int `yaml:"max_context_chars"`

	// Ingestion fan-out
	Workers        int     `yaml:"workers"`
	EmbedBatchSize int     `yaml:"embed_batch_size"`
	EmbedRateLimit float64 `yaml:"embed_rate_limit"`

	// Index settings
	VectorDimension int    `yaml:"vector_dimension"`
	IndexBackend    string `yaml:"index_backend"`
	DBPath          string `yaml:"db_path"`

	// Charm settings
	CharmHost   string `yaml:"charm_host"`
	CharmDBName string `yaml:"charm_db"`
	AutoSync    bool   `yaml:"charm_auto_sync"`

	// LogJSON switches log lines to JSON
	LogJSON bool `yaml:"log_json"`
}

// Default returns the built-in configuration
func Default() *Config {
	charm := charmkv.DefaultConfig()
	return &Config{
		Provider:        llm.ProviderOpenAI,
		ChatModel:       llm.DefaultChatModel,
		EmbeddingModel:  string(llm.DefaultEmbeddingModel),
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		RetryDelay:      2 * time.Second,
		ChunkSize:       1000,
		ChunkOverlap:    20,
		TopK:            2,
		Workers:         4,
		EmbedBatchSize:  16,
		IndexBackend:    storage.BackendSQLite,
		CharmHost:       charm.Host,
		CharmDBName:     charm.DBName,
		AutoSync:        charm.AutoSync,
		AzureAPIVersion: llm.DefaultAzureAPIVersion,
	}
}

// Load reads configuration from the file named by DOCQA_CONFIG (if set) and the environment
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigPath))
}

// LoadFile reads configuration from a YAML file (skipped when path is
// empty) with environment variables taking precedence over file values
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, models.InvalidConfig("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, models.InvalidConfig("config file %s: %v", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overlays environment variables, rejecting values that do not parse
func (c *Config) applyEnv() error {
	env := &envReader{}

	c.Provider = env.getEnv("LLM_PROVIDER", c.Provider)
	c.OpenAIKey = env.getEnv("OPENAI_API_KEY", c.OpenAIKey)
	c.BaseURL = env.getEnv("OPENAI_BASE_URL", c.BaseURL)
	c.AzureAPIVersion = env.getEnv("AZURE_OPENAI_API_VERSION", c.AzureAPIVersion)
	c.ChatModel = env.getEnv("DOCQA_CHAT_MODEL", c.ChatModel)
	c.EmbeddingModel = env.getEnv("DOCQA_EMBEDDING_MODEL", c.EmbeddingModel)
	c.Timeout = env.getEnvDuration("OPENAI_TIMEOUT", c.Timeout)
	c.MaxRetries = env.getEnvInt("OPENAI_MAX_RETRIES", c.MaxRetries)
	c.RetryDelay = env.getEnvDuration("OPENAI_RETRY_DELAY", c.RetryDelay)

	c.ChunkSize = env.getEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = env.getEnvInt("CHUNK_OVERLAP", c.ChunkOverlap)
	c.TopK = env.getEnvInt("TOP_K", c.TopK)
	c.MaxContextChars = env.getEnvInt("MAX_CONTEXT_CHARS", c.MaxContextChars)

	c.Workers = env.getEnvInt("WORKERS", c.Workers)
	c.EmbedBatchSize = env.getEnvInt("EMBED_BATCH_SIZE", c.EmbedBatchSize)
	c.EmbedRateLimit = env.getEnvFloat("EMBED_RATE_LIMIT", c.EmbedRateLimit)

	c.VectorDimension = env.getEnvInt("VECTOR_DIMENSION", c.VectorDimension)
	c.IndexBackend = env.getEnv("INDEX_BACKEND", c.IndexBackend)
	c.DBPath = env.getEnv("DOCQA_DB_PATH", c.DBPath)

	c.CharmHost = env.getEnv("CHARM_HOST", c.CharmHost)
	c.CharmDBName = env.getEnv("CHARM_DB", c.CharmDBName)
	c.AutoSync = env.getEnvBool("CHARM_AUTO_SYNC", c.AutoSync)

	c.LogJSON = env.getEnvBool("DOCQA_LOG_JSON", c.LogJSON)
	return env.err()
}

// Validate rejects settings that can never work
func (c *Config) Validate() error {
	switch c.Provider {
	case llm.ProviderOpenAI, llm.ProviderAzure:
	default:
		return models.InvalidConfig("LLM_PROVIDER must be openai or azure, got %q", c.Provider)
	}
	if c.Provider == llm.ProviderAzure && c.BaseURL == "" {
		return models.InvalidConfig("OPENAI_BASE_URL is required for the azure provider")
	}
	if c.Timeout <= 0 {
		return models.InvalidConfig("OPENAI_TIMEOUT must be positive, got %v", c.Timeout)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return models.InvalidConfig("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return models.InvalidConfig("OPENAI_RETRY_DELAY must not be negative, got %v", c.RetryDelay)
	}
	if c.ChunkSize <= 0 {
		return models.InvalidConfig("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return models.InvalidConfig("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return models.InvalidConfig("TOP_K must be positive, got %d", c.TopK)
	}
	if c.MaxContextChars < 0 {
		return models.InvalidConfig("MAX_CONTEXT_CHARS must not be negative, got %d", c.MaxContextChars)
	}
	if c.Workers <= 0 {
		return models.InvalidConfig("WORKERS must be positive, got %d", c.Workers)
	}
	if c.EmbedBatchSize <= 0 {
		return models.InvalidConfig("EMBED_BATCH_SIZE must be positive, got %d", c.EmbedBatchSize)
	}
	if c.EmbedRateLimit < 0 {
		return models.InvalidConfig("EMBED_RATE_LIMIT must not be negative, got %v", c.EmbedRateLimit)
	}
	if c.VectorDimension < 0 {
		return models.InvalidConfig("VECTOR_DIMENSION must not be negative, got %d", c.VectorDimension)
	}
	switch c.IndexBackend {
	case storage.BackendSQLite, storage.BackendCharm, storage.BackendMemory:
	default:
		return models.InvalidConfig("INDEX_BACKEND must be sqlite, charm or memory, got %q", c.IndexBackend)
	}
	return nil
}

// RequireAPIKey fails when no API key is configured
func (c *Config) RequireAPIKey() error {
	if c.OpenAIKey == "" {
		return models.InvalidConfig("OPENAI_API_KEY environment variable not set")
	}
	return nil
}

// LLMConfig returns the client configuration for the embedding and chat services
func (c *Config) LLMConfig() *llm.ClientConfig {
	return &llm.ClientConfig{
		Provider:       c.Provider,
		APIKey:         c.OpenAIKey,
		BaseURL:        c.BaseURL,
		APIVersion:     c.AzureAPIVersion,
		ChatModel:      c.ChatModel,
		EmbeddingModel: openai.EmbeddingModel(c.EmbeddingModel),
		Timeout:        c.Timeout,
	}
}

// IndexOptions returns the vector index backend options
func (c *Config) IndexOptions() storage.Options {
	return storage.Options{
		Backend:   c.IndexBackend,
		DBPath:    c.DBPath,
		Dimension: c.VectorDimension,
		Charm: charmkv.Config{
			Host:     c.CharmHost,
			DBName:   c.CharmDBName,
			AutoSync: c.AutoSync,
		},
	}
}

// RetryPolicy returns the retry policy for service calls, logging each retry
func (c *Config) RetryPolicy() util.RetryPolicy {
	p := util.NewRetryPolicy(c.MaxRetries, c.RetryDelay, models.IsRetryable)
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("retrying service call", "attempt", attempt, "delay", delay.Round(time.Millisecond), "err", err)
	}
	return p
}

// envReader reads typed environment values and collects parse failures.
// Unset or empty variables keep the default.
type envReader struct {
	errs []error
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func (r *envReader) invalid(key, value, kind string) {
	r.errs = append(r.errs, models.InvalidConfig("%s: %q is not a valid %s", key, value, kind))
}

func (r *envReader) getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (r *envReader) getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.invalid(key, v, "boolean")
		return defaultVal
	}
	return b
}

func (r *envReader) getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.invalid(key, v, "integer")
		return defaultVal
	}
	return i
}

func (r *envReader) getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.invalid(key, v, "number")
		return defaultVal
	}
	return f
}

func (r *envReader) getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.invalid(key, v, "duration")
		return defaultVal
	}
	return d
}
