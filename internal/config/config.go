package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"docqa/internal/pkg/retry"
)

// EnvPrefix namespaces environment overrides, e.g. DOCQA_CHAT_MODEL.
const EnvPrefix = "DOCQA_"

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type              string            `yaml:"type" env:"TYPE"`
	Model             string            `yaml:"model" env:"MODEL"`
	BaseURL           string            `yaml:"base_url,omitempty" env:"BASE_URL"`
	APIKeyEnv         string            `yaml:"api_key_env,omitempty" env:"API_KEY_ENV"`
	TimeoutSecs       int               `yaml:"timeout_secs" env:"TIMEOUT_SECS"`
	BatchSize         int               `yaml:"batch_size" env:"BATCH_SIZE"`
	RequestsPerSecond float64           `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Retry             retry.RetryConfig `yaml:"retry" envPrefix:"RETRY_"`
}

// ChatConfig selects and configures the chat-completion model.
type ChatConfig struct {
	Type         string            `yaml:"type" env:"TYPE"`
	Model        string            `yaml:"model" env:"MODEL"`
	BaseURL      string            `yaml:"base_url,omitempty" env:"BASE_URL"`
	APIKeyEnv    string            `yaml:"api_key_env,omitempty" env:"API_KEY_ENV"`
	TimeoutSecs  int               `yaml:"timeout_secs" env:"TIMEOUT_SECS"`
	Temperature  *float32          `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens    int               `yaml:"max_tokens" env:"MAX_TOKENS"`
	HistoryTurns *int              `yaml:"history_turns" env:"HISTORY_TURNS"`
	Retry        retry.RetryConfig `yaml:"retry" envPrefix:"RETRY_"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size" env:"SIZE"`
	Overlap int `yaml:"overlap" env:"OVERLAP"`
}

// RetrievalConfig configures the top-k search.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" env:"TOP_K"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string       `yaml:"type" env:"TYPE"`
	Qdrant QdrantConfig `yaml:"qdrant" envPrefix:"QDRANT_"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL              string `yaml:"url" env:"URL"`
	APIKeyEnv        string `yaml:"api_key_env" env:"API_KEY_ENV"`
	CollectionPrefix string `yaml:"collection_prefix" env:"COLLECTION_PREFIX"`
	TimeoutSecs      int    `yaml:"timeout_secs" env:"TIMEOUT_SECS"`
}

// LoaderConfig bounds URL fetching.
type LoaderConfig struct {
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs" env:"FETCH_TIMEOUT_SECS"`
	MaxBytes         int64  `yaml:"max_bytes" env:"MAX_BYTES"`
	UserAgent        string `yaml:"user_agent" env:"USER_AGENT"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type" env:"TYPE"`
	MaxSentences int    `yaml:"max_sentences" env:"MAX_SENTENCES"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string `yaml:"addr" env:"ADDR"`
	SessionTTLMins  int    `yaml:"session_ttl_mins" env:"SESSION_TTL_MINS"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	RequestTimeSecs int    `yaml:"request_timeout_secs" env:"REQUEST_TIMEOUT_SECS"`
}

// LogConfig configures the zap logger. An empty File in chat mode discards logs.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	File   string `yaml:"file,omitempty" env:"FILE"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder" envPrefix:"EMBEDDER_"`
	Chat        ChatConfig        `yaml:"chat" envPrefix:"CHAT_"`
	Chunker     ChunkerConfig     `yaml:"chunker" envPrefix:"CHUNKER_"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" envPrefix:"RETRIEVAL_"`
	VectorStore VectorStoreConfig `yaml:"vector_store" envPrefix:"VECTOR_STORE_"`
	Loader      LoaderConfig      `yaml:"loader" envPrefix:"LOADER_"`
	Summarizer  SummarizerConfig  `yaml:"summarizer" envPrefix:"SUMMARIZER_"`
	Server      ServerConfig      `yaml:"server" envPrefix:"SERVER_"`
	Log         LogConfig         `yaml:"log" envPrefix:"LOG_"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment variables prefixed with DOCQA_ override file values.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err != nil {
		if err := Save(userPath, defaultConfig()); err != nil {
			return nil, "", err
		}
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports every invalid setting at once.
func (c *AppConfig) Validate() error {
	var errs []error
	if !oneOf(c.Embedder.Type, "openai", "google", "tfidf") {
		errs = append(errs, fmt.Errorf("embedder.type: unknown %q", c.Embedder.Type))
	}
	if !oneOf(c.Chat.Type, "openai", "anthropic", "google") {
		errs = append(errs, fmt.Errorf("chat.type: unknown %q", c.Chat.Type))
	}
	if !oneOf(c.VectorStore.Type, "memory", "qdrant") {
		errs = append(errs, fmt.Errorf("vector_store.type: unknown %q", c.VectorStore.Type))
	}
	if c.VectorStore.Type == "qdrant" && c.VectorStore.Qdrant.URL == "" {
		errs = append(errs, errors.New("vector_store.qdrant.url: required"))
	}
	if c.Summarizer.Type != "frequency" {
		errs = append(errs, fmt.Errorf("summarizer.type: unknown %q", c.Summarizer.Type))
	}
	if c.Chunker.Overlap >= c.Chunker.Size {
		errs = append(errs, fmt.Errorf("chunker.overlap (%d) must be smaller than chunker.size (%d)", c.Chunker.Overlap, c.Chunker.Size))
	}
	if c.Chunker.Overlap < 0 {
		errs = append(errs, errors.New("chunker.overlap: must not be negative"))
	}
	if t := c.Chat.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("chat.temperature: %v out of range [0, 2]", *t))
	}
	if n := c.Chat.HistoryTurns; n != nil && *n < 0 {
		errs = append(errs, errors.New("chat.history_turns: must not be negative"))
	}
	if !oneOf(c.Log.Format, "json", "console") {
		errs = append(errs, fmt.Errorf("log.format: unknown %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// APIKey resolves the embedder credential from the environment.
func (c EmbedderConfig) APIKey() string { return os.Getenv(c.APIKeyEnv) }

func (c EmbedderConfig) Timeout() time.Duration { return secs(c.TimeoutSecs) }

// APIKey resolves the chat credential from the environment.
func (c ChatConfig) APIKey() string { return os.Getenv(c.APIKeyEnv) }

func (c ChatConfig) Timeout() time.Duration { return secs(c.TimeoutSecs) }

// APIKey resolves the Qdrant credential from the environment.
func (c QdrantConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

func (c QdrantConfig) Timeout() time.Duration { return secs(c.TimeoutSecs) }

func (c LoaderConfig) FetchTimeout() time.Duration { return secs(c.FetchTimeoutSecs) }

func (c ServerConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMins) * time.Minute
}

func (c ServerConfig) RequestTimeout() time.Duration { return secs(c.RequestTimeSecs) }

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	e := &cfg.Embedder
	if e.Type == "" {
		e.Type = "openai"
	}
	switch e.Type {
	case "openai":
		if e.BaseURL == "" {
			e.BaseURL = "https://api.together.xyz/v1"
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "TOGETHER_API_KEY"
		}
		if e.Model == "" {
			e.Model = "togethercomputer/m2-bert-80M-8k-retrieval"
		}
	case "google":
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "GEMINI_API_KEY"
		}
		if e.Model == "" {
			e.Model = "text-embedding-004"
		}
	}
	if e.TimeoutSecs == 0 {
		e.TimeoutSecs = 30
	}
	if e.BatchSize == 0 {
		e.BatchSize = 32
	}
	if e.RequestsPerSecond == 0 {
		e.RequestsPerSecond = 5
	}
	fillRetry(&e.Retry, 3)

	c := &cfg.Chat
	if c.Type == "" {
		c.Type = "openai"
	}
	switch c.Type {
	case "openai":
		if c.BaseURL == "" {
			c.BaseURL = "https://api.together.xyz/v1"
		}
		if c.APIKeyEnv == "" {
			c.APIKeyEnv = "TOGETHER_API_KEY"
		}
		if c.Model == "" {
			c.Model = "deepseek-ai/DeepSeek-V3"
		}
	case "anthropic":
		if c.APIKeyEnv == "" {
			c.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
		if c.Model == "" {
			c.Model = "claude-sonnet-4-5"
		}
	case "google":
		if c.APIKeyEnv == "" {
			c.APIKeyEnv = "GEMINI_API_KEY"
		}
		if c.Model == "" {
			c.Model = "gemini-1.5-flash"
		}
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 60
	}
	if c.Temperature == nil {
		t := float32(0.7)
		c.Temperature = &t
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.HistoryTurns == nil {
		n := 5
		c.HistoryTurns = &n
	}
	fillRetry(&c.Retry, 1)

	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 200
		}
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	q := &cfg.VectorStore.Qdrant
	if q.CollectionPrefix == "" {
		q.CollectionPrefix = "docqa"
	}
	if q.TimeoutSecs == 0 {
		q.TimeoutSecs = 15
	}
	if cfg.Loader.FetchTimeoutSecs == 0 {
		cfg.Loader.FetchTimeoutSecs = 20
	}
	if cfg.Loader.MaxBytes == 0 {
		cfg.Loader.MaxBytes = 50 << 20
	}
	if cfg.Loader.UserAgent == "" {
		cfg.Loader.UserAgent = "docqa/1.0"
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.SessionTTLMins == 0 {
		cfg.Server.SessionTTLMins = 60
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 50 << 20
	}
	if cfg.Server.RequestTimeSecs == 0 {
		cfg.Server.RequestTimeSecs = 180
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

func fillRetry(rc *retry.RetryConfig, attempts uint) {
	def := retry.DefaultRetryConfig()
	if rc.Attempts == 0 {
		rc.Attempts = attempts
	}
	if rc.DelayMS == 0 {
		rc.DelayMS = def.DelayMS
	}
	if rc.MaxDelayMS == 0 {
		rc.MaxDelayMS = def.MaxDelayMS
	}
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }
