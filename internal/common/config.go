package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Sources     SourcesConfig   `toml:"sources"`
	Chunking    ChunkingConfig  `toml:"chunking"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	Prompt      PromptConfig    `toml:"prompt"`
	LLM         LLMConfig       `toml:"llm"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	Storage     StorageConfig   `toml:"storage"`
	Refresh     RefreshConfig   `toml:"refresh"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

// SourcesConfig describes where raw documents come from and how content is
// selected out of them. Locations may be http(s) URLs or filesystem paths.
type SourcesConfig struct {
	Locations       []string      `toml:"locations"`
	ContentSelector string        `toml:"content_selector"` // CSS selector restricting extraction to content regions
	UserAgent       string        `toml:"user_agent"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	MaxBodySize     int           `toml:"max_body_size"` // bytes
}

type ChunkingConfig struct {
	ChunkSize    int `toml:"chunk_size" validate:"gt=0"`
	ChunkOverlap int `toml:"chunk_overlap" validate:"gte=0"`
}

type RetrievalConfig struct {
	TopK int `toml:"top_k" validate:"gt=0"`
}

// PromptConfig selects the fixed prompt template rendered at the merge stage
type PromptConfig struct {
	Template string `toml:"template" validate:"required"`
}

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
}

// GeminiConfig contains Google Gemini API configuration. Gemini always
// provides embeddings; it provides generation when selected as the provider.
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	EmbedModel     string  `toml:"embed_model"`
	EmbedDimension int     `toml:"embed_dimension" validate:"gt=0"`
	Timeout        string  `toml:"timeout"`    // duration string, e.g. "2m"
	RateLimit      string  `toml:"rate_limit"` // minimum interval between requests, e.g. "4s"
	Temperature    float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens" validate:"gt=0"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`          // Persist chunks+embeddings so the index survives restarts
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean runs
}

// RefreshConfig controls scheduled re-ingestion. Each refresh builds a new
// index handle and swaps it in; the old index is never mutated.
type RefreshConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron format
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in perquire.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Sources: SourcesConfig{
			Locations:       []string{"https://lilianweng.github.io/posts/2023-06-23-agent"},
			ContentSelector: ".post-content, .post-title, .post-header",
			UserAgent:       "perquire/" + Version,
			RequestTimeout:  30 * time.Second,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
		},
		Chunking: ChunkingConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK: 4,
		},
		Prompt: PromptConfig{
			Template: "qa/concise",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Gemini: GeminiConfig{
			APIKey:         "",
			Model:          "gemini-2.0-flash",
			EmbedModel:     "gemini-embedding-001",
			EmbedDimension: 768,
			Timeout:        "2m",
			RateLimit:      "4s", // free tier is 15 RPM
			Temperature:    0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   1024,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled: false,
				Path:    "./data",
			},
		},
		Refresh: RefreshConfig{
			Enabled:  false,
			Schedule: "0 0 */6 * * *", // every 6 hours
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PERQUIRE_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PERQUIRE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PERQUIRE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("PERQUIRE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if provider := os.Getenv("PERQUIRE_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// API keys: PERQUIRE_-prefixed variables win, then the vendor-standard names
	if key := os.Getenv("PERQUIRE_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = key
	}

	if key := os.Getenv("PERQUIRE_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = key
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration before any work begins. All failures are
// returned as ConfigError.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return NewConfigError("invalid configuration: %v", err)
	}

	// Relational rules validator tags cannot express
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return NewConfigError("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}

	// Gemini always serves embeddings, so its key is required regardless of
	// the generation provider.
	if c.Gemini.APIKey == "" {
		return NewConfigError("Gemini API key is required (set PERQUIRE_GEMINI_API_KEY, GEMINI_API_KEY, or gemini.api_key in config)")
	}
	if c.LLM.DefaultProvider == LLMProviderClaude && c.Claude.APIKey == "" {
		return NewConfigError("Claude API key is required when llm.default_provider is claude (set PERQUIRE_CLAUDE_API_KEY, ANTHROPIC_API_KEY, or claude.api_key in config)")
	}

	if _, err := time.ParseDuration(c.Gemini.Timeout); err != nil {
		return NewConfigError("invalid gemini.timeout %q: %v", c.Gemini.Timeout, err)
	}
	if _, err := time.ParseDuration(c.Gemini.RateLimit); err != nil {
		return NewConfigError("invalid gemini.rate_limit %q: %v", c.Gemini.RateLimit, err)
	}
	if c.LLM.DefaultProvider == LLMProviderClaude {
		if _, err := time.ParseDuration(c.Claude.Timeout); err != nil {
			return NewConfigError("invalid claude.timeout %q: %v", c.Claude.Timeout, err)
		}
		if _, err := time.ParseDuration(c.Claude.RateLimit); err != nil {
			return NewConfigError("invalid claude.rate_limit %q: %v", c.Claude.RateLimit, err)
		}
	}

	return nil
}
