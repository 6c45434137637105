package model

import "time"

// Config holds the full runtime configuration
type Config struct {
	Reddit    RedditConfig    `yaml:"reddit" mapstructure:"reddit"`
	Prompt    PromptConfig    `yaml:"prompt" mapstructure:"prompt"`
	Grounding GroundingConfig `yaml:"grounding" mapstructure:"grounding"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
}

// RedditConfig configures the content provider
type RedditConfig struct {
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	Limit         int           `yaml:"limit" mapstructure:"limit"` // Max items per listing
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// PromptConfig bounds the compiled prompt
type PromptConfig struct {
	MaxChars     int `yaml:"max_chars" mapstructure:"max_chars"`          // Total content budget
	MaxItemChars int `yaml:"max_item_chars" mapstructure:"max_item_chars"` // Per-item body truncation
}

// GroundingConfig tunes citation verification
type GroundingConfig struct {
	// FuzzyThreshold is the minimum token-overlap ratio (0-1) for a fuzzy
	// excerpt match. No single correct value exists; tune per deployment.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
}

// LLMConfig configures the text-generation provider
type LLMConfig struct {
	Provider   string        `yaml:"provider" mapstructure:"provider"` // openai, groq, ollama
	Model      string        `yaml:"model" mapstructure:"model"`
	APIKey     string        `yaml:"-" mapstructure:"-"` // Never persisted
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens  int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// CacheConfig configures provider response caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, disk, redis, layered
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
}

// RateLimitConfig throttles provider requests per host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	TextPath string `yaml:"text_path" mapstructure:"text_path"` // Empty: <username>_persona.txt
	JSONPath string `yaml:"json_path" mapstructure:"json_path"` // Empty: skip JSON
	Debug    bool   `yaml:"debug" mapstructure:"debug"`         // Include diagnostics section
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			BaseURL:       "https://www.reddit.com",
			UserAgent:     "personaforge/0.1 (persona research tool)",
			Limit:         100,
			Timeout:       30 * time.Second,
			MaxBodyBytes:  4_000_000,
			RespectRobots: true,
			MaxRetries:    3,
		},
		Prompt: PromptConfig{
			MaxChars:     8000,
			MaxItemChars: 500,
		},
		Grounding: GroundingConfig{
			FuzzyThreshold: 0.6,
		},
		LLM: LLMConfig{
			Provider:   "groq",
			Model:      "llama-3.1-8b-instant",
			Timeout:    60 * time.Second,
			MaxTokens:  4096,
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "layered",
			Dir:     "", // Resolved to ~/.personaforge/cache at runtime
			TTL:     time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Output: OutputConfig{},
	}
}
