package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Lake   LakeConfig
	Engine EngineConfig
	AI     AIConfig
	Server ServerConfig
	Views  ViewsConfig
	App    AppConfig
}

type LakeConfig struct {
	Endpoint  string // MinIO/S3 endpoint, scheme included (http://localhost:9000)
	AccessKey string
	SecretKey string
	Bucket    string
}

type EngineConfig struct {
	DSN string // DuckDB connection string; empty or ":memory:" for in-memory
}

type AIConfig struct {
	Provider        string // "openai" or "anthropic"
	Model           string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	BaseURL         string // optional override for OpenAI-compatible proxies
}

type ServerConfig struct {
	Host string
	Port int
}

type ViewsConfig struct {
	Path string // JSON file holding persisted view definitions
}

type AppConfig struct {
	MaxDisplayRows int
	LogLevel       string
	Debug          bool
}

func defaults() Config {
	return Config{
		Lake: LakeConfig{
			Endpoint:  "http://localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin123",
			Bucket:    "convo",
		},
		Engine: EngineConfig{
			DSN: ":memory:",
		},
		AI: AIConfig{
			Provider: "openai",
			Model:    "gpt-4",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Views: ViewsConfig{
			Path: "data/views_config.json",
		},
		App: AppConfig{
			MaxDisplayRows: 10,
			LogLevel:       "info",
		},
	}
}

// Load reads configuration from a .env file (if present) and CONVOQL_*
// environment variables. Missing values fall back to local-development
// defaults (MinIO on localhost, in-memory DuckDB). Missing AI credentials do
// not fail Load; the LLM provider constructor is the fail-fast point.
func Load() (Config, error) {
	// Loads .env if present, silently ignores if not.
	_ = godotenv.Load()

	cfg := defaults()
	applyEnvOverrides(&cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}

	return cfg, nil
}

// UseSSL reports whether the lake endpoint is HTTPS.
func (l LakeConfig) UseSSL() bool {
	return strings.HasPrefix(strings.ToLower(l.Endpoint), "https://")
}

// Host returns the endpoint with the scheme stripped, the form DuckDB's
// s3_endpoint setting expects.
func (l LakeConfig) Host() string {
	host := strings.TrimPrefix(l.Endpoint, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}

// TableS3Path returns the glob covering the conversation_entry parquet files.
func (c Config) TableS3Path() string {
	return fmt.Sprintf("s3://%s/tables/conversation_entry/**/*.parquet", c.Lake.Bucket)
}

// APIKey returns the key for the configured provider.
func (a AIConfig) APIKey() string {
	if strings.EqualFold(a.Provider, "anthropic") {
		return a.AnthropicAPIKey
	}
	return a.OpenAIAPIKey
}

// Validate reports configuration issues without failing. The caller decides
// which of them are fatal; the status command just displays them.
func (c Config) Validate() []string {
	var issues []string
	if c.AI.OpenAIAPIKey == "" && c.AI.AnthropicAPIKey == "" {
		issues = append(issues, "no AI API keys configured (CONVOQL_OPENAI_API_KEY or CONVOQL_ANTHROPIC_API_KEY)")
	}
	if c.Lake.Bucket == "" {
		issues = append(issues, "lake bucket not configured")
	}
	if c.Views.Path == "" {
		issues = append(issues, "views config path not configured")
	}
	return issues
}
