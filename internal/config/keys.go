package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "CONVOQL_MINIO_ENDPOINT", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Lake.Endpoint = v.(string) },
	},
	{
		env: "CONVOQL_MINIO_ACCESS_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Lake.AccessKey = v.(string) },
	},
	{
		env: "CONVOQL_MINIO_SECRET_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Lake.SecretKey = v.(string) },
	},
	{
		env: "CONVOQL_BUCKET_NAME", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Lake.Bucket = v.(string) },
	},
	{
		env: "CONVOQL_DUCKDB_DSN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Engine.DSN = v.(string) },
	},
	{
		env: "CONVOQL_AI_PROVIDER", typ: kString,
		apply: func(cfg *Config, v any) { cfg.AI.Provider = v.(string) },
	},
	{
		env: "CONVOQL_AI_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.AI.Model = v.(string) },
	},
	{
		env: "CONVOQL_OPENAI_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.AI.OpenAIAPIKey = v.(string) },
	},
	{
		env: "CONVOQL_ANTHROPIC_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.AI.AnthropicAPIKey = v.(string) },
	},
	{
		env: "CONVOQL_AI_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.AI.BaseURL = v.(string) },
	},
	{
		env: "CONVOQL_API_HOST", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
	},
	{
		env: "CONVOQL_API_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "CONVOQL_VIEWS_CONFIG_PATH", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Views.Path = v.(string) },
	},
	{
		env: "CONVOQL_MAX_DISPLAY_ROWS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.App.MaxDisplayRows = v.(int) },
	},
	{
		env: "CONVOQL_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.App.LogLevel = v.(string) },
	},
	{
		env: "CONVOQL_DEBUG_MODE", typ: kBool,
		apply: func(cfg *Config, v any) { cfg.App.Debug = v.(bool) },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
