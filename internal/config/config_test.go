package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Lake.Endpoint != "http://localhost:9000" {
		t.Errorf("unexpected lake endpoint: %q", cfg.Lake.Endpoint)
	}
	if cfg.Lake.Bucket != "convo" {
		t.Errorf("unexpected bucket: %q", cfg.Lake.Bucket)
	}
	if cfg.Engine.DSN != ":memory:" {
		t.Errorf("unexpected DSN: %q", cfg.Engine.DSN)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.Model != "gpt-4" {
		t.Errorf("unexpected AI defaults: %+v", cfg.AI)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("unexpected port: %d", cfg.Server.Port)
	}
	if cfg.App.MaxDisplayRows != 10 {
		t.Errorf("unexpected max display rows: %d", cfg.App.MaxDisplayRows)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONVOQL_MINIO_ENDPOINT", "https://minio.internal:9000")
	t.Setenv("CONVOQL_BUCKET_NAME", "analytics")
	t.Setenv("CONVOQL_AI_PROVIDER", "anthropic")
	t.Setenv("CONVOQL_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("CONVOQL_API_PORT", "9090")
	t.Setenv("CONVOQL_DEBUG_MODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Lake.Endpoint != "https://minio.internal:9000" {
		t.Errorf("endpoint override not applied: %q", cfg.Lake.Endpoint)
	}
	if cfg.Lake.Bucket != "analytics" {
		t.Errorf("bucket override not applied: %q", cfg.Lake.Bucket)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port override not applied: %d", cfg.Server.Port)
	}
	if !cfg.App.Debug {
		t.Error("debug override not applied")
	}
	if cfg.AI.APIKey() != "sk-test" {
		t.Errorf("provider-specific key selection failed: %q", cfg.AI.APIKey())
	}
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("CONVOQL_MAX_DISPLAY_ROWS", "lots")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.App.MaxDisplayRows != 10 {
		t.Errorf("expected default on unparseable int, got %d", cfg.App.MaxDisplayRows)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("CONVOQL_API_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an out-of-range port")
	}
}

func TestLakeConfig_Helpers(t *testing.T) {
	cases := []struct {
		endpoint string
		host     string
		ssl      bool
	}{
		{"http://localhost:9000", "localhost:9000", false},
		{"https://minio.internal:9000/", "minio.internal:9000", true},
		{"localhost:9000", "localhost:9000", false},
	}

	for _, c := range cases {
		l := LakeConfig{Endpoint: c.endpoint}
		if got := l.Host(); got != c.host {
			t.Errorf("Host(%q) = %q, want %q", c.endpoint, got, c.host)
		}
		if got := l.UseSSL(); got != c.ssl {
			t.Errorf("UseSSL(%q) = %v, want %v", c.endpoint, got, c.ssl)
		}
	}
}

func TestTableS3Path(t *testing.T) {
	cfg := Config{Lake: LakeConfig{Bucket: "convo"}}
	want := "s3://convo/tables/conversation_entry/**/*.parquet"
	if got := cfg.TableS3Path(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	issues := cfg.Validate()
	if len(issues) != 1 {
		t.Fatalf("expected one issue (missing AI keys), got %v", issues)
	}

	cfg.AI.OpenAIAPIKey = "sk-test"
	if issues := cfg.Validate(); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}
