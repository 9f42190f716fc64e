// Command convoql is a natural-language analytics tool for conversation
// history stored as parquet in an S3-compatible object store. It serves a
// REST API and an MCP server, and offers direct CLI access to the same
// pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/convoql/internal/agent"
	"github.com/kalambet/convoql/internal/composer"
	"github.com/kalambet/convoql/internal/config"
	"github.com/kalambet/convoql/internal/engine"
	"github.com/kalambet/convoql/internal/llm"
	"github.com/kalambet/convoql/internal/views"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "convoql",
	Short:   "Natural-language analytics over conversation history",
	Version: version,
	Long: `convoql answers analytics questions about conversation history by
generating DuckDB SQL with a language model and running it against parquet
files in an S3-compatible object store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(viewsCmd)
}

// app bundles the wired components behind every command.
type app struct {
	cfg   config.Config
	store *views.Store
	exec  *engine.Executor
	agent *agent.Agent // nil when no AI credentials are configured
}

// buildApp loads configuration and wires the store, executor, and agent.
// A corrupt view registry or missing AI credentials degrade with a warning
// instead of failing startup.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	setupLogging(cfg)

	adapter := engine.NewAdapter(engine.Settings{
		DSN:       cfg.Engine.DSN,
		Endpoint:  cfg.Lake.Host(),
		AccessKey: cfg.Lake.AccessKey,
		SecretKey: cfg.Lake.SecretKey,
		UseSSL:    cfg.Lake.UseSSL(),
	})

	store, err := views.Open(cfg.Views.Path, cfg.TableS3Path(), adapter)
	if err != nil {
		var corrupt *views.CorruptStoreError
		if !errors.As(err, &corrupt) {
			return nil, fmt.Errorf("opening view store: %w", err)
		}
		printWarning("view registry at %s is corrupt, starting empty: %v", cfg.Views.Path, err)
	}

	exec := engine.NewExecutor(adapter, store.EngineViews)

	a := &app{cfg: cfg, store: store, exec: exec}

	provider, err := llm.New(llm.Config{
		Provider: cfg.AI.Provider,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey(),
		BaseURL:  cfg.AI.BaseURL,
	})
	switch {
	case err == nil:
		builder := composer.New(composer.DefaultSchema(cfg.TableS3Path()))
		a.agent = agent.New(provider, builder, store, exec)
	case errors.Is(err, llm.ErrMissingAPIKey):
		slog.Warn("SQL agent disabled", "reason", err)
	default:
		return nil, err
	}

	return a, nil
}

func setupLogging(cfg config.Config) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.App.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
