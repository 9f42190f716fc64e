package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/convoql/internal/config"
	"github.com/kalambet/convoql/internal/lake"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask an analytics question in natural language",
	Long: `Ask an analytics question in natural language.

Examples:
  convoql ask "how many conversations happened last week?"
  convoql ask --sql "what are the most popular actions?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		showSQL, _ := cmd.Flags().GetBool("sql")

		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		if app.agent == nil {
			return fmt.Errorf("SQL agent not available: set CONVOQL_OPENAI_API_KEY or CONVOQL_ANTHROPIC_API_KEY")
		}

		answer, err := app.agent.Ask(cmd.Context(), question)
		if err != nil {
			return err
		}

		if showSQL || app.cfg.App.Debug {
			fmt.Fprintf(os.Stderr, "%s\n%s\n\n", colorize(colorBold, "SQL:"), answer.SQL)
		}
		fmt.Print(renderResult(answer.Result, app.cfg.App.MaxDisplayRows))
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("sql", false, "print the generated SQL before the results")
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("config error: %v", err)
			return nil
		}

		for _, issue := range cfg.Validate() {
			printWarning("%s", issue)
		}

		printStatus("Lake", "%s (bucket %s)", cfg.Lake.Endpoint, cfg.Lake.Bucket)

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		client, err := lake.New(ctx, lake.Config{
			Endpoint:  cfg.Lake.Endpoint,
			AccessKey: cfg.Lake.AccessKey,
			SecretKey: cfg.Lake.SecretKey,
			Bucket:    cfg.Lake.Bucket,
		})
		if err != nil {
			printStatus("Bucket", "client error: %v", err)
		} else if err := client.CheckBucket(ctx); err != nil {
			printStatus("Bucket", "unreachable: %v", err)
		} else {
			printStatus("Bucket", "reachable")
			if inv, err := client.TableInventory(ctx); err == nil {
				printStatus("Parquet files", "%d (%.1f MB)", inv.Objects, float64(inv.TotalBytes)/(1024*1024))
			}
		}

		printStatus("AI provider", "%s (%s)", cfg.AI.Provider, cfg.AI.Model)
		if cfg.AI.APIKey() == "" {
			printStatus("SQL agent", "disabled (no API key)")
		} else {
			printStatus("SQL agent", "enabled")
		}

		printStatus("View registry", "%s", cfg.Views.Path)
		printStatus("Server", "%s:%d", cfg.Server.Host, cfg.Server.Port)
		return nil
	},
}

// --- views ---

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Manage analytical views",
}

var viewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered views",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}

		defs := app.store.List()
		if len(defs) == 0 {
			fmt.Println("No views registered.")
			return nil
		}

		for _, def := range defs {
			fmt.Printf("%s  %s\n", colorize(colorCyan, def.Name), def.Description)
			if len(def.Tags) > 0 {
				fmt.Printf("  tags: %s\n", strings.Join(def.Tags, ", "))
			}
		}
		return nil
	},
}

var viewsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a view definition as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}

		def, ok := app.store.Get(args[0])
		if !ok {
			return fmt.Errorf("view %q not found", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(def)
	},
}

var viewsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a view from a SQL query (validated before it is saved)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sqlQuery, _ := cmd.Flags().GetString("sql")
		file, _ := cmd.Flags().GetString("file")
		description, _ := cmd.Flags().GetString("description")
		tagsStr, _ := cmd.Flags().GetString("tags")
		replace, _ := cmd.Flags().GetBool("replace")

		if sqlQuery == "" && file == "" {
			return fmt.Errorf("one of --sql or --file is required")
		}
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			sqlQuery = string(data)
		}

		var tags []string
		if tagsStr != "" {
			tags = strings.Split(tagsStr, ",")
			for i := range tags {
				tags[i] = strings.TrimSpace(tags[i])
			}
		}

		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}

		def, err := app.store.Create(cmd.Context(), args[0], description, sqlQuery, tags, replace)
		if err != nil {
			return err
		}

		printSuccess("Created view %s", def.Name)
		if cols := app.store.DescribeColumns(cmd.Context(), def.Name); len(cols) > 0 {
			printStatus("Columns", "%s", strings.Join(cols, ", "))
		}
		return nil
	},
}

var viewsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}

		deleted, err := app.store.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !deleted {
			printWarning("View %s does not exist", args[0])
			return nil
		}
		printSuccess("Deleted view %s", args[0])
		return nil
	},
}

var viewsDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Create or refresh the built-in analytical views",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}

		if err := app.store.CreateDefaults(cmd.Context()); err != nil {
			return err
		}
		printSuccess("Default views ready: %s", strings.Join(viewNames(app), ", "))
		return nil
	},
}

func viewNames(app *app) []string {
	defs := app.store.List()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

func init() {
	viewsCreateCmd.Flags().String("sql", "", "defining SQL query")
	viewsCreateCmd.Flags().String("file", "", "file containing the defining SQL query")
	viewsCreateCmd.Flags().String("description", "", "human-readable description")
	viewsCreateCmd.Flags().String("tags", "", "comma-separated tags")
	viewsCreateCmd.Flags().Bool("replace", false, "replace an existing view with the same name")

	viewsCmd.AddCommand(viewsListCmd)
	viewsCmd.AddCommand(viewsShowCmd)
	viewsCmd.AddCommand(viewsCreateCmd)
	viewsCmd.AddCommand(viewsDeleteCmd)
	viewsCmd.AddCommand(viewsDefaultsCmd)
}
