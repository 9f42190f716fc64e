package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question-and-answer session",
	Long: `Interactive question-and-answer session against the conversation data.

Commands inside the session:
  \sql     toggle printing of generated SQL
  \views   list the registered views
  \quit    exit the session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		if app.agent == nil {
			return fmt.Errorf("SQL agent not available: set CONVOQL_OPENAI_API_KEY or CONVOQL_ANTHROPIC_API_KEY")
		}

		sessionID := uuid.New().String()
		fmt.Printf("convoql chat (session %s)\n", sessionID[:8])
		fmt.Println("Ask a question, or \\quit to exit.")

		showSQL := app.cfg.App.Debug
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print(colorize(colorBold, "? "))
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}

			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
				continue
			case line == `\quit`, line == `\q`, line == "exit":
				return nil
			case line == `\sql`:
				showSQL = !showSQL
				if showSQL {
					fmt.Println("SQL display on.")
				} else {
					fmt.Println("SQL display off.")
				}
				continue
			case line == `\views`:
				for _, def := range app.store.List() {
					fmt.Printf("  %s  %s\n", colorize(colorCyan, def.Name), def.Description)
				}
				continue
			case strings.HasPrefix(line, `\`):
				fmt.Printf("Unknown command %s\n", line)
				continue
			}

			answer, err := app.agent.Ask(cmd.Context(), line)
			if err != nil {
				printError("%v", err)
				continue
			}

			if showSQL {
				fmt.Printf("%s\n%s\n\n", colorize(colorBold, "SQL:"), answer.SQL)
			}
			fmt.Print(renderResult(answer.Result, app.cfg.App.MaxDisplayRows))
		}
	},
}
