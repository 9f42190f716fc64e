package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/convoql/internal/api"
	"github.com/kalambet/convoql/internal/lake"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analytics server (REST API, optionally MCP over stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		defaults, _ := cmd.Flags().GetBool("defaults")
		return runServer(withMCP, defaults)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP over stdio")
	serveCmd.Flags().Bool("defaults", true, "ensure the built-in views exist on startup")
}

func runServer(withMCP, ensureDefaults bool) error {
	fmt.Fprintf(os.Stderr, "convoql version %s\n", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}

	if ensureDefaults {
		if err := app.store.CreateDefaults(ctx); err != nil {
			slog.Warn("could not create default views", "error", err)
		}
	}

	// Lake client is for health reporting only; queries go through DuckDB.
	var lakeClient api.LakeChecker
	if client, err := lake.New(ctx, lake.Config{
		Endpoint:  app.cfg.Lake.Endpoint,
		AccessKey: app.cfg.Lake.AccessKey,
		SecretKey: app.cfg.Lake.SecretKey,
		Bucket:    app.cfg.Lake.Bucket,
	}); err != nil {
		slog.Warn("lake health checks disabled", "error", err)
	} else {
		lakeClient = client
	}

	deps := api.Deps{
		Views:  app.store,
		Runner: app.exec,
		Lake:   lakeClient,
	}
	if app.agent != nil {
		deps.Agent = app.agent
	}

	addr := fmt.Sprintf("%s:%d", app.cfg.Server.Host, app.cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(deps),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "convoql listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(deps)
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server error: %w", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
