package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conneroisu/mdpreview/internal/bridge"
	"github.com/conneroisu/mdpreview/internal/config"
	"github.com/conneroisu/mdpreview/internal/document"
	"github.com/conneroisu/mdpreview/internal/engine"
	"github.com/conneroisu/mdpreview/internal/logging"
	"github.com/conneroisu/mdpreview/internal/mount"
	"github.com/conneroisu/mdpreview/internal/patch"
	"github.com/conneroisu/mdpreview/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	// watchBatchDelay coalesces the burst of filesystem events a single
	// editor save produces. Edit debouncing happens in the engine.
	watchBatchDelay = 50 * time.Millisecond

	shutdownTimeout = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:     "serve <file.md>",
	Aliases: []string{"s"},
	Short:   "Preview a markdown document in the browser",
	Long: `Start the preview server for a markdown document. The page updates as
the file is saved; content-only edits are patched in place and keep the
scroll position.

Examples:
  mdpreview serve README.md                  # Serve on localhost:8080
  mdpreview serve notes.md --port 3000       # Custom port
  mdpreview serve notes.md --theme dark      # Pick a theme
  mdpreview serve notes.md --no-open         # Don't open a browser`,
	Args: documentArg,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServerFlags(serveCmd)
	addPreviewFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return servePreview(ctx, cfg, logger)
}

// servePreview wires the preview for cfg.Document and serves it until ctx is
// cancelled.
func servePreview(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	stack, err := newRenderStack(cfg, logger)
	if err != nil {
		return err
	}
	reportConfigIssues(ctx, cfg, logger)

	source, err := document.NewFileSource(cfg.Document, watchBatchDelay, logger)
	if err != nil {
		return err
	}

	hub := server.NewHub(logger)
	hubBridge := bridge.NewHubBridge(hub, logger)
	patches := patch.NewChannel(logger)
	controller := mount.NewController(mount.Config{
		Bridge:      hubBridge,
		Patch:       patches,
		Diagnostics: hub,
		Guard:       mount.NewGuard(cfg.Preview.MinUpdateInterval),
		Options:     bridge.Options{Isolation: cfg.Preview.Isolation},
		Logger:      logger,
	})

	eng, err := engine.New(engine.Deps{
		Path:        source.Path(),
		Source:      source,
		Pipeline:    stack.pipeline,
		Cache:       stack.cache,
		Themes:      stack.themes,
		Mount:       controller,
		Patch:       patches,
		Observer:    hubBridge,
		Settings:    cfg.Snapshot(),
		Author:      cfg.Metadata.Author,
		QuietWindow: cfg.Preview.Debounce,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	srv := server.New(cfg, eng, hub, hubBridge, server.Options{
		Isolation: cfg.Preview.Isolation,
		Stages:    stack.stages,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	if err := source.Start(gctx); err != nil {
		return fmt.Errorf("watching %s: %w", cfg.Document, err)
	}
	defer source.Stop()

	if cfg.Preview.ThemesDir != "" {
		stopThemes, err := watchDir(gctx, cfg.Preview.ThemesDir, []string{".css"}, func() {
			eng.ReloadStylesheet(gctx)
		}, logger)
		if err != nil {
			return fmt.Errorf("watching themes: %w", err)
		}
		defer stopThemes()
	}

	if cfg.Preview.TemplatesDir != "" {
		stopTemplates, err := watchDir(gctx, cfg.Preview.TemplatesDir, []string{".html", ".tmpl"}, func() {
			if _, err := stack.templates.LoadDir(cfg.Preview.TemplatesDir); err != nil {
				logger.Warn(gctx, err, "Reloading templates failed")
				return
			}
			eng.ClearCache()
			eng.EnsureRendered(gctx)
		}, logger)
		if err != nil {
			return fmt.Errorf("watching templates: %w", err)
		}
		defer stopTemplates()
	}

	if err := eng.Start(gctx); err != nil {
		return err
	}

	g.Go(func() error {
		return srv.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, err, "Preview server stopped with error")
		return err
	}
	logger.Info(ctx, "Preview server stopped")
	return nil
}

// reportConfigIssues logs references to stages, themes or templates that do
// not exist. They degrade rendering but do not stop the preview.
func reportConfigIssues(ctx context.Context, cfg *config.Config, logger logging.Logger) {
	result := config.ValidateConfigWithDetails(cfg, newCatalog(cfg))
	for _, issue := range append(result.Errors, result.Warnings...) {
		logger.Warn(ctx, nil, "Configuration issue", "field", issue.Field, "problem", issue.Message)
	}
}
