package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/mdpreview/internal/cache"
	"github.com/conneroisu/mdpreview/internal/config"
	"github.com/conneroisu/mdpreview/internal/logging"
	"github.com/conneroisu/mdpreview/internal/pipeline"
	"github.com/conneroisu/mdpreview/internal/stages"
	"github.com/conneroisu/mdpreview/internal/template"
	"github.com/conneroisu/mdpreview/internal/theme"
	"github.com/conneroisu/mdpreview/internal/watcher"
)

// renderStack is everything needed to turn document text into markup.
type renderStack struct {
	stages    *stages.Registry
	templates *template.Store
	themes    *theme.Store
	pipeline  *pipeline.Pipeline
	cache     *cache.RenderCache
}

func newRenderStack(cfg *config.Config, logger logging.Logger) (*renderStack, error) {
	templates := template.NewStore()
	if n, err := templates.LoadDir(cfg.Preview.TemplatesDir); err != nil {
		return nil, err
	} else if n > 0 {
		logger.Info(context.Background(), "Loaded templates", "count", n, "dir", cfg.Preview.TemplatesDir)
	}

	registry := stages.NewBuiltinRegistry()
	return &renderStack{
		stages:    registry,
		templates: templates,
		themes:    theme.NewStore(cfg.Preview.ThemesDir),
		pipeline:  pipeline.New(registry, templates, logger),
		cache:     cache.New(cfg.Cache.Capacity),
	}, nil
}

// newCatalog lists the ids configuration may refer to. Unreadable directories
// contribute nothing; validation reports them separately.
func newCatalog(cfg *config.Config) config.Catalog {
	templates := template.NewStore()
	templates.LoadDir(cfg.Preview.TemplatesDir)

	return config.Catalog{
		Stages:    stages.NewBuiltinRegistry().IDs(),
		Themes:    theme.NewStore(cfg.Preview.ThemesDir).IDs(),
		Templates: templates.IDs(),
	}
}

// loadConfig resolves the configuration and attaches the document argument.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return nil, fmt.Errorf("resolving document path: %w", err)
		}
		cfg.Document = abs
	}
	return cfg, nil
}

// watchDir reports batched changes to files in dir whose extension is one of
// exts. The watcher runs until ctx is done; the returned stop func releases it.
func watchDir(ctx context.Context, dir string, exts []string, onChange func(), logger logging.Logger) (func() error, error) {
	fw, err := watcher.NewFileWatcher(watchBatchDelay, logger)
	if err != nil {
		return nil, err
	}

	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoBackupFilter)
	fw.AddFilter(extensionFilter(exts...))
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		logger.Debug(ctx, "Watched directory changed", "dir", dir, "events", len(events))
		onChange()
		return nil
	})

	if err := fw.AddPath(dir); err != nil {
		return nil, err
	}
	if err := fw.Start(ctx); err != nil {
		return nil, err
	}
	return fw.Stop, nil
}

func extensionFilter(exts ...string) watcher.FileFilter {
	return func(path string) bool {
		ext := strings.ToLower(filepath.Ext(path))
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
}
