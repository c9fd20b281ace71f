// Package engine is the public entry point of the preview: it accepts
// document snapshots, renders them through the cached pipeline and keeps the
// mounted preview surface in sync.
package engine

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"
	"time"

	"github.com/conneroisu/mdpreview/internal/cache"
	"github.com/conneroisu/mdpreview/internal/errors"
	"github.com/conneroisu/mdpreview/internal/logging"
	"github.com/conneroisu/mdpreview/internal/metadata"
	"github.com/conneroisu/mdpreview/internal/mount"
	"github.com/conneroisu/mdpreview/internal/patch"
	"github.com/conneroisu/mdpreview/internal/settings"
	"github.com/conneroisu/mdpreview/internal/watcher"
	"github.com/google/uuid"
)

// DocumentSource supplies the document text and change notifications.
type DocumentSource interface {
	Read(path string) (string, error)
	OnChange(fn func(text string))
}

// Pipeline renders document text to markup.
type Pipeline interface {
	Normalize(text string) string
	Render(ctx context.Context, document, text string, snap settings.Snapshot, meta metadata.Context) string
}

// Cache stores rendered markup by normalized text.
type Cache interface {
	GetOrCompute(key string, compute func() string) string
	Clear()
	Stats() cache.Stats
}

// StyleSource resolves theme stylesheets.
type StyleSource interface {
	Stylesheet(themeID string) (string, error)
}

// Mounter displays artifacts on the preview surface.
type Mounter interface {
	EnsureRendered(ctx context.Context, a mount.Artifact) (mount.Outcome, error)
	Unmount()
}

// PatchRegistry holds the surface used for content-only patches.
type PatchRegistry interface {
	RegisterTarget(t patch.Target)
	ClearTarget()
}

// Observer is told about content and styles that reached the surface
// without going through the bridge.
type Observer interface {
	RecordContent(markup string)
	RecordStyle(css string)
}

// Deps are the engine's collaborators. Path, Pipeline, Cache and Mount are
// required.
type Deps struct {
	Path        string
	Source      DocumentSource
	Pipeline    Pipeline
	Cache       Cache
	Themes      StyleSource
	Mount       Mounter
	Patch       PatchRegistry
	Observer    Observer
	Settings    settings.Snapshot
	Override    metadata.Override
	Author      string
	QuietWindow time.Duration
	Now         func() time.Time
	Logger      logging.Logger
}

// Engine coordinates change detection, rendering and mounting.
type Engine struct {
	path     string
	source   DocumentSource
	pipeline Pipeline
	cache    Cache
	themes   StyleSource
	mounter  Mounter
	patch    PatchRegistry
	observer Observer
	author   string
	now      func() time.Time
	logger   logging.Logger
	errors   *errors.ErrorHandler
	detector *watcher.ChangeDetector

	mu       sync.Mutex
	ctx      context.Context
	text     string
	snap     settings.Snapshot
	override metadata.Override
	artifact mount.Artifact
	stale    bool
	closed   bool
}

// New creates an engine with no document loaded.
func New(deps Deps) (*Engine, error) {
	if deps.Pipeline == nil || deps.Cache == nil || deps.Mount == nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "engine requires a pipeline, a cache and a mounter")
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithComponent("engine")

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		path:     deps.Path,
		source:   deps.Source,
		pipeline: deps.Pipeline,
		cache:    deps.Cache,
		themes:   deps.Themes,
		mounter:  deps.Mount,
		patch:    deps.Patch,
		observer: deps.Observer,
		author:   deps.Author,
		now:      now,
		logger:   logger,
		errors:   errors.NewErrorHandler(logger),
		ctx:      context.Background(),
		snap:     deps.Settings.Clone(),
		override: deps.Override.Clone(),
		stale:    true,
	}
	e.detector = watcher.NewChangeDetector(deps.QuietWindow, e.apply, logger)
	return e, nil
}

// Start loads the document, subscribes to its changes and renders once.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	if e.source == nil {
		return nil
	}

	text, err := e.source.Read(e.path)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.text = text
	e.stale = true
	e.mu.Unlock()

	e.source.OnChange(e.OnDocumentChanged)
	e.EnsureRendered(ctx)
	return nil
}

// OnDocumentChanged records a new snapshot. Rendering happens once the
// document has been quiet for the configured window.
func (e *Engine) OnDocumentChanged(text string) {
	e.detector.OnDocumentChanged(text)
}

// Flush renders a pending snapshot immediately.
func (e *Engine) Flush() {
	e.detector.Flush()
}

func (e *Engine) apply(text string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.text = text
	e.stale = true
	ctx := e.ctx
	e.mu.Unlock()

	// An error leaves the snapshot unprocessed, so re-saving the same text
	// renders it again.
	_, err := e.sync(ctx)
	return err
}

// errNotDisplayed reports a render that never reached the preview surface.
var errNotDisplayed = stderrors.New("render did not reach the preview surface")

// EnsureRendered returns the current markup, rendering it first if the
// document or settings changed, and brings the preview surface up to date.
// Failures are logged and never returned.
func (e *Engine) EnsureRendered(ctx context.Context) string {
	markup, _ := e.sync(ctx)
	return markup
}

// sync renders if needed and hands the artifact to the mounter. The error is
// non-nil when the artifact was not displayed.
func (e *Engine) sync(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.stale {
		e.artifact = e.compute(ctx)
		e.stale = false
	}
	artifact := e.artifact
	closed := e.closed
	e.mu.Unlock()

	if closed {
		return artifact.Markup, nil
	}

	outcome, err := e.mounter.EnsureRendered(ctx, artifact)
	switch {
	case stderrors.Is(err, mount.ErrDropped):
		e.logger.Debug(ctx, "Surface update dropped")
		return artifact.Markup, err
	case err != nil:
		e.errors.Handle(ctx, err)
		return artifact.Markup, err
	case outcome == mount.OutcomeBusy || outcome == mount.OutcomeStale:
		e.logger.Debug(ctx, "Surface update superseded", "outcome", outcome.String())
		return artifact.Markup, errNotDisplayed
	case outcome == mount.OutcomePatched && e.observer != nil:
		e.observer.RecordContent(artifact.Markup)
	case outcome == mount.OutcomeRestyled && e.observer != nil:
		e.observer.RecordStyle(artifact.CSS)
	}
	e.logger.Debug(ctx, "Surface synchronized", "outcome", outcome.String())

	return artifact.Markup, nil
}

// compute renders the current snapshot. Callers hold e.mu.
func (e *Engine) compute(ctx context.Context) mount.Artifact {
	renderID := uuid.NewString()
	perf := logging.StartOperation(e.logger, "render", "render_id", renderID, "document", e.path)

	meta := e.resolve(ctx, e.text)
	key := e.pipeline.Normalize(e.text)
	if e.snap.TemplateEnabled {
		// Templated output embeds front-matter values that the body key
		// does not capture.
		key += "\x00" + metaKey(meta)
	}

	snap := e.snap
	text := e.text
	markup := e.cache.GetOrCompute(key, func() string {
		return e.pipeline.Render(ctx, e.path, text, snap, meta)
	})

	perf.End(ctx)

	return mount.Artifact{
		Markup:  markup,
		CSS:     e.stylesheet(ctx, snap.ThemeID),
		Title:   meta.String(metadata.FieldTitle),
		ThemeID: snap.ThemeID,
	}
}

func (e *Engine) resolve(ctx context.Context, text string) metadata.Context {
	fm, err := metadata.ParseFrontmatter(text)
	if err != nil {
		e.errors.Handle(ctx, errors.NewParseError(e.path, err))
		fm = metadata.Frontmatter{}
	}
	defaults := metadata.ComputeDefaults(e.path, e.now(), e.author)
	return metadata.Resolve(e.override, fm, defaults)
}

func (e *Engine) stylesheet(ctx context.Context, themeID string) string {
	if e.themes == nil {
		return ""
	}
	css, err := e.themes.Stylesheet(themeID)
	if err != nil {
		e.errors.Handle(ctx, errors.Wrap(err, errors.ErrorTypeIO, errors.ErrCodeThemeNotFound, "loading stylesheet"))
		return ""
	}
	return css
}

// ReloadStylesheet re-reads the current theme and pushes it to the surface
// if it changed on disk.
func (e *Engine) ReloadStylesheet(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	css := e.stylesheet(ctx, e.snap.ThemeID)
	changed := css != e.artifact.CSS
	if changed {
		e.artifact.CSS = css
	}
	e.mu.Unlock()

	if changed {
		e.logger.Info(ctx, "Stylesheet reloaded", "bytes", len(css))
		e.EnsureRendered(ctx)
	}
}

// Stylesheet returns the stylesheet of the current theme.
func (e *Engine) Stylesheet() string {
	e.mu.Lock()
	themeID := e.snap.ThemeID
	ctx := e.ctx
	e.mu.Unlock()
	return e.stylesheet(ctx, themeID)
}

// RegisterPatchTarget sets the surface used for content-only updates.
func (e *Engine) RegisterPatchTarget(t patch.Target) {
	if e.patch != nil {
		e.patch.RegisterTarget(t)
	}
}

// ClearPatchTarget removes the patch surface; later updates go through the
// bridge.
func (e *Engine) ClearPatchTarget() {
	if e.patch != nil {
		e.patch.ClearTarget()
	}
}

// Settings returns a copy of the current settings.
func (e *Engine) Settings() settings.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Clone()
}

// UpdateSettings applies fn to the current settings. A change in the
// settings fingerprint clears the render cache and re-renders.
func (e *Engine) UpdateSettings(ctx context.Context, fn func(settings.Snapshot) settings.Snapshot) settings.Snapshot {
	e.mu.Lock()
	next := fn(e.snap.Clone())
	changed := next.Fingerprint() != e.snap.Fingerprint()
	if changed {
		e.snap = next
		e.cache.Clear()
		e.stale = true
	}
	current := e.snap.Clone()
	e.mu.Unlock()

	if changed {
		e.logger.Info(ctx, "Settings changed; cache cleared", "theme", current.ThemeID)
		e.EnsureRendered(ctx)
	}
	return current
}

// Override returns a copy of the metadata override.
func (e *Engine) Override() metadata.Override {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.override.Clone()
}

// SetOverride replaces the metadata override. Rendered markup embeds the
// template context, so a change clears the render cache.
func (e *Engine) SetOverride(ctx context.Context, o metadata.Override) {
	e.mu.Lock()
	changed := !reflect.DeepEqual(e.override, o)
	if changed {
		e.override = o.Clone()
		e.cache.Clear()
		e.stale = true
	}
	e.mu.Unlock()

	if changed {
		e.logger.Info(ctx, "Metadata override changed; cache cleared", "fields", len(o))
		e.EnsureRendered(ctx)
	}
}

// Metadata returns the resolved metadata for the current snapshot.
func (e *Engine) Metadata(ctx context.Context) metadata.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolve(ctx, e.text)
}

// Artifact returns the last computed artifact without rendering.
func (e *Engine) Artifact() mount.Artifact {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.artifact
}

// CacheStats returns render cache statistics.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// ClearCache empties the render cache and marks the current artifact stale.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.Clear()
	e.stale = true
}

// Close cancels pending renders and unmounts the surface.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.detector.Stop()
	e.mounter.Unmount()
}
