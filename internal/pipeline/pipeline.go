// Package pipeline turns a markdown snapshot into preview markup.
//
// A render strips front-matter, parses the body with goldmark, wraps the
// result in the preview container, applies the enabled transform stages in
// order and finally substitutes the markup into the selected template.
// Render never returns an error and never panics: stage and parse failures
// produce a visibly marked block holding the escaped source text.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/conneroisu/mdpreview/internal/errors"
	"github.com/conneroisu/mdpreview/internal/logging"
	"github.com/conneroisu/mdpreview/internal/metadata"
	"github.com/conneroisu/mdpreview/internal/settings"
	"github.com/conneroisu/mdpreview/internal/stages"
	"github.com/conneroisu/mdpreview/internal/template"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContainerID is the id of the element wrapping rendered content.
const ContainerID = "mdpreview-content"

// StageRegistry resolves stage ids to implementations.
type StageRegistry interface {
	Get(id string) (stages.Stage, bool)
}

// TemplateEngine looks up and compiles document templates.
type TemplateEngine interface {
	Lookup(id string) (string, bool)
	Compile(src string) (template.Renderer, error)
}

// Pipeline renders markdown to preview markup.
type Pipeline struct {
	stages    StageRegistry
	templates TemplateEngine
	logger    logging.Logger
	errors    *errors.ErrorHandler

	mu       sync.Mutex
	markdown map[string]goldmark.Markdown
	compiled map[string]compiledTemplate
}

// compiledTemplate is the last compiled source of a template id.
type compiledTemplate struct {
	src      string
	renderer template.Renderer
}

// New creates a pipeline. templates may be nil, in which case template
// substitution is always skipped.
func New(registry StageRegistry, templates TemplateEngine, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithComponent("pipeline")
	return &Pipeline{
		stages:    registry,
		templates: templates,
		logger:    logger,
		errors:    errors.NewErrorHandler(logger),
		markdown:  make(map[string]goldmark.Markdown),
		compiled:  make(map[string]compiledTemplate),
	}
}

// Normalize strips the leading front-matter block. The result is the render
// cache key.
func (p *Pipeline) Normalize(text string) string {
	return metadata.StripFrontmatter(text)
}

// Render produces the final markup for a document snapshot. document is only
// used for diagnostics.
func (p *Pipeline) Render(ctx context.Context, document, text string, snap settings.Snapshot, meta metadata.Context) (out string) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.NewInternalError(errors.ErrCodeInternalError,
				fmt.Sprintf("render panicked: %v", r), nil).WithDocument(document)
			p.errors.Handle(ctx, err)
			out = FallbackBlock(snap.ThemeID, text, err)
		}
	}()

	body := p.Normalize(text)

	markup, err := p.convert(body, snap)
	if err != nil {
		perr := errors.NewParseError(document, err)
		p.errors.Handle(ctx, perr)
		return FallbackBlock(snap.ThemeID, text, perr)
	}

	markup, err = wrap(markup, snap.ThemeID, snap.HideLeadingHeading)
	if err != nil {
		perr := errors.NewParseError(document, err)
		p.errors.Handle(ctx, perr)
		return FallbackBlock(snap.ThemeID, text, perr)
	}

	markup, err = p.applyStages(ctx, document, markup, snap)
	if err != nil {
		p.errors.Handle(ctx, err)
		return FallbackBlock(snap.ThemeID, text, err)
	}

	if !snap.TemplateEnabled || p.templates == nil {
		return markup
	}
	return p.applyTemplate(ctx, markup, snap.TemplateID, meta)
}

func (p *Pipeline) convert(body string, snap settings.Snapshot) (string, error) {
	md := p.converter(snap)
	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// converter returns a goldmark instance for the snapshot's highlight mode.
// Instances are safe for concurrent use and kept for reuse.
func (p *Pipeline) converter(snap settings.Snapshot) goldmark.Markdown {
	key := ""
	if snap.Highlight {
		key = snap.HighlightStyle
		if key == "" {
			key = "github"
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if md, ok := p.markdown[key]; ok {
		return md
	}

	extensions := []goldmark.Extender{
		extension.GFM,
		extension.Footnote,
	}
	if key != "" {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(key),
			highlighting.WithFormatOptions(
				// Themes carry no chroma classes, so colors stay inline.
				chromahtml.WithClasses(false),
				chromahtml.TabWidth(4),
			),
		))
	}

	md := goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
		),
	)
	p.markdown[key] = md
	return md
}

// wrap places markup inside the preview container, optionally dropping the
// first top-level h1.
func wrap(markup, themeID string, hideLeadingHeading bool) (string, error) {
	root, err := stages.ParseFragment(markup)
	if err != nil {
		return "", err
	}

	if hideLeadingHeading {
		for c := root.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.H1 {
				root.RemoveChild(c)
				break
			}
		}
	}

	section := &html.Node{
		Type:     html.ElementNode,
		Data:     "section",
		DataAtom: atom.Section,
		Attr: []html.Attribute{
			{Key: "id", Val: ContainerID},
			{Key: "class", Val: containerClass(themeID)},
		},
	}
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		root.RemoveChild(c)
		section.AppendChild(c)
		c = next
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, section); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func containerClass(themeID string) string {
	if themeID == "" {
		themeID = "default"
	}
	return "mdpreview theme-" + themeID
}

func (p *Pipeline) applyStages(ctx context.Context, document, markup string, snap settings.Snapshot) (string, error) {
	for _, cfg := range snap.EnabledStages() {
		if p.stages == nil {
			break
		}
		stage, ok := p.stages.Get(cfg.ID)
		if !ok {
			p.logger.Warn(ctx, nil, "Skipping unknown stage", "stage", cfg.ID, "document", document)
			continue
		}

		var err error
		markup, err = runStage(stage, document, markup, cfg.Config)
		if err != nil {
			return "", err
		}
	}
	return markup, nil
}

func runStage(stage stages.Stage, document, markup string, config map[string]interface{}) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = errors.NewStagePanicError(stage.ID(), document, r)
		}
	}()

	out, err = stage.Apply(markup, config)
	if err != nil {
		return "", errors.NewStageError(stage.ID(), document, err)
	}
	return out, nil
}

func (p *Pipeline) applyTemplate(ctx context.Context, markup, id string, meta metadata.Context) string {
	src, ok := p.templates.Lookup(id)
	if !ok {
		p.errors.Handle(ctx, errors.NewTemplateNotFoundError(id))
		return markup
	}

	renderer, err := p.compile(id, src)
	if err != nil {
		p.errors.Handle(ctx, errors.NewTemplateExecError(id, err))
		return markup
	}

	out, err := renderer.Execute(template.Data(meta, markup))
	if err != nil {
		p.errors.Handle(ctx, errors.NewTemplateExecError(id, err))
		return markup
	}
	return out
}

// compile returns the renderer for id, recompiling when its source changed
// on disk. One entry is kept per id.
func (p *Pipeline) compile(id, src string) (template.Renderer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.compiled[id]; ok && c.src == src {
		return c.renderer, nil
	}
	r, err := p.templates.Compile(src)
	if err != nil {
		delete(p.compiled, id)
		return nil, err
	}
	p.compiled[id] = compiledTemplate{src: src, renderer: r}
	return r, nil
}

// FallbackBlock renders the visible error block shown in place of content.
func FallbackBlock(themeID, text string, err error) string {
	msg := "render failed"
	if err != nil {
		msg = err.Error()
	}
	return fmt.Sprintf(
		`<section id="%s" class="%s mdpreview-failed"><div class="mdpreview-render-error" role="alert"><p class="mdpreview-render-error-message">%s</p><pre class="mdpreview-source">%s</pre></div></section>`,
		ContainerID,
		html.EscapeString(containerClass(themeID)),
		html.EscapeString(msg),
		html.EscapeString(text),
	)
}
