package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/conneroisu/mdpreview/internal/metadata"
	"github.com/conneroisu/mdpreview/internal/settings"
	"github.com/conneroisu/mdpreview/internal/stages"
	"github.com/conneroisu/mdpreview/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenario = "---\ntitle: A\n---\n# Hello\nWorld"

func newTestPipeline(t *testing.T, extra ...stages.Stage) *Pipeline {
	t.Helper()
	registry := stages.NewBuiltinRegistry()
	for _, s := range extra {
		require.NoError(t, registry.Register(s))
	}
	return New(registry, template.NewStore(), nil)
}

func countTag(markup, tag string) int {
	return strings.Count(markup, "<"+tag+">") + strings.Count(markup, "<"+tag+" ")
}

func TestRenderScenario(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	out := p.Render(ctx, "a.md", scenario, settings.Default(), nil)
	assert.True(t, strings.HasPrefix(out, `<section id="mdpreview-content" class="mdpreview theme-default">`))
	assert.Equal(t, 1, countTag(out, "h1"))
	assert.Contains(t, out, `>Hello</h1>`)
	assert.Contains(t, out, "<p>World</p>")
	assert.Less(t, strings.Index(out, "Hello"), strings.Index(out, "World"))
	assert.NotContains(t, out, "title: A")

	out = p.Render(ctx, "a.md", scenario, settings.Default().WithHideLeadingHeading(true), nil)
	assert.Equal(t, 0, countTag(out, "h1"))
	assert.Contains(t, out, "<p>World</p>")
}

func TestHideLeadingHeadingRemovesFirstOnly(t *testing.T) {
	p := newTestPipeline(t)
	out := p.Render(context.Background(), "", "# One\n\ntext\n\n# Two\n", settings.Default().WithHideLeadingHeading(true), nil)

	assert.NotContains(t, out, "One")
	assert.Contains(t, out, ">Two</h1>")
}

func TestRenderIdempotent(t *testing.T) {
	p := newTestPipeline(t)
	snap := settings.Default().WithTemplate("article.html", true)
	meta := metadata.Resolve(nil, metadata.Frontmatter{"title": "A"}, nil)
	text := scenario + "\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n```go\nfunc main() {}\n```\n"

	first := p.Render(context.Background(), "a.md", text, snap, meta)
	second := p.Render(context.Background(), "a.md", text, snap, meta)
	assert.Equal(t, first, second)
	assert.Contains(t, first, `<div class="table-wrap"><table>`)
}

func TestDisabledStagesNeverRun(t *testing.T) {
	calls := 0
	counting := stages.Func{Name: "counting", Fn: func(m string, _ map[string]interface{}) (string, error) {
		calls++
		return m, nil
	}}
	p := newTestPipeline(t, counting)

	snap := settings.Snapshot{Stages: []settings.StageConfig{{ID: "counting", Enabled: false}}}
	p.Render(context.Background(), "", "text", snap, nil)
	assert.Equal(t, 0, calls)

	p.Render(context.Background(), "", "text", snap.SetStageEnabled("counting", true), nil)
	assert.Equal(t, 1, calls)
}

func TestStagesRunInConfiguredOrder(t *testing.T) {
	appender := func(id string) stages.Stage {
		return stages.Func{Name: id, Fn: func(m string, _ map[string]interface{}) (string, error) {
			return m + id, nil
		}}
	}
	p := newTestPipeline(t, appender("x"), appender("y"))

	snap := settings.Snapshot{Stages: []settings.StageConfig{
		{ID: "y", Enabled: true},
		{ID: "missing", Enabled: true},
		{ID: "x", Enabled: true},
	}}
	out := p.Render(context.Background(), "", "text", snap, nil)
	assert.True(t, strings.HasSuffix(out, "</section>yx"))
}

func TestStageFailureIsolation(t *testing.T) {
	failing := stages.Func{Name: "failing", Fn: func(string, map[string]interface{}) (string, error) {
		return "", errors.New("always fails")
	}}
	panicking := stages.Func{Name: "panicking", Fn: func(string, map[string]interface{}) (string, error) {
		panic("boom")
	}}
	p := newTestPipeline(t, failing, panicking)

	text := "# Title\n<script>x</script>"
	snap := settings.Default()
	snap.Stages = append(snap.Stages, settings.StageConfig{ID: "failing", Enabled: true})

	out := p.Render(context.Background(), "a.md", text, snap, nil)
	assert.Contains(t, out, "mdpreview-render-error")
	assert.Contains(t, out, "always fails")
	assert.Contains(t, out, "&lt;script&gt;x&lt;/script&gt;")
	assert.NotContains(t, out, "<script>")

	out = p.Render(context.Background(), "a.md", text, snap.SetStageEnabled("failing", false), nil)
	assert.NotContains(t, out, "mdpreview-render-error")
	assert.Contains(t, out, ">Title</h1>")

	snap.Stages = append(snap.Stages, settings.StageConfig{ID: "panicking", Enabled: true})
	snap = snap.SetStageEnabled("failing", false)
	assert.NotPanics(t, func() {
		out = p.Render(context.Background(), "a.md", text, snap, nil)
	})
	assert.Contains(t, out, "mdpreview-render-error")
	assert.Contains(t, out, "boom")
}

func TestTemplateSubstitution(t *testing.T) {
	p := newTestPipeline(t)
	meta := metadata.Context{"title": "Doc <Title>", "tags": []string{"go"}}

	out := p.Render(context.Background(), "", "body", settings.Default().WithTemplate("article.html", true), meta)
	assert.True(t, strings.HasPrefix(out, `<article class="mdpreview-article">`))
	assert.Contains(t, out, "Doc &lt;Title&gt;")
	assert.Contains(t, out, `<section id="mdpreview-content"`)

	out = p.Render(context.Background(), "", "body", settings.Default().WithTemplate("missing.html", true), meta)
	assert.True(t, strings.HasPrefix(out, `<section id="mdpreview-content"`), "missing template falls back to untemplated markup")
}

func TestTemplateExecFailureFallsBack(t *testing.T) {
	store := template.NewStore()
	store.Add("broken", "{{.title")
	p := New(stages.NewBuiltinRegistry(), store, nil)

	out := p.Render(context.Background(), "", "body", settings.Default().WithTemplate("broken.html", true), nil)
	assert.True(t, strings.HasPrefix(out, `<section id="mdpreview-content"`))
}

func TestNormalize(t *testing.T) {
	p := newTestPipeline(t)
	assert.Equal(t, "# Hello\nWorld", p.Normalize(scenario))
	assert.Equal(t, "plain", p.Normalize("plain"))
}

func TestHighlightToggle(t *testing.T) {
	p := newTestPipeline(t)
	text := "```go\nfunc main() {}\n```\n"

	on := p.Render(context.Background(), "", text, settings.Default(), nil)
	snap := settings.Default()
	snap.Highlight = false
	off := p.Render(context.Background(), "", text, snap, nil)

	assert.Contains(t, on, "style=")
	assert.NotContains(t, on, `class="chroma"`, "highlight colors are inline")
	assert.Contains(t, off, `<code class="language-go">`)

	tabbed := p.Render(context.Background(), "", "```go\nfunc main() {\n\treturn\n}\n```\n", settings.Default(), nil)
	assert.Contains(t, tabbed, "tab-size")
}

func TestEditedTemplateReplacesCompiledEntry(t *testing.T) {
	store := template.NewStore()
	store.Add("note", "<div>A {{.content}}</div>")
	p := New(stages.NewBuiltinRegistry(), store, nil)
	snap := settings.Default().WithTemplate("note", true)

	out := p.Render(context.Background(), "", "body", snap, nil)
	assert.True(t, strings.HasPrefix(out, "<div>A "))

	for _, src := range []string{"<div>B {{.content}}</div>", "<div>C {{.content}}</div>"} {
		store.Add("note", src)
		out = p.Render(context.Background(), "", "body", snap, nil)
		assert.True(t, strings.HasPrefix(out, src[:7]), out)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.compiled, 1)
}
