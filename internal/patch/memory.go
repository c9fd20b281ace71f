package patch

import (
	"strings"
	"sync"
)

// MemoryTarget is an in-process surface. Content height is derived from the
// markup with HeightOf, so scroll behavior can be checked without a browser.
type MemoryTarget struct {
	mu       sync.Mutex
	markup   string
	css      string
	viewport Viewport
	patches  int

	// HeightOf computes the scroll height for markup. Defaults to 20 units
	// per line.
	HeightOf func(markup string) float64
}

// NewMemoryTarget creates a surface with the given visible height.
func NewMemoryTarget(clientHeight float64) *MemoryTarget {
	return &MemoryTarget{viewport: Viewport{ClientHeight: clientHeight}}
}

// SetContent replaces markup without counting a patch, e.g. for the
// initial mount.
func (m *MemoryTarget) SetContent(markup string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markup = markup
	m.viewport.ScrollHeight = m.height(markup)
}

// ScrollTo simulates the reader scrolling.
func (m *MemoryTarget) ScrollTo(offset float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewport.ScrollTop = ClampScroll(offset, m.viewport)
}

// Markup returns the current markup.
func (m *MemoryTarget) Markup() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markup
}

// Style returns the current stylesheet.
func (m *MemoryTarget) Style() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.css
}

// Patches returns how many content patches were applied.
func (m *MemoryTarget) Patches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patches
}

// Viewport implements Target.
func (m *MemoryTarget) Viewport() Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewport
}

// ReplaceContent implements Target.
func (m *MemoryTarget) ReplaceContent(markup string) (Viewport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markup = markup
	m.patches++
	m.viewport.ScrollHeight = m.height(markup)
	return m.viewport, nil
}

// SetScrollTop implements Target.
func (m *MemoryTarget) SetScrollTop(offset float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewport.ScrollTop = offset
	return nil
}

// ReplaceStyle implements Target.
func (m *MemoryTarget) ReplaceStyle(css string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.css = css
	return nil
}

func (m *MemoryTarget) height(markup string) float64 {
	if m.HeightOf != nil {
		return m.HeightOf(markup)
	}
	return float64(strings.Count(markup, "\n")+1) * 20
}
