// Package patch writes markup and styles straight into a registered preview
// surface without remounting it, keeping the reader's scroll position.
package patch

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/conneroisu/mdpreview/internal/logging"
)

// ErrNoTarget is returned when a patch is requested with no surface
// registered.
var ErrNoTarget = errors.New("no patch target registered")

// Viewport describes the scroll geometry of a surface.
type Viewport struct {
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
}

// MaxScroll is the largest valid scroll offset for the viewport.
func (v Viewport) MaxScroll() float64 {
	return math.Max(0, v.ScrollHeight-v.ClientHeight)
}

// Target is a preview surface that can be patched in place.
type Target interface {
	// Viewport reports the current scroll geometry.
	Viewport() Viewport
	// ReplaceContent swaps the inner markup and returns the geometry
	// afterwards.
	ReplaceContent(markup string) (Viewport, error)
	// SetScrollTop moves the scroll offset.
	SetScrollTop(offset float64) error
	// ReplaceStyle swaps the surface stylesheet.
	ReplaceStyle(css string) error
}

// Channel serializes patches against the registered target.
type Channel struct {
	mu     sync.Mutex
	target Target
	logger logging.Logger
}

// NewChannel creates a channel with no target.
func NewChannel(logger logging.Logger) *Channel {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Channel{logger: logger.WithComponent("patch")}
}

// RegisterTarget sets the surface patches are written to, replacing any
// previous one.
func (c *Channel) RegisterTarget(t Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = t
}

// ClearTarget forgets the registered surface.
func (c *Channel) ClearTarget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = nil
}

// HasTarget reports whether a surface is registered.
func (c *Channel) HasTarget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target != nil
}

// PatchContent replaces the surface markup and restores the previous scroll
// offset, clamped to the new maximum. It returns the applied offset.
func (c *Channel) PatchContent(ctx context.Context, markup string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == nil {
		return 0, ErrNoTarget
	}

	before := c.target.Viewport()
	after, err := c.target.ReplaceContent(markup)
	if err != nil {
		return 0, err
	}

	offset := ClampScroll(before.ScrollTop, after)
	if err := c.target.SetScrollTop(offset); err != nil {
		return 0, err
	}

	c.logger.Debug(ctx, "Patched content",
		"scroll_before", before.ScrollTop,
		"scroll_after", offset,
		"bytes", len(markup))
	return offset, nil
}

// PatchStyle replaces the surface stylesheet.
func (c *Channel) PatchStyle(ctx context.Context, css string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == nil {
		return ErrNoTarget
	}
	if err := c.target.ReplaceStyle(css); err != nil {
		return err
	}
	c.logger.Debug(ctx, "Patched stylesheet", "bytes", len(css))
	return nil
}

// ClampScroll returns min(offset, max(0, scrollHeight-clientHeight)).
func ClampScroll(offset float64, after Viewport) float64 {
	if offset < 0 {
		return 0
	}
	return math.Min(offset, after.MaxScroll())
}
