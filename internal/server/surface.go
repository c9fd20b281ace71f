package server

import (
	"context"
	"sync"

	"github.com/conneroisu/mdpreview/internal/bridge"
	"github.com/conneroisu/mdpreview/internal/patch"
)

// SurfaceTarget is the patch target for the preview pages behind a hub.
//
// Geometry comes from the pages' scroll reports. ReplaceContent only stages
// the markup; SetScrollTop publishes it together with the offset so a page
// applies both in one step, then asks pages to re-add per-block controls.
type SurfaceTarget struct {
	publisher bridge.Publisher

	mu       sync.Mutex
	viewport patch.Viewport
	staged   string
}

// NewSurfaceTarget creates a target publishing through p.
func NewSurfaceTarget(p bridge.Publisher) *SurfaceTarget {
	return &SurfaceTarget{publisher: p}
}

// Report records the geometry a page sent with a scroll message.
func (t *SurfaceTarget) Report(v patch.Viewport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.viewport = v
}

// Viewport implements patch.Target.
func (t *SurfaceTarget) Viewport() patch.Viewport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewport
}

// ReplaceContent implements patch.Target. The geometry after the swap is not
// known until a page reports again, so the last report is returned and the
// page clamps once more against its real height.
func (t *SurfaceTarget) ReplaceContent(markup string) (patch.Viewport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staged = markup
	return t.viewport, nil
}

// SetScrollTop implements patch.Target.
func (t *SurfaceTarget) SetScrollTop(offset float64) error {
	t.mu.Lock()
	markup := t.staged
	t.staged = ""
	t.viewport.ScrollTop = offset
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	if err := t.publisher.Publish(ctx, bridge.Message{
		Type:      bridge.MessagePatch,
		Markup:    markup,
		ScrollTop: offset,
	}); err != nil {
		return err
	}
	return t.publisher.Publish(ctx, bridge.Message{Type: bridge.MessageRehydrate})
}

// ReplaceStyle implements patch.Target.
func (t *SurfaceTarget) ReplaceStyle(css string) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return t.publisher.Publish(ctx, bridge.Message{Type: bridge.MessageStyle, CSS: css})
}
