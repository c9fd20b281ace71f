package server

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/conneroisu/mdpreview/internal/bridge"
	"github.com/conneroisu/mdpreview/internal/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []bridge.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg bridge.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestSurfaceTargetThroughPatchChannel(t *testing.T) {
	pub := &recordingPublisher{}
	surface := NewSurfaceTarget(pub)
	surface.Report(patch.Viewport{ScrollTop: 800, ScrollHeight: 1000, ClientHeight: 400})

	ch := patch.NewChannel(nil)
	ch.RegisterTarget(surface)

	offset, err := ch.PatchContent(context.Background(), "<p>new</p>")
	require.NoError(t, err)
	assert.Equal(t, float64(600), offset, "offset is clamped to the reported maximum")

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, bridge.MessagePatch, pub.msgs[0].Type)
	assert.Equal(t, "<p>new</p>", pub.msgs[0].Markup)
	assert.Equal(t, float64(600), pub.msgs[0].ScrollTop)
	assert.Equal(t, bridge.MessageRehydrate, pub.msgs[1].Type)
	assert.Equal(t, float64(600), surface.Viewport().ScrollTop)

	require.NoError(t, ch.PatchStyle(context.Background(), "body{}"))
	require.Len(t, pub.msgs, 3)
	assert.Equal(t, bridge.Message{Type: bridge.MessageStyle, CSS: "body{}"}, pub.msgs[2])
}

func TestSurfaceTargetPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("closed")}
	surface := NewSurfaceTarget(pub)

	_, err := surface.ReplaceContent("x")
	require.NoError(t, err)
	assert.Error(t, surface.SetScrollTop(0))
	assert.Error(t, surface.ReplaceStyle("css"))
}

func TestHubReplaysDiagnosticUntilMounted(t *testing.T) {
	hub := NewHub(nil)
	ctx := context.Background()

	assert.Empty(t, hub.pending())

	hub.ShowDiagnostic(ctx, errors.New("bridge unavailable"))
	pending := hub.pending()
	require.Len(t, pending, 1)
	assert.Equal(t, bridge.MessageDiagnostic, pending[0].Type)
	assert.Contains(t, pending[0].Markup, "bridge unavailable")
	assert.Equal(t, "bridge unavailable", pending[0].Error)

	require.NoError(t, hub.Publish(ctx, bridge.Message{Type: bridge.MessageMount, Props: &bridge.Props{Markup: "ok"}}))
	assert.Empty(t, hub.pending())

	hub.welcome = func() []bridge.Message {
		return []bridge.Message{{Type: bridge.MessageMount}}
	}
	hub.ShowDiagnostic(ctx, errors.New("again"))
	pending = hub.pending()
	require.Len(t, pending, 1)
	assert.Equal(t, bridge.MessageMount, pending[0].Type, "mounted state wins over a stale diagnostic")
}
