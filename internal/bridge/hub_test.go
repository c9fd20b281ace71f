package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	mderrors "github.com/conneroisu/mdpreview/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Type
	}
	return out
}

func TestHubBridgeLifecycle(t *testing.T) {
	pub := &recordingPublisher{}
	b := NewHubBridge(pub, nil)
	ctx := context.Background()

	handle, err := b.Mount(ctx, "mdpreview-root", Props{Markup: "<p>1</p>", Generation: 1}, Options{Isolation: true})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Mounts())

	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, MessageMount, latest.Type)
	assert.True(t, latest.Isolation)
	assert.Equal(t, "<p>1</p>", latest.Props.Markup)

	require.NoError(t, handle.Update(ctx, Props{Markup: "<p>2</p>", Generation: 2}))
	latest, _ = b.Latest()
	assert.Equal(t, MessageMount, latest.Type, "late joiners always receive a mount")
	assert.Equal(t, "<p>2</p>", latest.Props.Markup)

	b.RecordContent("<p>3</p>")
	b.RecordStyle("body{}")
	latest, _ = b.Latest()
	assert.Equal(t, "<p>3</p>", latest.Props.Markup)
	assert.Equal(t, "body{}", latest.Props.CSS)

	handle.Unmount()
	handle.Unmount()
	_, ok = b.Latest()
	assert.False(t, ok)

	assert.Equal(t, []string{MessageMount, MessageUpdate, MessageUnmount}, pub.types())

	err = handle.Update(ctx, Props{})
	assert.True(t, mderrors.IsMountError(err))
}

func TestHubBridgeMountFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("closed")}
	b := NewHubBridge(pub, nil)

	_, err := b.Mount(context.Background(), "root", Props{}, Options{})
	require.Error(t, err)
	assert.True(t, mderrors.IsMountError(err))
	assert.Equal(t, 0, b.Mounts())

	_, err = NewHubBridge(nil, nil).Mount(context.Background(), "root", Props{}, Options{})
	assert.True(t, mderrors.IsMountError(err))
}

func TestLatestReturnsCopy(t *testing.T) {
	b := NewHubBridge(&recordingPublisher{}, nil)
	_, err := b.Mount(context.Background(), "root", Props{Title: "A"}, Options{})
	require.NoError(t, err)

	latest, _ := b.Latest()
	latest.Props.Title = "mutated"

	again, _ := b.Latest()
	assert.Equal(t, "A", again.Props.Title)
}
