package mount

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/conneroisu/mdpreview/internal/bridge"
	mderrors "github.com/conneroisu/mdpreview/internal/errors"
	"github.com/conneroisu/mdpreview/internal/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu        sync.Mutex
	updates   []bridge.Props
	unmounts  int
	updateErr error
}

func (h *fakeHandle) Update(_ context.Context, p bridge.Props) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.updateErr != nil {
		return h.updateErr
	}
	h.updates = append(h.updates, p)
	return nil
}

func (h *fakeHandle) Unmount() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unmounts++
}

type fakeBridge struct {
	mu       sync.Mutex
	mounts   int
	handle   *fakeHandle
	mountErr error
	block    chan struct{}
	entered  chan struct{}
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{handle: &fakeHandle{}}
}

func (b *fakeBridge) Mount(_ context.Context, _ string, _ bridge.Props, _ bridge.Options) (bridge.MountHandle, error) {
	b.mu.Lock()
	b.mounts++
	block, entered := b.block, b.entered
	b.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}
	if b.mountErr != nil {
		return nil, b.mountErr
	}
	return b.handle, nil
}

func (b *fakeBridge) mountCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mounts
}

type recordingDiagnostics struct {
	mu   sync.Mutex
	errs []error
}

func (d *recordingDiagnostics) ShowDiagnostic(_ context.Context, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, err)
}

func TestMountGuardBackToBack(t *testing.T) {
	b := newFakeBridge()
	b.block = make(chan struct{})
	b.entered = make(chan struct{})
	c := NewController(Config{Bridge: b})

	done := make(chan Outcome)
	go func() {
		out, err := c.EnsureRendered(context.Background(), Artifact{Markup: "a"})
		assert.NoError(t, err)
		done <- out
	}()

	<-b.entered
	assert.Equal(t, StateMounting, c.State())

	out, err := c.EnsureRendered(context.Background(), Artifact{Markup: "b"})
	assert.NoError(t, err)
	assert.Equal(t, OutcomeBusy, out)

	close(b.block)
	assert.Equal(t, OutcomeMounted, <-done)

	assert.Equal(t, 1, b.mountCount())
	assert.Equal(t, StateMounted, c.State())
	assert.Equal(t, "a", c.Displayed().Markup)
}

func TestMountedPatchesContentOnly(t *testing.T) {
	b := newFakeBridge()
	ch := patch.NewChannel(nil)
	target := patch.NewMemoryTarget(400)
	ch.RegisterTarget(target)
	c := NewController(Config{Bridge: b, Patch: ch})
	ctx := context.Background()

	out, err := c.EnsureRendered(ctx, Artifact{Markup: "one", CSS: "css"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMounted, out)

	out, err = c.EnsureRendered(ctx, Artifact{Markup: "two", CSS: "css"})
	require.NoError(t, err)
	assert.Equal(t, OutcomePatched, out)
	assert.Equal(t, "two", target.Markup())
	assert.Empty(t, b.handle.updates)

	out, err = c.EnsureRendered(ctx, Artifact{Markup: "two", CSS: "css"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, out)

	out, err = c.EnsureRendered(ctx, Artifact{Markup: "two", CSS: "css v2"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRestyled, out)
	assert.Equal(t, "css v2", target.Style())
	assert.Empty(t, b.handle.updates)

	out, err = c.EnsureRendered(ctx, Artifact{Markup: "two", CSS: "dark", ThemeID: "dark"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)
	require.Len(t, b.handle.updates, 1)
	assert.Equal(t, "dark", b.handle.updates[0].CSS)
	assert.Equal(t, 1, b.mountCount())
}

func TestMountedWithoutTargetUpdates(t *testing.T) {
	b := newFakeBridge()
	c := NewController(Config{Bridge: b, Patch: patch.NewChannel(nil)})
	ctx := context.Background()

	_, err := c.EnsureRendered(ctx, Artifact{Markup: "one"})
	require.NoError(t, err)
	out, err := c.EnsureRendered(ctx, Artifact{Markup: "two"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeUpdated, out)
	assert.Equal(t, uint64(2), b.handle.updates[0].Generation)
}

func TestMountFailureShowsDiagnostic(t *testing.T) {
	b := newFakeBridge()
	b.mountErr = errors.New("no surface")
	diag := &recordingDiagnostics{}
	c := NewController(Config{Bridge: b, Diagnostics: diag})

	_, err := c.EnsureRendered(context.Background(), Artifact{Markup: "x"})
	require.Error(t, err)
	assert.True(t, mderrors.IsMountError(err))
	assert.Equal(t, StateUnmounted, c.State())
	require.Len(t, diag.errs, 1)

	b.mountErr = nil
	out, err := c.EnsureRendered(context.Background(), Artifact{Markup: "x"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMounted, out)
}

func TestUpdateFailureUnmounts(t *testing.T) {
	b := newFakeBridge()
	c := NewController(Config{Bridge: b})
	ctx := context.Background()

	_, err := c.EnsureRendered(ctx, Artifact{Markup: "one"})
	require.NoError(t, err)

	b.handle.updateErr = errors.New("gone")
	_, err = c.EnsureRendered(ctx, Artifact{Markup: "two"})
	require.Error(t, err)
	assert.Equal(t, StateUnmounted, c.State())
	assert.Equal(t, 1, b.handle.unmounts)
}

func TestNilBridgeFails(t *testing.T) {
	c := NewController(Config{})
	_, err := c.EnsureRendered(context.Background(), Artifact{})
	assert.True(t, mderrors.IsMountError(err))
}

func TestUnmountDuringMountDiscardsResult(t *testing.T) {
	b := newFakeBridge()
	b.block = make(chan struct{})
	b.entered = make(chan struct{})
	c := NewController(Config{Bridge: b})

	done := make(chan Outcome)
	go func() {
		out, _ := c.EnsureRendered(context.Background(), Artifact{Markup: "a"})
		done <- out
	}()

	<-b.entered
	c.Unmount()
	close(b.block)

	assert.Equal(t, OutcomeStale, <-done)
	assert.Equal(t, StateUnmounted, c.State())
	assert.Equal(t, 1, b.handle.unmounts, "stale handle is released")
}

func TestUnmountReleasesHandle(t *testing.T) {
	b := newFakeBridge()
	c := NewController(Config{Bridge: b})

	_, err := c.EnsureRendered(context.Background(), Artifact{Markup: "a"})
	require.NoError(t, err)

	c.Unmount()
	assert.Equal(t, StateUnmounted, c.State())
	assert.Equal(t, 1, b.handle.unmounts)
	assert.Equal(t, Artifact{}, c.Displayed())
}

func TestGuardMinInterval(t *testing.T) {
	now := time.Unix(1000, 0)
	g := NewGuard(100 * time.Millisecond)
	g.now = func() time.Time { return now }

	require.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire(), "overlapping call is dropped")
	g.Release()

	now = now.Add(50 * time.Millisecond)
	assert.False(t, g.TryAcquire(), "too soon after the last update")

	now = now.Add(60 * time.Millisecond)
	assert.True(t, g.TryAcquire())
	assert.Equal(t, int64(2), g.Dropped())
}

func TestControllerDropsTooSoon(t *testing.T) {
	b := newFakeBridge()
	c := NewController(Config{Bridge: b, Guard: NewGuard(time.Hour)})

	_, err := c.EnsureRendered(context.Background(), Artifact{Markup: "a"})
	require.NoError(t, err)

	_, err = c.EnsureRendered(context.Background(), Artifact{Markup: "b"})
	assert.ErrorIs(t, err, ErrDropped)
	assert.Equal(t, "a", c.Displayed().Markup)
}

func TestStateAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "mounting", StateMounting.String())
	assert.Equal(t, "patched", OutcomePatched.String())
	assert.Equal(t, "unknown", State(9).String())
}
