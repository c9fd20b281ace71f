package watcher

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renderRecorder struct {
	mu    sync.Mutex
	texts []string
	fail  bool
}

func (r *renderRecorder) render(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	if r.fail {
		return errors.New("render failed")
	}
	return nil
}

func (r *renderRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func TestDebounceCoalescing(t *testing.T) {
	rec := &renderRecorder{}
	cd := NewChangeDetector(200*time.Millisecond, rec.render, nil)
	defer cd.Stop()

	for i := 1; i <= 5; i++ {
		cd.OnDocumentChanged(fmt.Sprintf("edit %d", i))
		time.Sleep(30 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, []string{"edit 5"}, rec.snapshot())
	assert.Equal(t, int64(1), cd.Renders())
}

func TestIdenticalSnapshotSkipped(t *testing.T) {
	rec := &renderRecorder{}
	cd := NewChangeDetector(20*time.Millisecond, rec.render, nil)
	defer cd.Stop()

	cd.OnDocumentChanged("same")
	cd.Flush()
	cd.OnDocumentChanged("same")
	cd.Flush()

	assert.Equal(t, []string{"same"}, rec.snapshot())
	assert.Equal(t, int64(1), cd.Skipped())

	cd.Reset()
	cd.OnDocumentChanged("same")
	cd.Flush()
	assert.Len(t, rec.snapshot(), 2)
}

func TestFailedRenderIsRetriedWithSameContent(t *testing.T) {
	rec := &renderRecorder{fail: true}
	cd := NewChangeDetector(20*time.Millisecond, rec.render, nil)
	defer cd.Stop()

	cd.OnDocumentChanged("doc")
	cd.Flush()

	rec.mu.Lock()
	rec.fail = false
	rec.mu.Unlock()

	cd.OnDocumentChanged("doc")
	cd.Flush()

	assert.Equal(t, []string{"doc", "doc"}, rec.snapshot())
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	d := NewDebouncer(30*time.Millisecond, func(string) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	d.Trigger("x")
	assert.True(t, d.Pending())
	d.Stop()
	assert.False(t, d.Pending())

	time.Sleep(100 * time.Millisecond)
	d.Trigger("y")
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestDebouncerFlushWithoutPending(t *testing.T) {
	called := false
	d := NewDebouncer(time.Second, func(string) { called = true })
	d.Flush()
	assert.False(t, called)
}
