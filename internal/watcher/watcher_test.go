package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestFilters(t *testing.T) {
	testCases := []struct {
		name   string
		filter FileFilter
		path   string
		want   bool
	}{
		{"markdown", MarkdownFilter, "notes/README.md", true},
		{"markdown upper", MarkdownFilter, "notes/README.MARKDOWN", true},
		{"not markdown", MarkdownFilter, "main.go", false},
		{"hidden", NoHiddenFilter, "docs/.notes.md.swp", false},
		{"visible", NoHiddenFilter, "docs/notes.md", true},
		{"backup", NoBackupFilter, "docs/notes.md~", false},
		{"git", NoGitFilter, "repo/.git/HEAD", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter(tc.path))
		})
	}
}

func TestExactFilter(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.md")
	f := ExactFilter(target)

	assert.True(t, f(target))
	assert.False(t, f(filepath.Join(dir, "other.md")))
}

func TestWatchFileRejectsBadPaths(t *testing.T) {
	fw, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	assert.Error(t, fw.WatchFile(""))
	assert.Error(t, fw.WatchFile(filepath.Join(t.TempDir(), "missing.md")))
	assert.Error(t, fw.WatchFile(t.TempDir()))
}

func TestFileWatcherDeliversBatchedEvents(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(doc, []byte("# v0"), 0o644))

	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	var mu sync.Mutex
	var batches [][]ChangeEvent
	fw.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, events)
		return nil
	})
	require.NoError(t, fw.WatchFile(doc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	// Unrelated files in the same directory are filtered out.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("x"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(doc, []byte("# v"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) > 0
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, batch := range batches {
		for _, ev := range batch {
			assert.Equal(t, "doc.md", filepath.Base(ev.Path))
		}
	}
}

func TestBatcherKeepsLatestPerPath(t *testing.T) {
	b := &eventBatcher{delay: time.Hour, output: make(chan []ChangeEvent, 1)}
	b.pending = []ChangeEvent{
		{Type: EventTypeCreated, Path: "a.md"},
		{Type: EventTypeModified, Path: "b.md"},
		{Type: EventTypeDeleted, Path: "a.md"},
	}
	b.flush()

	events := <-b.output
	require.Len(t, events, 2)
	assert.Equal(t, "a.md", events[0].Path)
	assert.Equal(t, EventTypeDeleted, events[0].Type)
	assert.Equal(t, "b.md", events[1].Path)
}
