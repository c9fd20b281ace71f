package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/mdpreview/internal/logging"
)

// DefaultQuietWindow is the debounce window used when none is configured.
const DefaultQuietWindow = 200 * time.Millisecond

// RenderFunc processes a settled document snapshot.
type RenderFunc func(text string) error

// ChangeDetector coalesces bursts of document snapshots and forwards the last
// one once the document has been quiet for the window. Snapshots identical to
// the last successfully processed one are skipped.
type ChangeDetector struct {
	render    RenderFunc
	debouncer *Debouncer
	logger    logging.Logger

	mu            sync.Mutex
	lastProcessed string
	hasProcessed  bool
	renders       int64
	skipped       int64
}

// NewChangeDetector creates a detector. A non-positive window uses
// DefaultQuietWindow.
func NewChangeDetector(window time.Duration, render RenderFunc, logger logging.Logger) *ChangeDetector {
	if window <= 0 {
		window = DefaultQuietWindow
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cd := &ChangeDetector{
		render: render,
		logger: logger.WithComponent("change_detector"),
	}
	cd.debouncer = NewDebouncer(window, cd.process)
	return cd
}

// OnDocumentChanged records a new snapshot and restarts the quiet window.
func (cd *ChangeDetector) OnDocumentChanged(raw string) {
	cd.debouncer.Trigger(raw)
}

// Flush processes a pending snapshot without waiting for the window.
func (cd *ChangeDetector) Flush() {
	cd.debouncer.Flush()
}

// Stop cancels the pending window.
func (cd *ChangeDetector) Stop() {
	cd.debouncer.Stop()
}

// Renders returns how many snapshots were handed to the render callback.
func (cd *ChangeDetector) Renders() int64 {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return cd.renders
}

// Skipped returns how many settled snapshots matched the processed one.
func (cd *ChangeDetector) Skipped() int64 {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return cd.skipped
}

// Reset forgets the last processed snapshot so the next one always renders.
func (cd *ChangeDetector) Reset() {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	cd.hasProcessed = false
	cd.lastProcessed = ""
}

func (cd *ChangeDetector) process(text string) {
	cd.mu.Lock()
	if cd.hasProcessed && text == cd.lastProcessed {
		cd.skipped++
		cd.mu.Unlock()
		cd.logger.Debug(context.Background(), "Skipping unchanged snapshot", "bytes", len(text))
		return
	}
	cd.renders++
	cd.mu.Unlock()

	if err := cd.render(text); err != nil {
		cd.logger.Warn(context.Background(), err, "Render callback failed; snapshot not marked processed")
		return
	}

	cd.mu.Lock()
	cd.lastProcessed = text
	cd.hasProcessed = true
	cd.mu.Unlock()
}
