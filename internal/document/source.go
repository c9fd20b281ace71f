// Package document reads the previewed markdown file and reports edits.
package document

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/conneroisu/mdpreview/internal/errors"
	"github.com/conneroisu/mdpreview/internal/logging"
	"github.com/conneroisu/mdpreview/internal/metadata"
	"github.com/conneroisu/mdpreview/internal/watcher"
)

// Document is a read-only snapshot of a markdown file.
type Document struct {
	Path string
	Text string
}

// Load reads a document from disk.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, errors.NewIOError(errors.ErrCodeDocumentRead, "reading document", err).WithDocument(path)
	}
	return Document{Path: path, Text: string(data)}, nil
}

// FileSource serves one markdown file and notifies listeners when it changes
// on disk.
type FileSource struct {
	path    string
	watcher *watcher.FileWatcher
	logger  logging.Logger

	mu        sync.RWMutex
	listeners []func(text string)
}

// NewFileSource creates a source for path. batchDelay coalesces filesystem
// event bursts produced by a single editor save.
func NewFileSource(path string, batchDelay time.Duration, logger logging.Logger) (*FileSource, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeDocumentRead, "resolving document path")
	}

	fw, err := watcher.NewFileWatcher(batchDelay, logger)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeDocumentRead, "creating file watcher")
	}

	s := &FileSource{
		path:    abs,
		watcher: fw,
		logger:  logger.WithComponent("document").With("document", abs),
	}
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoBackupFilter)
	fw.AddHandler(s.handleEvents)
	return s, nil
}

// Path returns the absolute path of the watched document.
func (s *FileSource) Path() string {
	return s.path
}

// Read returns the current text of path.
func (s *FileSource) Read(path string) (string, error) {
	doc, err := Load(path)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// Frontmatter parses the front-matter of path.
func (s *FileSource) Frontmatter(path string) (metadata.Frontmatter, error) {
	text, err := s.Read(path)
	if err != nil {
		return nil, err
	}
	fm, err := metadata.ParseFrontmatter(text)
	if err != nil {
		return metadata.Frontmatter{}, errors.NewParseError(path, err)
	}
	return fm, nil
}

// OnChange registers a listener called with the new text after each change.
func (s *FileSource) OnChange(fn func(text string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Start begins watching the document until ctx is cancelled.
func (s *FileSource) Start(ctx context.Context) error {
	if err := s.watcher.WatchFile(s.path); err != nil {
		return errors.WrapIO(err, errors.ErrCodeDocumentRead, "watching document")
	}
	if err := s.watcher.Start(ctx); err != nil {
		return errors.WrapIO(err, errors.ErrCodeDocumentRead, "starting file watcher")
	}
	s.logger.Info(ctx, "Watching document")
	return nil
}

// Stop releases the file watcher.
func (s *FileSource) Stop() error {
	return s.watcher.Stop()
}

func (s *FileSource) handleEvents(events []watcher.ChangeEvent) error {
	for _, ev := range events {
		if ev.Type == watcher.EventTypeDeleted {
			// Editors delete then recreate on save; wait for the create.
			s.logger.Debug(context.Background(), "Document removed", "event", ev.Type.String())
			continue
		}

		if _, err := os.Stat(s.path); os.IsNotExist(err) {
			// Renamed away and not yet replaced.
			continue
		}

		text, err := s.Read(s.path)
		if err != nil {
			return err
		}
		s.notify(text)
		return nil
	}
	return nil
}

func (s *FileSource) notify(text string) {
	s.mu.RLock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(text)
	}
}
