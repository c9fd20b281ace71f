// Package template supplies the document templates that wrap rendered
// content with resolved metadata.
//
// Templates are html/template sources looked up by id. Rendered content is
// passed in as trusted HTML under the "content" key; metadata fields are
// escaped as usual.
package template

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ContentKey is the template data key holding the rendered markup.
const ContentKey = "content"

// Suffix is stripped from an id when the exact id is not found.
const Suffix = ".html"

// Renderer executes a compiled template.
type Renderer interface {
	Execute(data map[string]interface{}) (string, error)
}

// Store holds template sources keyed by id.
type Store struct {
	mu      sync.RWMutex
	sources map[string]string
}

// NewStore creates a store pre-populated with the built-in templates.
func NewStore() *Store {
	s := &Store{sources: make(map[string]string, len(builtin))}
	for id, src := range builtin {
		s.sources[id] = src
	}
	return s
}

// LoadDir adds every *.html and *.tmpl file in dir, keyed by file name
// without its extension. Later loads replace templates with the same id.
func (s *Store) LoadDir(dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading templates dir %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".html" && ext != ".tmpl" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return loaded, fmt.Errorf("reading template %s: %w", entry.Name(), err)
		}
		s.Add(strings.TrimSuffix(entry.Name(), ext), string(data))
		loaded++
	}
	return loaded, nil
}

// Add registers or replaces a template source.
func (s *Store) Add(id, src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[id] = src
}

// Lookup finds a template by exact id, then by id without the ".html" suffix.
func (s *Store) Lookup(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if src, ok := s.sources[id]; ok {
		return src, true
	}
	if trimmed := strings.TrimSuffix(id, Suffix); trimmed != id {
		src, ok := s.sources[trimmed]
		return src, ok
	}
	return "", false
}

// IDs lists the available template ids.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Compile parses a template source.
func (s *Store) Compile(src string) (Renderer, error) {
	t, err := htmltmpl.New("document").Funcs(funcs).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, err
	}
	return &compiled{tmpl: t}, nil
}

type compiled struct {
	tmpl *htmltmpl.Template
}

func (c *compiled) Execute(data map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Data builds the template data from a metadata map and rendered markup.
func Data(fields map[string]interface{}, markup string) map[string]interface{} {
	data := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	// Rendered markup is produced by the pipeline and trusted.
	data[ContentKey] = htmltmpl.HTML(markup)
	return data
}

var funcs = htmltmpl.FuncMap{
	"join": strings.Join,
}
