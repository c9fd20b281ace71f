// Package stages provides the ordered content-transform stages applied to
// rendered markup, and the registry the pipeline resolves them from.
package stages

import (
	"fmt"
	"sort"
	"sync"
)

// Stage transforms rendered markup. Apply must be a pure function of its
// inputs; the pipeline recovers panics but does not retry.
type Stage interface {
	// ID returns the unique stage identifier used in settings.
	ID() string

	// Description returns a short human readable summary.
	Description() string

	// Apply transforms markup using the stage's configuration.
	Apply(markup string, config map[string]interface{}) (string, error)
}

// Func adapts a plain function to the Stage interface.
type Func struct {
	Name    string
	Summary string
	Fn      func(markup string, config map[string]interface{}) (string, error)
}

// ID implements Stage.
func (f Func) ID() string { return f.Name }

// Description implements Stage.
func (f Func) Description() string { return f.Summary }

// Apply implements Stage.
func (f Func) Apply(markup string, config map[string]interface{}) (string, error) {
	return f.Fn(markup, config)
}

// Registry maps stage ids to implementations.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Stage
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Stage)}
}

// NewBuiltinRegistry creates a registry holding every built-in stage.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, s := range Builtin() {
		// Builtin ids are unique.
		_ = r.Register(s)
	}
	return r
}

// Builtin returns the stages shipped with the binary.
func Builtin() []Stage {
	return []Stage{
		NewExternalLinks(),
		NewTableWrap(),
		NewSanitize(),
	}
}

// Register adds a stage. Registering a duplicate id is an error.
func (r *Registry) Register(s Stage) error {
	if s == nil || s.ID() == "" {
		return fmt.Errorf("stage must have a non-empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stages[s.ID()]; exists {
		return fmt.Errorf("stage %s already registered", s.ID())
	}
	r.stages[s.ID()] = s
	return nil
}

// Get returns the stage registered under id.
func (r *Registry) Get(id string) (Stage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[id]
	return s, ok
}

// IDs returns the registered ids sorted alphabetically.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.stages))
	for id := range r.stages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// configString reads a string option, falling back to def.
func configString(config map[string]interface{}, key, def string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return def
}

// configBool reads a boolean option, falling back to def.
func configBool(config map[string]interface{}, key string, def bool) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return def
}
