// Package settings holds the immutable render settings snapshot.
//
// A Snapshot is passed explicitly into every render. Changing a setting
// produces a new Snapshot; callers compare Fingerprints to decide whether
// cached render output is still valid.
package settings

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// StageConfig is one entry of the ordered transform stage list.
type StageConfig struct {
	ID      string                 `json:"id" mapstructure:"id" yaml:"id"`
	Enabled bool                   `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	Config  map[string]interface{} `json:"config,omitempty" mapstructure:"config" yaml:"config,omitempty"`
}

// Snapshot is a read-only view of everything that influences rendered markup.
// Treat values as immutable; use the With*/Toggle* helpers to derive new ones.
type Snapshot struct {
	ThemeID            string        `json:"theme_id"`
	TemplateID         string        `json:"template_id"`
	TemplateEnabled    bool          `json:"template_enabled"`
	HideLeadingHeading bool          `json:"hide_leading_heading"`
	Highlight          bool          `json:"highlight"`
	HighlightStyle     string        `json:"highlight_style"`
	Stages             []StageConfig `json:"stages"`
}

// Default returns the settings used when no configuration is supplied.
func Default() Snapshot {
	return Snapshot{
		ThemeID:        "default",
		TemplateID:     "article.html",
		Highlight:      true,
		HighlightStyle: "github",
		Stages: []StageConfig{
			{ID: "external-links", Enabled: true},
			{ID: "table-wrap", Enabled: true},
			{ID: "sanitize", Enabled: false},
		},
	}
}

// Clone returns a deep copy so the result can be modified freely.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Stages = make([]StageConfig, len(s.Stages))
	for i, st := range s.Stages {
		out.Stages[i] = StageConfig{ID: st.ID, Enabled: st.Enabled, Config: cloneMap(st.Config)}
	}
	return out
}

// Stage returns the configuration for a stage id.
func (s Snapshot) Stage(id string) (StageConfig, bool) {
	for _, st := range s.Stages {
		if st.ID == id {
			return st, true
		}
	}
	return StageConfig{}, false
}

// EnabledStages returns the enabled stages in configured order.
func (s Snapshot) EnabledStages() []StageConfig {
	out := make([]StageConfig, 0, len(s.Stages))
	for _, st := range s.Stages {
		if st.Enabled {
			out = append(out, st)
		}
	}
	return out
}

// SetStageEnabled returns a new snapshot with the stage's enabled flag set.
// Unknown ids leave the snapshot unchanged.
func (s Snapshot) SetStageEnabled(id string, enabled bool) Snapshot {
	out := s.Clone()
	for i := range out.Stages {
		if out.Stages[i].ID == id {
			out.Stages[i].Enabled = enabled
		}
	}
	return out
}

// ToggleStage flips the enabled flag of the stage with the given id.
func (s Snapshot) ToggleStage(id string) Snapshot {
	st, ok := s.Stage(id)
	if !ok {
		return s.Clone()
	}
	return s.SetStageEnabled(id, !st.Enabled)
}

// ConfigureStage returns a new snapshot with the stage's config replaced.
func (s Snapshot) ConfigureStage(id string, config map[string]interface{}) Snapshot {
	out := s.Clone()
	for i := range out.Stages {
		if out.Stages[i].ID == id {
			out.Stages[i].Config = cloneMap(config)
		}
	}
	return out
}

// WithTheme returns a new snapshot using a different theme.
func (s Snapshot) WithTheme(themeID string) Snapshot {
	out := s.Clone()
	out.ThemeID = themeID
	return out
}

// WithTemplate returns a new snapshot using a different template.
func (s Snapshot) WithTemplate(templateID string, enabled bool) Snapshot {
	out := s.Clone()
	out.TemplateID = templateID
	out.TemplateEnabled = enabled
	return out
}

// WithHideLeadingHeading returns a new snapshot with the display toggle set.
func (s Snapshot) WithHideLeadingHeading(hide bool) Snapshot {
	out := s.Clone()
	out.HideLeadingHeading = hide
	return out
}

// Fingerprint identifies the render-relevant content of the snapshot.
// Two snapshots with equal fingerprints produce identical markup for the
// same input.
func (s Snapshot) Fingerprint() string {
	// encoding/json sorts map keys, so nested stage configs are stable.
	data, err := json.Marshal(s)
	if err != nil {
		// fmt prints maps in key order, so this stays deterministic.
		data = []byte(fmt.Sprintf("%v", s))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
