package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleStageReturnsNewSnapshot(t *testing.T) {
	original := Default()
	toggled := original.ToggleStage("sanitize")

	st, ok := original.Stage("sanitize")
	require.True(t, ok)
	assert.False(t, st.Enabled, "original snapshot must not change")

	st, ok = toggled.Stage("sanitize")
	require.True(t, ok)
	assert.True(t, st.Enabled)

	assert.NotEqual(t, original.Fingerprint(), toggled.Fingerprint())
}

func TestToggleUnknownStage(t *testing.T) {
	original := Default()
	same := original.ToggleStage("missing")
	assert.Equal(t, original.Fingerprint(), same.Fingerprint())
}

func TestEnabledStagesPreservesOrder(t *testing.T) {
	s := Snapshot{Stages: []StageConfig{
		{ID: "c", Enabled: true},
		{ID: "a", Enabled: false},
		{ID: "b", Enabled: true},
	}}

	enabled := s.EnabledStages()
	require.Len(t, enabled, 2)
	assert.Equal(t, "c", enabled[0].ID)
	assert.Equal(t, "b", enabled[1].ID)
}

func TestConfigureStageDeepCopies(t *testing.T) {
	cfg := map[string]interface{}{"target": "_blank"}
	s := Default().ConfigureStage("external-links", cfg)
	cfg["target"] = "_self"

	st, _ := s.Stage("external-links")
	assert.Equal(t, "_blank", st.Config["target"])

	clone := s.Clone()
	clone.Stages[0].Config["target"] = "_top"
	st, _ = s.Stage("external-links")
	assert.Equal(t, "_blank", st.Config["target"])
}

func TestFingerprint(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	assert.NotEqual(t, a.Fingerprint(), a.WithTheme("dark").Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), a.WithTemplate("other.html", true).Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), a.WithHideLeadingHeading(true).Fingerprint())
	assert.NotEqual(t, a.Fingerprint(),
		a.ConfigureStage("external-links", map[string]interface{}{"rel": "nofollow"}).Fingerprint())
}
