package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func withVars(t *testing.T, version, commit, built string) {
	t.Helper()
	v, c, b := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = version, commit, built
	t.Cleanup(func() { Version, GitCommit, BuildTime = v, c, b })
}

func TestVersionFromLdflags(t *testing.T) {
	withVars(t, "v1.2.0", "0123456789abcdef", "2025-01-02T03:04:05Z")
	withBuildInfo(t, nil)

	assert.Equal(t, "v1.2.0", GetVersion())
	assert.Equal(t, "v1.2.0 (0123456)", GetShortVersion())
	assert.True(t, IsRelease())
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), GetBuildInfo().BuildTime)
}

func TestVersionFromBuildInfo(t *testing.T) {
	withVars(t, "dev", "unknown", "unknown")
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Deps: []*debug.Module{
			{Path: MarkdownModule, Version: "v1.7.16"},
		},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abcdef0123456"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	assert.Equal(t, "dev-abcdef0", GetVersion())
	assert.Equal(t, "abcdef0123456", GetGitCommit())
	assert.Equal(t, "dev-abcdef0", GetShortVersion())
	assert.False(t, IsRelease())
	assert.True(t, IsDirty())
	assert.Equal(t, "v1.7.16", DependencyVersion(MarkdownModule))
	assert.Equal(t, "unknown", DependencyVersion("example.com/missing"))

	detailed := GetDetailedVersion()
	assert.Contains(t, detailed, "Markdown: goldmark v1.7.16")
	assert.Contains(t, detailed, "(modified)")
}

func TestParseISOTime(t *testing.T) {
	assert.True(t, parseISOTime("unknown").IsZero())
	assert.True(t, parseISOTime("not a time").IsZero())
	assert.False(t, parseISOTime("2025-01-02 03:04:05").IsZero())
}
