package document

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/conneroisu/mdpreview/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "# Hi")

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "# Hi", doc.Text)
	assert.Equal(t, path, doc.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.md"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "---\ntitle: Notes\nauthor: Ann\n---\nbody")

	s, err := NewFileSource(path, 10*time.Millisecond, nil)
	require.NoError(t, err)
	defer s.Stop()

	fm, err := s.Frontmatter(path)
	require.NoError(t, err)
	assert.Equal(t, "Notes", fm["title"])
	assert.Equal(t, "Ann", fm["author"])

	bad := filepath.Join(dir, "bad.md")
	require.NoError(t, os.WriteFile(bad, []byte("---\ntitle: [x\n---\n"), 0o644))
	_, err = s.Frontmatter(bad)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
}

func TestOnChangeDeliversNewText(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "v1")

	s, err := NewFileSource(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer s.Stop()

	var mu sync.Mutex
	var seen []string
	s.OnChange(func(text string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, text)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == "v2"
	}, 3*time.Second, 10*time.Millisecond)
}
