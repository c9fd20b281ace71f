package patch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedHeight(h float64) func(string) float64 {
	return func(string) float64 { return h }
}

func TestScrollPreservation(t *testing.T) {
	testCases := []struct {
		name      string
		newHeight float64
		expected  float64
	}{
		{"taller document keeps offset", 3000, 500},
		{"shorter document clamps to new max", 800, 400},
		{"document shorter than viewport", 300, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			target := NewMemoryTarget(400)
			target.HeightOf = fixedHeight(2000)
			target.SetContent("old")
			target.ScrollTo(500)
			require.Equal(t, float64(500), target.Viewport().ScrollTop)

			ch := NewChannel(nil)
			ch.RegisterTarget(target)

			target.HeightOf = fixedHeight(tc.newHeight)
			offset, err := ch.PatchContent(context.Background(), "new")
			require.NoError(t, err)

			assert.Equal(t, tc.expected, offset)
			assert.Equal(t, tc.expected, target.Viewport().ScrollTop)
			assert.Equal(t, "new", target.Markup())
		})
	}
}

func TestPatchWithoutTarget(t *testing.T) {
	ch := NewChannel(nil)
	_, err := ch.PatchContent(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.ErrorIs(t, ch.PatchStyle(context.Background(), "x"), ErrNoTarget)

	ch.RegisterTarget(NewMemoryTarget(100))
	assert.True(t, ch.HasTarget())
	ch.ClearTarget()
	assert.False(t, ch.HasTarget())
}

func TestPatchStyle(t *testing.T) {
	target := NewMemoryTarget(100)
	ch := NewChannel(nil)
	ch.RegisterTarget(target)

	require.NoError(t, ch.PatchStyle(context.Background(), "body{}"))
	assert.Equal(t, "body{}", target.Style())
}

type failingTarget struct{ MemoryTarget }

func (f *failingTarget) ReplaceContent(string) (Viewport, error) {
	return Viewport{}, errors.New("detached")
}

func TestPatchContentError(t *testing.T) {
	ch := NewChannel(nil)
	ch.RegisterTarget(&failingTarget{})
	_, err := ch.PatchContent(context.Background(), "x")
	assert.EqualError(t, err, "detached")
}

func TestClampScroll(t *testing.T) {
	v := Viewport{ScrollHeight: 1000, ClientHeight: 400}
	assert.Equal(t, float64(600), ClampScroll(900, v))
	assert.Equal(t, float64(100), ClampScroll(100, v))
	assert.Equal(t, float64(0), ClampScroll(-5, v))
}
