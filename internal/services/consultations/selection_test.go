package consultations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionSet(t *testing.T) {
	t.Run("Should toggle IDs in and out", func(t *testing.T) {
		s := NewSelectionSet()

		assert.True(t, s.Toggle("a"))
		assert.True(t, s.Has("a"))
		assert.False(t, s.Toggle("a"))
		assert.False(t, s.Has("a"))
		assert.Equal(t, 0, s.Len())
	})

	t.Run("Should replace the selection on SelectAll", func(t *testing.T) {
		s := NewSelectionSet()
		s.Toggle("stale")

		s.SelectAll([]string{"a", "b", "c"})

		assert.Equal(t, 3, s.Len())
		assert.False(t, s.Has("stale"))
		assert.ElementsMatch(t, []string{"a", "b", "c"}, s.IDs())
	})

	t.Run("Should clear everything", func(t *testing.T) {
		s := NewSelectionSet()
		s.SelectAll([]string{"a", "b"})

		s.Clear()

		assert.Equal(t, 0, s.Len())
		assert.Empty(t, s.IDs())
	})

	t.Run("Should retain only IDs still on the page", func(t *testing.T) {
		s := NewSelectionSet()
		s.SelectAll([]string{"a", "b", "c"})

		s.Retain([]string{"b", "c", "d"})

		assert.ElementsMatch(t, []string{"b", "c"}, s.IDs())
		assert.False(t, s.Has("a"))
	})

	t.Run("Should empty the selection when the page changes completely", func(t *testing.T) {
		s := NewSelectionSet()
		s.SelectAll([]string{"a", "b"})

		s.Retain([]string{"x", "y"})

		assert.Equal(t, 0, s.Len())
	})
}
