package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Run("Should split simple rows on commas and newlines", func(t *testing.T) {
		rows := Parse("a,b,c\nd,e,f\n")

		assert.Len(t, rows, 2)
		assert.Equal(t, []string{"a", "b", "c"}, rows[0])
		assert.Equal(t, []string{"d", "e", "f"}, rows[1])
	})

	t.Run("Should keep commas inside quoted fields", func(t *testing.T) {
		rows := Parse(`name,note
kim,"hello, world"`)

		assert.Len(t, rows, 2)
		assert.Equal(t, "hello, world", rows[1][1])
	})

	t.Run("Should keep newlines inside quoted fields", func(t *testing.T) {
		rows := Parse("id,text\n1,\"line one\nline two\"\n2,short")

		assert.Len(t, rows, 3)
		assert.Equal(t, "line one\nline two", rows[1][1])
		assert.Equal(t, "short", rows[2][1])
	})

	t.Run("Should unescape doubled quotes", func(t *testing.T) {
		rows := Parse(`text
"she said ""hi"""`)

		assert.Len(t, rows, 2)
		assert.Equal(t, `she said "hi"`, rows[1][0])
	})

	t.Run("Should handle CRLF line endings", func(t *testing.T) {
		rows := Parse("a,b\r\nc,d\r\n")

		assert.Len(t, rows, 2)
		assert.Equal(t, []string{"a", "b"}, rows[0])
		assert.Equal(t, []string{"c", "d"}, rows[1])
	})

	t.Run("Should drop rows that are entirely blank", func(t *testing.T) {
		rows := Parse("a,b\n\n  , \nc,d\n")

		assert.Len(t, rows, 2)
		assert.Equal(t, []string{"c", "d"}, rows[1])
	})

	t.Run("Should flush the last row without a trailing newline", func(t *testing.T) {
		rows := Parse("a,b\nc,d")

		assert.Len(t, rows, 2)
		assert.Equal(t, []string{"c", "d"}, rows[1])
	})

	t.Run("Should not trim whitespace inside fields", func(t *testing.T) {
		rows := Parse("a, b ,c\n")

		assert.Equal(t, []string{"a", " b ", "c"}, rows[0])
	})

	t.Run("Should return no rows for empty input", func(t *testing.T) {
		assert.Empty(t, Parse(""))
		assert.Empty(t, Parse("\n\n"))
	})

	t.Run("Should preserve empty fields between commas", func(t *testing.T) {
		rows := Parse("a,,c\n")

		assert.Equal(t, []string{"a", "", "c"}, rows[0])
	})
}
