package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	t.Run("is deterministic for the same source and offset", func(t *testing.T) {
		a := ChunkID("https://example.com/pricing", 0)
		b := ChunkID("https://example.com/pricing", 0)
		assert.Equal(t, a, b)
		assert.Len(t, a, 40)
	})

	t.Run("differs across offsets", func(t *testing.T) {
		a := ChunkID("https://example.com/pricing", 0)
		b := ChunkID("https://example.com/pricing", 400)
		assert.NotEqual(t, a, b)
	})

	t.Run("differs across sources", func(t *testing.T) {
		a := ChunkID("https://example.com/a", 0)
		b := ChunkID("https://example.com/b", 0)
		assert.NotEqual(t, a, b)
	})
}

func TestHashContent(t *testing.T) {
	assert.Equal(t, HashContent("hello"), HashContent("hello"))
	assert.NotEqual(t, HashContent("hello"), HashContent("hello "))
}

func TestValidateChunk(t *testing.T) {
	valid := func() *Chunk {
		return &Chunk{
			ID:       ChunkID("p1", 0),
			SourceID: "p1",
			Start:    0,
			End:      10,
			Text:     "some text.",
		}
	}

	t.Run("valid chunk passes", func(t *testing.T) {
		require.NoError(t, ValidateChunk(valid()))
	})

	t.Run("nil chunk fails", func(t *testing.T) {
		assert.Error(t, ValidateChunk(nil))
	})

	t.Run("missing id fails", func(t *testing.T) {
		c := valid()
		c.ID = ""
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("missing source fails", func(t *testing.T) {
		c := valid()
		c.SourceID = ""
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("inverted offsets fail", func(t *testing.T) {
		c := valid()
		c.Start = 10
		c.End = 5
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("empty text fails", func(t *testing.T) {
		c := valid()
		c.Text = ""
		assert.Error(t, ValidateChunk(c))
	})
}
