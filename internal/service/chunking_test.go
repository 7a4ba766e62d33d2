package service

import (
	"strings"
	"testing"

	"github.com/brightforge/sitechat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, text string) domain.RawRecord {
	return domain.RawRecord{SourceID: id, Kind: domain.RecordKindPage, Text: text}
}

func TestChunkRecord_ShortRecord(t *testing.T) {
	rec := record("p1", "Price is $10. Contact us at a@b.com.")
	cfg := ChunkConfig{MaxChars: 100, MinChars: 10, Overlap: 0}

	chunks := ChunkRecord(rec, cfg)

	require.Len(t, chunks, 1)
	assert.Equal(t, rec.Text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, domain.ChunkID("p1", 0), chunks[0].ID)
}

func TestChunkRecord_EmptyAndWhitespace(t *testing.T) {
	cfg := DefaultChunkConfig()

	assert.Nil(t, ChunkRecord(record("p1", ""), cfg))
	assert.Nil(t, ChunkRecord(record("p1", "   \n\t  "), cfg))
}

func TestChunkRecord_Idempotent(t *testing.T) {
	rec := record("p1", strings.Repeat("One sentence here. ", 200))
	cfg := ChunkConfig{MaxChars: 300, MinChars: 100, Overlap: 50}

	first := ChunkRecord(rec, cfg)
	second := ChunkRecord(rec, cfg)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].Start, second[i].Start)
	}
}

func TestChunkRecord_BoundsRespected(t *testing.T) {
	rec := record("p1", strings.Repeat("Alpha beta gamma delta. ", 300))
	cfg := ChunkConfig{MaxChars: 250, MinChars: 80, Overlap: 0}

	chunks := ChunkRecord(rec, cfg)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), cfg.MaxChars, "chunk %d exceeds max", i)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, len([]rune(c.Text)), cfg.MinChars, "chunk %d under min", i)
		}
		assert.Equal(t, c.End-c.Start, len([]rune(c.Text)))
	}
}

func TestChunkRecord_PrefersSentenceBoundaries(t *testing.T) {
	rec := record("p1", "First sentence is short. Second sentence is also short. Third one follows here.")
	cfg := ChunkConfig{MaxChars: 40, MinChars: 10, Overlap: 0}

	chunks := ChunkRecord(rec, cfg)
	require.Greater(t, len(chunks), 1)

	// every non-final chunk should end right after a sentence boundary
	for _, c := range chunks[:len(chunks)-1] {
		trimmed := strings.TrimRight(c.Text, " ")
		assert.True(t, strings.HasSuffix(trimmed, "."), "chunk %q does not end a sentence", c.Text)
	}
}

func TestChunkRecord_HardSplitWithoutBoundaries(t *testing.T) {
	rec := record("p1", strings.Repeat("x", 1000))
	cfg := ChunkConfig{MaxChars: 300, MinChars: 100, Overlap: 0}

	chunks := ChunkRecord(rec, cfg)
	require.Len(t, chunks, 4)
	for _, c := range chunks[:3] {
		assert.Len(t, c.Text, 300)
	}
	assert.Len(t, chunks[3].Text, 100)
}

func TestChunkRecord_Reconstruction(t *testing.T) {
	tests := []struct {
		name string
		text string
		cfg  ChunkConfig
	}{
		{"no overlap", strings.Repeat("The quick brown fox jumps. ", 100), ChunkConfig{MaxChars: 200, MinChars: 50, Overlap: 0}},
		{"with overlap", strings.Repeat("The quick brown fox jumps. ", 100), ChunkConfig{MaxChars: 200, MinChars: 50, Overlap: 40}},
		{"hard splits", strings.Repeat("y", 777), ChunkConfig{MaxChars: 100, MinChars: 20, Overlap: 10}},
		{"unicode", strings.Repeat("Gigi palsu berkualitas tinggi. ", 60), ChunkConfig{MaxChars: 150, MinChars: 40, Overlap: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkRecord(record("p1", tt.text), tt.cfg)
			require.NotEmpty(t, chunks)
			assert.Equal(t, tt.text, ReconstructText(chunks))
		})
	}
}

func TestChunkRecord_OverlapStride(t *testing.T) {
	text := strings.Repeat("word ", 500)
	cfg := ChunkConfig{MaxChars: 200, MinChars: 50, Overlap: 60}

	chunks := ChunkRecord(record("p1", text), cfg)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		overlap := chunks[i-1].End - chunks[i].Start
		assert.Equal(t, cfg.Overlap, overlap, "chunk %d overlap", i)
	}
}

func TestChunkRecord_CarriesSourceAttribution(t *testing.T) {
	rec := domain.RawRecord{
		SourceID: "https://example.com/pricing",
		Kind:     domain.RecordKindPage,
		Title:    "Pricing",
		Text:     strings.Repeat("Crowns cost money. ", 50),
	}

	chunks := ChunkRecord(rec, ChunkConfig{MaxChars: 100, MinChars: 20, Overlap: 0})
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, rec.SourceID, c.SourceID)
		assert.Equal(t, "Pricing", c.Title)
		assert.Equal(t, i, c.Index)
		assert.Equal(t, domain.HashContent(c.Text), c.ContentHash)
	}
}
