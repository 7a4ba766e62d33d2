package service

import (
	"strings"
	"unicode"

	"github.com/brightforge/sitechat/internal/domain"
)

// ChunkConfig controls how record text is split into passages.
type ChunkConfig struct {
	MaxChars int
	MinChars int
	Overlap  int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1200,
		MinChars: 400,
		Overlap:  200,
	}
}

// ChunkRecord splits a record's text into bounded passages. Splits
// prefer sentence boundaries, then whitespace, then a hard cut at
// MaxChars. Each chunk is an exact rune slice [Start, End) of the
// source text, so concatenating chunk texts minus the configured
// overlap reconstructs the source exactly. Chunk ids depend only on
// (source id, start offset), so re-chunking unchanged input is
// idempotent. Empty or whitespace-only records produce zero chunks.
func ChunkRecord(record domain.RawRecord, cfg ChunkConfig) []domain.Chunk {
	if strings.TrimSpace(record.Text) == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxChars {
		cfg.Overlap = 0
	}

	runes := []rune(record.Text)

	makeChunk := func(index, start, end int) domain.Chunk {
		text := string(runes[start:end])
		return domain.Chunk{
			ID:          domain.ChunkID(record.SourceID, start),
			SourceID:    record.SourceID,
			Title:       record.Title,
			Index:       index,
			Start:       start,
			End:         end,
			Text:        text,
			ContentHash: domain.HashContent(text),
			RetrievedAt: record.RetrievedAt,
		}
	}

	if len(runes) <= cfg.MaxChars {
		return []domain.Chunk{makeChunk(0, 0, len(runes))}
	}

	chunks := make([]domain.Chunk, 0, 8)
	start := 0
	for start < len(runes) {
		end := start + cfg.MaxChars
		if end >= len(runes) {
			chunks = append(chunks, makeChunk(len(chunks), start, len(runes)))
			break
		}

		minCut := start + cfg.MinChars
		if minCut >= end || cfg.MinChars <= 0 {
			minCut = start + 1
		}
		end = findCut(runes, minCut, end)

		chunks = append(chunks, makeChunk(len(chunks), start, end))

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = end - cfg.Overlap
		}
		start = nextStart
	}

	return chunks
}

// findCut scans backwards from end for a sentence boundary, then for
// any whitespace, and falls back to a hard cut at end.
func findCut(runes []rune, minCut, end int) int {
	for i := end; i > minCut; i-- {
		if isSentenceEnd(runes[i-1]) {
			return i
		}
	}
	for i := end; i > minCut; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

// ReconstructText rebuilds the source text from its chunks, dropping
// the overlapping prefix of each chunk after the first.
func ReconstructText(chunks []domain.Chunk) string {
	var sb strings.Builder
	prevEnd := 0
	for i, c := range chunks {
		text := []rune(c.Text)
		if i == 0 {
			sb.WriteString(c.Text)
		} else {
			skip := prevEnd - c.Start
			if skip < 0 {
				skip = 0
			}
			if skip > len(text) {
				skip = len(text)
			}
			sb.WriteString(string(text[skip:]))
		}
		prevEnd = c.End
	}
	return sb.String()
}
