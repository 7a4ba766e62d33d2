package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// Chunk is a bounded-length passage derived from one RawRecord's text.
// Offsets are rune offsets into the source text. Chunk ids are a
// deterministic function of (source id, start offset) so re-chunking
// unchanged input yields identical ids.
type Chunk struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	Title       string    `json:"page_title,omitempty"`
	Index       int       `json:"chunk_index"`
	Start       int       `json:"start_offset"`
	End         int       `json:"end_offset"`
	Text        string    `json:"text"`
	ContentHash string    `json:"content_hash"`
	RetrievedAt time.Time `json:"retrieved_at,omitempty"`
}

// ChunkID derives the stable id for a chunk from its source id and
// start offset.
func ChunkID(sourceID string, start int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s#%d", sourceID, start)))
	return hex.EncodeToString(sum[:])
}

// HashContent returns the content hash used for index staleness checks.
func HashContent(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.SourceID == "" {
		return fmt.Errorf("chunk SourceID is required")
	}

	if c.Start < 0 || c.End < c.Start {
		return fmt.Errorf("chunk offsets are invalid: [%d, %d)", c.Start, c.End)
	}

	if c.Text == "" {
		return fmt.Errorf("chunk Text is required")
	}

	return nil
}
