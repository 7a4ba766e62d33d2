package domain

import (
	"fmt"
	"time"
)

// EmbeddingRecord pairs a chunk id with the vector produced by the
// embedding service and the model that produced it.
type EmbeddingRecord struct {
	ChunkID string    `json:"chunk_id"`
	Model   string    `json:"model"`
	Vector  []float32 `json:"vector"`
}

// ValidateEmbeddingRecord validates an EmbeddingRecord instance
func ValidateEmbeddingRecord(r *EmbeddingRecord, dimensions int) error {
	if r == nil {
		return fmt.Errorf("embedding record cannot be nil")
	}

	if r.ChunkID == "" {
		return fmt.Errorf("embedding record ChunkID is required")
	}

	if r.Model == "" {
		return fmt.Errorf("embedding record Model is required")
	}

	if dimensions > 0 && len(r.Vector) != dimensions {
		return fmt.Errorf("embedding record vector has %d dimensions, expected %d", len(r.Vector), dimensions)
	}

	return nil
}

// IndexState is the persisted record of which chunk ids have been
// embedded, by which model, and where each embedding record lives in
// the embeddings file. It is read at build start and replaced by
// write-then-rename at the end of a successful build, so readers always
// see either the old state or the new one, never a partial write.
type IndexState struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	// BuildCount increases by one on every successful build.
	BuildCount int64     `json:"build_count"`
	BuiltAt    time.Time `json:"built_at"`
	// Offsets maps chunk id to the byte offset of its record line in
	// the embeddings file.
	Offsets map[string]int64 `json:"offsets"`
	// ContentHashes maps chunk id to the hash of the chunk text at the
	// time it was embedded, for staleness detection.
	ContentHashes map[string]string `json:"content_hashes"`
}

// NewIndexState creates an empty IndexState for the given model.
func NewIndexState(model string, dimensions int) *IndexState {
	return &IndexState{
		Model:         model,
		Dimensions:    dimensions,
		Offsets:       make(map[string]int64),
		ContentHashes: make(map[string]string),
	}
}

// Has reports whether the chunk id has been embedded under this state's model.
func (s *IndexState) Has(chunkID string) bool {
	_, ok := s.Offsets[chunkID]
	return ok
}

// Len returns the number of embedded chunks.
func (s *IndexState) Len() int {
	return len(s.Offsets)
}

// StaleReport describes drift between the chunk store and the index.
type StaleReport struct {
	Missing []string // chunk ids present in the store but not embedded
	Changed []string // chunk ids whose text changed since embedding
	Removed []string // chunk ids embedded but no longer in the store
}

// IsStale reports whether any drift was found.
func (r StaleReport) IsStale() bool {
	return len(r.Missing) > 0 || len(r.Changed) > 0 || len(r.Removed) > 0
}

// Diff compares the chunk store contents against the index state.
// Any drift means the index is stale and must be surfaced to callers,
// never silently ignored.
func (s *IndexState) Diff(chunks []Chunk) StaleReport {
	var report StaleReport

	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		seen[c.ID] = struct{}{}
		hash, ok := s.ContentHashes[c.ID]
		if !ok {
			report.Missing = append(report.Missing, c.ID)
			continue
		}
		if hash != c.ContentHash {
			report.Changed = append(report.Changed, c.ID)
		}
	}

	for id := range s.Offsets {
		if _, ok := seen[id]; !ok {
			report.Removed = append(report.Removed, id)
		}
	}

	return report
}
