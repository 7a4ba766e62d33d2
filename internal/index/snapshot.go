package index

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/brightforge/sitechat/internal/domain"
)

// Match pairs a chunk with its cosine similarity to the query vector.
type Match struct {
	Chunk domain.Chunk
	Score float64
}

// VectorIndex is the read side of the embedding index. Implementations
// are the in-memory Snapshot and the pgvector-backed PGIndex.
type VectorIndex interface {
	Nearest(ctx context.Context, vector []float32, k int) ([]Match, error)
	Model() string
	Dimensions() int
	Len() int
}

// Snapshot is an immutable in-memory view of the embedding index.
// A query that begins against one snapshot completes against it even if
// a rebuild swaps in a newer one mid-flight.
type Snapshot struct {
	model      string
	dimensions int
	buildCount int64
	builtAt    time.Time

	chunks  []domain.Chunk
	vectors [][]float32
	norms   []float64
}

// NewSnapshot builds a snapshot from aligned chunks and embedding
// records. Records without a matching chunk are dropped; chunks without
// an embedding are not searchable.
func NewSnapshot(state *domain.IndexState, chunks []domain.Chunk, records []domain.EmbeddingRecord) *Snapshot {
	byID := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	s := &Snapshot{
		model:      state.Model,
		dimensions: state.Dimensions,
		buildCount: state.BuildCount,
		builtAt:    state.BuiltAt,
	}
	for _, r := range records {
		c, ok := byID[r.ChunkID]
		if !ok {
			continue
		}
		s.chunks = append(s.chunks, c)
		s.vectors = append(s.vectors, r.Vector)
		s.norms = append(s.norms, vectorNorm(r.Vector))
	}
	return s
}

func (s *Snapshot) Model() string      { return s.model }
func (s *Snapshot) Dimensions() int    { return s.dimensions }
func (s *Snapshot) Len() int           { return len(s.chunks) }
func (s *Snapshot) BuildCount() int64  { return s.buildCount }
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Nearest returns up to k chunks ordered by descending cosine
// similarity. Equal scores are broken by ascending chunk id so results
// are stable across runs.
func (s *Snapshot) Nearest(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// An index with no searchable chunks yields no matches, not an error.
	if len(s.chunks) == 0 {
		return []Match{}, nil
	}

	qNorm := vectorNorm(vector)
	matches := make([]Match, 0, len(s.chunks))
	for i, v := range s.vectors {
		matches = append(matches, Match{
			Chunk: s.chunks[i],
			Score: cosine(vector, qNorm, v, s.norms[i]),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.ID < matches[j].Chunk.ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
