package service

import (
	"context"
	"errors"
	"strings"

	"github.com/brightforge/sitechat/internal/domain"
	"github.com/brightforge/sitechat/internal/index"
)

// QueryEmbedder embeds query text with a known model.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	EmbeddingModel() string
}

// IndexSource provides the vector index to search. The source decides
// which snapshot is current; the retriever uses whichever one it is
// handed for the whole query.
type IndexSource interface {
	Index() (index.VectorIndex, error)
}

// Retriever finds the chunks most similar to a query. It refuses to
// search an index built by a different embedding model than the one it
// would embed the query with.
type Retriever struct {
	embedder QueryEmbedder
	source   IndexSource
	topK     int
}

func NewRetriever(embedder QueryEmbedder, source IndexSource, topK int) *Retriever {
	if topK <= 0 {
		topK = 6
	}
	return &Retriever{embedder: embedder, source: source, topK: topK}
}

// Retrieve embeds the query and returns up to the configured number of
// nearest chunks.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]index.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrMissingQuery
	}

	idx, err := r.source.Index()
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, domain.ErrIndexEmpty
		}
		return nil, err
	}

	if idx.Model() != r.embedder.EmbeddingModel() {
		return nil, domain.NewModelMismatch(idx.Model(), r.embedder.EmbeddingModel())
	}

	vector, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	return idx.Nearest(ctx, vector, r.topK)
}
