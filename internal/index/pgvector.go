package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/brightforge/sitechat/internal/domain"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGIndex serves nearest-neighbor queries from a Postgres table with a
// pgvector embedding column. It is an optional alternative to the
// file-backed snapshot for deployments that already run Postgres.
type PGIndex struct {
	db         dbtx
	model      string
	dimensions int
}

func NewPGIndex(pool *pgxpool.Pool, model string, dimensions int) *PGIndex {
	return &PGIndex{db: pool, model: model, dimensions: dimensions}
}

func (p *PGIndex) Model() string   { return p.model }
func (p *PGIndex) Dimensions() int { return p.dimensions }

// Len reports the number of stored embeddings for the model. Query
// errors read as zero, so Len is informational only.
func (p *PGIndex) Len() int {
	var count int
	err := p.db.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM chunk_embeddings WHERE model = $1`, p.model,
	).Scan(&count)
	if err != nil {
		return 0
	}
	return count
}

// Sync replaces the stored embeddings for the index model with the
// given chunks and records, inside a single transaction.
func (p *PGIndex) Sync(ctx context.Context, chunks []domain.Chunk, records []domain.EmbeddingRecord) error {
	pool, ok := p.db.(*pgxpool.Pool)
	if !ok {
		return fmt.Errorf("sync requires a connection pool")
	}

	byID := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunk_embeddings WHERE model = $1`, p.model); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}

	for _, r := range records {
		c, ok := byID[r.ChunkID]
		if !ok {
			continue
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO chunk_embeddings
				(chunk_id, source_id, title, chunk_index, chunk_start, chunk_end, content, content_hash, model, embedding, retrieved_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			c.ID,
			c.SourceID,
			c.Title,
			c.Index,
			c.Start,
			c.End,
			c.Text,
			c.ContentHash,
			r.Model,
			pgvector.NewVector(r.Vector),
			c.RetrievedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert embedding for chunk %s: %w", r.ChunkID, err)
		}
	}

	return tx.Commit(ctx)
}

// Nearest returns up to k chunks by descending cosine similarity, ties
// broken by ascending chunk id. A table with no rows for the model
// yields no matches, not an error.
func (p *PGIndex) Nearest(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidTopK
	}

	rows, err := p.db.Query(ctx,
		`SELECT chunk_id, source_id, title, chunk_index, chunk_start, chunk_end, content, content_hash, retrieved_at,
		        1 - (embedding <=> $1) AS score
		 FROM chunk_embeddings
		 WHERE model = $2
		 ORDER BY score DESC, chunk_id ASC
		 LIMIT $3`,
		pgvector.NewVector(vector), p.model, k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var m Match
		if err := rows.Scan(
			&m.Chunk.ID,
			&m.Chunk.SourceID,
			&m.Chunk.Title,
			&m.Chunk.Index,
			&m.Chunk.Start,
			&m.Chunk.End,
			&m.Chunk.Text,
			&m.Chunk.ContentHash,
			&m.Chunk.RetrievedAt,
			&m.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
