package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/brightforge/sitechat/internal/domain"
)

// Embedder generates embedding vectors for chunk text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	EmbeddingModel() string
}

// BuildReport summarizes one build run. Failed carries the chunk ids
// that errored after retries; they stay out of the index and show up as
// missing on the next staleness check.
type BuildReport struct {
	Model      string    `json:"model"`
	BuildCount int64     `json:"build_count"`
	BuiltAt    time.Time `json:"built_at"`
	Embedded   int       `json:"embedded"`
	Reused     int       `json:"reused"`
	Removed    int       `json:"removed"`
	Failed     []string  `json:"failed,omitempty"`
}

// Builder produces the embedding index from the chunk store. Builds are
// incremental: chunks already embedded by the same model with unchanged
// text are carried over, only new and changed chunks hit the embedding
// service. A model change discards everything and embeds from scratch.
type Builder struct {
	files       *FileStore
	embedder    Embedder
	dimensions  int
	concurrency int
	maxRetries  int
}

func NewBuilder(files *FileStore, embedder Embedder, dimensions, concurrency, maxRetries int) *Builder {
	if concurrency < 1 {
		concurrency = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Builder{
		files:       files,
		embedder:    embedder,
		dimensions:  dimensions,
		concurrency: concurrency,
		maxRetries:  maxRetries,
	}
}

// Build embeds whatever the index is missing and persists the result
// atomically. Chunks that still fail after retries do not abort the
// run: the partial index is saved, and Build returns the report
// together with a BUILD_INCOMPLETE error carrying the failed ids. On
// context cancellation nothing is written and the previous index
// remains intact.
func (b *Builder) Build(ctx context.Context, chunks []domain.Chunk) (*BuildReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	model := b.embedder.EmbeddingModel()

	prev, err := b.files.LoadState()
	if err != nil && !errors.Is(err, domain.ErrIndexNotFound) {
		return nil, err
	}

	reusable := make(map[string]domain.EmbeddingRecord)
	var buildCount int64
	if prev != nil && prev.Model == model && prev.Dimensions == b.dimensions {
		buildCount = prev.BuildCount
		records, err := b.files.LoadRecords()
		if err != nil && !errors.Is(err, domain.ErrIndexNotFound) {
			return nil, err
		}
		for _, r := range records {
			reusable[r.ChunkID] = r
		}
	} else if prev != nil {
		log.Printf("Index model changed (%s -> %s), rebuilding from scratch", prev.Model, model)
	}

	var toEmbed []domain.Chunk
	var kept []domain.EmbeddingRecord
	newHashes := make(map[string]string, len(chunks))
	for _, c := range chunks {
		newHashes[c.ID] = c.ContentHash
		r, ok := reusable[c.ID]
		if ok && prev.ContentHashes[c.ID] == c.ContentHash {
			kept = append(kept, r)
			continue
		}
		toEmbed = append(toEmbed, c)
	}
	removed := 0
	for id := range reusable {
		if _, ok := newHashes[id]; !ok {
			removed++
		}
	}

	embedded, failed, err := b.embedAll(ctx, toEmbed)
	if err != nil {
		return nil, err
	}

	records := append(kept, embedded...)
	sort.Slice(records, func(i, j int) bool { return records[i].ChunkID < records[j].ChunkID })

	state := domain.NewIndexState(model, b.dimensions)
	state.BuildCount = buildCount + 1
	state.BuiltAt = time.Now().UTC()
	for _, r := range records {
		state.ContentHashes[r.ChunkID] = newHashes[r.ChunkID]
	}

	if err := b.files.Save(state, records); err != nil {
		return nil, err
	}

	report := &BuildReport{
		Model:      model,
		BuildCount: state.BuildCount,
		BuiltAt:    state.BuiltAt,
		Embedded:   len(embedded),
		Reused:     len(kept),
		Removed:    removed,
		Failed:     failed,
	}
	log.Printf("Index build %d complete: %d embedded, %d reused, %d removed, %d failed",
		report.BuildCount, report.Embedded, report.Reused, report.Removed, len(report.Failed))
	if len(report.Failed) > 0 {
		return report, domain.NewBuildIncomplete(report.Failed)
	}
	return report, nil
}

// embedAll embeds chunks with bounded concurrency. Transient failures
// are retried with exponential backoff; chunks that still fail are
// reported by id rather than aborting the build. Context cancellation
// aborts the whole run.
func (b *Builder) embedAll(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddingRecord, []string, error) {
	if len(chunks) == 0 {
		return nil, nil, nil
	}

	var mu sync.Mutex
	var records []domain.EmbeddingRecord
	var failed []string

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for _, c := range chunks {
		c := c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vector, err := b.embedWithRetry(ctx, c.Text)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("Failed to embed chunk %s: %v", c.ID, err)
				mu.Lock()
				failed = append(failed, c.ID)
				mu.Unlock()
				return nil
			}
			if b.dimensions > 0 && len(vector) != b.dimensions {
				return fmt.Errorf("embedding for chunk %s has %d dimensions, expected %d", c.ID, len(vector), b.dimensions)
			}
			mu.Lock()
			records = append(records, domain.EmbeddingRecord{
				ChunkID: c.ID,
				Model:   b.embedder.EmbeddingModel(),
				Vector:  vector,
			})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	sort.Strings(failed)
	return records, failed, nil
}

func (b *Builder) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	operation := func() error {
		v, err := b.embedder.GenerateEmbedding(ctx, text)
		if err != nil {
			if domain.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		vector = v
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(b.maxRetries)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return vector, nil
}
