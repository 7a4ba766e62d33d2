package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/brightforge/sitechat/internal/domain"
	"github.com/brightforge/sitechat/internal/index"
	"github.com/brightforge/sitechat/internal/store"
	"github.com/brightforge/sitechat/internal/telemetry"
)

// IndexStatus is the externally visible state of the embedding index.
type IndexStatus struct {
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	Chunks     int       `json:"chunks"`
	BuildCount int64     `json:"build_count"`
	BuiltAt    time.Time `json:"built_at"`
	Stale      bool      `json:"stale"`
	Missing    int       `json:"missing"`
	Changed    int       `json:"changed"`
	Removed    int       `json:"removed"`
}

// IndexService coordinates the chunk store, the builder, and the live
// snapshot. Rebuilds are serialized; readers keep the old snapshot
// until the swap.
type IndexService struct {
	content  *store.ContentStore
	files    *index.FileStore
	builder  *index.Builder
	holder   *index.Holder
	pg       *index.PGIndex
	chunkCfg ChunkConfig

	rebuildMu sync.Mutex
}

func NewIndexService(content *store.ContentStore, files *index.FileStore, builder *index.Builder, holder *index.Holder, chunkCfg ChunkConfig) *IndexService {
	return &IndexService{
		content:  content,
		files:    files,
		builder:  builder,
		holder:   holder,
		chunkCfg: chunkCfg,
	}
}

// WithPGIndex mirrors every successful build into the pgvector table.
func (s *IndexService) WithPGIndex(pg *index.PGIndex) *IndexService {
	s.pg = pg
	return s
}

// Load reads the persisted index into the holder. Missing index files
// are not an error: the service starts with an empty holder and serves
// IndexEmpty until the first build.
func (s *IndexService) Load() error {
	chunks, err := s.content.ReadChunks()
	if err != nil {
		return err
	}
	snap, err := s.files.LoadSnapshot(chunks)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil
		}
		return err
	}
	s.holder.Swap(snap)
	return nil
}

// currentChunks re-chunks the page store. Drift checks use this rather
// than chunks.jsonl, which only reflects the pages as of the last
// rebuild.
func (s *IndexService) currentChunks() ([]domain.Chunk, error) {
	pages, err := s.content.ReadPages()
	if err != nil {
		return nil, err
	}
	var chunks []domain.Chunk
	for _, page := range pages {
		chunks = append(chunks, ChunkRecord(page, s.chunkCfg)...)
	}
	return chunks, nil
}

// Status reports the index state and its drift against the page store.
// Drift is computed fresh on every call so staleness is never hidden
// behind a cached answer.
func (s *IndexService) Status(ctx context.Context) (*IndexStatus, error) {
	state, err := s.files.LoadState()
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return &IndexStatus{Stale: true}, nil
		}
		return nil, err
	}

	chunks, err := s.currentChunks()
	if err != nil {
		return nil, err
	}
	report := state.Diff(chunks)

	return &IndexStatus{
		Model:      state.Model,
		Dimensions: state.Dimensions,
		Chunks:     state.Len(),
		BuildCount: state.BuildCount,
		BuiltAt:    state.BuiltAt,
		Stale:      report.IsStale(),
		Missing:    len(report.Missing),
		Changed:    len(report.Changed),
		Removed:    len(report.Removed),
	}, nil
}

// CheckStale compares the page store against the index state.
func (s *IndexService) CheckStale(ctx context.Context) (domain.StaleReport, error) {
	chunks, err := s.currentChunks()
	if err != nil {
		return domain.StaleReport{}, err
	}

	state, err := s.files.LoadState()
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			report := domain.StaleReport{}
			for _, c := range chunks {
				report.Missing = append(report.Missing, c.ID)
			}
			return report, nil
		}
		return domain.StaleReport{}, err
	}
	return state.Diff(chunks), nil
}

// Rebuild re-chunks the page store, rebuilds the embedding index, and
// swaps the new snapshot in. Only one rebuild runs at a time.
func (s *IndexService) Rebuild(ctx context.Context) (*index.BuildReport, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "IndexService.Rebuild", telemetry.SpanAttributes{
		Operation: "rebuild",
	})
	defer span.End()

	chunks, err := s.currentChunks()
	if err != nil {
		return nil, err
	}
	if err := s.content.ReplaceChunks(chunks); err != nil {
		return nil, err
	}

	report, err := s.builder.Build(ctx, chunks)
	if err != nil {
		span.SetError(err)
		// Partial progress is persisted on disk; the serving snapshot
		// is not swapped until a build fully succeeds.
		return report, err
	}

	snap, err := s.files.LoadSnapshot(chunks)
	if err != nil {
		return nil, err
	}
	s.holder.Swap(snap)

	if s.pg != nil {
		records, err := s.files.LoadRecords()
		if err != nil {
			return nil, err
		}
		if err := s.pg.Sync(ctx, chunks, records); err != nil {
			log.Printf("Failed to sync pgvector index: %v", err)
		}
	}
	return report, nil
}
