package index

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brightforge/sitechat/internal/domain"
	"github.com/brightforge/sitechat/internal/store"
)

const (
	stateFile      = "state.json"
	embeddingsFile = "embeddings.jsonl"
)

// FileStore persists the embedding index on disk as a state document
// plus a JSONL file of embedding records. Both are replaced by
// write-then-rename, never edited in place.
type FileStore struct {
	dir string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{dir: filepath.Join(dataDir, "index")}
}

func (s *FileStore) statePath() string      { return filepath.Join(s.dir, stateFile) }
func (s *FileStore) embeddingsPath() string { return filepath.Join(s.dir, embeddingsFile) }

// LoadState reads the persisted index state. A missing state file
// returns domain.ErrIndexNotFound.
func (s *FileStore) LoadState() (*domain.IndexState, error) {
	data, err := os.ReadFile(s.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrIndexNotFound
		}
		return nil, fmt.Errorf("failed to read index state: %w", err)
	}

	var state domain.IndexState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse index state: %w", err)
	}
	if state.Offsets == nil {
		state.Offsets = make(map[string]int64)
	}
	if state.ContentHashes == nil {
		state.ContentHashes = make(map[string]string)
	}
	return &state, nil
}

// LoadRecords reads every embedding record from the embeddings file.
func (s *FileStore) LoadRecords() ([]domain.EmbeddingRecord, error) {
	f, err := os.Open(s.embeddingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrIndexNotFound
		}
		return nil, fmt.Errorf("failed to open embeddings file: %w", err)
	}
	defer f.Close()

	var records []domain.EmbeddingRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var r domain.EmbeddingRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("failed to parse embedding record: %w", err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read embeddings file: %w", err)
	}
	return records, nil
}

// LoadSnapshot reads the persisted state and records and assembles an
// in-memory snapshot over the given chunks.
func (s *FileStore) LoadSnapshot(chunks []domain.Chunk) (*Snapshot, error) {
	state, err := s.LoadState()
	if err != nil {
		return nil, err
	}
	records, err := s.LoadRecords()
	if err != nil {
		return nil, err
	}
	return NewSnapshot(state, chunks, records), nil
}

// Save replaces the embeddings file and then the state file, each by
// write-then-rename, so neither file is ever seen half-written. A crash
// between the two renames can pair the old state with the new
// embeddings file; loaders read the embeddings sequentially and match
// records by chunk id rather than trusting the state's offsets, and the
// next successful build rewrites both files.
func (s *FileStore) Save(state *domain.IndexState, records []domain.EmbeddingRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	var buf bytes.Buffer
	state.Offsets = make(map[string]int64, len(records))
	for _, r := range records {
		state.Offsets[r.ChunkID] = int64(buf.Len())
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode embedding record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := store.WriteFileAtomic(s.embeddingsPath(), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write embeddings file: %w", err)
	}

	stateData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode index state: %w", err)
	}
	if err := store.WriteFileAtomic(s.statePath(), stateData); err != nil {
		return fmt.Errorf("failed to write index state: %w", err)
	}
	return nil
}
