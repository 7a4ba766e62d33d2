package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brightforge/sitechat/internal/domain"
)

const (
	pagesFile     = "pages.jsonl"
	chunksFile    = "chunks.jsonl"
	structuredDir = "structured"
)

// View kinds served by the structured views store.
const (
	ViewPrices    = "prices"
	ViewContacts  = "contacts"
	ViewLocations = "locations"
	ViewTeams     = "teams"
)

// ContentStore holds scraped records as append-only line-delimited JSON
// on disk, plus key-keyed JSON documents for the structured views.
type ContentStore struct {
	dir string
}

// NewContentStore creates a ContentStore rooted at dir.
func NewContentStore(dir string) *ContentStore {
	return &ContentStore{dir: dir}
}

// Dir returns the store's root directory.
func (s *ContentStore) Dir() string {
	return s.dir
}

// AppendPages appends raw records to pages.jsonl.
func (s *ContentStore) AppendPages(records []domain.RawRecord) error {
	return appendJSONL(filepath.Join(s.dir, pagesFile), records)
}

// ReadPages reads every raw record from pages.jsonl. A missing file is
// an empty store, not an error.
func (s *ContentStore) ReadPages() ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	if err := readJSONL(filepath.Join(s.dir, pagesFile), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// AppendChunks appends chunks to chunks.jsonl.
func (s *ContentStore) AppendChunks(chunks []domain.Chunk) error {
	return appendJSONL(filepath.Join(s.dir, chunksFile), chunks)
}

// ReplaceChunks rewrites chunks.jsonl atomically.
func (s *ContentStore) ReplaceChunks(chunks []domain.Chunk) error {
	var buf []byte
	for _, c := range chunks {
		line, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk %s: %w", c.ID, err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return WriteFileAtomic(filepath.Join(s.dir, chunksFile), buf)
}

// ReadChunks reads every chunk from chunks.jsonl.
func (s *ContentStore) ReadChunks() ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	if err := readJSONL(filepath.Join(s.dir, chunksFile), &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// WriteViews writes the structured views, each keyed by entity name.
func (s *ContentStore) WriteViews(views domain.StructuredViews) error {
	prices := make(map[string]domain.PriceEntry, len(views.Prices))
	for _, p := range views.Prices {
		prices[p.Service] = p
	}
	contacts := make(map[string]domain.ContactEntry, len(views.Contacts))
	for _, c := range views.Contacts {
		contacts[c.Label+" "+c.Phone] = c
	}
	locations := make(map[string]domain.LocationEntry, len(views.Locations))
	for _, l := range views.Locations {
		locations[l.Location] = l
	}
	teams := make(map[string]domain.TeamEntry, len(views.Teams))
	for _, t := range views.Teams {
		teams[t.Team] = t
	}

	for kind, doc := range map[string]any{
		ViewPrices:    prices,
		ViewContacts:  contacts,
		ViewLocations: locations,
		ViewTeams:     teams,
	} {
		if err := s.writeView(kind, doc); err != nil {
			return err
		}
	}
	return nil
}

// ReadView returns the raw JSON document for a structured view kind.
func (s *ContentStore) ReadView(kind string) (json.RawMessage, error) {
	switch kind {
	case ViewPrices, ViewContacts, ViewLocations, ViewTeams:
	default:
		return nil, domain.ErrViewNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.dir, structuredDir, kind+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrViewNotFound
		}
		return nil, fmt.Errorf("failed to read view %s: %w", kind, err)
	}
	return json.RawMessage(data), nil
}

func (s *ContentStore) writeView(kind string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal view %s: %w", kind, err)
	}
	return WriteFileAtomic(filepath.Join(s.dir, structuredDir, kind+".json"), data)
}

// WriteFileAtomic writes data via a temp file and rename so readers
// never observe a partial write.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func appendJSONL[T any](path string, records []T) error {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return w.Flush()
}

func readJSONL[T any](path string, out *[]T) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		*out = append(*out, rec)
	}
	return scanner.Err()
}
