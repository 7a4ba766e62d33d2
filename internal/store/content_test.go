package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brightforge/sitechat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentStore_Pages(t *testing.T) {
	s := NewContentStore(t.TempDir())

	t.Run("empty store reads empty", func(t *testing.T) {
		pages, err := s.ReadPages()
		require.NoError(t, err)
		assert.Empty(t, pages)
	})

	t.Run("append then read round-trips", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		records := []domain.RawRecord{
			{SourceID: "https://example.com/", Kind: domain.RecordKindPage, Title: "Home", Text: "Welcome.", RetrievedAt: now},
			{SourceID: "https://example.com/pricing", Kind: domain.RecordKindPage, Title: "Pricing", Text: "Crowns from $10.", RetrievedAt: now},
		}
		require.NoError(t, s.AppendPages(records))

		pages, err := s.ReadPages()
		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, "https://example.com/pricing", pages[1].SourceID)
		assert.Equal(t, "Crowns from $10.", pages[1].Text)
	})

	t.Run("append is additive", func(t *testing.T) {
		require.NoError(t, s.AppendPages([]domain.RawRecord{
			{SourceID: "https://example.com/team", Kind: domain.RecordKindPage, Text: "Our team."},
		}))
		pages, err := s.ReadPages()
		require.NoError(t, err)
		assert.Len(t, pages, 3)
	})
}

func TestContentStore_Chunks(t *testing.T) {
	s := NewContentStore(t.TempDir())

	chunks := []domain.Chunk{
		{ID: domain.ChunkID("p1", 0), SourceID: "p1", Index: 0, Start: 0, End: 5, Text: "Hello", ContentHash: domain.HashContent("Hello")},
		{ID: domain.ChunkID("p1", 5), SourceID: "p1", Index: 1, Start: 5, End: 11, Text: " world", ContentHash: domain.HashContent(" world")},
	}

	require.NoError(t, s.AppendChunks(chunks))

	got, err := s.ReadChunks()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, chunks[0].ID, got[0].ID)
	assert.Equal(t, chunks[1].Text, got[1].Text)

	t.Run("replace rewrites the file", func(t *testing.T) {
		require.NoError(t, s.ReplaceChunks(chunks[:1]))
		got, err := s.ReadChunks()
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestContentStore_Views(t *testing.T) {
	s := NewContentStore(t.TempDir())

	views := domain.StructuredViews{
		Prices: []domain.PriceEntry{
			{Service: "Zirconia Crown", Price: 1350000, PriceRaw: "IDR 1.350.000", Currency: "IDR", Unit: "unit", SourceURL: "https://example.com/pricing"},
		},
		Contacts: []domain.ContactEntry{
			{Label: "Front Desk", Phone: "+6281234567890", SourceURL: "https://example.com/contact"},
		},
		Locations: []domain.LocationEntry{
			{Location: "MEDAN", Address: "Jl. Example No. 1", SourceURL: "https://example.com/contact"},
		},
		Teams: []domain.TeamEntry{
			{Team: "EXCEL", Blurb: "Crown and bridge specialists.", SourceURL: "https://example.com/team"},
		},
	}

	require.NoError(t, s.WriteViews(views))

	t.Run("views are keyed by entity name", func(t *testing.T) {
		raw, err := s.ReadView(ViewPrices)
		require.NoError(t, err)

		var doc map[string]domain.PriceEntry
		require.NoError(t, json.Unmarshal(raw, &doc))
		entry, ok := doc["Zirconia Crown"]
		require.True(t, ok)
		assert.Equal(t, int64(1350000), entry.Price)
	})

	t.Run("unknown kind is not found", func(t *testing.T) {
		_, err := s.ReadView("menus")
		assert.ErrorIs(t, err, domain.ErrViewNotFound)
	})

	t.Run("missing view file is not found", func(t *testing.T) {
		empty := NewContentStore(t.TempDir())
		_, err := empty.ReadView(ViewTeams)
		assert.ErrorIs(t, err, domain.ErrViewNotFound)
	})
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"ok":true}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	t.Run("overwrite replaces content", func(t *testing.T) {
		require.NoError(t, WriteFileAtomic(path, []byte(`{"ok":false}`)))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":false}`, string(data))
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(dir, "nested"))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}
