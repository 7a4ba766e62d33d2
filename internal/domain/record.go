package domain

import (
	"fmt"
	"strings"
	"time"
)

// RecordKind classifies a scraped unit.
type RecordKind string

const (
	RecordKindPage     RecordKind = "page"
	RecordKindContact  RecordKind = "contact"
	RecordKindPrice    RecordKind = "price"
	RecordKindTeam     RecordKind = "team"
	RecordKindLocation RecordKind = "location"
)

// RawRecord is one scraped unit: a web page or a structured entity.
// Records are immutable once written to the content store.
type RawRecord struct {
	SourceID    string            `json:"source_id"`
	Kind        RecordKind        `json:"kind"`
	Title       string            `json:"title,omitempty"`
	Text        string            `json:"text"`
	RetrievedAt time.Time         `json:"retrieved_at"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// ValidateRawRecord validates a RawRecord instance
func ValidateRawRecord(r *RawRecord) error {
	if r == nil {
		return fmt.Errorf("raw record cannot be nil")
	}

	if strings.TrimSpace(r.SourceID) == "" {
		return fmt.Errorf("raw record SourceID is required")
	}

	if !isValidRecordKind(r.Kind) {
		return fmt.Errorf("raw record Kind is invalid: %s", r.Kind)
	}

	return nil
}

// isValidRecordKind checks if a RecordKind is valid
func isValidRecordKind(k RecordKind) bool {
	switch k {
	case RecordKindPage, RecordKindContact, RecordKindPrice,
		RecordKindTeam, RecordKindLocation:
		return true
	}
	return false
}
