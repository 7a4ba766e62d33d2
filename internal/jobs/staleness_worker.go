package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/brightforge/sitechat/internal/domain"
)

// StaleChecker compares the chunk store against the persisted index.
type StaleChecker interface {
	CheckStale(ctx context.Context) (domain.StaleReport, error)
}

// StalenessWorker periodically checks for drift between the chunk
// store and the embedding index. It only surfaces drift: rebuilds stay
// an explicit operator action via the rebuild endpoint or CLI.
type StalenessWorker struct {
	checker StaleChecker

	mu        sync.RWMutex
	report    domain.StaleReport
	checkedAt time.Time
	wasStale  bool
}

// NewStalenessWorker creates a new StalenessWorker instance
func NewStalenessWorker(checker StaleChecker) *StalenessWorker {
	return &StalenessWorker{checker: checker}
}

// ProcessJobs implements the JobProcessor interface
func (w *StalenessWorker) ProcessJobs(ctx context.Context) error {
	report, err := w.checker.CheckStale(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index staleness: %w", err)
	}

	w.mu.Lock()
	prev := w.wasStale
	w.report = report
	w.checkedAt = time.Now().UTC()
	w.wasStale = report.IsStale()
	w.mu.Unlock()

	if report.IsStale() && !prev {
		log.Printf("Index is stale: %d missing, %d changed, %d removed chunks",
			len(report.Missing), len(report.Changed), len(report.Removed))
	}
	return nil
}

// LastReport returns the most recent staleness report and when it was
// taken. The zero time means no check has run yet.
func (w *StalenessWorker) LastReport() (domain.StaleReport, time.Time) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.report, w.checkedAt
}
