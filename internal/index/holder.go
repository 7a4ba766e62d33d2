package index

import (
	"sync"

	"github.com/brightforge/sitechat/internal/domain"
)

// Holder hands out the current vector index and lets a rebuild swap in
// a new one. Callers keep whatever index they were handed, so queries
// in flight during a swap finish against the snapshot they started
// with.
type Holder struct {
	mu  sync.RWMutex
	idx VectorIndex
}

func NewHolder(idx VectorIndex) *Holder {
	return &Holder{idx: idx}
}

// Index returns the current index, or domain.ErrIndexNotFound when
// nothing has been loaded yet.
func (h *Holder) Index() (VectorIndex, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.idx == nil {
		return nil, domain.ErrIndexNotFound
	}
	return h.idx, nil
}

// Swap replaces the current index.
func (h *Holder) Swap(idx VectorIndex) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.idx = idx
}
