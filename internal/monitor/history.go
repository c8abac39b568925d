package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"noticebot/internal/storage"
)

// HistoryWindow caps how many notices are remembered per source. A burst
// larger than the window can shift older entries out and, in the worst
// case, let a previously seen notice re-fire later. Accepted: listing
// pages move a handful of entries per cycle, not dozens.
const HistoryWindow = 10

const historyDoc = "history"

// HistoryStore persists the per-source dedup window as a single JSON
// document keyed by source label. Writes replace the whole document
// atomically, so a crash leaves either the old or the new snapshot,
// never a torn one.
type HistoryStore struct {
	mu    sync.Mutex
	store storage.Store
}

func NewHistoryStore(store storage.Store) *HistoryStore {
	return &HistoryStore{store: store}
}

// Load returns the full history document. A missing document is a normal
// cold start and yields an empty map. A document that exists but does not
// unmarshal is an error: silently treating it as empty would re-announce
// every remembered notice.
func (h *HistoryStore) Load(ctx context.Context) (map[string][]Notice, error) {
	body, err := h.store.GetDoc(ctx, historyDoc)
	if errors.Is(err, storage.ErrNotFound) {
		return map[string][]Notice{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	hist := map[string][]Notice{}
	if err := json.Unmarshal(body, &hist); err != nil {
		return nil, fmt.Errorf("history document corrupt: %w", err)
	}
	return hist, nil
}

// Save replaces the entries for label with items, truncated to
// HistoryWindow, and persists the document. Other labels are untouched.
func (h *HistoryStore) Save(ctx context.Context, label string, items []Notice) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	hist, err := h.Load(ctx)
	if err != nil {
		return err
	}
	if len(items) > HistoryWindow {
		items = items[:HistoryWindow]
	}
	hist[label] = items

	body, err := json.MarshalIndent(hist, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.store.PutDoc(ctx, historyDoc, body); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// ContainsID reports whether the window for label already holds id.
func ContainsID(hist map[string][]Notice, label, id string) bool {
	for _, n := range hist[label] {
		if n.ID == id {
			return true
		}
	}
	return false
}
