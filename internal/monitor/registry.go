package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"noticebot/internal/storage"
	logx "noticebot/pkg/logx"
)

const enabledDoc = "enabled_groups"

// Registry tracks which groups opted in to notice delivery. Eligibility is
// the conjunction of the global feature switch and the persisted per-group
// opt-in set; flipping either side takes effect on the next dispatch.
//
// Target IDs are persisted as decimal strings so the document stays
// readable and survives transports with differently sized IDs.
type Registry struct {
	store storage.Store
	log   logx.Logger

	mu      sync.Mutex
	master  bool
	enabled map[int64]struct{}
	loaded  bool
}

func NewRegistry(store storage.Store, log logx.Logger) *Registry {
	return &Registry{store: store, log: log, enabled: map[int64]struct{}{}}
}

// SetMaster flips the global feature switch. It does not touch the
// persisted opt-in set.
func (r *Registry) SetMaster(on bool) {
	r.mu.Lock()
	r.master = on
	r.mu.Unlock()
}

func (r *Registry) loadLocked(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	body, err := r.store.GetDoc(ctx, enabledDoc)
	if errors.Is(err, storage.ErrNotFound) {
		r.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("load enabled groups: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return fmt.Errorf("enabled groups document corrupt: %w", err)
	}
	set := make(map[int64]struct{}, len(ids))
	for _, s := range ids {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			r.log.Warn("skipping malformed group id in registry", logx.String("id", s))
			continue
		}
		set[id] = struct{}{}
	}
	r.enabled = set
	r.loaded = true
	return nil
}

// IsEnabled reports whether groupID is currently eligible for delivery.
func (r *Registry) IsEnabled(ctx context.Context, groupID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.master {
		return false
	}
	if err := r.loadLocked(ctx); err != nil {
		r.log.Error("registry unreadable; treating group as disabled", logx.Err(err))
		return false
	}
	_, ok := r.enabled[groupID]
	return ok
}

// SetEnabled persists the opt-in flag for groupID and returns the new
// state. The in-memory set changes only after the write succeeds.
func (r *Registry) SetEnabled(ctx context.Context, groupID int64, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(ctx); err != nil {
		return err
	}

	next := make(map[int64]struct{}, len(r.enabled)+1)
	for id := range r.enabled {
		next[id] = struct{}{}
	}
	if on {
		next[groupID] = struct{}{}
	} else {
		delete(next, groupID)
	}

	ids := make([]string, 0, len(next))
	for id := range next {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	sort.Strings(ids)
	body, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("encode enabled groups: %w", err)
	}
	if err := r.store.PutDoc(ctx, enabledDoc, body); err != nil {
		return fmt.Errorf("save enabled groups: %w", err)
	}
	r.enabled = next
	return nil
}

// Targets returns the eligible group IDs in ascending order. Empty when
// the feature switch is off.
func (r *Registry) Targets(ctx context.Context) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.master {
		return nil
	}
	if err := r.loadLocked(ctx); err != nil {
		r.log.Error("registry unreadable; no targets", logx.Err(err))
		return nil
	}
	out := make([]int64, 0, len(r.enabled))
	for id := range r.enabled {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
