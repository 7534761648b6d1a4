// package store holds the authoritative in-process collection of proposals.
// It absorbs bulk fetches, operator-driven partial updates and realtime
// deltas, and stays consistent under interleaving of all three.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/commandcenter/command-center/internal/model"
	"github.com/commandcenter/command-center/internal/source"
)

// Store is the single shared mutable collection of proposals. All mutation
// entry points take the lock for the duration of one atomic step, so
// concurrent callbacks never observe a partially-updated collection.
//
// A Store is constructed explicitly and injected where needed; there is no
// package-level instance.
type Store struct {
	src   source.Source
	limit int

	mu        sync.Mutex
	proposals []model.ProcessEvent
	filter    model.Filter
	lastErr   string
	loading   bool
	fetchGen  uint64
}

// New constructs a Store backed by src. limit bounds a single fetch page;
// values <= 0 fall back to the source's maximum page size.
func New(src source.Source, limit int) *Store {
	if limit <= 0 || limit > source.MaxPageSize {
		limit = source.MaxPageSize
	}
	return &Store{src: src, limit: limit}
}

// Fetch replaces the whole collection with a fresh page from the source,
// applying the current filter. On failure the previous collection is
// preserved so callers keep rendering stale-but-consistent data, and the
// error is recorded as observable state.
//
// Overlapping fetches are guarded by a generation counter: a fetch that was
// superseded by a newer one discards its result instead of clobbering it.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.fetchGen++
	gen := s.fetchGen
	f := s.filter
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()

	rows, err := s.src.Query(ctx, source.QueryParams{Filter: f, Limit: s.limit})

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.fetchGen {
		// A newer fetch owns the collection now.
		return nil
	}
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return fmt.Errorf("fetch proposals: %w", err)
	}
	s.proposals = rows
	return nil
}

// UpdateLocal sends a partial update to the source and, only after remote
// success, merges the same fields into the in-memory row with matching id.
// Other rows are never touched. On remote failure the collection is left
// exactly as it was.
func (s *Store) UpdateLocal(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := s.src.Update(ctx, id, fields); err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("update proposal %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.proposals {
		if s.proposals[i].ID == id {
			mergeFields(&s.proposals[i], fields)
			break
		}
	}
	return nil
}

// SetFilter merges the patch into the current filter and triggers a fresh
// fetch.
func (s *Store) SetFilter(ctx context.Context, patch model.FilterPatch) error {
	s.mu.Lock()
	s.filter = patch.Apply(s.filter)
	s.mu.Unlock()
	return s.Fetch(ctx)
}

// ApplyRealtimeInsert prepends a newly-created row. Duplicate delivery is
// tolerated: if a row with the same id already exists the event is ignored.
func (s *Store) ApplyRealtimeInsert(ev model.ProcessEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.proposals {
		if s.proposals[i].ID == ev.ID {
			return
		}
	}
	s.proposals = append([]model.ProcessEvent{ev}, s.proposals...)
}

// ApplyRealtimeUpdate replaces the row with matching id by the new full row.
// A row that is not present was filtered out of the current page and is
// intentionally ignored, never inserted.
func (s *Store) ApplyRealtimeUpdate(ev model.ProcessEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.proposals {
		if s.proposals[i].ID == ev.ID {
			s.proposals[i] = ev
			return
		}
	}
}

// ApplyRealtimeDelete removes the row with matching id if present.
func (s *Store) ApplyRealtimeDelete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.proposals {
		if s.proposals[i].ID == id {
			s.proposals = append(s.proposals[:i], s.proposals[i+1:]...)
			return
		}
	}
}

// Get returns the row with matching id.
func (s *Store) Get(id string) (model.ProcessEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.proposals {
		if s.proposals[i].ID == id {
			return s.proposals[i], true
		}
	}
	return model.ProcessEvent{}, false
}

// Snapshot returns a copy of the current collection in display order.
func (s *Store) Snapshot() []model.ProcessEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ProcessEvent, len(s.proposals))
	copy(out, s.proposals)
	return out
}

// Len returns the collection size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.proposals)
}

// Filter returns the currently active filter.
func (s *Store) Filter() model.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Err returns the last recorded operation error, or "" when clear. Errors
// never block subsequent operations; they are cleared explicitly or by the
// next successful fetch.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError resets the observable error state.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// mergeFields applies a partial field map onto a row. Only the columns the
// source accepts for update are meaningful here.
func mergeFields(ev *model.ProcessEvent, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "status":
			if s, ok := v.(string); ok {
				ev.Status = s
			}
		case "workflow_id":
			if s, ok := v.(string); ok {
				ev.WorkflowID = s
			}
		case "event_name":
			if s, ok := v.(string); ok {
				ev.EventName = s
			}
		case "event_type":
			if s, ok := v.(string); ok {
				ev.EventType = s
			}
		case "user_id":
			if s, ok := v.(string); ok {
				ev.UserID = s
			}
		case "metadata":
			if m, ok := v.(map[string]interface{}); ok {
				ev.Metadata = m
			}
		}
	}
}
