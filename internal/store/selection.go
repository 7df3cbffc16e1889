package store

import (
	"slices"
	"sync"
)

// Selection is the set of selected record IDs. It is explicit: changing the
// visible page never adds to it.
type Selection struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[int64]struct{})}
}

// Toggle adds id if absent, removes it otherwise. It reports whether id is
// selected afterwards.
func (s *Selection) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAll replaces the selection with exactly the visible IDs.
func (s *Selection) SelectAll(visible []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.ids)
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
}

// ToggleAll clears the selection when every visible ID is already selected
// and the selection holds nothing else; otherwise it adds the visible IDs.
func (s *Selection) ToggleAll(visible []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := len(visible) > 0 && len(s.ids) == len(visible)
	for _, id := range visible {
		if _, ok := s.ids[id]; !ok {
			all = false
			break
		}
	}
	if all {
		clear(s.ids)
		return
	}
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.ids)
}

// Prune drops the given IDs. It reports whether anything was removed.
func (s *Selection) Prune(ids ...int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.ids)
	for _, id := range ids {
		delete(s.ids, id)
	}
	return len(s.ids) != before
}

// Retain drops every ID for which keep reports false.
func (s *Selection) Retain(keep func(id int64) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.ids {
		if !keep(id) {
			delete(s.ids, id)
		}
	}
}

func (s *Selection) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected IDs in ascending order.
func (s *Selection) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
