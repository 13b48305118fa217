package consultations

import "sync"

// SelectionSet tracks which consultations on the current page are checked.
// It only ever holds IDs that exist on the page: Retain is called after every
// page swap so stale IDs from a previous page cannot leak into a bulk action.
type SelectionSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSelectionSet creates an empty selection
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{ids: make(map[string]struct{})}
}

// Toggle flips one ID in or out of the selection and reports whether it is
// selected afterwards
func (s *SelectionSet) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAll replaces the selection with exactly the given page IDs
func (s *SelectionSet) SelectAll(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Clear empties the selection
func (s *SelectionSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

// Has reports whether an ID is selected
func (s *SelectionSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected IDs in no particular order
func (s *SelectionSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// Len returns the number of selected IDs
func (s *SelectionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Retain drops every selected ID not present in the given page IDs. Called
// after each page load or refresh so selections never outlive their rows.
func (s *SelectionSet) Retain(pageIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]struct{}, len(pageIDs))
	for _, id := range pageIDs {
		present[id] = struct{}{}
	}
	for id := range s.ids {
		if _, ok := present[id]; !ok {
			delete(s.ids, id)
		}
	}
}
