// Package filter computes the visible subset of requirements and tracks
// the batch-edit selection. The two are independent: selected ids stay
// selected even while a filter hides them.
package filter

import (
	"strings"

	"reqview/pkg/model"
)

// Filter is the active predicate set. Empty fields match everything;
// non-empty fields are conjoined.
type Filter struct {
	Text    string
	Status  model.Status
	Chapter string
	GroupID string
}

// IsZero reports whether no predicate is set.
func (f Filter) IsZero() bool {
	return f.Text == "" && f.Status == "" && f.Chapter == "" && f.GroupID == ""
}

// Matches reports whether a single requirement passes every predicate.
// The text predicate matches case-insensitively against id, title, and
// description substrings.
func (f Filter) Matches(r *model.Requirement) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Chapter != "" && r.Chapter != f.Chapter {
		return false
	}
	if f.GroupID != "" && r.GroupID != f.GroupID {
		return false
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(r.RequirementID), needle) &&
			!strings.Contains(strings.ToLower(r.Title), needle) &&
			!strings.Contains(strings.ToLower(r.Description), needle) {
			return false
		}
	}
	return true
}

// Apply returns the requirements passing the filter, preserving order.
func (f Filter) Apply(reqs []model.Requirement) []model.Requirement {
	if f.IsZero() {
		return reqs
	}
	out := make([]model.Requirement, 0, len(reqs))
	for i := range reqs {
		if f.Matches(&reqs[i]) {
			out = append(out, reqs[i])
		}
	}
	return out
}

// Selection is the set of requirement ids marked for batch editing.
type Selection struct {
	ids map[string]bool
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: map[string]bool{}}
}

// Toggle flips membership of one id and reports the new state.
func (s *Selection) Toggle(id string) bool {
	if s.ids[id] {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = true
	return true
}

// SelectAll adds every given id to the selection.
func (s *Selection) SelectAll(ids []string) {
	for _, id := range ids {
		s.ids[id] = true
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = map[string]bool{}
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	return s.ids[id]
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in unspecified order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}
