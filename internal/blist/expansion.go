package blist

import (
	"sort"

	"github.com/meszmate/buddylist/internal/roster"
)

// Expansion is the set of contacts currently expanded
type Expansion struct {
	ids map[roster.ID]struct{}
}

// NewExpansion creates an empty expansion set
func NewExpansion() *Expansion {
	return &Expansion{ids: make(map[roster.ID]struct{})}
}

// IsExpanded reports whether the contact is expanded
func (e *Expansion) IsExpanded(id roster.ID) bool {
	_, ok := e.ids[id]
	return ok
}

// Set adds or removes a contact
func (e *Expansion) Set(id roster.ID, expanded bool) {
	if expanded {
		e.ids[id] = struct{}{}
	} else {
		delete(e.ids, id)
	}
}

// Toggle flips membership and returns the new state
func (e *Expansion) Toggle(id roster.ID) bool {
	expanded := !e.IsExpanded(id)
	e.Set(id, expanded)
	return expanded
}

// Forget drops a destroyed contact
func (e *Expansion) Forget(id roster.ID) {
	delete(e.ids, id)
}

// IDs returns the expanded contacts in a stable order
func (e *Expansion) IDs() []roster.ID {
	ids := make([]roster.ID, 0, len(e.ids))
	for id := range e.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of expanded contacts
func (e *Expansion) Len() int {
	return len(e.ids)
}
