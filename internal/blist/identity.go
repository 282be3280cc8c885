package blist

import (
	"fmt"

	"github.com/meszmate/buddylist/internal/roster"
)

// ViewRow is the view-local state of a visible roster node
type ViewRow struct {
	Handle RowHandle
	Node   roster.Node
	Parent RowHandle

	// Key is the sort key computed the last time the node was touched
	Key SortKey

	// Label is the text last sent to the presentation layer
	Label string

	// Expanded is only meaningful for contact rows
	Expanded bool
}

// AlreadyBoundError is returned when binding a node that already has a
// row, or a row that already belongs to another node.
type AlreadyBoundError struct {
	Node roster.ID
	Row  RowHandle
}

func (e *AlreadyBoundError) Error() string {
	return fmt.Sprintf("node %s or row %d is already bound", e.Node, e.Row)
}

// IdentityMap is the bijection between visible nodes and their rows
type IdentityMap struct {
	byNode map[roster.ID]*ViewRow
	byRow  map[RowHandle]*ViewRow
}

// NewIdentityMap creates an empty identity map
func NewIdentityMap() *IdentityMap {
	return &IdentityMap{
		byNode: make(map[roster.ID]*ViewRow),
		byRow:  make(map[RowHandle]*ViewRow),
	}
}

// Bind associates n with row
func (m *IdentityMap) Bind(n roster.Node, row *ViewRow) error {
	if existing, ok := m.byNode[n.ID()]; ok {
		return &AlreadyBoundError{Node: n.ID(), Row: existing.Handle}
	}
	if existing, ok := m.byRow[row.Handle]; ok && existing.Node.ID() != n.ID() {
		return &AlreadyBoundError{Node: existing.Node.ID(), Row: row.Handle}
	}
	row.Node = n
	m.byNode[n.ID()] = row
	m.byRow[row.Handle] = row
	return nil
}

// Unbind removes both directions for id. Unbinding an unbound node is a no-op.
func (m *IdentityMap) Unbind(id roster.ID) {
	row, ok := m.byNode[id]
	if !ok {
		return
	}
	delete(m.byNode, id)
	delete(m.byRow, row.Handle)
}

// RowFor returns the row bound to id
func (m *IdentityMap) RowFor(id roster.ID) (*ViewRow, bool) {
	row, ok := m.byNode[id]
	return row, ok
}

// NodeFor returns the node bound to a row. Stale handles report false.
func (m *IdentityMap) NodeFor(h RowHandle) (roster.Node, bool) {
	row, ok := m.byRow[h]
	if !ok {
		return nil, false
	}
	return row.Node, true
}

// Row returns the row state for a handle
func (m *IdentityMap) Row(h RowHandle) (*ViewRow, bool) {
	row, ok := m.byRow[h]
	return row, ok
}

// Len returns the number of bound rows
func (m *IdentityMap) Len() int {
	return len(m.byNode)
}
