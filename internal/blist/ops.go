package blist

import (
	"github.com/meszmate/buddylist/internal/roster"
)

// RowHandle is an opaque reference to a row in the presentation tree.
// The zero handle is the root: top-level rows have Parent 0, and an After
// of 0 means the first position among siblings.
type RowHandle uint64

// Op is a view operation for the presentation layer.
//
// The set of implementations is closed: InsertRow, RemoveRow, MoveRow and
// RelabelRow.
type Op interface {
	op()
}

// InsertRow creates Row under Parent, directly after the sibling After
type InsertRow struct {
	Parent RowHandle
	After  RowHandle
	Row    RowHandle
	Node   roster.Node
	Text   string
}

// RemoveRow deletes Row. Child rows are always removed first.
type RemoveRow struct {
	Row RowHandle
}

// MoveRow places an existing Row under Parent, directly after After
type MoveRow struct {
	Row    RowHandle
	Parent RowHandle
	After  RowHandle
}

// RelabelRow changes the displayed text of Row
type RelabelRow struct {
	Row  RowHandle
	Text string
}

func (InsertRow) op()  {}
func (RemoveRow) op()  {}
func (MoveRow) op()    {}
func (RelabelRow) op() {}

// Sink receives the operations of one synchronization pass in order
type Sink interface {
	Apply(ops []Op)
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(ops []Op)

// Apply calls f(ops)
func (f SinkFunc) Apply(ops []Op) {
	f(ops)
}
