package viewtree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meszmate/buddylist/internal/blist"
	"github.com/meszmate/buddylist/internal/roster"
)

// Row is a row as the presentation layer holds it
type Row struct {
	Handle   blist.RowHandle
	Parent   blist.RowHandle
	Node     roster.Node
	Text     string
	Children []blist.RowHandle
}

// Line is one row of the flattened tree
type Line struct {
	Depth int
	Row   *Row
}

// Tree applies view operations to an ordered tree of rows. Invalid
// operations are recorded and skipped.
type Tree struct {
	rows    map[blist.RowHandle]*Row
	root    []blist.RowHandle
	errs    []error
	batches int
	ops     int
}

// New creates an empty tree
func New() *Tree {
	return &Tree{rows: make(map[blist.RowHandle]*Row)}
}

// Apply applies one batch of operations in order
func (t *Tree) Apply(ops []blist.Op) {
	t.batches++
	for _, op := range ops {
		t.ops++
		if err := t.apply(op); err != nil {
			t.errs = append(t.errs, err)
		}
	}
}

func (t *Tree) apply(op blist.Op) error {
	switch op := op.(type) {
	case blist.InsertRow:
		if _, ok := t.rows[op.Row]; ok {
			return fmt.Errorf("insert of existing row %d", op.Row)
		}
		if op.Parent != 0 {
			if _, ok := t.rows[op.Parent]; !ok {
				return fmt.Errorf("insert of row %d under unknown parent %d", op.Row, op.Parent)
			}
		}
		if op.After != 0 && t.indexOf(op.Parent, op.After) < 0 {
			return fmt.Errorf("insert of row %d after %d, which is not a sibling", op.Row, op.After)
		}
		t.rows[op.Row] = &Row{Handle: op.Row, Parent: op.Parent, Node: op.Node, Text: op.Text}
		t.link(op.Parent, op.After, op.Row)
	case blist.RemoveRow:
		row, ok := t.rows[op.Row]
		if !ok {
			return fmt.Errorf("remove of unknown row %d", op.Row)
		}
		if len(row.Children) > 0 {
			return fmt.Errorf("remove of row %d with %d children", op.Row, len(row.Children))
		}
		t.unlink(row.Parent, op.Row)
		delete(t.rows, op.Row)
	case blist.MoveRow:
		row, ok := t.rows[op.Row]
		if !ok {
			return fmt.Errorf("move of unknown row %d", op.Row)
		}
		if op.Parent != 0 {
			if _, ok := t.rows[op.Parent]; !ok {
				return fmt.Errorf("move of row %d under unknown parent %d", op.Row, op.Parent)
			}
		}
		t.unlink(row.Parent, op.Row)
		if op.After != 0 && t.indexOf(op.Parent, op.After) < 0 {
			t.link(row.Parent, 0, op.Row)
			return fmt.Errorf("move of row %d after %d, which is not a sibling", op.Row, op.After)
		}
		row.Parent = op.Parent
		t.link(op.Parent, op.After, op.Row)
	case blist.RelabelRow:
		row, ok := t.rows[op.Row]
		if !ok {
			return fmt.Errorf("relabel of unknown row %d", op.Row)
		}
		row.Text = op.Text
	default:
		return fmt.Errorf("unknown op %T", op)
	}
	return nil
}

// Err returns every error recorded so far
func (t *Tree) Err() error {
	return errors.Join(t.errs...)
}

// Faults returns the number of invalid operations seen so far
func (t *Tree) Faults() int { return len(t.errs) }

// Batches returns the number of batches applied
func (t *Tree) Batches() int { return t.batches }

// Ops returns the number of operations applied
func (t *Tree) Ops() int { return t.ops }

// Len returns the number of rows
func (t *Tree) Len() int { return len(t.rows) }

// Row returns a row by handle
func (t *Tree) Row(h blist.RowHandle) (*Row, bool) {
	row, ok := t.rows[h]
	return row, ok
}

// Children returns the children of a row; 0 is the root
func (t *Tree) Children(parent blist.RowHandle) []blist.RowHandle {
	if parent == 0 {
		return t.root
	}
	if row, ok := t.rows[parent]; ok {
		return row.Children
	}
	return nil
}

// Labels returns the text of each child of parent in order
func (t *Tree) Labels(parent blist.RowHandle) []string {
	var out []string
	for _, h := range t.Children(parent) {
		out = append(out, t.rows[h].Text)
	}
	return out
}

// Find returns the first row showing the given node
func (t *Tree) Find(id roster.ID) (*Row, bool) {
	for _, line := range t.Flatten() {
		if line.Row.Node != nil && line.Row.Node.ID() == id {
			return line.Row, true
		}
	}
	return nil, false
}

// Flatten returns every row depth first in display order
func (t *Tree) Flatten() []Line {
	var lines []Line
	var walk func(hs []blist.RowHandle, depth int)
	walk = func(hs []blist.RowHandle, depth int) {
		for _, h := range hs {
			row := t.rows[h]
			lines = append(lines, Line{Depth: depth, Row: row})
			walk(row.Children, depth+1)
		}
	}
	walk(t.root, 0)
	return lines
}

// Outline renders the tree as indented text, two spaces per level
func (t *Tree) Outline() string {
	var b strings.Builder
	for _, line := range t.Flatten() {
		b.WriteString(strings.Repeat("  ", line.Depth))
		b.WriteString(line.Row.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func (t *Tree) siblings(parent blist.RowHandle) *[]blist.RowHandle {
	if parent == 0 {
		return &t.root
	}
	return &t.rows[parent].Children
}

func (t *Tree) indexOf(parent, h blist.RowHandle) int {
	if parent != 0 {
		if _, ok := t.rows[parent]; !ok {
			return -1
		}
	}
	for i, c := range *t.siblings(parent) {
		if c == h {
			return i
		}
	}
	return -1
}

func (t *Tree) link(parent, after, h blist.RowHandle) {
	list := t.siblings(parent)
	at := 0
	if after != 0 {
		at = t.indexOf(parent, after) + 1
	}
	*list = append(*list, 0)
	copy((*list)[at+1:], (*list)[at:])
	(*list)[at] = h
}

func (t *Tree) unlink(parent, h blist.RowHandle) {
	if parent != 0 {
		if _, ok := t.rows[parent]; !ok {
			return
		}
	}
	list := t.siblings(parent)
	for i, c := range *list {
		if c == h {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}
