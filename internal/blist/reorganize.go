package blist

import (
	"fmt"

	"github.com/meszmate/buddylist/internal/roster"
)

// IncompatibleParentError is returned when a node cannot live under the
// requested parent
type IncompatibleParentError struct {
	Node   roster.Node
	Parent roster.Node
}

func (e *IncompatibleParentError) Error() string {
	parent := "root"
	if e.Parent != nil {
		parent = e.Parent.Kind().String()
	}
	return fmt.Sprintf("a %s cannot be placed under %s", e.Node.Kind(), parent)
}

// Reorganizer applies user-requested structural edits, such as drag and
// drop, to the roster. The synchronizer reacts to the resulting events; the
// reorganizer never touches rows itself.
type Reorganizer struct {
	roster Mutator
	faults FaultMode
}

// NewReorganizer creates a reorganizer editing m
func NewReorganizer(m Mutator, faults FaultMode) *Reorganizer {
	return &Reorganizer{roster: m, faults: faults}
}

// Apply moves n under newParent after the given sibling. Dropping a buddy
// on a group creates a new contact for it there.
func (r *Reorganizer) Apply(n roster.Node, newParent roster.Node, after roster.Node) error {
	switch n := n.(type) {
	case *roster.Buddy:
		switch p := newParent.(type) {
		case *roster.Contact:
			return r.roster.Move(n, p, after)
		case *roster.Group:
			c, err := r.roster.AddContact(p, after)
			if err != nil {
				return fmt.Errorf("failed to create contact: %w", err)
			}
			return r.roster.Move(n, c, nil)
		}
	case *roster.Contact, *roster.Chat:
		if g, ok := newParent.(*roster.Group); ok {
			return r.roster.Move(n, g, after)
		}
	case *roster.Group:
		if newParent == nil {
			return r.roster.Move(n, nil, after)
		}
		return r.faults.violate("group %s cannot be reparented under %s", n.ID(), newParent.ID())
	}
	return &IncompatibleParentError{Node: n, Parent: newParent}
}
