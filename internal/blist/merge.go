package blist

import (
	"sort"
	"strings"

	"github.com/meszmate/buddylist/internal/logging"
	"github.com/meszmate/buddylist/internal/roster"
	"golang.org/x/text/cases"
)

// MergeProposal suggests combining contacts that look like the same person
type MergeProposal struct {
	Group *roster.Group
	Alias string

	// Target receives the buddies of every other candidate
	Target *roster.Contact

	// Candidates are the distinct contacts involved, target included,
	// in the group's current order
	Candidates []*roster.Contact

	// Matches are the contacts and buddies whose names matched the alias
	Matches []roster.Node
}

// ProposalHandler surfaces a proposal to the user for confirmation
type ProposalHandler func(p *MergeProposal)

// Order reports the position of a node among its current siblings
type Order interface {
	Position(n roster.Node) int
}

// rosterOrder falls back to the roster's own order
type rosterOrder struct{}

func (rosterOrder) Position(n roster.Node) int {
	return roster.IndexOf(n)
}

// Mutator applies structural edits to the roster
type Mutator interface {
	Move(n roster.Node, newParent roster.Node, after roster.Node) error
	AddContact(g *roster.Group, after roster.Node) (*roster.Contact, error)
}

// MergeDetector finds contacts in one group whose names collide
type MergeDetector struct {
	order  Order
	faults FaultMode
	fold   cases.Caser
}

// NewMergeDetector creates a detector. A nil order uses roster order.
func NewMergeDetector(order Order, faults FaultMode) *MergeDetector {
	if order == nil {
		order = rosterOrder{}
	}
	return &MergeDetector{
		order:  order,
		faults: faults,
		fold:   cases.Fold(),
	}
}

// Detect scans the contacts of n's group for names that fold to alias.
// It returns nil unless at least two distinct contacts match.
func (d *MergeDetector) Detect(n roster.Node, alias string) *MergeProposal {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil
	}

	var g *roster.Group
	switch n := n.(type) {
	case *roster.Buddy:
		g = n.Group()
	case *roster.Contact:
		g = n.Group()
	}
	if g == nil {
		return nil
	}

	want := d.fold.String(alias)
	p := &MergeProposal{Group: g, Alias: alias}
	for _, c := range g.Contacts() {
		matched := false
		if c.Alias() != "" && d.fold.String(c.Alias()) == want {
			p.Matches = append(p.Matches, c)
			matched = true
		}
		for _, b := range c.Buddies() {
			if d.fold.String(b.DisplayName()) == want {
				p.Matches = append(p.Matches, b)
				matched = true
			}
		}
		if matched {
			p.Candidates = append(p.Candidates, c)
		}
	}
	if len(p.Candidates) < 2 {
		return nil
	}

	sort.SliceStable(p.Candidates, func(i, j int) bool {
		return d.order.Position(p.Candidates[i]) < d.order.Position(p.Candidates[j])
	})
	for _, c := range p.Candidates {
		if p.Target == nil || len(c.Buddies()) > len(p.Target.Buddies()) {
			p.Target = c
		}
	}

	logging.Debug("merge proposal for %q in group %s: %d contacts", alias, g.Name(), len(p.Candidates))
	return p
}

// Execute moves every buddy of the non-target candidates onto the target.
// Emptied contacts are removed by the roster itself.
func (d *MergeDetector) Execute(p *MergeProposal, m Mutator) error {
	if p == nil || p.Target == nil {
		return nil
	}
	for _, c := range p.Candidates {
		if c.Group() != p.Target.Group() {
			return d.faults.violate("merge of contact %s across groups", c.ID())
		}
	}
	for _, c := range p.Candidates {
		if c == p.Target {
			continue
		}
		for _, b := range c.Buddies() {
			if err := m.Move(b, p.Target, nil); err != nil {
				return err
			}
		}
	}
	logging.Info("merged %d contacts into %s", len(p.Candidates)-1, p.Target.DisplayName())
	return nil
}
