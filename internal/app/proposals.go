package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/meszmate/buddylist/internal/blist"
	"github.com/meszmate/buddylist/internal/logging"
	"github.com/meszmate/buddylist/internal/roster"
)

// ErrProposalStale is returned when an accepted merge proposal no longer
// matches two contacts of its group
var ErrProposalStale = errors.New("merge no longer applies")

// propose queues a merge proposal for confirmation. A proposal for the
// same group and name as a queued one is dropped.
func (a *App) propose(p *blist.MergeProposal) {
	key := a.proposalKey(p)
	for _, q := range a.proposals {
		if a.proposalKey(q) == key {
			return
		}
	}
	a.proposals = append(a.proposals, p)
	a.bus.Publish(EventMsg{Type: EventMergeProposed, Data: p})
}

func (a *App) proposalKey(p *blist.MergeProposal) string {
	return string(p.Group.ID()) + "/" + a.fold.String(p.Alias)
}

// scanDuplicates proposes merges for names already duplicated when the
// roster was loaded
func (a *App) scanDuplicates() {
	for _, g := range a.roster.Groups() {
		for _, c := range g.Contacts() {
			names := []string{c.Alias()}
			for _, b := range c.Buddies() {
				names = append(names, b.DisplayName())
			}
			for _, name := range names {
				if p := a.sync.Merger().Detect(c, name); p != nil {
					a.propose(p)
				}
			}
		}
	}
}

// PendingProposal returns the oldest unanswered merge proposal, or nil
func (a *App) PendingProposal() *blist.MergeProposal {
	if len(a.proposals) == 0 {
		return nil
	}
	return a.proposals[0]
}

// Proposals returns the number of unanswered merge proposals
func (a *App) Proposals() int {
	return len(a.proposals)
}

// AnswerProposal accepts or rejects the pending merge proposal. Accepting
// moves the buddies of every candidate onto the target contact. The
// proposal is detected again first since earlier merges and moves may
// have changed the group; ErrProposalStale is returned when it no longer
// applies.
func (a *App) AnswerProposal(accept bool) error {
	p := a.PendingProposal()
	if p == nil {
		return nil
	}
	a.proposals = a.proposals[1:]
	if !accept {
		logging.Info("merge of %q rejected", p.Alias)
		return nil
	}

	fresh := a.refreshProposal(p)
	if fresh == nil {
		logging.Info("merge of %q no longer applies", p.Alias)
		return fmt.Errorf("%w: %q", ErrProposalStale, p.Alias)
	}
	if err := a.sync.Merger().Execute(fresh, a.roster); err != nil {
		return fmt.Errorf("failed to merge %q: %w", p.Alias, err)
	}
	a.pruneProposals()
	a.saveExpansion()
	return nil
}

// refreshProposal detects p again in its original group, starting from
// the surviving target. It returns nil when fewer than two contacts there
// still match.
func (a *App) refreshProposal(p *blist.MergeProposal) *blist.MergeProposal {
	seeds := append([]*roster.Contact{p.Target}, p.Candidates...)
	for _, c := range seeds {
		if c == nil || c.Group() != p.Group {
			continue
		}
		if _, ok := a.roster.Node(c.ID()); !ok {
			continue
		}
		if fresh := a.sync.Merger().Detect(c, p.Alias); fresh != nil && fresh.Group == p.Group {
			return fresh
		}
		return nil
	}
	return nil
}

// pruneProposals drops queued proposals that no longer apply and folds
// together the ones that now cover the same contacts
func (a *App) pruneProposals() {
	kept := a.proposals[:0]
	seen := make(map[string]bool)
	for _, q := range a.proposals {
		fresh := a.refreshProposal(q)
		if fresh == nil {
			logging.Debug("dropping merge proposal for %q", q.Alias)
			continue
		}
		key := candidatesKey(fresh)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, fresh)
	}
	clear(a.proposals[len(kept):])
	a.proposals = kept
}

func candidatesKey(p *blist.MergeProposal) string {
	ids := make([]string, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		ids = append(ids, string(c.ID()))
	}
	slices.Sort(ids)
	return strings.Join(ids, ",")
}
