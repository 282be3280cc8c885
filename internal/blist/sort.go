package blist

import (
	"bytes"
	"cmp"
	"time"

	"github.com/meszmate/buddylist/internal/roster"
)

// Sort policy names, as used in configuration
const (
	SortNone         = "none"
	SortAlphabetical = "alphabetical"
	SortStatus       = "status"
	SortLogSize      = "log_size"
)

// Presence ranks used by the status sort. Lower sorts first.
const (
	rankSignedOn = iota
	rankAvailable
	rankAway
	rankExtendedAway
	rankUnavailable
	rankSignedOff
	rankOffline
)

// Item is a sibling being ordered: the node, its cached key, and its
// index in the roster's own order under the same parent.
type Item struct {
	Node  roster.Node
	Key   SortKey
	Index int
}

// SortPolicy is a strict total order over siblings. Compare returns a
// negative number when a sorts before b; it never returns 0 for two
// distinct nodes.
type SortPolicy interface {
	Name() string
	Compare(a, b Item, vc *ViewContext) int
}

// Manual keeps the roster's own order
type Manual struct{}

// Alphabetical orders by displayed name, case-insensitively
type Alphabetical struct{}

// ByStatus orders by presence rank, then name. Chats follow contacts in
// roster order.
type ByStatus struct{}

// ByRecentActivity orders by conversation activity, then name
type ByRecentActivity struct{}

func (Manual) Name() string           { return SortNone }
func (Alphabetical) Name() string     { return SortAlphabetical }
func (ByStatus) Name() string         { return SortStatus }
func (ByRecentActivity) Name() string { return SortLogSize }

func (Manual) Compare(a, b Item, vc *ViewContext) int {
	if c := cmp.Compare(a.Index, b.Index); c != 0 {
		return c
	}
	return compareSeq(a, b)
}

func (Alphabetical) Compare(a, b Item, vc *ViewContext) int {
	if c := bytes.Compare(a.Key.Name, b.Key.Name); c != 0 {
		return c
	}
	return compareSeq(a, b)
}

func (ByStatus) Compare(a, b Item, vc *ViewContext) int {
	aChat, bChat := isChat(a.Node), isChat(b.Node)
	switch {
	case aChat && bChat:
		return Manual{}.Compare(a, b, vc)
	case aChat:
		return 1
	case bChat:
		return -1
	}
	if c := cmp.Compare(a.Key.Rank, b.Key.Rank); c != 0 {
		return c
	}
	return Alphabetical{}.Compare(a, b, vc)
}

func (ByRecentActivity) Compare(a, b Item, vc *ViewContext) int {
	// higher score first
	if c := cmp.Compare(b.Key.Score, a.Key.Score); c != 0 {
		return c
	}
	return Alphabetical{}.Compare(a, b, vc)
}

// Policies lists the built-in policies in menu order
func Policies() []SortPolicy {
	return []SortPolicy{Manual{}, Alphabetical{}, ByStatus{}, ByRecentActivity{}}
}

// PolicyByName returns the built-in policy with the given name
func PolicyByName(name string) (SortPolicy, bool) {
	for _, p := range Policies() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// NextPolicy returns the policy after name in menu order, wrapping around
func NextPolicy(name string) SortPolicy {
	policies := Policies()
	for i, p := range policies {
		if p.Name() == name {
			return policies[(i+1)%len(policies)]
		}
	}
	return policies[0]
}

// presenceRank returns the rank of a presence at now, and when a
// transient sign-on/off rank stops applying.
func presenceRank(p roster.Presence, now time.Time, window time.Duration) (int, time.Time) {
	if p.Online() {
		if !p.SignedOn.IsZero() && window > 0 {
			until := p.SignedOn.Add(window)
			if now.Before(until) {
				return rankSignedOn, until
			}
		}
		switch p.Status {
		case roster.StatusAway:
			return rankAway, time.Time{}
		case roster.StatusExtendedAway:
			return rankExtendedAway, time.Time{}
		case roster.StatusUnavailable:
			return rankUnavailable, time.Time{}
		default:
			return rankAvailable, time.Time{}
		}
	}
	if !p.SignedOff.IsZero() && window > 0 {
		until := p.SignedOff.Add(window)
		if now.Before(until) {
			return rankSignedOff, until
		}
	}
	return rankOffline, time.Time{}
}

func isChat(n roster.Node) bool {
	_, ok := n.(*roster.Chat)
	return ok
}

func compareSeq(a, b Item) int {
	return cmp.Compare(a.Node.Seq(), b.Node.Seq())
}
