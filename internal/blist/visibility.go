package blist

import (
	"github.com/meszmate/buddylist/internal/roster"
)

// Visibility decides whether a node should have a row at all
type Visibility struct{}

// IsVisible applies the visibility rules bottom-up: a group shows when it
// has a visible child or is forced on, a contact when any buddy is visible,
// a buddy when online or an offline override applies, and a chat when its
// account is connected.
func (v Visibility) IsVisible(n roster.Node, vc *ViewContext) bool {
	switch n := n.(type) {
	case *roster.Group:
		if n.Flags().AlwaysShow || vc.Filters.ShowEmptyGroups {
			return true
		}
		for _, child := range n.Children() {
			if v.IsVisible(child, vc) {
				return true
			}
		}
		return false
	case *roster.Contact:
		for _, b := range n.Buddies() {
			if v.IsVisible(b, vc) {
				return true
			}
		}
		return false
	case *roster.Buddy:
		return n.Online() || vc.Filters.ShowOfflineBuddies || showOffline(n)
	case *roster.Chat:
		a := n.Account()
		return a != nil && a.Connected
	}
	return false
}

// showOffline reports an offline override on the buddy or an ancestor
func showOffline(b *roster.Buddy) bool {
	if b.Flags().ShowOffline {
		return true
	}
	c := b.Contact()
	if c == nil {
		return false
	}
	if c.Flags().ShowOffline {
		return true
	}
	g := c.Group()
	return g != nil && g.Flags().ShowOffline
}
