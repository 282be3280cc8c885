package app

import (
	"github.com/meszmate/buddylist/internal/logging"
	"github.com/meszmate/buddylist/internal/roster"
)

// contactKey identifies a contact across runs. Node IDs are generated per
// run, so the key uses the group name and the first buddy instead.
func contactKey(c *roster.Contact) string {
	buddies := c.Buddies()
	if len(buddies) == 0 || c.Group() == nil {
		return ""
	}
	first := buddies[0]
	return c.Group().Name() + "/" + first.Account().ID + "/" + first.Name()
}

func (a *App) restoreExpansion() {
	if a.storage == nil || !a.cfg.Storage.SaveExpansion {
		return
	}
	keys, err := a.storage.LoadExpanded()
	if err != nil {
		logging.Warn("failed to load expanded contacts: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	restored := 0
	a.roster.Walk(func(n roster.Node) {
		if c, ok := n.(*roster.Contact); ok && want[contactKey(c)] {
			a.sync.Expansion().Set(c.ID(), true)
			restored++
		}
	})
	logging.Debug("restored %d of %d expanded contacts", restored, len(keys))
}

func (a *App) saveExpansion() {
	if a.storage == nil || a.sync == nil || !a.cfg.Storage.SaveExpansion {
		return
	}
	var keys []string
	for _, id := range a.sync.Expansion().IDs() {
		n, ok := a.roster.Node(id)
		if !ok {
			continue
		}
		if c, ok := n.(*roster.Contact); ok {
			if k := contactKey(c); k != "" {
				keys = append(keys, k)
			}
		}
	}
	if err := a.storage.SaveExpanded(keys); err != nil {
		logging.Warn("failed to save expanded contacts: %v", err)
	}
}
