package app

import (
	"io"

	"github.com/meszmate/buddylist/internal/blist"
	"github.com/meszmate/buddylist/internal/logging"
	"github.com/meszmate/buddylist/internal/roster"
	"github.com/meszmate/buddylist/pkg/plugin"
)

// PresenceChange is the data of EventPresenceChanged
type PresenceChange struct {
	Buddy *roster.Buddy
}

// presenceWatcher publishes buddy status changes on the bus
type presenceWatcher struct {
	bus    *EventBus
	roster *roster.Roster
}

func (w presenceWatcher) NodePresenceChanged(id roster.ID) {
	n, ok := w.roster.Node(id)
	if !ok {
		return
	}
	if b, ok := n.(*roster.Buddy); ok {
		w.bus.Publish(EventMsg{Type: EventPresenceChanged, Data: PresenceChange{Buddy: b}})
	}
}

func (presenceWatcher) NodeCreated(roster.Node)                            {}
func (presenceWatcher) NodeRemoved(roster.ID)                              {}
func (presenceWatcher) NodeReparented(roster.ID, roster.Node, roster.Node) {}
func (presenceWatcher) NodeAliasChanged(roster.ID, string)                 {}
func (presenceWatcher) NodeFlagsChanged(roster.ID)                         {}
func (presenceWatcher) AccountStatusChanged(*roster.Account)               {}

// startPlugins loads the enabled plugins and forwards presence changes
// and merge proposals to them
func (a *App) startPlugins() {
	var logOut io.Writer
	if l := logging.Default(); l != nil {
		logOut = l.Named("plugin").Writer(logging.LevelInfo)
	}
	a.plugins = plugin.NewHost(a.cfg.Plugins.PluginDir, logOut)
	if len(a.cfg.Plugins.Enabled) > 0 {
		if err := a.plugins.LoadAll(a.cfg.Plugins.Enabled); err != nil {
			logging.Warn("failed to load plugins: %v", err)
		}
		for _, lp := range a.plugins.List() {
			logging.Info("plugin %s %s loaded", lp.Info.Name, lp.Info.Version)
		}
	}

	a.bus.Subscribe(EventPresenceChanged, a.forwardPresence)
	a.bus.Subscribe(EventMergeProposed, a.forwardProposal)
	a.roster.AddListener(presenceWatcher{bus: a.bus, roster: a.roster})
}

// Plugins returns the plugin host
func (a *App) Plugins() *plugin.Host {
	return a.plugins
}

func (a *App) forwardPresence(event EventMsg) {
	change, ok := event.Data.(PresenceChange)
	if !ok || change.Buddy == nil {
		return
	}
	b := change.Buddy
	a.notifyPlugins(plugin.Event{
		Kind:    plugin.EventPresence,
		Account: b.Account().ID,
		Name:    b.Name(),
		Display: b.DisplayName(),
		Status:  b.Presence().Status.String(),
		Message: b.Presence().Message,
	})
}

func (a *App) forwardProposal(event EventMsg) {
	p, ok := event.Data.(*blist.MergeProposal)
	if !ok {
		return
	}
	a.notifyPlugins(plugin.Event{
		Kind:       plugin.EventMergeProposed,
		Display:    p.Alias,
		Group:      p.Group.Name(),
		Candidates: len(p.Candidates),
	})
}

// notifyPlugins calls the plugins off the roster goroutine. Their notices
// come back through the event channel.
func (a *App) notifyPlugins(ev plugin.Event) {
	if len(a.plugins.List()) == 0 {
		return
	}
	go func() {
		for _, n := range a.plugins.Notify(a.ctx, ev) {
			a.sendEvent(EventMsg{Type: EventPluginNotice, Data: n})
		}
	}()
}

// PluginCommands returns the command line entries added by plugins
func (a *App) PluginCommands() []plugin.Command {
	return a.plugins.Commands()
}

// HasPluginCommand reports whether a plugin handles the command
func (a *App) HasPluginCommand(name string) bool {
	return a.plugins.Has(name)
}

// RunPluginCommand runs a plugin command in the background. The reply
// arrives as an EventPluginNotice.
func (a *App) RunPluginCommand(name string, args []string) {
	go func() {
		reply, err := a.plugins.Run(a.ctx, name, args)
		if err != nil {
			a.sendEvent(EventMsg{Type: EventPluginNotice, Data: plugin.Notice{Text: err.Error(), Error: true}})
			return
		}
		if reply.Text != "" {
			a.sendEvent(EventMsg{Type: EventPluginNotice, Data: plugin.Notice{Text: reply.Text}})
		}
	}()
}
