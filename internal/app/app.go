package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/meszmate/buddylist/internal/blist"
	"github.com/meszmate/buddylist/internal/config"
	"github.com/meszmate/buddylist/internal/logging"
	"github.com/meszmate/buddylist/internal/roster"
	"github.com/meszmate/buddylist/internal/storage/sqlite"
	"github.com/meszmate/buddylist/internal/viewtree"
	"github.com/meszmate/buddylist/pkg/plugin"
	"golang.org/x/text/cases"
)

// TickInterval is how often the app checks for expired sign-on ranks
const TickInterval = time.Second

// TickMsg is sent every TickInterval while the program runs
type TickMsg time.Time

// ViewChange is the payload of EventViewChanged
type ViewChange struct {
	Ops []blist.Op
}

// Preferences is the payload of EventPreferencesChanged
type Preferences struct {
	Policy  string
	Filters blist.Filters
}

// App represents the main application
type App struct {
	cfg     *config.Config
	events  chan EventMsg
	bus     *EventBus
	ctx     context.Context
	cancel  context.CancelFunc
	watcher *config.Watcher

	roster   *roster.Roster
	tree     *viewtree.Tree
	sync     *blist.Synchronizer
	reorg    *blist.Reorganizer
	activity *logActivity
	now      func() time.Time

	proposals []*blist.MergeProposal
	fold      cases.Caser

	storage *sqlite.DB
	plugins *plugin.Host
}

// New creates a new App instance: it opens storage, loads the roster file
// and builds the initial view
func New(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	var storage *sqlite.DB
	if cfg.General.DataDir != "" {
		db, err := sqlite.New(cfg.General.DataDir)
		if err != nil {
			// the list works without a message log
			logging.Warn("failed to initialize storage: %v", err)
		} else {
			storage = db
		}
	} else {
		logging.Warn("data dir is empty, storage not initialized")
	}

	a := &App{
		cfg:     cfg,
		events:  make(chan EventMsg, 100),
		bus:     NewEventBus(),
		ctx:     ctx,
		cancel:  cancel,
		roster:  roster.New(),
		tree:    viewtree.New(),
		now:     time.Now,
		fold:    cases.Fold(),
		storage: storage,
	}
	a.maintainStorage()
	a.activity = newLogActivity(storage)

	if err := a.loadRoster(cfg.BuddyList.RosterFile); err != nil {
		a.Close()
		return nil, err
	}

	faults := blist.ParseFaultMode(cfg.BuddyList.StrictInvariants)
	a.sync = blist.NewSynchronizer(a.roster, blist.SinkFunc(a.applyOps), blist.Options{
		Policy: cfg.BuddyList.Sort,
		Filters: blist.Filters{
			ShowOfflineBuddies: cfg.BuddyList.ShowOfflineBuddies,
			ShowEmptyGroups:    cfg.BuddyList.ShowEmptyGroups,
		},
		RecentWindow: cfg.BuddyList.RecentWindow(),
		Language:     cfg.BuddyList.Language(),
		Activity:     a.activity,
		Faults:       faults,
		Now:          func() time.Time { return a.now() },
		OnProposal:   a.propose,
	})
	a.reorg = blist.NewReorganizer(a.roster, faults)

	for _, t := range []EventType{EventMergeProposed, EventPreferencesChanged, EventError} {
		a.bus.Subscribe(t, a.sendEvent)
	}
	a.startPlugins()

	a.restoreExpansion()
	a.roster.AddListener(a.sync)
	a.sync.Populate()
	a.scanDuplicates()

	logging.Info("buddy list ready: %d nodes, %d rows", a.roster.Count(), a.tree.Len())
	return a, nil
}

func (a *App) loadRoster(path string) error {
	if path == "" {
		return nil
	}
	seed, err := roster.LoadSeedFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Info("no roster file at %s, starting empty", path)
		return nil
	}
	if err != nil {
		return err
	}
	if err := seed.Apply(a.roster); err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	return nil
}

func (a *App) maintainStorage() {
	if a.storage == nil {
		return
	}
	if days := a.cfg.Storage.MessageRetentionDays; days > 0 {
		n, err := a.storage.DeleteOldMessages(days)
		if err != nil {
			logging.Warn("failed to delete old messages: %v", err)
		} else if n > 0 {
			logging.Info("deleted %d messages older than %d days", n, days)
		}
	}
	if a.cfg.Storage.VacuumOnStartup {
		if err := a.storage.Vacuum(); err != nil {
			logging.Warn("failed to vacuum database: %v", err)
		}
	}
}

// applyOps is the synchronizer's sink
func (a *App) applyOps(ops []blist.Op) {
	faults := a.tree.Faults()
	a.tree.Apply(ops)
	if a.tree.Faults() > faults {
		err := a.tree.Err()
		logging.Error("view rejected operations: %v", err)
		a.bus.Publish(EventMsg{Type: EventError, Data: err})
	}
	a.bus.Publish(EventMsg{Type: EventViewChanged, Data: ViewChange{Ops: ops}})
}

// Config returns the configuration
func (a *App) Config() *config.Config {
	return a.cfg
}

// Bus returns the event bus
func (a *App) Bus() *EventBus {
	return a.bus
}

// Tree returns the rows as currently displayed
func (a *App) Tree() *viewtree.Tree {
	return a.tree
}

// Roster returns the roster
func (a *App) Roster() *roster.Roster {
	return a.roster
}

// Synchronizer returns the view synchronizer
func (a *App) Synchronizer() *blist.Synchronizer {
	return a.sync
}

// Dump returns the view as indented text
func (a *App) Dump() string {
	return a.tree.Outline()
}

// Init returns an initialization command
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.ListenForEvents(),
		a.tick(),
	)
}

// ListenForEvents waits for the next event and hands it to the UI. The
// UI calls it again after every EventMsg.
func (a *App) ListenForEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case event := <-a.events:
			return event
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// HandleTick expires transient sign-on ranks and schedules the next tick
func (a *App) HandleTick(now time.Time) tea.Cmd {
	if deadline, ok := a.sync.NextDeadline(); ok && !now.Before(deadline) {
		a.sync.Tick(now)
	}
	return a.tick()
}

// sendEvent sends an event to the UI
func (a *App) sendEvent(event EventMsg) {
	select {
	case a.events <- event:
	default:
		// Channel full, drop event
	}
}

// WatchConfig reloads the configuration when path changes. Reloads
// reach the UI as EventConfigReloaded and are applied with ApplyConfig.
func (a *App) WatchConfig(path string) error {
	w, err := config.Watch(a.ctx, path, a.cfg.General.DataDir, func(cfg *config.Config) {
		a.sendEvent(EventMsg{Type: EventConfigReloaded, Data: cfg})
	})
	if err != nil {
		return err
	}
	a.watcher = w
	return nil
}

// ApplyConfig applies the buddy list preferences of a reloaded
// configuration
func (a *App) ApplyConfig(cfg *config.Config) {
	next := cfg.BuddyList
	filters := a.sync.Filters()
	changed := false

	if next.ShowOfflineBuddies != filters.ShowOfflineBuddies {
		changed = a.setFilter(blist.FilterShowOfflineBuddies, next.ShowOfflineBuddies) || changed
	}
	if next.ShowEmptyGroups != filters.ShowEmptyGroups {
		changed = a.setFilter(blist.FilterShowEmptyGroups, next.ShowEmptyGroups) || changed
	}
	if next.Sort != a.sync.Policy().Name() {
		if err := a.sync.SetSortPolicy(next.Sort); err != nil {
			logging.Warn("ignoring sort from config: %v", err)
		} else {
			changed = true
		}
	}

	a.cfg.UI = cfg.UI
	a.cfg.Logging = cfg.Logging
	a.cfg.BuddyList = next
	a.cfg.BuddyList.Sort = a.sync.Policy().Name()
	if l := logging.Default(); l != nil {
		l.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	}
	if changed {
		a.publishPreferences()
	}
}

func (a *App) setFilter(name string, value bool) bool {
	if err := a.sync.GlobalFilterChanged(name, value); err != nil {
		logging.Error("failed to set filter %s: %v", name, err)
		a.bus.Publish(EventMsg{Type: EventError, Data: err})
		return false
	}
	return true
}

func (a *App) publishPreferences() {
	a.bus.Publish(EventMsg{Type: EventPreferencesChanged, Data: Preferences{
		Policy:  a.sync.Policy().Name(),
		Filters: a.sync.Filters(),
	}})
}

// ToggleFilter flips a global filter and returns its new value
func (a *App) ToggleFilter(name string) (bool, error) {
	filters := a.sync.Filters()
	var value bool
	switch name {
	case blist.FilterShowOfflineBuddies:
		value = !filters.ShowOfflineBuddies
	case blist.FilterShowEmptyGroups:
		value = !filters.ShowEmptyGroups
	default:
		return false, &blist.UnknownFilterError{Name: name}
	}
	if err := a.SetFilter(name, value); err != nil {
		return false, err
	}
	return value, nil
}

// SetFilter sets a global filter
func (a *App) SetFilter(name string, value bool) error {
	if err := a.sync.GlobalFilterChanged(name, value); err != nil {
		return err
	}

	f := a.sync.Filters()
	a.cfg.BuddyList.ShowOfflineBuddies = f.ShowOfflineBuddies
	a.cfg.BuddyList.ShowEmptyGroups = f.ShowEmptyGroups
	a.publishPreferences()
	return nil
}

// SetSort switches the sort policy by name
func (a *App) SetSort(name string) error {
	if err := a.sync.SetSortPolicy(name); err != nil {
		return err
	}
	a.cfg.BuddyList.Sort = a.sync.Policy().Name()
	a.publishPreferences()
	return nil
}

// CycleSort switches to the next sort policy and returns its name
func (a *App) CycleSort() string {
	next := blist.NextPolicy(a.sync.Policy().Name()).Name()
	if err := a.SetSort(next); err != nil {
		logging.Error("failed to switch sort: %v", err)
	}
	return a.sync.Policy().Name()
}

// ToggleExpand expands or collapses a contact and returns the new state
func (a *App) ToggleExpand(id roster.ID) bool {
	expanded := a.sync.ToggleExpand(id)
	a.saveExpansion()
	return expanded
}

// presenceCycle is the order CyclePresence steps through
var presenceCycle = []roster.Status{
	roster.StatusAvailable,
	roster.StatusAway,
	roster.StatusExtendedAway,
	roster.StatusUnavailable,
	roster.StatusOffline,
}

// CyclePresence steps the status of a buddy, or of a contact's most
// available buddy, and returns the new status
func (a *App) CyclePresence(id roster.ID) (roster.Status, error) {
	n, ok := a.roster.Node(id)
	if !ok {
		return roster.StatusOffline, roster.ErrUnknownNode
	}
	var b *roster.Buddy
	switch n := n.(type) {
	case *roster.Buddy:
		b = n
	case *roster.Contact:
		b = n.Priority()
	}
	if b == nil {
		return roster.StatusOffline, fmt.Errorf("%s has no presence", n.Kind())
	}

	next := presenceCycle[0]
	for i, s := range presenceCycle {
		if s == b.Presence().Status {
			next = presenceCycle[(i+1)%len(presenceCycle)]
			break
		}
	}
	if err := a.roster.SetPresence(b, next, a.now()); err != nil {
		return b.Presence().Status, err
	}
	return next, nil
}

// Move reparents a node. An empty parent moves a group among groups, an
// empty after appends.
func (a *App) Move(id, parentID, afterID roster.ID) error {
	n, ok := a.roster.Node(id)
	if !ok {
		return fmt.Errorf("failed to move %s: %w", id, roster.ErrUnknownNode)
	}
	var parent, after roster.Node
	if parentID != "" {
		if parent, ok = a.roster.Node(parentID); !ok {
			return fmt.Errorf("failed to move %s: %w", id, roster.ErrUnknownNode)
		}
	}
	if afterID != "" {
		if after, ok = a.roster.Node(afterID); !ok {
			return fmt.Errorf("failed to move %s: %w", id, roster.ErrUnknownNode)
		}
	}
	return a.reorg.Apply(n, parent, after)
}

// MoveToGroup moves a contact, chat or buddy to the end of the named
// group, creating the group when it does not exist
func (a *App) MoveToGroup(id roster.ID, group string) error {
	n, ok := a.roster.Node(id)
	if !ok {
		return fmt.Errorf("failed to move %s: %w", id, roster.ErrUnknownNode)
	}
	if group == "" {
		return fmt.Errorf("failed to move %s: empty group name", n.DisplayName())
	}
	g := a.roster.Group(group)
	if g == nil {
		g = a.roster.AddGroup(group)
	}
	return a.reorg.Apply(n, g, nil)
}

// AddGroup adds an empty group, or returns the existing one
func (a *App) AddGroup(name string) (*roster.Group, error) {
	if name == "" {
		return nil, errors.New("failed to add group: empty name")
	}
	if g := a.roster.Group(name); g != nil {
		return g, nil
	}
	return a.roster.AddGroup(name), nil
}

// Rename sets the alias of a contact, buddy or chat, or renames a group
func (a *App) Rename(id roster.ID, alias string) error {
	n, ok := a.roster.Node(id)
	if !ok {
		return fmt.Errorf("failed to rename %s: %w", id, roster.ErrUnknownNode)
	}
	if err := a.roster.SetAlias(n, alias); err != nil {
		return err
	}
	a.saveExpansion()
	return nil
}

// GroupNames returns the group names in roster order
func (a *App) GroupNames() []string {
	groups := a.roster.Groups()
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name()
	}
	return names
}

// Nudge moves a node one place up (delta < 0) or down among its siblings
// in roster order
func (a *App) Nudge(id roster.ID, delta int) error {
	n, ok := a.roster.Node(id)
	if !ok {
		return roster.ErrUnknownNode
	}
	siblings := a.siblings(n)
	i := slices.Index(siblings, n)
	if i < 0 {
		return roster.ErrUnknownNode
	}
	parent := n.Parent()

	switch {
	case delta < 0 && i > 1:
		return a.reorg.Apply(n, parent, siblings[i-2])
	case delta < 0 && i == 1:
		// there is no "before the first", so the first moves down instead
		return a.reorg.Apply(siblings[0], parent, n)
	case delta > 0 && i < len(siblings)-1:
		return a.reorg.Apply(n, parent, siblings[i+1])
	}
	return nil
}

func (a *App) siblings(n roster.Node) []roster.Node {
	switch n := n.(type) {
	case *roster.Group:
		groups := a.roster.Groups()
		out := make([]roster.Node, len(groups))
		for i, g := range groups {
			out[i] = g
		}
		return out
	case *roster.Buddy:
		buddies := n.Contact().Buddies()
		out := make([]roster.Node, len(buddies))
		for i, b := range buddies {
			out[i] = b
		}
		return out
	case *roster.Contact:
		return n.Group().Children()
	case *roster.Chat:
		return n.Group().Children()
	}
	return nil
}

// LogMessage records a conversation line with a buddy or chat and
// updates its activity score. The name is normalized the way the roster
// normalizes buddy names, so an XMPP resource is dropped.
func (a *App) LogMessage(accountID, name, body string, outgoing bool) error {
	protocol, _, _ := strings.Cut(accountID, ":")
	if acct := a.roster.Account(accountID); acct != nil {
		protocol = acct.Protocol
	}
	name = roster.NormalizeName(protocol, name)

	if a.storage == nil {
		return errors.New("storage not initialized")
	}
	if !a.cfg.Storage.SaveMessages {
		return errors.New("message logging is disabled")
	}
	msg := sqlite.Message{
		ID:        uuid.NewString(),
		Account:   accountID,
		Name:      name,
		Body:      body,
		Timestamp: a.now(),
		Outgoing:  outgoing,
	}
	if err := a.storage.SaveMessage(msg); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	key := sqlite.LogKey{Account: accountID, Name: name}
	a.activity.add(key, int64(len(body)))
	a.roster.Walk(func(n roster.Node) {
		if k, ok := logKey(n); ok && k == key {
			a.sync.ActivityChanged(n.ID())
		}
	})
	return nil
}

// Close closes the app
func (a *App) Close() {
	a.cancel()
	if a.plugins != nil {
		a.plugins.UnloadAll()
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			logging.Warn("failed to close config watcher: %v", err)
		}
		a.watcher = nil
	}
	if a.storage != nil {
		a.saveExpansion()
		a.storage.Close()
		a.storage = nil
	}
}
