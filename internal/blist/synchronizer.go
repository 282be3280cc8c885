package blist

import (
	"fmt"
	"slices"
	"time"

	"github.com/meszmate/buddylist/internal/logging"
	"github.com/meszmate/buddylist/internal/roster"
	"golang.org/x/text/language"
)

// State is the lifecycle state of a roster node as seen by the view
type State int

const (
	// StateUnseen is a node the synchronizer has never been told about,
	// or one that has been destroyed
	StateUnseen State = iota
	// StateHidden is a node that exists but has no row
	StateHidden
	// StateVisible is a node bound to a row
	StateVisible
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateVisible:
		return "visible"
	default:
		return "unseen"
	}
}

// Source is the read side of the roster
type Source interface {
	Groups() []*roster.Group
	Node(id roster.ID) (roster.Node, bool)
}

// Options configures a Synchronizer
type Options struct {
	Policy  string
	Filters Filters

	// RecentWindow defaults to DefaultRecentWindow when zero; a negative
	// window disables transient sign-on and sign-off ranks
	RecentWindow time.Duration
	Language     language.Tag
	Activity     ActivitySource
	Faults       FaultMode
	Now          func() time.Time
	OnProposal   ProposalHandler
}

type tracked struct {
	node   roster.Node
	parent roster.ID
}

// Synchronizer keeps the presentation tree consistent with the roster.
//
// It consumes roster events and emits the view operations needed to keep
// one row per visible node, ordered by the active sort policy. A buddy has
// a row only under an expanded contact, or as the representative of a
// collapsed one.
//
// All methods must be called from the goroutine that owns the roster.
type Synchronizer struct {
	src        Source
	sink       Sink
	vc         *ViewContext
	visibility Visibility
	policy     SortPolicy
	ids        *IdentityMap
	layout     *layout
	expansion  *Expansion
	merge      *MergeDetector
	onProposal ProposalHandler
	faults     FaultMode

	tracked   map[roster.ID]*tracked
	transient map[roster.ID]time.Time
	nextRow   RowHandle
	pending   []Op
	depth     int
}

var _ roster.Listener = (*Synchronizer)(nil)

// NewSynchronizer creates a synchronizer reading src and writing to sink.
// Call Populate to build the initial view.
func NewSynchronizer(src Source, sink Sink, opts Options) *Synchronizer {
	vc := NewViewContext(opts.Language)
	vc.Filters = opts.Filters
	vc.Activity = opts.Activity
	if opts.RecentWindow != 0 {
		vc.RecentWindow = opts.RecentWindow
	}
	if opts.Now != nil {
		vc.Now = opts.Now
	}

	policy, ok := PolicyByName(opts.Policy)
	if !ok {
		if opts.Policy != "" {
			logging.Warn("unknown sort policy %q, using %s", opts.Policy, SortNone)
		}
		policy = Manual{}
	}

	s := &Synchronizer{
		src:        src,
		sink:       sink,
		vc:         vc,
		policy:     policy,
		ids:        NewIdentityMap(),
		layout:     newLayout(),
		expansion:  NewExpansion(),
		onProposal: opts.OnProposal,
		faults:     opts.Faults,
		tracked:    make(map[roster.ID]*tracked),
		transient:  make(map[roster.ID]time.Time),
	}
	s.merge = NewMergeDetector(s, opts.Faults)
	return s
}

// Identity returns the identity map
func (s *Synchronizer) Identity() *IdentityMap { return s.ids }

// Expansion returns the expansion state
func (s *Synchronizer) Expansion() *Expansion { return s.expansion }

// Merger returns the merge detector
func (s *Synchronizer) Merger() *MergeDetector { return s.merge }

// Context returns the view context
func (s *Synchronizer) Context() *ViewContext { return s.vc }

// Policy returns the active sort policy
func (s *Synchronizer) Policy() SortPolicy { return s.policy }

// Filters returns the global filters
func (s *Synchronizer) Filters() Filters { return s.vc.Filters }

// State returns the lifecycle state of a node
func (s *Synchronizer) State(id roster.ID) State {
	if _, ok := s.tracked[id]; !ok {
		return StateUnseen
	}
	if _, ok := s.ids.RowFor(id); ok {
		return StateVisible
	}
	return StateHidden
}

// Populate tracks every node of the roster and builds the initial view
func (s *Synchronizer) Populate() {
	s.begin()
	defer s.end()
	for _, g := range s.src.Groups() {
		s.reconcile(g, true)
	}
}

// NodeCreated handles a node added to the roster
func (s *Synchronizer) NodeCreated(n roster.Node) {
	s.begin()
	defer s.end()
	if _, ok := s.tracked[n.ID()]; ok {
		s.faults.violate("node %s created twice", n.ID())
		return
	}
	s.track(n)
	s.refresh(n)

	switch n.(type) {
	case *roster.Buddy, *roster.Contact:
		s.detectMerge(n, n.DisplayName())
	}
}

// NodeRemoved handles a node destroyed by the roster
func (s *Synchronizer) NodeRemoved(id roster.ID) {
	s.begin()
	defer s.end()
	t, ok := s.tracked[id]
	if !ok {
		return
	}
	if row, ok := s.ids.RowFor(id); ok {
		s.removeSubtree(row)
	}
	delete(s.tracked, id)
	delete(s.transient, id)
	if _, ok := t.node.(*roster.Contact); ok {
		s.expansion.Forget(id)
	}
	if parent, ok := s.src.Node(t.parent); ok {
		s.refresh(parent)
	}
}

// NodeReparented handles a node moved within the roster. A node that keeps
// a row keeps the same row handle.
func (s *Synchronizer) NodeReparented(id roster.ID, newParent roster.Node, after roster.Node) {
	s.begin()
	defer s.end()
	n, ok := s.src.Node(id)
	if !ok {
		return
	}
	t, ok := s.tracked[id]
	if !ok {
		s.track(n)
		s.refresh(n)
		return
	}
	if _, isGroup := n.(*roster.Group); isGroup && newParent != nil {
		s.faults.violate("group %s reparented under %s", id, newParent.ID())
		return
	}

	oldParent := t.parent
	t.node = n
	t.parent = parentID(n)
	s.refresh(n)
	if oldParent != t.parent {
		if old, ok := s.src.Node(oldParent); ok {
			s.refresh(old)
		}
	}
}

// NodePresenceChanged handles a presence update for a buddy
func (s *Synchronizer) NodePresenceChanged(id roster.ID) {
	s.touch(id)
}

// NodeAliasChanged handles a new alias. Aliases on buddies and contacts
// are checked for merge candidates.
func (s *Synchronizer) NodeAliasChanged(id roster.ID, alias string) {
	s.begin()
	defer s.end()
	n, ok := s.src.Node(id)
	if !ok {
		return
	}
	s.track(n)
	s.refresh(n)
	switch n.(type) {
	case *roster.Buddy, *roster.Contact:
		s.detectMerge(n, alias)
	}
}

// NodeFlagsChanged handles a per-node flag change, including the bulk
// offline toggle on a group or contact
func (s *Synchronizer) NodeFlagsChanged(id roster.ID) {
	s.touch(id)
}

// AccountStatusChanged re-evaluates the chats of an account
func (s *Synchronizer) AccountStatusChanged(a *roster.Account) {
	s.begin()
	defer s.end()
	for _, g := range s.src.Groups() {
		for _, child := range g.Children() {
			if ch, ok := child.(*roster.Chat); ok && ch.Account() == a {
				s.track(ch)
				s.refresh(ch)
			}
		}
	}
}

// ActivityChanged repositions a node after its conversation activity
// changed, for the log_size policy
func (s *Synchronizer) ActivityChanged(id roster.ID) {
	s.touch(id)
}

// GlobalFilterChanged flips a global filter and re-evaluates every group
func (s *Synchronizer) GlobalFilterChanged(name string, value bool) error {
	if err := s.vc.Filters.Set(name, value); err != nil {
		return err
	}
	logging.Debug("filter %s set to %v", name, value)
	s.begin()
	defer s.end()
	for _, g := range s.src.Groups() {
		s.reconcile(g, true)
	}
	return nil
}

// SetSortPolicy switches the active policy and resorts every sibling list
func (s *Synchronizer) SetSortPolicy(name string) error {
	policy, ok := PolicyByName(name)
	if !ok {
		return fmt.Errorf("unknown sort policy %q", name)
	}
	if policy.Name() == s.policy.Name() {
		return nil
	}
	logging.Info("sort policy changed from %s to %s", s.policy.Name(), policy.Name())
	s.policy = policy

	s.begin()
	defer s.end()
	for _, gh := range slices.Clone(s.layout.children(0)) {
		s.resort(gh)
		for _, ch := range slices.Clone(s.layout.children(gh)) {
			if row, ok := s.ids.Row(ch); ok {
				if _, isContact := row.Node.(*roster.Contact); isContact {
					s.resort(ch)
				}
			}
		}
	}
	return nil
}

// Reposition recomputes the position and label of a node under the
// current policy. Nothing is emitted when both are unchanged.
func (s *Synchronizer) Reposition(id roster.ID) {
	s.begin()
	defer s.end()
	if n, ok := s.src.Node(id); ok {
		s.place(n)
	}
}

// Tick repositions nodes whose transient sign-on or sign-off rank has
// expired by now
func (s *Synchronizer) Tick(now time.Time) {
	s.begin()
	defer s.end()
	var due []roster.ID
	for id, until := range s.transient {
		if !now.Before(until) {
			due = append(due, id)
		}
	}
	slices.Sort(due)
	for _, id := range due {
		delete(s.transient, id)
		if n, ok := s.src.Node(id); ok {
			s.refresh(n)
		}
	}
}

// NextDeadline returns the earliest transient expiry, if any
func (s *Synchronizer) NextDeadline() (time.Time, bool) {
	var next time.Time
	for _, until := range s.transient {
		if next.IsZero() || until.Before(next) {
			next = until
		}
	}
	return next, !next.IsZero()
}

// ToggleExpand expands or collapses a contact and returns the new state.
// Expanding shows a row per visible buddy; collapsing leaves only the
// representative buddy.
func (s *Synchronizer) ToggleExpand(id roster.ID) bool {
	n, ok := s.src.Node(id)
	if !ok {
		return false
	}
	c, ok := n.(*roster.Contact)
	if !ok {
		logging.Debug("ignoring expand of %s %s", n.Kind(), id)
		return false
	}
	s.begin()
	defer s.end()
	expanded := s.expansion.Toggle(id)
	if row, ok := s.ids.RowFor(id); ok {
		row.Expanded = expanded
	}
	s.track(c)
	s.refresh(c)
	return expanded
}

// Position returns the index of n among its siblings in the view. Hidden
// nodes sort after visible ones, in roster order.
func (s *Synchronizer) Position(n roster.Node) int {
	if row, ok := s.ids.RowFor(n.ID()); ok {
		return s.layout.index(row.Parent, row.Handle)
	}
	visible := 0
	if p := n.Parent(); p != nil {
		if prow, ok := s.ids.RowFor(p.ID()); ok {
			visible = len(s.layout.children(prow.Handle))
		}
	}
	return visible + roster.IndexOf(n)
}

// Check verifies the bijection between visible nodes and rows
func (s *Synchronizer) Check() error {
	rows := 0
	for id, t := range s.tracked {
		row, ok := s.ids.RowFor(id)
		if !ok {
			continue
		}
		rows++
		n, ok := s.ids.NodeFor(row.Handle)
		if !ok || n.ID() != id || n != t.node {
			return fmt.Errorf("row %d does not map back to node %s", row.Handle, id)
		}
		if s.layout.index(row.Parent, row.Handle) < 0 {
			return fmt.Errorf("row %d missing from its parent %d", row.Handle, row.Parent)
		}
	}
	if rows != s.ids.Len() {
		return fmt.Errorf("%d rows bound but %d tracked nodes visible", s.ids.Len(), rows)
	}
	return nil
}

// touch refreshes a node within its own pass
func (s *Synchronizer) touch(id roster.ID) {
	s.begin()
	defer s.end()
	n, ok := s.src.Node(id)
	if !ok {
		return
	}
	s.track(n)
	s.refresh(n)
}

func (s *Synchronizer) begin() {
	s.depth++
}

func (s *Synchronizer) end() {
	s.depth--
	if s.depth > 0 || len(s.pending) == 0 {
		return
	}
	ops := s.pending
	s.pending = nil
	s.sink.Apply(ops)
}

func (s *Synchronizer) emit(op Op) {
	s.pending = append(s.pending, op)
}

func (s *Synchronizer) track(n roster.Node) {
	if t, ok := s.tracked[n.ID()]; ok {
		t.node = n
		t.parent = parentID(n)
		return
	}
	s.tracked[n.ID()] = &tracked{node: n, parent: parentID(n)}
}

// refresh re-evaluates n and its ancestors once each, top-down so parents
// exist before children, then settles position and label bottom-up.
func (s *Synchronizer) refresh(n roster.Node) {
	chain := lineage(n)
	for i, c := range chain {
		_, isContact := c.(*roster.Contact)
		s.reconcile(c, isContact || i == len(chain)-1)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		s.place(chain[i])
	}
}

// reconcile makes the row state of n match the policies. With deep set,
// or when n just gained a row, its children are reconciled as well.
func (s *Synchronizer) reconcile(n roster.Node, deep bool) {
	s.track(n)
	want := s.wants(n)
	row, has := s.ids.RowFor(n.ID())
	switch {
	case want && !has:
		s.insert(n)
		deep = true
	case !want && has:
		s.removeSubtree(row)
		return
	case !want:
		return
	case row.Parent != s.parentRow(n):
		s.place(n)
	}
	if !deep {
		return
	}
	for _, child := range children(n) {
		s.reconcile(child, true)
	}
}

// wants reports whether n should currently have a row. Parents are
// expected to be reconciled first.
func (s *Synchronizer) wants(n roster.Node) bool {
	switch n := n.(type) {
	case *roster.Group:
		if _, ok := s.src.Node(n.ID()); !ok {
			return false
		}
		return s.visibility.IsVisible(n, s.vc)
	case *roster.Contact, *roster.Chat:
		return s.hasRow(n.Parent()) && s.visibility.IsVisible(n, s.vc)
	case *roster.Buddy:
		c := n.Contact()
		if c == nil || !s.hasRow(c) || !s.visibility.IsVisible(n, s.vc) {
			return false
		}
		return s.expansion.IsExpanded(c.ID()) || s.representative(c) == n
	}
	return false
}

// representative is the buddy shown for a collapsed contact: the most
// available visible buddy, earliest in roster order on ties
func (s *Synchronizer) representative(c *roster.Contact) *roster.Buddy {
	var best *roster.Buddy
	bestRank := 0
	now := s.vc.now()
	for _, b := range c.Buddies() {
		if !s.visibility.IsVisible(b, s.vc) {
			continue
		}
		rank, _ := presenceRank(b.Presence(), now, 0)
		if best == nil || rank < bestRank {
			best, bestRank = b, rank
		}
	}
	return best
}

// contactRank is the best rank among the visible buddies of c, counting
// a recent sign-on or sign-off. The representative itself is picked
// without them so it does not flip when a buddy signs on.
func (s *Synchronizer) contactRank(c *roster.Contact, now time.Time) (int, time.Time) {
	rank, until := rankOffline, time.Time{}
	for _, b := range c.Buddies() {
		if !s.visibility.IsVisible(b, s.vc) {
			continue
		}
		r, u := presenceRank(b.Presence(), now, s.vc.RecentWindow)
		if r < rank {
			rank, until = r, u
		}
	}
	return rank, until
}

func (s *Synchronizer) hasRow(n roster.Node) bool {
	if n == nil {
		return false
	}
	_, ok := s.ids.RowFor(n.ID())
	return ok
}

// parentRow is the row a node's row belongs under
func (s *Synchronizer) parentRow(n roster.Node) RowHandle {
	p := n.Parent()
	if p == nil {
		return 0
	}
	if row, ok := s.ids.RowFor(p.ID()); ok {
		return row.Handle
	}
	return 0
}

func (s *Synchronizer) insert(n roster.Node) {
	s.nextRow++
	row := &ViewRow{
		Handle: s.nextRow,
		Parent: s.parentRow(n),
		Label:  s.label(n),
	}
	row.Node = n
	row.Key = s.keyFor(n)
	if _, ok := n.(*roster.Contact); ok {
		row.Expanded = s.expansion.IsExpanded(n.ID())
	}
	after := s.slot(row)
	if err := s.ids.Bind(n, row); err != nil {
		s.faults.violate("%v", err)
		return
	}
	s.layout.insert(row.Parent, after, row.Handle)
	s.noteTransient(n.ID(), row.Key)
	s.emit(InsertRow{Parent: row.Parent, After: after, Row: row.Handle, Node: n, Text: row.Label})
}

// removeSubtree removes a row and every row below it, children first.
// It walks the view, not the roster, since the roster may already have
// moved or dropped the children.
func (s *Synchronizer) removeSubtree(row *ViewRow) {
	for _, h := range slices.Clone(s.layout.children(row.Handle)) {
		if child, ok := s.ids.Row(h); ok {
			s.removeSubtree(child)
		}
	}
	if _, ok := s.ids.Row(row.Handle); !ok {
		s.faults.violate("row %d removed twice", row.Handle)
		return
	}
	s.layout.remove(row.Parent, row.Handle)
	s.layout.drop(row.Handle)
	s.ids.Unbind(row.Node.ID())
	delete(s.transient, row.Node.ID())
	s.emit(RemoveRow{Row: row.Handle})
}

// place moves a bound node to its slot under its current parent row and
// refreshes its label. Nodes without a row are left alone.
func (s *Synchronizer) place(n roster.Node) {
	row, ok := s.ids.RowFor(n.ID())
	if !ok {
		return
	}
	row.Node = n
	row.Key = s.keyFor(n)
	s.noteTransient(n.ID(), row.Key)

	parent := s.parentRow(n)
	if parent == 0 && n.Parent() != nil {
		// the parent lost its row; the next reconcile removes this one
		return
	}
	after := s.slot(row)
	if parent != row.Parent || after != s.layout.predecessor(row.Parent, row.Handle) {
		s.layout.remove(row.Parent, row.Handle)
		s.layout.insert(parent, after, row.Handle)
		row.Parent = parent
		s.emit(MoveRow{Row: row.Handle, Parent: parent, After: after})
	}

	if label := s.label(n); label != row.Label {
		row.Label = label
		s.emit(RelabelRow{Row: row.Handle, Text: label})
	}
}

// slot returns the sibling the row belongs after under its node's parent
// row, ignoring the row itself
func (s *Synchronizer) slot(row *ViewRow) RowHandle {
	parent := s.parentRow(row.Node)
	policy := s.policyFor(row.Node)
	index := s.intrinsicIndex(row.Node)
	me := Item{Node: row.Node, Key: row.Key, Index: index[row.Node.ID()]}

	var after RowHandle
	for _, h := range s.layout.children(parent) {
		if h == row.Handle {
			continue
		}
		sib, ok := s.ids.Row(h)
		if !ok {
			continue
		}
		it := Item{Node: sib.Node, Key: sib.Key, Index: index[sib.Node.ID()]}
		if policy.Compare(me, it, s.vc) < 0 {
			break
		}
		after = h
	}
	return after
}

// resort reorders all children of a parent row under the active policy
func (s *Synchronizer) resort(parent RowHandle) {
	kids := s.layout.children(parent)
	if len(kids) < 2 {
		return
	}
	first, ok := s.ids.Row(kids[0])
	if !ok {
		return
	}
	policy := s.policyFor(first.Node)
	index := s.intrinsicIndex(first.Node)

	items := make([]Item, 0, len(kids))
	handles := make(map[roster.ID]RowHandle, len(kids))
	for _, h := range kids {
		row, ok := s.ids.Row(h)
		if !ok {
			continue
		}
		row.Key = s.keyFor(row.Node)
		items = append(items, Item{Node: row.Node, Key: row.Key, Index: index[row.Node.ID()]})
		handles[row.Node.ID()] = h
	}
	slices.SortStableFunc(items, func(a, b Item) int {
		return policy.Compare(a, b, s.vc)
	})

	var after RowHandle
	for _, it := range items {
		h := handles[it.Node.ID()]
		if s.layout.predecessor(parent, h) != after {
			s.layout.remove(parent, h)
			s.layout.insert(parent, after, h)
			s.emit(MoveRow{Row: h, Parent: parent, After: after})
		}
		after = h
	}
}

// policyFor returns Manual for groups, which are never sorted
func (s *Synchronizer) policyFor(n roster.Node) SortPolicy {
	if _, ok := n.(*roster.Group); ok {
		return Manual{}
	}
	return s.policy
}

// intrinsicIndex maps the siblings of n to their roster order
func (s *Synchronizer) intrinsicIndex(n roster.Node) map[roster.ID]int {
	index := make(map[roster.ID]int)
	switch p := n.Parent().(type) {
	case nil:
		for i, g := range s.src.Groups() {
			index[g.ID()] = i
		}
	case *roster.Group:
		for i, c := range p.Children() {
			index[c.ID()] = i
		}
	case *roster.Contact:
		for i, b := range p.Buddies() {
			index[b.ID()] = i
		}
	}
	return index
}

func (s *Synchronizer) keyFor(n roster.Node) SortKey {
	key := SortKey{
		Name:  s.vc.CollationKey(s.label(n)),
		Rank:  rankOffline,
		Score: s.vc.score(n),
	}
	now := s.vc.now()
	switch n := n.(type) {
	case *roster.Buddy:
		key.Rank, key.Until = presenceRank(n.Presence(), now, s.vc.RecentWindow)
	case *roster.Contact:
		key.Rank, key.Until = s.contactRank(n, now)
	case *roster.Group:
		key.Rank = rankAvailable
	}
	return key
}

// label is the text shown for a node. A contact without an alias shows
// its representative buddy.
func (s *Synchronizer) label(n roster.Node) string {
	if c, ok := n.(*roster.Contact); ok && c.Alias() == "" {
		if b := s.representative(c); b != nil {
			return b.DisplayName()
		}
	}
	return n.DisplayName()
}

func (s *Synchronizer) noteTransient(id roster.ID, key SortKey) {
	if key.Until.IsZero() {
		delete(s.transient, id)
		return
	}
	s.transient[id] = key.Until
}

func (s *Synchronizer) detectMerge(n roster.Node, alias string) {
	if s.onProposal == nil {
		return
	}
	if p := s.merge.Detect(n, alias); p != nil {
		logging.Info("possible duplicate contacts named %q in %s", p.Alias, p.Group.Name())
		s.onProposal(p)
	}
}

// lineage returns n and its ancestors, outermost first
func lineage(n roster.Node) []roster.Node {
	var chain []roster.Node
	for c := n; c != nil; c = c.Parent() {
		chain = append(chain, c)
	}
	slices.Reverse(chain)
	return chain
}

func children(n roster.Node) []roster.Node {
	switch n := n.(type) {
	case *roster.Group:
		return n.Children()
	case *roster.Contact:
		buddies := n.Buddies()
		out := make([]roster.Node, len(buddies))
		for i, b := range buddies {
			out[i] = b
		}
		return out
	}
	return nil
}

func parentID(n roster.Node) roster.ID {
	if p := n.Parent(); p != nil {
		return p.ID()
	}
	return ""
}
