package roster

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"mellium.im/xmpp/jid"
)

var (
	// ErrUnknownNode is returned when a node is not part of the roster
	ErrUnknownNode = errors.New("unknown roster node")

	// ErrInvalidMove is returned when a node cannot be placed under a parent
	ErrInvalidMove = errors.New("invalid move")
)

// Listener receives roster mutations. Callbacks run synchronously on the
// goroutine that performed the mutation, after the roster has changed.
type Listener interface {
	NodeCreated(n Node)
	NodeRemoved(id ID)
	NodeReparented(id ID, newParent Node, after Node)
	NodePresenceChanged(id ID)
	NodeAliasChanged(id ID, alias string)
	NodeFlagsChanged(id ID)
	AccountStatusChanged(a *Account)
}

// Roster is the logical contact list. It is not safe for concurrent use;
// callers marshal mutations onto a single goroutine.
type Roster struct {
	groups    []*Group
	nodes     map[ID]Node
	accounts  map[string]*Account
	listeners []Listener
	seq       uint64
}

// New creates an empty roster
func New() *Roster {
	return &Roster{
		nodes:    make(map[ID]Node),
		accounts: make(map[string]*Account),
	}
}

// AddListener registers a listener for roster mutations
func (r *Roster) AddListener(l Listener) {
	r.listeners = append(r.listeners, l)
}

// Groups returns all groups in roster order
func (r *Roster) Groups() []*Group {
	out := make([]*Group, len(r.groups))
	copy(out, r.groups)
	return out
}

// Node returns a node by ID
func (r *Roster) Node(id ID) (Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// Count returns the number of nodes in the roster
func (r *Roster) Count() int {
	return len(r.nodes)
}

// Group returns a group by name
func (r *Roster) Group(name string) *Group {
	for _, g := range r.groups {
		if g.name == name {
			return g
		}
	}
	return nil
}

// GroupIndex returns the position of a group in the roster, or -1
func (r *Roster) GroupIndex(g *Group) int {
	for i, c := range r.groups {
		if c == g {
			return i
		}
	}
	return -1
}

// AddAccount registers a local account. Registering the same protocol and
// username twice returns the existing account.
func (r *Roster) AddAccount(protocol, username string, connected bool) *Account {
	username = NormalizeName(protocol, username)
	id := protocol + ":" + username
	if a, ok := r.accounts[id]; ok {
		return a
	}
	a := &Account{ID: id, Protocol: protocol, Username: username, Connected: connected}
	r.accounts[id] = a
	return a
}

// Account returns an account by ID
func (r *Roster) Account(id string) *Account {
	return r.accounts[id]
}

// Accounts returns all registered accounts
func (r *Roster) Accounts() []*Account {
	out := make([]*Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out
}

// AddGroup creates a group at the end of the roster. A group with the
// same name is returned as is.
func (r *Roster) AddGroup(name string) *Group {
	if g := r.Group(name); g != nil {
		return g
	}
	g := &Group{base: r.newBase(), name: name}
	r.groups = append(r.groups, g)
	r.nodes[g.id] = g
	r.emitCreated(g)
	return g
}

// AddContact creates an empty contact in g after the given sibling, or at
// the end when after is nil. The contact stays hidden until it has buddies.
func (r *Roster) AddContact(g *Group, after Node) (*Contact, error) {
	if err := r.owned(g); err != nil {
		return nil, err
	}
	c := &Contact{base: r.newBase(), group: g}
	g.children = insertNode(g.children, c, after)
	r.nodes[c.id] = c
	r.emitCreated(c)
	return c, nil
}

// AddBuddy creates a buddy in c. The name is normalized for the account's
// protocol.
func (r *Roster) AddBuddy(c *Contact, account *Account, name string, status Status) (*Buddy, error) {
	if err := r.owned(c); err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("failed to add buddy %s: no account", name)
	}
	b := &Buddy{
		base:     r.newBase(),
		account:  account,
		name:     NormalizeName(account.Protocol, name),
		presence: Presence{Status: status},
		contact:  c,
	}
	c.buddies = append(c.buddies, b)
	r.nodes[b.id] = b
	r.emitCreated(b)
	return b, nil
}

// AddChat creates a chat in g after the given sibling, or at the end
func (r *Roster) AddChat(g *Group, account *Account, name string, after Node) (*Chat, error) {
	if err := r.owned(g); err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("failed to add chat %s: no account", name)
	}
	ch := &Chat{base: r.newBase(), account: account, name: name, group: g}
	g.children = insertNode(g.children, ch, after)
	r.nodes[ch.id] = ch
	r.emitCreated(ch)
	return ch, nil
}

// Remove removes a node and everything below it. Children are removed
// before their parents, and a contact left without buddies is removed too.
func (r *Roster) Remove(n Node) error {
	if err := r.owned(n); err != nil {
		return err
	}
	switch n := n.(type) {
	case *Group:
		for _, child := range n.Children() {
			if err := r.Remove(child); err != nil {
				return err
			}
		}
		r.groups = removeGroup(r.groups, n)
		r.forget(n)
	case *Contact:
		for _, b := range n.Buddies() {
			r.detachBuddy(b)
			r.forget(b)
		}
		n.group.children = removeNode(n.group.children, n)
		n.group = nil
		r.forget(n)
	case *Buddy:
		c := n.contact
		r.detachBuddy(n)
		r.forget(n)
		r.pruneContact(c)
	case *Chat:
		n.group.children = removeNode(n.group.children, n)
		n.group = nil
		r.forget(n)
	}
	return nil
}

// Move places n under newParent after the given sibling (nil appends).
// Buddies move between contacts, contacts and chats between groups, and
// groups are reordered with a nil parent.
func (r *Roster) Move(n Node, newParent Node, after Node) error {
	if err := r.owned(n); err != nil {
		return err
	}
	if newParent != nil {
		if err := r.owned(newParent); err != nil {
			return err
		}
	}
	if after != nil && after == n {
		return fmt.Errorf("%w: %s placed after itself", ErrInvalidMove, n.ID())
	}

	switch n := n.(type) {
	case *Group:
		if newParent != nil {
			return fmt.Errorf("%w: group %s cannot have a parent", ErrInvalidMove, n.id)
		}
		r.groups = removeGroup(r.groups, n)
		r.groups = insertGroup(r.groups, n, after)
		r.emitReparented(n, nil, after)
	case *Contact:
		g, ok := newParent.(*Group)
		if !ok {
			return fmt.Errorf("%w: contact %s needs a group", ErrInvalidMove, n.id)
		}
		n.group.children = removeNode(n.group.children, n)
		n.group = g
		g.children = insertNode(g.children, n, after)
		r.emitReparented(n, g, after)
	case *Chat:
		g, ok := newParent.(*Group)
		if !ok {
			return fmt.Errorf("%w: chat %s needs a group", ErrInvalidMove, n.id)
		}
		n.group.children = removeNode(n.group.children, n)
		n.group = g
		g.children = insertNode(g.children, n, after)
		r.emitReparented(n, g, after)
	case *Buddy:
		c, ok := newParent.(*Contact)
		if !ok {
			return fmt.Errorf("%w: buddy %s needs a contact", ErrInvalidMove, n.id)
		}
		var prev *Buddy
		if after != nil {
			if prev, ok = after.(*Buddy); !ok {
				return fmt.Errorf("%w: buddy %s placed after a %s", ErrInvalidMove, n.id, after.Kind())
			}
		}
		old := n.contact
		old.buddies = removeBuddy(old.buddies, n)
		n.contact = c
		c.buddies = insertBuddy(c.buddies, n, prev)
		r.emitReparented(n, c, after)
		if old != c {
			r.pruneContact(old)
		}
	}
	return nil
}

// SetPresence updates the status of a buddy at the given time
func (r *Roster) SetPresence(b *Buddy, status Status, at time.Time) error {
	if err := r.owned(b); err != nil {
		return err
	}
	if b.presence.Status == status {
		return nil
	}
	b.presence = b.presence.transition(status, at)
	for _, l := range r.listeners {
		l.NodePresenceChanged(b.id)
	}
	return nil
}

// SetStatusMessage updates the status message without changing availability
func (r *Roster) SetStatusMessage(b *Buddy, message string) error {
	if err := r.owned(b); err != nil {
		return err
	}
	b.presence.Message = message
	for _, l := range r.listeners {
		l.NodePresenceChanged(b.id)
	}
	return nil
}

// SetAlias sets the alias of a contact, buddy or chat, or renames a group
func (r *Roster) SetAlias(n Node, alias string) error {
	if err := r.owned(n); err != nil {
		return err
	}
	switch n := n.(type) {
	case *Group:
		if alias == "" {
			return fmt.Errorf("failed to rename group %s: empty name", n.name)
		}
		n.name = alias
	case *Contact:
		n.alias = alias
	case *Buddy:
		n.alias = alias
	case *Chat:
		n.alias = alias
	}
	for _, l := range r.listeners {
		l.NodeAliasChanged(n.ID(), alias)
	}
	return nil
}

// SetServerAlias sets the alias the server reports for a buddy
func (r *Roster) SetServerAlias(b *Buddy, alias string) error {
	if err := r.owned(b); err != nil {
		return err
	}
	b.serverAlias = alias
	for _, l := range r.listeners {
		l.NodeAliasChanged(b.id, b.DisplayName())
	}
	return nil
}

// SetFlags replaces the flags of a node
func (r *Roster) SetFlags(n Node, flags Flags) error {
	if err := r.owned(n); err != nil {
		return err
	}
	*r.flagsOf(n) = flags
	for _, l := range r.listeners {
		l.NodeFlagsChanged(n.ID())
	}
	return nil
}

// SetShowOfflineSubtree toggles offline visibility for a node and every
// node below it, then reports a single flag change for n.
func (r *Roster) SetShowOfflineSubtree(n Node, show bool) error {
	if err := r.owned(n); err != nil {
		return err
	}
	var walk func(Node)
	walk = func(n Node) {
		r.flagsOf(n).ShowOffline = show
		switch n := n.(type) {
		case *Group:
			for _, c := range n.children {
				walk(c)
			}
		case *Contact:
			for _, b := range n.buddies {
				walk(b)
			}
		}
	}
	walk(n)
	for _, l := range r.listeners {
		l.NodeFlagsChanged(n.ID())
	}
	return nil
}

// SetAccountConnected updates the connection state of an account
func (r *Roster) SetAccountConnected(a *Account, connected bool) {
	if a.Connected == connected {
		return
	}
	a.Connected = connected
	for _, l := range r.listeners {
		l.AccountStatusChanged(a)
	}
}

// Walk visits every node depth first, parents before children
func (r *Roster) Walk(fn func(Node)) {
	for _, g := range r.groups {
		fn(g)
		for _, child := range g.children {
			fn(child)
			if c, ok := child.(*Contact); ok {
				for _, b := range c.buddies {
					fn(b)
				}
			}
		}
	}
}

// NormalizeName normalizes an account-specific buddy name. XMPP addresses
// are reduced to their bare form; other protocols are left untouched.
func NormalizeName(protocol, name string) string {
	if protocol != "xmpp" {
		return name
	}
	j, err := jid.Parse(name)
	if err != nil {
		return name
	}
	return j.Bare().String()
}

func (r *Roster) newBase() base {
	r.seq++
	return base{id: ID(uuid.NewString()), seq: r.seq}
}

func (r *Roster) owned(n Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil", ErrUnknownNode)
	}
	if got, ok := r.nodes[n.ID()]; !ok || got != n {
		return fmt.Errorf("%w: %s", ErrUnknownNode, n.ID())
	}
	return nil
}

func (r *Roster) flagsOf(n Node) *Flags {
	switch n := n.(type) {
	case *Group:
		return &n.flags
	case *Contact:
		return &n.flags
	case *Buddy:
		return &n.flags
	case *Chat:
		return &n.flags
	}
	return &Flags{}
}

func (r *Roster) detachBuddy(b *Buddy) {
	if b.contact != nil {
		b.contact.buddies = removeBuddy(b.contact.buddies, b)
	}
}

// pruneContact removes a contact that has no buddies left
func (r *Roster) pruneContact(c *Contact) {
	if c == nil || len(c.buddies) > 0 {
		return
	}
	if _, ok := r.nodes[c.id]; !ok {
		return
	}
	c.group.children = removeNode(c.group.children, c)
	c.group = nil
	r.forget(c)
}

func (r *Roster) forget(n Node) {
	delete(r.nodes, n.ID())
	for _, l := range r.listeners {
		l.NodeRemoved(n.ID())
	}
}

func (r *Roster) emitCreated(n Node) {
	for _, l := range r.listeners {
		l.NodeCreated(n)
	}
}

func (r *Roster) emitReparented(n Node, parent Node, after Node) {
	for _, l := range r.listeners {
		l.NodeReparented(n.ID(), parent, after)
	}
}

func insertNode(nodes []Node, n Node, after Node) []Node {
	if after != nil {
		if i := indexNode(nodes, after); i >= 0 {
			nodes = append(nodes, nil)
			copy(nodes[i+2:], nodes[i+1:])
			nodes[i+1] = n
			return nodes
		}
	}
	return append(nodes, n)
}

func removeNode(nodes []Node, n Node) []Node {
	if i := indexNode(nodes, n); i >= 0 {
		return append(nodes[:i], nodes[i+1:]...)
	}
	return nodes
}

func insertBuddy(buddies []*Buddy, b *Buddy, after *Buddy) []*Buddy {
	if after != nil {
		for i, c := range buddies {
			if c == after {
				buddies = append(buddies, nil)
				copy(buddies[i+2:], buddies[i+1:])
				buddies[i+1] = b
				return buddies
			}
		}
	}
	return append(buddies, b)
}

func removeBuddy(buddies []*Buddy, b *Buddy) []*Buddy {
	for i, c := range buddies {
		if c == b {
			return append(buddies[:i], buddies[i+1:]...)
		}
	}
	return buddies
}

func insertGroup(groups []*Group, g *Group, after Node) []*Group {
	if prev, ok := after.(*Group); ok {
		for i, c := range groups {
			if c == prev {
				groups = append(groups, nil)
				copy(groups[i+2:], groups[i+1:])
				groups[i+1] = g
				return groups
			}
		}
	}
	return append(groups, g)
}

func removeGroup(groups []*Group, g *Group) []*Group {
	for i, c := range groups {
		if c == g {
			return append(groups[:i], groups[i+1:]...)
		}
	}
	return groups
}
