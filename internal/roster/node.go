package roster

// Kind identifies the variant of a roster node
type Kind int

const (
	KindGroup Kind = iota
	KindContact
	KindBuddy
	KindChat
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindContact:
		return "contact"
	case KindBuddy:
		return "buddy"
	case KindChat:
		return "chat"
	default:
		return "unknown"
	}
}

// ID is the stable identifier of a roster node
type ID string

// Flags are per-node settings persisted by the roster owner
type Flags struct {
	// ShowOffline keeps offline buddies visible. On a group or contact it
	// applies to every buddy below it.
	ShowOffline bool

	// AlwaysShow keeps a group visible even when it has no visible children
	AlwaysShow bool

	// AutoJoin marks a chat to be joined on connect
	AutoJoin bool
}

// Node is a group, contact, buddy or chat.
//
// The set of implementations is closed: *Group, *Contact, *Buddy and *Chat.
type Node interface {
	ID() ID
	Kind() Kind
	// Seq is the creation order of the node, unique within a Roster
	Seq() uint64
	// Parent returns nil for groups and for detached nodes
	Parent() Node
	DisplayName() string
	Flags() Flags

	node()
}

type base struct {
	id    ID
	seq   uint64
	flags Flags
}

func (b *base) ID() ID       { return b.id }
func (b *base) Seq() uint64  { return b.seq }
func (b *base) Flags() Flags { return b.flags }
func (b *base) node()        {}

// Account is the local account a buddy or chat belongs to
type Account struct {
	ID        string
	Protocol  string
	Username  string
	Connected bool
}

// Group is a top-level container of contacts and chats
type Group struct {
	base
	name     string
	children []Node
}

func (g *Group) Kind() Kind          { return KindGroup }
func (g *Group) Parent() Node        { return nil }
func (g *Group) Name() string        { return g.name }
func (g *Group) DisplayName() string { return g.name }

// Children returns the contacts and chats of the group in roster order
func (g *Group) Children() []Node {
	out := make([]Node, len(g.children))
	copy(out, g.children)
	return out
}

// Contacts returns only the contacts of the group in roster order
func (g *Group) Contacts() []*Contact {
	var out []*Contact
	for _, n := range g.children {
		if c, ok := n.(*Contact); ok {
			out = append(out, c)
		}
	}
	return out
}

// OnlineCount returns the number of online buddies in the group
func (g *Group) OnlineCount() int {
	count := 0
	for _, c := range g.Contacts() {
		count += c.OnlineCount()
	}
	return count
}

// Contact aggregates buddies believed to be the same person
type Contact struct {
	base
	alias   string
	group   *Group
	buddies []*Buddy
}

func (c *Contact) Kind() Kind { return KindContact }

func (c *Contact) Parent() Node {
	if c.group == nil {
		return nil
	}
	return c.group
}

// Group returns the owning group, or nil once the contact is detached
func (c *Contact) Group() *Group { return c.group }

// Alias returns the alias set on the contact itself
func (c *Contact) Alias() string { return c.alias }

// Buddies returns the buddies of the contact in roster order
func (c *Contact) Buddies() []*Buddy {
	out := make([]*Buddy, len(c.buddies))
	copy(out, c.buddies)
	return out
}

// OnlineCount returns the number of online buddies
func (c *Contact) OnlineCount() int {
	count := 0
	for _, b := range c.buddies {
		if b.presence.Online() {
			count++
		}
	}
	return count
}

// Priority returns the most available buddy, earliest in roster order on
// ties. It returns nil for a contact without buddies.
func (c *Contact) Priority() *Buddy {
	var best *Buddy
	for _, b := range c.buddies {
		if best == nil || b.presence.Status.Rank() < best.presence.Status.Rank() {
			best = b
		}
	}
	return best
}

// DisplayName returns the contact alias or the priority buddy's name
func (c *Contact) DisplayName() string {
	if c.alias != "" {
		return c.alias
	}
	if b := c.Priority(); b != nil {
		return b.DisplayName()
	}
	return ""
}

// Buddy is one account-specific entry for a person
type Buddy struct {
	base
	account     *Account
	name        string
	alias       string
	serverAlias string
	presence    Presence
	contact     *Contact
}

func (b *Buddy) Kind() Kind { return KindBuddy }

func (b *Buddy) Parent() Node {
	if b.contact == nil {
		return nil
	}
	return b.contact
}

// Contact returns the owning contact, or nil once the buddy is detached
func (b *Buddy) Contact() *Contact { return b.contact }

// Group returns the group of the owning contact
func (b *Buddy) Group() *Group {
	if b.contact == nil {
		return nil
	}
	return b.contact.group
}

func (b *Buddy) Account() *Account      { return b.account }
func (b *Buddy) Name() string           { return b.name }
func (b *Buddy) Alias() string          { return b.alias }
func (b *Buddy) ServerAlias() string    { return b.serverAlias }
func (b *Buddy) Presence() Presence     { return b.presence }
func (b *Buddy) Online() bool           { return b.presence.Online() }

// DisplayName returns the local alias, the server alias or the account name
func (b *Buddy) DisplayName() string {
	if b.alias != "" {
		return b.alias
	}
	if b.serverAlias != "" {
		return b.serverAlias
	}
	return b.name
}

// Chat is a saved chat room
type Chat struct {
	base
	account *Account
	name    string
	alias   string
	group   *Group
}

func (c *Chat) Kind() Kind { return KindChat }

func (c *Chat) Parent() Node {
	if c.group == nil {
		return nil
	}
	return c.group
}

func (c *Chat) Group() *Group       { return c.group }
func (c *Chat) Account() *Account   { return c.account }
func (c *Chat) Name() string        { return c.name }
func (c *Chat) Alias() string       { return c.alias }

func (c *Chat) DisplayName() string {
	if c.alias != "" {
		return c.alias
	}
	return c.name
}

// IndexOf returns the position of n among its siblings, or -1 when n is
// detached. Groups are indexed within the roster by the caller.
func IndexOf(n Node) int {
	switch n := n.(type) {
	case *Contact:
		if n.group != nil {
			return indexNode(n.group.children, n)
		}
	case *Chat:
		if n.group != nil {
			return indexNode(n.group.children, n)
		}
	case *Buddy:
		if n.contact != nil {
			for i, b := range n.contact.buddies {
				if b == n {
					return i
				}
			}
		}
	}
	return -1
}

func indexNode(nodes []Node, n Node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	return -1
}
