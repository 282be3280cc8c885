package blist_test

import (
	"slices"
	"time"

	"github.com/meszmate/buddylist/internal/blist"
	"github.com/meszmate/buddylist/internal/roster"
	"github.com/meszmate/buddylist/internal/viewtree"
	"golang.org/x/text/language"
)

// tester is the part of *testing.T and *rapid.T the fixture needs
type tester interface {
	Helper()
	Fatalf(format string, args ...any)
}

type recordingSink struct {
	tree    *viewtree.Tree
	batches [][]blist.Op
}

func (r *recordingSink) Apply(ops []blist.Op) {
	r.batches = append(r.batches, slices.Clone(ops))
	r.tree.Apply(ops)
}

type fixture struct {
	t         tester
	roster    *roster.Roster
	account   *roster.Account
	sink      *recordingSink
	sync      *blist.Synchronizer
	clock     time.Time
	proposals []*blist.MergeProposal
}

func newFixture(t tester, opts blist.Options) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		roster: roster.New(),
		sink:   &recordingSink{tree: viewtree.New()},
		clock:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.account = f.roster.AddAccount("xmpp", "me@example.com", true)

	opts.Language = language.English
	opts.Faults = blist.FaultPanic
	opts.Now = func() time.Time { return f.clock }
	opts.OnProposal = func(p *blist.MergeProposal) {
		f.proposals = append(f.proposals, p)
	}
	f.sync = blist.NewSynchronizer(f.roster, f.sink, opts)
	f.roster.AddListener(f.sync)
	f.sync.Populate()
	return f
}

// contact adds a contact with one buddy per name to the named group
func (f *fixture) contact(group string, status roster.Status, names ...string) *roster.Contact {
	f.t.Helper()
	g := f.roster.AddGroup(group)
	c, err := f.roster.AddContact(g, nil)
	if err != nil {
		f.t.Fatalf("AddContact returned error: %v", err)
	}
	for _, name := range names {
		f.buddy(c, name, status)
	}
	return c
}

func (f *fixture) buddy(c *roster.Contact, name string, status roster.Status) *roster.Buddy {
	f.t.Helper()
	b, err := f.roster.AddBuddy(c, f.account, name, status)
	if err != nil {
		f.t.Fatalf("AddBuddy returned error: %v", err)
	}
	return b
}

func (f *fixture) check() {
	f.t.Helper()
	if err := f.sync.Check(); err != nil {
		f.t.Fatalf("expected consistent identity map, got %v", err)
	}
	if err := f.sink.tree.Err(); err != nil {
		f.t.Fatalf("expected valid view operations, got %v", err)
	}
	if f.sink.tree.Len() != f.sync.Identity().Len() {
		f.t.Fatalf("expected %d rows in the tree, got %d", f.sync.Identity().Len(), f.sink.tree.Len())
	}
	for _, line := range f.sink.tree.Flatten() {
		n, ok := f.sync.Identity().NodeFor(line.Row.Handle)
		if !ok || n.ID() != line.Row.Node.ID() {
			f.t.Fatalf("row %d shows %s but is not bound to it", line.Row.Handle, line.Row.Text)
		}
	}
}

func (f *fixture) reset() {
	f.sink.batches = nil
}

func (f *fixture) row(n roster.Node) *viewtree.Row {
	f.t.Helper()
	vr, ok := f.sync.Identity().RowFor(n.ID())
	if !ok {
		f.t.Fatalf("expected a row for %s %q", n.Kind(), n.DisplayName())
	}
	row, ok := f.sink.tree.Row(vr.Handle)
	if !ok {
		f.t.Fatalf("expected row %d in the tree", vr.Handle)
	}
	return row
}

func (f *fixture) labels(parent roster.Node) []string {
	f.t.Helper()
	if parent == nil {
		return f.sink.tree.Labels(0)
	}
	return f.sink.tree.Labels(f.row(parent).Handle)
}

func (f *fixture) ops() []blist.Op {
	var all []blist.Op
	for _, b := range f.sink.batches {
		all = append(all, b...)
	}
	return all
}

func countOps[T blist.Op](ops []blist.Op) int {
	n := 0
	for _, op := range ops {
		if _, ok := op.(T); ok {
			n++
		}
	}
	return n
}
