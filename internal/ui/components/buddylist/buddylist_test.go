package buddylist

import (
	"strings"
	"testing"

	"github.com/meszmate/buddylist/internal/roster"
	"github.com/meszmate/buddylist/internal/ui/theme"
	"github.com/meszmate/buddylist/internal/viewtree"
)

// fixture builds one group with a contact per name and returns the
// flattened lines: group, then contact and buddy rows
func fixture(t *testing.T, names ...string) []viewtree.Line {
	t.Helper()
	r := roster.New()
	acct := r.AddAccount("xmpp", "me@example.com", true)
	g := r.AddGroup("Friends")
	lines := []viewtree.Line{{Depth: 0, Row: &viewtree.Row{Node: g, Text: "Friends"}}}
	for _, name := range names {
		c, err := r.AddContact(g, nil)
		if err != nil {
			t.Fatalf("AddContact returned error: %v", err)
		}
		b, err := r.AddBuddy(c, acct, strings.ToLower(name)+"@example.com", roster.StatusAvailable)
		if err != nil {
			t.Fatalf("AddBuddy returned error: %v", err)
		}
		lines = append(lines,
			viewtree.Line{Depth: 1, Row: &viewtree.Row{Node: c, Text: name}},
			viewtree.Line{Depth: 2, Row: &viewtree.Row{Node: b, Text: name}},
		)
	}
	return lines
}

func newList(lines []viewtree.Line) Model {
	return New(theme.NewManager().Styles(), Options{ShowCounts: true}).
		SetSize(30, 10).
		SetLines(lines)
}

func TestSelectionFollowsNode(t *testing.T) {
	lines := fixture(t, "Alice", "Bob")
	m := newList(lines).MoveDown().MoveDown().MoveDown()
	if got := m.Selected(); got != lines[3].Row.Node {
		t.Fatalf("expected Bob selected, got %v", got)
	}

	// Bob moves to the top of the group
	reordered := []viewtree.Line{lines[0], lines[3], lines[4], lines[1], lines[2]}
	m = m.SetLines(reordered)
	if m.SelectedIndex() != 1 {
		t.Fatalf("expected selection to follow Bob to row 1, got %d", m.SelectedIndex())
	}
}

func TestSelectionClampsWhenRowsDisappear(t *testing.T) {
	lines := fixture(t, "Alice", "Bob")
	m := newList(lines).MoveToBottom()
	m = m.SetLines(lines[:2])
	if m.SelectedIndex() != 1 {
		t.Fatalf("expected selection clamped to 1, got %d", m.SelectedIndex())
	}
	m = m.SetLines(nil)
	if m.Selected() != nil {
		t.Fatalf("expected nothing selected in an empty list")
	}
}

func TestMovementStopsAtEnds(t *testing.T) {
	m := newList(fixture(t, "Alice"))
	if m = m.MoveUp(); m.SelectedIndex() != 0 {
		t.Fatalf("expected to stay at top, got %d", m.SelectedIndex())
	}
	m = m.MoveToBottom().MoveDown()
	if m.SelectedIndex() != m.Len()-1 {
		t.Fatalf("expected to stay at bottom, got %d", m.SelectedIndex())
	}
}

func TestSearchNextWraps(t *testing.T) {
	m := newList(fixture(t, "Alice", "Bob", "Alina"))
	m = m.SearchNext("ali")
	if m.SelectedIndex() != 1 {
		t.Fatalf("expected first match at 1, got %d", m.SelectedIndex())
	}
	m = m.SearchNext("ali").SearchNext("ali").SearchNext("ali")
	if m.SelectedIndex() != 6 {
		t.Fatalf("expected last match at 6, got %d", m.SelectedIndex())
	}
	m = m.SearchNext("ali")
	if m.SelectedIndex() != 1 {
		t.Fatalf("expected search to wrap to 1, got %d", m.SelectedIndex())
	}
	if m = m.SearchNext("zed"); m.SelectedIndex() != 1 {
		t.Fatalf("expected no move without matches, got %d", m.SelectedIndex())
	}
}

func TestViewRendersRowsAndCounts(t *testing.T) {
	view := newList(fixture(t, "Alice", "Bob")).View()
	for _, want := range []string{"Buddy List", "Friends (2/2)", "Alice", "Bob", "●"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view, got:\n%s", want, view)
		}
	}
}

func TestViewScrollsToSelection(t *testing.T) {
	m := newList(fixture(t, "A", "B", "C", "D", "E", "F")).SetSize(30, 4)
	m = m.MoveToBottom()
	view := m.View()
	if strings.Contains(view, "Friends") {
		t.Fatalf("expected group row scrolled out, got:\n%s", view)
	}
	if lines := strings.Split(view, "\n"); len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
	}
}

func TestViewEmptyShowsHelp(t *testing.T) {
	view := newList(nil).View()
	if !strings.Contains(view, "Nobody to show") {
		t.Fatalf("expected help text, got:\n%s", view)
	}
}
