package statusbar

import (
	"strings"
	"testing"

	"github.com/meszmate/buddylist/internal/blist"
	"github.com/meszmate/buddylist/internal/roster"
	"github.com/meszmate/buddylist/internal/ui/keybindings"
	"github.com/meszmate/buddylist/internal/ui/theme"
)

func newBar() Model {
	return New(theme.NewManager().Styles()).SetWidth(80)
}

func TestViewShowsPolicyAndFilters(t *testing.T) {
	view := newBar().
		SetPreferences("alphabetical", blist.Filters{ShowOfflineBuddies: true, ShowEmptyGroups: true}).
		View()
	for _, want := range []string{"alphabetical", "+offline +empty"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in %q", want, view)
		}
	}
}

func TestNoticeTakesPrecedenceOverProposal(t *testing.T) {
	p := &blist.MergeProposal{
		Alias:      "Dave",
		Candidates: []*roster.Contact{{}, {}},
	}
	m := newBar().SetProposal(p, 3)
	if view := m.View(); !strings.Contains(view, `merge 2 contacts named "Dave"? y/n (+2)`) {
		t.Fatalf("expected proposal, got %q", view)
	}

	m = m.SetNotice("sorted by status", false)
	if view := m.View(); !strings.Contains(view, "sorted by status") || strings.Contains(view, "merge") {
		t.Fatalf("expected notice only, got %q", view)
	}
}

func TestSearchModeShowsQuery(t *testing.T) {
	m := newBar().SetNotice("boom", true).SetMode(keybindings.ModeSearch, "ali")
	if view := m.View(); !strings.Contains(view, "/ali") || strings.Contains(view, "boom") {
		t.Fatalf("expected search query, got %q", view)
	}
}

func TestZeroWidthRendersNothing(t *testing.T) {
	if view := New(theme.NewManager().Styles()).View(); view != "" {
		t.Fatalf("expected empty view, got %q", view)
	}
}
