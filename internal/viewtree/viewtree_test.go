package viewtree

import (
	"slices"
	"strings"
	"testing"

	"github.com/meszmate/buddylist/internal/blist"
)

func TestApplyBuildsOrderedTree(t *testing.T) {
	tree := New()
	tree.Apply([]blist.Op{
		blist.InsertRow{Row: 1, Text: "Friends"},
		blist.InsertRow{Parent: 1, Row: 2, Text: "bob"},
		blist.InsertRow{Parent: 1, Row: 3, Text: "alice"},
		blist.InsertRow{Parent: 1, After: 3, Row: 4, Text: "carol"},
	})
	if err := tree.Err(); err != nil {
		t.Fatalf("expected no errors, got %v", err)
	}
	if got := tree.Labels(1); !slices.Equal(got, []string{"alice", "carol", "bob"}) {
		t.Fatalf("unexpected order %v", got)
	}

	tree.Apply([]blist.Op{
		blist.MoveRow{Row: 2, Parent: 1},
		blist.RelabelRow{Row: 4, Text: "Carol"},
	})
	want := "Friends\n  bob\n  alice\n  Carol\n"
	if got := tree.Outline(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if tree.Batches() != 2 || tree.Ops() != 6 {
		t.Fatalf("expected 2 batches and 6 ops, got %d and %d", tree.Batches(), tree.Ops())
	}
}

func TestApplyRejectsInvalidOps(t *testing.T) {
	tree := New()
	tree.Apply([]blist.Op{
		blist.InsertRow{Row: 1, Text: "Friends"},
		blist.InsertRow{Parent: 1, Row: 2, Text: "alice"},
		blist.InsertRow{Row: 1, Text: "again"},
		blist.InsertRow{Parent: 9, Row: 3, Text: "orphan"},
		blist.RemoveRow{Row: 1},
		blist.RemoveRow{Row: 7},
		blist.MoveRow{Row: 2, Parent: 1, After: 5},
		blist.RelabelRow{Row: 8, Text: "x"},
	})

	err := tree.Err()
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, msg := range []string{"existing row 1", "unknown parent 9", "with 1 children", "unknown row 7", "not a sibling", "relabel of unknown row 8"} {
		if !strings.Contains(err.Error(), msg) {
			t.Fatalf("expected error mentioning %q, got %v", msg, err)
		}
	}
	if tree.Len() != 2 {
		t.Fatalf("expected invalid ops skipped, got %d rows", tree.Len())
	}
	if got := tree.Labels(1); !slices.Equal(got, []string{"alice"}) {
		t.Fatalf("expected failed move to leave the row in place, got %v", got)
	}
}

func TestRemoveAndFlatten(t *testing.T) {
	tree := New()
	tree.Apply([]blist.Op{
		blist.InsertRow{Row: 1, Text: "A"},
		blist.InsertRow{Row: 2, After: 1, Text: "B"},
		blist.InsertRow{Parent: 2, Row: 3, Text: "b1"},
	})
	lines := tree.Flatten()
	if len(lines) != 3 || lines[2].Depth != 1 || lines[2].Row.Text != "b1" {
		t.Fatalf("unexpected flattening %+v", lines)
	}

	tree.Apply([]blist.Op{blist.RemoveRow{Row: 3}, blist.RemoveRow{Row: 2}})
	if err := tree.Err(); err != nil {
		t.Fatalf("expected no errors, got %v", err)
	}
	if tree.Outline() != "A\n" {
		t.Fatalf("expected only A left, got %q", tree.Outline())
	}
}
