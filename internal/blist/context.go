package blist

import (
	"fmt"
	"time"

	"github.com/meszmate/buddylist/internal/roster"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Filter names accepted by GlobalFilterChanged
const (
	FilterShowOfflineBuddies = "showOfflineBuddies"
	FilterShowEmptyGroups    = "showEmptyGroups"
)

// DefaultRecentWindow is how long a sign-on or sign-off keeps its
// transient rank in the status sort.
const DefaultRecentWindow = 10 * time.Second

// Filters are the global visibility switches
type Filters struct {
	ShowOfflineBuddies bool
	ShowEmptyGroups    bool
}

// UnknownFilterError is returned for a filter name that does not exist
type UnknownFilterError struct {
	Name string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("unknown filter %q", e.Name)
}

// Set updates a filter by name
func (f *Filters) Set(name string, value bool) error {
	switch name {
	case FilterShowOfflineBuddies:
		f.ShowOfflineBuddies = value
	case FilterShowEmptyGroups:
		f.ShowEmptyGroups = value
	default:
		return &UnknownFilterError{Name: name}
	}
	return nil
}

// ActivitySource reports conversation activity for buddies and chats.
// Scores are non-negative; larger means more recent or more talkative.
type ActivitySource interface {
	Score(n roster.Node) int64
}

// ActivityFunc adapts a function to an ActivitySource
type ActivityFunc func(n roster.Node) int64

// Score calls f(n)
func (f ActivityFunc) Score(n roster.Node) int64 {
	return f(n)
}

// SortKey holds the inputs of every sort policy for one node
type SortKey struct {
	// Name is the collation key of the displayed name
	Name []byte
	// Rank is the presence rank, lower sorts first
	Rank int
	// Score is the aggregated conversation activity
	Score int64
	// Until is when a transient sign-on/off rank expires, zero if none
	Until time.Time
}

// ViewContext carries the state the policies read. It replaces process
// wide settings and is passed explicitly to every policy call.
type ViewContext struct {
	Filters      Filters
	RecentWindow time.Duration
	Now          func() time.Time
	Activity     ActivitySource

	collator *collate.Collator
	buf      collate.Buffer
}

// NewViewContext creates a context collating names for the given language
func NewViewContext(lang language.Tag) *ViewContext {
	return &ViewContext{
		RecentWindow: DefaultRecentWindow,
		Now:          time.Now,
		collator:     collate.New(lang, collate.IgnoreCase),
	}
}

func (vc *ViewContext) now() time.Time {
	if vc.Now == nil {
		return time.Now()
	}
	return vc.Now()
}

// CollationKey returns a case-insensitive, locale-aware sort key for s
func (vc *ViewContext) CollationKey(s string) []byte {
	key := vc.collator.KeyFromString(&vc.buf, s)
	out := make([]byte, len(key))
	copy(out, key)
	vc.buf.Reset()
	return out
}

func (vc *ViewContext) score(n roster.Node) int64 {
	if vc.Activity == nil {
		return 0
	}
	switch n := n.(type) {
	case *roster.Contact:
		var total int64
		for _, b := range n.Buddies() {
			if s := vc.Activity.Score(b); s > 0 {
				total += s
			}
		}
		return total
	case *roster.Buddy, *roster.Chat:
		if s := vc.Activity.Score(n); s > 0 {
			return s
		}
	}
	return 0
}
