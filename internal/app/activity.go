package app

import (
	"github.com/meszmate/buddylist/internal/logging"
	"github.com/meszmate/buddylist/internal/roster"
	"github.com/meszmate/buddylist/internal/storage/sqlite"
)

// logActivity scores buddies and chats by the size of their message log
type logActivity struct {
	sizes map[sqlite.LogKey]int64
}

func newLogActivity(db *sqlite.DB) *logActivity {
	a := &logActivity{sizes: make(map[sqlite.LogKey]int64)}
	if db == nil {
		return a
	}
	sizes, err := db.LogSizes()
	if err != nil {
		logging.Warn("failed to load log sizes: %v", err)
		return a
	}
	a.sizes = sizes
	return a
}

// Score implements blist.ActivitySource
func (a *logActivity) Score(n roster.Node) int64 {
	key, ok := logKey(n)
	if !ok {
		return 0
	}
	return a.sizes[key]
}

func (a *logActivity) add(key sqlite.LogKey, bytes int64) {
	a.sizes[key] += bytes
}

func logKey(n roster.Node) (sqlite.LogKey, bool) {
	switch n := n.(type) {
	case *roster.Buddy:
		return sqlite.LogKey{Account: n.Account().ID, Name: n.Name()}, true
	case *roster.Chat:
		return sqlite.LogKey{Account: n.Account().ID, Name: n.Name()}, true
	}
	return sqlite.LogKey{}, false
}
