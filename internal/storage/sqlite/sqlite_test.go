package sqlite

import (
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMessagesAndLogSize(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{
		{ID: "1", Account: "xmpp:me@example.com", Name: "alice@example.com", Body: "hi", Timestamp: base},
		{ID: "2", Account: "xmpp:me@example.com", Name: "alice@example.com", Body: "héllo", Timestamp: base.Add(time.Minute), Outgoing: true},
		{ID: "3", Account: "xmpp:me@example.com", Name: "bob@example.com", Body: "yo", Timestamp: base},
	}
	for _, m := range msgs {
		if err := db.SaveMessage(m); err != nil {
			t.Fatalf("SaveMessage returned error: %v", err)
		}
	}

	got, err := db.GetMessages("xmpp:me@example.com", "alice@example.com", 10, 0)
	if err != nil {
		t.Fatalf("GetMessages returned error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1" || !got[1].Outgoing {
		t.Fatalf("expected two messages oldest first, got %+v", got)
	}

	size, err := db.LogSize("xmpp:me@example.com", "alice@example.com")
	if err != nil {
		t.Fatalf("LogSize returned error: %v", err)
	}
	if size != 8 {
		t.Fatalf("expected 8 bytes, got %d", size)
	}
	if size, _ := db.LogSize("xmpp:me@example.com", "nobody@example.com"); size != 0 {
		t.Fatalf("expected empty log, got %d", size)
	}

	sizes, err := db.LogSizes()
	if err != nil {
		t.Fatalf("LogSizes returned error: %v", err)
	}
	if sizes[LogKey{"xmpp:me@example.com", "bob@example.com"}] != 2 || len(sizes) != 2 {
		t.Fatalf("unexpected sizes %v", sizes)
	}

	if err := db.DeleteMessages("xmpp:me@example.com", "alice@example.com"); err != nil {
		t.Fatalf("DeleteMessages returned error: %v", err)
	}
	if count, _ := db.GetMessageCount(); count != 1 {
		t.Fatalf("expected 1 message left, got %d", count)
	}
}

func TestExpandedRoundTrip(t *testing.T) {
	db := newTestDB(t)
	if keys, err := db.LoadExpanded(); err != nil || keys != nil {
		t.Fatalf("expected nothing stored, got %v %v", keys, err)
	}
	if err := db.SaveExpanded([]string{"Friends/xmpp:me@example.com/alice@example.com"}); err != nil {
		t.Fatalf("SaveExpanded returned error: %v", err)
	}
	keys, err := db.LoadExpanded()
	if err != nil || len(keys) != 1 {
		t.Fatalf("expected one key, got %v %v", keys, err)
	}
	if err := db.SaveExpanded(nil); err != nil {
		t.Fatalf("SaveExpanded returned error: %v", err)
	}
	if keys, _ := db.LoadExpanded(); keys != nil {
		t.Fatalf("expected cleared keys, got %v", keys)
	}
}

func TestDeleteOldMessages(t *testing.T) {
	db := newTestDB(t)
	_ = db.SaveMessage(Message{ID: "old", Account: "a", Name: "b", Body: "x", Timestamp: time.Now().AddDate(0, 0, -30)})
	_ = db.SaveMessage(Message{ID: "new", Account: "a", Name: "b", Body: "y", Timestamp: time.Now()})

	n, err := db.DeleteOldMessages(7)
	if err != nil {
		t.Fatalf("DeleteOldMessages returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted message, got %d", n)
	}
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer db.Close()
	if err := db.SetAppState("k", "v"); err != nil {
		t.Fatalf("SetAppState returned error: %v", err)
	}
	if v, _ := db.GetAppState("k"); v != "v" {
		t.Fatalf("expected v, got %q", v)
	}
}
