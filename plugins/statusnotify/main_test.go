package main

import (
	"context"
	"errors"
	"testing"

	"github.com/meszmate/buddylist/pkg/plugin"
)

func newTestPlugin() (*StatusNotifyPlugin, *[]string) {
	var sent []string
	p := newStatusNotify()
	p.send = func(title, body string) error {
		sent = append(sent, body)
		return nil
	}
	return p, &sent
}

func TestPresenceNotices(t *testing.T) {
	p, sent := newTestPlugin()
	ctx := context.Background()

	tests := []struct {
		status string
		want   string
	}{
		{"online", "Alice is now online"},
		{"away", "Alice is away"},
		{"xa", "Alice is away"},
		{"dnd", "Alice is busy"},
		{"offline", "Alice went offline"},
	}
	for _, tt := range tests {
		notices, err := p.Notify(ctx, plugin.Event{Kind: plugin.EventPresence, Display: "Alice", Status: tt.status})
		if err != nil {
			t.Fatalf("Notify returned error: %v", err)
		}
		if len(notices) != 1 || notices[0].Text != tt.want {
			t.Fatalf("status %s: expected %q, got %+v", tt.status, tt.want, notices)
		}
	}
	if len(*sent) != len(tests) {
		t.Fatalf("expected %d desktop notifications, got %d", len(tests), len(*sent))
	}

	notices, _ := p.Notify(ctx, plugin.Event{Kind: plugin.EventPresence, Display: "Alice", Status: "bogus"})
	if len(notices) != 0 {
		t.Fatalf("expected no notice for an unknown status, got %+v", notices)
	}
}

func TestMergeNotice(t *testing.T) {
	p, _ := newTestPlugin()
	notices, err := p.Notify(context.Background(), plugin.Event{
		Kind: plugin.EventMergeProposed, Display: "Pat", Group: "Team", Candidates: 2,
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(notices) != 1 || notices[0].Text != "2 contacts in Team look like Pat" {
		t.Fatalf("unexpected notices %+v", notices)
	}
}

func TestNotifyCommandTogglesDesktop(t *testing.T) {
	p, sent := newTestPlugin()
	ctx := context.Background()

	reply, err := p.Command(ctx, "notify", []string{"off"})
	if err != nil || reply.Text != "desktop notifications off" {
		t.Fatalf("expected notifications off, got %q %v", reply.Text, err)
	}
	if _, err := p.Notify(ctx, plugin.Event{Kind: plugin.EventPresence, Display: "Bob", Status: "online"}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(*sent) != 0 {
		t.Fatalf("expected no desktop notification, got %v", *sent)
	}

	reply, _ = p.Command(ctx, "notify", nil)
	if reply.Text != "desktop notifications on" {
		t.Fatalf("expected toggle back on, got %q", reply.Text)
	}
	if _, err := p.Command(ctx, "notify", []string{"maybe"}); err == nil {
		t.Fatalf("expected usage error")
	}
	if _, err := p.Command(ctx, "ping", nil); err == nil {
		t.Fatalf("expected unknown command error")
	}
}

func TestDesktopFailureIsReported(t *testing.T) {
	p, _ := newTestPlugin()
	p.send = func(string, string) error { return errors.New("no notify-send") }

	notices, err := p.Notify(context.Background(), plugin.Event{Kind: plugin.EventPresence, Display: "Bob", Status: "online"})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(notices) != 2 || notices[0].Text != "Bob is now online" || !notices[1].Error {
		t.Fatalf("expected the notice plus an error, got %+v", notices)
	}
}

func TestInfoListsNotifyCommand(t *testing.T) {
	info, err := newStatusNotify().Info(context.Background())
	if err != nil {
		t.Fatalf("Info returned error: %v", err)
	}
	if info.Name != "statusnotify" || len(info.Commands) != 1 || info.Commands[0].Name != "notify" {
		t.Fatalf("unexpected info %+v", info)
	}
}
