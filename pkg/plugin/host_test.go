package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakePlugin struct {
	info   Info
	events []Event
	fail   error
}

func (p *fakePlugin) Info(context.Context) (Info, error) {
	return p.info, nil
}

func (p *fakePlugin) Notify(_ context.Context, event Event) ([]Notice, error) {
	if p.fail != nil {
		return nil, p.fail
	}
	p.events = append(p.events, event)
	return []Notice{{Text: p.info.Name + " saw " + event.Display}}, nil
}

func (p *fakePlugin) Command(_ context.Context, name string, args []string) (Reply, error) {
	if p.fail != nil {
		return Reply{}, p.fail
	}
	return Reply{Text: name + " " + strings.Join(args, " ")}, nil
}

func newFake(name string, commands ...string) *fakePlugin {
	p := &fakePlugin{info: Info{Name: name, Version: "1.0.0"}}
	for _, c := range commands {
		p.info.Commands = append(p.info.Commands, Command{Name: c})
	}
	return p
}

func TestHostNotifyCollectsNotices(t *testing.T) {
	h := NewHost(t.TempDir(), nil)
	b := newFake("beta")
	a := newFake("alpha")
	for _, p := range []*fakePlugin{b, a} {
		if err := h.Register(p); err != nil {
			t.Fatalf("Register returned error: %v", err)
		}
	}

	notices := h.Notify(context.Background(), Event{Kind: EventPresence, Display: "Alice", Status: "online"})
	if len(notices) != 2 || notices[0].Text != "alpha saw Alice" || notices[1].Text != "beta saw Alice" {
		t.Fatalf("expected notices in plugin name order, got %+v", notices)
	}
	if len(a.events) != 1 || a.events[0].Status != "online" {
		t.Fatalf("expected alpha to receive the event, got %+v", a.events)
	}

	b.fail = errors.New("boom")
	notices = h.Notify(context.Background(), Event{Kind: EventPresence, Display: "Bob"})
	if len(notices) != 2 || !notices[1].Error || !strings.Contains(notices[1].Text, "plugin beta: boom") {
		t.Fatalf("expected an error notice from beta, got %+v", notices)
	}
}

func TestHostRunsPluginCommands(t *testing.T) {
	h := NewHost(t.TempDir(), nil)
	if err := h.Register(newFake("notify", "notify")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !h.Has("notify") || h.Has("sort") {
		t.Fatalf("expected only notify to be a plugin command")
	}
	if cmds := h.Commands(); len(cmds) != 1 || cmds[0].Name != "notify" {
		t.Fatalf("expected [notify], got %+v", cmds)
	}

	reply, err := h.Run(context.Background(), "notify", []string{"off"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if reply.Text != "notify off" {
		t.Fatalf("expected %q, got %q", "notify off", reply.Text)
	}
	if _, err := h.Run(context.Background(), "sort", nil); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestHostRejectsDuplicates(t *testing.T) {
	h := NewHost(t.TempDir(), nil)
	if err := h.Register(newFake("first", "ping")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := h.Register(newFake("first")); err == nil {
		t.Fatalf("expected error for duplicate plugin name")
	}
	if err := h.Register(newFake("second", "ping")); err == nil {
		t.Fatalf("expected error for duplicate command")
	}
	if err := h.Register(newFake("")); err == nil {
		t.Fatalf("expected error for unnamed plugin")
	}

	h.Unload("first")
	if h.Has("ping") || len(h.List()) != 0 {
		t.Fatalf("expected first to be unloaded")
	}
}

func TestLoadAllReportsMissingPlugins(t *testing.T) {
	dir := t.TempDir()
	h := NewHost(dir, nil)
	if err := h.LoadAll(nil); err != nil {
		t.Fatalf("expected no error without plugins, got %v", err)
	}

	err := h.LoadAll([]string{"missing"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	// not a plugin executable
	path := filepath.Join(dir, "broken")
	if err := os.WriteFile(path, []byte("not a binary"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := h.LoadAll([]string{"broken"}); err == nil {
		t.Fatalf("expected error loading a non-executable")
	}
	if len(h.List()) != 0 {
		t.Fatalf("expected no plugins loaded")
	}
}
