package app

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/meszmate/buddylist/internal/config"
	"github.com/meszmate/buddylist/pkg/plugin"
)

type echoPlugin struct {
	events chan plugin.Event
}

func (p *echoPlugin) Info(context.Context) (plugin.Info, error) {
	return plugin.Info{
		Name:     "echo",
		Version:  "0.1.0",
		Commands: []plugin.Command{{Name: "echo", Values: []string{"hello"}}},
	}, nil
}

func (p *echoPlugin) Notify(_ context.Context, ev plugin.Event) ([]plugin.Notice, error) {
	p.events <- ev
	return []plugin.Notice{{Text: fmt.Sprintf("%s %s %s", ev.Kind, ev.Display, ev.Status)}}, nil
}

func (p *echoPlugin) Command(_ context.Context, name string, args []string) (plugin.Reply, error) {
	if len(args) == 0 {
		return plugin.Reply{}, fmt.Errorf("%s needs an argument", name)
	}
	return plugin.Reply{Text: strings.Join(args, " ")}, nil
}

func registerEcho(t *testing.T, a *App) *echoPlugin {
	t.Helper()
	p := &echoPlugin{events: make(chan plugin.Event, 10)}
	if err := a.Plugins().Register(p); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	return p
}

// nextNotice waits for a plugin notice, skipping other events
func nextNotice(t *testing.T, a *App) plugin.Notice {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-a.events:
			if n, ok := ev.Data.(plugin.Notice); ok && ev.Type == EventPluginNotice {
				return n
			}
		case <-timeout:
			t.Fatalf("expected a plugin notice")
		}
	}
}

func TestPresenceChangesReachPlugins(t *testing.T) {
	a := newTestApp(t, friendsRoster, nil)
	registerEcho(t, a)

	alice := findContact(t, a, "Alice")
	status, err := a.CyclePresence(alice.ID())
	if err != nil {
		t.Fatalf("CyclePresence returned error: %v", err)
	}
	n := nextNotice(t, a)
	if want := "presence Alice " + status.String(); n.Text != want {
		t.Fatalf("expected %q, got %q", want, n.Text)
	}
}

func TestMergeProposalsReachPlugins(t *testing.T) {
	a := newTestApp(t, friendsRoster, nil)
	p := registerEcho(t, a)

	alice := findContact(t, a, "Alice")
	if err := a.Roster().SetAlias(alice, "Carol"); err != nil {
		t.Fatalf("SetAlias returned error: %v", err)
	}
	n := nextNotice(t, a)
	if n.Text != "merge_proposed Carol " {
		t.Fatalf("expected merge notice, got %q", n.Text)
	}
	ev := <-p.events
	if ev.Group != "Friends" || ev.Candidates != 2 {
		t.Fatalf("expected 2 candidates in Friends, got %+v", ev)
	}
}

func TestRunPluginCommand(t *testing.T) {
	a := newTestApp(t, friendsRoster, nil)
	registerEcho(t, a)

	if !a.HasPluginCommand("echo") || a.HasPluginCommand("sort") {
		t.Fatalf("expected echo to be the only plugin command")
	}
	if cmds := a.PluginCommands(); len(cmds) != 1 || cmds[0].Name != "echo" {
		t.Fatalf("expected [echo], got %+v", cmds)
	}

	a.RunPluginCommand("echo", []string{"hi", "there"})
	if n := nextNotice(t, a); n.Text != "hi there" || n.Error {
		t.Fatalf("expected reply %q, got %+v", "hi there", n)
	}

	a.RunPluginCommand("echo", nil)
	if n := nextNotice(t, a); !n.Error || !strings.Contains(n.Text, "echo needs an argument") {
		t.Fatalf("expected an error notice, got %+v", n)
	}
}

func TestMissingPluginDoesNotStopStartup(t *testing.T) {
	a := newTestApp(t, friendsRoster, func(cfg *config.Config) {
		cfg.Plugins.Enabled = []string{"nowhere"}
	})
	if len(a.Plugins().List()) != 0 {
		t.Fatalf("expected no plugins loaded")
	}
	if a.Tree().Len() == 0 {
		t.Fatalf("expected the view to be built")
	}
}
