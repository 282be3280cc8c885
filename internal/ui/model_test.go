package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/meszmate/buddylist/internal/app"
	"github.com/meszmate/buddylist/internal/config"
	"github.com/meszmate/buddylist/internal/ui/keybindings"
	"github.com/meszmate/buddylist/pkg/plugin"
)

const testRoster = `
[[account]]
protocol = "xmpp"
username = "me@example.com"
connected = true

[[group]]
name = "Friends"

  [[group.contact]]
    [[group.contact.buddy]]
    account = "xmpp:me@example.com"
    name = "alice@example.com"
    alias = "Alice"
    status = "online"

  [[group.contact]]
    [[group.contact.buddy]]
    account = "xmpp:me@example.com"
    name = "bob@example.com"
    alias = "Bob"
    status = "offline"

[[group]]
name = "Work"

  [[group.contact]]
    [[group.contact.buddy]]
    account = "xmpp:me@example.com"
    name = "dave@example.com"
    alias = "Dave"
    status = "online"

  [[group.contact]]
    [[group.contact.buddy]]
    account = "xmpp:me@example.com"
    name = "dave@work.example"
    alias = "dave"
    status = "away"
`

func newTestModel(t *testing.T) Model {
	t.Helper()
	return newTestModelWith(t, nil)
}

func newTestModelWith(t *testing.T, setup func(*app.App)) Model {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.General.DataDir = dir
	cfg.BuddyList.RosterFile = filepath.Join(dir, "roster.toml")
	if err := os.WriteFile(cfg.BuddyList.RosterFile, []byte(testRoster), 0600); err != nil {
		t.Fatalf("failed to write roster: %v", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("app.New returned error: %v", err)
	}
	t.Cleanup(a.Close)
	if setup != nil {
		setup(a)
	}

	m := NewModel(a)
	return update(m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(m Model, keys string) Model {
	for _, r := range keys {
		m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestViewBeforeResize(t *testing.T) {
	m := newTestModel(t)
	m.ready = false
	if got := m.View(); got != "Loading..." {
		t.Fatalf("expected loading text, got %q", got)
	}
}

func TestViewShowsOnlineBuddies(t *testing.T) {
	m := newTestModel(t)
	view := m.View()

	for _, want := range []string{"Buddy List", "Friends", "Alice", "Work", "status"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view, got:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Bob") {
		t.Fatalf("expected offline Bob to be hidden, got:\n%s", view)
	}
}

func TestToggleOfflineKey(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "o")

	if !m.app.Synchronizer().Filters().ShowOfflineBuddies {
		t.Fatal("expected offline buddies to be shown")
	}
	view := m.View()
	if !strings.Contains(view, "Bob") {
		t.Fatalf("expected Bob in view, got:\n%s", view)
	}
	if !strings.Contains(view, "offline buddies shown") {
		t.Fatalf("expected notice in status bar, got:\n%s", view)
	}
}

func TestCycleSortKey(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "s")

	if got := m.app.Synchronizer().Policy().Name(); got != "log_size" {
		t.Fatalf("expected log_size policy, got %s", got)
	}
	if !strings.Contains(m.View(), "sorted by log_size") {
		t.Fatalf("expected sort notice, got:\n%s", m.View())
	}
}

func TestMergeProposalAnsweredWithKey(t *testing.T) {
	m := newTestModel(t)
	if m.app.PendingProposal() == nil {
		t.Fatal("expected a pending merge proposal for Dave")
	}
	if !strings.Contains(m.View(), "merge 2 contacts named") {
		t.Fatalf("expected proposal in status bar, got:\n%s", m.View())
	}

	m = press(m, "y")
	if m.app.PendingProposal() != nil {
		t.Fatal("expected proposal to be answered")
	}
	work := m.app.Roster().Group("Work")
	if got := len(work.Contacts()); got != 1 {
		t.Fatalf("expected 1 contact in Work after merge, got %d", got)
	}
}

func TestRejectWithoutProposalRepeatsSearch(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "n")
	if m.app.PendingProposal() != nil {
		t.Fatal("expected proposal to be rejected")
	}

	m = press(m, "/")
	if m.keys.Mode() != keybindings.ModeSearch {
		t.Fatalf("expected search mode, got %s", m.keys.Mode())
	}
	m = press(m, "da")
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.keys.Mode() != keybindings.ModeNormal {
		t.Fatalf("expected normal mode after enter, got %s", m.keys.Mode())
	}
	first := m.list.SelectedIndex()
	if sel := m.list.Selected(); sel == nil || !strings.EqualFold(sel.DisplayName(), "dave") {
		t.Fatalf("expected a Dave row to be selected, got %v", sel)
	}

	m = press(m, "n")
	if m.list.SelectedIndex() == first {
		t.Fatalf("expected n to move to the next match, stayed at %d", first)
	}
}

func TestMovementKeys(t *testing.T) {
	m := newTestModel(t)
	if m.list.SelectedIndex() != 0 {
		t.Fatalf("expected selection at 0, got %d", m.list.SelectedIndex())
	}
	m = press(m, "2j")
	if got := m.list.SelectedIndex(); got != 2 {
		t.Fatalf("expected count prefix to move 2 rows, got %d", got)
	}
	m = press(m, "G")
	if got, want := m.list.SelectedIndex(), m.list.Len()-1; got != want {
		t.Fatalf("expected selection at bottom %d, got %d", want, got)
	}
	m = press(m, "gg")
	if got := m.list.SelectedIndex(); got != 0 {
		t.Fatalf("expected selection at top, got %d", got)
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if got := next.(Model).View(); got != "" {
		t.Fatalf("expected empty view after quit, got %q", got)
	}
}

func TestConfigReloadAppliesPreferences(t *testing.T) {
	m := newTestModel(t)
	cfg := *m.app.Config()
	cfg.BuddyList.Sort = "alphabetical"
	cfg.UI.Theme = "nord"

	m = update(m, app.EventMsg{Type: app.EventConfigReloaded, Data: &cfg})
	if got := m.app.Synchronizer().Policy().Name(); got != "alphabetical" {
		t.Fatalf("expected alphabetical policy, got %s", got)
	}
	if got := m.themes.CurrentName(); got != "nord" {
		t.Fatalf("expected nord theme, got %s", got)
	}
	if !strings.Contains(m.View(), "configuration reloaded") {
		t.Fatalf("expected reload notice, got:\n%s", m.View())
	}
}

// runCommandLine types a command line and feeds the submitted command
// back into the model
func runCommandLine(t *testing.T, m Model, line string) Model {
	t.Helper()
	m = press(m, ":")
	if m.keys.Mode() != keybindings.ModeCommand {
		t.Fatalf("expected command mode, got %s", m.keys.Mode())
	}
	for _, r := range line {
		if r == ' ' {
			m = update(m, tea.KeyMsg{Type: tea.KeySpace})
			continue
		}
		m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("expected a command for %q", line)
	}
	return update(m, cmd())
}

func TestCommandLineMovesSelection(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "j")
	selected := m.list.Selected()
	if selected == nil || selected.DisplayName() != "Alice" {
		t.Fatalf("expected Alice selected, got %v", selected)
	}

	m = runCommandLine(t, m, "move Family")
	if m.keys.Mode() != keybindings.ModeNormal {
		t.Fatalf("expected normal mode after command, got %s", m.keys.Mode())
	}
	family := m.app.Roster().Group("Family")
	if family == nil || len(family.Contacts()) != 1 {
		t.Fatal("expected Alice in a new Family group")
	}
	if !strings.Contains(m.View(), "Family") {
		t.Fatalf("expected Family in view, got:\n%s", m.View())
	}
}

func TestCommandLineSortAndFilters(t *testing.T) {
	m := newTestModel(t)
	m = runCommandLine(t, m, "sort alphabetical")
	if got := m.app.Synchronizer().Policy().Name(); got != "alphabetical" {
		t.Fatalf("expected alphabetical policy, got %s", got)
	}

	m = runCommandLine(t, m, "show offline")
	if !m.app.Synchronizer().Filters().ShowOfflineBuddies {
		t.Fatal("expected offline buddies shown")
	}
	m = runCommandLine(t, m, "hide offline")
	if m.app.Synchronizer().Filters().ShowOfflineBuddies {
		t.Fatal("expected offline buddies hidden")
	}

	m = runCommandLine(t, m, "show everything")
	if !strings.Contains(m.View(), "unknown filter") {
		t.Fatalf("expected error notice, got:\n%s", m.View())
	}
}

func TestCommandLineTheme(t *testing.T) {
	m := newTestModel(t)
	m = runCommandLine(t, m, "theme gruvbox")
	if got := m.themes.CurrentName(); got != "gruvbox" {
		t.Fatalf("expected gruvbox theme, got %s", got)
	}
	m = runCommandLine(t, m, "bogus")
	if !strings.Contains(m.View(), "unknown command: bogus") {
		t.Fatalf("expected unknown command notice, got:\n%s", m.View())
	}
}

func TestEscapeLeavesCommandMode(t *testing.T) {
	m := newTestModel(t)
	m = press(m, ":q")
	m = update(m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.keys.Mode() != keybindings.ModeNormal {
		t.Fatalf("expected normal mode, got %s", m.keys.Mode())
	}
	if m.quitting {
		t.Fatal("expected escape to discard the typed command")
	}
}

type pingPlugin struct{}

func (pingPlugin) Info(context.Context) (plugin.Info, error) {
	return plugin.Info{
		Name:     "ping",
		Commands: []plugin.Command{{Name: "ping", Description: "Answer with pong", Values: []string{"loud"}}},
	}, nil
}

func (pingPlugin) Notify(context.Context, plugin.Event) ([]plugin.Notice, error) {
	return nil, nil
}

func (pingPlugin) Command(_ context.Context, _ string, args []string) (plugin.Reply, error) {
	return plugin.Reply{Text: "pong " + strings.Join(args, " ")}, nil
}

func TestPluginCommandRepliesInStatusBar(t *testing.T) {
	m := newTestModelWith(t, func(a *app.App) {
		if err := a.Plugins().Register(pingPlugin{}); err != nil {
			t.Fatalf("Register returned error: %v", err)
		}
	})
	if !m.command.Has("ping") {
		t.Fatalf("expected ping in the command line")
	}
	if help := m.command.Help("ping"); !strings.Contains(help, "Answer with pong") {
		t.Fatalf("expected plugin help, got %q", help)
	}

	m = runCommandLine(t, m, "ping loud")
	for i := 0; i < 10 && !strings.Contains(m.View(), "pong loud"); i++ {
		msg := m.app.ListenForEvents()()
		if msg == nil {
			break
		}
		m = update(m, msg)
	}
	if !strings.Contains(m.View(), "pong loud") {
		t.Fatalf("expected plugin reply, got:\n%s", m.View())
	}
}
