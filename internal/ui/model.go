package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/meszmate/buddylist/internal/app"
	"github.com/meszmate/buddylist/internal/blist"
	"github.com/meszmate/buddylist/internal/config"
	"github.com/meszmate/buddylist/internal/roster"
	"github.com/meszmate/buddylist/internal/ui/components/buddylist"
	"github.com/meszmate/buddylist/internal/ui/components/commandline"
	"github.com/meszmate/buddylist/internal/ui/components/statusbar"
	"github.com/meszmate/buddylist/internal/ui/keybindings"
	"github.com/meszmate/buddylist/internal/ui/theme"
	"github.com/meszmate/buddylist/pkg/plugin"
)

// Model is the root Bubble Tea model
type Model struct {
	app    *app.App
	width  int
	height int
	ready  bool

	// Components
	list      buddylist.Model
	statusbar statusbar.Model
	command   commandline.Model

	// Managers
	keys   *keybindings.Manager
	themes *theme.Manager

	search   string
	quitting bool
}

// NewModel creates a new root model
func NewModel(application *app.App) Model {
	cfg := application.Config()
	themeManager := theme.NewManager("themes", filepath.Join(cfg.General.DataDir, "themes"))
	if err := themeManager.SetTheme(cfg.UI.Theme); err != nil {
		// Fall back to default theme
		_ = themeManager.SetTheme("rainbow")
	}

	m := Model{
		app:       application,
		keys:      keybindings.NewManager(),
		themes:    themeManager,
		list:      buddylist.New(themeManager.Styles(), listOptions(cfg)),
		statusbar: statusbar.New(themeManager.Styles()),
		command: commandline.New(themeManager.Styles()).
			SetValues("theme", themeManager.AvailableThemes()),
	}
	for _, cmd := range application.PluginCommands() {
		m.command = m.command.Register(commandline.Command{
			Name:        cmd.Name,
			Description: cmd.Description,
			Args:        cmd.Args,
			Values:      cmd.Values,
		})
	}
	m.refresh()
	return m
}

func listOptions(cfg *config.Config) buddylist.Options {
	return buddylist.Options{
		ShowCounts: cfg.UI.ShowCounts,
		ShowStatus: cfg.UI.ShowStatus,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.app.Init(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateComponentSizes()

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case commandline.CommandMsg:
		m.keys.SetMode(keybindings.ModeNormal)
		m.runCommand(msg)

	case commandline.CancelMsg:
		m.keys.SetMode(keybindings.ModeNormal)

	case app.EventMsg:
		m.handleAppEvent(msg)
		cmds = append(cmds, m.app.ListenForEvents())

	case app.TickMsg:
		cmds = append(cmds, m.app.HandleTick(time.Time(msg)))
	}

	if m.quitting {
		return m, tea.Quit
	}
	m.refresh()
	return m, tea.Batch(cmds...)
}

// refresh copies the current view and preferences into the components
func (m *Model) refresh() {
	m.list = m.list.SetLines(m.app.Tree().Flatten())
	sync := m.app.Synchronizer()
	m.statusbar = m.statusbar.
		SetPreferences(sync.Policy().Name(), sync.Filters()).
		SetProposal(m.app.PendingProposal(), m.app.Proposals()).
		SetMode(m.keys.Mode(), m.search)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.keys.Mode() {
	case keybindings.ModeSearch:
		m.handleSearchKey(msg)
		return nil
	case keybindings.ModeCommand:
		if msg.Type == tea.KeyEscape || msg.Type == tea.KeyCtrlC {
			m.command = m.command.Clear()
			m.keys.SetMode(keybindings.ModeNormal)
			return nil
		}
		var cmd tea.Cmd
		m.command, cmd = m.command.Update(msg)
		return cmd
	}
	return m.handleAction(m.keys.HandleKey(msg))
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEnter:
		m.keys.SetSearchQuery(m.search)
		m.list = m.list.SearchNext(m.search)
		m.keys.SetMode(keybindings.ModeNormal)
	case tea.KeyEscape, tea.KeyCtrlC:
		m.search = ""
		m.keys.SetMode(keybindings.ModeNormal)
	case tea.KeyBackspace:
		if r := []rune(m.search); len(r) > 0 {
			m.search = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.search += " "
	case tea.KeyRunes:
		m.search += string(msg.Runes)
	}
}

// handleAction applies a keybinding action
func (m *Model) handleAction(action keybindings.Action) tea.Cmd {
	count := m.keys.Count()
	m.statusbar = m.statusbar.SetNotice("", false)

	switch action {
	case keybindings.ActionMoveDown:
		for i := 0; i < count; i++ {
			m.list = m.list.MoveDown()
		}
	case keybindings.ActionMoveUp:
		for i := 0; i < count; i++ {
			m.list = m.list.MoveUp()
		}
	case keybindings.ActionMoveTop:
		m.list = m.list.MoveToTop()
	case keybindings.ActionMoveBottom:
		m.list = m.list.MoveToBottom()
	case keybindings.ActionHalfPageUp:
		m.list = m.list.PageUp()
	case keybindings.ActionHalfPageDown:
		m.list = m.list.PageDown()

	case keybindings.ActionEnterSearch:
		m.search = ""
		m.keys.SetMode(keybindings.ModeSearch)
	case keybindings.ActionEnterCommand:
		m.command = m.command.Clear().SetValues("move", m.app.GroupNames())
		m.keys.SetMode(keybindings.ModeCommand)
	case keybindings.ActionExitMode:
		m.keys.SetMode(keybindings.ModeNormal)

	case keybindings.ActionToggleExpand:
		switch n := m.list.Selected().(type) {
		case *roster.Contact:
			m.app.ToggleExpand(n.ID())
		case *roster.Buddy:
			// the buddy's contact is the row that expands
			m.app.ToggleExpand(n.Contact().ID())
		}
	case keybindings.ActionToggleOffline:
		m.toggleFilter(blist.FilterShowOfflineBuddies)
	case keybindings.ActionToggleEmptyGroups:
		m.toggleFilter(blist.FilterShowEmptyGroups)
	case keybindings.ActionCycleSort:
		m.statusbar = m.statusbar.SetNotice("sorted by "+m.app.CycleSort(), false)
	case keybindings.ActionCyclePresence:
		if n := m.list.Selected(); n != nil {
			status, err := m.app.CyclePresence(n.ID())
			if err != nil {
				m.notifyError(err)
			} else {
				m.statusbar = m.statusbar.SetNotice(fmt.Sprintf("%s is now %s", n.DisplayName(), status), false)
			}
		}
	case keybindings.ActionNudgeUp, keybindings.ActionNudgeDown:
		delta := 1
		if action == keybindings.ActionNudgeUp {
			delta = -1
		}
		if n := m.list.Selected(); n != nil {
			if err := m.app.Nudge(n.ID(), delta); err != nil {
				m.notifyError(err)
			}
		}

	case keybindings.ActionAccept:
		err := m.app.AnswerProposal(true)
		switch {
		case errors.Is(err, app.ErrProposalStale):
			m.statusbar = m.statusbar.SetNotice(err.Error(), false)
		case err != nil:
			m.notifyError(err)
		}
	case keybindings.ActionReject:
		if m.app.PendingProposal() != nil {
			if err := m.app.AnswerProposal(false); err != nil {
				m.notifyError(err)
			}
		} else if q := m.keys.SearchQuery(); q != "" {
			m.list = m.list.SearchNext(q)
		}

	case keybindings.ActionQuit:
		m.quitting = true
	}
	return nil
}

func (m *Model) toggleFilter(name string) {
	value, err := m.app.ToggleFilter(name)
	if err != nil {
		m.notifyError(err)
		return
	}
	m.filterNotice(name, value)
}

func (m *Model) filterNotice(name string, value bool) {
	state := "hidden"
	if value {
		state = "shown"
	}
	label := "offline buddies"
	if name == blist.FilterShowEmptyGroups {
		label = "empty groups"
	}
	m.statusbar = m.statusbar.SetNotice(label+" "+state, false)
}

// runCommand executes a submitted command line
func (m *Model) runCommand(msg commandline.CommandMsg) {
	arg := strings.Join(msg.Args, " ")
	selected := m.list.Selected()
	needSelection := func() bool {
		if selected == nil {
			m.statusbar = m.statusbar.SetNotice("nothing selected", true)
			return false
		}
		return true
	}

	var err error
	switch msg.Command {
	case "help":
		m.statusbar = m.statusbar.SetNotice(m.command.Help(arg), false)
	case "quit", "q":
		m.quitting = true
	case "sort":
		if err = m.app.SetSort(arg); err == nil {
			m.statusbar = m.statusbar.SetNotice("sorted by "+arg, false)
		}
	case "show", "hide":
		name, ok := filterNames[arg]
		if !ok {
			err = fmt.Errorf("unknown filter %q, expected offline or empty", arg)
			break
		}
		show := msg.Command == "show"
		if err = m.app.SetFilter(name, show); err == nil {
			m.filterNotice(name, show)
		}
	case "move":
		if needSelection() {
			err = m.app.MoveToGroup(selected.ID(), arg)
		}
	case "rename":
		if needSelection() {
			err = m.app.Rename(selected.ID(), arg)
		}
	case "group":
		_, err = m.app.AddGroup(arg)
	case "theme":
		if err = m.themes.SetTheme(arg); err == nil {
			m.applyStyles()
		}
	default:
		if m.app.HasPluginCommand(msg.Command) {
			m.app.RunPluginCommand(msg.Command, msg.Args)
			return
		}
		err = fmt.Errorf("unknown command: %s", msg.Command)
	}
	if err != nil {
		m.notifyError(err)
	}
}

var filterNames = map[string]string{
	"offline": blist.FilterShowOfflineBuddies,
	"empty":   blist.FilterShowEmptyGroups,
}

func (m *Model) applyStyles() {
	styles := m.themes.Styles()
	m.list = m.list.SetStyles(styles)
	m.statusbar = m.statusbar.SetStyles(styles)
	m.command = m.command.SetStyles(styles)
}

func (m *Model) notifyError(err error) {
	var invariant *blist.InvariantError
	if errors.As(err, &invariant) {
		m.statusbar = m.statusbar.SetNotice("internal error: "+invariant.Error(), true)
		return
	}
	m.statusbar = m.statusbar.SetNotice(err.Error(), true)
}

// handleAppEvent handles events forwarded by the app
func (m *Model) handleAppEvent(event app.EventMsg) {
	switch event.Type {
	case app.EventConfigReloaded:
		cfg, ok := event.Data.(*config.Config)
		if !ok {
			return
		}
		m.app.ApplyConfig(cfg)
		m.statusbar = m.statusbar.SetNotice("configuration reloaded", false)
		if cfg.UI.Theme != m.themes.CurrentName() {
			if err := m.themes.SetTheme(cfg.UI.Theme); err != nil {
				m.notifyError(err)
			}
		}
		m.applyStyles()
		m.list = m.list.SetOptions(listOptions(cfg))
		m.updateComponentSizes()
	case app.EventError:
		if err, ok := event.Data.(error); ok {
			m.notifyError(err)
		}
	case app.EventPluginNotice:
		if n, ok := event.Data.(plugin.Notice); ok {
			m.statusbar = m.statusbar.SetNotice(n.Text, n.Error)
		}
	case app.EventMergeProposed, app.EventPreferencesChanged:
		// picked up by refresh
	}
}

// updateComponentSizes updates the sizes of all components
func (m *Model) updateComponentSizes() {
	listWidth := m.app.Config().UI.ListWidth
	if listWidth <= 0 || listWidth > m.width {
		listWidth = m.width
	}
	m.list = m.list.SetSize(listWidth, m.height-1)
	m.statusbar = m.statusbar.SetWidth(m.width)
	m.command = m.command.SetWidth(m.width)
}

// View renders the model
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	bottom := m.statusbar.View()
	if m.keys.Mode() == keybindings.ModeCommand {
		bottom = m.command.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Height(m.height-1).Render(m.list.View()),
		bottom,
	)
}
