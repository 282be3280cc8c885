package keybindings

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Mode represents the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeCommand
)

// String returns the string representation of the mode
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeSearch:
		return "SEARCH"
	case ModeCommand:
		return "COMMAND"
	default:
		return "UNKNOWN"
	}
}

// Action represents a keybinding action
type Action int

const (
	ActionNone Action = iota

	// Navigation
	ActionMoveUp
	ActionMoveDown
	ActionMoveTop
	ActionMoveBottom
	ActionHalfPageUp
	ActionHalfPageDown

	// Modes
	ActionEnterSearch
	ActionEnterCommand
	ActionExitMode

	// Buddy list
	ActionToggleExpand
	ActionToggleOffline
	ActionToggleEmptyGroups
	ActionCycleSort
	ActionCyclePresence
	ActionNudgeUp
	ActionNudgeDown

	// Merge proposals; reject also repeats the last search when nothing
	// is pending
	ActionAccept
	ActionReject

	ActionQuit
)

// Manager handles keybindings and mode management
type Manager struct {
	mode        Mode
	bindings    map[Mode]map[string]Action
	pendingKeys string
	searchQuery string
	count       int
	countBuffer string
}

// NewManager creates a new keybinding manager
func NewManager() *Manager {
	m := &Manager{
		mode:     ModeNormal,
		bindings: make(map[Mode]map[string]Action),
	}
	m.setupDefaultBindings()
	return m
}

// setupDefaultBindings sets up the default vim-like keybindings
func (m *Manager) setupDefaultBindings() {
	m.bindings[ModeNormal] = map[string]Action{
		// Movement
		"j":      ActionMoveDown,
		"k":      ActionMoveUp,
		"down":   ActionMoveDown,
		"up":     ActionMoveUp,
		"gg":     ActionMoveTop,
		"G":      ActionMoveBottom,
		"home":   ActionMoveTop,
		"end":    ActionMoveBottom,
		"ctrl+u": ActionHalfPageUp,
		"ctrl+d": ActionHalfPageDown,
		"pgup":   ActionHalfPageUp,
		"pgdown": ActionHalfPageDown,

		"/":      ActionEnterSearch,
		":":      ActionEnterCommand,
		"escape": ActionExitMode,

		// Buddy list
		"space": ActionToggleExpand,
		"enter": ActionToggleExpand,
		"o":     ActionToggleOffline,
		"e":     ActionToggleEmptyGroups,
		"s":     ActionCycleSort,
		"p":     ActionCyclePresence,
		"K":     ActionNudgeUp,
		"J":     ActionNudgeDown,

		"y": ActionAccept,
		"n": ActionReject,

		"q":      ActionQuit,
		"ctrl+c": ActionQuit,
		"ZZ":     ActionQuit,
	}

	m.bindings[ModeSearch] = map[string]Action{
		"escape": ActionExitMode,
		"ctrl+c": ActionQuit,
	}
}

// Mode returns the current mode
func (m *Manager) Mode() Mode {
	return m.mode
}

// SetMode sets the current mode
func (m *Manager) SetMode(mode Mode) {
	m.mode = mode
	m.pendingKeys = ""
	m.countBuffer = ""
	m.count = 0
}

// Count returns the current count prefix (for commands like 5j)
func (m *Manager) Count() int {
	if m.count == 0 {
		return 1
	}
	return m.count
}

// SearchQuery returns the current search query
func (m *Manager) SearchQuery() string {
	return m.searchQuery
}

// SetSearchQuery sets the search query
func (m *Manager) SetSearchQuery(query string) {
	m.searchQuery = query
}

// HandleKey processes a key message and returns the corresponding action.
// Digits typed before a command in normal mode become its count.
func (m *Manager) HandleKey(msg tea.KeyMsg) Action {
	key := keyName(msg)

	if m.mode == ModeNormal && m.pendingKeys == "" && isCountDigit(key, m.countBuffer) {
		m.countBuffer += key
		return ActionNone
	}
	if m.pendingKeys == "" {
		m.count, _ = strconv.Atoi(m.countBuffer)
	}

	m.pendingKeys += key
	action, ok := m.bindings[m.mode][m.pendingKeys]
	switch {
	case ok:
		m.pendingKeys = ""
		m.countBuffer = ""
		return action
	case m.hasPendingPrefix():
		return ActionNone
	}

	m.pendingKeys = ""
	m.countBuffer = ""
	m.count = 0
	return ActionNone
}

// hasPendingPrefix checks if pending keys could be a prefix of a binding
func (m *Manager) hasPendingPrefix() bool {
	for binding := range m.bindings[m.mode] {
		if strings.HasPrefix(binding, m.pendingKeys) && binding != m.pendingKeys {
			return true
		}
	}
	return false
}

// Bind adds or updates a key binding
func (m *Manager) Bind(mode Mode, key string, action Action) {
	if m.bindings[mode] == nil {
		m.bindings[mode] = make(map[string]Action)
	}
	m.bindings[mode][key] = action
}

// Unbind removes a key binding
func (m *Manager) Unbind(mode Mode, key string) {
	if m.bindings[mode] != nil {
		delete(m.bindings[mode], key)
	}
}

// keyName names a key the way bindings are written. Bubble Tea already
// spells most keys this way; space and escape are spelled out.
func keyName(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeySpace:
		return "space"
	case tea.KeyEscape:
		return "escape"
	}
	return msg.String()
}

// isCountDigit reports whether key extends a count prefix. A leading zero
// is not a count.
func isCountDigit(key, buffer string) bool {
	if len(key) != 1 || key[0] < '0' || key[0] > '9' {
		return false
	}
	return key != "0" || buffer != ""
}

var actionNames = map[Action]string{
	ActionNone:              "none",
	ActionMoveUp:            "move up",
	ActionMoveDown:          "move down",
	ActionMoveTop:           "move to top",
	ActionMoveBottom:        "move to bottom",
	ActionHalfPageUp:        "half page up",
	ActionHalfPageDown:      "half page down",
	ActionEnterSearch:       "search",
	ActionEnterCommand:      "command line",
	ActionExitMode:          "exit mode",
	ActionToggleExpand:      "expand or collapse contact",
	ActionToggleOffline:     "show or hide offline buddies",
	ActionToggleEmptyGroups: "show or hide empty groups",
	ActionCycleSort:         "next sort order",
	ActionCyclePresence:     "cycle presence",
	ActionNudgeUp:           "move row up",
	ActionNudgeDown:         "move row down",
	ActionAccept:            "accept merge",
	ActionReject:            "reject merge",
	ActionQuit:              "quit",
}

// ActionName returns a human-readable name for an action
func ActionName(action Action) string {
	if name, ok := actionNames[action]; ok {
		return name
	}
	return "unknown"
}
