package commandline

import (
	"slices"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/meszmate/buddylist/internal/ui/theme"
)

// CommandMsg is sent when a command line is submitted
type CommandMsg struct {
	Command string
	Args    []string
}

// CancelMsg is sent when command mode should be exited (backspace on empty input)
type CancelMsg struct{}

// Command represents a registered command
type Command struct {
	Name        string
	Description string
	Args        []string

	// Values completes the first argument
	Values []string
}

// Model represents the command line component
type Model struct {
	input       []rune
	cursorPos   int
	width       int
	styles      *theme.Styles
	commands    map[string]Command
	completions []string
	compIndex   int
	history     []string
	historyPos  int
}

// New creates a new command line model
func New(styles *theme.Styles) Model {
	m := Model{
		styles:     styles,
		commands:   make(map[string]Command),
		historyPos: -1,
	}
	m.registerDefaultCommands()
	return m
}

func (m *Model) registerDefaultCommands() {
	commands := []Command{
		{Name: "help", Description: "Show help for all commands or a specific command", Args: []string{"[command]"}},
		{Name: "quit", Description: "Quit the application"},
		{Name: "q", Description: "Quit the application (alias)"},

		{Name: "sort", Description: "Sort by none, alphabetical, status or log_size", Args: []string{"policy"},
			Values: []string{"none", "alphabetical", "status", "log_size"}},
		{Name: "show", Description: "Show offline buddies or empty groups", Args: []string{"offline|empty"},
			Values: []string{"offline", "empty"}},
		{Name: "hide", Description: "Hide offline buddies or empty groups", Args: []string{"offline|empty"},
			Values: []string{"offline", "empty"}},

		{Name: "move", Description: "Move the selected contact, chat or buddy to a group", Args: []string{"group"}},
		{Name: "rename", Description: "Set the alias of the selected row, or rename a group", Args: []string{"name"}},
		{Name: "group", Description: "Add an empty group", Args: []string{"name"}},

		{Name: "theme", Description: "Switch the color theme", Args: []string{"name"}},
	}
	for _, cmd := range commands {
		m.commands[cmd.Name] = cmd
	}
}

// SetWidth sets the command line width
func (m Model) SetWidth(width int) Model {
	m.width = width
	return m
}

// SetStyles sets the styles used to render
func (m Model) SetStyles(styles *theme.Styles) Model {
	m.styles = styles
	return m
}

// Register adds a command. Built-in commands are not replaced.
func (m Model) Register(cmd Command) Model {
	if cmd.Name == "" || m.Has(cmd.Name) {
		return m
	}
	m.commands[cmd.Name] = cmd
	return m
}

// SetValues replaces the argument completions of a command
func (m Model) SetValues(name string, values []string) Model {
	cmd, ok := m.commands[name]
	if !ok {
		return m
	}
	cmd.Values = values
	m.commands[name] = cmd
	return m
}

// Clear clears the input
func (m Model) Clear() Model {
	m.input = nil
	m.cursorPos = 0
	m.completions = nil
	m.compIndex = 0
	return m
}

// Input returns the text typed so far
func (m Model) Input() string {
	return string(m.input)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyRunes:
		m = m.insert(key.Runes...)

	case tea.KeySpace:
		m = m.insert(' ')

	case tea.KeyBackspace:
		if m.cursorPos > 0 {
			m.input = slices.Delete(slices.Clone(m.input), m.cursorPos-1, m.cursorPos)
			m.cursorPos--
			m.completions = nil
		} else if len(m.input) == 0 {
			return m, func() tea.Msg { return CancelMsg{} }
		}

	case tea.KeyDelete:
		if m.cursorPos < len(m.input) {
			m.input = slices.Delete(slices.Clone(m.input), m.cursorPos, m.cursorPos+1)
			m.completions = nil
		}

	case tea.KeyLeft:
		if m.cursorPos > 0 {
			m.cursorPos--
		}
	case tea.KeyRight:
		if m.cursorPos < len(m.input) {
			m.cursorPos++
		}
	case tea.KeyHome, tea.KeyCtrlA:
		m.cursorPos = 0
	case tea.KeyEnd, tea.KeyCtrlE:
		m.cursorPos = len(m.input)

	case tea.KeyUp:
		if m.historyPos < len(m.history)-1 {
			m.historyPos++
			m = m.setInput(m.history[len(m.history)-1-m.historyPos])
		}
	case tea.KeyDown:
		if m.historyPos > 0 {
			m.historyPos--
			m = m.setInput(m.history[len(m.history)-1-m.historyPos])
		} else if m.historyPos == 0 {
			m.historyPos = -1
			m = m.setInput("")
		}

	case tea.KeyTab:
		m = m.complete()

	case tea.KeyCtrlU:
		m.input = slices.Clone(m.input[m.cursorPos:])
		m.cursorPos = 0
		m.completions = nil

	case tea.KeyCtrlW:
		pos := m.cursorPos
		for pos > 0 && m.input[pos-1] == ' ' {
			pos--
		}
		for pos > 0 && m.input[pos-1] != ' ' {
			pos--
		}
		m.input = append(slices.Clone(m.input[:pos]), m.input[m.cursorPos:]...)
		m.cursorPos = pos
		m.completions = nil

	case tea.KeyEnter:
		line := strings.TrimSpace(string(m.input))
		if line == "" {
			return m, func() tea.Msg { return CancelMsg{} }
		}
		m.history = append(m.history, line)
		m.historyPos = -1
		cmd, args := parseCommand(line)
		m = m.Clear()
		return m, func() tea.Msg {
			return CommandMsg{Command: cmd, Args: args}
		}
	}

	return m, nil
}

func (m Model) insert(r ...rune) Model {
	m.input = slices.Insert(slices.Clone(m.input), m.cursorPos, r...)
	m.cursorPos += len(r)
	m.completions = nil
	return m
}

func (m Model) setInput(s string) Model {
	m.input = []rune(s)
	m.cursorPos = len(m.input)
	m.completions = nil
	return m
}

// complete completes the word before the cursor, cycling on repeat
func (m Model) complete() Model {
	if m.completions == nil {
		m.completions = m.getCompletions()
		m.compIndex = 0
	} else if len(m.completions) > 0 {
		m.compIndex = (m.compIndex + 1) % len(m.completions)
	}
	if len(m.completions) == 0 {
		return m
	}

	text := string(m.input)
	start := strings.LastIndex(text, " ") + 1
	completions := m.completions
	m = m.setInput(text[:start] + completions[m.compIndex])
	m.completions = completions
	return m
}

// getCompletions returns candidates for the word being typed: command
// names first, then the command's argument values
func (m Model) getCompletions() []string {
	text := string(m.input)
	parts := strings.Fields(text)
	trailing := strings.HasSuffix(text, " ")

	var prefix string
	var candidates []string
	switch {
	case len(parts) == 0 || (len(parts) == 1 && !trailing):
		if len(parts) == 1 {
			prefix = parts[0]
		}
		for name := range m.commands {
			candidates = append(candidates, name)
		}
	case len(parts) == 1 || (len(parts) == 2 && !trailing):
		if len(parts) == 2 {
			prefix = parts[1]
		}
		candidates = m.commands[parts[0]].Values
	default:
		return nil
	}

	var completions []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			completions = append(completions, c)
		}
	}
	sort.Strings(completions)
	return completions
}

// parseCommand splits a line into command and arguments
func parseCommand(line string) (string, []string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

// Help returns a one-line usage for a command, or for all of them
func (m Model) Help(name string) string {
	if cmd, ok := m.commands[name]; ok {
		usage := ":" + cmd.Name
		if len(cmd.Args) > 0 {
			usage += " " + strings.Join(cmd.Args, " ")
		}
		return usage + "  " + cmd.Description
	}
	names := make([]string, 0, len(m.commands))
	for n := range m.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return "commands: " + strings.Join(names, " ")
}

// Has reports whether a command is registered
func (m Model) Has(name string) bool {
	_, ok := m.commands[name]
	return ok
}

// View renders the command line
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	prompt := m.styles.CommandPrompt.Render(":")

	before := string(m.input[:m.cursorPos])
	cursorChar := " "
	after := ""
	if m.cursorPos < len(m.input) {
		cursorChar = string(m.input[m.cursorPos])
		after = string(m.input[m.cursorPos+1:])
	}
	cursor := lipgloss.NewStyle().Reverse(true).Render(cursorChar)

	var hint string
	if len(m.completions) > 1 {
		hint = m.styles.CommandCompletion.Render(" (" + strings.Join(m.completions, " | ") + ")")
	}

	return lipgloss.NewStyle().MaxWidth(m.width).Render(prompt + before + cursor + after + hint)
}
