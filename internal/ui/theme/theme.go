package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

// Theme represents a complete UI theme
type Theme struct {
	Name        string          `toml:"name"`
	Description string          `toml:"description"`
	Colors      ColorsConfig    `toml:"colors"`
	BuddyList   BuddyListConfig `toml:"buddylist"`
	StatusBar   StatusBarConfig `toml:"statusbar"`
}

// ColorsConfig contains the base color palette
type ColorsConfig struct {
	Primary    string `toml:"primary"`
	Background string `toml:"background"`
	Foreground string `toml:"foreground"`
	Muted      string `toml:"muted"`
	Border     string `toml:"border"`
	Error      string `toml:"error"`
	Warning    string `toml:"warning"`
	Online     string `toml:"online"`
	Away       string `toml:"away"`
	DND        string `toml:"dnd"`
	XA         string `toml:"xa"`
	Offline    string `toml:"offline"`
}

// BuddyListConfig contains buddy list styles
type BuddyListConfig struct {
	HeaderFg   string `toml:"header_fg"`
	HeaderBg   string `toml:"header_bg"`
	SelectedFg string `toml:"selected_fg"`
	SelectedBg string `toml:"selected_bg"`
	GroupFg    string `toml:"group_fg"`
	ContactFg  string `toml:"contact_fg"`
	ChatFg     string `toml:"chat_fg"`
}

// StatusBarConfig contains status bar styles
type StatusBarConfig struct {
	Fg       string `toml:"fg"`
	Bg       string `toml:"bg"`
	PolicyBg string `toml:"policy_bg"`
	NoticeFg string `toml:"notice_fg"`
}

// Styles contains the compiled lipgloss styles for a theme
type Styles struct {
	Base   lipgloss.Style
	Border lipgloss.Style

	// Buddy list styles
	ListHeader   lipgloss.Style
	ListSelected lipgloss.Style
	ListGroup    lipgloss.Style
	ListContact  lipgloss.Style
	ListChat     lipgloss.Style
	ListMuted    lipgloss.Style

	// Presence styles
	PresenceOnline  lipgloss.Style
	PresenceAway    lipgloss.Style
	PresenceDND     lipgloss.Style
	PresenceXA      lipgloss.Style
	PresenceOffline lipgloss.Style

	// Status bar styles
	StatusBar    lipgloss.Style
	StatusPolicy lipgloss.Style
	StatusNotice lipgloss.Style
	StatusError  lipgloss.Style

	// Command line styles
	CommandPrompt     lipgloss.Style
	CommandCompletion lipgloss.Style
}

// Manager handles theme loading and switching
type Manager struct {
	themes      map[string]*Theme
	current     *Theme
	currentName string
	styles      *Styles
	themeDirs   []string
}

// NewManager creates a new theme manager
func NewManager(themeDirs ...string) *Manager {
	m := &Manager{
		themes:    make(map[string]*Theme),
		themeDirs: themeDirs,
	}

	m.themes["rainbow"] = RainbowTheme()
	m.themes["nord"] = NordTheme()
	m.themes["gruvbox"] = GruvboxTheme()

	m.current = m.themes["rainbow"]
	m.currentName = "rainbow"
	m.styles = m.compileStyles(m.current)

	return m
}

// LoadTheme loads a theme from a TOML file
func (m *Manager) LoadTheme(name string) error {
	for _, dir := range m.themeDirs {
		path := filepath.Join(dir, name+".toml")
		if _, err := os.Stat(path); err == nil {
			theme := *RainbowTheme()
			if _, err := toml.DecodeFile(path, &theme); err != nil {
				return fmt.Errorf("failed to parse theme file %s: %w", path, err)
			}
			theme.Name = name
			m.themes[name] = &theme
			return nil
		}
	}
	return fmt.Errorf("theme %s not found", name)
}

// SetTheme switches to a different theme
func (m *Manager) SetTheme(name string) error {
	theme, ok := m.themes[name]
	if !ok {
		if err := m.LoadTheme(name); err != nil {
			return err
		}
		theme = m.themes[name]
	}
	m.current = theme
	m.currentName = name
	m.styles = m.compileStyles(theme)
	return nil
}

// Current returns the current theme
func (m *Manager) Current() *Theme {
	return m.current
}

// CurrentName returns the current theme name
func (m *Manager) CurrentName() string {
	return m.currentName
}

// Styles returns the compiled styles for the current theme
func (m *Manager) Styles() *Styles {
	return m.styles
}

// AvailableThemes returns the names of the loaded themes, sorted
func (m *Manager) AvailableThemes() []string {
	names := make([]string, 0, len(m.themes))
	for name := range m.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// compileStyles compiles a theme into lipgloss styles
func (m *Manager) compileStyles(t *Theme) *Styles {
	s := &Styles{}
	color := func(c string) lipgloss.Color { return lipgloss.Color(c) }

	s.Base = lipgloss.NewStyle().
		Foreground(color(t.Colors.Foreground))

	s.Border = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color(t.Colors.Border))

	s.ListHeader = lipgloss.NewStyle().
		Foreground(color(t.BuddyList.HeaderFg)).
		Background(color(t.BuddyList.HeaderBg)).
		Bold(true).
		Padding(0, 1)

	s.ListSelected = lipgloss.NewStyle().
		Foreground(color(t.BuddyList.SelectedFg)).
		Background(color(t.BuddyList.SelectedBg)).
		Bold(true)

	s.ListGroup = lipgloss.NewStyle().
		Foreground(color(t.BuddyList.GroupFg)).
		Bold(true)

	s.ListContact = lipgloss.NewStyle().
		Foreground(color(t.BuddyList.ContactFg))

	s.ListChat = lipgloss.NewStyle().
		Foreground(color(t.BuddyList.ChatFg)).
		Italic(true)

	s.ListMuted = lipgloss.NewStyle().
		Foreground(color(t.Colors.Muted))

	s.PresenceOnline = lipgloss.NewStyle().Foreground(color(t.Colors.Online))
	s.PresenceAway = lipgloss.NewStyle().Foreground(color(t.Colors.Away))
	s.PresenceDND = lipgloss.NewStyle().Foreground(color(t.Colors.DND))
	s.PresenceXA = lipgloss.NewStyle().Foreground(color(t.Colors.XA))
	s.PresenceOffline = lipgloss.NewStyle().Foreground(color(t.Colors.Offline))

	s.StatusBar = lipgloss.NewStyle().
		Foreground(color(t.StatusBar.Fg)).
		Background(color(t.StatusBar.Bg))

	s.StatusPolicy = lipgloss.NewStyle().
		Foreground(color(t.Colors.Background)).
		Background(color(t.StatusBar.PolicyBg)).
		Bold(true).
		Padding(0, 1)

	s.StatusNotice = lipgloss.NewStyle().
		Foreground(color(t.StatusBar.NoticeFg)).
		Background(color(t.StatusBar.Bg)).
		Bold(true)

	s.StatusError = lipgloss.NewStyle().
		Foreground(color(t.Colors.Error)).
		Background(color(t.StatusBar.Bg)).
		Bold(true)

	s.CommandPrompt = lipgloss.NewStyle().
		Foreground(color(t.Colors.Primary)).
		Bold(true)

	s.CommandCompletion = lipgloss.NewStyle().
		Foreground(color(t.Colors.Muted))

	return s
}

// RainbowTheme is the default theme
func RainbowTheme() *Theme {
	return &Theme{
		Name:        "rainbow",
		Description: "Bright colors on a dark terminal",
		Colors: ColorsConfig{
			Primary:    "#ff79c6",
			Background: "#1e1e2e",
			Foreground: "#cdd6f4",
			Muted:      "#6c7086",
			Border:     "#89b4fa",
			Error:      "#f38ba8",
			Warning:    "#fab387",
			Online:     "#a6e3a1",
			Away:       "#f9e2af",
			DND:        "#f38ba8",
			XA:         "#fab387",
			Offline:    "#6c7086",
		},
		BuddyList: BuddyListConfig{
			HeaderFg:   "#1e1e2e",
			HeaderBg:   "#cba6f7",
			SelectedFg: "#1e1e2e",
			SelectedBg: "#89dceb",
			GroupFg:    "#cba6f7",
			ContactFg:  "#cdd6f4",
			ChatFg:     "#94e2d5",
		},
		StatusBar: StatusBarConfig{
			Fg:       "#cdd6f4",
			Bg:       "#313244",
			PolicyBg: "#f5c2e7",
			NoticeFg: "#f9e2af",
		},
	}
}

// NordTheme is an arctic, blue palette
func NordTheme() *Theme {
	return &Theme{
		Name:        "nord",
		Description: "Arctic, north-bluish palette",
		Colors: ColorsConfig{
			Primary:    "#88c0d0",
			Background: "#2e3440",
			Foreground: "#d8dee9",
			Muted:      "#4c566a",
			Border:     "#81a1c1",
			Error:      "#bf616a",
			Warning:    "#d08770",
			Online:     "#a3be8c",
			Away:       "#ebcb8b",
			DND:        "#bf616a",
			XA:         "#d08770",
			Offline:    "#4c566a",
		},
		BuddyList: BuddyListConfig{
			HeaderFg:   "#2e3440",
			HeaderBg:   "#88c0d0",
			SelectedFg: "#2e3440",
			SelectedBg: "#81a1c1",
			GroupFg:    "#88c0d0",
			ContactFg:  "#e5e9f0",
			ChatFg:     "#8fbcbb",
		},
		StatusBar: StatusBarConfig{
			Fg:       "#d8dee9",
			Bg:       "#3b4252",
			PolicyBg: "#5e81ac",
			NoticeFg: "#ebcb8b",
		},
	}
}

// GruvboxTheme is a retro, warm palette
func GruvboxTheme() *Theme {
	return &Theme{
		Name:        "gruvbox",
		Description: "Retro groove colors",
		Colors: ColorsConfig{
			Primary:    "#fe8019",
			Background: "#282828",
			Foreground: "#ebdbb2",
			Muted:      "#928374",
			Border:     "#d65d0e",
			Error:      "#fb4934",
			Warning:    "#fabd2f",
			Online:     "#b8bb26",
			Away:       "#fabd2f",
			DND:        "#fb4934",
			XA:         "#fe8019",
			Offline:    "#928374",
		},
		BuddyList: BuddyListConfig{
			HeaderFg:   "#282828",
			HeaderBg:   "#fe8019",
			SelectedFg: "#282828",
			SelectedBg: "#83a598",
			GroupFg:    "#fe8019",
			ContactFg:  "#ebdbb2",
			ChatFg:     "#8ec07c",
		},
		StatusBar: StatusBarConfig{
			Fg:       "#ebdbb2",
			Bg:       "#3c3836",
			PolicyBg: "#d3869b",
			NoticeFg: "#fabd2f",
		},
	}
}
