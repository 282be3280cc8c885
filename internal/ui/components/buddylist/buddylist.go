package buddylist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/meszmate/buddylist/internal/roster"
	"github.com/meszmate/buddylist/internal/ui/theme"
	"github.com/meszmate/buddylist/internal/viewtree"
)

// Options controls what is drawn next to each row
type Options struct {
	ShowCounts bool
	ShowStatus bool
}

// Model represents the buddy list component
type Model struct {
	lines      []viewtree.Line
	selected   int
	selectedID roster.ID
	offset     int
	width      int
	height     int
	styles     *theme.Styles
	opts       Options
}

// New creates a new buddy list model
func New(styles *theme.Styles, opts Options) Model {
	return Model{
		styles: styles,
		opts:   opts,
	}
}

// SetLines replaces the displayed rows. The selection follows the
// selected node when it is still shown.
func (m Model) SetLines(lines []viewtree.Line) Model {
	m.lines = lines

	if m.selectedID != "" {
		for i, line := range lines {
			if line.Row.Node != nil && line.Row.Node.ID() == m.selectedID {
				m.selected = i
				return m.scrollToSelected()
			}
		}
	}
	if m.selected >= len(lines) {
		m.selected = len(lines) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.selectedID = m.idAt(m.selected)
	return m.scrollToSelected()
}

// SetStyles sets the styles used to render
func (m Model) SetStyles(styles *theme.Styles) Model {
	m.styles = styles
	return m
}

// SetOptions sets the rendering options
func (m Model) SetOptions(opts Options) Model {
	m.opts = opts
	return m
}

// SetSize sets the component size
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	return m.scrollToSelected()
}

// Len returns the number of rows
func (m Model) Len() int {
	return len(m.lines)
}

// Selected returns the node of the selected row, or nil
func (m Model) Selected() roster.Node {
	if m.selected >= 0 && m.selected < len(m.lines) {
		return m.lines[m.selected].Row.Node
	}
	return nil
}

// SelectedIndex returns the index of the selected row
func (m Model) SelectedIndex() int {
	return m.selected
}

func (m Model) idAt(i int) roster.ID {
	if i >= 0 && i < len(m.lines) && m.lines[i].Row.Node != nil {
		return m.lines[i].Row.Node.ID()
	}
	return ""
}

func (m Model) visibleHeight() int {
	// header line
	h := m.height - 1
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) scrollToSelected() Model {
	h := m.visibleHeight()
	if m.selected < m.offset {
		m.offset = m.selected
	} else if m.selected >= m.offset+h {
		m.offset = m.selected - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
	return m
}

func (m Model) selectIndex(i int) Model {
	if len(m.lines) == 0 {
		m.selected = 0
		m.selectedID = ""
		return m
	}
	if i < 0 {
		i = 0
	}
	if i >= len(m.lines) {
		i = len(m.lines) - 1
	}
	m.selected = i
	m.selectedID = m.idAt(i)
	return m.scrollToSelected()
}

// MoveUp moves the selection up
func (m Model) MoveUp() Model {
	return m.selectIndex(m.selected - 1)
}

// MoveDown moves the selection down
func (m Model) MoveDown() Model {
	return m.selectIndex(m.selected + 1)
}

// MoveToTop moves selection to the top
func (m Model) MoveToTop() Model {
	return m.selectIndex(0)
}

// MoveToBottom moves selection to the bottom
func (m Model) MoveToBottom() Model {
	return m.selectIndex(len(m.lines) - 1)
}

// PageUp moves up by half a page
func (m Model) PageUp() Model {
	return m.selectIndex(m.selected - m.visibleHeight()/2)
}

// PageDown moves down by half a page
func (m Model) PageDown() Model {
	return m.selectIndex(m.selected + m.visibleHeight()/2)
}

// SearchNext selects the next row after the selection whose text
// contains query, wrapping around
func (m Model) SearchNext(query string) Model {
	matches := m.findMatches(query)
	if len(matches) == 0 {
		return m
	}
	for _, i := range matches {
		if i > m.selected {
			return m.selectIndex(i)
		}
	}
	return m.selectIndex(matches[0])
}

// findMatches finds all rows matching the query
func (m Model) findMatches(query string) []int {
	var matches []int
	query = strings.ToLower(query)
	if query == "" {
		return nil
	}
	for i, line := range m.lines {
		if strings.Contains(strings.ToLower(line.Row.Text), query) {
			matches = append(matches, i)
		}
	}
	return matches
}

// View renders the buddy list
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	header := m.styles.ListHeader.Width(m.width).Render("Buddy List")
	b.WriteString(header)
	b.WriteString("\n")

	visibleHeight := m.visibleHeight()
	if len(m.lines) == 0 {
		helpLines := []string{
			"",
			"Nobody to show",
			"",
			"  o  Show offline buddies",
			"  e  Show empty groups",
			"  q  Quit",
		}
		for i, line := range helpLines {
			if i < visibleHeight {
				b.WriteString(m.styles.ListMuted.Render(" " + line))
				b.WriteString("\n")
			}
		}
		return strings.TrimSuffix(b.String(), "\n")
	}

	end := m.offset + visibleHeight
	if end > len(m.lines) {
		end = len(m.lines)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderLine(m.lines[i], i == m.selected))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderLine renders a single row
func (m Model) renderLine(line viewtree.Line, selected bool) string {
	indent := strings.Repeat("  ", line.Depth)
	row := line.Row

	var marker, extra string
	style := m.styles.ListContact
	switch n := row.Node.(type) {
	case *roster.Group:
		style = m.styles.ListGroup
		marker = "▾"
		if m.opts.ShowCounts {
			extra = fmt.Sprintf(" (%d/%d)", n.OnlineCount(), countBuddies(n))
		}
	case *roster.Contact:
		marker = "▸"
		if len(row.Children) > 1 {
			marker = "▾"
		}
		if m.opts.ShowCounts && len(n.Buddies()) > 1 {
			extra = fmt.Sprintf(" [%d]", len(n.Buddies()))
		}
	case *roster.Buddy:
		marker = m.presenceStyle(n.Presence().Status).Render(presenceIndicator(n.Presence().Status))
		if m.opts.ShowStatus && n.Presence().Message != "" {
			extra = m.styles.ListMuted.Render(" - " + n.Presence().Message)
		}
	case *roster.Chat:
		style = m.styles.ListChat
		marker = "#"
	}

	text := row.Text
	maxWidth := m.width - len(indent) - 4
	if r := []rune(text); len(r) > maxWidth && maxWidth > 1 {
		text = string(r[:maxWidth-1]) + "…"
	}

	if selected {
		style = m.styles.ListSelected
	}
	content := fmt.Sprintf(" %s%s %s%s", indent, marker, text, extra)
	return style.Width(m.width).MaxWidth(m.width).Render(content)
}

func (m Model) presenceStyle(s roster.Status) lipgloss.Style {
	switch s {
	case roster.StatusAvailable:
		return m.styles.PresenceOnline
	case roster.StatusAway:
		return m.styles.PresenceAway
	case roster.StatusUnavailable:
		return m.styles.PresenceDND
	case roster.StatusExtendedAway:
		return m.styles.PresenceXA
	default:
		return m.styles.PresenceOffline
	}
}

func presenceIndicator(s roster.Status) string {
	switch s {
	case roster.StatusAvailable:
		return "●"
	case roster.StatusAway:
		return "◐"
	case roster.StatusUnavailable:
		return "⊘"
	case roster.StatusExtendedAway:
		return "◯"
	default:
		return "○"
	}
}

func countBuddies(g *roster.Group) int {
	total := 0
	for _, c := range g.Contacts() {
		total += len(c.Buddies())
	}
	return total
}
