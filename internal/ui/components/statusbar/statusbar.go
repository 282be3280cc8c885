package statusbar

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/meszmate/buddylist/internal/blist"
	"github.com/meszmate/buddylist/internal/ui/keybindings"
	"github.com/meszmate/buddylist/internal/ui/theme"
)

// Model represents the status bar component
type Model struct {
	width    int
	mode     keybindings.Mode
	search   string
	policy   string
	filters  blist.Filters
	proposal *blist.MergeProposal
	pending  int
	notice   string
	isError  bool
	styles   *theme.Styles
}

// New creates a new status bar model
func New(styles *theme.Styles) Model {
	return Model{
		styles: styles,
		mode:   keybindings.ModeNormal,
	}
}

// SetWidth sets the status bar width
func (m Model) SetWidth(width int) Model {
	m.width = width
	return m
}

// SetStyles sets the styles used to render
func (m Model) SetStyles(styles *theme.Styles) Model {
	m.styles = styles
	return m
}

// SetMode sets the current mode and, in search mode, the query typed so far
func (m Model) SetMode(mode keybindings.Mode, search string) Model {
	m.mode = mode
	m.search = search
	return m
}

// SetPreferences sets the sort policy and filters shown
func (m Model) SetPreferences(policy string, filters blist.Filters) Model {
	m.policy = policy
	m.filters = filters
	return m
}

// SetProposal sets the pending merge proposal and the queue length
func (m Model) SetProposal(p *blist.MergeProposal, pending int) Model {
	m.proposal = p
	m.pending = pending
	return m
}

// SetNotice sets a one-line message shown until the next key press;
// errors are highlighted
func (m Model) SetNotice(notice string, isError bool) Model {
	m.notice = notice
	m.isError = isError
	return m
}

// View renders the status bar
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	policy := m.styles.StatusPolicy.Render(m.policy)

	var flags []string
	if m.filters.ShowOfflineBuddies {
		flags = append(flags, "offline")
	}
	if m.filters.ShowEmptyGroups {
		flags = append(flags, "empty")
	}
	filters := ""
	if len(flags) > 0 {
		filters = " +" + strings.Join(flags, " +")
	}

	var message string
	switch {
	case m.mode == keybindings.ModeSearch:
		message = "/" + m.search
	case m.notice != "" && m.isError:
		message = m.styles.StatusError.Render(m.notice)
	case m.notice != "":
		message = m.notice
	case m.proposal != nil:
		more := ""
		if m.pending > 1 {
			more = fmt.Sprintf(" (+%d)", m.pending-1)
		}
		message = m.styles.StatusNotice.Render(fmt.Sprintf("merge %d contacts named %q? y/n%s",
			len(m.proposal.Candidates), m.proposal.Alias, more))
	}

	left := fmt.Sprintf(" %s%s", policy, filters)
	right := message + " "

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	result := left + strings.Repeat(" ", padding) + right
	return m.styles.StatusBar.Width(m.width).MaxWidth(m.width).Render(result)
}
