package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/raphi011/gw/internal/format"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	cachedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dirtyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

var columns = []struct {
	title string
	width int
}{
	{"BRANCH", 28},
	{"COMMIT", 8},
	{"SYNC", 14},
	{"PR", 20},
	{"CHECKS", 7},
	{"B|A", 7},
	{"CHANGES", 10},
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width > 1 {
			return string(r[:width-1]) + "…"
		}
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	var titles []string
	for _, c := range columns {
		titles = append(titles, pad(c.title, c.width))
	}
	b.WriteString(headerStyle.Render(strings.Join(titles, "  ")))
	b.WriteString("\n")

	now := time.Now()
	for vi, ri := range m.visible {
		r := m.rows[ri]

		branch := r.Branch
		if r.Detached {
			branch = "(detached)"
		}

		local := normalStyle
		remote := normalStyle
		if !r.LocalFresh {
			local = cachedStyle
		}
		if !r.RemoteFresh {
			remote = cachedStyle
		}

		sync := local
		if r.Dirty && r.LocalFresh {
			sync = dirtyStyle
		}

		cells := []string{
			local.Render(pad(branch, columns[0].width)),
			local.Render(pad(format.RelativeTime(now, r.LastCommitTS), columns[1].width)),
			sync.Render(pad(format.PullPush(r.Row), columns[2].width)),
			remote.Render(pad(format.PR(r.Row, m.defaultBranch), columns[3].width)),
			remote.Render(pad(format.Checks(r.Row), columns[4].width)),
			remote.Render(pad(format.BehindAhead(r.Row), columns[5].width)),
			local.Render(pad(format.Changes(r.Row), columns[6].width)),
		}

		prefix := "  "
		line := strings.Join(cells, "  ")
		if vi == m.cursor && m.mode != modeConfirm {
			prefix = selectedStyle.Render("> ")
		}
		b.WriteString(prefix + line + "\n")
	}

	if len(m.visible) == 0 {
		if m.filter != "" {
			b.WriteString(statusStyle.Render("  no branches match " + m.filter))
		} else {
			b.WriteString(statusStyle.Render("  no worktrees, press n to create one"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch m.mode {
	case modeInput:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case modeConfirm:
		b.WriteString(errorStyle.Render(m.confirmPrompt + " [y/N]"))
		b.WriteString("\n")
	default:
		b.WriteString(m.statusLine())
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter select · n/N new · R rename · d delete · p pull · P push · r refresh · / filter · y copy path · q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m model) statusLine() string {
	var parts []string
	if m.refreshing {
		parts = append(parts, m.spin.View()+"refreshing")
	}
	if m.busy {
		parts = append(parts, m.spin.View()+"working")
	}
	if m.status != "" {
		if m.statusErr {
			parts = append(parts, errorStyle.Render(m.status))
		} else {
			parts = append(parts, statusStyle.Render(m.status))
		}
	}
	if m.filter != "" {
		parts = append(parts, statusStyle.Render(fmt.Sprintf("filter: %s (%d/%d)", m.filter, len(m.visible), len(m.rows))))
	}
	if len(parts) == 0 {
		return statusStyle.Render(fmt.Sprintf("%d worktrees", len(m.rows)))
	}
	return strings.Join(parts, "  ")
}
