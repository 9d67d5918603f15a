// Package picker implements the interactive Bubble Tea checklist used by
// uninstall and update when no plugin names are given. Typing filters the
// list; space toggles the item under the cursor. When Options.Yes is true
// the TUI is skipped and every item is selected.
package picker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user quits the picker.
var ErrCancelled = errors.New("cancelled")

// Item is one selectable plugin.
type Item struct {
	Name   string
	Detail string
}

// Options controls picker behaviour.
type Options struct {
	// Title is shown in the header, e.g. "uninstall".
	Title string
	// Yes skips the TUI and selects every item.
	Yes bool
}

// Run shows the checklist and returns the chosen names in list order.
func Run(items []Item, opts Options) ([]string, error) {
	if opts.Yes || len(items) == 0 {
		return allNames(items), nil
	}

	p := tea.NewProgram(newModel(items, opts))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	result := final.(model)
	if result.cancelled {
		return nil, ErrCancelled
	}
	return result.selection(), nil
}

// ── styles ────────────────────────────────────────────────────────────────────

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	helpStyle     = dimStyle
)

// ── model ─────────────────────────────────────────────────────────────────────

type checkItem struct {
	Item
	checked bool
}

type model struct {
	title     string
	items     []checkItem
	filter    textinput.Model
	cursor    int // index into visible()
	cancelled bool
	confirmed bool
}

func newModel(items []Item, opts Options) model {
	fi := textinput.New()
	fi.Placeholder = "type to filter"
	fi.Prompt = "/ "
	fi.Focus()
	fi.Width = 40

	checks := make([]checkItem, len(items))
	for i, it := range items {
		checks[i] = checkItem{Item: it}
	}
	return model{title: opts.Title, items: checks, filter: fi}
}

// visible returns the indexes of items matching the filter.
func (m model) visible() []int {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	var out []int
	for i, it := range m.items {
		if q == "" || strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, i)
		}
	}
	return out
}

// ── tea.Model interface ───────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}

	vis := m.visible()
	switch key.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(vis)-1 {
			m.cursor++
		}
		return m, nil
	case " ":
		if m.cursor < len(vis) {
			i := vis[m.cursor]
			m.items[i].checked = !m.items[i].checked
		}
		return m, nil
	case "ctrl+a":
		all := true
		for _, i := range vis {
			all = all && m.items[i].checked
		}
		for _, i := range vis {
			m.items[i].checked = !all
		}
		return m, nil
	case "enter":
		// with nothing checked, enter picks the item under the cursor
		if len(m.selection()) == 0 && m.cursor < len(vis) {
			m.items[vis[m.cursor]].checked = true
		}
		m.confirmed = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if n := len(m.visible()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	return m, cmd
}

// ── View ──────────────────────────────────────────────────────────────────────

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  kb-plugins") + "  " + m.title + "\n\n")
	b.WriteString("  " + m.filter.View() + "\n\n")

	vis := m.visible()
	if len(vis) == 0 {
		b.WriteString(dimStyle.Render("  no matching plugins") + "\n")
	}
	for row, i := range vis {
		b.WriteString(m.renderItem(row, m.items[i]))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  ↑↓ move · space toggle · ctrl+a all · enter " + m.title + " · esc quit"))
	return b.String()
}

func (m model) renderItem(row int, item checkItem) string {
	cursor := "  "
	if row == m.cursor {
		cursor = focusStyle.Render(" ▶")
	}
	check := "○"
	style := normalStyle
	if item.checked {
		check = selectedStyle.Render("◉")
		style = selectedStyle
	}
	return fmt.Sprintf("%s %s  %-30s  %s\n",
		cursor, check,
		style.Render(item.Name),
		dimStyle.Render(item.Detail),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (m model) selection() []string {
	var out []string
	for _, it := range m.items {
		if it.checked {
			out = append(out, it.Name)
		}
	}
	return out
}

func allNames(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}
