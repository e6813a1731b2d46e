// Package ui provides the interactive terminal task list.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/taskpad/internal/app"
	"github.com/nibzard/taskpad/internal/query"
	"github.com/nibzard/taskpad/internal/reminder"
	"github.com/nibzard/taskpad/internal/todo"
)

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

type tuiConfig struct {
	refreshInterval time.Duration
}

// WithRefreshInterval reloads the task list from storage every d. Zero
// disables periodic refresh.
func WithRefreshInterval(d time.Duration) TUIOption {
	return func(c *tuiConfig) {
		c.refreshInterval = d
	}
}

// Notifier forwards fired reminders to ch for display. A reminder is
// dropped when ch is full.
func Notifier(ch chan<- reminder.Reminder) reminder.Notifier {
	return reminder.NotifierFunc(func(r reminder.Reminder) {
		select {
		case ch <- r:
		default:
		}
	})
}

// RunTUI starts the task list. Reminders received on reminders are shown
// as a banner.
func RunTUI(ctx context.Context, a *app.App, reminders <-chan reminder.Reminder, opts ...TUIOption) error {
	c := &tuiConfig{}
	for _, opt := range opts {
		opt(c)
	}

	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	model := newTUIModel(a, reminders, c.refreshInterval)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

type inputMode int

const (
	modeList inputMode = iota
	modeSearch
	modeNew
)

type tuiModel struct {
	app             *app.App
	reminders       <-chan reminder.Reminder
	refreshInterval time.Duration
	now             func() time.Time

	visible    []todo.Task
	progress   query.Stats
	categories []string
	dark       bool
	cursor     int

	mode     inputMode
	input    string
	banner   string
	err      error
	showHelp bool
}

type tickMsg time.Time

type reminderMsg struct {
	reminder reminder.Reminder
}

type remindersClosedMsg struct{}

func newTUIModel(a *app.App, reminders <-chan reminder.Reminder, refresh time.Duration) *tuiModel {
	return &tuiModel{
		app:             a,
		reminders:       reminders,
		refreshInterval: refresh,
		now:             time.Now,
	}
}

func (m *tuiModel) Init() tea.Cmd {
	m.reload()
	var cmds []tea.Cmd
	if m.refreshInterval > 0 {
		cmds = append(cmds, tickCmd(m.refreshInterval))
	}
	if m.reminders != nil {
		cmds = append(cmds, waitForReminder(m.reminders))
	}
	return tea.Batch(cmds...)
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode != modeList {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	case tickMsg:
		m.err = m.app.Refresh()
		m.reload()
		return m, tickCmd(m.refreshInterval)
	case reminderMsg:
		m.banner = msg.reminder.Headline() + " (" + strings.ReplaceAll(msg.reminder.Body(), "\n", ", ") + ")"
		m.reload()
		return m, waitForReminder(m.reminders)
	case remindersClosedMsg:
		m.reminders = nil
	}
	return m, nil
}

func (m *tuiModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case " ", "x", "enter":
		if task, ok := m.selected(); ok {
			_, _, m.err = m.app.ToggleComplete(task.ID)
			m.reload()
		}
	case "d", "delete":
		if task, ok := m.selected(); ok {
			_, m.err = m.app.Delete(task.ID)
			m.reload()
		}
	case "s":
		f := m.app.Filter()
		f.Status = cycle([]string{query.All, query.StatusIncomplete, query.StatusCompleted}, f.Status)
		m.setFilter(f)
	case "p":
		f := m.app.Filter()
		options := []string{query.All}
		for _, p := range todo.Priorities() {
			options = append(options, string(p))
		}
		f.Priority = cycle(options, f.Priority)
		m.setFilter(f)
	case "c":
		f := m.app.Filter()
		f.Category = cycle(append([]string{query.All}, m.categories...), f.Category)
		m.setFilter(f)
	case "0":
		m.setFilter(query.DefaultFilter())
	case "/":
		m.mode = modeSearch
		m.input = m.app.Filter().Keyword
	case "n", "a":
		m.mode = modeNew
		m.input = ""
	case "t":
		m.dark, m.err = m.app.ToggleDarkMode()
	case "r", "f5":
		m.err = m.app.Refresh()
		m.reload()
	case "esc":
		m.banner = ""
		m.err = nil
	case "h", "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *tuiModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		if m.mode == modeSearch {
			m.input = ""
			m.applySearch()
		}
		m.mode = modeList
	case tea.KeyEnter:
		if m.mode == modeNew && strings.TrimSpace(m.input) != "" {
			_, m.err = m.app.Create(ParseQuickAdd(m.input))
			m.reload()
		}
		m.mode = modeList
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		if m.mode == modeSearch {
			m.applySearch()
		}
	case tea.KeySpace:
		m.input += " "
		if m.mode == modeSearch {
			m.applySearch()
		}
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		if m.mode == modeSearch {
			m.applySearch()
		}
	}
	return m, nil
}

func (m *tuiModel) applySearch() {
	f := m.app.Filter()
	f.Keyword = m.input
	m.setFilter(f)
}

func (m *tuiModel) setFilter(f query.Filter) {
	m.err = m.app.SetFilter(f)
	m.reload()
}

func (m *tuiModel) selected() (todo.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return todo.Task{}, false
	}
	return m.visible[m.cursor], true
}

func (m *tuiModel) reload() {
	m.visible = m.app.Visible()
	m.progress = m.app.Progress()
	m.categories = m.app.Categories()
	m.dark = m.app.DarkMode()
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// cycle returns the option after current, wrapping around. An unknown
// current value restarts at the first option.
func cycle(options []string, current string) string {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForReminder(ch <-chan reminder.Reminder) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return remindersClosedMsg{}
		}
		return reminderMsg{reminder: r}
	}
}

// ParseQuickAdd turns a one-line entry into a draft. Words of the form
// !priority, #tag and @due are lifted out of the title.
func ParseQuickAdd(line string) todo.Draft {
	var d todo.Draft
	var title []string
	for _, word := range strings.Fields(line) {
		switch {
		case len(word) > 1 && word[0] == '!':
			if p, err := todo.ParsePriority(word[1:]); err == nil {
				d.Priority = p
				continue
			}
		case len(word) > 1 && word[0] == '#':
			d.Tags = append(d.Tags, word[1:])
			continue
		case len(word) > 1 && word[0] == '@':
			d.DueDate = word[1:]
			continue
		}
		title = append(title, word)
	}
	d.Title = strings.Join(title, " ")
	return d
}

type styles struct {
	title    lipgloss.Style
	selected lipgloss.Style
	done     lipgloss.Style
	muted    lipgloss.Style
	banner   lipgloss.Style
	err      lipgloss.Style
	high     lipgloss.Style
}

func themeStyles(dark bool) styles {
	fg, accent, dim := lipgloss.Color("235"), lipgloss.Color("25"), lipgloss.Color("244")
	if dark {
		fg, accent, dim = lipgloss.Color("252"), lipgloss.Color("75"), lipgloss.Color("240")
	}
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		selected: lipgloss.NewStyle().Bold(true).Foreground(fg),
		done:     lipgloss.NewStyle().Strikethrough(true).Foreground(dim),
		muted:    lipgloss.NewStyle().Foreground(dim),
		banner:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		high:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

func (m *tuiModel) View() string {
	st := themeStyles(m.dark)
	var b strings.Builder

	title := "Taskpad"
	b.WriteString(st.title.Render(title) + "\n")
	b.WriteString(st.muted.Render(strings.Repeat("=", len(title))) + "\n\n")

	if m.banner != "" {
		b.WriteString(st.banner.Render(m.banner) + "\n\n")
	}

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b, st, m.refreshInterval)
		return b.String()
	}

	writeFilter(&b, st, m.app.Filter())
	switch m.mode {
	case modeSearch:
		b.WriteString("Search: " + m.input + "_\n\n")
	case modeNew:
		b.WriteString("New task: " + m.input + "_\n")
		b.WriteString(st.muted.Render("  !high #tag @2025-01-31T09:00 | enter to save, esc to cancel") + "\n\n")
	}

	if len(m.visible) == 0 {
		b.WriteString("  No tasks found.\n\n")
	}
	now := m.now()
	for i := range m.visible {
		line := formatTask(&m.visible[i], now)
		switch {
		case m.visible[i].Completed:
			line = st.done.Render(line)
		case m.visible[i].Priority == todo.PriorityHigh:
			line = st.high.Render(line)
		}
		cursor := "  "
		if i == m.cursor {
			cursor = st.selected.Render("> ")
		}
		b.WriteString(cursor + line + "\n")
	}
	b.WriteString("\n")

	writeProgress(&b, m.progress)
	if m.err != nil {
		b.WriteString(st.err.Render("Error: "+m.err.Error()) + "\n\n")
	}
	writeFooter(&b, st, m.refreshInterval)
	return b.String()
}

func writeFilter(b *strings.Builder, st styles, f query.Filter) {
	line := fmt.Sprintf("Status: %s  Priority: %s  Category: %s", f.Status, f.Priority, f.Category)
	if f.Keyword != "" {
		line += fmt.Sprintf("  Search: %q", f.Keyword)
	}
	b.WriteString(st.muted.Render(line) + "\n\n")
}

func writeProgress(b *strings.Builder, s query.Stats) {
	const width = 20
	filled := int(s.Percent() * width / 100)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
	b.WriteString(fmt.Sprintf("[%s] %s\n\n", bar, s))
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  q, ctrl+c       Quit\n")
	b.WriteString("  up/k, down/j    Move selection\n")
	b.WriteString("  space, x        Toggle complete\n")
	b.WriteString("  d               Delete task\n")
	b.WriteString("  n               New task\n")
	b.WriteString("  /               Search\n")
	b.WriteString("  s, p, c         Cycle status, priority, category filter\n")
	b.WriteString("  0               Clear filters\n")
	b.WriteString("  t               Toggle dark mode\n")
	b.WriteString("  r, F5           Reload from storage\n")
	b.WriteString("  esc             Dismiss reminder\n")
	b.WriteString("  h, ?            Toggle this help screen\n\n")
}

func writeFooter(b *strings.Builder, st styles, interval time.Duration) {
	footer := "Press h for help | q to quit"
	if interval > 0 {
		footer += fmt.Sprintf(" | Refreshing every %s", interval)
	}
	b.WriteString(st.muted.Render(footer) + "\n")
}

func formatTask(t *todo.Task, now time.Time) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	line := fmt.Sprintf("%s %s (%s)", check, t.Title, t.Priority)
	if t.DueDate != "" {
		line += " Due: " + t.DueDate
		if due, ok, err := t.Due(time.Local); err == nil && ok && !t.Completed {
			line += " " + remaining(due.Sub(now))
		}
	}
	for _, tag := range t.Tags {
		line += " #" + tag
	}
	return line
}

// remaining renders the time left until a due date at minute precision.
func remaining(d time.Duration) string {
	if d <= 0 {
		return "(overdue)"
	}
	d = d.Round(time.Minute)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	mins := (d - hours*time.Hour) / time.Minute
	switch {
	case days > 0:
		return fmt.Sprintf("(%dd %dh left)", days, hours)
	case hours > 0:
		return fmt.Sprintf("(%dh %dm left)", hours, mins)
	default:
		return fmt.Sprintf("(%dm left)", mins)
	}
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
