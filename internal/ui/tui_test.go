package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/taskpad/internal/app"
	"github.com/nibzard/taskpad/internal/clock"
	"github.com/nibzard/taskpad/internal/reminder"
	"github.com/nibzard/taskpad/internal/storage"
	"github.com/nibzard/taskpad/internal/todo"
)

func newTestModel(t *testing.T, titles ...string) *tuiModel {
	t.Helper()
	a, err := app.New(app.Options{
		Slot:  storage.NewMemory(),
		Clock: clock.NewFake(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	for _, title := range titles {
		if _, err := a.Create(ParseQuickAdd(title)); err != nil {
			t.Fatal(err)
		}
	}
	m := newTUIModel(a, nil, 0)
	m.Init()
	return m
}

func press(m *tuiModel, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func typeText(m *tuiModel, s string) {
	for _, r := range s {
		if r == ' ' {
			press(m, " ")
			continue
		}
		press(m, string(r))
	}
}

func titles(m *tuiModel) string {
	var out []string
	for _, task := range m.visible {
		out = append(out, task.Title)
	}
	return strings.Join(out, ",")
}

func TestTUIToggleAndDelete(t *testing.T) {
	m := newTestModel(t, "Buy milk", "Walk dog", "Read book")

	press(m, "down", "x")
	if !m.visible[1].Completed {
		t.Fatal("selected task not toggled")
	}
	if !strings.Contains(m.View(), "1 of 3 tasks completed") {
		t.Errorf("progress line missing:\n%s", m.View())
	}

	press(m, "d")
	if got := titles(m); got != "Buy milk,Read book" {
		t.Errorf("after delete: %s", got)
	}
}

func TestTUIFilters(t *testing.T) {
	m := newTestModel(t, "Buy milk !high #home", "Report #work", "Gym #home")

	press(m, "p", "p", "p")
	if got := titles(m); got != "Buy milk" {
		t.Errorf("high priority filter: %s", got)
	}
	press(m, "0", "c")
	if got := titles(m); got != "Buy milk,Gym" {
		t.Errorf("category filter: %s", got)
	}
	press(m, "0", "x", "s")
	if got := titles(m); got != "Report,Gym" {
		t.Errorf("incomplete filter: %s", got)
	}
	press(m, "s")
	if got := titles(m); got != "Buy milk" {
		t.Errorf("completed filter: %s", got)
	}
	press(m, "s")
	if m.app.Filter().Status != "all" {
		t.Errorf("status did not wrap: %+v", m.app.Filter())
	}
}

func TestTUISearch(t *testing.T) {
	m := newTestModel(t, "Buy milk", "Walk dog")

	press(m, "/")
	typeText(m, "DOG")
	if got := titles(m); got != "Walk dog" {
		t.Errorf("live search: %s", got)
	}
	press(m, "enter")
	if m.mode != modeList || m.app.Filter().Keyword != "dog" {
		t.Errorf("search not committed: mode=%v filter=%+v", m.mode, m.app.Filter())
	}

	press(m, "/", "esc")
	if got := titles(m); got != "Buy milk,Walk dog" {
		t.Errorf("esc should clear search: %s", got)
	}
}

func TestTUINewTask(t *testing.T) {
	m := newTestModel(t)

	press(m, "n")
	typeText(m, "Pay rent !medium #bills @2025-07-01")
	press(m, "enter")

	if len(m.visible) != 1 {
		t.Fatalf("expected 1 task, got %d", len(m.visible))
	}
	task := m.visible[0]
	if task.Title != "Pay rent" || task.Priority != todo.PriorityMedium || task.DueDate != "2025-07-01" || !task.HasTag("bills") {
		t.Errorf("unexpected task %+v", task)
	}

	press(m, "n", "esc")
	if m.mode != modeList || len(m.visible) != 1 {
		t.Error("esc should cancel new task entry")
	}
}

func TestTUIThemeAndReminderBanner(t *testing.T) {
	m := newTestModel(t, "a")

	press(m, "t")
	if !m.dark || !m.app.DarkMode() {
		t.Error("theme not toggled")
	}

	ch := make(chan reminder.Reminder, 1)
	m.reminders = ch
	Notifier(ch).Notify(reminder.Reminder{TaskID: "x", Title: "Standup", DueDate: "2025-06-01T09:00"})
	msg := waitForReminder(ch)()
	m.Update(msg)
	if !strings.Contains(m.View(), "Task Due: Standup") {
		t.Errorf("banner missing:\n%s", m.View())
	}
	press(m, "esc")
	if m.banner != "" {
		t.Error("esc should dismiss the banner")
	}

	close(ch)
	if _, ok := waitForReminder(ch)().(remindersClosedMsg); !ok {
		t.Error("closed channel should end reminder delivery")
	}
}

func TestNotifierDropsWhenFull(t *testing.T) {
	ch := make(chan reminder.Reminder, 1)
	n := Notifier(ch)
	n.Notify(reminder.Reminder{TaskID: "1"})
	n.Notify(reminder.Reminder{TaskID: "2"})
	if got := <-ch; got.TaskID != "1" {
		t.Errorf("got %s", got.TaskID)
	}
	select {
	case r := <-ch:
		t.Errorf("unexpected second reminder %s", r.TaskID)
	default:
	}
}

func TestParseQuickAdd(t *testing.T) {
	tests := []struct {
		in   string
		want todo.Draft
	}{
		{"plain title", todo.Draft{Title: "plain title"}},
		{"Ship it !high #work #q3 @2025-09-30T17:00", todo.Draft{Title: "Ship it", Priority: todo.PriorityHigh, Tags: []string{"work", "q3"}, DueDate: "2025-09-30T17:00"}},
		{"!urgent stays in title", todo.Draft{Title: "!urgent stays in title"}},
		{"# and @ alone", todo.Draft{Title: "# and @ alone"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseQuickAdd(tt.in)
			if got.Title != tt.want.Title || got.Priority != tt.want.Priority || got.DueDate != tt.want.DueDate ||
				strings.Join(got.Tags, ",") != strings.Join(tt.want.Tags, ",") {
				t.Errorf("ParseQuickAdd(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Minute, "(overdue)"},
		{0, "(overdue)"},
		{45 * time.Minute, "(45m left)"},
		{2*time.Hour + 30*time.Minute, "(2h 30m left)"},
		{50 * time.Hour, "(2d 2h left)"},
	}
	for _, tt := range tests {
		if got := remaining(tt.d); got != tt.want {
			t.Errorf("remaining(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
