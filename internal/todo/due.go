package todo

import (
	"fmt"
	"strings"
	"time"
)

// dueLayouts are tried in order. Layouts without a zone are interpreted in
// the caller's location.
var dueLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02 15:04", false},
	{"2006-01-02", false},
}

// ParseDueDate parses a due date as entered by a user or stored by a
// previous version. A nil loc means time.Local.
func ParseDueDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty due date")
	}
	if loc == nil {
		loc = time.Local
	}
	for _, l := range dueLayouts {
		var (
			t   time.Time
			err error
		)
		if l.zoned {
			t, err = time.Parse(l.layout, s)
		} else {
			t, err = time.ParseInLocation(l.layout, s, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized due date %q", s)
}

// FormatDueDate renders t in the minute-precision local form used when
// due dates are entered interactively.
func FormatDueDate(t time.Time) string {
	return t.Format("2006-01-02T15:04")
}
