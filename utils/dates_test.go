package utils

import (
	"testing"
	"time"
)

func TestMinutesToClock(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{60, "01:00"},
		{90, "01:30"},
		{540, "09:00"},
		{1439, "23:59"},
	}

	for _, c := range cases {
		if got := MinutesToClock(c.in); got != c.want {
			t.Errorf("MinutesToClock(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestClockToMinutes(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"9:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"25:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
	}

	for _, c := range cases {
		got, err := ClockToMinutes(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ClockToMinutes(%q) expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ClockToMinutes(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ClockToMinutes(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time {
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		start, end time.Time
		want       int
	}{
		{d(2026, time.September, 1), d(2026, time.September, 1), 0},
		{d(2026, time.September, 1), d(2026, time.September, 8), 7},
		{d(2026, time.September, 8), d(2026, time.September, 1), -7},
		{d(2026, time.December, 31), d(2027, time.January, 1), 1},
	}

	for _, c := range cases {
		if got := DaysBetween(c.start, c.end); got != c.want {
			t.Errorf("DaysBetween(%v, %v) = %d, want %d", c.start, c.end, got, c.want)
		}
	}
}

func TestLastDayOfMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2026, time.January, 31},
		{2026, time.February, 28},
		{2028, time.February, 29},
		{2026, time.April, 30},
		{2026, time.December, 31},
	}

	for _, c := range cases {
		if got := LastDayOfMonth(c.year, c.month); got != c.want {
			t.Errorf("LastDayOfMonth(%d, %v) = %d, want %d", c.year, c.month, got, c.want)
		}
	}
}
