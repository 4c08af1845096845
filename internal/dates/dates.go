// Package dates implements local-calendar date math for the dashboard.
//
// All arithmetic works on civil year/month/day components taken from a
// local calendar representation. Deriving the day by formatting a UTC
// instant shifts dates near midnight for anyone not at UTC+0, so no code
// here ever formats an instant to get a day.
package dates

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time of day and no zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// FromTime extracts the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse reads a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	var d Date
	if _, err := fmt.Sscanf(s, "%04d-%02d-%02d", &d.Year, &d.Month, &d.Day); err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	if d.Month < time.January || d.Month > time.December || d.Day < 1 || d.Day > 31 {
		return Date{}, fmt.Errorf("parse date %q: out of range", s)
	}
	return d, nil
}

// Key returns the canonical YYYY-MM-DD grouping key.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays returns the date n days after d (n may be negative). Overflowing
// components are normalized by the time package.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC)
	return FromTime(t)
}

// Weekday computes the day of week from the civil components alone. The
// noon-UTC construction keeps zone offsets out of the answer.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// SameMonth reports whether two dates share a calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month
}

// startOfWeek returns the most recent Sunday on or before d.
func startOfWeek(d Date) Date {
	return d.AddDays(-int(d.Weekday()))
}

// ViewMode selects the calendar granularity.
type ViewMode int

const (
	ModeDay ViewMode = iota
	ModeWeek
	ModeMonth
)

func (m ViewMode) String() string {
	switch m {
	case ModeDay:
		return "day"
	case ModeWeek:
		return "week"
	case ModeMonth:
		return "month"
	default:
		return "unknown"
	}
}

// Grid sizes per view mode.
const (
	WeekLength = 7
	MonthCells = 42 // 6 full weeks, out-of-month days included
)

// VisibleDates produces the ordered calendar cells for a view mode anchored
// at the given date.
//
//	day   → [anchor]
//	week  → 7 dates starting at the most recent Sunday ≤ anchor
//	month → 42 dates starting at the Sunday on/before the 1st of the month
func VisibleDates(mode ViewMode, anchor Date) []Date {
	switch mode {
	case ModeDay:
		return []Date{anchor}
	case ModeWeek:
		start := startOfWeek(anchor)
		out := make([]Date, WeekLength)
		for i := range out {
			out[i] = start.AddDays(i)
		}
		return out
	case ModeMonth:
		first := Date{Year: anchor.Year, Month: anchor.Month, Day: 1}
		start := startOfWeek(first)
		out := make([]Date, MonthCells)
		for i := range out {
			out[i] = start.AddDays(i)
		}
		return out
	default:
		return nil
	}
}

// Cell is one calendar cell with the items assigned to its date. Visible
// holds the first few entries for inline rendering; More counts the rest
// behind a "+N more" indicator. All always carries the full list.
type Cell[T any] struct {
	Date    Date
	InMonth bool
	All     []T
	Visible []T
	More    int
}

// BuildCells assigns items to cells by local-date key equality. key must
// return an item's stored YYYY-MM-DD date string; an item whose key matches
// no cell is dropped from the grid (it is outside the visible range).
// maxVisible bounds the inline entries per cell; anchor decides InMonth.
func BuildCells[T any](cells []Date, anchor Date, items []T, key func(T) string, maxVisible int) []Cell[T] {
	byKey := make(map[string][]T)
	for _, it := range items {
		k := key(it)
		byKey[k] = append(byKey[k], it)
	}

	out := make([]Cell[T], len(cells))
	for i, d := range cells {
		assigned := byKey[d.Key()]
		c := Cell[T]{
			Date:    d,
			InMonth: d.SameMonth(anchor),
			All:     assigned,
			Visible: assigned,
		}
		if maxVisible >= 0 && len(assigned) > maxVisible {
			c.Visible = assigned[:maxVisible]
			c.More = len(assigned) - maxVisible
		}
		out[i] = c
	}
	return out
}
