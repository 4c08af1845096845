package dates

import (
	"testing"
	"time"
)

func TestVisibleDatesLengths(t *testing.T) {
	anchor := Date{Year: 2025, Month: time.October, Day: 15}

	tests := []struct {
		name string
		mode ViewMode
		want int
	}{
		{name: "day has one cell", mode: ModeDay, want: 1},
		{name: "week has seven cells", mode: ModeWeek, want: WeekLength},
		{name: "month has forty-two cells", mode: ModeMonth, want: MonthCells},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisibleDates(tt.mode, anchor)
			if len(got) != tt.want {
				t.Fatalf("VisibleDates(%s) returned %d cells, want %d", tt.mode, len(got), tt.want)
			}
			seen := make(map[string]bool)
			for _, d := range got {
				key := d.Key()
				if seen[key] {
					t.Errorf("duplicate date %s in %s grid", key, tt.mode)
				}
				seen[key] = true
			}
		})
	}
}

func TestVisibleDatesDay(t *testing.T) {
	anchor := Date{Year: 2025, Month: time.October, Day: 2}
	got := VisibleDates(ModeDay, anchor)
	if got[0] != anchor {
		t.Errorf("day grid = %v, want [%v]", got, anchor)
	}
}

func TestVisibleDatesWeekStartsSunday(t *testing.T) {
	tests := []struct {
		name      string
		anchor    Date
		wantStart string
	}{
		{
			// 2025-10-02 is a Thursday; the week starts 2025-09-28.
			name:      "mid-week anchor",
			anchor:    Date{Year: 2025, Month: time.October, Day: 2},
			wantStart: "2025-09-28",
		},
		{
			// 2025-10-05 is a Sunday; the week starts on the anchor itself.
			name:      "sunday anchor",
			anchor:    Date{Year: 2025, Month: time.October, Day: 5},
			wantStart: "2025-10-05",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisibleDates(ModeWeek, tt.anchor)
			if got[0].Key() != tt.wantStart {
				t.Errorf("week start = %s, want %s", got[0].Key(), tt.wantStart)
			}
			if got[0].Weekday() != time.Sunday {
				t.Errorf("week starts on %s, want Sunday", got[0].Weekday())
			}
			for i := 1; i < len(got); i++ {
				if got[i] != got[i-1].AddDays(1) {
					t.Errorf("week is not consecutive at index %d: %v then %v", i, got[i-1], got[i])
				}
			}
		})
	}
}

func TestVisibleDatesMonthGrid(t *testing.T) {
	// October 2025 starts on a Wednesday; the grid starts the preceding
	// Sunday and always spans six full weeks.
	anchor := Date{Year: 2025, Month: time.October, Day: 20}
	got := VisibleDates(ModeMonth, anchor)

	if got[0].Key() != "2025-09-28" {
		t.Errorf("month grid start = %s, want 2025-09-28", got[0].Key())
	}
	if got[0].Weekday() != time.Sunday {
		t.Errorf("month grid starts on %s, want Sunday", got[0].Weekday())
	}
	if last := got[len(got)-1].Key(); last != "2025-11-08" {
		t.Errorf("month grid end = %s, want 2025-11-08", last)
	}

	outOfMonth := 0
	for _, d := range got {
		if !d.SameMonth(anchor) {
			outOfMonth++
		}
	}
	// 3 September days + 8 November days pad October's 31.
	if outOfMonth != 11 {
		t.Errorf("out-of-month cells = %d, want 11", outOfMonth)
	}
}

func TestFromTimeUsesLocalCalendar(t *testing.T) {
	// 23:30 on Oct 2 in a UTC-5 zone is 04:30 Oct 3 UTC. The local
	// calendar date must win.
	loc := time.FixedZone("UTC-5", -5*60*60)
	instant := time.Date(2025, time.October, 2, 23, 30, 0, 0, loc)

	got := FromTime(instant)
	if got.Key() != "2025-10-02" {
		t.Errorf("FromTime() = %s, want 2025-10-02", got.Key())
	}
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		name string
		d    Date
		n    int
		want string
	}{
		{name: "within month", d: Date{2025, time.October, 10}, n: 5, want: "2025-10-15"},
		{name: "across month end", d: Date{2025, time.October, 30}, n: 3, want: "2025-11-02"},
		{name: "across year end", d: Date{2025, time.December, 30}, n: 3, want: "2026-01-02"},
		{name: "backwards across month", d: Date{2025, time.October, 1}, n: -1, want: "2025-09-30"},
		{name: "leap february", d: Date{2024, time.February, 28}, n: 1, want: "2024-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.AddDays(tt.n).Key(); got != tt.want {
				t.Errorf("AddDays(%d) = %s, want %s", tt.n, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	d, err := Parse("2025-10-02")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if d.Key() != "2025-10-02" {
		t.Errorf("Parse round trip = %s, want 2025-10-02", d.Key())
	}

	for _, bad := range []string{"not-a-date", "2025-13-01", "2025-00-10", "2025-01-40"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", bad)
		}
	}
}

type item struct {
	id   string
	date string
}

func TestBuildCellsAssignment(t *testing.T) {
	anchor := Date{Year: 2025, Month: time.October, Day: 2}
	cells := VisibleDates(ModeWeek, anchor)

	items := []item{
		{id: "a", date: "2025-10-02"},
		{id: "b", date: "2025-10-02"},
		{id: "c", date: "2025-10-04"},
		{id: "d", date: "2025-12-25"}, // outside the visible range
	}

	got := BuildCells(cells, anchor, items, func(i item) string { return i.date }, 2)

	byKey := make(map[string]Cell[item])
	for _, c := range got {
		byKey[c.Date.Key()] = c
	}

	if n := len(byKey["2025-10-02"].All); n != 2 {
		t.Errorf("2025-10-02 cell holds %d items, want 2", n)
	}
	if n := len(byKey["2025-10-04"].All); n != 1 {
		t.Errorf("2025-10-04 cell holds %d items, want 1", n)
	}
	for key, c := range byKey {
		for _, it := range c.All {
			if it.date != key {
				t.Errorf("item %s (date %s) landed in cell %s", it.id, it.date, key)
			}
		}
	}
}

func TestBuildCellsOverflow(t *testing.T) {
	anchor := Date{Year: 2025, Month: time.October, Day: 2}
	cells := []Date{anchor}

	tests := []struct {
		name        string
		count       int
		wantVisible int
		wantMore    int
	}{
		{name: "under the cap", count: 1, wantVisible: 1, wantMore: 0},
		{name: "at the cap", count: 2, wantVisible: 2, wantMore: 0},
		{name: "one over", count: 3, wantVisible: 2, wantMore: 1},
		{name: "far over", count: 7, wantVisible: 2, wantMore: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]item, tt.count)
			for i := range items {
				items[i] = item{id: string(rune('a' + i)), date: "2025-10-02"}
			}
			got := BuildCells(cells, anchor, items, func(i item) string { return i.date }, 2)
			if len(got[0].Visible) != tt.wantVisible {
				t.Errorf("Visible = %d, want %d", len(got[0].Visible), tt.wantVisible)
			}
			if got[0].More != tt.wantMore {
				t.Errorf("More = %d, want %d", got[0].More, tt.wantMore)
			}
			if len(got[0].All) != tt.count {
				t.Errorf("All = %d, want %d", len(got[0].All), tt.count)
			}
		})
	}
}

func TestBuildCellsInMonth(t *testing.T) {
	anchor := Date{Year: 2025, Month: time.October, Day: 20}
	cells := VisibleDates(ModeMonth, anchor)
	got := BuildCells(cells, anchor, nil, func(i item) string { return i.date }, 2)

	for _, c := range got {
		want := c.Date.Month == time.October && c.Date.Year == 2025
		if c.InMonth != want {
			t.Errorf("cell %s InMonth = %v, want %v", c.Date.Key(), c.InMonth, want)
		}
	}
}
