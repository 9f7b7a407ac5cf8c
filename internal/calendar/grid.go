package calendar

import "time"

// Cell is one slot of a month grid. Pad cells have Day == 0 and an empty Date.
type Cell struct {
	Day    int    `json:"day"`
	Date   string `json:"date,omitempty"`
	Column int    `json:"column"`
	Today  bool   `json:"today,omitempty"`
}

// Month is the display grid of a single month.
type Month struct {
	Year        int      `json:"year"`
	MonthIndex  int      `json:"month_index"`
	Name        string   `json:"name"`
	Days        int      `json:"days"`
	FirstColumn int      `json:"first_column"`
	Weekdays    []string `json:"weekdays"`
	Cells       []Cell   `json:"cells"`
}

// GridOptions controls BuildMonth. The zero value builds a Monday-first grid
// with no "today" marker.
type GridOptions struct {
	SundayFirst bool
	// Now, if set, is used to flag the cell for the current date.
	Now func() time.Time
}

// BuildMonth lays out a month as whole weeks: leading pad cells up to the
// first day's column, one cell per day, and trailing pad cells to finish the
// last week.
func BuildMonth(year, monthIndex0 int, opts GridOptions) Month {
	weekStart := time.Monday
	if opts.SundayFirst {
		weekStart = time.Sunday
	}

	days := DaysInMonth(year, monthIndex0)
	first := FirstWeekdayColumnFrom(year, monthIndex0, weekStart)

	today := ""
	if opts.Now != nil {
		today = opts.Now().Format(time.DateOnly)
	}

	total := first + days
	if rem := total % 7; rem != 0 {
		total += 7 - rem
	}

	cells := make([]Cell, 0, total)
	for i := 0; i < first; i++ {
		cells = append(cells, Cell{Column: i})
	}
	for d := 1; d <= days; d++ {
		date := DateString(year, monthIndex0, d)
		cells = append(cells, Cell{
			Day:    d,
			Date:   date,
			Column: len(cells) % 7,
			Today:  date == today,
		})
	}
	for len(cells) < total {
		cells = append(cells, Cell{Column: len(cells) % 7})
	}

	return Month{
		Year:        year,
		MonthIndex:  monthIndex0,
		Name:        MonthName(monthIndex0),
		Days:        days,
		FirstColumn: first,
		Weekdays:    WeekdayLabels(weekStart),
		Cells:       cells,
	}
}
