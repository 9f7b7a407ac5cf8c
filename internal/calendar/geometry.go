// Package calendar holds the month-grid arithmetic shared by the API and the
// event store: month lengths, weekday columns and display names.
package calendar

import (
	"fmt"
	"time"
)

// DaysInMonth returns the number of days in the given zero-based month.
// Day 0 of the following month normalises to the last day of this one.
func DaysInMonth(year, monthIndex0 int) int {
	return time.Date(year, time.Month(monthIndex0+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekdayColumn returns the column (Monday=0 … Sunday=6) in which day 1
// of the month falls.
func FirstWeekdayColumn(year, monthIndex0 int) int {
	wd := time.Date(year, time.Month(monthIndex0+1), 1, 0, 0, 0, 0, time.UTC).Weekday()
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

// FirstWeekdayColumnFrom is FirstWeekdayColumn for a week that starts on
// weekStart instead of Monday.
func FirstWeekdayColumnFrom(year, monthIndex0 int, weekStart time.Weekday) int {
	wd := time.Date(year, time.Month(monthIndex0+1), 1, 0, 0, 0, 0, time.UTC).Weekday()
	return (int(wd) - int(weekStart) + 7) % 7
}

// DateString formats a zero-based month and day as YYYY-MM-DD.
func DateString(year, monthIndex0, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, monthIndex0+1, day)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

func NextMonth(monthIndex0 int) int {
	return (monthIndex0 + 1) % 12
}

func PrevMonth(monthIndex0 int) int {
	return (monthIndex0 + 11) % 12
}
