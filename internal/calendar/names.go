package calendar

import "time"

var monthNames = [12]string{
	"Tháng 1", "Tháng 2", "Tháng 3", "Tháng 4", "Tháng 5", "Tháng 6",
	"Tháng 7", "Tháng 8", "Tháng 9", "Tháng 10", "Tháng 11", "Tháng 12",
}

// weekdayNames is indexed by time.Weekday.
var weekdayNames = [7]string{
	"Chủ Nhật", "Thứ 2", "Thứ 3", "Thứ 4", "Thứ 5", "Thứ 6", "Thứ 7",
}

// MonthName returns the display name of a zero-based month. It is also the
// key under which month insights are cached. Out-of-range indexes return "".
func MonthName(monthIndex0 int) string {
	if monthIndex0 < 0 || monthIndex0 > 11 {
		return ""
	}
	return monthNames[monthIndex0]
}

// MonthNames returns all twelve display names in calendar order.
func MonthNames() []string {
	out := make([]string, len(monthNames))
	copy(out, monthNames[:])
	return out
}

// WeekdayLabels returns the column headers for a week starting on weekStart.
func WeekdayLabels(weekStart time.Weekday) []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = weekdayNames[(int(weekStart)+i)%7]
	}
	return out
}
