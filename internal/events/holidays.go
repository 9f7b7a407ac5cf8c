package events

// Holiday is a seed entry: a fixed date and its title.
type Holiday struct {
	Date  string
	Title string
}

// DefaultHolidays2026 are the national holidays the collection starts with.
var DefaultHolidays2026 = []Holiday{
	{Date: "2026-01-01", Title: "Tết Dương Lịch"},
	{Date: "2026-02-17", Title: "Tết Nguyên Đán (Mùng 1)"},
	{Date: "2026-02-18", Title: "Tết Nguyên Đán (Mùng 2)"},
	{Date: "2026-02-19", Title: "Tết Nguyên Đán (Mùng 3)"},
	{Date: "2026-03-26", Title: "Giỗ tổ Hùng Vương"},
	{Date: "2026-04-30", Title: "Giải phóng miền Nam"},
	{Date: "2026-05-01", Title: "Quốc tế Lao động"},
	{Date: "2026-09-02", Title: "Quốc khánh"},
	{Date: "2026-12-25", Title: "Giáng sinh"},
}
