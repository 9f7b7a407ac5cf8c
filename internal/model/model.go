package model

// EventType is the closed set of categories an event can belong to.
type EventType string

const (
	EventWork     EventType = "work"
	EventPersonal EventType = "personal"
	EventHoliday  EventType = "holiday"
	EventOther    EventType = "other"
)

// Valid reports whether t is one of the four known categories.
func (t EventType) Valid() bool {
	switch t {
	case EventWork, EventPersonal, EventHoliday, EventOther:
		return true
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(s string) (EventType, bool) {
	t := EventType(s)
	return t, t.Valid()
}

// CalendarEvent is a single-day entry in the calendar. Date is always
// "YYYY-MM-DD" so that string order equals chronological order.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date"`
	Type        EventType `json:"type"`
}

// MonthInsight is the short blurb shown next to a month: its mood, a
// suggested activity and a quote.
type MonthInsight struct {
	Vibe       string `json:"vibe"`
	Suggestion string `json:"suggestion"`
	Quote      string `json:"quote"`
}

// Complete reports whether every field is populated.
func (m MonthInsight) Complete() bool {
	return m.Vibe != "" && m.Suggestion != "" && m.Quote != ""
}
