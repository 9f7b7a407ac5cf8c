package events

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"tetcal/internal/model"
	"tetcal/internal/persist"
)

func sequentialIDs() IDGenerator {
	n := 0
	return IDFunc(func() string {
		n++
		return fmt.Sprintf("ev-%d", n)
	})
}

func newTestStore(t *testing.T, port persist.Store, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	s, err := New(port, opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

// failingPort accepts loads but rejects every save.
type failingPort struct {
	persist.Store
}

func (failingPort) Save(string, []byte) error { return errors.New("disk full") }

func TestFirstRunSeedsHolidays(t *testing.T) {
	port := persist.NewMemStore()
	s := newTestStore(t, port)

	all := s.All()
	if len(all) != len(DefaultHolidays2026) {
		t.Fatalf("got %d events, want %d", len(all), len(DefaultHolidays2026))
	}
	ids := make(map[string]bool)
	for i, ev := range all {
		if ev.Type != model.EventHoliday {
			t.Errorf("event %d type = %s, want holiday", i, ev.Type)
		}
		if ev.Date != DefaultHolidays2026[i].Date || ev.Title != DefaultHolidays2026[i].Title {
			t.Errorf("event %d = %+v, want %+v", i, ev, DefaultHolidays2026[i])
		}
		if ids[ev.ID] {
			t.Errorf("duplicate id %s", ev.ID)
		}
		ids[ev.ID] = true
	}
	if n := port.Writes(DefaultKey); n != 1 {
		t.Errorf("seed writes = %d, want 1", n)
	}
}

func TestEmptyCollectionIsNotReseeded(t *testing.T) {
	port := persist.NewMemStore()
	s := newTestStore(t, port)
	for _, ev := range s.All() {
		if !s.Remove(ev.ID) {
			t.Fatalf("remove %s failed", ev.ID)
		}
	}
	if len(s.All()) != 0 {
		t.Fatal("expected empty collection")
	}

	reloaded := newTestStore(t, port)
	if got := reloaded.All(); len(got) != 0 {
		t.Fatalf("holidays resurrected after reload: %d events", len(got))
	}
}

func TestCorruptBlobReseeds(t *testing.T) {
	port := persist.NewMemStore()
	if err := port.Save(DefaultKey, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	s := newTestStore(t, port)
	if len(s.All()) != len(DefaultHolidays2026) {
		t.Fatalf("got %d events, want seed", len(s.All()))
	}
}

func TestLoadDropsInvalidStoredEvents(t *testing.T) {
	port := persist.NewMemStore()
	blob := `[
		{"id":"a","title":"ok","date":"2026-03-01","type":"work"},
		{"id":"b","title":"bad type","date":"2026-03-02","type":"meeting"},
		{"id":"c","title":"bad date","date":"2026-02-30","type":"other"},
		{"id":"d","title":"wrong year","date":"2025-03-02","type":"other"},
		{"id":"a","title":"dup","date":"2026-03-03","type":"other"}
	]`
	if err := port.Save(DefaultKey, []byte(blob)); err != nil {
		t.Fatal(err)
	}
	s := newTestStore(t, port)
	all := s.All()
	if len(all) != 1 || all[0].ID != "a" || all[0].Title != "ok" {
		t.Fatalf("got %+v", all)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	port := persist.NewMemStore()
	s := newTestStore(t, port)
	before := len(s.All())
	writes := port.Writes(DefaultKey)

	cases := []struct {
		name, title, date string
		typ               model.EventType
	}{
		{"empty title", "", "2026-05-10", model.EventPersonal},
		{"blank title", "   \t", "2026-05-10", model.EventPersonal},
		{"no date", "Sinh nhật mẹ", "", model.EventPersonal},
		{"bad date", "Sinh nhật mẹ", "2026-13-01", model.EventPersonal},
		{"other year", "Sinh nhật mẹ", "2027-05-10", model.EventPersonal},
		{"unknown type", "Sinh nhật mẹ", "2026-05-10", model.EventType("party")},
	}
	for _, c := range cases {
		if _, ok := s.Add(c.title, c.date, c.typ); ok {
			t.Errorf("%s: add accepted", c.name)
		}
	}
	if got := len(s.All()); got != before {
		t.Errorf("collection size changed: %d -> %d", before, got)
	}
	if got := port.Writes(DefaultKey); got != writes {
		t.Errorf("rejected adds persisted: writes %d -> %d", writes, got)
	}
}

func TestAddVisibleOnDate(t *testing.T) {
	port := persist.NewMemStore()
	s := newTestStore(t, port)
	writes := port.Writes(DefaultKey)

	ev, ok := s.Add("Họp lớp", "2026-02-17", model.EventPersonal)
	if !ok {
		t.Fatal("add rejected")
	}
	if port.Writes(DefaultKey) != writes+1 {
		t.Error("add did not persist")
	}

	on := s.EventsOnDate("2026-02-17")
	count := 0
	for _, e := range on {
		if e.ID == ev.ID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("new event appears %d times on its date", count)
	}
	// Insertion order: the seeded holiday comes first.
	if len(on) != 2 || on[0].Type != model.EventHoliday || on[1].ID != ev.ID {
		t.Errorf("unexpected order: %+v", on)
	}
	if got := s.EventsOnDate("2026-02-16"); len(got) != 0 {
		t.Errorf("expected no events on 2026-02-16, got %d", len(got))
	}
}

func TestRemove(t *testing.T) {
	port := persist.NewMemStore()
	s := newTestStore(t, port)
	before := s.All()

	if s.Remove("does-not-exist") {
		t.Error("remove of unknown id reported success")
	}
	if !reflect.DeepEqual(s.All(), before) {
		t.Fatal("remove of unknown id changed the collection")
	}

	target := before[1]
	if !s.Remove(target.ID) {
		t.Fatal("remove existing failed")
	}
	after := s.All()
	if len(after) != len(before)-1 {
		t.Fatalf("size %d -> %d, want decrease by one", len(before), len(after))
	}
	for _, ev := range after {
		if ev.ID == target.ID {
			t.Fatal("removed id still present")
		}
	}
	for _, ev := range s.EventsOnDate(target.Date) {
		if ev.ID == target.ID {
			t.Fatal("removed id still returned by date query")
		}
	}
	for _, ev := range s.EventsInMonth(2026, 1) {
		if ev.ID == target.ID {
			t.Fatal("removed id still returned by month query")
		}
	}
}

func TestEventsInMonthSeedFebruary(t *testing.T) {
	s := newTestStore(t, persist.NewMemStore())
	feb := s.EventsInMonth(2026, 1)
	if len(feb) != 3 {
		t.Fatalf("got %d February events, want 3", len(feb))
	}
	if feb[0].Date != "2026-02-17" {
		t.Errorf("first February event on %s, want 2026-02-17", feb[0].Date)
	}
	if got := s.EventsInMonth(2025, 1); len(got) != 0 {
		t.Errorf("wrong year matched %d events", len(got))
	}
}

func TestEventsInMonthSorted(t *testing.T) {
	s := newTestStore(t, persist.NewMemStore(), WithSeed(nil))
	for _, d := range []string{"2026-07-20", "2026-07-03", "2026-08-01", "2026-07-11", "2026-07-03"} {
		if _, ok := s.Add("việc "+d, d, model.EventWork); !ok {
			t.Fatalf("add %s rejected", d)
		}
	}
	july := s.EventsInMonth(2026, 6)
	if len(july) != 4 {
		t.Fatalf("got %d July events, want 4", len(july))
	}
	for i := 1; i < len(july); i++ {
		if july[i-1].Date > july[i].Date {
			t.Fatalf("not sorted: %s before %s", july[i-1].Date, july[i].Date)
		}
	}
	// Same-date events keep insertion order.
	if july[0].ID != "ev-2" || july[1].ID != "ev-5" {
		t.Errorf("tie order: %s, %s", july[0].ID, july[1].ID)
	}
}

func TestReloadPreservesOrder(t *testing.T) {
	port := persist.NewMemStore()
	s := newTestStore(t, port)
	s.Add("Đi chùa", "2026-02-20", model.EventPersonal)
	s.Add("Nộp báo cáo", "2026-01-15", model.EventWork)
	s.Remove(s.All()[0].ID)

	reloaded, err := New(port)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(reloaded.All(), s.All()) {
		t.Fatalf("reload mismatch:\n got %+v\nwant %+v", reloaded.All(), s.All())
	}
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	s := newTestStore(t, failingPort{persist.NewMemStore()})
	if len(s.All()) != len(DefaultHolidays2026) {
		t.Fatal("seed lost after failed save")
	}
	if _, ok := s.Add("Du lịch", "2026-06-01", model.EventOther); !ok {
		t.Fatal("add rejected")
	}
	if len(s.EventsOnDate("2026-06-01")) != 1 {
		t.Fatal("event not visible after failed save")
	}
}

func TestCollidingIDsAreReplaced(t *testing.T) {
	s, err := New(persist.NewMemStore(),
		WithSeed(nil),
		WithIDGenerator(IDFunc(func() string { return "same" })),
	)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := s.Add("A", "2026-04-01", model.EventOther)
	b, _ := s.Add("B", "2026-04-01", model.EventOther)
	if a.ID == b.ID {
		t.Fatalf("duplicate ids: %s", a.ID)
	}
}

func TestCustomSeedSkipsInvalidEntries(t *testing.T) {
	s := newTestStore(t, persist.NewMemStore(), WithSeed([]Holiday{
		{Date: "2026-06-01", Title: "Quốc tế Thiếu nhi"},
		{Date: "2025-06-01", Title: "last year"},
		{Date: "2026-06-02", Title: " "},
	}))
	all := s.All()
	if len(all) != 1 || all[0].Title != "Quốc tế Thiếu nhi" {
		t.Fatalf("got %+v", all)
	}
}

func TestNewRejectsNilPort(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error")
	}
}
