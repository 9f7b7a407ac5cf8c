// Package events owns the calendar's event collection and its persistence.
package events

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"tetcal/internal/calendar"
	appLog "tetcal/internal/log"
	"tetcal/internal/model"
	"tetcal/internal/persist"
)

const (
	DefaultKey  = "calendar_events_2026_final"
	DefaultYear = 2026
)

// Store is the single source of truth for calendar events. Every mutation
// rewrites the whole collection under one key.
type Store struct {
	mu     sync.RWMutex
	events []model.CalendarEvent

	port persist.Store
	ids  IDGenerator
	key  string
	year int
	seed []Holiday
}

// Option configures a Store.
type Option func(*Store)

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithSeed replaces the holiday list used on first run.
func WithSeed(h []Holiday) Option {
	return func(s *Store) { s.seed = h }
}

func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithYear sets the only year events may fall in.
func WithYear(year int) Option {
	return func(s *Store) { s.year = year }
}

// New loads the persisted collection from port. When nothing is stored, or
// the stored blob cannot be decoded, the store is seeded with holidays and
// the seed is written back. A stored collection, even an empty one, is
// never re-seeded.
func New(port persist.Store, opts ...Option) (*Store, error) {
	if port == nil {
		return nil, errors.New("events: nil persist store")
	}
	s := &Store{
		port: port,
		ids:  UUIDGenerator{},
		key:  DefaultKey,
		year: DefaultYear,
		seed: DefaultHolidays2026,
	}
	for _, opt := range opts {
		opt(s)
	}

	if loaded, ok := s.load(); ok {
		s.events = loaded
		appLog.Info("events loaded", "key", s.key, "count", len(loaded))
		return s, nil
	}

	s.seedEvents()
	appLog.Info("events seeded", "key", s.key, "count", len(s.events))
	s.persist()
	return s, nil
}

// load returns the stored collection and whether it should be treated as
// authoritative.
func (s *Store) load() ([]model.CalendarEvent, bool) {
	data, err := s.port.Load(s.key)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			appLog.Error("events load failed; seeding", err, "key", s.key)
		}
		return nil, false
	}

	var raw []model.CalendarEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		appLog.Error("events blob corrupt; seeding", err, "key", s.key)
		return nil, false
	}

	out := make([]model.CalendarEvent, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, ev := range raw {
		if ev.ID == "" || seen[ev.ID] || !ev.Type.Valid() || !s.validDate(ev.Date) {
			appLog.Info("dropping invalid stored event", "id", ev.ID, "date", ev.Date, "type", ev.Type)
			continue
		}
		seen[ev.ID] = true
		out = append(out, ev)
	}
	return out, true
}

func (s *Store) seedEvents() {
	s.events = make([]model.CalendarEvent, 0, len(s.seed))
	for _, h := range s.seed {
		if !s.validDate(h.Date) || strings.TrimSpace(h.Title) == "" {
			appLog.Info("skipping invalid seed holiday", "date", h.Date, "title", h.Title)
			continue
		}
		s.events = append(s.events, model.CalendarEvent{
			ID:    s.newUniqueID(),
			Title: h.Title,
			Date:  h.Date,
			Type:  model.EventHoliday,
		})
	}
}

// persist writes the full collection. mu must be held by mutators.
func (s *Store) persist() {
	events := s.events
	if events == nil {
		events = []model.CalendarEvent{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		appLog.Error("events marshal failed", err, "key", s.key)
		return
	}
	if err := s.port.Save(s.key, data); err != nil {
		// In-memory state stays authoritative for this process.
		appLog.Error("events save failed", err, "key", s.key, "count", len(s.events))
	}
}

func (s *Store) validDate(date string) bool {
	t, err := calendar.ParseDate(date)
	if err != nil {
		return false
	}
	return t.Year() == s.year
}

// Add appends a new event and persists the collection. It reports false,
// without touching state, when the title is blank, the date is missing or
// outside the store's year, or the type is unknown.
func (s *Store) Add(title, date string, typ model.EventType) (model.CalendarEvent, bool) {
	if strings.TrimSpace(title) == "" || !s.validDate(date) || !typ.Valid() {
		return model.CalendarEvent{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev := model.CalendarEvent{
		ID:    s.newUniqueID(),
		Title: title,
		Date:  date,
		Type:  typ,
	}
	s.events = append(s.events, ev)
	s.persist()

	appLog.Debug("event added", "id", ev.ID, "date", ev.Date, "type", ev.Type)
	return ev, true
}

// newUniqueID retries the generator on a collision with an existing id and
// falls back to a UUID if it keeps colliding. mu must be held.
func (s *Store) newUniqueID() string {
	for i := 0; i < 8; i++ {
		if id := s.ids.NewID(); id != "" && !s.hasID(id) {
			return id
		}
	}
	return UUIDGenerator{}.NewID()
}

func (s *Store) hasID(id string) bool {
	for _, ev := range s.events {
		if ev.ID == id {
			return true
		}
	}
	return false
}

// Remove deletes the event with the given id and persists the result.
// Unknown ids are not an error; the return value says whether anything was
// removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	kept := s.events[:0:0]
	for _, ev := range s.events {
		if ev.ID == id {
			removed = true
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	s.persist()

	if removed {
		appLog.Debug("event removed", "id", id)
	}
	return removed
}

// EventsOnDate returns events whose date equals date exactly, in insertion
// order.
func (s *Store) EventsOnDate(date string) []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CalendarEvent, 0)
	for _, ev := range s.events {
		if ev.Date == date {
			out = append(out, ev)
		}
	}
	return out
}

// EventsInMonth returns the events of a zero-based month sorted by date.
// Events on the same date keep insertion order.
func (s *Store) EventsInMonth(year, monthIndex0 int) []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CalendarEvent, 0)
	for _, ev := range s.events {
		t, err := calendar.ParseDate(ev.Date)
		if err != nil {
			continue
		}
		if t.Year() == year && t.Month() == time.Month(monthIndex0+1) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Year is the year this store accepts events for.
func (s *Store) Year() int {
	return s.year
}
