package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tetcal/internal/calendar"
	"tetcal/internal/config"
	"tetcal/internal/events"
	"tetcal/internal/insight"
	"tetcal/internal/model"
	"tetcal/internal/persist"
)

var march = model.MonthInsight{Vibe: "Tươi mới", Suggestion: "Trồng cây.", Quote: "Mùa xuân là tết trồng cây."}

type monthJSON struct {
	Name        string                `json:"name"`
	Days        int                   `json:"days"`
	FirstColumn int                   `json:"first_column"`
	Cells       []calendar.Cell       `json:"cells"`
	Events      []model.CalendarEvent `json:"events"`
	Insight     *model.MonthInsight   `json:"insight"`
}

type testEnv struct {
	srv     *Server
	handler http.Handler
	store   *events.Store
	calls   int
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.CORSOrigins = nil
	if mutate != nil {
		mutate(cfg)
	}

	port := persist.NewMemStore()
	store, err := events.New(port)
	if err != nil {
		t.Fatalf("new event store: %v", err)
	}

	env := &testEnv{store: store}
	provider := insight.ProviderFunc(func(_ context.Context, name string) (model.MonthInsight, error) {
		env.calls++
		if name == "Tháng 3" {
			return march, nil
		}
		return model.MonthInsight{}, context.DeadlineExceeded
	})
	cache := insight.NewCache(port, provider)

	env.srv = NewServer(cfg, store, cache)
	env.srv.now = func() time.Time { return time.Date(2026, 2, 17, 8, 0, 0, 0, time.UTC) }
	env.handler = env.srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestMonthGrid(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/months/2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[monthJSON](t, rec)

	if resp.Name != "Tháng 2" || resp.Days != 28 || resp.FirstColumn != 6 {
		t.Errorf("grid header: %+v", resp)
	}
	if len(resp.Events) != 3 || resp.Events[0].Date != "2026-02-17" {
		t.Errorf("events: %+v", resp.Events)
	}
	for _, c := range resp.Cells {
		if c.Today != (c.Date == "2026-02-17") {
			t.Errorf("cell %+v: wrong today flag", c)
		}
	}
	if resp.Insight != nil {
		t.Error("insight should be omitted until cached")
	}
	if env.calls != 0 {
		t.Error("month grid must not call the insight provider")
	}
}

func TestMonthRejectsOutOfRange(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, p := range []string{"/api/months/0", "/api/months/13"} {
		if rec := env.do(t, http.MethodGet, p, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", p, rec.Code)
		}
	}
}

func TestAddListDeleteEvent(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/events", `{"title":"Mừng tuổi ông bà","date":"2026-02-18","type":"personal"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[model.CalendarEvent](t, rec)
	if created.ID == "" || created.Type != model.EventPersonal {
		t.Fatalf("created: %+v", created)
	}

	rec = env.do(t, http.MethodGet, "/api/events?date=2026-02-18", "")
	onDate := decode[[]model.CalendarEvent](t, rec)
	if len(onDate) != 2 || onDate[1].ID != created.ID {
		t.Fatalf("events on date: %+v", onDate)
	}

	rec = env.do(t, http.MethodDelete, "/api/events/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/events/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d", rec.Code)
	}

	all := decode[[]model.CalendarEvent](t, env.do(t, http.MethodGet, "/api/events", ""))
	if len(all) != len(events.DefaultHolidays2026) {
		t.Fatalf("got %d events after delete", len(all))
	}
}

func TestAddEventDefaultsToPersonal(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/events", `{"title":"Đi chợ hoa","date":"2026-02-15"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d", rec.Code)
	}
	if ev := decode[model.CalendarEvent](t, rec); ev.Type != model.EventPersonal {
		t.Errorf("type = %s", ev.Type)
	}
}

func TestAddEventValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	cases := map[string]struct {
		body string
		want int
	}{
		"bad json":     {`{`, http.StatusBadRequest},
		"blank title":  {`{"title":"  ","date":"2026-02-15"}`, http.StatusUnprocessableEntity},
		"no date":      {`{"title":"x"}`, http.StatusUnprocessableEntity},
		"unknown type": {`{"title":"x","date":"2026-02-15","type":"party"}`, http.StatusUnprocessableEntity},
	}
	for name, c := range cases {
		if rec := env.do(t, http.MethodPost, "/api/events", c.body); rec.Code != c.want {
			t.Errorf("%s: status %d, want %d", name, rec.Code, c.want)
		}
	}
	if n := len(env.store.All()); n != len(events.DefaultHolidays2026) {
		t.Errorf("rejected requests changed the store: %d events", n)
	}
}

func TestInsightCachedAndFallback(t *testing.T) {
	env := newTestEnv(t, nil)

	got := decode[model.MonthInsight](t, env.do(t, http.MethodGet, "/api/insight/3", ""))
	if got != march {
		t.Fatalf("got %+v", got)
	}
	env.do(t, http.MethodGet, "/api/insight/3", "")
	if env.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", env.calls)
	}

	// Cached insight now shows up in the month view.
	month := decode[monthJSON](t, env.do(t, http.MethodGet, "/api/months/3", ""))
	if month.Insight == nil || *month.Insight != march {
		t.Errorf("month insight = %+v", month.Insight)
	}

	rec := env.do(t, http.MethodGet, "/api/insight/4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if got := decode[model.MonthInsight](t, rec); got != insight.Fallback {
		t.Fatalf("got %+v, want fallback", got)
	}
}

func TestBasicAuth(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "gia-dinh", Password: "tet2026"}
	})

	if rec := env.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health behind auth: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/events", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("gia-dinh", "tet2026")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated: %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.CORSOrigins = []string{"http://localhost:5173"}
	})
	req := httptest.NewRequest(http.MethodOptions, "/api/events", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.do(t, http.MethodGet, "/api/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status %d", rec.Code)
	}
}
