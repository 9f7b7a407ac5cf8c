package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"tetcal/internal/calendar"
	"tetcal/internal/config"
	appLog "tetcal/internal/log"
	"tetcal/internal/model"
)

// EventStore is what the API needs from the event collection.
type EventStore interface {
	Add(title, date string, typ model.EventType) (model.CalendarEvent, bool)
	Remove(id string) bool
	EventsOnDate(date string) []model.CalendarEvent
	EventsInMonth(year, monthIndex0 int) []model.CalendarEvent
	All() []model.CalendarEvent
}

// InsightSource is what the API needs from the insight cache.
type InsightSource interface {
	Get(ctx context.Context, monthName string) model.MonthInsight
	Lookup(monthName string) (model.MonthInsight, bool)
}

// Server exposes the calendar core as a JSON API for the UI.
type Server struct {
	cfg      *config.Config
	router   *mux.Router
	events   EventStore
	insights InsightSource
	now      func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, events EventStore, insights InsightSource) *Server {
	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		events:   events,
		insights: insights,
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler: routes, then basic auth, then CORS.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	if len(s.cfg.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}).Handler(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="TetCal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/months/{month:[0-9]+}", s.handleMonth).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleAddEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}", s.handleDeleteEvent).Methods(http.MethodDelete)
	api.HandleFunc("/insight/{month:[0-9]+}", s.handleInsight).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	s.router.Use(recoveryMiddleware)
	s.router.Use(loggingMiddleware)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// monthResponse is the JSON shape for /api/months/{month}.
type monthResponse struct {
	calendar.Month
	Events  []model.CalendarEvent `json:"events"`
	Insight *model.MonthInsight   `json:"insight,omitempty"`
}

// handleMonth returns the display grid of a month of the configured year with
// its events. month is 1-based in the URL. The insight is included only when
// it is already cached; fetching it is /api/insight's job.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	idx, ok := monthIndexVar(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	grid := calendar.BuildMonth(s.cfg.Year, idx, calendar.GridOptions{
		SundayFirst: s.cfg.WeekStart == "sunday",
		Now:         s.now,
	})
	resp := monthResponse{
		Month:  grid,
		Events: s.events.EventsInMonth(s.cfg.Year, idx),
	}
	if v, ok := s.insights.Lookup(grid.Name); ok {
		resp.Insight = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListEvents returns every event, or only those on ?date=YYYY-MM-DD.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if date := r.URL.Query().Get("date"); date != "" {
		writeJSON(w, http.StatusOK, s.events.EventsOnDate(date))
		return
	}
	writeJSON(w, http.StatusOK, s.events.All())
}

type addEventRequest struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Type  string `json:"type"`
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var req addEventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// The UI preselects "personal" when the user picks nothing.
	typ := model.EventPersonal
	if req.Type != "" {
		t, ok := model.ParseEventType(req.Type)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "unknown event type")
			return
		}
		typ = t
	}

	ev, ok := s.events.Add(req.Title, req.Date, typ)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "title and a valid date are required")
		return
	}
	appLog.Info("event created", "id", ev.ID, "date", ev.Date, "type", ev.Type)
	writeJSON(w, http.StatusCreated, ev)
}

// handleDeleteEvent removes an event. Confirmation is the UI's job.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.events.Remove(id) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	appLog.Info("event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleInsight returns the month insight, fetching it on a cache miss. It
// never fails because of the provider: the cache substitutes a fallback.
func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	idx, ok := monthIndexVar(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}
	writeJSON(w, http.StatusOK, s.insights.Get(r.Context(), calendar.MonthName(idx)))
}

// monthIndexVar reads the 1-based {month} route variable as a zero-based index.
func monthIndexVar(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(mux.Vars(r)["month"])
	if err != nil || n < 1 || n > 12 {
		return 0, false
	}
	return n - 1, true
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start).String(),
		)
	})
}

// recoveryMiddleware turns a handler panic into a 500.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				appLog.Error("handler panic", fmt.Errorf("%v", v), "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
