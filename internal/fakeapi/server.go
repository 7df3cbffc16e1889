// Package fakeapi is an in-process stand-in for the URL analysis backend:
// the REST routes under /api, the /health check and the /ws push channel.
package fakeapi

import (
	"cmp"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/lukasdemani/searcher-app/internal/model"
)

type Settings struct {
	// APIKey is required on /api routes when set.
	APIKey string
	// AnalyzeDelay completes an analysis automatically after the delay.
	// Zero leaves records processing until Complete is called.
	AnalyzeDelay time.Duration
	// Now stamps created and updated times. Defaults to time.Now.
	Now func() time.Time
}

// Server holds the fake backend state.
type Server struct {
	settings Settings
	logger   *slog.Logger
	hub      *hub
	router   *mux.Router

	mu       sync.Mutex
	records  map[int64]model.AnalysisRecord
	nextID   int64
	failWith int
	requests map[string]int
}

func New(settings Settings, logger *slog.Logger) *Server {
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		settings: settings,
		logger:   logger.With("component", "fakeapi"),
		records:  make(map[int64]model.AnalysisRecord),
		nextID:   1,
		requests: make(map[string]int),
	}
	s.hub = newHub(s.logger)
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.Methods(http.MethodGet).Path("/health").HandlerFunc(s.handleHealth)
	r.Methods(http.MethodGet).Path("/ws").HandlerFunc(s.hub.serve)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.countRequests, s.requireAPIKey, s.injectFailure)
	api.Methods(http.MethodGet).Path("/urls").HandlerFunc(s.handleList)
	api.Methods(http.MethodPost).Path("/urls").HandlerFunc(s.handleCreate)
	api.Methods(http.MethodPost).Path("/urls/bulk-analyze").HandlerFunc(s.handleBulkAnalyze)
	api.Methods(http.MethodPost).Path("/urls/bulk-delete").HandlerFunc(s.handleBulkDelete)
	api.Methods(http.MethodGet).Path("/urls/{id:[0-9]+}").HandlerFunc(s.handleGet)
	api.Methods(http.MethodPut).Path("/urls/{id:[0-9]+}/analyze").HandlerFunc(s.handleAnalyze)
	api.Methods(http.MethodDelete).Path("/urls/{id:[0-9]+}").HandlerFunc(s.handleDelete)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.logger.Debug("handled",
			"method", r.Method,
			"url", r.URL.String(),
			"duration", m.Duration,
			"status", m.Code,
			"request_id", r.Header.Get("X-Request-ID"),
		)
	})
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tmpl := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if t, err := route.GetPathTemplate(); err == nil {
				tmpl = t
			}
		}
		s.mu.Lock()
		s.requests[r.Method+" "+tmpl]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.settings.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		switch r.Header.Get("X-API-Key") {
		case "":
			s.renderError(w, http.StatusUnauthorized, "API key is required")
		case s.settings.APIKey:
			next.ServeHTTP(w, r)
		default:
			s.renderError(w, http.StatusUnauthorized, "Invalid API key")
		}
	})
}

func (s *Server) injectFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := s.failWith
		s.mu.Unlock()
		if status != 0 {
			s.renderError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Seed stores records as given. IDs of zero are assigned.
func (s *Server) Seed(recs ...model.AnalysisRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		if rec.ID == 0 {
			rec.ID = s.nextID
		}
		s.nextID = max(s.nextID, rec.ID+1)
		if rec.Status == "" {
			rec.Status = model.StatusQueued
		}
		s.records[rec.ID] = rec
	}
}

// Records returns every stored record, newest first.
func (s *Server) Records() []model.AnalysisRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Server) sortedLocked() []model.AnalysisRecord {
	out := make([]model.AnalysisRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b model.AnalysisRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// SetFailure makes every /api route answer with status. Zero clears it.
func (s *Server) SetFailure(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = status
}

// Requests returns how many times a route was hit, keyed as
// "GET /api/urls" or "PUT /api/urls/{id:[0-9]+}/analyze".
func (s *Server) Requests(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

// Complete finishes the analysis of a record and broadcasts the full record.
func (s *Server) Complete(id int64) bool {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	rec = analyzed(rec, s.settings.Now())
	s.records[id] = rec
	s.mu.Unlock()

	s.Broadcast(model.StatusFrame{
		Type:   model.FrameTypeStatusUpdate,
		URLID:  id,
		Status: string(rec.Status),
		Data:   rec,
	})
	return true
}

// Broadcast sends a status frame to every push client.
func (s *Server) Broadcast(frame model.StatusFrame) {
	s.hub.broadcastJSON(frame)
}

// BroadcastRaw sends raw bytes as a text frame to every push client.
func (s *Server) BroadcastRaw(raw []byte) {
	s.hub.broadcast(raw)
}

// Clients returns the number of connected push clients.
func (s *Server) Clients() int {
	return s.hub.count()
}

// DropClients disconnects every push client. A zero code drops the
// connection without a close frame.
func (s *Server) DropClients(code int) {
	s.hub.closeAll(code)
}

// RefusePush makes the /ws endpoint reject upgrades while refuse is true.
func (s *Server) RefusePush(refuse bool) {
	s.hub.refuse(refuse)
}

// analyzed returns rec with a deterministic analysis result.
func analyzed(rec model.AnalysisRecord, now time.Time) model.AnalysisRecord {
	host := rec.URL
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host, _, _ = strings.Cut(host, "/")

	rec.Title = host
	rec.HTMLVersion = "HTML5"
	rec.H1Count = 1
	rec.H2Count = len(host) % 4
	rec.InternalLinksCount = len(rec.URL) % 17
	rec.ExternalLinksCount = len(host) % 5
	rec.BrokenLinksCount = 0
	rec.HasLoginForm = strings.Contains(rec.URL, "login")
	rec.Status = model.StatusCompleted
	rec.ErrorMessage = ""
	rec.UpdatedAt = now
	return rec
}
