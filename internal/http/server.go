package http

import (
	"context"
	"net/http"
	"sync"

	"htracker/internal/middleware/ratelimit"
	"htracker/internal/middleware/security"
	"htracker/internal/middleware/trace"
	"htracker/internal/services"
)

// Pinger reports storage readiness.
type Pinger interface {
	Ping() error
}

type Server struct {
	http.Server
	trackers    *services.TrackerService
	entries     *services.EntryService
	db          Pinger
	defaultUser string

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, trackers *services.TrackerService, entries *services.EntryService, db Pinger, defaultUser string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server:      http.Server{Addr: addr},
		trackers:    trackers,
		entries:     entries,
		db:          db,
		defaultUser: defaultUser,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/trackers", s.handleCreateTracker)
	mux.HandleFunc("GET /api/trackers", s.handleListTrackers)
	mux.HandleFunc("GET /api/trackers/{id}", s.handleGetTracker)
	mux.HandleFunc("PUT /api/trackers/{id}", s.handleUpdateTracker)
	mux.HandleFunc("DELETE /api/trackers/{id}", s.handleDeleteTracker)
	mux.HandleFunc("GET /api/trackers/{id}/stats", s.handleTrackerStats)
	mux.HandleFunc("POST /api/trackers/{id}/recompute", s.handleRecomputeStats)
	mux.HandleFunc("GET /api/trackers/{id}/entries", s.handleListEntries)

	mux.HandleFunc("POST /api/entries", s.handleCreateEntry)
	mux.HandleFunc("PUT /api/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)

	// Middleware chain, outermost first: trace, security headers, probe
	// detection, mutation rate limiting.
	traceMW := trace.NewMiddleware(extractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	detector := security.NewDetector()

	var handler http.Handler = mux
	handler = s.limitMutations(handler)
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = traceMW.Middleware(handler)
	s.Handler = handler

	return s
}

// limitMutations rate limits writes per client IP; reads pass through.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		respondErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// extractClientIP considers proxy headers before the socket address.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondErrorMessage(w, http.StatusServiceUnavailable, "database not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the HTTP server and its helper goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
