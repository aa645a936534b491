package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corey/dropcache/internal/adapters/socket"
)

// maxSearchLimit caps ?limit= on the HTTP search endpoint.
const maxSearchLimit = 100

// Server serves the JSON API and Prometheus metrics over HTTP.
type Server struct {
	queries  socket.AppQueries
	metrics  *Metrics
	listener net.Listener
	httpSrv  *http.Server
	addr     string
	stopOnce sync.Once

	addrFilePath string // .dropcache/run/http.addr
}

// NewServer creates an HTTP server over queries. The addrFilePath is where
// the bound address is written for discovery; empty skips it.
func NewServer(queries socket.AppQueries, metrics *Metrics, addrFilePath string) *Server {
	if metrics == nil {
		metrics = NewMetrics(queries)
	}
	return &Server{
		queries:      queries,
		metrics:      metrics,
		addrFilePath: addrFilePath,
	}
}

// Handler returns the route table. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/monsters/{title}", s.handleGet)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return mux
}

// Start begins listening on addr ("127.0.0.1:0" picks a free port).
// Writes the bound address to the addr file.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.addr = ln.Addr().String()

	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if s.addrFilePath != "" {
		os.WriteFile(s.addrFilePath, []byte(s.addr), 0644)
	}

	go s.httpSrv.Serve(ln)
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
		if s.addrFilePath != "" {
			os.Remove(s.addrFilePath)
		}
	})
}

// Addr returns the bound host:port.
func (s *Server) Addr() string {
	return s.addr
}

// URL returns the base URL.
func (s *Server) URL() string {
	return "http://" + s.addr
}

// Metrics returns the server's metric set.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeError(w, http.StatusServiceUnavailable, "cache not available")
		return
	}
	writeJSON(w, http.StatusOK, s.queries.Health())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeError(w, http.StatusServiceUnavailable, "cache not available")
		return
	}
	writeJSON(w, http.StatusOK, s.queries.Stats())
}

// handleSearch serves GET /api/search?q=<query>&limit=<n>. A cache miss is
// a 200 with fromCache=false, never an error.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeError(w, http.StatusServiceUnavailable, "cache not available")
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = min(n, maxSearchLimit)
	}

	query := q.Get("q")
	if q.Get("live") == "1" {
		result, err := s.queries.Lookup(r.Context(), query, limit)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}
	writeJSON(w, http.StatusOK, s.queries.Search(query, limit))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeError(w, http.StatusServiceUnavailable, "cache not available")
		return
	}
	result := s.queries.Get(r.PathValue("title"))
	if !result.Found {
		writeError(w, http.StatusNotFound, "not cached")
		return
	}
	writeJSON(w, http.StatusOK, result.Entry)
}
