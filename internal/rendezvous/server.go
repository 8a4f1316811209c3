// Package rendezvous is the room lookup service: hosts claim an address
// (derived from their room code) and publish the URL joiners should dial.
package rendezvous

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultTTL is how long a claim lives without being renewed.
const DefaultTTL = 6 * time.Hour

// Record is one claimed address.
type Record struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ClaimedAt time.Time `json:"claimedAt"`
}

type claimRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type metrics struct {
	claims    *prometheus.CounterVec
	lookups   *prometheus.CounterVec
	releases  prometheus.Counter
	addresses prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nyatetris",
			Subsystem: "rendezvous",
			Name:      "claims_total",
			Help:      "Address claims, by result",
		}, []string{"result"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nyatetris",
			Subsystem: "rendezvous",
			Name:      "lookups_total",
			Help:      "Address lookups, by result",
		}, []string{"result"}),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nyatetris",
			Subsystem: "rendezvous",
			Name:      "releases_total",
			Help:      "Addresses released by their host",
		}),
		addresses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nyatetris",
			Subsystem: "rendezvous",
			Name:      "addresses",
			Help:      "Currently claimed addresses",
		}),
	}
	reg.MustRegister(m.claims, m.lookups, m.releases, m.addresses)
	return m
}

// Server holds claims in memory.
type Server struct {
	mu      sync.Mutex
	records map[string]Record
	ttl     time.Duration
	now     func() time.Time

	logger   *log.Logger
	metrics  *metrics
	registry *prometheus.Registry
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithTTL sets the claim lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Server) { s.ttl = ttl }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a server with its own metrics registry.
func NewServer(opts ...Option) *Server {
	s := &Server{
		records:  make(map[string]Record),
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithPrefix("rendezvous")
	s.metrics = newMetrics(s.registry)
	s.registry.MustRegister(collectors.NewGoCollector())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Put("/peers/{id}", s.claim)
	r.Get("/peers/{id}", s.resolve)
	r.Delete("/peers/{id}", s.release)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "took", time.Since(start))
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// lookup returns a live record; expired ones are dropped. Caller holds mu.
func (s *Server) lookup(id string) (Record, bool) {
	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	if s.ttl > 0 && s.now().Sub(rec.ClaimedAt) > s.ttl {
		delete(s.records, id)
		s.metrics.addresses.Set(float64(len(s.records)))
		return Record{}, false
	}
	return rec, true
}

// claim registers an address. Claiming again with the same URL renews the
// claim; a different URL gets 409.
func (s *Server) claim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req claimRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if u, err := url.Parse(req.URL); err != nil || u.Host == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url must be absolute"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.lookup(id); ok && rec.URL != req.URL {
		s.metrics.claims.WithLabelValues("conflict").Inc()
		writeJSON(w, http.StatusConflict, errorResponse{Error: "address taken"})
		return
	}
	rec := Record{ID: id, URL: req.URL, ClaimedAt: s.now()}
	s.records[id] = rec
	s.metrics.claims.WithLabelValues("ok").Inc()
	s.metrics.addresses.Set(float64(len(s.records)))
	s.logger.Info("address claimed", "id", id, "url", req.URL)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	rec, ok := s.lookup(id)
	s.mu.Unlock()
	if !ok {
		s.metrics.lookups.WithLabelValues("miss").Inc()
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown address"})
		return
	}
	s.metrics.lookups.WithLabelValues("hit").Inc()
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) release(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	_, ok := s.records[id]
	delete(s.records, id)
	s.metrics.addresses.Set(float64(len(s.records)))
	s.mu.Unlock()
	if ok {
		s.metrics.releases.Inc()
		s.logger.Info("address released", "id", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
