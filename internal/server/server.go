// Package server exposes a Geocoder over HTTP with JSON responses.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beetlebugorg/shapefile/internal/logger"
	"github.com/beetlebugorg/shapefile/internal/metrics"
	"github.com/beetlebugorg/shapefile/internal/resultcache"
	"github.com/beetlebugorg/shapefile/pkg/geocode"
	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// Options tune request limits.
type Options struct {
	// MaxResults caps the limit parameter of /geocode.
	MaxResults int
	// MaxDistance is the reverse search radius when none is given.
	MaxDistance float64
	// MaxBatch caps the number of addresses per batch request.
	MaxBatch int

	Logger *slog.Logger
}

// Server serves lookups against one loaded Geocoder.
type Server struct {
	geo   *geocode.Geocoder
	cache resultcache.Cache
	opts  Options
	log   *slog.Logger
	start time.Time
}

// New builds a server. A nil cache disables result caching.
func New(geo *geocode.Geocoder, cache resultcache.Cache, opts Options) *Server {
	if cache == nil {
		cache = resultcache.Nop{}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = geocode.DefaultMaxDistance
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 1000
	}
	l := opts.Logger
	if l == nil {
		l = logger.L()
	}
	return &Server{geo: geo, cache: cache, opts: opts, log: l, start: time.Now()}
}

// GeocodeResponse is the body of /geocode.
type GeocodeResponse struct {
	Query   string                  `json:"query"`
	Results []geocode.GeocodeResult `json:"results"`
	Cached  bool                    `json:"cached"`
}

// ReverseResponse is the body of /reverse. Result is nil when nothing lies
// within the search radius.
type ReverseResponse struct {
	Point  geom.Point             `json:"point"`
	Result *geocode.GeocodeResult `json:"result"`
	Cached bool                   `json:"cached"`
}

// BatchRequest is the body accepted by /geocode/batch.
type BatchRequest struct {
	Addresses []string `json:"addresses"`
}

// BatchResponse pairs each input with its best match.
type BatchResponse struct {
	Results []geocode.GeocodeResult `json:"results"`
	Matched int                     `json:"matched"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes returns the API mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /geocode", s.handleGeocode)
	mux.HandleFunc("POST /geocode/batch", s.handleBatch)
	mux.HandleFunc("GET /reverse", s.handleReverse)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// Handler wraps Routes with request ids and access logging.
func (s *Server) Handler() http.Handler {
	return logger.RequestID(s.log)(logger.AccessMiddleware(s.log)(s.Routes()))
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	metrics.RequestsTotal.WithLabelValues("geocode").Inc()
	defer observe("geocode", start)

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		badRequest(w, "missing q")
		return
	}
	limit := 1
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, s.opts.MaxResults)
	}

	ctx := r.Context()
	key := resultcache.GeocodeKey(q, limit)
	res := GeocodeResponse{Query: q}
	if s.fromCache(ctx, key, &res.Results) {
		res.Cached = true
	} else {
		res.Results = s.geo.GeocodeTopN(q, limit)
		if res.Results == nil {
			res.Results = []geocode.GeocodeResult{}
		}
		s.toCache(ctx, key, res.Results)
	}
	if len(res.Results) == 0 {
		metrics.EmptyResultsTotal.WithLabelValues("geocode").Inc()
	}
	for _, m := range res.Results {
		metrics.Confidence.Observe(m.Confidence)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	metrics.RequestsTotal.WithLabelValues("batch").Inc()
	defer observe("batch", start)

	var req BatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if len(req.Addresses) > s.opts.MaxBatch {
		badRequest(w, "too many addresses, max "+strconv.Itoa(s.opts.MaxBatch))
		return
	}

	res := BatchResponse{Results: s.geo.GeocodeBatch(req.Addresses)}
	for _, m := range res.Results {
		if m.Found() {
			res.Matched++
			metrics.Confidence.Observe(m.Confidence)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	metrics.RequestsTotal.WithLabelValues("reverse").Inc()
	defer observe("reverse", start)

	p, err := parsePoint(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	maxDistance := s.opts.MaxDistance
	if v := r.URL.Query().Get("max_distance"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d <= 0 {
			badRequest(w, "max_distance must be a positive number")
			return
		}
		maxDistance = d
	}

	ctx := r.Context()
	key := resultcache.ReverseKey(p, maxDistance)
	res := ReverseResponse{Point: p}
	var hit geocode.GeocodeResult
	if s.fromCache(ctx, key, &hit) {
		res.Cached = true
	} else {
		hit = s.geo.ReverseGeocode(p, maxDistance)
		s.toCache(ctx, key, hit)
	}
	if hit.Found() {
		res.Result = &hit
		metrics.Confidence.Observe(hit.Confidence)
	} else {
		metrics.EmptyResultsTotal.WithLabelValues("reverse").Inc()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.geo.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, code := "ok", http.StatusOK
	if !s.geo.Loaded() {
		status, code = "loading", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":         status,
		"records":        len(s.geo.Records()),
		"uptime_seconds": int64(time.Since(s.start).Seconds()),
	})
}

func (s *Server) fromCache(ctx context.Context, key string, v any) bool {
	b, ok := s.cache.Get(ctx, key)
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		logger.FromContext(ctx).Warn("cache_decode_failed", "key", key, "error", err)
		metrics.CacheMissesTotal.Inc()
		return false
	}
	metrics.CacheHitsTotal.Inc()
	return true
}

func (s *Server) toCache(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b); err != nil {
		logger.FromContext(ctx).Warn("cache_store_failed", "key", key, "error", err)
	}
}

var errPoint = errors.New("x and y (or lon and lat) must be numbers")

// parsePoint accepts x/y or lon/lat query parameters.
func parsePoint(r *http.Request) (geom.Point, error) {
	q := r.URL.Query()
	xs, ys := q.Get("x"), q.Get("y")
	if xs == "" && ys == "" {
		xs, ys = q.Get("lon"), q.Get("lat")
	}
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return geom.Point{}, errPoint
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return geom.Point{}, errPoint
	}
	return geom.Point{X: x, Y: y}, nil
}

func observe(endpoint string, start time.Time) {
	metrics.RequestDurationMs.WithLabelValues(endpoint).Observe(float64(time.Since(start).Milliseconds()))
}

func badRequest(w http.ResponseWriter, msg string) {
	metrics.BadRequestsTotal.Inc()
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
