package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/beetlebugorg/shapefile/internal/logger"
	"github.com/beetlebugorg/shapefile/internal/resultcache"
	"github.com/beetlebugorg/shapefile/pkg/geocode"
	"github.com/beetlebugorg/shapefile/pkg/geom"
	"github.com/beetlebugorg/shapefile/pkg/shapefile"
)

func square(minX, minY, size float64) *geom.PolygonGeometry {
	return &geom.PolygonGeometry{Rings: [][]geom.Point{{
		{X: minX, Y: minY},
		{X: minX, Y: minY + size},
		{X: minX + size, Y: minY + size},
		{X: minX + size, Y: minY},
		{X: minX, Y: minY},
	}}}
}

func testServer(t *testing.T, opts Options) *Server {
	t.Helper()
	records := []*shapefile.ShapeRecord{
		{Index: 0, Number: 1, Geometry: square(0, 0, 10), Attributes: map[string]shapefile.FieldValue{"NAME": shapefile.StringValue("California")}},
		{Index: 1, Number: 2, Geometry: square(10, 0, 10), Attributes: map[string]shapefile.FieldValue{"NAME": shapefile.StringValue("Nevada")}},
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := geocode.New(geocode.WithLogger(quiet))
	g.LoadRecords(records)
	g.BuildIndex()
	opts.Logger = quiet
	return New(g, resultcache.NewMemory(100, time.Minute), opts)
}

func get(t *testing.T, h http.Handler, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	if v != nil && rr.Code == http.StatusOK {
		if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
			t.Fatalf("GET %s: decode %q: %v", target, rr.Body.String(), err)
		}
	}
	return rr
}

func TestGeocodeEndpoint(t *testing.T) {
	h := testServer(t, Options{}).Handler()

	var res GeocodeResponse
	rr := get(t, h, "/geocode?q=California", &res)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("content-type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content-type = %q", ct)
	}
	if rr.Header().Get(logger.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if len(res.Results) != 1 || res.Results[0].PlaceName != "California" || res.Cached {
		t.Fatalf("response = %+v", res)
	}
	if res.Results[0].Coordinate != (geom.Point{X: 5, Y: 5}) {
		t.Errorf("coordinate = %v", res.Results[0].Coordinate)
	}

	// Same normalized query is served from the cache.
	var again GeocodeResponse
	get(t, h, "/geocode?q=california", &again)
	if !again.Cached || len(again.Results) != 1 || again.Results[0].PlaceName != "California" {
		t.Errorf("second response = %+v, want cached California", again)
	}

	var none GeocodeResponse
	get(t, h, "/geocode?q=Zzzzzz", &none)
	if none.Results == nil || len(none.Results) != 0 {
		t.Errorf("no-match results = %#v, want empty array", none.Results)
	}
}

func TestGeocodeEndpointErrors(t *testing.T) {
	h := testServer(t, Options{}).Handler()

	tests := []struct {
		target string
		code   int
	}{
		{"/geocode", http.StatusBadRequest},
		{"/geocode?q=%20%20", http.StatusBadRequest},
		{"/geocode?q=CA&limit=abc", http.StatusBadRequest},
		{"/geocode?q=CA&limit=0", http.StatusBadRequest},
		{"/reverse?x=1", http.StatusBadRequest},
		{"/reverse?x=a&y=1", http.StatusBadRequest},
		{"/reverse?x=1&y=1&max_distance=-3", http.StatusBadRequest},
		{"/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rr := get(t, h, tt.target, nil); rr.Code != tt.code {
			t.Errorf("GET %s status = %d, want %d", tt.target, rr.Code, tt.code)
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/geocode?q=CA", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /geocode status = %d, want 405", rr.Code)
	}
}

func TestGeocodeCacheKeepsCommas(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := geocode.New(geocode.WithLogger(quiet))
	g.LoadRecords([]*shapefile.ShapeRecord{
		{Index: 0, Number: 1, Geometry: geom.NewPoint(7, 7), Attributes: map[string]shapefile.FieldValue{"NAME": shapefile.StringValue("Anytown")}},
	})
	g.BuildIndex()
	h := New(g, resultcache.NewMemory(100, time.Minute), Options{Logger: quiet}).Handler()

	// Without the comma the whole input reads as a street name.
	var street GeocodeResponse
	get(t, h, "/geocode?q=Main%20St%20Anytown", &street)
	if len(street.Results) != 0 {
		t.Fatalf("street-only response = %+v, want no results", street)
	}

	var city GeocodeResponse
	get(t, h, "/geocode?q=Main%20St,%20Anytown", &city)
	if city.Cached || len(city.Results) != 1 || city.Results[0].PlaceName != "Anytown" || city.Results[0].Confidence != 1 {
		t.Errorf("city response = %+v, want uncached Anytown", city)
	}
}

func TestGeocodeLimit(t *testing.T) {
	h := testServer(t, Options{MaxResults: 1}).Handler()
	var res GeocodeResponse
	get(t, h, "/geocode?q=Nevadas&limit=5", &res)
	if len(res.Results) != 1 {
		t.Errorf("results = %d, want capped at 1", len(res.Results))
	}
}

func TestReverseEndpoint(t *testing.T) {
	h := testServer(t, Options{}).Handler()

	var res ReverseResponse
	get(t, h, "/reverse?x=5&y=5", &res)
	if res.Result == nil || res.Result.PlaceName != "California" || res.Result.Confidence != 1 {
		t.Fatalf("reverse = %+v", res)
	}

	var byLonLat ReverseResponse
	get(t, h, "/reverse?lon=12&lat=3", &byLonLat)
	if byLonLat.Result == nil || byLonLat.Result.PlaceName != "Nevada" {
		t.Errorf("lon/lat reverse = %+v", byLonLat)
	}

	var far ReverseResponse
	rr := get(t, h, "/reverse?x=1000&y=1000&max_distance=5", &far)
	if rr.Code != http.StatusOK || far.Result != nil {
		t.Errorf("far reverse = %d %+v, want 200 with null result", rr.Code, far)
	}
	if far.Point != (geom.Point{X: 1000, Y: 1000}) {
		t.Errorf("echoed point = %v", far.Point)
	}

	var cached ReverseResponse
	get(t, h, "/reverse?x=5&y=5", &cached)
	if !cached.Cached || cached.Result == nil || cached.Result.PlaceName != "California" {
		t.Errorf("cached reverse = %+v", cached)
	}
}

func TestBatchEndpoint(t *testing.T) {
	h := testServer(t, Options{MaxBatch: 3}).Handler()

	post := func(body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/geocode/batch", strings.NewReader(body)))
		return rr
	}

	rr := post(`{"addresses":["CA","nowhere","Nevada"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var res BatchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 3 || res.Matched != 2 {
		t.Fatalf("batch = %+v", res)
	}
	if res.Results[0].PlaceName != "California" || res.Results[1].Found() || res.Results[2].PlaceName != "Nevada" {
		t.Errorf("batch order = %+v", res.Results)
	}

	if rr := post(`{"addresses":["a","b","c","d"]}`); rr.Code != http.StatusBadRequest {
		t.Errorf("oversized batch status = %d, want 400", rr.Code)
	}
	if rr := post(`not json`); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid body status = %d, want 400", rr.Code)
	}
}

func TestHealthStatsMetrics(t *testing.T) {
	s := testServer(t, Options{})
	h := s.Handler()

	var health map[string]any
	if rr := get(t, h, "/health", &health); rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}
	if health["status"] != "ok" || health["records"] != float64(2) {
		t.Errorf("health = %v", health)
	}

	var stats geocode.Stats
	get(t, h, "/stats", &stats)
	if stats.Records != 2 || stats.Indexed != 2 || stats.NameField != "NAME" {
		t.Errorf("stats = %+v", stats)
	}

	get(t, h, "/geocode?q=CA", nil)
	rr := get(t, h, "/metrics", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "shpgeo_requests_total") {
		t.Errorf("metrics status %d, body missing shpgeo_requests_total", rr.Code)
	}

	empty := New(geocode.New(), nil, Options{Logger: s.log})
	if rr := get(t, empty.Handler(), "/health", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unloaded health status = %d, want 503", rr.Code)
	}
}
