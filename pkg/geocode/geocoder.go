// Package geocode resolves free-text addresses and place names against the
// records of a shapefile, and coordinates back to the record containing or
// nearest to them.
//
// A Geocoder loads a dataset once, builds an inverted index over one name
// attribute and a spatial index over record bounds, and is read-only after
// that: Geocode, GeocodeBatch and ReverseGeocode may run concurrently.
//
// No match is a normal outcome, reported as a zero GeocodeResult rather
// than an error.
package geocode

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/beetlebugorg/shapefile/pkg/geom"
	"github.com/beetlebugorg/shapefile/pkg/shapefile"
	"github.com/beetlebugorg/shapefile/pkg/spatial"
)

const (
	// DefaultNameField is the attribute holding the place name.
	DefaultNameField = "NAME"

	// DefaultMinConfidence is the score below which candidates are dropped.
	DefaultMinConfidence = 0.3

	// DefaultMaxDistance bounds the nearest-centre fallback of
	// ReverseGeocode, in dataset units.
	DefaultMaxDistance = 100.0

	// exactThreshold separates exact from fuzzy matches.
	exactThreshold = 0.9
)

type options struct {
	nameField     string
	maxEntries    int
	minConfidence float64
	logger        *slog.Logger
}

// Option configures a Geocoder.
type Option func(*options)

// WithNameField sets the attribute indexed as the place name.
func WithNameField(name string) Option {
	return func(o *options) { o.nameField = name }
}

// WithMaxEntries sets the spatial index node capacity.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// WithMinConfidence sets the score below which candidates are dropped.
func WithMinConfidence(f float64) Option {
	return func(o *options) { o.minConfidence = f }
}

// WithLogger sets the logger for load and lookup events. Nil discards them.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Geocoder matches addresses to records.
type Geocoder struct {
	opts    options
	log     *slog.Logger
	records []*shapefile.ShapeRecord
	index   *spatial.Index

	// keys maps raw, normalized and state-abbreviation name variants to
	// ascending record positions.
	keys map[string][]int
	// names holds the distinct normalized names, sorted, for fuzzy scans.
	names []string
}

// New returns an empty geocoder.
func New(opts ...Option) *Geocoder {
	o := options{
		nameField:     DefaultNameField,
		minConfidence: DefaultMinConfidence,
	}
	for _, fn := range opts {
		fn(&o)
	}
	log := o.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Geocoder{opts: o, log: log}
}

// Load reads every record of the shapefile at base and builds the indexes.
func (g *Geocoder) Load(base string) error {
	start := time.Now()
	read := shapefile.DefaultReadOptions()
	read.Logger = g.log
	r := shapefile.NewReaderWithOptions(base, read)
	if err := r.Open(); err != nil {
		return fmt.Errorf("load geocoder data: %w", err)
	}
	defer r.Close()

	records := r.ReadAllRecords()
	if len(records) == 0 {
		return fmt.Errorf("load geocoder data %s: no records", base)
	}
	g.LoadRecords(records)
	g.BuildIndex()

	g.log.Info("geocoder_loaded",
		"base", r.Base(),
		"records", len(records),
		"index_keys", len(g.keys),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// LoadDir loads every shapefile under root, in path order, and builds the
// indexes over their combined records. With opts.SkipErrors unreadable
// files are logged and left out.
func (g *Geocoder) LoadDir(root string, opts shapefile.LoadOptions) error {
	start := time.Now()
	paths, err := shapefile.FindShapefiles(root)
	if err != nil {
		return fmt.Errorf("load geocoder data: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("load geocoder data %s: no shapefiles", root)
	}
	if opts.Read.Logger == nil {
		opts.Read.Logger = g.log
	}
	set, err := shapefile.LoadDatasetsParallel(paths, opts)
	if set == nil {
		return fmt.Errorf("load geocoder data: %w", err)
	}
	if err != nil {
		g.log.Warn("geocoder_load_partial", "root", root, "error", err)
	}
	records := set.Records()
	if len(records) == 0 {
		return fmt.Errorf("load geocoder data %s: no records", root)
	}
	g.LoadRecords(records)
	g.BuildIndex()

	g.log.Info("geocoder_loaded",
		"root", root,
		"datasets", len(set.Datasets),
		"records", len(records),
		"index_keys", len(g.keys),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// LoadRecords adopts records without reading a file. Call BuildIndex
// afterwards.
func (g *Geocoder) LoadRecords(records []*shapefile.ShapeRecord) {
	g.records = records
	g.index = nil
	g.keys = nil
	g.names = nil
}

// Records returns the loaded records.
func (g *Geocoder) Records() []*shapefile.ShapeRecord { return g.records }

// Loaded reports whether BuildIndex has run.
func (g *Geocoder) Loaded() bool { return g.keys != nil }

// BuildIndex builds the spatial index and the name index. Each named record
// is keyed by its raw name, its normalized name and, when the normalized
// name is a state, every abbreviation of that state.
func (g *Geocoder) BuildIndex() {
	g.index = spatial.NewIndex(g.records, g.opts.maxEntries)
	g.keys = make(map[string][]int)

	distinct := map[string]bool{}
	for i, rec := range g.records {
		if rec == nil {
			continue
		}
		raw := rec.StringAttr(g.opts.nameField)
		if raw == "" {
			continue
		}
		normalized := Normalize(raw)
		g.addKey(raw, i)
		g.addKey(normalized, i)
		for _, abbr := range stateAbbrevs[normalized] {
			g.addKey(abbr, i)
		}
		distinct[normalized] = true
	}

	g.names = make([]string, 0, len(distinct))
	for n := range distinct {
		g.names = append(g.names, n)
	}
	sort.Strings(g.names)
}

func (g *Geocoder) addKey(key string, i int) {
	ids := g.keys[key]
	// Records are visited in order, so only the tail can repeat.
	if n := len(ids); n > 0 && ids[n-1] == i {
		return
	}
	g.keys[key] = append(ids, i)
}

// Geocode returns the best match for address, or a zero result.
func (g *Geocoder) Geocode(address string) GeocodeResult {
	results := g.GeocodeTopN(address, 1)
	if len(results) == 0 {
		return GeocodeResult{}
	}
	return results[0]
}

// GeocodeTopN returns up to n matches ranked by confidence, ties by record
// position. n <= 0 returns every match.
//
// The parsed state, city, street name, whole normalized input and finally
// the raw input are tried in turn as place names; the first that yields
// candidates wins. Index lookups are tried for every query before any
// query falls back to scoring all names, so a keyed match always beats a
// fuzzy one.
func (g *Geocoder) GeocodeTopN(address string, n int) []GeocodeResult {
	if !g.Loaded() {
		return nil
	}
	addr := Parse(address)
	if !addr.IsValid() {
		return nil
	}

	queries := append(addr.queries(), address)
	var ranked []scored
	for _, fuzzy := range []bool{false, true} {
		for _, q := range queries {
			if ranked = g.rank(q, fuzzy); len(ranked) > 0 {
				break
			}
		}
		if len(ranked) > 0 {
			break
		}
	}
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	results := make([]GeocodeResult, len(ranked))
	for i, s := range ranked {
		mt := MatchFuzzy
		if s.score > exactThreshold {
			mt = MatchExact
		}
		results[i] = g.result(s.index, s.score, mt)
		results[i].Address = addr
	}
	g.log.Debug("geocode", "address", address, "matches", len(results))
	return results
}

// GeocodeBatch geocodes each address independently.
func (g *Geocoder) GeocodeBatch(addresses []string) []GeocodeResult {
	out := make([]GeocodeResult, len(addresses))
	for i, a := range addresses {
		out[i] = g.Geocode(a)
	}
	return out
}

type scored struct {
	index int
	score float64
}

// candidates gathers record positions for q by exact key, normalized key
// and state expansion.
func (g *Geocoder) candidates(q, normalized string) []int {
	seen := map[int]bool{}
	var out []int
	add := func(ids []int) {
		for _, i := range ids {
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}

	add(g.keys[q])
	add(g.keys[normalized])
	if len(normalized) == 2 {
		if name, ok := States[normalized]; ok {
			add(g.keys[name])
		}
	}
	return out
}

// fuzzyCandidates gathers record positions for every name close enough to
// normalized to pass the confidence floor.
func (g *Geocoder) fuzzyCandidates(normalized string) []int {
	var out []int
	for _, name := range g.names {
		if Similarity(normalized, name) >= g.opts.minConfidence {
			out = append(out, g.keys[name]...)
		}
	}
	return out
}

// rank scores the candidates for q and drops those under the floor. With
// fuzzy set the candidates come from a scan of every name instead of the
// index keys.
func (g *Geocoder) rank(q string, fuzzy bool) []scored {
	normalized := Normalize(q)
	if normalized == "" {
		return nil
	}

	ids := g.candidates(q, normalized)
	if fuzzy {
		ids = g.fuzzyCandidates(normalized)
	}
	var out []scored
	for _, i := range ids {
		s := g.score(normalized, Normalize(g.records[i].StringAttr(g.opts.nameField)))
		if s >= g.opts.minConfidence {
			out = append(out, scored{index: i, score: s})
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].score != out[b].score {
			return out[a].score > out[b].score
		}
		return out[a].index < out[b].index
	})
	return out
}

// score compares a normalized query with a normalized record name.
func (g *Geocoder) score(query, name string) float64 {
	if query == name {
		return 1
	}
	if len(query) == 2 && States[query] == name {
		return 1
	}
	return Similarity(query, name)
}

func (g *Geocoder) result(i int, confidence float64, mt MatchType) GeocodeResult {
	rec := g.records[i]
	return GeocodeResult{
		Coordinate:  rec.Bounds().Center(),
		PlaceName:   rec.StringAttr(g.opts.nameField),
		Confidence:  confidence,
		MatchType:   mt,
		RecordIndex: i,
	}
}

// ReverseGeocode returns the polygon record containing p with confidence
// 1. Otherwise it returns the record whose bounds centre is nearest to p
// within maxDistance, with confidence falling linearly from 1 at p to 0 at
// maxDistance. maxDistance <= 0 selects DefaultMaxDistance.
func (g *Geocoder) ReverseGeocode(p geom.Point, maxDistance float64) GeocodeResult {
	if g.index == nil {
		return GeocodeResult{}
	}
	if rec, ok := g.index.PointInPolygon(p); ok {
		return g.reverseResult(g.indexOf(rec), 1)
	}

	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}
	best, bestDist := -1, math.Inf(1)
	for i, rec := range g.records {
		if rec == nil || geom.IsEmpty(rec.Geometry) {
			continue
		}
		if d := geom.Distance(p, rec.Bounds().Center()); d <= maxDistance && d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return GeocodeResult{}
	}
	return g.reverseResult(best, 1-bestDist/maxDistance)
}

// indexOf finds rec's position; PointInPolygon hands back the record itself.
func (g *Geocoder) indexOf(rec *shapefile.ShapeRecord) int {
	if rec.Index >= 0 && rec.Index < len(g.records) && g.records[rec.Index] == rec {
		return rec.Index
	}
	for i, r := range g.records {
		if r == rec {
			return i
		}
	}
	return -1
}

func (g *Geocoder) reverseResult(i int, confidence float64) GeocodeResult {
	res := g.result(i, confidence, MatchReverse)
	res.Address = placeAddress(res.PlaceName)
	return res
}

// placeAddress describes a matched place name as an address: a state when
// the name is one, otherwise a city.
func placeAddress(name string) ParsedAddress {
	addr := ParsedAddress{Original: name}
	normalized := Normalize(name)
	if abbrs := stateAbbrevs[normalized]; len(abbrs) > 0 {
		addr.State = abbrs[0]
	} else {
		addr.City = normalized
	}
	return addr
}

// Stats describes a loaded geocoder.
type Stats struct {
	Records   int           `json:"records"`
	Indexed   int           `json:"indexed"`
	IndexKeys int           `json:"index_keys"`
	Names     int           `json:"names"`
	NameField string        `json:"name_field"`
	Tree      spatial.Stats `json:"tree"`
}

// Stats reports index sizes.
func (g *Geocoder) Stats() Stats {
	s := Stats{
		Records:   len(g.records),
		IndexKeys: len(g.keys),
		Names:     len(g.names),
		NameField: g.opts.nameField,
	}
	if g.index != nil {
		s.Indexed = g.index.Len()
		s.Tree = g.index.Tree().Stats()
	}
	return s
}
