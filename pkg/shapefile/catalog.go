package shapefile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhconnelly/rtreego"

	"github.com/beetlebugorg/shapefile/internal/parser"
	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// Catalog provides fast spatial queries over a collection of shapefiles.
//
// The catalog stores lightweight metadata for each dataset (header bounds,
// shape type, record count) without loading any records, and indexes the
// dataset bounds in an R-tree. This allows loading only the datasets that
// cover a region of interest.
//
// Example:
//
//	cat, err := shapefile.BuildCatalogFromDir("/data/tiger", shapefile.DefaultLoadOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	entries := cat.Query(geom.BoundingBox{MinX: -87, MinY: 24, MaxX: -80, MaxY: 31}, shapefile.QueryOptions{})
//	fmt.Printf("Found %d datasets covering Florida\n", len(entries))
type Catalog struct {
	entries []CatalogEntry
	rtree   *rtreego.Rtree
}

// CatalogEntry contains indexed metadata for a single shapefile.
type CatalogEntry struct {
	Path        string // base path without extension
	Name        string
	Bounds      geom.BoundingBox
	ShapeType   geom.ShapeType
	RecordCount int
	FieldCount  int
}

// catalogItem adapts a CatalogEntry to rtreego.Spatial.
type catalogItem struct {
	index int
	rect  rtreego.Rect
}

func (c *catalogItem) Bounds() rtreego.Rect { return c.rect }

// toRect converts a box to an R-tree rectangle. R-tree rectangles need
// non-zero extent, so point-sized boxes get a small epsilon.
func toRect(b geom.BoundingBox) rtreego.Rect {
	const epsilon = 0.0001
	w := b.MaxX - b.MinX
	h := b.MaxY - b.MinY
	if w < epsilon {
		w = epsilon
	}
	if h < epsilon {
		h = epsilon
	}
	rect, _ := rtreego.NewRect(rtreego.Point{b.MinX, b.MinY}, []float64{w, h})
	return rect
}

// QueryOptions filters catalog queries.
type QueryOptions struct {
	// ShapeTypes keeps only datasets of these types. Empty keeps all.
	ShapeTypes []geom.ShapeType

	// MinRecords keeps only datasets with at least this many records.
	MinRecords int
}

func (o QueryOptions) match(e CatalogEntry) bool {
	if e.RecordCount < o.MinRecords {
		return false
	}
	if len(o.ShapeTypes) == 0 {
		return true
	}
	for _, t := range o.ShapeTypes {
		if e.ShapeType == t {
			return true
		}
	}
	return false
}

// FindShapefiles walks root and returns the base path of every .shp file,
// sorted.
func FindShapefiles(root string) ([]string, error) {
	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(path), ".shp") {
			paths = append(paths, parser.TrimExtension(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ScanEntry opens a triad just long enough to read its headers.
func ScanEntry(path string, opts ReadOptions) (CatalogEntry, error) {
	r := NewReaderWithOptions(path, opts)
	if err := r.Open(); err != nil {
		return CatalogEntry{}, err
	}
	defer r.Close()
	return CatalogEntry{
		Path:        r.Base(),
		Name:        filepath.Base(r.Base()),
		Bounds:      r.Bounds(),
		ShapeType:   r.ShapeType(),
		RecordCount: r.RecordCount(),
		FieldCount:  len(r.Fields()),
	}, nil
}

// BuildCatalogFromDir builds a catalog by scanning a directory tree for
// shapefiles. Headers are read in parallel per opts; unreadable datasets
// are skipped or abort the scan depending on opts.SkipErrors.
func BuildCatalogFromDir(root string, opts LoadOptions) (*Catalog, error) {
	paths, err := FindShapefiles(root)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no shapefiles found in %s", root)
	}

	entries, err := loadParallel(paths, opts, func(path string) (CatalogEntry, error) {
		return ScanEntry(path, opts.Read)
	})
	if len(entries) == 0 {
		if err == nil {
			err = fmt.Errorf("no shapefiles could be read in %s", root)
		}
		return nil, err
	}
	// Partial failures were already reported through opts.ErrorLog.
	return BuildCatalog(entries), nil
}

// BuildCatalog indexes already-scanned entries.
func BuildCatalog(entries []CatalogEntry) *Catalog {
	// 2D, min=25 children, max=50 children
	rtree := rtreego.NewTree(2, 25, 50)
	for i, e := range entries {
		rtree.Insert(&catalogItem{index: i, rect: toRect(e.Bounds)})
	}
	return &Catalog{entries: entries, rtree: rtree}
}

// Query returns the entries whose bounds intersect box, ordered by record
// count (largest first) and then name.
func (c *Catalog) Query(box geom.BoundingBox, opts QueryOptions) []CatalogEntry {
	var result []CatalogEntry
	for _, s := range c.rtree.SearchIntersect(toRect(box)) {
		e := c.entries[s.(*catalogItem).index]
		// Exact test: the epsilon padding may report near misses.
		if !box.Intersects(e.Bounds) || !opts.match(e) {
			continue
		}
		result = append(result, e)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RecordCount != result[j].RecordCount {
			return result[i].RecordCount > result[j].RecordCount
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Count returns the number of datasets in the catalog.
func (c *Catalog) Count() int { return len(c.entries) }

// Bounds returns the union of all dataset bounds.
func (c *Catalog) Bounds() geom.BoundingBox {
	if len(c.entries) == 0 {
		return geom.BoundingBox{}
	}
	b := c.entries[0].Bounds
	for _, e := range c.entries[1:] {
		b = b.Union(e.Bounds)
	}
	return b
}

// All returns every entry.
func (c *Catalog) All() []CatalogEntry { return c.entries }
