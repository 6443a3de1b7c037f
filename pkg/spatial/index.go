package spatial

import (
	"github.com/beetlebugorg/shapefile/pkg/geom"
	"github.com/beetlebugorg/shapefile/pkg/shapefile"
)

// Index is an R-tree over a record slice. Data indices in the tree are
// positions in that slice; records without geometry are not indexed.
//
// Example:
//
//	idx := spatial.NewIndex(reader.ReadAllRecords(), 0)
//	if rec, ok := idx.PointInPolygon(geom.Point{X: -71.06, Y: 42.36}); ok {
//	    fmt.Println(rec.StringAttr("NAME"))
//	}
type Index struct {
	records []*shapefile.ShapeRecord
	tree    *RTree
}

// NewIndex indexes records by geometry bounds. maxEntries configures the
// tree's node capacity; 0 selects DefaultMaxEntries.
func NewIndex(records []*shapefile.ShapeRecord, maxEntries int) *Index {
	idx := &Index{records: records, tree: NewRTree(maxEntries)}
	for i, rec := range records {
		if rec == nil || geom.IsEmpty(rec.Geometry) {
			continue
		}
		idx.tree.Insert(rec.Geometry.Bounds(), i)
	}
	return idx
}

// Records returns the indexed slice.
func (x *Index) Records() []*shapefile.ShapeRecord { return x.records }

// Tree returns the underlying R-tree.
func (x *Index) Tree() *RTree { return x.tree }

// Len returns the number of indexed records.
func (x *Index) Len() int { return x.tree.Size() }

func (x *Index) resolve(ids []int) []*shapefile.ShapeRecord {
	out := make([]*shapefile.ShapeRecord, len(ids))
	for i, id := range ids {
		out[i] = x.records[id]
	}
	return out
}

// QueryIntersects returns the records whose bounds intersect b, in slice
// order.
func (x *Index) QueryIntersects(b geom.BoundingBox) []*shapefile.ShapeRecord {
	return x.resolve(sortedInts(x.tree.Query(b)))
}

// QueryWithinDistance returns the records whose bounds centre lies within
// radius of p, in slice order.
func (x *Index) QueryWithinDistance(p geom.Point, radius float64) []*shapefile.ShapeRecord {
	return x.resolve(sortedInts(x.tree.WithinDistance(p, radius)))
}

// QueryNearest returns up to k records nearest to p by bounds centre,
// closest first.
func (x *Index) QueryNearest(p geom.Point, k int) []*shapefile.ShapeRecord {
	return x.resolve(x.tree.NearestNeighbors(p, k))
}

// PointInPolygon returns the first polygon record, in slice order, that
// contains p. Candidates come from the tree; only polygons are tested.
func (x *Index) PointInPolygon(p geom.Point) (*shapefile.ShapeRecord, bool) {
	for _, id := range sortedInts(x.tree.Query(geom.BoxAround(p, 0))) {
		rec := x.records[id]
		poly, ok := rec.Geometry.(*geom.PolygonGeometry)
		if ok && poly.Contains(p) {
			return rec, true
		}
	}
	return nil, false
}
