package geom

import "math"

// Geometry is the closed set of shapes a record can carry: *PointGeometry,
// *PolylineGeometry or *PolygonGeometry. Consumers dispatch with a type
// switch over those three.
//
// Bounds is recomputed from the vertices on every call so that it can never
// go stale after a vertex is modified.
type Geometry interface {
	// Type returns the shape type code for this geometry.
	Type() ShapeType

	// Bounds returns the tightest box covering every vertex. Geometries with
	// no vertices report the zero box.
	Bounds() BoundingBox

	// NumPoints returns the total vertex count.
	NumPoints() int

	// Clone returns a deep copy.
	Clone() Geometry

	isGeometry()
}

// IsEmpty reports whether g is nil or has no vertices.
func IsEmpty(g Geometry) bool {
	return g == nil || g.NumPoints() == 0
}

// PointGeometry is a single location.
type PointGeometry struct {
	Point Point
}

// NewPoint returns a point geometry at (x, y).
func NewPoint(x, y float64) *PointGeometry {
	return &PointGeometry{Point: Point{X: x, Y: y}}
}

func (g *PointGeometry) Type() ShapeType { return ShapePoint }

// Bounds returns the degenerate box at the point.
func (g *PointGeometry) Bounds() BoundingBox {
	return BoundingBox{MinX: g.Point.X, MinY: g.Point.Y, MaxX: g.Point.X, MaxY: g.Point.Y}
}

func (g *PointGeometry) NumPoints() int { return 1 }

func (g *PointGeometry) Clone() Geometry {
	c := *g
	return &c
}

func (*PointGeometry) isGeometry() {}

// PolylineGeometry is an ordered list of parts, each an open vertex
// sequence.
type PolylineGeometry struct {
	Parts [][]Point
}

func (g *PolylineGeometry) Type() ShapeType { return ShapePolyLine }

func (g *PolylineGeometry) Bounds() BoundingBox { return partsBounds(g.Parts) }

func (g *PolylineGeometry) NumPoints() int { return countPoints(g.Parts) }

// NumParts returns the number of parts.
func (g *PolylineGeometry) NumParts() int { return len(g.Parts) }

// Length returns the summed length of every part.
func (g *PolylineGeometry) Length() float64 {
	var total float64
	for _, part := range g.Parts {
		for i := 1; i < len(part); i++ {
			total += Distance(part[i-1], part[i])
		}
	}
	return total
}

func (g *PolylineGeometry) Clone() Geometry {
	return &PolylineGeometry{Parts: cloneParts(g.Parts)}
}

func (*PolylineGeometry) isGeometry() {}

// PolygonGeometry is an ordered list of rings. Ring 0 is the outer
// boundary; every further ring is a hole.
type PolygonGeometry struct {
	Rings [][]Point
}

func (g *PolygonGeometry) Type() ShapeType { return ShapePolygon }

func (g *PolygonGeometry) Bounds() BoundingBox { return partsBounds(g.Rings) }

func (g *PolygonGeometry) NumPoints() int { return countPoints(g.Rings) }

// NumRings returns the number of rings, outer ring included.
func (g *PolygonGeometry) NumRings() int { return len(g.Rings) }

// Contains reports whether p lies inside the outer ring and outside every
// hole, using even-odd ray casting. A polygon without rings contains
// nothing. Points exactly on an edge may fall either way.
func (g *PolygonGeometry) Contains(p Point) bool {
	if len(g.Rings) == 0 {
		return false
	}
	if !ringContains(g.Rings[0], p) {
		return false
	}
	for _, hole := range g.Rings[1:] {
		if ringContains(hole, p) {
			return false
		}
	}
	return true
}

// Area returns the outer ring area minus the hole areas.
func (g *PolygonGeometry) Area() float64 {
	if len(g.Rings) == 0 {
		return 0
	}
	area := math.Abs(ringArea(g.Rings[0]))
	for _, hole := range g.Rings[1:] {
		area -= math.Abs(ringArea(hole))
	}
	return math.Max(area, 0)
}

func (g *PolygonGeometry) Clone() Geometry {
	return &PolygonGeometry{Rings: cloneParts(g.Rings)}
}

func (*PolygonGeometry) isGeometry() {}

// ringContains casts a ray towards +X from p and counts edge crossings.
func ringContains(ring []Point, p Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].X, ring[i].Y
		xj, yj := ring[j].X, ring[j].Y
		if (yi > p.Y) != (yj > p.Y) && p.X < (xj-xi)*(p.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// ringArea is the signed shoelace area.
func ringArea(ring []Point) float64 {
	var sum float64
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		sum += ring[j].X*ring[i].Y - ring[i].X*ring[j].Y
	}
	return sum / 2
}

func partsBounds(parts [][]Point) BoundingBox {
	box := EmptyBox()
	found := false
	for _, part := range parts {
		if b, ok := boundsOf(part); ok {
			box = box.Union(b)
			found = true
		}
	}
	if !found {
		return BoundingBox{}
	}
	return box
}

func countPoints(parts [][]Point) int {
	n := 0
	for _, part := range parts {
		n += len(part)
	}
	return n
}

func cloneParts(parts [][]Point) [][]Point {
	if parts == nil {
		return nil
	}
	out := make([][]Point, len(parts))
	for i, part := range parts {
		out[i] = append([]Point(nil), part...)
	}
	return out
}
