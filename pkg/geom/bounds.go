// Package geom defines the planar geometry model shared by the shapefile
// reader, the spatial index and the geocoder.
//
// Coordinates are whatever the source dataset uses (usually decimal degrees
// for geographic data). No reprojection is ever performed, and every
// distance computed here is plain Euclidean distance in coordinate units.
package geom

import (
	"fmt"
	"math"
)

// pointEpsilon is the tolerance used by Point.Equal.
const pointEpsilon = 1e-9

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Equal reports whether p and o are the same point within 1e-9 on each axis.
func (p Point) Equal(o Point) bool {
	return math.Abs(p.X-o.X) < pointEpsilon && math.Abs(p.Y-o.Y) < pointEpsilon
}

// String returns "(x, y)".
func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// BoundingBox is an axis-aligned rectangle.
//
// A well-formed box has MinX <= MaxX and MinY <= MaxY. The zero value is the
// degenerate box at the origin and is what geometries without vertices
// report as their bounds.
type BoundingBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// EmptyBox returns an inverted box that acts as the identity for Union and
// ExtendPoint. It contains nothing and intersects nothing.
func EmptyBox() BoundingBox {
	return BoundingBox{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// BoxAround returns the square box of half-width r centred on p.
func BoxAround(p Point, r float64) BoundingBox {
	return BoundingBox{MinX: p.X - r, MinY: p.Y - r, MaxX: p.X + r, MaxY: p.Y + r}
}

// IsEmpty reports whether the box is inverted on either axis.
func (b BoundingBox) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// Contains reports whether p lies inside b. Edges are inclusive.
func (b BoundingBox) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX &&
		p.Y >= b.MinY && p.Y <= b.MaxY
}

// Intersects reports whether b and other overlap. Touching edges count.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return !(other.MaxX < b.MinX ||
		other.MinX > b.MaxX ||
		other.MaxY < b.MinY ||
		other.MinY > b.MaxY)
}

// ContainsBox reports whether other lies entirely inside b.
func (b BoundingBox) ContainsBox(other BoundingBox) bool {
	return other.MinX >= b.MinX && other.MaxX <= b.MaxX &&
		other.MinY >= b.MinY && other.MaxY <= b.MaxY
}

// Width returns MaxX - MinX, or 0 for an empty box.
func (b BoundingBox) Width() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.MaxX - b.MinX
}

// Height returns MaxY - MinY, or 0 for an empty box.
func (b BoundingBox) Height() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.MaxY - b.MinY
}

// Area returns Width * Height.
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Union returns the smallest box covering both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	return BoundingBox{
		MinX: math.Min(b.MinX, other.MinX),
		MinY: math.Min(b.MinY, other.MinY),
		MaxX: math.Max(b.MaxX, other.MaxX),
		MaxY: math.Max(b.MaxY, other.MaxY),
	}
}

// ExtendPoint returns the smallest box covering both b and p.
func (b BoundingBox) ExtendPoint(p Point) BoundingBox {
	return BoundingBox{
		MinX: math.Min(b.MinX, p.X),
		MinY: math.Min(b.MinY, p.Y),
		MaxX: math.Max(b.MaxX, p.X),
		MaxY: math.Max(b.MaxY, p.Y),
	}
}

// Expand returns b grown by margin in every direction.
func (b BoundingBox) Expand(margin float64) BoundingBox {
	return BoundingBox{
		MinX: b.MinX - margin,
		MinY: b.MinY - margin,
		MaxX: b.MaxX + margin,
		MaxY: b.MaxY + margin,
	}
}

// Enlargement returns how much b's area grows when extended to cover other.
func (b BoundingBox) Enlargement(other BoundingBox) float64 {
	return b.Union(other).Area() - b.Area()
}

// DistanceToPoint returns the smallest distance from p to any point of b,
// zero when p is inside.
func (b BoundingBox) DistanceToPoint(p Point) float64 {
	dx := math.Max(0, math.Max(b.MinX-p.X, p.X-b.MaxX))
	dy := math.Max(0, math.Max(b.MinY-p.Y, p.Y-b.MaxY))
	return math.Hypot(dx, dy)
}

// String returns "[minX, minY, maxX, maxY]".
func (b BoundingBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// boundsOf computes the bounds of a vertex list. An empty list yields the
// zero box.
func boundsOf(points []Point) (BoundingBox, bool) {
	if len(points) == 0 {
		return BoundingBox{}, false
	}
	b := BoundingBox{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		b = b.ExtendPoint(p)
	}
	return b, true
}
