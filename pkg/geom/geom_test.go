package geom

import (
	"math"
	"testing"
)

func TestPointEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want bool
	}{
		{"identical", Point{1, 2}, Point{1, 2}, true},
		{"within epsilon", Point{1, 2}, Point{1 + 1e-10, 2 - 1e-10}, true},
		{"outside epsilon", Point{1, 2}, Point{1 + 1e-8, 2}, false},
		{"different y", Point{0, 0}, Point{0, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 5}
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"inside", Point{5, 2}, true},
		{"min corner", Point{0, 0}, true},
		{"max corner", Point{10, 5}, true},
		{"on edge", Point{10, 3}, true},
		{"left", Point{-0.1, 2}, false},
		{"above", Point{5, 5.1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestBoundingBoxIntersects(t *testing.T) {
	box := BoundingBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	tests := []struct {
		name  string
		other BoundingBox
		want  bool
	}{
		{"overlap", BoundingBox{5, 5, 15, 15}, true},
		{"contained", BoundingBox{2, 2, 3, 3}, true},
		{"covers", BoundingBox{-1, -1, 11, 11}, true},
		{"touching edge", BoundingBox{10, 0, 20, 10}, true},
		{"touching corner", BoundingBox{10, 10, 20, 20}, true},
		{"disjoint right", BoundingBox{10.5, 0, 20, 10}, false},
		{"disjoint below", BoundingBox{0, -5, 10, -0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Intersects(tt.other); got != tt.want {
				t.Errorf("Intersects(%v) = %v, want %v", tt.other, got, tt.want)
			}
			if got := tt.other.Intersects(box); got != tt.want {
				t.Errorf("reverse Intersects(%v) = %v, want %v", tt.other, got, tt.want)
			}
		})
	}
}

func TestBoundingBoxMeasures(t *testing.T) {
	box := BoundingBox{MinX: -2, MinY: 1, MaxX: 2, MaxY: 4}
	if got := box.Area(); got != 12 {
		t.Errorf("Area() = %v, want 12", got)
	}
	if got := box.Center(); !got.Equal(Point{0, 2.5}) {
		t.Errorf("Center() = %v, want (0, 2.5)", got)
	}
	if got := EmptyBox().Area(); got != 0 {
		t.Errorf("EmptyBox().Area() = %v, want 0", got)
	}
	u := EmptyBox().Union(box)
	if u != box {
		t.Errorf("EmptyBox().Union(box) = %v, want %v", u, box)
	}
	if got := box.DistanceToPoint(Point{5, 4}); got != 3 {
		t.Errorf("DistanceToPoint = %v, want 3", got)
	}
	if got := box.DistanceToPoint(Point{0, 2}); got != 0 {
		t.Errorf("DistanceToPoint inside = %v, want 0", got)
	}
}

func TestGeometryBounds(t *testing.T) {
	tests := []struct {
		name string
		g    Geometry
		want BoundingBox
	}{
		{"point", NewPoint(3, -4), BoundingBox{3, -4, 3, -4}},
		{
			"polyline two parts",
			&PolylineGeometry{Parts: [][]Point{{{0, 0}, {1, 1}}, {{-5, 2}, {4, 9}}}},
			BoundingBox{-5, 0, 4, 9},
		},
		{
			"polygon with hole",
			&PolygonGeometry{Rings: [][]Point{
				{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
				{{2, 2}, {4, 2}, {4, 4}, {2, 2}},
			}},
			BoundingBox{0, 0, 10, 10},
		},
		{"empty polygon", &PolygonGeometry{}, BoundingBox{}},
		{"empty parts", &PolylineGeometry{Parts: [][]Point{{}, {}}}, BoundingBox{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.Bounds(); got != tt.want {
				t.Errorf("Bounds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundsCoverEveryVertex(t *testing.T) {
	poly := &PolygonGeometry{Rings: [][]Point{
		{{1, 1}, {7, -3}, {9, 8}, {-2, 6}, {1, 1}},
		{{2, 2}, {3, 2}, {3, 3}, {2, 2}},
	}}
	b := poly.Bounds()
	for _, ring := range poly.Rings {
		for _, p := range ring {
			if !b.Contains(p) {
				t.Errorf("bounds %v do not contain vertex %v", b, p)
			}
		}
	}

	// Bounds is recomputed, never cached.
	poly.Rings[0][0] = Point{-50, -50}
	if got := poly.Bounds(); got.MinX != -50 || got.MinY != -50 {
		t.Errorf("Bounds() after mutation = %v, want min (-50, -50)", got)
	}
}

func TestPolygonContains(t *testing.T) {
	square := [][]Point{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	withHole := [][]Point{
		square[0],
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}
	concave := [][]Point{{{0, 0}, {10, 0}, {10, 10}, {5, 5}, {0, 10}, {0, 0}}}

	tests := []struct {
		name  string
		rings [][]Point
		p     Point
		want  bool
	}{
		{"inside square", square, Point{5, 5}, true},
		{"outside square", square, Point{15, 5}, false},
		{"below square", square, Point{5, -1}, false},
		{"in hole", withHole, Point{5, 5}, false},
		{"between hole and edge", withHole, Point{2, 2}, true},
		{"concave notch", concave, Point{5, 8}, false},
		{"concave body", concave, Point{5, 2}, true},
		{"no rings", nil, Point{0, 0}, false},
		{"degenerate ring", [][]Point{{{0, 0}, {1, 1}}}, Point{0.5, 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poly := &PolygonGeometry{Rings: tt.rings}
			if got := poly.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPolygonContainsImpliesBounds(t *testing.T) {
	poly := &PolygonGeometry{Rings: [][]Point{{{0, 0}, {8, 1}, {6, 7}, {1, 5}, {0, 0}}}}
	b := poly.Bounds()
	for x := -2.0; x <= 10; x += 0.25 {
		for y := -2.0; y <= 10; y += 0.25 {
			p := Point{x, y}
			if poly.Contains(p) && !b.Contains(p) {
				t.Fatalf("Contains(%v) true but bounds %v exclude it", p, b)
			}
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &PolygonGeometry{Rings: [][]Point{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}
	clone := orig.Clone().(*PolygonGeometry)
	clone.Rings[0][0] = Point{99, 99}
	if orig.Rings[0][0] != (Point{0, 0}) {
		t.Errorf("mutating clone changed original: %v", orig.Rings[0][0])
	}

	line := &PolylineGeometry{Parts: [][]Point{{{0, 0}, {3, 4}}}}
	lc := line.Clone().(*PolylineGeometry)
	lc.Parts[0][1] = Point{}
	if line.Length() != 5 {
		t.Errorf("Length() = %v, want 5", line.Length())
	}
}

func TestPolygonArea(t *testing.T) {
	poly := &PolygonGeometry{Rings: [][]Point{
		{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}},
		{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}},
	}}
	if got := poly.Area(); math.Abs(got-96) > 1e-9 {
		t.Errorf("Area() = %v, want 96", got)
	}
}

func TestShapeTypeString(t *testing.T) {
	tests := []struct {
		st   ShapeType
		want string
	}{
		{ShapePoint, "Point"},
		{ShapePolygonZ, "PolygonZ"},
		{ShapeMultiPatch, "MultiPatch"},
		{ShapeType(42), "ShapeType(42)"},
	}
	for _, tt := range tests {
		if got := tt.st.String(); got != tt.want {
			t.Errorf("ShapeType(%d).String() = %q, want %q", int32(tt.st), got, tt.want)
		}
	}
	if ShapeMultiPoint.Supported() {
		t.Error("MultiPoint should not be supported")
	}
	if !ShapePolygon.Supported() {
		t.Error("Polygon should be supported")
	}
}
