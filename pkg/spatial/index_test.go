package spatial

import (
	"testing"

	"github.com/beetlebugorg/shapefile/pkg/geom"
	"github.com/beetlebugorg/shapefile/pkg/shapefile"
)

func squareRecord(i int, minX, minY, size float64, name string) *shapefile.ShapeRecord {
	return &shapefile.ShapeRecord{
		Index: i,
		Geometry: &geom.PolygonGeometry{Rings: [][]geom.Point{{
			{X: minX, Y: minY},
			{X: minX, Y: minY + size},
			{X: minX + size, Y: minY + size},
			{X: minX + size, Y: minY},
			{X: minX, Y: minY},
		}}},
		Attributes: map[string]shapefile.FieldValue{"NAME": shapefile.StringValue(name)},
	}
}

func names(recs []*shapefile.ShapeRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.StringAttr("NAME")
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testRecords() []*shapefile.ShapeRecord {
	// A donut: outer 0..10 with a hole 4..6, overlapped by a small square
	// inside the hole, plus a line and a null record.
	donut := squareRecord(0, 0, 0, 10, "donut")
	poly := donut.Geometry.(*geom.PolygonGeometry)
	poly.Rings = append(poly.Rings, []geom.Point{{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}, {X: 4, Y: 4}})

	line := &shapefile.ShapeRecord{
		Index:      2,
		Geometry:   &geom.PolylineGeometry{Parts: [][]geom.Point{{{X: 0, Y: 0}, {X: 20, Y: 20}}}},
		Attributes: map[string]shapefile.FieldValue{"NAME": shapefile.StringValue("line")},
	}
	return []*shapefile.ShapeRecord{
		donut,
		squareRecord(1, 4.5, 4.5, 1, "core"),
		line,
		{Index: 3},
		squareRecord(4, 30, 30, 2, "far"),
		squareRecord(5, 0, 0, 10, "shadow"),
	}
}

func TestIndexPointInPolygon(t *testing.T) {
	idx := NewIndex(testRecords(), 2)
	if idx.Len() != 5 {
		t.Errorf("Len() = %d, want 5 (null record skipped)", idx.Len())
	}

	tests := []struct {
		name string
		p    geom.Point
		want string
	}{
		{"donut body wins over later overlap", geom.Point{X: 1, Y: 1}, "donut"},
		{"hole falls through to next polygon", geom.Point{X: 5, Y: 5}, "core"},
		{"hole outside core falls to shadow", geom.Point{X: 4.2, Y: 4.2}, "shadow"},
		{"far square", geom.Point{X: 31, Y: 31}, "far"},
		{"only the line", geom.Point{X: 15, Y: 15}, ""},
		{"nothing", geom.Point{X: -5, Y: -5}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := idx.PointInPolygon(tt.p)
			if tt.want == "" {
				if ok {
					t.Errorf("PointInPolygon(%v) = %s, want no match", tt.p, rec.StringAttr("NAME"))
				}
				return
			}
			if !ok || rec.StringAttr("NAME") != tt.want {
				t.Errorf("PointInPolygon(%v) = %v, %v; want %s", tt.p, rec, ok, tt.want)
			}
		})
	}
}

func TestIndexQueries(t *testing.T) {
	idx := NewIndex(testRecords(), 2)

	got := names(idx.QueryIntersects(geom.BoundingBox{MinX: 11, MinY: 11, MaxX: 12, MaxY: 12}))
	if want := []string{"line"}; !equalStrings(got, want) {
		t.Errorf("QueryIntersects = %v, want %v", got, want)
	}

	got = names(idx.QueryIntersects(geom.BoundingBox{MinX: 4, MinY: 4, MaxX: 5, MaxY: 5}))
	if want := []string{"donut", "core", "line", "shadow"}; !equalStrings(got, want) {
		t.Errorf("QueryIntersects = %v, want %v", got, want)
	}

	// Centres: donut/shadow (5,5), core (5,5), line (10,10), far (31,31).
	got = names(idx.QueryWithinDistance(geom.Point{X: 10, Y: 10}, 1))
	if want := []string{"line"}; !equalStrings(got, want) {
		t.Errorf("QueryWithinDistance = %v, want %v", got, want)
	}

	got = names(idx.QueryNearest(geom.Point{X: 40, Y: 40}, 2))
	if want := []string{"far", "line"}; !equalStrings(got, want) {
		t.Errorf("QueryNearest = %v, want %v", got, want)
	}

	if idx.Tree().Size() != idx.Len() || len(idx.Records()) != 6 {
		t.Errorf("Tree().Size() = %d, Records() = %d", idx.Tree().Size(), len(idx.Records()))
	}
}

func TestIndexEmpty(t *testing.T) {
	idx := NewIndex(nil, 0)
	if _, ok := idx.PointInPolygon(geom.Point{}); ok {
		t.Error("PointInPolygon on empty index matched")
	}
	if got := idx.QueryNearest(geom.Point{}, 5); len(got) != 0 {
		t.Errorf("QueryNearest on empty index = %d records", len(got))
	}
}
