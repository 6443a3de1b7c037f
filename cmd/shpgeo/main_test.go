package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/beetlebugorg/shapefile/internal/config"
	"github.com/beetlebugorg/shapefile/internal/resultcache"
	"github.com/beetlebugorg/shapefile/pkg/geom"
	"github.com/beetlebugorg/shapefile/pkg/shapefile"
)

func TestParseBBox(t *testing.T) {
	tests := []struct {
		in   string
		want geom.BoundingBox
		ok   bool
	}{
		{"0,1,2,3", geom.BoundingBox{MinX: 0, MinY: 1, MaxX: 2, MaxY: 3}, true},
		{" -122.5, 37.5 ,-122,38", geom.BoundingBox{MinX: -122.5, MinY: 37.5, MaxX: -122, MaxY: 38}, true},
		{"0,1,2", geom.BoundingBox{}, false},
		{"a,b,c,d", geom.BoundingBox{}, false},
		{"5,0,1,1", geom.BoundingBox{}, false},
	}
	for _, tt := range tests {
		got, err := parseBBox(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("parseBBox(%q) = %v, %v; want %v ok=%v", tt.in, got, err, tt.want, tt.ok)
		}
	}
}

func TestParseShapeType(t *testing.T) {
	for _, name := range []string{"Polygon", "polygon", "POINT", "PolyLine"} {
		if _, err := parseShapeType(name); err != nil {
			t.Errorf("parseShapeType(%q) error = %v", name, err)
		}
	}
	if got, _ := parseShapeType("polygon"); got != geom.ShapePolygon {
		t.Errorf("parseShapeType(polygon) = %v", got)
	}
	if _, err := parseShapeType("Hexagon"); err == nil {
		t.Error("parseShapeType(Hexagon) succeeded")
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()
	c, err := openCache(ctx, config.CacheConfig{Type: "none"})
	if _, ok := c.(resultcache.Nop); err != nil || !ok {
		t.Errorf("openCache(none) = %T, %v", c, err)
	}
	for _, typ := range []string{"memory", ""} {
		c, err := openCache(ctx, config.CacheConfig{Type: typ, Size: 10, TTLSecs: 60})
		if _, ok := c.(*resultcache.Memory); err != nil || !ok {
			t.Errorf("openCache(%q) = %T, %v", typ, c, err)
		}
	}
	if _, err := openCache(ctx, config.CacheConfig{Type: "disk"}); err == nil {
		t.Error("openCache(disk) succeeded")
	}
}

func TestLoadGeocoder(t *testing.T) {
	dir := t.TempDir()
	fields := []shapefile.FieldDefinition{{Name: "NAME", Type: shapefile.FieldCharacter, Length: 16}}
	records := []*shapefile.ShapeRecord{{
		Geometry:   geom.NewPoint(3, 4),
		Attributes: map[string]shapefile.FieldValue{"NAME": shapefile.StringValue("Oregon")},
	}}
	if err := shapefile.Write(filepath.Join(dir, "places"), fields, records); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	if _, err := loadGeocoder(cfg, ""); err == nil {
		t.Error("loadGeocoder without a path succeeded")
	}

	for _, path := range []string{filepath.Join(dir, "places.shp"), dir} {
		g, err := loadGeocoder(cfg, path)
		if err != nil {
			t.Fatalf("loadGeocoder(%s) error = %v", path, err)
		}
		if got := g.Geocode("OR"); got.PlaceName != "Oregon" {
			t.Errorf("loadGeocoder(%s): Geocode(OR) = %+v", path, got)
		}
	}
}
