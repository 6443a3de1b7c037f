package parser

import (
	"fmt"
	"math"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// ValidateCoordinate rejects NaN and infinite coordinates
func ValidateCoordinate(p geom.Point) error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return fmt.Errorf("coordinate %v is not finite", p)
	}
	return nil
}

// ValidateGeometry checks a decoded geometry against the shapefile rules:
// polyline parts need at least two vertices, polygon rings at least four
// with the first and last vertex equal, and every coordinate must be finite.
func ValidateGeometry(g geom.Geometry) error {
	if g == nil {
		return &ErrInvalidGeometry{Reason: "geometry is nil"}
	}

	switch g := g.(type) {
	case *geom.PointGeometry:
		if err := ValidateCoordinate(g.Point); err != nil {
			return &ErrInvalidGeometry{Type: geom.ShapePoint, Reason: err.Error()}
		}

	case *geom.PolylineGeometry:
		if len(g.Parts) == 0 {
			return &ErrInvalidGeometry{Type: geom.ShapePolyLine, Reason: "no parts"}
		}
		for i, part := range g.Parts {
			if len(part) < 2 {
				return &ErrInvalidGeometry{
					Type:   geom.ShapePolyLine,
					Reason: fmt.Sprintf("part %d has %d points, need at least 2", i, len(part)),
				}
			}
			if err := validatePoints(geom.ShapePolyLine, i, part); err != nil {
				return err
			}
		}

	case *geom.PolygonGeometry:
		if len(g.Rings) == 0 {
			return &ErrInvalidGeometry{Type: geom.ShapePolygon, Reason: "no rings"}
		}
		for i, ring := range g.Rings {
			if len(ring) < 4 {
				return &ErrInvalidGeometry{
					Type:   geom.ShapePolygon,
					Reason: fmt.Sprintf("ring %d has %d points, need at least 4", i, len(ring)),
				}
			}
			if !ring[0].Equal(ring[len(ring)-1]) {
				return &ErrInvalidGeometry{
					Type:   geom.ShapePolygon,
					Reason: fmt.Sprintf("ring %d is not closed", i),
				}
			}
			if err := validatePoints(geom.ShapePolygon, i, ring); err != nil {
				return err
			}
		}
	}

	return nil
}

func validatePoints(t geom.ShapeType, part int, points []geom.Point) error {
	for j, p := range points {
		if err := ValidateCoordinate(p); err != nil {
			return &ErrInvalidGeometry{
				Type:   t,
				Reason: fmt.Sprintf("part %d point %d: %v", part, j, err),
			}
		}
	}
	return nil
}
