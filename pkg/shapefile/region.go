package shapefile

import (
	"fmt"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// Region selects the datasets to load from a directory tree.
type Region struct {
	// Bounds is the area of interest. Datasets whose header bounds
	// intersect it are loaded.
	Bounds geom.BoundingBox

	// Query filters the catalog (shape types, minimum record count).
	Query QueryOptions

	// Load controls how matching datasets are loaded.
	Load LoadOptions
}

// LoadRegion loads every shapefile under root that covers a region:
//  1. Discovers all shapefiles in the directory tree
//  2. Builds a catalog of their header bounds
//  3. Queries it for datasets intersecting the region
//  4. Loads the matches, in parallel when requested
//
// Example:
//
//	set, err := shapefile.LoadRegion("/data/tiger", shapefile.Region{
//	    Bounds: geom.BoundingBox{MinX: -122.5, MinY: 37.5, MaxX: -122.0, MaxY: 38.0},
//	    Query:  shapefile.QueryOptions{ShapeTypes: []geom.ShapeType{geom.ShapePolygon}},
//	    Load:   shapefile.DefaultLoadOptions(),
//	})
func LoadRegion(root string, region Region) (*DatasetSet, error) {
	catalog, err := BuildCatalogFromDir(root, region.Load)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	entries := catalog.Query(region.Bounds, region.Query)
	if len(entries) == 0 {
		return &DatasetSet{}, nil
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return LoadDatasetsParallel(paths, region.Load)
}
