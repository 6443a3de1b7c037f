// Package shapefile reads ESRI shapefiles.
//
// A shapefile is three files sharing a base name: base.shp holds the
// geometry, base.shx the offset of every record, and base.dbf a dBASE table
// with one attribute row per record. The Reader validates all three on Open
// and then decodes records on demand:
//
//	r := shapefile.NewReader("data/states")
//	if err := r.Open(); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	rec, ok := r.ReadRecord(0)
//	if ok {
//	    fmt.Println(rec.StringAttr("NAME"), rec.Geometry.Bounds())
//	}
//
// Point, PolyLine and Polygon records decode to *geom.PointGeometry,
// *geom.PolylineGeometry and *geom.PolygonGeometry. Every other shape type,
// including the Z and M variants, decodes to a nil geometry while its
// attributes are still read.
//
// # Attributes
//
// Character, date and unknown fields decode to text, numeric and float
// fields to float64 (blank or malformed text reads as 0), and logical
// fields to bool. The typed accessors never fail: asking for the wrong
// kind, or a field that does not exist, returns the zero value.
//
// # Working with many files
//
// For directories of shapefiles the package offers a Catalog (an R-tree
// over header bounds, built without reading records), LoadDatasetsParallel
// (a worker pool loader that collects per-file failures), LoadRegion
// (catalog query plus parallel load) and DatasetCache (an LRU of loaded
// datasets bounded by estimated memory).
//
// # Limitations
//
// No reprojection is performed, .prj files are ignored, and .dbf text is
// returned as stored without code page conversion.
package shapefile
