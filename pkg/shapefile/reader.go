package shapefile

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/beetlebugorg/shapefile/internal/parser"
	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// Reader reads an ESRI shapefile: base.shp, base.shx and base.dbf.
//
// A Reader is either closed or open. Open validates all three files and
// either succeeds completely or leaves the reader closed with no files held.
// Once open, records can be read in any order and from several goroutines;
// Open and Close must not race with reads.
//
// Example:
//
//	r := shapefile.NewReader("data/states")
//	if err := r.Open(); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	for _, rec := range r.ReadAllRecords() {
//	    fmt.Println(rec.StringAttr("NAME"), rec.Bounds())
//	}
type Reader struct {
	base   string
	opts   ReadOptions
	log    *slog.Logger
	parser parser.Parser
	ds     *parser.Dataset
}

// NewReader returns a closed reader for the triad at base. A trailing .shp,
// .shx or .dbf extension is ignored.
func NewReader(base string) *Reader {
	return NewReaderWithOptions(base, DefaultReadOptions())
}

// NewReaderWithOptions returns a closed reader with custom options.
func NewReaderWithOptions(base string, opts ReadOptions) *Reader {
	return &Reader{
		base:   parser.TrimExtension(base),
		opts:   opts,
		log:    opts.logger(),
		parser: parser.NewParser(),
	}
}

// Open opens and validates the triad. Opening an open reader does nothing.
//
// Errors wrap the parser's typed errors (missing file, invalid header,
// truncation, record out of bounds) and can be inspected with errors.As.
func (r *Reader) Open() error {
	if r.ds != nil {
		return nil
	}
	ds, err := r.parser.OpenWithOptions(r.base, parser.ParseOptions{
		RequireAttributes: r.opts.RequireAttributes,
		ValidateGeometry:  r.opts.ValidateGeometry,
	})
	if err != nil {
		return fmt.Errorf("open shapefile %s: %w", r.base, err)
	}
	r.ds = ds
	r.log.Debug("shapefile_open",
		"base", r.base,
		"shape_type", ds.Header().ShapeType.String(),
		"records", ds.RecordCount(),
		"fields", len(ds.Fields()),
	)
	return nil
}

// Close releases the files. Closing a closed reader does nothing.
func (r *Reader) Close() error {
	if r.ds == nil {
		return nil
	}
	err := r.ds.Close()
	r.ds = nil
	return err
}

// IsOpen reports whether the reader is open.
func (r *Reader) IsOpen() bool { return r.ds != nil }

// Base returns the triad's base path.
func (r *Reader) Base() string { return r.base }

// Header returns the .shp main header, or the zero header when closed.
func (r *Reader) Header() Header {
	if r.ds == nil {
		return Header{}
	}
	return r.ds.Header()
}

// ShapeType returns the dataset-wide shape type from the header.
func (r *Reader) ShapeType() geom.ShapeType { return r.Header().ShapeType }

// Bounds returns the dataset-wide bounding box from the header.
func (r *Reader) Bounds() geom.BoundingBox { return r.Header().Bounds }

// RecordCount returns the number of records, 0 when closed.
func (r *Reader) RecordCount() int {
	if r.ds == nil {
		return 0
	}
	return r.ds.RecordCount()
}

// Fields returns the attribute schema, nil when closed or without a .dbf.
func (r *Reader) Fields() []FieldDefinition {
	if r.ds == nil {
		return nil
	}
	return r.ds.Fields()
}

// ReadRecord reads record i. It returns false when the reader is closed,
// when i is out of range, or when the record cannot be read from disk.
// Undecodable geometry does not fail the read; the record comes back with
// a nil Geometry.
func (r *Reader) ReadRecord(i int) (*ShapeRecord, bool) {
	if r.ds == nil || i < 0 || i >= r.ds.RecordCount() {
		return nil, false
	}

	shape, err := r.ds.ReadShape(i)
	if err != nil {
		r.log.Warn("shapefile_read_failed", "base", r.base, "record", i, "err", err)
		return nil, false
	}
	if shape.Problem != nil {
		r.log.Debug("shapefile_bad_geometry", "base", r.base, "record", i, "err", shape.Problem)
	}

	attrs, deleted, err := r.ds.ReadAttributes(i)
	if err != nil {
		r.log.Warn("shapefile_read_failed", "base", r.base, "record", i, "err", err)
		return nil, false
	}

	return &ShapeRecord{
		Index:      i,
		Number:     shape.Header.Number,
		Geometry:   shape.Geometry,
		Attributes: attrs,
		Deleted:    deleted,
	}, true
}

// ReadAllRecords reads every record in file order. Records that cannot be
// read are skipped.
func (r *Reader) ReadAllRecords() []*ShapeRecord {
	n := r.RecordCount()
	records := make([]*ShapeRecord, 0, n)
	for i := 0; i < n; i++ {
		if rec, ok := r.ReadRecord(i); ok {
			records = append(records, rec)
		}
	}
	return records
}

// ReadRecordsInBounds reads every record and keeps those whose geometry
// bounds intersect box. This is a full scan; build a spatial index for
// repeated queries.
func (r *Reader) ReadRecordsInBounds(box geom.BoundingBox) []*ShapeRecord {
	var records []*ShapeRecord
	n := r.RecordCount()
	for i := 0; i < n; i++ {
		rec, ok := r.ReadRecord(i)
		if !ok || geom.IsEmpty(rec.Geometry) {
			continue
		}
		if box.Intersects(rec.Geometry.Bounds()) {
			records = append(records, rec)
		}
	}
	return records
}

// Info returns a human-readable summary of the dataset.
func (r *Reader) Info() string {
	if r.ds == nil {
		return fmt.Sprintf("Shapefile %s (closed)\n", r.base)
	}
	h := r.ds.Header()

	var b strings.Builder
	fmt.Fprintf(&b, "Shapefile Information:\n")
	fmt.Fprintf(&b, "  File: %s\n", r.base)
	fmt.Fprintf(&b, "  Shape Type: %s (%d)\n", h.ShapeType, int32(h.ShapeType))
	fmt.Fprintf(&b, "  Record Count: %d\n", r.ds.RecordCount())
	fmt.Fprintf(&b, "  Bounds: (%g, %g) to (%g, %g)\n", h.Bounds.MinX, h.Bounds.MinY, h.Bounds.MaxX, h.Bounds.MaxY)
	if fields := r.ds.Fields(); len(fields) > 0 {
		fmt.Fprintf(&b, "  Fields:\n")
		for _, f := range fields {
			fmt.Fprintf(&b, "    %s (%s, %d", f.Name, f.Type, f.Length)
			if f.DecimalCount > 0 {
				fmt.Fprintf(&b, ".%d", f.DecimalCount)
			}
			fmt.Fprintf(&b, ")\n")
		}
	}
	return b.String()
}
