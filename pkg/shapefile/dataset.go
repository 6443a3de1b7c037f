package shapefile

import (
	"fmt"
	"path/filepath"

	"github.com/beetlebugorg/shapefile/internal/parser"
	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// Dataset is a fully loaded shapefile: header, schema and every record held
// in memory. Datasets are what the catalog, cache and parallel loader deal
// in; the file handles are closed once loading finishes.
type Dataset struct {
	Path    string // base path without extension
	Name    string // base name, e.g. "tl_2023_us_state"
	Header  Header
	Fields  []FieldDefinition
	Records []*ShapeRecord
}

// LoadDataset opens the triad at path, reads every record and closes it.
func LoadDataset(path string, opts ReadOptions) (*Dataset, error) {
	r := NewReaderWithOptions(path, opts)
	if err := r.Open(); err != nil {
		return nil, err
	}
	defer r.Close()

	return &Dataset{
		Path:    r.Base(),
		Name:    filepath.Base(r.Base()),
		Header:  r.Header(),
		Fields:  r.Fields(),
		Records: r.ReadAllRecords(),
	}, nil
}

// Bounds returns the header bounding box.
func (d *Dataset) Bounds() geom.BoundingBox { return d.Header.Bounds }

// RecordCount returns the number of loaded records.
func (d *Dataset) RecordCount() int { return len(d.Records) }

// RecordsInBounds returns the records whose geometry intersects box.
func (d *Dataset) RecordsInBounds(box geom.BoundingBox) []*ShapeRecord {
	var out []*ShapeRecord
	for _, rec := range d.Records {
		if !geom.IsEmpty(rec.Geometry) && box.Intersects(rec.Geometry.Bounds()) {
			out = append(out, rec)
		}
	}
	return out
}

// Write stores records as a new triad at base. The shape type is taken from
// the first record with geometry; records of another type are written as
// null shapes. Attribute values are formatted to fit the field widths.
func Write(base string, fields []FieldDefinition, records []*ShapeRecord) error {
	shapeType := geom.ShapeNull
	for _, rec := range records {
		if rec.Geometry != nil {
			shapeType = rec.Geometry.Type()
			break
		}
	}

	t := parser.Triad{
		ShapeType:  shapeType,
		Geometries: make([]geom.Geometry, len(records)),
		Fields:     fields,
		Rows:       make([][]string, len(records)),
	}
	for i, rec := range records {
		if rec.Geometry != nil && rec.Geometry.Type() == shapeType {
			t.Geometries[i] = rec.Geometry
		}
		if rec.Deleted {
			continue
		}
		row := make([]string, len(fields))
		for j, f := range fields {
			v, ok := rec.Attr(f.Name)
			if !ok {
				continue
			}
			row[j] = formatValue(f, v)
		}
		t.Rows[i] = row
	}

	if err := parser.WriteTriad(base, t); err != nil {
		return fmt.Errorf("write shapefile: %w", err)
	}
	return nil
}

// formatValue renders v for a fixed-width column. Numbers are right
// aligned as dBASE expects; text is truncated to the field length.
func formatValue(f FieldDefinition, v FieldValue) string {
	var s string
	switch f.Type {
	case FieldNumeric, FieldFloat:
		s = fmt.Sprintf("%*.*f", int(f.Length), int(f.DecimalCount), v.AsFloat())
	case FieldLogical:
		s = "F"
		if v.AsBool() {
			s = "T"
		}
	default:
		s = v.String()
	}
	if len(s) > int(f.Length) {
		s = s[:f.Length]
	}
	return s
}
