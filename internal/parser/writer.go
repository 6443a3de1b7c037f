package parser

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// Triad is the content of a shapefile to be written: one geometry and one
// attribute row per record.
type Triad struct {
	ShapeType  geom.ShapeType
	Geometries []geom.Geometry
	Fields     []FieldDefinition

	// Rows holds one formatted string per field for each record. A nil row
	// is written as a deleted record; a missing row as blanks.
	Rows [][]string

	// Updated is the .dbf last-update date. Zero means now.
	Updated time.Time
}

// Encode returns the .shp, .shx and .dbf file contents.
func (t Triad) Encode() (shp, shx, dbf []byte) {
	var shpBuf, shxBuf bytes.Buffer
	bounds := geom.EmptyBox()

	offset := int64(HeaderSize)
	for i, g := range t.Geometries {
		if !geom.IsEmpty(g) {
			bounds = bounds.Union(g.Bounds())
		}
		content := EncodeShape(g)
		shpBuf.Write(EncodeRecord(int32(i+1), content))
		shxBuf.Write(EncodeIndexEntry(IndexEntry{Offset: offset, Length: int64(len(content))}))
		offset += recordHeaderSize + int64(len(content))
	}
	if bounds.IsEmpty() {
		bounds = geom.BoundingBox{}
	}

	header := MainHeader{ShapeType: t.ShapeType, Bounds: bounds}
	header.FileLength = HeaderSize + int64(shpBuf.Len())
	shp = append(EncodeMainHeader(header), shpBuf.Bytes()...)

	header.FileLength = HeaderSize + int64(shxBuf.Len())
	shx = append(EncodeMainHeader(header), shxBuf.Bytes()...)

	rows := make([][]string, len(t.Geometries))
	for i := range rows {
		if i < len(t.Rows) {
			rows[i] = t.Rows[i]
		} else {
			rows[i] = []string{}
		}
	}
	updated := t.Updated
	if updated.IsZero() {
		updated = time.Now()
	}
	dbf = EncodeDBF(t.Fields, rows, updated)
	return shp, shx, dbf
}

// WriteTriad writes base.shp, base.shx and base.dbf.
func WriteTriad(base string, t Triad) error {
	base = TrimExtension(base)
	shp, shx, dbf := t.Encode()
	for _, f := range []struct {
		ext  string
		data []byte
	}{{".shp", shp}, {".shx", shx}, {".dbf", dbf}} {
		if err := os.WriteFile(base+f.ext, f.data, 0o644); err != nil {
			return fmt.Errorf("write %s%s: %w", base, f.ext, err)
		}
	}
	return nil
}
