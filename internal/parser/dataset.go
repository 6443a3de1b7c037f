package parser

import (
	"os"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// Dataset is an open shapefile triad. Reads go through io.ReaderAt, so an
// open dataset serves concurrent record reads.
type Dataset struct {
	base string
	opts ParseOptions

	shp, shx, dbf *os.File
	shpSize       int64

	header    MainHeader
	index     []IndexEntry
	dbfHeader *DBFHeader
}

// open validates the triad: both main headers, every index entry against
// the .shp size, and the .dbf header against the .dbf size.
func (d *Dataset) open() error {
	var err error

	// 1. Geometry file header
	d.shp, d.shpSize, err = openFile(d.base, ".shp")
	if err != nil {
		return err
	}
	data, err := readAt(d.shp, d.base+".shp", 0, HeaderSize)
	if err != nil {
		return err
	}
	if d.header, err = DecodeMainHeader(d.base+".shp", data); err != nil {
		return err
	}
	if d.header.FileLength > d.shpSize {
		return &ErrTruncated{File: d.base + ".shp", Want: d.header.FileLength, Got: d.shpSize}
	}

	// 2. Index file, read whole: 8 bytes per record
	var shxSize int64
	d.shx, shxSize, err = openFile(d.base, ".shx")
	if err != nil {
		return err
	}
	data, err = readAt(d.shx, d.base+".shx", 0, shxSize)
	if err != nil {
		return err
	}
	shxHeader, err := DecodeMainHeader(d.base+".shx", data)
	if err != nil {
		return err
	}
	if shxHeader.FileLength > shxSize {
		return &ErrTruncated{File: d.base + ".shx", Want: shxHeader.FileLength, Got: shxSize}
	}
	d.index = DecodeIndex(data[:shxHeader.FileLength])
	for i, e := range d.index {
		if e.Offset < HeaderSize || e.Length < 0 || e.End() > d.shpSize {
			return &ErrRecordOutOfBounds{Index: i, Offset: e.Offset, Length: e.Length, FileSize: d.shpSize}
		}
	}

	// 3. Attribute table
	var dbfSize int64
	d.dbf, dbfSize, err = openFile(d.base, ".dbf")
	if err != nil {
		if !d.opts.RequireAttributes {
			d.dbf = nil
			return nil
		}
		return err
	}
	head, err := readAt(d.dbf, d.base+".dbf", 0, min(dbfSize, 65535+1))
	if err != nil {
		return err
	}
	if d.dbfHeader, err = DecodeDBFHeader(d.base+".dbf", head); err != nil {
		return err
	}
	if want := d.dbfHeader.DataSize(); want > dbfSize {
		return &ErrTruncated{File: d.base + ".dbf", Want: want, Got: dbfSize}
	}
	return nil
}

// Close closes every open file. Safe to call more than once.
func (d *Dataset) Close() error {
	var first error
	for _, f := range []**os.File{&d.shp, &d.shx, &d.dbf} {
		if *f == nil {
			continue
		}
		if err := (*f).Close(); err != nil && first == nil {
			first = err
		}
		*f = nil
	}
	return first
}

// Base returns the triad's base path without extension.
func (d *Dataset) Base() string { return d.base }

// Header returns the .shp main header.
func (d *Dataset) Header() MainHeader { return d.header }

// RecordCount returns the number of .shx index entries.
func (d *Dataset) RecordCount() int { return len(d.index) }

// HasAttributes reports whether a .dbf was opened.
func (d *Dataset) HasAttributes() bool { return d.dbfHeader != nil }

// DBFHeader returns the attribute table header, or nil without a .dbf.
func (d *Dataset) DBFHeader() *DBFHeader { return d.dbfHeader }

// Fields returns the attribute schema, empty without a .dbf.
func (d *Dataset) Fields() []FieldDefinition {
	if d.dbfHeader == nil {
		return nil
	}
	return d.dbfHeader.Fields
}

// Shape is one decoded .shp record.
type Shape struct {
	Header   RecordHeader
	Geometry geom.Geometry

	// Problem is set when the content could not be decoded or failed
	// validation. Geometry is nil in that case.
	Problem error
}

// ReadShape reads and decodes record i's geometry. The error is non-nil
// only for I/O failures; undecodable content is reported in Shape.Problem.
func (d *Dataset) ReadShape(i int) (Shape, error) {
	e := d.index[i]
	buf, err := readAt(d.shp, d.base+".shp", e.Offset, recordHeaderSize+e.Length)
	if err != nil {
		return Shape{}, err
	}
	hdr, err := DecodeRecordHeader(buf)
	if err != nil {
		return Shape{}, err
	}

	s := Shape{Header: hdr}
	s.Geometry, s.Problem = DecodeShape(buf[recordHeaderSize:])
	if s.Problem == nil && s.Geometry != nil && d.opts.ValidateGeometry {
		if verr := ValidateGeometry(s.Geometry); verr != nil {
			s.Geometry, s.Problem = nil, verr
		}
	}
	return s, nil
}

// ReadAttributes reads row i of the .dbf. Rows past the table's record
// count, and every row when there is no .dbf, decode to an empty map.
func (d *Dataset) ReadAttributes(i int) (map[string]FieldValue, bool, error) {
	if d.dbfHeader == nil || i >= d.dbfHeader.RecordCount {
		return map[string]FieldValue{}, false, nil
	}
	row, err := readAt(d.dbf, d.base+".dbf", d.dbfHeader.RecordOffset(i), int64(d.dbfHeader.RecordLength))
	if err != nil {
		return nil, false, err
	}
	values, deleted := DecodeRow(row, d.dbfHeader.Fields)
	return values, deleted, nil
}
