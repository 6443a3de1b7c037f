package parser

import (
	"fmt"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// ErrMissingFile indicates one file of the .shp/.shx/.dbf triad could not be opened
type ErrMissingFile struct {
	Path string
	Err  error
}

func (e *ErrMissingFile) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *ErrMissingFile) Unwrap() error { return e.Err }

// ErrInvalidHeader indicates a file header with a bad magic number or
// inconsistent layout
type ErrInvalidHeader struct {
	File   string
	Reason string
}

func (e *ErrInvalidHeader) Error() string {
	return fmt.Sprintf("invalid header in %s: %s", e.File, e.Reason)
}

// ErrTruncated indicates a file shorter than its header says it is
type ErrTruncated struct {
	File string
	Want int64
	Got  int64
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("%s truncated: need %d bytes, have %d", e.File, e.Want, e.Got)
}

// ErrRecordOutOfBounds indicates an index entry pointing past the end of the
// geometry file
type ErrRecordOutOfBounds struct {
	Index    int
	Offset   int64
	Length   int64
	FileSize int64
}

func (e *ErrRecordOutOfBounds) Error() string {
	return fmt.Sprintf("record %d at offset %d (+%d bytes) runs past end of file (%d bytes)",
		e.Index, e.Offset, e.Length, e.FileSize)
}

// ErrInvalidGeometry indicates a record whose geometry could not be decoded
// or breaks the shapefile geometry rules
type ErrInvalidGeometry struct {
	Type   geom.ShapeType
	Reason string
}

func (e *ErrInvalidGeometry) Error() string {
	if e.Type != geom.ShapeNull {
		return fmt.Sprintf("invalid geometry (%v): %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}
