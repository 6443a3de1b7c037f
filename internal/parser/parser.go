package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parser opens ESRI shapefile triads.
//
// A shapefile is three cooperating files sharing a base name: the geometry
// file (.shp), its fixed-width offset index (.shx) and a dBASE attribute
// table (.dbf). Record i of the .shx locates record i of the .shp, which
// pairs with row i of the .dbf.
//
// References:
//   - ESRI Shapefile Technical Description (July 1998)
//   - dBASE III file structure (Xbase .dbf header and field descriptors)
type Parser interface {
	// Open validates all three headers and returns a dataset ready for
	// random-access record reads.
	Open(base string) (*Dataset, error)

	// OpenWithOptions opens with custom options.
	OpenWithOptions(base string, opts ParseOptions) (*Dataset, error)
}

// ParseOptions configures opening and decoding
type ParseOptions struct {
	// RequireAttributes: if true, a missing .dbf fails Open.
	// If false, the dataset opens without attributes.
	// Default: true
	RequireAttributes bool

	// ValidateGeometry: if true, decoded geometries are checked with
	// ValidateGeometry and invalid ones are dropped (the record keeps its
	// attributes with a nil geometry).
	// Default: false
	ValidateGeometry bool
}

// DefaultParseOptions returns parse options with defaults
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		RequireAttributes: true,
		ValidateGeometry:  false,
	}
}

type defaultParser struct{}

// NewParser creates a new shapefile parser
func NewParser() Parser {
	return &defaultParser{}
}

// Open opens the triad at base with default options
func (p *defaultParser) Open(base string) (*Dataset, error) {
	return p.OpenWithOptions(base, DefaultParseOptions())
}

// OpenWithOptions opens the triad at base. On error every file opened so far
// is closed again and no dataset is returned.
func (p *defaultParser) OpenWithOptions(base string, opts ParseOptions) (*Dataset, error) {
	base = TrimExtension(base)
	d := &Dataset{base: base, opts: opts}

	if err := d.open(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// TrimExtension strips a trailing .shp, .shx or .dbf (any case) from path.
func TrimExtension(path string) string {
	lower := strings.ToLower(path)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		if strings.HasSuffix(lower, ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}

// openFile opens path, retrying with an upper-case extension since both
// spellings are common in distributed datasets.
func openFile(base, ext string) (*os.File, int64, error) {
	path := base + ext
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if alt, altErr := os.Open(base + strings.ToUpper(ext)); altErr == nil {
			f, err = alt, nil
		}
	}
	if err != nil {
		return nil, 0, &ErrMissingFile{Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return f, info.Size(), nil
}

// readAt reads exactly n bytes at off, reporting short files as ErrTruncated.
func readAt(r io.ReaderAt, file string, off, n int64) ([]byte, error) {
	buf := make([]byte, n)
	got, err := r.ReadAt(buf, off)
	if int64(got) == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, &ErrTruncated{File: file, Want: off + n, Got: off + int64(got)}
	}
	return nil, fmt.Errorf("read %s: %w", file, err)
}
