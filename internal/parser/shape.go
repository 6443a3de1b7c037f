package parser

import (
	"encoding/binary"
	"fmt"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// recordHeaderSize is the size of the header in front of every .shp record.
const recordHeaderSize = 8

// RecordHeader precedes each record in the .shp file.
//
//	Byte 0  Record Number   int32 big endian (1-based)
//	Byte 4  Content Length  int32 big endian (16-bit words)
type RecordHeader struct {
	Number int32
	Length int64 // bytes
}

// DecodeRecordHeader parses the 8-byte record header.
func DecodeRecordHeader(data []byte) (RecordHeader, error) {
	if len(data) < recordHeaderSize {
		return RecordHeader{}, &ErrTruncated{File: "record header", Want: recordHeaderSize, Got: int64(len(data))}
	}
	return RecordHeader{
		Number: int32(binary.BigEndian.Uint32(data[0:4])),
		Length: int64(int32(binary.BigEndian.Uint32(data[4:8]))) * 2,
	}, nil
}

// DecodeShape decodes record content (everything after the record header).
//
// Point, PolyLine and Polygon records produce a geometry. Null shapes and
// every other shape type produce a nil geometry and a nil error. Content
// that is too short for the counts it declares produces a nil geometry and
// an *ErrInvalidGeometry describing the problem; callers treat that as a
// record without geometry rather than a fatal error.
//
// Content layouts (all little endian):
//
//	Point:            ShapeType int32, X float64, Y float64
//	PolyLine/Polygon: ShapeType int32, Box [4]float64, NumParts int32,
//	                  NumPoints int32, Parts [NumParts]int32,
//	                  Points [NumPoints]{X, Y float64}
func DecodeShape(content []byte) (geom.Geometry, error) {
	if len(content) < 4 {
		return nil, nil
	}
	shapeType := geom.ShapeType(int32(binary.LittleEndian.Uint32(content[0:4])))

	switch shapeType {
	case geom.ShapePoint:
		if len(content) < 20 {
			return nil, &ErrInvalidGeometry{Type: shapeType, Reason: fmt.Sprintf("point content is %d bytes, need 20", len(content))}
		}
		return geom.NewPoint(readFloat64(content[4:]), readFloat64(content[12:])), nil

	case geom.ShapePolyLine, geom.ShapePolygon:
		parts, err := decodeParts(shapeType, content)
		if err != nil {
			return nil, err
		}
		if shapeType == geom.ShapePolygon {
			return &geom.PolygonGeometry{Rings: parts}, nil
		}
		return &geom.PolylineGeometry{Parts: parts}, nil
	}

	// Null, MultiPoint, Z/M variants and MultiPatch carry no supported geometry.
	return nil, nil
}

// decodeParts reads the shared PolyLine/Polygon layout and splits the point
// array at each part offset. Part i spans [parts[i], parts[i+1]); the last
// part ends at NumPoints. Offsets are clamped into range and empty parts
// are dropped; offsets that go backwards are an error.
func decodeParts(shapeType geom.ShapeType, content []byte) ([][]geom.Point, error) {
	const fixed = 4 + 32 + 4 + 4
	if len(content) < fixed {
		return nil, &ErrInvalidGeometry{Type: shapeType, Reason: fmt.Sprintf("content is %d bytes, need at least %d", len(content), fixed)}
	}

	numParts := int(int32(binary.LittleEndian.Uint32(content[36:40])))
	numPoints := int(int32(binary.LittleEndian.Uint32(content[40:44])))
	if numParts < 0 || numPoints < 0 {
		return nil, &ErrInvalidGeometry{Type: shapeType, Reason: fmt.Sprintf("negative counts (parts=%d points=%d)", numParts, numPoints)}
	}

	need := int64(fixed) + 4*int64(numParts) + 16*int64(numPoints)
	if int64(len(content)) < need {
		return nil, &ErrInvalidGeometry{
			Type:   shapeType,
			Reason: fmt.Sprintf("%d parts and %d points need %d bytes, have %d", numParts, numPoints, need, len(content)),
		}
	}

	offsets := make([]int, numParts)
	for i := range offsets {
		off := int(int32(binary.LittleEndian.Uint32(content[fixed+4*i:])))
		offsets[i] = clamp(off, 0, numPoints)
		if i > 0 && offsets[i] < offsets[i-1] {
			return nil, &ErrInvalidGeometry{
				Type:   shapeType,
				Reason: fmt.Sprintf("part %d starts at point %d, before part %d at %d", i, offsets[i], i-1, offsets[i-1]),
			}
		}
	}

	pointBase := fixed + 4*numParts
	points := make([]geom.Point, numPoints)
	for i := range points {
		b := content[pointBase+16*i:]
		points[i] = geom.Point{X: readFloat64(b), Y: readFloat64(b[8:])}
	}

	parts := make([][]geom.Point, 0, numParts)
	for i, start := range offsets {
		end := numPoints
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if end <= start {
			continue
		}
		parts = append(parts, points[start:end:end])
	}
	return parts, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EncodeShape encodes g as record content, the inverse of DecodeShape.
// A nil geometry encodes as a Null shape.
func EncodeShape(g geom.Geometry) []byte {
	switch g := g.(type) {
	case *geom.PointGeometry:
		buf := make([]byte, 20)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(geom.ShapePoint))
		putFloat64(buf[4:], g.Point.X)
		putFloat64(buf[12:], g.Point.Y)
		return buf
	case *geom.PolylineGeometry:
		return encodeParts(geom.ShapePolyLine, g.Bounds(), g.Parts)
	case *geom.PolygonGeometry:
		return encodeParts(geom.ShapePolygon, g.Bounds(), g.Rings)
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(geom.ShapeNull))
	return buf
}

func encodeParts(shapeType geom.ShapeType, box geom.BoundingBox, parts [][]geom.Point) []byte {
	numPoints := 0
	for _, p := range parts {
		numPoints += len(p)
	}
	buf := make([]byte, 44+4*len(parts)+16*numPoints)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(shapeType))
	putFloat64(buf[4:], box.MinX)
	putFloat64(buf[12:], box.MinY)
	putFloat64(buf[20:], box.MaxX)
	putFloat64(buf[28:], box.MaxY)
	binary.LittleEndian.PutUint32(buf[36:40], uint32(len(parts)))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(numPoints))

	off := 44
	start := 0
	for _, p := range parts {
		binary.LittleEndian.PutUint32(buf[off:], uint32(start))
		off += 4
		start += len(p)
	}
	for _, part := range parts {
		for _, pt := range part {
			putFloat64(buf[off:], pt.X)
			putFloat64(buf[off+8:], pt.Y)
			off += 16
		}
	}
	return buf
}

// EncodeRecord prefixes content with a record header.
func EncodeRecord(number int32, content []byte) []byte {
	buf := make([]byte, recordHeaderSize+len(content))
	binary.BigEndian.PutUint32(buf[0:4], uint32(number))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(content)/2))
	copy(buf[recordHeaderSize:], content)
	return buf
}
