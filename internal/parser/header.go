package parser

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

const (
	// HeaderSize is the fixed size of the .shp and .shx main header.
	HeaderSize = 100

	// FileCode is the magic number at the start of .shp and .shx files.
	FileCode = 9994

	// Version is the only published format version.
	Version = 1000
)

// MainHeader is the 100-byte header shared by .shp and .shx files.
// ESRI Shapefile Technical Description, "The Main File Header":
//
//	Byte 0   File Code    9994        int32 big endian
//	Byte 4   Unused       0 (x5)      int32 big endian
//	Byte 24  File Length  16-bit words int32 big endian
//	Byte 28  Version      1000        int32 little endian
//	Byte 32  Shape Type               int32 little endian
//	Byte 36  Xmin Ymin Xmax Ymax      float64 little endian
//	Byte 68  Zmin Zmax Mmin Mmax      float64 little endian
type MainHeader struct {
	FileCode   int32
	FileLength int64 // bytes (the header stores 16-bit words)
	Version    int32
	ShapeType  geom.ShapeType
	Bounds     geom.BoundingBox
	ZMin, ZMax float64
	MMin, MMax float64
}

// DecodeMainHeader parses a main file header. Only the magic number and the
// length field are validated; the version is reported as read.
func DecodeMainHeader(file string, data []byte) (MainHeader, error) {
	if len(data) < HeaderSize {
		return MainHeader{}, &ErrTruncated{File: file, Want: HeaderSize, Got: int64(len(data))}
	}

	var h MainHeader
	h.FileCode = int32(binary.BigEndian.Uint32(data[0:4]))
	if h.FileCode != FileCode {
		return MainHeader{}, &ErrInvalidHeader{
			File:   file,
			Reason: fmt.Sprintf("file code %d, want %d", h.FileCode, FileCode),
		}
	}

	words := int32(binary.BigEndian.Uint32(data[24:28]))
	if words < HeaderSize/2 {
		return MainHeader{}, &ErrInvalidHeader{
			File:   file,
			Reason: fmt.Sprintf("file length %d words is shorter than the header", words),
		}
	}
	h.FileLength = int64(words) * 2

	h.Version = int32(binary.LittleEndian.Uint32(data[28:32]))
	h.ShapeType = geom.ShapeType(int32(binary.LittleEndian.Uint32(data[32:36])))
	h.Bounds = geom.BoundingBox{
		MinX: readFloat64(data[36:]),
		MinY: readFloat64(data[44:]),
		MaxX: readFloat64(data[52:]),
		MaxY: readFloat64(data[60:]),
	}
	h.ZMin = readFloat64(data[68:])
	h.ZMax = readFloat64(data[76:])
	h.MMin = readFloat64(data[84:])
	h.MMax = readFloat64(data[92:])
	return h, nil
}

// EncodeMainHeader is the inverse of DecodeMainHeader.
func EncodeMainHeader(h MainHeader) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(FileCode))
	binary.BigEndian.PutUint32(buf[24:28], uint32(h.FileLength/2))
	version := h.Version
	if version == 0 {
		version = Version
	}
	binary.LittleEndian.PutUint32(buf[28:32], uint32(version))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(h.ShapeType))
	for i, v := range []float64{
		h.Bounds.MinX, h.Bounds.MinY, h.Bounds.MaxX, h.Bounds.MaxY,
		h.ZMin, h.ZMax, h.MMin, h.MMax,
	} {
		putFloat64(buf[36+8*i:], v)
	}
	return buf
}

func readFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func putFloat64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}
