package parser

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dbfHeaderSize     = 32
	dbfDescriptorSize = 32
	dbfTerminator     = 0x0D
	dbfDeleted        = '*'
)

// FieldType is the one-byte type code of a .dbf field descriptor.
type FieldType byte

const (
	FieldUnknown   FieldType = 0
	FieldCharacter FieldType = 'C'
	FieldNumeric   FieldType = 'N'
	FieldLogical   FieldType = 'L'
	FieldDate      FieldType = 'D'
	FieldFloat     FieldType = 'F'
)

// fieldTypeFromCode maps a descriptor type byte to a FieldType. Codes other
// than C, N, L, D and F are Unknown and decode as text.
func fieldTypeFromCode(c byte) FieldType {
	switch FieldType(c) {
	case FieldCharacter, FieldNumeric, FieldLogical, FieldDate, FieldFloat:
		return FieldType(c)
	}
	return FieldUnknown
}

func (t FieldType) String() string {
	switch t {
	case FieldCharacter:
		return "Character"
	case FieldNumeric:
		return "Numeric"
	case FieldLogical:
		return "Logical"
	case FieldDate:
		return "Date"
	case FieldFloat:
		return "Float"
	}
	return "Unknown"
}

// FieldDefinition describes one attribute column.
type FieldDefinition struct {
	Name         string
	Type         FieldType
	Length       uint8
	DecimalCount uint8
}

// DBFHeader is the decoded .dbf table header.
//
//	Byte 0   Version          uint8
//	Byte 1   Last update      YY MM DD (years since 1900)
//	Byte 4   Record count     uint32 little endian
//	Byte 8   Header length    uint16 little endian
//	Byte 10  Record length    uint16 little endian
//	Byte 12  Reserved         20 bytes
//	Byte 32  Field descriptors, 32 bytes each, then 0x0D
//
// Each descriptor:
//
//	Byte 0   Name             11 bytes, NUL padded
//	Byte 11  Type             'C' 'N' 'L' 'D' 'F'
//	Byte 12  Reserved         4 bytes
//	Byte 16  Length           uint8
//	Byte 17  Decimal count    uint8
//	Byte 18  Reserved         14 bytes
type DBFHeader struct {
	Version      byte
	LastUpdate   time.Time
	RecordCount  int
	HeaderLength int
	RecordLength int
	Fields       []FieldDefinition
}

// DecodeDBFHeader parses the table header and field descriptors. data must
// hold at least HeaderLength bytes.
func DecodeDBFHeader(file string, data []byte) (*DBFHeader, error) {
	if len(data) < dbfHeaderSize {
		return nil, &ErrTruncated{File: file, Want: dbfHeaderSize, Got: int64(len(data))}
	}

	h := &DBFHeader{
		Version:      data[0],
		LastUpdate:   time.Date(1900+int(data[1]), time.Month(max(int(data[2]), 1)), max(int(data[3]), 1), 0, 0, 0, 0, time.UTC),
		RecordCount:  int(binary.LittleEndian.Uint32(data[4:8])),
		HeaderLength: int(binary.LittleEndian.Uint16(data[8:10])),
		RecordLength: int(binary.LittleEndian.Uint16(data[10:12])),
	}

	if h.HeaderLength < dbfHeaderSize+1 {
		return nil, &ErrInvalidHeader{File: file, Reason: fmt.Sprintf("header length %d is too small", h.HeaderLength)}
	}
	if len(data) < h.HeaderLength {
		return nil, &ErrTruncated{File: file, Want: int64(h.HeaderLength), Got: int64(len(data))}
	}

	terminated := false
	width := 1 // deletion flag
	for off := dbfHeaderSize; off < h.HeaderLength-1; off += dbfDescriptorSize {
		if data[off] == dbfTerminator {
			terminated = true
			break
		}
		if off+dbfDescriptorSize > h.HeaderLength {
			return nil, &ErrInvalidHeader{File: file, Reason: fmt.Sprintf("field descriptor at %d overruns header length %d", off, h.HeaderLength)}
		}
		d := data[off : off+dbfDescriptorSize]
		name := d[:11]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		f := FieldDefinition{
			Name:         strings.TrimSpace(string(name)),
			Type:         fieldTypeFromCode(d[11]),
			Length:       d[16],
			DecimalCount: d[17],
		}
		width += int(f.Length)
		h.Fields = append(h.Fields, f)
	}
	if !terminated && data[h.HeaderLength-1] != dbfTerminator {
		return nil, &ErrInvalidHeader{File: file, Reason: "field descriptor block is not terminated"}
	}
	if width > h.RecordLength {
		return nil, &ErrInvalidHeader{
			File:   file,
			Reason: fmt.Sprintf("fields need %d bytes per record, record length is %d", width, h.RecordLength),
		}
	}
	return h, nil
}

// DataSize returns the byte size the header implies for the whole file,
// excluding the optional 0x1A end-of-file marker.
func (h *DBFHeader) DataSize() int64 {
	return int64(h.HeaderLength) + int64(h.RecordCount)*int64(h.RecordLength)
}

// RecordOffset returns the byte offset of record i.
func (h *DBFHeader) RecordOffset(i int) int64 {
	return int64(h.HeaderLength) + int64(i)*int64(h.RecordLength)
}

// DecodeRow decodes one fixed-width record. Deleted rows decode to an empty
// map and deleted=true.
func DecodeRow(row []byte, fields []FieldDefinition) (values map[string]FieldValue, deleted bool) {
	values = make(map[string]FieldValue, len(fields))
	if len(row) == 0 {
		return values, false
	}
	if row[0] == dbfDeleted {
		return values, true
	}
	off := 1
	for _, f := range fields {
		end := off + int(f.Length)
		if end > len(row) {
			break
		}
		values[f.Name] = decodeValue(f, row[off:end])
		off = end
	}
	return values, false
}

// decodeValue converts padded field text according to the field type:
// numeric and float text parse as float64 (0 when empty or malformed),
// logicals are true for T, t, Y or y, and everything else is trimmed text.
func decodeValue(f FieldDefinition, raw []byte) FieldValue {
	text := strings.Trim(string(raw), " \x00")
	switch f.Type {
	case FieldNumeric, FieldFloat:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			v = 0
		}
		return FloatValue(v)
	case FieldLogical:
		switch text {
		case "T", "t", "Y", "y":
			return BoolValue(true)
		}
		return BoolValue(false)
	}
	return StringValue(text)
}

// EncodeDBF builds a complete .dbf file. Each row holds one string per
// field, left-aligned and space padded to the field length; nil rows are
// written as deleted.
func EncodeDBF(fields []FieldDefinition, rows [][]string, updated time.Time) []byte {
	headerLen := dbfHeaderSize + dbfDescriptorSize*len(fields) + 1
	recordLen := 1
	for _, f := range fields {
		recordLen += int(f.Length)
	}

	var buf bytes.Buffer
	head := make([]byte, dbfHeaderSize)
	head[0] = 0x03
	head[1] = byte(updated.Year() - 1900)
	head[2] = byte(updated.Month())
	head[3] = byte(updated.Day())
	binary.LittleEndian.PutUint32(head[4:8], uint32(len(rows)))
	binary.LittleEndian.PutUint16(head[8:10], uint16(headerLen))
	binary.LittleEndian.PutUint16(head[10:12], uint16(recordLen))
	buf.Write(head)

	for _, f := range fields {
		d := make([]byte, dbfDescriptorSize)
		copy(d[:10], f.Name)
		code := byte(f.Type)
		if code == 0 {
			code = byte(FieldCharacter)
		}
		d[11] = code
		d[16] = f.Length
		d[17] = f.DecimalCount
		buf.Write(d)
	}
	buf.WriteByte(dbfTerminator)

	for _, row := range rows {
		if row == nil {
			buf.WriteByte(dbfDeleted)
			buf.Write(bytes.Repeat([]byte{' '}, recordLen-1))
			continue
		}
		buf.WriteByte(' ')
		for i, f := range fields {
			cell := make([]byte, f.Length)
			for j := range cell {
				cell[j] = ' '
			}
			if i < len(row) {
				copy(cell, row[i])
			}
			buf.Write(cell)
		}
	}
	buf.WriteByte(0x1A)
	return buf.Bytes()
}
