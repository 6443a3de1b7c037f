package parser

import (
	"encoding/binary"
)

// indexEntrySize is the size of one .shx record entry.
const indexEntrySize = 8

// IndexEntry locates one record in the .shp file. Both fields are stored in
// 16-bit words in the file and converted to bytes here.
//
//	Byte 0  Offset          int32 big endian (words)
//	Byte 4  Content Length  int32 big endian (words)
//
// Offset points at the 8-byte record header; Length excludes it.
type IndexEntry struct {
	Offset int64
	Length int64
}

// End returns the byte offset one past the record, header included.
func (e IndexEntry) End() int64 {
	return e.Offset + recordHeaderSize + e.Length
}

// DecodeIndex parses the entries that follow the .shx main header. data is
// the whole file; trailing bytes that do not form a full entry are ignored.
func DecodeIndex(data []byte) []IndexEntry {
	if len(data) <= HeaderSize {
		return nil
	}
	body := data[HeaderSize:]
	n := len(body) / indexEntrySize
	entries := make([]IndexEntry, n)
	for i := 0; i < n; i++ {
		b := body[i*indexEntrySize:]
		entries[i] = IndexEntry{
			Offset: int64(int32(binary.BigEndian.Uint32(b[0:4]))) * 2,
			Length: int64(int32(binary.BigEndian.Uint32(b[4:8]))) * 2,
		}
	}
	return entries
}

// EncodeIndexEntry writes one .shx entry.
func EncodeIndexEntry(e IndexEntry) []byte {
	buf := make([]byte, indexEntrySize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(e.Offset/2))
	binary.BigEndian.PutUint32(buf[4:8], uint32(e.Length/2))
	return buf
}
