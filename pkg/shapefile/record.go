package shapefile

import (
	"sort"
	"strings"

	"github.com/beetlebugorg/shapefile/internal/parser"
	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// FieldValue is a decoded attribute value. See parser.FieldValue for the
// accessor contract: mismatched kinds return zero values.
type FieldValue = parser.FieldValue

// FieldDefinition describes one attribute column of the .dbf table.
type FieldDefinition = parser.FieldDefinition

// FieldType is the .dbf column type code.
type FieldType = parser.FieldType

// Header is the .shp main file header.
type Header = parser.MainHeader

// Field types.
const (
	FieldUnknown   = parser.FieldUnknown
	FieldCharacter = parser.FieldCharacter
	FieldNumeric   = parser.FieldNumeric
	FieldLogical   = parser.FieldLogical
	FieldDate      = parser.FieldDate
	FieldFloat     = parser.FieldFloat
)

// ValueKind identifies which member of a FieldValue is set.
type ValueKind = parser.ValueKind

// Value kinds.
const (
	KindString = parser.KindString
	KindFloat  = parser.KindFloat
	KindBool   = parser.KindBool
)

// Value constructors, re-exported for callers building records in memory.
var (
	StringValue = parser.StringValue
	FloatValue  = parser.FloatValue
	BoolValue   = parser.BoolValue
)

// ShapeRecord pairs one geometry with its attribute row.
//
// Geometry is nil for null shapes, for shape types the reader does not
// decode (MultiPoint, Z and M variants, MultiPatch) and for records whose
// content could not be decoded.
type ShapeRecord struct {
	// Index is the 0-based position of the record in the file.
	Index int

	// Number is the 1-based record number stored in the record header.
	Number int32

	Geometry   geom.Geometry
	Attributes map[string]FieldValue

	// Deleted is set when the .dbf row carries the deletion flag. Deleted
	// rows have no attributes.
	Deleted bool
}

// Attr looks up an attribute by name, falling back to a case-insensitive
// match since .dbf field names are conventionally upper case.
func (r *ShapeRecord) Attr(name string) (FieldValue, bool) {
	if v, ok := r.Attributes[name]; ok {
		return v, true
	}
	for k, v := range r.Attributes {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return FieldValue{}, false
}

// StringAttr returns a text attribute, or "" when absent or not text.
func (r *ShapeRecord) StringAttr(name string) string {
	v, _ := r.Attr(name)
	return v.AsString()
}

// FloatAttr returns a numeric attribute, or 0 when absent or not numeric.
func (r *ShapeRecord) FloatAttr(name string) float64 {
	v, _ := r.Attr(name)
	return v.AsFloat()
}

// BoolAttr returns a logical attribute, or false when absent or not logical.
func (r *ShapeRecord) BoolAttr(name string) bool {
	v, _ := r.Attr(name)
	return v.AsBool()
}

// Bounds returns the geometry bounds, or the zero box without geometry.
func (r *ShapeRecord) Bounds() geom.BoundingBox {
	if r.Geometry == nil {
		return geom.BoundingBox{}
	}
	return r.Geometry.Bounds()
}

// AttributeNames returns the attribute keys in sorted order.
func (r *ShapeRecord) AttributeNames() []string {
	names := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AttributeMap returns the attributes as native Go values: string,
// float64 or bool.
func (r *ShapeRecord) AttributeMap() map[string]any {
	m := make(map[string]any, len(r.Attributes))
	for k, v := range r.Attributes {
		switch v.Kind() {
		case KindFloat:
			m[k] = v.AsFloat()
		case KindBool:
			m[k] = v.AsBool()
		default:
			m[k] = v.AsString()
		}
	}
	return m
}

// ShapeTypeName names the geometry type, "Null" without geometry.
func (r *ShapeRecord) ShapeTypeName() string {
	if r.Geometry == nil {
		return "Null"
	}
	return r.Geometry.Type().String()
}

// Clone returns a deep copy of the record.
func (r *ShapeRecord) Clone() *ShapeRecord {
	c := *r
	if r.Geometry != nil {
		c.Geometry = r.Geometry.Clone()
	}
	c.Attributes = make(map[string]FieldValue, len(r.Attributes))
	for k, v := range r.Attributes {
		c.Attributes[k] = v
	}
	return &c
}
