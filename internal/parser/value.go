package parser

import "strconv"

// ValueKind identifies which member of a FieldValue is set.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindFloat
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	}
	return "string"
}

// FieldValue is a decoded attribute: text, a number or a boolean.
//
// The As* accessors never fail. Asking for a kind the value does not hold
// returns that kind's zero value, so callers can probe fields that may not
// exist in a particular dataset without error handling.
type FieldValue struct {
	kind ValueKind
	s    string
	f    float64
	b    bool
}

// StringValue returns a text value.
func StringValue(s string) FieldValue { return FieldValue{kind: KindString, s: s} }

// FloatValue returns a numeric value.
func FloatValue(f float64) FieldValue { return FieldValue{kind: KindFloat, f: f} }

// BoolValue returns a logical value.
func BoolValue(b bool) FieldValue { return FieldValue{kind: KindBool, b: b} }

// Kind returns which member is set.
func (v FieldValue) Kind() ValueKind { return v.kind }

// AsString returns the text, or "" for a non-text value.
func (v FieldValue) AsString() string {
	if v.kind != KindString {
		return ""
	}
	return v.s
}

// AsFloat returns the number, or 0 for a non-numeric value.
func (v FieldValue) AsFloat() float64 {
	if v.kind != KindFloat {
		return 0
	}
	return v.f
}

// AsBool returns the boolean, or false for a non-logical value.
func (v FieldValue) AsBool() bool {
	if v.kind != KindBool {
		return false
	}
	return v.b
}

// String formats the value whatever its kind.
func (v FieldValue) String() string {
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return v.s
}
