// Package variant provides the boxed value container used for attribute
// values and event payloads. A Variant carries a Kind tag next to its value
// so that consumers can check the kind before unboxing.
package variant

import (
	"bytes"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/GoCodeAlone/objectcore/strhash"
)

// Kind identifies which value a Variant holds.
type Kind uint8

const (
	KindNone Kind = iota
	KindInt
	KindInt64
	KindBool
	KindFloat
	KindDouble
	KindString
	KindBytes
	KindStrings
	KindMap
	KindDuration
	KindTime
	KindPtr
)

var kindNames = [...]string{
	KindNone:     "None",
	KindInt:      "Int",
	KindInt64:    "Int64",
	KindBool:     "Bool",
	KindFloat:    "Float",
	KindDouble:   "Double",
	KindString:   "String",
	KindBytes:    "Bytes",
	KindStrings:  "Strings",
	KindMap:      "Map",
	KindDuration: "Duration",
	KindTime:     "Time",
	KindPtr:      "Ptr",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value lists the Go types a Variant can box through New. Attribute
// declarations are constrained to it, so an unsupported field type is
// rejected by the compiler.
type Value interface {
	int | int64 | bool | float32 | float64 | string | []byte | []string | Map | time.Duration | time.Time
}

// Map is an event payload or nested attribute value keyed by parameter id.
type Map map[strhash.Hash]Variant

// Variant is a kind-tagged boxed value. The zero Variant is empty.
type Variant struct {
	kind  Kind
	value any
}

// Empty is the variant holding no value.
var Empty = Variant{}

// KindOf returns the Kind that boxes values of type U.
func KindOf[U Value]() Kind {
	var zero U
	switch any(zero).(type) {
	case int:
		return KindInt
	case int64:
		return KindInt64
	case bool:
		return KindBool
	case float32:
		return KindFloat
	case float64:
		return KindDouble
	case string:
		return KindString
	case []byte:
		return KindBytes
	case []string:
		return KindStrings
	case Map:
		return KindMap
	case time.Duration:
		return KindDuration
	case time.Time:
		return KindTime
	}
	return KindNone
}

// New boxes v.
func New[U Value](v U) Variant {
	return Variant{kind: KindOf[U](), value: v}
}

// NewPtr boxes an object reference. p should be a pointer.
func NewPtr(p any) Variant {
	if p == nil {
		return Empty
	}
	return Variant{kind: KindPtr, value: p}
}

// Zero returns the zero value of kind k.
func Zero(k Kind) Variant {
	switch k {
	case KindInt:
		return New(0)
	case KindInt64:
		return New(int64(0))
	case KindBool:
		return New(false)
	case KindFloat:
		return New(float32(0))
	case KindDouble:
		return New(float64(0))
	case KindString:
		return New("")
	case KindBytes:
		return New([]byte(nil))
	case KindStrings:
		return New([]string(nil))
	case KindMap:
		return New(Map(nil))
	case KindDuration:
		return New(time.Duration(0))
	case KindTime:
		return New(time.Time{})
	}
	return Empty
}

// Get unboxes v as U. It reports false when the kinds differ; the value is
// never converted between kinds.
func Get[U Value](v Variant) (U, bool) {
	var zero U
	if v.kind != KindOf[U]() || v.value == nil {
		return zero, false
	}
	u, ok := v.value.(U)
	return u, ok
}

// GetOr unboxes v as U, returning def when the kinds differ.
func GetOr[U Value](v Variant, def U) U {
	if u, ok := Get[U](v); ok {
		return u
	}
	return def
}

// Kind returns the kind tag.
func (v Variant) Kind() Kind { return v.kind }

// IsEmpty reports whether v holds no value.
func (v Variant) IsEmpty() bool { return v.kind == KindNone }

// Interface returns the boxed value.
func (v Variant) Interface() any { return v.value }

// Ptr returns the boxed object reference of a KindPtr variant.
func (v Variant) Ptr() any {
	if v.kind != KindPtr {
		return nil
	}
	return v.value
}

// Equal compares kind and value.
func (v Variant) Equal(o Variant) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindBytes:
		a, _ := v.value.([]byte)
		b, _ := o.value.([]byte)
		return bytes.Equal(a, b)
	case KindStrings:
		a, _ := v.value.([]string)
		b, _ := o.value.([]string)
		return slices.Equal(a, b)
	case KindMap:
		a, _ := v.value.(Map)
		b, _ := o.value.(Map)
		return a.Equal(b)
	case KindTime:
		a, _ := v.value.(time.Time)
		b, _ := o.value.(time.Time)
		return a.Equal(b)
	case KindPtr:
		rv := reflect.ValueOf(v.value)
		if !rv.Comparable() {
			return false
		}
		return v.value == o.value
	}
	return v.value == o.value
}

func (v Variant) String() string {
	if v.kind == KindNone {
		return "<empty>"
	}
	return fmt.Sprintf("%s(%v)", v.kind, v.value)
}

// Equal compares two maps entry by entry.
func (m Map) Equal(o Map) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of m.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Export converts m to plain values keyed by parameter name. Parameters
// whose names were never interned are keyed by their hash string.
func (m Map) Export() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch v.kind {
		case KindMap:
			nested, _ := v.value.(Map)
			out[k.String()] = nested.Export()
		case KindPtr:
			out[k.String()] = fmt.Sprintf("%T", v.value)
		default:
			out[k.String()] = v.value
		}
	}
	return out
}
