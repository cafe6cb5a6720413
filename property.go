package objectcore

import (
	"github.com/GoCodeAlone/objectcore/variant"
)

// PropertyKind tags a Property. Lookups on a TypeInfo are by kind, and a
// type or attribute carries at most one property of each kind.
type PropertyKind string

// Built-in property kinds.
const (
	PropertyEasyString PropertyKind = "EasyString"
	PropertyTooltip    PropertyKind = "Tooltip"
	PropertyCategory   PropertyKind = "Category"
	PropertyRange      PropertyKind = "Range"
)

// Property is metadata attached to a type or to one of its attributes.
// It is not a data field; editors and serializers read it for hints.
type Property interface {
	PropertyKind() PropertyKind
}

// StringProperty wraps a single string value.
type StringProperty struct {
	kind  PropertyKind
	value string
}

// EasyString returns a string property of kind PropertyEasyString.
func EasyString(value string) *StringProperty {
	return &StringProperty{kind: PropertyEasyString, value: value}
}

// Tooltip returns a string property carrying editor help text.
func Tooltip(text string) *StringProperty {
	return &StringProperty{kind: PropertyTooltip, value: text}
}

// Category returns a string property used for editor grouping.
func Category(name string) *StringProperty {
	return &StringProperty{kind: PropertyCategory, value: name}
}

// Tag returns a string property of an arbitrary kind.
func Tag(kind PropertyKind, value string) *StringProperty {
	return &StringProperty{kind: kind, value: value}
}

func (p *StringProperty) PropertyKind() PropertyKind { return p.kind }

// Value returns the wrapped string.
func (p *StringProperty) Value() string { return p.value }

// ValueProperty carries an arbitrary boxed payload.
type ValueProperty struct {
	kind  PropertyKind
	value variant.Variant
}

// NewValueProperty returns a property of the given kind holding value.
func NewValueProperty(kind PropertyKind, value variant.Variant) *ValueProperty {
	return &ValueProperty{kind: kind, value: value}
}

func (p *ValueProperty) PropertyKind() PropertyKind { return p.kind }

// Value returns the boxed payload.
func (p *ValueProperty) Value() variant.Variant { return p.value }

// RangeProperty bounds a numeric attribute for editors.
type RangeProperty struct {
	Min, Max float64
}

// Range returns a RangeProperty.
func Range(min, max float64) *RangeProperty {
	return &RangeProperty{Min: min, Max: max}
}

func (*RangeProperty) PropertyKind() PropertyKind { return PropertyRange }

// PropertyOf returns the first type-level property of concrete type P.
func PropertyOf[P Property](ti *TypeInfo) (P, bool) {
	var zero P
	if ti == nil {
		return zero, false
	}
	for _, prop := range ti.typeProperties {
		if p, ok := prop.(P); ok {
			return p, true
		}
	}
	return zero, false
}

// AttributePropertyOf returns the first property of concrete type P
// attached to the named attribute.
func AttributePropertyOf[P Property](ti *TypeInfo, attribute string) (P, bool) {
	var zero P
	if ti == nil {
		return zero, false
	}
	for _, prop := range ti.AttributeProperties(attribute) {
		if p, ok := prop.(P); ok {
			return p, true
		}
	}
	return zero, false
}
