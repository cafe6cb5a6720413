package objectcore

import (
	"fmt"
	"reflect"

	"github.com/GoCodeAlone/objectcore/variant"
)

// AttributeMode is a bitmask of attribute behaviour flags. Consumers test
// only the bits they understand; unknown bits are carried unchanged.
type AttributeMode uint32

const (
	// ModeEdit marks an attribute that is only edited, never persisted.
	ModeEdit AttributeMode = 0
	// ModeFile marks an attribute used for file serialization.
	ModeFile AttributeMode = 1 << 0
	// ModeNet marks an attribute used for network replication.
	ModeNet AttributeMode = 1 << 1
	// ModeDefault is the mode used when none is given.
	ModeDefault = ModeFile | ModeNet
	// ModeLatestData replicates only the latest value.
	ModeLatestData AttributeMode = 1 << 2
	// ModeNoEdit hides the attribute from editors.
	ModeNoEdit AttributeMode = 1 << 3
	// ModeNodeID marks an attribute holding a node id.
	ModeNodeID AttributeMode = 1 << 4
	// ModeComponentID marks an attribute holding a component id.
	ModeComponentID AttributeMode = 1 << 5
	// ModeReadOnly marks an attribute that is loaded but never written back.
	ModeReadOnly AttributeMode = 1 << 7
	// ModeFileReadOnly is read from files but not saved.
	ModeFileReadOnly = ModeFile | ModeReadOnly
)

// Has reports whether every bit of flag is set.
func (m AttributeMode) Has(flag AttributeMode) bool { return m&flag == flag }

// Serialized reports whether the attribute takes part in file serialization.
func (m AttributeMode) Serialized() bool { return m.Has(ModeFile) }

// Editable reports whether editors should show the attribute.
func (m AttributeMode) Editable() bool { return !m.Has(ModeNoEdit) }

// AttributeInfo describes one introspectable field of a registered type.
// It is immutable; updating a default replaces the descriptor in its owner.
type AttributeInfo struct {
	name         string
	kind         variant.Kind
	offset       uintptr
	offsetBased  bool
	accessor     AttributeAccessor
	defaultValue variant.Variant
	mode         AttributeMode
}

// NewAttributeInfo builds an accessor-backed attribute from any accessor
// implementation. Most callers use the typed constructors below instead.
func NewAttributeInfo(name string, kind variant.Kind, accessor AttributeAccessor, defaultValue variant.Variant, mode AttributeMode) *AttributeInfo {
	return &AttributeInfo{
		name:         name,
		kind:         kind,
		accessor:     accessor,
		defaultValue: defaultValue,
		mode:         mode,
	}
}

func (a *AttributeInfo) Name() string                  { return a.name }
func (a *AttributeInfo) Kind() variant.Kind            { return a.kind }
func (a *AttributeInfo) Accessor() AttributeAccessor   { return a.accessor }
func (a *AttributeInfo) DefaultValue() variant.Variant { return a.defaultValue }
func (a *AttributeInfo) Mode() AttributeMode           { return a.mode }

// Offset returns the byte offset of an offset-based attribute inside its
// owner type.
func (a *AttributeInfo) Offset() (uintptr, bool) { return a.offset, a.offsetBased }

// Get reads the attribute from instance.
func (a *AttributeInfo) Get(instance any) (variant.Variant, error) {
	return a.accessor.Get(instance)
}

// Set writes value into instance. A value of another kind is rejected with
// ErrKindMismatch before the accessor is touched.
func (a *AttributeInfo) Set(instance any, value variant.Variant) error {
	if value.Kind() != a.kind {
		return fmt.Errorf("attribute %q: %w: want %s, got %s", a.name, ErrKindMismatch, a.kind, value.Kind())
	}
	if err := a.accessor.Set(instance, value); err != nil {
		return fmt.Errorf("attribute %q: %w", a.name, err)
	}
	return nil
}

func (a *AttributeInfo) withDefault(v variant.Variant) *AttributeInfo {
	c := *a
	c.defaultValue = v
	return &c
}

// copyFor returns an independent copy of a that operates on instances of
// derived, which embeds the attribute's owner at index.
func (a *AttributeInfo) copyFor(derived reflect.Type, index []int, offset uintptr, direct bool) *AttributeInfo {
	c := *a
	if r, ok := a.accessor.(rebaser); ok && direct {
		c.accessor = r.rebase(derived, offset)
		c.offset = a.offset + offset
		return &c
	}
	c.accessor = embeddedAccessor{inner: a.accessor, derived: derived, index: index}
	c.offsetBased = false
	return &c
}

// AttributeDef is an attribute declaration for owner type T, consumed by
// ClassBuilder.Attribute.
type AttributeDef[T any] struct {
	info *AttributeInfo
	err  error
}

// Info returns the declared attribute, or nil if the declaration is invalid.
func (d AttributeDef[T]) Info() *AttributeInfo { return d.info }

// Err returns the declaration error, if any.
func (d AttributeDef[T]) Err() error { return d.err }

func modeOf(mode []AttributeMode) AttributeMode {
	if len(mode) == 0 {
		return ModeDefault
	}
	var m AttributeMode
	for _, f := range mode {
		m |= f
	}
	return m
}

// OffsetAttribute declares an attribute stored at a fixed byte offset in
// T, usually obtained with unsafe.Offsetof:
//
//	objectcore.OffsetAttribute[Vehicle]("Speed", unsafe.Offsetof(Vehicle{}.Speed), float32(0))
//
// The offset must address a field of type U.
func OffsetAttribute[T any, U variant.Value](name string, offset uintptr, defaultValue U, mode ...AttributeMode) AttributeDef[T] {
	owner := reflect.TypeFor[T]()
	if !fieldAt(owner, offset, reflect.TypeFor[U]()) {
		return AttributeDef[T]{err: fmt.Errorf("attribute %q on %s: %w (offset %d, type %s)", name, owner, ErrOffsetInvalid, offset, reflect.TypeFor[U]())}
	}
	return AttributeDef[T]{info: &AttributeInfo{
		name:         name,
		kind:         variant.KindOf[U](),
		offset:       offset,
		offsetBased:  true,
		accessor:     offsetAccessor[U]{owner: owner, offset: offset},
		defaultValue: variant.New(defaultValue),
		mode:         modeOf(mode),
	}}
}

// AccessorAttribute declares an attribute read and written by value:
//
//	objectcore.AccessorAttribute("Gear", (*Car).Gear, (*Car).SetGear, 1)
//
// A nil setter makes the attribute read-only.
func AccessorAttribute[T any, U variant.Value](name string, getter func(*T) U, setter func(*T, U), defaultValue U, mode ...AttributeMode) AttributeDef[T] {
	return accessorDef[T, U](name, valueAccessor[T, U]{get: getter, set: setter}, getter == nil, defaultValue, mode)
}

// MixedAttribute declares an attribute with a value getter and a setter
// that takes a pointer to the new value.
func MixedAttribute[T any, U variant.Value](name string, getter func(*T) U, setter func(*T, *U), defaultValue U, mode ...AttributeMode) AttributeDef[T] {
	return accessorDef[T, U](name, mixedAccessor[T, U]{get: getter, set: setter}, getter == nil, defaultValue, mode)
}

// RefAttribute declares an attribute whose getter returns a pointer into
// the instance and whose setter takes a pointer to the new value.
func RefAttribute[T any, U variant.Value](name string, getter func(*T) *U, setter func(*T, *U), defaultValue U, mode ...AttributeMode) AttributeDef[T] {
	return accessorDef[T, U](name, refAccessor[T, U]{get: getter, set: setter}, getter == nil, defaultValue, mode)
}

func accessorDef[T any, U variant.Value](name string, accessor AttributeAccessor, noGetter bool, defaultValue U, mode []AttributeMode) AttributeDef[T] {
	if noGetter {
		return AttributeDef[T]{err: fmt.Errorf("attribute %q on %s: getter is nil", name, reflect.TypeFor[T]())}
	}
	return AttributeDef[T]{info: NewAttributeInfo(name, variant.KindOf[U](), accessor, variant.New(defaultValue), modeOf(mode))}
}
