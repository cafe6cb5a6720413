package objectcore

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/GoCodeAlone/objectcore/strhash"
)

// TypeInfo describes one registered type: its identity, its bases, the
// interfaces it declares and its attributes and properties.
//
// A TypeInfo is created once per Context on first access and closed at the
// end of the type's registration. After Close every structural mutation is
// dropped with a warning, and the descriptor may be read from any number
// of goroutines without locking.
type TypeInfo struct {
	name   string
	id     strhash.Hash
	goType reflect.Type
	logger Logger

	bases      []*TypeInfo
	interfaces []*InterfaceInfo
	attributes []*AttributeInfo

	typeProperties      []Property
	attributeProperties map[string][]Property

	closed bool

	// onLateMutation is invoked after a dropped mutation has been logged.
	onLateMutation func(ti *TypeInfo, op string)
}

// NewTypeInfo creates an open descriptor. goType may be nil for types
// that have no Go representation.
func NewTypeInfo(name string, goType reflect.Type, logger Logger) *TypeInfo {
	if logger == nil {
		logger = nopLogger{}
	}
	return &TypeInfo{
		name:                name,
		id:                  strhash.Intern(name),
		goType:              goType,
		logger:              logger,
		attributeProperties: make(map[string][]Property),
	}
}

// Name returns the human readable type name.
func (ti *TypeInfo) Name() string { return ti.name }

// ID returns the stable type identifier derived from the name.
func (ti *TypeInfo) ID() strhash.Hash { return ti.id }

// GoType returns the Go struct type this descriptor was created for.
func (ti *TypeInfo) GoType() reflect.Type { return ti.goType }

// IsClosed reports whether registration has finished.
func (ti *TypeInfo) IsClosed() bool { return ti.closed }

// Close ends registration. It is idempotent and cannot be undone.
func (ti *TypeInfo) Close() { ti.closed = true }

func (ti *TypeInfo) rejectIfClosed(op string) bool {
	if !ti.closed {
		return false
	}
	ti.logger.Warn("Late mutation dropped", "type", ti.name, "op", op)
	if ti.onLateMutation != nil {
		ti.onLateMutation(ti, op)
	}
	return true
}

// AddBase records base as a base type. It reports whether the base list
// changed: false when closed, when base is already present, or when base is
// this type or one of its descendants.
func (ti *TypeInfo) AddBase(base *TypeInfo) bool {
	if base == nil || ti.rejectIfClosed("AddBase") {
		return false
	}
	if slices.Contains(ti.bases, base) {
		return false
	}
	if base == ti || base.IsTypeOf(ti.id) {
		ti.logger.Warn("Cyclic base dropped", "type", ti.name, "base", base.name)
		return false
	}
	ti.bases = append(ti.bases, base)
	return true
}

// AddInterface records iface as implemented. Same rules as AddBase.
func (ti *TypeInfo) AddInterface(iface *InterfaceInfo) bool {
	if iface == nil || ti.rejectIfClosed("AddInterface") {
		return false
	}
	if slices.ContainsFunc(ti.interfaces, func(i *InterfaceInfo) bool { return i.id == iface.id }) {
		return false
	}
	ti.interfaces = append(ti.interfaces, iface)
	return true
}

// AddProperty attaches prop to the type. A property whose kind is already
// attached to the type is ignored.
func (ti *TypeInfo) AddProperty(prop Property) bool {
	if prop == nil || ti.rejectIfClosed("AddProperty") {
		return false
	}
	if hasKind(ti.typeProperties, prop.PropertyKind()) {
		return false
	}
	ti.typeProperties = append(ti.typeProperties, prop)
	return true
}

// AddAttributeProperty attaches prop to the named attribute. The attribute
// must already be registered on this type.
func (ti *TypeInfo) AddAttributeProperty(attribute string, prop Property) bool {
	if prop == nil || ti.rejectIfClosed("AddAttributeProperty") {
		return false
	}
	if ti.Attribute(attribute) == nil {
		ti.logger.Warn("Property for unknown attribute ignored", "type", ti.name, "attribute", attribute, "property", prop.PropertyKind())
		return false
	}
	if hasKind(ti.attributeProperties[attribute], prop.PropertyKind()) {
		return false
	}
	ti.attributeProperties[attribute] = append(ti.attributeProperties[attribute], prop)
	return true
}

func hasKind(props []Property, kind PropertyKind) bool {
	return slices.ContainsFunc(props, func(p Property) bool { return p.PropertyKind() == kind })
}

// Bases returns the direct base types in registration order.
func (ti *TypeInfo) Bases() []*TypeInfo { return slices.Clone(ti.bases) }

// BaseCount returns the number of direct bases.
func (ti *TypeInfo) BaseCount() int { return len(ti.bases) }

// Interfaces returns the interfaces declared directly on this type.
func (ti *TypeInfo) Interfaces() []*InterfaceInfo { return slices.Clone(ti.interfaces) }

// Properties returns the type-level properties.
func (ti *TypeInfo) Properties() []Property { return slices.Clone(ti.typeProperties) }

// AttributeProperties returns the properties attached to one attribute.
func (ti *TypeInfo) AttributeProperties(attribute string) []Property {
	return slices.Clone(ti.attributeProperties[attribute])
}

// FindProperty returns the first type-level property of the given kind.
func (ti *TypeInfo) FindProperty(kind PropertyKind) (Property, bool) {
	for _, p := range ti.typeProperties {
		if p.PropertyKind() == kind {
			return p, true
		}
	}
	return nil, false
}

// FindAttributesWithProperty returns, in attribute order, every attribute
// carrying a property of the given kind.
func (ti *TypeInfo) FindAttributesWithProperty(kind PropertyKind) []*AttributeInfo {
	var out []*AttributeInfo
	for _, a := range ti.attributes {
		if hasKind(ti.attributeProperties[a.name], kind) {
			out = append(out, a)
		}
	}
	return out
}

// IsTypeOf reports whether this type is id or derives from it through any
// chain of bases.
func (ti *TypeInfo) IsTypeOf(id strhash.Hash) bool {
	if ti.id == id {
		return true
	}
	for _, b := range ti.bases {
		if b.IsTypeOf(id) {
			return true
		}
	}
	return false
}

// IsTypeOfInfo is IsTypeOf for a descriptor.
func (ti *TypeInfo) IsTypeOfInfo(other *TypeInfo) bool {
	return other != nil && ti.IsTypeOf(other.id)
}

// Implements reports whether this type or one of its bases declares the
// interface id.
func (ti *TypeInfo) Implements(id strhash.Hash) bool {
	for _, i := range ti.interfaces {
		if i.id == id {
			return true
		}
	}
	for _, b := range ti.bases {
		if b.Implements(id) {
			return true
		}
	}
	return false
}

// Attributes returns the attributes in registration order.
func (ti *TypeInfo) Attributes() []*AttributeInfo { return slices.Clone(ti.attributes) }

// AttributeCount returns the number of attributes.
func (ti *TypeInfo) AttributeCount() int { return len(ti.attributes) }

// Attribute returns the named attribute or nil.
func (ti *TypeInfo) Attribute(name string) *AttributeInfo {
	if i := ti.attributeIndex(name); i >= 0 {
		return ti.attributes[i]
	}
	return nil
}

func (ti *TypeInfo) attributeIndex(name string) int {
	return slices.IndexFunc(ti.attributes, func(a *AttributeInfo) bool { return a.name == name })
}

func (ti *TypeInfo) addAttribute(attr *AttributeInfo) error {
	if ti.rejectIfClosed("RegisterAttribute") {
		return ErrTypeClosed
	}
	// Redeclaring a name, typically one copied from a base, replaces it in
	// place so the serialization order stays stable.
	if i := ti.attributeIndex(attr.name); i >= 0 {
		ti.attributes[i] = attr
		delete(ti.attributeProperties, attr.name)
		return nil
	}
	ti.attributes = append(ti.attributes, attr)
	return nil
}

func (ti *TypeInfo) removeAttribute(name string) error {
	if ti.rejectIfClosed("RemoveAttribute") {
		return ErrTypeClosed
	}
	i := ti.attributeIndex(name)
	if i < 0 {
		return ErrAttributeNotFound
	}
	ti.attributes = slices.Delete(ti.attributes, i, i+1)
	delete(ti.attributeProperties, name)
	return nil
}

func (ti *TypeInfo) replaceAttribute(attr *AttributeInfo) error {
	if ti.rejectIfClosed("UpdateAttributeDefaultValue") {
		return ErrTypeClosed
	}
	i := ti.attributeIndex(attr.name)
	if i < 0 {
		return ErrAttributeNotFound
	}
	ti.attributes[i] = attr
	return nil
}

func (ti *TypeInfo) String() string { return ti.name }

// InterfaceInfo describes an interface a registered type can declare
// through ClassBuilder.Implements. It has no bases and no attributes.
type InterfaceInfo struct {
	name   string
	id     strhash.Hash
	goType reflect.Type
}

// NewInterface describes the Go interface I. It panics when I is not an
// interface type, so misuse surfaces when the declaring package is
// initialised:
//
//	var Drivable = objectcore.NewInterface[DrivableAPI]()
func NewInterface[I any]() *InterfaceInfo {
	t := reflect.TypeFor[I]()
	if t.Kind() != reflect.Interface {
		panic(fmt.Errorf("%w: %s", ErrNotInterface, t))
	}
	return &InterfaceInfo{name: t.Name(), id: strhash.Intern(qualifiedName(t)), goType: t}
}

// qualifiedName keys interfaces by package path so that equally named
// interfaces from different packages, or a class sharing the name, stay
// distinct.
func qualifiedName(t reflect.Type) string {
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Name returns the interface name.
func (i *InterfaceInfo) Name() string { return i.name }

// ID returns the interface identifier.
func (i *InterfaceInfo) ID() strhash.Hash { return i.id }

// GoType returns the described Go interface type.
func (i *InterfaceInfo) GoType() reflect.Type { return i.goType }

func (i *InterfaceInfo) String() string { return i.name }
