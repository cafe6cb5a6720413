package objectcore

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/GoCodeAlone/objectcore/variant"
)

// ClassBuilder declares the bases, interfaces, factory, attributes and
// properties of one type during its registration. Every method returns the
// builder so declarations can be chained:
//
//	objectcore.RegisterClass(ctx, func(b *objectcore.ClassBuilder[Vehicle, *Vehicle]) {
//		b.Factory().
//			Attribute(objectcore.OffsetAttribute[Vehicle]("Speed", unsafe.Offsetof(Vehicle{}.Speed), float32(0))).
//			With(objectcore.Tooltip("metres per second"))
//	})
//
// Declarations take effect immediately. Invalid declarations are collected
// and returned by RegisterClass.
type ClassBuilder[T any, PT interface {
	*T
	Object
}] struct {
	ctx  *Context
	info *TypeInfo

	// lastAttribute names the attribute With attaches properties to. It is
	// empty until the first Attribute call and after that attribute is
	// removed; lastRemoved records the latter.
	lastAttribute string
	lastRemoved   bool

	construct func(*T)
	errs      []error
}

// TypeInfo returns the descriptor being built.
func (b *ClassBuilder[T, PT]) TypeInfo() *TypeInfo { return b.info }

// Context returns the registry the type is registered in.
func (b *ClassBuilder[T, PT]) Context() *Context { return b.ctx }

// Implements declares that the type implements iface. *T must satisfy the
// Go interface iface describes.
func (b *ClassBuilder[T, PT]) Implements(iface *InterfaceInfo) *ClassBuilder[T, PT] {
	if iface == nil {
		b.errs = append(b.errs, fmt.Errorf("%s: %w: nil interface", b.info.name, ErrInterfaceContract))
		return b
	}
	if !reflect.TypeFor[*T]().Implements(iface.goType) {
		b.errs = append(b.errs, fmt.Errorf("%s: %w: %s", b.info.name, ErrInterfaceContract, iface.name))
		return b
	}
	b.info.AddInterface(iface)
	return b
}

// Base records base as a base type. With copyAttributes the attributes
// base has so far are copied onto this type first; T must embed base's Go
// type for the copies to reach it.
func (b *ClassBuilder[T, PT]) Base(base *TypeInfo, copyAttributes bool) *ClassBuilder[T, PT] {
	if base == nil {
		b.errs = append(b.errs, fmt.Errorf("%s: base: %w", b.info.name, ErrTypeNotFound))
		return b
	}
	if copyAttributes {
		if err := b.ctx.CopyBaseAttributes(b.info, base); err != nil {
			b.errs = append(b.errs, fmt.Errorf("%s: %w", b.info.name, err))
		}
	}
	b.info.AddBase(base)
	return b
}

// Factory registers a factory for the type without a category.
func (b *ClassBuilder[T, PT]) Factory() *ClassBuilder[T, PT] {
	return b.FactoryInCategory("")
}

// FactoryInCategory registers a factory for the type, grouped under
// category for editors.
func (b *ClassBuilder[T, PT]) FactoryInCategory(category string) *ClassBuilder[T, PT] {
	f := NewObjectFactory(b.info, category, func() Object { return PT(new(T)) })
	f.construct = func(obj Object) {
		if b.construct != nil {
			b.construct((*T)(obj.(PT)))
		}
	}
	if err := b.ctx.RegisterFactory(f); err != nil {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", b.info.name, err))
	}
	return b
}

// Construct sets a function run on every object the factory creates, after
// attribute defaults have been applied.
func (b *ClassBuilder[T, PT]) Construct(fn func(*T)) *ClassBuilder[T, PT] {
	b.construct = fn
	return b
}

// Attribute registers def and makes it the target of following With calls.
func (b *ClassBuilder[T, PT]) Attribute(def AttributeDef[T]) *ClassBuilder[T, PT] {
	if err := def.Err(); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if err := b.ctx.RegisterAttribute(b.info, def.info); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.lastAttribute = def.info.name
	b.lastRemoved = false
	return b
}

// Remove removes an attribute, usually one copied from a base. Removing a
// name that is not registered does nothing.
func (b *ClassBuilder[T, PT]) Remove(name string) *ClassBuilder[T, PT] {
	if err := b.ctx.RemoveAttribute(b.info, name); err != nil {
		if !errors.Is(err, ErrAttributeNotFound) {
			b.errs = append(b.errs, err)
		}
		b.ctx.logger.Debug("Attribute not removed", "type", b.info.name, "attribute", name, "error", err)
	}
	if b.lastAttribute == name {
		b.lastAttribute = ""
		b.lastRemoved = true
	}
	return b
}

// UpdateDefault replaces the default value of a registered attribute.
func (b *ClassBuilder[T, PT]) UpdateDefault(name string, value variant.Variant) *ClassBuilder[T, PT] {
	if err := b.ctx.UpdateAttributeDefaultValue(b.info, name, value); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// With attaches props to the last registered attribute, or to the type
// when no attribute has been registered yet. Once the last registered
// attribute is removed, props go to the type again until the next Attribute
// call.
func (b *ClassBuilder[T, PT]) With(props ...Property) *ClassBuilder[T, PT] {
	if b.lastRemoved && len(props) > 0 {
		b.ctx.logger.Debug("Properties attached to type after attribute removal", "type", b.info.name, "count", len(props))
	}
	for _, p := range props {
		if b.lastAttribute != "" {
			b.info.AddAttributeProperty(b.lastAttribute, p)
		} else {
			b.info.AddProperty(p)
		}
	}
	return b
}

// applyConfiguredDefaults applies Config.Defaults for this type, in
// attribute name order.
func (b *ClassBuilder[T, PT]) applyConfiguredDefaults() {
	overrides := b.ctx.config.Defaults[b.info.name]
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		attr := b.info.Attribute(name)
		if attr == nil {
			b.errs = append(b.errs, fmt.Errorf("%w: %s.%s: %w", ErrDefaultOverride, b.info.name, name, ErrAttributeNotFound))
			continue
		}
		v, err := variant.FromString(attr.kind, overrides[name])
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("%w: %s.%s: %w", ErrDefaultOverride, b.info.name, name, err))
			continue
		}
		b.UpdateDefault(name, v)
	}
}

// RegisterClass registers T in c: it fetches or creates T's descriptor,
// runs define, applies configured default overrides and closes the
// descriptor. Registering a type whose descriptor is already closed does
// nothing and returns the existing descriptor.
//
// The descriptor is closed even when define made invalid declarations;
// those are returned joined.
func RegisterClass[T any, PT interface {
	*T
	Object
}](c *Context, define func(*ClassBuilder[T, PT])) (*TypeInfo, error) {
	if c == nil {
		c = Default()
	}
	ti, err := c.ensureType(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if ti.IsClosed() {
		c.logger.Debug("Class already registered", "type", ti.name)
		return ti, nil
	}

	b := &ClassBuilder[T, PT]{ctx: c, info: ti}
	if define != nil {
		define(b)
	}
	b.applyConfiguredDefaults()
	ti.Close()

	c.logger.Debug("Class registered", "type", ti.name, "bases", len(ti.bases), "attributes", len(ti.attributes))
	c.typeRegistered(ti)
	return ti, errors.Join(b.errs...)
}

// MustRegisterClass is RegisterClass for package initialisation; it panics
// on any registration error.
func MustRegisterClass[T any, PT interface {
	*T
	Object
}](c *Context, define func(*ClassBuilder[T, PT])) *TypeInfo {
	ti, err := RegisterClass[T, PT](c, define)
	if err != nil {
		panic(err)
	}
	return ti
}
