package objectcore

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/GoCodeAlone/objectcore/strhash"
	"github.com/GoCodeAlone/objectcore/variant"
)

// Object is implemented by every type taking part in reflection and event
// messaging. It can only be satisfied by embedding ObjectBase:
//
//	type Vehicle struct {
//		objectcore.ObjectBase
//		Speed float32
//	}
type Object interface {
	// TypeInfo returns the descriptor of the concrete type, or nil before
	// the object has been initialised.
	TypeInfo() *TypeInfo

	objectBase() *ObjectBase
}

// ObjectBase carries the per-instance state shared by all objects: the
// owning Context, the concrete type descriptor and the event handlers the
// object has subscribed.
type ObjectBase struct {
	context  *Context
	self     Object
	typeInfo *TypeInfo

	// handlers is the head of the receiver's singly linked handler list.
	handlers  *EventHandler
	destroyed bool
}

func (o *ObjectBase) objectBase() *ObjectBase { return o }

// BaseOf returns the ObjectBase embedded in obj.
func BaseOf(obj Object) *ObjectBase {
	if obj == nil {
		return nil
	}
	return obj.objectBase()
}

func (o *ObjectBase) init(ctx *Context, self Object, ti *TypeInfo) {
	o.context = ctx
	o.self = self
	o.typeInfo = ti
	o.destroyed = false
}

// TypeInfo returns the descriptor of the concrete type.
func (o *ObjectBase) TypeInfo() *TypeInfo { return o.typeInfo }

// Type returns the identifier of the concrete type.
func (o *ObjectBase) Type() strhash.Hash {
	if o.typeInfo == nil {
		return strhash.Zero
	}
	return o.typeInfo.ID()
}

// TypeName returns the name of the concrete type.
func (o *ObjectBase) TypeName() string {
	if o.typeInfo == nil {
		return ""
	}
	return o.typeInfo.Name()
}

// Context returns the Context the object was initialised with.
func (o *ObjectBase) Context() *Context { return o.context }

// Self returns the outer object that embeds this ObjectBase.
func (o *ObjectBase) Self() Object { return o.self }

// IsDestroyed reports whether Destroy has been called.
func (o *ObjectBase) IsDestroyed() bool { return o.destroyed }

// IsInstanceOf reports whether the object's type is id or derives from it.
func (o *ObjectBase) IsInstanceOf(id strhash.Hash) bool {
	return o.typeInfo != nil && o.typeInfo.IsTypeOf(id)
}

// Category returns the factory category of the object's type, or "" when
// the type has no factory or was registered without one.
func (o *ObjectBase) Category() string {
	if o.context == nil || o.typeInfo == nil {
		return ""
	}
	if f := o.context.Factory(o.typeInfo.ID()); f != nil {
		return f.Category()
	}
	return ""
}

// Subsystem returns the subsystem registered under id in the object's
// Context.
func (o *ObjectBase) Subsystem(id strhash.Hash) Object {
	if o.context == nil {
		return nil
	}
	return o.context.Subsystem(id)
}

// GetAttribute reads a registered attribute of this object.
func (o *ObjectBase) GetAttribute(name string) (variant.Variant, error) {
	attr, err := o.attribute(name)
	if err != nil {
		return variant.Empty, err
	}
	return attr.Get(o.self)
}

// SetAttribute writes a registered attribute of this object.
func (o *ObjectBase) SetAttribute(name string, value variant.Variant) error {
	attr, err := o.attribute(name)
	if err != nil {
		return err
	}
	if err := attr.Set(o.self, value); err != nil {
		if errors.Is(err, ErrKindMismatch) {
			o.context.logger.Error("Attribute kind mismatch", "type", o.typeInfo.Name(), "attribute", name, "want", attr.Kind(), "got", value.Kind())
		}
		return err
	}
	return nil
}

// ResetToDefault writes every writable attribute's default value.
func (o *ObjectBase) ResetToDefault() error {
	if o.typeInfo == nil {
		return ErrObjectNotInitialised
	}
	var errs []error
	for _, attr := range o.typeInfo.attributes {
		if err := attr.Set(o.self, attr.DefaultValue()); err != nil && !errors.Is(err, ErrAttributeReadOnly) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *ObjectBase) attribute(name string) (*AttributeInfo, error) {
	if o.typeInfo == nil || o.self == nil {
		return nil, ErrObjectNotInitialised
	}
	attr := o.typeInfo.Attribute(name)
	if attr == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrAttributeNotFound, o.typeInfo.Name(), name)
	}
	return attr, nil
}

// Destroy detaches the object from the event system. Its own handlers are
// removed, and every handler another object subscribed to events from this
// object is removed as well, so no handler naming it can run again.
// A destroyed object sends no events. Destroy is idempotent.
func (o *ObjectBase) Destroy() {
	if o.destroyed || o.context == nil {
		o.destroyed = true
		return
	}
	o.UnsubscribeFromAllEvents()
	o.context.removeEventSender(o)
	o.destroyed = true
	o.context.objectDestroyed(o)
}

// IsInstanceOf reports whether obj is of type id or derives from it.
func IsInstanceOf(obj Object, id strhash.Hash) bool {
	if obj == nil {
		return false
	}
	return obj.objectBase().IsInstanceOf(id)
}

// InstanceOf returns obj viewed as *T. It succeeds when obj is a *T or when
// obj's concrete type embeds T, directly or through other embedded structs.
func InstanceOf[T any](obj Object) (*T, bool) {
	if obj == nil {
		return nil, false
	}
	if t, ok := any(obj).(*T); ok {
		return t, true
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, false
	}
	index, _, _, found := embedPath(rv.Type().Elem(), reflect.TypeFor[T]())
	if !found {
		return nil, false
	}
	base, err := embeddedAccessor{derived: rv.Type().Elem(), index: index}.upcast(obj)
	if err != nil {
		return nil, false
	}
	t, ok := base.(*T)
	return t, ok
}
