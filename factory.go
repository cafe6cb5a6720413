package objectcore

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/GoCodeAlone/objectcore/strhash"
)

// ObjectFactory creates instances of one registered type.
type ObjectFactory struct {
	typeInfo *TypeInfo
	category string
	create   func() Object
	context  *Context

	// construct runs after the new object has been initialised and reset
	// to its attribute defaults.
	construct func(Object)
}

// NewObjectFactory returns a factory for ti. create must return a new,
// uninitialised object of ti's Go type.
func NewObjectFactory(ti *TypeInfo, category string, create func() Object) *ObjectFactory {
	return &ObjectFactory{typeInfo: ti, category: category, create: create}
}

func (f *ObjectFactory) TypeInfo() *TypeInfo { return f.typeInfo }
func (f *ObjectFactory) Type() strhash.Hash  { return f.typeInfo.ID() }
func (f *ObjectFactory) TypeName() string    { return f.typeInfo.Name() }
func (f *ObjectFactory) Category() string    { return f.category }
func (f *ObjectFactory) Context() *Context   { return f.context }

// CreateObject returns a new instance bound to the factory's Context with
// every writable attribute at its default value.
func (f *ObjectFactory) CreateObject() Object {
	obj := f.create()
	b := obj.objectBase()
	b.init(f.context, obj, f.typeInfo)
	if err := b.ResetToDefault(); err != nil {
		f.context.logger.Error("Applying attribute defaults failed", "type", f.typeInfo.name, "error", err)
	}
	if f.construct != nil {
		f.construct(obj)
	}
	f.context.objectCreated(b)
	return obj
}

// RegisterFactory makes f the factory for its type. A later registration
// for the same type replaces the earlier one.
func (c *Context) RegisterFactory(f *ObjectFactory) error {
	if f == nil || f.create == nil || f.typeInfo == nil {
		return ErrFactoryNil
	}
	f.context = c
	c.mu.Lock()
	_, replaced := c.factories[f.Type()]
	c.factories[f.Type()] = f
	c.mu.Unlock()
	if replaced {
		c.logger.Debug("Factory replaced", "type", f.TypeName())
	}
	c.emit(EventTypeFactoryRegistered, map[string]any{"type": f.TypeName(), "category": f.category})
	return nil
}

// Factory returns the factory registered for id, or nil.
func (c *Context) Factory(id strhash.Hash) *ObjectFactory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.factories[id]
}

// Factories returns every registered factory ordered by type name.
func (c *Context) Factories() []*ObjectFactory {
	c.mu.RLock()
	out := make([]*ObjectFactory, 0, len(c.factories))
	for _, f := range c.factories {
		out = append(out, f)
	}
	c.mu.RUnlock()
	slices.SortFunc(out, func(a, b *ObjectFactory) int { return strings.Compare(a.TypeName(), b.TypeName()) })
	return out
}

// ObjectCategories maps each category to the names of the types whose
// factories were registered in it, ordered by name.
func (c *Context) ObjectCategories() map[string][]string {
	out := make(map[string][]string)
	for _, f := range c.Factories() {
		if f.category != "" {
			out[f.category] = append(out[f.category], f.TypeName())
		}
	}
	return out
}

// CreateObject creates an object of the type registered under id. It fails
// with ErrFactoryNotRegistered when no factory exists; callers such as
// loaders are expected to skip the object and carry on.
func (c *Context) CreateObject(id strhash.Hash) (Object, error) {
	f := c.Factory(id)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotRegistered, id)
	}
	return f.CreateObject(), nil
}

// RegisterFactory registers a factory for T, whose descriptor is created if
// needed.
func RegisterFactory[T any, PT interface {
	*T
	Object
}](c *Context, category string) (*ObjectFactory, error) {
	ti, err := c.ensureType(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	f := NewObjectFactory(ti, category, func() Object { return PT(new(T)) })
	if err := c.RegisterFactory(f); err != nil {
		return nil, err
	}
	return f, nil
}

// New creates a T through its registered factory.
func New[T any](c *Context) (*T, error) {
	ti := TypeOf[T](c)
	if ti == nil {
		return nil, ErrTypeNotFound
	}
	obj, err := c.CreateObject(ti.ID())
	if err != nil {
		return nil, err
	}
	t, ok := any(obj).(*T)
	if !ok {
		return nil, fmt.Errorf("%w: factory for %s returned %T", ErrInstanceMismatch, ti.Name(), obj)
	}
	return t, nil
}
