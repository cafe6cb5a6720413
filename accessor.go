package objectcore

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/GoCodeAlone/objectcore/variant"
)

// AttributeAccessor reads and writes one attribute of an instance. The
// instance is always a pointer to the attribute's owner type. Callers never
// need to know whether the value lives at a fixed offset or behind a pair
// of accessor functions.
type AttributeAccessor interface {
	Get(instance any) (variant.Variant, error)
	Set(instance any, value variant.Variant) error
}

// rebaser is implemented by accessors that can address the same field
// from a type embedding their owner by value.
type rebaser interface {
	rebase(owner reflect.Type, delta uintptr) AttributeAccessor
}

type offsetAccessor[U variant.Value] struct {
	owner  reflect.Type
	offset uintptr
}

func (a offsetAccessor[U]) field(instance any) (*U, error) {
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Pointer || rv.Type().Elem() != a.owner || rv.IsNil() {
		return nil, fmt.Errorf("%w: want *%s, got %T", ErrInstanceMismatch, a.owner, instance)
	}
	return (*U)(unsafe.Add(rv.UnsafePointer(), a.offset)), nil
}

func (a offsetAccessor[U]) Get(instance any) (variant.Variant, error) {
	p, err := a.field(instance)
	if err != nil {
		return variant.Empty, err
	}
	return variant.New(*p), nil
}

func (a offsetAccessor[U]) Set(instance any, value variant.Variant) error {
	u, ok := variant.Get[U](value)
	if !ok {
		return fmt.Errorf("%w: want %s, got %s", ErrKindMismatch, variant.KindOf[U](), value.Kind())
	}
	p, err := a.field(instance)
	if err != nil {
		return err
	}
	*p = u
	return nil
}

func (a offsetAccessor[U]) rebase(owner reflect.Type, delta uintptr) AttributeAccessor {
	return offsetAccessor[U]{owner: owner, offset: a.offset + delta}
}

// valueAccessor pairs a value-returning getter with a value-taking setter.
type valueAccessor[T any, U variant.Value] struct {
	get func(*T) U
	set func(*T, U)
}

func (a valueAccessor[T, U]) Get(instance any) (variant.Variant, error) {
	obj, err := ownerOf[T](instance)
	if err != nil {
		return variant.Empty, err
	}
	return variant.New(a.get(obj)), nil
}

func (a valueAccessor[T, U]) Set(instance any, value variant.Variant) error {
	if a.set == nil {
		return ErrAttributeReadOnly
	}
	obj, u, err := unbox[T, U](instance, value)
	if err != nil {
		return err
	}
	a.set(obj, u)
	return nil
}

// mixedAccessor pairs a value-returning getter with a setter taking a
// pointer to the new value.
type mixedAccessor[T any, U variant.Value] struct {
	get func(*T) U
	set func(*T, *U)
}

func (a mixedAccessor[T, U]) Get(instance any) (variant.Variant, error) {
	obj, err := ownerOf[T](instance)
	if err != nil {
		return variant.Empty, err
	}
	return variant.New(a.get(obj)), nil
}

func (a mixedAccessor[T, U]) Set(instance any, value variant.Variant) error {
	if a.set == nil {
		return ErrAttributeReadOnly
	}
	obj, u, err := unbox[T, U](instance, value)
	if err != nil {
		return err
	}
	a.set(obj, &u)
	return nil
}

// refAccessor pairs a getter returning a pointer into the instance with a
// setter taking a pointer to the new value.
type refAccessor[T any, U variant.Value] struct {
	get func(*T) *U
	set func(*T, *U)
}

func (a refAccessor[T, U]) Get(instance any) (variant.Variant, error) {
	obj, err := ownerOf[T](instance)
	if err != nil {
		return variant.Empty, err
	}
	p := a.get(obj)
	if p == nil {
		return variant.Zero(variant.KindOf[U]()), nil
	}
	return variant.New(*p), nil
}

func (a refAccessor[T, U]) Set(instance any, value variant.Variant) error {
	if a.set == nil {
		return ErrAttributeReadOnly
	}
	obj, u, err := unbox[T, U](instance, value)
	if err != nil {
		return err
	}
	a.set(obj, &u)
	return nil
}

func ownerOf[T any](instance any) (*T, error) {
	obj, ok := instance.(*T)
	if !ok || obj == nil {
		return nil, fmt.Errorf("%w: want %s, got %T", ErrInstanceMismatch, reflect.TypeFor[*T](), instance)
	}
	return obj, nil
}

func unbox[T any, U variant.Value](instance any, value variant.Variant) (*T, U, error) {
	var zero U
	u, ok := variant.Get[U](value)
	if !ok {
		return nil, zero, fmt.Errorf("%w: want %s, got %s", ErrKindMismatch, variant.KindOf[U](), value.Kind())
	}
	obj, err := ownerOf[T](instance)
	if err != nil {
		return nil, zero, err
	}
	return obj, u, nil
}

// embeddedAccessor serves an attribute copied from a base type. It resolves
// the embedded base inside the derived instance and forwards to the base
// accessor.
type embeddedAccessor struct {
	inner   AttributeAccessor
	derived reflect.Type
	index   []int
}

func (a embeddedAccessor) upcast(instance any) (any, error) {
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Pointer || rv.Type().Elem() != a.derived || rv.IsNil() {
		return nil, fmt.Errorf("%w: want *%s, got %T", ErrInstanceMismatch, a.derived, instance)
	}
	f, err := rv.Elem().FieldByIndexErr(a.index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstanceMismatch, err)
	}
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return nil, fmt.Errorf("%w: embedded %s is nil", ErrInstanceMismatch, f.Type())
		}
		return reflect.NewAt(f.Type().Elem(), f.UnsafePointer()).Interface(), nil
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Interface(), nil
}

func (a embeddedAccessor) Get(instance any) (variant.Variant, error) {
	base, err := a.upcast(instance)
	if err != nil {
		return variant.Empty, err
	}
	return a.inner.Get(base)
}

func (a embeddedAccessor) Set(instance any, value variant.Variant) error {
	base, err := a.upcast(instance)
	if err != nil {
		return err
	}
	return a.inner.Set(base, value)
}

// embedPath finds base embedded in derived, directly or through other
// embedded structs. direct is true when no pointer is crossed, in which
// case offset is the byte offset of base inside derived.
func embedPath(derived, base reflect.Type) (index []int, offset uintptr, direct bool, found bool) {
	if derived.Kind() != reflect.Struct {
		return nil, 0, false, false
	}
	for i := 0; i < derived.NumField(); i++ {
		f := derived.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		viaPointer := false
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
			viaPointer = true
		}
		if ft == base {
			return []int{i}, f.Offset, !viaPointer, true
		}
		if ft.Kind() != reflect.Struct {
			continue
		}
		if sub, subOffset, subDirect, ok := embedPath(ft, base); ok {
			return append([]int{i}, sub...), f.Offset + subOffset, subDirect && !viaPointer, true
		}
	}
	return nil, 0, false, false
}

// fieldAt reports whether owner has a field of type want at offset,
// looking through embedded structs.
func fieldAt(owner reflect.Type, offset uintptr, want reflect.Type) bool {
	if owner.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < owner.NumField(); i++ {
		f := owner.Field(i)
		if f.Offset == offset && f.Type == want {
			return true
		}
		if f.Type.Kind() == reflect.Struct && offset >= f.Offset && offset < f.Offset+f.Type.Size() {
			if fieldAt(f.Type, offset-f.Offset, want) {
				return true
			}
		}
	}
	return false
}
