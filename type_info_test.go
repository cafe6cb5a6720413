package objectcore

import (
	"compress/flate"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/objectcore/strhash"
	"github.com/GoCodeAlone/objectcore/variant"
)

func TestTypeInfo_IdentityIsDerivedFromName(t *testing.T) {
	a := NewTypeInfo("Vehicle", nil, nil)
	b := NewTypeInfo("Vehicle", nil, nil)

	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, strhash.New("Vehicle"), a.ID())
	assert.NotEqual(t, a.ID(), NewTypeInfo("Car", nil, nil).ID())
	assert.Equal(t, "Vehicle", a.ID().String())
}

func TestTypeInfo_AddBaseIsASet(t *testing.T) {
	base := NewTypeInfo("Base", nil, nil)
	other := NewTypeInfo("Other", nil, nil)
	ti := NewTypeInfo("Derived", nil, nil)

	assert.True(t, ti.AddBase(base))
	assert.False(t, ti.AddBase(base), "duplicate base must be a no-op")
	assert.True(t, ti.AddBase(other))
	assert.False(t, ti.AddBase(nil))

	assert.Equal(t, 2, ti.BaseCount())
	assert.Equal(t, []*TypeInfo{base, other}, ti.Bases())
}

func TestTypeInfo_AddBaseRejectsCycles(t *testing.T) {
	logger := newQuietMockLogger()
	logger.On("Warn", "Cyclic base dropped", mock.Anything).Times(3)

	a := NewTypeInfo("A", nil, logger)
	b := NewTypeInfo("B", nil, logger)
	c := NewTypeInfo("C", nil, logger)
	require.True(t, b.AddBase(a))
	require.True(t, c.AddBase(b))

	assert.False(t, a.AddBase(a), "a type cannot be its own base")
	assert.False(t, a.AddBase(c), "a descendant cannot become a base")
	assert.False(t, b.AddBase(c))
	assert.Zero(t, a.BaseCount())
	assert.Equal(t, 1, b.BaseCount())

	assert.False(t, a.IsTypeOf(strhash.New("Nope")))
	assert.False(t, c.Implements(strhash.New("Nope")))
	assert.True(t, c.IsTypeOfInfo(a))
	logger.AssertExpectations(t)
}

func TestTypeInfo_CloseIsIdempotentAndFinal(t *testing.T) {
	logger := newQuietMockLogger()
	logger.On("Warn", "Late mutation dropped", mock.Anything).Times(4)

	base := NewTypeInfo("Base", nil, nil)
	ti := NewTypeInfo("Derived", nil, logger)
	ti.AddBase(base)

	ti.Close()
	ti.Close()
	assert.True(t, ti.IsClosed())

	assert.False(t, ti.AddBase(NewTypeInfo("Late", nil, nil)))
	assert.False(t, ti.AddInterface(honkerInterface))
	assert.False(t, ti.AddProperty(EasyString("late")))
	assert.ErrorIs(t, ti.addAttribute(NewAttributeInfo("Late", 0, nil, variant.Empty, ModeDefault)), ErrTypeClosed)

	assert.Equal(t, 1, ti.BaseCount())
	assert.Empty(t, ti.Interfaces())
	assert.Empty(t, ti.Properties())
	assert.Zero(t, ti.AttributeCount())
	logger.AssertExpectations(t)
}

func TestTypeInfo_LateMutationHook(t *testing.T) {
	var ops []string
	ti := NewTypeInfo("Hooked", nil, nil)
	ti.onLateMutation = func(_ *TypeInfo, op string) { ops = append(ops, op) }

	ti.AddBase(NewTypeInfo("Early", nil, nil))
	ti.Close()
	ti.AddBase(NewTypeInfo("Late", nil, nil))
	ti.AddProperty(Tooltip("late"))

	assert.Equal(t, []string{"AddBase", "AddProperty"}, ops)
}

func TestTypeInfo_Interfaces(t *testing.T) {
	base := NewTypeInfo("Base", nil, nil)
	ti := NewTypeInfo("Derived", nil, nil)
	ti.AddBase(base)

	assert.True(t, base.AddInterface(honkerInterface))
	assert.False(t, base.AddInterface(honkerInterface))

	assert.True(t, base.Implements(honkerInterface.ID()))
	assert.True(t, ti.Implements(honkerInterface.ID()), "interfaces are inherited through bases")
	assert.Empty(t, ti.Interfaces())
	assert.Equal(t, "Honker", honkerInterface.Name())
}

func TestTypeInfo_IsTypeOfWalksAncestors(t *testing.T) {
	a := NewTypeInfo("A", nil, nil)
	b := NewTypeInfo("B", nil, nil)
	c := NewTypeInfo("C", nil, nil)
	mixin := NewTypeInfo("Mixin", nil, nil)
	b.AddBase(a)
	c.AddBase(b)
	c.AddBase(mixin)

	assert.True(t, c.IsTypeOf(c.ID()))
	assert.True(t, c.IsTypeOf(a.ID()))
	assert.True(t, c.IsTypeOfInfo(mixin))
	assert.False(t, a.IsTypeOf(c.ID()))
	assert.False(t, b.IsTypeOfInfo(mixin))
	assert.False(t, c.IsTypeOfInfo(nil))
}

func TestTypeInfo_Properties(t *testing.T) {
	ti := NewTypeInfo("Props", nil, nil)
	require.NoError(t, ti.addAttribute(NewAttributeInfo("A", 0, nil, variant.Empty, ModeDefault)))
	require.NoError(t, ti.addAttribute(NewAttributeInfo("B", 0, nil, variant.Empty, ModeDefault)))
	require.NoError(t, ti.addAttribute(NewAttributeInfo("C", 0, nil, variant.Empty, ModeDefault)))

	assert.True(t, ti.AddProperty(EasyString("props")))
	assert.False(t, ti.AddProperty(EasyString("again")), "one property per kind")
	assert.True(t, ti.AddProperty(Category("Misc")))

	p, ok := ti.FindProperty(PropertyEasyString)
	require.True(t, ok)
	assert.Equal(t, "props", p.(*StringProperty).Value())
	_, ok = ti.FindProperty(PropertyRange)
	assert.False(t, ok)

	assert.True(t, ti.AddAttributeProperty("C", Tooltip("c")))
	assert.True(t, ti.AddAttributeProperty("A", Tooltip("a")))
	assert.False(t, ti.AddAttributeProperty("A", Tooltip("a2")))
	assert.True(t, ti.AddAttributeProperty("A", Range(0, 1)))
	assert.False(t, ti.AddAttributeProperty("Missing", Tooltip("x")))

	found := ti.FindAttributesWithProperty(PropertyTooltip)
	require.Len(t, found, 2)
	assert.Equal(t, "A", found[0].Name(), "results follow attribute order")
	assert.Equal(t, "C", found[1].Name())
	assert.Len(t, ti.AttributeProperties("A"), 2)
	assert.Empty(t, ti.FindAttributesWithProperty(PropertyCategory))

	r, ok := AttributePropertyOf[*RangeProperty](ti, "A")
	require.True(t, ok)
	assert.Equal(t, 1.0, r.Max)
	c, ok := PropertyOf[*StringProperty](ti)
	require.True(t, ok)
	assert.Equal(t, PropertyEasyString, c.PropertyKind())
}

func TestTypeInfo_AttributeOrderAndRemoval(t *testing.T) {
	ti := NewTypeInfo("Ordered", nil, nil)
	for _, name := range []string{"Z", "A", "M"} {
		require.NoError(t, ti.addAttribute(NewAttributeInfo(name, 0, nil, variant.Empty, ModeDefault)))
	}
	ti.AddAttributeProperty("A", Tooltip("a"))

	names := func() []string {
		var out []string
		for _, a := range ti.Attributes() {
			out = append(out, a.Name())
		}
		return out
	}
	assert.Equal(t, []string{"Z", "A", "M"}, names())

	require.NoError(t, ti.removeAttribute("A"))
	assert.Equal(t, []string{"Z", "M"}, names())
	assert.Empty(t, ti.AttributeProperties("A"))
	assert.ErrorIs(t, ti.removeAttribute("A"), ErrAttributeNotFound)

	require.NoError(t, ti.addAttribute(NewAttributeInfo("Z", 0, nil, variant.Empty, ModeNet)))
	assert.Equal(t, []string{"Z", "M"}, names(), "redeclaring keeps the position")
	assert.Equal(t, ModeNet, ti.Attribute("Z").Mode())
}

func TestNewInterface_IDIsPackageQualified(t *testing.T) {
	assert.Equal(t, strhash.New("github.com/GoCodeAlone/objectcore.Honker"), honkerInterface.ID())
	assert.NotEqual(t, NewTypeInfo("Honker", nil, nil).ID(), honkerInterface.ID(), "classes and interfaces do not share ids")

	reader := NewInterface[io.Reader]()
	assert.Equal(t, "Reader", reader.Name())
	assert.Equal(t, strhash.New("io.Reader"), reader.ID())
	assert.NotEqual(t, reader.ID(), NewInterface[flate.Reader]().ID(), "same name, different package")
}

func TestNewInterface_RejectsNonInterfaces(t *testing.T) {
	assert.Panics(t, func() { NewInterface[Vehicle]() })
	assert.NotPanics(t, func() { NewInterface[Honker]() })
}
