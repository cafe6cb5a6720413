package objectcore

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/GoCodeAlone/objectcore/strhash"
	"github.com/GoCodeAlone/objectcore/variant"
)

// Context is the registry shared by a set of objects. It owns the type
// descriptors, the object factories, the subsystem singletons and the
// event receiver tables.
//
// Type and factory lookups may be made from any goroutine. Event sending
// and subscription are single-threaded: they must all happen on the
// goroutine that drives the objects of this Context.
type Context struct {
	logger Logger
	config *Config

	mu         sync.RWMutex
	types      map[strhash.Hash]*TypeInfo
	typesByGo  map[reflect.Type]*TypeInfo
	factories  map[strhash.Hash]*ObjectFactory
	subsystems map[strhash.Hash]Object

	// event bus state, owned by the dispatching goroutine
	receivers         map[strhash.Hash]*receiverGroup
	specificReceivers map[*ObjectBase]map[strhash.Hash]*receiverGroup
	senders           []*ObjectBase
	handlers          []*EventHandler
	eventData         []variant.Map
	forwarded         map[strhash.Hash]string

	observers     []*observerRegistration
	observerMutex sync.RWMutex
}

// Option configures a Context.
type Option func(*Context) error

// WithLogger sets the logger used for registration and event diagnostics.
func WithLogger(logger Logger) Option {
	return func(c *Context) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *Config) Option {
	return func(c *Context) error {
		if cfg != nil {
			c.config = cfg
		}
		return nil
	}
}

// WithObserver registers an observer for lifecycle and forwarded events.
func WithObserver(observer Observer, eventTypes ...string) Option {
	return func(c *Context) error {
		return c.RegisterObserver(observer, eventTypes...)
	}
}

// NewContext creates an empty registry.
func NewContext(opts ...Option) (*Context, error) {
	c := &Context{
		logger:            slog.Default(),
		config:            DefaultConfig(),
		types:             make(map[strhash.Hash]*TypeInfo),
		typesByGo:         make(map[reflect.Type]*TypeInfo),
		factories:         make(map[strhash.Hash]*ObjectFactory),
		subsystems:        make(map[strhash.Hash]Object),
		receivers:         make(map[strhash.Hash]*receiverGroup),
		specificReceivers: make(map[*ObjectBase]map[strhash.Hash]*receiverGroup),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.forwarded = make(map[strhash.Hash]string, len(c.config.ForwardEvents))
	for _, name := range c.config.ForwardEvents {
		c.forwarded[strhash.Intern(name)] = name
	}
	return c, nil
}

var (
	defaultContext *Context
	defaultMu      sync.Mutex
)

// Default returns the process-wide Context, creating it on first use.
func Default() *Context {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultContext == nil {
		// NewContext without options cannot fail.
		defaultContext, _ = NewContext()
	}
	return defaultContext
}

// ResetDefault discards the process-wide Context. The next call to Default
// starts from an empty registry. Intended for tests.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultContext = nil
}

// Logger returns the Context logger.
func (c *Context) Logger() Logger { return c.logger }

// Config returns the active configuration.
func (c *Context) Config() *Config { return c.config }

// TypeOf returns the descriptor for T, creating an open one on first
// access. It returns nil when T's name is already used by another Go type.
func TypeOf[T any](c *Context) *TypeInfo {
	ti, err := c.ensureType(reflect.TypeFor[T]())
	if err != nil {
		c.logger.Error("Type lookup failed", "type", reflect.TypeFor[T](), "error", err)
		return nil
	}
	return ti
}

func (c *Context) ensureType(t reflect.Type) (*TypeInfo, error) {
	c.mu.RLock()
	ti := c.typesByGo[t]
	c.mu.RUnlock()
	if ti != nil {
		return ti, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ti := c.typesByGo[t]; ti != nil {
		return ti, nil
	}
	name := t.Name()
	if name == "" {
		return nil, fmt.Errorf("%w: unnamed type %s", ErrTypeNotFound, t)
	}
	id := strhash.New(name)
	if existing, ok := c.types[id]; ok {
		return nil, fmt.Errorf("%w: %s is %s, not %s", ErrTypeNameConflict, name, existing.goType, t)
	}
	ti = NewTypeInfo(name, t, c.logger)
	ti.onLateMutation = c.lateMutation
	c.types[id] = ti
	c.typesByGo[t] = ti
	return ti, nil
}

// TypeInfo returns the descriptor registered under id, or nil.
func (c *Context) TypeInfo(id strhash.Hash) *TypeInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.types[id]
}

// TypeByName returns the descriptor of the named type, or nil.
func (c *Context) TypeByName(name string) *TypeInfo {
	return c.TypeInfo(strhash.New(name))
}

// Types returns every known descriptor ordered by name.
func (c *Context) Types() []*TypeInfo {
	c.mu.RLock()
	out := make([]*TypeInfo, 0, len(c.types))
	for _, ti := range c.types {
		out = append(out, ti)
	}
	c.mu.RUnlock()
	slices.SortFunc(out, func(a, b *TypeInfo) int { return strings.Compare(a.name, b.name) })
	return out
}

// RegisterAttribute appends attr to ti, or replaces the attribute of the
// same name.
func (c *Context) RegisterAttribute(ti *TypeInfo, attr *AttributeInfo) error {
	if ti == nil || attr == nil {
		return ErrTypeNotFound
	}
	if err := ti.addAttribute(attr); err != nil {
		return fmt.Errorf("register attribute %s.%s: %w", ti.name, attr.name, err)
	}
	c.logger.Debug("Attribute registered", "type", ti.name, "attribute", attr.name, "kind", attr.kind)
	return nil
}

// RemoveAttribute removes the named attribute from ti only.
func (c *Context) RemoveAttribute(ti *TypeInfo, name string) error {
	if ti == nil {
		return ErrTypeNotFound
	}
	if err := ti.removeAttribute(name); err != nil {
		return fmt.Errorf("remove attribute %s.%s: %w", ti.name, name, err)
	}
	return nil
}

// UpdateAttributeDefaultValue replaces the default of the named attribute,
// keeping its accessor.
func (c *Context) UpdateAttributeDefaultValue(ti *TypeInfo, name string, value variant.Variant) error {
	if ti == nil {
		return ErrTypeNotFound
	}
	attr := ti.Attribute(name)
	if attr == nil {
		return fmt.Errorf("update default %s.%s: %w", ti.name, name, ErrAttributeNotFound)
	}
	if value.Kind() != attr.kind {
		c.logger.Error("Default value kind mismatch", "type", ti.name, "attribute", name, "want", attr.kind, "got", value.Kind())
		return fmt.Errorf("update default %s.%s: %w: want %s, got %s", ti.name, name, ErrKindMismatch, attr.kind, value.Kind())
	}
	if err := ti.replaceAttribute(attr.withDefault(value)); err != nil {
		return fmt.Errorf("update default %s.%s: %w", ti.name, name, err)
	}
	return nil
}

// GetAttribute returns the named attribute of the type registered under id.
func (c *Context) GetAttribute(id strhash.Hash, name string) (*AttributeInfo, error) {
	ti := c.TypeInfo(id)
	if ti == nil {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, id)
	}
	attr := ti.Attribute(name)
	if attr == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrAttributeNotFound, ti.name, name)
	}
	return attr, nil
}

// CopyBaseAttributes copies every attribute currently registered on base
// to derived, together with their properties. The copies are independent
// of base and operate on instances of derived, which must embed base's Go
// type.
func (c *Context) CopyBaseAttributes(derived, base *TypeInfo) error {
	if derived == nil || base == nil {
		return ErrTypeNotFound
	}
	if derived.goType == nil || base.goType == nil {
		return fmt.Errorf("%w: %s in %s", ErrBaseNotEmbedded, base.name, derived.name)
	}
	index, offset, direct, found := embedPath(derived.goType, base.goType)
	if !found {
		return fmt.Errorf("%w: %s in %s", ErrBaseNotEmbedded, base.name, derived.name)
	}
	for _, attr := range base.attributes {
		if err := derived.addAttribute(attr.copyFor(derived.goType, index, offset, direct)); err != nil {
			return fmt.Errorf("copy attribute %s.%s: %w", base.name, attr.name, err)
		}
		for _, prop := range base.attributeProperties[attr.name] {
			derived.attributeProperties[attr.name] = append(derived.attributeProperties[attr.name], prop)
		}
	}
	c.logger.Debug("Base attributes copied", "type", derived.name, "base", base.name, "count", len(base.attributes))
	return nil
}

// InitObject binds obj to the Context and to the descriptor of its Go
// type. Objects created by a factory are already initialised.
func (c *Context) InitObject(obj Object) error {
	b := BaseOf(obj)
	if b == nil {
		return ErrObjectNotInitialised
	}
	t := reflect.TypeOf(obj)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	ti, err := c.ensureType(t)
	if err != nil {
		return err
	}
	b.init(c, obj, ti)
	return nil
}

// RegisterSubsystem stores obj as the singleton for its type, replacing any
// previous one.
func (c *Context) RegisterSubsystem(obj Object) error {
	if obj == nil || obj.TypeInfo() == nil {
		return ErrSubsystemNil
	}
	c.mu.Lock()
	c.subsystems[obj.TypeInfo().ID()] = obj
	c.mu.Unlock()
	c.logger.Debug("Subsystem registered", "type", obj.TypeInfo().Name())
	return nil
}

// RemoveSubsystem removes the subsystem registered under id, if any.
func (c *Context) RemoveSubsystem(id strhash.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subsystems, id)
}

// Subsystem returns the subsystem registered under id, or nil.
func (c *Context) Subsystem(id strhash.Hash) Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subsystems[id]
}

// SubsystemOf returns the subsystem of type T.
func SubsystemOf[T any](c *Context) (*T, bool) {
	ti := TypeOf[T](c)
	if ti == nil {
		return nil, false
	}
	obj, ok := any(c.Subsystem(ti.ID())).(*T)
	return obj, ok
}
