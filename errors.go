package objectcore

import (
	"errors"
)

// Registry errors
var (
	// Type descriptor errors
	ErrTypeClosed       = errors.New("type descriptor is closed")
	ErrTypeNotFound     = errors.New("type not registered")
	ErrTypeNameConflict = errors.New("type name already used by a different Go type")
	ErrNotInterface     = errors.New("type parameter is not an interface type")

	// Attribute errors
	ErrAttributeNotFound    = errors.New("attribute not found")
	ErrAttributeReadOnly    = errors.New("attribute has no setter")
	ErrKindMismatch         = errors.New("value kind does not match attribute kind")
	ErrInstanceMismatch     = errors.New("instance is not of the attribute owner type")
	ErrOffsetInvalid        = errors.New("no field of the declared type at attribute offset")
	ErrBaseNotEmbedded      = errors.New("base type is not embedded in derived type")
	ErrInterfaceContract    = errors.New("type does not implement declared interface")
	ErrObjectNotInitialised = errors.New("object has not been initialised with a context")

	// Factory errors
	ErrFactoryNotRegistered = errors.New("no factory registered for type")
	ErrFactoryNil           = errors.New("factory is nil")

	// Subsystem errors
	ErrSubsystemNil = errors.New("subsystem is nil")

	// Config errors
	ErrConfigFormat     = errors.New("unsupported config file format")
	ErrConfigNotPointer = errors.New("config must be a pointer to a struct")
	ErrDefaultOverride  = errors.New("invalid default override")
)
