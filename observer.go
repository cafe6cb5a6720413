// Package objectcore provides runtime type identification, attribute
// reflection, object factories and per-object event messaging for types
// that opt in by embedding ObjectBase and registering with a Context.
//
// Registry activity can be observed from outside through the Observer
// interfaces in this file. Observer notifications use the CloudEvents
// specification so they can be forwarded to external systems unchanged.
package objectcore

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer receives CloudEvents from a Subject.
type Observer interface {
	// OnEvent is called for every event the observer registered for.
	// Calls happen off the caller's goroutine, one observer after another
	// in registration order; observers should return quickly.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// Subject is implemented by Context.
type Subject interface {
	// RegisterObserver adds an observer. With no eventTypes the observer
	// receives every event.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. It is idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers delivers event to every interested observer without
	// blocking the caller.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers describes the registered observers.
	GetObservers() []ObserverInfo
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// CloudEvent types emitted by a Context.
const (
	EventTypeTypeRegistered    = "com.objectcore.type.registered"
	EventTypeLateMutation      = "com.objectcore.type.late_mutation"
	EventTypeFactoryRegistered = "com.objectcore.factory.registered"
	EventTypeObjectCreated     = "com.objectcore.object.created"
	EventTypeObjectDestroyed   = "com.objectcore.object.destroyed"

	// EventTypeForwardedPrefix prefixes the name of every object event
	// listed in Config.ForwardEvents.
	EventTypeForwardedPrefix = "com.objectcore.event."
)

// FunctionalObserver adapts a function to the Observer interface.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver returns an observer that calls handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
