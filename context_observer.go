package objectcore

import (
	"context"
	"slices"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/GoCodeAlone/objectcore/strhash"
	"github.com/GoCodeAlone/objectcore/variant"
)

type observerRegistration struct {
	observer     Observer
	eventTypes   []string
	registeredAt time.Time
}

// wants reports whether the registration covers eventType. A filter ending
// in '*' matches every type with that prefix, e.g. "com.objectcore.event.*".
func (r *observerRegistration) wants(eventType string) bool {
	if len(r.eventTypes) == 0 {
		return true
	}
	for _, filter := range r.eventTypes {
		if prefix, ok := strings.CutSuffix(filter, "*"); ok && strings.HasPrefix(eventType, prefix) {
			return true
		}
		if filter == eventType {
			return true
		}
	}
	return false
}

// RegisterObserver adds an observer to receive registry events. With no
// eventTypes the observer receives every event. Registering an ID again
// replaces its filters and keeps its place in the delivery order.
func (c *Context) RegisterObserver(observer Observer, eventTypes ...string) error {
	registration := &observerRegistration{
		observer:     observer,
		eventTypes:   slices.Clone(eventTypes),
		registeredAt: time.Now(),
	}

	c.observerMutex.Lock()
	i := slices.IndexFunc(c.observers, func(r *observerRegistration) bool { return r.observer.ObserverID() == observer.ObserverID() })
	if i >= 0 {
		c.observers[i] = registration
	} else {
		c.observers = append(c.observers, registration)
	}
	c.observerMutex.Unlock()

	c.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer. It is idempotent.
func (c *Context) UnregisterObserver(observer Observer) error {
	c.observerMutex.Lock()
	n := len(c.observers)
	c.observers = slices.DeleteFunc(c.observers, func(r *observerRegistration) bool { return r.observer.ObserverID() == observer.ObserverID() })
	removed := len(c.observers) < n
	c.observerMutex.Unlock()

	if removed {
		c.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
	}
	return nil
}

// NotifyObservers validates event and hands it to the interested observers
// on one goroutine, in registration order. Observer errors and panics are
// logged and never reach the caller or the remaining observers.
func (c *Context) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		c.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	c.observerMutex.RLock()
	targets := make([]Observer, 0, len(c.observers))
	for _, registration := range c.observers {
		if registration.wants(event.Type()) {
			targets = append(targets, registration.observer)
		}
	}
	c.observerMutex.RUnlock()
	if len(targets) == 0 {
		return nil
	}

	go func() {
		for _, observer := range targets {
			c.deliver(ctx, observer, event)
		}
	}()
	return nil
}

func (c *Context) deliver(ctx context.Context, observer Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Observer panicked", "observerID", observer.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()
	if err := observer.OnEvent(ctx, event); err != nil {
		c.logger.Error("Observer error", "observerID", observer.ObserverID(), "event", event.Type(), "error", err)
	}
}

// GetObservers describes the registered observers in delivery order.
func (c *Context) GetObservers() []ObserverInfo {
	c.observerMutex.RLock()
	defer c.observerMutex.RUnlock()

	info := make([]ObserverInfo, 0, len(c.observers))
	for _, registration := range c.observers {
		info = append(info, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   slices.Clone(registration.eventTypes),
			RegisteredAt: registration.registeredAt,
		})
	}
	return info
}

func (c *Context) hasObservers() bool {
	c.observerMutex.RLock()
	defer c.observerMutex.RUnlock()
	return len(c.observers) > 0
}

// emit publishes a registry event. The event is built on the calling
// goroutine, so its data reflects the state at the time of the call.
func (c *Context) emit(eventType string, data map[string]any) {
	if !c.hasObservers() {
		return
	}
	event := NewCloudEvent(eventType, c.config.EventSource, data, nil)
	if err := c.NotifyObservers(context.Background(), event); err != nil {
		c.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}

func (c *Context) lateMutation(ti *TypeInfo, op string) {
	if c.config.NotifyLateMutations {
		c.emit(EventTypeLateMutation, map[string]any{"type": ti.name, "op": op})
	}
}

func (c *Context) typeRegistered(ti *TypeInfo) {
	bases := make([]string, 0, len(ti.bases))
	for _, b := range ti.bases {
		bases = append(bases, b.name)
	}
	c.emit(EventTypeTypeRegistered, map[string]any{
		"type":       ti.name,
		"bases":      bases,
		"attributes": len(ti.attributes),
	})
}

func (c *Context) objectCreated(o *ObjectBase) {
	if c.config.EmitLifecycleEvents {
		c.emit(EventTypeObjectCreated, map[string]any{"type": o.TypeName()})
	}
}

func (c *Context) objectDestroyed(o *ObjectBase) {
	c.mu.Lock()
	if s, ok := c.subsystems[o.Type()]; ok && s.objectBase() == o {
		delete(c.subsystems, o.Type())
	}
	c.mu.Unlock()
	if c.config.EmitLifecycleEvents {
		c.emit(EventTypeObjectDestroyed, map[string]any{"type": o.TypeName()})
	}
}

// forwardEvent mirrors an object event listed in Config.ForwardEvents to
// the observers. The payload is exported before the send returns, so the
// reusable data map may be cleared afterwards.
func (c *Context) forwardEvent(sender *ObjectBase, eventType strhash.Hash, data variant.Map) {
	name, ok := c.forwarded[eventType]
	if !ok {
		return
	}
	c.emit(EventTypeForwardedPrefix+name, map[string]any{
		"sender": sender.TypeName(),
		"data":   data.Export(),
	})
}
