package objectcore

import (
	"github.com/GoCodeAlone/objectcore/strhash"
	"github.com/GoCodeAlone/objectcore/variant"
)

// HandlerFunc is invoked for a delivered event. The sender and the handler
// itself are available from the receiver's EventSender and EventHandler
// while the call is in progress.
type HandlerFunc func(eventType strhash.Hash, data variant.Map)

// EventHandler is one subscription of a receiver. Receiver, sender and
// event type are filled in on subscription; a handler must not be
// subscribed more than once.
type EventHandler struct {
	receiver  *ObjectBase
	sender    *ObjectBase
	eventType strhash.Hash
	userData  any
	fn        HandlerFunc

	next *EventHandler
}

// NewEventHandler wraps fn for use with SubscribeToEvent.
func NewEventHandler(fn HandlerFunc) *EventHandler {
	return &EventHandler{fn: fn}
}

// NewEventHandlerWithUserData wraps fn and carries userData to every
// invocation. Handlers registered by scripting bridges use this.
func NewEventHandlerWithUserData(fn HandlerFunc, userData any) *EventHandler {
	return &EventHandler{fn: fn, userData: userData}
}

// Receiver returns the subscribing object.
func (h *EventHandler) Receiver() Object {
	if h.receiver == nil {
		return nil
	}
	return h.receiver.self
}

// Sender returns the sender the handler is restricted to, or nil.
func (h *EventHandler) Sender() Object {
	if h.sender == nil {
		return nil
	}
	return h.sender.self
}

func (h *EventHandler) EventType() strhash.Hash { return h.eventType }
func (h *EventHandler) UserData() any           { return h.userData }

// Invoke calls the handler function directly.
func (h *EventHandler) Invoke(data variant.Map) {
	if h.fn != nil {
		h.fn(h.eventType, data)
	}
}

// NewEvent returns the identifier of a named event and remembers the name
// for diagnostics:
//
//	var EventTick = objectcore.NewEvent("Tick")
func NewEvent(name string) strhash.Hash { return strhash.Intern(name) }

// NewParam returns the identifier of a named event parameter.
func NewParam(name string) strhash.Hash { return strhash.Intern(name) }
