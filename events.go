package objectcore

import (
	"slices"

	"github.com/GoCodeAlone/objectcore/strhash"
	"github.com/GoCodeAlone/objectcore/variant"
)

// receiverGroup lists the receivers of one event, in subscription order.
// Removals during a send leave a nil hole that is compacted when the
// outermost send on the group finishes.
type receiverGroup struct {
	receivers []*ObjectBase
	inSend    int
	dirty     bool
}

func (g *receiverGroup) add(r *ObjectBase) {
	if !slices.Contains(g.receivers, r) {
		g.receivers = append(g.receivers, r)
	}
}

func (g *receiverGroup) remove(r *ObjectBase) {
	i := slices.Index(g.receivers, r)
	if i < 0 {
		return
	}
	if g.inSend > 0 {
		g.receivers[i] = nil
		g.dirty = true
		return
	}
	g.receivers = slices.Delete(g.receivers, i, i+1)
}

func (g *receiverGroup) beginSend() { g.inSend++ }

// endSend reports whether the group ended up empty once the outermost send
// finished.
func (g *receiverGroup) endSend() bool {
	g.inSend--
	if g.inSend == 0 && g.dirty {
		g.receivers = slices.DeleteFunc(g.receivers, func(r *ObjectBase) bool { return r == nil })
		g.dirty = false
	}
	return g.empty()
}

func (g *receiverGroup) empty() bool { return g.inSend == 0 && len(g.receivers) == 0 }

// SubscribeToEvent subscribes handler to eventType from any sender. An
// existing handler for the same event without a sender is replaced.
func (o *ObjectBase) SubscribeToEvent(eventType strhash.Hash, handler *EventHandler) {
	o.subscribe(nil, eventType, handler)
}

// SubscribeToSenderEvent subscribes handler to eventType sent by sender
// only. When sender is destroyed the subscription is removed.
func (o *ObjectBase) SubscribeToSenderEvent(sender Object, eventType strhash.Hash, handler *EventHandler) {
	s := BaseOf(sender)
	if s == nil {
		return
	}
	if s.destroyed {
		if o.context != nil {
			o.context.logger.Warn("Subscription to destroyed sender ignored", "receiver", o.TypeName(), "sender", s.TypeName(), "event", eventType)
		}
		return
	}
	o.subscribe(s, eventType, handler)
}

func (o *ObjectBase) subscribe(sender *ObjectBase, eventType strhash.Hash, handler *EventHandler) {
	if handler == nil || o.context == nil || o.destroyed {
		return
	}
	handler.receiver = o
	handler.sender = sender
	handler.eventType = eventType

	var prev *EventHandler
	for h := o.handlers; h != nil; prev, h = h, h.next {
		if h.eventType == eventType && h.sender == sender {
			handler.next = h.next
			if prev == nil {
				o.handlers = handler
			} else {
				prev.next = handler
			}
			return
		}
	}
	handler.next = nil
	if prev == nil {
		o.handlers = handler
	} else {
		prev.next = handler
	}
	o.context.addEventReceiver(o, sender, eventType)
}

// UnsubscribeFromEvent removes every handler for eventType, with or
// without a sender.
func (o *ObjectBase) UnsubscribeFromEvent(eventType strhash.Hash) {
	o.removeHandlers(func(h *EventHandler) bool { return h.eventType == eventType })
}

// UnsubscribeFromSenderEvent removes the handler for eventType from sender.
func (o *ObjectBase) UnsubscribeFromSenderEvent(sender Object, eventType strhash.Hash) {
	s := BaseOf(sender)
	if s == nil {
		return
	}
	o.removeHandlers(func(h *EventHandler) bool { return h.sender == s && h.eventType == eventType })
}

// UnsubscribeFromEvents removes every handler restricted to sender.
func (o *ObjectBase) UnsubscribeFromEvents(sender Object) {
	s := BaseOf(sender)
	if s == nil {
		return
	}
	o.removeHandlers(func(h *EventHandler) bool { return h.sender == s })
}

// UnsubscribeFromAllEvents removes every handler of the object.
func (o *ObjectBase) UnsubscribeFromAllEvents() {
	o.removeHandlers(func(*EventHandler) bool { return true })
}

// UnsubscribeFromAllEventsExcept removes every handler whose event type is
// not listed in exceptions. With onlyUserData set, handlers without user
// data are kept as well.
func (o *ObjectBase) UnsubscribeFromAllEventsExcept(exceptions []strhash.Hash, onlyUserData bool) {
	o.removeHandlers(func(h *EventHandler) bool {
		if onlyUserData && h.userData == nil {
			return false
		}
		return !slices.Contains(exceptions, h.eventType)
	})
}

func (o *ObjectBase) removeHandlers(match func(*EventHandler) bool) {
	var prev *EventHandler
	for h := o.handlers; h != nil; {
		next := h.next
		if !match(h) {
			prev, h = h, next
			continue
		}
		if prev == nil {
			o.handlers = next
		} else {
			prev.next = next
		}
		h.next = nil
		if o.context != nil {
			o.context.removeEventReceiver(o, h.sender, h.eventType)
		}
		h = next
	}
}

// removeEventSender drops the handlers naming sender without touching the
// receiver tables; the Context discards the sender's table itself.
func (o *ObjectBase) removeEventSender(sender *ObjectBase) {
	var prev *EventHandler
	for h := o.handlers; h != nil; {
		next := h.next
		if h.sender != sender {
			prev, h = h, next
			continue
		}
		if prev == nil {
			o.handlers = next
		} else {
			prev.next = next
		}
		h.next = nil
		h = next
	}
}

// HasSubscribedToEvent reports whether the object has a handler for
// eventType without a sender.
func (o *ObjectBase) HasSubscribedToEvent(eventType strhash.Hash) bool {
	return o.findHandler(nil, eventType) != nil
}

// HasSubscribedToSenderEvent reports whether the object has a handler for
// eventType from sender.
func (o *ObjectBase) HasSubscribedToSenderEvent(sender Object, eventType strhash.Hash) bool {
	s := BaseOf(sender)
	return s != nil && o.findHandler(s, eventType) != nil
}

// HasEventHandlers reports whether the object has any subscription.
func (o *ObjectBase) HasEventHandlers() bool { return o.handlers != nil }

// EventHandlers returns the object's handlers in subscription order.
func (o *ObjectBase) EventHandlers() []*EventHandler {
	var out []*EventHandler
	for h := o.handlers; h != nil; h = h.next {
		out = append(out, h)
	}
	return out
}

func (o *ObjectBase) findHandler(sender *ObjectBase, eventType strhash.Hash) *EventHandler {
	for h := o.handlers; h != nil; h = h.next {
		if h.eventType == eventType && h.sender == sender {
			return h
		}
	}
	return nil
}

// SendEvent delivers eventType to every subscribed receiver on the calling
// goroutine before returning. Receivers subscribed to this sender are
// served first, then receivers subscribed to any sender; no receiver is
// served twice. A nil data map is replaced by an empty reusable one.
//
// Handlers may subscribe and unsubscribe freely while the event is being
// delivered. Removed handlers are not invoked; receivers added during the
// send are served from the next send on. Delivery stops if a handler
// destroys the sender.
func (o *ObjectBase) SendEvent(eventType strhash.Hash, data variant.Map) {
	c := o.context
	if c == nil || o.destroyed {
		return
	}
	if data == nil {
		data = c.eventDataMap()
	}
	c.beginSendEvent(o)
	defer c.endSendEvent()

	var processed map[*ObjectBase]struct{}
	if g := c.specificReceiverGroup(o, eventType); g != nil {
		processed = make(map[*ObjectBase]struct{}, len(g.receivers))
		if !o.dispatch(o, g, eventType, data, processed) {
			return
		}
	}
	if g := c.receiverGroup(eventType); g != nil {
		if !o.dispatch(nil, g, eventType, data, processed) {
			return
		}
	}
	c.forwardEvent(o, eventType, data)
}

// dispatch serves one receiver group, the sender-specific one of groupSender
// or the general one when groupSender is nil. It reports false when the
// sender was destroyed and delivery must stop.
func (o *ObjectBase) dispatch(groupSender *ObjectBase, g *receiverGroup, eventType strhash.Hash, data variant.Map, processed map[*ObjectBase]struct{}) bool {
	g.beginSend()
	defer o.context.endGroupSend(groupSender, eventType, g)

	n := len(g.receivers)
	for i := 0; i < n; i++ {
		r := g.receivers[i]
		if r == nil {
			continue
		}
		if _, done := processed[r]; done {
			continue
		}
		r.onEvent(o, eventType, data)
		if o.destroyed {
			return false
		}
		if processed != nil {
			processed[r] = struct{}{}
		}
	}
	return true
}

// onEvent picks the receiver's handler for the event, preferring one bound
// to sender over one for any sender, and invokes it.
func (o *ObjectBase) onEvent(sender *ObjectBase, eventType strhash.Hash, data variant.Map) {
	var specific, general *EventHandler
	for h := o.handlers; h != nil; h = h.next {
		if h.eventType != eventType {
			continue
		}
		if h.sender == nil {
			general = h
		} else if h.sender == sender {
			specific = h
			break
		}
	}
	h := specific
	if h == nil {
		h = general
	}
	if h == nil {
		return
	}
	o.context.setEventHandler(h)
	h.Invoke(data)
}

// EventSender returns the object whose event is being delivered, or nil
// outside event handling.
func (o *ObjectBase) EventSender() Object {
	if o.context == nil {
		return nil
	}
	return o.context.EventSender()
}

// EventHandler returns the handler being invoked, or nil outside event
// handling.
func (o *ObjectBase) EventHandler() *EventHandler {
	if o.context == nil {
		return nil
	}
	return o.context.EventHandler()
}

// EventDataMap returns an empty map for event parameters, reused between
// sends at the same nesting depth.
func (o *ObjectBase) EventDataMap() variant.Map {
	if o.context == nil {
		return variant.Map{}
	}
	return o.context.eventDataMap()
}
