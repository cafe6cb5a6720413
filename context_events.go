package objectcore

import (
	"github.com/GoCodeAlone/objectcore/strhash"
	"github.com/GoCodeAlone/objectcore/variant"
)

func (c *Context) receiverGroup(eventType strhash.Hash) *receiverGroup {
	return c.receivers[eventType]
}

func (c *Context) specificReceiverGroup(sender *ObjectBase, eventType strhash.Hash) *receiverGroup {
	return c.specificReceivers[sender][eventType]
}

func (c *Context) addEventReceiver(r, sender *ObjectBase, eventType strhash.Hash) {
	var groups map[strhash.Hash]*receiverGroup
	if sender == nil {
		groups = c.receivers
	} else {
		groups = c.specificReceivers[sender]
		if groups == nil {
			groups = make(map[strhash.Hash]*receiverGroup)
			c.specificReceivers[sender] = groups
		}
	}
	g := groups[eventType]
	if g == nil {
		g = &receiverGroup{}
		groups[eventType] = g
	}
	g.add(r)
}

func (c *Context) removeEventReceiver(r, sender *ObjectBase, eventType strhash.Hash) {
	groups := c.receivers
	if sender != nil {
		groups = c.specificReceivers[sender]
	}
	g := groups[eventType]
	if g == nil {
		return
	}
	g.remove(r)
	if g.empty() {
		c.dropReceiverGroup(sender, eventType, g)
	}
}

// endGroupSend closes a send on g and drops g when receivers left it during
// that send.
func (c *Context) endGroupSend(sender *ObjectBase, eventType strhash.Hash, g *receiverGroup) {
	if g.endSend() {
		c.dropReceiverGroup(sender, eventType, g)
	}
}

// dropReceiverGroup deletes g from its table, and the sender's table once it
// is empty. A table that no longer holds g is left alone.
func (c *Context) dropReceiverGroup(sender *ObjectBase, eventType strhash.Hash, g *receiverGroup) {
	groups := c.receivers
	if sender != nil {
		groups = c.specificReceivers[sender]
	}
	if groups[eventType] != g {
		return
	}
	delete(groups, eventType)
	if sender != nil && len(groups) == 0 {
		delete(c.specificReceivers, sender)
	}
}

// removeEventSender drops every subscription naming sender.
func (c *Context) removeEventSender(sender *ObjectBase) {
	groups, ok := c.specificReceivers[sender]
	if !ok {
		return
	}
	delete(c.specificReceivers, sender)
	for _, g := range groups {
		for _, r := range g.receivers {
			if r != nil {
				r.removeEventSender(sender)
			}
		}
	}
}

// HasEventReceivers reports whether anything is subscribed to eventType,
// either from any sender or, when sender is not nil, from sender.
func (c *Context) HasEventReceivers(sender Object, eventType strhash.Hash) bool {
	if g := c.receivers[eventType]; g != nil && len(g.receivers) > 0 {
		return true
	}
	s := BaseOf(sender)
	if s == nil {
		return false
	}
	g := c.specificReceivers[s][eventType]
	return g != nil && len(g.receivers) > 0
}

func (c *Context) beginSendEvent(sender *ObjectBase) {
	c.senders = append(c.senders, sender)
	c.handlers = append(c.handlers, nil)
}

func (c *Context) endSendEvent() {
	n := len(c.senders) - 1
	c.senders[n] = nil
	c.senders = c.senders[:n]
	c.handlers[n] = nil
	c.handlers = c.handlers[:n]
}

func (c *Context) setEventHandler(h *EventHandler) {
	if n := len(c.handlers); n > 0 {
		c.handlers[n-1] = h
	}
}

// EventSender returns the sender of the innermost event being delivered,
// or nil outside event handling.
func (c *Context) EventSender() Object {
	n := len(c.senders)
	if n == 0 {
		return nil
	}
	return c.senders[n-1].self
}

// EventHandler returns the handler of the innermost event being delivered,
// or nil outside event handling.
func (c *Context) EventHandler() *EventHandler {
	n := len(c.handlers)
	if n == 0 {
		return nil
	}
	return c.handlers[n-1]
}

// eventDataMap returns the cleared map reserved for the current send depth.
func (c *Context) eventDataMap() variant.Map {
	depth := len(c.senders)
	for len(c.eventData) <= depth {
		c.eventData = append(c.eventData, make(variant.Map))
	}
	m := c.eventData[depth]
	clear(m)
	return m
}
