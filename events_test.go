package objectcore

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/objectcore/strhash"
	"github.com/GoCodeAlone/objectcore/variant"
)

func receivers(got []received) []string {
	out := make([]string, 0, len(got))
	for _, r := range got {
		out = append(out, r.receiver)
	}
	return out
}

func newEventFixture(t *testing.T) (*Context, *Ticker, *Ticker) {
	t.Helper()
	ctx := newTestContext(t)
	registerTicker(t, ctx)
	return ctx, newTicker(t, ctx), newTicker(t, ctx)
}

func TestSendEvent_GeneralSubscriptionServesEverySender(t *testing.T) {
	_, a, b := newEventFixture(t)
	l := newListener(t, a.Context())
	l.SubscribeToEvent(eventTick, l.record("H"))

	a.SendEvent(eventTick, nil)
	b.SendEvent(eventTick, nil)

	require.Len(t, l.got, 2)
	assert.Equal(t, Object(a), l.got[0].sender)
	assert.Equal(t, Object(b), l.got[1].sender)
	assert.Equal(t, "Tick", l.got[0].eventType)
	assert.True(t, l.HasSubscribedToEvent(eventTick))
}

func TestSendEvent_SenderSubscriptionRemovedOnDestroy(t *testing.T) {
	ctx, a, b := newEventFixture(t)
	l := newListener(t, ctx)
	l.SubscribeToSenderEvent(a, eventTick, l.record("H"))

	b.SendEvent(eventTick, nil)
	assert.Empty(t, l.got, "other senders are ignored")
	a.SendEvent(eventTick, nil)
	require.Len(t, l.got, 1)

	a.Destroy()
	assert.False(t, l.HasSubscribedToSenderEvent(a, eventTick))
	assert.False(t, l.HasEventHandlers())
	assert.False(t, ctx.HasEventReceivers(a, eventTick))

	a.SendEvent(eventTick, nil)
	b.SendEvent(eventTick, nil)
	assert.Len(t, l.got, 1)
}

func TestSendEvent_NoSubscribers(t *testing.T) {
	ctx, a, _ := newEventFixture(t)
	assert.False(t, ctx.HasEventReceivers(a, eventPing))
	assert.NotPanics(t, func() { a.SendEvent(eventPing, nil) })
	assert.Nil(t, ctx.EventSender())
	assert.Nil(t, ctx.EventHandler())
}

func TestSendEvent_SpecificReceiversFirstAndOnce(t *testing.T) {
	ctx, a, b := newEventFixture(t)
	l1, l2, l3 := newListener(t, ctx), newListener(t, ctx), newListener(t, ctx)

	var got []received
	rec := func(l *Listener, name string) *EventHandler {
		return NewEventHandler(func(eventType strhash.Hash, data variant.Map) {
			got = append(got, received{receiver: name, sender: l.EventSender()})
		})
	}
	l1.SubscribeToEvent(eventTick, rec(l1, "l1-any"))
	l2.SubscribeToSenderEvent(a, eventTick, rec(l2, "l2-a"))
	l3.SubscribeToEvent(eventTick, rec(l3, "l3-any"))
	l3.SubscribeToSenderEvent(a, eventTick, rec(l3, "l3-a"))

	a.SendEvent(eventTick, nil)
	assert.Equal(t, []string{"l2-a", "l3-a", "l1-any"}, receivers(got))

	got = nil
	b.SendEvent(eventTick, nil)
	assert.Equal(t, []string{"l1-any", "l3-any"}, receivers(got))
}

func TestSendEvent_UnsubscribeDuringDispatch(t *testing.T) {
	ctx, a, _ := newEventFixture(t)
	l1, l2 := newListener(t, ctx), newListener(t, ctx)

	l1.SubscribeToEvent(eventTick, NewEventHandler(func(strhash.Hash, variant.Map) {
		l1.got = append(l1.got, received{receiver: "l1"})
		l2.UnsubscribeFromEvent(eventTick)
	}))
	l2.SubscribeToEvent(eventTick, l2.record("l2"))

	a.SendEvent(eventTick, nil)
	assert.Len(t, l1.got, 1)
	assert.Empty(t, l2.got, "handlers removed during the send are not invoked")

	a.SendEvent(eventTick, nil)
	assert.Len(t, l1.got, 2)
	assert.Empty(t, l2.got)
}

func TestSendEvent_GroupsEmptiedDuringDispatchAreDropped(t *testing.T) {
	ctx, a, _ := newEventFixture(t)
	specific, general := newListener(t, ctx), newListener(t, ctx)

	specific.SubscribeToSenderEvent(a, eventTick, NewEventHandler(func(strhash.Hash, variant.Map) {
		specific.UnsubscribeFromSenderEvent(a, eventTick)
	}))
	general.SubscribeToEvent(eventPing, NewEventHandler(func(strhash.Hash, variant.Map) {
		general.UnsubscribeFromEvent(eventPing)
	}))
	require.Contains(t, ctx.specificReceivers, &a.ObjectBase)
	require.Contains(t, ctx.receivers, eventPing)

	a.SendEvent(eventTick, nil)
	a.SendEvent(eventPing, nil)

	assert.False(t, specific.HasEventHandlers())
	assert.False(t, general.HasEventHandlers())
	assert.Empty(t, ctx.specificReceivers)
	assert.NotContains(t, ctx.receivers, eventPing)
	assert.False(t, ctx.HasEventReceivers(a, eventTick))
}

func TestSendEvent_SubscribeDuringDispatch(t *testing.T) {
	ctx, a, _ := newEventFixture(t)
	l1, l2 := newListener(t, ctx), newListener(t, ctx)

	l1.SubscribeToEvent(eventTick, NewEventHandler(func(strhash.Hash, variant.Map) {
		l1.got = append(l1.got, received{receiver: "l1"})
		if !l2.HasSubscribedToEvent(eventTick) {
			l2.SubscribeToEvent(eventTick, l2.record("l2"))
		}
	}))

	a.SendEvent(eventTick, nil)
	assert.Len(t, l1.got, 1)
	assert.Empty(t, l2.got, "receivers added during the send wait for the next one")

	a.SendEvent(eventTick, nil)
	assert.Len(t, l1.got, 2)
	assert.Len(t, l2.got, 1)
}

func TestSendEvent_SenderDestroyedDuringDispatch(t *testing.T) {
	ctx, a, _ := newEventFixture(t)
	l1, l2 := newListener(t, ctx), newListener(t, ctx)

	l1.SubscribeToEvent(eventTick, NewEventHandler(func(strhash.Hash, variant.Map) {
		l1.got = append(l1.got, received{receiver: "l1"})
		a.Destroy()
	}))
	l2.SubscribeToEvent(eventTick, l2.record("l2"))

	a.SendEvent(eventTick, nil)
	assert.Len(t, l1.got, 1)
	assert.Empty(t, l2.got)
	assert.Nil(t, ctx.EventSender(), "the sender stack unwinds")
}

func TestSendEvent_ReceiverDestroyedDuringDispatch(t *testing.T) {
	ctx, a, _ := newEventFixture(t)
	l1, l2, l3 := newListener(t, ctx), newListener(t, ctx), newListener(t, ctx)

	l1.SubscribeToEvent(eventTick, NewEventHandler(func(strhash.Hash, variant.Map) {
		l2.Destroy()
	}))
	l2.SubscribeToEvent(eventTick, l2.record("l2"))
	l3.SubscribeToEvent(eventTick, l3.record("l3"))

	a.SendEvent(eventTick, nil)
	assert.Empty(t, l2.got)
	assert.Len(t, l3.got, 1, "receivers after the hole are still served")

	a.SendEvent(eventTick, nil)
	assert.Len(t, l3.got, 2)
	assert.True(t, ctx.HasEventReceivers(nil, eventTick))
}

func TestSendEvent_NestedSendKeepsSenderStack(t *testing.T) {
	ctx, a, b := newEventFixture(t)
	l1, l2 := newListener(t, ctx), newListener(t, ctx)

	var before, after Object
	var handlerAfter *EventHandler
	tickHandler := NewEventHandler(func(strhash.Hash, variant.Map) {
		before = l1.EventSender()
		b.SendEvent(eventPing, nil)
		after = l1.EventSender()
		handlerAfter = l1.EventHandler()
	})
	l1.SubscribeToSenderEvent(a, eventTick, tickHandler)
	l2.SubscribeToEvent(eventPing, l2.record("l2"))

	a.SendEvent(eventTick, nil)

	assert.Equal(t, Object(a), before)
	assert.Equal(t, Object(a), after)
	assert.Same(t, tickHandler, handlerAfter)
	require.Len(t, l2.got, 1)
	assert.Equal(t, Object(b), l2.got[0].sender)
	assert.Nil(t, ctx.EventSender())
}

func TestEventDataMap_ReusedPerDepth(t *testing.T) {
	ctx, a, b := newEventFixture(t)
	l := newListener(t, ctx)

	var outerSeen, nestedSeen variant.Map
	l.SubscribeToSenderEvent(a, eventTick, NewEventHandler(func(_ strhash.Hash, data variant.Map) {
		nested := l.EventDataMap()
		nested[paramCount] = variant.New(99)
		b.SendEvent(eventPing, nested)
		outerSeen = data.Clone()
	}))
	l.SubscribeToSenderEvent(b, eventPing, NewEventHandler(func(_ strhash.Hash, data variant.Map) {
		nestedSeen = data.Clone()
	}))

	data := a.EventDataMap()
	data[paramCount] = variant.New(1)
	a.SendEvent(eventTick, data)

	assert.Equal(t, 1, variant.GetOr(outerSeen[paramCount], 0), "nested sends use their own map")
	assert.Equal(t, 99, variant.GetOr(nestedSeen[paramCount], 0))

	again := a.EventDataMap()
	assert.Empty(t, again)
	assert.Equal(t, reflect.ValueOf(data).UnsafePointer(), reflect.ValueOf(again).UnsafePointer())
}

func TestSendEvent_NilDataBecomesEmptyMap(t *testing.T) {
	ctx, a, _ := newEventFixture(t)
	l := newListener(t, ctx)
	var seen variant.Map
	l.SubscribeToEvent(eventTick, NewEventHandler(func(_ strhash.Hash, data variant.Map) { seen = data }))

	a.SendEvent(eventTick, nil)
	assert.NotNil(t, seen)
	assert.Empty(t, seen)
}

func TestSubscribe_ReplacesHandlerForSameSenderAndType(t *testing.T) {
	ctx, a, _ := newEventFixture(t)
	l := newListener(t, ctx)

	l.SubscribeToEvent(eventTick, l.record("old"))
	l.SubscribeToEvent(eventTick, l.record("new"))
	l.SubscribeToSenderEvent(a, eventPing, l.record("ping"))
	require.Len(t, l.EventHandlers(), 2)

	a.SendEvent(eventTick, nil)
	assert.Equal(t, []string{"new"}, receivers(l.got))

	h := l.EventHandlers()[1]
	assert.Equal(t, Object(l), h.Receiver())
	assert.Equal(t, Object(a), h.Sender())
	assert.Equal(t, eventPing, h.EventType())
	assert.Nil(t, l.EventHandlers()[0].Sender())
}

func TestSubscribe_PrefersSenderHandler(t *testing.T) {
	ctx, a, b := newEventFixture(t)
	l := newListener(t, ctx)
	l.SubscribeToEvent(eventTick, l.record("any"))
	l.SubscribeToSenderEvent(a, eventTick, l.record("a"))

	a.SendEvent(eventTick, nil)
	b.SendEvent(eventTick, nil)
	assert.Equal(t, []string{"a", "any"}, receivers(l.got))
}

func TestSubscribe_UserData(t *testing.T) {
	ctx, a, _ := newEventFixture(t)
	l := newListener(t, ctx)

	var seen any
	l.SubscribeToEvent(eventTick, NewEventHandlerWithUserData(func(strhash.Hash, variant.Map) {
		seen = l.EventHandler().UserData()
	}, "script:onTick"))

	a.SendEvent(eventTick, nil)
	assert.Equal(t, "script:onTick", seen)
}

func TestSubscribe_DestroyedParticipants(t *testing.T) {
	logger := newQuietMockLogger()
	logger.On("Warn", "Subscription to destroyed sender ignored", mock.Anything).Once()
	ctx := newTestContext(t, WithLogger(logger))
	registerTicker(t, ctx)
	a := newTicker(t, ctx)
	l := newListener(t, ctx)

	a.Destroy()
	l.SubscribeToSenderEvent(a, eventTick, l.record("late"))
	assert.False(t, l.HasEventHandlers())

	l.Destroy()
	l.SubscribeToEvent(eventTick, l.record("dead"))
	assert.False(t, l.HasEventHandlers())
	assert.False(t, ctx.HasEventReceivers(nil, eventTick))
	logger.AssertExpectations(t)
}

func TestUnsubscribe(t *testing.T) {
	ctx, a, b := newEventFixture(t)
	l := newListener(t, ctx)

	subscribeAll := func() {
		l.SubscribeToEvent(eventTick, l.record("tick"))
		l.SubscribeToSenderEvent(a, eventTick, l.record("tick-a"))
		l.SubscribeToSenderEvent(a, eventPing, l.record("ping-a"))
		l.SubscribeToSenderEvent(b, eventPing, l.record("ping-b"))
		l.SubscribeToEvent(eventOther, NewEventHandlerWithUserData(func(strhash.Hash, variant.Map) {}, 1))
	}

	t.Run("from sender event", func(t *testing.T) {
		subscribeAll()
		l.UnsubscribeFromSenderEvent(a, eventTick)
		assert.False(t, l.HasSubscribedToSenderEvent(a, eventTick))
		assert.True(t, l.HasSubscribedToEvent(eventTick))
		assert.True(t, l.HasSubscribedToSenderEvent(a, eventPing))
		l.UnsubscribeFromAllEvents()
	})

	t.Run("from event type", func(t *testing.T) {
		subscribeAll()
		l.UnsubscribeFromEvent(eventPing)
		assert.False(t, l.HasSubscribedToSenderEvent(a, eventPing))
		assert.False(t, l.HasSubscribedToSenderEvent(b, eventPing))
		assert.Len(t, l.EventHandlers(), 3)
		assert.False(t, ctx.HasEventReceivers(a, eventPing))
		l.UnsubscribeFromAllEvents()
	})

	t.Run("from sender", func(t *testing.T) {
		subscribeAll()
		l.UnsubscribeFromEvents(a)
		assert.False(t, l.HasSubscribedToSenderEvent(a, eventTick))
		assert.False(t, l.HasSubscribedToSenderEvent(a, eventPing))
		assert.True(t, l.HasSubscribedToSenderEvent(b, eventPing))
		assert.True(t, l.HasSubscribedToEvent(eventTick))
		l.UnsubscribeFromAllEvents()
	})

	t.Run("all except", func(t *testing.T) {
		subscribeAll()
		l.UnsubscribeFromAllEventsExcept([]strhash.Hash{eventTick}, false)
		for _, h := range l.EventHandlers() {
			assert.Equal(t, eventTick, h.EventType())
		}
		assert.Len(t, l.EventHandlers(), 2)
		l.UnsubscribeFromAllEvents()
	})

	t.Run("all except, user data only", func(t *testing.T) {
		subscribeAll()
		l.UnsubscribeFromAllEventsExcept(nil, true)
		assert.Len(t, l.EventHandlers(), 4)
		assert.False(t, l.HasSubscribedToEvent(eventOther))
		l.UnsubscribeFromAllEvents()
	})

	assert.False(t, l.HasEventHandlers())
	assert.False(t, ctx.HasEventReceivers(a, eventTick))
	assert.False(t, ctx.HasEventReceivers(b, eventPing))
	assert.Empty(t, ctx.receivers)
	assert.Empty(t, ctx.specificReceivers)
}

func TestEventHandler_Invoke(t *testing.T) {
	var calls int
	h := NewEventHandler(func(strhash.Hash, variant.Map) { calls++ })
	h.Invoke(nil)
	assert.Equal(t, 1, calls)
	assert.Nil(t, h.Receiver())
	assert.Nil(t, h.Sender())

	assert.NotPanics(t, func() { (&EventHandler{}).Invoke(nil) })
}
