package objectcore

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"unsafe"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/objectcore/strhash"
	"github.com/GoCodeAlone/objectcore/variant"
)

type Vehicle struct {
	ObjectBase
	Speed  float32
	Name   string
	wheels int
}

func (v *Vehicle) Wheels() int     { return v.wheels }
func (v *Vehicle) SetWheels(n int) { v.wheels = n }

type Car struct {
	Vehicle
	gear  int
	plate string
}

func (c *Car) Gear() int          { return c.gear }
func (c *Car) SetGear(g *int)     { c.gear = *g }
func (c *Car) Plate() *string     { return &c.plate }
func (c *Car) SetPlate(p *string) { c.plate = *p }
func (c *Car) Honk() string       { return "beep" }

// Boat does not embed Vehicle.
type Boat struct {
	ObjectBase
	Draft float64
}

// Ticker is a plain event source for event tests.
type Ticker struct {
	ObjectBase
}

// Listener records every event it receives.
type Listener struct {
	ObjectBase
	got []received
}

type received struct {
	receiver  string
	sender    Object
	eventType string
	data      variant.Map
}

type Honker interface {
	Honk() string
}

var (
	honkerInterface   = NewInterface[Honker]()
	eventTick         = NewEvent("Tick")
	eventPing         = NewEvent("Ping")
	eventOther        = NewEvent("Other")
	paramCount        = NewParam("Count")
	speedOffset       = unsafe.Offsetof(Vehicle{}.Speed)
	nameOffset        = unsafe.Offsetof(Vehicle{}.Name)
	draftOffset       = unsafe.Offsetof(Boat{}.Draft)
	discardLogger     = slog.New(slog.NewTextHandler(io.Discard, nil))
	vehicleTooltip    = "Current speed"
	vehicleCategory   = "Transport"
	defaultWheelCount = 4
)

func newTestContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	ctx, err := NewContext(append([]Option{WithLogger(discardLogger)}, opts...)...)
	require.NoError(t, err)
	return ctx
}

func defineVehicle(b *ClassBuilder[Vehicle, *Vehicle]) {
	b.FactoryInCategory(vehicleCategory).
		With(EasyString("vehicle")).
		Attribute(OffsetAttribute[Vehicle]("Speed", speedOffset, float32(0))).
		With(Tooltip(vehicleTooltip), Range(0, 300)).
		Attribute(OffsetAttribute[Vehicle]("Name", nameOffset, "unnamed")).
		Attribute(AccessorAttribute("Wheels", (*Vehicle).Wheels, (*Vehicle).SetWheels, defaultWheelCount))
}

// defineCar derives Car from vehicle, dropping the copied Speed.
func defineCar(vehicle *TypeInfo) func(b *ClassBuilder[Car, *Car]) {
	return func(b *ClassBuilder[Car, *Car]) {
		b.Base(vehicle, true).
			Implements(honkerInterface).
			Factory().
			Remove("Speed").
			Attribute(MixedAttribute("Gear", (*Car).Gear, (*Car).SetGear, 1)).
			Attribute(RefAttribute("Plate", (*Car).Plate, (*Car).SetPlate, "")).
			UpdateDefault("Wheels", variant.New(6))
	}
}

func registerVehicle(t *testing.T, ctx *Context) *TypeInfo {
	t.Helper()
	ti, err := RegisterClass(ctx, defineVehicle)
	require.NoError(t, err)
	return ti
}

func registerCar(t *testing.T, ctx *Context) *TypeInfo {
	t.Helper()
	ti, err := RegisterClass(ctx, defineCar(registerVehicle(t, ctx)))
	require.NoError(t, err)
	return ti
}

func registerTicker(t *testing.T, ctx *Context) {
	t.Helper()
	_, err := RegisterClass(ctx, func(b *ClassBuilder[Ticker, *Ticker]) { b.Factory() })
	require.NoError(t, err)
	_, err = RegisterClass(ctx, func(b *ClassBuilder[Listener, *Listener]) { b.Factory() })
	require.NoError(t, err)
}

func newTicker(t *testing.T, ctx *Context) *Ticker {
	t.Helper()
	tk, err := New[Ticker](ctx)
	require.NoError(t, err)
	return tk
}

func newListener(t *testing.T, ctx *Context) *Listener {
	t.Helper()
	l, err := New[Listener](ctx)
	require.NoError(t, err)
	return l
}

// record returns a handler appending to l.got, tagged with name.
func (l *Listener) record(name string) *EventHandler {
	return NewEventHandler(func(eventType strhash.Hash, data variant.Map) {
		l.got = append(l.got, received{
			receiver:  name,
			sender:    l.EventSender(),
			eventType: eventType.String(),
			data:      data.Clone(),
		})
	})
}

// MockLogger records log calls.
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, args ...any) { m.Called(msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.Called(msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.Called(msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.Called(msg, args) }

func newQuietMockLogger() *MockLogger {
	m := &MockLogger{}
	m.On("Debug", mock.Anything, mock.Anything).Maybe()
	m.On("Info", mock.Anything, mock.Anything).Maybe()
	return m
}

// collectingObserver stores every CloudEvent it receives.
type collectingObserver struct {
	id     string
	mu     sync.Mutex
	events []cloudevents.Event
}

func (o *collectingObserver) OnEvent(_ context.Context, event cloudevents.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return nil
}

func (o *collectingObserver) ObserverID() string { return o.id }

func (o *collectingObserver) ofType(eventType string) []cloudevents.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []cloudevents.Event
	for _, e := range o.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}
