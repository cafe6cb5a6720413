// Package scheduler turns cron schedules into object events. Cron fires on
// its own goroutine and only queues ticks; Pump delivers the queued ticks
// as events on the goroutine that owns the objects, so handlers never run
// concurrently with the rest of the event system.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/objectcore"
	"github.com/GoCodeAlone/objectcore/strhash"
	"github.com/GoCodeAlone/objectcore/variant"
)

// Event parameters of every scheduled event.
var (
	// ParamTime is the time the schedule fired (KindTime).
	ParamTime = objectcore.NewParam("Time")
	// ParamSchedule is the cron spec that fired (KindString).
	ParamSchedule = objectcore.NewParam("Schedule")
)

// DefaultQueueSize bounds the number of ticks waiting for Pump.
const DefaultQueueSize = 256

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

type tick struct {
	eventType strhash.Hash
	schedule  string
	at        time.Time
}

// Scheduler is an object that sends events on cron schedules.
type Scheduler struct {
	objectcore.ObjectBase

	queueSize int
	location  *time.Location
	logger    objectcore.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	schedules []string
	queue     []tick
	dropped   int
	started   bool
}

// Option configures a Scheduler created by New.
type Option func(*Scheduler)

// WithQueueSize bounds the tick queue. Ticks beyond the bound are dropped.
func WithQueueSize(size int) Option {
	return func(s *Scheduler) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLocation interprets schedules in loc instead of the local time zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger overrides the Context logger.
func WithLogger(logger objectcore.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Register registers the Scheduler class and its factory in ctx.
func Register(ctx *objectcore.Context) (*objectcore.TypeInfo, error) {
	return objectcore.RegisterClass(ctx, func(b *objectcore.ClassBuilder[Scheduler, *Scheduler]) {
		b.FactoryInCategory("Logic").
			With(objectcore.EasyString("Cron driven event source")).
			Construct(func(s *Scheduler) {
				s.logger = objectcore.WithLogArgs(s.Context().Logger(), "component", "scheduler")
			}).
			Attribute(objectcore.AccessorAttribute("QueueSize", (*Scheduler).QueueSize, (*Scheduler).SetQueueSize, DefaultQueueSize)).
			With(objectcore.Range(1, 1<<16), objectcore.Tooltip("Ticks kept until the next Pump")).
			Attribute(objectcore.AccessorAttribute("Pending", (*Scheduler).Pending, nil, 0, objectcore.ModeEdit, objectcore.ModeNoEdit)).
			Attribute(objectcore.AccessorAttribute("Schedules", (*Scheduler).Schedules, nil, []string{}, objectcore.ModeEdit))
	})
}

// New registers the Scheduler class if needed and creates a scheduler
// through its factory.
func New(ctx *objectcore.Context, opts ...Option) (*Scheduler, error) {
	if _, err := Register(ctx); err != nil {
		return nil, fmt.Errorf("register scheduler: %w", err)
	}
	s, err := objectcore.New[Scheduler](ctx)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// QueueSize returns the tick queue bound.
func (s *Scheduler) QueueSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueSize
}

// SetQueueSize changes the tick queue bound. Non-positive sizes are ignored.
func (s *Scheduler) SetQueueSize(size int) {
	if size <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueSize = size
}

// Pending returns the number of ticks waiting for Pump.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Dropped returns the number of ticks lost to a full queue.
func (s *Scheduler) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Schedules returns the cron specs added so far.
func (s *Scheduler) Schedules() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.schedules)
}

func (s *Scheduler) cronLocked() *cron.Cron {
	if s.cron == nil {
		loc := s.location
		if loc == nil {
			loc = time.Local
		}
		s.cron = cron.New(cron.WithLocation(loc))
	}
	return s.cron
}

// AddSchedule sends eventType every time the standard cron spec fires.
// Descriptors such as "@every 1m" and "@hourly" are accepted.
func (s *Scheduler) AddSchedule(spec string, eventType strhash.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.cronLocked().AddFunc(spec, func() {
		s.enqueue(tick{eventType: eventType, schedule: spec, at: time.Now()})
	})
	if err != nil {
		return fmt.Errorf("add schedule %q: %w", spec, err)
	}
	s.schedules = append(s.schedules, spec)
	s.log().Debug("Schedule added", "schedule", spec, "event", eventType)
	return nil
}

func (s *Scheduler) enqueue(t tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queueSize > 0 && len(s.queue) >= s.queueSize {
		s.dropped++
		s.log().Warn("Scheduler queue full, tick dropped", "schedule", t.schedule, "queueSize", s.queueSize)
		return
	}
	s.queue = append(s.queue, t)
}

// Start starts the cron goroutine.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.cronLocked().Start()
	s.started = true
	s.log().Info("Scheduler started", "schedules", len(s.schedules))
	return nil
}

// Stop stops the cron goroutine and waits for running callbacks, or for
// ctx to be done. Queued ticks stay queued.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	stopped := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-stopped.Done():
		s.log().Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// Pump sends every queued tick as an event from the scheduler and returns
// how many were sent. It must be called on the goroutine that drives the
// Context's objects.
func (s *Scheduler) Pump() int {
	s.mu.Lock()
	ticks := s.queue
	s.queue = nil
	s.mu.Unlock()

	for i, t := range ticks {
		if s.IsDestroyed() {
			return i
		}
		data := s.EventDataMap()
		data[ParamTime] = variant.New(t.at)
		data[ParamSchedule] = variant.New(t.schedule)
		s.SendEvent(t.eventType, data)
	}
	return len(ticks)
}

func (s *Scheduler) log() objectcore.Logger {
	if s.logger != nil {
		return s.logger
	}
	if ctx := s.Context(); ctx != nil {
		return ctx.Logger()
	}
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
