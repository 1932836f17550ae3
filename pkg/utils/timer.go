// Package utils provides logging and phase timing shared by the solver tooling.
package utils

import (
	"sync"
	"time"
)

// Clock is the time source of a Timer.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() time.Time { return time.Now() }

// MockClock is a manually advanced Clock for tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a MockClock reading start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

// Now implements Clock.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Phase is one measured section of a run.
type Phase struct {
	Name     string
	Start    time.Time
	Duration time.Duration
	done     bool
}

// Timer records the duration of named phases. It only observes; nothing it
// measures depends on it.
type Timer struct {
	mu     sync.Mutex
	name   string
	clock  Clock
	logger Logger
	start  time.Time
	phases []*Phase
	index  map[string]*Phase
}

// TimerOption configures a Timer instance.
type TimerOption func(*Timer)

// WithLogger sets where Log writes the summary.
func WithLogger(logger Logger) TimerOption {
	return func(t *Timer) {
		t.logger = logger
	}
}

// WithClock sets a custom clock for testability.
func WithClock(clock Clock) TimerOption {
	return func(t *Timer) {
		t.clock = clock
	}
}

// NewTimer creates a new Timer with the given name and options.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:   name,
		clock:  RealClock{},
		logger: &NullLogger{},
		index:  make(map[string]*Phase),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.start = t.clock.Now()
	return t
}

// Start begins phase name and returns the function that ends it. Calling
// the returned function again returns the recorded duration unchanged.
// Starting a name twice restarts it.
func (t *Timer) Start(name string) (stop func() time.Duration) {
	t.mu.Lock()
	p, ok := t.index[name]
	if !ok {
		p = &Phase{Name: name}
		t.index[name] = p
		t.phases = append(t.phases, p)
	}
	p.Start, p.Duration, p.done = t.clock.Now(), 0, false
	t.mu.Unlock()

	return func() time.Duration {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !p.done {
			p.Duration = t.clock.Now().Sub(p.Start)
			p.done = true
		}
		return p.Duration
	}
}

// Time runs fn as phase name.
func (t *Timer) Time(name string, fn func() error) (time.Duration, error) {
	stop := t.Start(name)
	err := fn()
	return stop(), err
}

// Duration returns the recorded duration of name, zero while it runs.
func (t *Timer) Duration(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.index[name]; ok {
		return p.Duration
	}
	return 0
}

// Phases returns the phases in start order.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Phase, len(t.phases))
	for i, p := range t.phases {
		out[i] = *p
	}
	return out
}

// Durations returns the finished phases keyed by name.
func (t *Timer) Durations() map[string]time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]time.Duration, len(t.phases))
	for _, p := range t.phases {
		if p.done {
			out[p.Name] = p.Duration
		}
	}
	return out
}

// Total returns the time since the timer was created.
func (t *Timer) Total() time.Duration {
	return t.clock.Now().Sub(t.start)
}

// Log writes one line per phase and the total at info level.
func (t *Timer) Log() {
	for _, p := range t.Phases() {
		t.logger.Info("%s: %s took %v", t.name, p.Name, p.Duration)
	}
	t.logger.Info("%s: total %v", t.name, t.Total())
}
