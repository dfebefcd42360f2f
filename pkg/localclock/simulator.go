// Package localclock keeps a live local time display for a remote location.
//
// The location's UTC offset is looked up once per selection; afterwards the
// Simulator extrapolates from the machine's own clock every second instead of
// asking the timezone service again.
package localclock

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codeGROOVE-dev/clima/pkg/timezone"
	"github.com/codeGROOVE-dev/clima/pkg/tzconvert"
)

// Period between display updates.
const Period = time.Second

// Display layouts: 24h "HH:MM" and "DD/MM/YY" (es-ES).
const (
	TimeLayout = "15:04"
	DateLayout = "02/01/06"
)

// State of a Simulator.
type State int

// Simulator states.
const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Reading is the formatted local time shown to the user.
// The zero Reading means no successful lookup has happened yet.
type Reading struct {
	Time string `json:"time"`
	Date string `json:"date"`
}

// IsZero reports whether the reading was never set.
func (r Reading) IsZero() bool {
	return r.Time == "" && r.Date == ""
}

// Simulator owns at most one recurring timer at a time.
type Simulator struct {
	clock     clockwork.Clock
	scheduler Scheduler
	logger    *slog.Logger
	cancel    func()
	observers []func(Reading)
	reading   Reading
	offset    int
	gen       uint64
	ticks     uint64
	lifecycle sync.Mutex // serializes Start and Stop
	mu        sync.Mutex // guards the fields above
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock sets the time source. Defaults to the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Simulator) {
		s.clock = c
	}
}

// WithScheduler sets the timer implementation.
// Defaults to a TickerScheduler on the Simulator's clock.
func WithScheduler(sch Scheduler) Option {
	return func(s *Simulator) {
		s.scheduler = sch
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = l
	}
}

// New creates an idle Simulator.
func New(opts ...Option) *Simulator {
	s := &Simulator{}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.scheduler == nil {
		s.scheduler = NewTickerScheduler(s.clock)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// OnChange registers fn to receive every new Reading. fn runs on the timer's
// goroutine and must not call Start or Stop.
func (s *Simulator) OnChange(fn func(Reading)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Start shows the local time at offsetSeconds east of UTC, updating every
// Period. A running timer is fully cancelled before the new one is installed.
func (s *Simulator) Start(offsetSeconds int) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopLocked()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.offset = offsetSeconds
	s.mu.Unlock()

	s.update(gen)
	cancel := s.scheduler.Schedule(Period, func() { s.update(gen) })

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Debug("local clock started", "offset", tzconvert.FormatOffset(offsetSeconds))
}

// StartSnapshot starts from a timezone lookup. A failed lookup supersedes the
// previous location: the timer is stopped, the reading cleared, and false returned.
func (s *Simulator) StartSnapshot(snap timezone.Snapshot) bool {
	if !snap.OK() {
		s.logger.Debug("timezone lookup failed, local clock not started",
			"status", snap.Status, "message", snap.Message)
		s.lifecycle.Lock()
		defer s.lifecycle.Unlock()
		s.stopLocked()
		s.mu.Lock()
		s.reading = Reading{}
		s.mu.Unlock()
		return false
	}
	s.Start(snap.GMTOffset)
	return true
}

// Stop cancels the timer. The last Reading stays visible. Stop is a no-op on
// an idle Simulator.
func (s *Simulator) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()
}

// stopLocked requires s.lifecycle. The cancel func is invoked without s.mu
// held, because it waits for an in-flight tick that needs s.mu.
func (s *Simulator) stopLocked() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	if cancel != nil {
		s.gen++
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.logger.Debug("local clock stopped")
	}
}

// Snapshot returns the current Reading.
func (s *Simulator) Snapshot() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading
}

// State reports whether a timer is installed.
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return Running
	}
	return Idle
}

// Ticks counts accepted updates since creation, including the immediate one
// performed by Start.
func (s *Simulator) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// update formats the local time for generation gen. Ticks from a superseded
// timer carry an old gen and are dropped.
func (s *Simulator) update(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	local := tzconvert.Shift(s.clock.Now(), s.offset)
	r := Reading{
		Time: local.Format(TimeLayout),
		Date: local.Format(DateLayout),
	}
	s.ticks++
	s.reading = r
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(r)
	}
}
