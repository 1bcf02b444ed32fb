package hostcore

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// defaultTimerWait bounds the event loop's sleep when no timers are
// scheduled, so the loop still observes shutdown requests periodically.
const defaultTimerWait = 30 * time.Second

// Timer is a recurring scheduled action with a period (or cron schedule) and
// a next-fire time. Timers are created by application logic and registered
// with the TimerScheduler; the scheduler advances the next-fire time each
// time the timer fires.
type Timer struct {
	id       string
	interval time.Duration
	schedule cron.Schedule
	next     time.Time
	fn       func()
}

// NewTimer creates a fixed-period timer that first fires one interval from
// now.
func NewTimer(interval time.Duration, fn func()) (*Timer, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNonPositivePeriod, interval)
	}

	return &Timer{
		id:       uuid.New().String(),
		interval: interval,
		next:     time.Now().Add(interval),
		fn:       fn,
	}, nil
}

// NewCronTimer creates a timer driven by a standard five-field cron
// expression. The next-fire time is computed from the schedule instead of a
// fixed period.
func NewCronTimer(spec string, fn func()) (*Timer, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidCronSpec, spec, err)
	}

	return &Timer{
		id:       uuid.New().String(),
		schedule: schedule,
		next:     schedule.Next(time.Now()),
		fn:       fn,
	}, nil
}

// ID returns the timer's unique identifier.
func (t *Timer) ID() string {
	return t.id
}

// Next returns the timer's next scheduled fire time.
func (t *Timer) Next() time.Time {
	return t.next
}

// advance moves the next-fire time past now. Missed periods are skipped
// rather than burst-fired: a timer overdue by many periods fires once and is
// rescheduled into the future.
func (t *Timer) advance(now time.Time) {
	if t.schedule != nil {
		t.next = t.schedule.Next(now)
		return
	}

	missed := now.Sub(t.next) / t.interval
	t.next = t.next.Add((missed + 1) * t.interval)
}

// TimerScheduler maintains the set of active periodic timers and computes the
// next wake deadline for the event loop. Timers fire on the goroutine calling
// ProcessTimers, which is the main thread's event loop.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*Timer
	logger Logger
}

// NewTimerScheduler creates an empty timer scheduler.
func NewTimerScheduler(logger Logger) *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[string]*Timer),
		logger: logger,
	}
}

// Register adds the timer to the active set.
func (s *TimerScheduler) Register(t *Timer) error {
	if t == nil {
		return ErrTimerNil
	}

	s.mu.Lock()
	s.timers[t.id] = t
	s.mu.Unlock()

	s.logger.Debug("Registered timer", "timer", t.id, "next", t.next)
	return nil
}

// Unregister removes the timer from the active set. Removing a timer that was
// never registered is a no-op.
func (s *TimerScheduler) Unregister(t *Timer) {
	if t == nil {
		return
	}

	s.mu.Lock()
	delete(s.timers, t.id)
	s.mu.Unlock()
}

// Len returns the number of active timers.
func (s *TimerScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.timers)
}

// ProcessTimers fires every timer whose next-fire time has passed, in
// non-decreasing order of scheduled time, advancing each past now. It returns
// the wait until the earliest remaining timer rounded up to whole seconds
// (minimum one second), or defaultTimerWait when no timers are scheduled.
func (s *TimerScheduler) ProcessTimers(now time.Time) time.Duration {
	s.mu.Lock()
	var due []*Timer
	for _, t := range s.timers {
		if !t.next.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].next.Before(due[j].next) })
	for _, t := range due {
		t.advance(now)
	}
	s.mu.Unlock()

	// Callbacks run outside the lock so they can register or unregister
	// timers.
	for _, t := range due {
		if t.fn != nil {
			t.fn()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := time.Time{}
	for _, t := range s.timers {
		if next.IsZero() || t.next.Before(next) {
			next = t.next
		}
	}

	if next.IsZero() {
		return defaultTimerWait
	}

	wait := next.Sub(now)
	if wait <= 0 {
		return time.Second
	}

	// Round up to whole seconds so a timer due in under a second does not
	// spin the loop.
	secs := (wait + time.Second - 1) / time.Second
	return secs * time.Second
}
