package hostcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimerRejectsNonPositivePeriod(t *testing.T) {
	_, err := NewTimer(0, func() {})
	assert.ErrorIs(t, err, ErrNonPositivePeriod)

	_, err = NewTimer(-time.Second, func() {})
	assert.ErrorIs(t, err, ErrNonPositivePeriod)
}

func TestNewCronTimerRejectsInvalidSpec(t *testing.T) {
	_, err := NewCronTimer("not a cron spec", func() {})
	assert.ErrorIs(t, err, ErrInvalidCronSpec)
}

func TestProcessTimersFiresDueTimer(t *testing.T) {
	s := NewTimerScheduler(&testLogger{})

	fired := 0
	timer, err := NewTimer(time.Minute, func() { fired++ })
	require.NoError(t, err)
	require.NoError(t, s.Register(timer))

	now := time.Now()
	timer.next = now.Add(-time.Millisecond)

	s.ProcessTimers(now)
	assert.Equal(t, 1, fired)
	assert.True(t, timer.Next().After(now), "fired timer must be rescheduled into the future")
}

// A timer overdue by several periods fires once and skips the missed fires
// instead of burst-firing a backlog.
func TestProcessTimersSkipsMissedPeriods(t *testing.T) {
	s := NewTimerScheduler(&testLogger{})

	fired := 0
	timer, err := NewTimer(time.Second, func() { fired++ })
	require.NoError(t, err)
	require.NoError(t, s.Register(timer))

	now := time.Now()
	timer.next = now.Add(-5500 * time.Millisecond)

	s.ProcessTimers(now)
	assert.Equal(t, 1, fired, "no catch-up fires for skipped periods")
	assert.True(t, timer.Next().After(now))
	assert.LessOrEqual(t, timer.Next().Sub(now), time.Second, "next fire lands within one period of now")

	// A second pass right away must not fire again.
	s.ProcessTimers(now)
	assert.Equal(t, 1, fired)
}

func TestProcessTimersReturnsDefaultWhenEmpty(t *testing.T) {
	s := NewTimerScheduler(&testLogger{})

	wait := s.ProcessTimers(time.Now())
	assert.Equal(t, defaultTimerWait, wait)
}

func TestProcessTimersRoundsUpToWholeSeconds(t *testing.T) {
	s := NewTimerScheduler(&testLogger{})

	timer, err := NewTimer(time.Minute, nil)
	require.NoError(t, err)
	require.NoError(t, s.Register(timer))

	now := time.Now()
	timer.next = now.Add(2500 * time.Millisecond)

	wait := s.ProcessTimers(now)
	assert.Equal(t, 3*time.Second, wait)

	timer.next = now.Add(400 * time.Millisecond)
	wait = s.ProcessTimers(now)
	assert.Equal(t, time.Second, wait, "sub-second waits round up, never spin")
}

func TestProcessTimersFireOrderIsNonDecreasing(t *testing.T) {
	s := NewTimerScheduler(&testLogger{})

	var order []string
	early, err := NewTimer(time.Minute, func() { order = append(order, "early") })
	require.NoError(t, err)
	late, err := NewTimer(time.Minute, func() { order = append(order, "late") })
	require.NoError(t, err)

	now := time.Now()
	early.next = now.Add(-2 * time.Second)
	late.next = now.Add(-time.Second)

	require.NoError(t, s.Register(late))
	require.NoError(t, s.Register(early))

	s.ProcessTimers(now)
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestUnregisterRemovesTimer(t *testing.T) {
	s := NewTimerScheduler(&testLogger{})

	fired := 0
	timer, err := NewTimer(time.Second, func() { fired++ })
	require.NoError(t, err)
	require.NoError(t, s.Register(timer))
	require.Equal(t, 1, s.Len())

	s.Unregister(timer)
	assert.Equal(t, 0, s.Len())

	timer.next = time.Now().Add(-time.Second)
	s.ProcessTimers(time.Now())
	assert.Equal(t, 0, fired)

	// Unregistering twice or unregistering nil is a no-op.
	s.Unregister(timer)
	s.Unregister(nil)
}

func TestCronTimerAdvancesFromSchedule(t *testing.T) {
	s := NewTimerScheduler(&testLogger{})

	fired := 0
	timer, err := NewCronTimer("* * * * *", func() { fired++ })
	require.NoError(t, err)
	require.NoError(t, s.Register(timer))

	now := time.Now()
	timer.next = now.Add(-time.Minute)

	s.ProcessTimers(now)
	assert.Equal(t, 1, fired)
	assert.True(t, timer.Next().After(now))
}
