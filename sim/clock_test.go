package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_OrderedByDueTime(t *testing.T) {
	// GIVEN items scheduled out of due-time order
	clock := NewSimulationClock()
	var fired []string
	record := func(name string) Callback {
		return func(now float64) error {
			fired = append(fired, name)
			return nil
		}
	}
	_, err := clock.Schedule(30, record("c"))
	require.NoError(t, err)
	_, err = clock.Schedule(10, record("a"))
	require.NoError(t, err)
	_, err = clock.Schedule(20, record("b"))
	require.NoError(t, err)

	// WHEN the clock runs
	require.NoError(t, clock.Run())

	// THEN callbacks fire in non-decreasing due-time order
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 30.0, clock.Now())
}

func TestClock_EqualDueTimes_TieBreakBySequence(t *testing.T) {
	// GIVEN several items at the same due time from independent producers
	clock := NewSimulationClock()
	var fired []int
	for i := 0; i < 8; i++ {
		i := i
		_, err := clock.Schedule(5, func(now float64) error {
			fired = append(fired, i)
			return nil
		})
		require.NoError(t, err)
	}

	// WHEN the clock runs
	require.NoError(t, clock.Run())

	// THEN ties break first-scheduled-first-run
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, fired)
}

func TestClock_ReentrantScheduling(t *testing.T) {
	// GIVEN a callback that schedules further work at a later time
	clock := NewSimulationClock()
	var fired []string
	_, err := clock.Schedule(1, func(now float64) error {
		fired = append(fired, "first")
		_, err := clock.Schedule(now+5, func(now float64) error {
			fired = append(fired, "second")
			return nil
		})
		return err
	})
	require.NoError(t, err)

	// WHEN the clock runs once
	require.NoError(t, clock.Run())

	// THEN the item scheduled mid-run is processed before Run returns
	assert.Equal(t, []string{"first", "second"}, fired)
	assert.Equal(t, 6.0, clock.Now())
}

func TestClock_PastDueSchedule_NeverSynchronous(t *testing.T) {
	// GIVEN a callback at t=10 that schedules work at the current time
	clock := NewSimulationClock()
	var order []string
	_, err := clock.Schedule(10, func(now float64) error {
		_, err := clock.Schedule(now, func(float64) error {
			order = append(order, "inner")
			return nil
		})
		// The inner callback must not have run inside Schedule.
		order = append(order, "outer-done")
		return err
	})
	require.NoError(t, err)

	require.NoError(t, clock.Run())

	assert.Equal(t, []string{"outer-done", "inner"}, order)
	// Time never moves backwards for past-due items.
	assert.Equal(t, 10.0, clock.Now())
}

func TestClock_TimeMonotonicWithPastDueItems(t *testing.T) {
	// GIVEN a callback at t=20 scheduling an item due at t=5 (already past)
	clock := NewSimulationClock()
	var observed []float64
	_, err := clock.Schedule(20, func(now float64) error {
		_, err := clock.Schedule(5, func(now float64) error {
			observed = append(observed, now)
			return nil
		})
		return err
	})
	require.NoError(t, err)

	require.NoError(t, clock.Run())

	// THEN the past-due item fires at the current time, not at 5
	require.Len(t, observed, 1)
	assert.Equal(t, 20.0, observed[0])
}

func TestClock_Schedule_RejectsInvalidDueTimes(t *testing.T) {
	clock := NewSimulationClock()
	noop := func(float64) error { return nil }

	tests := []struct {
		name string
		due  float64
	}{
		{"negative", -1},
		{"NaN", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := clock.Schedule(tt.due, noop)
			var ise *InvalidScheduleError
			require.ErrorAs(t, err, &ise)
			assert.Equal(t, StageSchedule, ise.Stage())
		})
	}

	// Clock state is untouched by rejected calls.
	assert.Equal(t, 0, clock.Len())
}

func TestClock_Cancel_PreventsCallback(t *testing.T) {
	// GIVEN a scheduled item and a spy recording invocations
	clock := NewSimulationClock()
	invocations := 0
	token, err := clock.Schedule(10, func(float64) error {
		invocations++
		return nil
	})
	require.NoError(t, err)
	_, err = clock.Schedule(20, func(float64) error { return nil })
	require.NoError(t, err)

	// WHEN the item is cancelled before its due time
	clock.Cancel(token)
	require.NoError(t, clock.Run())

	// THEN the spy recorded zero invocations
	assert.Equal(t, 0, invocations)
	assert.Equal(t, 20.0, clock.Now())
}

func TestClock_Cancel_Idempotent(t *testing.T) {
	clock := NewSimulationClock()
	token, err := clock.Schedule(1, func(float64) error { return nil })
	require.NoError(t, err)

	clock.Cancel(token)
	clock.Cancel(token)        // already cancelled
	clock.Cancel(Token(12345)) // never existed

	assert.Equal(t, 0, clock.Len())
	require.NoError(t, clock.Run())
	clock.Cancel(token) // already processed queue; still a no-op
}

func TestClock_Run_HaltsOnCallbackError(t *testing.T) {
	// GIVEN a failing callback followed by a later healthy one
	clock := NewSimulationClock()
	boom := errors.New("boom")
	laterRan := false
	_, err := clock.Schedule(1, func(float64) error { return boom })
	require.NoError(t, err)
	_, err = clock.Schedule(2, func(float64) error {
		laterRan = true
		return nil
	})
	require.NoError(t, err)

	// WHEN the clock runs
	err = clock.Run()

	// THEN the run halts immediately and the error propagates
	require.ErrorIs(t, err, boom)
	assert.False(t, laterRan, "run continued past a fatal callback error")
}

func TestClock_Run_EmptyQueueReturnsImmediately(t *testing.T) {
	clock := NewSimulationClock()
	require.NoError(t, clock.Run())
	assert.Equal(t, 0.0, clock.Now())
}
