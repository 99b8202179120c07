package stage

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStage records how many times each callback fires.
type countingStage struct {
	waitingToRun  atomic.Int32
	running       atomic.Int32
	paused        atomic.Int32
	waitingToHalt atomic.Int32
}

func (c *countingStage) WaitingToRun() bool  { c.waitingToRun.Add(1); return true }
func (c *countingStage) Running() bool       { c.running.Add(1); return true }
func (c *countingStage) Paused() bool        { c.paused.Add(1); return true }
func (c *countingStage) WaitingToHalt() bool { c.waitingToHalt.Add(1); return true }

const waitTimeout = 2 * time.Second

func TestDriverLifecycle(t *testing.T) {
	cb := &countingStage{}
	d := New(cb, 100*time.Microsecond)

	require.Equal(t, Stopped, d.State())

	require.NoError(t, d.Start("tracker", 0))
	require.True(t, d.Wait(Paused, waitTimeout), "stage never reached Paused")

	// The start edge runs WaitingToHalt once before settling in Paused.
	assert.Equal(t, int32(1), cb.waitingToHalt.Load())
	assert.Equal(t, int32(0), cb.waitingToRun.Load())

	require.NoError(t, d.Run())
	require.True(t, d.Wait(Running, waitTimeout), "stage never reached Running")
	assert.Equal(t, int32(1), cb.waitingToRun.Load())

	// Let the worker tick a few times.
	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, cb.running.Load(), int32(0))

	require.NoError(t, d.Pause())
	require.True(t, d.Wait(Paused, waitTimeout), "stage never re-entered Paused")
	assert.Equal(t, int32(2), cb.waitingToHalt.Load())

	// Running must not tick once the worker has left the state.
	ticks := cb.running.Load()
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, ticks, cb.running.Load())

	require.NoError(t, d.Stop())
	assert.Equal(t, Stopped, d.State())
	assert.Equal(t, int32(3), cb.waitingToHalt.Load())
}

func TestDriverEdgesAreSingleShot(t *testing.T) {
	cb := &countingStage{}
	d := New(cb, 100*time.Microsecond)

	require.NoError(t, d.Start("s", 0))
	require.True(t, d.Wait(Paused, waitTimeout))

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Run())
		require.True(t, d.Wait(Running, waitTimeout))
		require.NoError(t, d.Pause())
		require.True(t, d.Wait(Paused, waitTimeout))
	}

	// One WaitingToRun per run edge; one WaitingToHalt per start or
	// pause edge.
	assert.Equal(t, int32(3), cb.waitingToRun.Load())
	assert.Equal(t, int32(4), cb.waitingToHalt.Load())

	require.NoError(t, d.Stop())
}

func TestDriverTransitionErrors(t *testing.T) {
	cb := &countingStage{}
	d := New(cb, 100*time.Microsecond)

	// Run before Start: no worker, not Paused.
	assert.Error(t, d.Run())

	require.NoError(t, d.Start("s", 0))
	require.True(t, d.Wait(Paused, waitTimeout))

	assert.Error(t, d.Start("s", 0), "double start must fail")

	require.NoError(t, d.Run())
	require.True(t, d.Wait(Running, waitTimeout))
	assert.Error(t, d.Run(), "run while running must fail")

	require.NoError(t, d.Stop())
	assert.NoError(t, d.Stop(), "stop is idempotent")
}

func TestDriverNameLimit(t *testing.T) {
	d := New(&countingStage{}, time.Millisecond)
	err := d.Start("a-name-well-over-fifteen-bytes", 0)
	require.Error(t, err)

	require.NoError(t, d.Start("fifteen-bytes-x", 0))
	assert.Equal(t, "fifteen-bytes-x", d.Name())

	assert.Error(t, d.SetName("also-well-over-fifteen-bytes"))
	require.NoError(t, d.SetName("renamed"))
	assert.Equal(t, "renamed", d.Name())

	require.NoError(t, d.Stop())
}

func TestDriverPriorityIsBestEffort(t *testing.T) {
	d := New(&countingStage{}, time.Millisecond)
	require.NoError(t, d.Start("s", 50))
	assert.Equal(t, 50, d.Priority())

	// A denied priority is reported, never fatal.
	require.NoError(t, d.SetPriority(99))
	assert.Equal(t, 99, d.Priority())
	require.NoError(t, d.Stop())
}

func TestDriverYieldTime(t *testing.T) {
	d := New(&countingStage{}, 5*time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, d.YieldTime())
	d.SetYieldTime(250 * time.Microsecond)
	assert.Equal(t, 250*time.Microsecond, d.YieldTime())
}

func TestDriverWaitTimeout(t *testing.T) {
	d := New(&countingStage{}, time.Millisecond)
	assert.False(t, d.Wait(Running, 5*time.Millisecond))
}

func TestDriverStopFromRunning(t *testing.T) {
	cb := &countingStage{}
	d := New(cb, 100*time.Microsecond)

	require.NoError(t, d.Start("s", 0))
	require.True(t, d.Wait(Paused, waitTimeout))
	require.NoError(t, d.Run())
	require.True(t, d.Wait(Running, waitTimeout))

	// Stop joins the worker; after it returns no callbacks may fire.
	require.NoError(t, d.Stop())
	runs := cb.running.Load()
	halts := cb.waitingToHalt.Load()
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, runs, cb.running.Load())
	assert.Equal(t, halts, cb.waitingToHalt.Load())
	assert.Equal(t, Stopped, d.State())
}

func TestTimedMutex(t *testing.T) {
	m := NewTimedMutex()

	require.True(t, m.TryLockFor(time.Millisecond))
	// Held: a second bounded acquire must time out, not block.
	start := time.Now()
	assert.False(t, m.TryLockFor(2*time.Millisecond))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	m.Unlock()
	require.True(t, m.TryLockFor(time.Millisecond))
	m.Unlock()
}

func TestTimedMutexUnlockPanics(t *testing.T) {
	m := NewTimedMutex()
	assert.Panics(t, func() { m.Unlock() })
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		WaitingToStop:  "waiting-to-stop",
		Stopped:        "stopped",
		WaitingToPause: "waiting-to-pause",
		Paused:         "paused",
		WaitingToRun:   "waiting-to-run",
		Running:        "running",
	} {
		assert.Equal(t, want, s.String())
	}
}
