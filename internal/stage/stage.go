package stage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/sightline/internal/monitoring"
)

// State is the lifecycle state of a stage worker.
type State int32

const (
	WaitingToStop State = iota
	Stopped
	WaitingToPause
	Paused
	WaitingToRun
	Running
)

func (s State) String() string {
	switch s {
	case WaitingToStop:
		return "waiting-to-stop"
	case Stopped:
		return "stopped"
	case WaitingToPause:
		return "waiting-to-pause"
	case Paused:
		return "paused"
	case WaitingToRun:
		return "waiting-to-run"
	case Running:
		return "running"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// MaxNameLen caps stage names for OS thread-name compatibility.
const MaxNameLen = 15

// Callbacks is the capability set every pipeline stage implements.
// WaitingToRun and WaitingToHalt run exactly once per transition edge;
// Running and Paused run repeatedly and must do bounded work then yield.
type Callbacks interface {
	WaitingToRun() bool  // once, before entering Running
	Running() bool       // repeatedly while Running
	Paused() bool        // repeatedly while Paused
	WaitingToHalt() bool // once, before entering Paused or Stopped
}

// Driver runs a stage's Callbacks on a dedicated worker goroutine and
// mediates all state transitions. Construct with New, then Start.
type Driver struct {
	cb Callbacks

	yieldTime atomic.Int64 // nanoseconds between worker ticks

	mu       sync.Mutex
	state    State
	name     string
	priority int
	started  bool
	done     chan struct{}
}

// New returns a Driver for cb. The worker sleeps yieldTime between
// ticks; the driver starts with no worker in the Stopped state.
func New(cb Callbacks, yieldTime time.Duration) *Driver {
	d := &Driver{cb: cb, state: Stopped}
	d.yieldTime.Store(int64(yieldTime))
	return d
}

// Start creates the worker goroutine. The worker settles into Paused
// after running the WaitingToHalt edge once. Priority is best-effort:
// the Go runtime does not expose per-goroutine scheduling priority, so
// a non-default request is reported and ignored.
func (d *Driver) Start(name string, priority int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("stage %q: already started", d.name)
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("stage name %q exceeds %d bytes", name, MaxNameLen)
	}
	d.name = name
	d.priority = priority
	if priority != 0 {
		monitoring.Logf("stage %q: priority %d not supported, continuing at default", name, priority)
	}

	d.state = WaitingToPause
	d.done = make(chan struct{})
	d.started = true
	go d.worker()
	return nil
}

// Run moves a Paused stage through WaitingToRun into Running.
func (d *Driver) Run() error {
	return d.request(Paused, WaitingToRun)
}

// Pause moves a Running stage through WaitingToPause into Paused.
func (d *Driver) Pause() error {
	d.mu.Lock()
	if d.state == Paused || d.state == WaitingToPause {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()
	return d.request(Running, WaitingToPause)
}

// Stop moves the stage through WaitingToStop into Stopped and joins the
// worker goroutine. Stopping a never-started driver is a no-op.
func (d *Driver) Stop() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.state = WaitingToStop
	done := d.done
	d.mu.Unlock()

	<-done

	d.mu.Lock()
	d.started = false
	d.mu.Unlock()
	return nil
}

// request performs a from→to transition, failing if the stage is not
// resting in from.
func (d *Driver) request(from, to State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != from {
		return fmt.Errorf("stage %q: cannot move %s -> %s", d.name, d.state, to)
	}
	d.state = to
	return nil
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Wait polls until the stage reaches s or the timeout elapses. Returns
// true if the state was reached.
func (d *Driver) Wait(s State, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if d.State() == s {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// Name returns the stage name set at Start.
func (d *Driver) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// SetName renames the stage, subject to the same length cap as Start.
func (d *Driver) SetName(name string) error {
	if len(name) > MaxNameLen {
		return fmt.Errorf("stage name %q exceeds %d bytes", name, MaxNameLen)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.name = name
	return nil
}

// Priority returns the requested (best-effort) priority.
func (d *Driver) Priority() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.priority
}

// SetPriority records a new priority request. Best-effort only: the Go
// runtime schedules goroutines itself, so the request is reported and
// tracking continues at default priority.
func (d *Driver) SetPriority(priority int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.priority = priority
	if priority != 0 {
		monitoring.Logf("stage %q: priority %d not supported, continuing at default", d.name, priority)
	}
	return nil
}

// YieldTime returns the sleep between worker ticks.
func (d *Driver) YieldTime() time.Duration {
	return time.Duration(d.yieldTime.Load())
}

// SetYieldTime adjusts the sleep between worker ticks.
func (d *Driver) SetYieldTime(t time.Duration) {
	d.yieldTime.Store(int64(t))
}

// advance completes a single-shot edge: the state moves from→to only if
// no external transition landed while the edge callback ran.
func (d *Driver) advance(from, to State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == from {
		d.state = to
	}
}

func (d *Driver) worker() {
	defer close(d.done)
	for {
		switch d.State() {
		case WaitingToRun:
			d.cb.WaitingToRun()
			d.advance(WaitingToRun, Running)
		case Running:
			d.cb.Running()
		case WaitingToPause:
			d.cb.WaitingToHalt()
			d.advance(WaitingToPause, Paused)
		case Paused:
			d.cb.Paused()
		case WaitingToStop:
			d.cb.WaitingToHalt()
			d.mu.Lock()
			d.state = Stopped
			d.mu.Unlock()
			return
		case Stopped:
			return
		}
		time.Sleep(d.YieldTime())
	}
}
