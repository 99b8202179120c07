package stage

import "time"

// TimedMutex is a mutex with bounded-wait acquisition. Each stage guards
// its inbox with one; an upstream AddMessage that cannot take the lock
// within its timeout fails without blocking, so contention degrades to a
// dropped frame instead of a stall.
type TimedMutex struct {
	ch chan struct{}
}

// NewTimedMutex returns an unlocked TimedMutex.
func NewTimedMutex() *TimedMutex {
	m := &TimedMutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}

// Lock blocks until the mutex is acquired.
func (m *TimedMutex) Lock() {
	<-m.ch
}

// TryLockFor attempts to acquire the mutex, giving up after d. Returns
// true if the lock was taken.
func (m *TimedMutex) TryLockFor(d time.Duration) bool {
	select {
	case <-m.ch:
		return true
	default:
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-m.ch:
		return true
	case <-t.C:
		return false
	}
}

// Unlock releases the mutex. Unlocking an unlocked mutex panics.
func (m *TimedMutex) Unlock() {
	select {
	case m.ch <- struct{}{}:
	default:
		panic("stage: unlock of unlocked TimedMutex")
	}
}
