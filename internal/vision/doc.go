// Package vision owns the tracking layer of the camera pipeline: the
// per-frame detection types, the constant-velocity Kalman filter behind
// each track, Hungarian detection-to-track assignment, and the Tracker
// stage that fuses detection frames into stable, identity-bearing
// tracks for the downstream encoder.
//
// Key types: Box (one detection), Track, TrackSnapshot, Tracker.
//
// The Tracker's inbox is the only cross-thread mutable state; it is
// guarded by a bounded-wait lock. Track state is touched exclusively by
// the Tracker's own worker goroutine.
package vision
