// Package record provides the downstream sink stage of the pipeline: it
// receives track emissions on a bounded-wait inbox and persists them to
// the sqlite observation store under a per-process run id.
package record

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/sightline/internal/monitoring"
	"github.com/banshee-data/sightline/internal/stage"
	sqlitestore "github.com/banshee-data/sightline/internal/storage/sqlite"
	"github.com/banshee-data/sightline/internal/vision"
)

// Recorder is a pipeline stage that consumes track emissions and writes
// them to the store. Its inbox follows the same latest-wins, bounded-
// wait contract as every other stage inbox: under load it skips frames
// rather than stall the tracker.
type Recorder struct {
	store *sqlitestore.Store
	runID string

	inboxMu *stage.TimedMutex
	inbox   []vision.TrackSnapshot
	pending bool

	now func() time.Time

	persisted int64
	failed    int64
}

// NewRecorder registers a fresh run in the store and returns the stage.
// source labels where the detections came from (e.g. the replay file).
func NewRecorder(store *sqlitestore.Store, source string) (*Recorder, error) {
	runID := uuid.NewString()
	if err := store.BeginRun(runID, source, time.Now()); err != nil {
		return nil, fmt.Errorf("begin recording run: %w", err)
	}
	return &Recorder{
		store:   store,
		runID:   runID,
		inboxMu: stage.NewTimedMutex(),
		now:     time.Now,
	}, nil
}

// RunID returns the id this process records under.
func (r *Recorder) RunID() string {
	return r.runID
}

// AddMessage replaces the inbox with the newest emission. Returns false
// without side effects when the inbox lock is contended past its
// timeout.
func (r *Recorder) AddMessage(tracks []vision.TrackSnapshot) bool {
	if !r.inboxMu.TryLockFor(vision.DefaultInboxTimeout) {
		monitoring.Debugf("recorder: inbox busy, emission dropped")
		return false
	}
	defer r.inboxMu.Unlock()

	r.inbox = tracks
	r.pending = true
	return true
}

// WaitingToRun has nothing to build up.
func (r *Recorder) WaitingToRun() bool { return true }

// Running drains the inbox and persists the pending emission, if any.
func (r *Recorder) Running() bool {
	if !r.inboxMu.TryLockFor(vision.DefaultInboxTimeout) {
		return true
	}
	tracks := r.inbox
	pending := r.pending
	r.inbox = nil
	r.pending = false
	r.inboxMu.Unlock()

	if !pending {
		return true
	}

	if err := r.store.InsertEmission(r.runID, r.now(), tracks); err != nil {
		r.failed++
		monitoring.Logf("recorder: persist emission: %v", err)
		return true
	}
	r.persisted++
	return true
}

// Paused idles.
func (r *Recorder) Paused() bool { return true }

// WaitingToHalt reports what the run captured.
func (r *Recorder) WaitingToHalt() bool {
	if r.persisted > 0 || r.failed > 0 {
		monitoring.Logf("recorder: run %s: %d emissions persisted, %d failed", r.runID, r.persisted, r.failed)
		r.persisted = 0
		r.failed = 0
	}
	return true
}

var _ stage.Callbacks = (*Recorder)(nil)
var _ vision.TrackListener = (*Recorder)(nil)
