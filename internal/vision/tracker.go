package vision

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/sightline/internal/monitoring"
	"github.com/banshee-data/sightline/internal/stage"
)

// TrackerConfig holds configuration for the tracker stage.
type TrackerConfig struct {
	MaxDist      float64       // Gating distance in pixels for accepting an assignment
	MaxTime      time.Duration // Age-out threshold for tracks with no recent match
	TargetTypes  []Category    // Categories retained on ingest
	Quiet        bool          // Suppress the summary stats dump on halt
	InboxTimeout time.Duration // Bounded wait on the detection inbox lock
	Filter       FilterTuning
}

// DefaultTrackerConfig returns production-default tracker parameters.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxDist:      100.0,
		MaxTime:      1500 * time.Millisecond,
		TargetTypes:  []Category{CategoryPerson, CategoryPet, CategoryVehicle},
		InboxTimeout: DefaultInboxTimeout,
		Filter: FilterTuning{
			InitialError:    100.0,
			MeasureVariance: 2.0,
			ProcessVariance: 5.0,
		},
	}
}

// Tracker fuses per-frame detections into persistent tracks. It
// implements stage.Callbacks for the pipeline worker and BoxListener for
// the upstream inference stage; each Running tick it associates the
// newest detection frame with the live tracks and emits one snapshot
// list downstream.
//
// The detection inbox is the only state shared with other goroutines.
// tracks, nextID and the phase stats belong to the worker alone.
type Tracker struct {
	cfg  TrackerConfig
	sink TrackListener // downstream encoder inbox; may be nil

	inboxMu *stage.TimedMutex
	targets []Box // latest-wins detection inbox, guarded by inboxMu

	tracks    []*Track
	nextID    uint32
	trackerOn bool

	now func() time.Time

	latestMu sync.Mutex
	latest   []TrackSnapshot // last emission, for monitoring reads

	statUntouch   LatencyStats
	statAssociate LatencyStats
	statCreate    LatencyStats
	statTouch     LatencyStats
	statCleanup   LatencyStats
	statPost      LatencyStats
	statTotal     LatencyStats
}

// NewTracker creates a Tracker forwarding emissions to sink. A nil sink
// disables forwarding; snapshots are still kept for monitoring.
func NewTracker(cfg TrackerConfig, sink TrackListener) (*Tracker, error) {
	if cfg.Filter.MeasureVariance <= 0 {
		return nil, fmt.Errorf("tracker: measure variance must be > 0, got %v", cfg.Filter.MeasureVariance)
	}
	if cfg.InboxTimeout <= 0 {
		cfg.InboxTimeout = DefaultInboxTimeout
	}
	return &Tracker{
		cfg:     cfg,
		sink:    sink,
		inboxMu: stage.NewTimedMutex(),
		now:     time.Now,
	}, nil
}

// AddMessage replaces the detection inbox with one frame's detections,
// keeping only the categories the tracker follows. It returns false
// without side effects if the inbox lock cannot be taken within the
// configured timeout; the upstream drops that frame.
func (t *Tracker) AddMessage(boxes []Box) bool {
	if !t.inboxMu.TryLockFor(t.cfg.InboxTimeout) {
		monitoring.Debugf("tracker: inbox busy, frame dropped")
		return false
	}
	defer t.inboxMu.Unlock()

	t.targets = t.targets[:0]
	for _, b := range boxes {
		if !t.follows(b.Category) {
			continue
		}
		b.ID = 0
		t.targets = append(t.targets, b)
	}
	return true
}

func (t *Tracker) follows(c Category) bool {
	for _, want := range t.cfg.TargetTypes {
		if c == want {
			return true
		}
	}
	return false
}

// WaitingToRun opens the total-time sample.
func (t *Tracker) WaitingToRun() bool {
	if !t.trackerOn {
		t.statTotal.Begin()
		t.trackerOn = true
	}
	return true
}

// Running performs one full tracking cycle: ingest, untouch, associate,
// birth, touch, cleanup, post.
func (t *Tracker) Running() bool {
	if !t.trackerOn {
		return true
	}

	// Ingest: swap out the newest frame under the bounded inbox lock. A
	// timeout just defers the cycle to the next tick.
	if !t.inboxMu.TryLockFor(t.cfg.InboxTimeout) {
		return true
	}
	targets := t.targets
	t.targets = nil
	t.inboxMu.Unlock()

	now := t.now()

	t.untouchTracks()
	if len(t.tracks) > 0 && len(targets) > 0 {
		targets = t.associateTracks(targets, now)
	}
	t.createTracks(targets, now)
	t.touchTracks()
	t.cleanupTracks(now)
	t.postTracks()
	return true
}

// Paused idles.
func (t *Tracker) Paused() bool {
	return true
}

// WaitingToHalt closes the total-time sample and, unless quiet, dumps
// the phase statistics.
func (t *Tracker) WaitingToHalt() bool {
	if t.trackerOn {
		t.statTotal.End()
		t.trackerOn = false

		if !t.cfg.Quiet {
			monitoring.Logf("Tracker results...")
			monitoring.Logf("      target untouch time (us): %s", &t.statUntouch)
			monitoring.Logf("  target association time (us): %s", &t.statAssociate)
			monitoring.Logf("        track create time (us): %s", &t.statCreate)
			monitoring.Logf("        target touch time (us): %s", &t.statTouch)
			monitoring.Logf("       track cleanup time (us): %s", &t.statCleanup)
			monitoring.Logf("          track post time (us): %s", &t.statPost)
			monitoring.Logf("                  total tracks: %d", t.nextID)
			monitoring.Logf("                total run time: %f sec", float64(t.statTotal.Avg)/1e6)
		}
	}
	return true
}

// untouchTracks clears the per-cycle scratch flag on every track.
func (t *Tracker) untouchTracks() {
	t.statUntouch.Begin()
	for _, tr := range t.tracks {
		tr.Touched = false
	}
	t.statUntouch.End()
}

// associateTracks matches detections to tracks by solving the
// assignment problem over gating distances, fuses accepted matches and
// returns the detections that remain unmatched.
func (t *Tracker) associateTracks(targets []Box, now time.Time) []Box {
	t.statAssociate.Begin()

	// Cost matrix: tracks are rows, detections are columns. Pairs of
	// different categories stay at the forbidden sentinel.
	cost := make([][]float64, len(t.tracks))
	for i := range cost {
		cost[i] = make([]float64, len(targets))
		for k := range cost[i] {
			cost[i][k] = forbiddenCost
		}
	}
	for k, target := range targets {
		mx, my := target.Mid()
		for i, tr := range t.tracks {
			if tr.Category == target.Category {
				cost[i][k] = tr.distanceTo(mx, my)
			}
		}
	}

	assign := hungarianAssign(cost)

	// Fuse assignments that pass the gate. Gating inspects the actual
	// cost, so forbidden cross-category pairs fail it even when the
	// solver had nothing better to pick; a rejected match leaves both
	// the track and the detection unmatched.
	for i, k := range assign {
		if k < 0 {
			continue
		}
		if cost[i][k] <= t.cfg.MaxDist {
			t.tracks[i].addTarget(targets[k], now)
			targets[k].ID = consumedID
		}
	}

	// Compact consumed detections out so only unmatched ones survive.
	kept := targets[:0]
	for _, b := range targets {
		if b.ID != consumedID {
			kept = append(kept, b)
		}
	}

	t.statAssociate.End()
	return kept
}

// createTracks births a new track for every detection left unmatched.
// Track ids are strictly monotonic for the life of the tracker and are
// never reused.
func (t *Tracker) createTracks(targets []Box, now time.Time) {
	t.statCreate.Begin()
	for _, b := range targets {
		t.nextID++
		t.tracks = append(t.tracks, newTrack(t.nextID, b, t.cfg.Filter, now))
	}
	t.statCreate.End()
}

// touchTracks advances every track that received no measurement this
// cycle by one prediction step.
func (t *Tracker) touchTracks() {
	t.statTouch.Begin()
	for _, tr := range t.tracks {
		if !tr.Touched {
			tr.updateTime()
		}
	}
	t.statTouch.End()
}

// cleanupTracks removes tracks whose last measurement is older than the
// age-out threshold.
func (t *Tracker) cleanupTracks(now time.Time) {
	t.statCleanup.Begin()
	kept := t.tracks[:0]
	for _, tr := range t.tracks {
		if now.Sub(tr.Stamp) <= t.cfg.MaxTime {
			kept = append(kept, tr)
		}
	}
	// Drop trailing references so aged-out tracks can be collected.
	for i := len(kept); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = kept
	t.statCleanup.End()
}

// postTracks snapshots the surviving tracks and hands them downstream.
// A busy sink costs this frame's emission, never the tracks themselves.
func (t *Tracker) postTracks() {
	t.statPost.Begin()

	snaps := make([]TrackSnapshot, 0, len(t.tracks))
	for _, tr := range t.tracks {
		snaps = append(snaps, snapshotOf(tr))
	}

	t.latestMu.Lock()
	t.latest = snaps
	t.latestMu.Unlock()

	if t.sink != nil {
		if !t.sink.AddMessage(snaps) {
			monitoring.Debugf("tracker: downstream busy, emission dropped")
		}
	}

	t.statPost.End()
}

// LatestTracks returns a copy of the most recent emission. Safe to call
// from any goroutine.
func (t *Tracker) LatestTracks() []TrackSnapshot {
	t.latestMu.Lock()
	defer t.latestMu.Unlock()
	out := make([]TrackSnapshot, len(t.latest))
	copy(out, t.latest)
	return out
}

var _ stage.Callbacks = (*Tracker)(nil)
var _ BoxListener = (*Tracker)(nil)
