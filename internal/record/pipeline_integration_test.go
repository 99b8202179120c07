package record_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sightline/internal/record"
	"github.com/banshee-data/sightline/internal/replay"
	"github.com/banshee-data/sightline/internal/stage"
	sqlitestore "github.com/banshee-data/sightline/internal/storage/sqlite"
	"github.com/banshee-data/sightline/internal/vision"
)

// TestPipelineEndToEnd drives the full replay → tracker → recorder
// chain on real stage workers and verifies the recorded observations.
func TestPipelineEndToEnd(t *testing.T) {
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	defer store.Close()

	recorder, err := record.NewRecorder(store, "integration")
	require.NoError(t, err)

	cfg := vision.DefaultTrackerConfig()
	cfg.Quiet = true
	tracker, err := vision.NewTracker(cfg, recorder)
	require.NoError(t, err)

	// A person standing still for 20 frames: every frame fuses into the
	// same track no matter how worker ticks interleave with frames.
	frames := make([][]vision.Box, 20)
	for i := range frames {
		frames[i] = []vision.Box{{Category: vision.CategoryPerson, X: 100, Y: 100, W: 20, H: 40}}
	}
	source, err := replay.NewSource(frames, 100, tracker, false)
	require.NoError(t, err)

	const yield = 500 * time.Microsecond
	stages := []*stage.Driver{
		stage.New(recorder, yield),
		stage.New(tracker, yield),
		stage.New(source, yield),
	}
	for i, name := range []string{"recorder", "tracker", "replay"} {
		require.NoError(t, stages[i].Start(name, 0))
		require.True(t, stages[i].Wait(stage.Paused, 2*time.Second))
	}
	for _, d := range stages {
		require.NoError(t, d.Run())
		require.True(t, d.Wait(stage.Running, 2*time.Second))
	}

	// 20 frames at 100 fps take ~200ms; allow plenty.
	deadline := time.Now().Add(5 * time.Second)
	for !source.Done() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, source.Done(), "replay never drained")
	time.Sleep(20 * time.Millisecond)

	// Upstream first, so nothing emits into a stopped inbox.
	for i := len(stages) - 1; i >= 0; i-- {
		require.NoError(t, stages[i].Stop())
	}

	paths, err := store.TrackPaths(recorder.RunID())
	require.NoError(t, err)
	require.Len(t, paths, 1, "one stationary person must stay one identity")

	path := paths[0]
	assert.Equal(t, uint32(1), path.TrackID)
	assert.Equal(t, "person", path.Category)
	assert.GreaterOrEqual(t, len(path.Observations), 5)
	for _, o := range path.Observations {
		assert.InDelta(t, 100, o.X, 1)
		assert.InDelta(t, 100, o.Y, 1)
	}
}
