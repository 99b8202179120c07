package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sightline/internal/vision"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tracks.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening an already-migrated database is a no-op, not an error.
	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestInsertAndQueryEmissions(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	started := time.Now()
	require.NoError(t, s.BeginRun("run-1", "replay:walk.jsonl", started))

	frame1 := []vision.TrackSnapshot{
		{Category: vision.CategoryPerson, ID: 1, X: 100, Y: 100, W: 20, H: 40},
		{Category: vision.CategoryVehicle, ID: 2, X: 300, Y: 80, W: 60, H: 30},
	}
	frame2 := []vision.TrackSnapshot{
		{Category: vision.CategoryPerson, ID: 1, X: 110, Y: 100, W: 20, H: 40},
	}
	require.NoError(t, s.InsertEmission("run-1", started, frame1))
	require.NoError(t, s.InsertEmission("run-1", started.Add(33*time.Millisecond), frame2))

	count, err := s.ObservationCount("run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	paths, err := s.TrackPaths("run-1")
	require.NoError(t, err)
	require.Len(t, paths, 2)

	want := TrackPath{
		TrackID:  1,
		Category: "person",
		Observations: []Observation{
			{TrackID: 1, Category: "person", TSUnixNanos: started.UnixNano(), X: 100, Y: 100, W: 20, H: 40},
			{TrackID: 1, Category: "person", TSUnixNanos: started.Add(33 * time.Millisecond).UnixNano(), X: 110, Y: 100, W: 20, H: 40},
		},
	}
	if diff := cmp.Diff(want, paths[0]); diff != "" {
		t.Errorf("track path mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint32(2), paths[1].TrackID)
	assert.Len(t, paths[1].Observations, 1)
}

func TestInsertEmptyEmissionIsNoop(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	require.NoError(t, s.BeginRun("run-1", "test", time.Now()))
	require.NoError(t, s.InsertEmission("run-1", time.Now(), nil))

	count, err := s.ObservationCount("run-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLatestRunID(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	_, err := s.LatestRunID()
	assert.Error(t, err, "empty store has no latest run")

	base := time.Now()
	require.NoError(t, s.BeginRun("older", "test", base))
	require.NoError(t, s.BeginRun("newer", "test", base.Add(time.Second)))

	latest, err := s.LatestRunID()
	require.NoError(t, err)
	assert.Equal(t, "newer", latest)
}

func TestObservationCentroid(t *testing.T) {
	t.Parallel()

	o := Observation{X: 100, Y: 200, W: 21, H: 41}
	assert.Equal(t, 110.5, o.MidX())
	assert.Equal(t, 220.5, o.MidY())
}
