package vision

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestCategoryFromLabel(t *testing.T) {
	t.Parallel()

	cases := map[string]Category{
		"person":     CategoryPerson,
		"cat":        CategoryPet,
		"dog":        CategoryPet,
		"car":        CategoryVehicle,
		"bus":        CategoryVehicle,
		"truck":      CategoryVehicle,
		"bicycle":    CategoryVehicle,
		"motorcycle": CategoryVehicle,
		"pet":        CategoryPet,
		"vehicle":    CategoryVehicle,
		"giraffe":    CategoryUnknown,
		"":           CategoryUnknown,
	}
	for label, want := range cases {
		assert.Equal(t, want, CategoryFromLabel(label), "label %q", label)
	}
}

func TestBoxMid(t *testing.T) {
	t.Parallel()

	b := Box{X: 100, Y: 200, W: 20, H: 40}
	mx, my := b.Mid()
	assert.Equal(t, 110.0, mx)
	assert.Equal(t, 220.0, my)
}

func TestSnapshotRounding(t *testing.T) {
	t.Parallel()

	tr := newTrack(7, Box{Category: CategoryPet, X: 10.6, Y: 19.4, W: 30.5, H: 40.49}, testTuning(), time.Now())
	got := snapshotOf(tr)
	want := TrackSnapshot{Category: CategoryPet, ID: 7, X: 11, Y: 19, W: 31, H: 40}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}
