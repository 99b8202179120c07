package vision

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// TrackState is the maturity of a track's filter: Init until the second
// observation arrives, then Active forever.
type TrackState string

const (
	TrackInit   TrackState = "init"
	TrackActive TrackState = "active"
)

// The constant-velocity state-transition matrix over the filter state
// [cx, cy, vx, vy, ax, ay]: position advances by velocity, velocity by
// acceleration. The acceleration rows are zero, so acceleration is a
// per-step kick injected only through the process noise Q rather than an
// integrated quantity that could drift.
var kalmanA = mat.NewDense(6, 6, []float64{
	1, 0, 1, 0, 0, 0,
	0, 1, 0, 1, 0, 0,
	0, 0, 1, 0, 1, 0,
	0, 0, 0, 1, 0, 1,
	0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0,
})

// kalmanH projects the filter state onto the observed centroid.
var kalmanH = mat.NewDense(2, 6, []float64{
	1, 0, 0, 0, 0, 0,
	0, 1, 0, 0, 0, 0,
})

// scaledEye returns v·I(n).
func scaledEye(n int, v float64) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, v)
	}
	return d
}

// FilterTuning holds the Kalman noise parameters shared by all tracks.
type FilterTuning struct {
	InitialError    float64 // Initial covariance diagonal P₀
	MeasureVariance float64 // Measurement noise diagonal R, must be > 0
	ProcessVariance float64 // Process noise diagonal Q
}

// Track is one persistent identity fused from detections over time. The
// raw Box is the last measurement as observed, not the filter estimate;
// the filtered centroid lives in the state vector.
type Track struct {
	ID       uint32
	Category Category
	Box      Box
	Stamp    time.Time
	Touched  bool // scratch flag, valid only within one association cycle
	State    TrackState

	x *mat.VecDense // [cx, cy, vx, vy, ax, ay]
	p *mat.Dense    // 6×6 error covariance
	q *mat.Dense    // 6×6 process covariance
	r *mat.Dense    // 2×2 measurement covariance
}

// newTrack seeds a track from its first detection: centroid position,
// zero velocity and acceleration, and maximal position uncertainty.
func newTrack(id uint32, box Box, tuning FilterTuning, now time.Time) *Track {
	mx, my := box.Mid()
	return &Track{
		ID:       id,
		Category: box.Category,
		Box:      box,
		Stamp:    now,
		Touched:  true,
		State:    TrackInit,

		x: mat.NewVecDense(6, []float64{mx, my, 0, 0, 0, 0}),
		p: scaledEye(6, tuning.InitialError),
		q: scaledEye(6, tuning.ProcessVariance),
		r: scaledEye(2, tuning.MeasureVariance),
	}
}

// updateTime is the Kalman prediction step: X ← A·X, P ← A·P·Aᵀ + Q.
// It also marks the track touched for the current cycle.
func (t *Track) updateTime() {
	t.Touched = true

	var x mat.VecDense
	x.MulVec(kalmanA, t.x)
	t.x.CopyVec(&x)

	var ap, apat mat.Dense
	ap.Mul(kalmanA, t.p)
	apat.Mul(&ap, kalmanA.T())
	apat.Add(&apat, t.q)
	t.p.Copy(&apat)
}

// updateMeasure fuses the measured centroid (zx, zy):
// K ← P·Hᵀ·(H·P·Hᵀ + R)⁻¹, X ← X + K·(Z − H·X), P ← (I − K·H)·P.
// The innovation covariance cannot be singular with R positive-definite.
func (t *Track) updateMeasure(zx, zy float64) {
	var pht mat.Dense
	pht.Mul(t.p, kalmanH.T()) // 6×2

	var s mat.Dense
	s.Mul(kalmanH, &pht) // 2×2
	s.Add(&s, t.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return
	}

	var k mat.Dense
	k.Mul(&pht, &sInv) // 6×2 Kalman gain

	var hx mat.VecDense
	hx.MulVec(kalmanH, t.x)
	innovation := mat.NewVecDense(2, []float64{zx - hx.AtVec(0), zy - hx.AtVec(1)})

	var kz mat.VecDense
	kz.MulVec(&k, innovation)
	t.x.AddVec(t.x, &kz)

	var kh, ikh, p mat.Dense
	kh.Mul(&k, kalmanH)
	ikh.Sub(scaledEye(6, 1), &kh)
	p.Mul(&ikh, t.p)
	t.p.Copy(&p)
}

// distanceTo is the gating distance: Euclidean distance between a
// candidate centroid and the track's filtered centroid.
func (t *Track) distanceTo(mx, my float64) float64 {
	dx := mx - t.x.AtVec(0)
	dy := my - t.x.AtVec(1)
	return mat.Norm(mat.NewVecDense(2, []float64{dx, dy}), 2)
}

// addTarget fuses a matched detection: stamp and raw box are taken as
// observed; a track still in Init seeds its velocity from the
// single-frame delta before the predict step, so the first prediction
// already advances by that velocity and the filter has no cold-start
// lag. Then predict, promote to Active, and correct with the measured
// centroid.
func (t *Track) addTarget(box Box, now time.Time) {
	t.Stamp = now
	t.Box = box
	mx, my := box.Mid()

	if t.State == TrackInit {
		t.x.SetVec(2, mx-t.x.AtVec(0))
		t.x.SetVec(3, my-t.x.AtVec(1))
	}
	t.updateTime()

	t.State = TrackActive

	t.updateMeasure(mx, my)
}

// FilteredMid returns the filter's current centroid estimate.
func (t *Track) FilteredMid() (x, y float64) {
	return t.x.AtVec(0), t.x.AtVec(1)
}

// Velocity returns the filter's current velocity estimate in pixels per
// frame.
func (t *Track) Velocity() (vx, vy float64) {
	return t.x.AtVec(2), t.x.AtVec(3)
}
