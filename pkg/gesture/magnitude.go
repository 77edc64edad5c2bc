package gesture

import "math"

// StandardGravity is the nominal gravitational acceleration in m/s².
const StandardGravity = 9.80665

// Norm returns the Euclidean norm of a 3-vector.
func Norm(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// Magnitude returns the gravity-corrected norm of a sample: the plain norm
// for linear acceleration, |‖v‖ − g| when the sample includes gravity.
func Magnitude(s Sample) float64 {
	m := Norm(s.Vector())
	if s.IncludesGravity {
		m = math.Abs(m - StandardGravity)
	}
	return m
}

// Delta returns the norm of the change from prev to s.
func Delta(prev, s Sample) float64 {
	px, py, pz := prev.Vector()
	x, y, z := s.Vector()
	return Norm(x-px, y-py, z-pz)
}

// baseline holds the previous processed sample, if there is one.
type baseline struct {
	sample Sample
	ok     bool
}

func (b *baseline) set(s Sample) {
	b.sample = s
	b.ok = true
}

func (b *baseline) reset() {
	*b = baseline{}
}

// motionScalar computes the value compared against the threshold. It returns
// ready=false when the sample can only serve as a delta baseline: the first
// sample after start, or one whose gravity flag differs from the previous.
func motionScalar(cfg Config, prev baseline, s Sample) (scalar float64, ready bool) {
	if !cfg.UseDeltaFromPrevious {
		return Magnitude(s), true
	}
	if !prev.ok || prev.sample.IncludesGravity != s.IncludesGravity {
		return 0, false
	}
	return Delta(prev.sample, s), true
}
