// Package orientation turns deviceorientation angles into a coarse label.
package orientation

import "math"

// Label is a coarse device orientation.
type Label string

const (
	Unknown            Label = "unknown"
	Flat               Label = "flat"
	Portrait           Label = "portrait"
	PortraitUpsideDown Label = "portrait_upside_down"
	LandscapeLeft      Label = "landscape_left"
	LandscapeRight     Label = "landscape_right"
)

// FlatTolerance is how far (degrees) both tilt angles may stray from zero
// for the device to count as lying flat.
const FlatTolerance = 20.0

// Reading is one deviceorientation event. Nil angles were reported as null.
type Reading struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

// Classify maps front-back tilt (beta, -180..180) and left-right tilt
// (gamma, -90..90) to a Label.
func Classify(r Reading) Label {
	if r.Beta == nil || r.Gamma == nil {
		return Unknown
	}
	beta, gamma := *r.Beta, *r.Gamma
	if math.IsNaN(beta) || math.IsNaN(gamma) {
		return Unknown
	}

	if math.Abs(beta) < FlatTolerance && math.Abs(gamma) < FlatTolerance {
		return Flat
	}
	if math.Abs(gamma) > math.Abs(beta) {
		if gamma > 0 {
			return LandscapeRight
		}
		return LandscapeLeft
	}
	if beta > 0 {
		return Portrait
	}
	return PortraitUpsideDown
}

// Tracker remembers the last label so callers only react to changes.
type Tracker struct {
	last Label
}

// Update classifies r and reports whether the label changed.
func (t *Tracker) Update(r Reading) (Label, bool) {
	label := Classify(r)
	if label == t.last {
		return label, false
	}
	t.last = label
	return label, true
}
