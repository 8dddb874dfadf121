package d2

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// R2 helpers for the drawing plane. Sketch points live in r3 with a constant
// Z so most of these drop the Z component on the way in.

// FromR3 drops the Z component of v.
func FromR3(v r3.Vec) r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}

// IsFinite returns false if any component is NaN or infinite.
func IsFinite(a r2.Vec) bool {
	return !math.IsNaN(a.X) && !math.IsNaN(a.Y) && !math.IsInf(a.X, 0) && !math.IsInf(a.Y, 0)
}

// Feature identifies which part of a segment a closest point lies on.
type Feature int

const (
	FeatureStart Feature = iota
	FeatureEnd
	FeatureInterior
)

// ClosestOnSegment returns the point on the finite segment ln closest to p
// and the feature of the segment it landed on. Degenerate segments
// always return the start point.
func ClosestOnSegment(p r2.Vec, ln [2]r2.Vec) (r2.Vec, Feature) {
	dir := r2.Sub(ln[1], ln[0])
	len2 := r2.Norm2(dir)
	if len2 == 0 {
		return ln[0], FeatureStart
	}
	t := r2.Dot(r2.Sub(p, ln[0]), dir) / len2
	switch {
	case t <= 0:
		return ln[0], FeatureStart
	case t >= 1:
		return ln[1], FeatureEnd
	}
	return r2.Add(ln[0], r2.Scale(t, dir)), FeatureInterior
}
