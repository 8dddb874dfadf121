// Package fit straightens freehand strokes into line segments.
package fit

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrTooFewSamples is returned for strokes that are left freehand.
	ErrTooFewSamples = errors.New("too few samples to straighten stroke")
	// ErrSingular is returned when the least squares system cannot be solved.
	ErrSingular = errors.New("singular least squares fit")
)

// Options configures line fitting.
type Options struct {
	// MinSamples is the least number of samples a stroke needs to be straightened.
	MinSamples int
	// VerticalSpread is the fraction of the view scale below which the
	// horizontal spread of a stroke makes it a vertical line.
	VerticalSpread float64
	// PlaneZ is the Z coordinate of the drawing plane.
	PlaneZ float64
}

// DefaultOptions straightens strokes of more than 10 samples and treats
// strokes narrower than a quarter of the view scale as vertical.
func DefaultOptions() Options {
	return Options{
		MinSamples:     11,
		VerticalSpread: 0.25,
		PlaneZ:         10,
	}
}

// Snap reports which stroke ends were snapped to existing geometry.
// Snapped ends keep their raw sample position.
type Snap struct {
	Start, End bool
}

// Line is a straightened stroke.
type Line struct {
	Start, End r3.Vec
	// Slope and Intercept describe y = Slope*x + Intercept.
	// Vertical lines have Slope = +Inf and a zero Intercept.
	Slope, Intercept float64
	Vertical         bool
}

// Fit straightens the samples of a stroke. scale is the view scale in world
// units and sizes the vertical line threshold.
func Fit(samples []r3.Vec, scale float64, snap Snap, opts Options) (Line, error) {
	n := len(samples)
	if n < opts.MinSamples || n < 2 {
		return Line{}, ErrTooFewSamples
	}
	first, last := samples[0], samples[n-1]
	xs := make([]float64, n)
	ys := make([]float64, n)
	xmin, xmax := math.Inf(1), math.Inf(-1)
	for i, p := range samples {
		xs[i], ys[i] = p.X, p.Y
		xmin = math.Min(xmin, p.X)
		xmax = math.Max(xmax, p.X)
	}

	if xmax-xmin < scale*opts.VerticalSpread {
		ln := Line{Start: first, Slope: math.Inf(1), Vertical: true}
		if snap.End {
			ln.End = last
		} else {
			ln.End = r3.Vec{X: median(xs), Y: last.Y, Z: opts.PlaneZ}
		}
		return ln, nil
	}

	a, b, err := LeastSquares(xs, ys)
	if err != nil {
		return Line{}, err
	}
	ln := Line{Slope: a, Intercept: b}
	if snap.Start {
		ln.Start = first
	} else {
		ln.Start = r3.Vec{X: first.X, Y: a*first.X + b, Z: opts.PlaneZ}
	}
	if snap.End {
		ln.End = last
	} else {
		ln.End = r3.Vec{X: last.X, Y: a*last.X + b, Z: opts.PlaneZ}
	}
	return ln, nil
}

// LeastSquares fits y = a*x + b by solving the normal equations
// (AᵀA) X = AᵀB where the rows of A are [x_i, 1].
func LeastSquares(xs, ys []float64) (a, b float64, err error) {
	if len(xs) != len(ys) {
		return 0, 0, errors.New("sample length mismatch")
	}
	n := len(xs)
	if n < 2 {
		return 0, 0, ErrSingular
	}
	A := mat.NewDense(n, 2, nil)
	for i, x := range xs {
		A.Set(i, 0, x)
		A.Set(i, 1, 1)
	}
	B := mat.NewVecDense(n, append([]float64(nil), ys...))

	var ata, inv mat.Dense
	ata.Mul(A.T(), A)
	if err := inv.Inverse(&ata); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	var atb, x mat.VecDense
	atb.MulVec(A.T(), B)
	x.MulVec(&inv, &atb)
	a, b = x.AtVec(0), x.AtVec(1)
	if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
		return 0, 0, ErrSingular
	}
	return a, b, nil
}

// median averages the two middle values for even length input.
func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
