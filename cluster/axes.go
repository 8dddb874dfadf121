package cluster

import (
	"fmt"
	"math"
	"sort"

	"github.com/soypat/sketch3d/model"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Options configures axis clustering.
type Options struct {
	// Iterations is the number of Lloyd iterations after seeding.
	Iterations int
	// Separation is the least distance between two final unit direction
	// centroids. Closer groups are the same direction.
	Separation float64
}

// DefaultOptions runs 100 Lloyd iterations and treats directions closer
// than 1e-6 as parallel.
func DefaultOptions() Options {
	return Options{Iterations: 100, Separation: 1e-6}
}

// Result is the outcome of a successful clustering, indexed by axis:
// element 0 holds the X group, 1 the Y group and 2 the Z group.
type Result struct {
	// Segments lists segment orders per axis group.
	Segments [3][]int
	// MeanSlope is the mean absolute fitted slope of each group.
	MeanSlope [3]float64
	// Centroids are the final direction centroids of each group.
	Centroids [3]r3.Vec
}

type group struct {
	segments  []int
	slopes    []float64
	centroid  r3.Vec
	meanSlope float64
}

// Assign clusters the directions of all active segments of reg into three
// groups and labels them X, Y and Z by increasing mean absolute slope.
// Segment axes are written only on success. Groups whose mean slope ties keep
// their seeding order.
func Assign(reg *model.Registry, opts Options) (Result, error) {
	var (
		dirs   []r3.Vec
		active []*model.Segment
	)
	for _, s := range reg.Segments() {
		if !s.Active() {
			continue
		}
		d, ok := s.Direction()
		if !ok {
			return Result{}, fmt.Errorf("%w: segment %d has no direction", ErrDegenerate, s.Order)
		}
		dirs = append(dirs, d)
		active = append(active, s)
	}
	if len(dirs) < 3 {
		return Result{}, fmt.Errorf("%w: %d straight segments", ErrDegenerate, len(dirs))
	}

	assign, centroids := KMeans(dirs, 3, opts.Iterations)
	groups := make([]group, 3)
	for i, c := range assign {
		groups[c].segments = append(groups[c].segments, active[i].Order)
		groups[c].slopes = append(groups[c].slopes, math.Abs(active[i].Slope))
	}
	for i := range groups {
		if len(groups[i].segments) == 0 {
			return Result{}, fmt.Errorf("%w: cluster %d is empty", ErrDegenerate, i)
		}
		for j := range centroids[:i] {
			if r3.Norm(r3.Sub(centroids[i], centroids[j])) < opts.Separation {
				return Result{}, fmt.Errorf("%w: clusters %d and %d are parallel", ErrDegenerate, j, i)
			}
		}
		groups[i].centroid = centroids[i]
		groups[i].meanSlope = stat.Mean(groups[i].slopes, nil)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].meanSlope < groups[j].meanSlope
	})

	var res Result
	for i, g := range groups {
		axis := model.AxisFromIndex(i)
		for _, order := range g.segments {
			reg.Segment(order).Axis = axis
		}
		res.Segments[i] = g.segments
		res.MeanSlope[i] = g.meanSlope
		res.Centroids[i] = g.centroid
	}
	return res, nil
}

// OrderEndpoints normalizes the direction of every active axis assigned
// segment: Z segments run towards increasing y and X and Y segments towards
// increasing x. It returns the orders of the swapped segments.
func OrderEndpoints(reg *model.Registry) []int {
	var swapped []int
	for _, s := range reg.Segments() {
		if !s.Active() || s.Axis == model.AxisNone {
			continue
		}
		p0, p1 := s.Endpoints[0], s.Endpoints[1]
		var swap bool
		if s.Axis == model.AxisZ {
			swap = p0.Y > p1.Y
		} else {
			swap = p0.X > p1.X
		}
		if swap {
			reg.SwapEndpoints(s)
			swapped = append(swapped, s.Order)
		}
	}
	return swapped
}
