// Package solve reconstructs 3D vertex positions from an axis assigned
// sketch by propagating values through a set of directional equations.
//
// Every vertex has x, y, z and t variables and every segment a length
// variable. Equations are derived from the connectivity of the registry: a
// segment moves its counterpart vertex along the segment axis by the
// segment length and keeps the other two coordinates, and a vertex attached
// to the interior of a segment is placed by its parameter t along it.
// Resolution starts from a seeded origin and a reference length and repeats
// passes until no variable is left. When passes stop making progress a
// single length or t is guessed from the 2D sketch proportions.
package solve

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/soypat/sketch3d/internal/d2"
	"github.com/soypat/sketch3d/internal/d3"
	"github.com/soypat/sketch3d/model"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnresolved is returned when variables remain unresolved after solving.
var ErrUnresolved = errors.New("unresolved geometry")

// UnresolvedError lists the variables left unresolved by Solve.
type UnresolvedError struct {
	Unresolved []Ref
	// Cause is non-nil when solving was interrupted by its context.
	Cause error
}

func (e *UnresolvedError) Error() string {
	msg := fmt.Sprintf("%v: %d variables left", ErrUnresolved, len(e.Unresolved))
	if len(e.Unresolved) > 0 {
		msg += fmt.Sprintf(" (first %v)", e.Unresolved[0])
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnresolvedError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrUnresolved, e.Cause}
	}
	return []error{ErrUnresolved}
}

// Options configures the solver.
type Options struct {
	// ReferenceLength is the length assigned to the seed segment.
	ReferenceLength float64
	// StallPasses is the number of consecutive passes without progress
	// after which a variable is guessed.
	StallPasses int
	// MaxStallBreaks caps the number of guessed variables.
	MaxStallBreaks int
	// RatioStep rounds the guessed 2D ratios. Zero disables rounding.
	RatioStep float64
}

// DefaultOptions returns the options of the reference sketch tool.
func DefaultOptions() Options {
	return Options{
		ReferenceLength: 2000,
		StallPasses:     3,
		MaxStallBreaks:  100,
		RatioStep:       0.1,
	}
}

// Variable is a solver unknown.
type Variable struct {
	Value    float64
	Resolved bool
	// Active is false for variables of entities that take no part in the
	// reconstruction. Inactive variables are never resolved nor counted.
	Active    bool
	Equations []Equation
}

func (v *Variable) add(eq Equation) {
	for _, e := range v.Equations {
		if e == eq {
			return
		}
	}
	v.Equations = append(v.Equations, eq)
}

// Stats describes a Solve run.
type Stats struct {
	Passes      int
	StallBreaks int
	// Forced lists guessed variables in the order they were forced.
	Forced []Ref
}

// System is the set of variables and equations built from a registry.
type System struct {
	reg  *model.Registry
	opts Options
	vars [numKinds][]Variable
	// edgeBase maps an edge attached vertex to its base segment.
	edgeBase    map[int]int
	seedVertex  int
	seedSegment int
	stats       Stats
}

// Build derives the variables and equations of the active segments of reg.
// A segment is active when it is straight, visible and has an axis assigned.
// The seed segment is the active segment with the lowest order and the seed
// vertex is its lowest order vertex.
func Build(reg *model.Registry, opts Options) (*System, error) {
	if opts.ReferenceLength <= 0 || math.IsNaN(opts.ReferenceLength) || math.IsInf(opts.ReferenceLength, 0) {
		return nil, fmt.Errorf("invalid reference length %g", opts.ReferenceLength)
	}
	if opts.StallPasses < 1 {
		opts.StallPasses = 1
	}
	nv, ns := len(reg.Vertices()), len(reg.Segments())
	sys := &System{
		reg:         reg,
		opts:        opts,
		edgeBase:    make(map[int]int),
		seedVertex:  -1,
		seedSegment: -1,
	}
	for k := KindX; k < KindLength; k++ {
		sys.vars[k] = make([]Variable, nv)
	}
	sys.vars[KindLength] = make([]Variable, ns)

	for _, s := range reg.Segments() {
		if !active(s) {
			continue
		}
		sys.vars[KindLength][s.Order].Active = true
		for _, vi := range s.Vertices {
			for k := KindX; k <= KindT; k++ {
				sys.vars[k][vi].Active = true
			}
		}
		if sys.seedSegment < 0 {
			sys.seedSegment = s.Order
			sys.seedVertex = min(s.Vertices[0], s.Vertices[1])
		}
	}
	if sys.seedSegment < 0 {
		return nil, errors.New("no active segments")
	}

	for _, v := range reg.Vertices() {
		if !sys.vars[KindX][v.Order].Active {
			continue
		}
		t := &sys.vars[KindT][v.Order]
		t.Resolved = true
		for _, c := range v.Connections {
			seg := reg.Segment(c.Segment)
			if !active(seg) {
				continue
			}
			if c.Role == model.RoleEdge {
				sys.edgeEquations(v, seg)
				t.Resolved = false
				sys.edgeBase[v.Order] = seg.Order
				continue
			}
			sys.segmentEquations(v, c, seg)
		}
	}
	for _, s := range reg.Segments() {
		if !active(s) {
			continue
		}
		k := coordKind(s.Axis.Index())
		sys.vars[KindLength][s.Order].add(Length{
			P1: Ref{k, s.Vertices[0]},
			P2: Ref{k, s.Vertices[1]},
		})
	}

	// Seed.
	for k := KindX; k <= KindT; k++ {
		sys.vars[k][sys.seedVertex].Value = 0
		sys.vars[k][sys.seedVertex].Resolved = true
	}
	l := &sys.vars[KindLength][sys.seedSegment]
	l.Value, l.Resolved = opts.ReferenceLength, true
	return sys, nil
}

func active(s *model.Segment) bool {
	return s != nil && s.Active() && s.Axis != model.AxisNone && s.Vertices[0] >= 0 && s.Vertices[1] >= 0
}

// segmentEquations registers on the counterpart of base the equations
// implied by segment seg.
func (sys *System) segmentEquations(base *model.Vertex, c model.Connection, seg *model.Segment) {
	axis := seg.Axis.Index()
	sign := -1.0
	if c.Role == model.RoleEnd {
		sign = 1
	}
	for i := 0; i < 3; i++ {
		k := coordKind(i)
		target := &sys.vars[k][c.Counterpart]
		if i == axis {
			target.add(CoordFromLength{
				Length: Ref{KindLength, seg.Order},
				From:   Ref{k, base.Order},
				Sign:   sign,
			})
		} else {
			target.add(SameCoord{From: Ref{k, base.Order}})
		}
	}
}

// edgeEquations registers the equations placing vertex p on the interior of
// segment base and those tying base to the perpendicular coordinates of p.
func (sys *System) edgeEquations(p *model.Vertex, base *model.Segment) {
	axis := base.Axis.Index()
	b0, b1 := base.Vertices[0], base.Vertices[1]
	for i := 0; i < 3; i++ {
		k := coordKind(i)
		if i == axis {
			sys.vars[k][p.Order].add(EdgeCoord{
				P1: Ref{k, b0}, P2: Ref{k, b1}, T: Ref{KindT, p.Order},
			})
			sys.vars[KindT][p.Order].add(EdgeParamT{
				P1: Ref{k, b0}, P2: Ref{k, b1}, P: Ref{k, p.Order},
			})
			continue
		}
		sys.vars[k][p.Order].add(SameCoord{From: Ref{k, b0}})
		sys.vars[k][b0].add(SameCoord{From: Ref{k, p.Order}})
		sys.vars[k][b1].add(SameCoord{From: Ref{k, p.Order}})
	}
}

// Var returns the variable referenced by r.
func (sys *System) Var(r Ref) *Variable {
	if r.Kind >= numKinds || r.Index < 0 || r.Index >= len(sys.vars[r.Kind]) {
		return nil
	}
	return &sys.vars[r.Kind][r.Index]
}

func (sys *System) lookup(r Ref) (float64, bool) {
	v := sys.Var(r)
	if v == nil || !v.Active || !v.Resolved {
		return 0, false
	}
	return v.Value, true
}

// Unresolved returns the active variables with no value, ordered by kind
// then index.
func (sys *System) Unresolved() []Ref {
	var refs []Ref
	for k := range sys.vars {
		for i := range sys.vars[k] {
			if v := &sys.vars[k][i]; v.Active && !v.Resolved {
				refs = append(refs, Ref{Kind(k), i})
			}
		}
	}
	return refs
}

func (sys *System) countUnresolved() (n int) {
	for k := range sys.vars {
		for i := range sys.vars[k] {
			if v := &sys.vars[k][i]; v.Active && !v.Resolved {
				n++
			}
		}
	}
	return n
}

// passOrder is the order in which variable kinds are visited in a pass.
var passOrder = [numKinds]Kind{KindLength, KindT, KindZ, KindY, KindX}

// pass tries the equations of every unresolved variable once. Values found
// during a pass are visible to the rest of the same pass.
func (sys *System) pass() {
	for _, k := range passOrder {
		for i := range sys.vars[k] {
			v := &sys.vars[k][i]
			if !v.Active || v.Resolved {
				continue
			}
			for _, eq := range v.Equations {
				if val, ok := Eval(eq, sys.lookup); ok {
					v.Value, v.Resolved = val, true
					break
				}
			}
		}
	}
}

// Solve runs resolution passes until every variable is resolved, no guess
// can be made, the stall break cap is reached or ctx is done. It returns an
// *UnresolvedError when variables are left.
func (sys *System) Solve(ctx context.Context) (Stats, error) {
	remaining := sys.countUnresolved()
	stalled := 0
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return sys.stats, &UnresolvedError{Unresolved: sys.Unresolved(), Cause: err}
		}
		sys.pass()
		sys.stats.Passes++
		after := sys.countUnresolved()
		if after < remaining {
			remaining, stalled = after, 0
			continue
		}
		stalled++
		if stalled < sys.opts.StallPasses {
			continue
		}
		stalled = 0
		if sys.stats.StallBreaks >= sys.opts.MaxStallBreaks {
			break
		}
		forced, ok := sys.force()
		if !ok {
			break
		}
		sys.stats.StallBreaks++
		sys.stats.Forced = append(sys.stats.Forced, forced)
		remaining = sys.countUnresolved()
	}
	if remaining > 0 {
		return sys.stats, &UnresolvedError{Unresolved: sys.Unresolved()}
	}
	return sys.stats, nil
}

// force guesses one variable from the sketch proportions: the first
// unresolved length, else the first unresolved t.
func (sys *System) force() (Ref, bool) {
	seed := sys.reg.Segment(sys.seedSegment)
	refLen2d := dist2d(seed.Endpoints[0], seed.Endpoints[1])
	refLen := sys.vars[KindLength][sys.seedSegment].Value
	for i := range sys.vars[KindLength] {
		v := &sys.vars[KindLength][i]
		if !v.Active || v.Resolved || refLen2d == 0 {
			continue
		}
		s := sys.reg.Segment(i)
		ratio := roundRatio(dist2d(s.Endpoints[0], s.Endpoints[1])/refLen2d, sys.opts.RatioStep)
		v.Value, v.Resolved = ratio*refLen, true
		return Ref{KindLength, i}, true
	}
	for i := range sys.vars[KindT] {
		v := &sys.vars[KindT][i]
		if !v.Active || v.Resolved {
			continue
		}
		baseOrder, ok := sys.edgeBase[i]
		if !ok {
			continue
		}
		base := sys.reg.Segment(baseOrder)
		b0 := sys.reg.Vertex(base.Vertices[0]).Position
		b1 := sys.reg.Vertex(base.Vertices[1]).Position
		den := dist2d(b0, b1)
		if den == 0 {
			continue
		}
		p := sys.reg.Vertex(i).Position
		v.Value, v.Resolved = roundRatio(dist2d(b0, p)/den, sys.opts.RatioStep), true
		return Ref{KindT, i}, true
	}
	return Ref{}, false
}

func dist2d(a, b r3.Vec) float64 {
	return r2.Norm(r2.Sub(d2.FromR3(b), d2.FromR3(a)))
}

// roundRatio rounds r to the nearest multiple of step. A ratio that would
// round to zero is kept as is.
func roundRatio(r, step float64) float64 {
	if step <= 0 {
		return r
	}
	q := math.Round(r/step) * step
	if q == 0 {
		return r
	}
	return q
}

// Position returns the solved position of vertex v.
func (sys *System) Position(v int) (r3.Vec, bool) {
	var p r3.Vec
	for k := KindX; k <= KindZ; k++ {
		c, ok := sys.lookup(Ref{k, v})
		if !ok {
			return r3.Vec{}, false
		}
		p = d3.WithComponent(p, int(k), c)
	}
	return p, true
}

// Length returns the solved length of segment s.
func (sys *System) Length(s int) (float64, bool) {
	return sys.lookup(Ref{KindLength, s})
}

// T returns the solved parameter of an edge attached vertex.
func (sys *System) T(v int) (float64, bool) {
	return sys.lookup(Ref{KindT, v})
}

// Seed returns the seed vertex and segment orders.
func (sys *System) Seed() (vertex, segment int) {
	return sys.seedVertex, sys.seedSegment
}

// Apply writes solved positions and lengths back to the registry. Vertices
// and segments with unresolved variables are marked unresolved.
func (sys *System) Apply() {
	for _, v := range sys.reg.Vertices() {
		v.Converted, v.Resolved = sys.Position(v.Order)
		if !v.Resolved {
			v.Converted = r3.Vec{}
		}
	}
	for _, s := range sys.reg.Segments() {
		s.Length, s.LengthResolved = sys.Length(s.Order)
	}
}
