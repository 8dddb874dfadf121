package solve

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/soypat/sketch3d/model"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

type line struct {
	a, b r3.Vec
	axis model.Axis
}

func newRegistry(t *testing.T, lines ...line) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()
	for _, ln := range lines {
		s := reg.NewSegment(ln.a)
		s.Endpoints = [2]r3.Vec{ln.a, ln.b}
		s.Straight = true
		s.Axis = ln.axis
		if _, err := reg.ResolveVertices(s); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func solveRegistry(t *testing.T, reg *model.Registry, opts Options) (*System, Stats, error) {
	t.Helper()
	sys, err := Build(reg, opts)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := sys.Solve(context.Background())
	return sys, stats, err
}

func checkConservation(t *testing.T, reg *model.Registry, sys *System) {
	t.Helper()
	for _, s := range reg.Segments() {
		p0, ok0 := sys.Position(s.Vertices[0])
		p1, ok1 := sys.Position(s.Vertices[1])
		l, okl := sys.Length(s.Order)
		if !ok0 || !ok1 || !okl {
			continue
		}
		i := s.Axis.Index()
		got := math.Abs(component(p1, i) - component(p0, i))
		if math.Abs(got-l) > tol*math.Max(1, l) {
			t.Errorf("segment %d: axis distance %g != length %g", s.Order, got, l)
		}
		for j := 0; j < 3; j++ {
			if j != i && math.Abs(component(p1, j)-component(p0, j)) > tol {
				t.Errorf("segment %d moves along off-axis %d: %v -> %v", s.Order, j, p0, p1)
			}
		}
	}
}

func component(v r3.Vec, i int) float64 {
	return [3]float64{v.X, v.Y, v.Z}[i]
}

func TestSolveSingleSegment(t *testing.T) {
	reg := newRegistry(t, line{r3.Vec{}, r3.Vec{X: 10}, model.AxisX})
	sys, _, err := solveRegistry(t, reg, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	p, ok := sys.Position(1)
	if !ok || p != (r3.Vec{X: 2000}) {
		t.Errorf("got end position %v (resolved %v)", p, ok)
	}
}

func TestSolveCorner(t *testing.T) {
	reg := newRegistry(t,
		line{r3.Vec{}, r3.Vec{X: 10, Y: 1}, model.AxisX},
		line{r3.Vec{}, r3.Vec{X: 5, Y: -8}, model.AxisY},
		line{r3.Vec{}, r3.Vec{Y: 20}, model.AxisZ},
	)
	sys, stats, err := solveRegistry(t, reg, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if stats.StallBreaks != 2 {
		t.Errorf("want two guessed lengths, got %d (%v)", stats.StallBreaks, stats.Forced)
	}
	checkConservation(t, reg, sys)
	l, _ := sys.Length(2)
	// 20 / |(10,1)| rounds to 2.
	if math.Abs(l-4000) > tol {
		t.Errorf("guessed length %g, want 4000", l)
	}
	sys.Apply()
	for _, v := range reg.Vertices() {
		if !v.Resolved {
			t.Errorf("vertex %d not resolved", v.Order)
		}
	}
}

func TestSolveChain(t *testing.T) {
	reg := newRegistry(t,
		line{r3.Vec{}, r3.Vec{X: 10}, model.AxisX},
		line{r3.Vec{X: 10}, r3.Vec{X: 10, Y: 10}, model.AxisZ},
		line{r3.Vec{X: 10, Y: 10}, r3.Vec{X: 15, Y: 13}, model.AxisY},
	)
	sys, _, err := solveRegistry(t, reg, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	checkConservation(t, reg, sys)
	want := []r3.Vec{{}, {X: 2000}, {X: 2000, Z: 2000}, {X: 2000, Y: 1200, Z: 2000}}
	for i, w := range want {
		p, _ := sys.Position(i)
		if r3.Norm(r3.Sub(p, w)) > 1e-6 {
			t.Errorf("vertex %d at %v, want %v", i, p, w)
		}
	}
}

func TestSolveDisconnected(t *testing.T) {
	reg := newRegistry(t,
		line{r3.Vec{}, r3.Vec{X: 10}, model.AxisX},
		line{r3.Vec{Y: 30}, r3.Vec{Y: 40}, model.AxisZ},
	)
	sys, _, err := solveRegistry(t, reg, DefaultOptions())
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("want ErrUnresolved, got %v", err)
	}
	var uerr *UnresolvedError
	if !errors.As(err, &uerr) || len(uerr.Unresolved) == 0 {
		t.Fatalf("want *UnresolvedError listing variables, got %v", err)
	}
	for _, r := range uerr.Unresolved {
		if r.Index < 2 && r.Kind != KindLength {
			t.Errorf("seeded component reported unresolved: %v", r)
		}
	}
	sys.Apply()
	if reg.Vertex(2).Resolved || reg.Vertex(3).Resolved {
		t.Error("disconnected vertices marked resolved")
	}
	if !reg.Vertex(1).Resolved {
		t.Error("connected vertex not resolved")
	}
}

func TestSolveStallCap(t *testing.T) {
	reg := newRegistry(t,
		line{r3.Vec{}, r3.Vec{X: 10}, model.AxisX},
		line{r3.Vec{}, r3.Vec{Y: 10}, model.AxisZ},
	)
	opts := DefaultOptions()
	opts.MaxStallBreaks = 0
	_, stats, err := solveRegistry(t, reg, opts)
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("want ErrUnresolved, got %v", err)
	}
	if stats.StallBreaks != 0 {
		t.Errorf("got %d stall breaks past the cap", stats.StallBreaks)
	}
}

func TestSolveEdgeAttachment(t *testing.T) {
	reg := newRegistry(t,
		line{r3.Vec{}, r3.Vec{X: 10}, model.AxisX},
		line{r3.Vec{X: 4}, r3.Vec{X: 4, Y: 10}, model.AxisZ},
	)
	reg.Attach(0, model.EdgeAttachment{Segment: 1, At: r3.Vec{X: 4}})
	if b := reg.ReconcileAttachments(); len(b) != 1 || b[0].Vertex != 2 {
		t.Fatalf("bad bindings %v", b)
	}
	sys, _, err := solveRegistry(t, reg, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	tv, ok := sys.T(2)
	if !ok || math.Abs(tv-0.4) > tol {
		t.Errorf("got t = %g (resolved %v), want 0.4", tv, ok)
	}
	p, _ := sys.Position(2)
	if r3.Norm(r3.Sub(p, r3.Vec{X: 800})) > 1e-6 {
		t.Errorf("attached vertex at %v", p)
	}
	checkConservation(t, reg, sys)
}

func TestSolveCancelled(t *testing.T) {
	reg := newRegistry(t, line{r3.Vec{}, r3.Vec{X: 10}, model.AxisX})
	sys, err := Build(reg, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sys.Solve(ctx)
	if !errors.Is(err, ErrUnresolved) || !errors.Is(err, context.Canceled) {
		t.Fatalf("want unresolved cancellation, got %v", err)
	}
	if _, ok := sys.Position(1); ok {
		t.Error("position resolved after cancellation")
	}
}

func TestBuildSkipsInactive(t *testing.T) {
	reg := newRegistry(t,
		line{r3.Vec{}, r3.Vec{X: 10}, model.AxisX},
		line{r3.Vec{}, r3.Vec{Y: 10}, model.AxisNone},
	)
	reg.Segment(0).Hidden = true
	sys, err := Build(reg, DefaultOptions())
	if err == nil {
		t.Fatalf("want error without active segments, got system seeded at %v", sys.seedSegment)
	}

	reg = newRegistry(t,
		line{r3.Vec{}, r3.Vec{X: 10}, model.AxisX},
		line{r3.Vec{Y: 5}, r3.Vec{Y: 10}, model.AxisZ},
	)
	reg.Segment(0).Hidden = true
	sys, err = Build(reg, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if v, s := sys.Seed(); v != 2 || s != 1 {
		t.Errorf("seed vertex %d segment %d, want 2 and 1", v, s)
	}
	if _, err := sys.Solve(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, r := range []Ref{{KindX, 0}, {KindLength, 0}} {
		if sys.Var(r).Active {
			t.Errorf("%v of hidden segment is active", r)
		}
	}
}

func TestEquationDedup(t *testing.T) {
	var v Variable
	eqs := []Equation{
		SameCoord{From: Ref{KindX, 1}},
		CoordFromLength{Length: Ref{KindLength, 0}, From: Ref{KindY, 1}, Sign: 1},
		SameCoord{From: Ref{KindX, 1}},
		CoordFromLength{Length: Ref{KindLength, 0}, From: Ref{KindY, 1}, Sign: -1},
		CoordFromLength{Length: Ref{KindLength, 0}, From: Ref{KindY, 1}, Sign: 1},
	}
	for _, eq := range eqs {
		v.add(eq)
	}
	if len(v.Equations) != 3 {
		t.Errorf("got %d equations, want 3", len(v.Equations))
	}
}

func TestEval(t *testing.T) {
	vals := map[Ref]float64{
		{KindX, 0}:      1,
		{KindX, 1}:      5,
		{KindX, 2}:      2,
		{KindT, 2}:      0.25,
		{KindLength, 0}: 3,
	}
	lookup := func(r Ref) (float64, bool) {
		v, ok := vals[r]
		return v, ok
	}
	for _, test := range []struct {
		eq   Equation
		want float64
		ok   bool
	}{
		{SameCoord{Ref{KindX, 1}}, 5, true},
		{CoordFromLength{Ref{KindLength, 0}, Ref{KindX, 1}, -1}, 2, true},
		{Length{Ref{KindX, 1}, Ref{KindX, 0}}, 4, true},
		{EdgeCoord{Ref{KindX, 0}, Ref{KindX, 1}, Ref{KindT, 2}}, 2, true},
		{EdgeParamT{Ref{KindX, 0}, Ref{KindX, 1}, Ref{KindX, 2}}, 0.25, true},
		{EdgeParamT{Ref{KindX, 0}, Ref{KindX, 0}, Ref{KindX, 2}}, 0, false},
		{SameCoord{Ref{KindY, 9}}, 0, false},
		{Constant{7}, 7, true},
	} {
		got, ok := Eval(test.eq, lookup)
		if ok != test.ok || (ok && got != test.want) {
			t.Errorf("%#v: got %g %v, want %g %v", test.eq, got, ok, test.want, test.ok)
		}
	}
}
