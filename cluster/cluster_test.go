package cluster

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/sketch3d/model"
	"gonum.org/v1/gonum/spatial/r3"
)

func addLine(t *testing.T, reg *model.Registry, a, b r3.Vec) *model.Segment {
	t.Helper()
	s := reg.NewSegment(a)
	s.Samples = append(s.Samples, b)
	s.Endpoints = [2]r3.Vec{a, b}
	s.Straight = true
	if dx := b.X - a.X; dx == 0 {
		s.Slope = math.Inf(1)
	} else {
		s.Slope = (b.Y - a.Y) / dx
	}
	if _, err := reg.ResolveVertices(s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAssignThreeDirections(t *testing.T) {
	reg := model.NewRegistry()
	horizontal := addLine(t, reg, r3.Vec{}, r3.Vec{X: 10})
	vertical := addLine(t, reg, r3.Vec{}, r3.Vec{Y: 10})
	diagonal := addLine(t, reg, r3.Vec{X: 10}, r3.Vec{Y: 10})

	res, err := Assign(reg, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		s    *model.Segment
		want model.Axis
	}{
		{horizontal, model.AxisX},
		{diagonal, model.AxisY},
		{vertical, model.AxisZ},
	} {
		if test.s.Axis != test.want {
			t.Errorf("segment %d: got axis %v, want %v", test.s.Order, test.s.Axis, test.want)
		}
	}
	for i, segs := range res.Segments {
		if len(segs) != 1 {
			t.Errorf("group %d has %d segments", i, len(segs))
		}
	}
	if !(res.MeanSlope[0] <= res.MeanSlope[1] && res.MeanSlope[1] <= res.MeanSlope[2]) {
		t.Errorf("groups not ranked by slope: %v", res.MeanSlope)
	}
}

func TestAssignEverySegment(t *testing.T) {
	reg := model.NewRegistry()
	// Isometric box sketch: three directions repeated.
	for i := 0; i < 3; i++ {
		off := r3.Vec{X: float64(i) * 3, Y: float64(i) * 2}
		addLine(t, reg, off, r3.Add(off, r3.Vec{X: 10, Y: 0.5}))
		addLine(t, reg, off, r3.Add(off, r3.Vec{X: 0.1, Y: 10}))
		addLine(t, reg, off, r3.Add(off, r3.Vec{X: -8, Y: 5}))
	}
	freehand := reg.NewSegment(r3.Vec{X: 50})
	hidden := addLine(t, reg, r3.Vec{X: 60}, r3.Vec{X: 70, Y: 1})
	hidden.Hidden = true

	res, err := Assign(reg, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, segs := range res.Segments {
		total += len(segs)
	}
	if total != 9 {
		t.Errorf("clustered %d segments, want 9", total)
	}
	for _, s := range reg.Segments() {
		if !s.Active() {
			continue
		}
		if s.Axis == model.AxisNone {
			t.Errorf("segment %d left without axis", s.Order)
		}
	}
	// Segments sharing a direction share an axis.
	for i := 3; i < 9; i++ {
		if reg.Segment(i).Axis != reg.Segment(i%3).Axis {
			t.Errorf("segment %d axis %v differs from segment %d axis %v", i, reg.Segment(i).Axis, i%3, reg.Segment(i%3).Axis)
		}
	}
	if freehand.Axis != model.AxisNone || hidden.Axis != model.AxisNone {
		t.Error("inactive segments were assigned an axis")
	}
}

func TestAssignDegenerate(t *testing.T) {
	t.Run("parallel", func(t *testing.T) {
		reg := model.NewRegistry()
		addLine(t, reg, r3.Vec{}, r3.Vec{X: 10})
		addLine(t, reg, r3.Vec{Y: 5}, r3.Vec{X: 10, Y: 5})
		_, err := Assign(reg, DefaultOptions())
		if !errors.Is(err, ErrDegenerate) {
			t.Fatalf("want ErrDegenerate, got %v", err)
		}
	})
	t.Run("two groups", func(t *testing.T) {
		reg := model.NewRegistry()
		addLine(t, reg, r3.Vec{}, r3.Vec{X: 10})
		addLine(t, reg, r3.Vec{Y: 5}, r3.Vec{X: 10, Y: 5})
		addLine(t, reg, r3.Vec{}, r3.Vec{Y: 10})
		_, err := Assign(reg, DefaultOptions())
		if !errors.Is(err, ErrDegenerate) {
			t.Fatalf("want ErrDegenerate, got %v", err)
		}
		for _, s := range reg.Segments() {
			if s.Axis != model.AxisNone {
				t.Errorf("segment %d assigned %v on failure", s.Order, s.Axis)
			}
		}
	})
}

func TestAssignParallelThree(t *testing.T) {
	// Same slope, different lengths and offsets: the unit directions differ
	// only by rounding so no cluster is empty.
	reg := model.NewRegistry()
	addLine(t, reg, r3.Vec{}, r3.Vec{X: 10, Y: 3})
	addLine(t, reg, r3.Vec{X: 1, Y: 7}, r3.Vec{X: 21, Y: 13})
	addLine(t, reg, r3.Vec{X: 2.5, Y: -4}, r3.Vec{X: 5.2, Y: -3.19})
	addLine(t, reg, r3.Vec{X: -3, Y: 1.1}, r3.Vec{X: 0.7, Y: 2.21})
	_, err := Assign(reg, DefaultOptions())
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("want ErrDegenerate for parallel segments, got %v", err)
	}
	for _, s := range reg.Segments() {
		if s.Axis != model.AxisNone {
			t.Errorf("segment %d assigned %v", s.Order, s.Axis)
		}
	}
}

func TestOrderEndpoints(t *testing.T) {
	reg := model.NewRegistry()
	x := addLine(t, reg, r3.Vec{X: 10}, r3.Vec{})
	z := addLine(t, reg, r3.Vec{Y: 10}, r3.Vec{})
	x.Axis, z.Axis = model.AxisX, model.AxisZ
	start, end := x.Vertices[0], x.Vertices[1]

	swapped := OrderEndpoints(reg)
	if len(swapped) != 2 {
		t.Fatalf("swapped %v, want both segments", swapped)
	}
	if x.Endpoints[0].X > x.Endpoints[1].X {
		t.Error("X segment not ordered by x")
	}
	if z.Endpoints[0].Y > z.Endpoints[1].Y {
		t.Error("Z segment not ordered by y")
	}
	if x.Vertices[0] != end || x.Vertices[1] != start {
		t.Errorf("vertex refs not swapped: %v", x.Vertices)
	}
	for i, want := range []model.Role{model.RoleEnd, model.RoleStart} {
		v := reg.Vertex(x.Vertices[i])
		for _, c := range v.Connections {
			if c.Segment == x.Order && c.Role != want {
				t.Errorf("vertex %d role %v, want %v", v.Order, c.Role, want)
			}
		}
	}
	if again := OrderEndpoints(reg); len(again) != 0 {
		t.Errorf("second pass swapped %v", again)
	}
}

func TestKMeans(t *testing.T) {
	pts := []r3.Vec{
		{X: 1}, {X: 0.9, Y: 0.1}, {X: 0.95},
		{Y: 1}, {X: 0.1, Y: 0.9},
	}
	assign, centroids := KMeans(pts, 2, 10)
	if len(centroids) != 2 {
		t.Fatalf("got %d centroids", len(centroids))
	}
	for i := 1; i < 3; i++ {
		if assign[i] != assign[0] {
			t.Errorf("point %d not grouped with point 0", i)
		}
	}
	if assign[3] == assign[0] || assign[4] != assign[3] {
		t.Errorf("bad assignment %v", assign)
	}
}
