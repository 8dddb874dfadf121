package sketch3d

import (
	"math"

	"github.com/soypat/sketch3d/internal/d2"
	"github.com/soypat/sketch3d/model"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Ray is a half line cast from the pointer into the scene.
type Ray struct {
	Origin, Dir r3.Vec
}

// HitKind tells what a snap query hit.
type HitKind uint8

const (
	HitVertex HitKind = iota + 1
	HitEdge
)

// Hit is the result of a snap query.
type Hit struct {
	Kind HitKind
	// Point is the snapped position: the vertex position for vertex hits and
	// the closest point on the segment for edge hits.
	Point r3.Vec
	// Vertex is the order of the hit vertex, -1 for edge hits.
	Vertex int
	// Segment is the order of the hit segment, -1 for vertex hits.
	Segment int
	Dist    float64
}

// Picker resolves snap queries against the finalized entities of a registry.
type Picker interface {
	// Pick returns the nearest vertex or segment interior hit by ray. scale
	// is the current view scale. Segment exclude is never hit.
	Pick(ray Ray, scale float64, reg *model.Registry, exclude int) (Hit, bool)
}

// PlanePicker intersects the pointer ray with the drawing plane and picks
// the nearest visible vertex within VertexRadius*scale, else the nearest
// visible segment interior within EdgeDistance*scale. Vertices win over
// edges and ties go to the lower order.
type PlanePicker struct {
	PlaneZ       float64
	VertexRadius float64
	EdgeDistance float64
}

// DefaultPicker snaps to vertices within half the view scale and to segment
// interiors within a third of it.
func DefaultPicker() *PlanePicker {
	return &PlanePicker{PlaneZ: 10, VertexRadius: 0.5, EdgeDistance: 1.0 / 3}
}

func (pp *PlanePicker) Pick(ray Ray, scale float64, reg *model.Registry, exclude int) (Hit, bool) {
	p, ok := pp.onPlane(ray)
	if !ok || scale <= 0 {
		return Hit{}, false
	}
	if v, dist, ok := reg.NearestVisibleVertex(p, pp.VertexRadius*scale); ok {
		return Hit{Kind: HitVertex, Point: v.Position, Vertex: v.Order, Segment: -1, Dist: dist}, true
	}
	best := Hit{Segment: -1, Vertex: -1, Dist: math.Inf(1)}
	maxDist := pp.EdgeDistance * scale
	for _, s := range reg.Segments() {
		if s.Order == exclude || !s.Active() {
			continue
		}
		ln := [2]r2.Vec{d2.FromR3(s.Endpoints[0]), d2.FromR3(s.Endpoints[1])}
		c, feat := d2.ClosestOnSegment(p, ln)
		if feat != d2.FeatureInterior {
			continue
		}
		dist := r2.Norm(r2.Sub(c, p))
		if dist < maxDist && dist < best.Dist {
			best = Hit{Kind: HitEdge, Point: r3.Vec{X: c.X, Y: c.Y, Z: pp.PlaneZ}, Vertex: -1, Segment: s.Order, Dist: dist}
		}
	}
	return best, best.Kind == HitEdge
}

// onPlane returns the sketch position where ray crosses the drawing plane.
// Rays parallel to the plane use their origin.
func (pp *PlanePicker) onPlane(ray Ray) (r2.Vec, bool) {
	if ray.Dir.Z == 0 {
		return d2.FromR3(ray.Origin), d2.IsFinite(d2.FromR3(ray.Origin))
	}
	t := (pp.PlaneZ - ray.Origin.Z) / ray.Dir.Z
	p := d2.FromR3(r3.Add(ray.Origin, r3.Scale(t, ray.Dir)))
	return p, d2.IsFinite(p)
}

// pointerRay is the ray cast straight down onto the drawing plane from p.
func pointerRay(p r3.Vec) Ray {
	return Ray{Origin: p, Dir: r3.Vec{Z: -1}}
}

// nearestSegment returns the visible segment, freehand or straight, closest
// to p within half the view scale.
func (s *Session) nearestSegment(p r3.Vec) (*model.Segment, bool) {
	q := d2.FromR3(p)
	var (
		best     *model.Segment
		bestDist = 0.5 * s.vp.ViewScale()
	)
	for _, seg := range s.reg.Segments() {
		if seg.Hidden || (s.stroke != nil && seg == s.stroke.seg) {
			continue
		}
		pts := seg.Points()
		for i := range pts {
			var c r2.Vec
			if i+1 < len(pts) {
				c, _ = d2.ClosestOnSegment(q, [2]r2.Vec{d2.FromR3(pts[i]), d2.FromR3(pts[i+1])})
			} else if len(pts) == 1 {
				c = d2.FromR3(pts[0])
			} else {
				break
			}
			if d := r2.Norm(r2.Sub(c, q)); d < bestDist {
				best, bestDist = seg, d
			}
		}
	}
	return best, best != nil
}
