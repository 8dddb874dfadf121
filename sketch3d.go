// Package sketch3d turns freehand 2D sketches of axis aligned wireframes into
// 3D point sets.
//
// A Session records strokes drawn on a plane, straightens them, snaps their
// ends onto existing vertices and segment interiors and, when converted,
// assigns every segment one of three axes and solves for the 3D position of
// every vertex.
//
//	s, _ := sketch3d.NewSession(viewport, sketch3d.DefaultSessionConfig())
//	s.BeginStroke()
//	for moving {
//		s.ExtendStroke()
//	}
//	s.EndStroke()
//	report, err := s.Convert(ctx)
//	segments, err := s.ExportSegments()
package sketch3d

import (
	"errors"

	"github.com/soypat/sketch3d/cluster"
	"github.com/soypat/sketch3d/fit"
	"github.com/soypat/sketch3d/solve"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrDegenerateClustering is returned by Convert when the sketch has
	// fewer than three direction groups.
	ErrDegenerateClustering = cluster.ErrDegenerate
	// ErrSingularFit is logged when a stroke cannot be fitted. The stroke
	// stays freehand.
	ErrSingularFit = fit.ErrSingular
	// ErrUnresolvedGeometry is returned by Convert when vertices could not be
	// placed, typically because part of the sketch is disconnected.
	ErrUnresolvedGeometry = solve.ErrUnresolved
	// ErrNotConverted is returned when exporting a sketch that changed since
	// its last successful conversion.
	ErrNotConverted = errors.New("sketch not converted")
)

// Viewport is the view the sketch is drawn in.
type Viewport interface {
	// PointerWorldPosition returns the pointer position on the drawing plane.
	PointerWorldPosition() r3.Vec
	// ViewScale returns the world length of a fixed on-screen distance.
	// Snap tolerances scale with it.
	ViewScale() float64
}

// PrimitiveKind is the kind of a scene primitive.
type PrimitiveKind uint8

const (
	// PrimitiveSegment is a drawn stroke, a polyline while freehand.
	PrimitiveSegment PrimitiveKind = iota
	// PrimitiveVertex is a single point.
	PrimitiveVertex
	// PrimitiveConverted is a reconstructed 3D segment.
	PrimitiveConverted
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveSegment:
		return "segment"
	case PrimitiveVertex:
		return "vertex"
	case PrimitiveConverted:
		return "converted"
	}
	return "unknown"
}

// Primitive is a renderable view of a sketch entity. Primitives are
// identified by Kind and Order.
type Primitive struct {
	Kind PrimitiveKind
	// Order is the segment order for segments and converted segments and
	// the vertex order for vertices.
	Order  int
	Points []r3.Vec
}

// Scene receives the primitives of a session.
type Scene interface {
	Add(Primitive)
	Remove(Primitive)
}

type nopScene struct{}

func (nopScene) Add(Primitive)    {}
func (nopScene) Remove(Primitive) {}

// Pointer is a Viewport with a settable pointer, used to replay recorded
// strokes.
type Pointer struct {
	Position r3.Vec
	Scale    float64
}

func (p *Pointer) PointerWorldPosition() r3.Vec { return p.Position }
func (p *Pointer) ViewScale() float64           { return p.Scale }
