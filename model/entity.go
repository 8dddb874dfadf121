// Package model holds the plain data entities of a sketch and the arena
// registry that keeps their connectivity.
//
// Entities refer to each other by order (their index in the registry arrays)
// and never by pointer, so erasing a segment only hides it.
package model

import (
	"fmt"
	"math"

	"github.com/soypat/sketch3d/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Axis is one of the three canonical reconstruction axes.
type Axis uint8

const (
	AxisNone Axis = iota
	AxisX
	AxisY
	AxisZ
)

// Index returns the r3 component index of the axis, 0 for X.
// AxisNone returns -1.
func (a Axis) Index() int {
	switch a {
	case AxisX:
		return 0
	case AxisY:
		return 1
	case AxisZ:
		return 2
	}
	return -1
}

// Unit returns the unit vector along the axis.
func (a Axis) Unit() r3.Vec {
	switch a {
	case AxisX:
		return r3.Vec{X: 1}
	case AxisY:
		return r3.Vec{Y: 1}
	case AxisZ:
		return r3.Vec{Z: 1}
	}
	return r3.Vec{}
}

func (a Axis) String() string {
	switch a {
	case AxisNone:
		return "none"
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return fmt.Sprintf("Axis(%d)", uint8(a))
}

// MarshalText encodes the axis by name.
func (a Axis) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText decodes an axis name written by MarshalText.
func (a *Axis) UnmarshalText(b []byte) error {
	for _, c := range [...]Axis{AxisNone, AxisX, AxisY, AxisZ} {
		if string(b) == c.String() {
			*a = c
			return nil
		}
	}
	return fmt.Errorf("unknown axis %q", b)
}

// AxisFromIndex is the inverse of Axis.Index.
func AxisFromIndex(i int) Axis {
	switch i {
	case 0:
		return AxisX
	case 1:
		return AxisY
	case 2:
		return AxisZ
	}
	return AxisNone
}

// Role labels a connection record on a vertex. For segment connections it
// names the end of the segment at which the counterpart vertex sits:
// the start vertex of a segment holds a RoleEnd record and the end vertex
// holds a RoleStart record.
type Role uint8

const (
	RoleStart Role = iota
	RoleEnd
	RoleEdge
)

func (r Role) String() string {
	switch r {
	case RoleStart:
		return "start"
	case RoleEnd:
		return "end"
	case RoleEdge:
		return "edge"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Flip swaps start and end. Edge is returned unchanged.
func (r Role) Flip() Role {
	switch r {
	case RoleStart:
		return RoleEnd
	case RoleEnd:
		return RoleStart
	}
	return r
}

// Connection is an adjacency record stored on a vertex.
type Connection struct {
	// Segment is the order of the connected segment. For RoleEdge it is
	// the segment on whose interior the vertex lies.
	Segment int
	Role    Role
	// Counterpart is the order of the vertex at the other end of Segment,
	// -1 for edge connections.
	Counterpart int
	// At is the raw attach position of an edge connection.
	At r3.Vec
}

// EdgeAttachment records a segment whose endpoint snapped onto the interior
// of the owning segment.
type EdgeAttachment struct {
	// Segment is the order of the attaching segment.
	Segment int
	// At is the attach point on the owning segment.
	At r3.Vec
	// Vertex is the order of the attaching segment's vertex at At,
	// -1 until reconciled.
	Vertex int
}

// Segment is a user drawn stroke. It is freehand until straightened, after
// which Endpoints and Vertices are valid.
type Segment struct {
	Order int
	// Samples are the raw pointer samples captured while drawing.
	Samples []r3.Vec
	// Endpoints are the straightened start and end points.
	Endpoints [2]r3.Vec
	// Vertices are the orders of the start and end vertex.
	Vertices [2]int
	Straight bool
	// Slope is the fitted slope, +Inf for near vertical strokes.
	Slope       float64
	Axis        Axis
	Attachments []EdgeAttachment
	// Length is the reconstructed 3D length.
	Length         float64
	LengthResolved bool
	Hidden         bool
}

func newSegment(order int, start r3.Vec) *Segment {
	return &Segment{
		Order:    order,
		Samples:  []r3.Vec{start},
		Vertices: [2]int{-1, -1},
	}
}

// Points returns the two endpoints of a straight segment or the raw
// samples of a freehand one. The returned slice must not be modified.
func (s *Segment) Points() []r3.Vec {
	if s.Straight {
		return s.Endpoints[:]
	}
	return s.Samples
}

// Direction returns the unit direction from start to end with each
// component made non-negative. Zero length segments return false.
func (s *Segment) Direction() (r3.Vec, bool) {
	d := r3.Sub(s.Endpoints[1], s.Endpoints[0])
	n := r3.Norm(d)
	if !s.Straight || n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return r3.Vec{}, false
	}
	d = r3.Scale(1/n, d)
	return d3.AbsElem(d), true
}

// Active reports whether the segment takes part in reconstruction.
func (s *Segment) Active() bool {
	return s.Straight && !s.Hidden
}

// Vertex is a deduplicated endpoint shared by one or more segments.
type Vertex struct {
	Order int
	// Position is the sketch-space position used for fitting and snapping.
	Position r3.Vec
	// Converted is the reconstructed 3D position, valid when Resolved.
	Converted   r3.Vec
	Resolved    bool
	Connections []Connection
}

// EdgeConnection returns the vertex's edge connection if it has one.
func (v *Vertex) EdgeConnection() (Connection, bool) {
	for _, c := range v.Connections {
		if c.Role == RoleEdge {
			return c, true
		}
	}
	return Connection{}, false
}
