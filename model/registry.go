package model

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrNotStraight = errors.New("segment is not straightened")
	// ErrZeroLength is returned when both endpoints of a segment are equal.
	ErrZeroLength = errors.New("segment endpoints coincide")
)

// Registry is the arena owning every segment and vertex of a sketch along
// with their connectivity. Orders are array indices and are never reused.
type Registry struct {
	segments []*Segment
	vertices []*Vertex
	// byPos deduplicates vertices by exact position.
	byPos map[r3.Vec]int
	index vertexIndex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byPos: make(map[r3.Vec]int)}
}

// NewSegment appends a freehand segment starting at start.
func (r *Registry) NewSegment(start r3.Vec) *Segment {
	s := newSegment(len(r.segments), start)
	r.segments = append(r.segments, s)
	return s
}

// Segment returns the segment with the given order or nil.
func (r *Registry) Segment(order int) *Segment {
	if order < 0 || order >= len(r.segments) {
		return nil
	}
	return r.segments[order]
}

// Vertex returns the vertex with the given order or nil.
func (r *Registry) Vertex(order int) *Vertex {
	if order < 0 || order >= len(r.vertices) {
		return nil
	}
	return r.vertices[order]
}

// Segments returns all segments in creation order, hidden ones included.
func (r *Registry) Segments() []*Segment { return r.segments }

// Vertices returns all vertices in creation order.
func (r *Registry) Vertices() []*Vertex { return r.vertices }

// VertexAt returns the vertex located exactly at p.
func (r *Registry) VertexAt(p r3.Vec) (*Vertex, bool) {
	i, ok := r.byPos[p]
	if !ok {
		return nil, false
	}
	return r.vertices[i], true
}

// ResolveVertices binds the straightened endpoints of s to vertices, reusing
// any vertex at exactly the same position, and registers the connection pair.
// It returns the vertices created by the call. Calling it again on a resolved
// segment is a no-op.
func (r *Registry) ResolveVertices(s *Segment) (created []*Vertex, err error) {
	if !s.Straight {
		return nil, ErrNotStraight
	}
	if s.Vertices[0] >= 0 && s.Vertices[1] >= 0 {
		return nil, nil
	}
	if s.Endpoints[0] == s.Endpoints[1] {
		return nil, ErrZeroLength
	}
	for i, p := range s.Endpoints {
		v, ok := r.VertexAt(p)
		if !ok {
			v = &Vertex{Order: len(r.vertices), Position: p}
			r.vertices = append(r.vertices, v)
			r.byPos[p] = v.Order
			r.index.insert(v)
			created = append(created, v)
		}
		s.Vertices[i] = v.Order
	}
	v0, v1 := r.vertices[s.Vertices[0]], r.vertices[s.Vertices[1]]
	v0.Connections = append(v0.Connections, Connection{Segment: s.Order, Role: RoleEnd, Counterpart: v1.Order})
	v1.Connections = append(v1.Connections, Connection{Segment: s.Order, Role: RoleStart, Counterpart: v0.Order})
	return created, nil
}

// Attach records on the owner segment that another segment's endpoint
// snapped onto its interior at a.At.
func (r *Registry) Attach(owner int, a EdgeAttachment) {
	s := r.Segment(owner)
	if s == nil {
		return
	}
	a.Vertex = -1
	s.Attachments = append(s.Attachments, a)
}

// Binding is an edge attachment resolved by ReconcileAttachments.
type Binding struct {
	Owner  int
	Vertex int
}

// ReconcileAttachments binds pending edge attachments to the attaching
// segment's vertex sitting exactly at the attach point. A vertex holds at
// most one edge connection: the first attachment to reach it wins and
// later ones stay pending.
func (r *Registry) ReconcileAttachments() []Binding {
	var bound []Binding
	for _, owner := range r.segments {
		for i := range owner.Attachments {
			a := &owner.Attachments[i]
			if a.Vertex >= 0 {
				continue
			}
			attaching := r.Segment(a.Segment)
			if attaching == nil || !attaching.Straight || attaching.Vertices[0] < 0 {
				continue
			}
			for _, vi := range attaching.Vertices {
				v := r.vertices[vi]
				if v.Position != a.At {
					continue
				}
				if _, has := v.EdgeConnection(); has {
					continue
				}
				v.Connections = append(v.Connections, Connection{
					Segment:     owner.Order,
					Role:        RoleEdge,
					Counterpart: -1,
					At:          a.At,
				})
				a.Vertex = vi
				bound = append(bound, Binding{Owner: owner.Order, Vertex: vi})
				break
			}
		}
	}
	return bound
}

// SwapEndpoints reverses the direction of a straight segment, keeping the
// role labels of its connection records consistent.
func (r *Registry) SwapEndpoints(s *Segment) {
	s.Endpoints[0], s.Endpoints[1] = s.Endpoints[1], s.Endpoints[0]
	s.Vertices[0], s.Vertices[1] = s.Vertices[1], s.Vertices[0]
	for _, vi := range s.Vertices {
		v := r.Vertex(vi)
		if v == nil {
			continue
		}
		for i := range v.Connections {
			c := &v.Connections[i]
			if c.Segment == s.Order && c.Role != RoleEdge {
				c.Role = c.Role.Flip()
			}
		}
	}
}

// VertexVisible reports whether any visible straight segment uses v.
func (r *Registry) VertexVisible(v *Vertex) bool {
	for _, c := range v.Connections {
		if c.Role == RoleEdge {
			continue
		}
		if s := r.Segment(c.Segment); s != nil && s.Active() {
			return true
		}
	}
	return false
}

// NearestVisibleVertex returns the visible vertex nearest to p within radius.
// Ties resolve to the lower order.
func (r *Registry) NearestVisibleVertex(p r2.Vec, radius float64) (v *Vertex, dist float64, ok bool) {
	r.index.within(p, radius, func(order int, d float64) {
		cand := r.vertices[order]
		if !r.VertexVisible(cand) {
			return
		}
		if !ok || d < dist || (d == dist && order < v.Order) {
			v, dist, ok = cand, d, true
		}
	})
	return v, dist, ok
}
