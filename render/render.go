// Package render turns reconstructed sketches into triangle meshes, STL
// files and images.
package render

import (
	"errors"
	"io"
	"math"

	"github.com/soypat/sketch3d"
	"github.com/soypat/sketch3d/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle3 is a 3D triangle. Vertices are ordered counter clockwise when
// seen from outside the mesh.
type Triangle3 struct {
	V [3]r3.Vec
}

// Normal returns the unit normal of the triangle.
func (t Triangle3) Normal() r3.Vec {
	e1 := r3.Sub(t.V[1], t.V[0])
	e2 := r3.Sub(t.V[2], t.V[0])
	return r3.Unit(r3.Cross(e1, e2))
}

// Degenerate reports whether two vertices of t are within tol of each other.
func (t Triangle3) Degenerate(tol float64) bool {
	return r3.Norm(r3.Sub(t.V[0], t.V[1])) <= tol ||
		r3.Norm(r3.Sub(t.V[1], t.V[2])) <= tol ||
		r3.Norm(r3.Sub(t.V[2], t.V[0])) <= tol
}

// Renderer streams the triangles of a mesh. ReadTriangles returns io.EOF
// once every triangle has been read.
type Renderer interface {
	ReadTriangles(t []Triangle3) (int, error)
}

// Beam is a reconstructed segment rendered as a square profile.
type Beam struct {
	P0, P1 r3.Vec
}

// Beams returns the beams of exported segments.
func Beams(segs []sketch3d.ExportedSegment) []Beam {
	beams := make([]Beam, 0, len(segs))
	for _, s := range segs {
		beams = append(beams, Beam{
			P0: r3.Vec{X: s.Point0[0], Y: s.Point0[1], Z: s.Point0[2]},
			P1: r3.Vec{X: s.Point1[0], Y: s.Point1[1], Z: s.Point1[2]},
		})
	}
	return beams
}

// Bounds returns the box enclosing the axes of beams. It returns false when
// there are no beams.
func Bounds(beams []Beam) (r3.Box, bool) {
	if len(beams) == 0 {
		return r3.Box{}, false
	}
	box := d3.BoxOf(beams[0].P0, beams[0].P1)
	for _, b := range beams[1:] {
		box = box.Include(b.P0).Include(b.P1)
	}
	return r3.Box(box), true
}

// Triangles returns the 12 triangles of a closed box of square section of
// side width running from P0 to P1. Zero length beams have no triangles.
func (b Beam) Triangles(width float64) []Triangle3 {
	axis := r3.Sub(b.P1, b.P0)
	length := r3.Norm(axis)
	if length == 0 || width <= 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return nil
	}
	d := r3.Scale(1/length, axis)
	// Cross with the unit axis least aligned with d.
	ref := r3.Vec{X: 1}
	if math.Abs(d.Y) <= math.Abs(d.X) && math.Abs(d.Y) <= math.Abs(d.Z) {
		ref = r3.Vec{Y: 1}
	} else if math.Abs(d.Z) <= math.Abs(d.X) && math.Abs(d.Z) <= math.Abs(d.Y) {
		ref = r3.Vec{Z: 1}
	}
	u := r3.Unit(r3.Cross(d, ref))
	v := r3.Cross(d, u) // (u, v, d) is right handed.
	h := width / 2
	var a, c [4]r3.Vec
	for k, s := range [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		off := r3.Add(r3.Scale(s[0]*h, u), r3.Scale(s[1]*h, v))
		a[k] = r3.Add(b.P0, off)
		c[k] = r3.Add(b.P1, off)
	}
	tris := make([]Triangle3, 0, 12)
	tris = append(tris,
		Triangle3{V: [3]r3.Vec{c[0], c[1], c[2]}},
		Triangle3{V: [3]r3.Vec{c[0], c[2], c[3]}},
		Triangle3{V: [3]r3.Vec{a[0], a[2], a[1]}},
		Triangle3{V: [3]r3.Vec{a[0], a[3], a[2]}},
	)
	for k := 0; k < 4; k++ {
		n := (k + 1) % 4
		tris = append(tris,
			Triangle3{V: [3]r3.Vec{a[k], a[n], c[n]}},
			Triangle3{V: [3]r3.Vec{a[k], c[n], c[k]}},
		)
	}
	return tris
}

// BeamRenderer renders beams one at a time.
type BeamRenderer struct {
	beams []Beam
	width float64
	buf   triangle3Buffer
}

// NewBeamRenderer returns a Renderer of beams of the given section width.
func NewBeamRenderer(beams []Beam, width float64) (*BeamRenderer, error) {
	if width <= 0 {
		return nil, errors.New("beam width must be positive")
	}
	if len(beams) == 0 {
		return nil, errors.New("no beams to render")
	}
	return &BeamRenderer{beams: beams, width: width}, nil
}

// ReadTriangles reads triangles into dst. It returns io.EOF once all beams
// have been read.
func (br *BeamRenderer) ReadTriangles(dst []Triangle3) (n int, err error) {
	for n < len(dst) {
		if br.buf.Len() == 0 {
			if len(br.beams) == 0 {
				break
			}
			br.buf.Write(br.beams[0].Triangles(br.width))
			br.beams = br.beams[1:]
			continue
		}
		n += br.buf.Read(dst[n:])
	}
	if n == 0 && len(dst) > 0 {
		return 0, io.EOF
	}
	return n, nil
}
