package model

import (
	"math"

	"github.com/soypat/sketch3d/internal/d2"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
)

var _ kdtree.Comparable = vertexPoint{}

// vertexPoint is a vertex position stored in the registry's kd-tree.
type vertexPoint struct {
	p     r2.Vec
	order int
}

// Compare returns the signed distance of a from the plane passing through
// b and perpendicular to the dimension d.
func (a vertexPoint) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	bp := b.(vertexPoint)
	if d == 0 {
		return a.p.X - bp.p.X
	}
	return a.p.Y - bp.p.Y
}

// Dims returns the number of dimensions described in the Comparable.
func (a vertexPoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between the receiver and
// the parameter.
func (a vertexPoint) Distance(b kdtree.Comparable) float64 {
	return r2.Norm2(r2.Sub(a.p, b.(vertexPoint).p))
}

// vertexIndex is an insert-only kd-tree over vertex sketch positions.
type vertexIndex struct {
	tree kdtree.Tree
}

func (idx *vertexIndex) insert(v *Vertex) {
	idx.tree.Insert(vertexPoint{p: d2.FromR3(v.Position), order: v.Order}, false)
}

// within calls fn for every indexed vertex within radius of p.
func (idx *vertexIndex) within(p r2.Vec, radius float64, fn func(order int, dist float64)) {
	if idx.tree.Root == nil || radius <= 0 {
		return
	}
	keep := kdtree.NewDistKeeper(radius * radius)
	idx.tree.NearestSet(keep, vertexPoint{p: p, order: -1})
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue // Keeper sentinel.
		}
		fn(c.Comparable.(vertexPoint).order, math.Sqrt(c.Dist))
	}
}
