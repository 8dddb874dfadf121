package solve

import (
	"fmt"
	"math"
)

// Kind is the kind of a solver variable.
type Kind uint8

const (
	KindX Kind = iota
	KindY
	KindZ
	// KindT is the parameter of a vertex along the segment it is attached to.
	KindT
	KindLength
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindX:
		return "x"
	case KindY:
		return "y"
	case KindZ:
		return "z"
	case KindT:
		return "t"
	case KindLength:
		return "length"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// coordKind returns the coordinate kind for an r3 component index.
func coordKind(i int) Kind { return Kind(i) }

// Ref identifies a variable. Index is a vertex order for coordinate and t
// variables and a segment order for length variables.
type Ref struct {
	Kind  Kind
	Index int
}

func (r Ref) String() string { return fmt.Sprintf("%v[%d]", r.Kind, r.Index) }

// Equation is a directional inference rule: once all of its inputs are
// resolved it yields the value of the variable it is registered on.
// The set of equations is closed. All of them are comparable so duplicates
// are detected with ==.
type Equation interface {
	equation()
}

// SameCoord copies a coordinate of another vertex. It encodes that a segment
// does not move along the axes it is perpendicular to.
type SameCoord struct {
	From Ref
}

// CoordFromLength is From + Sign*Length.
type CoordFromLength struct {
	Length Ref
	From   Ref
	Sign   float64
}

// Length is |P2 - P1|.
type Length struct {
	P1, P2 Ref
}

// EdgeCoord is P1 + T*(P2-P1).
type EdgeCoord struct {
	P1, P2, T Ref
}

// EdgeParamT is (P - P1) / (P2 - P1).
type EdgeParamT struct {
	P1, P2, P Ref
}

// Constant is a fixed value.
type Constant struct {
	Value float64
}

func (SameCoord) equation()       {}
func (CoordFromLength) equation() {}
func (Length) equation()          {}
func (EdgeCoord) equation()       {}
func (EdgeParamT) equation()      {}
func (Constant) equation()        {}

// Eval evaluates eq. lookup returns the value of a variable and whether it
// is resolved. ok is false when an input is unresolved or the result is not
// a finite number.
func Eval(eq Equation, lookup func(Ref) (float64, bool)) (v float64, ok bool) {
	get := func(refs ...Ref) ([]float64, bool) {
		vals := make([]float64, len(refs))
		for i, r := range refs {
			var resolved bool
			if vals[i], resolved = lookup(r); !resolved {
				return nil, false
			}
		}
		return vals, true
	}
	var in []float64
	switch e := eq.(type) {
	case SameCoord:
		if in, ok = get(e.From); ok {
			v = in[0]
		}
	case CoordFromLength:
		if in, ok = get(e.Length, e.From); ok {
			v = in[1] + e.Sign*in[0]
		}
	case Length:
		if in, ok = get(e.P1, e.P2); ok {
			v = math.Abs(in[1] - in[0])
		}
	case EdgeCoord:
		if in, ok = get(e.P1, e.P2, e.T); ok {
			v = in[0] + in[2]*(in[1]-in[0])
		}
	case EdgeParamT:
		if in, ok = get(e.P1, e.P2, e.P); ok {
			if den := in[1] - in[0]; den != 0 {
				v = (in[2] - in[0]) / den
			} else {
				ok = false
			}
		}
	case Constant:
		v, ok = e.Value, true
	default:
		panic(fmt.Sprintf("solve: unknown equation %T", eq))
	}
	if ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
		return 0, false
	}
	return v, ok
}
