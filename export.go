package sketch3d

import (
	"fmt"

	"github.com/soypat/sketch3d/model"
	"gonum.org/v1/gonum/spatial/r3"
)

// ExportedSegment is a reconstructed segment.
type ExportedSegment struct {
	Order  int        `json:"order"`
	Point0 [3]float64 `json:"point0"`
	Point1 [3]float64 `json:"point1"`
	Axis   model.Axis `json:"axis"`
	Length float64    `json:"length"`
}

// ExportSegments returns the reconstructed segments in creation order. It
// fails with ErrNotConverted when the sketch changed since the last
// successful Convert.
func (s *Session) ExportSegments() ([]ExportedSegment, error) {
	if !s.converted {
		return nil, ErrNotConverted
	}
	var out []ExportedSegment
	for _, seg := range s.reg.Segments() {
		if !seg.Active() || seg.Axis == model.AxisNone {
			continue
		}
		v0, v1 := s.reg.Vertex(seg.Vertices[0]), s.reg.Vertex(seg.Vertices[1])
		if !v0.Resolved || !v1.Resolved {
			return nil, fmt.Errorf("%w: segment %d", ErrUnresolvedGeometry, seg.Order)
		}
		out = append(out, ExportedSegment{
			Order:  seg.Order,
			Point0: [3]float64{v0.Converted.X, v0.Converted.Y, v0.Converted.Z},
			Point1: [3]float64{v1.Converted.X, v1.Converted.Y, v1.Converted.Z},
			Axis:   seg.Axis,
			Length: seg.Length,
		})
	}
	return out, nil
}

// DrawStroke replays samples as a single stroke through p, which must be
// the viewport of s. It returns the result of EndStroke.
func DrawStroke(s *Session, p *Pointer, samples []r3.Vec) (*model.Segment, bool) {
	if len(samples) == 0 {
		return nil, false
	}
	p.Position = samples[0]
	s.BeginStroke()
	for _, q := range samples[1:] {
		p.Position = q
		s.ExtendStroke()
	}
	return s.EndStroke()
}
