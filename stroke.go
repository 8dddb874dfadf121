package sketch3d

import (
	"errors"

	"github.com/soypat/sketch3d/fit"
	"github.com/soypat/sketch3d/model"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// stroke is the state of the stroke being drawn.
type stroke struct {
	seg *model.Segment
	// last is the raw pointer position of the last recorded sample.
	last r3.Vec
	snap fit.Snap
	// startEdge and endEdge are edge hits at the stroke ends. They become
	// edge attachments once the stroke is straightened.
	startEdge, endEdge *Hit
}

// BeginStroke starts a new stroke at the pointer. A stroke still in
// progress is ended first.
func (s *Session) BeginStroke() {
	if s.stroke != nil {
		s.EndStroke()
	}
	p := s.vp.PointerWorldPosition()
	start, hit, snapped := s.Snap(p)
	st := &stroke{seg: s.reg.NewSegment(start), last: p}
	if snapped {
		st.snap.Start = true
		if hit.Kind == HitEdge {
			st.startEdge = &hit
		}
		s.logHit("stroke start snapped", st.seg, hit)
	}
	s.stroke = st
	s.invalidate()
}

// ExtendStroke records the pointer position as a new sample when it moved
// far enough from the last one. Once the stroke is long enough samples are
// snapped. It reports whether a sample was recorded.
func (s *Session) ExtendStroke() bool {
	st := s.stroke
	if st == nil {
		return false
	}
	p := s.vp.PointerWorldPosition()
	if r3.Norm(r3.Sub(p, st.last)) <= s.cfg.MinSampleSpacing {
		return false
	}
	sample := p
	if len(st.seg.Samples) > s.cfg.SnapAfterSamples {
		snapped, hit, ok := s.Snap(p)
		st.setEnd(hit, ok)
		sample = snapped
	}
	st.seg.Samples = append(st.seg.Samples, sample)
	st.last = p
	return true
}

func (st *stroke) setEnd(hit Hit, ok bool) {
	st.snap.End = ok
	st.endEdge = nil
	if ok && hit.Kind == HitEdge {
		st.endEdge = &hit
	}
}

// EndStroke finalizes the current stroke. Strokes with enough samples are
// straightened and connected to the sketch. Shorter strokes and strokes that
// cannot be fitted stay freehand and take no part in conversion. It returns
// the finalized segment and whether it was straightened.
func (s *Session) EndStroke() (*model.Segment, bool) {
	st := s.stroke
	if st == nil {
		return nil, false
	}
	s.stroke = nil
	seg := st.seg
	end, hit, ok := s.Snap(s.vp.PointerWorldPosition())
	st.setEnd(hit, ok)
	if ok {
		// The snapped end replaces the last pointer sample so snapping never
		// changes the sample count.
		if len(seg.Samples) > 1 {
			seg.Samples[len(seg.Samples)-1] = end
		}
		s.logHit("stroke end snapped", seg, hit)
	}

	straight := s.straighten(seg, st)
	s.scene.Add(segmentPrimitive(seg))
	s.invalidate()
	return seg, straight
}

func (s *Session) straighten(seg *model.Segment, st *stroke) bool {
	ln, err := fit.Fit(seg.Samples, s.vp.ViewScale(), st.snap, s.cfg.Fit)
	switch {
	case errors.Is(err, fit.ErrTooFewSamples):
		s.log.Debug("stroke left freehand", zap.Int("segment", seg.Order), zap.Int("samples", len(seg.Samples)))
		return false
	case err != nil:
		s.log.Warn("stroke fit failed", zap.Int("segment", seg.Order), zap.Error(err))
		return false
	case ln.Start == ln.End:
		s.log.Debug("stroke has zero length", zap.Int("segment", seg.Order))
		return false
	}
	seg.Endpoints = [2]r3.Vec{ln.Start, ln.End}
	seg.Slope = ln.Slope
	seg.Straight = true
	created, err := s.reg.ResolveVertices(seg)
	if err != nil {
		// Unreachable for distinct endpoints, keep the stroke freehand.
		seg.Straight = false
		s.log.Warn("resolving vertices", zap.Int("segment", seg.Order), zap.Error(err))
		return false
	}
	for _, h := range []*Hit{st.startEdge, st.endEdge} {
		if h != nil {
			s.reg.Attach(h.Segment, model.EdgeAttachment{Segment: seg.Order, At: h.Point})
		}
	}
	for _, b := range s.reg.ReconcileAttachments() {
		s.log.Debug("edge attachment bound", zap.Int("segment", b.Owner), zap.Int("vertex", b.Vertex))
	}
	for _, v := range created {
		s.scene.Add(vertexPrimitive(v))
	}
	s.log.Debug("stroke straightened",
		zap.Int("segment", seg.Order),
		zap.Float64("slope", seg.Slope),
		zap.Bool("snappedStart", st.snap.Start),
		zap.Bool("snappedEnd", st.snap.End),
		zap.Ints("vertices", seg.Vertices[:]),
	)
	return true
}

func (s *Session) logHit(msg string, seg *model.Segment, hit Hit) {
	kind := "vertex"
	if hit.Kind == HitEdge {
		kind = "edge"
	}
	s.log.Debug(msg,
		zap.Int("segment", seg.Order),
		zap.String("kind", kind),
		zap.Int("hitVertex", hit.Vertex),
		zap.Int("hitSegment", hit.Segment),
		zap.Float64("dist", hit.Dist),
	)
}

// EraseAt hides the visible segment nearest to p within the vertex snap
// radius. It reports whether a segment was erased.
func (s *Session) EraseAt(p r3.Vec) bool {
	seg, ok := s.nearestSegment(p)
	if !ok {
		return false
	}
	seg.Hidden = true
	s.scene.Remove(segmentPrimitive(seg))
	if seg.Straight {
		for _, vi := range seg.Vertices {
			if v := s.reg.Vertex(vi); v != nil && !s.reg.VertexVisible(v) {
				s.scene.Remove(vertexPrimitive(v))
			}
		}
	}
	s.log.Debug("segment erased", zap.Int("segment", seg.Order))
	s.invalidate()
	return true
}
