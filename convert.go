package sketch3d

import (
	"context"
	"fmt"

	"github.com/soypat/sketch3d/cluster"
	"github.com/soypat/sketch3d/model"
	"github.com/soypat/sketch3d/solve"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Report summarizes a conversion.
type Report struct {
	Clusters cluster.Result
	// Swapped lists segments whose endpoints were reordered to follow
	// their axis direction.
	Swapped []int
	Solve   solve.Stats
	// Segments is the number of reconstructed segments.
	Segments int
}

// Convert assigns an axis to every straight visible segment and solves for
// the 3D position of every vertex. On failure the returned error wraps
// ErrDegenerateClustering or ErrUnresolvedGeometry. A clustering failure
// leaves no 3D positions written.
func (s *Session) Convert(ctx context.Context) (Report, error) {
	if s.stroke != nil {
		s.EndStroke()
	}
	s.invalidate()
	s.reset()

	var rep Report
	res, err := cluster.Assign(s.reg, s.cfg.Cluster)
	if err != nil {
		s.log.Warn("clustering failed", zap.Error(err))
		return rep, fmt.Errorf("clustering: %w", err)
	}
	rep.Clusters = res
	s.log.Debug("clustered segments",
		zap.Int("x", len(res.Segments[0])),
		zap.Int("y", len(res.Segments[1])),
		zap.Int("z", len(res.Segments[2])),
	)
	rep.Swapped = cluster.OrderEndpoints(s.reg)

	sys, err := solve.Build(s.reg, s.cfg.Solve)
	if err != nil {
		return rep, fmt.Errorf("building equations: %w", err)
	}
	stats, err := sys.Solve(ctx)
	rep.Solve = stats
	sys.Apply()
	s.log.Debug("solved sketch",
		zap.Int("passes", stats.Passes),
		zap.Int("stallBreaks", stats.StallBreaks),
	)
	if err != nil {
		s.log.Warn("solving failed", zap.Error(err))
		return rep, fmt.Errorf("solving: %w", err)
	}

	for _, seg := range s.reg.Segments() {
		if !seg.Active() || seg.Axis == model.AxisNone {
			continue
		}
		p := Primitive{
			Kind:  PrimitiveConverted,
			Order: seg.Order,
			Points: []r3.Vec{
				s.reg.Vertex(seg.Vertices[0]).Converted,
				s.reg.Vertex(seg.Vertices[1]).Converted,
			},
		}
		s.scene.Add(p)
		s.shown = append(s.shown, p)
		rep.Segments++
	}
	s.converted = true
	return rep, nil
}

// reset clears the results of a previous conversion.
func (s *Session) reset() {
	for _, seg := range s.reg.Segments() {
		seg.Axis = model.AxisNone
		seg.Length, seg.LengthResolved = 0, false
	}
	for _, v := range s.reg.Vertices() {
		v.Converted, v.Resolved = r3.Vec{}, false
	}
}
