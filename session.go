package sketch3d

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/soypat/sketch3d/cluster"
	"github.com/soypat/sketch3d/fit"
	"github.com/soypat/sketch3d/model"
	"github.com/soypat/sketch3d/solve"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// SessionConfig configures a Session. Nil Logger, Scene and Picker fields
// are replaced by no-op implementations and DefaultPicker respectively.
type SessionConfig struct {
	Logger  *zap.Logger
	Scene   Scene
	Picker  Picker
	Fit     fit.Options
	Cluster cluster.Options
	Solve   solve.Options
	// MinSampleSpacing is the distance the pointer must move before a new
	// sample is recorded.
	MinSampleSpacing float64
	// SnapAfterSamples is the number of samples after which pointer moves
	// are snapped while drawing.
	SnapAfterSamples int
}

// DefaultSessionConfig returns the configuration of the reference sketch tool.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Fit:              fit.DefaultOptions(),
		Cluster:          cluster.DefaultOptions(),
		Solve:            solve.DefaultOptions(),
		MinSampleSpacing: 0.2,
		SnapAfterSamples: 20,
	}
}

// Session owns the registry of a sketch and drives drawing, conversion and
// export. A Session is not safe for concurrent use.
type Session struct {
	id     uuid.UUID
	log    *zap.Logger
	vp     Viewport
	scene  Scene
	picker Picker
	cfg    SessionConfig
	reg    *model.Registry

	stroke *stroke
	// converted is true while the registry holds the result of a successful
	// conversion of the current sketch.
	converted bool
	// shown are the converted primitives currently in the scene.
	shown []Primitive
}

// NewSession returns an empty session drawing in vp.
func NewSession(vp Viewport, cfg SessionConfig) (*Session, error) {
	if vp == nil {
		return nil, errors.New("nil viewport")
	}
	if cfg.MinSampleSpacing < 0 {
		return nil, fmt.Errorf("negative sample spacing %g", cfg.MinSampleSpacing)
	}
	if cfg.Fit.MinSamples < 2 {
		return nil, fmt.Errorf("fit needs at least 2 samples, got %d", cfg.Fit.MinSamples)
	}
	if cfg.Solve.ReferenceLength <= 0 {
		return nil, fmt.Errorf("non-positive reference length %g", cfg.Solve.ReferenceLength)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Scene == nil {
		cfg.Scene = nopScene{}
	}
	if cfg.Picker == nil {
		pp := DefaultPicker()
		pp.PlaneZ = cfg.Fit.PlaneZ
		cfg.Picker = pp
	}
	id := uuid.New()
	return &Session{
		id:     id,
		log:    cfg.Logger.With(zap.String("session", id.String())),
		vp:     vp,
		scene:  cfg.Scene,
		picker: cfg.Picker,
		cfg:    cfg,
		reg:    model.NewRegistry(),
	}, nil
}

// ID returns the unique identifier of the session.
func (s *Session) ID() uuid.UUID { return s.id }

// Registry returns the registry of the session. Callers must treat it as
// read only.
func (s *Session) Registry() *model.Registry { return s.reg }

// Converted reports whether the sketch is unchanged since its last
// successful conversion.
func (s *Session) Converted() bool { return s.converted }

// Snap runs a snap query at p against the finalized entities. It returns p
// unchanged when nothing is hit.
func (s *Session) Snap(p r3.Vec) (r3.Vec, Hit, bool) {
	exclude := -1
	if s.stroke != nil {
		exclude = s.stroke.seg.Order
	}
	hit, ok := s.picker.Pick(pointerRay(p), s.vp.ViewScale(), s.reg, exclude)
	if !ok {
		return p, Hit{}, false
	}
	return hit.Point, hit, true
}

// invalidate drops the conversion result after the sketch changed.
func (s *Session) invalidate() {
	if !s.converted && len(s.shown) == 0 {
		return
	}
	s.converted = false
	for _, p := range s.shown {
		s.scene.Remove(p)
	}
	s.shown = s.shown[:0]
}

func segmentPrimitive(seg *model.Segment) Primitive {
	return Primitive{Kind: PrimitiveSegment, Order: seg.Order, Points: seg.Points()}
}

func vertexPrimitive(v *model.Vertex) Primitive {
	return Primitive{Kind: PrimitiveVertex, Order: v.Order, Points: []r3.Vec{v.Position}}
}
