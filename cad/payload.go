// Package cad uploads reconstructed segments to a CAD profile service.
//
// Each segment becomes one extrusion profile request whose endpoints are
// inset along the segment axis so that adjacent profiles meet at the joint
// instead of overlapping.
package cad

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/soypat/sketch3d"
	"github.com/soypat/sketch3d/model"
	"gonum.org/v1/gonum/spatial/r3"
)

var validate = validator.New()

// Payload is the body of a single segment request.
type Payload struct {
	Point0 [3]float64 `json:"point0"`
	Point1 [3]float64 `json:"point1"`
	Model  string     `json:"model" validate:"required"`
	VecU   [3]float64 `json:"vecU"`
}

// Profile describes the extrusion profile assigned to every segment.
type Profile struct {
	// Model is the profile catalogue name.
	Model string `yaml:"model" validate:"required"`
	// VecU orients the profile cross-section.
	VecU [3]float64 `yaml:"vec_u"`
	// Inset is the distance each endpoint is moved towards the other along
	// the segment axis.
	Inset float64 `yaml:"inset" validate:"gte=0"`
}

// DefaultProfile returns a 40x40 aluminium profile inset 20 at each end.
func DefaultProfile() Profile {
	return Profile{
		Model: "DF4040",
		VecU:  [3]float64{-1, 0, 0},
		Inset: 20,
	}
}

// Payloads builds one payload per exported segment.
func Payloads(segs []sketch3d.ExportedSegment, prof Profile) ([]Payload, error) {
	if err := validate.Struct(prof); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	out := make([]Payload, 0, len(segs))
	for _, seg := range segs {
		if seg.Axis == model.AxisNone {
			return nil, fmt.Errorf("segment %d has no axis", seg.Order)
		}
		u := r3.Scale(prof.Inset, seg.Axis.Unit())
		p0 := r3.Add(r3.Vec{X: seg.Point0[0], Y: seg.Point0[1], Z: seg.Point0[2]}, u)
		p1 := r3.Sub(r3.Vec{X: seg.Point1[0], Y: seg.Point1[1], Z: seg.Point1[2]}, u)
		pl := Payload{
			Point0: [3]float64{p0.X, p0.Y, p0.Z},
			Point1: [3]float64{p1.X, p1.Y, p1.Z},
			Model:  prof.Model,
			VecU:   prof.VecU,
		}
		if err := validate.Struct(pl); err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.Order, err)
		}
		out = append(out, pl)
	}
	return out, nil
}
