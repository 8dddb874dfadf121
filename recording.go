package sketch3d

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Recording is a sketch stored as the pointer samples of each stroke
// followed by erase clicks.
type Recording struct {
	// Scale is the view scale the sketch was drawn at. Zero means 1.
	Scale float64 `json:"scale,omitempty"`
	// Resample, when positive, replaces each stroke by that many samples
	// evenly spaced along its polyline. It lets hand written recordings
	// list only the corners of a stroke.
	Resample int            `json:"resample,omitempty"`
	Strokes  [][][2]float64 `json:"strokes"`
	Erase    [][2]float64   `json:"erase,omitempty"`
}

// ReadRecording decodes a JSON recording.
func ReadRecording(r io.Reader) (*Recording, error) {
	var rec Recording
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (rec *Recording) validate() error {
	if rec.Scale < 0 || math.IsNaN(rec.Scale) || math.IsInf(rec.Scale, 0) {
		return fmt.Errorf("invalid view scale %g", rec.Scale)
	}
	if rec.Resample == 1 || rec.Resample < 0 {
		return fmt.Errorf("resample must be 0 or at least 2, got %d", rec.Resample)
	}
	check := func(p [2]float64) bool {
		return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
	}
	for i, st := range rec.Strokes {
		if len(st) == 0 {
			return fmt.Errorf("stroke %d is empty", i)
		}
		for _, p := range st {
			if !check(p) {
				return fmt.Errorf("stroke %d has non finite sample %v", i, p)
			}
		}
	}
	for _, p := range rec.Erase {
		if !check(p) {
			return fmt.Errorf("non finite erase point %v", p)
		}
	}
	return nil
}

// Replay draws rec in a new session built from cfg. Strokes that are not
// straightened stay in the sketch as freehand segments.
func Replay(rec *Recording, cfg SessionConfig) (*Session, error) {
	if rec == nil {
		return nil, errors.New("nil recording")
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	scale := rec.Scale
	if scale == 0 {
		scale = 1
	}
	ptr := &Pointer{Scale: scale}
	s, err := NewSession(ptr, cfg)
	if err != nil {
		return nil, err
	}
	z := cfg.Fit.PlaneZ
	for _, st := range rec.Strokes {
		pts := make([]r3.Vec, len(st))
		for i, p := range st {
			pts[i] = r3.Vec{X: p[0], Y: p[1], Z: z}
		}
		if rec.Resample > 0 {
			pts = resample(pts, rec.Resample)
		}
		DrawStroke(s, ptr, pts)
	}
	for _, p := range rec.Erase {
		s.EraseAt(r3.Vec{X: p[0], Y: p[1], Z: z})
	}
	return s, nil
}

// resample returns n points evenly spaced by arc length along the polyline.
func resample(pts []r3.Vec, n int) []r3.Vec {
	if len(pts) < 2 {
		return pts
	}
	cum := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		cum[i] = cum[i-1] + r3.Norm(r3.Sub(pts[i], pts[i-1]))
	}
	total := cum[len(cum)-1]
	out := make([]r3.Vec, n)
	j := 1
	for i := range out {
		d := total * float64(i) / float64(n-1)
		for j < len(pts)-1 && cum[j] < d {
			j++
		}
		span := cum[j] - cum[j-1]
		if span == 0 {
			out[i] = pts[j]
			continue
		}
		t := (d - cum[j-1]) / span
		out[i] = r3.Add(pts[j-1], r3.Scale(t, r3.Sub(pts[j], pts[j-1])))
	}
	out[n-1] = pts[len(pts)-1]
	return out
}
