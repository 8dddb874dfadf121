// Package config loads the tunables of the sketch tool from YAML.
//
// Every field has a default matching the reference drawing tool, so a
// config file only needs the values it changes:
//
//	solve:
//	  reference_length: 1000
//	cad:
//	  base_url: https://cad.example.com/api
//	  profile_id: frame-1
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/soypat/sketch3d"
	"github.com/soypat/sketch3d/cad"
	"github.com/soypat/sketch3d/cluster"
	"github.com/soypat/sketch3d/fit"
	"github.com/soypat/sketch3d/render"
	"github.com/soypat/sketch3d/solve"
	"gopkg.in/yaml.v3"
)

// Config is the complete tool configuration.
type Config struct {
	Drawing Drawing `yaml:"drawing"`
	Snap    Snap    `yaml:"snap"`
	Cluster Cluster `yaml:"cluster"`
	Solve   Solve   `yaml:"solve"`
	CAD     CAD     `yaml:"cad"`
	Render  Render  `yaml:"render"`
}

// Drawing configures stroke capture and straightening.
type Drawing struct {
	PlaneZ           float64 `yaml:"plane_z"`
	MinSampleSpacing float64 `yaml:"min_sample_spacing" validate:"gte=0"`
	MinSamples       int     `yaml:"min_samples" validate:"gte=2"`
	SnapAfterSamples int     `yaml:"snap_after_samples" validate:"gte=0"`
	VerticalSpread   float64 `yaml:"vertical_spread" validate:"gt=0"`
	// ViewScale is used when a replayed sketch does not record one.
	ViewScale float64 `yaml:"view_scale" validate:"gt=0"`
}

// Snap distances are fractions of the view scale.
type Snap struct {
	VertexRadius float64 `yaml:"vertex_radius" validate:"gt=0"`
	EdgeDistance float64 `yaml:"edge_distance" validate:"gt=0"`
}

type Cluster struct {
	Iterations int     `yaml:"iterations" validate:"gte=1"`
	Separation float64 `yaml:"separation" validate:"gte=0"`
}

type Solve struct {
	ReferenceLength float64 `yaml:"reference_length" validate:"gt=0"`
	StallPasses     int     `yaml:"stall_passes" validate:"gte=1"`
	MaxStallBreaks  int     `yaml:"max_stall_breaks" validate:"gte=0"`
	RatioStep       float64 `yaml:"ratio_step" validate:"gte=0"`
}

// CAD configures the profile upload. An empty BaseURL disables uploading.
type CAD struct {
	BaseURL          string        `yaml:"base_url" validate:"omitempty,url"`
	ProfileID        string        `yaml:"profile_id" validate:"required_with=BaseURL"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `yaml:"failure_threshold" validate:"gte=1"`
	OpenTimeout      time.Duration `yaml:"open_timeout" validate:"gte=0"`
	Profile          cad.Profile   `yaml:"profile"`
}

type Render struct {
	BeamWidth     float64 `yaml:"beam_width" validate:"gt=0"`
	PreviewWidth  int     `yaml:"preview_width" validate:"gt=0"`
	PreviewHeight int     `yaml:"preview_height" validate:"gt=0"`
	Supersample   int     `yaml:"supersample" validate:"gte=1"`
	// PlotSize is the side of the square sketch plot in centimetres.
	PlotSize float64 `yaml:"plot_size" validate:"gt=0"`
}

// Default returns the configuration of the reference drawing tool.
func Default() *Config {
	sess := sketch3d.DefaultSessionConfig()
	pick := sketch3d.DefaultPicker()
	view := render.DefaultView()
	up := cad.DefaultOptions("", "")
	return &Config{
		Drawing: Drawing{
			PlaneZ:           sess.Fit.PlaneZ,
			MinSampleSpacing: sess.MinSampleSpacing,
			MinSamples:       sess.Fit.MinSamples,
			SnapAfterSamples: sess.SnapAfterSamples,
			VerticalSpread:   sess.Fit.VerticalSpread,
			ViewScale:        1,
		},
		Snap: Snap{
			VertexRadius: pick.VertexRadius,
			EdgeDistance: pick.EdgeDistance,
		},
		Cluster: Cluster{
			Iterations: sess.Cluster.Iterations,
			Separation: sess.Cluster.Separation,
		},
		Solve: Solve{
			ReferenceLength: sess.Solve.ReferenceLength,
			StallPasses:     sess.Solve.StallPasses,
			MaxStallBreaks:  sess.Solve.MaxStallBreaks,
			RatioStep:       sess.Solve.RatioStep,
		},
		CAD: CAD{
			Timeout:          up.Timeout,
			FailureThreshold: up.FailureThreshold,
			OpenTimeout:      up.OpenTimeout,
			Profile:          up.Profile,
		},
		Render: Render{
			BeamWidth:     40,
			PreviewWidth:  view.Width,
			PreviewHeight: view.Height,
			Supersample:   view.Supersample,
			PlotSize:      12,
		},
	}
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Session returns the session configuration. Logger and Scene are left
// for the caller to set.
func (c *Config) Session() sketch3d.SessionConfig {
	return sketch3d.SessionConfig{
		Picker: &sketch3d.PlanePicker{
			PlaneZ:       c.Drawing.PlaneZ,
			VertexRadius: c.Snap.VertexRadius,
			EdgeDistance: c.Snap.EdgeDistance,
		},
		Fit: fit.Options{
			MinSamples:     c.Drawing.MinSamples,
			VerticalSpread: c.Drawing.VerticalSpread,
			PlaneZ:         c.Drawing.PlaneZ,
		},
		Cluster: cluster.Options{
			Iterations: c.Cluster.Iterations,
			Separation: c.Cluster.Separation,
		},
		Solve: solve.Options{
			ReferenceLength: c.Solve.ReferenceLength,
			StallPasses:     c.Solve.StallPasses,
			MaxStallBreaks:  c.Solve.MaxStallBreaks,
			RatioStep:       c.Solve.RatioStep,
		},
		MinSampleSpacing: c.Drawing.MinSampleSpacing,
		SnapAfterSamples: c.Drawing.SnapAfterSamples,
	}
}

// Uploader returns the CAD uploader options. It fails when no base URL is
// configured.
func (c *Config) Uploader() (cad.Options, error) {
	if c.CAD.BaseURL == "" {
		return cad.Options{}, errors.New("cad.base_url not configured")
	}
	return cad.Options{
		BaseURL:          c.CAD.BaseURL,
		ProfileID:        c.CAD.ProfileID,
		Profile:          c.CAD.Profile,
		Timeout:          c.CAD.Timeout,
		FailureThreshold: c.CAD.FailureThreshold,
		OpenTimeout:      c.CAD.OpenTimeout,
	}, nil
}

// View returns the preview camera with the configured image size.
func (c *Config) View() render.View {
	v := render.DefaultView()
	v.Width = c.Render.PreviewWidth
	v.Height = c.Render.PreviewHeight
	v.Supersample = c.Render.Supersample
	return v
}
