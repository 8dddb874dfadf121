package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soypat/sketch3d"
	"github.com/soypat/sketch3d/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10.0, cfg.Drawing.PlaneZ)
	assert.Equal(t, 0.2, cfg.Drawing.MinSampleSpacing)
	assert.Equal(t, 11, cfg.Drawing.MinSamples)
	assert.Equal(t, 20, cfg.Drawing.SnapAfterSamples)
	assert.Equal(t, 0.25, cfg.Drawing.VerticalSpread)
	assert.Equal(t, 0.5, cfg.Snap.VertexRadius)
	assert.Equal(t, 100, cfg.Cluster.Iterations)
	assert.Equal(t, 1e-6, cfg.Cluster.Separation)
	assert.Equal(t, 2000.0, cfg.Solve.ReferenceLength)
	assert.Equal(t, 3, cfg.Solve.StallPasses)
	assert.Equal(t, 100, cfg.Solve.MaxStallBreaks)
	assert.Equal(t, 0.1, cfg.Solve.RatioStep)
	assert.Equal(t, "DF4040", cfg.CAD.Profile.Model)
	assert.Equal(t, [3]float64{-1, 0, 0}, cfg.CAD.Profile.VecU)
	assert.Equal(t, 20.0, cfg.CAD.Profile.Inset)
	assert.Equal(t, 10*time.Second, cfg.CAD.Timeout)
	assert.Equal(t, uint32(5), cfg.CAD.FailureThreshold)
	assert.Equal(t, 40.0, cfg.Render.BeamWidth)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sketch3d.yaml")
	doc := `
solve:
  reference_length: 1000
cad:
  base_url: http://localhost:8080/api
  profile_id: frame-1
  timeout: 3s
  profile:
    vec_u: [0, 1, 0]
render:
  preview_width: 320
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cfg.Solve.ReferenceLength)
	// Unset fields keep their defaults.
	assert.Equal(t, 3, cfg.Solve.StallPasses)
	assert.Equal(t, "DF4040", cfg.CAD.Profile.Model)
	assert.Equal(t, [3]float64{0, 1, 0}, cfg.CAD.Profile.VecU)
	assert.Equal(t, 3*time.Second, cfg.CAD.Timeout)
	assert.Equal(t, 320, cfg.Render.PreviewWidth)
	assert.Equal(t, 480, cfg.Render.PreviewHeight)

	up, err := cfg.Uploader()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api", up.BaseURL)
	assert.Equal(t, "frame-1", up.ProfileID)
	assert.Equal(t, 3*time.Second, up.Timeout)

	v := cfg.View()
	assert.Equal(t, 320, v.Width)
	assert.Equal(t, 480, v.Height)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown key", doc: "drawing:\n  planez: 3\n"},
		{name: "too few samples", doc: "drawing:\n  min_samples: 1\n"},
		{name: "negative spacing", doc: "drawing:\n  min_sample_spacing: -1\n"},
		{name: "zero reference length", doc: "solve:\n  reference_length: 0\n"},
		{name: "zero iterations", doc: "cluster:\n  iterations: 0\n"},
		{name: "bad url", doc: "cad:\n  base_url: not a url\n  profile_id: x\n"},
		{name: "url without profile", doc: "cad:\n  base_url: http://localhost\n"},
		{name: "empty model", doc: "cad:\n  profile:\n    model: \"\"\n"},
		{name: "bad duration", doc: "cad:\n  timeout: soon\n"},
		{name: "short vector", doc: "cad:\n  profile:\n    vec_u: [1, 0]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestUploaderUnconfigured(t *testing.T) {
	_, err := config.Default().Uploader()
	assert.Error(t, err)
}

func TestSession(t *testing.T) {
	cfg := config.Default()
	cfg.Drawing.PlaneZ = 4
	cfg.Snap.EdgeDistance = 0.25
	cfg.Solve.RatioStep = 0.5

	sc := cfg.Session()
	def := sketch3d.DefaultSessionConfig()
	assert.Equal(t, 4.0, sc.Fit.PlaneZ)
	assert.Equal(t, def.Fit.MinSamples, sc.Fit.MinSamples)
	assert.Equal(t, def.Cluster, sc.Cluster)
	assert.Equal(t, 0.5, sc.Solve.RatioStep)
	assert.Equal(t, def.MinSampleSpacing, sc.MinSampleSpacing)

	pp, ok := sc.Picker.(*sketch3d.PlanePicker)
	require.True(t, ok)
	assert.Equal(t, 4.0, pp.PlaneZ)
	assert.Equal(t, 0.25, pp.EdgeDistance)

	_, err := sketch3d.NewSession(&sketch3d.Pointer{Scale: 1}, sc)
	require.NoError(t, err)
}
