package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/soypat/sketch3d"
	"github.com/soypat/sketch3d/render"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/vg"
)

type convertFlags struct {
	out     string
	stl     bool
	preview bool
	plot    bool
}

var convertOpts convertFlags

var convertCmd = &cobra.Command{
	Use:   "convert [recording.json]",
	Short: "Reconstruct a recorded sketch",
	Long: `Replay a sketch recording, reconstruct it and write next to it (or in
--out) the files <name>.segments.json, <name>.stl, <name>.preview.png and
<name>.plot.png.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputs, err := convertOpts.run(cmd.Context(), args[0])
		for _, o := range outputs {
			fmt.Fprintln(cmd.OutOrStdout(), o)
		}
		return err
	},
}

func init() {
	addConvertFlags(convertCmd, &convertOpts)
	rootCmd.AddCommand(convertCmd)
}

func addConvertFlags(cmd *cobra.Command, f *convertFlags) {
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output directory, defaults to the recording's directory")
	cmd.Flags().BoolVar(&f.stl, "stl", true, "write the STL beam model")
	cmd.Flags().BoolVar(&f.preview, "preview", true, "write a shaded PNG preview of the beam model")
	cmd.Flags().BoolVar(&f.plot, "plot", true, "write a PNG plot of the sketch colored by axis")
}

// run converts the recording at path and returns the files written.
func (f convertFlags) run(ctx context.Context, path string) (outputs []string, err error) {
	rec, err := readRecording(path)
	if err != nil {
		return nil, err
	}
	sc := cfg.Session()
	sc.Logger = logger
	s, err := sketch3d.Replay(rec, sc)
	if err != nil {
		return nil, err
	}
	log := logger.With(zap.String("session", s.ID().String()), zap.String("recording", path))

	dir := f.out
	if dir == "" {
		dir = filepath.Dir(path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := func(suffix string) string { return filepath.Join(dir, name+suffix) }

	// The plot is useful even when reconstruction fails.
	if f.plot {
		file := out(".plot.png")
		side := vg.Length(cfg.Render.PlotSize) * vg.Centimeter
		err := writeFile(file, func(w io.Writer) error {
			return render.PlotSketch(w, s.Registry(), side, side, "png")
		})
		if err != nil {
			return outputs, fmt.Errorf("plotting sketch: %w", err)
		}
		outputs = append(outputs, file)
	}

	rep, err := s.Convert(ctx)
	if err != nil {
		return outputs, err
	}
	segs, err := s.ExportSegments()
	if err != nil {
		return outputs, err
	}
	beams := render.Beams(segs)
	extent := r3.Vec{}
	if box, ok := render.Bounds(beams); ok {
		extent = r3.Sub(box.Max, box.Min)
	}
	log.Info("sketch converted",
		zap.Int("segments", rep.Segments),
		zap.Float64s("extent", []float64{extent.X, extent.Y, extent.Z}),
		zap.Ints("swapped", rep.Swapped),
		zap.Int("passes", rep.Solve.Passes),
		zap.Int("stall_breaks", rep.Solve.StallBreaks))

	file := out(".segments.json")
	if err := writeFile(file, func(w io.Writer) error { return writeSegments(w, segs) }); err != nil {
		return outputs, err
	}
	outputs = append(outputs, file)

	if f.stl {
		br, err := render.NewBeamRenderer(beams, cfg.Render.BeamWidth)
		if err != nil {
			return outputs, err
		}
		file := out(".stl")
		if err := render.CreateSTL(file, br); err != nil {
			return outputs, fmt.Errorf("writing STL: %w", err)
		}
		if err := checkSTL(file, log); err != nil {
			return outputs, err
		}
		outputs = append(outputs, file)
	}
	if f.preview {
		br, err := render.NewBeamRenderer(beams, cfg.Render.BeamWidth)
		if err != nil {
			return outputs, err
		}
		file := out(".preview.png")
		err = writeFile(file, func(w io.Writer) error { return render.PreviewPNG(w, br, cfg.View()) })
		if err != nil {
			return outputs, fmt.Errorf("rendering preview: %w", err)
		}
		outputs = append(outputs, file)
	}
	return outputs, nil
}

// checkSTL reads back the STL at path and logs its triangle count.
func checkSTL(path string, log *zap.Logger) error {
	fp, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	tris, err := render.ReadSTL(fp)
	if errors.Is(err, render.ErrNormalMismatch) {
		log.Warn("STL normals disagree with vertices", zap.String("file", path))
	} else if err != nil {
		return fmt.Errorf("reading back %s: %w", path, err)
	}
	var degenerate int
	for _, t := range tris {
		if t.Degenerate(1e-9) {
			degenerate++
		}
	}
	if degenerate > 0 {
		log.Warn("STL has degenerate triangles", zap.String("file", path), zap.Int("count", degenerate))
	}
	log.Debug("STL written", zap.String("file", path), zap.Int("triangles", len(tris)))
	return nil
}

func readRecording(path string) (*sketch3d.Recording, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	rec, err := sketch3d.ReadRecording(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

func writeSegments(w io.Writer, segs []sketch3d.ExportedSegment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	return enc.Encode(segs)
}

func readSegments(path string) ([]sketch3d.ExportedSegment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var segs []sketch3d.ExportedSegment
	if err := json.Unmarshal(b, &segs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return segs, nil
}

// writeFile creates path and writes it with fn, removing it on failure.
func writeFile(path string, fn func(io.Writer) error) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = fn(fp); err != nil {
		fp.Close()
		os.Remove(path)
		return err
	}
	return fp.Close()
}
