package render

import (
	"errors"
	"image/color"
	"io"

	"github.com/soypat/sketch3d/model"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// AxisColor is the color a segment is drawn with in sketch plots.
func AxisColor(a model.Axis) color.RGBA {
	switch a {
	case model.AxisX:
		return color.RGBA{R: 0xff, A: 0xff}
	case model.AxisY:
		return color.RGBA{G: 0xff, A: 0xff}
	case model.AxisZ:
		return color.RGBA{B: 0xff, A: 0xff}
	}
	return color.RGBA{A: 0xff}
}

// PlotSketch plots the visible segments of reg on the drawing plane, colored
// by their assigned axis, and their vertices. Freehand strokes are drawn as
// polylines. format is any format supported by gonum/plot, such as "png" or
// "svg".
func PlotSketch(w io.Writer, reg *model.Registry, width, height vg.Length, format string) error {
	p := plot.New()
	p.Title.Text = "Sketch"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	var drawn int
	for _, s := range reg.Segments() {
		if s.Hidden {
			continue
		}
		pts := s.Points()
		xys := make(plotter.XYs, len(pts))
		for i, q := range pts {
			xys[i].X, xys[i].Y = q.X, q.Y
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		l.LineStyle.Color = AxisColor(s.Axis)
		l.LineStyle.Width = vg.Points(1.5)
		if !s.Straight {
			l.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		}
		p.Add(l)
		drawn++
	}
	if drawn == 0 {
		return errors.New("no visible segments to plot")
	}
	var vxys plotter.XYs
	for _, v := range reg.Vertices() {
		if reg.VertexVisible(v) {
			vxys = append(vxys, plotter.XY{X: v.Position.X, Y: v.Position.Y})
		}
	}
	if len(vxys) > 0 {
		sc, err := plotter.NewScatter(vxys)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Radius = vg.Points(2.5)
		sc.GlyphStyle.Color = color.RGBA{R: 0xcc, G: 0x22, B: 0x22, A: 0xff}
		p.Add(sc)
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
