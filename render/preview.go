package render

import (
	"errors"
	"image/png"
	"io"
	"os"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/sketch3d/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// View configures the camera of a preview.
type View struct {
	// LookAt is the point looked at.
	LookAt r3.Vec
	// Up is the up direction.
	Up r3.Vec
	// Eye is the camera position.
	Eye       r3.Vec
	Near, Far float64
	// Width and Height are the output image dimensions in pixels.
	Width, Height int
	// Supersample renders at a multiple of the output size before
	// downsampling, for antialiasing.
	Supersample int
}

// DefaultView is an isometric view of the mesh fitted in a bi-unit cube.
func DefaultView() View {
	return View{
		Up:          r3.Vec{Z: 1},
		Eye:         d3.Elem(2.4),
		Near:        1,
		Far:         10,
		Width:       640,
		Height:      480,
		Supersample: 2,
	}
}

// PreviewPNG renders the triangles of r with a Phong shader and writes the
// image to w in PNG format.
func PreviewPNG(w io.Writer, r Renderer, view View) error {
	if view.Width <= 0 || view.Height <= 0 {
		return errors.New("preview size must be positive")
	}
	if view.Supersample < 1 {
		view.Supersample = 1
	}
	// fauxgl loads meshes from disk.
	tmp, err := os.CreateTemp("", "sketch3d-*.stl")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	tmp.Close()
	if err := CreateSTL(tmp.Name(), r); err != nil {
		return err
	}
	mesh, err := fauxgl.LoadSTL(tmp.Name())
	if err != nil {
		return err
	}
	const fovy = 30 // vertical field of view in degrees
	var (
		eye    = fauxgl.V(view.Eye.X, view.Eye.Y, view.Eye.Z)
		center = fauxgl.V(view.LookAt.X, view.LookAt.Y, view.LookAt.Z)
		up     = fauxgl.V(view.Up.X, view.Up.Y, view.Up.Z)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)
	mesh.BiUnitCube()
	ss := view.Supersample
	context := fauxgl.NewContext(view.Width*ss, view.Height*ss)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(mesh)
	img := resize.Resize(uint(view.Width), uint(view.Height), context.Image(), resize.Bilinear)
	return png.Encode(w, img)
}
