package panel

import (
	"image"
	"image/color"

	"github.com/flavioheleno/gblcd/image565"
	"tinygo.org/x/drivers"
)

// Canvas is a buffered drivers.Displayer on top of a Surface, so TinyGo
// drawing packages such as tinyfont can render onto any panel. Display sends
// only the rectangle touched since the previous call.
type Canvas struct {
	s     Surface
	f     *image565.Frame
	dirty image.Rectangle
	tmp   []uint16
}

// NewCanvas returns a black canvas covering s.
func NewCanvas(s Surface) *Canvas {
	return &Canvas{s: s, f: image565.NewFrame(s.Bounds())}
}

// Size implements drivers.Displayer.
func (c *Canvas) Size() (x, y int16) {
	b := c.f.Bounds()
	return int16(b.Dx()), int16(b.Dy())
}

// SetPixel implements drivers.Displayer.
func (c *Canvas) SetPixel(x, y int16, col color.RGBA) {
	p := image.Pt(int(x), int(y))
	if !p.In(c.f.Rect) {
		return
	}
	c.f.SetRGB565(p.X, p.Y, image565.RGB(col.R, col.G, col.B))
	c.dirty = c.dirty.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
}

// Fill paints the whole canvas.
func (c *Canvas) Fill(col image565.Color) {
	c.f.Fill(col)
	c.dirty = c.f.Rect
}

// Display implements drivers.Displayer.
func (c *Canvas) Display() error {
	r := c.dirty
	if r.Empty() {
		return nil
	}
	var pix []uint16
	if r.Dx() == c.f.Rect.Dx() {
		start := c.f.PixOffset(r.Min.X, r.Min.Y)
		pix = c.f.Pix[start : start+r.Dx()*r.Dy()]
	} else {
		if cap(c.tmp) < r.Dx()*r.Dy() {
			c.tmp = make([]uint16, r.Dx()*r.Dy())
		}
		pix = c.tmp[:r.Dx()*r.Dy()]
		for y := r.Min.Y; y < r.Max.Y; y++ {
			start := c.f.PixOffset(r.Min.X, y)
			copy(pix[(y-r.Min.Y)*r.Dx():], c.f.Pix[start:start+r.Dx()])
		}
	}
	if err := c.s.DrawImage(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), pix); err != nil {
		return err
	}
	c.dirty = image.Rectangle{}
	return nil
}

// Frame returns the canvas backing store.
func (c *Canvas) Frame() *image565.Frame {
	return c.f
}

var _ drivers.Displayer = &Canvas{}
