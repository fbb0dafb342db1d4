// Package image565 provides the 16-bit RGB565 pixel format used by the capture
// pipeline and the SPI panels.
//
// A Color packs 5 bits of red, 6 bits of green and 5 bits of blue in the
// order the panels expect on the wire (red in the high bits). Frames store one
// uint16 per pixel in row-major order so they can be handed to a panel without
// conversion.
package image565

import (
	"image"
	"image/color"
)

// Color is a 16-bit RGB565 color.
type Color uint16

// RGB returns the Color closest to the 8-bit components r, g and b.
func RGB(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGB8 expands the color to 8 bits per channel.
func (c Color) RGB8() (r, g, b uint8) {
	r = uint8(uint32(c>>11&0x1F) * 255 / 31)
	g = uint8(uint32(c>>5&0x3F) * 255 / 63)
	b = uint8(uint32(c&0x1F) * 255 / 31)
	return
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c>>11&0x1F) * 0xFFFF / 31
	g = uint32(c>>5&0x3F) * 0xFFFF / 63
	b = uint32(c&0x1F) * 0xFFFF / 31
	return r, g, b, 0xFFFF
}

// Luma returns the approximate perceived brightness of c in 0..255, using the
// fixed point weights 77/150/29.
func Luma(c Color) int {
	r, g, b := c.RGB8()
	return (77*int(r) + 150*int(g) + 29*int(b)) >> 8
}

// Gray returns the BT.601 luminance of c in 0..255.
func Gray(c Color) int {
	r, g, b := c.RGB8()
	return (int(r)*299 + int(g)*587 + int(b)*114) / 1000
}

func toColor(c color.Color) color.Color {
	if v, ok := c.(Color); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Model converts colors to Color.
var Model = color.ModelFunc(toColor)

// Frame is an in-memory RGB565 image. Pixels are stored row-major with Stride
// pixels per row.
type Frame struct {
	Pix    []uint16
	Stride int
	Rect   image.Rectangle
}

// NewFrame returns a black Frame with the given bounds.
func NewFrame(r image.Rectangle) *Frame {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &Frame{Rect: r}
	}
	return &Frame{
		Pix:    make([]uint16, w*h),
		Stride: w,
		Rect:   r,
	}
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model {
	return Model
}

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return f.Rect
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	return f.RGB565At(x, y)
}

// RGB565At returns the Color of the pixel at (x, y), or black outside the
// bounds.
func (f *Frame) RGB565At(x, y int) Color {
	if !(image.Point{X: x, Y: y}.In(f.Rect)) {
		return 0
	}
	return Color(f.Pix[f.PixOffset(x, y)])
}

// Set implements draw.Image.
func (f *Frame) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(f.Rect)) {
		return
	}
	f.Pix[f.PixOffset(x, y)] = uint16(Model.Convert(c).(Color))
}

// SetRGB565 sets the pixel at (x, y) without color conversion.
func (f *Frame) SetRGB565(x, y int, c Color) {
	if !(image.Point{X: x, Y: y}.In(f.Rect)) {
		return
	}
	f.Pix[f.PixOffset(x, y)] = uint16(c)
}

// PixOffset returns the index of the pixel at (x, y) in Pix.
func (f *Frame) PixOffset(x, y int) int {
	return (y-f.Rect.Min.Y)*f.Stride + (x - f.Rect.Min.X)
}

// Fill sets every pixel of the frame to c.
func (f *Frame) Fill(c Color) {
	for i := range f.Pix {
		f.Pix[i] = uint16(c)
	}
}

// Convert copies src into a new Frame covering r, converting each pixel.
// Pixels of r outside src's bounds are black.
func Convert(src image.Image, r image.Rectangle, sp image.Point) *Frame {
	if f, ok := src.(*Frame); ok && r.Sub(r.Min).Add(sp) == f.Rect && f.Stride == f.Rect.Dx() {
		return &Frame{Pix: f.Pix, Stride: f.Stride, Rect: r}
	}
	dst := NewFrame(r)
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			c := Model.Convert(src.At(sp.X+x, sp.Y+y)).(Color)
			dst.Pix[y*dst.Stride+x] = uint16(c)
		}
	}
	return dst
}
