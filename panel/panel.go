// Package panel drives SPI display controllers through a transfer.Engine.
//
// Two addressing models are supported. Windowed controllers (ST7789,
// ILI9341, ILI9342, ST7796) take a column and row range followed by a
// stream of RGB565 pixels. The paged controller (SH1107) is a 1-bit OLED
// whose memory is organized in pages of eight rows, one byte per column.
//
// Both implement Surface, which also satisfies periph's display.Drawer, so a
// panel can be fed any image.Image.
//
// Drawing outside the visible area is clipped before any byte is sent; a
// rectangle that is entirely outside is a no-op.
package panel

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/flavioheleno/gblcd/image565"
	"github.com/flavioheleno/gblcd/transfer"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"tinygo.org/x/drivers"
)

// Rotation is the clockwise rotation of the picture.
type Rotation = drivers.Rotation

const (
	Rotation0   Rotation = drivers.Rotation0
	Rotation90  Rotation = drivers.Rotation90
	Rotation180 Rotation = drivers.Rotation180
	Rotation270 Rotation = drivers.Rotation270
)

// ErrHalted is returned by drawing operations after Halt.
var ErrHalted = errors.New("panel: halted")

// Surface is a display that can be drawn with RGB565 pixel runs.
type Surface interface {
	display.Drawer

	// Init brings the controller up and leaves it showing RAM contents.
	Init() error
	Width() int
	Height() int
	Rotation() Rotation
	SetRotation(r Rotation) error
	// DrawImage draws the w x h row-major pixel block pix at (x, y).
	DrawImage(x, y, w, h int, pix []uint16) error
	FillRect(x, y, w, h int, c image565.Color) error
	ClearScreen(c image565.Color) error
	Invert(on bool) error
}

// Opts is the configuration shared by all panels.
type Opts struct {
	Rotation Rotation

	// Optional hardware reset line.
	Reset gpio.PinOut

	// Override the controller's native size, for modules that wire only part
	// of the controller RAM.
	Width, Height int
}

// Window is an inclusive address window.
type Window struct {
	X0, Y0, X1, Y1 int
}

// Pixels returns the number of pixels the window holds.
func (w Window) Pixels() int {
	return (w.X1 - w.X0 + 1) * (w.Y1 - w.Y0 + 1)
}

// Geometry is the native size of a controller and its current rotation.
type Geometry struct {
	W, H int
	Rot  Rotation
}

// Size returns the visible width and height; they are swapped at 90 and 270
// degrees.
func (g Geometry) Size() (w, h int) {
	if g.Rot&1 == 1 {
		return g.H, g.W
	}
	return g.W, g.H
}

// Bounds returns the visible area.
func (g Geometry) Bounds() image.Rectangle {
	w, h := g.Size()
	return image.Rect(0, 0, w, h)
}

func validRotation(r Rotation) error {
	if r > Rotation270 {
		return fmt.Errorf("panel: unsupported rotation %d", r)
	}
	return nil
}

// clip intersects the block at (x, y) of size w x h with b.
func clip(x, y, w, h int, b image.Rectangle) (image.Rectangle, bool) {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	r := image.Rect(x, y, x+w, y+h).Intersect(b)
	return r, !r.Empty()
}

// drawSrc implements display.Drawer on top of DrawImage.
func drawSrc(s Surface, dst image.Rectangle, src image.Image, sp image.Point) error {
	c := dst.Intersect(s.Bounds())
	if c.Empty() {
		return nil
	}
	sp = sp.Add(c.Min.Sub(dst.Min))
	f := image565.Convert(src, c, sp)
	return s.DrawImage(c.Min.X, c.Min.Y, c.Dx(), c.Dy(), f.Pix)
}

func reset(pin gpio.PinOut, sleep func(time.Duration)) error {
	if pin == nil {
		return nil
	}
	if err := pin.Out(gpio.High); err != nil {
		return fmt.Errorf("panel: failed to drive reset: %w", err)
	}
	sleep(5 * time.Millisecond)
	if err := pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("panel: failed to drive reset: %w", err)
	}
	sleep(20 * time.Millisecond)
	if err := pin.Out(gpio.High); err != nil {
		return fmt.Errorf("panel: failed to drive reset: %w", err)
	}
	sleep(120 * time.Millisecond)
	return nil
}

// New returns the panel called name driven by e. See Names.
func New(name string, e *transfer.Engine, opts *Opts) (Surface, error) {
	if name == "sh1107" {
		return NewPaged(e, opts)
	}
	v, ok := variants[name]
	if !ok {
		return nil, fmt.Errorf("panel: unknown controller %q", name)
	}
	return NewWindowed(e, v, opts)
}

// Names lists the controllers New accepts.
func Names() []string {
	names := []string{"sh1107"}
	for n := range variants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the windowed controller description called name.
func Lookup(name string) (Variant, bool) {
	v, ok := variants[name]
	return v, ok
}
