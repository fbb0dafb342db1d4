package panel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/flavioheleno/gblcd/image565"
	"github.com/flavioheleno/gblcd/transfer"
)

// sh1107Orientation holds the segment remap and COM scan direction commands
// for each rotation. The controller can only mirror, so the visible size
// never changes with rotation.
var sh1107Orientation = [4][2]byte{
	{0xA1, 0xC8},
	{0xA0, 0xC8},
	{0xA0, 0xC0},
	{0xA1, 0xC0},
}

// Paged is an SH1107 monochrome OLED. Pixels are lit when their BT.601
// luminance is above the middle of the range.
//
// The panel keeps a copy of the page memory so that drawing a block that
// does not cover whole pages leaves the other rows of those pages intact.
type Paged struct {
	e      *transfer.Engine
	o      Opts
	geo    Geometry
	shadow []byte
	buf    []byte
	halted bool
	sleep  func(time.Duration)
}

// NewPaged returns an SH1107 handle driven by e. The default size is
// 128x128; the height must be a multiple of 8. Call Init before drawing.
func NewPaged(e *transfer.Engine, opts *Opts) (*Paged, error) {
	if e == nil {
		return nil, errors.New("panel: nil transfer engine")
	}
	if opts == nil {
		opts = &Opts{}
	}
	if err := validRotation(opts.Rotation); err != nil {
		return nil, err
	}
	g := Geometry{W: 128, H: 128, Rot: opts.Rotation}
	if opts.Width > 0 {
		g.W = opts.Width
	}
	if opts.Height > 0 {
		g.H = opts.Height
	}
	if g.W > 128 || g.H > 128 || g.H%8 != 0 {
		return nil, fmt.Errorf("panel: invalid sh1107 size %dx%d", g.W, g.H)
	}
	return &Paged{
		e:      e,
		o:      *opts,
		geo:    g,
		shadow: make([]byte, g.W*g.H/8),
		buf:    make([]byte, g.W),
		sleep:  time.Sleep,
	}, nil
}

// Init resets the controller, configures it for the panel size, clears the
// page memory and turns the display on.
func (d *Paged) Init() error {
	if err := reset(d.o.Reset, d.sleep); err != nil {
		return err
	}
	if err := d.e.WriteCommands([]byte{
		0xAE,                    // display off
		0xA8, byte(d.geo.H - 1), // multiplex ratio
		0xD3, 0x00, // display offset
		0x40,       // start line
		0xDA, 0x12, // COM pins
		0x81, 0x7F, // contrast
		0xA4, // display follows RAM
		0xA6, // normal
	}); err != nil {
		return fmt.Errorf("panel: sh1107 init failed: %w", err)
	}
	d.halted = false
	if err := d.SetRotation(d.geo.Rot); err != nil {
		return err
	}
	if err := d.ClearScreen(0); err != nil {
		return err
	}
	if err := d.e.WriteCommand(0xAF); err != nil {
		return err
	}
	d.sleep(10 * time.Millisecond)
	return nil
}

func (d *Paged) address(page, x int) error {
	return d.e.WriteCommands([]byte{
		0xB0 | byte(page),
		0x00 | byte(x&0x0F),
		0x10 | byte((x>>4)&0x0F),
	})
}

// drawPages rewrites every page touched by r. lit reports whether the pixel
// at screen coordinates (x, y) inside r is on.
func (d *Paged) drawPages(r image.Rectangle, lit func(x, y int) bool) error {
	for page := r.Min.Y / 8; page <= (r.Max.Y-1)/8; page++ {
		if err := d.address(page, r.Min.X); err != nil {
			return err
		}
		out := d.buf[:r.Dx()]
		row := d.shadow[page*d.geo.W:]
		for i := range out {
			x := r.Min.X + i
			b := row[x]
			for bit := 0; bit < 8; bit++ {
				y := page*8 + bit
				if y < r.Min.Y || y >= r.Max.Y {
					continue
				}
				if lit(x, y) {
					b |= 1 << bit
				} else {
					b &^= 1 << bit
				}
			}
			row[x] = b
			out[i] = b
		}
		if err := d.e.WriteBulk(out); err != nil {
			return fmt.Errorf("panel: sh1107 page write failed: %w", err)
		}
	}
	return nil
}

// DrawImage implements Surface.
func (d *Paged) DrawImage(x, y, w, h int, pix []uint16) error {
	if d.halted {
		return ErrHalted
	}
	if w > 0 && h > 0 && len(pix) < w*h {
		return fmt.Errorf("panel: %d pixels for a %dx%d block", len(pix), w, h)
	}
	r, ok := clip(x, y, w, h, d.Bounds())
	if !ok {
		return nil
	}
	return d.drawPages(r, func(sx, sy int) bool {
		return image565.Gray(image565.Color(pix[(sy-y)*w+(sx-x)])) > 128
	})
}

// FillRect implements Surface.
func (d *Paged) FillRect(x, y, w, h int, c image565.Color) error {
	if d.halted {
		return ErrHalted
	}
	r, ok := clip(x, y, w, h, d.Bounds())
	if !ok {
		return nil
	}
	on := image565.Gray(c) > 128
	return d.drawPages(r, func(int, int) bool { return on })
}

// ClearScreen fills every page with 0x00, or 0xFF when c is light.
func (d *Paged) ClearScreen(c image565.Color) error {
	if d.halted {
		return ErrHalted
	}
	v := byte(0x00)
	if image565.Gray(c) > 128 {
		v = 0xFF
	}
	for i := range d.shadow {
		d.shadow[i] = v
	}
	for page := 0; page < d.geo.H/8; page++ {
		if err := d.address(page, 0); err != nil {
			return err
		}
		if err := d.e.WriteBulk(d.shadow[page*d.geo.W : (page+1)*d.geo.W]); err != nil {
			return fmt.Errorf("panel: sh1107 clear failed: %w", err)
		}
	}
	return nil
}

// SetRotation selects the segment remap and COM scan direction for r.
func (d *Paged) SetRotation(r Rotation) error {
	if err := validRotation(r); err != nil {
		return err
	}
	o := sh1107Orientation[r]
	if err := d.e.WriteCommands(o[:]); err != nil {
		return err
	}
	d.geo.Rot = r
	return nil
}

// Invert implements Surface.
func (d *Paged) Invert(on bool) error {
	if d.halted {
		return ErrHalted
	}
	cmd := byte(0xA6)
	if on {
		cmd = 0xA7
	}
	return d.e.WriteCommand(cmd)
}

// Halt turns the display off.
func (d *Paged) Halt() error {
	d.halted = true
	return d.e.WriteCommand(0xAE)
}

// Width implements Surface.
func (d *Paged) Width() int {
	return d.geo.W
}

// Height implements Surface.
func (d *Paged) Height() int {
	return d.geo.H
}

// Rotation implements Surface.
func (d *Paged) Rotation() Rotation {
	return d.geo.Rot
}

// ColorModel implements display.Drawer.
func (d *Paged) ColorModel() color.Model {
	return image565.Model
}

// Bounds implements display.Drawer.
func (d *Paged) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.geo.W, d.geo.H)
}

// Draw implements display.Drawer.
func (d *Paged) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return ErrHalted
	}
	return drawSrc(d, dst, src, sp)
}

func (d *Paged) String() string {
	return fmt.Sprintf("sh1107{%dx%d}", d.geo.W, d.geo.H)
}

var _ Surface = &Paged{}
