package panel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/flavioheleno/gblcd/image565"
	"github.com/flavioheleno/gblcd/transfer"
	"periph.io/x/conn/v3/physic"
)

const (
	cmdSWRESET = 0x01
	cmdSLPOUT  = 0x11
	cmdNORON   = 0x13
	cmdINVOFF  = 0x20
	cmdINVON   = 0x21
	cmdDISPOFF = 0x28
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdRASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdCOLMOD  = 0x3A

	madMY  = 0x80 // row address order
	madMX  = 0x40 // column address order
	madMV  = 0x20 // row/column exchange
	madBGR = 0x08
)

// Orientation is one entry of a controller's rotation table, expressed as
// the three memory access facets.
type Orientation struct {
	MirrorRows bool
	MirrorCols bool
	Swap       bool
}

// MADCTL encodes the orientation as a memory access control byte, without
// the color order bit.
func (o Orientation) MADCTL() byte {
	var b byte
	if o.MirrorRows {
		b |= madMY
	}
	if o.MirrorCols {
		b |= madMX
	}
	if o.Swap {
		b |= madMV
	}
	return b
}

// Step is one command of an initialization sequence.
type Step struct {
	Cmd    byte
	Params []byte
	Delay  time.Duration
}

// Variant describes a windowed controller.
type Variant struct {
	Name string
	// Native size at Rotation0.
	W, H int
	// Orientation per rotation, indexed by Rotation0..Rotation270.
	Orientation [4]Orientation
	// Color order bit added to every MADCTL write.
	ColorOrder byte
	// Panel shows correct colors with inversion on (IPS glass).
	Inverted bool
	// Vendor specific commands run after pixel format setup.
	Init []Step
	// Suggested SPI clock and scratch buffer size.
	Hz         physic.Frequency
	BufferSize int
	// DMA buffers are filled byte-swapped for word-wide channels. Copy into
	// transfer.Opts.SwapDMA.
	SwapDMA bool
}

// Windowed is a windowed RGB565 controller.
type Windowed struct {
	e      *transfer.Engine
	v      Variant
	o      Opts
	geo    Geometry
	win    Window
	fill   []uint16
	halted bool
	sleep  func(time.Duration)
}

// NewWindowed returns a handle for controller v driven by e. Call Init
// before drawing.
func NewWindowed(e *transfer.Engine, v Variant, opts *Opts) (*Windowed, error) {
	if e == nil {
		return nil, errors.New("panel: nil transfer engine")
	}
	if opts == nil {
		opts = &Opts{}
	}
	if err := validRotation(opts.Rotation); err != nil {
		return nil, err
	}
	g := Geometry{W: v.W, H: v.H, Rot: opts.Rotation}
	if opts.Width > 0 {
		g.W = opts.Width
	}
	if opts.Height > 0 {
		g.H = opts.Height
	}
	if g.W <= 0 || g.H <= 0 {
		return nil, fmt.Errorf("panel: invalid size %dx%d", g.W, g.H)
	}
	return &Windowed{
		e:     e,
		v:     v,
		o:     *opts,
		geo:   g,
		sleep: time.Sleep,
	}, nil
}

func (d *Windowed) run(steps []Step) error {
	for _, s := range steps {
		if err := d.e.Command(s.Cmd, s.Params...); err != nil {
			return fmt.Errorf("panel: %s init failed: %w", d.v.Name, err)
		}
		if s.Delay > 0 {
			d.sleep(s.Delay)
		}
	}
	return nil
}

// Init resets the controller, selects 16-bit pixels, applies the rotation
// and turns the display on.
func (d *Windowed) Init() error {
	if err := reset(d.o.Reset, d.sleep); err != nil {
		return err
	}
	if err := d.run([]Step{
		{Cmd: cmdSWRESET, Delay: 150 * time.Millisecond},
		{Cmd: cmdSLPOUT, Delay: 120 * time.Millisecond},
		{Cmd: cmdCOLMOD, Params: []byte{0x55}, Delay: 10 * time.Millisecond},
	}); err != nil {
		return err
	}
	if err := d.run(d.v.Init); err != nil {
		return err
	}
	if err := d.SetRotation(d.geo.Rot); err != nil {
		return err
	}
	inv := byte(cmdINVOFF)
	if d.v.Inverted {
		inv = cmdINVON
	}
	if err := d.run([]Step{
		{Cmd: inv},
		{Cmd: cmdNORON, Delay: 10 * time.Millisecond},
		{Cmd: cmdDISPON, Delay: 20 * time.Millisecond},
	}); err != nil {
		return err
	}
	d.halted = false
	return nil
}

// SetWindow arms the inclusive window (x0, y0)-(x1, y1) and starts a RAM
// write. The next (x1-x0+1)*(y1-y0+1) pixels fill it row by row.
func (d *Windowed) SetWindow(x0, y0, x1, y1 int) error {
	w, h := d.geo.Size()
	if x1 < x0 || y1 < y0 || x0 < 0 || y0 < 0 || x1 >= w || y1 >= h {
		return fmt.Errorf("panel: window (%d,%d)-(%d,%d) outside %dx%d", x0, y0, x1, y1, w, h)
	}
	if err := d.e.Command(cmdCASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.e.Command(cmdRASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	if err := d.e.WriteCommand(cmdRAMWR); err != nil {
		return err
	}
	d.win = Window{x0, y0, x1, y1}
	return nil
}

// DrawImage implements Surface.
func (d *Windowed) DrawImage(x, y, w, h int, pix []uint16) error {
	if d.halted {
		return ErrHalted
	}
	if w > 0 && h > 0 && len(pix) < w*h {
		return fmt.Errorf("panel: %d pixels for a %dx%d block", len(pix), w, h)
	}
	r, ok := clip(x, y, w, h, d.geo.Bounds())
	if !ok {
		return nil
	}
	if err := d.SetWindow(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1); err != nil {
		return err
	}
	ox, oy := r.Min.X-x, r.Min.Y-y
	if r.Dx() == w {
		start := oy * w
		return d.write(pix[start : start+w*r.Dy()])
	}
	for row := oy; row < oy+r.Dy(); row++ {
		start := row*w + ox
		if err := d.write(pix[start : start+r.Dx()]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Windowed) write(pix []uint16) error {
	if err := d.e.WritePixels(pix); err != nil {
		return fmt.Errorf("panel: %s pixel write failed: %w", d.v.Name, err)
	}
	return nil
}

// FillRect implements Surface.
func (d *Windowed) FillRect(x, y, w, h int, c image565.Color) error {
	if d.halted {
		return ErrHalted
	}
	r, ok := clip(x, y, w, h, d.geo.Bounds())
	if !ok {
		return nil
	}
	if err := d.SetWindow(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1); err != nil {
		return err
	}
	n := r.Dx() * r.Dy()
	if len(d.fill) == 0 {
		d.fill = make([]uint16, 1024)
	}
	chunk := d.fill[:min(n, len(d.fill))]
	for i := range chunk {
		chunk[i] = uint16(c)
	}
	for n > 0 {
		k := min(n, len(chunk))
		if err := d.write(chunk[:k]); err != nil {
			return err
		}
		n -= k
	}
	return nil
}

// ClearScreen implements Surface.
func (d *Windowed) ClearScreen(c image565.Color) error {
	w, h := d.geo.Size()
	return d.FillRect(0, 0, w, h, c)
}

// SetRotation writes the orientation for r. When the visible width and
// height change, a full-screen window is re-armed.
func (d *Windowed) SetRotation(r Rotation) error {
	if err := validRotation(r); err != nil {
		return err
	}
	mad := d.v.Orientation[r].MADCTL() | d.v.ColorOrder
	if err := d.e.Command(cmdMADCTL, mad); err != nil {
		return err
	}
	ow, _ := d.geo.Size()
	d.geo.Rot = r
	w, h := d.geo.Size()
	if w != ow {
		return d.SetWindow(0, 0, w-1, h-1)
	}
	return nil
}

// Invert inverts the displayed colors.
func (d *Windowed) Invert(on bool) error {
	if d.halted {
		return ErrHalted
	}
	cmd := byte(cmdINVOFF)
	if on != d.v.Inverted {
		cmd = cmdINVON
	}
	return d.e.WriteCommand(cmd)
}

// Halt turns the display off. Init turns it back on.
func (d *Windowed) Halt() error {
	d.halted = true
	return d.e.WriteCommand(cmdDISPOFF)
}

// Width implements Surface.
func (d *Windowed) Width() int {
	w, _ := d.geo.Size()
	return w
}

// Height implements Surface.
func (d *Windowed) Height() int {
	_, h := d.geo.Size()
	return h
}

// Rotation implements Surface.
func (d *Windowed) Rotation() Rotation {
	return d.geo.Rot
}

// Window returns the last armed address window.
func (d *Windowed) Window() Window {
	return d.win
}

// Variant returns the controller description.
func (d *Windowed) Variant() Variant {
	return d.v
}

// ColorModel implements display.Drawer.
func (d *Windowed) ColorModel() color.Model {
	return image565.Model
}

// Bounds implements display.Drawer.
func (d *Windowed) Bounds() image.Rectangle {
	return d.geo.Bounds()
}

// Draw implements display.Drawer.
func (d *Windowed) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return ErrHalted
	}
	return drawSrc(d, dst, src, sp)
}

func (d *Windowed) String() string {
	w, h := d.geo.Size()
	return fmt.Sprintf("%s{%dx%d}", d.v.Name, w, h)
}

var _ Surface = &Windowed{}
