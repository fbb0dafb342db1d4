// Package paneltest emulates SPI display controllers for tests and for the
// desktop simulator.
//
// A Panel is both an spi.Port and the spi.Conn it returns. It samples its own
// DC and CS pins on every Tx, decodes the byte stream the way the controller
// would, keeps the resulting picture and records every protocol violation it
// sees: bytes clocked while CS is released, inverted or out of range address
// windows, more pixels than the armed window holds, and half pixels.
package paneltest

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/flavioheleno/gblcd/image565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Model selects the addressing scheme of the emulated controller.
type Model int

const (
	// Windowed controllers take a CASET/RASET window followed by RAMWR and
	// 16-bit big-endian pixels (ST7789, ILI9341, ILI9342, ST7796).
	Windowed Model = iota
	// Paged controllers take page and column commands followed by bytes of
	// eight vertical pixels (SH1107).
	Paged
)

const (
	cmdNOP    = 0x00
	cmdCASET  = 0x2A
	cmdRASET  = 0x2B
	cmdRAMWR  = 0x2C
	cmdMADCTL = 0x36
	madctlMV  = 0x20
)

// Command is one decoded command with its parameters.
type Command struct {
	Code   byte
	Params []byte
}

// Panel is an emulated display controller.
type Panel struct {
	DC *gpiotest.Pin
	CS *gpiotest.Pin

	model Model
	nw    int // native width
	nh    int // native height

	mu         sync.Mutex
	hz         physic.Frequency
	w, h       int
	cmds       []Command
	cur        *Command
	violations []error

	// windowed state
	ram            []uint16
	x0, x1, y0, y1 int
	cx, cy         int
	remaining      int
	writing        bool
	half           bool
	hi             byte
	written        int

	// paged state
	pages []byte
	page  int
	col   int
	arg   bool
}

// New returns an emulated controller of the given model with a native
// resolution of w x h. CS starts released.
func New(model Model, w, h int) *Panel {
	p := &Panel{
		DC:    &gpiotest.Pin{N: "DC", Num: 25},
		CS:    &gpiotest.Pin{N: "CS", Num: 8, L: gpio.High},
		model: model,
		nw:    w,
		nh:    h,
		w:     w,
		h:     h,
	}
	if model == Paged {
		p.pages = make([]byte, w*((h+7)/8))
	} else {
		p.ram = make([]uint16, w*h)
		p.x1, p.y1 = w-1, h-1
	}
	return p
}

// NewWithoutCS returns a controller whose chip select is tied active.
func NewWithoutCS(model Model, w, h int) *Panel {
	p := New(model, w, h)
	p.CS = nil
	return p
}

func (p *Panel) String() string {
	return fmt.Sprintf("paneltest.Panel{%dx%d}", p.nw, p.nh)
}

// Close implements spi.PortCloser.
func (p *Panel) Close() error {
	return nil
}

// LimitSpeed implements spi.PortCloser.
func (p *Panel) LimitSpeed(f physic.Frequency) error {
	return nil
}

// Connect implements spi.Port.
func (p *Panel) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, fmt.Errorf("paneltest: unsupported word size %d", bits)
	}
	if mode != spi.Mode0 && mode != spi.Mode3 {
		return nil, fmt.Errorf("paneltest: unsupported mode %s", mode)
	}
	p.mu.Lock()
	p.hz = f
	p.mu.Unlock()
	return p, nil
}

// Duplex implements conn.Conn.
func (p *Panel) Duplex() conn.Duplex {
	return conn.Half
}

// TxPackets implements spi.Conn.
func (p *Panel) TxPackets(pkts []spi.Packet) error {
	for _, pk := range pkts {
		if err := p.Tx(pk.W, pk.R); err != nil {
			return err
		}
	}
	return nil
}

// Tx implements conn.Conn. Reads are not supported.
func (p *Panel) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("paneltest: read not supported")
	}
	data := p.DC.Read() == gpio.High
	selected := p.CS == nil || p.CS.Read() == gpio.Low

	p.mu.Lock()
	defer p.mu.Unlock()
	if !selected {
		p.violate("%d bytes clocked with CS released", len(w))
		return nil
	}
	for _, b := range w {
		if p.model == Paged {
			p.paged(b, data)
		} else {
			p.windowed(b, data)
		}
	}
	return nil
}

func (p *Panel) violate(format string, args ...any) {
	p.violations = append(p.violations, fmt.Errorf("paneltest: "+format, args...))
}

func (p *Panel) windowed(b byte, data bool) {
	if !data {
		p.endCommand()
		p.cmds = append(p.cmds, Command{Code: b})
		p.cur = &p.cmds[len(p.cmds)-1]
		if b == cmdRAMWR {
			p.writing = true
			p.cx, p.cy = p.x0, p.y0
			p.remaining = (p.x1 - p.x0 + 1) * (p.y1 - p.y0 + 1)
			p.written = 0
		}
		return
	}
	if p.cur == nil {
		p.violate("data byte %#02x before any command", b)
		return
	}
	if !p.writing {
		p.cur.Params = append(p.cur.Params, b)
		if n, ok := paramCount[p.cur.Code]; ok && len(p.cur.Params) == n {
			p.apply(p.cur)
		}
		return
	}
	if !p.half {
		p.hi, p.half = b, true
		return
	}
	p.half = false
	px := uint16(p.hi)<<8 | uint16(b)
	if p.remaining == 0 {
		p.violate("pixel %d overflows window (%d,%d)-(%d,%d)", p.written+1, p.x0, p.y0, p.x1, p.y1)
		p.written++
		return
	}
	p.ram[p.cy*p.w+p.cx] = px
	p.written++
	p.remaining--
	if p.cx++; p.cx > p.x1 {
		p.cx = p.x0
		p.cy++
	}
}

var paramCount = map[byte]int{cmdCASET: 4, cmdRASET: 4, cmdMADCTL: 1}

// endCommand closes the command being collected.
func (p *Panel) endCommand() {
	if p.cur == nil {
		return
	}
	c := p.cur
	p.cur = nil
	if p.writing {
		p.writing = false
		if p.half {
			p.half = false
			p.violate("RAMWR ended on half a pixel")
		}
		return
	}
	if n, ok := paramCount[c.Code]; ok && len(c.Params) != n {
		p.violate("%#02x with %d parameter bytes, want %d", c.Code, len(c.Params), n)
	}
}

// apply acts on a command once all its parameters have arrived.
func (p *Panel) apply(c *Command) {
	switch c.Code {
	case cmdCASET, cmdRASET:
		s := int(c.Params[0])<<8 | int(c.Params[1])
		e := int(c.Params[2])<<8 | int(c.Params[3])
		lim := p.w
		if c.Code == cmdRASET {
			lim = p.h
		}
		if e < s || e >= lim {
			p.violate("%#02x range %d..%d outside 0..%d", c.Code, s, e, lim-1)
			return
		}
		if c.Code == cmdCASET {
			p.x0, p.x1 = s, e
		} else {
			p.y0, p.y1 = s, e
		}
	case cmdMADCTL:
		w, h := p.nw, p.nh
		if c.Params[0]&madctlMV != 0 {
			w, h = h, w
		}
		if w != p.w {
			p.w, p.h = w, h
			p.ram = make([]uint16, w*h)
			p.x0, p.y0, p.x1, p.y1 = 0, 0, w-1, h-1
		}
	}
}

// paged decodes the SH1107 command set. Commands and their arguments are
// all sent with DC low.
func (p *Panel) paged(b byte, data bool) {
	if data {
		pages := len(p.pages) / p.nw
		if p.col >= p.nw || p.page >= pages {
			p.violate("data byte outside page %d column %d", p.page, p.col)
			return
		}
		p.pages[p.page*p.nw+p.col] = b
		p.col++
		p.written++
		return
	}
	if p.arg {
		p.arg = false
		p.cur.Params = append(p.cur.Params, b)
		return
	}
	p.cmds = append(p.cmds, Command{Code: b})
	p.cur = &p.cmds[len(p.cmds)-1]
	switch {
	case b >= 0xB0 && b <= 0xBF:
		p.page = int(b & 0x0F)
		p.written = 0
	case b <= 0x0F:
		p.col = p.col&^0x0F | int(b)
	case b >= 0x10 && b <= 0x17:
		p.col = p.col&0x0F | int(b&0x07)<<4
	case b == 0x81, b == 0xA8, b == 0xAD, b == 0xD3, b == 0xD5,
		b == 0xD9, b == 0xDA, b == 0xDB, b == 0xDC:
		p.arg = true
	}
}

// Err returns every violation seen so far, or nil.
func (p *Panel) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.violations...)
}

// Commands returns the commands decoded so far.
func (p *Panel) Commands() []Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Command, len(p.cmds))
	copy(out, p.cmds)
	return out
}

// Last returns the most recent command with the given code.
func (p *Panel) Last(code byte) (Command, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.cmds) - 1; i >= 0; i-- {
		if p.cmds[i].Code == code {
			return p.cmds[i], true
		}
	}
	return Command{}, false
}

// Reset forgets recorded commands and violations, keeping the picture.
func (p *Panel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmds = nil
	p.cur = nil
	p.violations = nil
}

// Written returns the number of pixels (windowed) or page bytes (paged) sent
// since the last RAMWR or page command.
func (p *Panel) Written() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// Hz returns the clock requested in Connect.
func (p *Panel) Hz() physic.Frequency {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hz
}

// Size returns the current logical size.
func (p *Panel) Size() (w, h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w, p.h
}

// At returns the pixel at (x, y): the RGB565 value for windowed controllers,
// 0xFFFF or 0 for paged ones.
func (p *Panel) At(x, y int) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == Paged {
		if x < 0 || y < 0 || x >= p.nw || y >= p.nh {
			return 0
		}
		if p.pages[(y/8)*p.nw+x]&(1<<(y%8)) != 0 {
			return 0xFFFF
		}
		return 0
	}
	if x < 0 || y < 0 || x >= p.w || y >= p.h {
		return 0
	}
	return p.ram[y*p.w+x]
}

// Page returns the byte at page and column.
func (p *Panel) Page(page, col int) byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pages[page*p.nw+col]
}

// Snapshot copies the current picture into a new Frame.
func (p *Panel) Snapshot() *image565.Frame {
	w, h := p.Size()
	f := image565.NewFrame(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Pix[y*w+x] = p.At(x, y)
		}
	}
	return f
}

var (
	_ spi.PortCloser = &Panel{}
	_ spi.Conn       = &Panel{}
)
