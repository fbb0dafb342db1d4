// Package source decodes the sample stream of a handheld LCD tap.
//
// The sampler produces one 32-bit word per pixel clock. Bit 31 carries the
// vertical sync line and bits 29 and 30 the two data lines, which together
// form the 2-bit palette index of the pixel.
package source

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// Native resolution of the captured LCD.
const (
	W = 160
	H = 144
)

const (
	vsyncBit = 31
	data1Bit = 30
	data0Bit = 29
)

// Source yields sample words. Next blocks until a word is available.
type Source interface {
	Next() (uint32, error)
}

// Func adapts a function to Source.
type Func func() (uint32, error)

// Next implements Source.
func (f Func) Next() (uint32, error) {
	return f()
}

// VSync reports the vertical sync level of w.
func VSync(w uint32) bool {
	return w>>vsyncBit&1 == 1
}

// Index returns the 2-bit palette index of w, 0 being the lightest shade.
func Index(w uint32) uint8 {
	return uint8(w>>data1Bit&1)<<1 | uint8(w>>data0Bit&1)
}

// Word encodes a sample word.
func Word(index uint8, vsync bool) uint32 {
	w := uint32(index>>1&1)<<data1Bit | uint32(index&1)<<data0Bit
	if vsync {
		w |= 1 << vsyncBit
	}
	return w
}

// Pattern is a synthetic Source. Each frame is preceded by Blank words with
// vsync high; the W*H pixel words that follow have vsync low, so the first
// pixel of every frame is the falling edge.
type Pattern struct {
	// Blanking words before each frame (default 16).
	Blank int
	// Number of frames to produce before io.EOF; 0 means no end.
	Frames int
	// Fill returns the palette index at (x, y) of frame n. The default draws
	// diagonal bands that move one pixel per frame.
	Fill func(x, y, n int) uint8

	frame int
	pos   int
}

// Bands is the default Pattern fill.
func Bands(x, y, n int) uint8 {
	return uint8((x + y + n) / 8 % 4)
}

// Solid returns a fill painting every pixel with index.
func Solid(index uint8) func(x, y, n int) uint8 {
	return func(int, int, int) uint8 { return index }
}

// Next implements Source.
func (p *Pattern) Next() (uint32, error) {
	if p.Frames > 0 && p.frame >= p.Frames {
		return 0, io.EOF
	}
	blank := p.Blank
	if blank <= 0 {
		blank = 16
	}
	fill := p.Fill
	if fill == nil {
		fill = Bands
	}
	i := p.pos
	p.pos++
	if i < blank {
		return Word(0, true), nil
	}
	i -= blank
	w := Word(fill(i%W, i/W, p.frame), false)
	if i == W*H-1 {
		p.pos = 0
		p.frame++
	}
	return w, nil
}

// Frame returns the number of frames completed so far.
func (p *Pattern) Frame() int {
	return p.frame
}

// Replay is a Source reading little-endian words from a recorded stream.
type Replay struct {
	r   *bufio.Reader
	buf [4]byte
}

// NewReplay returns a Source reading words from r. A stream that ends inside
// a word returns io.ErrUnexpectedEOF.
func NewReplay(r io.Reader) *Replay {
	return &Replay{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next implements Source.
func (r *Replay) Next() (uint32, error) {
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.buf[:]), nil
}

// Record copies n words from src to w in the format Replay reads. It stops
// early without error when src returns io.EOF.
func Record(w io.Writer, src Source, n int) (int, error) {
	bw := bufio.NewWriter(w)
	var buf [4]byte
	i := 0
	for ; i < n; i++ {
		v, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return i, err
		}
		binary.LittleEndian.PutUint32(buf[:], v)
		if _, err := bw.Write(buf[:]); err != nil {
			return i, err
		}
	}
	return i, bw.Flush()
}
