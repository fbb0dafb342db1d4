// Package transfer moves command and pixel bytes to an SPI display controller.
//
// An Engine owns the SPI connection, the data/command (DC) and chip select
// (CS) lines, a scratch buffer and at most one DMA channel. Commands and small
// parameter blocks are written synchronously. Pixel bursts can be started
// asynchronously on the DMA channel and awaited with a bounded timeout; when
// no channel is available the engine degrades to synchronous writes.
//
// An Engine is not safe for concurrent use. Only the DMA completion handler
// runs on another goroutine, and it only touches atomic state.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// State is the bus state of an Engine.
type State uint8

const (
	Idle            State = iota
	SelectedCommand       // CS asserted, DC low
	SelectedData          // CS asserted, DC high
	DMABusy               // asynchronous burst in flight
	Aborted               // last burst was cancelled; behaves like Idle
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case SelectedCommand:
		return "SelectedCommand"
	case SelectedData:
		return "SelectedData"
	case DMABusy:
		return "DMABusy"
	case Aborted:
		return "Aborted"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

var (
	// ErrTimeout is returned when a DMA burst did not complete in time and was
	// aborted.
	ErrTimeout = errors.New("transfer: timed out waiting for DMA completion")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("transfer: engine closed")
)

// Opts is the configuration of an Engine.
type Opts struct {
	// SPI clock (default 40MHz). Only used by NewSPI.
	Hz physic.Frequency

	// Scratch buffer size in bytes (default 4096). A negative value disables
	// the buffer and with it asynchronous transfers.
	BufferSize int

	// Source of the DMA channel. nil means synchronous writes only.
	Channels Allocator

	// Maximum wait for a DMA burst (default 1s).
	Timeout time.Duration

	// Pack DMA pixels byte-swapped when the claimed channel is a WordChannel.
	// Byte-wide channels and synchronous writes are always big-endian.
	SwapDMA bool

	Clock  clockwork.Clock
	Logger *log.Logger
}

// Stats counts engine activity.
type Stats struct {
	Transfers int // bursts started on the DMA channel
	Fallbacks int // bursts written synchronously instead
	Aborts    int
}

// Engine is the transfer handle for one display controller.
type Engine struct {
	c   conn.Conn
	dc  gpio.PinOut
	cs  gpio.PinOut
	ch  Channel
	buf []byte

	swap    bool
	timeout time.Duration
	clock   clockwork.Clock
	log     *log.Logger

	state State
	gen   uint64
	// armed holds the id of the in-flight burst, 0 when none. The completion
	// handler swaps it out so a burst completes at most once.
	armed     atomic.Uint64
	completed atomic.Uint64
	wake      chan struct{}

	stats  Stats
	closed bool
}

// NewSPI connects to p in SPI mode 0 with 8-bit words and returns an Engine
// driving it. cs may be nil when the SPI controller drives chip select.
func NewSPI(p spi.Port, dc, cs gpio.PinOut, opts *Opts) (*Engine, error) {
	if opts == nil {
		opts = &Opts{}
	}
	hz := opts.Hz
	if hz == 0 {
		hz = 40 * physic.MegaHertz
	}
	c, err := p.Connect(hz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to connect to %s: %w", p, err)
	}
	return New(c, dc, cs, opts)
}

// New returns an Engine writing to c.
func New(c conn.Conn, dc, cs gpio.PinOut, opts *Opts) (*Engine, error) {
	if c == nil {
		return nil, errors.New("transfer: nil connection")
	}
	if dc == nil {
		return nil, errors.New("transfer: DC pin is required")
	}
	if opts == nil {
		opts = &Opts{}
	}

	e := &Engine{
		c:       c,
		dc:      dc,
		cs:      cs,
		timeout: opts.Timeout,
		clock:   opts.Clock,
		log:     opts.Logger,
		wake:    make(chan struct{}, 1),
	}
	if e.timeout <= 0 {
		e.timeout = time.Second
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.log == nil {
		e.log = log.New(io.Discard, "", 0)
	}

	switch {
	case opts.BufferSize == 0:
		e.buf = make([]byte, 4096)
	case opts.BufferSize > 0:
		e.buf = make([]byte, opts.BufferSize&^1)
	}

	if err := e.deselect(); err != nil {
		return nil, err
	}

	if opts.Channels != nil && len(e.buf) > 0 {
		ch, err := opts.Channels.Claim(c, e.complete)
		if err != nil {
			e.log.Printf("transfer: DMA unavailable, using synchronous writes: %v", err)
		} else {
			e.ch = ch
			e.swap = opts.SwapDMA && wordWide(ch)
		}
	}
	return e, nil
}

// complete is the DMA completion handler.
func (e *Engine) complete() {
	g := e.armed.Swap(0)
	if g == 0 {
		return
	}
	e.completed.Store(g)
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) selectBus(l gpio.Level, s State) error {
	if e.cs != nil {
		if err := e.cs.Out(gpio.Low); err != nil {
			return fmt.Errorf("transfer: failed to assert CS: %w", err)
		}
	}
	if err := e.dc.Out(l); err != nil {
		return fmt.Errorf("transfer: failed to set DC: %w", err)
	}
	e.state = s
	return nil
}

func (e *Engine) deselect() error {
	e.state = Idle
	if e.cs != nil {
		if err := e.cs.Out(gpio.High); err != nil {
			return fmt.Errorf("transfer: failed to release CS: %w", err)
		}
	}
	return nil
}

// settle makes sure no burst is in flight before the bus is used again. A
// burst that does not finish in time is aborted.
func (e *Engine) settle() error {
	if e.closed {
		return ErrClosed
	}
	if e.state == DMABusy {
		e.WaitForCompletion(e.timeout)
	}
	return nil
}

func (e *Engine) write(l gpio.Level, s State, b []byte) error {
	if err := e.settle(); err != nil {
		return err
	}
	if err := e.selectBus(l, s); err != nil {
		return err
	}
	err := e.c.Tx(b, nil)
	if derr := e.deselect(); err == nil {
		err = derr
	}
	if err != nil {
		return fmt.Errorf("transfer: write failed: %w", err)
	}
	return nil
}

// WriteCommand sends one command byte with DC low.
func (e *Engine) WriteCommand(cmd byte) error {
	return e.write(gpio.Low, SelectedCommand, []byte{cmd})
}

// WriteCommands sends cmds with DC low in a single chip select frame, for
// controllers that take command arguments on the command channel.
func (e *Engine) WriteCommands(cmds []byte) error {
	if len(cmds) == 0 {
		return nil
	}
	return e.write(gpio.Low, SelectedCommand, cmds)
}

// WriteData sends one parameter byte with DC high.
func (e *Engine) WriteData(b byte) error {
	return e.write(gpio.High, SelectedData, []byte{b})
}

// WriteBulk sends p with DC high in a single chip select frame.
func (e *Engine) WriteBulk(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return e.write(gpio.High, SelectedData, p)
}

// Command sends cmd followed by its parameters in one chip select frame.
func (e *Engine) Command(cmd byte, params ...byte) error {
	if err := e.settle(); err != nil {
		return err
	}
	if err := e.selectBus(gpio.Low, SelectedCommand); err != nil {
		return err
	}
	err := e.c.Tx([]byte{cmd}, nil)
	if err == nil && len(params) > 0 {
		if err = e.dc.Out(gpio.High); err == nil {
			e.state = SelectedData
			err = e.c.Tx(params, nil)
		}
	}
	if derr := e.deselect(); err == nil {
		err = derr
	}
	if err != nil {
		return fmt.Errorf("transfer: command %#02x failed: %w", cmd, err)
	}
	return nil
}

// WriteBulkAsync starts sending pixels as big-endian RGB565 on the DMA
// channel and returns true without waiting. The pixels are copied, so the
// caller may reuse the slice at once. When there is no channel, or the
// pixels do not fit in the scratch buffer, they are written synchronously and
// false is returned. A burst still in flight is awaited first.
func (e *Engine) WriteBulkAsync(pixels []uint16) (bool, error) {
	if err := e.settle(); err != nil {
		return false, err
	}
	if len(pixels) == 0 {
		return false, nil
	}
	n := 2 * len(pixels)
	if e.ch == nil || n > len(e.buf) {
		e.stats.Fallbacks++
		return false, e.writePixelsSync(pixels)
	}

	pack(e.buf[:n], pixels, e.swap)
	if err := e.selectBus(gpio.High, SelectedData); err != nil {
		return false, err
	}
	e.gen++
	e.armed.Store(e.gen)
	e.state = DMABusy
	if err := e.ch.Start(e.buf[:n]); err != nil {
		e.armed.Store(0)
		err = fmt.Errorf("transfer: failed to start DMA: %w", err)
		return false, errors.Join(err, e.deselect())
	}
	e.stats.Transfers++
	return true, nil
}

func (e *Engine) writePixelsSync(pixels []uint16) error {
	var local [512]byte
	scratch := e.buf
	if len(scratch) < 2 {
		scratch = local[:]
	}
	if err := e.selectBus(gpio.High, SelectedData); err != nil {
		return err
	}
	var err error
	for len(pixels) > 0 && err == nil {
		k := min(len(pixels), len(scratch)/2)
		pack(scratch[:2*k], pixels[:k], false)
		err = e.c.Tx(scratch[:2*k], nil)
		pixels = pixels[k:]
	}
	if derr := e.deselect(); err == nil {
		err = derr
	}
	if err != nil {
		return fmt.Errorf("transfer: pixel write failed: %w", err)
	}
	return nil
}

func pack(dst []byte, pixels []uint16, swap bool) {
	if swap {
		for i, p := range pixels {
			dst[2*i] = byte(p)
			dst[2*i+1] = byte(p >> 8)
		}
		return
	}
	for i, p := range pixels {
		dst[2*i] = byte(p >> 8)
		dst[2*i+1] = byte(p)
	}
}

// WritePixels sends pixels in scratch-sized bursts, waiting for each burst
// before packing the next. It returns ErrTimeout if a burst was aborted.
func (e *Engine) WritePixels(pixels []uint16) error {
	chunk := len(e.buf) / 2
	if chunk == 0 || e.ch == nil {
		if err := e.settle(); err != nil {
			return err
		}
		if len(pixels) == 0 {
			return nil
		}
		e.stats.Fallbacks++
		return e.writePixelsSync(pixels)
	}
	for len(pixels) > 0 {
		k := min(len(pixels), chunk)
		started, err := e.WriteBulkAsync(pixels[:k])
		if err != nil {
			return err
		}
		if started && !e.WaitForCompletion(e.timeout) {
			return ErrTimeout
		}
		pixels = pixels[k:]
	}
	return nil
}

// WaitForCompletion blocks until the in-flight burst completes or timeout
// elapses. On completion CS is released and the engine is Idle. On timeout the
// burst is aborted and false is returned. It returns true at once when no burst
// is in flight.
func (e *Engine) WaitForCompletion(timeout time.Duration) bool {
	if e.state != DMABusy {
		return true
	}
	if e.completed.Load() >= e.gen {
		e.deselect()
		return true
	}
	t := e.clock.NewTimer(timeout)
	defer t.Stop()
	for {
		select {
		case <-e.wake:
			if e.completed.Load() >= e.gen {
				e.deselect()
				return true
			}
		case <-t.Chan():
			if e.completed.Load() >= e.gen {
				e.deselect()
				return true
			}
			e.log.Printf("transfer: DMA burst %d timed out after %v, aborting", e.gen, timeout)
			e.Abort()
			return false
		}
	}
}

// Busy reports whether a burst is still in flight.
func (e *Engine) Busy() bool {
	if e.state != DMABusy {
		return false
	}
	if e.completed.Load() >= e.gen {
		e.deselect()
		return false
	}
	return true
}

// Abort cancels the in-flight burst, if any, and releases CS. Bytes not yet
// sent are lost. A completion arriving afterwards is ignored.
func (e *Engine) Abort() {
	if e.armed.Swap(0) != 0 || e.state == DMABusy {
		e.stats.Aborts++
	}
	if e.ch != nil {
		e.ch.Abort()
	}
	e.deselect()
	e.state = Aborted
}

// Close aborts any burst, releases the DMA channel and drops the scratch
// buffer. Calling Close more than once is a no-op.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	if e.state == DMABusy {
		e.Abort()
	}
	if e.ch != nil {
		e.ch.Release()
		e.ch = nil
	}
	e.buf = nil
	e.closed = true
	return nil
}

// State returns the current bus state.
func (e *Engine) State() State {
	return e.state
}

// DMA reports whether the engine holds a DMA channel.
func (e *Engine) DMA() bool {
	return e.ch != nil
}

// Swapped reports whether DMA bursts are packed byte-swapped.
func (e *Engine) Swapped() bool {
	return e.swap
}

// Stats returns the activity counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Timeout returns the default burst timeout.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

func (e *Engine) String() string {
	mode := "sync"
	if e.ch != nil {
		mode = "dma"
	}
	return fmt.Sprintf("transfer.Engine{%s, %s, %dB}", e.c, mode, len(e.buf))
}
