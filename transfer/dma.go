package transfer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"periph.io/x/conn/v3"
)

// ErrNoChannel is returned by an Allocator when every channel is claimed.
var ErrNoChannel = errors.New("transfer: no DMA channel available")

// Channel is a claimed DMA channel. Start begins streaming buf and returns
// immediately; the completion handler passed to Claim runs once the last byte
// has left. Abort halts the channel and returns once it has stopped touching
// the buffer. Release frees the channel for another claimant.
type Channel interface {
	Start(buf []byte) error
	Abort()
	Release()
}

// WordChannel is implemented by channels that move 16-bit words. Such a
// channel reads every word from memory in host (little-endian) order and
// shifts it out most significant byte first, so the engine hands it
// byte-swapped buffers when Opts.SwapDMA is set.
type WordChannel interface {
	Channel
	WordWide() bool
}

func wordWide(ch Channel) bool {
	w, ok := ch.(WordChannel)
	return ok && w.WordWide()
}

// Allocator hands out DMA channels bound to a connection. done is invoked from
// the channel's own goroutine when a started transfer completes.
type Allocator interface {
	Claim(c conn.Conn, done func()) (Channel, error)
}

// Pool is a fixed set of numbered DMA channels that stream to a conn.Conn from
// a background goroutine, Burst bytes per Tx.
type Pool struct {
	// Burst is the number of bytes written per Tx. Aborts take effect between
	// bursts.
	Burst int

	// Words makes the channels 16-bit wide. Bursts are rounded up to an
	// even number of bytes.
	Words bool

	mu     sync.Mutex
	claims []bool
}

// NewPool returns a pool of n channels.
func NewPool(n int) *Pool {
	return &Pool{Burst: 512, claims: make([]bool, n)}
}

// Claim reserves the lowest numbered free channel.
func (p *Pool) Claim(c conn.Conn, done func()) (Channel, error) {
	if c == nil {
		return nil, errors.New("transfer: nil connection")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, used := range p.claims {
		if !used {
			p.claims[i] = true
			burst := p.Burst
			if burst <= 0 {
				burst = 512
			}
			ch := &poolChannel{pool: p, num: i, c: c, done: done, burst: burst, words: p.Words}
			if ch.words {
				ch.burst += burst & 1
				ch.wire = make([]byte, ch.burst)
			}
			return ch, nil
		}
	}
	return nil, ErrNoChannel
}

// Free returns the number of unclaimed channels.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, used := range p.claims {
		if !used {
			n++
		}
	}
	return n
}

func (p *Pool) release(num int) {
	p.mu.Lock()
	p.claims[num] = false
	p.mu.Unlock()
}

type poolChannel struct {
	pool  *Pool
	num   int
	c     conn.Conn
	done  func()
	burst int
	words bool
	wire  []byte

	abort    atomic.Bool
	wg       sync.WaitGroup
	released bool
}

func (ch *poolChannel) String() string {
	return fmt.Sprintf("dma%d", ch.num)
}

func (ch *poolChannel) Start(buf []byte) error {
	if ch.released {
		return errors.New("transfer: channel released")
	}
	ch.wg.Wait()
	ch.abort.Store(false)
	ch.wg.Add(1)
	go ch.run(buf)
	return nil
}

func (ch *poolChannel) run(buf []byte) {
	defer ch.wg.Done()
	for off := 0; off < len(buf); off += ch.burst {
		if ch.abort.Load() {
			return
		}
		end := min(off+ch.burst, len(buf))
		out := buf[off:end]
		if ch.words {
			out = ch.wire[:len(out)]
			for i := 0; i+1 < len(out); i += 2 {
				out[i], out[i+1] = buf[off+i+1], buf[off+i]
			}
		}
		if err := ch.c.Tx(out, nil); err != nil {
			// the engine notices through its completion timeout
			return
		}
	}
	if ch.done != nil {
		ch.done()
	}
}

func (ch *poolChannel) WordWide() bool {
	return ch.words
}

func (ch *poolChannel) Abort() {
	ch.abort.Store(true)
	ch.wg.Wait()
}

func (ch *poolChannel) Release() {
	if ch.released {
		return
	}
	ch.Abort()
	ch.released = true
	ch.pool.release(ch.num)
}
