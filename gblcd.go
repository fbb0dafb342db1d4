package gblcd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"math"

	"github.com/flavioheleno/gblcd/dither"
	"github.com/flavioheleno/gblcd/image565"
	"github.com/flavioheleno/gblcd/panel"
	"github.com/flavioheleno/gblcd/scale"
	"github.com/flavioheleno/gblcd/source"
	"github.com/flavioheleno/gblcd/transfer"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Config is the configuration of a Pipeline.
type Config struct {
	// Colors for palette indices 0 (lightest) to 3 (darkest). The zero value
	// selects image565.Green.
	Palette image565.Palette

	// Scale factor. 0 picks the largest factor, in thousandths, at which
	// the frame fits the panel.
	Scale float64

	// Size of the scaled frame. 0 derives it from Scale.
	Width, Height int

	// Position of the frame on the panel. Ignored when Center is set.
	Offset image.Point
	Center bool

	Dither dither.Mode
	// Output tones of the dithered image. When both are zero, white and
	// black are used.
	ToneLight, ToneDark image565.Color

	// Text shown by Run until the first frame arrives.
	Splash string

	Logger *log.Logger
}

// Stats counts pipeline activity.
type Stats struct {
	Frames   int // frames drawn
	Timeouts int // frames whose transfer timed out
	Edges    int // vsync falling edges seen
}

// Pipeline is the capture loop.
type Pipeline struct {
	src source.Source
	s   panel.Surface
	cfg Config
	log *log.Logger

	m      scale.Map
	direct bool
	w, h   int
	at     image.Point
	frame  []uint16
	out    []uint16

	prev    bool
	started bool
	stats   Stats
}

// New returns a Pipeline drawing frames from src on s. s must already be
// initialized.
func New(src source.Source, s panel.Surface, cfg Config) (*Pipeline, error) {
	if src == nil {
		return nil, errors.New("gblcd: nil source")
	}
	if s == nil {
		return nil, errors.New("gblcd: nil surface")
	}
	if cfg.Palette == (image565.Palette{}) {
		cfg.Palette = image565.Green
	}
	if cfg.ToneLight == 0 && cfg.ToneDark == 0 {
		cfg.ToneLight = 0xFFFF
	}
	if cfg.Scale == 0 {
		cfg.Scale = Fit(s.Width(), s.Height())
	}
	w, h := scale.Dims(source.W, source.H, cfg.Scale)
	if cfg.Width > 0 {
		w = cfg.Width
	}
	if cfg.Height > 0 {
		h = cfg.Height
	}
	m, err := scale.Build(source.W, source.H, w, h, cfg.Scale)
	if err != nil {
		return nil, fmt.Errorf("gblcd: %w", err)
	}
	at := cfg.Offset
	if cfg.Center {
		at = image.Pt((s.Width()-w)/2, (s.Height()-h)/2)
	}
	l := cfg.Logger
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	p := &Pipeline{
		src:   src,
		s:     s,
		cfg:   cfg,
		log:   l,
		m:     m,
		w:     w,
		h:     h,
		at:    at,
		frame: make([]uint16, source.W*source.H),
	}
	if m.Identity() {
		p.direct = true
		p.out = p.frame
	} else {
		p.out = make([]uint16, w*h)
	}
	return p, nil
}

// Fit returns the largest scale factor, rounded down to thousandths, at
// which a captured frame fits a w x h panel.
func Fit(w, h int) float64 {
	s := math.Min(float64(w)/source.W, float64(h)/source.H)
	return math.Floor(s*1000) / 1000
}

// Step waits for the next frame, captures it and draws it. It returns the
// source error if the source fails, including io.EOF.
func (p *Pipeline) Step(ctx context.Context) error {
	first, err := p.waitEdge(ctx)
	if err != nil {
		return err
	}
	p.stats.Edges++
	if !p.started {
		p.started = true
		if err := p.s.ClearScreen(0x0000); err != nil {
			return fmt.Errorf("gblcd: clear failed: %w", err)
		}
	}
	if err := p.capture(first); err != nil {
		return err
	}
	if !p.direct {
		p.m.Apply(p.out, p.frame)
	}
	dither.Apply(p.cfg.Dither, p.out, p.w, p.h, p.cfg.Palette, p.cfg.ToneLight, p.cfg.ToneDark)
	if err := p.s.DrawImage(p.at.X, p.at.Y, p.w, p.h, p.out); err != nil {
		return fmt.Errorf("gblcd: frame %d: %w", p.stats.Edges, err)
	}
	p.stats.Frames++
	return nil
}

// waitEdge reads words until vsync falls and returns the edge word.
func (p *Pipeline) waitEdge(ctx context.Context) (uint32, error) {
	for n := 0; ; n++ {
		if n&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		w, err := p.src.Next()
		if err != nil {
			return 0, err
		}
		v := source.VSync(w)
		edge := p.prev && !v
		p.prev = v
		if edge {
			return w, nil
		}
	}
}

// capture fills the source frame. The edge word is the first pixel.
func (p *Pipeline) capture(first uint32) error {
	pal := p.cfg.Palette
	p.frame[0] = uint16(pal.Lookup(source.Index(first)))
	for i := 1; i < len(p.frame); i++ {
		w, err := p.src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("gblcd: source ended at pixel %d: %w", i, err)
		}
		p.frame[i] = uint16(pal.Lookup(source.Index(w)))
	}
	return nil
}

// Run draws the splash text, if any, and then frames until ctx is done or
// the source fails. A source that ends cleanly between frames is not an
// error.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.cfg.Splash != "" {
		if err := p.splash(p.cfg.Splash); err != nil {
			return err
		}
	}
	for {
		err := p.Step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, transfer.ErrTimeout):
			p.stats.Timeouts++
			p.log.Printf("gblcd: %v", err)
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}

// splash draws text centered on a black screen.
func (p *Pipeline) splash(text string) error {
	c := panel.NewCanvas(p.s)
	c.Fill(0x0000)
	font := &proggy.TinySZ8pt7b
	_, outbox := tinyfont.LineWidth(font, text)
	w, h := c.Size()
	x := (w - int16(outbox)) / 2
	if x < 0 {
		x = 0
	}
	tinyfont.WriteLine(c, font, x, h/2, text, color.RGBA{0xFF, 0xFF, 0xFF, 0xFF})
	if err := c.Display(); err != nil {
		return fmt.Errorf("gblcd: splash failed: %w", err)
	}
	return nil
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Size returns the size of the drawn frame.
func (p *Pipeline) Size() (w, h int) {
	return p.w, p.h
}

// Origin returns the panel position of the frame.
func (p *Pipeline) Origin() image.Point {
	return p.at
}
