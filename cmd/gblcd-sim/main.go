//go:build !tinygo

// Command gblcd-sim runs the capture pipeline against an emulated panel and
// shows the panel memory in a desktop window.
//
// The emulator decodes the same command and pixel stream a real controller
// receives, so what the window shows is what the panel would show.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/flavioheleno/gblcd"
	"github.com/flavioheleno/gblcd/dither"
	"github.com/flavioheleno/gblcd/image565"
	"github.com/flavioheleno/gblcd/panel"
	"github.com/flavioheleno/gblcd/paneltest"
	"github.com/flavioheleno/gblcd/source"
	"github.com/flavioheleno/gblcd/transfer"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/jonboulle/clockwork"
)

var (
	panelName = flag.String("panel", "st7789", "Panel controller: "+strings.Join(panel.Names(), ", "))
	rotation  = flag.Int("rotation", 0, "Rotation in degrees: 0, 90, 180 or 270")
	palName   = flag.String("palette", "green", "Palette: "+strings.Join(image565.PaletteNames(), ", "))
	ditherArg = flag.String("dither", "none", "Dithering: none, bayer or fs")
	scaleArg  = flag.Float64("scale", 0, "Scale factor (0 to fit the panel)")
	replay    = flag.String("replay", "", "Capture file to play (empty for a test pattern)")
	fps       = flag.Float64("fps", 59.7, "Frames per second of the source")
	zoom      = flag.Int("zoom", 2, "Window zoom")
)

// paced delays every vsync falling edge of src to the next tick.
type paced struct {
	src    source.Source
	ticker clockwork.Ticker
	prev   bool
}

func (p *paced) Next() (uint32, error) {
	w, err := p.src.Next()
	if err != nil {
		return 0, err
	}
	v := source.VSync(w)
	if p.prev && !v {
		<-p.ticker.Chan()
	}
	p.prev = v
	return w, nil
}

type game struct {
	emu      *paneltest.Panel
	done     chan error
	finished bool
	img      *ebiten.Image
	pix      []byte
}

func (g *game) Update() error {
	select {
	case err := <-g.done:
		g.finished = true
		if err != nil {
			return err
		}
		return ebiten.Termination
	default:
		return nil
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	f := g.emu.Snapshot()
	w, h := f.Rect.Dx(), f.Rect.Dy()
	if g.img == nil || g.img.Bounds().Dx() != w || g.img.Bounds().Dy() != h {
		if g.img != nil {
			g.img.Deallocate()
		}
		g.img = ebiten.NewImage(w, h)
		g.pix = make([]byte, 4*w*h)
	}
	for i, v := range f.Pix {
		r, gg, b := image565.Color(v).RGB8()
		g.pix[4*i+0] = r
		g.pix[4*i+1] = gg
		g.pix[4*i+2] = b
		g.pix[4*i+3] = 0xFF
	}
	g.img.WritePixels(g.pix)
	screen.DrawImage(g.img, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.emu.Size()
}

func newEmulator(name string) (*paneltest.Panel, error) {
	if name == "sh1107" {
		return paneltest.New(paneltest.Paged, 128, 128), nil
	}
	v, ok := panel.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown panel %q", name)
	}
	return paneltest.New(paneltest.Windowed, v.W, v.H), nil
}

func main() {
	flag.Parse()

	if *rotation%90 != 0 || *rotation < 0 || *rotation > 270 {
		log.Fatalf("Invalid rotation %d", *rotation)
	}
	if *fps <= 0 {
		log.Fatalf("Invalid frame rate %v", *fps)
	}
	mode, err := dither.ParseMode(*ditherArg)
	if err != nil {
		log.Fatal(err)
	}
	pal, ok := image565.PaletteByName(*palName)
	if !ok {
		log.Fatalf("Unknown palette %q", *palName)
	}

	emu, err := newEmulator(*panelName)
	if err != nil {
		log.Fatal(err)
	}
	logger := log.New(os.Stderr, "gblcd-sim: ", log.LstdFlags)
	// Word-wide channels, like the microcontroller DMA the panels were
	// tuned for.
	pool := transfer.NewPool(1)
	pool.Words = true
	opts := &transfer.Opts{Logger: logger, Channels: pool}
	if v, ok := panel.Lookup(*panelName); ok {
		opts.Hz = v.Hz
		opts.BufferSize = v.BufferSize
		opts.SwapDMA = v.SwapDMA
	}
	e, err := transfer.NewSPI(emu, emu.DC, emu.CS, opts)
	if err != nil {
		log.Fatalf("Failed to create transfer engine: %v", err)
	}
	defer e.Close()

	dev, err := panel.New(*panelName, e, &panel.Opts{Rotation: panel.Rotation(*rotation / 90)})
	if err != nil {
		log.Fatalf("Failed to create display: %v", err)
	}
	if err := dev.Init(); err != nil {
		log.Fatalf("Failed to initialize display: %v", err)
	}

	var src source.Source = &source.Pattern{}
	if *replay != "" {
		f, err := os.Open(*replay)
		if err != nil {
			log.Fatalf("Failed to open capture: %v", err)
		}
		defer f.Close()
		src = source.NewReplay(f)
	}
	ticker := clockwork.NewRealClock().NewTicker(time.Duration(float64(time.Second) / *fps))
	defer ticker.Stop()

	p, err := gblcd.New(&paced{src: src, ticker: ticker}, dev, gblcd.Config{
		Palette: pal,
		Scale:   *scaleArg,
		Center:  true,
		Dither:  mode,
		Splash:  "GBLCD",
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := &game{emu: emu, done: make(chan error, 1)}
	go func() {
		g.done <- p.Run(ctx)
	}()

	w, h := emu.Size()
	ebiten.SetWindowTitle(fmt.Sprintf("gblcd-sim (%v)", dev))
	ebiten.SetWindowSize(w*(*zoom), h*(*zoom))
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	if !g.finished {
		cancel()
		<-g.done
	}
	if err := emu.Err(); err != nil {
		log.Printf("Protocol violations: %v", err)
	}
	s := p.Stats()
	fmt.Printf("Frames: %d, timeouts: %d, edges: %d\n", s.Frames, s.Timeouts, s.Edges)
}
