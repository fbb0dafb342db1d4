package dither

import (
	"testing"

	"github.com/flavioheleno/gblcd/image565"
)

const (
	white image565.Color = 0xFFFF
	black image565.Color = 0x0000
)

var grays = image565.Palette{0xFFFF, 0x8410, 0x4208, 0x0000}

func fill(w, h int, c image565.Color) []uint16 {
	buf := make([]uint16, w*h)
	for i := range buf {
		buf[i] = uint16(c)
	}
	return buf
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"none", None, false},
		{"", None, false},
		{"bayer", Ordered, false},
		{"fs", Diffusion, false},
		{"floyd-steinberg", Diffusion, false},
		{"sierra", None, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
	for _, m := range []Mode{None, Ordered, Diffusion} {
		if got, err := ParseMode(m.String()); err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		name string
		c    image565.Color
		want int
	}{
		{"white", white, 0},
		{"black", black, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Threshold(tt.c); got != tt.want {
				t.Errorf("Threshold(%#04x) = %d, want %d", tt.c, got, tt.want)
			}
		})
	}
}

func TestExtremesArePinned(t *testing.T) {
	const light, dark image565.Color = 0x9772, 0x1082
	algos := []struct {
		name string
		fn   func([]uint16, int, int, image565.Palette, image565.Color, image565.Color)
	}{
		{"bayer", Bayer},
		{"floyd-steinberg", FloydSteinberg},
	}
	for _, a := range algos {
		t.Run(a.name, func(t *testing.T) {
			// Checkerboard of the two extremes mixed with mid shades.
			w, h := 17, 11
			buf := make([]uint16, w*h)
			for i := range buf {
				buf[i] = uint16(grays[(i*7)%4])
			}
			in := append([]uint16(nil), buf...)
			a.fn(buf, w, h, grays, light, dark)
			for i, p := range in {
				switch image565.Color(p) {
				case grays[0]:
					if buf[i] != uint16(light) {
						t.Errorf("pixel %d = %#04x, want light", i, buf[i])
					}
				case grays[3]:
					if buf[i] != uint16(dark) {
						t.Errorf("pixel %d = %#04x, want dark", i, buf[i])
					}
				}
				if buf[i] != uint16(light) && buf[i] != uint16(dark) {
					t.Errorf("pixel %d = %#04x, not a tone", i, buf[i])
				}
			}
		})
	}
}

func TestBayerDensity(t *testing.T) {
	for _, idx := range []int{1, 2} {
		buf := fill(8, 8, grays[idx])
		Bayer(buf, 8, 8, grays, white, black)
		n := 0
		for _, p := range buf {
			if p == uint16(black) {
				n++
			}
		}
		if want := Threshold(grays[idx]); n != want {
			t.Errorf("shade %d: %d dark cells, want %d", idx, n, want)
		}
	}
}

func TestBayerIsPeriodic(t *testing.T) {
	w, h := 24, 16
	buf := fill(w, h, grays[1])
	Bayer(buf, w, h, grays, white, black)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if buf[y*w+x] != buf[(y&7)*w+(x&7)] {
				t.Fatalf("pixel (%d,%d) differs from (%d,%d)", x, y, x&7, y&7)
			}
		}
	}
	again := fill(w, h, grays[1])
	Bayer(again, w, h, grays, white, black)
	for i := range buf {
		if buf[i] != again[i] {
			t.Fatal("Bayer is not deterministic")
		}
	}
}

func TestFloydSteinbergEnergy(t *testing.T) {
	w, h := 64, 64
	c := grays[1]
	buf := fill(w, h, c)
	FloydSteinberg(buf, w, h, grays, white, black)

	lights := 0
	for _, p := range buf {
		if p == uint16(white) {
			lights++
		}
	}
	mean := lights * 255 / (w * h)
	want := image565.Luma(c)
	if d := mean - want; d < -8 || d > 8 {
		t.Errorf("mean luma = %d, want %d +/- 8", mean, want)
	}
	if lights == 0 || lights == w*h {
		t.Errorf("uniform mid shade produced a solid frame (%d lights)", lights)
	}
}

func TestApply(t *testing.T) {
	buf := fill(4, 4, grays[1])
	Apply(None, buf, 4, 4, grays, white, black)
	for _, p := range buf {
		if p != uint16(grays[1]) {
			t.Fatalf("Apply(None) changed the frame")
		}
	}
	Apply(Ordered, buf, 4, 4, grays, white, black)
	for _, p := range buf {
		if p != uint16(white) && p != uint16(black) {
			t.Fatalf("Apply(Ordered) left %#04x", p)
		}
	}
}
