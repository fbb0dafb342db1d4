// Package dither reduces a palette-indexed RGB565 frame to two opaque tones.
//
// Two algorithms are provided. Bayer uses a fixed 8x8 ordered matrix and keeps
// no state between pixels. FloydSteinberg diffuses the quantization error of
// each pixel to its unvisited neighbors, walking rows in serpentine order.
// Both map the lightest palette entry to the light tone and the darkest to the
// dark tone regardless of position.
package dither

import (
	"fmt"

	"github.com/flavioheleno/gblcd/image565"
)

// Mode selects a dithering algorithm.
type Mode uint8

const (
	None      Mode = iota // frame is drawn with its palette colors
	Ordered               // 8x8 Bayer matrix
	Diffusion             // Floyd–Steinberg error diffusion
)

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case Ordered:
		return "bayer"
	case Diffusion:
		return "fs"
	}
	return fmt.Sprintf("dither.Mode(%d)", uint8(m))
}

// ParseMode parses the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "none", "off":
		return None, nil
	case "bayer", "ordered":
		return Ordered, nil
	case "fs", "floyd-steinberg", "diffusion":
		return Diffusion, nil
	}
	return None, fmt.Errorf("dither: unknown mode %q", s)
}

// Apply dithers buf in place with the selected algorithm.
func Apply(m Mode, buf []uint16, w, h int, pal image565.Palette, light, dark image565.Color) {
	switch m {
	case Ordered:
		Bayer(buf, w, h, pal, light, dark)
	case Diffusion:
		FloydSteinberg(buf, w, h, pal, light, dark)
	}
}

var bayer8 = [8][8]uint8{
	{0, 48, 12, 60, 3, 51, 15, 63},
	{32, 16, 44, 28, 35, 19, 47, 31},
	{8, 56, 4, 52, 11, 59, 7, 55},
	{40, 24, 36, 20, 43, 27, 39, 23},
	{2, 50, 14, 62, 1, 49, 13, 61},
	{34, 18, 46, 30, 33, 17, 45, 29},
	{10, 58, 6, 54, 9, 57, 5, 53},
	{42, 26, 38, 22, 41, 25, 37, 21},
}

// Threshold returns the number of matrix cells (0..64) that render c dark.
func Threshold(c image565.Color) int {
	l := image565.Luma(c)
	return ((255-l)*64 + 127) / 255
}

// Bayer replaces every pixel of buf (w x h, row-major) with light or dark.
// pal[0] always becomes light and pal[3] always dark; the two middle shades
// become dark where the matrix cell is below their threshold. Pixels not
// matching pal[0], pal[1] or pal[3] are treated like pal[2].
func Bayer(buf []uint16, w, h int, pal image565.Palette, light, dark image565.Color) {
	t1 := uint8(Threshold(pal[1]))
	t2 := uint8(Threshold(pal[2]))
	for y := 0; y < h; y++ {
		row := buf[y*w : (y+1)*w]
		m := &bayer8[y&7]
		for x, p := range row {
			c := image565.Color(p)
			switch c {
			case pal[0]:
				row[x] = uint16(light)
			case pal[3]:
				row[x] = uint16(dark)
			default:
				t := t2
				if c == pal[1] {
					t = t1
				}
				if m[x&7] < t {
					row[x] = uint16(dark)
				} else {
					row[x] = uint16(light)
				}
			}
		}
	}
}

// FloydSteinberg replaces every pixel of buf (w x h, row-major) with light or
// dark, whichever is nearer in luminance, diffusing the signed error with
// weights 7/16, 3/16, 5/16 and 1/16. Even rows are walked left to right and
// odd rows right to left with mirrored weights. Error that would leave the
// buffer is dropped. pal[0] and pal[3] are pinned to light and dark and absorb
// incoming error.
func FloydSteinberg(buf []uint16, w, h int, pal image565.Palette, light, dark image565.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	ll := image565.Luma(light)
	ld := image565.Luma(dark)

	// Two error rows with one cell of padding on each side.
	cur := make([]int, w+2)
	next := make([]int, w+2)

	for y := 0; y < h; y++ {
		row := buf[y*w : (y+1)*w]
		ltr := y&1 == 0
		for i := 0; i < w; i++ {
			x, dir := i, 1
			if !ltr {
				x, dir = w-1-i, -1
			}
			c := image565.Color(row[x])
			switch c {
			case pal[0]:
				row[x] = uint16(light)
				continue
			case pal[3]:
				row[x] = uint16(dark)
				continue
			}
			v := image565.Luma(c) + cur[x+1]
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			var e int
			if abs(v-ll) < abs(v-ld) {
				row[x] = uint16(light)
				e = v - ll
			} else {
				row[x] = uint16(dark)
				e = v - ld
			}
			if e == 0 {
				continue
			}
			// x+1 is the padded index of x; ahead/behind follow the walk direction.
			cur[x+1+dir] += e * 7 / 16
			next[x+1-dir] += e * 3 / 16
			next[x+1] += e * 5 / 16
			next[x+1+dir] += e * 1 / 16
		}
		cur, next = next, cur
		for i := range next {
			next[i] = 0
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
