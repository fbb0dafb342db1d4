package image565

import "sort"

// Palette maps a 2-bit shade index to a Color. Index 0 is the lightest shade
// and index 3 the darkest.
type Palette [4]Color

// Lookup returns the color for idx. Only the low two bits of idx are used.
func (p Palette) Lookup(idx uint8) Color {
	return p[idx&3]
}

// Index returns the position of c in the palette, or -1.
func (p Palette) Index(c Color) int {
	for i, v := range p {
		if v == c {
			return i
		}
	}
	return -1
}

// Named palettes.
var (
	Green     = Palette{0x9772, 0x64ED, 0x2A85, 0x1082}
	Lime      = Palette{0x4E09, 0x3526, 0x2384, 0x2224}
	Yellow    = Palette{0xFFA6, 0xB544, 0x6302, 0x18C1}
	Teal      = Palette{0x3E77, 0x2C90, 0x1A89, 0x08A2}
	RedPastel = Palette{0xCA27, 0x9185, 0x50E3, 0x1841}
	Gray4     = Palette{0x9CCC, 0x6B49, 0x39E5, 0x1081}
	// Mono is used when the frame is dithered down to two tones.
	Mono = Palette{0xFFFF, 0x8888, 0x4444, 0x0000}
)

var palettes = map[string]Palette{
	"green":  Green,
	"lime":   Lime,
	"yellow": Yellow,
	"teal":   Teal,
	"red":    RedPastel,
	"gray":   Gray4,
	"mono":   Mono,
}

// PaletteByName returns the named palette.
func PaletteByName(name string) (Palette, bool) {
	p, ok := palettes[name]
	return p, ok
}

// PaletteNames lists the known palette names in sorted order.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for n := range palettes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
