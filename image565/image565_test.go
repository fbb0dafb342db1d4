package image565

import (
	"image"
	"image/color"
	"testing"
)

func TestColorRGBA(t *testing.T) {
	tests := []struct {
		name                string
		c                   Color
		wantR, wantG, wantB uint32
	}{
		{"black", 0x0000, 0, 0, 0},
		{"white", 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF},
		{"red", 0xF800, 0xFFFF, 0, 0},
		{"green", 0x07E0, 0, 0xFFFF, 0},
		{"blue", 0x001F, 0, 0, 0xFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := tt.c.RGBA()
			if r != tt.wantR || g != tt.wantG || b != tt.wantB || a != 0xFFFF {
				t.Errorf("RGBA() = (%x, %x, %x, %x), want (%x, %x, %x, ffff)",
					r, g, b, a, tt.wantR, tt.wantG, tt.wantB)
			}
		})
	}
}

func TestModelConvert(t *testing.T) {
	tests := []struct {
		name  string
		input color.Color
		want  Color
	}{
		{"passthrough", Color(0x1234), 0x1234},
		{"black", color.Black, 0x0000},
		{"white", color.White, 0xFFFF},
		{"red", color.RGBA{0xFF, 0, 0, 0xFF}, 0xF800},
		{"gray", color.RGBA{0x88, 0x88, 0x88, 0xFF}, 0x8C51},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Model.Convert(tt.input).(Color); got != tt.want {
				t.Errorf("Model.Convert(%v) = %#04x, want %#04x", tt.input, got, tt.want)
			}
		})
	}
}

func TestLuma(t *testing.T) {
	tests := []struct {
		name string
		c    Color
		want int
	}{
		{"black", 0x0000, 0},
		{"white", 0xFFFF, 255},
		{"red", 0xF800, 76},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Luma(tt.c); got != tt.want {
				t.Errorf("Luma(%#04x) = %d, want %d", tt.c, got, tt.want)
			}
		})
	}
}

func TestGray(t *testing.T) {
	if got := Gray(0xFFFF); got != 255 {
		t.Errorf("Gray(white) = %d, want 255", got)
	}
	if got := Gray(0x0000); got != 0 {
		t.Errorf("Gray(black) = %d, want 0", got)
	}
	// Palettes are ordered lightest first.
	for i := 1; i < 4; i++ {
		if Gray(Green[i]) >= Gray(Green[i-1]) {
			t.Errorf("Gray(Green[%d]) = %d, not darker than Green[%d] = %d",
				i, Gray(Green[i]), i-1, Gray(Green[i-1]))
		}
	}
}

func TestNewFrame(t *testing.T) {
	tests := []struct {
		name       string
		rect       image.Rectangle
		wantStride int
		wantPixLen int
	}{
		{"160x144", image.Rect(0, 0, 160, 144), 160, 23040},
		{"240x216", image.Rect(0, 0, 240, 216), 240, 51840},
		{"offset rect", image.Rect(10, 20, 14, 22), 4, 8},
		{"empty", image.Rect(0, 0, 0, 5), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(tt.rect)
			if f.Rect != tt.rect {
				t.Errorf("Rect = %v, want %v", f.Rect, tt.rect)
			}
			if f.Stride != tt.wantStride {
				t.Errorf("Stride = %d, want %d", f.Stride, tt.wantStride)
			}
			if len(f.Pix) != tt.wantPixLen {
				t.Errorf("len(Pix) = %d, want %d", len(f.Pix), tt.wantPixLen)
			}
		})
	}
}

func TestFrameSetAt(t *testing.T) {
	f := NewFrame(image.Rect(10, 20, 14, 22))
	f.SetRGB565(11, 21, 0x1234)
	if f.Pix[5] != 0x1234 {
		t.Errorf("Pix[5] = %#04x, want 0x1234", f.Pix[5])
	}
	if got := f.RGB565At(11, 21); got != 0x1234 {
		t.Errorf("RGB565At(11, 21) = %#04x, want 0x1234", got)
	}
	f.Set(10, 20, color.White)
	if f.Pix[0] != 0xFFFF {
		t.Errorf("Pix[0] = %#04x, want 0xffff", f.Pix[0])
	}

	// Out of bounds is ignored.
	f.SetRGB565(0, 0, 0xFFFF)
	f.Set(100, 100, color.White)
	if got := f.RGB565At(0, 0); got != 0 {
		t.Errorf("RGB565At(0, 0) = %#04x, want 0", got)
	}
}

func TestConvert(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.Set(2, 1, color.White)

	f := Convert(src, image.Rect(0, 0, 2, 2), image.Pt(1, 1))
	want := []uint16{0x0000, 0xFFFF, 0x0000, 0x0000}
	for i, w := range want {
		if f.Pix[i] != w {
			t.Errorf("Pix[%d] = %#04x, want %#04x", i, f.Pix[i], w)
		}
	}

	// A frame covering exactly the requested region is not copied.
	fr := NewFrame(image.Rect(0, 0, 3, 3))
	if got := Convert(fr, image.Rect(5, 5, 8, 8), image.Point{}); &got.Pix[0] != &fr.Pix[0] {
		t.Error("Convert copied a frame that could be shared")
	}
}

func TestPaletteLookup(t *testing.T) {
	tests := []struct {
		idx  uint8
		want Color
	}{
		{0, 0x9772},
		{1, 0x64ED},
		{2, 0x2A85},
		{3, 0x1082},
		{5, 0x64ED},
	}
	for _, tt := range tests {
		if got := Green.Lookup(tt.idx); got != tt.want {
			t.Errorf("Green.Lookup(%d) = %#04x, want %#04x", tt.idx, got, tt.want)
		}
	}
	if got := Green.Index(0x2A85); got != 2 {
		t.Errorf("Index(0x2A85) = %d, want 2", got)
	}
	if got := Green.Index(0xFFFF); got != -1 {
		t.Errorf("Index(0xFFFF) = %d, want -1", got)
	}
}

func TestPaletteByName(t *testing.T) {
	for _, name := range PaletteNames() {
		if _, ok := PaletteByName(name); !ok {
			t.Errorf("PaletteByName(%q) not found", name)
		}
	}
	if _, ok := PaletteByName("nope"); ok {
		t.Error("PaletteByName(nope) found")
	}
	if p, _ := PaletteByName("yellow"); p != Yellow {
		t.Errorf("PaletteByName(yellow) = %v, want %v", p, Yellow)
	}
}
