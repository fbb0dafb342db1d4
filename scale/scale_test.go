package scale

import "testing"

func TestDims(t *testing.T) {
	tests := []struct {
		name  string
		s     float64
		wantW int
		wantH int
	}{
		{"1x", 1, 160, 144},
		{"1.5x", 1.5, 240, 216},
		{"1.6x", 1.6, 256, 230},
		{"1.67x", 1.67, 267, 240},
		{"2x", 2, 320, 288},
		{"0.8x", 0.8, 128, 115},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Dims(160, 144, tt.s)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Dims(160, 144, %v) = %dx%d, want %dx%d", tt.s, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestBuildRangeAndOrder(t *testing.T) {
	for _, s := range []float64{1, 1.5, 1.6, 1.67, 2, 0.8} {
		w, h := Dims(160, 144, s)
		m, err := Build(160, 144, w, h, s)
		if err != nil {
			t.Fatalf("Build(%v) error = %v", s, err)
		}
		if len(m.X) != w || len(m.Y) != h {
			t.Fatalf("Build(%v) sizes = %dx%d, want %dx%d", s, len(m.X), len(m.Y), w, h)
		}
		check := func(name string, tbl []int, n int) {
			for i, v := range tbl {
				if v < 0 || v >= n {
					t.Errorf("scale %v: %s[%d] = %d out of [0,%d)", s, name, i, v, n)
				}
				if i > 0 && v < tbl[i-1] {
					t.Errorf("scale %v: %s[%d] = %d < %s[%d] = %d", s, name, i, v, name, i-1, tbl[i-1])
				}
			}
		}
		check("X", m.X, 160)
		check("Y", m.Y, 144)
	}
}

func TestBuild15(t *testing.T) {
	m, err := Build(160, 144, 240, 216, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.X[239]; got != 159 {
		t.Errorf("X[239] = %d, want 159", got)
	}
	if got := m.Y[215]; got != 143 {
		t.Errorf("Y[215] = %d, want 143", got)
	}
	want := []int{0, 0, 1, 2, 2, 3}
	for i, w := range want {
		if m.X[i] != w {
			t.Errorf("X[%d] = %d, want %d", i, m.X[i], w)
		}
	}
}

func TestBuildIdentity(t *testing.T) {
	m, err := Build(160, 144, 160, 144, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Identity() {
		t.Error("Identity() = false for scale 1")
	}

	// Larger destination at scale 1 clamps to the last source pixel.
	m, err = Build(4, 4, 6, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if m.X[5] != 3 {
		t.Errorf("X[5] = %d, want 3", m.X[5])
	}
	if m.Identity() {
		t.Error("Identity() = true for clamped map")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, dstW, dstH int
		s                      float64
	}{
		{"zero scale", 160, 144, 240, 216, 0},
		{"negative scale", 160, 144, 240, 216, -1},
		{"zero source", 0, 144, 240, 216, 1.5},
		{"zero destination", 160, 144, 240, 0, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.srcW, tt.srcH, tt.dstW, tt.dstH, tt.s); err == nil {
				t.Error("Build() error = nil, want error")
			}
		})
	}
}

func TestApply(t *testing.T) {
	src := []uint16{
		1, 2,
		3, 4,
	}
	m, err := Build(2, 2, 4, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]uint16, 16)
	m.Apply(dst, src)
	want := []uint16{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}

	id, _ := Build(2, 2, 2, 2, 1)
	out := make([]uint16, 4)
	id.Apply(out, src)
	for i := range src {
		if out[i] != src[i] {
			t.Fatalf("identity dst = %v, want %v", out, src)
		}
	}
}
