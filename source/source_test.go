package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestWord(t *testing.T) {
	tests := []struct {
		index uint8
		vsync bool
		want  uint32
	}{
		{0, false, 0x00000000},
		{1, false, 0x20000000},
		{2, false, 0x40000000},
		{3, true, 0xE0000000},
		{0, true, 0x80000000},
	}
	for _, tt := range tests {
		w := Word(tt.index, tt.vsync)
		if w != tt.want {
			t.Errorf("Word(%d, %v) = %#08x, want %#08x", tt.index, tt.vsync, w, tt.want)
		}
		if Index(w) != tt.index || VSync(w) != tt.vsync {
			t.Errorf("decode(%#08x) = %d, %v", w, Index(w), VSync(w))
		}
	}
	// Other bits are ignored.
	if got := Index(0x1FFFFFFF | 1<<30); got != 2 {
		t.Errorf("Index() = %d, want 2", got)
	}
}

func TestPattern(t *testing.T) {
	p := &Pattern{Blank: 3, Frames: 2, Fill: func(x, y, n int) uint8 { return uint8(x+n) & 3 }}
	edges := 0
	prev := false
	words := 0
	for {
		w, err := p.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		v := VSync(w)
		if prev && !v {
			edges++
			// The edge word is pixel (0, 0).
			if got, want := Index(w), uint8(edges-1)&3; got != want {
				t.Errorf("frame %d first pixel = %d, want %d", edges-1, got, want)
			}
		}
		prev = v
		words++
	}
	if edges != 2 {
		t.Errorf("edges = %d, want 2", edges)
	}
	if want := 2 * (3 + W*H); words != want {
		t.Errorf("words = %d, want %d", words, want)
	}
	if p.Frame() != 2 {
		t.Errorf("Frame() = %d, want 2", p.Frame())
	}
}

func TestPatternFrameFill(t *testing.T) {
	p := &Pattern{Blank: 1, Frames: 2, Fill: func(x, y, n int) uint8 { return uint8(n) & 3 }}
	for frame := 0; frame < 2; frame++ {
		if w, _ := p.Next(); !VSync(w) {
			t.Fatalf("frame %d: first word is not blanking", frame)
		}
		for i := 0; i < W*H; i++ {
			w, err := p.Next()
			if err != nil {
				t.Fatal(err)
			}
			if got := Index(w); got != uint8(frame) {
				t.Fatalf("frame %d pixel %d = %d, want %d", frame, i, got, frame)
			}
		}
	}
	if _, err := p.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after the last frame = %v, want io.EOF", err)
	}
}

func TestReplay(t *testing.T) {
	var b []byte
	for _, w := range []uint32{Word(1, true), Word(2, false), 0xDEADBEEF} {
		b = binary.LittleEndian.AppendUint32(b, w)
	}
	r := NewReplay(bytes.NewReader(append(b, 0x01, 0x02)))
	for i, want := range []uint32{Word(1, true), Word(2, false), 0xDEADBEEF} {
		got, err := r.Next()
		if err != nil || got != want {
			t.Fatalf("word %d = %#08x, %v, want %#08x", i, got, err, want)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated word error = %v, want io.ErrUnexpectedEOF", err)
	}

	r = NewReplay(bytes.NewReader(nil))
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("empty stream error = %v, want io.EOF", err)
	}
}

func TestRecord(t *testing.T) {
	var buf bytes.Buffer
	p := &Pattern{Blank: 2, Frames: 1}
	n, err := Record(&buf, p, 10)
	if err != nil || n != 10 {
		t.Fatalf("Record() = %d, %v", n, err)
	}
	if buf.Len() != 40 {
		t.Errorf("recorded %d bytes, want 40", buf.Len())
	}
	r := NewReplay(&buf)
	w, _ := r.Next()
	if !VSync(w) {
		t.Error("first recorded word is not blanking")
	}

	// Short source.
	buf.Reset()
	n, err = Record(&buf, &Pattern{Blank: 1, Frames: 1}, 1<<20)
	if err != nil || n != 1+W*H {
		t.Errorf("Record() = %d, %v, want %d", n, err, 1+W*H)
	}

	boom := errors.New("boom")
	_, err = Record(&buf, Func(func() (uint32, error) { return 0, boom }), 3)
	if !errors.Is(err, boom) {
		t.Errorf("Record() error = %v, want boom", err)
	}
}
