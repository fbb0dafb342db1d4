// Package scale builds nearest-neighbor lookup tables that map every
// destination row and column to a source row and column.
//
// The factor is converted once to thousandths and the tables are computed in
// integer arithmetic, so building them is deterministic and applying them is a
// plain indexed copy.
package scale

import (
	"errors"
	"math"
)

// Map holds the column (X) and row (Y) lookup tables for one source and
// destination size. A Map is immutable once built.
type Map struct {
	X, Y       []int
	SrcW, SrcH int
}

func milli(s float64) int {
	return int(math.Round(s * 1000))
}

// Dims returns the destination size of a srcW x srcH image scaled by s.
func Dims(srcW, srcH int, s float64) (w, h int) {
	m := milli(s)
	return srcW * m / 1000, srcH * m / 1000
}

// Build returns the lookup tables for resampling a srcW x srcH image to
// dstW x dstH with factor s. Entries are clamped to the last source row and
// column. A factor of exactly 1 yields the identity mapping.
func Build(srcW, srcH, dstW, dstH int, s float64) (Map, error) {
	if srcW <= 0 || srcH <= 0 {
		return Map{}, errors.New("scale: source dimensions must be positive")
	}
	if dstW <= 0 || dstH <= 0 {
		return Map{}, errors.New("scale: destination dimensions must be positive")
	}
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return Map{}, errors.New("scale: factor must be finite")
	}
	m := milli(s)
	if m <= 0 {
		return Map{}, errors.New("scale: factor must be positive")
	}
	return Map{
		X:    axis(dstW, srcW, m),
		Y:    axis(dstH, srcH, m),
		SrcW: srcW,
		SrcH: srcH,
	}, nil
}

func axis(dst, src, m int) []int {
	t := make([]int, dst)
	for d := range t {
		s := d
		if m != 1000 {
			s = d * 1000 / m
		}
		if s >= src {
			s = src - 1
		}
		t[d] = s
	}
	return t
}

// Identity reports whether the map copies the source unchanged.
func (m Map) Identity() bool {
	if len(m.X) != m.SrcW || len(m.Y) != m.SrcH {
		return false
	}
	for i, v := range m.X {
		if v != i {
			return false
		}
	}
	for i, v := range m.Y {
		if v != i {
			return false
		}
	}
	return true
}

// Apply resamples src (SrcW x SrcH) into dst (len(X) x len(Y)).
func (m Map) Apply(dst, src []uint16) {
	w := len(m.X)
	if m.Identity() {
		copy(dst, src[:w*len(m.Y)])
		return
	}
	for y, sy := range m.Y {
		srow := src[sy*m.SrcW : (sy+1)*m.SrcW]
		drow := dst[y*w : (y+1)*w]
		for x, sx := range m.X {
			drow[x] = srow[sx]
		}
	}
}
