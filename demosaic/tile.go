// seehuhn.de/go/darkroom - raw development and mask rendering
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package demosaic

import (
	"context"
	"sync"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/cfa"
	"seehuhn.de/go/darkroom/internal/parallel"
)

// scratch hands out the buffers of one work item and enforces
// Params.ScratchLimit.
type scratch struct {
	limit int
	used  int
}

// reserve accounts for n float32 values allocated by the caller.
func (s *scratch) reserve(n int) error {
	if s.limit > 0 && s.used+n > s.limit {
		return &darkroom.AllocationError{Size: n}
	}
	s.used += n
	return nil
}

func (s *scratch) alloc(n int) ([]float32, error) {
	if err := s.reserve(n); err != nil {
		return nil, err
	}
	return make([]float32, n), nil
}

// planes allocates k planes of n values each.
func (s *scratch) planes(k, n int) ([][]float32, error) {
	res := make([][]float32, k)
	for i := range res {
		buf, err := s.alloc(n)
		if err != nil {
			return nil, err
		}
		res[i] = buf
	}
	return res, nil
}

// window is a tile of the mosaic with a margin of halo pixels on every
// side. Margin pixels outside the image are mirrored at the image edge in
// a way which keeps the CFA pattern intact, so that every pixel of the
// window has the colour given by d.
type window struct {
	cfa  []float32
	w, h int

	// x0, y0 are the image coordinates of window pixel (0, 0).
	x0, y0 int
	halo   int
	core   parallel.Tile

	// d gives the colours in window coordinates.
	d  cfa.Descriptor
	sc *scratch
}

// loadWindow copies the core t of the w×h mosaic in, together with its
// margin, into a new window.
func loadWindow(in []float32, iw, ih int, d cfa.Descriptor, t parallel.Tile, halo int, sc *scratch) (*window, error) {
	w := t.Width() + 2*halo
	h := t.Height() + 2*halo
	buf, err := sc.alloc(w * h)
	if err != nil {
		return nil, err
	}
	x0, y0 := t.X0-halo, t.Y0-halo
	period := d.Period()

	xs := make([]int, w)
	for c := range xs {
		xs[c] = mirrorCFA(x0+c, iw, period)
	}
	for r := range h {
		src := in[mirrorCFA(y0+r, ih, period)*iw:]
		dst := buf[r*w : (r+1)*w]
		for c, sx := range xs {
			dst[c] = src[sx]
		}
	}

	return &window{
		cfa:  buf,
		w:    w,
		h:    h,
		x0:   x0,
		y0:   y0,
		halo: halo,
		core: t,
		d:    d.Shift(x0, y0),
		sc:   sc,
	}, nil
}

func (wd *window) color(row, col int) int {
	return wd.d.Color(row, col)
}

// spread returns three planes holding the raw values in the channel of
// each photosite and zero elsewhere.
func (wd *window) spread() ([3][]float32, error) {
	var rgb [3][]float32
	for c := range rgb {
		buf, err := wd.sc.alloc(len(wd.cfa))
		if err != nil {
			return rgb, err
		}
		rgb[c] = buf
	}
	for r := range wd.h {
		for c := range wd.w {
			i := r*wd.w + c
			rgb[wd.color(r, c)][i] = wd.cfa[i]
		}
	}
	return rgb, nil
}

// store writes the core of the planes rgb into the four-channel image out
// of width iw.
func (wd *window) store(out []float32, iw int, rgb [3][]float32) {
	t := wd.core
	for y := t.Y0; y < t.Y1; y++ {
		src := (y-wd.y0)*wd.w + (t.X0 - wd.x0)
		dst := 4 * (y*iw + t.X0)
		for x := t.X0; x < t.X1; x++ {
			out[dst] = rgb[0][src]
			out[dst+1] = rgb[1][src]
			out[dst+2] = rgb[2][src]
			out[dst+3] = 0
			src++
			dst += 4
		}
	}
}

// mirrorCFA maps the coordinate v into [0, n) by reflection at the
// edges, followed by a shift of less than one period towards the inside
// so that v keeps its position in the CFA pattern.
func mirrorCFA(v, n, period int) int {
	for range 4 {
		switch {
		case v < 0:
			m := -v
			v = m + mod(v-m, period)
		case v >= n:
			m := 2*(n-1) - v
			v = m - mod(m-v, period)
		default:
			return v
		}
	}
	// images smaller than the pattern
	return min(max(v, 0), n-1)
}

func mod(a, b int) int {
	a %= b
	if a < 0 {
		a += b
	}
	return a
}

// tileFunc demosaics one window. The returned planes must be valid on
// the core of the window.
type tileFunc func(wd *window, p *Params) ([3][]float32, error)

// stats describe a kernel run.
type stats struct {
	tileSize int
	peak     int
}

// tiled runs fn on all tiles of the w×h mosaic in and writes the
// four-channel result to out. A tile size <= 0 processes the image in
// one piece. The output of tiles skipped because of cancellation is set
// to zero.
func tiled(ctx context.Context, in, out []float32, w, h int, d cfa.Descriptor, p *Params, size, halo int, fn tileFunc) (stats, error) {
	if size <= 0 {
		size = max(w, h)
	}
	tiles := parallel.Split(w, h, size)
	darkroom.Logger().Debug("demosaic: tile plan",
		"tiles", len(tiles), "size", size, "halo", halo)

	var mu sync.Mutex
	st := stats{tileSize: size}
	err := parallel.Tiles(ctx, tiles, func(t parallel.Tile) error {
		sc := &scratch{limit: p.ScratchLimit}
		wd, err := loadWindow(in, w, h, d, t, halo, sc)
		if err != nil {
			return err
		}
		rgb, err := fn(wd, p)
		if err != nil {
			return err
		}
		wd.store(out, w, rgb)

		mu.Lock()
		st.peak = max(st.peak, sc.used)
		mu.Unlock()
		return nil
	}, func(t parallel.Tile) {
		zeroTile(out, w, t)
	})
	return st, err
}

// zeroTile clears the four-channel output of t.
func zeroTile(out []float32, w int, t parallel.Tile) {
	for y := t.Y0; y < t.Y1; y++ {
		clear(out[4*(y*w+t.X0) : 4*(y*w+t.X1)])
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func sq(x float32) float32 {
	return x * x
}

// intp returns a·b + (1-a)·c.
func intp(a, b, c float32) float32 {
	return a*(b-c) + c
}

func clamp32(x, lo, hi float32) float32 {
	return min(max(x, lo), hi)
}
