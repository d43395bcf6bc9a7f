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
	"errors"

	"gonum.org/v1/gonum/stat"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/cfa"
	"seehuhn.de/go/darkroom/internal/parallel"
)

// ErrNotTileable is returned when a setting needs statistics of the whole
// frame but the input is only a tile of it.
var ErrNotTileable = errors.New("green equalization needs the whole frame")

// greenEqualize balances the two green channels of a Bayer mosaic. The
// result is a new buffer; in is not modified.
func greenEqualize(ctx context.Context, in []float32, w, h int, d cfa.Descriptor, p *Params) ([]float32, error) {
	out := make([]float32, w*h)
	copy(out, in[:w*h])

	if p.GreenEq == GreenEqFull || p.GreenEq == GreenEqBoth {
		if p.Tiled {
			return nil, ErrNotTileable
		}
		greenFull(out, w, h, d)
	}
	if p.GreenEq == GreenEqLocal || p.GreenEq == GreenEqBoth {
		src := make([]float32, len(out))
		copy(src, out)
		thr := float32(0.0001 * p.ISO)
		err := parallel.Rows(ctx, h, func(y0, y1 int) error {
			greenLocal(src, out, w, h, d, thr, y0, y1)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// greenFull scales the greens on blue rows so that both green channels
// have the same mean over the frame.
func greenFull(buf []float32, w, h int, d cfa.Descriptor) {
	var g1, g2 []float64
	for y := range h {
		for x := range w {
			switch d.FourColor(y, x) {
			case cfa.Green:
				g1 = append(g1, float64(buf[y*w+x]))
			case cfa.Green2:
				g2 = append(g2, float64(buf[y*w+x]))
			}
		}
	}
	if len(g1) == 0 || len(g2) == 0 {
		return
	}
	m1, m2 := stat.Mean(g1, nil), stat.Mean(g2, nil)
	if m2 <= 0 {
		return
	}
	ratio := float32(m1 / m2)
	darkroom.Logger().Debug("demosaic: green equalization", "ratio", ratio)
	for y := range h {
		for x := range w {
			if d.FourColor(y, x) == cfa.Green2 {
				buf[y*w+x] *= ratio
			}
		}
	}
}

// greenLocal adjusts the greens on blue rows in flat regions, where the
// four diagonal greens of the other channel and the four greens two
// pixels away agree within thr.
func greenLocal(src, dst []float32, w, h int, d cfa.Descriptor, thr float32, y0, y1 int) {
	for y := max(y0, 2); y < min(y1, h-2); y++ {
		for x := 2; x < w-2; x++ {
			if d.FourColor(y, x) != cfa.Green2 {
				continue
			}
			i := y*w + x
			if src[i] >= 0.95 {
				continue
			}
			o1 := [4]float32{src[i-w-1], src[i-w+1], src[i+w-1], src[i+w+1]}
			o2 := [4]float32{src[i-2*w], src[i+2*w], src[i-2], src[i+2]}
			c1, m1 := spread4(o1)
			c2, m2 := spread4(o2)
			if c1 < thr && c2 < thr && m2 > 0 {
				dst[i] = src[i] * m1 / m2
			}
		}
	}
}

// spread4 returns the mean pairwise distance and the mean of four values.
func spread4(v [4]float32) (float32, float32) {
	c := (abs32(v[0]-v[1]) + abs32(v[0]-v[2]) + abs32(v[0]-v[3]) +
		abs32(v[1]-v[2]) + abs32(v[2]-v[3]) + abs32(v[1]-v[3])) / 6
	return c, (v[0] + v[1] + v[2] + v[3]) / 4
}
