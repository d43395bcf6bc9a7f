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
	"math"
	"slices"
	"sync"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/cfa"
	"seehuhn.de/go/darkroom/internal/parallel"
)

const lutSize = 1 << 16

// The LMMSE kernel works on gamma encoded data. The tables are built on
// first use and shared by all calls.
var (
	gammaOnce sync.Once
	gammaEnc  []float32
	gammaDec  []float32
)

func gammaTables() ([]float32, []float32) {
	gammaOnce.Do(func() {
		gammaEnc = make([]float32, lutSize)
		gammaDec = make([]float32, lutSize)
		for j := range lutSize {
			x := float64(j) / (lutSize - 1)
			gammaEnc[j] = float32(encodeGamma(x))
			gammaDec[j] = float32(decodeGamma(x))
		}
		darkroom.Logger().Debug("demosaic: gamma tables ready", "size", lutSize)
	})
	return gammaEnc, gammaDec
}

func encodeGamma(x float64) float64 {
	if x <= 0.001867 {
		return 17 * x
	}
	return 1.044445*math.Pow(x, 1/2.4) - 0.044445
}

func decodeGamma(x float64) float64 {
	if x <= 0.031746 {
		return x / 17
	}
	return math.Pow((x+0.044445)/1.044445, 2.4)
}

// lookup evaluates a gamma table with linear interpolation. Values
// outside [0, 1] use the exact curve fn.
func lookup(lut []float32, fn func(float64) float64, x float32) float32 {
	if x < 0 || x > 1 {
		return float32(fn(float64(x)))
	}
	f := x * (lutSize - 1)
	j := int(f)
	if j >= lutSize-1 {
		return lut[lutSize-1]
	}
	t := f - float32(j)
	return lut[j] + t*(lut[j+1]-lut[j])
}

// lmmse runs the tiled basic stage and then the refinement passes on the
// whole image.
func lmmse(ctx context.Context, in, out []float32, w, h int, d cfa.Descriptor, p *Params, tile int) (stats, error) {
	st, err := tiled(ctx, in, out, w, h, d, p, tile, 8, lmmseTile)
	if err != nil {
		return st, err
	}
	return st, lmmseRefine(ctx, in, out, w, h, d, p.Refine)
}

// lmmseTile is a linear minimum mean square error interpolation in the
// manner of Zhang and Wu: directional colour differences are estimated
// horizontally and vertically, denoised and fused according to their
// variances.
func lmmseTile(wd *window, _ *Params) ([3][]float32, error) {
	enc, dec := gammaTables()
	w, h := wd.w, wd.h
	n := w * h

	rgb, err := wd.spread()
	if err != nil {
		return rgb, err
	}
	bufs, err := wd.sc.planes(5, n)
	if err != nil {
		return rgb, err
	}
	y, dh, dv, dhf, dvf := bufs[0], bufs[1], bufs[2], bufs[3], bufs[4]

	for i, v := range wd.cfa {
		y[i] = lookup(enc, encodeGamma, v)
	}
	for r := range h {
		for c := range w {
			i := r*w + c
			rgb[wd.color(r, c)][i] = y[i]
		}
	}
	g := rgb[cfa.Green]

	// directional green minus red/blue differences
	for r := 2; r < h-2; r++ {
		for c := 2; c < w-2; c++ {
			i := r*w + c
			eh := (y[i-1]+y[i+1])/2 + (2*y[i]-y[i-2]-y[i+2])/4
			ev := (y[i-w]+y[i+w])/2 + (2*y[i]-y[i-2*w]-y[i+2*w])/4
			if wd.color(r, c) == cfa.Green {
				dh[i] = y[i] - eh
				dv[i] = y[i] - ev
			} else {
				dh[i] = eh - y[i]
				dv[i] = ev - y[i]
			}
		}
	}
	for r := 4; r < h-4; r++ {
		for c := 4; c < w-4; c++ {
			i := r*w + c
			dhf[i] = (dh[i-2] + 4*dh[i-1] + 6*dh[i] + 4*dh[i+1] + dh[i+2]) / 16
			dvf[i] = (dv[i-2*w] + 4*dv[i-w] + 6*dv[i] + 4*dv[i+w] + dv[i+2*w]) / 16
		}
	}

	// fuse the two directional estimates
	for r := 6; r < h-6; r++ {
		for c := 6; c < w-6; c++ {
			if wd.color(r, c) == cfa.Green {
				continue
			}
			i := r*w + c
			estH, varH := lmmseEstimate(dh, dhf, i, 1)
			estV, varV := lmmseEstimate(dv, dvf, i, w)
			var d float32
			if s := varH + varV; s > 0 {
				d = (varV*estH + varH*estV) / s
			} else {
				d = (estH + estV) / 2
			}
			g[i] = y[i] + d
		}
	}

	// red at blue and blue at red, from diagonal colour differences
	for r := 7; r < h-7; r++ {
		for c := 7; c < w-7; c++ {
			own := wd.color(r, c)
			if own == cfa.Green {
				continue
			}
			i := r*w + c
			x := rgb[2-own]
			diff := (g[i-w-1] - x[i-w-1]) + (g[i-w+1] - x[i-w+1]) +
				(g[i+w-1] - x[i+w-1]) + (g[i+w+1] - x[i+w+1])
			x[i] = g[i] - diff/4
		}
	}

	// red and blue at green photosites
	for r := 8; r < h-8; r++ {
		for c := 8; c < w-8; c++ {
			if wd.color(r, c) != cfa.Green {
				continue
			}
			i := r*w + c
			for _, ch := range [2]int{cfa.Red, cfa.Blue} {
				x := rgb[ch]
				diff := (g[i-w] - x[i-w]) + (g[i+w] - x[i+w]) +
					(g[i-1] - x[i-1]) + (g[i+1] - x[i+1])
				x[i] = g[i] - diff/4
			}
		}
	}

	for c := range rgb {
		plane := rgb[c]
		for i, v := range plane {
			plane[i] = lookup(dec, decodeGamma, v)
		}
	}
	return rgb, nil
}

// lmmseEstimate returns the LMMSE estimate of the colour difference at i
// along the direction step, together with its error variance.
func lmmseEstimate(d, df []float32, i, step int) (float32, float32) {
	var mu float32
	for k := -2; k <= 2; k++ {
		mu += df[i+k*step]
	}
	mu /= 5
	var ps, rs float32
	for k := -2; k <= 2; k++ {
		j := i + k*step
		ps += sq(df[j] - mu)
		rs += sq(d[j] - df[j])
	}
	ps /= 5
	rs /= 5
	if ps+rs <= 0 {
		return mu, 0
	}
	gain := ps / (ps + rs)
	return mu + gain*(d[i]-mu), ps * rs / (ps + rs)
}

// lmmseRefine runs the post-processing passes selected by mode on the
// demosaiced image out.
func lmmseRefine(ctx context.Context, in, out []float32, w, h int, d cfa.Descriptor, mode Refine) error {
	var medians, refines int
	switch mode {
	case RefineMedian:
		medians = 1
	case RefineTripleMedian:
		medians = 3
	case RefineRefine:
		medians, refines = 3, 1
	case RefineDoubleRefine:
		medians, refines = 3, 2
	}
	if medians == 0 && refines == 0 {
		return nil
	}

	src := make([]float32, 4*w*h)
	for range medians {
		copy(src, out[:4*w*h])
		if err := chromaMedian(ctx, src, out, w, h, d); err != nil {
			return err
		}
	}
	for range refines {
		copy(src, out[:4*w*h])
		if err := refineGreen(ctx, in, src, out, w, h, d); err != nil {
			return err
		}
	}
	return nil
}

// chromaMedian replaces the red and blue values which are not measured by
// green plus the 3×3 median of the colour difference.
func chromaMedian(ctx context.Context, src, dst []float32, w, h int, d cfa.Descriptor) error {
	return parallel.Rows(ctx, h, func(y0, y1 int) error {
		var diff [9]float32
		for y := y0; y < y1; y++ {
			for x := range w {
				own := d.Color(y, x)
				i := 4 * (y*w + x)
				for _, ch := range [2]int{cfa.Red, cfa.Blue} {
					if ch == own {
						continue
					}
					k := 0
					for dy := -1; dy <= 1; dy++ {
						for dx := -1; dx <= 1; dx++ {
							j := 4 * (reflect(y+dy, h)*w + reflect(x+dx, w))
							diff[k] = src[j+ch] - src[j+cfa.Green]
							k++
						}
					}
					slices.Sort(diff[:])
					dst[i+ch] = max(0, src[i+cfa.Green]+diff[4])
				}
			}
		}
		return nil
	})
}

// refineGreen re-estimates green at the red and blue photosites from the
// colour differences of the four direct neighbours.
func refineGreen(ctx context.Context, in, src, dst []float32, w, h int, d cfa.Descriptor) error {
	return parallel.Rows(ctx, h, func(y0, y1 int) error {
		for y := y0; y < y1; y++ {
			for x := range w {
				own := d.Color(y, x)
				if own == cfa.Green {
					continue
				}
				var diff float32
				for _, o := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					j := 4 * (reflect(y+o[0], h)*w + reflect(x+o[1], w))
					diff += src[j+cfa.Green] - src[j+own]
				}
				dst[4*(y*w+x)+cfa.Green] = max(0, in[y*w+x]+diff/4)
			}
		}
		return nil
	})
}

// reflect mirrors i into [0, n) without repeating the edge pixel.
func reflect(i, n int) int {
	if i < 0 {
		i = -i
	}
	if i >= n {
		i = 2*(n-1) - i
	}
	return min(max(i, 0), n-1)
}
