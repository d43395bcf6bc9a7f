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

// Package detail computes the detail mask of a demosaiced image: a per
// pixel value in [0, 1] which is high where the image has local structure
// and low in flat areas.
//
// The mask drives the blend of the dual demosaicers, where detailed
// regions take the sharp reconstruction and flat regions the low-noise
// one.
package detail

import (
	"context"
	"fmt"
	"math"

	"seehuhn.de/go/darkroom/internal/parallel"
)

// Params control the shape of the detail mask.
type Params struct {
	// Threshold is the relative local contrast at which the mask crosses
	// 0.5. Values of zero give a hard step.
	Threshold float64

	// Sigma is the standard deviation of the smoothing blur in pixels.
	// The blur is skipped for Sigma <= 0.
	Sigma float64
}

// DefaultParams returns the parameters used for a dual threshold of 0.2.
func DefaultParams() Params {
	return Params{Threshold: Threshold(0.2), Sigma: 2}
}

// Threshold maps the user facing dual threshold in [0, 1] to the centre
// of the detail curve.
func Threshold(dual float64) float64 {
	dual = min(max(dual, 0), 1)
	return 0.005 * math.Pow(1+dual, 4)
}

// taps is the half-width of the Gaussian kernel.
const taps = 4

// Margin is the number of pixels on every side of an output pixel which
// Compute reads: one for the Laplacian and taps for the blur.
const Margin = 1 + taps

// Compute writes the detail mask of the w×h four-channel image rgba to
// out. The colour channels are scaled by the white balance coefficients
// wb before the luminance is formed.
//
// The mask only depends on relative contrast, so that scaling the input
// by a constant factor does not change the result.
func Compute(ctx context.Context, rgba []float32, w, h int, wb [3]float32, p Params, out []float32) error {
	n := w * h
	if len(rgba) < 4*n {
		return fmt.Errorf("detail mask: need %d input values, got %d", 4*n, len(rgba))
	}
	if len(out) < n {
		return fmt.Errorf("detail mask: need %d output values, got %d", n, len(out))
	}
	if n <= 0 {
		return nil
	}
	out = out[:n]

	lum := make([]float32, n)
	cr, cg, cb := 0.3*wb[0], 0.6*wb[1], 0.1*wb[2]
	err := parallel.Rows(ctx, h, func(y0, y1 int) error {
		for i := y0 * w; i < y1*w; i++ {
			px := rgba[4*i : 4*i+3]
			lum[i] = max(0, cr*px[0]+cg*px[1]+cb*px[2])
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = parallel.Rows(ctx, h, func(y0, y1 int) error {
		for y := y0; y < y1; y++ {
			up := mirror(y-1, h) * w
			down := mirror(y+1, h) * w
			row := y * w
			for x := range w {
				c := lum[row+x]
				l := lum[row+mirror(x-1, w)]
				r := lum[row+mirror(x+1, w)]
				u := lum[up+x]
				d := lum[down+x]
				m := (c + l + r + u + d) / 5
				if m <= 0 {
					out[row+x] = 0
					continue
				}
				lap := 4*c - l - r - u - d
				if lap < 0 {
					lap = -lap
				}
				out[row+x] = lap / m
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if p.Sigma > 0 {
		// lum is free again and serves as the ping-pong buffer
		if err := blur(ctx, out, lum, w, h, kernel(p.Sigma)); err != nil {
			return err
		}
	}

	t := float32(p.Threshold)
	return parallel.Rows(ctx, h, func(y0, y1 int) error {
		for i := y0 * w; i < y1*w; i++ {
			out[i] = curve(out[i], t)
		}
		return nil
	})
}

// kernel returns the normalized Gaussian weights for offsets 0..taps.
func kernel(sigma float64) [taps + 1]float32 {
	var k [taps + 1]float64
	sum := 0.0
	for i := range k {
		k[i] = math.Exp(-float64(i*i) / (2 * sigma * sigma))
		if i == 0 {
			sum += k[i]
		} else {
			sum += 2 * k[i]
		}
	}
	var res [taps + 1]float32
	for i := range k {
		res[i] = float32(k[i] / sum)
	}
	return res
}

// blur applies the separable kernel k to buf, using tmp as scratch.
func blur(ctx context.Context, buf, tmp []float32, w, h int, k [taps + 1]float32) error {
	err := parallel.Rows(ctx, h, func(y0, y1 int) error {
		for y := y0; y < y1; y++ {
			row := buf[y*w : (y+1)*w]
			for x := range w {
				s := k[0] * row[x]
				for i := 1; i <= taps; i++ {
					s += k[i] * (row[mirror(x-i, w)] + row[mirror(x+i, w)])
				}
				tmp[y*w+x] = s
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return parallel.Rows(ctx, h, func(y0, y1 int) error {
		for y := y0; y < y1; y++ {
			for x := range w {
				s := k[0] * tmp[y*w+x]
				for i := 1; i <= taps; i++ {
					s += k[i] * (tmp[mirror(y-i, h)*w+x] + tmp[mirror(y+i, h)*w+x])
				}
				buf[y*w+x] = s
			}
		}
		return nil
	})
}

// curve is a smoothstep from 0 to 2t, centred on t.
func curve(v, t float32) float32 {
	if t <= 0 {
		if v > 0 {
			return 1
		}
		return 0
	}
	x := min(max(v/(2*t), 0), 1)
	return x * x * (3 - 2*x)
}

// mirror reflects the index i into [0, n) without repeating the edge.
func mirror(i, n int) int {
	if i < 0 {
		i = -i
	}
	if i >= n {
		i = 2*(n-1) - i
	}
	return min(max(i, 0), n-1)
}
