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
	"slices"

	"github.com/lucasb-eyer/go-colorful"

	"seehuhn.de/go/darkroom/internal/parallel"
)

// XYZToLab converts CIE XYZ (D65) to CIE L*a*b*.
func XYZToLab(x, y, z float32) (l, a, b float32) {
	L, A, B := colorful.XyzToLab(float64(x), float64(y), float64(z))
	return float32(L), float32(A), float32(B)
}

// smoothColor runs the given number of 3×3 median passes over the a* and
// b* channels of the four-channel image buf. Lightness is preserved.
func smoothColor(ctx context.Context, buf []float32, w, h, passes int) error {
	if passes <= 0 {
		return nil
	}
	n := w * h
	lab := make([]float32, 3*n)
	tmp := make([]float32, 2*n)

	err := parallel.Rows(ctx, h, func(y0, y1 int) error {
		for i := y0 * w; i < y1*w; i++ {
			px := buf[4*i:]
			x, y, z := colorful.LinearRgbToXyz(float64(px[0]), float64(px[1]), float64(px[2]))
			lab[i], lab[n+i], lab[2*n+i] = XYZToLab(float32(x), float32(y), float32(z))
		}
		return nil
	})
	if err != nil {
		return err
	}

	a, b := lab[n:2*n], lab[2*n:]
	ta, tb := tmp[:n], tmp[n:]
	for range passes {
		err := parallel.Rows(ctx, h, func(y0, y1 int) error {
			median3x3(a, ta, w, h, y0, y1)
			median3x3(b, tb, w, h, y0, y1)
			return nil
		})
		if err != nil {
			return err
		}
		a, ta = ta, a
		b, tb = tb, b
	}

	return parallel.Rows(ctx, h, func(y0, y1 int) error {
		for i := y0 * w; i < y1*w; i++ {
			x, y, z := colorful.LabToXyz(float64(lab[i]), float64(a[i]), float64(b[i]))
			r, g, bl := colorful.XyzToLinearRgb(x, y, z)
			px := buf[4*i:]
			px[0], px[1], px[2] = float32(r), float32(g), float32(bl)
		}
		return nil
	})
}

// median3x3 writes the 3×3 median of src to dst for rows y0 to y1, with
// mirrored borders.
func median3x3(src, dst []float32, w, h, y0, y1 int) {
	var v [9]float32
	for y := y0; y < y1; y++ {
		for x := range w {
			k := 0
			for dy := -1; dy <= 1; dy++ {
				row := reflect(y+dy, h) * w
				for dx := -1; dx <= 1; dx++ {
					v[k] = src[row+reflect(x+dx, w)]
					k++
				}
			}
			slices.Sort(v[:])
			dst[y*w+x] = v[4]
		}
	}
}
