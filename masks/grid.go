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

package masks

import (
	"context"
	"math"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/internal/parallel"
)

// gridStride returns the spacing, in ROI pixels, of the sample grid used
// for smooth shapes. Coarser grids are used at higher zoom. The stride is
// limited to a quarter of the feather width, so that hard edges are
// sampled at every pixel.
func gridStride(scale, feather float64) int {
	g := int((10*scale + 2) / 3)
	g = min(max(g, 1), 4)
	if feather <= 0 {
		return 1
	}
	return min(g, max(1, int(feather/4)))
}

// sampleGrid evaluates fn on a regular grid over the ROI and fills out by
// bilinear interpolation between the grid points.
//
// The grid is restricted to the bounding box of outline, given in
// reference image pixels; if outline is nil, the whole ROI is used. fn
// receives reference image coordinates and must be safe for concurrent
// use. Pixels outside the bounding box are left untouched.
func sampleGrid(ctx context.Context, p *Pipe, roi darkroom.ROI, outline []float32, grid int, out []float32, fn func(x, y float64) float32) error {
	width, height := roi.Width, roi.Height
	gw := (width+grid-1)/grid + 1
	gh := (height+grid-1)/grid + 1

	bx0, bx1, by0, by1 := 0, gw-1, 0, gh-1
	if outline != nil {
		if err := p.Transform(DirBackIncl, outline); err != nil {
			return err
		}
		xmin, ymin := math.Inf(1), math.Inf(1)
		xmax, ymax := math.Inf(-1), math.Inf(-1)
		for i := 0; i+1 < len(outline); i += 2 {
			x, y := float64(outline[i]), float64(outline[i+1])
			if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
				continue
			}
			xmin, xmax = min(xmin, x), max(xmax, x)
			ymin, ymax = min(ymin, y), max(ymax, y)
		}
		if xmin > xmax {
			return nil
		}
		clampi := func(v, hi int) int { return min(max(v, 0), hi) }
		bx0 = clampi(int(math.Floor(xmin*roi.Scale-float64(roi.X)))/grid-1, gw-1)
		bx1 = clampi(int(math.Ceil(xmax*roi.Scale-float64(roi.X)))/grid+2, gw-1)
		by0 = clampi(int(math.Floor(ymin*roi.Scale-float64(roi.Y)))/grid-1, gh-1)
		by1 = clampi(int(math.Ceil(ymax*roi.Scale-float64(roi.Y)))/grid+2, gh-1)
	}
	bw := bx1 - bx0 + 1
	bh := by1 - by0 + 1
	if bw <= 1 || bh <= 1 {
		return nil
	}

	pts := make([]float32, 2*bw*bh)
	iscale := 1 / roi.Scale
	for j := range bh {
		for i := range bw {
			k := 2 * (j*bw + i)
			pts[k] = float32(float64(grid*(i+bx0)+roi.X) * iscale)
			pts[k+1] = float32(float64(grid*(j+by0)+roi.Y) * iscale)
		}
	}
	if err := p.Backtransform(DirBackIncl, pts); err != nil {
		return err
	}

	vals := make([]float32, bw*bh)
	err := parallel.Rows(ctx, bh, func(j0, j1 int) error {
		for j := j0; j < j1; j++ {
			for i := range bw {
				k := j*bw + i
				x, y := float64(pts[2*k]), float64(pts[2*k+1])
				if math.IsNaN(x) || math.IsNaN(y) {
					continue
				}
				vals[k] = fn(x, y)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	endx := min(width, bx1*grid)
	endy := min(height, by1*grid)
	g2 := float32(grid * grid)
	return parallel.Rows(ctx, endy-by0*grid, func(r0, r1 int) error {
		for j := by0*grid + r0; j < by0*grid+r1; j++ {
			jj := float32(j % grid)
			mj := j/grid - by0
			row := out[j*width : (j+1)*width]
			for i := bx0 * grid; i < endx; i++ {
				ii := float32(i % grid)
				m := mj*bw + i/grid - bx0
				v := (vals[m]*(float32(grid)-ii)*(float32(grid)-jj) +
					vals[m+1]*ii*(float32(grid)-jj) +
					vals[m+bw]*(float32(grid)-ii)*jj +
					vals[m+bw+1]*ii*jj) / g2
				row[i] = min(max(v, 0), 1)
			}
		}
		return nil
	})
}
