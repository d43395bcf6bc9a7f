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

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/darkroom"
)

func (c *Circle) validate(id int) error {
	if c.Radius <= 0 || c.Border < 0 {
		return &darkroom.MalformedShapeError{ID: id, Reason: "circle radius must be positive"}
	}
	return nil
}

func (c *Circle) anchor() vec.Vec2 { return c.Center }

// ring returns n points on the circle of radius r around (cx, cy).
func ring(cx, cy, r float64, n int) []float32 {
	xy := make([]float32, 2*n)
	for i := range n {
		phi := 2 * math.Pi * float64(i) / float64(n)
		xy[2*i] = float32(cx + r*math.Cos(phi))
		xy[2*i+1] = float32(cy + r*math.Sin(phi))
	}
	return xy
}

func (c *Circle) outline(p *Pipe) (*Geometry, error) {
	md := p.minDim()
	cx, cy := c.Center.X*float64(p.Width), c.Center.Y*float64(p.Height)
	r := c.Radius * md
	total := (c.Radius + c.Border) * md
	n := max(8, int(2*math.Pi*total))
	return &Geometry{
		Points: ring(cx, cy, r, n),
		Border: ring(cx, cy, total, n),
	}, nil
}

// render fills out with the opacity f² of the circle, where f falls
// linearly in the squared distance from 1 at the radius to 0 at the
// outer edge of the feather.
func (c *Circle) render(ctx context.Context, p *Pipe, roi darkroom.ROI, out []float32) error {
	md := p.minDim()
	cx, cy := c.Center.X*float64(p.Width), c.Center.Y*float64(p.Height)
	r := c.Radius * md
	total := (c.Radius + c.Border) * md
	r2 := r * r
	total2 := total * total
	border2 := total2 - r2

	// The outer circle needs many points, since we do not know how the
	// distortion stages will bend it.
	n := roundUp(int(min(360, 2*math.Pi*total)), 8)
	outer := ring(cx, cy, total, max(n, 8))

	grid := gridStride(roi.Scale, c.Border*md*roi.Scale)
	return sampleGrid(ctx, p, roi, outer, grid, out, func(x, y float64) float32 {
		l2 := (x-cx)*(x-cx) + (y-cy)*(y-cy)
		if border2 <= 0 {
			if l2 <= r2 {
				return 1
			}
			return 0
		}
		f := min(max((total2-l2)/border2, 0), 1)
		return float32(f * f)
	})
}

func roundUp(v, m int) int {
	return (v + m - 1) / m * m
}
