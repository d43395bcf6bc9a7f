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

func (e *Ellipse) validate(id int) error {
	if e.Radius[0] <= 0 || e.Radius[1] <= 0 || e.Border < 0 {
		return &darkroom.MalformedShapeError{ID: id, Reason: "ellipse radii must be positive"}
	}
	return nil
}

func (e *Ellipse) anchor() vec.Vec2 { return e.Center }

// axes returns the half-axes of the ellipse and of the outer edge of the
// feather, in pixels.
func (e *Ellipse) axes(md float64) (a, b, ta, tb float64) {
	a, b = e.Radius[0]*md, e.Radius[1]*md
	if e.Flags&EllipseProportional != 0 {
		ta, tb = a*(1+e.Border), b*(1+e.Border)
	} else {
		ta, tb = a+e.Border*md, b+e.Border*md
	}
	return a, b, ta, tb
}

// featherWidth returns the smallest width of the feather in pixels.
func (e *Ellipse) featherWidth(md float64) float64 {
	a, b, ta, tb := e.axes(md)
	return min(ta-a, tb-b)
}

func ellipseRing(cx, cy, a, b, rot float64, n int) []float32 {
	sinr, cosr := math.Sincos(rot)
	xy := make([]float32, 2*n)
	for i := range n {
		s, c := math.Sincos(2 * math.Pi * float64(i) / float64(n))
		x, y := a*c, b*s
		xy[2*i] = float32(cx + x*cosr - y*sinr)
		xy[2*i+1] = float32(cy + x*sinr + y*cosr)
	}
	return xy
}

func (e *Ellipse) outline(p *Pipe) (*Geometry, error) {
	md := p.minDim()
	cx, cy := e.Center.X*float64(p.Width), e.Center.Y*float64(p.Height)
	a, b, ta, tb := e.axes(md)
	rot := e.Rotation * math.Pi / 180
	n := max(8, int(2*math.Pi*max(ta, tb)))
	return &Geometry{
		Points: ellipseRing(cx, cy, a, b, rot, n),
		Border: ellipseRing(cx, cy, ta, tb, rot, n),
	}, nil
}

// render works like the circle case, with the radius and outer radius
// taken along the ray from the centre through each sample.
func (e *Ellipse) render(ctx context.Context, p *Pipe, roi darkroom.ROI, out []float32) error {
	md := p.minDim()
	cx, cy := e.Center.X*float64(p.Width), e.Center.Y*float64(p.Height)
	a, b, ta, tb := e.axes(md)
	rot := e.Rotation * math.Pi / 180
	sinr, cosr := math.Sincos(rot)

	n := roundUp(int(min(360, 2*math.Pi*max(ta, tb))), 8)
	outer := ellipseRing(cx, cy, ta, tb, rot, max(n, 8))

	grid := gridStride(roi.Scale, e.featherWidth(md)*roi.Scale)
	return sampleGrid(ctx, p, roi, outer, grid, out, func(x, y float64) float32 {
		dx, dy := x-cx, y-cy
		u := dx*cosr + dy*sinr
		v := -dx*sinr + dy*cosr
		l2 := u*u + v*v
		if l2 == 0 {
			return 1
		}
		// squared radius of an ellipse with half-axes p, q in the
		// direction (u, v)
		rad2 := func(p, q float64) float64 {
			return p * p * q * q * l2 / (q*q*u*u + p*p*v*v)
		}
		r2 := rad2(a, b)
		t2 := rad2(ta, tb)
		if t2 <= r2 {
			if l2 <= r2 {
				return 1
			}
			return 0
		}
		f := min(max((t2-l2)/(t2-r2), 0), 1)
		return float32(f * f)
	})
}
