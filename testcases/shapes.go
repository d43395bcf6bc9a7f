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

package testcases

import (
	"math"

	"seehuhn.de/go/darkroom/masks"
)

var circleCases = []TestCase{
	{
		Name:   "centered",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("circle", &masks.Circle{Center: pt(0.5, 0.5), Radius: 0.25})
		},
	},
	{
		Name:   "feathered",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("circle", &masks.Circle{Center: pt(0.5, 0.5), Radius: 0.15, Border: 0.2})
		},
	},
	{
		Name:   "clipped",
		Width:  96,
		Height: 48,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("circle", &masks.Circle{Center: pt(0.95, 0.1), Radius: 0.3, Border: 0.05})
		},
	},
}

var ellipseCases = []TestCase{
	{
		Name:   "rotated",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("ellipse", &masks.Ellipse{
				Center:   pt(0.5, 0.5),
				Radius:   [2]float64{0.35, 0.15},
				Rotation: 30,
				Border:   0.05,
			})
		},
	},
	{
		Name:   "proportional",
		Width:  80,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("ellipse", &masks.Ellipse{
				Center:   pt(0.5, 0.5),
				Radius:   [2]float64{0.3, 0.1},
				Rotation: -45,
				Border:   0.5,
				Flags:    masks.EllipseProportional,
			})
		},
	},
}

var gradientCases = []TestCase{
	{
		Name:   "linear",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("gradient", &masks.Gradient{
				Anchor:      pt(0.5, 0.5),
				Compression: 0.2,
				State:       masks.GradientLinear,
			})
		},
	},
	{
		Name:   "sigmoidal_rotated",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("gradient", &masks.Gradient{
				Anchor:      pt(0.4, 0.6),
				Rotation:    60,
				Compression: 0.15,
				State:       masks.GradientSigmoidal,
			})
		},
	},
	{
		Name:   "curved",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("gradient", &masks.Gradient{
				Anchor:      pt(0.5, 0.4),
				Compression: 0.1,
				Curvature:   1,
				State:       masks.GradientLinear,
			})
		},
	},
}

var polygonCases = []TestCase{
	{
		Name:   "square",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("polygon", square(0.25, 0.25, 0.75, 0.75, 0))
		},
	},
	{
		Name:   "square_coverage",
		Width:  64,
		Height: 64,
		Fill:   masks.FillCoverage,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("polygon", square(0.2, 0.3, 0.7, 0.8, 0.05))
		},
	},
	{
		Name:   "smooth_star",
		Width:  96,
		Height: 96,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("polygon", star(0.5, 0.5, 0.4, 0.15, 5, 0.03))
		},
	},
	{
		Name:   "smooth_star_coverage",
		Width:  96,
		Height: 96,
		Fill:   masks.FillCoverage,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("polygon", star(0.5, 0.5, 0.4, 0.15, 5, 0.03))
		},
	},
}

var brushCases = []TestCase{
	{
		Name:   "line",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("brush", brush(
				masks.NewBrushNode(0.2, 0.5, 0.05, 0.5, 1),
				masks.NewBrushNode(0.8, 0.5, 0.05, 0.5, 1),
			))
		},
	},
	{
		Name:   "tapered_curve",
		Width:  96,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			return p.Forms.Create("brush", brush(
				masks.NewBrushNode(0.1, 0.7, 0.02, 1, 1),
				masks.NewBrushNode(0.4, 0.2, 0.06, 0.7, 0.8),
				masks.NewBrushNode(0.7, 0.6, 0.04, 0.3, 0.6),
				masks.NewBrushNode(0.9, 0.3, 0.02, 0.1, 1),
			))
		},
	},
}

var groupCases = []TestCase{
	{
		Name:   "union",
		Width:  100,
		Height: 100,
		Build: func(p *masks.Pipe) *masks.Form {
			a := p.Forms.Create("a", &masks.Circle{Center: pt(0.25, 0.5), Radius: 0.1})
			b := p.Forms.Create("b", &masks.Circle{Center: pt(0.75, 0.5), Radius: 0.1})
			return group(p, []*masks.Form{a, b})
		},
	},
	{
		Name:   "intersection",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			a := p.Forms.Create("a", &masks.Circle{Center: pt(0.4, 0.5), Radius: 0.25, Border: 0.05})
			b := p.Forms.Create("b", &masks.Circle{Center: pt(0.6, 0.5), Radius: 0.25, Border: 0.05})
			return group(p, []*masks.Form{a, b}, masks.StateIntersection)
		},
	},
	{
		Name:   "difference",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			a := p.Forms.Create("a", square(0.1, 0.1, 0.9, 0.9, 0))
			b := p.Forms.Create("b", &masks.Circle{Center: pt(0.5, 0.5), Radius: 0.2, Border: 0.1})
			return group(p, []*masks.Form{a, b}, masks.StateDifference)
		},
	},
	{
		Name:   "exclusion_nested",
		Width:  64,
		Height: 64,
		Build: func(p *masks.Pipe) *masks.Form {
			g := p.Forms.Create("gradient", &masks.Gradient{
				Anchor:      pt(0.5, 0.5),
				Rotation:    90,
				Compression: 0.3,
				State:       masks.GradientLinear,
			})
			e := p.Forms.Create("ellipse", &masks.Ellipse{
				Center: pt(0.5, 0.5),
				Radius: [2]float64{0.3, 0.2},
				Border: 0.05,
			})
			inner := group(p, []*masks.Form{g, e}, masks.StateExclusion)
			c := p.Forms.Create("circle", &masks.Circle{Center: pt(0.15, 0.15), Radius: 0.1})
			return group(p, []*masks.Form{inner, c})
		},
	},
}

// square returns an axis-aligned rectangle with sharp corners.
func square(x0, y0, x1, y1, border float64) *masks.Polygon {
	return &masks.Polygon{Nodes: []masks.PolygonNode{
		masks.NewCuspNode(x0, y0, border),
		masks.NewCuspNode(x1, y0, border),
		masks.NewCuspNode(x1, y1, border),
		masks.NewCuspNode(x0, y1, border),
	}}
}

// brush returns a stroke through the given nodes with smooth control
// points.
func brush(nodes ...masks.BrushNode) *masks.Brush {
	b := &masks.Brush{Nodes: nodes}
	b.ResolveControlPoints()
	return b
}

// star returns a star with n points and smooth corners. The nodes
// alternate between the outer radius r1 and the inner radius r2.
func star(cx, cy, r1, r2 float64, n int, border float64) *masks.Polygon {
	poly := &masks.Polygon{}
	for i := range 2 * n {
		r := r1
		if i%2 == 1 {
			r = r2
		}
		a := math.Pi * float64(i) / float64(n)
		poly.Nodes = append(poly.Nodes,
			masks.NewPolygonNode(cx+r*math.Sin(a), cy-r*math.Cos(a), border))
	}
	poly.ResolveControlPoints()
	return poly
}
