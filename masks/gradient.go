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

// minCompression is the smallest transition half-width used for
// rendering.
const minCompression = 0.001

func (g *Gradient) validate(id int) error {
	if !(g.Compression > 0) {
		return &darkroom.MalformedShapeError{ID: id, Reason: "gradient compression must be positive"}
	}
	return nil
}

func (g *Gradient) anchor() vec.Vec2 { return g.Anchor }

// frame maps reference image pixels into the coordinate system of the
// gradient: x0 runs along the line, y0 across it, both in units of the
// smaller image dimension. y0 grows in the direction of increasing
// opacity, which for rotation 0 is downwards.
type gradientFrame struct {
	cx, cy     float64
	sinv, cosv float64
	md         float64
}

func (g *Gradient) frame(p *Pipe) gradientFrame {
	v := g.Rotation * math.Pi / 180
	sinv, cosv := math.Sincos(v)
	return gradientFrame{
		cx:   g.Anchor.X * float64(p.Width),
		cy:   g.Anchor.Y * float64(p.Height),
		sinv: sinv,
		cosv: cosv,
		md:   p.minDim(),
	}
}

func (fr gradientFrame) toLocal(x, y float64) (float64, float64) {
	dx, dy := x-fr.cx, y-fr.cy
	return (fr.cosv*dx + fr.sinv*dy) / fr.md, (fr.cosv*dy - fr.sinv*dx) / fr.md
}

func (fr gradientFrame) toImage(x0, y0 float64) (float64, float64) {
	return fr.cx + (fr.cosv*x0-fr.sinv*y0)*fr.md, fr.cy + (fr.sinv*x0+fr.cosv*y0)*fr.md
}

// distance returns the signed distance of a point from the curve
// y0 = -curvature·x0², in units of the smaller image dimension.
func (g *Gradient) distance(fr gradientFrame, x, y float64) float64 {
	x0, y0 := fr.toLocal(x, y)
	return y0 + g.Curvature*x0*x0
}

// value maps a signed distance to opacity.
func (g *Gradient) value(d float64) float32 {
	c := max(g.Compression, minCompression)
	if d <= -4*c {
		return 0
	}
	if d >= 4*c {
		return 1
	}
	var v float64
	if g.State == GradientSigmoidal {
		v = 0.5 + 0.5*math.Erf(d/c)
	} else {
		v = 0.5 + 0.5*d/c
	}
	return float32(min(max(v, 0), 1))
}

// curve samples the line y0 = offset - curvature·x0² in image pixels,
// dropping points far outside the image.
func (g *Gradient) curve(p *Pipe, fr gradientFrame, offset float64) []float32 {
	wd, ht := float64(p.Width), float64(p.Height)
	diag := math.Hypot(wd, ht)
	count := int(diag) + 3
	reach := diag / fr.md
	xstart := -reach
	if c := math.Abs(g.Curvature); c*reach*reach > reach {
		xstart = -math.Sqrt(reach / c)
	}
	xdelta := -2 * xstart / float64(count-1)

	xy := make([]float32, 0, 2*count)
	for i := range count {
		x0 := xstart + float64(i)*xdelta
		y0 := offset - g.Curvature*x0*x0
		x, y := fr.toImage(x0, y0)
		if x < -wd || x > 2*wd || y < -ht || y > 2*ht {
			continue
		}
		xy = append(xy, float32(x), float32(y))
	}
	return xy
}

// outline returns the anchor line as Points and the two curves at the
// ends of the transition as Border, separated by a NaN pair.
func (g *Gradient) outline(p *Pipe) (*Geometry, error) {
	fr := g.frame(p)
	c := max(g.Compression, minCompression)
	border := g.curve(p, fr, -c)
	border = append(border, nan32, nan32)
	border = append(border, g.curve(p, fr, c)...)
	return &Geometry{
		Points: g.curve(p, fr, 0),
		Border: border,
		Open:   true,
	}, nil
}

func (g *Gradient) render(ctx context.Context, p *Pipe, roi darkroom.ROI, out []float32) error {
	fr := g.frame(p)
	c := max(g.Compression, minCompression)
	grid := gridStride(roi.Scale, c*fr.md*roi.Scale)
	return sampleGrid(ctx, p, roi, nil, grid, out, func(x, y float64) float32 {
		return g.value(g.distance(fr, x, y))
	})
}

// hit classifies a position given in reference image pixels.
func (g *Gradient) hit(p *Pipe, x, y, tol float64) Hit {
	fr := g.frame(p)
	c := max(g.Compression, minCompression)
	d := g.distance(fr, x, y)
	dpx := d * fr.md
	h := Hit{Dist2: dpx * dpx}
	h.NearSegment = h.Dist2 < tol*tol
	h.Inside = math.Abs(d) <= c
	h.InsideBorder = h.Inside && !h.NearSegment
	return h
}
