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
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Geometry holds the outline of a shape in pixel coordinates.
//
// Points traces the shape boundary and Border the outer edge of the
// feather, both as interleaved (x, y) pairs. Where a shape has a feather,
// Border[2*i:2*i+2] is the feather point paired with Points[2*i:2*i+2].
type Geometry struct {
	Points []float32
	Border []float32

	// Skips lists ranges of border samples which belong to a
	// self-intersecting loop of the feather and must be ignored.
	Skips []Span

	// Payload holds per-point hardness and density values for brush
	// strokes, two values per point.
	Payload []float32

	// Open is set for outlines which are not closed curves, like the
	// lines of a gradient. A NaN pair separates sub-curves.
	Open bool
}

// Span is a half-open range [From, To) of sample indices.
type Span struct {
	From, To int
}

// NumPoints returns the number of boundary samples.
func (g *Geometry) NumPoints() int {
	return len(g.Points) / 2
}

func (g *Geometry) skipped(i int) bool {
	for _, s := range g.Skips {
		if i >= s.From && i < s.To {
			return true
		}
	}
	return false
}

// borderIndex returns the index of the feather sample used for boundary
// point i. Points inside a skipped loop use the first sample after it, or
// the last one before it if the loop extends to the end.
func (g *Geometry) borderIndex(i int) int {
	n := len(g.Border) / 2
	for _, s := range g.Skips {
		if i < s.From || i >= s.To {
			continue
		}
		if s.To < n {
			return s.To
		}
		if s.From > 0 {
			return s.From - 1
		}
	}
	return i
}

// borderWalk returns the indices of the border samples which form the
// feather ring, in order.
func (g *Geometry) borderWalk() []int {
	n := len(g.Border) / 2
	walk := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if g.skipped(i) {
			continue
		}
		x, y := g.Border[2*i], g.Border[2*i+1]
		if isNaN32(x) || isNaN32(y) {
			continue
		}
		walk = append(walk, i)
	}
	return walk
}

// Bounds returns the bounding box of all valid samples in Points and
// Border. The second return value is false if there are no valid samples.
func (g *Geometry) Bounds() (rect.Rect, bool) {
	b := rect.Rect{
		LLx: math.Inf(1), LLy: math.Inf(1),
		URx: math.Inf(-1), URy: math.Inf(-1),
	}
	add := func(x, y float32) {
		if isNaN32(x) || isNaN32(y) {
			return
		}
		b.LLx = min(b.LLx, float64(x))
		b.LLy = min(b.LLy, float64(y))
		b.URx = max(b.URx, float64(x))
		b.URy = max(b.URy, float64(y))
	}
	for i := 0; i+1 < len(g.Points); i += 2 {
		add(g.Points[i], g.Points[i+1])
	}
	for _, i := range g.borderWalk() {
		add(g.Border[2*i], g.Border[2*i+1])
	}
	if b.LLx > b.URx {
		return rect.Rect{}, false
	}
	return b, true
}

// Path converts the boundary (or, if border is set, the feather ring) to
// a path, for drawing overlays. NaN pairs start a new sub-path.
func (g *Geometry) Path(border bool) *path.Data {
	p := &path.Data{}
	first := true
	addPt := func(x, y float32) {
		if isNaN32(x) || isNaN32(y) {
			if !first && !g.Open {
				p = p.Close()
			}
			first = true
			return
		}
		v := vec.Vec2{X: float64(x), Y: float64(y)}
		if first {
			p = p.MoveTo(v)
			first = false
		} else {
			p = p.LineTo(v)
		}
	}
	xy := g.Points
	idx := allIndices(len(xy) / 2)
	if border {
		xy = g.Border
		idx = allIndices(len(xy) / 2)
		if len(g.Skips) > 0 {
			idx = g.borderWalk()
		}
	}
	for _, i := range idx {
		addPt(xy[2*i], xy[2*i+1])
	}
	if !first && !g.Open {
		p = p.Close()
	}
	return p
}

// transform maps all samples through the selected distortion stages.
func (g *Geometry) transform(p *Pipe, dir Direction) error {
	if err := p.Transform(dir, g.Points); err != nil {
		return err
	}
	return p.Transform(dir, g.Border)
}

// shift moves all samples by (dx, dy).
func (g *Geometry) shift(dx, dy float32) {
	for _, xy := range [][]float32{g.Points, g.Border} {
		for i := 0; i+1 < len(xy); i += 2 {
			xy[i] += dx
			xy[i+1] += dy
		}
	}
}

// toROI maps module coordinates to ROI pixel coordinates.
func (g *Geometry) toROI(scale float64, x0, y0 int) {
	conv := func(xy []float32) {
		for i := 0; i+1 < len(xy); i += 2 {
			xy[i] = float32(float64(xy[i])*scale - float64(x0))
			xy[i+1] = float32(float64(xy[i+1])*scale - float64(y0))
		}
	}
	conv(g.Points)
	conv(g.Border)
}

// Box is an integer pixel rectangle.
type Box struct {
	X, Y          int
	Width, Height int
}

// boxOf returns the bounding box of g, enlarged by a margin of two pixels.
func boxOf(g *Geometry) Box {
	b, ok := g.Bounds()
	if !ok {
		return Box{}
	}
	return Box{
		X:      int(b.LLx) - 2,
		Y:      int(b.LLy) - 2,
		Width:  int(b.URx-b.LLx) + 4,
		Height: int(b.URy-b.LLy) + 4,
	}
}

// Hit is the result of a hit test against a shape.
type Hit struct {
	// Inside is set if the position is inside the shape or its feather.
	Inside bool
	// InsideBorder is set if the position is in the feather only.
	InsideBorder bool
	// NearSegment is set if the position is within the tolerance of the
	// boundary.
	NearSegment bool
	// InsideSource is set if the position is inside the clone source.
	InsideSource bool
	// Dist2 is the squared distance to the closest boundary sample.
	Dist2 float64
}

// pointInRing reports whether (x, y) lies inside the closed polygon
// formed by the samples at the given indices, using ray casting.
func pointInRing(x, y float64, xy []float32, idx []int) bool {
	if len(idx) < 3 {
		return false
	}
	inside := false
	for k, i := range idx {
		j := idx[(k+1)%len(idx)]
		y1 := float64(xy[2*i+1])
		y2 := float64(xy[2*j+1])
		if ((y <= y2 && y > y1) || (y >= y2 && y < y1)) && float64(xy[2*i]) > x {
			inside = !inside
		}
	}
	return inside
}

// pointInRingNear is pointInRing which also reports whether a crossing
// of the ray lies within distance of x.
func pointInRingNear(x, y float64, xy []float32, idx []int, distance float64) (inside, near bool) {
	if len(idx) < 3 {
		return false, false
	}
	for k, i := range idx {
		j := idx[(k+1)%len(idx)]
		y1 := float64(xy[2*i+1])
		y2 := float64(xy[2*j+1])
		if (y <= y2 && y > y1) || (y >= y2 && y < y1) {
			xi := float64(xy[2*i])
			if xi > x {
				inside = !inside
			}
			if math.Abs(xi-x) < distance {
				near = true
			}
		}
	}
	return inside, near
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// minDist2 returns the squared distance from (x, y) to the closest
// sample in xy.
func minDist2(x, y float64, xy []float32) float64 {
	d := math.Inf(1)
	for i := 0; i+1 < len(xy); i += 2 {
		dx := x - float64(xy[i])
		dy := y - float64(xy[i+1])
		d = min(d, dx*dx+dy*dy)
	}
	return d
}

func isNaN32(v float32) bool {
	return v != v
}

var nan32 = float32(math.NaN())
