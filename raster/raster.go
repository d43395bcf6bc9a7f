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

// Package raster converts outlines into anti-aliased coverage values.
//
// The rasteriser computes, for every pixel, the fraction of the pixel area
// covered by a filled outline. The mask engine uses it for the coverage
// fill mode of polygons and for drawing shape outlines.
package raster

import (
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// Rule selects how overlapping parts of an outline are counted.
type Rule int

const (
	// NonZero fills every point with non-zero winding number.
	NonZero Rule = iota
	// EvenOdd fills every point enclosed an odd number of times.
	EvenOdd
)

// EmitFunc receives coverage for one scanline. The slice is only valid
// during the call.
type EmitFunc func(y, xMin int, coverage []float32)

// edge is a line segment in device coordinates.
type edge struct {
	x0, y0 float64
	x1, y1 float64
	dxdy   float64
}

// Rasteriser converts outlines to pixel coverage.
// Internal buffers grow as needed and are reused between calls.
//
// A Rasteriser is not safe for concurrent use.
type Rasteriser struct {
	// CTM maps user space to device space. Must be non-singular.
	CTM matrix.Matrix

	// Clip is the output region in device coordinates, integer-aligned.
	Clip rect.Rect

	// Flatness is the curve flattening tolerance in device pixels.
	Flatness float64

	// Width is the outline width in user-space units, used by Stroke.
	Width float64

	// Cap and Join control the ends and corners of stroked outlines.
	Cap  graphics.LineCapStyle
	Join graphics.LineJoinStyle

	// MiterLimit bounds the length of miter joins, relative to Width.
	MiterLimit float64

	smallPathThreshold int

	cover     []float32
	area      []float32
	edges     []edge
	activeIdx []int
	rowXMin   []int
	rowXMax   []int
	crossings []float64
	outline   []vec.Vec2
	offsets   []int

	bboxFirst bool
	bxMin     float64
	bxMax     float64
	byMin     float64
	byMax     float64
}

// NewRasteriser returns a rasteriser for the given clip rectangle.
func NewRasteriser(clip rect.Rect) *Rasteriser {
	r := &Rasteriser{}
	r.Reset(clip)
	return r
}

// Reset restores the default settings for a new clip rectangle while
// keeping the allocated buffers.
func (r *Rasteriser) Reset(clip rect.Rect) {
	r.CTM = matrix.Identity
	r.Clip = clip
	r.Flatness = defaultFlatness
	r.Width = 1
	r.Cap = graphics.LineCapButt
	r.Join = graphics.LineJoinMiter
	r.MiterLimit = defaultMiterLimit
	r.smallPathThreshold = smallPathThreshold

	r.beginEdges()
	r.outline = r.outline[:0]
	r.offsets = r.offsets[:0]
}

// device maps a user space point to device space.
func (r *Rasteriser) device(p vec.Vec2) (float64, float64) {
	return r.CTM[0]*p.X + r.CTM[2]*p.Y + r.CTM[4], r.CTM[1]*p.X + r.CTM[3]*p.Y + r.CTM[5]
}

// linear applies the 2×2 part of the CTM.
func (r *Rasteriser) linear(v vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: r.CTM[0]*v.X + r.CTM[2]*v.Y,
		Y: r.CTM[1]*v.X + r.CTM[3]*v.Y,
	}
}

// flattenQuadratic splits a quadratic Bézier into line segments whose
// distance from the curve stays below the flatness in device space.
func (r *Rasteriser) flattenQuadratic(p0, p1, p2 vec.Vec2, emit func(a, b vec.Vec2)) {
	e := r.linear(p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25)).Length()
	n := 1
	if e > r.Flatness {
		n = int(math.Ceil(math.Sqrt(e / r.Flatness)))
	}
	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		p := p0.Mul(s * s).Add(p1.Mul(2 * s * t)).Add(p2.Mul(t * t))
		emit(prev, p)
		prev = p
	}
}

// flattenCubic splits a cubic Bézier into line segments, using Wang's
// formula for the number of segments.
func (r *Rasteriser) flattenCubic(p0, p1, p2, p3 vec.Vec2, emit func(a, b vec.Vec2)) {
	d1 := r.linear(p0.Sub(p1.Mul(2)).Add(p2)).Length()
	d2 := r.linear(p1.Sub(p2.Mul(2)).Add(p3)).Length()
	n := 1
	if m := max(d1, d2); m > 0 {
		if f := math.Sqrt(3 * m / (4 * r.Flatness)); f > 1 {
			n = int(math.Ceil(f))
		}
	}
	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		p := p0.Mul(s * s * s).Add(p1.Mul(3 * s * s * t)).Add(p2.Mul(3 * s * t * t)).Add(p3.Mul(t * t * t))
		emit(prev, p)
		prev = p
	}
}

// Fill rasterises a path with the given fill rule.
func (r *Rasteriser) Fill(p *path.Data, rule Rule, emit EmitFunc) {
	r.beginEdges()
	var current, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			current = p.Coords[k]
			start = current
			k++
		case path.CmdLineTo:
			r.addEdge(current, p.Coords[k])
			current = p.Coords[k]
			k++
		case path.CmdQuadTo:
			r.flattenQuadratic(current, p.Coords[k], p.Coords[k+1], r.addEdge)
			current = p.Coords[k+1]
			k += 2
		case path.CmdCubeTo:
			r.flattenCubic(current, p.Coords[k], p.Coords[k+1], p.Coords[k+2], r.addEdge)
			current = p.Coords[k+2]
			k += 3
		case path.CmdClose:
			if current != start {
				r.addEdge(current, start)
			}
			current = start
		}
	}
	r.fillEdges(rule, emit)
}

// FillPolygon rasterises the closed polygon given by interleaved (x, y)
// coordinates.
func (r *Rasteriser) FillPolygon(xy []float32, rule Rule, emit EmitFunc) {
	r.beginEdges()
	r.addPolygon(xy)
	r.fillEdges(rule, emit)
}

// addPolygon adds the edges of a closed ring to the pending edge list.
func (r *Rasteriser) addPolygon(xy []float32) {
	n := len(xy) / 2
	if n < 2 {
		return
	}
	prev := vec.Vec2{X: float64(xy[2*n-2]), Y: float64(xy[2*n-1])}
	for i := range n {
		p := vec.Vec2{X: float64(xy[2*i]), Y: float64(xy[2*i+1])}
		r.addEdge(prev, p)
		prev = p
	}
}

func (r *Rasteriser) beginEdges() {
	r.edges = r.edges[:0]
	r.bboxFirst = true
}

// addEdge transforms a user space segment to device space and records it.
// Horizontal edges do not contribute to coverage and are dropped.
func (r *Rasteriser) addEdge(p0, p1 vec.Vec2) {
	x0, y0 := r.device(p0)
	x1, y1 := r.device(p1)
	dy := y1 - y0
	if dy > -horizontalEdgeThreshold && dy < horizontalEdgeThreshold {
		return
	}
	r.edges = append(r.edges, edge{x0: x0, y0: y0, x1: x1, y1: y1, dxdy: (x1 - x0) / dy})

	if r.bboxFirst {
		r.bxMin, r.bxMax = min(x0, x1), max(x0, x1)
		r.byMin, r.byMax = min(y0, y1), max(y0, y1)
		r.bboxFirst = false
		return
	}
	r.bxMin = min(r.bxMin, x0, x1)
	r.bxMax = max(r.bxMax, x0, x1)
	r.byMin = min(r.byMin, y0, y1)
	r.byMax = max(r.byMax, y0, y1)
}

// fillEdges chooses between the two scanline strategies.
func (r *Rasteriser) fillEdges(rule Rule, emit EmitFunc) {
	defer r.beginEdges()
	if len(r.edges) == 0 {
		return
	}
	xMin := max(int(math.Floor(r.bxMin)), int(r.Clip.LLx))
	xMax := min(int(math.Floor(r.bxMax))+1, int(r.Clip.URx))
	yMin := max(int(math.Floor(r.byMin)), int(r.Clip.LLy))
	yMax := min(int(math.Floor(r.byMax))+1, int(r.Clip.URy))
	if xMin >= xMax || yMin >= yMax {
		return
	}

	if (xMax-xMin)*(yMax-yMin) < r.smallPathThreshold {
		r.fillSmall(xMin, xMax, yMin, yMax, rule, emit)
	} else {
		r.fillLarge(xMin, xMax, yMin, yMax, rule, emit)
	}
}

// Coverage accumulation.
//
// For each pixel two values are collected: cover, the signed vertical
// extent of all edge pieces inside the pixel column, and area, the same
// extent weighted by the horizontal distance from the piece to the right
// pixel border. Integrating a scanline from left to right,
//
//	coverage[i] = sum(cover[0:i]) + area[i]
//
// gives the signed area of the outline inside each pixel.

// accumulateEdge adds the part of e inside scanline y to cover and area,
// which are indexed by x - bxMin.
func (r *Rasteriser) accumulateEdge(e *edge, y int, cover, area []float32, bxMin, bxMax int) {
	yTop := max(float64(y), min(e.y0, e.y1))
	yBot := min(float64(y+1), max(e.y0, e.y1))
	if yBot <= yTop {
		return
	}

	sign := float32(1)
	if e.y1 < e.y0 {
		sign = -1
	}

	xl := e.x0 + e.dxdy*(yTop-e.y0)
	xr := e.x0 + e.dxdy*(yBot-e.y0)
	if xl > xr {
		xl, xr = xr, xl
	}
	pl := int(math.Floor(xl))
	pr := int(math.Floor(xr))

	if pr < bxMin {
		c := sign * float32(yBot-yTop)
		cover[0] += c
		area[0] += c
		return
	}
	if pl >= bxMax {
		return
	}
	if pl == pr {
		r.accumulatePiece(e, yTop, yBot, sign, pl, cover, area, bxMin, bxMax)
		return
	}

	// split the edge where it crosses pixel column boundaries
	r.crossings = append(r.crossings[:0], yTop, yBot)
	dydx := 1 / e.dxdy
	for x := pl + 1; x <= pr; x++ {
		yx := e.y0 + dydx*(float64(x)-e.x0)
		if yx > yTop && yx < yBot {
			r.crossings = append(r.crossings, yx)
		}
	}
	slices.Sort(r.crossings)
	for i := range len(r.crossings) - 1 {
		a, b := r.crossings[i], r.crossings[i+1]
		if b <= a {
			continue
		}
		ym := (a + b) / 2
		xm := e.x0 + e.dxdy*(ym-e.y0)
		r.accumulatePiece(e, a, b, sign, int(math.Floor(xm)), cover, area, bxMin, bxMax)
	}
}

// accumulatePiece records an edge piece which lies inside a single pixel
// column.
func (r *Rasteriser) accumulatePiece(e *edge, yTop, yBot float64, sign float32, pix int, cover, area []float32, bxMin, bxMax int) {
	c := sign * float32(yBot-yTop)
	if pix < bxMin {
		cover[0] += c
		area[0] += c
		return
	}
	if pix >= bxMax {
		return
	}
	ym := (yTop + yBot) / 2
	xm := e.x0 + e.dxdy*(ym-e.y0)
	i := pix - bxMin
	cover[i] += c
	area[i] += c * float32(1-(xm-float64(pix)))
}

// integrate turns accumulated cover/area values into coverage, in place.
func integrate(cover, area []float32, rule Rule) {
	var acc float32
	for i := range cover {
		raw := acc + area[i]
		acc += cover[i]
		if raw < 0 {
			raw = -raw
		}
		if rule == NonZero {
			cover[i] = min(raw, 1)
		} else {
			m := raw - 2*float32(int(raw/2))
			d := 1 - m
			if d < 0 {
				d = -d
			}
			cover[i] = 1 - d
		}
	}
}

// trimZeros returns the non-zero part of a scanline and its offset.
func trimZeros(c []float32) ([]float32, int) {
	lo, hi := 0, len(c)
	for lo < hi && c[lo] == 0 {
		lo++
	}
	if lo == hi {
		return nil, 0
	}
	for hi > lo && c[hi-1] == 0 {
		hi--
	}
	return c[lo:hi], lo
}

// midColumn returns the pixel column (relative to xMin) where edge e
// crosses the middle of its part of scanline y.
func midColumn(e *edge, y, xMin, xMax int) int {
	yTop := max(float64(y), min(e.y0, e.y1))
	yBot := min(float64(y+1), max(e.y0, e.y1))
	xm := e.x0 + e.dxdy*((yTop+yBot)/2-e.y0)
	return min(max(int(math.Floor(xm)), xMin), xMax-1) - xMin
}

// fillSmall accumulates all rows into 2D buffers before integrating.
// It is used for outlines with small bounding boxes.
func (r *Rasteriser) fillSmall(xMin, xMax, yMin, yMax int, rule Rule, emit EmitFunc) {
	w, h := xMax-xMin, yMax-yMin
	r.cover = slices.Grow(r.cover[:0], w*h)[:w*h]
	r.area = slices.Grow(r.area[:0], w*h)[:w*h]
	clear(r.cover)
	clear(r.area)
	r.rowXMin = slices.Grow(r.rowXMin[:0], h)[:h]
	r.rowXMax = slices.Grow(r.rowXMax[:0], h)[:h]
	for i := range h {
		r.rowXMin[i] = w
		r.rowXMax[i] = -1
	}

	for i := range r.edges {
		e := &r.edges[i]
		lo := max(int(math.Floor(min(e.y0, e.y1))), yMin)
		hi := min(int(math.Floor(max(e.y0, e.y1)))+1, yMax)
		for y := lo; y < hi; y++ {
			row := y - yMin
			off := row * w
			r.accumulateEdge(e, y, r.cover[off:off+w], r.area[off:off+w], xMin, xMax)
			x := midColumn(e, y, xMin, xMax)
			r.rowXMin[row] = min(r.rowXMin[row], x)
			r.rowXMax[row] = max(r.rowXMax[row], x)
		}
	}

	for row := range h {
		if r.rowXMax[row] < 0 {
			continue
		}
		off := row * w
		c := r.cover[off : off+w]
		integrate(c, r.area[off:off+w], rule)
		if t, o := trimZeros(c); t != nil {
			emit(yMin+row, xMin+o, t)
		}
	}
}

// fillLarge processes one scanline at a time with an active edge list.
func (r *Rasteriser) fillLarge(xMin, xMax, yMin, yMax int, rule Rule, emit EmitFunc) {
	w := xMax - xMin
	r.cover = slices.Grow(r.cover[:0], w)[:w]
	r.area = slices.Grow(r.area[:0], w)[:w]

	slices.SortFunc(r.edges, func(a, b edge) int {
		return cmp.Compare(min(a.y0, a.y1), min(b.y0, b.y1))
	})
	r.activeIdx = r.activeIdx[:0]
	next := 0

	for y := yMin; y < yMax; y++ {
		for next < len(r.edges) && min(r.edges[next].y0, r.edges[next].y1) < float64(y+1) {
			r.activeIdx = append(r.activeIdx, next)
			next++
		}
		if len(r.activeIdx) == 0 {
			continue
		}

		clear(r.cover)
		clear(r.area)
		touched := false
		for i := 0; i < len(r.activeIdx); {
			e := &r.edges[r.activeIdx[i]]
			if max(e.y0, e.y1) <= float64(y) {
				last := len(r.activeIdx) - 1
				r.activeIdx[i] = r.activeIdx[last]
				r.activeIdx = r.activeIdx[:last]
				continue
			}
			r.accumulateEdge(e, y, r.cover, r.area, xMin, xMax)
			touched = true
			i++
		}
		if !touched {
			continue
		}

		integrate(r.cover, r.area, rule)
		if t, o := trimZeros(r.cover); t != nil {
			emit(y, xMin+o, t)
		}
	}
}

// Default values for rasteriser parameters.
const (
	// defaultFlatness is below the threshold of visual perception.
	defaultFlatness = 0.25

	// defaultMiterLimit converts joins to bevels below about 11.5 degrees.
	defaultMiterLimit = 10.0
)

// Numerical tolerances.
const (
	horizontalEdgeThreshold = 1e-10

	// smallPathThreshold is the largest bounding box area (in pixels)
	// rasterised with 2D accumulation buffers.
	smallPathThreshold = 65536

	zeroLengthThreshold   = 1e-10
	collinearityThreshold = 1e-6
)
