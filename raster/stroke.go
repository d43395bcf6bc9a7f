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

package raster

import (
	"math"

	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// Stroke rasterises a polyline of width r.Width, using r.Cap for the end
// points of open polylines and r.Join at interior vertices.
//
// The outline is built as a union of rings (one per segment, join and
// cap), all oriented the same way, and filled with the nonzero rule so
// that overlapping rings are painted once.
func (r *Rasteriser) Stroke(pts []vec.Vec2, closed bool, emit EmitFunc) {
	r.outline = r.outline[:0]
	r.offsets = r.offsets[:0]
	d := r.Width / 2
	if d <= 0 {
		return
	}

	pts = dropDuplicates(pts)
	if closed && len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) == 0 {
		return
	}
	if len(pts) == 1 {
		if r.Cap == graphics.LineCapRound {
			r.addCircle(pts[0], d)
		}
		r.fillOutline(emit)
		return
	}

	n := len(pts)
	nSeg := n - 1
	if closed {
		nSeg = n
	}
	for i := range nSeg {
		a, b := pts[i], pts[(i+1)%n]
		t, ok := unit(b.Sub(a))
		if !ok {
			continue
		}
		nv := normal(t)
		r.addRing(a.Add(nv.Mul(d)), b.Add(nv.Mul(d)), b.Sub(nv.Mul(d)), a.Sub(nv.Mul(d)))
	}

	for i := range n {
		if !closed && (i == 0 || i == n-1) {
			continue
		}
		prev, next := pts[(i+n-1)%n], pts[(i+1)%n]
		t1, ok1 := unit(pts[i].Sub(prev))
		t2, ok2 := unit(next.Sub(pts[i]))
		if ok1 && ok2 {
			r.addJoin(pts[i], t1, t2, d)
		}
	}

	if !closed {
		if t, ok := unit(pts[0].Sub(pts[1])); ok {
			r.addCap(pts[0], t, d)
		}
		if t, ok := unit(pts[n-1].Sub(pts[n-2])); ok {
			r.addCap(pts[n-1], t, d)
		}
	}
	r.fillOutline(emit)
}

// StrokeXY is Stroke for interleaved float32 coordinates.
func (r *Rasteriser) StrokeXY(xy []float32, closed bool, emit EmitFunc) {
	pts := make([]vec.Vec2, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		x, y := float64(xy[i]), float64(xy[i+1])
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, vec.Vec2{X: x, Y: y})
	}
	if len(pts) == 0 {
		return
	}
	r.Stroke(pts, closed, emit)
}

func dropDuplicates(pts []vec.Vec2) []vec.Vec2 {
	out := pts[:0:0]
	for i, p := range pts {
		if i > 0 && p.Sub(pts[i-1]).Length() < zeroLengthThreshold {
			continue
		}
		out = append(out, p)
	}
	return out
}

func unit(v vec.Vec2) (vec.Vec2, bool) {
	l := v.Length()
	if l < zeroLengthThreshold {
		return vec.Vec2{}, false
	}
	return v.Mul(1 / l), true
}

// normal returns the tangent rotated by 90 degrees counter-clockwise.
func normal(t vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: -t.Y, Y: t.X}
}

// addJoin adds the join geometry on the outer side of the corner at p.
func (r *Rasteriser) addJoin(p, t1, t2 vec.Vec2, d float64) {
	cross := t1.X*t2.Y - t1.Y*t2.X
	if math.Abs(cross) < collinearityThreshold && t1.Dot(t2) > 0 {
		return
	}
	if r.Join == graphics.LineJoinRound {
		r.addCircle(p, d)
		return
	}

	s := -1.0
	if cross < 0 {
		s = 1
	}
	n1 := normal(t1).Mul(s)
	n2 := normal(t2).Mul(s)
	a := p.Add(n1.Mul(d))
	b := p.Add(n2.Mul(d))

	if r.Join == graphics.LineJoinMiter {
		sum := n1.Add(n2)
		l2 := sum.Dot(sum)
		if l2 > 0 && 2/math.Sqrt(l2) <= r.MiterLimit {
			m := p.Add(sum.Mul(2 * d / l2))
			r.addRing(p, a, m, b)
			return
		}
	}
	r.addRing(p, a, b)
}

// addCap adds a line cap at p. t points away from the line.
func (r *Rasteriser) addCap(p, t vec.Vec2, d float64) {
	switch r.Cap {
	case graphics.LineCapRound:
		r.addCircle(p, d)
	case graphics.LineCapSquare:
		nv := normal(t).Mul(d)
		e := p.Add(t.Mul(d))
		r.addRing(p.Add(nv), e.Add(nv), e.Sub(nv), p.Sub(nv))
	}
}

// addCircle adds a polygonal circle whose deviation from the true circle
// stays below the flatness in device space.
func (r *Rasteriser) addCircle(c vec.Vec2, radius float64) {
	dev := max(r.linear(vec.Vec2{X: radius}).Length(), r.linear(vec.Vec2{Y: radius}).Length())
	n := 8
	if dev > r.Flatness {
		step := 2 * math.Acos(1-r.Flatness/dev)
		n = max(n, int(math.Ceil(2*math.Pi/step)))
	}
	start := len(r.outline)
	for i := range n {
		phi := 2 * math.Pi * float64(i) / float64(n)
		r.outline = append(r.outline, c.Add(vec.Vec2{X: radius * math.Cos(phi), Y: radius * math.Sin(phi)}))
	}
	r.offsets = append(r.offsets, start)
}

// addRing appends a ring, reversing it if needed so that all rings of an
// outline share the same orientation.
func (r *Rasteriser) addRing(pts ...vec.Vec2) {
	var a float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		a += p.X*q.Y - q.X*p.Y
	}
	if math.Abs(a) < zeroLengthThreshold {
		return
	}
	start := len(r.outline)
	if a > 0 {
		r.outline = append(r.outline, pts...)
	} else {
		for i := len(pts) - 1; i >= 0; i-- {
			r.outline = append(r.outline, pts[i])
		}
	}
	r.offsets = append(r.offsets, start)
}

// fillOutline fills all collected rings with the nonzero rule.
func (r *Rasteriser) fillOutline(emit EmitFunc) {
	r.beginEdges()
	for k, start := range r.offsets {
		end := len(r.outline)
		if k+1 < len(r.offsets) {
			end = r.offsets[k+1]
		}
		ring := r.outline[start:end]
		for i := range ring {
			r.addEdge(ring[i], ring[(i+1)%len(ring)])
		}
	}
	r.fillEdges(NonZero, emit)
}
