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

	"seehuhn.de/go/geom/vec"
)

func lerp(a, b vec.Vec2, t float64) vec.Vec2 {
	return vec.Vec2{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// cubicAt evaluates the cubic Bézier curve p0, p1, p2, p3 at t. The second
// return value is the tangent direction, up to a positive factor.
func cubicAt(p0, p1, p2, p3 vec.Vec2, t float64) (vec.Vec2, vec.Vec2) {
	a := lerp(p0, p1, t)
	b := lerp(p1, p2, t)
	c := lerp(p2, p3, t)
	d := lerp(a, b, t)
	e := lerp(b, c, t)
	return lerp(d, e, t), e.Sub(d)
}

// cubicBorder evaluates the curve at t together with the point at
// distance rad to the left of the direction of travel. The border point
// is NaN where the tangent vanishes.
func cubicBorder(p0, p1, p2, p3 vec.Vec2, t, rad float64) (vec.Vec2, vec.Vec2) {
	c, d := cubicAt(p0, p1, p2, p3, t)
	if d.X == 0 && d.Y == 0 {
		return c, vec.Vec2{X: math.NaN(), Y: math.NaN()}
	}
	l := 1 / math.Hypot(d.X, d.Y)
	return c, vec.Vec2{X: c.X + rad*d.Y*l, Y: c.Y - rad*d.X*l}
}

// catmullToBezier returns the inner control points of the Bézier segment
// from p2 to p3 which matches the Catmull-Rom spline through p1..p4.
func catmullToBezier(p1, p2, p3, p4 vec.Vec2) (vec.Vec2, vec.Vec2) {
	b1 := vec.Vec2{X: (-p1.X + 6*p2.X + p3.X) / 6, Y: (-p1.Y + 6*p2.Y + p3.Y) / 6}
	b2 := vec.Vec2{X: (p2.X + 6*p3.X - p4.X) / 6, Y: (p2.Y + 6*p3.Y - p4.Y) / 6}
	return b1, b2
}

// smoothstep interpolates the feather width along a segment.
func smoothstep(a, b, t float64) float64 {
	return a + (b-a)*t*t*(3-2*t)
}

// Controls is the part of a node seen by [ResolveControlPoints].
type Controls struct {
	Node, Ctrl1, Ctrl2 vec.Vec2
	State              NodeState
}

// ResolveControlPoints sets the control points of all NodeNormal nodes so
// that the path follows the Catmull-Rom spline through the nodes. Outgoing
// controls of the previous node and incoming controls of the next node are
// only filled in where they are still unset, i.e. equal to (-1, -1)
// coordinate-wise. NodeUser nodes are left alone.
//
// Open paths extend their ends by mirroring the neighbouring nodes.
func ResolveControlPoints(nodes []Controls, closed bool) {
	nb := len(nodes)
	if nb < 2 {
		return
	}

	at := func(i int) *Controls {
		if closed {
			return &nodes[((i%nb)+nb)%nb]
		}
		if i < 0 || i >= nb {
			return nil
		}
		return &nodes[i]
	}

	var start, end [2]Controls
	for k := range nodes {
		p3 := &nodes[k]
		if p3.State != NodeNormal {
			continue
		}
		p1, p2, p4, p5 := at(k-2), at(k-1), at(k+1), at(k+2)

		if p1 == nil && p2 == nil {
			m := p3.Node.Mul(2).Sub(p4.Node)
			start[0] = Controls{Node: m, Ctrl1: unset, Ctrl2: unset}
			start[1] = start[0]
			p1, p2 = &start[0], &start[1]
		} else if p1 == nil {
			start[0] = Controls{Node: p2.Node.Mul(2).Sub(p3.Node)}
			p1 = &start[0]
		}
		if p4 == nil && p5 == nil {
			m := p3.Node.Mul(2).Sub(p2.Node)
			end[0] = Controls{Node: m, Ctrl1: unset, Ctrl2: unset}
			end[1] = end[0]
			p4, p5 = &end[0], &end[1]
		} else if p5 == nil {
			end[0] = Controls{Node: p4.Node.Mul(2).Sub(p3.Node)}
			p5 = &end[0]
		}

		b1, b2 := catmullToBezier(p1.Node, p2.Node, p3.Node, p4.Node)
		if p2.Ctrl2.X == -1 {
			p2.Ctrl2.X = b1.X
		}
		if p2.Ctrl2.Y == -1 {
			p2.Ctrl2.Y = b1.Y
		}
		p3.Ctrl1 = b2

		b1, b2 = catmullToBezier(p2.Node, p3.Node, p4.Node, p5.Node)
		if p4.Ctrl1.X == -1 {
			p4.Ctrl1.X = b2.X
		}
		if p4.Ctrl1.Y == -1 {
			p4.Ctrl1.Y = b2.Y
		}
		p3.Ctrl2 = b1
	}
}

// ResolveControlPoints resolves the control points of the closed polygon
// path. See [ResolveControlPoints].
func (p *Polygon) ResolveControlPoints() {
	c := make([]Controls, len(p.Nodes))
	for i, n := range p.Nodes {
		c[i] = Controls{Node: n.Node, Ctrl1: n.Ctrl1, Ctrl2: n.Ctrl2, State: n.State}
	}
	ResolveControlPoints(c, true)
	for i := range p.Nodes {
		p.Nodes[i].Ctrl1, p.Nodes[i].Ctrl2 = c[i].Ctrl1, c[i].Ctrl2
	}
}

// ResolveControlPoints resolves the control points of the open brush
// path. See [ResolveControlPoints].
func (b *Brush) ResolveControlPoints() {
	c := make([]Controls, len(b.Nodes))
	for i, n := range b.Nodes {
		c[i] = Controls{Node: n.Node, Ctrl1: n.Ctrl1, Ctrl2: n.Ctrl2, State: n.State}
	}
	ResolveControlPoints(c, false)
	for i := range b.Nodes {
		b.Nodes[i].Ctrl1, b.Nodes[i].Ctrl2 = c[i].Ctrl1, c[i].Ctrl2
	}
}

// arcPoints appends points on the arc around centre c from angle a1 to a2,
// with the radius changing linearly from r1 to r2. The end points are not
// included. The angles are stepped by rotating a unit vector, so that
// sine and cosine are only evaluated once.
func arcPoints(dst []vec.Vec2, c vec.Vec2, a1, a2, r1, r2 float64, l int) []vec.Vec2 {
	if l < 2 {
		return dst
	}
	da := (a2 - a1) / float64(l)
	dr := (r2 - r1) / float64(l)
	cosd, sind := math.Cos(da), math.Sin(da)
	cosa, sina := math.Cos(a1+da), math.Sin(a1+da)
	r := r1 + dr
	for i := 1; i < l; i++ {
		dst = append(dst, vec.Vec2{X: c.X + r*cosa, Y: c.Y + r*sina})
		cosa, sina = cosa*cosd-sina*sind, sina*cosd+cosa*sind
		r += dr
	}
	return dst
}
