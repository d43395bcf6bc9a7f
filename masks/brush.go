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
	"seehuhn.de/go/darkroom/dynbuf"
)

// NewBrushNode returns a brush node at (x, y) whose control points are
// left to the Catmull-Rom resolver.
func NewBrushNode(x, y, border, hardness, density float64) BrushNode {
	return BrushNode{
		Node:     vec.Vec2{X: x, Y: y},
		Ctrl1:    unset,
		Ctrl2:    unset,
		Border:   [2]float64{border, border},
		Hardness: hardness,
		Density:  density,
		State:    NodeNormal,
	}
}

func (b *Brush) validate(id int) error {
	if len(b.Nodes) < 2 {
		return &darkroom.MalformedShapeError{ID: id, Reason: "brush needs at least two nodes"}
	}
	return nil
}

func (b *Brush) anchor() vec.Vec2 { return b.Nodes[0].Node }

// brushEnd is one end of a brush segment in pixel coordinates.
type brushEnd struct {
	node, ctrl vec.Vec2
	radius     float64
	hardness   float64
	density    float64
}

type brushSeg struct {
	a, b brushEnd
}

func (s *brushSeg) at(t float64) (vec.Vec2, vec.Vec2) {
	return cubicBorder(s.a.node, s.a.ctrl, s.b.ctrl, s.b.node, t, smoothstep(s.a.radius, s.b.radius, t))
}

// cyclic maps n to the sequence 0, 1, ..., nb-1, nb-1, ..., 1, 0, 0, 1, ...
func cyclic(n, nb int) int {
	o := n % (2 * nb)
	p := o % nb
	if o <= p {
		return o
	}
	return o - 2*p - 1
}

// brushBuilder collects the samples of a brush stroke. Every boundary
// sample has a matching feather sample and a (hardness, density) payload.
type brushBuilder struct {
	pts, brd, pay *dynbuf.Buf
	thr           int
	ok            bool
}

func (bb *brushBuilder) last() (vec.Vec2, vec.Vec2) {
	c := vec.Vec2{X: float64(bb.pts.Get(-2)), Y: float64(bb.pts.Get(-1))}
	b := vec.Vec2{X: float64(bb.brd.Get(-2)), Y: float64(bb.brd.Get(-1))}
	return c, b
}

// sync pads the payload up to the number of boundary samples.
func (bb *brushBuilder) sync(h, d float64) {
	for bb.ok && bb.pay.Pos() < bb.pts.Pos() {
		bb.ok = bb.pay.Add2(float32(h), float32(d))
	}
}

func (bb *brushBuilder) arc(c vec.Vec2, a1, a2, r1, r2 float64, l int) {
	for _, q := range arcPoints(nil, c, a1, a2, r1, r2, l) {
		if !bb.ok {
			return
		}
		bb.ok = bb.pts.Add2(float32(c.X), float32(c.Y)) && bb.brd.Add2(float32(q.X), float32(q.Y))
	}
}

// smallGap closes a gap in the feather along the shorter arc.
func (bb *brushBuilder) smallGap(c, bmin, bmax vec.Vec2) {
	a1 := math.Mod(math.Atan2(bmin.Y-c.Y, bmin.X-c.X)+2*math.Pi, 2*math.Pi)
	a2 := math.Mod(math.Atan2(bmax.Y-c.Y, bmax.X-c.X)+2*math.Pi, 2*math.Pi)
	if a1 == a2 {
		return
	}
	r1 := bmin.Sub(c).Length()
	r2 := bmax.Sub(c).Length()
	delta := a2 - a1
	if math.Abs(delta) > math.Pi {
		delta -= math.Copysign(2*math.Pi, delta)
	}
	l := int(math.Abs(delta) * max(r1, r2))
	bb.arc(c, a1, a1+delta, r1, r2, l)
}

// stamp draws a full circle around c through b, to separate parts of the
// stroke with different opacity or hardness.
func (bb *brushBuilder) stamp(c, b vec.Vec2) {
	a1 := math.Atan2(b.Y-c.Y, b.X-c.X)
	rad := b.Sub(c).Length()
	l := int(2 * math.Pi * rad)
	if l < 2 {
		return
	}
	step := 2 * math.Pi / float64(l)
	bb.arc(c, a1, a1+step*float64(l+1), rad, rad, l+1)
}

// capEnd draws a half circle from the last feather sample to the opposite
// side of the stroke.
func (bb *brushBuilder) capEnd() {
	if bb.pts.Pos() < 2 {
		return
	}
	c, b := bb.last()
	opp := vec.Vec2{X: 2*c.X - b.X, Y: 2*c.Y - b.Y}
	bb.ok = bb.ok && arcGap(bb.pts, bb.brd, c, b, opp, true)
}

func (bb *brushBuilder) recurse(s *brushSeg, tmin, tmax float64, cmin, bmin, cmax, bmax vec.Vec2) (vec.Vec2, vec.Vec2, float64, float64) {
	if tmax-tmin < 0.0001 || (near(cmin, cmax, bb.thr) && near(bmin, bmax, bb.thr)) {
		if !bb.ok {
			return cmax, bmax, 0, 0
		}
		bb.ok = bb.pts.Add2(float32(cmax.X), float32(cmax.Y))
		if !isFinite(bmax) {
			bmax = bmin
		} else if !isFinite(bmin) {
			bmin = bmax
		}
		if isFinite(bmin) && isFinite(bmax) &&
			(abs(int(bmax.X)-int(bmin.X)) > 2 || abs(int(bmax.Y)-int(bmin.Y)) > 2) {
			bb.smallGap(cmax, bmin, bmax)
		}
		bb.ok = bb.ok && bb.brd.Add2(float32(bmax.X), float32(bmax.Y))
		h := s.a.hardness + tmax*(s.b.hardness-s.a.hardness)
		d := s.a.density + tmax*(s.b.density-s.a.density)
		bb.sync(h, d)
		return cmax, bmax, h, d
	}
	tx := (tmin + tmax) / 2
	c, b := s.at(tx)
	rc, rb, _, _ := bb.recurse(s, tmin, tx, cmin, bmin, c, b)
	return bb.recurse(s, tx, tmax, rc, rb, cmax, bmax)
}

// outline traces the stroke once forwards along one side and once
// backwards along the other side, so that the feather samples form a
// ring around the centre line. The centre line appears twice in Points.
func (b *Brush) outline(p *Pipe) (*Geometry, error) {
	wd, ht := float64(p.Width), float64(p.Height)
	md := p.minDim()
	nb := len(b.Nodes)

	bb := &brushBuilder{
		pts: dynbuf.New("brush points", 512*nb),
		brd: dynbuf.New("brush border", 512*nb),
		pay: dynbuf.New("brush payload", 512*nb),
		thr: max(p.PixelThreshold, 1),
		ok:  true,
	}

	px := func(v vec.Vec2) vec.Vec2 { return vec.Vec2{X: v.X * wd, Y: v.Y * ht} }
	// end returns node k as the start (out) or end (!out) of a segment in
	// the direction given by cw
	end := func(k int, out bool, cw int) brushEnd {
		n := &b.Nodes[k]
		ctrl := n.Ctrl1
		if out == (cw > 0) {
			ctrl = n.Ctrl2
		}
		r := n.Border[0]
		if out {
			r = n.Border[1]
		}
		return brushEnd{
			node:     px(n.Node),
			ctrl:     px(ctrl),
			radius:   r * md,
			hardness: n.Hardness,
			density:  n.Density,
		}
	}

	cw := 1
	startStamp := false
	for n := 0; n < 2*nb && bb.ok; n++ {
		k := cyclic(n, nb)
		k1 := cyclic(n+1, nb)
		k2 := cyclic(n+2, nb)
		seg := brushSeg{a: end(k, true, cw), b: end(k1, false, cw)}
		next := brushSeg{a: end(k1, true, cw), b: end(k2, false, cw)}
		p1, p2 := seg.a, seg.b

		if math.Abs(p1.hardness-p2.hardness) > 0.05 || math.Abs(p1.density-p2.density) > 0.05 ||
			(startStamp && n == 2*nb-1) {
			if n == 0 {
				startStamp = true
			} else if bb.pts.Pos() >= 2 {
				bb.stamp(bb.last())
				bb.sync(p1.hardness, p1.density)
			}
		}

		if math.Abs(p1.radius-p2.radius) > 0.0001 && n > 0 {
			bb.capEnd()
			bb.sync(p1.hardness, p1.density)
		}

		if k == k1 {
			bb.capEnd()
			bb.sync(p1.hardness, p1.density)
			cw = -cw
			continue
		}

		c0, b0 := seg.at(0)
		c1, b1 := seg.at(1)
		rc, rb, rh, rd := bb.recurse(&seg, 0, 1, c0, b0, c1, b1)
		if !bb.ok {
			break
		}

		bb.ok = bb.pts.Add2(float32(rc.X), float32(rc.Y)) && bb.pay.Add2(float32(rh), float32(rd))
		if !isFinite(rb) {
			if isNaN32(bb.brd.Get(-2)) && bb.brd.Pos() >= 4 {
				bb.brd.Set(-2, bb.brd.Get(-4))
				bb.brd.Set(-1, bb.brd.Get(-3))
			}
			rb = vec.Vec2{X: float64(bb.brd.Get(-2)), Y: float64(bb.brd.Get(-1))}
		}
		bb.ok = bb.ok && bb.brd.Add2(float32(rb.X), float32(rb.Y))

		if nb >= 3 && bb.ok {
			_, bn := next.at(0)
			if !isFinite(bn) {
				_, bn = next.at(0.0001)
			}
			if isFinite(bn) && isFinite(rb) &&
				(math.Abs(bn.X-rb.X) > 1 || math.Abs(bn.Y-rb.Y) > 1) {
				bb.ok = arcGap(bb.pts, bb.brd, rc, rb, bn, cw > 0)
			}
		}
		bb.sync(rh, rd)
	}
	if !bb.ok {
		return nil, &darkroom.AllocationError{Size: 4 * bb.pts.Cap()}
	}

	g := &Geometry{
		Points:  bb.pts.Harvest(),
		Border:  bb.brd.Harvest(),
		Payload: bb.pay.Harvest(),
	}
	darkroom.Logger().Debug("masks: brush outline", "nodes", nb, "points", g.NumPoints())
	return g, nil
}

// brushFalloff draws a ramp from p0 to p1 which stays at density for the
// first hardness fraction and then falls linearly to zero.
func brushFalloff(buf []float32, w, h int, p0, p1 [2]int, hardness, density float32) {
	l := int(math.Sqrt(float64((p1[0]-p0[0])*(p1[0]-p0[0])+(p1[1]-p0[1])*(p1[1]-p0[1])))) + 1
	solid := int(hardness * float32(l))

	lx := float32(p1[0]-p0[0]) / float32(l)
	ly := float32(p1[1]-p0[1]) / float32(l)
	dx, dy := 1, 1
	if lx <= 0 {
		dx = -1
	}
	if ly <= 0 {
		dy = -1
	}

	fx, fy := float32(p0[0]), float32(p0[1])
	op := density
	dop := density / float32(l-solid)
	for i := range l {
		x, y := int(fx), int(fy)
		fx += lx
		fy += ly
		if i > solid {
			op -= dop
		}
		if x < 0 || x >= w || y < 0 || y >= h {
			continue
		}
		k := y*w + x
		buf[k] = max(buf[k], op)
		if x+dx >= 0 && x+dx < w {
			buf[k+dx] = max(buf[k+dx], op)
		}
		if y+dy >= 0 && y+dy < h {
			buf[k+dy*w] = max(buf[k+dy*w], op)
		}
	}
}

func (b *Brush) render(_ context.Context, p *Pipe, roi darkroom.ROI, out []float32, g *Geometry) error {
	width, height := roi.Width, roi.Height
	if err := g.transform(p, DirBackIncl); err != nil {
		return err
	}
	g.toROI(roi.Scale, roi.X, roi.Y)

	bounds, ok := g.Bounds()
	if !ok || bounds.URx < 0 || bounds.URy < 0 || bounds.LLx >= float64(width) || bounds.LLy >= float64(height) {
		return nil
	}

	n := min(len(g.Points), len(g.Border), len(g.Payload)) / 2
	for i := range n {
		if isNaN32(g.Points[2*i]) || isNaN32(g.Border[2*i]) {
			continue
		}
		p0 := [2]int{int(g.Points[2*i]), int(g.Points[2*i+1])}
		p1 := [2]int{int(g.Border[2*i]), int(g.Border[2*i+1])}
		if max(p0[0], p1[0]) < 0 || min(p0[0], p1[0]) >= width ||
			max(p0[1], p1[1]) < 0 || min(p0[1], p1[1]) >= height {
			continue
		}
		brushFalloff(out, width, height, p0, p1, g.Payload[2*i], g.Payload[2*i+1])
	}
	return nil
}
