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

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/darkroom"
	"seehuhn.de/go/darkroom/dynbuf"
	"seehuhn.de/go/darkroom/internal/parallel"
	"seehuhn.de/go/darkroom/raster"
)

// NewPolygonNode returns a node at (x, y) whose control points are left
// to the Catmull-Rom resolver.
func NewPolygonNode(x, y, border float64) PolygonNode {
	return PolygonNode{
		Node:   vec.Vec2{X: x, Y: y},
		Ctrl1:  unset,
		Ctrl2:  unset,
		Border: [2]float64{border, border},
		State:  NodeNormal,
	}
}

// NewCuspNode returns a node at (x, y) with both control points on the
// node, giving a sharp corner.
func NewCuspNode(x, y, border float64) PolygonNode {
	v := vec.Vec2{X: x, Y: y}
	return PolygonNode{
		Node:   v,
		Ctrl1:  v,
		Ctrl2:  v,
		Border: [2]float64{border, border},
		State:  NodeUser,
	}
}

func (pg *Polygon) validate(id int) error {
	if len(pg.Nodes) < 3 {
		return &darkroom.MalformedShapeError{ID: id, Reason: "polygon needs at least three nodes"}
	}
	return nil
}

func (pg *Polygon) anchor() vec.Vec2 { return pg.Nodes[0].Node }

// clockwise reports whether the nodes run clockwise on screen, where y
// points downwards.
func (pg *Polygon) clockwise() bool {
	nb := len(pg.Nodes)
	if nb < 3 {
		return true
	}
	var sum float64
	for k := range nb {
		a, b := pg.Nodes[k].Node, pg.Nodes[(k+1)%nb].Node
		sum += (b.X - a.X) * (b.Y + a.Y)
	}
	return sum < 0
}

// bezierSeg is a cubic segment with a feather radius which changes
// smoothly from r0 at the start to r1 at the end. The sign of the radius
// selects the side of the feather.
type bezierSeg struct {
	p0, p1, p2, p3 vec.Vec2
	r0, r1         float64
}

func (s *bezierSeg) at(t float64) (vec.Vec2, vec.Vec2) {
	return cubicBorder(s.p0, s.p1, s.p2, s.p3, t, smoothstep(s.r0, s.r1, t))
}

// near reports whether two samples fall within thr pixels of each other,
// on the integer grid. Invalid samples count as near.
func near(a, b vec.Vec2, thr int) bool {
	if math.IsNaN(a.X) || math.IsNaN(a.Y) || math.IsNaN(b.X) || math.IsNaN(b.Y) {
		return true
	}
	dx := int(a.X) - int(b.X)
	dy := int(a.Y) - int(b.Y)
	return dx < thr && -dx < thr && dy < thr && -dy < thr
}

// subdivide appends the samples for t in (tmin, tmax] to pts and brd,
// splitting the parameter range until neighbouring samples are closer
// than thr pixels.
func (s *bezierSeg) subdivide(pts, brd *dynbuf.Buf, tmin, tmax float64, cmin, bmin, cmax, bmax vec.Vec2, thr int) bool {
	if tmax-tmin < 0.0001 || (near(cmin, cmax, thr) && near(bmin, bmax, thr)) {
		return pts.Add2(float32(cmax.X), float32(cmax.Y)) && brd.Add2(float32(bmax.X), float32(bmax.Y))
	}
	tx := (tmin + tmax) / 2
	c, b := s.at(tx)
	return s.subdivide(pts, brd, tmin, tx, cmin, bmin, c, b, thr) &&
		s.subdivide(pts, brd, tx, tmax, c, b, cmax, bmax, thr)
}

// arcGap fills the gap in the feather at a sharp corner c with an arc
// from bmin to bmax. The boundary samples stay at the corner.
func arcGap(pts, brd *dynbuf.Buf, c, bmin, bmax vec.Vec2, clockwise bool) bool {
	a1 := math.Atan2(bmin.Y-c.Y, bmin.X-c.X)
	a2 := math.Atan2(bmax.Y-c.Y, bmax.X-c.X)
	if a1 == a2 {
		return true
	}
	if a2 < a1 && clockwise {
		a2 += 2 * math.Pi
	}
	if a2 > a1 && !clockwise {
		a1 += 2 * math.Pi
	}
	r1 := bmin.Sub(c).Length()
	r2 := bmax.Sub(c).Length()
	l := int(math.Abs(a2-a1) * max(r1, r2))
	for _, q := range arcPoints(nil, c, a1, a2, r1, r2, l) {
		if !pts.Add2(float32(c.X), float32(c.Y)) || !brd.Add2(float32(q.X), float32(q.Y)) {
			return false
		}
	}
	return true
}

func isFinite(v vec.Vec2) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// outline generates the boundary and feather samples of the polygon in
// reference image pixels. Segments without valid samples are dropped
// and reported through a *darkroom.GeometryDegenerateError, together with
// the remaining geometry.
func (pg *Polygon) outline(p *Pipe) (*Geometry, error) {
	wd, ht := float64(p.Width), float64(p.Height)
	md := p.minDim()
	nb := len(pg.Nodes)
	thr := max(p.PixelThreshold, 1)

	pts := dynbuf.New("polygon points", 256*nb)
	brd := dynbuf.New("polygon border", 256*nb)

	cw := -1.0
	clockwise := pg.clockwise()
	if clockwise {
		cw = 1
	}
	px := func(v vec.Vec2) vec.Vec2 { return vec.Vec2{X: v.X * wd, Y: v.Y * ht} }
	seg := func(k int) bezierSeg {
		n1, n2 := &pg.Nodes[k%nb], &pg.Nodes[(k+1)%nb]
		return bezierSeg{
			p0: px(n1.Node), p1: px(n1.Ctrl2), p2: px(n2.Ctrl1), p3: px(n2.Node),
			r0: cw * n1.Border[1] * md,
			r1: cw * n2.Border[0] * md,
		}
	}

	var degenerate error
	for k := range nb {
		s := seg(k)
		c0, b0 := s.at(0)
		c1, b1 := s.at(1)
		if !isFinite(c0) || !isFinite(c1) {
			if degenerate == nil {
				degenerate = &darkroom.GeometryDegenerateError{Segment: k}
			}
			continue
		}

		if !s.subdivide(pts, brd, 0, 1, c0, b0, c1, b1, thr) {
			return nil, &darkroom.AllocationError{Size: 4 * brd.Cap()}
		}

		// a cusp at the end of the segment has no tangent
		if isNaN32(brd.Get(-2)) && brd.Pos() >= 4 {
			brd.Set(-2, brd.Get(-4))
			brd.Set(-1, brd.Get(-3))
		}
		rb := vec.Vec2{X: float64(brd.Get(-2)), Y: float64(brd.Get(-1))}

		_, bn := seg(k+1).at(0.00001)
		if isFinite(bn) && isFinite(rb) &&
			(math.Abs(bn.X-rb.X) > 1 || math.Abs(bn.Y-rb.Y) > 1) {
			if !arcGap(pts, brd, c1, rb, bn, clockwise) {
				return nil, &darkroom.AllocationError{Size: 4 * brd.Cap()}
			}
		}
	}

	g := &Geometry{
		Points: pts.Harvest(),
		Border: brd.Harvest(),
	}
	g.Skips = selfIntersections(g.Border, nb)
	darkroom.Logger().Debug("masks: polygon outline",
		"nodes", nb, "points", g.NumPoints(), "loops", len(g.Skips))
	return g, degenerate
}

// fillGaps appends the integer points on the line from (x0, y0) to
// (x, y), in Bresenham order, after the end point itself.
func fillGaps(dst []int, x0, y0, x, y int) []int {
	dst = append(dst[:0], x, y)
	dx, dy := x-x0, y-y0
	adx, ady := abs(dx), abs(dy)
	if adx <= 1 && ady <= 1 {
		return dst
	}
	sx, sy := 1, 1
	if dx < 0 {
		sx = -1
	}
	if dy < 0 {
		sy = -1
	}
	px, py := x0, y0
	if adx > ady {
		err := adx / 2
		for px != x {
			px += sx
			err -= ady
			if err < 0 {
				py += sy
				err += adx
			}
			dst = append(dst, px, py)
		}
	} else {
		err := ady / 2
		for py != y {
			py += sy
			err -= adx
			if err < 0 {
				px += sx
				err += ady
			}
			dst = append(dst, px, py)
		}
	}
	return dst
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// selfIntersections finds the loops of a feather ring which cross back
// over the ring. The ring is rasterised at integer positions; when a
// cell is reached a second time, the samples in between form a loop,
// unless they contain one of the extreme points of the ring. At most
// four loops per node are recorded.
func selfIntersections(border []float32, nbNodes int) []Span {
	n := len(border) / 2
	if nbNodes == 0 || n == 0 {
		return nil
	}

	posextr := [4]int{-1, -1, -1, -1}
	xmin, ymin := float32(math.MaxFloat32), float32(math.MaxFloat32)
	xmax, ymax := -xmin, -ymin
	for i := range n {
		if isNaN32(border[2*i]) || isNaN32(border[2*i+1]) {
			prev := -1
			for j := 1; j < n; j++ {
				q := (i - j + n) % n
				if !isNaN32(border[2*q]) && !isNaN32(border[2*q+1]) {
					prev = q
					break
				}
			}
			if prev < 0 {
				continue
			}
			border[2*i], border[2*i+1] = border[2*prev], border[2*prev+1]
		}
		x, y := border[2*i], border[2*i+1]
		if x < xmin {
			xmin, posextr[0] = x, i
		}
		if x > xmax {
			xmax, posextr[1] = x, i
		}
		if y < ymin {
			ymin, posextr[2] = y, i
		}
		if y > ymax {
			ymax, posextr[3] = y, i
		}
	}
	if posextr[1] < 0 {
		return nil
	}

	gx0 := int(math.Floor(float64(xmin))) - 1
	gx1 := int(math.Ceil(float64(xmax))) + 1
	gy0 := int(math.Floor(float64(ymin))) - 1
	gy1 := int(math.Ceil(float64(ymax))) + 1
	hb, wb := gy1-gy0, gx1-gx0
	if hb < 0 || wb < 0 || hb*wb < 10 {
		return nil
	}

	// cells hold a sample index plus one, zero marks an empty cell
	cells := make([]int32, hb*wb)
	outside := func(v, i int) bool {
		for _, e := range posextr {
			if e >= v && e <= i {
				return false
			}
		}
		return true
	}
	between := func(v, i int) bool {
		for _, e := range posextr {
			if e >= v || e <= i {
				return false
			}
		}
		return true
	}

	maxLoops := 4 * nbNodes
	var pairs [][2]int
	start := posextr[1] - 1
	if start < 0 {
		start = n - 1
	}
	lastx, lasty := int(border[2*start]), int(border[2*start+1])
	var line []int
	for ii := range n {
		i := ii + posextr[1]
		if i >= n {
			i -= n
		}
		if len(pairs) >= maxLoops {
			break
		}

		line = fillGaps(line, lastx, lasty, int(border[2*i]), int(border[2*i+1]))
		for j := len(line)/2 - 1; j >= 0; j-- {
			xx, yy := line[2*j], line[2*j+1]
			idx := (yy-gy0)*wb + (xx - gx0)
			if idx < 0 || idx >= len(cells) {
				return nil
			}
			var v [3]int
			v[0] = int(cells[idx])
			if xx > gx0 {
				v[1] = int(cells[idx-1])
			}
			if yy > gy0 {
				v[2] = int(cells[idx-wb])
			}
			for _, vk := range v {
				if vk == 0 {
					cells[idx] = int32(i + 1)
					continue
				}
				vk--
				switch {
				case (xx == lastx && yy == lasty) || vk == i-1:
					cells[idx] = int32(i + 1)
				case (i > vk && outside(vk, i)) || (i < vk && between(vk, i)):
					if m := len(pairs); m > 0 {
						last := pairs[m-1]
						if (vk-i)*(last[0]-last[1]) > 0 && last[0] >= vk && last[1] <= i {
							pairs[m-1] = [2]int{vk, i}
							continue
						}
					}
					pairs = append(pairs, [2]int{vk, i})
				}
			}
			lastx, lasty = xx, yy
		}
	}

	var skips []Span
	for _, pr := range pairs {
		v, w := pr[0], pr[1]
		if v <= w {
			skips = append(skips, Span{From: v, To: w})
			continue
		}
		skips = append(skips, Span{From: v, To: n})
		if w > 0 {
			skips = append(skips, Span{From: 0, To: w})
		}
	}
	return skips
}

// cropToROI moves all samples outside [xmin, xmax]×[ymin, ymax] onto the
// rectangle, interpolating along the edge between the last sample before
// and the first sample after each excursion. It returns false if no
// sample lies clearly inside the rectangle, which means that the
// rectangle lies completely inside or completely outside the polygon.
func cropToROI(xy []float32, xmin, xmax, ymin, ymax float32) bool {
	n := len(xy) / 2
	start := -1
	for k := range n {
		x, y := xy[2*k], xy[2*k+1]
		if x >= xmin+1 && y >= ymin+1 && x <= xmax-1 && y <= ymax-1 {
			start = k
			break
		}
	}
	if start < 0 {
		return false
	}

	// axis 0 crops x, axis 1 crops y
	crop := func(axis int, outside func(v float32) bool, limit float32) {
		l, r := -1, -1
		other := 1 - axis
		for k := range n {
			kk := (k + start) % n
			v := xy[2*kk+axis]
			if l < 0 && outside(v) {
				l = k
			}
			if l >= 0 && !outside(v) {
				r = k - 1
			}
			if l < 0 || r < 0 {
				continue
			}
			count := r - l + 1
			ll := (l - 1 + start) % n
			rr := (r + 1 + start) % n
			var delta float32
			if count > 1 {
				delta = (xy[2*rr+other] - xy[2*ll+other]) / float32(count-1)
			}
			s := xy[2*ll+other]
			for m := range count {
				nn := (m + l + start) % n
				xy[2*nn+axis] = limit
				xy[2*nn+other] = s + float32(m)*delta
			}
			l, r = -1, -1
		}
	}
	crop(0, func(v float32) bool { return v < xmin }, xmin)
	crop(0, func(v float32) bool { return v > xmax }, xmax)
	crop(1, func(v float32) bool { return v < ymin }, ymin)
	crop(1, func(v float32) bool { return v > ymax }, ymax)
	return true
}

// falloff draws a linear ramp from 1 at p0 to 0 at p1, keeping the
// maximum with the existing values. Neighbouring pixels are painted too,
// to avoid gaps from integer rounding.
func falloff(buf []float32, w, h int, p0, p1 [2]int) {
	lx := float32(p1[0] - p0[0])
	ly := float32(p1[1] - p0[1])
	l := int(math.Sqrt(float64(lx*lx+ly*ly))) + 1
	dx, dy := 1, 1
	if lx < 0 {
		dx = -1
	}
	if ly < 0 {
		dy = -1
	}
	put := func(x, y int, v float32) {
		if x >= 0 && x < w && y >= 0 && y < h {
			k := y*w + x
			buf[k] = max(buf[k], v)
		}
	}
	for i := range l {
		x := int(float32(i)*lx/float32(l)) + p0[0]
		y := int(float32(i)*ly/float32(l)) + p0[1]
		op := 1 - float32(i)/float32(l)
		put(x, y, op)
		put(x+dx, y, op)
		put(x, y+dy, op)
	}
}

func (pg *Polygon) render(ctx context.Context, p *Pipe, roi darkroom.ROI, out []float32, g *Geometry) error {
	width, height := roi.Width, roi.Height
	if err := g.transform(p, DirBackIncl); err != nil {
		return err
	}
	g.toROI(roi.Scale, roi.X, roi.Y)

	n := g.NumPoints()
	if n <= 2 {
		return nil
	}
	pts := g.Points

	inROI := func(x, y float32) bool {
		xx, yy := int(x), int(y)
		return xx > 1 && yy > 1 && xx < width-2 && yy < height-2
	}

	polygonIn := false
	for i := range n {
		if inROI(pts[2*i], pts[2*i+1]) {
			polygonIn = true
			break
		}
	}
	encircles := false
	if !polygonIn {
		// count crossings of a ray from the ROI centre
		crossings := 0
		last := math.MinInt
		cx, cy := width/2, height/2
		for i := range n {
			yy := int(pts[2*i+1])
			if yy != last && yy == cy && pts[2*i] > float32(cx) {
				crossings++
			}
			last = yy
		}
		if crossings%2 == 1 {
			polygonIn = true
			encircles = true
		}
	}
	featherIn := false
	for _, i := range g.borderWalk() {
		if inROI(g.Border[2*i], g.Border[2*i+1]) {
			featherIn = true
			break
		}
	}
	if !polygonIn && !featherIn {
		return nil
	}

	if polygonIn {
		cpts := make([]float32, len(pts))
		copy(cpts, pts)
		// Scanlines are half-open, so the polygon may extend to height
		// without touching a row outside the ROI.
		if !cropToROI(cpts, 0, float32(width-1), 0, float32(height)) {
			encircles = true
		}
		switch {
		case encircles:
			for k := range out[:width*height] {
				out[k] = 1
			}
		case p.Fill == FillCoverage:
			fillCoverage(out, width, height, pg.coveragePath(p, roi), pts)
		default:
			bounds, _ := g.Bounds()
			if err := fillEdgeFlag(ctx, out, width, height, cpts, bounds); err != nil {
				return err
			}
		}
	}

	if encircles {
		return nil
	}
	last0 := [2]int{-100, -100}
	last1 := [2]int{-100, -100}
	for i := range n {
		p0 := [2]int{
			int(math.Floor(float64(pts[2*i]) + 0.5)),
			int(math.Ceil(float64(pts[2*i+1]))),
		}
		j := g.borderIndex(i)
		bx, by := g.Border[2*j], g.Border[2*j+1]
		if isNaN32(bx) || isNaN32(by) {
			continue
		}
		p1 := [2]int{int(bx), int(by)}
		if p0 == last0 && p1 == last1 {
			continue
		}
		last0, last1 = p0, p1
		falloff(out, width, height, p0, p1)
	}
	return nil
}

// fillEdgeFlag fills the interior of the closed polygon xy. Every edge
// toggles the pixel where it crosses a scanline; the toggles are then
// propagated left to right.
func fillEdgeFlag(ctx context.Context, out []float32, width, height int, xy []float32, bounds rect.Rect) error {
	n := len(xy) / 2
	xlast, ylast := xy[2*n-2], xy[2*n-1]
	for i := range n {
		xs, ys := xlast, ylast
		xe, ye := xy[2*i], xy[2*i+1]
		xlast, ylast = xe, ye
		if ys > ye {
			xs, xe = xe, xs
			ys, ye = ye, ys
		}
		m := (xs - xe) / (ys - ye)
		for yy := int(math.Ceil(float64(ys))); float32(yy) < ye; yy++ {
			xcross := xs + m*(float32(yy)-ys)
			xx := int(math.Floor(float64(xcross)))
			if float32(xx)+0.5 <= xcross {
				xx++
			}
			if xx < 0 || xx >= width || yy < 0 || yy >= height {
				continue
			}
			k := yy*width + xx
			out[k] = 1 - out[k]
		}
	}

	x0 := int(max(bounds.LLx, 0))
	x1 := int(min(bounds.URx, float64(width-1)))
	y0 := int(max(bounds.LLy, 0))
	y1 := int(min(bounds.URy, float64(height-1)))
	if y1 < y0 || x1 < x0 {
		return nil
	}
	return parallel.Rows(ctx, y1-y0+1, func(r0, r1 int) error {
		for yy := y0 + r0; yy < y0+r1; yy++ {
			row := out[yy*width : (yy+1)*width]
			state := false
			for xx := x0; xx <= x1; xx++ {
				if row[xx] > 0.5 {
					state = !state
				}
				if state {
					row[xx] = 1
				}
			}
		}
		return nil
	})
}

// coveragePath returns the boundary as a chain of cubic segments in ROI
// pixels. It returns nil if distortion stages apply or a node is not
// finite; the sampled outline is used then.
func (pg *Polygon) coveragePath(p *Pipe, roi darkroom.ROI) *path.Data {
	if len(p.selected(DirBackIncl)) > 0 {
		return nil
	}
	sx, sy := float64(p.Width)*roi.Scale, float64(p.Height)*roi.Scale
	px := func(v vec.Vec2) vec.Vec2 {
		return vec.Vec2{X: v.X*sx - float64(roi.X), Y: v.Y*sy - float64(roi.Y)}
	}
	nb := len(pg.Nodes)
	d := (&path.Data{}).MoveTo(px(pg.Nodes[0].Node))
	for k := range nb {
		n1, n2 := &pg.Nodes[k], &pg.Nodes[(k+1)%nb]
		c1, c2, end := px(n1.Ctrl2), px(n2.Ctrl1), px(n2.Node)
		if !isFinite(c1) || !isFinite(c2) || !isFinite(end) {
			return nil
		}
		d = d.CubeTo(c1, c2, end)
	}
	return d.Close()
}

// fillCoverage fills the outline d, or the polygon through the samples
// xy if d is nil, with anti-aliased coverage values. Pixel centres sit on
// integer coordinates.
func fillCoverage(out []float32, width, height int, d *path.Data, xy []float32) {
	r := raster.NewRasteriser(rect.Rect{URx: float64(width), URy: float64(height)})
	r.CTM = matrix.Translate(0.5, 0.5)
	c := &raster.Canvas{Pix: out[:width*height], Width: width, Height: height}
	if d != nil {
		r.Fill(d, raster.NonZero, c.Max(1))
	} else {
		r.FillPolygon(xy, raster.NonZero, c.Max(1))
	}
}
