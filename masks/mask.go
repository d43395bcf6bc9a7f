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
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/darkroom"
)

// shapeImpl is implemented by all shapes except groups.
type shapeImpl interface {
	Shape

	validate(id int) error

	// anchor returns the reference point of the shape which is moved onto
	// the clone source.
	anchor() vec.Vec2

	// outline generates the geometry in reference image pixels.
	outline(p *Pipe) (*Geometry, error)
}

var (
	_ shapeImpl = (*Circle)(nil)
	_ shapeImpl = (*Ellipse)(nil)
	_ shapeImpl = (*Gradient)(nil)
	_ shapeImpl = (*Polygon)(nil)
	_ shapeImpl = (*Brush)(nil)
)

func impl(f *Form) (shapeImpl, error) {
	if f == nil {
		return nil, &darkroom.MalformedShapeError{Reason: "missing form"}
	}
	s, ok := f.Shape.(shapeImpl)
	if !ok {
		return nil, &darkroom.MalformedShapeError{ID: f.ID, Reason: fmt.Sprintf("no outline for %s", f.Kind())}
	}
	if err := s.validate(f.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// outline generates the geometry of f and attributes geometry warnings
// to the form.
func outline(f *Form, s shapeImpl, p *Pipe) (*Geometry, error) {
	g, err := s.outline(p)
	var de *darkroom.GeometryDegenerateError
	if errors.As(err, &de) {
		de.ID = f.ID
	}
	return g, err
}

// Mask renders the opacity of f on the region roi into out, which must
// hold at least roi.Width·roi.Height values. Pixels outside the feathered
// shape are set to zero.
//
// If some segments of a shape had to be dropped, or some members of a
// group could not be rendered, the output is still complete and the
// problems are reported in the returned error.
func Mask(ctx context.Context, f *Form, p *Pipe, roi darkroom.ROI, out []float32) error {
	n := roi.Size()
	if len(out) < n {
		return fmt.Errorf("mask output: need %d values, got %d", n, len(out))
	}
	clear(out[:n])
	if roi.Empty() {
		return nil
	}
	if !(roi.Scale > 0) {
		return fmt.Errorf("mask output: invalid scale %g", roi.Scale)
	}
	return render(ctx, f, p, roi, out[:n])
}

func render(ctx context.Context, f *Form, p *Pipe, roi darkroom.ROI, out []float32) error {
	if f != nil && f.Kind() == KindGroup {
		return renderGroup(ctx, f, p, roi, out)
	}
	s, err := impl(f)
	if err != nil {
		return err
	}

	switch s := s.(type) {
	case *Circle:
		return s.render(ctx, p, roi, out)
	case *Ellipse:
		return s.render(ctx, p, roi, out)
	case *Gradient:
		return s.render(ctx, p, roi, out)
	case *Polygon:
		g, err := outline(f, s, p)
		if g == nil {
			return err
		}
		if rerr := s.render(ctx, p, roi, out, g); rerr != nil {
			return rerr
		}
		return err
	case *Brush:
		g, err := outline(f, s, p)
		if g == nil {
			return err
		}
		if rerr := s.render(ctx, p, roi, out, g); rerr != nil {
			return rerr
		}
		return err
	}
	return &darkroom.MalformedShapeError{ID: f.ID, Reason: "unknown shape"}
}

// PointsBorder returns the outline of f in pixel coordinates, distorted
// by the stages of p selected by dir. If source is set, the outline is
// moved to the clone source of the form.
//
// A *darkroom.GeometryDegenerateError is returned together with a usable
// geometry if some segments had to be dropped.
func (f *Form) PointsBorder(p *Pipe, dir Direction, source bool) (*Geometry, error) {
	s, err := impl(f)
	if err != nil {
		return nil, err
	}
	g, warn := outline(f, s, p)
	if g == nil {
		return nil, warn
	}

	if !source {
		if err := g.transform(p, dir); err != nil {
			return nil, err
		}
		return g, warn
	}

	a := s.anchor()
	ref := []float32{
		float32(a.X * float64(p.Width)), float32(a.Y * float64(p.Height)),
		float32(f.Source.X * float64(p.Width)), float32(f.Source.Y * float64(p.Height)),
	}
	if dir == DirAll {
		// Move the target outline to the source in the input space of the
		// module, then apply the remaining stages.
		if err := g.transform(p, DirBackExcl); err != nil {
			return nil, err
		}
		if err := p.Transform(DirBackExcl, ref); err != nil {
			return nil, err
		}
		g.shift(ref[2]-ref[0], ref[3]-ref[1])
		if err := g.transform(p, DirForwIncl); err != nil {
			return nil, err
		}
		return g, warn
	}
	g.shift(ref[2]-ref[0], ref[3]-ref[1])
	if err := g.transform(p, dir); err != nil {
		return nil, err
	}
	return g, warn
}

// Area returns the bounding box of f in the input space of the masking
// module, with a margin of two pixels. For groups, this is the union of
// the areas of all members.
func (f *Form) Area(p *Pipe) (Box, error) {
	return f.area(p, false)
}

// SourceArea is like Area, but for the clone source of f.
func (f *Form) SourceArea(p *Pipe) (Box, error) {
	return f.area(p, true)
}

func (f *Form) area(p *Pipe, source bool) (Box, error) {
	if f != nil && f.Kind() == KindGroup {
		if p.Forms == nil {
			return Box{}, &darkroom.MalformedShapeError{ID: f.ID, Reason: "no registry for group members"}
		}
		var res Box
		var errs []error
		for _, e := range p.Forms.Ungroup(f) {
			b, err := p.Forms.Get(e.FormID).area(p, source)
			if err != nil {
				errs = append(errs, err)
				if errors.Is(err, darkroom.ErrMalformedShape) {
					continue
				}
			}
			res = res.union(b)
		}
		return res, errors.Join(errs...)
	}

	g, err := f.PointsBorder(p, DirBackIncl, source)
	if g == nil {
		return Box{}, err
	}
	return boxOf(g), err
}

func (b Box) empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

func (b Box) union(c Box) Box {
	if b.empty() {
		return c
	}
	if c.empty() {
		return b
	}
	x0, y0 := min(b.X, c.X), min(b.Y, c.Y)
	x1 := max(b.X+b.Width, c.X+c.Width)
	y1 := max(b.Y+b.Height, c.Y+c.Height)
	return Box{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Distance classifies the position (x, y), given in pixels of the final
// image, relative to f. tolerance is the distance in pixels within which
// the position counts as being on the outline.
func (f *Form) Distance(p *Pipe, x, y, tolerance float64) (Hit, error) {
	if f != nil && f.Kind() == KindGroup {
		return f.groupDistance(p, x, y, tolerance)
	}
	s, err := impl(f)
	if err != nil {
		return Hit{Dist2: math.Inf(1)}, err
	}

	var h Hit
	if grad, ok := s.(*Gradient); ok {
		pt := []float32{float32(x), float32(y)}
		if err := p.Backtransform(DirAll, pt); err != nil {
			return Hit{Dist2: math.Inf(1)}, err
		}
		h = grad.hit(p, float64(pt[0]), float64(pt[1]), tolerance)
	} else {
		g, err := f.PointsBorder(p, DirAll, false)
		if g == nil {
			return Hit{Dist2: math.Inf(1)}, err
		}
		h.Dist2 = minDist2(x, y, g.Points)
		h.NearSegment = h.Dist2 < tolerance*tolerance
		in, near := pointInRingNear(x, y, g.Border, g.borderWalk(), tolerance)
		h.Inside = in || near
		h.InsideBorder = h.Inside && !pointInRing(x, y, g.Points, allIndices(g.NumPoints()))
	}

	if f.Clone {
		sg, _ := f.PointsBorder(p, DirAll, true)
		if sg != nil && !sg.Open {
			walk := sg.borderWalk()
			if len(walk) < 3 {
				walk = allIndices(sg.NumPoints())
				h.InsideSource = pointInRing(x, y, sg.Points, walk)
			} else {
				h.InsideSource = pointInRing(x, y, sg.Border, walk)
			}
		}
	}
	return h, nil
}

// groupDistance returns the hit of the first member containing the
// position, or otherwise the hit of the closest member.
func (f *Form) groupDistance(p *Pipe, x, y, tolerance float64) (Hit, error) {
	best := Hit{Dist2: math.Inf(1)}
	if p.Forms == nil {
		return best, &darkroom.MalformedShapeError{ID: f.ID, Reason: "no registry for group members"}
	}
	var errs []error
	for _, e := range p.Forms.Ungroup(f) {
		h, err := p.Forms.Get(e.FormID).Distance(p, x, y, tolerance)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if h.Inside || h.InsideSource {
			return h, nil
		}
		if h.Dist2 < best.Dist2 {
			best = h
		}
	}
	return best, errors.Join(errs...)
}
