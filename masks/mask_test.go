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
	"math"
	"slices"
	"testing"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/darkroom"
)

func render100(t *testing.T, p *Pipe, f *Form) []float32 {
	t.Helper()
	roi := darkroom.Full(p.Width, p.Height)
	out := make([]float32, roi.Size())
	if err := Mask(context.Background(), f, p, roi, out); err != nil {
		t.Fatal(err)
	}
	return out
}

func sum(buf []float32) float64 {
	var s float64
	for _, v := range buf {
		s += float64(v)
	}
	return s
}

func square(x0, y0, x1, y1, border float64) *Polygon {
	return &Polygon{Nodes: []PolygonNode{
		NewCuspNode(x0, y0, border),
		NewCuspNode(x1, y0, border),
		NewCuspNode(x1, y1, border),
		NewCuspNode(x0, y1, border),
	}}
}

func TestCircleArea(t *testing.T) {
	p := NewPipe(100, 100)
	f := p.Forms.Create("circle", &Circle{Center: vec.Vec2{X: 0.5, Y: 0.5}, Radius: 0.1})
	out := render100(t, p, f)

	want := math.Pi * 10 * 10
	got := sum(out)
	if math.Abs(got-want) > 0.02*want {
		t.Errorf("mask area %.1f, want %.1f±2%%", got, want)
	}
	if out[50*100+50] != 1 {
		t.Errorf("centre value %g, want 1", out[50*100+50])
	}
	if out[50*100+65] != 0 {
		t.Errorf("value outside %g, want 0", out[50*100+65])
	}
}

func TestCircleMonotone(t *testing.T) {
	p := NewPipe(200, 200)
	f := p.Forms.Create("circle", &Circle{Center: vec.Vec2{X: 0.5, Y: 0.5}, Radius: 0.1, Border: 0.2})
	out := render100(t, p, f)

	const c = 100
	rays := []struct{ dx, dy int }{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for _, r := range rays {
		last := float32(math.Inf(1))
		for k := 0; k < c; k++ {
			x, y := c+k*r.dx, c+k*r.dy
			v := out[y*200+x]
			if v > last {
				t.Fatalf("ray (%d,%d): value increases at distance %d: %g > %g", r.dx, r.dy, k, v, last)
			}
			last = v
		}
	}
	if out[c*200+c] != 1 {
		t.Errorf("centre value %g, want 1", out[c*200+c])
	}
}

func TestGradientScenario(t *testing.T) {
	p := NewPipe(100, 100)
	f := p.Forms.Create("gradient", &Gradient{
		Anchor:      vec.Vec2{X: 0.5, Y: 0.5},
		Compression: 0.1,
		State:       GradientLinear,
	})
	out := render100(t, p, f)

	for x := 0; x < 100; x += 7 {
		tests := []struct {
			y    int
			want float32
		}{{50, 0.5}, {40, 0}, {60, 1}, {10, 0}, {90, 1}}
		for _, tc := range tests {
			got := out[tc.y*100+x]
			if math.Abs(float64(got-tc.want)) > 1e-5 {
				t.Errorf("(%d,%d): got %g, want %g", x, tc.y, got, tc.want)
			}
		}
	}
}

func TestGradientSteepnessIgnored(t *testing.T) {
	p := NewPipe(100, 100)
	g := &Gradient{Anchor: vec.Vec2{X: 0.4, Y: 0.5}, Rotation: 30, Compression: 0.1}
	a := render100(t, p, p.Forms.Create("plain", g))
	steep := *g
	steep.Steepness = 3
	b := render100(t, p, p.Forms.Create("steep", &steep))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pixel (%d,%d): %g != %g", i%100, i/100, a[i], b[i])
		}
	}
}

func TestGradientSigmoidal(t *testing.T) {
	g := &Gradient{Compression: 0.1, State: GradientSigmoidal}
	if v := g.value(0); v != 0.5 {
		t.Errorf("value at line %g, want 0.5", v)
	}
	if v := g.value(0.5); v != 1 {
		t.Errorf("saturated value %g, want 1", v)
	}
	if v := g.value(-0.5); v != 0 {
		t.Errorf("saturated value %g, want 0", v)
	}
	if a, b := g.value(0.05), g.value(-0.05); math.Abs(float64(a+b-1)) > 1e-6 {
		t.Errorf("profile not symmetric: %g + %g", a, b)
	}
}

func TestEllipse(t *testing.T) {
	p := NewPipe(200, 100)
	f := p.Forms.Create("ellipse", &Ellipse{
		Center: vec.Vec2{X: 0.5, Y: 0.5},
		Radius: [2]float64{0.3, 0.1},
		Border: 0.05,
	})
	out := render100(t, p, f)

	at := func(x, y int) float32 { return out[y*200+x] }
	if at(100, 50) != 1 {
		t.Errorf("centre %g, want 1", at(100, 50))
	}
	// the long axis is horizontal: 30 px, the short one 10 px
	if at(125, 50) != 1 {
		t.Errorf("inside long axis %g, want 1", at(125, 50))
	}
	if at(100, 65) != 0 {
		t.Errorf("beyond short axis %g, want 0", at(100, 65))
	}
	if v := at(132, 50); v <= 0 || v >= 1 {
		t.Errorf("feather value %g, want in (0, 1)", v)
	}
}

func TestUnionScenario(t *testing.T) {
	p := NewPipe(100, 100)
	a := p.Forms.Create("a", &Circle{Center: vec.Vec2{X: 0.25, Y: 0.5}, Radius: 0.1})
	b := p.Forms.Create("b", &Circle{Center: vec.Vec2{X: 0.75, Y: 0.5}, Radius: 0.1})
	grp := p.Forms.Create("group", &Group{})
	for _, f := range []*Form{a, b} {
		if _, err := p.Forms.Append(grp, f); err != nil {
			t.Fatal(err)
		}
	}
	out := render100(t, p, grp)
	if v := out[50*100+50]; v != 0 {
		t.Errorf("between circles: %g, want 0", v)
	}
	if v := out[50*100+25]; v != 1 {
		t.Errorf("first centre: %g, want 1", v)
	}
	if v := out[50*100+75]; v != 1 {
		t.Errorf("second centre: %g, want 1", v)
	}
}

func TestGroupAlgebra(t *testing.T) {
	p := NewPipe(64, 64)
	a := p.Forms.Create("a", &Circle{Center: vec.Vec2{X: 0.4, Y: 0.5}, Radius: 0.2, Border: 0.1})
	b := p.Forms.Create("b", &Circle{Center: vec.Vec2{X: 0.6, Y: 0.5}, Radius: 0.2, Border: 0.1})
	unit := p.Forms.Create("unit", square(0, 0, 1, 1, 0))

	group := func(state GroupState, forms ...*Form) *Form {
		grp := p.Forms.Create("group", &Group{})
		for i, f := range forms {
			e, err := p.Forms.Append(grp, f)
			if err != nil {
				t.Fatal(err)
			}
			if i > 0 {
				e.State = StateUse | StateShow | state
			}
		}
		return grp
	}

	ma := render100(t, p, a)
	if got := render100(t, p, unit); slices.ContainsFunc(got, func(v float32) bool { return v != 1 }) {
		t.Fatal("unit mask is not all ones")
	}

	t.Run("union idempotent", func(t *testing.T) {
		got := render100(t, p, group(StateUnion, a, a))
		if !slices.Equal(got, ma) {
			t.Error("union(a, a) != a")
		}
	})
	t.Run("intersection identity", func(t *testing.T) {
		got := render100(t, p, group(StateIntersection, a, unit))
		if !slices.Equal(got, ma) {
			t.Error("intersection(a, 1) != a")
		}
	})
	t.Run("exclusion symmetric", func(t *testing.T) {
		ab := render100(t, p, group(StateExclusion, a, b))
		ba := render100(t, p, group(StateExclusion, b, a))
		if !slices.Equal(ab, ba) {
			t.Error("a xor b != b xor a")
		}
	})
	t.Run("difference", func(t *testing.T) {
		got := render100(t, p, group(StateDifference, a, unit))
		if sum(got) != 0 {
			t.Error("a minus 1 is not empty")
		}
	})
}

func TestGroupOpacityInverse(t *testing.T) {
	p := NewPipe(50, 50)
	c := p.Forms.Create("c", &Circle{Center: vec.Vec2{X: 0.5, Y: 0.5}, Radius: 0.2})
	grp := p.Forms.Create("group", &Group{})
	e, err := p.Forms.Append(grp, c)
	if err != nil {
		t.Fatal(err)
	}
	e.Opacity = 0.5
	e.State |= StateInverse

	out := render100(t, p, grp)
	if v := out[25*50+25]; v != 0 {
		t.Errorf("inverted centre %g, want 0", v)
	}
	if v := out[0]; v != 0.5 {
		t.Errorf("inverted corner %g, want 0.5", v)
	}
}

func TestGroupSkipsMalformed(t *testing.T) {
	p := NewPipe(50, 50)
	bad := p.Forms.Create("bad", &Polygon{Nodes: []PolygonNode{
		NewCuspNode(0.1, 0.1, 0), NewCuspNode(0.9, 0.9, 0),
	}})
	good := p.Forms.Create("good", &Circle{Center: vec.Vec2{X: 0.5, Y: 0.5}, Radius: 0.2})
	grp := p.Forms.Create("group", &Group{})
	for _, f := range []*Form{bad, good} {
		if _, err := p.Forms.Append(grp, f); err != nil {
			t.Fatal(err)
		}
	}

	roi := darkroom.Full(50, 50)
	out := make([]float32, roi.Size())
	err := Mask(context.Background(), grp, p, roi, out)
	if !errors.Is(err, darkroom.ErrMalformedShape) {
		t.Fatalf("got error %v, want malformed shape", err)
	}
	var me *darkroom.MalformedShapeError
	if !errors.As(err, &me) || me.ID != bad.ID {
		t.Errorf("error does not name form %d: %v", bad.ID, err)
	}
	if out[25*50+25] != 1 {
		t.Error("valid member was not rendered")
	}
}

func TestMalformed(t *testing.T) {
	p := NewPipe(10, 10)
	shapes := []Shape{
		&Polygon{Nodes: []PolygonNode{NewCuspNode(0, 0, 0)}},
		&Brush{},
		&Gradient{Compression: 0},
		&Circle{Radius: -1},
		&Ellipse{Radius: [2]float64{0.1, 0}},
	}
	for _, s := range shapes {
		f := p.Forms.Create("bad", s)
		out := make([]float32, 100)
		err := Mask(context.Background(), f, p, darkroom.Full(10, 10), out)
		if !errors.Is(err, darkroom.ErrMalformedShape) {
			t.Errorf("%s: got %v, want malformed shape", s.Kind(), err)
		}
	}
}

func TestMaskBufferSize(t *testing.T) {
	p := NewPipe(10, 10)
	f := p.Forms.Create("c", &Circle{Center: vec.Vec2{X: 0.5, Y: 0.5}, Radius: 0.1})
	if err := Mask(context.Background(), f, p, darkroom.Full(10, 10), make([]float32, 50)); err == nil {
		t.Error("short buffer accepted")
	}
}

func TestPolygonEncirclesROI(t *testing.T) {
	p := NewPipe(256, 256)
	f := p.Forms.Create("square", square(0, 0, 1, 1, 0))
	out := render100(t, p, f)
	for i, v := range out {
		if v != 1 {
			t.Fatalf("pixel (%d,%d) = %g, want 1", i%256, i/256, v)
		}
	}
}

func TestPolygonSquare(t *testing.T) {
	for _, mode := range []FillMode{FillEdgeFlag, FillCoverage} {
		p := NewPipe(256, 256)
		p.Fill = mode
		f := p.Forms.Create("square", square(0.25, 0.25, 0.75, 0.75, 0))
		out := render100(t, p, f)

		for y := range 256 {
			for x := range 256 {
				v := out[y*256+x]
				switch {
				case x >= 66 && x <= 190 && y >= 66 && y <= 190:
					if v != 1 {
						t.Fatalf("mode %d: inside (%d,%d) = %g", mode, x, y, v)
					}
				case x < 62 || x > 196 || y < 62 || y > 196:
					if v != 0 {
						t.Fatalf("mode %d: outside (%d,%d) = %g", mode, x, y, v)
					}
				default:
					if v < 0 || v > 1 {
						t.Fatalf("mode %d: edge (%d,%d) = %g", mode, x, y, v)
					}
				}
			}
		}
	}
}

func TestPolygonCoveragePath(t *testing.T) {
	p := NewPipe(256, 256)
	p.Fill = FillCoverage
	pg := square(0.25, 0.25, 0.75, 0.625, 0)
	roi := darkroom.Full(256, 256)

	countCubes := func(d *path.Data) int {
		n := 0
		for _, cmd := range d.Cmds {
			if cmd == path.CmdCubeTo {
				n++
			}
		}
		return n
	}
	d := pg.coveragePath(p, roi)
	if d == nil {
		t.Fatal("no curve path without distortion")
	}
	if n := countCubes(d); n != 4 {
		t.Errorf("undistorted path has %d cubic segments, want 4", n)
	}
	want := 128.0 * 96.0
	if got := sum(render100(t, p, p.Forms.Create("square", pg))); math.Abs(got-want) > 0.03*want {
		t.Errorf("covered area %.1f, want %.1f", got, want)
	}

	p.AddStage(&AffineStage{M: [6]float64{1, 0, 0, 1, 10, 0}})
	if pg.coveragePath(p, roi) != nil {
		t.Error("curve path used despite distortion")
	}
	out := render100(t, p, p.Forms.Create("shifted", pg))
	if got := sum(out); math.Abs(got-want) > 0.03*want {
		t.Errorf("distorted area %.1f, want %.1f", got, want)
	}
	if out[100*256+68] != 0 || out[100*256+190] != 1 {
		t.Errorf("shifted square not moved: %g %g", out[100*256+68], out[100*256+190])
	}
}

func TestPolygonReversed(t *testing.T) {
	p := NewPipe(256, 256)
	fwd := square(0.25, 0.25, 0.75, 0.625, 0.02)
	rev := &Polygon{Nodes: slices.Clone(fwd.Nodes)}
	slices.Reverse(rev.Nodes)

	a := render100(t, p, p.Forms.Create("fwd", fwd))
	b := render100(t, p, p.Forms.Create("rev", rev))

	var diff float64
	for i := range a {
		diff += math.Abs(float64(a[i] - b[i]))
	}
	if area := sum(a); diff > 0.005*area {
		t.Errorf("masks differ by %.1f (area %.1f)", diff, area)
	}
	// the interior away from the corners must agree exactly
	for y := 90; y < 150; y++ {
		for x := 90; x < 170; x++ {
			if a[y*256+x] != b[y*256+x] {
				t.Fatalf("interior pixel (%d,%d): %g != %g", x, y, a[y*256+x], b[y*256+x])
			}
		}
	}
}

func TestPolygonFeather(t *testing.T) {
	p := NewPipe(200, 200)
	f := p.Forms.Create("square", square(0.25, 0.25, 0.75, 0.75, 0.05))
	out := render100(t, p, f)

	// feather of 10 px to the outside of the left edge
	prev := float32(1)
	for x := 50; x >= 38; x-- {
		v := out[100*200+x]
		if v > prev {
			t.Errorf("feather increases outwards at x=%d", x)
		}
		prev = v
	}
	if v := out[100*200+45]; v <= 0 || v >= 1 {
		t.Errorf("feather value %g, want in (0, 1)", v)
	}
	if v := out[100*200+30]; v != 0 {
		t.Errorf("beyond feather %g, want 0", v)
	}
}

func TestPolygonSelfIntersecting(t *testing.T) {
	// a deep notch with a wide feather makes the feather ring cross
	// itself inside the notch
	p := NewPipe(200, 200)
	pg := &Polygon{Nodes: []PolygonNode{
		NewCuspNode(0.2, 0.2, 0.08),
		NewCuspNode(0.5, 0.2, 0.08),
		NewCuspNode(0.52, 0.7, 0.08),
		NewCuspNode(0.54, 0.2, 0.08),
		NewCuspNode(0.8, 0.2, 0.08),
		NewCuspNode(0.8, 0.8, 0.08),
		NewCuspNode(0.2, 0.8, 0.08),
	}}
	f := p.Forms.Create("notch", pg)
	out := render100(t, p, f)
	for i, v := range out {
		if !(v >= 0 && v <= 1) {
			t.Fatalf("pixel (%d,%d) = %g", i%200, i/200, v)
		}
	}
	if v := out[150*200+100]; v != 1 {
		t.Errorf("interior below the notch %g, want 1", v)
	}
}

func TestSelfIntersections(t *testing.T) {
	// a square ring whose top edge makes a small loop at x = 12..15
	var ring []float32
	add := func(x, y float32) { ring = append(ring, x, y) }
	for x := float32(0); x <= 15; x++ {
		add(x, 0)
	}
	add(15, 5)
	add(12, 5)
	for x := float32(12); x <= 30; x++ {
		add(x, 0)
	}
	add(30, 30)
	add(0, 30)

	spans := selfIntersections(slices.Clone(ring), 4)
	if len(spans) == 0 {
		t.Fatal("no loop found")
	}
	if s := spans[0]; s.From > 16 || s.To < 17 {
		t.Errorf("loop %v does not cover the excursion", s)
	}
	for _, s := range spans {
		if s.From < 0 || s.To > len(ring)/2 || s.From > s.To {
			t.Errorf("invalid span %v", s)
		}
	}
}

func TestMaskRange(t *testing.T) {
	p := NewPipe(120, 90)
	brush := &Brush{Nodes: []BrushNode{
		NewBrushNode(0.1, 0.2, 0.05, 0.3, 0.8),
		NewBrushNode(0.5, 0.6, 0.08, 0.7, 1),
		NewBrushNode(0.9, 0.3, 0.03, 0.1, 0.4),
	}}
	brush.ResolveControlPoints()
	pg := &Polygon{Nodes: []PolygonNode{
		NewPolygonNode(0.2, 0.2, 0.05),
		NewPolygonNode(0.8, 0.3, 0.02),
		NewPolygonNode(0.6, 0.9, 0.1),
		NewPolygonNode(0.3, 0.7, 0.03),
	}}
	pg.ResolveControlPoints()

	shapes := []Shape{
		&Circle{Center: vec.Vec2{X: 0.3, Y: 0.4}, Radius: 0.2, Border: 0.1},
		&Ellipse{Center: vec.Vec2{X: 0.6, Y: 0.5}, Radius: [2]float64{0.3, 0.1}, Rotation: 30, Border: 0.5, Flags: EllipseProportional},
		&Gradient{Anchor: vec.Vec2{X: 0.5, Y: 0.5}, Rotation: 45, Compression: 0.2, Curvature: 0.5, State: GradientSigmoidal},
		pg,
		brush,
	}
	rois := []darkroom.ROI{
		darkroom.Full(120, 90),
		{X: 30, Y: 10, Width: 50, Height: 40, Scale: 1},
		{X: 50, Y: 40, Width: 100, Height: 80, Scale: 1.7},
		{Width: 30, Height: 20, Scale: 0.25},
	}
	for _, s := range shapes {
		f := p.Forms.Create(s.Kind().String(), s)
		for _, roi := range rois {
			out := make([]float32, roi.Size())
			if err := Mask(context.Background(), f, p, roi, out); err != nil {
				t.Fatalf("%s: %v", s.Kind(), err)
			}
			for i, v := range out {
				if !(v >= 0 && v <= 1) {
					t.Fatalf("%s %v: pixel %d = %g", s.Kind(), roi, i, v)
				}
			}
		}
	}
}

func TestDistortedCircle(t *testing.T) {
	p := NewPipe(100, 100)
	p.Order = 10
	// a stage before the mask shifts the image 20 px to the right
	p.AddStage(&AffineStage{Pos: 5, M: [6]float64{1, 0, 0, 1, 20, 0}})
	f := p.Forms.Create("circle", &Circle{Center: vec.Vec2{X: 0.3, Y: 0.5}, Radius: 0.05})
	out := render100(t, p, f)
	if v := out[50*100+50]; v != 1 {
		t.Errorf("shifted centre %g, want 1", v)
	}
	if v := out[50*100+30]; v != 0 {
		t.Errorf("original centre %g, want 0", v)
	}

	box, err := f.Area(p)
	if err != nil {
		t.Fatal(err)
	}
	if box.X > 45 || box.X+box.Width < 55 {
		t.Errorf("area %+v does not contain the shifted circle", box)
	}
}

func TestDistance(t *testing.T) {
	p := NewPipe(100, 100)
	f := p.Forms.Create("circle", &Circle{Center: vec.Vec2{X: 0.5, Y: 0.5}, Radius: 0.2, Border: 0.1})

	tests := []struct {
		x, y         float64
		inside       bool
		insideBorder bool
	}{
		{50, 50, true, false},
		{75, 50, true, true},
		{95, 50, false, false},
	}
	for _, tc := range tests {
		h, err := f.Distance(p, tc.x, tc.y, 1)
		if err != nil {
			t.Fatal(err)
		}
		if h.Inside != tc.inside || h.InsideBorder != tc.insideBorder {
			t.Errorf("(%g,%g): got %+v", tc.x, tc.y, h)
		}
	}

	h, _ := f.Distance(p, 70.2, 50, 1)
	if !h.NearSegment {
		t.Errorf("point on the outline: %+v", h)
	}
}

func TestCloneSource(t *testing.T) {
	p := NewPipe(100, 100)
	f := p.Forms.Create("spot", &Circle{Center: vec.Vec2{X: 0.3, Y: 0.3}, Radius: 0.1})
	f.Clone = true
	f.Source = vec.Vec2{X: 0.7, Y: 0.6}

	box, err := f.SourceArea(p)
	if err != nil {
		t.Fatal(err)
	}
	if box.X > 60 || box.X+box.Width < 80 || box.Y > 50 || box.Y+box.Height < 70 {
		t.Errorf("source area %+v", box)
	}
	h, err := f.Distance(p, 70, 60, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !h.InsideSource || h.Inside {
		t.Errorf("hit at source: %+v", h)
	}
}

func TestGradientHit(t *testing.T) {
	p := NewPipe(100, 100)
	f := p.Forms.Create("gradient", &Gradient{Anchor: vec.Vec2{X: 0.5, Y: 0.5}, Compression: 0.1})
	h, err := f.Distance(p, 30, 50.5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !h.NearSegment || !h.Inside {
		t.Errorf("on the line: %+v", h)
	}
	h, _ = f.Distance(p, 30, 80, 2)
	if h.Inside {
		t.Errorf("outside the transition: %+v", h)
	}
}
