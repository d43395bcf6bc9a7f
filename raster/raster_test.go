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
	"testing"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// approaches forces the 2D buffer code path (A) or the active edge list (B).
var approaches = []struct {
	name      string
	threshold int
}{
	{"A", 1 << 30},
	{"B", 0},
}

// TestTriangleCoverage checks exact coverage values for a thin triangle.
// The edge y = x/10 gives pixel X the coverage (2X+1)/20.
func TestTriangleCoverage(t *testing.T) {
	triangle := (&path.Data{}).
		MoveTo(vec.Vec2{X: 0, Y: 0}).
		LineTo(vec.Vec2{X: 10, Y: 0}).
		LineTo(vec.Vec2{X: 10, Y: 1}).
		Close()

	for _, a := range approaches {
		t.Run(a.name, func(t *testing.T) {
			r := NewRasteriser(rect.Rect{URx: 10, URy: 1})
			r.smallPathThreshold = a.threshold

			coverage := make([]float32, 10)
			r.Fill(triangle, NonZero, func(y, xMin int, cov []float32) {
				if y == 0 {
					copy(coverage[xMin:], cov)
				}
			})

			for x := range 10 {
				want := float32(2*x+1) / 20
				if math.Abs(float64(coverage[x]-want)) > 1e-6 {
					t.Errorf("pixel %d: coverage %.4f, want %.4f", x, coverage[x], want)
				}
			}
		})
	}
}

func TestFillHole(t *testing.T) {
	// a square with a square hole, given as two sub-paths
	rectangle := func(d *path.Data, x0, y0, x1, y1 float64) *path.Data {
		return d.MoveTo(vec.Vec2{X: x0, Y: y0}).
			LineTo(vec.Vec2{X: x1, Y: y0}).
			LineTo(vec.Vec2{X: x1, Y: y1}).
			LineTo(vec.Vec2{X: x0, Y: y1}).
			Close()
	}
	outline := rectangle(&path.Data{}, 2.5, 2.5, 17.5, 17.5)
	outline = rectangle(outline, 7.5, 7.5, 12.5, 12.5)

	for _, a := range approaches {
		t.Run(a.name, func(t *testing.T) {
			r := NewRasteriser(rect.Rect{URx: 20, URy: 20})
			r.smallPathThreshold = a.threshold
			c := NewCanvas(20, 20)

			r.Fill(outline, EvenOdd, c.Max(1))

			var sum float64
			for _, v := range c.Pix {
				sum += float64(v)
			}
			if want := 15.0*15.0 - 5.0*5.0; math.Abs(sum-want) > 1e-3 {
				t.Errorf("covered area %g, want %g", sum, want)
			}
			if c.Pix[10*20+10] != 0 {
				t.Errorf("hole is filled: %g", c.Pix[10*20+10])
			}
			if c.Pix[5*20+5] != 1 {
				t.Errorf("interior coverage %g, want 1", c.Pix[5*20+5])
			}
			if c.Pix[2*20+5] != 0.5 {
				t.Errorf("edge coverage %g, want 0.5", c.Pix[2*20+5])
			}
		})
	}
}

// TestCurveArea fills parabolic segments, whose area is 2/3 of the
// enclosing box.
func TestCurveArea(t *testing.T) {
	quad := (&path.Data{}).
		MoveTo(vec.Vec2{X: 2, Y: 2}).
		QuadTo(vec.Vec2{X: 7, Y: 12}, vec.Vec2{X: 12, Y: 2}).
		Close()
	// the same parabola, raised to a cubic
	cube := (&path.Data{}).
		MoveTo(vec.Vec2{X: 2, Y: 2}).
		CubeTo(vec.Vec2{X: 2 + 10.0/3, Y: 2 + 20.0/3}, vec.Vec2{X: 12 - 10.0/3, Y: 2 + 20.0/3}, vec.Vec2{X: 12, Y: 2}).
		Close()

	for name, d := range map[string]*path.Data{"quad": quad, "cube": cube} {
		r := NewRasteriser(rect.Rect{URx: 16, URy: 16})
		r.Flatness = 0.01
		c := NewCanvas(16, 16)
		r.Fill(d, NonZero, c.Max(1))

		var sum float64
		for _, v := range c.Pix {
			sum += float64(v)
		}
		if want := 2.0 / 3 * 10 * 5; math.Abs(sum-want) > 0.15 {
			t.Errorf("%s: area %g, want %g", name, sum, want)
		}
	}
}

func TestCTM(t *testing.T) {
	r := NewRasteriser(rect.Rect{URx: 20, URy: 20})
	r.CTM = matrix.Scale(2, 2)
	c := NewCanvas(20, 20)
	r.FillPolygon([]float32{0, 0, 5, 0, 5, 5, 0, 5}, NonZero, c.Max(1))

	var sum float64
	for _, v := range c.Pix {
		sum += float64(v)
	}
	if math.Abs(sum-100) > 1e-3 {
		t.Errorf("scaled square covers %g pixels, want 100", sum)
	}
}

func TestStroke(t *testing.T) {
	cases := []struct {
		name string
		cap  graphics.LineCapStyle
		want float64
	}{
		{"butt", graphics.LineCapButt, 20 * 2},
		{"square", graphics.LineCapSquare, 22 * 2},
		{"round", graphics.LineCapRound, 20*2 + math.Pi},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewRasteriser(rect.Rect{URx: 40, URy: 20})
			r.Width = 2
			r.Cap = c.cap
			cv := NewCanvas(40, 20)
			r.Stroke([]vec.Vec2{{X: 10, Y: 10}, {X: 30, Y: 10}}, false, cv.Max(1))

			var sum float64
			for _, v := range cv.Pix {
				sum += float64(v)
			}
			if math.Abs(sum-c.want) > 0.05*c.want {
				t.Errorf("stroke area %g, want %g", sum, c.want)
			}
		})
	}
}

func TestStrokeClosedJoins(t *testing.T) {
	square := []float32{5, 5, 15, 5, 15, 15, 5, 15}
	for _, join := range []graphics.LineJoinStyle{graphics.LineJoinMiter, graphics.LineJoinRound, graphics.LineJoinBevel} {
		r := NewRasteriser(rect.Rect{URx: 20, URy: 20})
		r.Width = 2
		r.Join = join
		cv := NewCanvas(20, 20)
		r.StrokeXY(square, true, cv.Max(1))

		for i, v := range cv.Pix {
			if v < 0 || v > 1 {
				t.Fatalf("join %v: pixel %d has coverage %g", join, i, v)
			}
		}
		// the corner pixel inside the stroke is fully covered for all joins
		if cv.Pix[5*20+5] < 0.99 {
			t.Errorf("join %v: corner coverage %g", join, cv.Pix[5*20+5])
		}
		// the centre of the square is not touched
		if cv.Pix[10*20+10] != 0 {
			t.Errorf("join %v: centre coverage %g", join, cv.Pix[10*20+10])
		}
	}
}
