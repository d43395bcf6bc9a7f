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
	"testing"

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/darkroom"
)

func line(n int, from, to vec.Vec2) []strokePoint {
	pts := make([]strokePoint, n)
	for i := range pts {
		t := float64(i) / float64(n-1)
		pts[i] = strokePoint{
			pos:      from.Add(to.Sub(from).Mul(t)),
			border:   0.02,
			hardness: 0.5,
			density:  1,
		}
	}
	return pts
}

func TestSimplify(t *testing.T) {
	straight := line(50, vec.Vec2{X: 0.1, Y: 0.1}, vec.Vec2{X: 0.6, Y: 0.4})
	nodes := simplify(straight, 1e-6)
	if len(nodes) != 2 {
		t.Errorf("straight line: %d nodes", len(nodes))
	}

	corner := vec.Vec2{X: 0.5, Y: 0.1}
	l := line(30, vec.Vec2{X: 0.1, Y: 0.1}, corner)
	l = append(l, line(30, corner, vec.Vec2{X: 0.5, Y: 0.5})[1:]...)
	nodes = simplify(l, 1e-4)
	if len(nodes) != 3 {
		t.Fatalf("corner: %d nodes", len(nodes))
	}
	if d := nodes[1].Node.Sub(corner).Length(); d > 1e-12 {
		t.Errorf("corner node at %v", nodes[1].Node)
	}

	// a change in brush size alone is kept
	sized := line(20, vec.Vec2{X: 0.1, Y: 0.1}, vec.Vec2{X: 0.2, Y: 0.1})
	for i := range sized {
		if i > 10 {
			sized[i].border = 0.1
		}
	}
	if nodes := simplify(sized, 1e-4); len(nodes) < 3 {
		t.Errorf("size change dropped, %d nodes", len(nodes))
	}
}

func TestApplyPressure(t *testing.T) {
	cases := []struct {
		mode     PressureMode
		pressure float64
		want     strokePoint
	}{
		{PressureOff, 0.5, strokePoint{border: 0.02, hardness: 0.5, density: 1}},
		{PressureBrushSizeRel, 0.5, strokePoint{border: 0.01, hardness: 0.5, density: 1}},
		{PressureHardnessAbs, 0.25, strokePoint{border: 0.02, hardness: 0.25, density: 1}},
		{PressureHardnessRel, 0.5, strokePoint{border: 0.02, hardness: 0.25, density: 1}},
		{PressureOpacityAbs, 0.01, strokePoint{border: 0.02, hardness: 0.5, density: 0.05}},
		{PressureOpacityRel, 0.5, strokePoint{border: 0.02, hardness: 0.5, density: 0.5}},
	}
	for _, c := range cases {
		pts := []strokePoint{{border: 0.02, hardness: 0.5, density: 1, pressure: c.pressure}}
		applyPressure(pts, c.mode)
		c.want.pressure = 1
		if pts[0] != c.want {
			t.Errorf("mode %d: got %+v, want %+v", c.mode, pts[0], c.want)
		}
	}
}

func TestBrushStroke(t *testing.T) {
	p := NewPipe(100, 100)
	var samples []StrokeSample
	for x := 20.0; x <= 80; x++ {
		samples = append(samples, StrokeSample{Pos: vec.Vec2{X: x, Y: 50}, Pressure: 1})
	}
	b, err := NewBrushStroke(p, samples, StrokeOptions{Border: 0.05, Hardness: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(b.Nodes))
	}
	n := b.Nodes[0]
	if math.Abs(n.Node.X-0.2) > 1e-6 || math.Abs(n.Node.Y-0.5) > 1e-6 {
		t.Errorf("first node at %v", n.Node)
	}
	if n.Density != 1 || n.Hardness != 0.5 || n.Border[0] != 0.05 {
		t.Errorf("first node payload %+v", n)
	}

	f := &Form{ID: 1, Opacity: 1, Shape: b}
	out := make([]float32, 100*100)
	if err := Mask(context.Background(), f, p, darkroom.Full(100, 100), out); err != nil {
		t.Fatal(err)
	}
	if v := out[50*100+50]; v != 1 {
		t.Errorf("stroke centre: %g", v)
	}
	if v := out[40*100+50]; v != 0 {
		t.Errorf("10px off the stroke: %g", v)
	}
	if v := out[50*100+10]; v != 0 {
		t.Errorf("before the start: %g", v)
	}
}

func TestBrushStrokeSingleSample(t *testing.T) {
	p := NewPipe(100, 100)
	b, err := NewBrushStroke(p, []StrokeSample{{Pos: vec.Vec2{X: 50, Y: 50}, Pressure: 1}},
		StrokeOptions{Border: 0.03, Hardness: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(b.Nodes))
	}
	if d := b.Nodes[1].Node.Sub(b.Nodes[0].Node).Length(); d == 0 || d > 1e-3 {
		t.Errorf("nodes %g apart", d)
	}

	_, err = NewBrushStroke(p, nil, StrokeOptions{})
	if !errors.Is(err, darkroom.ErrMalformedShape) {
		t.Errorf("empty stroke: got %v", err)
	}
}
