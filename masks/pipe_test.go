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
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

func shiftX(pos, dx float64) Stage {
	return &AffineStage{Pos: pos, M: matrix.Matrix{1, 0, 0, 1, dx, 0}}
}

func TestAddStageOrder(t *testing.T) {
	p := NewPipe(100, 100)
	for _, pos := range []float64{9, 1, 5, 3} {
		p.AddStage(shiftX(pos, 0))
	}
	var got []float64
	for _, s := range p.Stages {
		got = append(got, s.Order())
	}
	if d := cmp.Diff([]float64{1, 3, 5, 9}, got); d != "" {
		t.Errorf("stage order (-want +got):\n%s", d)
	}
}

func TestDirections(t *testing.T) {
	p := NewPipe(100, 100)
	p.Order = 5
	p.AddStage(shiftX(1, 10))
	p.AddStage(shiftX(5, 100))
	p.AddStage(shiftX(9, 1000))

	cases := []struct {
		dir  Direction
		want float32
	}{
		{DirAll, 1110},
		{DirForwIncl, 1100},
		{DirForwExcl, 1000},
		{DirBackIncl, 110},
		{DirBackExcl, 10},
	}
	for _, c := range cases {
		xy := []float32{0, 0}
		if err := p.Transform(c.dir, xy); err != nil {
			t.Fatal(err)
		}
		if xy[0] != c.want || xy[1] != 0 {
			t.Errorf("direction %d: got %v, want %g", c.dir, xy, c.want)
		}
		if err := p.Backtransform(c.dir, xy); err != nil {
			t.Fatal(err)
		}
		if xy[0] != 0 {
			t.Errorf("direction %d: backtransform gave %v", c.dir, xy)
		}
	}
}

func TestStageRoundTrip(t *testing.T) {
	stages := map[string]Stage{
		"affine": &AffineStage{M: matrix.Matrix{0.8, 0.3, -0.2, 1.1, 12, -7}},
		"radial": &RadialStage{Center: vec.Vec2{X: 60, Y: 40}, Norm: 72, K: 0.08},
		"barrel": &RadialStage{Center: vec.Vec2{X: 60, Y: 40}, Norm: 72, K: -0.05},
	}
	for name, s := range stages {
		t.Run(name, func(t *testing.T) {
			p := NewPipe(120, 80)
			p.AddStage(s)

			var orig []float32
			for y := float32(0); y <= 80; y += 10 {
				for x := float32(0); x <= 120; x += 15 {
					orig = append(orig, x, y)
				}
			}
			xy := append([]float32(nil), orig...)
			if err := p.Transform(DirAll, xy); err != nil {
				t.Fatal(err)
			}
			if err := p.Backtransform(DirAll, xy); err != nil {
				t.Fatal(err)
			}
			for i := range xy {
				if math.Abs(float64(xy[i]-orig[i])) > 1e-3 {
					t.Fatalf("coordinate %d: %g != %g", i, xy[i], orig[i])
				}
			}
		})
	}
}

func TestSingularStage(t *testing.T) {
	p := NewPipe(10, 10)
	p.AddStage(&AffineStage{M: matrix.Matrix{1, 2, 2, 4, 0, 0}})
	if err := p.Backtransform(DirAll, []float32{1, 1}); err == nil {
		t.Error("singular stage was inverted")
	}
}
