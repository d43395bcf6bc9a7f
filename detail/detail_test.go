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

package detail

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat"
)

var white = [3]float32{1, 1, 1}

func image(w, h int, f func(x, y int) float32) []float32 {
	rgba := make([]float32, 4*w*h)
	for y := range h {
		for x := range w {
			v := f(x, y)
			i := 4 * (y*w + x)
			rgba[i], rgba[i+1], rgba[i+2] = v, v, v
		}
	}
	return rgba
}

func TestFlat(t *testing.T) {
	const w, h = 16, 12
	rgba := image(w, h, func(int, int) float32 { return 0.42 })
	out := make([]float32, w*h)
	for i := range out {
		out[i] = -1
	}
	if err := Compute(context.Background(), rgba, w, h, white, DefaultParams(), out); err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("pixel %d: %g", i, v)
		}
	}
}

func TestScaleInvariant(t *testing.T) {
	const w, h = 40, 30
	rng := rand.New(rand.NewPCG(1, 2))
	rgba := make([]float32, 4*w*h)
	for i := range rgba {
		rgba[i] = 0.1 + 0.5*rng.Float32()
	}
	scaled := make([]float32, len(rgba))
	for i, v := range rgba {
		scaled[i] = 4 * v
	}

	p := Params{Threshold: 0.3, Sigma: 1.5}
	a := make([]float32, w*h)
	b := make([]float32, w*h)
	if err := Compute(context.Background(), rgba, w, h, white, p, a); err != nil {
		t.Fatal(err)
	}
	if err := Compute(context.Background(), scaled, w, h, white, p, b); err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pixel %d: %g != %g", i, a[i], b[i])
		}
	}

	// the random image has plenty of structure
	mean := stat.Mean(toFloat64(a), nil)
	if mean < 0.5 {
		t.Errorf("mean detail %g on noise", mean)
	}
}

// TestMargin checks that a crop of the image, extended by Margin pixels on
// every side, gives the same mask in its interior.
func TestMargin(t *testing.T) {
	const w, h = 40, 30
	rng := rand.New(rand.NewPCG(3, 4))
	rgba := make([]float32, 4*w*h)
	for i := range rgba {
		rgba[i] = 0.1 + 0.5*rng.Float32()
	}
	p := DefaultParams()
	full := make([]float32, w*h)
	if err := Compute(context.Background(), rgba, w, h, white, p, full); err != nil {
		t.Fatal(err)
	}

	const x0, y0, cw, ch = 7, 5, 24, 18
	crop := make([]float32, 4*cw*ch)
	for y := range ch {
		copy(crop[4*y*cw:4*(y+1)*cw], rgba[4*((y0+y)*w+x0):4*((y0+y)*w+x0+cw)])
	}
	out := make([]float32, cw*ch)
	if err := Compute(context.Background(), crop, cw, ch, white, p, out); err != nil {
		t.Fatal(err)
	}
	for y := Margin; y < ch-Margin; y++ {
		for x := Margin; x < cw-Margin; x++ {
			a := full[(y0+y)*w+x0+x]
			b := out[y*cw+x]
			if a != b {
				t.Fatalf("pixel (%d, %d): %g != %g", x0+x, y0+y, a, b)
			}
		}
	}
}

func TestEdge(t *testing.T) {
	const w, h = 64, 16
	rgba := image(w, h, func(x, _ int) float32 {
		if x < 32 {
			return 0.2
		}
		return 0.8
	})
	out := make([]float32, w*h)
	if err := Compute(context.Background(), rgba, w, h, white, DefaultParams(), out); err != nil {
		t.Fatal(err)
	}
	for y := range h {
		row := out[y*w : (y+1)*w]
		if row[31] < 0.9 || row[32] < 0.9 {
			t.Errorf("row %d: edge values %g %g", y, row[31], row[32])
		}
		if row[5] != 0 || row[58] != 0 {
			t.Errorf("row %d: flat values %g %g", y, row[5], row[58])
		}
	}
	for i, v := range out {
		if v < 0 || v > 1 || math.IsNaN(float64(v)) {
			t.Fatalf("pixel %d: %g out of range", i, v)
		}
	}
}

func TestThreshold(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-1, 0.005},
		{0, 0.005},
		{1, 0.08},
		{2, 0.08},
	}
	for _, c := range cases {
		if got := Threshold(c.in); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("Threshold(%g) = %g, want %g", c.in, got, c.want)
		}
	}
}

func TestCurve(t *testing.T) {
	if v := curve(0.1, 0.1); v != 0.5 {
		t.Errorf("centre: %g", v)
	}
	if v := curve(0, 0.1); v != 0 {
		t.Errorf("zero: %g", v)
	}
	if v := curve(1, 0.1); v != 1 {
		t.Errorf("large: %g", v)
	}
	if curve(0, 0) != 0 || curve(1e-9, 0) != 1 {
		t.Error("hard step")
	}
}

func TestBufferSize(t *testing.T) {
	err := Compute(context.Background(), make([]float32, 4*10), 5, 2, white, DefaultParams(), make([]float32, 9))
	if err == nil {
		t.Error("short output accepted")
	}
}

func toFloat64(v []float32) []float64 {
	res := make([]float64, len(v))
	for i, x := range v {
		res[i] = float64(x)
	}
	return res
}
