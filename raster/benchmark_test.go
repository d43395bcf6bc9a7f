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
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"

	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/rect"
)

// ring returns a polygonal circle with n vertices.
func ring(cx, cy, r float64, n int) []float32 {
	xy := make([]float32, 0, 2*n)
	for i := range n {
		phi := 2 * math.Pi * float64(i) / float64(n)
		xy = append(xy, float32(cx+r*math.Cos(phi)), float32(cy+r*math.Sin(phi)))
	}
	return xy
}

func BenchmarkFillPolygon(b *testing.B) {
	for _, size := range []int{20, 200, 2000} {
		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			clip := rect.Rect{URx: float64(size), URy: float64(size)}
			r := NewRasteriser(clip)
			c := NewCanvas(size, size)
			xy := ring(float64(size)/2, float64(size)/2, float64(size)*0.45, 256)
			emit := c.Max(1)

			b.ReportAllocs()
			for b.Loop() {
				r.FillPolygon(xy, NonZero, emit)
			}
		})
	}
}

// BenchmarkVector draws the same polygon with x/image/vector.
func BenchmarkVector(b *testing.B) {
	for _, size := range []int{20, 200, 2000} {
		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			r := vector.NewRasterizer(size, size)
			dst := image.NewAlpha(image.Rect(0, 0, size, size))
			src := image.NewUniform(color.Alpha{255})
			xy := ring(float64(size)/2, float64(size)/2, float64(size)*0.45, 256)

			b.ReportAllocs()
			for b.Loop() {
				r.Reset(size, size)
				r.MoveTo(xy[0], xy[1])
				for i := 2; i < len(xy); i += 2 {
					r.LineTo(xy[i], xy[i+1])
				}
				r.ClosePath()
				r.Draw(dst, dst.Bounds(), src, image.Point{})
			}
		})
	}
}
