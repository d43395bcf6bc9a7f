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

// Canvas is a single channel float32 image which collects coverage from
// the rasteriser.
type Canvas struct {
	Pix           []float32
	Width, Height int
}

// NewCanvas allocates a zeroed w×h canvas.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{Pix: make([]float32, w*h), Width: w, Height: h}
}

// Max returns an EmitFunc which combines coverage with the canvas using
// the maximum, scaled by opacity.
func (c *Canvas) Max(opacity float32) EmitFunc {
	return func(y, xMin int, coverage []float32) {
		if y < 0 || y >= c.Height {
			return
		}
		row := c.Pix[y*c.Width : (y+1)*c.Width]
		for i, v := range coverage {
			x := xMin + i
			if x < 0 || x >= c.Width {
				continue
			}
			row[x] = max(row[x], v*opacity)
		}
	}
}

// Over returns an EmitFunc which paints value v over the canvas, using
// the coverage as alpha.
func (c *Canvas) Over(v float32) EmitFunc {
	return func(y, xMin int, coverage []float32) {
		if y < 0 || y >= c.Height {
			return
		}
		row := c.Pix[y*c.Width : (y+1)*c.Width]
		for i, a := range coverage {
			x := xMin + i
			if x < 0 || x >= c.Width {
				continue
			}
			row[x] = row[x]*(1-a) + v*a
		}
	}
}
