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

package demosaic

import (
	"seehuhn.de/go/darkroom/cfa"
)

// vngDirs are the eight gradient directions as (dy, dx), clockwise from
// north.
var vngDirs = [8][2]int{
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1},
}

// vngTile returns the Variable Number of Gradients kernel. With fourColor
// set, the two Bayer greens are interpolated as separate channels and
// merged at the end; otherwise the pattern colours are used as they are,
// which also covers X-Trans sensors.
func vngTile(fourColor bool) tileFunc {
	return func(wd *window, _ *Params) ([3][]float32, error) {
		var rgb [3][]float32
		w, h := wd.w, wd.h
		n := w * h
		nc := 3
		if fourColor {
			nc = 4
		}

		if err := wd.sc.reserve(n / 4); err != nil {
			return rgb, err
		}
		col := make([]uint8, n)
		for r := range h {
			for c := range w {
				if fourColor {
					col[r*w+c] = uint8(wd.d.FourColor(r, c))
				} else {
					col[r*w+c] = uint8(wd.color(r, c))
				}
			}
		}

		lin, err := wd.sc.planes(nc, n)
		if err != nil {
			return rgb, err
		}
		out, err := wd.sc.planes(3, n)
		if err != nil {
			return rgb, err
		}
		copy(rgb[:], out)

		raw := wd.cfa

		// bilinear estimate of all channels from the 3×3 neighbourhood
		for r := 1; r < h-1; r++ {
			for c := 1; c < w-1; c++ {
				i := r*w + c
				var sum, wt [4]float32
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						j := i + dy*w + dx
						k := col[j]
						var weight float32 = 2
						if dx != 0 && dy != 0 {
							weight = 1
						}
						sum[k] += weight * raw[j]
						wt[k] += weight
					}
				}
				own := int(col[i])
				for ch := range nc {
					switch {
					case ch == own:
						lin[ch][i] = raw[i]
					case wt[ch] > 0:
						lin[ch][i] = sum[ch] / wt[ch]
					}
				}
			}
		}

		var grad [8]float32
		var res [4]float32
		for r := 3; r < h-3; r++ {
			for c := 3; c < w-3; c++ {
				i := r*w + c
				own := int(col[i])

				gmin, gmax := float32(0), float32(0)
				for d, s := range vngDirs {
					step := s[0]*w + s[1]
					perp := s[1]*w - s[0]
					var g float32
					for ch := range nc {
						l := lin[ch]
						g += 2*abs32(l[i+step]-l[i]) + abs32(l[i+2*step]-l[i+step]) +
							0.5*(abs32(l[i+step+perp]-l[i+perp])+abs32(l[i+step-perp]-l[i-perp]))
					}
					grad[d] = g
					if d == 0 || g < gmin {
						gmin = g
					}
					gmax = max(gmax, g)
				}
				thold := gmin + gmax/2

				var sum [4]float32
				var num float32
				for d, s := range vngDirs {
					if grad[d] > thold {
						continue
					}
					step := s[0]*w + s[1]
					for ch := range nc {
						if ch == own && int(col[i+2*step]) == own {
							sum[ch] += (raw[i] + raw[i+2*step]) / 2
						} else {
							sum[ch] += lin[ch][i+step]
						}
					}
					num++
				}

				for ch := range nc {
					if ch == own {
						res[ch] = raw[i]
					} else {
						res[ch] = raw[i] + (sum[ch]-sum[own])/num
					}
				}
				rgb[cfa.Red][i] = res[cfa.Red]
				rgb[cfa.Blue][i] = res[cfa.Blue]
				if fourColor {
					rgb[cfa.Green][i] = (res[cfa.Green] + res[cfa.Green2]) / 2
				} else {
					rgb[cfa.Green][i] = res[cfa.Green]
				}
			}
		}
		return rgb, nil
	}
}
