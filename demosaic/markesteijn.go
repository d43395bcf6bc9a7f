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
	"slices"

	"seehuhn.de/go/darkroom/cfa"
)

// xtransDirs are the four interpolation directions as (dy, dx).
var xtransDirs = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// markesteijnTile returns Frank Markesteijn's X-Trans algorithm: green is
// interpolated along four directions, red and blue are derived for every
// direction from the colour differences, and each pixel averages the
// candidates which are most homogeneous in a perceptual colour space.
// With passes > 1, four more candidates come from iterated median
// refinement of the directional greens.
func markesteijnTile(passes int) tileFunc {
	return func(wd *window, _ *Params) ([3][]float32, error) {
		return markesteijn(wd, passes)
	}
}

func markesteijn(wd *window, passes int) ([3][]float32, error) {
	var rgb [3][]float32
	w, h := wd.w, wd.h
	n := w * h
	raw := wd.cfa

	ndir := 4
	if passes > 1 {
		ndir = 8
	}

	if err := wd.sc.reserve(n / 4); err != nil {
		return rgb, err
	}
	col := make([]uint8, n)
	for r := range h {
		for c := range w {
			col[r*w+c] = uint8(wd.color(r, c))
		}
	}
	isGreen := func(i int) bool { return col[i] == cfa.Green }

	green, err := wd.sc.planes(ndir, n)
	if err != nil {
		return rgb, err
	}

	// directional green
	for r := 3; r < h-3; r++ {
		for c := 3; c < w-3; c++ {
			i := r*w + c
			if isGreen(i) {
				for d := range ndir {
					green[d][i] = raw[i]
				}
				continue
			}
			for d, s := range xtransDirs {
				green[d][i] = directionalGreen(raw, col, i, s[0]*w+s[1], w)
			}
		}
	}

	// refined greens: median of the colour differences along the
	// direction, iterated
	gr := 3
	if passes > 1 {
		tmp, err := wd.sc.alloc(n)
		if err != nil {
			return rgb, err
		}
		for d, s := range xtransDirs {
			step := s[0]*w + s[1]
			dst := green[d+4]
			copy(dst, green[d])
			lo := 3
			for range passes - 1 {
				copy(tmp, dst)
				lo += 3
				for r := lo; r < h-lo; r++ {
					for c := lo; c < w-lo; c++ {
						i := r*w + c
						if isGreen(i) {
							continue
						}
						dst[i] = raw[i] + refinedDiff(tmp, raw, col, i, step)
					}
				}
			}
			gr = lo
		}
	}

	// red and blue for every direction
	lo := gr + 2
	cand := make([][3][]float32, ndir)
	for d := range ndir {
		planes, err := wd.sc.planes(2, n)
		if err != nil {
			return rgb, err
		}
		cand[d] = [3][]float32{planes[0], green[d], planes[1]}
	}
	for d := range ndir {
		cd := cand[d]
		g := green[d]
		for r := lo; r < h-lo; r++ {
			for c := lo; c < w-lo; c++ {
				i := r*w + c
				own := int(col[i])
				for _, ch := range [2]int{cfa.Red, cfa.Blue} {
					if ch == own {
						cd[ch][i] = raw[i]
					} else {
						cd[ch][i] = max(0, g[i]+chromaDiff(raw, g, col, i, w, uint8(ch)))
					}
				}
			}
		}
	}

	// perceptual derivatives
	drv, err := wd.sc.planes(ndir, n)
	if err != nil {
		return rgb, err
	}
	for d := range ndir {
		s := xtransDirs[d%4]
		step := s[0]*w + s[1]
		cd := cand[d]
		for r := lo + 1; r < h-lo-1; r++ {
			for c := lo + 1; c < w-lo-1; c++ {
				i := r*w + c
				y0, b0, r0 := ypbpr(cd, i)
				y1, b1, r1 := ypbpr(cd, i-step)
				y2, b2, r2 := ypbpr(cd, i+step)
				drv[d][i] = sq(2*y0-y1-y2) + sq(2*b0-b1-b2) + sq(2*r0-r1-r2)
			}
		}
	}

	// homogeneity maps
	if err := wd.sc.reserve(ndir * n / 4); err != nil {
		return rgb, err
	}
	homo := make([][]uint8, ndir)
	for d := range homo {
		homo[d] = make([]uint8, n)
	}
	for r := lo + 2; r < h-lo-2; r++ {
		for c := lo + 2; c < w-lo-2; c++ {
			i := r*w + c
			tr := drv[0][i]
			for d := 1; d < ndir; d++ {
				tr = min(tr, drv[d][i])
			}
			tr *= 8
			for d := range ndir {
				var cnt uint8
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if drv[d][i+dy*w+dx] <= tr {
							cnt++
						}
					}
				}
				homo[d][i] = cnt
			}
		}
	}

	out, err := wd.sc.planes(3, n)
	if err != nil {
		return rgb, err
	}
	copy(rgb[:], out)

	hm := make([]int, ndir)
	for r := lo + 4; r < h-lo-4; r++ {
		for c := lo + 4; c < w-lo-4; c++ {
			i := r*w + c
			best := 0
			for d := range ndir {
				sum := 0
				for dy := -2; dy <= 2; dy++ {
					for dx := -2; dx <= 2; dx++ {
						sum += int(homo[d][i+dy*w+dx])
					}
				}
				hm[d] = sum
				best = max(best, sum)
			}
			best -= best >> 3

			var avg [3]float32
			var cnt float32
			for d := range ndir {
				if hm[d] < best {
					continue
				}
				for ch := range 3 {
					avg[ch] += cand[d][ch][i]
				}
				cnt++
			}
			for ch := range 3 {
				rgb[ch][i] = avg[ch] / cnt
			}
		}
	}
	return rgb, nil
}

// directionalGreen interpolates green at the non-green photosite i along
// the direction step. Where the two pixels on either side are green, a
// second order estimate clipped to the nearest greens is used; otherwise
// the nearest greens within three pixels are interpolated linearly.
func directionalGreen(raw []float32, col []uint8, i, step, w int) float32 {
	a1, b1 := i+step, i-step
	a2, b2 := i+2*step, i-2*step
	if col[a1] == cfa.Green && col[b1] == cfa.Green && col[a2] == cfa.Green && col[b2] == cfa.Green {
		v := (174*(raw[a1]+raw[b1]) - 46*(raw[a2]+raw[b2])) / 256
		return clamp32(v, min(raw[a1], raw[b1]), max(raw[a1], raw[b1]))
	}

	da, va := nearestGreen(raw, col, i, step)
	db, vb := nearestGreen(raw, col, i, -step)
	switch {
	case da > 0 && db > 0:
		return (va*float32(db) + vb*float32(da)) / float32(da+db)
	case da > 0:
		return va
	case db > 0:
		return vb
	}

	var sum float32
	var cnt float32
	for _, j := range [4]int{i - 1, i + 1, i - w, i + w} {
		if col[j] == cfa.Green {
			sum += raw[j]
			cnt++
		}
	}
	if cnt == 0 {
		return raw[i]
	}
	return sum / cnt
}

// nearestGreen returns the distance and value of the first green
// photosite along step, or a zero distance if there is none within three
// pixels.
func nearestGreen(raw []float32, col []uint8, i, step int) (int, float32) {
	for k := 1; k <= 3; k++ {
		j := i + k*step
		if col[j] == cfa.Green {
			return k, raw[j]
		}
	}
	return 0, 0
}

// refinedDiff returns the median of the green minus raw differences at i
// and at the nearest photosites of the same colour along ±step.
func refinedDiff(g, raw []float32, col []uint8, i, step int) float32 {
	own := col[i]
	vals := []float32{g[i] - raw[i]}
	for _, s := range [2]int{step, -step} {
		for k := 1; k <= 3; k++ {
			j := i + k*s
			if col[j] == own {
				vals = append(vals, g[j]-raw[j])
				break
			}
		}
	}
	switch len(vals) {
	case 1:
		return vals[0]
	case 2:
		return (vals[0] + vals[1]) / 2
	}
	slices.Sort(vals)
	return vals[1]
}

// chromaDiff returns the weighted mean of raw minus green over the
// photosites of colour ch near i. The 3×3 neighbourhood is used where it
// contains such a photosite, the 5×5 one otherwise.
func chromaDiff(raw, g []float32, col []uint8, i, w int, ch uint8) float32 {
	var sum, wt float32
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			j := i + dy*w + dx
			if col[j] != ch {
				continue
			}
			var weight float32 = 2
			if dx != 0 && dy != 0 {
				weight = 1
			}
			sum += weight * (raw[j] - g[j])
			wt += weight
		}
	}
	if wt > 0 {
		return sum / wt
	}
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			j := i + dy*w + dx
			if col[j] == ch {
				sum += raw[j] - g[j]
				wt++
			}
		}
	}
	if wt > 0 {
		return sum / wt
	}
	return 0
}

// ypbpr converts the candidate at i to BT.2020 luma and scaled colour
// differences.
func ypbpr(rgb [3][]float32, i int) (y, pb, pr float32) {
	r, g, b := rgb[0][i], rgb[1][i], rgb[2][i]
	y = 0.2627*r + 0.678*g + 0.0593*b
	pb = (b - y) * 0.56433
	pr = (r - y) * 0.71373
	return y, pb, pr
}
