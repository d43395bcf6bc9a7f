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

// ppgTile implements Patterned Pixel Grouping for Bayer sensors, with an
// optional median pre-filter on the green photosites.
func ppgTile(wd *window, p *Params) ([3][]float32, error) {
	rgb, err := wd.spread()
	if err != nil {
		return rgb, err
	}
	w, h := wd.w, wd.h
	src := wd.cfa
	if p.MedianThreshold > 0 {
		src, err = preMedian(wd, float32(p.MedianThreshold))
		if err != nil {
			return rgb, err
		}
		copyGreens(wd, src, rgb[cfa.Green])
	}
	g := rgb[cfa.Green]

	// green at red and blue photosites
	for r := 3; r < h-3; r++ {
		for c := 3; c < w-3; c++ {
			if wd.color(r, c) == cfa.Green {
				continue
			}
			i := r*w + c
			pc := src[i]
			pxm, pxm2, pxm3 := src[i-1], src[i-2], src[i-3]
			pxM, pxM2, pxM3 := src[i+1], src[i+2], src[i+3]
			pym, pym2, pym3 := src[i-w], src[i-2*w], src[i-3*w]
			pyM, pyM2, pyM3 := src[i+w], src[i+2*w], src[i+3*w]

			guessx := (pxm+pc+pxM)*2 - pxM2 - pxm2
			diffx := (abs32(pxm2-pc)+abs32(pxM2-pc)+abs32(pxm-pxM))*3 +
				(abs32(pxM3-pxM)+abs32(pxm3-pxm))*2
			guessy := (pym+pc+pyM)*2 - pyM2 - pym2
			diffy := (abs32(pym2-pc)+abs32(pyM2-pc)+abs32(pym-pyM))*3 +
				(abs32(pyM3-pyM)+abs32(pym3-pym))*2

			if diffx > diffy {
				g[i] = clamp32(guessy*0.25, min(pym, pyM), max(pym, pyM))
			} else {
				g[i] = clamp32(guessx*0.25, min(pxm, pxM), max(pxm, pxM))
			}
		}
	}

	// red and blue, from the colour differences to green
	for r := 4; r < h-4; r++ {
		for c := 4; c < w-4; c++ {
			i := r*w + c
			own := wd.color(r, c)
			if own == cfa.Green {
				ch := wd.color(r, c+1)
				cv := wd.color(r+1, c)
				rgb[ch][i] = (rgb[ch][i-1] + rgb[ch][i+1] + 2*g[i] - g[i-1] - g[i+1]) / 2
				rgb[cv][i] = (rgb[cv][i-w] + rgb[cv][i+w] + 2*g[i] - g[i-w] - g[i+w]) / 2
				continue
			}

			x := rgb[2-own]
			nw, ne, sw, se := i-w-1, i-w+1, i+w-1, i+w+1
			diff1 := abs32(x[nw]-x[se]) + abs32(g[nw]-g[i]) + abs32(g[se]-g[i])
			guess1 := x[nw] + x[se] + 2*g[i] - g[nw] - g[se]
			diff2 := abs32(x[ne]-x[sw]) + abs32(g[ne]-g[i]) + abs32(g[sw]-g[i])
			guess2 := x[ne] + x[sw] + 2*g[i] - g[ne] - g[sw]
			switch {
			case diff1 > diff2:
				x[i] = guess2 / 2
			case diff1 < diff2:
				x[i] = guess1 / 2
			default:
				x[i] = (guess1 + guess2) / 4
			}
		}
	}
	return rgb, nil
}

// copyGreens stores the filtered green photosites of src in g.
func copyGreens(wd *window, src, g []float32) {
	for r := range wd.h {
		for c := range wd.w {
			if wd.color(r, c) == cfa.Green {
				g[r*wd.w+c] = src[r*wd.w+c]
			}
		}
	}
}

// preMedian replaces every green photosite by the median of itself and
// its four diagonal neighbours, ignoring neighbours which differ from the
// centre by more than thrs. For thrs >= 1 this is a plain median.
func preMedian(wd *window, thrs float32) ([]float32, error) {
	w, h := wd.w, wd.h
	res, err := wd.sc.alloc(len(wd.cfa))
	if err != nil {
		return nil, err
	}
	copy(res, wd.cfa)

	var buf [5]float32
	for r := 1; r < h-1; r++ {
		for c := 1; c < w-1; c++ {
			if wd.color(r, c) != cfa.Green {
				continue
			}
			i := r*w + c
			centre := wd.cfa[i]
			vals := append(buf[:0], centre)
			for _, j := range [4]int{i - w - 1, i - w + 1, i + w - 1, i + w + 1} {
				v := wd.cfa[j]
				if thrs >= 1 || abs32(v-centre) <= thrs {
					vals = append(vals, v)
				}
			}
			slices.Sort(vals)
			n := len(vals)
			if n%2 == 1 {
				res[i] = vals[n/2]
			} else {
				res[i] = (vals[n/2-1] + vals[n/2]) / 2
			}
		}
	}
	return res, nil
}
