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

// amazeTile implements the AMaZE method with an adaptive directional
// interpolation: horizontal and vertical Hamilton-Adams estimates of
// green are blended with weights from the local gradient energy, and red
// and blue follow the colour differences along the smoother diagonal or
// axis.
func amazeTile(wd *window, _ *Params) ([3][]float32, error) {
	rgb, err := wd.spread()
	if err != nil {
		return rgb, err
	}
	w, h := wd.w, wd.h
	raw := wd.cfa
	g := rgb[cfa.Green]

	for r := 3; r < h-3; r++ {
		for c := 3; c < w-3; c++ {
			if wd.color(r, c) == cfa.Green {
				continue
			}
			i := r*w + c
			gh := (raw[i-1]+raw[i+1])/2 + (2*raw[i]-raw[i-2]-raw[i+2])/4
			gv := (raw[i-w]+raw[i+w])/2 + (2*raw[i]-raw[i-2*w]-raw[i+2*w])/4

			var dH, dV float32
			for k := -1; k <= 1; k++ {
				j := i + k*w
				dH += abs32(raw[j-1]-raw[j+1]) + abs32(2*raw[j]-raw[j-2]-raw[j+2])
				j = i + k
				dV += abs32(raw[j-w]-raw[j+w]) + abs32(2*raw[j]-raw[j-2*w]-raw[j+2*w])
			}
			wH := 1 / (rcdEpsSq + dH*dH)
			wV := 1 / (rcdEpsSq + dV*dV)
			g[i] = max(0, (wH*gh+wV*gv)/(wH+wV))
		}
	}

	for r := 4; r < h-4; r++ {
		for c := 4; c < w-4; c++ {
			own := wd.color(r, c)
			if own == cfa.Green {
				continue
			}
			i := r*w + c
			x := rgb[2-own]
			nw, ne, sw, se := i-w-1, i-w+1, i+w-1, i+w+1
			d1 := rcdEps + abs32(x[nw]-x[se]) + abs32(g[nw]-g[i]) + abs32(g[se]-g[i])
			d2 := rcdEps + abs32(x[ne]-x[sw]) + abs32(g[ne]-g[i]) + abs32(g[sw]-g[i])
			e1 := (x[nw] - g[nw] + x[se] - g[se]) / 2
			e2 := (x[ne] - g[ne] + x[sw] - g[sw]) / 2
			w1, w2 := 1/(d1*d1), 1/(d2*d2)
			x[i] = max(0, g[i]+(w1*e1+w2*e2)/(w1+w2))
		}
	}

	for r := 5; r < h-5; r++ {
		for c := 5; c < w-5; c++ {
			if wd.color(r, c) != cfa.Green {
				continue
			}
			i := r*w + c
			dH := rcdEps + abs32(g[i-1]-g[i+1])
			dV := rcdEps + abs32(g[i-w]-g[i+w])
			for _, ch := range [2]int{cfa.Red, cfa.Blue} {
				x := rgb[ch]
				gradH := rcdEps + abs32(x[i-1]-x[i+1]) + dH
				gradV := rcdEps + abs32(x[i-w]-x[i+w]) + dV
				eh := (x[i-1] - g[i-1] + x[i+1] - g[i+1]) / 2
				ev := (x[i-w] - g[i-w] + x[i+w] - g[i+w]) / 2
				wh, wv := 1/(gradH*gradH), 1/(gradV*gradV)
				x[i] = max(0, g[i]+(wh*eh+wv*ev)/(wh+wv))
			}
		}
	}
	return rgb, nil
}
