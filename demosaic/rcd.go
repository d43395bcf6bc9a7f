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

const (
	rcdEps   = 1e-5
	rcdEpsSq = 1e-10
)

// rcdTile implements Ratio Corrected Demosaicing by Luis Sanz Rodríguez.
// Every stage leaves a border of unset pixels; with a window margin of 10
// the core of the window is exact.
func rcdTile(wd *window, _ *Params) ([3][]float32, error) {
	rgb, err := wd.spread()
	if err != nil {
		return rgb, err
	}
	w, h := wd.w, wd.h
	n := w * h
	bufs, err := wd.sc.planes(5, n)
	if err != nil {
		return rgb, err
	}
	bufV, bufH, vh, lpf, pq := bufs[0], bufs[1], bufs[2], bufs[3], bufs[4]
	raw := wd.cfa
	g := rgb[cfa.Green]

	// vertical and horizontal high-pass energy
	for r := 3; r < h-3; r++ {
		for c := 3; c < w-3; c++ {
			i := r*w + c
			bufV[i] = sq((raw[i-3*w] - raw[i-w] - raw[i+w] + raw[i+3*w]) -
				3*(raw[i-2*w]+raw[i+2*w]) + 6*raw[i])
			bufH[i] = sq((raw[i-3] - raw[i-1] - raw[i+1] + raw[i+3]) -
				3*(raw[i-2]+raw[i+2]) + 6*raw[i])
		}
	}
	for r := 4; r < h-4; r++ {
		for c := 4; c < w-4; c++ {
			i := r*w + c
			v := max(rcdEpsSq, bufV[i-w]+bufV[i]+bufV[i+w])
			hs := max(rcdEpsSq, bufH[i-1]+bufH[i]+bufH[i+1])
			vh[i] = v / (v + hs)
		}
	}

	// low-pass filter at the red and blue photosites
	for r := 1; r < h-1; r++ {
		for c := 1; c < w-1; c++ {
			if wd.color(r, c) == cfa.Green {
				continue
			}
			i := r*w + c
			lpf[i] = raw[i] +
				0.5*(raw[i-w]+raw[i+w]+raw[i-1]+raw[i+1]) +
				0.25*(raw[i-w-1]+raw[i-w+1]+raw[i+w-1]+raw[i+w+1])
		}
	}

	// green at red and blue photosites
	for r := 5; r < h-5; r++ {
		for c := 5; c < w-5; c++ {
			if wd.color(r, c) == cfa.Green {
				continue
			}
			i := r*w + c
			nGrad := rcdEps + abs32(raw[i-w]-raw[i+w]) + abs32(raw[i]-raw[i-2*w]) +
				abs32(raw[i-w]-raw[i-3*w]) + abs32(raw[i-2*w]-raw[i-4*w])
			sGrad := rcdEps + abs32(raw[i-w]-raw[i+w]) + abs32(raw[i]-raw[i+2*w]) +
				abs32(raw[i+w]-raw[i+3*w]) + abs32(raw[i+2*w]-raw[i+4*w])
			wGrad := rcdEps + abs32(raw[i-1]-raw[i+1]) + abs32(raw[i]-raw[i-2]) +
				abs32(raw[i-1]-raw[i-3]) + abs32(raw[i-2]-raw[i-4])
			eGrad := rcdEps + abs32(raw[i-1]-raw[i+1]) + abs32(raw[i]-raw[i+2]) +
				abs32(raw[i+1]-raw[i+3]) + abs32(raw[i+2]-raw[i+4])

			l2 := 2 * lpf[i]
			nEst := raw[i-w] * l2 / (rcdEps + lpf[i] + lpf[i-2*w])
			sEst := raw[i+w] * l2 / (rcdEps + lpf[i] + lpf[i+2*w])
			wEst := raw[i-1] * l2 / (rcdEps + lpf[i] + lpf[i-2])
			eEst := raw[i+1] * l2 / (rcdEps + lpf[i] + lpf[i+2])

			vEst := (sGrad*nEst + nGrad*sEst) / (nGrad + sGrad)
			hEst := (wGrad*eEst + eGrad*wEst) / (eGrad + wGrad)

			g[i] = max(0, intp(disc(vh, i, w), hEst, vEst))
		}
	}

	// diagonal high-pass energy, reusing the first two buffers
	bufP, bufQ := bufV, bufH
	for r := 3; r < h-3; r++ {
		for c := 3; c < w-3; c++ {
			i := r*w + c
			bufP[i] = sq((raw[i-3*w-3] - raw[i-w-1] - raw[i+w+1] + raw[i+3*w+3]) -
				3*(raw[i-2*w-2]+raw[i+2*w+2]) + 6*raw[i])
			bufQ[i] = sq((raw[i-3*w+3] - raw[i-w+1] - raw[i+w-1] + raw[i+3*w-3]) -
				3*(raw[i-2*w+2]+raw[i+2*w-2]) + 6*raw[i])
		}
	}
	for r := 4; r < h-4; r++ {
		for c := 4; c < w-4; c++ {
			i := r*w + c
			ps := max(rcdEpsSq, bufP[i-w-1]+bufP[i]+bufP[i+w+1])
			qs := max(rcdEpsSq, bufQ[i-w+1]+bufQ[i]+bufQ[i+w-1])
			pq[i] = ps / (ps + qs)
		}
	}

	// red at blue photosites and blue at red photosites
	for r := 7; r < h-7; r++ {
		for c := 7; c < w-7; c++ {
			own := wd.color(r, c)
			if own == cfa.Green {
				continue
			}
			i := r*w + c
			x := rgb[2-own]

			nwGrad := rcdEps + abs32(x[i-w-1]-x[i+w+1]) + abs32(x[i-w-1]-x[i-3*w-3]) + abs32(g[i]-g[i-2*w-2])
			neGrad := rcdEps + abs32(x[i-w+1]-x[i+w-1]) + abs32(x[i-w+1]-x[i-3*w+3]) + abs32(g[i]-g[i-2*w+2])
			swGrad := rcdEps + abs32(x[i-w+1]-x[i+w-1]) + abs32(x[i+w-1]-x[i+3*w-3]) + abs32(g[i]-g[i+2*w-2])
			seGrad := rcdEps + abs32(x[i-w-1]-x[i+w+1]) + abs32(x[i+w+1]-x[i+3*w+3]) + abs32(g[i]-g[i+2*w+2])

			nwEst := x[i-w-1] - g[i-w-1]
			neEst := x[i-w+1] - g[i-w+1]
			swEst := x[i+w-1] - g[i+w-1]
			seEst := x[i+w+1] - g[i+w+1]

			pEst := (nwGrad*seEst + seGrad*nwEst) / (nwGrad + seGrad)
			qEst := (neGrad*swEst + swGrad*neEst) / (neGrad + swGrad)

			x[i] = max(0, g[i]+intp(disc(pq, i, w), qEst, pEst))
		}
	}

	// red and blue at green photosites
	for r := 10; r < h-10; r++ {
		for c := 10; c < w-10; c++ {
			if wd.color(r, c) != cfa.Green {
				continue
			}
			i := r*w + c
			d := disc(vh, i, w)
			for _, ch := range [2]int{cfa.Red, cfa.Blue} {
				x := rgb[ch]
				nGrad := rcdEps + abs32(g[i]-g[i-2*w]) + abs32(x[i-w]-x[i+w]) + abs32(x[i-w]-x[i-3*w])
				sGrad := rcdEps + abs32(g[i]-g[i+2*w]) + abs32(x[i+w]-x[i-w]) + abs32(x[i+w]-x[i+3*w])
				wGrad := rcdEps + abs32(g[i]-g[i-2]) + abs32(x[i-1]-x[i+1]) + abs32(x[i-1]-x[i-3])
				eGrad := rcdEps + abs32(g[i]-g[i+2]) + abs32(x[i+1]-x[i-1]) + abs32(x[i+1]-x[i+3])

				nEst := x[i-w] - g[i-w]
				sEst := x[i+w] - g[i+w]
				wEst := x[i-1] - g[i-1]
				eEst := x[i+1] - g[i+1]

				vEst := (nGrad*sEst + sGrad*nEst) / (nGrad + sGrad)
				hEst := (eGrad*wEst + wGrad*eEst) / (eGrad + wGrad)

				x[i] = max(0, g[i]+intp(d, hEst, vEst))
			}
		}
	}
	return rgb, nil
}

// disc chooses between the direction weight at i and the mean of its
// diagonal neighbours, whichever is further from undecided.
func disc(dir []float32, i, w int) float32 {
	central := dir[i]
	neigh := 0.25 * (dir[i-w-1] + dir[i-w+1] + dir[i+w-1] + dir[i+w+1])
	if abs32(0.5-central) < abs32(0.5-neigh) {
		return neigh
	}
	return central
}
