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
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"

	"seehuhn.de/go/darkroom"
)

// fdcModel describes how the three colour planes modulate the carriers
// of a 6×6 periodic pattern.
type fdcModel struct {
	// tw[k][n] is the DFT twiddle factor for frequency k at position n.
	tw [6][6]complex128

	// carriers lists the frequencies (ky, kx) with non-zero energy and
	// amp[i][c] the amplitude of colour c on carrier i.
	carriers [][2]int
	amp      [][3]complex128

	// inv is the inverse of the real normal matrix of the fit.
	inv [3][3]float64
}

// newFDCModel computes the carrier model for the pattern of wd. The
// second return value is false if the pattern cannot separate the three
// colours.
func newFDCModel(wd *window) (*fdcModel, bool) {
	fft := fourier.NewCmplxFFT(6)
	m := &fdcModel{}

	delta := make([]complex128, 6)
	coeff := make([]complex128, 6)
	for pos := range 6 {
		clear(delta)
		delta[pos] = 1
		fft.Coefficients(coeff, delta)
		for k := range 6 {
			m.tw[k][pos] = coeff[k]
		}
	}

	var spec [3][6][6]complex128
	row := make([]complex128, 6)
	for c := range 3 {
		var tmp [6][6]complex128
		for y := range 6 {
			for x := range 6 {
				if wd.color(y, x) == c {
					row[x] = 1
				} else {
					row[x] = 0
				}
			}
			fft.Coefficients(coeff, row)
			copy(tmp[y][:], coeff)
		}
		for kx := range 6 {
			for y := range 6 {
				row[y] = tmp[y][kx]
			}
			fft.Coefficients(coeff, row)
			for ky := range 6 {
				spec[c][ky][kx] = coeff[ky] / 36
			}
		}
	}

	for ky := range 6 {
		for kx := range 6 {
			var a [3]complex128
			energy := 0.0
			for c := range 3 {
				a[c] = spec[c][ky][kx]
				energy = max(energy, cmplx.Abs(a[c]))
			}
			if energy > 1e-6 {
				m.carriers = append(m.carriers, [2]int{ky, kx})
				m.amp = append(m.amp, a)
			}
		}
	}

	normal := mat.NewDense(3, 3, nil)
	for _, a := range m.amp {
		for i := range 3 {
			for j := range 3 {
				normal.Set(i, j, normal.At(i, j)+real(cmplx.Conj(a[i])*a[j]))
			}
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(normal); err != nil {
		return nil, false
	}
	for i := range 3 {
		for j := range 3 {
			m.inv[i][j] = inv.At(i, j)
		}
	}
	return m, true
}

// fdcTile implements frequency domain chroma reconstruction for X-Trans
// sensors. For every pixel the carriers of the pattern are demodulated
// over one period and the colour planes are recovered by a least squares
// fit to the carrier model. The chroma of the fit is then added to the
// luminance of a Markesteijn reconstruction.
func fdcTile(wd *window, _ *Params) ([3][]float32, error) {
	mk, err := markesteijn(wd, 1)
	if err != nil {
		return mk, err
	}
	model, ok := newFDCModel(wd)
	if !ok {
		darkroom.Logger().Debug("demosaic: pattern not separable, using Markesteijn")
		return mk, nil
	}

	w, h := wd.w, wd.h
	n := w * h
	raw := wd.cfa

	// per carrier column frequency, the horizontally demodulated rows
	kxs := map[int][]complex128{}
	for _, k := range model.carriers {
		if _, seen := kxs[k[1]]; seen {
			continue
		}
		if err := wd.sc.reserve(4 * n); err != nil {
			return mk, err
		}
		buf := make([]complex128, n)
		tw := &model.tw[k[1]]
		for r := range h {
			for c := 3; c < w-2; c++ {
				var s complex128
				for q := c - 3; q <= c+2; q++ {
					s += complex(float64(raw[r*w+q]), 0) * tw[q%6]
				}
				buf[r*w+c] = s
			}
		}
		kxs[k[1]] = buf
	}

	if err := wd.sc.reserve(6 * n); err != nil {
		return mk, err
	}
	var rhs [3][]float64
	for c := range rhs {
		rhs[c] = make([]float64, n)
	}
	for idx, k := range model.carriers {
		hbuf := kxs[k[1]]
		tw := &model.tw[k[0]]
		a := model.amp[idx]
		for r := 3; r < h-2; r++ {
			for c := 3; c < w-2; c++ {
				var b complex128
				for q := r - 3; q <= r+2; q++ {
					b += hbuf[q*w+c] * tw[q%6]
				}
				b /= 36
				i := r*w + c
				for ch := range 3 {
					rhs[ch][i] += real(cmplx.Conj(a[ch]) * b)
				}
			}
		}
	}

	out, err := wd.sc.planes(3, n)
	if err != nil {
		return mk, err
	}
	var rgb [3][]float32
	copy(rgb[:], out)
	for r := 3; r < h-2; r++ {
		for c := 3; c < w-2; c++ {
			i := r*w + c
			var x [3]float64
			for p := range 3 {
				for q := range 3 {
					x[p] += model.inv[p][q] * rhs[q][i]
				}
			}
			yFit := 0.2627*x[0] + 0.678*x[1] + 0.0593*x[2]
			yMk := 0.2627*float64(mk[0][i]) + 0.678*float64(mk[1][i]) + 0.0593*float64(mk[2][i])
			for ch := range 3 {
				rgb[ch][i] = max(0, float32(yMk+x[ch]-yFit))
			}
		}
	}
	return rgb, nil
}
